package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/watizat/helpmap/internal/category"
	"github.com/watizat/helpmap/internal/geo"
	"github.com/watizat/helpmap/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Coordinates are
// kept as plain lat/lng columns.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		dsn = "helpmap.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS users (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	email           TEXT NOT NULL DEFAULT '',
	role            TEXT NOT NULL,
	lat             REAL,
	lng             REAL,
	help_categories TEXT NOT NULL DEFAULT '[]',
	visible         INTEGER NOT NULL DEFAULT 0,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);

CREATE TABLE IF NOT EXISTS posts (
	id         TEXT PRIMARY KEY,
	author_id  TEXT NOT NULL REFERENCES users(id),
	type       TEXT NOT NULL,
	category   TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'open',
	title      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_posts_author ON posts(author_id, type, status);

CREATE TABLE IF NOT EXISTS help_locations (
	id         TEXT PRIMARY KEY,
	seq        INTEGER NOT NULL,
	name       TEXT NOT NULL,
	category   TEXT NOT NULL,
	address    TEXT NOT NULL DEFAULT '',
	phone      TEXT NOT NULL DEFAULT '',
	hours      TEXT NOT NULL DEFAULT '',
	lat        REAL NOT NULL,
	lng        REAL NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_help_locations_category ON help_locations(category);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteUserColumns = `id, name, email, role, lat, lng, help_categories, visible, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteUser(r rowScanner) (model.User, error) {
	var (
		u        model.User
		role     string
		lat, lng sql.NullFloat64
		cats     string
	)
	if err := r.Scan(&u.ID, &u.Name, &u.Email, &role, &lat, &lng, &cats, &u.Visible, &u.CreatedAt); err != nil {
		return u, err
	}
	u.Role = model.Role(role)
	if lat.Valid && lng.Valid {
		c, err := geo.NewCoordinate(lat.Float64, lng.Float64)
		if err != nil {
			return u, eris.Wrapf(err, "sqlite: user %s location", u.ID)
		}
		u.Location = &c
	}
	if err := json.Unmarshal([]byte(cats), &u.HelpCategories); err != nil {
		return u, eris.Wrapf(err, "sqlite: user %s categories", u.ID)
	}
	return u, nil
}

func (s *SQLiteStore) ListHelpers(ctx context.Context) ([]model.HelperProfile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteUserColumns+` FROM users WHERE role IN ('volunteer', 'helper') ORDER BY created_at, id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list helpers")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.HelperProfile
	for rows.Next() {
		u, err := scanSQLiteUser(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan helper")
		}
		if p, ok := u.Profile(); ok {
			out = append(out, p)
		}
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate helpers")
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteUserColumns+` FROM users WHERE id = ?`, id)
	u, err := scanSQLiteUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get user %s", id)
	}
	return &u, nil
}

func (s *SQLiteStore) GetHelper(ctx context.Context, id string) (*model.HelperProfile, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil || u == nil {
		return nil, err
	}
	p, ok := u.Profile()
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *SQLiteStore) UpsertUser(ctx context.Context, u model.User) error {
	if err := validateUser(u); err != nil {
		return err
	}
	cats, err := json.Marshal(u.HelpCategories)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal categories")
	}
	var lat, lng sql.NullFloat64
	if u.Location != nil {
		lat = sql.NullFloat64{Float64: u.Location.Latitude, Valid: true}
		lng = sql.NullFloat64{Float64: u.Location.Longitude, Valid: true}
	}
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (`+sqliteUserColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name, email = excluded.email, role = excluded.role,
			lat = excluded.lat, lng = excluded.lng,
			help_categories = excluded.help_categories, visible = excluded.visible`,
		u.ID, u.Name, u.Email, string(u.Role), lat, lng, string(cats), u.Visible, createdAt,
	)
	return eris.Wrapf(err, "sqlite: upsert user %s", u.ID)
}

func (s *SQLiteStore) CreatePost(ctx context.Context, p model.Post) error {
	if err := validatePost(p); err != nil {
		return err
	}
	status := p.Status
	if status == "" {
		status = model.PostStatusOpen
	}
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO posts (id, author_id, type, category, status, title, created_at) VALUES (?, ?, ?, ?, ?, ?, ?) ON CONFLICT (id) DO NOTHING`,
		p.ID, p.AuthorID, string(p.Type), string(p.Category), string(status), p.Title, createdAt,
	)
	return eris.Wrapf(err, "sqlite: create post %s", p.ID)
}

func (s *SQLiteStore) OpenNeedCategories(ctx context.Context, userID string) (category.Set, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT category FROM posts WHERE author_id = ? AND type = 'need' AND status = 'open'`, userID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: open needs for %s", userID)
	}
	defer rows.Close() //nolint:errcheck

	out := category.NewSet()
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan need category")
		}
		t, err := category.Parse(raw)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: need category for %s", userID)
		}
		out[t] = struct{}{}
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate need categories")
}

func (s *SQLiteStore) ListHelpLocations(ctx context.Context, filter *category.Tag) ([]model.HelpLocation, error) {
	query := `SELECT id, name, category, address, phone, hours, lat, lng FROM help_locations`
	var args []any
	if filter != nil {
		query += ` WHERE category = ?`
		args = append(args, string(*filter))
	}
	query += ` ORDER BY seq, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list help locations")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.HelpLocation
	for rows.Next() {
		var (
			l   model.HelpLocation
			cat string
		)
		if err := rows.Scan(&l.ID, &l.Name, &cat, &l.Address, &l.Phone, &l.Hours, &l.Latitude, &l.Longitude); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan help location")
		}
		if l.Category, err = category.Parse(cat); err != nil {
			return nil, eris.Wrapf(err, "sqlite: help location %s", l.ID)
		}
		out = append(out, l)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate help locations")
}

func (s *SQLiteStore) UpsertHelpLocations(ctx context.Context, locs []model.HelpLocation) (int64, error) {
	if err := validateLocations(locs); err != nil {
		return 0, err
	}
	if len(locs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO help_locations (id, seq, name, category, address, phone, hours, lat, lng, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			seq = excluded.seq, name = excluded.name, category = excluded.category,
			address = excluded.address, phone = excluded.phone, hours = excluded.hours,
			lat = excluded.lat, lng = excluded.lng, updated_at = excluded.updated_at
		WHERE (seq, name, category, address, phone, hours, lat, lng)
			IS NOT (excluded.seq, excluded.name, excluded.category, excluded.address,
				excluded.phone, excluded.hours, excluded.lat, excluded.lng)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert help location")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	var n int64
	for i, l := range locs {
		res, err := stmt.ExecContext(ctx, l.ID, i, l.Name, string(l.Category), l.Address, l.Phone, l.Hours, l.Latitude, l.Longitude, now)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert help location %s", l.ID)
		}
		affected, _ := res.RowsAffected()
		n += affected
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit help locations")
	}
	return n, nil
}
