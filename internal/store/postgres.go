package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/watizat/helpmap/internal/category"
	"github.com/watizat/helpmap/internal/db"
	"github.com/watizat/helpmap/internal/geo"
	"github.com/watizat/helpmap/internal/model"
)

// PostgresStore implements Store on PostGIS using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const (
	sqlListHelpers = `SELECT id, name, role, ST_AsEWKB(geom), help_categories, visible FROM users WHERE role IN ('volunteer', 'helper') ORDER BY created_at, id`
	sqlGetUser     = `SELECT id, name, email, role, ST_AsEWKB(geom), help_categories, visible, created_at FROM users WHERE id = $1`
	sqlOpenNeeds   = `SELECT DISTINCT category FROM posts WHERE author_id = $1 AND type = 'need' AND status = 'open'`
	sqlListLocs    = `SELECT id, name, category, address, phone, hours, ST_AsEWKB(geom) FROM help_locations`
)

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE EXTENSION IF NOT EXISTS postgis;

CREATE TABLE IF NOT EXISTS users (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	email           TEXT NOT NULL DEFAULT '',
	role            TEXT NOT NULL,
	geom            geometry(Point, 4326),
	help_categories TEXT[] NOT NULL DEFAULT '{}',
	visible         BOOLEAN NOT NULL DEFAULT false,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);
CREATE INDEX IF NOT EXISTS idx_users_geom ON users USING GIST (geom);

CREATE TABLE IF NOT EXISTS posts (
	id         TEXT PRIMARY KEY,
	author_id  TEXT NOT NULL REFERENCES users(id),
	type       TEXT NOT NULL,
	category   TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'open',
	title      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_posts_author_open ON posts(author_id) WHERE type = 'need' AND status = 'open';

CREATE TABLE IF NOT EXISTS help_locations (
	id         TEXT PRIMARY KEY,
	seq        INTEGER NOT NULL,
	name       TEXT NOT NULL,
	category   TEXT NOT NULL,
	address    TEXT NOT NULL DEFAULT '',
	phone      TEXT NOT NULL DEFAULT '',
	hours      TEXT NOT NULL DEFAULT '',
	geom       geometry(Point, 4326) NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_help_locations_category ON help_locations(category);
CREATE INDEX IF NOT EXISTS idx_help_locations_geom ON help_locations USING GIST (geom);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) ListHelpers(ctx context.Context) ([]model.HelperProfile, error) {
	rows, err := s.pool.Query(ctx, sqlListHelpers)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list helpers")
	}
	defer rows.Close()

	var out []model.HelperProfile
	for rows.Next() {
		var (
			h     model.HelperProfile
			role  string
			point []byte
			cats  []string
		)
		if err := rows.Scan(&h.ID, &h.Name, &role, &point, &cats, &h.Visible); err != nil {
			return nil, eris.Wrap(err, "postgres: scan helper")
		}
		h.Role = model.Role(role)
		if h.Location, err = decodePoint(point); err != nil {
			return nil, eris.Wrapf(err, "postgres: helper %s location", h.ID)
		}
		if h.HelpCategories, err = category.ParseSet(cats); err != nil {
			return nil, eris.Wrapf(err, "postgres: helper %s categories", h.ID)
		}
		out = append(out, h)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate helpers")
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	var (
		u     model.User
		role  string
		point []byte
		cats  []string
	)
	err := s.pool.QueryRow(ctx, sqlGetUser, id).
		Scan(&u.ID, &u.Name, &u.Email, &role, &point, &cats, &u.Visible, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get user %s", id)
	}

	u.Role = model.Role(role)
	if u.Location, err = decodePoint(point); err != nil {
		return nil, eris.Wrapf(err, "postgres: user %s location", id)
	}
	if u.HelpCategories, err = category.ParseSet(cats); err != nil {
		return nil, eris.Wrapf(err, "postgres: user %s categories", id)
	}
	return &u, nil
}

func (s *PostgresStore) GetHelper(ctx context.Context, id string) (*model.HelperProfile, error) {
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

func (s *PostgresStore) UpsertUser(ctx context.Context, u model.User) error {
	if err := validateUser(u); err != nil {
		return err
	}
	point, err := encodeOptionalPoint(u.Location)
	if err != nil {
		return err
	}
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO users (id, name, email, role, geom, help_categories, visible, created_at)
		VALUES ($1, $2, $3, $4, ST_GeomFromEWKB($5), $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, email = EXCLUDED.email, role = EXCLUDED.role,
			geom = EXCLUDED.geom, help_categories = EXCLUDED.help_categories,
			visible = EXCLUDED.visible`,
		u.ID, u.Name, u.Email, string(u.Role), point, u.HelpCategories.Strings(), u.Visible, createdAt,
	)
	return eris.Wrapf(err, "postgres: upsert user %s", u.ID)
}

func (s *PostgresStore) CreatePost(ctx context.Context, p model.Post) error {
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

	_, err := s.pool.Exec(ctx,
		`INSERT INTO posts (id, author_id, type, category, status, title, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (id) DO NOTHING`,
		p.ID, p.AuthorID, string(p.Type), string(p.Category), string(status), p.Title, createdAt,
	)
	return eris.Wrapf(err, "postgres: create post %s", p.ID)
}

func (s *PostgresStore) OpenNeedCategories(ctx context.Context, userID string) (category.Set, error) {
	rows, err := s.pool.Query(ctx, sqlOpenNeeds, userID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: open needs for %s", userID)
	}
	defer rows.Close()

	out := category.NewSet()
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "postgres: scan need category")
		}
		t, err := category.Parse(raw)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: need category for %s", userID)
		}
		out[t] = struct{}{}
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate need categories")
}

func (s *PostgresStore) ListHelpLocations(ctx context.Context, filter *category.Tag) ([]model.HelpLocation, error) {
	query := sqlListLocs
	var args []any
	if filter != nil {
		query += ` WHERE category = $1`
		args = append(args, string(*filter))
	}
	query += ` ORDER BY seq, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list help locations")
	}
	defer rows.Close()

	var out []model.HelpLocation
	for rows.Next() {
		var (
			l     model.HelpLocation
			cat   string
			point []byte
		)
		if err := rows.Scan(&l.ID, &l.Name, &cat, &l.Address, &l.Phone, &l.Hours, &point); err != nil {
			return nil, eris.Wrap(err, "postgres: scan help location")
		}
		if l.Category, err = category.Parse(cat); err != nil {
			return nil, eris.Wrapf(err, "postgres: help location %s", l.ID)
		}
		c, err := decodePoint(point)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: help location %s", l.ID)
		}
		if c == nil {
			return nil, eris.Errorf("postgres: help location %s has no geometry", l.ID)
		}
		l.Coordinate = *c
		out = append(out, l)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate help locations")
}

// helpLocationColumns is the COPY column order for UpsertHelpLocations.
var helpLocationColumns = []string{"id", "seq", "name", "category", "address", "phone", "hours", "geom", "updated_at"}

func (s *PostgresStore) UpsertHelpLocations(ctx context.Context, locs []model.HelpLocation) (int64, error) {
	if err := validateLocations(locs); err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(locs))
	for i, l := range locs {
		point, err := encodePoint(l.Point())
		if err != nil {
			return 0, err
		}
		rows = append(rows, []any{l.ID, int32(i), l.Name, string(l.Category), l.Address, l.Phone, l.Hours, point, now})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "help_locations",
		Columns:      helpLocationColumns,
		ConflictKeys: []string{"id"},
		StampCol:     "updated_at",
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert help locations")
	}
	return n, nil
}

func encodePoint(p *geom.Point) ([]byte, error) {
	data, err := ewkb.Marshal(p, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: encode point")
	}
	return data, nil
}

func encodeOptionalPoint(c *geo.Coordinate) ([]byte, error) {
	if c == nil {
		return nil, nil
	}
	return encodePoint(c.Point())
}

// decodePoint parses an EWKB point. NULL geometries decode to nil.
func decodePoint(data []byte) (*geo.Coordinate, error) {
	if len(data) == 0 {
		return nil, nil
	}
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: decode point")
	}
	p, ok := g.(*geom.Point)
	if !ok {
		return nil, eris.Errorf("postgres: expected point geometry, got %T", g)
	}
	c, err := geo.FromPoint(p)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
