package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/watizat/helpmap/internal/category"
	"github.com/watizat/helpmap/internal/geo"
	"github.com/watizat/helpmap/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return &PostgresStore{pool: mock}, mock
}

func mustEWKB(t *testing.T, c geo.Coordinate) []byte {
	t.Helper()
	b, err := ewkb.Marshal(c.Point(), ewkb.NDR)
	require.NoError(t, err)
	return b
}

var republique = geo.Coordinate{Latitude: 48.8675, Longitude: 2.3639}

func TestPostgresStore_ListHelpers(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := mock.NewRows([]string{"id", "name", "role", "geom", "help_categories", "visible"}).
		AddRow("h1", "Lea", "volunteer", mustEWKB(t, republique), []string{"legal", "housing"}, true).
		AddRow("h2", "Sam", "helper", nil, []string{}, false)
	mock.ExpectQuery(`SELECT id, name, role, ST_AsEWKB\(geom\), help_categories, visible FROM users`).
		WillReturnRows(rows)

	got, err := s.ListHelpers(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, model.RoleVolunteer, got[0].Role)
	require.NotNil(t, got[0].Location)
	assert.InDelta(t, republique.Latitude, got[0].Location.Latitude, 1e-9)
	assert.InDelta(t, republique.Longitude, got[0].Location.Longitude, 1e-9)
	assert.Equal(t, category.NewSet(category.Legal, category.Housing), got[0].HelpCategories)
	assert.True(t, got[0].Visible)

	assert.Nil(t, got[1].Location)
	assert.Empty(t, got[1].HelpCategories)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListHelpers_BadCategory(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := mock.NewRows([]string{"id", "name", "role", "geom", "help_categories", "visible"}).
		AddRow("h1", "Lea", "volunteer", nil, []string{"astrology"}, true)
	mock.ExpectQuery(`FROM users`).WillReturnRows(rows)

	_, err := s.ListHelpers(context.Background())
	require.Error(t, err)
	assert.True(t, eris.Is(err, category.ErrInvalidCategory))
}

func TestPostgresStore_GetUser_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	u, err := s.GetUser(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, u)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetHelper(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	cols := []string{"id", "name", "email", "role", "geom", "help_categories", "visible", "created_at"}

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs("h1").
		WillReturnRows(mock.NewRows(cols).
			AddRow("h1", "Lea", "lea@example.org", "helper", mustEWKB(t, republique), []string{"food"}, true, created))
	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs("m1").
		WillReturnRows(mock.NewRows(cols).
			AddRow("m1", "Omar", "", "migrant", nil, []string{}, false, created))

	h, err := s.GetHelper(context.Background(), "h1")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, "Lea", h.Name)
	assert.True(t, h.HasCategory(category.Food))

	h, err = s.GetHelper(context.Background(), "m1")
	require.NoError(t, err)
	assert.Nil(t, h)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_OpenNeedCategories(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT DISTINCT category FROM posts WHERE author_id = \$1 AND type = 'need' AND status = 'open'`).
		WithArgs("m1").
		WillReturnRows(mock.NewRows([]string{"category"}).AddRow("legal").AddRow("food"))

	got, err := s.OpenNeedCategories(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, category.NewSet(category.Legal, category.Food), got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListHelpLocations_Filtered(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	food := category.Food

	mock.ExpectQuery(`FROM help_locations WHERE category = \$1 ORDER BY seq, id`).
		WithArgs("food").
		WillReturnRows(mock.NewRows([]string{"id", "name", "category", "address", "phone", "hours", "geom"}).
			AddRow("food-1", "Resto", "food", "1 rue A", "", "12h-14h", mustEWKB(t, republique)))

	got, err := s.ListHelpLocations(context.Background(), &food)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, category.Food, got[0].Category)
	assert.Equal(t, "12h-14h", got[0].Hours)
	assert.InDelta(t, republique.Latitude, got[0].Latitude, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListHelpLocations_Unfiltered(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM help_locations ORDER BY seq, id`).
		WillReturnRows(mock.NewRows([]string{"id", "name", "category", "address", "phone", "hours", "geom"}))

	got, err := s.ListHelpLocations(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertHelpLocations(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	locs := []model.HelpLocation{
		{ID: "a", Name: "A", Category: category.Health, Coordinate: republique},
		{ID: "b", Name: "B", Category: category.Legal, Coordinate: republique, Phone: "01 23"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_help_locations"}, helpLocationColumns).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "help_locations" AS t .* "updated_at" = EXCLUDED."updated_at" WHERE \(t."seq", t."name", .*t."geom"\) IS DISTINCT FROM`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := s.UpsertHelpLocations(context.Background(), locs)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertHelpLocations_Invalid(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	_, err := s.UpsertHelpLocations(context.Background(), []model.HelpLocation{
		{ID: "a", Name: "A", Category: category.Health, Coordinate: geo.Coordinate{Latitude: 100}},
	})
	require.Error(t, err)
	assert.True(t, eris.Is(err, geo.ErrInvalidCoordinate))

	_, err = s.UpsertHelpLocations(context.Background(), []model.HelpLocation{
		{ID: "a", Name: "A", Category: category.Health, Coordinate: republique},
		{ID: "a", Name: "A2", Category: category.Food, Coordinate: republique},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate help location id a")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertUser(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	loc := republique

	mock.ExpectExec(`INSERT INTO users .* ON CONFLICT \(id\) DO UPDATE`).
		WithArgs("u1", "Lea", "", "volunteer", pgxmock.AnyArg(), []string{"food", "legal"}, true, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpsertUser(context.Background(), model.User{
		ID:             "u1",
		Name:           "Lea",
		Role:           model.RoleVolunteer,
		Location:       &loc,
		HelpCategories: category.NewSet(category.Legal, category.Food),
		Visible:        true,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertUser_UnknownRole(t *testing.T) {
	s, _ := newMockPostgresStore(t)

	err := s.UpsertUser(context.Background(), model.User{ID: "u1", Role: "superuser"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown role")
}

func TestPostgresStore_CreatePost_DefaultsOpen(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO posts`).
		WithArgs("p1", "m1", "need", "legal", "open", "Titre de sejour", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.CreatePost(context.Background(), model.Post{
		ID:       "p1",
		AuthorID: "m1",
		Type:     model.PostTypeNeed,
		Category: category.Legal,
		Title:    "Titre de sejour",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreatePost_InvalidCategory(t *testing.T) {
	s, _ := newMockPostgresStore(t)

	err := s.CreatePost(context.Background(), model.Post{
		ID: "p1", AuthorID: "m1", Type: model.PostTypeNeed, Category: "gardening",
	})
	assert.True(t, eris.Is(err, category.ErrInvalidCategory))
}

func TestDecodePoint(t *testing.T) {
	c, err := decodePoint(nil)
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = decodePoint(mustEWKB(t, republique))
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, republique, *c)

	_, err = decodePoint([]byte{0x01, 0x02})
	assert.Error(t, err)
}
