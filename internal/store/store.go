// Package store persists users, posts and help locations for the helpmap
// service. Absent records are reported as nil values, never as errors.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/watizat/helpmap/internal/category"
	"github.com/watizat/helpmap/internal/model"
)

// Store defines the persistence interface used by the service layer.
type Store interface {
	// Users
	ListHelpers(ctx context.Context) ([]model.HelperProfile, error)
	GetHelper(ctx context.Context, id string) (*model.HelperProfile, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	UpsertUser(ctx context.Context, u model.User) error

	// Posts
	CreatePost(ctx context.Context, p model.Post) error
	OpenNeedCategories(ctx context.Context, userID string) (category.Set, error)

	// Help locations
	ListHelpLocations(ctx context.Context, filter *category.Tag) ([]model.HelpLocation, error)
	// UpsertHelpLocations returns the number of locations inserted or changed.
	UpsertHelpLocations(ctx context.Context, locs []model.HelpLocation) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Config selects and tunes the store backend.
type Config struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "postgres" or "sqlite"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// Open builds the configured backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, eris.New("store: postgres driver requires database_url")
		}
		return NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
	case "sqlite", "":
		return NewSQLite(cfg.SQLitePath)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

func validateLocations(locs []model.HelpLocation) error {
	seen := make(map[string]bool, len(locs))
	for _, l := range locs {
		if err := l.Validate(); err != nil {
			return err
		}
		if seen[l.ID] {
			return eris.Errorf("store: duplicate help location id %s", l.ID)
		}
		seen[l.ID] = true
	}
	return nil
}

func validateUser(u model.User) error {
	if u.ID == "" {
		return eris.New("store: user missing id")
	}
	if !u.Role.Valid() {
		return eris.Errorf("store: user %s has unknown role %q", u.ID, u.Role)
	}
	if u.Location != nil {
		if err := u.Location.Validate(); err != nil {
			return eris.Wrapf(err, "store: user %s", u.ID)
		}
	}
	return nil
}

func validatePost(p model.Post) error {
	if p.ID == "" || p.AuthorID == "" {
		return eris.New("store: post missing id or author")
	}
	if p.Type != model.PostTypeNeed && p.Type != model.PostTypeOffer {
		return eris.Errorf("store: post %s has unknown type %q", p.ID, p.Type)
	}
	if !p.Category.Valid() {
		return eris.Wrapf(category.ErrInvalidCategory, "store: post %s", p.ID)
	}
	return nil
}
