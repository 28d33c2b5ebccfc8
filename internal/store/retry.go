package store

import (
	"context"

	"github.com/watizat/helpmap/internal/category"
	"github.com/watizat/helpmap/internal/model"
	"github.com/watizat/helpmap/internal/resilience"
)

// RetryStore retries transient failures of idempotent reads. Writes pass
// through untouched.
type RetryStore struct {
	Store
	cfg resilience.RetryConfig
}

// NewRetryStore wraps inner with the given retry policy.
func NewRetryStore(inner Store, cfg resilience.RetryConfig) *RetryStore {
	return &RetryStore{Store: inner, cfg: cfg}
}

func (r *RetryStore) with(op string) resilience.RetryConfig {
	cfg := r.cfg
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("store", op)
	}
	return cfg
}

func (r *RetryStore) ListHelpers(ctx context.Context) ([]model.HelperProfile, error) {
	return resilience.DoVal(ctx, r.with("list_helpers"), r.Store.ListHelpers)
}

func (r *RetryStore) GetHelper(ctx context.Context, id string) (*model.HelperProfile, error) {
	return resilience.DoVal(ctx, r.with("get_helper"), func(ctx context.Context) (*model.HelperProfile, error) {
		return r.Store.GetHelper(ctx, id)
	})
}

func (r *RetryStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	return resilience.DoVal(ctx, r.with("get_user"), func(ctx context.Context) (*model.User, error) {
		return r.Store.GetUser(ctx, id)
	})
}

func (r *RetryStore) OpenNeedCategories(ctx context.Context, userID string) (category.Set, error) {
	return resilience.DoVal(ctx, r.with("open_need_categories"), func(ctx context.Context) (category.Set, error) {
		return r.Store.OpenNeedCategories(ctx, userID)
	})
}

func (r *RetryStore) ListHelpLocations(ctx context.Context, filter *category.Tag) ([]model.HelpLocation, error) {
	return resilience.DoVal(ctx, r.with("list_help_locations"), func(ctx context.Context) ([]model.HelpLocation, error) {
		return r.Store.ListHelpLocations(ctx, filter)
	})
}
