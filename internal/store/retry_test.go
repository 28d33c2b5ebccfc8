package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watizat/helpmap/internal/category"
	"github.com/watizat/helpmap/internal/model"
	"github.com/watizat/helpmap/internal/resilience"
)

// flakyStore fails the first n reads with the given error.
type flakyStore struct {
	Store
	failures int
	err      error
	calls    int
}

func (f *flakyStore) ListHelpers(context.Context) ([]model.HelperProfile, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return []model.HelperProfile{{ID: "h1"}}, nil
}

func (f *flakyStore) OpenNeedCategories(_ context.Context, userID string) (category.Set, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return category.NewSet(category.Legal), nil
}

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestRetryStore_RetriesTransient(t *testing.T) {
	inner := &flakyStore{failures: 2, err: resilience.NewTransientError(errors.New("database is locked"))}
	rs := NewRetryStore(inner, fastRetry())

	helpers, err := rs.ListHelpers(context.Background())
	require.NoError(t, err)
	assert.Len(t, helpers, 1)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryStore_PermanentErrorFailsFast(t *testing.T) {
	inner := &flakyStore{failures: 5, err: errors.New("no such table: posts")}
	rs := NewRetryStore(inner, fastRetry())

	_, err := rs.OpenNeedCategories(context.Background(), "m1")
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestRetryStore_GivesUp(t *testing.T) {
	inner := &flakyStore{failures: 10, err: resilience.NewTransientError(errors.New("conn closed"))}
	rs := NewRetryStore(inner, fastRetry())

	_, err := rs.OpenNeedCategories(context.Background(), "m1")
	require.Error(t, err)
	assert.Equal(t, 3, inner.calls)
}
