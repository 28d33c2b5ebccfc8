package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watizat/helpmap/internal/category"
	"github.com/watizat/helpmap/internal/geo"
	"github.com/watizat/helpmap/internal/model"
)

// countingStore serves a fixed catalogue and counts backend reads.
type countingStore struct {
	Store
	mu    sync.Mutex
	calls int
	locs  []model.HelpLocation
	err   error
}

func (s *countingStore) ListHelpLocations(_ context.Context, filter *category.Tag) ([]model.HelpLocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	var out []model.HelpLocation
	for _, l := range s.locs {
		if filter == nil || l.Category == *filter {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *countingStore) UpsertHelpLocations(_ context.Context, locs []model.HelpLocation) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locs = locs
	return int64(len(locs)), nil
}

func (s *countingStore) reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func catalogue() []model.HelpLocation {
	c := geo.Coordinate{Latitude: 48.86, Longitude: 2.35}
	return []model.HelpLocation{
		{ID: "f1", Name: "F1", Category: category.Food, Coordinate: c},
		{ID: "l1", Name: "L1", Category: category.Legal, Coordinate: c},
	}
}

func TestCachedStore_HitsAfterFirstRead(t *testing.T) {
	inner := &countingStore{locs: catalogue()}
	cs := NewCachedStore(inner, 0, time.Hour)
	ctx := context.Background()

	for range 3 {
		locs, err := cs.ListHelpLocations(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, locs, 2)
	}
	assert.Equal(t, 1, inner.reads())

	food := category.Food
	locs, err := cs.ListHelpLocations(ctx, &food)
	require.NoError(t, err)
	assert.Len(t, locs, 1)
	assert.Equal(t, 2, inner.reads())

	stats := cs.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, 2, stats.Entries)
	assert.InDelta(t, 0.5, stats.HitRate, 1e-9)
}

func TestCachedStore_TTLExpiration(t *testing.T) {
	inner := &countingStore{locs: catalogue()}
	cs := NewCachedStore(inner, 4, time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cs.now = func() time.Time { return now }

	_, err := cs.ListHelpLocations(context.Background(), nil)
	require.NoError(t, err)
	now = now.Add(30 * time.Second)
	_, err = cs.ListHelpLocations(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.reads())

	now = now.Add(2 * time.Minute)
	_, err = cs.ListHelpLocations(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.reads())
}

func TestCachedStore_LRUEviction(t *testing.T) {
	inner := &countingStore{locs: catalogue()}
	cs := NewCachedStore(inner, 2, time.Hour)
	ctx := context.Background()
	food, legal := category.Food, category.Legal

	_, _ = cs.ListHelpLocations(ctx, nil)    // miss
	_, _ = cs.ListHelpLocations(ctx, &food)  // miss
	_, _ = cs.ListHelpLocations(ctx, nil)    // hit, nil becomes newest
	_, _ = cs.ListHelpLocations(ctx, &legal) // miss, evicts food
	require.Equal(t, 3, inner.reads())

	_, _ = cs.ListHelpLocations(ctx, nil) // still cached
	assert.Equal(t, 3, inner.reads())
	_, _ = cs.ListHelpLocations(ctx, &food) // evicted
	assert.Equal(t, 4, inner.reads())
}

func TestCachedStore_UpsertInvalidates(t *testing.T) {
	inner := &countingStore{locs: catalogue()}
	cs := NewCachedStore(inner, 0, time.Hour)
	ctx := context.Background()

	_, err := cs.ListHelpLocations(ctx, nil)
	require.NoError(t, err)

	_, err = cs.UpsertHelpLocations(ctx, catalogue()[:1])
	require.NoError(t, err)
	assert.Zero(t, cs.Stats().Entries)

	locs, err := cs.ListHelpLocations(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, locs, 1)
}

func TestCachedStore_ErrorsAreNotCached(t *testing.T) {
	inner := &countingStore{err: errors.New("boom")}
	cs := NewCachedStore(inner, 0, time.Hour)

	_, err := cs.ListHelpLocations(context.Background(), nil)
	require.Error(t, err)
	_, err = cs.ListHelpLocations(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, 2, inner.reads())
}

func TestCachedStore_ReturnsCopies(t *testing.T) {
	inner := &countingStore{locs: catalogue()}
	cs := NewCachedStore(inner, 0, time.Hour)

	first, err := cs.ListHelpLocations(context.Background(), nil)
	require.NoError(t, err)
	first[0].Name = "mutated"

	second, err := cs.ListHelpLocations(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "F1", second[0].Name)
}

func TestCachedStore_ConcurrentAccess(t *testing.T) {
	inner := &countingStore{locs: catalogue()}
	cs := NewCachedStore(inner, 0, time.Hour)
	food := category.Food

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var f *category.Tag
			if i%2 == 0 {
				f = &food
			}
			_, err := cs.ListHelpLocations(context.Background(), f)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, inner.reads(), 20)
}
