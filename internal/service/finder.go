// Package service joins the store to the pure matching core. It owns no
// state beyond its dependencies; every call reads a fresh pool.
package service

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/watizat/helpmap/internal/category"
	"github.com/watizat/helpmap/internal/geo"
	"github.com/watizat/helpmap/internal/model"
	"github.com/watizat/helpmap/internal/proximity"
	"github.com/watizat/helpmap/internal/store"
)

// LocationHit is a help location with its distance from the caller, when the
// caller supplied a position.
type LocationHit struct {
	Location   model.HelpLocation
	DistanceKm *float64
}

// Finder answers proximity questions over helpers and help locations.
type Finder struct {
	store store.Store
}

// NewFinder creates a Finder reading from st.
func NewFinder(st store.Store) *Finder {
	return &Finder{store: st}
}

// HelpersNearby returns visible helpers within radiusKm of origin, nearest
// first.
func (f *Finder) HelpersNearby(ctx context.Context, origin geo.Coordinate, radiusKm float64, filter *category.Tag) ([]proximity.Match[model.HelperProfile], error) {
	if err := origin.Validate(); err != nil {
		return nil, err
	}
	pool, err := f.store.ListHelpers(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "service: list helpers")
	}
	return proximity.QueryOf(origin, radiusKm, filter, pool)
}

// HelpLocations lists the catalogue. Without an origin the store order is
// kept and no distance is reported. With an origin, locations beyond
// radiusKm are dropped and the rest ranked by distance; pass +Inf to rank
// the whole catalogue.
func (f *Finder) HelpLocations(ctx context.Context, origin *geo.Coordinate, radiusKm float64, filter *category.Tag) ([]LocationHit, error) {
	if origin != nil {
		if err := origin.Validate(); err != nil {
			return nil, err
		}
	}
	pool, err := f.store.ListHelpLocations(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "service: list help locations")
	}

	if origin == nil {
		out := make([]LocationHit, len(pool))
		for i, l := range pool {
			out[i] = LocationHit{Location: l}
		}
		return out, nil
	}

	matches, err := proximity.QueryOf(*origin, radiusKm, filter, pool)
	if err != nil {
		return nil, err
	}
	out := make([]LocationHit, len(matches))
	for i, m := range matches {
		d := m.DistanceKm
		out[i] = LocationHit{Location: m.Entity, DistanceKm: &d}
	}
	return out, nil
}

// NearestLocation returns the closest help location matching filter, or nil
// when none does.
func (f *Finder) NearestLocation(ctx context.Context, origin geo.Coordinate, filter *category.Tag) (*proximity.Match[model.HelpLocation], error) {
	if err := origin.Validate(); err != nil {
		return nil, err
	}
	pool, err := f.store.ListHelpLocations(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "service: list help locations")
	}
	return proximity.NearestOf(origin, filter, pool)
}

// Helper returns the public profile of a helper. Unknown users, users who
// do not help and helpers hidden from the map are all ErrUserNotFound.
func (f *Finder) Helper(ctx context.Context, id string) (*model.HelperProfile, error) {
	h, err := f.store.GetHelper(ctx, id)
	if err != nil {
		return nil, eris.Wrapf(err, "service: get helper %s", id)
	}
	if h == nil || !h.Visible {
		return nil, eris.Wrapf(ErrUserNotFound, "helper %s", id)
	}
	return h, nil
}

// CategoryCounts returns how many catalogue entries fall in each category.
func (f *Finder) CategoryCounts(ctx context.Context) ([]model.CategoryCount, error) {
	locs, err := f.store.ListHelpLocations(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "service: list help locations")
	}
	return model.CountByCategory(locs), nil
}
