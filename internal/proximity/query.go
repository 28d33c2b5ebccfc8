// Package proximity ranks helpers and help locations by great-circle
// distance from an origin.
package proximity

import (
	"cmp"
	"math"
	"slices"

	"github.com/rotisserie/eris"

	"github.com/watizat/helpmap/internal/category"
	"github.com/watizat/helpmap/internal/geo"
	"github.com/watizat/helpmap/internal/model"
)

// ErrInvalidRadius is returned for a radius that is NaN or not positive.
var ErrInvalidRadius = eris.New("proximity: invalid radius")

// tieEpsilonKm is the distance below which Nearest treats two candidates
// as equidistant and keeps the earlier one.
const tieEpsilonKm = 1e-6

// Entity is anything that can be placed on the map and classified.
// Position returns false when the entity must not appear in results.
type Entity interface {
	Position() (geo.Coordinate, bool)
	HasCategory(t category.Tag) bool
}

// Match pairs an entity with its distance from the query origin.
type Match[T Entity] struct {
	Entity     T
	DistanceKm float64
}

// Result is an untyped match over a mixed pool.
type Result = Match[Entity]

// Query returns the entities of pool within radiusKm of origin, nearest
// first. A nil filter matches every category.
func Query(origin geo.Coordinate, radiusKm float64, filter *category.Tag, pool []Entity) ([]Result, error) {
	return QueryOf(origin, radiusKm, filter, pool)
}

// QueryOf is Query over a homogeneous pool.
func QueryOf[T Entity](origin geo.Coordinate, radiusKm float64, filter *category.Tag, pool []T) ([]Match[T], error) {
	if math.IsNaN(radiusKm) || radiusKm <= 0 {
		return nil, eris.Wrapf(ErrInvalidRadius, "radius %v km", radiusKm)
	}
	if err := origin.Validate(); err != nil {
		return nil, eris.Wrap(err, "proximity: origin")
	}

	out := collect(origin, radiusKm, filter, pool)
	// Exact ties keep input order.
	slices.SortStableFunc(out, func(a, b Match[T]) int {
		return cmp.Compare(a.DistanceKm, b.DistanceKm)
	})
	return out, nil
}

// collect returns the qualifying entities of pool within radiusKm, in pool
// order.
func collect[T Entity](origin geo.Coordinate, radiusKm float64, filter *category.Tag, pool []T) []Match[T] {
	out := make([]Match[T], 0, len(pool))
	for _, e := range pool {
		pos, ok := e.Position()
		if !ok {
			continue
		}
		if filter != nil && !e.HasCategory(*filter) {
			continue
		}
		d, err := geo.DistanceKm(origin, pos)
		if err != nil {
			// A stored entity with a corrupt position is skipped, not fatal.
			continue
		}
		if d > radiusKm {
			continue
		}
		out = append(out, Match[T]{Entity: e, DistanceKm: d})
	}
	return out
}

// Nearest returns the closest matching entity, or nil when none qualifies.
// Only an invalid origin is an error.
func Nearest(origin geo.Coordinate, filter *category.Tag, pool []Entity) (*Result, error) {
	return NearestOf(origin, filter, pool)
}

// NearestOf is Nearest over a homogeneous pool. A candidate replaces the
// current best only when it is closer by more than tieEpsilonKm, so the
// first of several near-equal candidates in pool order wins.
func NearestOf[T Entity](origin geo.Coordinate, filter *category.Tag, pool []T) (*Match[T], error) {
	if err := origin.Validate(); err != nil {
		return nil, eris.Wrap(err, "proximity: origin")
	}

	var best *Match[T]
	for _, m := range collect(origin, math.Inf(1), filter, pool) {
		if best == nil || m.DistanceKm < best.DistanceKm-tieEpsilonKm {
			best = &m
		}
	}
	return best, nil
}

// Helpers extracts the helper matches of a mixed result list.
func Helpers(results []Result) []Match[model.HelperProfile] {
	return only[model.HelperProfile](results)
}

// Locations extracts the help-location matches of a mixed result list.
func Locations(results []Result) []Match[model.HelpLocation] {
	return only[model.HelpLocation](results)
}

func only[T Entity](results []Result) []Match[T] {
	out := make([]Match[T], 0, len(results))
	for _, r := range results {
		if e, ok := r.Entity.(T); ok {
			out = append(out, Match[T]{Entity: e, DistanceKm: r.DistanceKm})
		}
	}
	return out
}
