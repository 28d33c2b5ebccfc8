package model

import (
	"github.com/rotisserie/eris"

	"github.com/watizat/helpmap/internal/category"
	"github.com/watizat/helpmap/internal/geo"
)

// HelpLocation is a fixed point of service (food bank, clinic, legal aid
// office, ...). Coordinates are inlined as lat/lng.
type HelpLocation struct {
	ID             string       `json:"id" yaml:"id"`
	Name           string       `json:"name" yaml:"name"`
	Category       category.Tag `json:"category" yaml:"category"`
	geo.Coordinate `yaml:",inline"`
	Address        string       `json:"address" yaml:"address"`
	Phone          string       `json:"phone,omitempty" yaml:"phone,omitempty"`
	Hours          string       `json:"hours,omitempty" yaml:"hours,omitempty"`
}

// Validate checks the fields required for storage and ranking.
func (l HelpLocation) Validate() error {
	if l.ID == "" {
		return eris.New("model: help location missing id")
	}
	if l.Name == "" {
		return eris.Errorf("model: help location %s missing name", l.ID)
	}
	if !l.Category.Valid() {
		return eris.Wrapf(category.ErrInvalidCategory, "help location %s", l.ID)
	}
	if err := l.Coordinate.Validate(); err != nil {
		return eris.Wrapf(err, "help location %s", l.ID)
	}
	return nil
}

// Position always succeeds: every help location has coordinates.
func (l HelpLocation) Position() (geo.Coordinate, bool) {
	return l.Coordinate, true
}

// HasCategory reports whether the location is classified under t.
func (l HelpLocation) HasCategory(t category.Tag) bool {
	return l.Category == t
}

// CategoryCount is the number of help locations in one category.
type CategoryCount struct {
	ID    category.Tag `json:"id"`
	Count int          `json:"count"`
}

// CountByCategory tallies locations over the full enumeration, zeros
// included, in declaration order.
func CountByCategory(locs []HelpLocation) []CategoryCount {
	counts := make(map[category.Tag]int, len(locs))
	for _, l := range locs {
		counts[l.Category]++
	}
	tags := category.All()
	out := make([]CategoryCount, len(tags))
	for i, t := range tags {
		out[i] = CategoryCount{ID: t, Count: counts[t]}
	}
	return out
}
