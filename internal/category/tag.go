// Package category defines the closed set of help domains that helpers
// commit to, needs are filed under and help locations are classified by.
package category

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
)

// ErrInvalidCategory is returned for a tag outside the closed enumeration.
var ErrInvalidCategory = eris.New("category: invalid category")

// Tag is one of the fixed help domains.
type Tag string

const (
	Food      Tag = "food"
	Legal     Tag = "legal"
	Health    Tag = "health"
	Housing   Tag = "housing"
	Work      Tag = "work"
	Education Tag = "education"
	Social    Tag = "social"
	Clothes   Tag = "clothes"
	Furniture Tag = "furniture"
	Transport Tag = "transport"
)

// filterAll is the query value meaning "no category filter".
const filterAll = "all"

var all = []Tag{Food, Legal, Health, Housing, Work, Education, Social, Clothes, Furniture, Transport}

var known = func() map[Tag]int {
	m := make(map[Tag]int, len(all))
	for i, t := range all {
		m[t] = i
	}
	return m
}()

var folder = cases.Fold()

// All returns every tag in declaration order.
func All() []Tag {
	out := make([]Tag, len(all))
	copy(out, all)
	return out
}

// Valid reports whether t belongs to the enumeration.
func (t Tag) Valid() bool {
	_, ok := known[t]
	return ok
}

func (t Tag) String() string { return string(t) }

// Parse normalizes s (trim + case fold) and returns the matching tag.
func Parse(s string) (Tag, error) {
	t := Tag(folder.String(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", eris.Wrapf(ErrInvalidCategory, "unknown tag %q", s)
	}
	return t, nil
}

// ParseFilter parses an optional query filter. Empty input and "all" yield
// a nil filter.
func ParseFilter(s string) (*Tag, error) {
	s = strings.TrimSpace(s)
	if s == "" || folder.String(s) == filterAll {
		return nil, nil
	}
	t, err := Parse(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UnmarshalText validates tags decoded from JSON or YAML.
func (t *Tag) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Set is an unordered collection of tags.
type Set map[Tag]struct{}

// NewSet builds a set from already validated tags.
func NewSet(tags ...Tag) Set {
	s := make(Set, len(tags))
	for _, t := range tags {
		s[t] = struct{}{}
	}
	return s
}

// ParseSet parses every entry of raw, failing on the first unknown tag.
func ParseSet(raw []string) (Set, error) {
	s := make(Set, len(raw))
	for _, r := range raw {
		t, err := Parse(r)
		if err != nil {
			return nil, err
		}
		s[t] = struct{}{}
	}
	return s, nil
}

// Has reports membership.
func (s Set) Has(t Tag) bool {
	_, ok := s[t]
	return ok
}

// Intersects reports whether s and other share at least one tag.
func (s Set) Intersects(other Set) bool {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	for t := range small {
		if large.Has(t) {
			return true
		}
	}
	return false
}

// Sorted returns the tags in declaration order.
func (s Set) Sorted() []Tag {
	out := make([]Tag, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return known[out[i]] < known[out[j]] })
	return out
}

// Strings returns Sorted as plain strings.
func (s Set) Strings() []string {
	tags := s.Sorted()
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}

// MarshalJSON encodes the set as a sorted array of tag names.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

// UnmarshalJSON decodes an array of tag names, validating each.
func (s *Set) UnmarshalJSON(b []byte) error {
	var raw []string
	if err := json.Unmarshal(b, &raw); err != nil {
		return eris.Wrap(err, "category: decode set")
	}
	parsed, err := ParseSet(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
