package server

import (
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"

	"github.com/watizat/helpmap/internal/category"
	"github.com/watizat/helpmap/internal/geo"
	"github.com/watizat/helpmap/internal/model"
	"github.com/watizat/helpmap/internal/proximity"
	"github.com/watizat/helpmap/internal/service"
)

type helperJSON struct {
	model.HelperProfile
	Distance float64 `json:"distance"`
}

type locationJSON struct {
	model.HelpLocation
	Distance *float64 `json:"distance,omitempty"`
}

func newLocationJSON(l model.HelpLocation, d *float64) locationJSON {
	if d != nil {
		r := geo.RoundKm(*d)
		d = &r
	}
	return locationJSON{HelpLocation: l, Distance: d}
}

// GET /api/helpers-nearby?lat&lng&radius&category
func (s *Server) handleHelpersNearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	origin, err := parseOrigin(q)
	if err == nil && origin == nil {
		err = eris.Wrap(geo.ErrInvalidCoordinate, "lat and lng are required")
	}
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	radius, err := s.parseRadius(q, s.cfg.DefaultRadiusKm)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	filter, err := category.ParseFilter(q.Get("category"))
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	matches, err := s.locator.HelpersNearby(r.Context(), *origin, radius, filter)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	out := make([]helperJSON, len(matches))
	for i, m := range matches {
		out[i] = helperJSON{HelperProfile: m.Entity, Distance: geo.RoundKm(m.DistanceKm)}
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /api/helpers/{userId}
func (s *Server) handleHelper(w http.ResponseWriter, r *http.Request) {
	h, err := s.locator.Helper(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

// GET /api/help-locations?lat&lng&radius&category
func (s *Server) handleHelpLocations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	origin, err := parseOrigin(q)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	radius, err := s.parseRadius(q, math.Inf(1))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	filter, err := category.ParseFilter(q.Get("category"))
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	hits, err := s.locator.HelpLocations(r.Context(), origin, radius, filter)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	out := make([]locationJSON, len(hits))
	for i, h := range hits {
		out[i] = newLocationJSON(h.Location, h.DistanceKm)
	}
	writeJSON(w, http.StatusOK, map[string]any{"locations": out})
}

// GET /api/help-locations/nearest?lat&lng&category
func (s *Server) handleNearestLocation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	origin, err := parseOrigin(q)
	if err == nil && origin == nil {
		err = eris.Wrap(geo.ErrInvalidCoordinate, "lat and lng are required")
	}
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	filter, err := category.ParseFilter(q.Get("category"))
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	m, err := s.locator.NearestLocation(r.Context(), *origin, filter)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	var nearest *locationJSON
	if m != nil {
		l := newLocationJSON(m.Entity, &m.DistanceKm)
		nearest = &l
	}
	writeJSON(w, http.StatusOK, map[string]any{"nearest": nearest})
}

// GET /api/help-locations/categories
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	counts, err := s.locator.CategoryCounts(r.Context())
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": counts})
}

// GET /api/can-chat/{userId}
func (s *Server) handleCanChat(w http.ResponseWriter, r *http.Request) {
	initiator, ok := UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing user")
		return
	}
	target := chi.URLParam(r, "userId")

	d, err := s.chats.CanChat(r.Context(), initiator, target)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// parseOrigin returns nil when neither lat nor lng is given. Supplying only
// one of them, or a non-numeric value, is an invalid coordinate.
func parseOrigin(q url.Values) (*geo.Coordinate, error) {
	rawLat, rawLng := strings.TrimSpace(q.Get("lat")), strings.TrimSpace(q.Get("lng"))
	if rawLat == "" && rawLng == "" {
		return nil, nil
	}
	if rawLat == "" || rawLng == "" {
		return nil, eris.Wrap(geo.ErrInvalidCoordinate, "lat and lng must be given together")
	}
	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil {
		return nil, eris.Wrapf(geo.ErrInvalidCoordinate, "lat %q is not a number", rawLat)
	}
	lng, err := strconv.ParseFloat(rawLng, 64)
	if err != nil {
		return nil, eris.Wrapf(geo.ErrInvalidCoordinate, "lng %q is not a number", rawLng)
	}
	c, err := geo.NewCoordinate(lat, lng)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// parseRadius reads the radius query parameter, falling back to def when it
// is absent. The value must be positive and within the configured maximum.
func (s *Server) parseRadius(q url.Values, def float64) (float64, error) {
	raw := strings.TrimSpace(q.Get("radius"))
	if raw == "" {
		return def, nil
	}
	radius, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, eris.Wrapf(proximity.ErrInvalidRadius, "radius %q is not a number", raw)
	}
	if math.IsNaN(radius) || radius <= 0 {
		return 0, eris.Wrapf(proximity.ErrInvalidRadius, "radius %q must be positive", raw)
	}
	if radius > s.cfg.MaxRadiusKm {
		return 0, eris.Wrapf(proximity.ErrInvalidRadius, "radius %g exceeds %g km", radius, s.cfg.MaxRadiusKm)
	}
	return radius, nil
}

var _ Locator = (*service.Finder)(nil)
var _ ChatChecker = (*service.ChatService)(nil)
