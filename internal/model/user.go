package model

import (
	"time"

	"github.com/watizat/helpmap/internal/category"
	"github.com/watizat/helpmap/internal/geo"
)

// Role is the platform role a user registered with.
type Role string

const (
	RoleMigrant   Role = "migrant"
	RoleVolunteer Role = "volunteer"
	RoleHelper    Role = "helper"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleMigrant, RoleVolunteer, RoleHelper, RoleAdmin:
		return true
	}
	return false
}

// Helps reports whether users with this role offer help to others.
func (r Role) Helps() bool {
	return r == RoleVolunteer || r == RoleHelper
}

// User is the account record shared with the external auth service.
type User struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Email          string          `json:"email,omitempty"`
	Role           Role            `json:"role"`
	Location       *geo.Coordinate `json:"location,omitempty"`
	HelpCategories category.Set    `json:"help_categories"`
	Visible        bool            `json:"visible"`
	CreatedAt      time.Time       `json:"created_at"`
}

// HelperProfile is the public, proximity-searchable view of a volunteer or
// helper.
type HelperProfile struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Role           Role            `json:"role"`
	Location       *geo.Coordinate `json:"location,omitempty"`
	HelpCategories category.Set    `json:"help_categories"`
	Visible        bool            `json:"-"`
}

// Profile returns the helper view of u. ok is false for roles that do not
// help (migrants, admins).
func (u User) Profile() (HelperProfile, bool) {
	if !u.Role.Helps() {
		return HelperProfile{}, false
	}
	return HelperProfile{
		ID:             u.ID,
		Name:           u.Name,
		Role:           u.Role,
		Location:       u.Location,
		HelpCategories: u.HelpCategories,
		Visible:        u.Visible,
	}, true
}

// Position returns the helper's location when it is visible on the map.
func (h HelperProfile) Position() (geo.Coordinate, bool) {
	if !h.Visible || h.Location == nil {
		return geo.Coordinate{}, false
	}
	return *h.Location, true
}

// HasCategory reports whether the helper committed to t.
func (h HelperProfile) HasCategory(t category.Tag) bool {
	return h.HelpCategories.Has(t)
}
