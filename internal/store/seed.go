package store

import (
	"bytes"
	"context"
	_ "embed"
	"io"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/watizat/helpmap/internal/category"
	"github.com/watizat/helpmap/internal/geo"
	"github.com/watizat/helpmap/internal/model"
)

//go:embed seed/help_locations.yaml
var defaultHelpLocations []byte

// demoNamespace scopes the deterministic ids of demo records so re-seeding
// updates rather than duplicates them.
var demoNamespace = uuid.MustParse("6f1d8a52-3c1e-4b7a-9a51-0c2f3e8d7b10")

// DecodeHelpLocations reads a YAML list of help locations and validates
// every entry.
func DecodeHelpLocations(r io.Reader) ([]model.HelpLocation, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var locs []model.HelpLocation
	if err := dec.Decode(&locs); err != nil {
		if eris.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "seed: decode help locations")
	}
	if err := validateLocations(locs); err != nil {
		return nil, eris.Wrap(err, "seed: validate help locations")
	}
	return locs, nil
}

// DefaultHelpLocations returns the embedded Paris catalogue.
func DefaultHelpLocations() ([]model.HelpLocation, error) {
	return DecodeHelpLocations(bytes.NewReader(defaultHelpLocations))
}

// Demo is a small fixture of users and posts for local development.
type Demo struct {
	Users []model.User
	Posts []model.Post
}

func demoID(name string) string {
	return uuid.NewSHA1(demoNamespace, []byte(name)).String()
}

func at(lat, lng float64) *geo.Coordinate {
	return &geo.Coordinate{Latitude: lat, Longitude: lng}
}

// DemoData builds the development fixture: one migrant with open legal and
// housing needs, three helpers around Paris, and an admin.
func DemoData() Demo {
	migrant := demoID("migrant-amadou")
	return Demo{
		Users: []model.User{
			{ID: migrant, Name: "Amadou", Email: "amadou@example.org", Role: model.RoleMigrant, Location: at(48.8841, 2.3594)},
			{
				ID: demoID("volunteer-claire"), Name: "Claire", Email: "claire@example.org", Role: model.RoleVolunteer,
				Location: at(48.8720, 2.3651), Visible: true,
				HelpCategories: category.NewSet(category.Legal, category.Education),
			},
			{
				ID: demoID("helper-youssef"), Name: "Youssef", Email: "youssef@example.org", Role: model.RoleHelper,
				Location: at(48.8530, 2.3499), Visible: true,
				HelpCategories: category.NewSet(category.Food, category.Clothes),
			},
			{
				ID: demoID("volunteer-ines"), Name: "Ines", Email: "ines@example.org", Role: model.RoleVolunteer,
				Location: at(48.8330, 2.3560), Visible: false,
				HelpCategories: category.NewSet(category.Housing),
			},
			{ID: demoID("admin"), Name: "Admin", Email: "admin@example.org", Role: model.RoleAdmin},
		},
		Posts: []model.Post{
			{ID: demoID("post-legal"), AuthorID: migrant, Type: model.PostTypeNeed, Category: category.Legal, Status: model.PostStatusOpen, Title: "Aide pour une demande d'asile"},
			{ID: demoID("post-housing"), AuthorID: migrant, Type: model.PostTypeNeed, Category: category.Housing, Status: model.PostStatusOpen, Title: "Hebergement d'urgence"},
			{ID: demoID("post-food"), AuthorID: migrant, Type: model.PostTypeNeed, Category: category.Food, Status: model.PostStatusClosed, Title: "Colis alimentaire"},
		},
	}
}

// SeedResult reports what Seed wrote.
type SeedResult struct {
	Locations int64 `json:"locations"`
	Users     int   `json:"users"`
	Posts     int   `json:"posts"`
}

// Seed upserts locs and, when demo is non-nil, the demo users and posts.
func Seed(ctx context.Context, st Store, locs []model.HelpLocation, demo *Demo) (SeedResult, error) {
	var res SeedResult

	n, err := st.UpsertHelpLocations(ctx, locs)
	if err != nil {
		return res, eris.Wrap(err, "seed: help locations")
	}
	res.Locations = n
	zap.L().Info("seeded help locations", zap.Int64("rows", n), zap.Int("input", len(locs)))

	if demo == nil {
		return res, nil
	}
	for _, u := range demo.Users {
		if err := st.UpsertUser(ctx, u); err != nil {
			return res, eris.Wrapf(err, "seed: user %s", u.Name)
		}
		res.Users++
	}
	for _, p := range demo.Posts {
		if err := st.CreatePost(ctx, p); err != nil {
			return res, eris.Wrapf(err, "seed: post %s", p.Title)
		}
		res.Posts++
	}
	zap.L().Info("seeded demo data", zap.Int("users", res.Users), zap.Int("posts", res.Posts))
	return res, nil
}
