package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/watizat/helpmap/internal/category"
	"github.com/watizat/helpmap/internal/geo"
	"github.com/watizat/helpmap/internal/model"
	"github.com/watizat/helpmap/internal/proximity"
)

var (
	nearestLat      float64
	nearestLng      float64
	nearestCategory string
	nearestFile     string
	nearestLimit    int
)

var nearestCmd = &cobra.Command{
	Use:   "nearest",
	Short: "Find the closest help locations to a point",
	Long:  "Ranks the help-location catalogue by distance from --lat/--lng without touching the store. Without either flag the configured geo.default_lat/default_lng centre is used. Reads the built-in catalogue unless --file is given.",
	RunE: func(cmd *cobra.Command, args []string) error {
		lat, lng, err := nearestOrigin(cmd.Flags().Changed("lat"), cmd.Flags().Changed("lng"))
		if err != nil {
			return err
		}
		locs, err := loadLocations(nearestFile)
		if err != nil {
			return err
		}
		return runNearest(os.Stdout, locs, lat, lng, nearestCategory, nearestLimit)
	},
}

func init() {
	nearestCmd.Flags().Float64Var(&nearestLat, "lat", 0, "latitude in decimal degrees")
	nearestCmd.Flags().Float64Var(&nearestLng, "lng", 0, "longitude in decimal degrees")
	nearestCmd.Flags().StringVar(&nearestCategory, "category", "", "category filter (default: all)")
	nearestCmd.Flags().StringVar(&nearestFile, "file", "", "YAML file of help locations (default: built-in catalogue)")
	nearestCmd.Flags().IntVar(&nearestLimit, "limit", 1, "number of locations to list")
	nearestCmd.MarkFlagsRequiredTogether("lat", "lng")
	rootCmd.AddCommand(nearestCmd)
}

// nearestOrigin picks the flag values when both were set and the configured
// default centre when neither was.
func nearestOrigin(latSet, lngSet bool) (float64, float64, error) {
	switch {
	case latSet && lngSet:
		return nearestLat, nearestLng, nil
	case latSet || lngSet:
		return 0, 0, eris.Wrap(geo.ErrInvalidCoordinate, "nearest: --lat and --lng must be given together")
	}
	return cfg.Geo.DefaultLat, cfg.Geo.DefaultLng, nil
}

func runNearest(out io.Writer, locs []model.HelpLocation, lat, lng float64, rawCategory string, limit int) error {
	origin, err := geo.NewCoordinate(lat, lng)
	if err != nil {
		return err
	}
	filter, err := category.ParseFilter(rawCategory)
	if err != nil {
		return err
	}

	var matches []proximity.Match[model.HelpLocation]
	if limit <= 1 {
		m, err := proximity.NearestOf(origin, filter, locs)
		if err != nil {
			return err
		}
		if m != nil {
			matches = append(matches, *m)
		}
	} else {
		all, err := proximity.QueryOf(origin, math.Inf(1), filter, locs)
		if err != nil {
			return err
		}
		matches = all[:min(limit, len(all))]
	}

	if len(matches) == 0 {
		_, _ = fmt.Fprintln(out, "no help location found")
		return nil
	}
	formatMatches(out, matches)
	return nil
}

// formatMatches writes a tabular representation of ranked locations to w.
func formatMatches(out io.Writer, matches []proximity.Match[model.HelpLocation]) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCATEGORY\tKM\tNAME\tADDRESS")
	_, _ = fmt.Fprintln(w, "--\t--------\t--\t----\t-------")
	for _, m := range matches {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.1f\t%s\t%s\n",
			m.Entity.ID,
			m.Entity.Category,
			geo.RoundKm(m.DistanceKm),
			m.Entity.Name,
			m.Entity.Address,
		)
	}
	_ = w.Flush()
}
