package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/watizat/helpmap/internal/model"
	"github.com/watizat/helpmap/internal/store"
)

var (
	seedFile string
	seedDemo bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load help locations (and optionally demo users) into the store",
	Long:  "Upserts the help-location catalogue from --file, or the built-in Paris catalogue when no file is given. With --demo, also writes a small set of users and posts for local development.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("seed"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		return runSeed(ctx, st, os.Stdout, seedFile, seedDemo)
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "", "YAML file of help locations (default: built-in catalogue)")
	seedCmd.Flags().BoolVar(&seedDemo, "demo", false, "also seed demo users and posts")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(ctx context.Context, st store.Store, out io.Writer, file string, demo bool) error {
	if err := st.Migrate(ctx); err != nil {
		return eris.Wrap(err, "seed: migrate")
	}

	locs, err := loadLocations(file)
	if err != nil {
		return err
	}

	var fixture *store.Demo
	if demo {
		d := store.DemoData()
		fixture = &d
	}

	res, err := store.Seed(ctx, st, locs, fixture)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// loadLocations reads a catalogue file, or the built-in one when path is
// empty.
func loadLocations(path string) ([]model.HelpLocation, error) {
	if path == "" {
		return store.DefaultHelpLocations()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close() //nolint:errcheck

	locs, err := store.DecodeHelpLocations(f)
	if err != nil {
		return nil, eris.Wrapf(err, "load %s", path)
	}
	return locs, nil
}
