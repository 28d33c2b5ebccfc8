package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/watizat/helpmap/internal/model"
)

var categoriesFile string

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List help categories with catalogue counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		locs, err := loadLocations(categoriesFile)
		if err != nil {
			return err
		}
		formatCategories(os.Stdout, model.CountByCategory(locs))
		return nil
	},
}

func init() {
	categoriesCmd.Flags().StringVar(&categoriesFile, "file", "", "YAML file of help locations (default: built-in catalogue)")
	rootCmd.AddCommand(categoriesCmd)
}

func formatCategories(out io.Writer, counts []model.CategoryCount) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CATEGORY\tLOCATIONS")
	for _, c := range counts {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", c.ID, c.Count)
	}
	_ = w.Flush()
}
