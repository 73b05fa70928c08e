package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/lifelink-health/donormatch/internal/geo"
)

var gazetteerCmd = &cobra.Command{
	Use:   "gazetteer [place]",
	Short: "Look up a place in the embedded gazetteer",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			fmt.Printf("gazetteer holds %d places\n", geo.Size())
			return nil
		}

		c, ok := geo.Resolve(args[0], "")
		if !ok {
			return eris.Errorf("place not found: %q", args[0])
		}
		fmt.Printf("%s -> %.4f, %.4f\n", geo.Normalize(args[0]), c.Lat, c.Lng)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(gazetteerCmd)
}
