package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osm2geojson-go/internal/locations"
)

var storesCmd = &cobra.Command{
	Use:   "stores",
	Short: "List the available location store types",
	Long: `List the location store types accepted by --location-store, with the
layout their dumps use. File and LevelDB stores need a path: type,PATH.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Available location stores:")
		for _, name := range locations.Names() {
			layout, err := locations.LayoutOf(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "  %-20s %s dump\n", name, layout)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(storesCmd)
}
