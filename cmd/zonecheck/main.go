// Command zonecheck reports which restricted zones contain a coordinate.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/skyguard/fleet-backend/internal/geofence"
)

func main() {
	_ = godotenv.Load(".env.local")
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "zonecheck:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		zonesFile string
		list      bool
	)
	cmd := &cobra.Command{
		Use:           "zonecheck [<lat> <lon>]",
		Short:         "Classify a coordinate against the restricted zone catalog",
		Args:          cobra.RangeArgs(0, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := geofence.LoadFile(zonesFile)
			if err != nil {
				return err
			}
			if list {
				printCatalog(cmd.OutOrStdout(), catalog)
				return nil
			}
			if len(args) != 2 {
				return fmt.Errorf("expected <lat> <lon>, got %d argument(s)", len(args))
			}
			lat, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("latitude %q: %w", args[0], err)
			}
			lon, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("longitude %q: %w", args[1], err)
			}
			printHits(cmd.OutOrStdout(), lat, lon, catalog.ZonesContaining(lat, lon))
			return nil
		},
	}
	cmd.Flags().StringVar(&zonesFile, "zones", os.Getenv("ZONES_FILE"), "zone catalog YAML (default: built-in Astana zones)")
	cmd.Flags().BoolVar(&list, "list", false, "print the catalog and exit")
	return cmd
}

func printHits(w io.Writer, lat, lon float64, hits []geofence.Zone) {
	if len(hits) == 0 {
		fmt.Fprintf(w, "(%.6f, %.6f) is outside every restricted zone\n", lat, lon)
		return
	}
	sev, _ := geofence.HighestSeverity(hits)
	fmt.Fprintf(w, "(%.6f, %.6f) is inside %d zone(s), severity %s\n", lat, lon, len(hits), sev)
	for _, z := range hits {
		fmt.Fprintf(w, "  - %s (%s) [%s]\n", z.Name, z.ID, z.Severity)
	}
}

func printCatalog(w io.Writer, c *geofence.Catalog) {
	fmt.Fprintf(w, "%d zones\n", c.Len())
	for _, z := range c.Zones() {
		fmt.Fprintf(w, "  - %-20s %-7s %s\n", z.ID, z.Severity, z.Name)
	}
}
