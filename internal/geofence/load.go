package geofence

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

//go:embed zones/astana.yaml
var defaultZonesYAML []byte

type zoneFile struct {
	Zones []zoneEntry `yaml:"zones"`
}

type zoneEntry struct {
	ID          string      `yaml:"id"`
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Severity    string      `yaml:"severity"`
	Polygon     [][]float64 `yaml:"polygon"`
}

// LoadYAML parses a zone catalog document:
//
//	zones:
//	  - id: akorda
//	    name: Akorda
//	    severity: high        # or medium; red/orange also accepted
//	    polygon:
//	      - [51.1255, 71.4305] # [lat, lon]
func LoadYAML(data []byte) (*Catalog, error) {
	var f zoneFile
	if err := yaml.UnmarshalWithOptions(data, &f, yaml.DisallowUnknownField()); err != nil {
		return nil, fmt.Errorf("parse zones: %w", err)
	}

	zones := make([]Zone, 0, len(f.Zones))
	for i, s := range f.Zones {
		sev, err := ParseSeverity(s.Severity)
		if err != nil {
			return nil, fmt.Errorf("zone %d (%s): %w", i, s.ID, err)
		}
		ring := make([]Point, 0, len(s.Polygon))
		for j, v := range s.Polygon {
			if len(v) != 2 {
				return nil, fmt.Errorf("zone %d (%s): vertex %d must be [lat, lon]", i, s.ID, j)
			}
			ring = append(ring, Point{Lat: v[0], Lon: v[1]})
		}
		zones = append(zones, Zone{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			Severity:    sev,
			Polygon:     ring,
		})
	}
	return NewCatalog(zones)
}

// LoadFile reads a zone catalog from path, or the embedded default when path
// is empty.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read zones file: %w", err)
	}
	return LoadYAML(data)
}

// Default returns the built-in catalog of restricted zones around Astana.
func Default() (*Catalog, error) {
	return LoadYAML(defaultZonesYAML)
}
