// Package geofence holds the static catalog of restricted zones and answers
// which zones contain a reported position.
//
// Zones are polygons in (latitude, longitude) degrees. Containment uses
// ray casting along increasing longitude; a point lying on a zone's boundary,
// vertices included, is inside that zone.
package geofence

import (
	"fmt"
	"strings"
)

// Severity is the restriction tier of a zone.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

// ParseSeverity accepts a tier name or the legend color used for it on the
// map (red for high, orange for medium).
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "red":
		return SeverityHigh, nil
	case "medium", "orange":
		return SeverityMedium, nil
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

// Rank orders severities; higher is more severe. Unknown tiers rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	}
	return 0
}

// Color is the map legend color for the tier.
func (s Severity) Color() string {
	switch s {
	case SeverityHigh:
		return "red"
	case SeverityMedium:
		return "orange"
	}
	return "gray"
}

func (s Severity) Valid() bool { return s.Rank() > 0 }

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Zone is a named restricted area. Polygon is a closed ring: the last vertex
// repeats the first.
type Zone struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Polygon     []Point  `json:"polygon"`
}

func (z Zone) clone() Zone {
	cp := z
	cp.Polygon = append([]Point(nil), z.Polygon...)
	return cp
}

// HighestSeverity returns the most severe tier among zones.
func HighestSeverity(zones []Zone) (Severity, bool) {
	var best Severity
	for _, z := range zones {
		if z.Severity.Rank() > best.Rank() {
			best = z.Severity
		}
	}
	return best, best != ""
}
