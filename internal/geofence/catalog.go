package geofence

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Evaluator answers point containment queries against a zone set.
type Evaluator interface {
	ZonesContaining(lat, lon float64) []Zone
}

// Catalog is an immutable set of restricted zones, safe for concurrent use.
//
// Queries scan every zone (O(zones × vertices)) after a bounding-box reject;
// the zone count is small and fixed at startup.
type Catalog struct {
	zones  []Zone
	bounds []bbox
	byID   map[string]int
}

// NewCatalog validates zones and builds a catalog. Open rings are closed.
func NewCatalog(zones []Zone) (*Catalog, error) {
	c := &Catalog{
		zones:  make([]Zone, 0, len(zones)),
		bounds: make([]bbox, 0, len(zones)),
		byID:   make(map[string]int, len(zones)),
	}

	for i, z := range zones {
		z = z.clone()
		z.ID = strings.TrimSpace(z.ID)
		if z.ID == "" {
			return nil, fmt.Errorf("zone %d: empty id", i)
		}
		if _, dup := c.byID[z.ID]; dup {
			return nil, fmt.Errorf("zone %q: duplicate id", z.ID)
		}
		if !z.Severity.Valid() {
			return nil, fmt.Errorf("zone %q: invalid severity %q", z.ID, z.Severity)
		}
		if z.Name == "" {
			z.Name = z.ID
		}
		for _, p := range z.Polygon {
			if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) ||
				p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
				return nil, fmt.Errorf("zone %q: vertex (%v, %v) out of range", z.ID, p.Lat, p.Lon)
			}
		}
		z.Polygon = closeRing(z.Polygon)
		if distinctVertices(z.Polygon) < 3 {
			return nil, fmt.Errorf("zone %q: polygon needs at least 3 distinct vertices", z.ID)
		}

		c.byID[z.ID] = len(c.zones)
		c.zones = append(c.zones, z)
		c.bounds = append(c.bounds, boundsOf(z.Polygon))
	}

	if len(c.zones) == 0 {
		return nil, errors.New("zone catalog is empty")
	}
	return c, nil
}

// ZonesContaining returns every zone containing (lat, lon), in catalog order.
// Ranking by severity is left to the caller.
func (c *Catalog) ZonesContaining(lat, lon float64) []Zone {
	p := Point{Lat: lat, Lon: lon}
	var hits []Zone
	for i, z := range c.zones {
		if !c.bounds[i].covers(p) {
			continue
		}
		if ringContains(z.Polygon, p) {
			hits = append(hits, z.clone())
		}
	}
	return hits
}

// Zones returns all zones in catalog order.
func (c *Catalog) Zones() []Zone {
	out := make([]Zone, len(c.zones))
	for i, z := range c.zones {
		out[i] = z.clone()
	}
	return out
}

// Zone looks up a zone by id.
func (c *Catalog) Zone(id string) (Zone, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Zone{}, false
	}
	return c.zones[i].clone(), true
}

func (c *Catalog) Len() int { return len(c.zones) }
