package geofence

import (
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zoneIDs(zones []Zone) []string {
	ids := make([]string, 0, len(zones))
	for _, z := range zones {
		ids = append(ids, z.ID)
	}
	return ids
}

func rect(id string, sev Severity, south, west, north, east float64) Zone {
	return Zone{
		ID:       id,
		Severity: sev,
		Polygon: []Point{
			{north, west}, {north, east}, {south, east}, {south, west}, {north, west},
		},
	}
}

func defaultCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Default()
	require.NoError(t, err)
	return c
}

func TestDefault_LoadsAllZones(t *testing.T) {
	c := defaultCatalog(t)
	assert.Equal(t, 10, c.Len())

	akorda, ok := c.Zone("akorda")
	require.True(t, ok)
	assert.Equal(t, "Akorda", akorda.Name)
	assert.Equal(t, SeverityHigh, akorda.Severity)
	assert.Len(t, akorda.Polygon, 5)

	khan, ok := c.Zone("khan_shater")
	require.True(t, ok)
	assert.Equal(t, SeverityMedium, khan.Severity)
	assert.Equal(t, "Khan Shatyr", khan.Name)
}

func TestZonesContaining_AkordaScenario(t *testing.T) {
	c := defaultCatalog(t)

	assert.Equal(t, []string{"akorda"}, zoneIDs(c.ZonesContaining(51.1240, 71.4330)))
	assert.Empty(t, c.ZonesContaining(51.2000, 71.5000))
}

func TestZonesContaining_BoundaryIsInside(t *testing.T) {
	c := defaultCatalog(t)

	tests := []struct {
		name     string
		lat, lon float64
		want     []string
	}{
		{"west edge", 51.1240, 71.4305, []string{"akorda"}},
		{"south edge", 51.1225, 71.4330, []string{"akorda"}},
		{"vertex", 51.1225, 71.4305, []string{"akorda"}},
		{"closing vertex", 51.1255, 71.4305, []string{"akorda", "bayterek"}},
		{"shared edge", 51.1255, 71.4330, []string{"akorda", "bayterek"}},
		{"just outside", 51.1224, 71.4330, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := zoneIDs(c.ZonesContaining(tt.lat, tt.lon))
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestZonesContaining_Overlapping(t *testing.T) {
	c, err := NewCatalog([]Zone{
		rect("outer", SeverityHigh, 0, 0, 10, 10),
		rect("inner", SeverityMedium, 2, 2, 4, 4),
		rect("elsewhere", SeverityMedium, 20, 20, 30, 30),
	})
	require.NoError(t, err)

	hits := c.ZonesContaining(3, 3)
	assert.Equal(t, []string{"outer", "inner"}, zoneIDs(hits))

	sev, ok := HighestSeverity(hits)
	require.True(t, ok)
	assert.Equal(t, SeverityHigh, sev)

	assert.Equal(t, []string{"outer"}, zoneIDs(c.ZonesContaining(8, 8)))
	assert.Empty(t, c.ZonesContaining(-1, 5))
}

func TestZonesContaining_DiagonalEdge(t *testing.T) {
	c, err := NewCatalog([]Zone{{
		ID:       "tri",
		Severity: SeverityHigh,
		Polygon:  []Point{{0, 0}, {0, 2}, {2, 0}},
	}})
	require.NoError(t, err)

	assert.NotEmpty(t, c.ZonesContaining(1, 1), "on hypotenuse")
	assert.NotEmpty(t, c.ZonesContaining(0.5, 0.5))
	assert.Empty(t, c.ZonesContaining(1.5, 1.5))
}

// lShape is a concave ring used to exercise vertex and edge crossings.
var lShape = []Point{
	{0, 0}, {0, 4}, {2, 4}, {2, 2}, {4, 2}, {4, 0}, {0, 0},
}

func rotate(ring []Point, k int) []Point {
	open := ring[:len(ring)-1]
	out := append(append([]Point(nil), open[k:]...), open[:k]...)
	return append(out, out[0])
}

func TestZonesContaining_RotationInvariant(t *testing.T) {
	var probes []Point
	for lat := -1.0; lat <= 5.0; lat += 0.5 {
		for lon := -1.0; lon <= 5.0; lon += 0.5 {
			probes = append(probes, Point{lat, lon})
		}
	}

	base, err := NewCatalog([]Zone{{ID: "l", Severity: SeverityHigh, Polygon: lShape}})
	require.NoError(t, err)

	reversed := slices.Clone(lShape)
	slices.Reverse(reversed)

	variants := [][]Point{reversed}
	for k := 1; k < len(lShape)-1; k++ {
		variants = append(variants, rotate(lShape, k))
	}

	for vi, ring := range variants {
		c, err := NewCatalog([]Zone{{ID: "l", Severity: SeverityHigh, Polygon: ring}})
		require.NoError(t, err)
		for _, p := range probes {
			want := len(base.ZonesContaining(p.Lat, p.Lon)) == 1
			got := len(c.ZonesContaining(p.Lat, p.Lon)) == 1
			assert.Equal(t, want, got, "variant %d point %+v", vi, p)
		}
	}

	// Spot checks on the concave notch.
	assert.Empty(t, base.ZonesContaining(3, 3))
	assert.NotEmpty(t, base.ZonesContaining(3, 1))
	assert.NotEmpty(t, base.ZonesContaining(1, 3))
	assert.NotEmpty(t, base.ZonesContaining(2, 3), "on inner edge")
}

func TestNewCatalog_ClosesOpenRing(t *testing.T) {
	c, err := NewCatalog([]Zone{{
		ID:       "open",
		Severity: SeverityMedium,
		Polygon:  []Point{{0, 0}, {0, 1}, {1, 1}, {1, 0}},
	}})
	require.NoError(t, err)

	z, ok := c.Zone("open")
	require.True(t, ok)
	require.Len(t, z.Polygon, 5)
	assert.Equal(t, z.Polygon[0], z.Polygon[4])
	assert.Equal(t, "open", z.Name, "name defaults to id")
	assert.NotEmpty(t, c.ZonesContaining(0.5, 0.5))
}

func TestNewCatalog_Validation(t *testing.T) {
	good := rect("ok", SeverityHigh, 0, 0, 1, 1)

	tests := []struct {
		name  string
		zones []Zone
	}{
		{"empty catalog", nil},
		{"empty id", []Zone{rect(" ", SeverityHigh, 0, 0, 1, 1)}},
		{"duplicate id", []Zone{good, good}},
		{"bad severity", []Zone{rect("x", "low", 0, 0, 1, 1)}},
		{"too few vertices", []Zone{{ID: "x", Severity: SeverityHigh, Polygon: []Point{{0, 0}, {1, 1}, {0, 0}}}}},
		{"latitude out of range", []Zone{rect("x", SeverityHigh, 0, 0, 91, 1)}},
		{"longitude out of range", []Zone{rect("x", SeverityHigh, 0, 0, 1, 181)}},
		{"NaN latitude", []Zone{rect("x", SeverityHigh, math.NaN(), 0, 1, 1)}},
		{"NaN longitude", []Zone{rect("x", SeverityHigh, 0, 0, 1, math.NaN())}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.zones)
			assert.Error(t, err)
		})
	}
}

func TestCatalog_ReturnsCopies(t *testing.T) {
	c := defaultCatalog(t)

	zones := c.Zones()
	zones[0].Polygon[0] = Point{0, 0}
	hits := c.ZonesContaining(51.1240, 71.4330)
	require.Len(t, hits, 1)
	hits[0].Polygon[1] = Point{0, 0}

	akorda, _ := c.Zone("akorda")
	assert.Equal(t, Point{51.1255, 71.4305}, akorda.Polygon[0])
	assert.Equal(t, Point{51.1255, 71.4355}, akorda.Polygon[1])
}

func TestHighestSeverity(t *testing.T) {
	_, ok := HighestSeverity(nil)
	assert.False(t, ok)

	sev, ok := HighestSeverity([]Zone{{Severity: SeverityMedium}})
	assert.True(t, ok)
	assert.Equal(t, SeverityMedium, sev)

	sev, _ = HighestSeverity([]Zone{{Severity: SeverityMedium}, {Severity: SeverityHigh}, {Severity: SeverityMedium}})
	assert.Equal(t, SeverityHigh, sev)
}

func TestParseSeverity(t *testing.T) {
	for in, want := range map[string]Severity{
		"high": SeverityHigh, "RED": SeverityHigh, " medium ": SeverityMedium, "orange": SeverityMedium,
	} {
		got, err := ParseSeverity(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseSeverity("purple")
	assert.Error(t, err)

	assert.Equal(t, "red", SeverityHigh.Color())
	assert.Equal(t, "orange", SeverityMedium.Color())
}
