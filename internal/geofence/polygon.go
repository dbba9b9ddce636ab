package geofence

import "math"

// boundaryTolerance is how far, in degrees, a point may sit from an edge and
// still count as on it. 1e-9° is well under a millimetre.
const boundaryTolerance = 1e-9

type bbox struct {
	minLat, maxLat, minLon, maxLon float64
}

func boundsOf(ring []Point) bbox {
	b := bbox{minLat: math.Inf(1), maxLat: math.Inf(-1), minLon: math.Inf(1), maxLon: math.Inf(-1)}
	for _, p := range ring {
		b.minLat = math.Min(b.minLat, p.Lat)
		b.maxLat = math.Max(b.maxLat, p.Lat)
		b.minLon = math.Min(b.minLon, p.Lon)
		b.maxLon = math.Max(b.maxLon, p.Lon)
	}
	return b
}

func (b bbox) covers(p Point) bool {
	return p.Lat >= b.minLat-boundaryTolerance && p.Lat <= b.maxLat+boundaryTolerance &&
		p.Lon >= b.minLon-boundaryTolerance && p.Lon <= b.maxLon+boundaryTolerance
}

// ringContains reports whether p is inside or on the closed ring.
// Edges are half-open in latitude so a ray through a vertex crosses once.
func ringContains(ring []Point, p Point) bool {
	inside := false
	for i := 0; i+1 < len(ring); i++ {
		a, b := ring[i], ring[i+1]
		if onSegment(a, b, p) {
			return true
		}
		if (a.Lat > p.Lat) != (b.Lat > p.Lat) {
			x := a.Lon + (p.Lat-a.Lat)*(b.Lon-a.Lon)/(b.Lat-a.Lat)
			if p.Lon < x {
				inside = !inside
			}
		}
	}
	return inside
}

func onSegment(a, b, p Point) bool {
	dLat, dLon := b.Lat-a.Lat, b.Lon-a.Lon
	cross := dLon*(p.Lat-a.Lat) - dLat*(p.Lon-a.Lon)
	if math.Abs(cross) > boundaryTolerance*math.Hypot(dLat, dLon) {
		return false
	}
	return p.Lat >= math.Min(a.Lat, b.Lat)-boundaryTolerance &&
		p.Lat <= math.Max(a.Lat, b.Lat)+boundaryTolerance &&
		p.Lon >= math.Min(a.Lon, b.Lon)-boundaryTolerance &&
		p.Lon <= math.Max(a.Lon, b.Lon)+boundaryTolerance
}

// closeRing returns ring with its first vertex repeated at the end if needed.
func closeRing(ring []Point) []Point {
	out := append([]Point(nil), ring...)
	if len(out) > 0 && out[0] != out[len(out)-1] {
		out = append(out, out[0])
	}
	return out
}

func distinctVertices(ring []Point) int {
	seen := make(map[Point]struct{}, len(ring))
	for _, p := range ring {
		seen[p] = struct{}{}
	}
	return len(seen)
}
