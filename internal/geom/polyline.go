// Package geom provides the polyline matching primitives used when joining
// stops onto a trip's shape.
package geom

// Point is a geographic coordinate pair.
type Point struct {
	Lat float64
	Lon float64
}

// NearestIndex returns the index of the polyline vertex closest to pt,
// minimizing squared Euclidean distance in (lat, lon) space. Inter-stop
// distances are short enough that the flat-plane approximation holds; ties
// go to the first occurrence. Returns -1 for an empty polyline.
func NearestIndex(pt Point, polyline []Point) int {
	best := -1
	bestDist := 0.0
	for i, v := range polyline {
		dLat := v.Lat - pt.Lat
		dLon := v.Lon - pt.Lon
		d := dLat*dLat + dLon*dLon
		if best == -1 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// Slice returns the inclusive sub-sequence of polyline from index i to j.
// Callers guarantee 0 <= i <= j < len(polyline); the composer sorts stops by
// matched index before slicing. Out-of-range input yields nil.
func Slice(polyline []Point, i, j int) []Point {
	if i < 0 || j < i || j >= len(polyline) {
		return nil
	}
	out := make([]Point, j-i+1)
	copy(out, polyline[i:j+1])
	return out
}
