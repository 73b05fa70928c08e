package geo

import "math"

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371.0

// Unresolved is the ranking distance for records whose location could not
// be determined. It sorts after every resolved distance.
var Unresolved = math.Inf(1)

// IsUnresolved reports whether d is the unresolved sentinel.
func IsUnresolved(d float64) bool { return math.IsInf(d, 1) }

// DistanceKm computes the great-circle distance between two points using
// the haversine formula. Symmetric, and zero for identical points.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := toRadians(lat1)
	lat2Rad := toRadians(lat2)
	deltaLat := toRadians(lat2 - lat1)
	deltaLon := toRadians(lon2 - lon1)

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// DistanceBetween computes the distance between two optional points,
// returning Unresolved when either side is missing.
func DistanceBetween(a, b *Coord) float64 {
	if a == nil || b == nil {
		return Unresolved
	}
	return DistanceKm(a.Lat, a.Lng, b.Lat, b.Lng)
}

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }
