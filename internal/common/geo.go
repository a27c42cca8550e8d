package common

import "math"

const EarthRadiusKm = 6371.0

// DistanceKm is the great-circle distance between two lat/lng pairs (haversine).
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
}

// WithinRadius also returns the distance so callers can report it.
func WithinRadius(lat1, lng1, lat2, lng2, radiusKm float64) (float64, bool) {
	d := DistanceKm(lat1, lng1, lat2, lng2)
	return d, d <= radiusKm
}
