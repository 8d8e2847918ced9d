// Package geo holds the great-circle helpers used to place repairers
// relative to a customer.
package geo

import (
	"fmt"
	"math"
)

const (
	EarthRadiusKm = 6371.0

	// DefaultAverageSpeedKmh is the urban travel speed assumed for ETAs.
	DefaultAverageSpeedKmh = 25.0
)

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Distance returns the haversine distance between a and b in kilometres.
func Distance(a, b Point) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Lat))*math.Cos(toRadians(b.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// TravelMinutes estimates door-to-door minutes at speedKmh. A non-positive
// speed falls back to DefaultAverageSpeedKmh.
func TravelMinutes(distanceKm, speedKmh float64) int {
	if speedKmh <= 0 {
		speedKmh = DefaultAverageSpeedKmh
	}
	return int(math.Round(distanceKm / speedKmh * 60))
}

// FormatTravelTime renders minutes as "12 min" or, from one hour up, "1h 05m".
func FormatTravelTime(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	return fmt.Sprintf("%dh %02dm", minutes/60, minutes%60)
}

// EstimateTravelTime combines TravelMinutes and FormatTravelTime.
func EstimateTravelTime(distanceKm, speedKmh float64) string {
	return FormatTravelTime(TravelMinutes(distanceKm, speedKmh))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
