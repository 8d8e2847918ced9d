package recommendation

import (
	"repair-recommender/internal/geo"
	"repair-recommender/internal/models"
)

// FilterByDistance keeps the repairers within maxDistance km of origin and
// annotates each with its distance and travel time. Survivors keep their
// input order.
func FilterByDistance(origin geo.Point, repairers []models.RepairerProfile, maxDistance, speedKmh float64) []models.ScoredRepairer {
	out := make([]models.ScoredRepairer, 0, len(repairers))
	for _, r := range repairers {
		d := geo.Distance(origin, geo.Point{Lat: r.Latitude, Lng: r.Longitude})
		if d > maxDistance {
			continue
		}
		out = append(out, models.ScoredRepairer{
			RepairerProfile:     r,
			Distance:            d,
			EstimatedTravelTime: geo.EstimateTravelTime(d, speedKmh),
		})
	}
	return out
}
