// Package directory reads active, geolocated repairers from the configured
// back-end.
package directory

import (
	"context"
	"fmt"
	"math"

	"repair-recommender/internal/geo"
	"repair-recommender/internal/models"
)

// Query narrows a directory read around a point. A zero RadiusKm returns
// every active, geolocated repairer.
type Query struct {
	Center   geo.Point
	RadiusKm float64
}

// keySlackKm covers the distance between any centre and its key centre
// (1e-4 degree rounding, under 8 m).
const keySlackKm = 0.01

// Box returns the pre-filter box for the query and whether one applies.
// The box is widened by keySlackKm so a read made for a key centre also
// covers every centre that shares the key.
func (q Query) Box() (geo.Box, bool) {
	if q.RadiusKm <= 0 {
		return geo.Box{}, false
	}
	return geo.BoundingBox(q.Center, q.RadiusKm+keySlackKm), true
}

// canonical snaps the centre to four decimals and the radius up to the
// next metre. Every query sharing a key reads the canonical query, whose
// box contains all of their boxes.
func (q Query) canonical() Query {
	c := Query{Center: geo.Point{Lat: round4(q.Center.Lat), Lng: round4(q.Center.Lng)}}
	if q.RadiusKm > 0 {
		c.RadiusKm = math.Ceil(q.RadiusKm*1000-1e-6) / 1000
	}
	return c
}

// key identifies queries that read the same canonical area.
func (q Query) key() string {
	c := q.canonical()
	return fmt.Sprintf("%.4f:%.4f:%.3f", c.Center.Lat, c.Center.Lng, c.RadiusKm)
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

// Directory is the read side of the repairer directory. Results are ordered
// by repairer id so ties in scoring resolve the same way on every call.
type Directory interface {
	ActiveRepairers(ctx context.Context, q Query) ([]models.RepairerProfile, error)
}

// Func adapts a function to Directory.
type Func func(ctx context.Context, q Query) ([]models.RepairerProfile, error)

func (f Func) ActiveRepairers(ctx context.Context, q Query) ([]models.RepairerProfile, error) {
	return f(ctx, q)
}

// Source names for metrics and errors.
const (
	SourcePostgres      = "postgres"
	SourceElasticsearch = "elasticsearch"
	SourceMongo         = "mongo"
	SourceFile          = "file"
)
