// Package availability supplies the same-day / next-day / within-week flags
// used to score repairers.
package availability

import (
	"context"

	"repair-recommender/internal/models"
)

// Provider answers when a repairer can take a job.
type Provider interface {
	Availability(ctx context.Context, repairer models.RepairerProfile) (models.Availability, error)
}

// ProviderFunc adapts a plain function to Provider.
type ProviderFunc func(ctx context.Context, repairer models.RepairerProfile) (models.Availability, error)

func (f ProviderFunc) Availability(ctx context.Context, repairer models.RepairerProfile) (models.Availability, error) {
	return f(ctx, repairer)
}

// Static returns fixed flags, optionally overridden per repairer id.
type Static struct {
	Default models.Availability
	ByID    map[string]models.Availability
}

func NewStatic(def models.Availability, byID map[string]models.Availability) *Static {
	return &Static{Default: def, ByID: byID}
}

func (s *Static) Availability(_ context.Context, repairer models.RepairerProfile) (models.Availability, error) {
	if a, ok := s.ByID[repairer.ID]; ok {
		return a, nil
	}
	return s.Default, nil
}
