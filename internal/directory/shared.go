package directory

import (
	"context"

	"repair-recommender/internal/models"

	"golang.org/x/sync/singleflight"
)

// Shared collapses concurrent reads of the same area into one call to the
// wrapped directory. A caller whose context ends stops waiting without
// cancelling the shared read.
type Shared struct {
	next  Directory
	group singleflight.Group
}

func NewShared(next Directory) *Shared {
	return &Shared{next: next}
}

func (s *Shared) ActiveRepairers(ctx context.Context, q Query) ([]models.RepairerProfile, error) {
	q = q.canonical()
	ch := s.group.DoChan(q.key(), func() (interface{}, error) {
		shared := context.WithoutCancel(ctx)
		if deadline, ok := ctx.Deadline(); ok {
			var cancel context.CancelFunc
			shared, cancel = context.WithDeadline(shared, deadline)
			defer cancel()
		}
		return s.next.ActiveRepairers(shared, q)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		repairers := res.Val.([]models.RepairerProfile)
		out := make([]models.RepairerProfile, len(repairers))
		copy(out, repairers)
		return out, nil
	}
}
