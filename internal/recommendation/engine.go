// Package recommendation ranks nearby repairers for a repair request.
package recommendation

import (
	"context"
	"sort"
	"time"

	"repair-recommender/internal/availability"
	apperrors "repair-recommender/internal/common/errors"
	"repair-recommender/internal/common/logger"
	"repair-recommender/internal/common/metrics"
	"repair-recommender/internal/directory"
	"repair-recommender/internal/geo"
	"repair-recommender/internal/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Engine fetches candidates from a directory, keeps those in range, scores
// and ranks them. It holds no per-request state and is safe for concurrent use.
type Engine struct {
	cfg          Config
	directory    directory.Directory
	availability availability.Provider
	scorer       *Scorer
	logger       logger.Logger
	tracer       trace.Tracer
}

type Option func(*Engine)

func WithLogger(l logger.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithKeywords(k KeywordSource) Option {
	return func(e *Engine) { e.scorer = NewScorer(e.cfg, k) }
}

func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

func NewEngine(cfg Config, dir directory.Directory, avail availability.Provider, opts ...Option) *Engine {
	cfg = cfg.withDefaults()
	if avail == nil {
		avail = availability.NewStatic(models.Availability{}, nil)
	}
	e := &Engine{
		cfg:          cfg,
		directory:    dir,
		availability: avail,
		logger:       logger.NewNoOpLogger(),
		tracer:       otel.Tracer("repair-recommender/recommendation"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.scorer == nil {
		e.scorer = NewScorer(cfg, nil)
	}
	e.logger = e.logger.WithFields(map[string]interface{}{"component": "recommendation-engine"})
	return e
}

// FindOptimalRepairers returns the best repairers for criteria. A directory
// failure is returned as an error; an empty neighbourhood is a successful
// result with no recommendations.
func (e *Engine) FindOptimalRepairers(ctx context.Context, criteria models.RecommendationCriteria) (*models.RecommendationResult, error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "recommendation.find_optimal_repairers", trace.WithAttributes(
		attribute.String("problem_type", criteria.ProblemType),
		attribute.String("urgency", string(criteria.UserPreferences.Urgency)),
	))
	defer span.End()

	maxDistance := criteria.UserPreferences.MaxDistance
	if maxDistance <= 0 {
		maxDistance = e.cfg.DefaultMaxDistance
	}
	origin := geo.Point{Lat: criteria.UserLocation.Latitude, Lng: criteria.UserLocation.Longitude}

	repairers, err := e.fetch(ctx, directory.Query{Center: origin, RadiusKm: maxDistance})
	if err != nil {
		stdErr := apperrors.DirectoryError("directory", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(stdErr.Code))
		e.logger.Error("directory fetch failed", map[string]interface{}{
			"errorCode": string(stdErr.Code),
			"error":     err.Error(),
		})
		metrics.RecordRecommendation(metrics.OutcomeError, time.Since(start), 0)
		return nil, stdErr
	}

	candidates := FilterByDistance(origin, repairers, maxDistance, e.cfg.AverageSpeedKmh)
	span.SetAttributes(
		attribute.Int("directory.count", len(repairers)),
		attribute.Int("candidates.count", len(candidates)),
	)

	if len(candidates) == 0 {
		e.logger.Info("no repairer in range", map[string]interface{}{
			"maxDistance": maxDistance,
			"fetched":     len(repairers),
		})
		metrics.RecordRecommendation(metrics.OutcomeEmpty, time.Since(start), 0)
		return &models.RecommendationResult{
			Recommendations: []models.ScoredRepairer{},
			Alternatives:    []models.ScoredRepairer{},
			Reasoning:       Reasoning(nil, criteria),
		}, nil
	}

	e.resolveAvailability(ctx, candidates)

	req := e.scorer.newRequest(criteria, maxDistance)
	for i := range candidates {
		e.scorer.score(&candidates[i], req)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	recommendations, alternatives := split(candidates, e.cfg.RecommendationLimit, e.cfg.AlternativeLimit)
	result := &models.RecommendationResult{
		Recommendations: recommendations,
		Alternatives:    alternatives,
		Reasoning:       Reasoning(&recommendations[0], criteria),
		CandidateCount:  len(candidates),
	}

	e.logger.Info("recommendations computed", map[string]interface{}{
		"candidates": len(candidates),
		"topId":      recommendations[0].ID,
		"topScore":   recommendations[0].Score,
		"durationMs": time.Since(start).Milliseconds(),
	})
	metrics.RecordRecommendation(metrics.OutcomeOK, time.Since(start), len(candidates))
	return result, nil
}

func (e *Engine) fetch(ctx context.Context, q directory.Query) ([]models.RepairerProfile, error) {
	ctx, span := e.tracer.Start(ctx, "recommendation.fetch_repairers", trace.WithAttributes(
		attribute.Float64("radius_km", q.RadiusKm),
	))
	defer span.End()

	if e.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.FetchTimeout)
		defer cancel()
	}

	repairers, err := e.directory.ActiveRepairers(ctx, q)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return repairers, nil
}

// resolveAvailability fills each candidate's availability. Lookup failures
// are logged and leave the candidate with no availability.
func (e *Engine) resolveAvailability(ctx context.Context, candidates []models.ScoredRepairer) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.AvailabilityConcurrency)

	for i := range candidates {
		c := &candidates[i]
		g.Go(func() error {
			a, err := e.availability.Availability(gctx, c.RepairerProfile)
			if err != nil {
				e.logger.Warn("availability lookup failed", map[string]interface{}{
					"repairerId": c.ID,
					"error":      err.Error(),
				})
				a = models.Availability{}
			}
			c.Availability = a
			return nil
		})
	}
	_ = g.Wait()
}

func split(ranked []models.ScoredRepairer, top, alt int) ([]models.ScoredRepairer, []models.ScoredRepairer) {
	if top > len(ranked) {
		top = len(ranked)
	}
	end := top + alt
	if end > len(ranked) {
		end = len(ranked)
	}
	recommendations := append([]models.ScoredRepairer(nil), ranked[:top]...)
	alternatives := append([]models.ScoredRepairer{}, ranked[top:end]...)
	return recommendations, alternatives
}
