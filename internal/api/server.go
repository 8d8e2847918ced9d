// Package api serves recommendations over HTTP.
package api

import (
	"context"
	"net/http"

	"repair-recommender/internal/common/database"
	"repair-recommender/internal/common/logger"
	"repair-recommender/internal/common/validation"
	"repair-recommender/internal/models"
	"repair-recommender/pkg/registry"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// Recommender ranks repairers for one request.
type Recommender interface {
	FindOptimalRepairers(ctx context.Context, criteria models.RecommendationCriteria) (*models.RecommendationResult, error)
}

type Options struct {
	Engine   Recommender
	Registry *registry.Resolver
	Checkers []database.Checker
	Logger   logger.Logger
	Version  string

	// RateLimit is in requests per second; zero or less disables limiting.
	RateLimit float64
	Burst     int
}

type Server struct {
	engine    Recommender
	registry  *registry.Resolver
	checkers  []database.Checker
	validator *validation.Validator
	limiter   *rate.Limiter
	logger    logger.Logger
	version   string
}

func NewServer(opts Options) *Server {
	s := &Server{
		engine:    opts.Engine,
		registry:  opts.Registry,
		checkers:  opts.Checkers,
		validator: validation.MustCriteriaValidator(),
		logger:    opts.Logger,
		version:   opts.Version,
	}
	if s.logger == nil {
		s.logger = logger.NewNoOpLogger()
	}
	if s.registry == nil {
		s.registry = registry.NewResolver(nil, registry.DefaultFuzzyDistance)
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return s
}

// Handler builds the router. System endpoints are not rate limited.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)

	api := r.PathPrefix("/v1").Subrouter()
	api.Use(s.rateLimitMiddleware)
	api.HandleFunc("/recommendations", s.handleRecommendations).Methods(http.MethodPost)
	api.HandleFunc("/problem-types", s.handleProblemTypes).Methods(http.MethodGet)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return r
}
