package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"repair-recommender/internal/common/database"
	apperrors "repair-recommender/internal/common/errors"
	"repair-recommender/internal/models"
	"repair-recommender/pkg/registry"
)

const (
	maxBodyBytes = 1 << 20
	readyTimeout = 2 * time.Second
)

// HealthResponse answers /health and /ready.
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Reason    string            `json:"reason,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
}

type ProblemTypesResponse struct {
	ProblemTypes []registry.ProblemType `json:"problemTypes"`
}

// handleRecommendations handles POST /v1/recommendations
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeAppError(w, r, apperrors.NewInvalidCriteriaError("request body is unreadable or too large"))
		return
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil || doc == nil {
		writeAppError(w, r, apperrors.NewInvalidCriteriaError("request body must be a JSON object"))
		return
	}
	if res := s.validator.ValidateCriteria(doc); !res.Valid {
		writeError(w, r, http.StatusBadRequest, string(apperrors.ErrCodeInvalidCriteria),
			"Invalid recommendation criteria", false, map[string]interface{}{"errors": res.Errors})
		return
	}

	var criteria models.RecommendationCriteria
	if err := json.Unmarshal(raw, &criteria); err != nil {
		writeAppError(w, r, apperrors.NewInvalidCriteriaError(err.Error()))
		return
	}

	result, err := s.engine.FindOptimalRepairers(r.Context(), criteria)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	result.RequestID = RequestID(r.Context())
	respondJSON(w, http.StatusOK, result)
}

// handleProblemTypes handles GET /v1/problem-types. With ?q= it resolves
// free text to a single entry.
func (s *Server) handleProblemTypes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		respondJSON(w, http.StatusOK, ProblemTypesResponse{ProblemTypes: s.registry.ProblemTypes()})
		return
	}

	pt, ok := s.registry.Resolve(q)
	if !ok {
		writeError(w, r, http.StatusNotFound, ErrCodeNotFound, "No problem type matches the query", false,
			map[string]interface{}{"q": q})
		return
	}
	respondJSON(w, http.StatusOK, pt)
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   s.version,
		Timestamp: time.Now().UTC(),
	})
}

// handleReady handles GET /ready
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	failures := database.CheckAll(ctx, s.checkers...)
	if err := database.Summary(failures); err != nil {
		s.logger.Warn("readiness check failed", map[string]interface{}{"error": err.Error()})
		respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:    "not_ready",
			Timestamp: time.Now().UTC(),
			Reason:    err.Error(),
			Checks:    failures,
		})
		return
	}

	respondJSON(w, http.StatusOK, HealthResponse{
		Status:    "ready",
		Version:   s.version,
		Timestamp: time.Now().UTC(),
	})
}
