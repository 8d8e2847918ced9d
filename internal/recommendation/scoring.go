package recommendation

import (
	"math"
	"strings"

	"repair-recommender/internal/models"
	"repair-recommender/pkg/registry"
)

const (
	specializationBase       = 0.5
	specializationKeywordHit = 0.3
	specializationBrandBonus = 0.2

	neutralPriceScore = 0.5
)

// KeywordSource resolves a problem type to the folded keywords that mark a
// matching specialty. Unknown problem types yield no keywords.
type KeywordSource interface {
	Keywords(problemType string) []string
}

// Scorer computes the weighted score of a candidate.
type Scorer struct {
	cfg      Config
	keywords KeywordSource
}

func NewScorer(cfg Config, keywords KeywordSource) *Scorer {
	if keywords == nil {
		keywords = registry.NewResolver(registry.Default(), registry.DefaultFuzzyDistance)
	}
	return &Scorer{cfg: cfg.withDefaults(), keywords: keywords}
}

// AdjustedWeights applies every preference multiplier that the request
// switches on. Multipliers stack.
func (s *Scorer) AdjustedWeights(prefs models.UserPreferences) Weights {
	w := s.cfg.Weights
	if prefs.PrioritizePrice {
		w = w.Times(s.cfg.Multipliers.PrioritizePrice)
	}
	if prefs.PrioritizeRating {
		w = w.Times(s.cfg.Multipliers.PrioritizeRating)
	}
	if prefs.PrioritizeSpeed {
		w = w.Times(s.cfg.Multipliers.PrioritizeSpeed)
	}
	if prefs.Urgency == models.UrgencyHigh {
		w = w.Times(s.cfg.Multipliers.HighUrgency)
	}
	if s.cfg.NormalizeWeights {
		w = w.Normalized()
	}
	return w
}

// request carries the per-call values shared by every candidate.
type request struct {
	criteria    models.RecommendationCriteria
	maxDistance float64
	keywords    []string
	weights     Weights
}

func (s *Scorer) newRequest(criteria models.RecommendationCriteria, maxDistance float64) request {
	return request{
		criteria:    criteria,
		maxDistance: maxDistance,
		keywords:    s.keywords.Keywords(criteria.ProblemType),
		weights:     s.AdjustedWeights(criteria.UserPreferences),
	}
}

// score fills in the breakdown and final score of c.
func (s *Scorer) score(c *models.ScoredRepairer, req request) {
	b := models.ScoreBreakdown{
		Distance:       DistanceScore(c.Distance, req.maxDistance),
		Rating:         RatingScore(c.Rating),
		Specialization: SpecializationScore(c.Specialties, req.keywords, req.criteria.DeviceBrand),
		Price:          PriceScore(c.PriceRanges, req.criteria.ProblemType, req.criteria.Budget),
		Availability:   AvailabilityScore(c.Availability, req.criteria.UserPreferences.Urgency),
	}
	w := req.weights
	c.Breakdown = b
	c.Score = b.Distance*w.Distance +
		b.Rating*w.Rating +
		b.Specialization*w.Specialization +
		b.Price*w.Price +
		b.Availability*w.Availability
}

// DistanceScore falls linearly from 1 at the customer to 0 at maxDistance.
func DistanceScore(distance, maxDistance float64) float64 {
	if maxDistance <= 0 {
		return 0
	}
	return math.Max(0, 1-distance/maxDistance)
}

func RatingScore(rating float64) float64 {
	return rating / 5
}

// SpecializationScore starts at 0.5, adds 0.3 per specialty mentioning one
// of the keywords and 0.2 when a specialty mentions the brand, capped at 1.
func SpecializationScore(specialties, keywords []string, brand string) float64 {
	score := specializationBase
	folded := make([]string, len(specialties))
	for i, sp := range specialties {
		folded[i] = registry.Fold(sp)
	}

	if len(keywords) > 0 {
		for _, sp := range folded {
			if containsAny(sp, keywords) {
				score += specializationKeywordHit
			}
		}
	}

	if b := registry.Fold(brand); b != "" {
		for _, sp := range folded {
			if strings.Contains(sp, b) {
				score += specializationBrandBonus
				break
			}
		}
	}

	return math.Min(score, 1)
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// PriceScore is neutral without a budget or a price for the problem type,
// zero when the ranges do not overlap, and otherwise rewards repairers
// priced below the budget midpoint.
func PriceScore(prices map[string]models.PriceRange, problemType string, budget *models.BudgetRange) float64 {
	if budget == nil {
		return neutralPriceScore
	}
	price, ok := lookupPrice(prices, problemType)
	if !ok {
		return neutralPriceScore
	}
	if !price.Overlaps(*budget) {
		return 0
	}
	avgBudget := budget.Midpoint()
	if avgBudget <= 0 {
		return 0
	}
	return math.Max(0, 1-price.Midpoint()/avgBudget)
}

func lookupPrice(prices map[string]models.PriceRange, problemType string) (models.PriceRange, bool) {
	if p, ok := prices[problemType]; ok {
		return p, true
	}
	key := registry.Fold(problemType)
	if key == "" {
		return models.PriceRange{}, false
	}
	for name, p := range prices {
		if registry.Fold(name) == key {
			return p, true
		}
	}
	return models.PriceRange{}, false
}

// AvailabilityScore rewards the availability that matters for the urgency.
// An unknown urgency is scored as medium.
func AvailabilityScore(a models.Availability, urgency models.Urgency) float64 {
	switch urgency {
	case models.UrgencyHigh:
		switch {
		case a.SameDay:
			return 1
		case a.NextDay:
			return 0.7
		default:
			return 0.3
		}
	case models.UrgencyLow:
		if a.WithinWeek {
			return 1
		}
		return 0.7
	default:
		switch {
		case a.NextDay:
			return 1
		case a.WithinWeek:
			return 0.8
		default:
			return 0.5
		}
	}
}
