// internal/models/recommendation.go
package models

type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// IsValid reports whether u is one of the known urgency levels.
func (u Urgency) IsValid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return true
	}
	return false
}

type UserPreferences struct {
	MaxDistance      float64 `json:"maxDistance"`
	PrioritizePrice  bool    `json:"prioritizePrice"`
	PrioritizeRating bool    `json:"prioritizeRating"`
	PrioritizeSpeed  bool    `json:"prioritizeSpeed"`
	Urgency          Urgency `json:"urgency"`
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// BudgetRange is the price window a customer is willing to pay.
type BudgetRange = PriceRange

type RecommendationCriteria struct {
	ProblemType     string          `json:"problemType"`
	DeviceBrand     string          `json:"deviceBrand,omitempty"`
	UserLocation    Location        `json:"userLocation"`
	UserPreferences UserPreferences `json:"userPreferences"`
	Budget          *BudgetRange    `json:"budget,omitempty"`
}

type ScoreBreakdown struct {
	Distance       float64 `json:"distance"`
	Rating         float64 `json:"rating"`
	Specialization float64 `json:"specialization"`
	Price          float64 `json:"price"`
	Availability   float64 `json:"availability"`
}

type ScoredRepairer struct {
	RepairerProfile
	Distance            float64        `json:"distance"`
	EstimatedTravelTime string         `json:"estimatedTravelTime"`
	Score               float64        `json:"score"`
	Breakdown           ScoreBreakdown `json:"breakdown"`
}

type RecommendationResult struct {
	RequestID       string           `json:"requestId,omitempty"`
	Recommendations []ScoredRepairer `json:"recommendations"`
	Alternatives    []ScoredRepairer `json:"alternatives"`
	Reasoning       []string         `json:"reasoning"`
	CandidateCount  int              `json:"candidateCount"`
}
