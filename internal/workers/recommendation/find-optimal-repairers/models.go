package findoptimalrepairers

import "repair-recommender/internal/models"

type Input struct {
	RequestID string
	Criteria  models.RecommendationCriteria
}

type Output struct {
	RequestID       string                  `json:"requestId"`
	Found           bool                    `json:"recommendationFound"`
	Recommendations []models.ScoredRepairer `json:"recommendations"`
	Alternatives    []models.ScoredRepairer `json:"alternatives"`
	Reasoning       []string                `json:"reasoning"`
	CandidateCount  int                     `json:"candidateCount"`
}

// Variables returns the process variables written back on completion.
func (o *Output) Variables() map[string]interface{} {
	return map[string]interface{}{
		"requestId":           o.RequestID,
		"recommendationFound": o.Found,
		"recommendations":     o.Recommendations,
		"alternatives":        o.Alternatives,
		"reasoning":           o.Reasoning,
		"candidateCount":      o.CandidateCount,
	}
}
