package recommendation

import (
	"fmt"
	"strings"

	"repair-recommender/internal/models"
	"repair-recommender/pkg/registry"
)

const (
	NoResultsReason = "Aucun réparateur trouvé dans votre zone de recherche"

	excellentRating = 4.5
	goodRating      = 4.0
)

// Reasoning explains why top was ranked first. A nil top means nothing was
// found in range.
func Reasoning(top *models.ScoredRepairer, criteria models.RecommendationCriteria) []string {
	if top == nil {
		return []string{NoResultsReason}
	}

	lines := []string{
		fmt.Sprintf("📍 À %.1f km de chez vous (%s de trajet)", top.Distance, top.EstimatedTravelTime),
	}

	switch {
	case top.Rating >= excellentRating:
		lines = append(lines, fmt.Sprintf("⭐ Excellente réputation (%.1f/5)", top.Rating))
	case top.Rating >= goodRating:
		lines = append(lines, fmt.Sprintf("⭐ Très bonne réputation (%.1f/5)", top.Rating))
	}

	if mentionsProblem(top.Specialties, criteria.ProblemType) {
		lines = append(lines, fmt.Sprintf("🔧 Spécialiste en %s", criteria.ProblemType))
	}

	if criteria.UserPreferences.Urgency == models.UrgencyHigh && top.Availability.SameDay {
		lines = append(lines, "⚡ Disponible aujourd'hui pour votre urgence")
	}

	return lines
}

// mentionsProblem reports whether a specialty and the problem type contain
// one another once folded. It does not consult the keyword registry.
func mentionsProblem(specialties []string, problemType string) bool {
	problem := registry.Fold(problemType)
	if problem == "" {
		return false
	}
	for _, sp := range specialties {
		s := registry.Fold(sp)
		if s == "" {
			continue
		}
		if strings.Contains(s, problem) || strings.Contains(problem, s) {
			return true
		}
	}
	return false
}
