package recommendation

import (
	"math/rand"
	"testing"

	"repair-recommender/internal/geo"
	"repair-recommender/internal/models"
	"repair-recommender/pkg/registry"

	"github.com/stretchr/testify/assert"
)

// ==========================
// Sub-scores
// ==========================

func TestDistanceScore(t *testing.T) {
	assert.Equal(t, 1.0, DistanceScore(0, 10))
	assert.InDelta(t, 0.88, DistanceScore(1.2, 10), 1e-9)
	assert.Equal(t, 0.0, DistanceScore(10, 10))
	assert.Equal(t, 0.0, DistanceScore(12, 10))
	assert.Equal(t, 0.0, DistanceScore(1, 0))

	prev := DistanceScore(0, 10)
	for d := 0.5; d <= 12; d += 0.5 {
		cur := DistanceScore(d, 10)
		assert.LessOrEqual(t, cur, prev, "distance %v", d)
		prev = cur
	}
}

func TestRatingScore(t *testing.T) {
	assert.InDelta(t, 0.96, RatingScore(4.8), 1e-9)
	assert.InDelta(t, 0.8, RatingScore(models.DefaultRating), 1e-9)
	assert.Equal(t, 0.0, RatingScore(0))
}

func TestSpecializationScore(t *testing.T) {
	screen := []string{"ecran", "vitre", "affichage"}

	tests := []struct {
		name        string
		specialties []string
		keywords    []string
		brand       string
		want        float64
	}{
		{"no specialties", nil, screen, "", 0.5},
		{"one keyword hit", []string{"écran"}, screen, "", 0.8},
		{"accented and capitalised", []string{"Remplacement d'Écran"}, screen, "", 0.8},
		{"two hits capped", []string{"écran", "vitre arrière"}, screen, "", 1.0},
		{"brand bonus", []string{"Apple", "batterie"}, screen, "apple", 0.7},
		{"hit plus brand", []string{"écran iPhone"}, screen, "iPhone", 1.0},
		{"unknown problem keeps base", []string{"écran"}, nil, "", 0.5},
		{"unknown problem with brand", []string{"Samsung"}, nil, "samsung", 0.7},
		{"no match", []string{"batterie"}, screen, "Apple", 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, SpecializationScore(tt.specialties, tt.keywords, tt.brand), 1e-9)
		})
	}
}

func TestPriceScore(t *testing.T) {
	prices := map[string]models.PriceRange{
		"écran cassé": {Min: 80, Max: 120},
		"batterie":    {Min: 40, Max: 60},
	}

	tests := []struct {
		name    string
		problem string
		budget  *models.BudgetRange
		want    float64
	}{
		{"no budget", "écran cassé", nil, 0.5},
		{"no price for problem", "caméra", &models.BudgetRange{Min: 50, Max: 150}, 0.5},
		{"no overlap below", "écran cassé", &models.BudgetRange{Min: 20, Max: 60}, 0},
		{"no overlap above", "batterie", &models.BudgetRange{Min: 100, Max: 200}, 0},
		{"cheaper than budget", "batterie", &models.BudgetRange{Min: 50, Max: 150}, 0.5},
		{"same midpoint", "écran cassé", &models.BudgetRange{Min: 100, Max: 100}, 0},
		{"touching ranges overlap", "écran cassé", &models.BudgetRange{Min: 120, Max: 200}, 1 - 100.0/160.0},
		{"folded problem lookup", "ECRAN CASSE", &models.BudgetRange{Min: 100, Max: 300}, 0.5},
		{"zero budget", "batterie", &models.BudgetRange{Min: 0, Max: 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, PriceScore(prices, tt.problem, tt.budget), 1e-9)
		})
	}

	assert.Equal(t, 0.5, PriceScore(nil, "batterie", &models.BudgetRange{Min: 1, Max: 2}))
}

func TestAvailabilityScore(t *testing.T) {
	all := []models.Availability{
		{},
		{SameDay: true},
		{NextDay: true},
		{WithinWeek: true},
		{SameDay: true, WithinWeek: true},
		{NextDay: true, WithinWeek: true},
		{SameDay: true, NextDay: true, WithinWeek: true},
	}

	maximal := map[models.Urgency]func(models.Availability) bool{
		models.UrgencyHigh:   func(a models.Availability) bool { return a.SameDay },
		models.UrgencyMedium: func(a models.Availability) bool { return a.NextDay },
		models.UrgencyLow:    func(a models.Availability) bool { return a.WithinWeek },
	}

	for urgency, isMax := range maximal {
		for _, a := range all {
			score := AvailabilityScore(a, urgency)
			if isMax(a) {
				assert.Equal(t, 1.0, score, "%s %+v", urgency, a)
			} else {
				assert.Less(t, score, 1.0, "%s %+v", urgency, a)
			}
		}
	}

	assert.Equal(t, 0.7, AvailabilityScore(models.Availability{NextDay: true}, models.UrgencyHigh))
	assert.Equal(t, 0.3, AvailabilityScore(models.Availability{WithinWeek: true}, models.UrgencyHigh))
	assert.Equal(t, 0.8, AvailabilityScore(models.Availability{WithinWeek: true}, models.UrgencyMedium))
	assert.Equal(t, 0.5, AvailabilityScore(models.Availability{}, models.UrgencyMedium))
	assert.Equal(t, 0.7, AvailabilityScore(models.Availability{}, models.UrgencyLow))
	assert.Equal(t, 0.5, AvailabilityScore(models.Availability{}, ""))
}

// ==========================
// Weights
// ==========================

func TestAdjustedWeights(t *testing.T) {
	s := NewScorer(DefaultConfig(), nil)

	base := s.AdjustedWeights(models.UserPreferences{Urgency: models.UrgencyMedium})
	assert.InDelta(t, 1.0, base.Sum(), 1e-9)
	assert.Equal(t, DefaultConfig().Weights, base)
	assert.Equal(t, base, base.Times(Identity))

	speed := s.AdjustedWeights(models.UserPreferences{PrioritizeSpeed: true})
	assert.InDelta(t, 0.25*1.3, speed.Distance, 1e-9)
	assert.InDelta(t, 0.20*1.5, speed.Availability, 1e-9)
	assert.InDelta(t, 0.15*0.7, speed.Price, 1e-9)

	stacked := s.AdjustedWeights(models.UserPreferences{PrioritizeSpeed: true, Urgency: models.UrgencyHigh})
	assert.InDelta(t, 0.20*1.5*1.8, stacked.Availability, 1e-9)
	assert.InDelta(t, 0.25*1.3*1.4, stacked.Distance, 1e-9)
	assert.Greater(t, stacked.Sum(), 1.0)

	price := s.AdjustedWeights(models.UserPreferences{PrioritizePrice: true})
	assert.InDelta(t, 0.15*1.8, price.Price, 1e-9)
	assert.InDelta(t, 0.20*0.8, price.Rating, 1e-9)

	rating := s.AdjustedWeights(models.UserPreferences{PrioritizeRating: true})
	assert.InDelta(t, 0.20*1.6, rating.Rating, 1e-9)
	assert.InDelta(t, 0.15*0.8, rating.Price, 1e-9)
}

func TestAdjustedWeights_Normalized(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NormalizeWeights = true
	s := NewScorer(cfg, nil)

	w := s.AdjustedWeights(models.UserPreferences{
		PrioritizePrice: true, PrioritizeRating: true, PrioritizeSpeed: true, Urgency: models.UrgencyHigh,
	})
	assert.InDelta(t, 1.0, w.Sum(), 1e-9)
	assert.Greater(t, w.Availability, cfg.Weights.Availability)
}

// ==========================
// Filter
// ==========================

func TestFilterByDistance(t *testing.T) {
	origin := geo.Point{Lat: 48.8566, Lng: 2.3522}
	repairers := []models.RepairerProfile{
		{ID: "louvre", Latitude: 48.8606, Longitude: 2.3376},
		{ID: "versailles", Latitude: 48.8049, Longitude: 2.1204},
		{ID: "lyon", Latitude: 45.7640, Longitude: 4.8357},
		{ID: "bastille", Latitude: 48.8532, Longitude: 2.3692},
	}

	kept := FilterByDistance(origin, repairers, 10, geo.DefaultAverageSpeedKmh)
	ids := make([]string, len(kept))
	for i, k := range kept {
		ids[i] = k.ID
		assert.LessOrEqual(t, k.Distance, 10.0)
		assert.NotEmpty(t, k.EstimatedTravelTime)
	}
	assert.Equal(t, []string{"louvre", "bastille"}, ids)

	keptIDs := map[string]bool{"louvre": true, "bastille": true}
	for _, r := range repairers {
		if !keptIDs[r.ID] {
			assert.Greater(t, geo.Distance(origin, geo.Point{Lat: r.Latitude, Lng: r.Longitude}), 10.0)
		}
	}
}

func TestFilterByDistance_OrderIndependent(t *testing.T) {
	origin := geo.Point{Lat: 48.8566, Lng: 2.3522}
	rng := rand.New(rand.NewSource(42))

	var repairers []models.RepairerProfile
	for i := 0; i < 50; i++ {
		repairers = append(repairers, models.RepairerProfile{
			ID:        string(rune('a'+i%26)) + string(rune('a'+i/26)),
			Latitude:  origin.Lat + (rng.Float64()-0.5)*0.4,
			Longitude: origin.Lng + (rng.Float64()-0.5)*0.4,
		})
	}

	toSet := func(in []models.ScoredRepairer) map[string]bool {
		out := map[string]bool{}
		for _, r := range in {
			out[r.ID] = true
		}
		return out
	}

	want := toSet(FilterByDistance(origin, repairers, 8, 0))
	for i := 0; i < 5; i++ {
		shuffled := append([]models.RepairerProfile(nil), repairers...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, toSet(FilterByDistance(origin, shuffled, 8, 0)))
	}
}

func TestFilterByDistance_BoundaryIsInclusive(t *testing.T) {
	origin := geo.Point{Lat: 0, Lng: 0}
	r := models.RepairerProfile{ID: "edge", Latitude: 0, Longitude: 0.05}
	d := geo.Distance(origin, geo.Point{Lat: 0, Lng: 0.05})

	assert.Len(t, FilterByDistance(origin, []models.RepairerProfile{r}, d, 0), 1)
	assert.Empty(t, FilterByDistance(origin, []models.RepairerProfile{r}, d-1e-6, 0))
}

// ==========================
// Reasoning
// ==========================

func TestReasoning(t *testing.T) {
	criteria := models.RecommendationCriteria{
		ProblemType:     "écran cassé",
		UserPreferences: models.UserPreferences{Urgency: models.UrgencyHigh},
	}

	t.Run("no candidates", func(t *testing.T) {
		assert.Equal(t, []string{NoResultsReason}, Reasoning(nil, criteria))
	})

	t.Run("all lines", func(t *testing.T) {
		top := &models.ScoredRepairer{
			RepairerProfile: models.RepairerProfile{
				Rating:       4.8,
				Specialties:  []string{"écran"},
				Availability: models.Availability{SameDay: true},
			},
			Distance:            1.16,
			EstimatedTravelTime: "3 min",
		}
		assert.Equal(t, []string{
			"📍 À 1.2 km de chez vous (3 min de trajet)",
			"⭐ Excellente réputation (4.8/5)",
			"🔧 Spécialiste en écran cassé",
			"⚡ Disponible aujourd'hui pour votre urgence",
		}, Reasoning(top, criteria))
	})

	t.Run("good rating only", func(t *testing.T) {
		top := &models.ScoredRepairer{
			RepairerProfile:     models.RepairerProfile{Rating: 4.2, Specialties: []string{"batterie"}},
			Distance:            30,
			EstimatedTravelTime: "1h 12m",
		}
		lines := Reasoning(top, criteria)
		assert.Equal(t, []string{
			"📍 À 30.0 km de chez vous (1h 12m de trajet)",
			"⭐ Très bonne réputation (4.2/5)",
		}, lines)
	})

	t.Run("low rating and not urgent", func(t *testing.T) {
		top := &models.ScoredRepairer{
			RepairerProfile: models.RepairerProfile{
				Rating:       3.9,
				Specialties:  []string{"Écran cassé iPhone"},
				Availability: models.Availability{SameDay: true},
			},
			EstimatedTravelTime: "0 min",
		}
		c := criteria
		c.UserPreferences.Urgency = models.UrgencyMedium
		lines := Reasoning(top, c)
		assert.Len(t, lines, 2)
		assert.Equal(t, "🔧 Spécialiste en écran cassé", lines[1])
	})
}

func TestMentionsProblem_IgnoresRegistry(t *testing.T) {
	// "vitre" is a keyword for "écran cassé" but does not contain the text.
	assert.False(t, mentionsProblem([]string{"vitre"}, "écran cassé"))
	assert.True(t, mentionsProblem([]string{"ECRAN"}, "écran cassé"))
	assert.False(t, mentionsProblem([]string{""}, "écran cassé"))
	assert.False(t, mentionsProblem([]string{"écran"}, ""))
}

func TestNewScorer_CustomKeywords(t *testing.T) {
	reg := &registry.ProblemTypeRegistry{ProblemTypes: []registry.ProblemType{
		{ID: "clavier", Keywords: []string{"clavier"}},
	}}
	s := NewScorer(DefaultConfig(), registry.NewResolver(reg, 0))
	req := s.newRequest(models.RecommendationCriteria{ProblemType: "clavier"}, 10)
	assert.Equal(t, []string{"clavier"}, req.keywords)
}
