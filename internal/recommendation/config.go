package recommendation

import (
	"time"

	"repair-recommender/internal/geo"
)

// Weights holds one factor per sub-score. It is used both for the base
// weights and for the multipliers a preference applies to them.
type Weights struct {
	Distance       float64 `mapstructure:"distance" json:"distance"`
	Rating         float64 `mapstructure:"rating" json:"rating"`
	Specialization float64 `mapstructure:"specialization" json:"specialization"`
	Price          float64 `mapstructure:"price" json:"price"`
	Availability   float64 `mapstructure:"availability" json:"availability"`
}

// Sum returns the total of all factors.
func (w Weights) Sum() float64 {
	return w.Distance + w.Rating + w.Specialization + w.Price + w.Availability
}

// Times multiplies w field by field with m.
func (w Weights) Times(m Weights) Weights {
	return Weights{
		Distance:       w.Distance * m.Distance,
		Rating:         w.Rating * m.Rating,
		Specialization: w.Specialization * m.Specialization,
		Price:          w.Price * m.Price,
		Availability:   w.Availability * m.Availability,
	}
}

// Normalized rescales w to sum to 1. A zero sum is returned unchanged.
func (w Weights) Normalized() Weights {
	sum := w.Sum()
	if sum <= 0 {
		return w
	}
	return Weights{
		Distance:       w.Distance / sum,
		Rating:         w.Rating / sum,
		Specialization: w.Specialization / sum,
		Price:          w.Price / sum,
		Availability:   w.Availability / sum,
	}
}

// Identity is the multiplier that leaves weights unchanged.
var Identity = Weights{Distance: 1, Rating: 1, Specialization: 1, Price: 1, Availability: 1}

type Multipliers struct {
	PrioritizePrice  Weights `mapstructure:"prioritize_price"`
	PrioritizeRating Weights `mapstructure:"prioritize_rating"`
	PrioritizeSpeed  Weights `mapstructure:"prioritize_speed"`
	HighUrgency      Weights `mapstructure:"high_urgency"`
}

type Config struct {
	Weights     Weights     `mapstructure:"weights"`
	Multipliers Multipliers `mapstructure:"multipliers"`

	// NormalizeWeights rescales adjusted weights to sum to 1 so that scores
	// stay comparable across preference combinations.
	NormalizeWeights bool `mapstructure:"normalize_weights"`

	RecommendationLimit int     `mapstructure:"recommendation_limit"`
	AlternativeLimit    int     `mapstructure:"alternative_limit"`
	AverageSpeedKmh     float64 `mapstructure:"average_speed_kmh"`

	// DefaultMaxDistance replaces a missing or non-positive maxDistance.
	DefaultMaxDistance float64 `mapstructure:"default_max_distance"`

	FetchTimeout time.Duration `mapstructure:"-"`

	// AvailabilityConcurrency bounds parallel availability lookups.
	AvailabilityConcurrency int `mapstructure:"availability_concurrency"`
}

func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Distance:       0.25,
			Rating:         0.20,
			Specialization: 0.20,
			Price:          0.15,
			Availability:   0.20,
		},
		Multipliers: Multipliers{
			PrioritizePrice:  Weights{Distance: 1, Rating: 0.8, Specialization: 1, Price: 1.8, Availability: 1},
			PrioritizeRating: Weights{Distance: 1, Rating: 1.6, Specialization: 1, Price: 0.8, Availability: 1},
			PrioritizeSpeed:  Weights{Distance: 1.3, Rating: 1, Specialization: 1, Price: 0.7, Availability: 1.5},
			HighUrgency:      Weights{Distance: 1.4, Rating: 1, Specialization: 1, Price: 1, Availability: 1.8},
		},
		RecommendationLimit:     3,
		AlternativeLimit:        3,
		AverageSpeedKmh:         geo.DefaultAverageSpeedKmh,
		DefaultMaxDistance:      10,
		FetchTimeout:            5 * time.Second,
		AvailabilityConcurrency: 8,
	}
}

// withDefaults fills zero values from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Weights.Sum() == 0 {
		c.Weights = d.Weights
	}
	if c.Multipliers.PrioritizePrice.Sum() == 0 {
		c.Multipliers.PrioritizePrice = d.Multipliers.PrioritizePrice
	}
	if c.Multipliers.PrioritizeRating.Sum() == 0 {
		c.Multipliers.PrioritizeRating = d.Multipliers.PrioritizeRating
	}
	if c.Multipliers.PrioritizeSpeed.Sum() == 0 {
		c.Multipliers.PrioritizeSpeed = d.Multipliers.PrioritizeSpeed
	}
	if c.Multipliers.HighUrgency.Sum() == 0 {
		c.Multipliers.HighUrgency = d.Multipliers.HighUrgency
	}
	if c.RecommendationLimit <= 0 {
		c.RecommendationLimit = d.RecommendationLimit
	}
	if c.AlternativeLimit <= 0 {
		c.AlternativeLimit = d.AlternativeLimit
	}
	if c.AverageSpeedKmh <= 0 {
		c.AverageSpeedKmh = d.AverageSpeedKmh
	}
	if c.DefaultMaxDistance <= 0 {
		c.DefaultMaxDistance = d.DefaultMaxDistance
	}
	if c.AvailabilityConcurrency <= 0 {
		c.AvailabilityConcurrency = d.AvailabilityConcurrency
	}
	return c
}
