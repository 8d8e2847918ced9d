// internal/models/repairer.go
package models

// DefaultRating is applied when a directory record carries no rating.
const DefaultRating = 4.0

type PriceRange struct {
	Min float64 `json:"min" yaml:"min" bson:"min"`
	Max float64 `json:"max" yaml:"max" bson:"max"`
}

// Midpoint returns the centre of the range.
func (p PriceRange) Midpoint() float64 {
	return (p.Min + p.Max) / 2
}

// Overlaps reports whether the two closed ranges share at least one value.
func (p PriceRange) Overlaps(other PriceRange) bool {
	return p.Max >= other.Min && p.Min <= other.Max
}

type Availability struct {
	SameDay    bool `json:"sameDay" yaml:"sameDay"`
	NextDay    bool `json:"nextDay" yaml:"nextDay"`
	WithinWeek bool `json:"withinWeek" yaml:"withinWeek"`
}

// OpeningHours maps a lower-case English weekday ("monday") to one or more
// "HH:MM-HH:MM" intervals. An absent or empty day means closed.
type OpeningHours map[string][]string

type RepairerProfile struct {
	ID           string                `json:"id" yaml:"id"`
	Name         string                `json:"name" yaml:"name"`
	Address      string                `json:"address" yaml:"address"`
	Latitude     float64               `json:"latitude" yaml:"latitude"`
	Longitude    float64               `json:"longitude" yaml:"longitude"`
	Phone        string                `json:"phone,omitempty" yaml:"phone,omitempty"`
	Rating       float64               `json:"rating" yaml:"rating"`
	Specialties  []string              `json:"specialties" yaml:"specialties"`
	PriceRanges  map[string]PriceRange `json:"priceRanges" yaml:"priceRanges"`
	OpeningHours OpeningHours          `json:"openingHours,omitempty" yaml:"openingHours,omitempty"`
	Availability Availability          `json:"availability" yaml:"-"`
}

// RatingOrDefault resolves a nullable directory rating.
func RatingOrDefault(rating *float64) float64 {
	if rating == nil {
		return DefaultRating
	}
	return *rating
}

// ApplyDefaults fills the optional collections the directory may leave unset.
func (r *RepairerProfile) ApplyDefaults() {
	if r.Specialties == nil {
		r.Specialties = []string{}
	}
	if r.PriceRanges == nil {
		r.PriceRanges = map[string]PriceRange{}
	}
}
