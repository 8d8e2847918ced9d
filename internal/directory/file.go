package directory

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"repair-recommender/internal/common/metrics"
	"repair-recommender/internal/geo"
	"repair-recommender/internal/models"

	"gopkg.in/yaml.v3"
)

// fileRecord is one repairer in a fixture file. Absent latitude/longitude
// means not geolocated; absent active means active.
type fileRecord struct {
	ID           string                       `yaml:"id"`
	Name         string                       `yaml:"name"`
	Address      string                       `yaml:"address"`
	Latitude     *float64                     `yaml:"latitude"`
	Longitude    *float64                     `yaml:"longitude"`
	Phone        string                       `yaml:"phone"`
	Rating       *float64                     `yaml:"rating"`
	Specialties  []string                     `yaml:"specialties"`
	PriceRanges  map[string]models.PriceRange `yaml:"priceRanges"`
	OpeningHours models.OpeningHours          `yaml:"openingHours"`
	Active       *bool                        `yaml:"active"`
}

type fixture struct {
	Repairers []fileRecord `yaml:"repairers"`
}

// File serves repairers from an in-memory snapshot, typically loaded from a
// YAML or JSON fixture.
type File struct {
	repairers []models.RepairerProfile
}

// NewFile keeps a sorted copy of repairers.
func NewFile(repairers []models.RepairerProfile) *File {
	out := make([]models.RepairerProfile, len(repairers))
	copy(out, repairers)
	for i := range out {
		out[i].ApplyDefaults()
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return &File{repairers: out}
}

// LoadFile reads a fixture. JSON files are accepted as YAML.
func LoadFile(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read directory fixture: %w", err)
	}
	return ParseFixture(raw)
}

// ParseFixture decodes fixture bytes, dropping inactive and non-geolocated
// records.
func ParseFixture(raw []byte) (*File, error) {
	var fx fixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return nil, fmt.Errorf("parse directory fixture: %w", err)
	}

	repairers := make([]models.RepairerProfile, 0, len(fx.Repairers))
	for i, rec := range fx.Repairers {
		if rec.ID == "" {
			return nil, fmt.Errorf("repairer %d: missing id", i)
		}
		if rec.Active != nil && !*rec.Active {
			continue
		}
		if rec.Latitude == nil || rec.Longitude == nil {
			continue
		}
		repairers = append(repairers, models.RepairerProfile{
			ID:           rec.ID,
			Name:         rec.Name,
			Address:      rec.Address,
			Latitude:     *rec.Latitude,
			Longitude:    *rec.Longitude,
			Phone:        rec.Phone,
			Rating:       models.RatingOrDefault(rec.Rating),
			Specialties:  rec.Specialties,
			PriceRanges:  rec.PriceRanges,
			OpeningHours: rec.OpeningHours,
		})
	}
	return NewFile(repairers), nil
}

// All returns every repairer in the snapshot.
func (f *File) All() []models.RepairerProfile {
	out := make([]models.RepairerProfile, len(f.repairers))
	copy(out, f.repairers)
	return out
}

func (f *File) ActiveRepairers(_ context.Context, q Query) ([]models.RepairerProfile, error) {
	start := time.Now()
	defer func() { metrics.RecordDirectoryFetch(SourceFile, time.Since(start)) }()

	box, ok := q.Box()
	out := make([]models.RepairerProfile, 0, len(f.repairers))
	for _, r := range f.repairers {
		if ok && !box.Contains(geo.Point{Lat: r.Latitude, Lng: r.Longitude}) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
