package directory

import (
	"context"
	"fmt"
	"time"

	apperrors "repair-recommender/internal/common/errors"
	"repair-recommender/internal/common/logger"
	"repair-recommender/internal/common/metrics"
	"repair-recommender/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const DefaultCollection = "repairers"

// mongoRepairer is the stored form of a repairer. location is a legacy
// [lng, lat] pair so $box queries can use a 2d index.
type mongoRepairer struct {
	ID           string                       `bson:"_id"`
	Name         string                       `bson:"name"`
	Address      string                       `bson:"address,omitempty"`
	Location     []float64                    `bson:"location"`
	Phone        string                       `bson:"phone,omitempty"`
	Rating       *float64                     `bson:"rating,omitempty"`
	Services     []string                     `bson:"services,omitempty"`
	Prices       map[string]models.PriceRange `bson:"prices,omitempty"`
	OpeningHours map[string][]string          `bson:"opening_hours,omitempty"`
	IsActive     bool                         `bson:"is_active"`
}

func (m mongoRepairer) profile() models.RepairerProfile {
	r := models.RepairerProfile{
		ID:           m.ID,
		Name:         m.Name,
		Address:      m.Address,
		Phone:        m.Phone,
		Rating:       models.RatingOrDefault(m.Rating),
		Specialties:  m.Services,
		PriceRanges:  m.Prices,
		OpeningHours: m.OpeningHours,
	}
	if len(m.Location) == 2 {
		r.Longitude = m.Location[0]
		r.Latitude = m.Location[1]
	}
	r.ApplyDefaults()
	return r
}

func mongoRecordFor(r models.RepairerProfile) mongoRepairer {
	rating := r.Rating
	return mongoRepairer{
		ID:           r.ID,
		Name:         r.Name,
		Address:      r.Address,
		Location:     []float64{r.Longitude, r.Latitude},
		Phone:        r.Phone,
		Rating:       &rating,
		Services:     r.Specialties,
		Prices:       r.PriceRanges,
		OpeningHours: r.OpeningHours,
		IsActive:     true,
	}
}

// Mongo reads repairers from a MongoDB collection.
type Mongo struct {
	collection *mongo.Collection
	logger     logger.Logger
}

func NewMongo(collection *mongo.Collection, log logger.Logger) *Mongo {
	return &Mongo{
		collection: collection,
		logger:     log.WithFields(map[string]interface{}{"directory": SourceMongo}),
	}
}

func (m *Mongo) buildFilter(q Query) bson.M {
	filter := bson.M{
		"is_active": true,
		"location":  bson.M{"$exists": true},
	}
	box, ok := q.Box()
	if !ok {
		return filter
	}

	within := func(minLng, maxLng float64) bson.M {
		return bson.M{"location": bson.M{"$geoWithin": bson.M{
			"$box": bson.A{
				bson.A{minLng, box.MinLat},
				bson.A{maxLng, box.MaxLat},
			},
		}}}
	}
	if !box.CrossesAntimeridian() {
		filter["location"] = within(box.MinLng, box.MaxLng)["location"]
		return filter
	}
	filter["$or"] = bson.A{within(box.MinLng, 180), within(-180, box.MaxLng)}
	return filter
}

func (m *Mongo) ActiveRepairers(ctx context.Context, q Query) ([]models.RepairerProfile, error) {
	start := time.Now()
	defer func() { metrics.RecordDirectoryFetch(SourceMongo, time.Since(start)) }()

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := m.collection.Find(ctx, m.buildFilter(q), opts)
	if err != nil {
		return nil, apperrors.DirectoryError(SourceMongo, err)
	}
	defer cursor.Close(ctx)

	out := []models.RepairerProfile{}
	for cursor.Next(ctx) {
		var rec mongoRepairer
		if err := cursor.Decode(&rec); err != nil {
			return nil, apperrors.NewDirectoryDecodeError(SourceMongo, err)
		}
		if len(rec.Location) != 2 {
			m.logger.Warn("skipping repairer without a usable location", map[string]interface{}{
				"repairerId": rec.ID,
			})
			continue
		}
		out = append(out, rec.profile())
	}
	if err := cursor.Err(); err != nil {
		return nil, apperrors.DirectoryError(SourceMongo, err)
	}
	return out, nil
}

// EnsureIndexes creates the 2d index backing the $box queries.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := m.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "location", Value: "2d"}},
	})
	if err != nil {
		return fmt.Errorf("create location index: %w", err)
	}
	return nil
}

// Upsert replaces repairers by id, inserting missing ones.
func (m *Mongo) Upsert(ctx context.Context, repairers []models.RepairerProfile) (int, error) {
	if len(repairers) == 0 {
		return 0, nil
	}
	writes := make([]mongo.WriteModel, 0, len(repairers))
	for _, r := range repairers {
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": r.ID}).
			SetReplacement(mongoRecordFor(r)).
			SetUpsert(true))
	}

	res, err := m.collection.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, fmt.Errorf("upsert repairers: %w", err)
	}
	return int(res.MatchedCount + res.UpsertedCount), nil
}
