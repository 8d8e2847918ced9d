package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	apperrors "repair-recommender/internal/common/errors"
	"repair-recommender/internal/common/logger"
	"repair-recommender/internal/geo"
	"repair-recommender/internal/models"
)

func TestMongo_ActiveRepairers(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("decodes documents", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: "rep-1"},
				{Key: "name", Value: "Atelier du Louvre"},
				{Key: "location", Value: bson.A{2.3376, 48.8606}},
				{Key: "rating", Value: 4.8},
				{Key: "services", Value: bson.A{"écran"}},
				{Key: "prices", Value: bson.D{{Key: "écran cassé", Value: bson.D{{Key: "min", Value: 80.0}, {Key: "max", Value: 120.0}}}}},
				{Key: "is_active", Value: true},
			},
			bson.D{
				{Key: "_id", Value: "rep-2"},
				{Key: "name", Value: "Sans note"},
				{Key: "location", Value: bson.A{2.35, 48.85}},
				{Key: "is_active", Value: true},
			},
			bson.D{
				{Key: "_id", Value: "rep-3"},
				{Key: "name", Value: "Sans adresse"},
				{Key: "is_active", Value: true},
			},
		))

		dir := NewMongo(mt.Coll, logger.NewTestLogger(t))
		got, err := dir.ActiveRepairers(context.Background(), Query{
			Center:   geo.Point{Lat: 48.8566, Lng: 2.3522},
			RadiusKm: 10,
		})
		require.NoError(mt, err)
		require.Len(mt, got, 2)

		assert.Equal(mt, "rep-1", got[0].ID)
		assert.Equal(mt, 48.8606, got[0].Latitude)
		assert.Equal(mt, 2.3376, got[0].Longitude)
		assert.Equal(mt, 4.8, got[0].Rating)
		assert.Equal(mt, []string{"écran"}, got[0].Specialties)
		assert.Equal(mt, models.PriceRange{Min: 80, Max: 120}, got[0].PriceRanges["écran cassé"])

		assert.Equal(mt, models.DefaultRating, got[1].Rating)
		assert.NotNil(mt, got[1].PriceRanges)
	})

	mt.Run("command error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Name:    "BadValue",
			Message: "bad query",
		}))

		dir := NewMongo(mt.Coll, logger.NewNoOpLogger())
		_, err := dir.ActiveRepairers(context.Background(), Query{})
		require.Error(mt, err)

		se, ok := apperrors.AsStandardError(err)
		require.True(mt, ok)
		assert.Equal(mt, apperrors.ErrCodeDirectoryUnavailable, se.Code)
	})

	mt.Run("upsert", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 2}))

		dir := NewMongo(mt.Coll, logger.NewNoOpLogger())
		n, err := dir.Upsert(context.Background(), []models.RepairerProfile{
			{ID: "rep-1", Latitude: 48.86, Longitude: 2.33},
			{ID: "rep-2", Latitude: 48.85, Longitude: 2.36},
		})
		require.NoError(mt, err)
		assert.Equal(mt, 2, n)
	})
}

func TestMongo_BuildFilter(t *testing.T) {
	dir := NewMongo(nil, logger.NewNoOpLogger())

	t.Run("no radius", func(t *testing.T) {
		filter := dir.buildFilter(Query{})
		assert.Equal(t, true, filter["is_active"])
		assert.Equal(t, bson.M{"$exists": true}, filter["location"])
		assert.NotContains(t, filter, "$or")
	})

	t.Run("box", func(t *testing.T) {
		filter := dir.buildFilter(Query{Center: geo.Point{Lat: 48.8566, Lng: 2.3522}, RadiusKm: 10})
		loc, ok := filter["location"].(bson.M)
		require.True(t, ok)
		assert.Contains(t, loc, "$geoWithin")
	})

	t.Run("antimeridian", func(t *testing.T) {
		filter := dir.buildFilter(Query{Center: geo.Point{Lat: -17.7, Lng: 179.9}, RadiusKm: 50})
		or, ok := filter["$or"].(bson.A)
		require.True(t, ok)
		assert.Len(t, or, 2)
	})
}

func TestMongoRecordRoundTrip(t *testing.T) {
	in := models.RepairerProfile{
		ID: "rep-1", Name: "A", Latitude: 48.86, Longitude: 2.33, Rating: 0,
		Specialties: []string{"batterie"},
		PriceRanges: map[string]models.PriceRange{"batterie": {Min: 40, Max: 70}},
	}
	out := mongoRecordFor(in).profile()
	assert.Equal(t, in, out)
}
