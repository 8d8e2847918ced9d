package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	apperrors "repair-recommender/internal/common/errors"
	"repair-recommender/internal/common/logger"
	"repair-recommender/internal/common/metrics"
	"repair-recommender/internal/geo"
	"repair-recommender/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
)

const (
	DefaultIndex = "repairers"

	// DefaultMaxHits caps a single search; Elasticsearch rejects more than
	// index.max_result_window (10000) by default.
	DefaultMaxHits = 1000
)

// RepairerIndexMapping is the mapping expected by Elasticsearch.
const RepairerIndexMapping = `{
	"mappings": {
		"properties": {
			"id":            {"type": "keyword"},
			"name":          {"type": "text"},
			"address":       {"type": "text"},
			"location":      {"type": "geo_point"},
			"phone":         {"type": "keyword"},
			"rating":        {"type": "float"},
			"services":      {"type": "keyword"},
			"prices":        {"type": "object", "enabled": false},
			"opening_hours": {"type": "object", "enabled": false},
			"is_active":     {"type": "boolean"}
		}
	}
}`

// repairerDocument is the indexed form of a repairer.
type repairerDocument struct {
	ID           string                       `json:"id"`
	Name         string                       `json:"name"`
	Address      string                       `json:"address,omitempty"`
	Location     *geoPoint                    `json:"location,omitempty"`
	Phone        string                       `json:"phone,omitempty"`
	Rating       *float64                     `json:"rating,omitempty"`
	Services     []string                     `json:"services,omitempty"`
	Prices       map[string]models.PriceRange `json:"prices,omitempty"`
	OpeningHours models.OpeningHours          `json:"opening_hours,omitempty"`
	IsActive     bool                         `json:"is_active"`
}

type geoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (d repairerDocument) profile() models.RepairerProfile {
	r := models.RepairerProfile{
		ID:           d.ID,
		Name:         d.Name,
		Address:      d.Address,
		Phone:        d.Phone,
		Rating:       models.RatingOrDefault(d.Rating),
		Specialties:  d.Services,
		PriceRanges:  d.Prices,
		OpeningHours: d.OpeningHours,
	}
	if d.Location != nil {
		r.Latitude = d.Location.Lat
		r.Longitude = d.Location.Lon
	}
	r.ApplyDefaults()
	return r
}

// documentFor converts a profile into its indexed form.
func documentFor(r models.RepairerProfile) repairerDocument {
	rating := r.Rating
	return repairerDocument{
		ID:           r.ID,
		Name:         r.Name,
		Address:      r.Address,
		Location:     &geoPoint{Lat: r.Latitude, Lon: r.Longitude},
		Phone:        r.Phone,
		Rating:       &rating,
		Services:     r.Specialties,
		Prices:       r.PriceRanges,
		OpeningHours: r.OpeningHours,
		IsActive:     true,
	}
}

type Elasticsearch struct {
	client  *elasticsearch.Client
	index   string
	maxHits int
	logger  logger.Logger
}

func NewElasticsearch(client *elasticsearch.Client, index string, maxHits int, log logger.Logger) *Elasticsearch {
	if index == "" {
		index = DefaultIndex
	}
	if maxHits <= 0 {
		maxHits = DefaultMaxHits
	}
	return &Elasticsearch{
		client:  client,
		index:   index,
		maxHits: maxHits,
		logger:  log.WithFields(map[string]interface{}{"directory": SourceElasticsearch}),
	}
}

// buildSearch returns the query body for q.
func (e *Elasticsearch) buildSearch(q Query) map[string]interface{} {
	filters := []interface{}{
		map[string]interface{}{"term": map[string]interface{}{"is_active": true}},
		map[string]interface{}{"exists": map[string]interface{}{"field": "location"}},
	}
	if box, ok := q.Box(); ok {
		filters = append(filters, boundingBoxFilter(box)...)
	}

	return map[string]interface{}{
		"size": e.maxHits,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"filter": filters},
		},
		"sort": []interface{}{
			map[string]interface{}{"id": map[string]interface{}{"order": "asc"}},
		},
	}
}

// boundingBoxFilter splits boxes crossing the antimeridian in two, since
// geo_bounding_box needs left < right.
func boundingBoxFilter(box geo.Box) []interface{} {
	rect := func(minLng, maxLng float64) map[string]interface{} {
		return map[string]interface{}{
			"geo_bounding_box": map[string]interface{}{
				"location": map[string]interface{}{
					"top_left":     map[string]float64{"lat": box.MaxLat, "lon": minLng},
					"bottom_right": map[string]float64{"lat": box.MinLat, "lon": maxLng},
				},
			},
		}
	}
	if !box.CrossesAntimeridian() {
		return []interface{}{rect(box.MinLng, box.MaxLng)}
	}
	return []interface{}{
		map[string]interface{}{
			"bool": map[string]interface{}{
				"should": []interface{}{
					rect(box.MinLng, 180),
					rect(-180, box.MaxLng),
				},
				"minimum_should_match": 1,
			},
		},
	}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source repairerDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (e *Elasticsearch) ActiveRepairers(ctx context.Context, q Query) ([]models.RepairerProfile, error) {
	start := time.Now()
	defer func() { metrics.RecordDirectoryFetch(SourceElasticsearch, time.Since(start)) }()

	body, err := json.Marshal(e.buildSearch(q))
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.index),
		e.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, apperrors.DirectoryError(SourceElasticsearch, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		return nil, apperrors.NewDirectoryUnavailableError(SourceElasticsearch,
			fmt.Errorf("search %s: %s: %s", e.index, res.Status(), raw))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, apperrors.NewDirectoryDecodeError(SourceElasticsearch, err)
	}

	out := make([]models.RepairerProfile, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		out = append(out, hit.Source.profile())
	}
	if len(out) == e.maxHits {
		e.logger.Warn("search hit the result cap", map[string]interface{}{
			"maxHits":  e.maxHits,
			"radiusKm": q.RadiusKm,
		})
	}
	return out, nil
}

// EnsureIndex creates the index with RepairerIndexMapping when missing.
func (e *Elasticsearch) EnsureIndex(ctx context.Context) error {
	res, err := e.client.Indices.Exists([]string{e.index}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", e.index, err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	res, err = e.client.Indices.Create(e.index,
		e.client.Indices.Create.WithContext(ctx),
		e.client.Indices.Create.WithBody(bytes.NewReader([]byte(RepairerIndexMapping))),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", e.index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index %s: %s", e.index, res.Status())
	}
	return nil
}

// Index bulk-loads repairers, keyed by id. It returns the number indexed.
func (e *Elasticsearch) Index(ctx context.Context, repairers []models.RepairerProfile) (int, error) {
	indexer, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:  e.client,
		Index:   e.index,
		Refresh: "wait_for",
	})
	if err != nil {
		return 0, fmt.Errorf("create bulk indexer: %w", err)
	}

	for _, r := range repairers {
		doc, err := json.Marshal(documentFor(r))
		if err != nil {
			return 0, fmt.Errorf("encode %s: %w", r.ID, err)
		}
		id := r.ID
		err = indexer.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: id,
			Body:       bytes.NewReader(doc),
			OnFailure: func(_ context.Context, _ esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				fields := map[string]interface{}{"repairerId": id}
				if err != nil {
					fields["error"] = err.Error()
				} else {
					fields["error"] = res.Error.Reason
				}
				e.logger.Error("bulk index failed", fields)
			},
		})
		if err != nil {
			return 0, fmt.Errorf("queue %s: %w", r.ID, err)
		}
	}

	if err := indexer.Close(ctx); err != nil {
		return 0, fmt.Errorf("flush bulk indexer: %w", err)
	}
	stats := indexer.Stats()
	if stats.NumFailed > 0 {
		return int(stats.NumIndexed), fmt.Errorf("%d of %d repairers failed to index", stats.NumFailed, len(repairers))
	}
	return int(stats.NumIndexed), nil
}
