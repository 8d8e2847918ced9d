package directory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "repair-recommender/internal/common/errors"
	"repair-recommender/internal/common/logger"
	"repair-recommender/internal/common/metrics"
	"repair-recommender/internal/models"

	"github.com/lib/pq"
)

const DefaultTable = "repairers"

const selectRepairers = `
	SELECT id, name, COALESCE(address, ''), latitude, longitude, COALESCE(phone, ''),
	       rating, services, prices, opening_hours
	FROM %s
	WHERE is_active = TRUE
	  AND latitude IS NOT NULL
	  AND longitude IS NOT NULL`

// Postgres reads repairers from a SQL table. services is a text[] and
// prices / opening_hours are JSONB columns.
type Postgres struct {
	db     *sql.DB
	table  string
	logger logger.Logger
}

func NewPostgres(db *sql.DB, table string, log logger.Logger) *Postgres {
	if table == "" {
		table = DefaultTable
	}
	return &Postgres{
		db:     db,
		table:  table,
		logger: log.WithFields(map[string]interface{}{"directory": SourcePostgres}),
	}
}

// buildQuery returns the SQL and arguments for q, narrowing by bounding box
// when q has a radius.
func (p *Postgres) buildQuery(q Query) (string, []interface{}) {
	var sb strings.Builder
	fmt.Fprintf(&sb, selectRepairers, pq.QuoteIdentifier(p.table))

	var args []interface{}
	if box, ok := q.Box(); ok {
		sb.WriteString("\n\t  AND latitude BETWEEN $1 AND $2")
		if box.CrossesAntimeridian() {
			sb.WriteString("\n\t  AND (longitude >= $3 OR longitude <= $4)")
		} else {
			sb.WriteString("\n\t  AND longitude BETWEEN $3 AND $4")
		}
		args = append(args, box.MinLat, box.MaxLat, box.MinLng, box.MaxLng)
	}
	sb.WriteString("\n\tORDER BY id")
	return sb.String(), args
}

func (p *Postgres) ActiveRepairers(ctx context.Context, q Query) ([]models.RepairerProfile, error) {
	start := time.Now()
	defer func() { metrics.RecordDirectoryFetch(SourcePostgres, time.Since(start)) }()

	query, args := p.buildQuery(q)
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.DirectoryError(SourcePostgres, err)
	}
	defer rows.Close()

	out := []models.RepairerProfile{}
	for rows.Next() {
		var (
			r        models.RepairerProfile
			rating   sql.NullFloat64
			services pq.StringArray
			prices   []byte
			hours    []byte
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Address, &r.Latitude, &r.Longitude, &r.Phone,
			&rating, &services, &prices, &hours); err != nil {
			return nil, apperrors.NewDirectoryDecodeError(SourcePostgres, err)
		}

		var ratingPtr *float64
		if rating.Valid {
			ratingPtr = &rating.Float64
		}
		r.Rating = models.RatingOrDefault(ratingPtr)
		r.Specialties = []string(services)
		r.PriceRanges = p.decodePrices(r.ID, prices)
		r.OpeningHours = p.decodeHours(r.ID, hours)
		r.ApplyDefaults()

		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.DirectoryError(SourcePostgres, err)
	}
	return out, nil
}

// decodePrices tolerates NULL and malformed JSON; both yield no prices.
func (p *Postgres) decodePrices(id string, raw []byte) map[string]models.PriceRange {
	if len(raw) == 0 {
		return nil
	}
	var prices map[string]models.PriceRange
	if err := json.Unmarshal(raw, &prices); err != nil {
		p.logger.Warn("ignoring malformed prices", map[string]interface{}{
			"repairerId": id,
			"error":      err.Error(),
		})
		return nil
	}
	return prices
}

func (p *Postgres) decodeHours(id string, raw []byte) models.OpeningHours {
	if len(raw) == 0 {
		return nil
	}
	var hours models.OpeningHours
	if err := json.Unmarshal(raw, &hours); err != nil {
		p.logger.Warn("ignoring malformed opening hours", map[string]interface{}{
			"repairerId": id,
			"error":      err.Error(),
		})
		return nil
	}
	return hours
}
