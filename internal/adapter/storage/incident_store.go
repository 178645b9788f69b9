// internal/adapter/storage/incident_store.go

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/cb671/streetsafe-server/internal/domain/crime"
	"github.com/cb671/streetsafe-server/internal/domain/geo"
	"github.com/cb671/streetsafe-server/internal/metrics"
)

// IncidentStore implements aggregate queries over crime_areas
type IncidentStore struct {
	db *pgxpool.Pool
}

// NewIncidentStore creates a new incident store
func NewIncidentStore(db *pgxpool.Pool) *IncidentStore {
	return &IncidentStore{
		db: db,
	}
}

// SampleResolution returns the resolution of one stored cell
func (s *IncidentStore) SampleResolution(ctx context.Context) (int, bool, error) {
	query := `SELECT h3_get_resolution(h3::h3index) FROM crime_areas LIMIT 1`

	var resolution int
	err := s.db.QueryRow(ctx, query).Scan(&resolution)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("error sampling resolution: %w", err)
	}

	return resolution, true, nil
}

// SumByCategory sums every category over the query
func (s *IncidentStore) SumByCategory(ctx context.Context, q crime.Query) (crime.Vector, error) {
	defer observe("sum_by_category", time.Now())

	query := `
		SELECT
			` + sumColumns() + `
		FROM crime_areas
		WHERE date >= $1 AND date <= $2`

	args := []interface{}{q.From, q.To}
	clause, spatialArgs := spatialClause(q.Spatial, 3)
	query += clause
	args = append(args, spatialArgs...)

	var sums vectorScan
	if err := s.db.QueryRow(ctx, query, args...).Scan(sums.dest()...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return crime.Vector{}, nil
		}
		return crime.Vector{}, fmt.Errorf("error executing query: %w", err)
	}

	return sums.vector(), nil
}

// SumByPeriod sums every category per period, ordered by period
func (s *IncidentStore) SumByPeriod(ctx context.Context, q crime.Query, groupBy crime.GroupBy) ([]crime.PeriodVector, error) {
	defer observe("sum_by_period", time.Now())

	period := periodExpr(groupBy)
	query := `
		SELECT
			` + period + ` AS period,
			` + sumColumns() + `
		FROM crime_areas
		WHERE date >= $1 AND date <= $2`

	args := []interface{}{q.From, q.To}
	clause, spatialArgs := spatialClause(q.Spatial, 3)
	query += clause
	args = append(args, spatialArgs...)

	query += `
		GROUP BY ` + period + `
		ORDER BY period`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var periods []crime.PeriodVector
	for rows.Next() {
		var p crime.PeriodVector
		var sums vectorScan
		dest := append([]interface{}{&p.Period}, sums.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("error scanning period: %w", err)
		}
		p.Counts = sums.vector()
		periods = append(periods, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating periods: %w", err)
	}

	return periods, nil
}

// SumByCell sums every category per ancestor cell at resolution
func (s *IncidentStore) SumByCell(ctx context.Context, from, to time.Time, resolution int) ([]crime.CellVector, error) {
	defer observe("sum_by_cell", time.Now())

	query := `
		SELECT
			h3_low_res::text,
			` + sumColumns() + `
		FROM (
			SELECT *, h3_cell_to_parent(h3::h3index, $3) AS h3_low_res
			FROM crime_areas
		) sub
		WHERE date >= $1 AND date <= $2
		GROUP BY h3_low_res`

	rows, err := s.db.Query(ctx, query, from, to, resolution)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var cells []crime.CellVector
	for rows.Next() {
		var c crime.CellVector
		var cell string
		var sums vectorScan
		dest := append([]interface{}{&cell}, sums.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("error scanning cell: %w", err)
		}
		c.Cell = geo.Cell(cell)
		c.Counts = sums.vector()
		cells = append(cells, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cells: %w", err)
	}

	return cells, nil
}

// SumForCell sums every category for the area sharing cell's ancestor at
// resolution. It returns nil when no records match.
func (s *IncidentStore) SumForCell(ctx context.Context, cell geo.Cell, resolution int, from, to time.Time) (*crime.Vector, error) {
	defer observe("sum_for_cell", time.Now())

	query := `
		SELECT
			` + sumColumns() + `
		FROM (
			SELECT *, h3_cell_to_parent(h3::h3index, $2) AS h3_area
			FROM crime_areas
		) sub
		WHERE h3_area = h3_cell_to_parent($1::h3index, $2)
		AND date >= $3 AND date <= $4
		GROUP BY h3_area`

	var sums vectorScan
	err := s.db.QueryRow(ctx, query, string(cell), resolution, from, to).Scan(sums.dest()...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}

	v := sums.vector()
	return &v, nil
}

// DistinctCells lists ancestor cells at resolution that hold records
func (s *IncidentStore) DistinctCells(ctx context.Context, resolution, limit int) ([]geo.Cell, error) {
	query := `
		SELECT DISTINCT h3_cell_to_parent(h3::h3index, $1)::text AS h3_low_res
		FROM crime_areas
		LIMIT $2`

	rows, err := s.db.Query(ctx, query, resolution, limit)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var cells []geo.Cell
	for rows.Next() {
		var cell string
		if err := rows.Scan(&cell); err != nil {
			return nil, fmt.Errorf("error scanning cell: %w", err)
		}
		cells = append(cells, geo.Cell(cell))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cells: %w", err)
	}

	return cells, nil
}

// DateRange returns the earliest and latest record dates
func (s *IncidentStore) DateRange(ctx context.Context) (*crime.DateRange, error) {
	query := `SELECT MIN(date)::timestamp, MAX(date)::timestamp FROM crime_areas`

	var r crime.DateRange
	if err := s.db.QueryRow(ctx, query).Scan(&r.MinDate, &r.MaxDate); err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}

	return &r, nil
}

func observe(name string, start time.Time) {
	metrics.QueryDurationMs.WithLabelValues(name).Observe(float64(time.Since(start).Milliseconds()))
}
