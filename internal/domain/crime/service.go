// internal/domain/crime/service.go

package crime

import (
	"context"
	"time"

	"github.com/cb671/streetsafe-server/internal/domain/geo"
)

// Query bounds an aggregate by date and area
type Query struct {
	From    time.Time
	To      time.Time
	Spatial geo.SpatialFilter
}

// Filter holds the request level parameters of an aggregate
type Filter struct {
	Start      time.Time
	End        time.Time // zero means today
	Location   string
	RadiusKm   float64
	Categories CategorySet
}

// Store provides grouped sums over incident records
type Store interface {
	geo.ResolutionSampler

	// SumByCategory sums every category over the query
	SumByCategory(ctx context.Context, q Query) (Vector, error)

	// SumByPeriod sums every category per period, ordered by period
	SumByPeriod(ctx context.Context, q Query, groupBy GroupBy) ([]PeriodVector, error)

	// SumByCell sums every category per ancestor cell at resolution
	SumByCell(ctx context.Context, from, to time.Time, resolution int) ([]CellVector, error)

	// SumForCell sums every category for the area sharing cell's ancestor
	// at resolution. It returns nil when no records match.
	SumForCell(ctx context.Context, cell geo.Cell, resolution int, from, to time.Time) (*Vector, error)

	// DistinctCells lists ancestor cells at resolution that hold records
	DistinctCells(ctx context.Context, resolution, limit int) ([]geo.Cell, error)

	// DateRange returns the earliest and latest record dates
	DateRange(ctx context.Context) (*DateRange, error)
}

// Service answers aggregate questions about incidents
type Service interface {
	// Totals returns non-zero totals per category in canonical order
	Totals(ctx context.Context, f Filter) ([]CategoryTotal, error)

	// Trends returns per period sums ordered by period
	Trends(ctx context.Context, f Filter, groupBy GroupBy) ([]TrendPoint, error)

	// Proportions returns totals with their share of the grand total
	Proportions(ctx context.Context, f Filter) ([]Proportion, error)

	// MapFeatures returns per cell sums for the map, memoized per month pair
	MapFeatures(ctx context.Context, start, end time.Time) ([]CellFeature, error)

	// HexagonDetail returns the sums, name and nearby services of one cell
	HexagonDetail(ctx context.Context, cell geo.Cell, start, end time.Time) (*HexagonDetail, error)

	// AvailableLocations lists areas with data. With named set, areas are
	// labelled by reverse geocoding instead of their position.
	AvailableLocations(ctx context.Context, named bool) ([]LocationOption, error)

	// DateRange returns the span of the dataset
	DateRange(ctx context.Context) (*DateRange, error)
}
