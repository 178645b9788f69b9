// internal/domain/geo/service.go

package geo

import (
	"context"
	"strconv"
)

// ReferenceResolution is the resolution cells are normalized to before
// they are compared or grouped
const ReferenceResolution = 9

// Cell is an H3 index rendered as a lowercase hex string
type Cell string

// IsZero reports whether no cell is set
func (c Cell) IsZero() bool {
	return c == ""
}

// String implements fmt.Stringer
func (c Cell) String() string {
	return string(c)
}

// Coordinates is a WGS84 point
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Address holds the parts of a reverse geocoding result used for naming
type Address struct {
	Neighbourhood string `json:"neighbourhood,omitempty"`
	Suburb        string `json:"suburb,omitempty"`
	City          string `json:"city,omitempty"`
	Town          string `json:"town,omitempty"`
	Village       string `json:"village,omitempty"`
	County        string `json:"county,omitempty"`
}

// Geocoder converts between place names and coordinates
type Geocoder interface {
	// Search returns matches for free text, best match first.
	// A provider failure returns ErrGeocodingUnavailable.
	Search(ctx context.Context, query string) ([]Coordinates, error)

	// Reverse returns the address at a point
	Reverse(ctx context.Context, lat, lng float64) (*Address, error)
}

// CellIndex provides the hexagonal index primitives
type CellIndex interface {
	// FromLatLng returns the cell containing a point at a resolution
	FromLatLng(lat, lng float64, resolution int) (Cell, error)

	// Parent returns the ancestor of a cell at a coarser resolution
	Parent(c Cell, resolution int) (Cell, error)

	// GridDistance returns the number of hops between two cells
	GridDistance(a, b Cell) (int, error)

	// AreaKm2 returns the area of a cell in square kilometres
	AreaKm2(c Cell) (float64, error)

	// Resolution returns the resolution of a cell
	Resolution(c Cell) (int, error)

	// Centroid returns the center point of a cell
	Centroid(c Cell) (Coordinates, error)
}

// ResolutionSampler reports the resolution stored cells are recorded at
type ResolutionSampler interface {
	// SampleResolution returns the resolution of one stored cell.
	// ok is false when the dataset is empty.
	SampleResolution(ctx context.Context) (resolution int, ok bool, err error)
}

// LocationResolver turns free text into a cell
type LocationResolver interface {
	// Resolve returns the cell for a place name, or an empty cell for empty text
	Resolve(ctx context.Context, text string) (Cell, error)
}

// RadiusConverter turns a radius in kilometres into a hop bound
type RadiusConverter interface {
	// Hops never fails; invalid input yields the default bound
	Hops(radiusKm float64, center Cell) int
}

// Namer gives cells human readable names
type Namer interface {
	// Name returns a display name for a cell, never failing
	Name(ctx context.Context, c Cell) string

	// NameAll names cells, preserving input order
	NameAll(ctx context.Context, cells []Cell) []string
}

// SpatialFilter restricts an aggregate to cells near a center.
// The zero value selects everything.
type SpatialFilter struct {
	Center Cell
	Hops   int
}

// NoSpatialFilter returns a filter that selects everything
func NoSpatialFilter() SpatialFilter {
	return SpatialFilter{}
}

// WithinHops returns a filter selecting cells at most hops from center.
// An empty center yields NoSpatialFilter.
func WithinHops(center Cell, hops int) SpatialFilter {
	if center.IsZero() {
		return NoSpatialFilter()
	}
	return SpatialFilter{Center: center, Hops: hops}
}

// IsNone reports whether the filter selects everything
func (f SpatialFilter) IsNone() bool {
	return f.Center.IsZero()
}

// CellFromInt64 renders a raw 64-bit index, as stored in bigint columns,
// as a cell
func CellFromInt64(v int64) Cell {
	return Cell(strconv.FormatUint(uint64(v), 16))
}
