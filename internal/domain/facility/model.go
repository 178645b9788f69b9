// internal/domain/facility/model.go

package facility

import (
	"context"

	"github.com/cb671/streetsafe-server/internal/domain/geo"
)

// Kind identifies a tracked facility type
type Kind string

// Tracked facility kinds
const (
	Police   Kind = "police"
	Hospital Kind = "hospital"
)

// storedTypes maps the type column of stored facilities to a Kind
var storedTypes = map[string]Kind{
	"police":       Police,
	"NHS Hospital": Hospital,
}

// KindOf returns the kind of a stored facility type
func KindOf(storedType string) (Kind, bool) {
	k, ok := storedTypes[storedType]
	return k, ok
}

// TrackedTypes returns the stored type values of every tracked kind
func TrackedTypes() []string {
	return []string{"police", "NHS Hospital"}
}

// Record is a stored facility. H3 holds the raw 64-bit index.
type Record struct {
	Name string
	Type string
	H3   int64
}

// Match is the nearest facility of one kind
type Match struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	H3         geo.Cell `json:"h3"`
	Distance   int      `json:"distance"`
	DistanceKm float64  `json:"distance_km"`
}

// Nearest holds the closest facility per kind, nil when none exist
type Nearest struct {
	Police   *Match `json:"police"`
	Hospital *Match `json:"hospital"`
}

// Store reads and writes facility records
type Store interface {
	// ListByTypes returns facilities whose stored type is one of types
	ListByTypes(ctx context.Context, types []string) ([]Record, error)

	// InsertAll stores records in one transaction
	InsertAll(ctx context.Context, records []Record) (int, error)
}

// Locator finds the nearest facilities to a cell
type Locator interface {
	Nearest(ctx context.Context, cell geo.Cell) (*Nearest, error)
}
