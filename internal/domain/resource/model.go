// internal/domain/resource/model.go

package resource

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/cb671/streetsafe-server/internal/domain/geo"
)

// Resource is an educational resource tagged with crime categories
type Resource struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	URL             string    `json:"url"`
	Description     string    `json:"description"`
	Type            string    `json:"type"`
	TargetCrimeType string    `json:"target_crime_type"`
	AddedAt         time.Time `json:"added_at"`
}

// Tags splits the target crime types into category keys
func (r Resource) Tags() []string {
	return strings.FieldsFunc(r.TargetCrimeType, func(c rune) bool {
		return c == ',' || unicode.IsSpace(c)
	})
}

// Annotated is a resource scored against a user's local categories.
// RelevanceScore is nil when no local categories were known.
type Annotated struct {
	Resource
	RelevanceScore *int     `json:"relevance_score,omitempty"`
	TopLocalCrimes []string `json:"top_local_crimes,omitempty"`
}

// Tailored is the result of personalising resources for a home cell
type Tailored struct {
	Resources      []Annotated
	TopLocalCrimes []string
	Personalised   bool
}

// Store reads educational resources
type Store interface {
	// All returns every resource, newest first
	All(ctx context.Context) ([]Resource, error)

	// ByCategories returns resources tagged with any of keys, newest first
	ByCategories(ctx context.Context, keys []string) ([]Resource, error)
}

// Ranker personalises resources
type Ranker interface {
	// TopCategories returns the most frequent local categories, never failing
	TopCategories(ctx context.Context, home geo.Cell) []string

	// Tailored returns resources ranked for a home cell
	Tailored(ctx context.Context, home geo.Cell) (*Tailored, error)
}
