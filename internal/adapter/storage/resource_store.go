// internal/adapter/storage/resource_store.go

package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/cb671/streetsafe-server/internal/domain/resource"
)

// ResourceStore implements storage for educational resources
type ResourceStore struct {
	db *pgxpool.Pool
}

// NewResourceStore creates a new resource store
func NewResourceStore(db *pgxpool.Pool) *ResourceStore {
	return &ResourceStore{
		db: db,
	}
}

// All returns every resource, newest first
func (s *ResourceStore) All(ctx context.Context) ([]resource.Resource, error) {
	query := `
		SELECT id, title, url, description, type, target_crime_type, added_at
		FROM educational_sources
		ORDER BY added_at DESC`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	return scanResources(rows)
}

// ByCategories returns resources tagged with any of keys, newest first
func (s *ResourceStore) ByCategories(ctx context.Context, keys []string) ([]resource.Resource, error) {
	if len(keys) == 0 {
		return s.All(ctx)
	}

	query := `
		SELECT id, title, url, description, type, target_crime_type, added_at
		FROM educational_sources
		WHERE EXISTS (
			SELECT 1
			FROM unnest(regexp_split_to_array(target_crime_type, '[,[:space:]]+')) AS crime_type
			WHERE crime_type = ANY($1)
		)
		ORDER BY added_at DESC`

	rows, err := s.db.Query(ctx, query, keys)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	return scanResources(rows)
}

func scanResources(rows pgx.Rows) ([]resource.Resource, error) {
	defer rows.Close()

	var resources []resource.Resource
	for rows.Next() {
		var r resource.Resource
		var description, kind, target *string
		if err := rows.Scan(&r.ID, &r.Title, &r.URL, &description, &kind, &target, &r.AddedAt); err != nil {
			return nil, fmt.Errorf("error scanning resource: %w", err)
		}
		if description != nil {
			r.Description = *description
		}
		if kind != nil {
			r.Type = *kind
		}
		if target != nil {
			r.TargetCrimeType = *target
		}
		resources = append(resources, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating resources: %w", err)
	}

	return resources, nil
}
