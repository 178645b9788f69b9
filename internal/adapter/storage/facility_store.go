// internal/adapter/storage/facility_store.go

package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/cb671/streetsafe-server/internal/domain/facility"
)

// FacilityStore implements storage for emergency services
type FacilityStore struct {
	db *pgxpool.Pool
}

// NewFacilityStore creates a new facility store
func NewFacilityStore(db *pgxpool.Pool) *FacilityStore {
	return &FacilityStore{
		db: db,
	}
}

// ListByTypes returns facilities whose stored type is one of types
func (s *FacilityStore) ListByTypes(ctx context.Context, types []string) ([]facility.Record, error) {
	query := `
		SELECT name, type, h3
		FROM emergency_services
		WHERE type = ANY($1)`

	rows, err := s.db.Query(ctx, query, types)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var records []facility.Record
	for rows.Next() {
		var r facility.Record
		if err := rows.Scan(&r.Name, &r.Type, &r.H3); err != nil {
			return nil, fmt.Errorf("error scanning facility: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating facilities: %w", err)
	}

	return records, nil
}

// InsertAll stores records in one transaction
func (s *FacilityStore) InsertAll(ctx context.Context, records []facility.Record) (int, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rows := make([][]interface{}, len(records))
	for i, r := range records {
		rows[i] = []interface{}{r.H3, r.Type, r.Name}
	}

	n, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"emergency_services"},
		[]string{"h3", "type", "name"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, fmt.Errorf("error copying facilities: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("error committing transaction: %w", err)
	}

	return int(n), nil
}
