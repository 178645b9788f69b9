// internal/adapter/storage/predicate.go

package storage

import (
	"fmt"
	"strings"

	"github.com/cb671/streetsafe-server/internal/domain/crime"
	"github.com/cb671/streetsafe-server/internal/domain/geo"
)

// sumColumns renders one SUM(col) per category in canonical order. An
// empty group sums to NULL; vectorScan turns that into zero.
func sumColumns() string {
	cols := make([]string, 0, crime.NumCategories)
	for _, key := range crime.Keys() {
		cols = append(cols, fmt.Sprintf("SUM(%s)::bigint AS %s", key, key))
	}
	return strings.Join(cols, ",\n\t\t\t")
}

// spatialClause renders a spatial filter as a WHERE fragment.
// argIndex is the position of the first placeholder it may use.
func spatialClause(f geo.SpatialFilter, argIndex int) (string, []interface{}) {
	if f.IsNone() {
		return "", nil
	}

	clause := fmt.Sprintf(
		" AND h3_grid_distance(h3::h3index, $%d::h3index) <= $%d",
		argIndex, argIndex+1,
	)
	return clause, []interface{}{string(f.Center), f.Hops}
}

// periodExpr returns the fixed SQL expression for a grouping
func periodExpr(g crime.GroupBy) string {
	switch g {
	case crime.GroupByYear:
		return "DATE_TRUNC('year', date)"
	case crime.GroupByMonth:
		return "DATE_TRUNC('month', date)"
	default:
		return "date::timestamp"
	}
}

// vectorScan receives one row of nullable category sums
type vectorScan [crime.NumCategories]*int64

// dest returns the scan destinations in canonical order
func (s *vectorScan) dest() []interface{} {
	dest := make([]interface{}, crime.NumCategories)
	for i := range s {
		dest[i] = &s[i]
	}
	return dest
}

// vector returns the scanned sums with NULLs as zero
func (s *vectorScan) vector() crime.Vector {
	return crime.NullCounts(*s)
}
