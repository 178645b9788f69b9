// internal/domain/crime/filter.go

package crime

import (
	"strings"
)

// CategorySet is the set of category keys a caller wants to keep.
// A nil set means no filtering.
type CategorySet map[string]struct{}

// NewCategorySet builds a set from category keys
func NewCategorySet(keys ...string) CategorySet {
	if len(keys) == 0 {
		return nil
	}
	set := make(CategorySet, len(keys))
	for _, k := range keys {
		set[strings.TrimSpace(k)] = struct{}{}
	}
	return set
}

// ParseCategorySet builds a set from a comma separated list.
// An empty string yields a nil set.
func ParseCategorySet(list string) CategorySet {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	return NewCategorySet(strings.Split(list, ",")...)
}

// Contains reports whether the category is wanted
func (s CategorySet) Contains(c Category) bool {
	_, ok := s[c.Key()]
	return ok
}

// FilterCategories zeroes every category not in wanted.
// With no wanted set the vector is returned unchanged.
func FilterCategories(v Vector, wanted CategorySet) Vector {
	if wanted == nil {
		return v
	}

	filtered := v
	for i := range filtered {
		if !wanted.Contains(Category(i)) {
			filtered[i] = 0
		}
	}
	return filtered
}

// GroupBy selects the period granularity of a trends query
type GroupBy int

const (
	// GroupByDate keeps one period per stored date
	GroupByDate GroupBy = iota
	// GroupByMonth truncates dates to the month
	GroupByMonth
	// GroupByYear truncates dates to the year
	GroupByYear
)

// ParseGroupBy maps a request value to a GroupBy, defaulting to GroupByDate
func ParseGroupBy(s string) GroupBy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "year":
		return GroupByYear
	case "month":
		return GroupByMonth
	default:
		return GroupByDate
	}
}

// String implements fmt.Stringer
func (g GroupBy) String() string {
	switch g {
	case GroupByYear:
		return "year"
	case GroupByMonth:
		return "month"
	default:
		return "date"
	}
}
