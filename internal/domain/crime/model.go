// internal/domain/crime/model.go

package crime

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/cb671/streetsafe-server/internal/domain/facility"
	"github.com/cb671/streetsafe-server/internal/domain/geo"
)

// Category is one of the fixed incident categories
type Category int

// Categories in canonical display order
const (
	Burglary Category = iota
	PersonalTheft
	WeaponCrime
	BicycleTheft
	Damage
	Robbery
	Shoplifting
	Violent
	AntiSocial
	Drugs
	VehicleCrime

	NumCategories = 11
)

var categoryKeys = [NumCategories]string{
	"burglary",
	"personal_theft",
	"weapon_crime",
	"bicycle_theft",
	"damage",
	"robbery",
	"shoplifting",
	"violent",
	"anti_social",
	"drugs",
	"vehicle_crime",
}

var categoryLabels = [NumCategories]string{
	"Burglary",
	"Personal Theft",
	"Weapon Crime",
	"Bicycle Theft",
	"Damage",
	"Robbery",
	"Shoplifting",
	"Violent Crime",
	"Anti-Social",
	"Drugs",
	"Vehicle Crime",
}

// AllCategories returns every category in canonical order
func AllCategories() []Category {
	all := make([]Category, NumCategories)
	for i := range all {
		all[i] = Category(i)
	}
	return all
}

// Keys returns the storage keys of every category in canonical order
func Keys() []string {
	keys := make([]string, NumCategories)
	copy(keys, categoryKeys[:])
	return keys
}

// Key returns the storage column name of the category
func (c Category) Key() string {
	if c < 0 || int(c) >= NumCategories {
		return ""
	}
	return categoryKeys[c]
}

// Label returns the human readable name of the category
func (c Category) Label() string {
	if c < 0 || int(c) >= NumCategories {
		return ""
	}
	return categoryLabels[c]
}

// String implements fmt.Stringer
func (c Category) String() string {
	return c.Key()
}

// MarshalJSON encodes the category as its key
func (c Category) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Key())
}

// ParseCategory looks up a category by its key
func ParseCategory(key string) (Category, bool) {
	key = strings.TrimSpace(key)
	for i, k := range categoryKeys {
		if k == key {
			return Category(i), true
		}
	}
	return 0, false
}

// Vector holds one non-negative count per category, indexed by Category
type Vector [NumCategories]int64

// Get returns the count for a category
func (v Vector) Get(c Category) int64 {
	return v[c]
}

// Total returns the sum of all counts
func (v Vector) Total() int64 {
	var total int64
	for _, n := range v {
		total += n
	}
	return total
}

// IsZero reports whether every count is zero
func (v Vector) IsZero() bool {
	return v.Total() == 0
}

// Counts returns the counts as a slice in canonical order
func (v Vector) Counts() []int64 {
	counts := make([]int64, NumCategories)
	copy(counts, v[:])
	return counts
}

// MarshalJSON encodes the vector as an object with keys in canonical order
func (v Vector) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	v.writeFields(&buf)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (v Vector) writeFields(buf *bytes.Buffer) {
	for i, n := range v {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(categoryKeys[i])
		buf.WriteString(`":`)
		buf.WriteString(strconv.FormatInt(n, 10))
	}
}

// NullCounts normalizes nullable store values into a vector.
// Missing and negative values become zero.
func NullCounts(values [NumCategories]*int64) Vector {
	var v Vector
	for i, p := range values {
		if p != nil && *p > 0 {
			v[i] = *p
		}
	}
	return v
}

// CategoryTotal is one entry of a totals-by-category result
type CategoryTotal struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// Proportion is a category total annotated with its share of the grand total
type Proportion struct {
	Category   string `json:"category"`
	Count      int64  `json:"count"`
	Percentage string `json:"percentage"`
}

// PeriodVector is a store row of sums for one period
type PeriodVector struct {
	Period time.Time
	Counts Vector
}

// TrendPoint is one period of a trends result
type TrendPoint struct {
	Period time.Time
	Total  int64
	Counts Vector
}

// MarshalJSON flattens the category counts next to the period and total
func (p TrendPoint) MarshalJSON() ([]byte, error) {
	period, err := json.Marshal(p.Period)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(`{"period":`)
	buf.Write(period)
	buf.WriteString(`,"total_crimes":`)
	buf.WriteString(strconv.FormatInt(p.Total, 10))
	buf.WriteByte(',')
	p.Counts.writeFields(&buf)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// CellVector is a store row of sums for one cell
type CellVector struct {
	Cell   geo.Cell
	Counts Vector
}

// CellFeature is a map feature encoded as [cell, count...]
type CellFeature struct {
	Cell   geo.Cell
	Counts Vector
}

// MarshalJSON encodes the feature as a flat array
func (f CellFeature) MarshalJSON() ([]byte, error) {
	row := make([]interface{}, 0, NumCategories+1)
	row = append(row, f.Cell)
	for _, n := range f.Counts {
		row = append(row, n)
	}
	return json.Marshal(row)
}

// DateRange is the span of dates covered by the dataset
type DateRange struct {
	MinDate *time.Time `json:"min_date"`
	MaxDate *time.Time `json:"max_date"`
}

// LocationOption is an area that can be offered as a filter
type LocationOption struct {
	H3   geo.Cell `json:"h3"`
	Name string   `json:"name"`
}

// HexagonDetail describes a single cell for the map sidebar
type HexagonDetail struct {
	H3                geo.Cell          `json:"h3"`
	Name              string            `json:"name"`
	Crimes            []int64           `json:"crimes"`
	EmergencyServices *facility.Nearest `json:"emergencyServices"`
}
