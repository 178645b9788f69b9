// internal/domain/crime/model_test.go

package crime_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/cb671/streetsafe-server/internal/domain/crime"
)

func TestFilterCategories(t *testing.T) {
	var v crime.Vector
	v[crime.Burglary] = 10
	v[crime.Violent] = 8
	v[crime.Drugs] = 2

	got := crime.FilterCategories(v, crime.ParseCategorySet("burglary,violent"))
	if got.Get(crime.Burglary) != 10 || got.Get(crime.Violent) != 8 || got.Get(crime.Drugs) != 0 {
		t.Errorf("Unexpected filtered vector: %v", got)
	}

	if again := crime.FilterCategories(got, crime.ParseCategorySet("burglary,violent")); again != got {
		t.Errorf("Expected filtering to be idempotent, got %v", again)
	}

	if same := crime.FilterCategories(v, crime.ParseCategorySet("")); same != v {
		t.Errorf("Expected no filtering for empty list, got %v", same)
	}
}

func TestParseCategorySetTrimsSpaces(t *testing.T) {
	set := crime.ParseCategorySet(" drugs , anti_social")
	if !set.Contains(crime.Drugs) || !set.Contains(crime.AntiSocial) || set.Contains(crime.Burglary) {
		t.Errorf("Unexpected set: %v", set)
	}
}

func TestCategoryKeysAndLabels(t *testing.T) {
	keys := crime.Keys()
	if len(keys) != crime.NumCategories || keys[0] != "burglary" || keys[10] != "vehicle_crime" {
		t.Errorf("Unexpected keys: %v", keys)
	}
	if crime.Violent.Label() != "Violent Crime" {
		t.Errorf("Unexpected label %q", crime.Violent.Label())
	}

	c, ok := crime.ParseCategory("anti_social")
	if !ok || c != crime.AntiSocial {
		t.Errorf("Expected anti_social, got %v (%v)", c, ok)
	}
	if _, ok := crime.ParseCategory("arson"); ok {
		t.Error("Expected unknown category to fail")
	}
}

func TestNullCounts(t *testing.T) {
	var values [crime.NumCategories]*int64
	five, negative := int64(5), int64(-3)
	values[crime.Robbery] = &five
	values[crime.Damage] = &negative

	v := crime.NullCounts(values)
	if v.Get(crime.Robbery) != 5 || v.Get(crime.Damage) != 0 || v.Total() != 5 {
		t.Errorf("Unexpected vector: %v", v)
	}
}

func TestVectorJSONKeepsCanonicalOrder(t *testing.T) {
	var v crime.Vector
	v[crime.VehicleCrime] = 3

	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	want := `{"burglary":0,"personal_theft":0,"weapon_crime":0,"bicycle_theft":0,"damage":0,"robbery":0,` +
		`"shoplifting":0,"violent":0,"anti_social":0,"drugs":0,"vehicle_crime":3}`
	if string(b) != want {
		t.Errorf("Expected %s, got %s", want, b)
	}
}

func TestTrendPointJSON(t *testing.T) {
	var v crime.Vector
	v[crime.Burglary] = 2
	p := crime.TrendPoint{
		Period: time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		Total:  2,
		Counts: v,
	}

	b, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("Invalid JSON %s: %v", b, err)
	}
	if decoded["period"] != "2025-03-01T00:00:00Z" || decoded["total_crimes"] != float64(2) || decoded["burglary"] != float64(2) {
		t.Errorf("Unexpected point: %s", b)
	}
}

func TestCellFeatureJSON(t *testing.T) {
	var v crime.Vector
	v[crime.Drugs] = 4

	b, err := json.Marshal(crime.CellFeature{Cell: "89283082837ffff", Counts: v})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	want := `["89283082837ffff",0,0,0,0,0,0,0,0,0,4,0]`
	if string(b) != want {
		t.Errorf("Expected %s, got %s", want, b)
	}
}

func TestParseGroupBy(t *testing.T) {
	tests := map[string]crime.GroupBy{
		"year":  crime.GroupByYear,
		"Month": crime.GroupByMonth,
		"date":  crime.GroupByDate,
		"":      crime.GroupByDate,
		"week":  crime.GroupByDate,
	}
	for in, want := range tests {
		if got := crime.ParseGroupBy(in); got != want {
			t.Errorf("ParseGroupBy(%q) = %v, want %v", in, got, want)
		}
	}
}
