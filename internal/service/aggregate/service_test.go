// internal/service/aggregate/service_test.go

package aggregate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cb671/streetsafe-server/internal/domain/crime"
	"github.com/cb671/streetsafe-server/internal/domain/facility"
	"github.com/cb671/streetsafe-server/internal/domain/geo"
)

type fakeStore struct {
	mu          sync.Mutex
	Vector      crime.Vector
	Periods     []crime.PeriodVector
	Cells       []crime.CellVector
	ForCell     *crime.Vector
	Distinct    []geo.Cell
	Err         error
	LastQuery   crime.Query
	SumByCellN  int
	SumByCellCh chan struct{}
}

func (f *fakeStore) SampleResolution(ctx context.Context) (int, bool, error) {
	return geo.ReferenceResolution, true, nil
}

func (f *fakeStore) SumByCategory(ctx context.Context, q crime.Query) (crime.Vector, error) {
	f.mu.Lock()
	f.LastQuery = q
	f.mu.Unlock()
	return f.Vector, f.Err
}

func (f *fakeStore) SumByPeriod(ctx context.Context, q crime.Query, groupBy crime.GroupBy) ([]crime.PeriodVector, error) {
	f.mu.Lock()
	f.LastQuery = q
	f.mu.Unlock()
	return f.Periods, f.Err
}

func (f *fakeStore) SumByCell(ctx context.Context, from, to time.Time, resolution int) ([]crime.CellVector, error) {
	f.mu.Lock()
	f.SumByCellN++
	f.mu.Unlock()
	if f.SumByCellCh != nil {
		select {
		case <-f.SumByCellCh:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.Cells, f.Err
}

func (f *fakeStore) SumForCell(ctx context.Context, cell geo.Cell, resolution int, from, to time.Time) (*crime.Vector, error) {
	return f.ForCell, f.Err
}

func (f *fakeStore) DistinctCells(ctx context.Context, resolution, limit int) ([]geo.Cell, error) {
	return f.Distinct, f.Err
}

func (f *fakeStore) DateRange(ctx context.Context) (*crime.DateRange, error) {
	return &crime.DateRange{}, f.Err
}

type fakeResolver struct {
	Cell geo.Cell
	Err  error
}

func (f *fakeResolver) Resolve(ctx context.Context, text string) (geo.Cell, error) {
	return f.Cell, f.Err
}

type fixedRadius int

func (r fixedRadius) Hops(radiusKm float64, center geo.Cell) int { return int(r) }

type fixedNamer string

func (n fixedNamer) Name(ctx context.Context, c geo.Cell) string { return string(n) }

func (n fixedNamer) NameAll(ctx context.Context, cells []geo.Cell) []string {
	names := make([]string, len(cells))
	for i := range names {
		names[i] = string(n)
	}
	return names
}

type fakeLocator struct {
	Result *facility.Nearest
	Err    error
}

func (f *fakeLocator) Nearest(ctx context.Context, cell geo.Cell) (*facility.Nearest, error) {
	return f.Result, f.Err
}

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *recordingPublisher) Publish(subject string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return nil
}

func newTestService(store *fakeStore, resolver *fakeResolver) *Service {
	s := NewService(store, resolver, fixedRadius(3), fixedNamer("Camden"), &fakeLocator{}, nil, Config{})
	s.now = func() time.Time { return time.Date(2025, time.June, 15, 13, 30, 0, 0, time.UTC) }
	return s
}

func vector(pairs map[crime.Category]int64) crime.Vector {
	var v crime.Vector
	for c, n := range pairs {
		v[c] = n
	}
	return v
}

func TestTotalsSkipsZeroCategories(t *testing.T) {
	store := &fakeStore{Vector: vector(map[crime.Category]int64{crime.Burglary: 10, crime.Violent: 8, crime.Drugs: 2})}
	s := newTestService(store, &fakeResolver{})

	got, err := s.Totals(context.Background(), crime.Filter{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := []crime.CategoryTotal{
		{Category: "Burglary", Count: 10},
		{Category: "Violent Crime", Count: 8},
		{Category: "Drugs", Count: 2},
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %d totals, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("totals[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestTotalsAppliesCategoryFilter(t *testing.T) {
	store := &fakeStore{Vector: vector(map[crime.Category]int64{crime.Burglary: 10, crime.Violent: 8, crime.Drugs: 2})}
	s := newTestService(store, &fakeResolver{})

	got, err := s.Totals(context.Background(), crime.Filter{Categories: crime.ParseCategorySet("burglary,violent")})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Count != 10 || got[1].Count != 8 {
		t.Errorf("Unexpected totals: %+v", got)
	}
}

func TestTotalsEmptyIsNotNil(t *testing.T) {
	s := newTestService(&fakeStore{}, &fakeResolver{})

	got, err := s.Totals(context.Background(), crime.Filter{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", got)
	}
}

func TestTotalsDefaultsEndToToday(t *testing.T) {
	store := &fakeStore{}
	s := newTestService(store, &fakeResolver{})

	if _, err := s.Totals(context.Background(), crime.Filter{}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)
	if !store.LastQuery.To.Equal(want) {
		t.Errorf("Expected end %v, got %v", want, store.LastQuery.To)
	}
}

func TestTotalsWrapsStoreErrors(t *testing.T) {
	s := newTestService(&fakeStore{Err: errors.New("connection refused")}, &fakeResolver{})

	_, err := s.Totals(context.Background(), crime.Filter{})
	var pe *crime.PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("Expected PersistenceError, got %v", err)
	}
	if pe.Error() != "Database error: connection refused" {
		t.Errorf("Unexpected message %q", pe.Error())
	}
}

func TestLocationFilter(t *testing.T) {
	t.Run("resolved", func(t *testing.T) {
		store := &fakeStore{}
		s := newTestService(store, &fakeResolver{Cell: "89283082837ffff"})

		if _, err := s.Totals(context.Background(), crime.Filter{Location: "Leeds", RadiusKm: 2}); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		want := geo.SpatialFilter{Center: "89283082837ffff", Hops: 3}
		if store.LastQuery.Spatial != want {
			t.Errorf("Expected %+v, got %+v", want, store.LastQuery.Spatial)
		}
	})

	t.Run("unresolvable location is dropped", func(t *testing.T) {
		store := &fakeStore{Vector: vector(map[crime.Category]int64{crime.Robbery: 4})}
		s := newTestService(store, &fakeResolver{Err: &geo.LocationError{Stage: geo.StageGeocode, Err: geo.ErrLocationNotFound}})

		got, err := s.Totals(context.Background(), crime.Filter{Location: "Atlantis"})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !store.LastQuery.Spatial.IsNone() {
			t.Errorf("Expected no spatial filter, got %+v", store.LastQuery.Spatial)
		}
		if len(got) != 1 || got[0].Count != 4 {
			t.Errorf("Unexpected totals: %+v", got)
		}
	})

	t.Run("blank location", func(t *testing.T) {
		store := &fakeStore{}
		s := newTestService(store, &fakeResolver{Cell: "89283082837ffff"})

		if _, err := s.Totals(context.Background(), crime.Filter{Location: "  "}); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !store.LastQuery.Spatial.IsNone() {
			t.Errorf("Expected no spatial filter, got %+v", store.LastQuery.Spatial)
		}
	})
}

func TestProportions(t *testing.T) {
	store := &fakeStore{Vector: vector(map[crime.Category]int64{crime.Burglary: 1, crime.Drugs: 2})}
	s := newTestService(store, &fakeResolver{})

	got, err := s.Proportions(context.Background(), crime.Filter{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 proportions, got %d", len(got))
	}
	if got[0].Percentage != "33.33" || got[1].Percentage != "66.67" {
		t.Errorf("Unexpected percentages: %+v", got)
	}
}

func TestProportionsEmpty(t *testing.T) {
	s := newTestService(&fakeStore{}, &fakeResolver{})

	got, err := s.Proportions(context.Background(), crime.Filter{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", got)
	}
}

func TestTrendsTotalAfterFilter(t *testing.T) {
	jan := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{Periods: []crime.PeriodVector{
		{Period: jan, Counts: vector(map[crime.Category]int64{crime.Burglary: 3, crime.Drugs: 5})},
		{Period: feb, Counts: vector(map[crime.Category]int64{crime.Drugs: 1})},
	}}
	s := newTestService(store, &fakeResolver{})

	got, err := s.Trends(context.Background(), crime.Filter{Categories: crime.NewCategorySet("burglary")}, crime.GroupByMonth)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 points, got %d", len(got))
	}
	if got[0].Total != 3 || got[0].Counts.Get(crime.Drugs) != 0 {
		t.Errorf("Unexpected first point: %+v", got[0])
	}
	if got[1].Total != 0 {
		t.Errorf("Expected zero total for filtered period, got %d", got[1].Total)
	}
}

func TestMapFeaturesSharesMonthEntry(t *testing.T) {
	store := &fakeStore{Cells: []crime.CellVector{{Cell: "89283082837ffff", Counts: vector(map[crime.Category]int64{crime.Damage: 1})}}}
	pub := &recordingPublisher{}
	s := newTestService(store, &fakeResolver{})
	s.publisher = pub
	ctx := context.Background()

	first, err := s.MapFeatures(ctx,
		time.Date(2025, time.January, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	second, err := s.MapFeatures(ctx,
		time.Date(2025, time.January, 28, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if store.SumByCellN != 1 {
		t.Errorf("Expected 1 store call, got %d", store.SumByCellN)
	}
	if len(first) != 1 || len(second) != 1 || first[0].Cell != second[0].Cell {
		t.Errorf("Expected identical results, got %+v and %+v", first, second)
	}
	if len(pub.subjects) != 1 {
		t.Errorf("Expected 1 published event, got %d", len(pub.subjects))
	}

	if _, err := s.MapFeatures(ctx,
		time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if store.SumByCellN != 2 {
		t.Errorf("Expected a second store call for a new month pair, got %d", store.SumByCellN)
	}
}

func TestMapFeaturesCoalescesConcurrentMisses(t *testing.T) {
	release := make(chan struct{})
	store := &fakeStore{SumByCellCh: release}
	s := newTestService(store, &fakeResolver{})

	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.MapFeatures(context.Background(), start, end); err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if store.SumByCellN != 1 {
		t.Errorf("Expected 1 store call, got %d", store.SumByCellN)
	}
}

func TestMapFeaturesCallerCancelDoesNotFailOthers(t *testing.T) {
	release := make(chan struct{})
	store := &fakeStore{
		SumByCellCh: release,
		Cells:       []crime.CellVector{{Cell: "89283082837ffff"}},
	}
	s := newTestService(store, &fakeResolver{})

	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := s.MapFeatures(first, start, end)
		firstErr <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		store.mu.Lock()
		n := store.SumByCellN
		store.mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	type result struct {
		features []crime.CellFeature
		err      error
	}
	second := make(chan result, 1)
	go func() {
		features, err := s.MapFeatures(context.Background(), start, end)
		second <- result{features, err}
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Errorf("Expected canceled caller to get context.Canceled, got %v", err)
	}

	close(release)
	got := <-second
	if got.err != nil {
		t.Fatalf("Expected live caller to succeed, got %v", got.err)
	}
	if len(got.features) != 1 {
		t.Errorf("Expected 1 feature, got %d", len(got.features))
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if store.SumByCellN != 1 {
		t.Errorf("Expected 1 store call, got %d", store.SumByCellN)
	}
}

func TestMapFeaturesErrorIsNotCached(t *testing.T) {
	store := &fakeStore{Err: errors.New("down")}
	s := newTestService(store, &fakeResolver{})
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

	if _, err := s.MapFeatures(context.Background(), start, start); err == nil {
		t.Fatal("Expected error")
	}
	store.Err = nil
	if _, err := s.MapFeatures(context.Background(), start, start); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if store.SumByCellN != 2 {
		t.Errorf("Expected 2 store calls, got %d", store.SumByCellN)
	}
}

func TestHexagonDetail(t *testing.T) {
	ctx := context.Background()

	t.Run("missing cell", func(t *testing.T) {
		s := newTestService(&fakeStore{}, &fakeResolver{})
		_, err := s.HexagonDetail(ctx, "", time.Time{}, time.Time{})
		if !crime.IsValidation(err) {
			t.Errorf("Expected validation error, got %v", err)
		}
	})

	t.Run("no data", func(t *testing.T) {
		s := newTestService(&fakeStore{}, &fakeResolver{})
		_, err := s.HexagonDetail(ctx, "89283082837ffff", time.Time{}, time.Time{})
		if !errors.Is(err, crime.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("locator failure degrades", func(t *testing.T) {
		v := vector(map[crime.Category]int64{crime.Shoplifting: 7})
		s := newTestService(&fakeStore{ForCell: &v}, &fakeResolver{})
		s.locator = &fakeLocator{Err: errors.New("timeout")}

		got, err := s.HexagonDetail(ctx, "89283082837ffff", time.Time{}, time.Time{})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if got.Name != "Camden" {
			t.Errorf("Expected name Camden, got %q", got.Name)
		}
		if len(got.Crimes) != crime.NumCategories || got.Crimes[crime.Shoplifting] != 7 {
			t.Errorf("Unexpected crimes: %v", got.Crimes)
		}
		if got.EmergencyServices != nil {
			t.Errorf("Expected nil emergency services, got %+v", got.EmergencyServices)
		}
	})

	t.Run("with services", func(t *testing.T) {
		v := vector(map[crime.Category]int64{crime.Burglary: 1})
		s := newTestService(&fakeStore{ForCell: &v}, &fakeResolver{})
		nearest := &facility.Nearest{Police: &facility.Match{Name: "Central", Distance: 2}}
		s.locator = &fakeLocator{Result: nearest}

		got, err := s.HexagonDetail(ctx, "89283082837ffff", time.Time{}, time.Time{})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if got.EmergencyServices != nearest {
			t.Errorf("Expected locator result, got %+v", got.EmergencyServices)
		}
	})
}

func TestAvailableLocations(t *testing.T) {
	s := newTestService(&fakeStore{Distinct: []geo.Cell{"a", "b"}}, &fakeResolver{})

	got, err := s.AvailableLocations(context.Background(), false)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Name != "Location 1" || got[1].Name != "Location 2" || got[1].H3 != "b" {
		t.Errorf("Unexpected locations: %+v", got)
	}
}

func TestAvailableLocationsNamed(t *testing.T) {
	s := newTestService(&fakeStore{Distinct: []geo.Cell{"a", "b"}}, &fakeResolver{})

	got, err := s.AvailableLocations(context.Background(), true)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Name != "Camden" || got[1].Name != "Camden" || got[0].H3 != "a" {
		t.Errorf("Unexpected locations: %+v", got)
	}
}
