// internal/service/geo/fakes_test.go

package geo_test

import (
	"context"
	"errors"
	"sync"

	"github.com/cb671/streetsafe-server/internal/domain/geo"
)

type fakeGeocoder struct {
	mu           sync.Mutex
	SearchFunc   func(ctx context.Context, query string) ([]geo.Coordinates, error)
	ReverseFunc  func(ctx context.Context, lat, lng float64) (*geo.Address, error)
	SearchCalls  int
	ReverseCalls int
}

func (f *fakeGeocoder) Search(ctx context.Context, query string) ([]geo.Coordinates, error) {
	f.mu.Lock()
	f.SearchCalls++
	f.mu.Unlock()
	if f.SearchFunc == nil {
		return nil, errors.New("not implemented")
	}
	return f.SearchFunc(ctx, query)
}

func (f *fakeGeocoder) Reverse(ctx context.Context, lat, lng float64) (*geo.Address, error) {
	f.mu.Lock()
	f.ReverseCalls++
	f.mu.Unlock()
	if f.ReverseFunc == nil {
		return nil, errors.New("not implemented")
	}
	return f.ReverseFunc(ctx, lat, lng)
}

type fakeSampler struct {
	Resolution int
	OK         bool
	Err        error
}

func (f *fakeSampler) SampleResolution(ctx context.Context) (int, bool, error) {
	return f.Resolution, f.OK, f.Err
}

// fakeIndex treats cells as opaque strings and serves areas and centroids
// from maps
type fakeIndex struct {
	Areas     map[geo.Cell]float64
	Centroids map[geo.Cell]geo.Coordinates
	LastRes   int
}

func (f *fakeIndex) FromLatLng(lat, lng float64, resolution int) (geo.Cell, error) {
	f.LastRes = resolution
	return geo.Cell("cell"), nil
}

func (f *fakeIndex) Parent(c geo.Cell, resolution int) (geo.Cell, error) {
	return c, nil
}

func (f *fakeIndex) GridDistance(a, b geo.Cell) (int, error) {
	return 0, nil
}

func (f *fakeIndex) AreaKm2(c geo.Cell) (float64, error) {
	area, ok := f.Areas[c]
	if !ok {
		return 0, errors.New("unknown cell")
	}
	return area, nil
}

func (f *fakeIndex) Resolution(c geo.Cell) (int, error) {
	return 9, nil
}

func (f *fakeIndex) Centroid(c geo.Cell) (geo.Coordinates, error) {
	ll, ok := f.Centroids[c]
	if !ok {
		return geo.Coordinates{}, errors.New("unknown cell")
	}
	return ll, nil
}
