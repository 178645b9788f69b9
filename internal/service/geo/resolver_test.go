// internal/service/geo/resolver_test.go

package geo_test

import (
	"context"
	"errors"
	"testing"

	"github.com/cb671/streetsafe-server/internal/domain/geo"
	geoService "github.com/cb671/streetsafe-server/internal/service/geo"
)

func TestResolveEmptyText(t *testing.T) {
	geocoder := &fakeGeocoder{}
	r := geoService.NewLocationResolver(geocoder, &fakeSampler{}, &fakeIndex{}, geoService.ResolverConfig{})

	cell, err := r.Resolve(context.Background(), "  ")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !cell.IsZero() {
		t.Errorf("Expected empty cell, got %s", cell)
	}
	if geocoder.SearchCalls != 0 {
		t.Errorf("Expected geocoder not to be called, got %d calls", geocoder.SearchCalls)
	}
}

func TestResolveUsesSampledResolution(t *testing.T) {
	geocoder := &fakeGeocoder{
		SearchFunc: func(ctx context.Context, query string) ([]geo.Coordinates, error) {
			return []geo.Coordinates{{Lat: 53.48, Lng: -2.24}, {Lat: 0, Lng: 0}}, nil
		},
	}
	index := &fakeIndex{}
	r := geoService.NewLocationResolver(geocoder, &fakeSampler{Resolution: 7, OK: true}, index, geoService.ResolverConfig{})

	cell, err := r.Resolve(context.Background(), "Manchester")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cell != "cell" {
		t.Errorf("Expected cell, got %s", cell)
	}
	if index.LastRes != 7 {
		t.Errorf("Expected resolution 7, got %d", index.LastRes)
	}
}

func TestResolveDefaultsResolutionOnEmptyDataset(t *testing.T) {
	geocoder := &fakeGeocoder{
		SearchFunc: func(ctx context.Context, query string) ([]geo.Coordinates, error) {
			return []geo.Coordinates{{Lat: 51.5, Lng: -0.12}}, nil
		},
	}
	index := &fakeIndex{}
	r := geoService.NewLocationResolver(geocoder, &fakeSampler{}, index, geoService.ResolverConfig{})

	if _, err := r.Resolve(context.Background(), "London"); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if index.LastRes != 9 {
		t.Errorf("Expected default resolution 9, got %d", index.LastRes)
	}
}

func TestResolveNotFound(t *testing.T) {
	geocoder := &fakeGeocoder{
		SearchFunc: func(ctx context.Context, query string) ([]geo.Coordinates, error) {
			return nil, nil
		},
	}
	r := geoService.NewLocationResolver(geocoder, &fakeSampler{}, &fakeIndex{}, geoService.ResolverConfig{})

	_, err := r.Resolve(context.Background(), "Atlantis")
	if !errors.Is(err, geo.ErrLocationNotFound) {
		t.Fatalf("Expected ErrLocationNotFound, got %v", err)
	}

	var le *geo.LocationError
	if !errors.As(err, &le) || le.Stage != geo.StageGeocode {
		t.Errorf("Expected geocode stage error, got %v", err)
	}
}

func TestResolveUnavailable(t *testing.T) {
	geocoder := &fakeGeocoder{
		SearchFunc: func(ctx context.Context, query string) ([]geo.Coordinates, error) {
			return nil, geo.ErrGeocodingUnavailable
		},
	}
	r := geoService.NewLocationResolver(geocoder, &fakeSampler{}, &fakeIndex{}, geoService.ResolverConfig{})

	_, err := r.Resolve(context.Background(), "Leeds")
	if !errors.Is(err, geo.ErrGeocodingUnavailable) {
		t.Errorf("Expected ErrGeocodingUnavailable, got %v", err)
	}
}

func TestResolveWrapsResolutionFailure(t *testing.T) {
	geocoder := &fakeGeocoder{
		SearchFunc: func(ctx context.Context, query string) ([]geo.Coordinates, error) {
			return []geo.Coordinates{{Lat: 51.5, Lng: -0.12}}, nil
		},
	}
	dbErr := errors.New("connection refused")
	r := geoService.NewLocationResolver(geocoder, &fakeSampler{Err: dbErr}, &fakeIndex{}, geoService.ResolverConfig{})

	_, err := r.Resolve(context.Background(), "London")

	var le *geo.LocationError
	if !errors.As(err, &le) {
		t.Fatalf("Expected LocationError, got %v", err)
	}
	if le.Stage != geo.StageResolution {
		t.Errorf("Expected resolution stage, got %s", le.Stage)
	}
	if !errors.Is(err, dbErr) {
		t.Errorf("Expected wrapped cause, got %v", err)
	}
	if got := err.Error(); got != "Error converting location to H3: connection refused" {
		t.Errorf("Unexpected message: %s", got)
	}
}
