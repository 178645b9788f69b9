// internal/service/geo/resolver.go

package geo

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/cb671/streetsafe-server/internal/domain/geo"
	"github.com/cb671/streetsafe-server/internal/logger"
)

// ResolverConfig contains configuration for the location resolver
type ResolverConfig struct {
	// DefaultResolution is used when the dataset holds no cells
	DefaultResolution int
}

// LocationResolver implements geo.LocationResolver
type LocationResolver struct {
	geocoder geo.Geocoder
	sampler  geo.ResolutionSampler
	index    geo.CellIndex
	config   ResolverConfig
}

// NewLocationResolver creates a new location resolver
func NewLocationResolver(
	geocoder geo.Geocoder,
	sampler geo.ResolutionSampler,
	index geo.CellIndex,
	config ResolverConfig,
) *LocationResolver {
	if config.DefaultResolution <= 0 {
		config.DefaultResolution = geo.ReferenceResolution
	}

	return &LocationResolver{
		geocoder: geocoder,
		sampler:  sampler,
		index:    index,
		config:   config,
	}
}

// Resolve returns the cell for a place name at the dataset's resolution.
// Empty text resolves to an empty cell without error.
func (r *LocationResolver) Resolve(ctx context.Context, text string) (geo.Cell, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}

	matches, err := r.geocoder.Search(ctx, text)
	if err != nil {
		return "", &geo.LocationError{Stage: geo.StageGeocode, Err: err}
	}
	if len(matches) == 0 {
		return "", &geo.LocationError{
			Stage: geo.StageGeocode,
			Err:   fmt.Errorf("%w: %q", geo.ErrLocationNotFound, text),
		}
	}

	resolution, ok, err := r.sampler.SampleResolution(ctx)
	if err != nil {
		return "", &geo.LocationError{Stage: geo.StageResolution, Err: err}
	}
	if !ok || resolution <= 0 {
		resolution = r.config.DefaultResolution
	}

	match := matches[0]
	cell, err := r.index.FromLatLng(match.Lat, match.Lng, resolution)
	if err != nil {
		return "", &geo.LocationError{Stage: geo.StageCell, Err: err}
	}

	logger.L().WithFields(logrus.Fields{
		"location":   text,
		"cell":       cell,
		"resolution": resolution,
	}).Debug("location_resolved")

	return cell, nil
}
