// internal/service/geo/namer.go

package geo

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/cb671/streetsafe-server/internal/domain/geo"
	"github.com/cb671/streetsafe-server/internal/logger"
)

// UnknownLocation is the name given to cells that cannot be named
const UnknownLocation = "Unknown Location"

// NameCache stores resolved names
type NameCache interface {
	Get(ctx context.Context, cell geo.Cell) (string, bool)
	Set(ctx context.Context, cell geo.Cell, name string)
}

// NamerConfig contains configuration for the location namer
type NamerConfig struct {
	// Concurrency bounds the reverse geocoding calls of one batch
	Concurrency int
}

// LocationNamer implements geo.Namer using reverse geocoding
type LocationNamer struct {
	geocoder geo.Geocoder
	index    geo.CellIndex
	cache    NameCache
	config   NamerConfig
}

// NewLocationNamer creates a new location namer. cache may be nil.
func NewLocationNamer(geocoder geo.Geocoder, index geo.CellIndex, cache NameCache, config NamerConfig) *LocationNamer {
	if config.Concurrency <= 0 {
		config.Concurrency = 4
	}

	return &LocationNamer{
		geocoder: geocoder,
		index:    index,
		cache:    cache,
		config:   config,
	}
}

// Name returns a display name for a cell, or UnknownLocation
func (n *LocationNamer) Name(ctx context.Context, c geo.Cell) string {
	if n.cache != nil {
		if name, ok := n.cache.Get(ctx, c); ok {
			return name
		}
	}

	log := logger.L().WithField("cell", c)

	center, err := n.index.Centroid(c)
	if err != nil {
		log.WithError(err).Warn("cell_centroid_failed")
		return UnknownLocation
	}

	addr, err := n.geocoder.Reverse(ctx, center.Lat, center.Lng)
	if err != nil {
		log.WithError(err).Warn("reverse_geocode_failed")
		return UnknownLocation
	}

	name := FormatAddress(addr)
	if name != UnknownLocation && n.cache != nil {
		n.cache.Set(ctx, c, name)
	}
	return name
}

// NameAll names cells with bounded concurrency, preserving input order
func (n *LocationNamer) NameAll(ctx context.Context, cells []geo.Cell) []string {
	names := make([]string, len(cells))

	var g errgroup.Group
	g.SetLimit(n.config.Concurrency)

	for i, c := range cells {
		i, c := i, c
		g.Go(func() error {
			names[i] = n.Name(ctx, c)
			return nil
		})
	}
	g.Wait()

	return names
}

// FormatAddress joins the area, settlement and county of an address,
// dropping repeats
func FormatAddress(a *geo.Address) string {
	if a == nil {
		return UnknownLocation
	}

	parts := []string{
		firstNonEmpty(a.Neighbourhood, a.Suburb),
		firstNonEmpty(a.City, a.Town, a.Village),
		a.County,
	}

	var unique []string
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		unique = append(unique, p)
	}

	if len(unique) == 0 {
		return UnknownLocation
	}
	return strings.Join(unique, ", ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
