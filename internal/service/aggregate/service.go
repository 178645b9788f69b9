// internal/service/aggregate/service.go

package aggregate

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/cb671/streetsafe-server/internal/adapter/events"
	"github.com/cb671/streetsafe-server/internal/domain/crime"
	"github.com/cb671/streetsafe-server/internal/domain/facility"
	"github.com/cb671/streetsafe-server/internal/domain/geo"
	"github.com/cb671/streetsafe-server/internal/logger"
	"github.com/cb671/streetsafe-server/internal/metrics"
)

// Config contains configuration for the aggregate service
type Config struct {
	// Resolution cells are grouped at for the map and single cell lookups
	Resolution int

	// DefaultMapStart is used when a map request has no start date
	DefaultMapStart time.Time

	// LocationLimit bounds the number of available locations
	LocationLimit int

	// CacheCapacity bounds the number of memoized map windows
	CacheCapacity int

	// CacheTTL expires memoized map windows; zero keeps them until evicted
	CacheTTL time.Duration

	// ComputeTimeout bounds one shared map computation. It is not tied to
	// any single caller.
	ComputeTimeout time.Duration
}

// Service implements crime.Service
type Service struct {
	store     crime.Store
	resolver  geo.LocationResolver
	radius    geo.RadiusConverter
	namer     geo.Namer
	locator   facility.Locator
	publisher events.Publisher
	config    Config

	cache *LRU[[]crime.CellFeature]
	group singleflight.Group
	now   func() time.Time
}

// NewService creates a new aggregate service
func NewService(
	store crime.Store,
	resolver geo.LocationResolver,
	radius geo.RadiusConverter,
	namer geo.Namer,
	locator facility.Locator,
	publisher events.Publisher,
	config Config,
) *Service {
	if config.Resolution <= 0 {
		config.Resolution = geo.ReferenceResolution
	}
	if config.DefaultMapStart.IsZero() {
		config.DefaultMapStart = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	if config.LocationLimit <= 0 {
		config.LocationLimit = 50
	}
	if config.CacheCapacity <= 0 {
		config.CacheCapacity = 512
	}
	if config.ComputeTimeout <= 0 {
		config.ComputeTimeout = 2 * time.Minute
	}
	if publisher == nil {
		publisher = events.Nop{}
	}

	return &Service{
		store:     store,
		resolver:  resolver,
		radius:    radius,
		namer:     namer,
		locator:   locator,
		publisher: publisher,
		config:    config,
		cache:     NewLRU[[]crime.CellFeature](config.CacheCapacity, config.CacheTTL),
		now:       time.Now,
	}
}

// Totals returns non-zero totals per category in canonical order
func (s *Service) Totals(ctx context.Context, f crime.Filter) ([]crime.CategoryTotal, error) {
	v, err := s.store.SumByCategory(ctx, s.query(ctx, f))
	if err != nil {
		return nil, &crime.PersistenceError{Err: err}
	}

	return totals(crime.FilterCategories(v, f.Categories)), nil
}

// Trends returns per period sums ordered by period. Totals are computed
// after category filtering.
func (s *Service) Trends(ctx context.Context, f crime.Filter, groupBy crime.GroupBy) ([]crime.TrendPoint, error) {
	rows, err := s.store.SumByPeriod(ctx, s.query(ctx, f), groupBy)
	if err != nil {
		return nil, &crime.PersistenceError{Err: err}
	}

	points := make([]crime.TrendPoint, 0, len(rows))
	for _, row := range rows {
		filtered := crime.FilterCategories(row.Counts, f.Categories)
		points = append(points, crime.TrendPoint{
			Period: row.Period,
			Total:  filtered.Total(),
			Counts: filtered,
		})
	}

	return points, nil
}

// Proportions returns totals with their percentage of the grand total
func (s *Service) Proportions(ctx context.Context, f crime.Filter) ([]crime.Proportion, error) {
	t, err := s.Totals(ctx, f)
	if err != nil {
		return nil, err
	}

	return proportions(t), nil
}

// MapFeatures returns per cell sums. Results are memoized per pair of
// month-truncated bounds, so every window within the same start and end
// months shares one entry. Concurrent misses on a key compute once.
func (s *Service) MapFeatures(ctx context.Context, start, end time.Time) ([]crime.CellFeature, error) {
	if start.IsZero() {
		start = s.config.DefaultMapStart
	}
	if end.IsZero() {
		end = s.now()
	}

	key := MonthKey(start, end)
	if features, ok := s.cache.Get(key); ok {
		metrics.MapCacheHitsTotal.Inc()
		return features, nil
	}
	metrics.MapCacheMissesTotal.Inc()

	// The shared computation is detached from the caller that starts it
	flightCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		if features, ok := s.cache.Get(key); ok {
			return features, nil
		}

		ctx, cancel := context.WithTimeout(flightCtx, s.config.ComputeTimeout)
		defer cancel()

		rows, err := s.store.SumByCell(ctx, start, end, s.config.Resolution)
		if err != nil {
			return nil, &crime.PersistenceError{Err: err}
		}

		features := make([]crime.CellFeature, 0, len(rows))
		for _, row := range rows {
			features = append(features, crime.CellFeature{Cell: row.Cell, Counts: row.Counts})
		}

		s.cache.Set(key, features)
		s.publishComputed(key, start, end, len(features))

		return features, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]crime.CellFeature), nil
	}
}

// HexagonDetail returns the sums, display name and nearest emergency
// services of one cell. Naming and service lookup failures degrade.
func (s *Service) HexagonDetail(ctx context.Context, cell geo.Cell, start, end time.Time) (*crime.HexagonDetail, error) {
	if cell.IsZero() {
		return nil, crime.NewValidationError("h3Index", "H3 index is required")
	}
	if end.IsZero() {
		end = s.now()
	}
	if start.IsZero() {
		start = end.AddDate(-1, 0, 0)
	}

	v, err := s.store.SumForCell(ctx, cell, s.config.Resolution, start, end)
	if err != nil {
		return nil, &crime.PersistenceError{Err: err}
	}
	if v == nil {
		return nil, fmt.Errorf("no data for cell %s: %w", cell, crime.ErrNotFound)
	}

	detail := &crime.HexagonDetail{
		H3:     cell,
		Name:   s.namer.Name(ctx, cell),
		Crimes: v.Counts(),
	}

	if s.locator != nil {
		nearest, err := s.locator.Nearest(ctx, cell)
		if err != nil {
			logger.L().WithError(err).WithField("cell", cell).Warn("emergency_services_lookup_failed")
		} else {
			detail.EmergencyServices = nearest
		}
	}

	return detail, nil
}

// AvailableLocations lists areas with data, labelled "Location N" or, when
// named, by reverse geocoding
func (s *Service) AvailableLocations(ctx context.Context, named bool) ([]crime.LocationOption, error) {
	cells, err := s.store.DistinctCells(ctx, s.config.Resolution, s.config.LocationLimit)
	if err != nil {
		return nil, &crime.PersistenceError{Err: err}
	}

	var names []string
	if named {
		names = s.namer.NameAll(ctx, cells)
	}

	locations := make([]crime.LocationOption, 0, len(cells))
	for i, c := range cells {
		name := "Location " + strconv.Itoa(i+1)
		if named {
			name = names[i]
		}
		locations = append(locations, crime.LocationOption{H3: c, Name: name})
	}

	return locations, nil
}

// DateRange returns the span of the dataset
func (s *Service) DateRange(ctx context.Context) (*crime.DateRange, error) {
	r, err := s.store.DateRange(ctx)
	if err != nil {
		return nil, &crime.PersistenceError{Err: err}
	}
	return r, nil
}

// query builds the store query of a filter. A location that cannot be
// resolved drops the spatial filter.
func (s *Service) query(ctx context.Context, f crime.Filter) crime.Query {
	end := f.End
	if end.IsZero() {
		now := s.now().UTC()
		end = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}

	return crime.Query{
		From:    f.Start,
		To:      end,
		Spatial: s.spatialFilter(ctx, f),
	}
}

func (s *Service) spatialFilter(ctx context.Context, f crime.Filter) geo.SpatialFilter {
	if strings.TrimSpace(f.Location) == "" {
		return geo.NoSpatialFilter()
	}

	center, err := s.resolver.Resolve(ctx, f.Location)
	if err != nil {
		logger.L().WithFields(logrus.Fields{
			"location": f.Location,
			"error":    err,
		}).Warn("location_filter_dropped")
		metrics.LocationFallbackTotal.Inc()
		return geo.NoSpatialFilter()
	}

	return geo.WithinHops(center, s.radius.Hops(f.RadiusKm, center))
}

func (s *Service) publishComputed(key string, start, end time.Time, cells int) {
	err := s.publisher.Publish(events.SubjectMapFeaturesComputed, map[string]interface{}{
		"key":   key,
		"start": MonthStart(start),
		"end":   MonthStart(end),
		"cells": cells,
	})
	if err != nil {
		logger.L().WithError(err).Warn("publish_failed")
	}
}

func totals(v crime.Vector) []crime.CategoryTotal {
	result := make([]crime.CategoryTotal, 0, crime.NumCategories)
	for _, c := range crime.AllCategories() {
		if n := v.Get(c); n > 0 {
			result = append(result, crime.CategoryTotal{Category: c.Label(), Count: n})
		}
	}
	return result
}

func proportions(t []crime.CategoryTotal) []crime.Proportion {
	var total int64
	for _, item := range t {
		total += item.Count
	}

	result := make([]crime.Proportion, 0, len(t))
	if total == 0 {
		return result
	}

	for _, item := range t {
		result = append(result, crime.Proportion{
			Category:   item.Category,
			Count:      item.Count,
			Percentage: strconv.FormatFloat(float64(item.Count)/float64(total)*100, 'f', 2, 64),
		})
	}
	return result
}
