// internal/service/proximity/locator.go

package proximity

import (
	"context"
	"fmt"

	"github.com/golang/geo/s2"
	"github.com/sirupsen/logrus"

	"github.com/cb671/streetsafe-server/internal/domain/crime"
	"github.com/cb671/streetsafe-server/internal/domain/facility"
	"github.com/cb671/streetsafe-server/internal/domain/geo"
	"github.com/cb671/streetsafe-server/internal/logger"
)

// earthRadiusKm is the mean Earth radius
const earthRadiusKm = 6371.0088

// Locator implements facility.Locator
type Locator struct {
	store      facility.Store
	index      geo.CellIndex
	resolution int
}

// NewLocator creates a new locator comparing cells at resolution
func NewLocator(store facility.Store, index geo.CellIndex, resolution int) *Locator {
	if resolution <= 0 {
		resolution = geo.ReferenceResolution
	}
	return &Locator{
		store:      store,
		index:      index,
		resolution: resolution,
	}
}

// Nearest returns the closest police station and hospital to cell by grid
// distance. Equal distances keep the first facility seen.
func (l *Locator) Nearest(ctx context.Context, cell geo.Cell) (*facility.Nearest, error) {
	res, err := l.index.Resolution(cell)
	if err != nil {
		return nil, crime.NewValidationError("h3Index", "invalid H3 index")
	}
	if res < l.resolution {
		return nil, crime.NewValidationError("h3Index", fmt.Sprintf("H3 index must be resolution %d or finer", l.resolution))
	}

	origin, err := l.index.Parent(cell, l.resolution)
	if err != nil {
		return nil, crime.NewValidationError("h3Index", "invalid H3 index")
	}

	records, err := l.store.ListByTypes(ctx, facility.TrackedTypes())
	if err != nil {
		return nil, &crime.PersistenceError{Err: err}
	}

	nearest := &facility.Nearest{}
	for _, r := range records {
		kind, ok := facility.KindOf(r.Type)
		if !ok {
			continue
		}

		target, distance, err := l.measure(origin, r)
		if err != nil {
			logger.L().WithFields(logrus.Fields{
				"facility": r.Name,
				"type":     r.Type,
				"error":    err,
			}).Debug("facility_skipped")
			continue
		}

		current := nearest.Police
		if kind == facility.Hospital {
			current = nearest.Hospital
		}
		if current != nil && distance >= current.Distance {
			continue
		}

		match := &facility.Match{
			Name:       r.Name,
			Type:       r.Type,
			H3:         geo.CellFromInt64(r.H3),
			Distance:   distance,
			DistanceKm: l.distanceKm(origin, target),
		}
		if kind == facility.Hospital {
			nearest.Hospital = match
		} else {
			nearest.Police = match
		}
	}

	return nearest, nil
}

func (l *Locator) measure(origin geo.Cell, r facility.Record) (geo.Cell, int, error) {
	target, err := l.index.Parent(geo.CellFromInt64(r.H3), l.resolution)
	if err != nil {
		return "", 0, err
	}

	distance, err := l.index.GridDistance(origin, target)
	if err != nil {
		return "", 0, err
	}

	return target, distance, nil
}

// distanceKm returns the great-circle distance between cell centroids,
// or zero when either centroid is unknown
func (l *Locator) distanceKm(a, b geo.Cell) float64 {
	ca, err := l.index.Centroid(a)
	if err != nil {
		return 0
	}
	cb, err := l.index.Centroid(b)
	if err != nil {
		return 0
	}
	return GreatCircleKm(ca, cb)
}

// GreatCircleKm returns the distance between two points on the Earth's surface
func GreatCircleKm(a, b geo.Coordinates) float64 {
	angle := s2.LatLngFromDegrees(a.Lat, a.Lng).Distance(s2.LatLngFromDegrees(b.Lat, b.Lng))
	return angle.Radians() * earthRadiusKm
}
