// internal/domain/geo/errors.go

package geo

import (
	"errors"
	"fmt"
)

var (
	// ErrLocationNotFound is returned when the geocoder has no match
	ErrLocationNotFound = errors.New("location not found")

	// ErrGeocodingUnavailable is returned when the geocoder responds with a failure
	ErrGeocodingUnavailable = errors.New("geocoding service unavailable")
)

// Location resolution stages
const (
	StageGeocode    = "geocode"
	StageResolution = "resolution"
	StageCell       = "cell"
)

// LocationError wraps a location resolution failure with the stage that failed
type LocationError struct {
	Stage string
	Err   error
}

func (e *LocationError) Error() string {
	return fmt.Sprintf("Error converting location to H3: %v", e.Err)
}

func (e *LocationError) Unwrap() error {
	return e.Err
}
