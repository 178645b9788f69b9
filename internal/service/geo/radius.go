// internal/service/geo/radius.go

package geo

import (
	"math"

	"github.com/cb671/streetsafe-server/internal/domain/geo"
	"github.com/cb671/streetsafe-server/internal/logger"
)

// hexAreaFactor relates a regular hexagon's area to its circumradius:
// area = hexAreaFactor * r^2
var hexAreaFactor = 3 * math.Sqrt(3) / 2

// RadiusConfig contains configuration for radius conversion
type RadiusConfig struct {
	DefaultHops int
	MaxHops     int
}

// RadiusConverter implements geo.RadiusConverter
type RadiusConverter struct {
	index  geo.CellIndex
	config RadiusConfig
}

// NewRadiusConverter creates a new radius converter
func NewRadiusConverter(index geo.CellIndex, config RadiusConfig) *RadiusConverter {
	if config.DefaultHops <= 0 {
		config.DefaultHops = 3
	}
	if config.MaxHops <= 0 {
		config.MaxHops = 50
	}

	return &RadiusConverter{
		index:  index,
		config: config,
	}
}

// Hops converts a radius in kilometres to a grid hop bound around center.
// Any invalid input or failed area lookup yields the default.
func (c *RadiusConverter) Hops(radiusKm float64, center geo.Cell) int {
	if center.IsZero() || math.IsNaN(radiusKm) || math.IsInf(radiusKm, 0) || radiusKm <= 0 {
		return c.config.DefaultHops
	}

	area, err := c.index.AreaKm2(center)
	if err != nil {
		logger.L().WithError(err).WithField("cell", center).Debug("cell_area_failed")
		return c.config.DefaultHops
	}
	if math.IsNaN(area) || area <= 0 {
		return c.config.DefaultHops
	}

	cellRadiusKm := math.Sqrt(area / hexAreaFactor)
	hops := int(math.Ceil(radiusKm / cellRadiusKm))

	if hops > c.config.MaxHops {
		return c.config.MaxHops
	}
	if hops < 1 {
		return 1
	}
	return hops
}
