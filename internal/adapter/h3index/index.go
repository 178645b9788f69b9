// internal/adapter/h3index/index.go

package h3index

import (
	"fmt"
	"strconv"

	"github.com/uber/h3-go/v4"

	"github.com/cb671/streetsafe-server/internal/domain/geo"
)

// Index implements geo.CellIndex on top of the H3 library
type Index struct{}

// New creates a new cell index
func New() *Index {
	return &Index{}
}

// FromLatLng returns the cell containing a point at a resolution
func (Index) FromLatLng(lat, lng float64, resolution int) (geo.Cell, error) {
	c, err := h3.LatLngToCell(h3.NewLatLng(lat, lng), resolution)
	if err != nil {
		return "", fmt.Errorf("error converting point to cell: %w", err)
	}
	return geo.Cell(c.String()), nil
}

// Parent returns the ancestor of a cell at a coarser resolution
func (Index) Parent(c geo.Cell, resolution int) (geo.Cell, error) {
	cell, err := parse(c)
	if err != nil {
		return "", err
	}
	if cell.Resolution() == resolution {
		return geo.Cell(cell.String()), nil
	}
	if cell.Resolution() < resolution {
		return "", fmt.Errorf("cell %s is coarser than resolution %d", c, resolution)
	}

	parent, err := cell.Parent(resolution)
	if err != nil {
		return "", fmt.Errorf("error getting parent of %s: %w", c, err)
	}
	return geo.Cell(parent.String()), nil
}

// GridDistance returns the number of hops between two cells
func (Index) GridDistance(a, b geo.Cell) (int, error) {
	ca, err := parse(a)
	if err != nil {
		return 0, err
	}
	cb, err := parse(b)
	if err != nil {
		return 0, err
	}

	d, err := h3.GridDistance(ca, cb)
	if err != nil {
		return 0, fmt.Errorf("error measuring distance from %s to %s: %w", a, b, err)
	}
	return d, nil
}

// AreaKm2 returns the area of a cell in square kilometres
func (Index) AreaKm2(c geo.Cell) (float64, error) {
	cell, err := parse(c)
	if err != nil {
		return 0, err
	}
	return h3.CellAreaKm2(cell)
}

// Resolution returns the resolution of a cell
func (Index) Resolution(c geo.Cell) (int, error) {
	cell, err := parse(c)
	if err != nil {
		return 0, err
	}
	return cell.Resolution(), nil
}

// Centroid returns the center point of a cell
func (Index) Centroid(c geo.Cell) (geo.Coordinates, error) {
	cell, err := parse(c)
	if err != nil {
		return geo.Coordinates{}, err
	}

	ll, err := h3.CellToLatLng(cell)
	if err != nil {
		return geo.Coordinates{}, fmt.Errorf("error getting centroid of %s: %w", c, err)
	}
	return geo.Coordinates{Lat: ll.Lat, Lng: ll.Lng}, nil
}

// ToInt64 returns the raw 64-bit value of a cell
func ToInt64(c geo.Cell) (int64, error) {
	cell, err := parse(c)
	if err != nil {
		return 0, err
	}
	return int64(cell), nil
}

func parse(c geo.Cell) (h3.Cell, error) {
	v, err := strconv.ParseUint(string(c), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid cell %q: %w", c, err)
	}

	cell := h3.Cell(v)
	if !cell.IsValid() {
		return 0, fmt.Errorf("invalid cell %q", c)
	}
	return cell, nil
}
