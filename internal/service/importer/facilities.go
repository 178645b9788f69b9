// internal/service/importer/facilities.go

package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cb671/streetsafe-server/internal/adapter/events"
	"github.com/cb671/streetsafe-server/internal/adapter/h3index"
	"github.com/cb671/streetsafe-server/internal/domain/facility"
	"github.com/cb671/streetsafe-server/internal/domain/geo"
	"github.com/cb671/streetsafe-server/internal/logger"
)

// Projection definitions of supported coordinate columns
const (
	WebMercator = "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 +x_0=0.0 +y_0=0 +k=1.0 +units=m +nadgrids=@null +no_defs"
	LongLat     = "+proj=longlat +datum=WGS84 +no_defs"
)

// Result summarises one import
type Result struct {
	BatchID  string `json:"batch_id"`
	Inserted int    `json:"inserted"`
	Skipped  int    `json:"skipped"`
}

// FacilityImporter reads facility rows from CSV and stores them as cells
type FacilityImporter struct {
	store      facility.Store
	index      geo.CellIndex
	publisher  events.Publisher
	resolution int
	toLongLat  proj.Transformer
}

// NewFacilityImporter creates a new importer storing cells at resolution
func NewFacilityImporter(store facility.Store, index geo.CellIndex, publisher events.Publisher, resolution int) (*FacilityImporter, error) {
	if resolution <= 0 {
		resolution = geo.ReferenceResolution
	}
	if publisher == nil {
		publisher = events.Nop{}
	}

	merc, err := proj.Parse(WebMercator)
	if err != nil {
		return nil, fmt.Errorf("error parsing mercator projection: %w", err)
	}
	longlat, err := proj.Parse(LongLat)
	if err != nil {
		return nil, fmt.Errorf("error parsing longlat projection: %w", err)
	}
	ct, err := merc.NewTransform(longlat)
	if err != nil {
		return nil, fmt.Errorf("error creating transform: %w", err)
	}

	return &FacilityImporter{
		store:      store,
		index:      index,
		publisher:  publisher,
		resolution: resolution,
		toLongLat:  ct,
	}, nil
}

// columns maps header names to positions
type columns map[string]int

func (c columns) get(row []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Parse reads facility records. Rows that cannot be located are skipped
// and counted.
func (imp *FacilityImporter) Parse(r io.Reader) ([]facility.Record, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("error reading header: %w", err)
	}

	cols := make(columns, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols["type"]; !ok {
		return nil, 0, errors.New("missing type column")
	}
	if _, ok := cols["name"]; !ok {
		return nil, 0, errors.New("missing name column")
	}

	var records []facility.Record
	skipped := 0
	line := 1

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, 0, fmt.Errorf("error reading line %d: %w", line, err)
		}

		rec, err := imp.record(cols, row)
		if err != nil {
			logger.L().WithFields(logrus.Fields{
				"line":  line,
				"error": err,
			}).Warn("facility_row_skipped")
			skipped++
			continue
		}
		records = append(records, rec)
	}

	return records, skipped, nil
}

// Import parses r, stores every usable row in one transaction and
// announces the batch
func (imp *FacilityImporter) Import(ctx context.Context, r io.Reader) (*Result, error) {
	records, skipped, err := imp.Parse(r)
	if err != nil {
		return nil, err
	}

	result := &Result{
		BatchID: uuid.New().String(),
		Skipped: skipped,
	}
	if len(records) == 0 {
		return result, nil
	}

	inserted, err := imp.store.InsertAll(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("error storing facilities: %w", err)
	}
	result.Inserted = inserted

	if err := imp.publisher.Publish(events.SubjectFacilitiesImported, result); err != nil {
		logger.L().WithError(err).Warn("publish_failed")
	}

	return result, nil
}

func (imp *FacilityImporter) record(cols columns, row []string) (facility.Record, error) {
	typ := cols.get(row, "type")
	name := cols.get(row, "name")
	if typ == "" || name == "" {
		return facility.Record{}, errors.New("missing type or name")
	}

	lat, lng, err := imp.position(cols, row)
	if err != nil {
		return facility.Record{}, err
	}

	cell, err := imp.index.FromLatLng(lat, lng, imp.resolution)
	if err != nil {
		return facility.Record{}, err
	}
	v, err := h3index.ToInt64(cell)
	if err != nil {
		return facility.Record{}, err
	}

	return facility.Record{Name: name, Type: typ, H3: v}, nil
}

// position reads latitude and longitude columns, falling back to
// web mercator x and y
func (imp *FacilityImporter) position(cols columns, row []string) (float64, float64, error) {
	if latStr, lngStr := cols.get(row, "latitude"), cols.get(row, "longitude"); latStr != "" && lngStr != "" {
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid latitude %q", latStr)
		}
		lng, err := strconv.ParseFloat(lngStr, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid longitude %q", lngStr)
		}
		return lat, lng, validLatLng(lat, lng)
	}

	xStr, yStr := cols.get(row, "x"), cols.get(row, "y")
	if xStr == "" || yStr == "" {
		return 0, 0, errors.New("no coordinates")
	}
	x, err := strconv.ParseFloat(xStr, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid x %q", xStr)
	}
	y, err := strconv.ParseFloat(yStr, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid y %q", yStr)
	}

	g, err := geom.Point{X: x, Y: y}.Transform(imp.toLongLat)
	if err != nil {
		return 0, 0, fmt.Errorf("error projecting %s,%s: %w", xStr, yStr, err)
	}
	p := g.(geom.Point)

	return p.Y, p.X, validLatLng(p.Y, p.X)
}

func validLatLng(lat, lng float64) error {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return fmt.Errorf("coordinates out of range: %f,%f", lat, lng)
	}
	return nil
}
