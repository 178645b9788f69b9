// internal/server/handlers/graphs.go

package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cb671/streetsafe-server/internal/domain/crime"
)

// GraphDefaults holds the values used when a graph query omits a parameter
type GraphDefaults struct {
	StartDate time.Time
	RadiusKm  float64
	GroupBy   string
}

// GraphHandler handles aggregate chart requests
type GraphHandler struct {
	service  crime.Service
	defaults GraphDefaults
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(service crime.Service, defaults GraphDefaults) *GraphHandler {
	if defaults.StartDate.IsZero() {
		defaults.StartDate = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	if defaults.RadiusKm <= 0 {
		defaults.RadiusKm = 3
	}
	if defaults.GroupBy == "" {
		defaults.GroupBy = "month"
	}

	return &GraphHandler{
		service:  service,
		defaults: defaults,
	}
}

// GetTotals returns totals per category for the bar chart
func (h *GraphHandler) GetTotals(w http.ResponseWriter, r *http.Request) {
	filter, err := h.parseFilter(r.URL.Query())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	totals, err := h.service.Totals(r.Context(), filter)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, totals)
}

// GetTrends returns per period sums for the line chart
func (h *GraphHandler) GetTrends(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := h.parseFilter(q)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	groupBy := q.Get("groupBy")
	if groupBy == "" {
		groupBy = h.defaults.GroupBy
	}

	trends, err := h.service.Trends(r.Context(), filter, crime.ParseGroupBy(groupBy))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, trends)
}

// GetProportions returns category shares for the pie chart
func (h *GraphHandler) GetProportions(w http.ResponseWriter, r *http.Request) {
	filter, err := h.parseFilter(r.URL.Query())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	proportions, err := h.service.Proportions(r.Context(), filter)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, proportions)
}

// GetLocations returns the areas that can be used as a location filter.
// named=true labels them with geocoded place names.
func (h *GraphHandler) GetLocations(w http.ResponseWriter, r *http.Request) {
	named := r.URL.Query().Get("named") == "true"

	locations, err := h.service.AvailableLocations(r.Context(), named)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, locations)
}

// GetDateRange returns the span of the dataset
func (h *GraphHandler) GetDateRange(w http.ResponseWriter, r *http.Request) {
	dr, err := h.service.DateRange(r.Context())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, dr)
}

// GetCrimeTypes returns every category key in canonical order
func (h *GraphHandler) GetCrimeTypes(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, crime.Keys())
}

func (h *GraphHandler) parseFilter(q url.Values) (crime.Filter, error) {
	start, err := parseDate(q.Get("startDate"), "startDate")
	if err != nil {
		return crime.Filter{}, err
	}
	if start.IsZero() {
		start = h.defaults.StartDate
	}

	end, err := parseDate(q.Get("endDate"), "endDate")
	if err != nil {
		return crime.Filter{}, err
	}

	radius := h.defaults.RadiusKm
	if v := strings.TrimSpace(q.Get("radius")); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			radius = parsed
		}
	}

	return crime.Filter{
		Start:      start,
		End:        end,
		Location:   strings.TrimSpace(q.Get("location")),
		RadiusKm:   radius,
		Categories: crime.ParseCategorySet(q.Get("crimeTypes")),
	}, nil
}

// parseDate accepts a calendar date or an RFC 3339 timestamp. An empty
// value yields the zero time.
func parseDate(value, field string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}

	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}

	return time.Time{}, crime.NewValidationError(field, "invalid date "+strconv.Quote(value))
}
