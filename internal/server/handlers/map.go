// internal/server/handlers/map.go

package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cb671/streetsafe-server/internal/domain/crime"
	"github.com/cb671/streetsafe-server/internal/domain/geo"
)

// MapHandler handles map requests
type MapHandler struct {
	service crime.Service
}

// NewMapHandler creates a new map handler
func NewMapHandler(service crime.Service) *MapHandler {
	return &MapHandler{
		service: service,
	}
}

// GetFeatures returns per cell sums as flat arrays
func (h *MapHandler) GetFeatures(w http.ResponseWriter, r *http.Request) {
	// Parse query parameters
	start, err := parseDate(r.URL.Query().Get("startDate"), "startDate")
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	end, err := parseDate(r.URL.Query().Get("endDate"), "endDate")
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	features, err := h.service.MapFeatures(r.Context(), start, end)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, features)
}

// GetHexagon returns the detail of one cell
func (h *MapHandler) GetHexagon(w http.ResponseWriter, r *http.Request) {
	cell := geo.Cell(strings.ToLower(strings.TrimSpace(chi.URLParam(r, "h3Index"))))

	start, err := parseDate(r.URL.Query().Get("startDate"), "startDate")
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	end, err := parseDate(r.URL.Query().Get("endDate"), "endDate")
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	detail, err := h.service.HexagonDetail(r.Context(), cell, start, end)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, detail)
}
