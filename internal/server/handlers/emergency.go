// internal/server/handlers/emergency.go

package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/cb671/streetsafe-server/internal/domain/crime"
	"github.com/cb671/streetsafe-server/internal/domain/facility"
	"github.com/cb671/streetsafe-server/internal/domain/geo"
	"github.com/cb671/streetsafe-server/internal/logger"
)

// envelope wraps emergency service replies
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// EmergencyHandler handles nearest emergency service requests
type EmergencyHandler struct {
	locator facility.Locator
}

// NewEmergencyHandler creates a new emergency service handler
func NewEmergencyHandler(locator facility.Locator) *EmergencyHandler {
	return &EmergencyHandler{
		locator: locator,
	}
}

// GetClosest returns the nearest police station and hospital to a cell
func (h *EmergencyHandler) GetClosest(w http.ResponseWriter, r *http.Request) {
	cell := geo.Cell(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("h3Index"))))
	if cell.IsZero() {
		respondWithJSON(w, http.StatusBadRequest, envelope{Error: "Missing h3Index"})
		return
	}

	nearest, err := h.locator.Nearest(r.Context(), cell)
	if err != nil {
		var ve *crime.ValidationError
		if errors.As(err, &ve) {
			respondWithJSON(w, http.StatusBadRequest, envelope{Error: ve.Error()})
			return
		}

		logger.L().WithError(err).WithField("cell", cell).Error("closest_services_failed")
		respondWithJSON(w, http.StatusInternalServerError, envelope{Error: "Server error"})
		return
	}

	respondWithJSON(w, http.StatusOK, envelope{Success: true, Data: nearest})
}
