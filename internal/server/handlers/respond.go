// internal/server/handlers/respond.go

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cb671/streetsafe-server/internal/domain/crime"
	"github.com/cb671/streetsafe-server/internal/logger"
)

// errorResponse is the body of every error reply
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Helper for JSON responses
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		logger.L().WithError(err).Error("response_marshal_failed")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// Helper for error responses
func respondWithError(w http.ResponseWriter, code int, message string, err error) {
	response := errorResponse{Error: message}

	if err != nil {
		response.Message = err.Error()
		if code >= 500 {
			logger.L().WithError(err).WithField("status", code).Error(message)
		}
	}

	respondWithJSON(w, code, response)
}

// respondWithServiceError maps a service error to its status code
func respondWithServiceError(w http.ResponseWriter, err error) {
	var ve *crime.ValidationError
	switch {
	case errors.As(err, &ve):
		respondWithError(w, http.StatusBadRequest, ve.Error(), nil)
	case errors.Is(err, crime.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "No data found", err)
	default:
		respondWithError(w, http.StatusInternalServerError, "Internal server error", err)
	}
}
