// internal/server/handlers/educational.go

package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cb671/streetsafe-server/internal/domain/geo"
	"github.com/cb671/streetsafe-server/internal/domain/resource"
	"github.com/cb671/streetsafe-server/internal/logger"
)

// personalisation describes how a resource list was tailored
type personalisation struct {
	IsPersonalised bool     `json:"isPersonalised"`
	UserLocation   *string  `json:"userLocation"`
	TopLocalCrimes []string `json:"topLocalCrimes"`
}

type resourcesResponse struct {
	Resources       interface{}     `json:"resources"`
	CrimeType       string          `json:"crimeType,omitempty"`
	Personalisation personalisation `json:"personalisation"`
}

// EducationalHandler handles educational resource requests
type EducationalHandler struct {
	store  resource.Store
	ranker resource.Ranker
	namer  geo.Namer
}

// NewEducationalHandler creates a new educational resource handler
func NewEducationalHandler(store resource.Store, ranker resource.Ranker, namer geo.Namer) *EducationalHandler {
	return &EducationalHandler{
		store:  store,
		ranker: ranker,
		namer:  namer,
	}
}

// GetResources returns every resource, tailored to the home cell given in
// the h3 query parameter unless personalised=false
func (h *EducationalHandler) GetResources(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	home := geo.Cell(strings.ToLower(strings.TrimSpace(q.Get("h3"))))
	wantsPersonalised := q.Get("personalised") != "false"

	if !home.IsZero() && wantsPersonalised {
		tailored, err := h.ranker.Tailored(r.Context(), home)
		if err == nil {
			resp := resourcesResponse{
				Resources: tailored.Resources,
				Personalisation: personalisation{
					IsPersonalised: true,
				},
			}
			name := h.namer.Name(r.Context(), home)
			resp.Personalisation.UserLocation = &name
			if tailored.Personalised {
				resp.Personalisation.TopLocalCrimes = tailored.TopLocalCrimes
			}

			respondWithJSON(w, http.StatusOK, resp)
			return
		}

		logger.L().WithError(err).WithField("cell", home).Warn("personalisation_failed")
	}

	resources, err := h.store.All(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Internal server error", err)
		return
	}

	respondWithJSON(w, http.StatusOK, resourcesResponse{Resources: nonNil(resources)})
}

// GetByCrimeType returns resources tagged with one category
func (h *EducationalHandler) GetByCrimeType(w http.ResponseWriter, r *http.Request) {
	crimeType := strings.TrimSpace(chi.URLParam(r, "crimeType"))
	if crimeType == "" {
		respondWithError(w, http.StatusBadRequest, "Crime type is required", nil)
		return
	}

	resources, err := h.store.ByCategories(r.Context(), []string{crimeType})
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Internal server error", err)
		return
	}

	respondWithJSON(w, http.StatusOK, resourcesResponse{
		Resources: nonNil(resources),
		CrimeType: crimeType,
	})
}

func nonNil(resources []resource.Resource) []resource.Resource {
	if resources == nil {
		return []resource.Resource{}
	}
	return resources
}
