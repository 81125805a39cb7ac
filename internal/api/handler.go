package api

import (
	"encoding/json"
	"net/http"

	"transit_enrichment/internal/core"
)

type Handler struct {
	service *core.EnrichmentService
}

func NewHandler(service *core.EnrichmentService) *Handler {
	return &Handler{service: service}
}

type EnrichRequest struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Enrich runs the full enrichment pipeline for an arbitrary coordinate and
// returns the resulting record.
func (h *Handler) Enrich(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req EnrichRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Lat < -90 || req.Lat > 90 {
		http.Error(w, "lat must be within [-90, 90]", http.StatusBadRequest)
		return
	}
	if req.Lon < -180 || req.Lon > 180 {
		http.Error(w, "lon must be within [-180, 180]", http.StatusBadRequest)
		return
	}

	enriched := h.service.EnrichPoint(r.Context(), req.Lat, req.Lon)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(enriched)
}
