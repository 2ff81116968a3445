package http

import (
	"net/http"

	"github.com/tuanvumaihuynh/pantry-sync/internal/apperr"
	"github.com/tuanvumaihuynh/pantry-sync/internal/storage/db"
)

type HealthResponse struct {
	Status string `json:"status"`
}

type healthHandler struct {
	checker db.HealthChecker
}

func newHealthHandler(checker db.HealthChecker) *healthHandler {
	return &healthHandler{checker: checker}
}

func (h *healthHandler) Healthz(w http.ResponseWriter, r *http.Request) error {
	ok, err := h.checker.IsHealthy(r.Context())
	if err != nil || !ok {
		return apperr.StoreUnavailableErr.WrapParent(err)
	}

	return writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}
