package handlers

import (
	"net/http"
	"strings"

	"github.com/MosandosSantos/cronos-sub000/internal/application/alerts"
	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/monitoring/logging"
	"github.com/MosandosSantos/cronos-sub000/internal/interfaces/http/middleware"
)

// AlertsHandler serves the compliance alert views for the resolved tenant
// scope.
type AlertsHandler struct {
	svc    alerts.Service
	logger logging.Logger
}

func NewAlertsHandler(svc alerts.Service, logger logging.Logger) *AlertsHandler {
	return &AlertsHandler{svc: svc, logger: logger.Named("alerts_handler")}
}

// Summary handles GET /api/v1/alerts/summary.
func (h *AlertsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Summary(r.Context(), middleware.TenantScope(r.Context()))
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// List handles GET /api/v1/alerts?filter=<bucket>.
func (h *AlertsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := strings.TrimSpace(r.URL.Query().Get("filter"))
	listing, err := h.svc.List(r.Context(), middleware.TenantScope(r.Context()), filter)
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}
