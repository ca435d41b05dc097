package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/MosandosSantos/cronos-sub000/internal/application/agenda"
	domainAgenda "github.com/MosandosSantos/cronos-sub000/internal/domain/agenda"
	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/monitoring/logging"
	"github.com/MosandosSantos/cronos-sub000/internal/interfaces/http/middleware"
	"github.com/MosandosSantos/cronos-sub000/pkg/errors"
)

// DateLayout is the wire format of from/to query parameters.
const DateLayout = "2006-01-02"

type AgendaHandler struct {
	svc    agenda.Service
	loc    *time.Location
	logger logging.Logger
}

// NewAgendaHandler builds the handler. Dates without a zone are read in loc;
// nil means UTC.
func NewAgendaHandler(svc agenda.Service, loc *time.Location, logger logging.Logger) *AgendaHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &AgendaHandler{svc: svc, loc: loc, logger: logger.Named("agenda_handler")}
}

// AgendaItem is one agenda row on the wire. LeadRef is null for derived
// entries.
type AgendaItem struct {
	ID       string                `json:"id"`
	Title    string                `json:"title"`
	DateTime time.Time             `json:"dateTime"`
	Status   string                `json:"status"`
	Origin   string                `json:"origin"`
	LeadRef  *domainAgenda.LeadRef `json:"leadRef"`
}

// List handles GET /api/v1/agenda?from&to&status&ownerId.
func (h *AgendaHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		writeAppError(w, h.logger, r, errors.Unauthorized("authentication required"))
		return
	}

	q := r.URL.Query()
	from, _, err := h.parseDate("from", q.Get("from"))
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	to, dateOnly, err := h.parseDate("to", q.Get("to"))
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	if dateOnly {
		// a bare date includes the whole day
		to = to.Add(24*time.Hour - time.Nanosecond)
	}

	entries, err := h.svc.ListAgenda(r.Context(), caller, agenda.Query{
		TenantID: middleware.TenantScope(r.Context()),
		From:     from,
		To:       to,
		Status:   q.Get("status"),
		OwnerID:  strings.TrimSpace(q.Get("ownerId")),
	})
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}

	items := make([]AgendaItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, AgendaItem{
			ID:       e.ID(),
			Title:    e.Title,
			DateTime: e.DateTime,
			Status:   string(e.Status),
			Origin:   string(e.Origin),
			LeadRef:  e.Lead,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

// parseDate accepts YYYY-MM-DD or RFC 3339. dateOnly reports the former.
func (h *AgendaHandler) parseDate(name, raw string) (t time.Time, dateOnly bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false, nil
	}
	if t, err := time.ParseInLocation(DateLayout, raw, h.loc); err == nil {
		return t, true, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.In(h.loc), false, nil
	}
	return time.Time{}, false, errors.Newf(errors.ErrCodeValidation, "%s must be a date (YYYY-MM-DD), got %q", name, raw)
}
