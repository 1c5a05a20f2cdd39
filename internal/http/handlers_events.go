package httpx

import (
	"log/slog"
	"net/http"

	"github.com/target/engage-api/internal/domain/model"
	"github.com/target/engage-api/internal/service"
)

// EventHandlers provides HTTP handlers for customer events.
type EventHandlers struct {
	Svc    *service.EventService
	Pager  *service.PagerService
	Logger *slog.Logger
}

// List handles GET /api/workspaces/{workspace}/events.
//
// Query parameters: customer_id, event_name, sort (occurred_at|event_name),
// dir, anchor, cursor, page_size.
func (h *EventHandlers) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := pageRequestFromQuery(q)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}

	res, err := h.Pager.ListEvents(r.Context(), service.ListEventsRequest{
		WorkspaceID: r.PathValue("workspace"),
		CustomerID:  optionalQuery(q, "customer_id"),
		EventName:   optionalQuery(q, "event_name"),
		Page:        page,
	})
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, newPageResponse(r, res))
}

// Ingest handles POST /api/workspaces/{workspace}/events.
func (h *EventHandlers) Ingest(w http.ResponseWriter, r *http.Request) {
	var req model.IngestEventsRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	req.WorkspaceID = r.PathValue("workspace")

	count, err := h.Svc.Ingest(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]int{"inserted": count})
}
