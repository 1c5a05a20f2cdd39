package httpx

import (
	"log/slog"
	"net/http"

	"github.com/target/engage-api/internal/domain/model"
	"github.com/target/engage-api/internal/service"
)

// WorkspaceHandlers provides HTTP handlers for workspaces and customers.
type WorkspaceHandlers struct {
	Svc    *service.WorkspaceService
	Pager  *service.PagerService
	Logger *slog.Logger
}

// Create handles POST /api/workspaces.
func (h *WorkspaceHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateWorkspaceRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	ws, err := h.Svc.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusCreated, ws)
}

// Get handles GET /api/workspaces/{workspace}.
func (h *WorkspaceHandlers) Get(w http.ResponseWriter, r *http.Request) {
	ws, err := h.Svc.Get(r.Context(), r.PathValue("workspace"))
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, ws)
}

// CreateCustomer handles POST /api/workspaces/{workspace}/customers.
func (h *WorkspaceHandlers) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req model.CreateCustomerRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	req.WorkspaceID = r.PathValue("workspace")

	c, err := h.Svc.CreateCustomer(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusCreated, c)
}

// GetCustomer handles GET /api/workspaces/{workspace}/customers/{customer}.
func (h *WorkspaceHandlers) GetCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := h.Svc.GetCustomer(r.Context(), r.PathValue("workspace"), r.PathValue("customer"))
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, c)
}

// ListCustomers handles GET /api/workspaces/{workspace}/customers.
//
// Query parameters: email_prefix, sort (created_at|email), dir, anchor,
// cursor, page_size.
func (h *WorkspaceHandlers) ListCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := pageRequestFromQuery(q)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}

	res, err := h.Pager.ListCustomers(r.Context(), service.ListCustomersRequest{
		WorkspaceID: r.PathValue("workspace"),
		EmailPrefix: optionalQuery(q, "email_prefix"),
		Page:        page,
	})
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, newPageResponse(r, res))
}
