package httpx

import (
	"log/slog"
	"net/http"

	"github.com/target/engage-api/internal/domain/model"
	"github.com/target/engage-api/internal/service"
)

// JourneyHandlers provides HTTP handlers for journeys and enrollments.
type JourneyHandlers struct {
	Svc    *service.JourneyService
	Pager  *service.PagerService
	Logger *slog.Logger
}

// Create handles POST /api/journeys.
func (h *JourneyHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateJourneyRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	j, err := h.Svc.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusCreated, j)
}

// Get handles GET /api/journeys/{journey}.
func (h *JourneyHandlers) Get(w http.ResponseWriter, r *http.Request) {
	j, err := h.Svc.Get(r.Context(), r.PathValue("journey"))
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, j)
}

// Enroll handles POST /api/journeys/{journey}/enrollments.
func (h *JourneyHandlers) Enroll(w http.ResponseWriter, r *http.Request) {
	var req model.EnrollRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	e, err := h.Svc.Enroll(r.Context(), r.PathValue("journey"), req)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusCreated, e)
}

// ListEnrollments handles GET /api/journeys/{journey}/enrollments.
func (h *JourneyHandlers) ListEnrollments(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequestFromQuery(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	res, err := h.Pager.ListEnrollments(r.Context(), service.ListEnrollmentsRequest{
		JourneyID: r.PathValue("journey"),
		Page:      page,
	})
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, newPageResponse(r, res))
}
