package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/target/engage-api/internal/domain/conversion"
	apperrors "github.com/target/engage-api/internal/errors"
	"github.com/target/engage-api/internal/service"
)

// ConversionHandlers provides HTTP handlers for conversion tracking.
type ConversionHandlers struct {
	Svc    *service.ConversionService
	Logger *slog.Logger
}

type settingsResponse struct {
	JourneyID string              `json:"journey_id"`
	Settings  conversion.Settings `json:"settings"`
	Display   conversion.Display  `json:"display"`
}

// newSettingsResponse describes settings outside of any enrollment, so the
// display carries no deadline.
func newSettingsResponse(journeyID string, s conversion.Settings) settingsResponse {
	d := conversion.Describe(s, conversion.Result{})
	d.DeadlineAt = nil
	return settingsResponse{JourneyID: journeyID, Settings: s, Display: d}
}

// GetSettings handles GET /api/journeys/{journey}/conversion-settings.
func (h *ConversionHandlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("journey")
	s, err := h.Svc.Settings(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, newSettingsResponse(id, s))
}

// PutSettings handles PUT /api/journeys/{journey}/conversion-settings.
// The body uses the settings document shape and is parsed leniently
// (numeric strings, unit aliases) before validation.
func (h *ConversionHandlers) PutSettings(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if !DecodeJSON(w, r, &raw) {
		return
	}
	s, err := conversion.ParseSettings(raw)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}

	id := r.PathValue("journey")
	saved, err := h.Svc.UpdateSettings(r.Context(), id, s)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, newSettingsResponse(id, saved))
}

// Get handles GET /api/journeys/{journey}/conversions/{customer}. The
// customer is evaluated live unless stored=true asks for the last persisted
// result.
func (h *ConversionHandlers) Get(w http.ResponseWriter, r *http.Request) {
	journeyID, customerID := r.PathValue("journey"), r.PathValue("customer")

	stored := false
	if v := r.URL.Query().Get("stored"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeServiceError(w, r, h.Logger, apperrors.ValidationField("stored", "stored must be a boolean"))
			return
		}
		stored = b
	}

	if stored {
		rec, err := h.Svc.StoredResult(r.Context(), journeyID, customerID)
		if err != nil {
			writeServiceError(w, r, h.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, rec)
		return
	}

	out, err := h.Svc.Evaluate(r.Context(), journeyID, customerID)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}

type evaluateRequest struct {
	CustomerIDs []string `json:"customer_ids"`
}

// Evaluate handles POST /api/journeys/{journey}/conversions/evaluate.
func (h *ConversionHandlers) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	out, err := h.Svc.EvaluateBatch(r.Context(), r.PathValue("journey"), req.CustomerIDs)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"results": out})
}

// Backfill handles POST /api/journeys/{journey}/conversions/backfill.
func (h *ConversionHandlers) Backfill(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Svc.Backfill(r.Context(), r.PathValue("journey"))
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	status := http.StatusOK
	if stats.Skipped {
		status = http.StatusAccepted
	}
	WriteJSON(w, status, stats)
}
