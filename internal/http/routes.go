package httpx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/target/engage-api/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Workspaces  *service.WorkspaceService
	Journeys    *service.JourneyService
	Events      *service.EventService
	Pager       *service.PagerService
	Conversions *service.ConversionService
	// HealthChecks back GET /readyz; /healthz never touches dependencies.
	HealthChecks map[string]HealthCheck
	MaxBodyBytes int64
	Logger       *slog.Logger // Logger for request and error logs (optional)
}

// NewRouter creates and configures the API router with its middleware.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	registerWorkspaceRoutes(mux, &WorkspaceHandlers{Svc: services.Workspaces, Pager: services.Pager, Logger: logger})
	registerEventRoutes(mux, &EventHandlers{Svc: services.Events, Pager: services.Pager, Logger: logger})
	registerJourneyRoutes(mux, &JourneyHandlers{Svc: services.Journeys, Pager: services.Pager, Logger: logger})
	registerConversionRoutes(mux, &ConversionHandlers{Svc: services.Conversions, Logger: logger})

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("GET /readyz", readyHandler(services.HealthChecks, 2*time.Second))

	return Chain(mux,
		RequestID(),
		Recover(logger),
		Logging(logger),
		Compression(),
		MaxBody(services.MaxBodyBytes),
	)
}

func registerWorkspaceRoutes(mux *http.ServeMux, h *WorkspaceHandlers) {
	mux.HandleFunc("POST /api/workspaces", h.Create)
	mux.HandleFunc("GET /api/workspaces/{workspace}", h.Get)
	mux.HandleFunc("POST /api/workspaces/{workspace}/customers", h.CreateCustomer)
	mux.HandleFunc("GET /api/workspaces/{workspace}/customers", h.ListCustomers)
	mux.HandleFunc("GET /api/workspaces/{workspace}/customers/{customer}", h.GetCustomer)
}

func registerEventRoutes(mux *http.ServeMux, h *EventHandlers) {
	mux.HandleFunc("POST /api/workspaces/{workspace}/events", h.Ingest)
	mux.HandleFunc("GET /api/workspaces/{workspace}/events", h.List)
}

func registerJourneyRoutes(mux *http.ServeMux, h *JourneyHandlers) {
	mux.HandleFunc("POST /api/journeys", h.Create)
	mux.HandleFunc("GET /api/journeys/{journey}", h.Get)
	mux.HandleFunc("POST /api/journeys/{journey}/enrollments", h.Enroll)
	mux.HandleFunc("GET /api/journeys/{journey}/enrollments", h.ListEnrollments)
}

func registerConversionRoutes(mux *http.ServeMux, h *ConversionHandlers) {
	mux.HandleFunc("GET /api/journeys/{journey}/conversion-settings", h.GetSettings)
	mux.HandleFunc("PUT /api/journeys/{journey}/conversion-settings", h.PutSettings)
	mux.HandleFunc("GET /api/journeys/{journey}/conversions/{customer}", h.Get)
	mux.HandleFunc("POST /api/journeys/{journey}/conversions/evaluate", h.Evaluate)
	mux.HandleFunc("POST /api/journeys/{journey}/conversions/backfill", h.Backfill)
}
