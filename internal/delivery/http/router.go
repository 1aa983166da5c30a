package http

import (
	"net/http"

	"member-intake/internal/delivery/http/handler"
	"member-intake/internal/delivery/http/middleware"

	"github.com/gorilla/mux"
)

type Router struct {
	router            *mux.Router
	memberFormHandler *handler.MemberFormHandler
	optionsHandler    *handler.OptionsHandler
	auditLogHandler   *handler.AuditLogHandler
	sessionMiddleware *middleware.SessionMiddleware
	corsMiddleware    *middleware.CORSMiddleware
}

func NewRouter(
	memberFormHandler *handler.MemberFormHandler,
	optionsHandler *handler.OptionsHandler,
	auditLogHandler *handler.AuditLogHandler,
	sessionMiddleware *middleware.SessionMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
) *Router {
	return &Router{
		router:            mux.NewRouter(),
		memberFormHandler: memberFormHandler,
		optionsHandler:    optionsHandler,
		auditLogHandler:   auditLogHandler,
		sessionMiddleware: sessionMiddleware,
		corsMiddleware:    corsMiddleware,
	}
}

// Setup registers all routes. CORS wraps the whole router so preflight
// requests are answered before route matching.
func (r *Router) Setup() http.Handler {
	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// Public routes
	api.HandleFunc("/options", r.optionsHandler.GetOptions).Methods(http.MethodGet)
	api.HandleFunc("/forms", r.memberFormHandler.StartForm).Methods(http.MethodPost)

	// Form session routes (session token)
	form := api.PathPrefix("/forms/current").Subrouter()
	form.Use(r.sessionMiddleware.Authenticate)
	form.HandleFunc("", r.memberFormHandler.GetForm).Methods(http.MethodGet)
	form.HandleFunc("", r.memberFormHandler.Abandon).Methods(http.MethodDelete)
	form.HandleFunc("/fields", r.memberFormHandler.UpdateFields).Methods(http.MethodPatch)
	form.HandleFunc("/consent", r.memberFormHandler.SetConsent).Methods(http.MethodPut)
	form.HandleFunc("/postal-search", r.memberFormHandler.SearchPostalCode).Methods(http.MethodPost)
	form.HandleFunc("/confirm", r.memberFormHandler.Confirm).Methods(http.MethodPost)
	form.HandleFunc("/back", r.memberFormHandler.GoBack).Methods(http.MethodPost)
	form.HandleFunc("/submit", r.memberFormHandler.Submit).Methods(http.MethodPost)
	form.HandleFunc("/audit-logs", r.auditLogHandler.GetSessionAuditLogs).Methods(http.MethodGet)

	return r.corsMiddleware.Handle(r.router)
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}
