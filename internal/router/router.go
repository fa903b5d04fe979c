// Package router provides HTTP routing configuration for the alert API.
// It sets up routes and applies middleware like CORS.
package router

import (
	"net/http"

	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/handlers"
)

// Router wraps the HTTP mux and provides route configuration.
type Router struct {
	mux      *http.ServeMux
	handlers *handlers.Handlers
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *handlers.Handlers) *Router {
	r := &Router{
		mux:      http.NewServeMux(),
		handlers: h,
	}
	r.setupRoutes()
	return r
}

// setupRoutes configures all HTTP routes for the API.
func (r *Router) setupRoutes() {
	// Alert endpoints
	r.mux.HandleFunc("/api/v1/alerts", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodPost:
			r.handlers.CreateAlert(w, req)
		case http.MethodGet:
			r.handlers.GetAlert(w, req)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	r.mux.HandleFunc("/api/v1/alerts/dispatch", func(w http.ResponseWriter, req *http.Request) {
		if req.Method == http.MethodPost {
			r.handlers.DispatchAlert(w, req)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	r.mux.HandleFunc("/api/v1/alerts/resolve", func(w http.ResponseWriter, req *http.Request) {
		if req.Method == http.MethodPost {
			r.handlers.ResolveAlert(w, req)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Notification ledger audit trail
	r.mux.HandleFunc("/api/v1/notifications", func(w http.ResponseWriter, req *http.Request) {
		if req.Method == http.MethodGet {
			r.handlers.ListNotifications(w, req)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Health check endpoint
	r.mux.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

// Handler returns the HTTP handler with CORS middleware applied.
func (r *Router) Handler() http.Handler {
	return corsMiddleware(r.mux)
}
