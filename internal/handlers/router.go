package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/datec-bo/facturaflow/internal/buildinfo"
	"github.com/datec-bo/facturaflow/internal/middleware"
	"github.com/datec-bo/facturaflow/internal/tools"
	"github.com/gorilla/mux"
)

// Router wraps the mux router and the tool layer
type Router struct {
	*mux.Router
	executor *tools.Executor
	registry *tools.Registry
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(executor *tools.Executor, registry *tools.Registry, jwtSecret string) *Router {
	r := &Router{
		Router:   mux.NewRouter(),
		executor: executor,
		registry: registry,
	}

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	// Tool routes (protected)
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Auth(jwtSecret))
	api.HandleFunc("/tools", r.listTools).Methods("GET")
	api.HandleFunc("/tools/{name}", r.executeTool).Methods("POST")

	return r
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"commit":  buildinfo.CommitHash,
		"started": buildinfo.StartTime,
	})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
