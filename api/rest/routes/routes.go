package routes

import (
	"research-agent/api/rest/handlers"

	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(r *mux.Router, research *handlers.ResearchHandler, ws *handlers.WSHandler) {
	api := r.PathPrefix("/v1").Subrouter()

	// Research endpoints
	api.HandleFunc("/research", research.CreateResearch).Methods("POST")
	api.HandleFunc("/research", research.ListResearch).Methods("GET")
	api.HandleFunc("/research/{id}", research.GetResearch).Methods("GET")
	api.HandleFunc("/research/{id}/logs", research.GetResearchLogs).Methods("GET")
	api.HandleFunc("/research/{id}", research.DeleteResearch).Methods("DELETE")

	// Live progress subscriptions
	r.HandleFunc("/ws/research/{id}", ws.Subscribe).Methods("GET")
}
