package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires the scanning API.
func NewRouter(h *Handlers) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/analyze", h.Analyze).Methods("POST")
	api.HandleFunc("/sessions/{id}", h.GetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", h.DeleteSession).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/assign", h.AssignItem).Methods("POST")
	api.HandleFunc("/sessions/{id}/transfer", h.TransferField).Methods("POST")
	api.HandleFunc("/sessions/{id}/fields", h.EditFields).Methods("PATCH")
	api.HandleFunc("/sessions/{id}/vcard", h.DownloadVCard).Methods("GET")
	api.HandleFunc("/sessions/{id}/export.xlsx", h.ExportXLSX).Methods("GET")
	return r
}
