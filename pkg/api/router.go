package api

import (
	"github.com/gorilla/mux"
)

func NewRouter(h *Handlers) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/workspaces", h.CreateWorkspaceHandler).Methods("POST")
	router.HandleFunc("/workspaces/{id}", h.GetWorkspaceHandler).Methods("GET")
	router.HandleFunc("/workspaces/{id}", h.DeleteWorkspaceHandler).Methods("DELETE")
	router.HandleFunc("/workspaces/{id}/upload", h.UploadHandler).Methods("POST")
	router.HandleFunc("/workspaces/{id}/process", h.ProcessHandler).Methods("POST")

	tracks := router.PathPrefix("/workspaces/{id}/tracks/{track}").Subrouter()
	tracks.HandleFunc("/toggle", h.ToggleHandler).Methods("POST")
	tracks.HandleFunc("/volume", h.VolumeHandler).Methods("POST")
	tracks.HandleFunc("/ended", h.EndedHandler).Methods("POST")
	tracks.HandleFunc("/download", h.DownloadHandler).Methods("GET")

	router.HandleFunc("/jobs/{id}", h.GetJobHandler).Methods("GET")
	router.HandleFunc("/pricing", h.PricingHandler).Methods("GET")
	router.HandleFunc("/ws", h.WebSocketHandler)

	return router
}
