package main

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"collabcanvas/canvas"
)

func newRouter(cfg Config, hub *Hub, cv *canvas.Canvas) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(hub, cv, cfg.SendBuffer, w, r)
	})
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/export.pdf", exportHandler(cv)).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/ops", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, cv.Snapshot())
	}).Methods(http.MethodGet)
	api.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, cv.Users())
	}).Methods(http.MethodGet)
	api.HandleFunc("/history", func(w http.ResponseWriter, r *http.Request) {
		ops, undone := cv.History()
		writeJSON(w, map[string]int{"ops": ops, "undone": undone})
	}).Methods(http.MethodGet)

	if cfg.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.StaticDir)))
	}
	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}
