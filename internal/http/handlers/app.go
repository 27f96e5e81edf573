// Package handlers implements the HTTP control surface. Handlers only
// read and enqueue: the pipeline itself runs in the worker process.
package handlers

import (
	"encoding/json"
	"net/http"

	"stencil/internal/infra"
	"stencil/internal/jobstore"
)

type App struct {
	Store  jobstore.Store
	Logger infra.Logger
}

func NewApp(store jobstore.Store, logger infra.Logger) *App {
	return &App{Store: store, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]string{"error": code, "message": message})
}
