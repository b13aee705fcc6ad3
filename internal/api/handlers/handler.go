// Package handlers implementa los endpoints HTTP del módulo central.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/retornaloop/inventario/central-module/internal/service"
)

// APIHandler agrupa los servicios que atienden la API.
type APIHandler struct {
	localizador *service.Localizador
	agregador   *service.Agregador
	coordinador *service.Coordinador
	logger      *slog.Logger
}

// NewAPIHandler crea el handler de la API.
func NewAPIHandler(
	localizador *service.Localizador,
	agregador *service.Agregador,
	coordinador *service.Coordinador,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		localizador: localizador,
		agregador:   agregador,
		coordinador: coordinador,
		logger:      logger.With(slog.String("component", "api")),
	}
}

// writeJSON serializa v con el status dado.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// queryInt64 lee un parámetro entero opcional del query string.
func queryInt64(r *http.Request, name string) (*int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, false
	}
	return &v, true
}

// queryBool lee un parámetro booleano opcional del query string.
func queryBool(r *http.Request, name string) (*bool, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, false
	}
	return &v, true
}

// paginacionFromQuery lee page y pageSize; los valores fuera de rango
// los normaliza el agregador.
func paginacionFromQuery(r *http.Request) service.Paginacion {
	var pag service.Paginacion
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		pag.Page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("pageSize")); err == nil {
		pag.PageSize = v
	}
	return pag
}
