// inventario_central.go — endpoints del inventario central: vista
// federada, alta en el pool, resolución de ubicación, reasignación,
// devolución al pool e historial.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/retornaloop/inventario/central-module/internal/api/errors"
	"github.com/retornaloop/inventario/central-module/internal/api/middleware"
	"github.com/retornaloop/inventario/central-module/internal/service"
)

// ListarInventario maneja GET /api/v1/inventario-central.
func (h *APIHandler) ListarInventario(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filtros := service.FiltrosFederados{
		Search:    q.Get("search"),
		Source:    q.Get("source"),
		Estado:    q.Get("estado"),
		Categoria: q.Get("categoria"),
		RFID:      q.Get("rfid"),
	}

	switch filtros.Source {
	case "", service.SourceCentral, service.SourceTenants:
	default:
		apierrors.WriteValidation(w, "source debe ser 'central' o 'tenants'")
		return
	}

	var ok bool
	if filtros.TenantID, ok = queryInt64(r, "tenantId"); !ok {
		apierrors.WriteValidation(w, "tenantId debe ser un entero")
		return
	}
	if filtros.AsignadoTenantID, ok = queryInt64(r, "asignadoTenantId"); !ok {
		apierrors.WriteValidation(w, "asignadoTenantId debe ser un entero")
		return
	}
	if filtros.ModeloID, ok = queryInt64(r, "modeloId"); !ok {
		apierrors.WriteValidation(w, "modeloId debe ser un entero")
		return
	}
	if filtros.EsAlquiler, ok = queryBool(r, "esAlquiler"); !ok {
		apierrors.WriteValidation(w, "esAlquiler debe ser booleano")
		return
	}
	if filtros.Activo, ok = queryBool(r, "activo"); !ok {
		apierrors.WriteValidation(w, "activo debe ser booleano")
		return
	}

	res, err := h.agregador.Listar(r.Context(), filtros, paginacionFromQuery(r))
	if err != nil {
		h.writeServiceError(w, r, "consulta federada", err)
		return
	}

	writeJSON(w, http.StatusOK, toListaFederadaDTO(res))
}

// altaCentralRequest — cuerpo de POST /api/v1/inventario-central.
type altaCentralRequest struct {
	RFID             string     `json:"rfid"`
	ModeloID         int64      `json:"modelo_id"`
	NombreUnidad     string     `json:"nombre_unidad"`
	Lote             *string    `json:"lote"`
	Estado           string     `json:"estado"`
	SubEstado        *string    `json:"sub_estado"`
	Categoria        *string    `json:"categoria"`
	EsAlquiler       bool       `json:"es_alquiler"`
	AsignadoTenantID *int64     `json:"asignado_tenant_id"`
	FechaVencimiento *time.Time `json:"fecha_vencimiento"`
}

// CrearEnCentral maneja POST /api/v1/inventario-central.
func (h *APIHandler) CrearEnCentral(w http.ResponseWriter, r *http.Request) {
	var req altaCentralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.WriteValidation(w, "cuerpo JSON inválido")
		return
	}

	resultado, err := h.coordinador.CrearEnCentral(r.Context(), service.AltaCentral{
		RFID:             req.RFID,
		ModeloID:         req.ModeloID,
		NombreUnidad:     req.NombreUnidad,
		Lote:             req.Lote,
		Estado:           req.Estado,
		SubEstado:        req.SubEstado,
		Categoria:        req.Categoria,
		EsAlquiler:       req.EsAlquiler,
		AsignadoTenantID: req.AsignadoTenantID,
		FechaVencimiento: req.FechaVencimiento,
	})
	if err != nil {
		h.writeServiceError(w, r, "alta en pool central", err)
		return
	}

	writeJSON(w, http.StatusCreated, toUnidadCentralDTO(resultado))
}

// ResolverUbicacion maneja GET /api/v1/inventario-central/{rfid}/ubicacion.
func (h *APIHandler) ResolverUbicacion(w http.ResponseWriter, r *http.Request) {
	rfid := chi.URLParam(r, "rfid")

	ubicacion, err := h.localizador.Resolver(r.Context(), rfid)
	if err != nil {
		h.writeServiceError(w, r, "resolver ubicación", err)
		return
	}

	writeJSON(w, http.StatusOK, toUbicacionDTO(ubicacion))
}

// reasignarRequest — cuerpo de POST .../{rfid}/reasignar.
type reasignarRequest struct {
	TenantID     int64  `json:"tenantId"`
	Force        bool   `json:"force"`
	Motivo       string `json:"motivo"`
	CambiarDueno bool   `json:"cambiarDueno"`
}

// Reasignar maneja POST /api/v1/inventario-central/{rfid}/reasignar.
func (h *APIHandler) Reasignar(w http.ResponseWriter, r *http.Request) {
	rfid := chi.URLParam(r, "rfid")

	var req reasignarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.WriteValidation(w, "cuerpo JSON inválido")
		return
	}
	if req.TenantID <= 0 {
		apierrors.WriteValidation(w, "tenantId debe ser positivo")
		return
	}

	unidad, err := h.coordinador.Reasignar(r.Context(), rfid, req.TenantID, service.OpcionesReasignacion{
		Force:                req.Force,
		Motivo:               req.Motivo,
		CambiarDueno:         req.CambiarDueno,
		ChangedByAdminUserID: middleware.AdminUserIDFromContext(r.Context()),
	})
	if err != nil {
		h.writeServiceError(w, r, "reasignar unidad", err)
		return
	}

	writeJSON(w, http.StatusOK, toUnidadDTO(unidad))
}

// desasignarRequest — cuerpo de POST .../{rfid}/desasignar.
type desasignarRequest struct {
	Motivo       string `json:"motivo"`
	CambiarDueno bool   `json:"cambiarDueno"`
}

// Desasignar maneja POST /api/v1/inventario-central/{rfid}/desasignar.
func (h *APIHandler) Desasignar(w http.ResponseWriter, r *http.Request) {
	rfid := chi.URLParam(r, "rfid")

	var req desasignarRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apierrors.WriteValidation(w, "cuerpo JSON inválido")
			return
		}
	}

	central, err := h.coordinador.Desasignar(r.Context(), rfid, service.OpcionesReasignacion{
		Motivo:               req.Motivo,
		CambiarDueno:         req.CambiarDueno,
		ChangedByAdminUserID: middleware.AdminUserIDFromContext(r.Context()),
	})
	if err != nil {
		h.writeServiceError(w, r, "desasignar unidad", err)
		return
	}

	writeJSON(w, http.StatusOK, toUnidadCentralDTO(central))
}

// HistorialUnidad maneja GET /api/v1/inventario-central/{rfid}/historial.
func (h *APIHandler) HistorialUnidad(w http.ResponseWriter, r *http.Request) {
	rfid := chi.URLParam(r, "rfid")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			apierrors.WriteValidation(w, "limit debe ser un entero positivo")
			return
		}
		limit = v
	}

	eventos, err := h.coordinador.Historial(r.Context(), rfid, limit)
	if err != nil {
		h.writeServiceError(w, r, "consultar historial", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"eventos": toEventosHistorialDTO(eventos),
	})
}

// writeServiceError traduce un error de servicio al sobre HTTP. Los
// errores no clasificados se responden con un 500 genérico y el detalle
// completo queda en el log.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var conflicto *service.ConflictoError
	switch {
	case errors.Is(err, service.ErrValidation):
		apierrors.WriteValidation(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		apierrors.WriteNotFound(w, err.Error())
	case errors.As(err, &conflicto):
		apierrors.WriteConflict(w, fmt.Sprintf(
			"la unidad %s tiene custodia activa en el tenant %q (id %d); use force para sobrescribir",
			conflicto.RFID, conflicto.TenantNombre, conflicto.TenantID,
		))
	case errors.Is(err, service.ErrConflict):
		apierrors.WriteConflict(w, err.Error())
	default:
		h.logger.Error("Error interno en la API",
			slog.String("operation", op),
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			slog.String("error", err.Error()),
		)
		apierrors.WriteInternal(w)
	}
}
