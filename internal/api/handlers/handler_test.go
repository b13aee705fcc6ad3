package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apierrors "github.com/retornaloop/inventario/central-module/internal/api/errors"
	"github.com/retornaloop/inventario/central-module/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestWriteServiceError — traducción de errores de servicio al sobre HTTP.
func TestWriteServiceError(t *testing.T) {
	h := NewAPIHandler(nil, nil, nil, testLogger())

	casos := []struct {
		nombre string
		err    error
		status int
		code   string
	}{
		{"validación", service.ErrValidation, http.StatusBadRequest, apierrors.CodeValidation},
		{"no encontrado", service.ErrNotFound, http.StatusNotFound, apierrors.CodeNotFound},
		{
			"conflicto de custodia",
			&service.ConflictoError{RFID: "ABC123DEF456GHI789JKL012", TenantID: 9, TenantNombre: "Cafetería Norte"},
			http.StatusConflict,
			apierrors.CodeConflict,
		},
		{"conflicto genérico", service.ErrConflict, http.StatusConflict, apierrors.CodeConflict},
		{"interno", errors.New("connection refused"), http.StatusInternalServerError, apierrors.CodeInternal},
	}

	for _, tc := range casos {
		t.Run(tc.nombre, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/inventario-central", nil)

			h.writeServiceError(rec, req, "test", tc.err)

			if rec.Code != tc.status {
				t.Errorf("status = %d, esperado %d", rec.Code, tc.status)
			}

			var resp apierrors.ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("respuesta no es el sobre de error: %v", err)
			}
			if resp.Error.Code != tc.code {
				t.Errorf("code = %q, esperado %q", resp.Error.Code, tc.code)
			}
		})
	}
}

// TestWriteServiceErrorConflictoNombraTenant — el 409 incluye la identidad
// de la partición en disputa para que el operador decida si usa force.
func TestWriteServiceErrorConflictoNombraTenant(t *testing.T) {
	h := NewAPIHandler(nil, nil, nil, testLogger())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventario-central/X/reasignar", nil)

	h.writeServiceError(rec, req, "test", &service.ConflictoError{
		RFID: "ABC123DEF456GHI789JKL012", TenantID: 9, TenantNombre: "Cafetería Norte",
	})

	var resp apierrors.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("respuesta inválida: %v", err)
	}
	for _, fragmento := range []string{"Cafetería Norte", "force"} {
		if !strings.Contains(resp.Error.Message, fragmento) {
			t.Errorf("mensaje %q debe incluir %q", resp.Error.Message, fragmento)
		}
	}
}

// TestWriteServiceErrorInternoSanitizado — el detalle de un error interno
// nunca llega al cliente.
func TestWriteServiceErrorInternoSanitizado(t *testing.T) {
	h := NewAPIHandler(nil, nil, nil, testLogger())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/inventario-central", nil)

	h.writeServiceError(rec, req, "test", errors.New("pq: password authentication failed for user"))

	var resp apierrors.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("respuesta inválida: %v", err)
	}
	if strings.Contains(resp.Error.Message, "password") {
		t.Error("el mensaje del 500 no debe filtrar el error original")
	}
}

// TestQueryHelpers — parseo de parámetros opcionales del query string.
func TestQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?tenantId=7&activo=true&malo=xyz", nil)

	id, ok := queryInt64(req, "tenantId")
	if !ok || id == nil || *id != 7 {
		t.Errorf("queryInt64(tenantId) = (%v, %v), esperado (7, true)", id, ok)
	}
	if id, ok := queryInt64(req, "ausente"); !ok || id != nil {
		t.Errorf("queryInt64(ausente) = (%v, %v), esperado (nil, true)", id, ok)
	}
	if _, ok := queryInt64(req, "malo"); ok {
		t.Error("queryInt64 debe rechazar valores no numéricos")
	}

	b, ok := queryBool(req, "activo")
	if !ok || b == nil || !*b {
		t.Errorf("queryBool(activo) = (%v, %v), esperado (true, true)", b, ok)
	}
	if _, ok := queryBool(req, "malo"); ok {
		t.Error("queryBool debe rechazar valores no booleanos")
	}
}

func TestPaginacionFromQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=3&pageSize=50", nil)
	pag := paginacionFromQuery(req)
	if pag.Page != 3 || pag.PageSize != 50 {
		t.Errorf("paginación = %+v, esperado page 3 pageSize 50", pag)
	}

	vacio := paginacionFromQuery(httptest.NewRequest(http.MethodGet, "/", nil))
	if vacio.Page != 0 || vacio.PageSize != 0 {
		t.Errorf("sin parámetros la paginación queda en cero para que el servicio aplique defaults, got %+v", vacio)
	}
}
