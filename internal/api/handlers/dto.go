// dto.go — formas JSON de la API. Los modelos de dominio no se
// serializan directamente; estos DTO fijan el contrato con los clientes.
package handlers

import (
	"time"

	"github.com/retornaloop/inventario/central-module/internal/domain/model"
	"github.com/retornaloop/inventario/central-module/internal/service"
)

// unidadDTO — unidad de inventario.
type unidadDTO struct {
	ID                  int64      `json:"id,omitempty"`
	RFID                string     `json:"rfid"`
	ModeloID            int64      `json:"modelo_id"`
	NombreUnidad        string     `json:"nombre_unidad"`
	Lote                *string    `json:"lote,omitempty"`
	Estado              string     `json:"estado"`
	SubEstado           *string    `json:"sub_estado,omitempty"`
	Categoria           *string    `json:"categoria,omitempty"`
	Activo              bool       `json:"activo"`
	FechaIngreso        time.Time  `json:"fecha_ingreso"`
	UltimaActualizacion time.Time  `json:"ultima_actualizacion"`
	FechaVencimiento    *time.Time `json:"fecha_vencimiento,omitempty"`
}

func toUnidadDTO(u *model.Unidad) unidadDTO {
	return unidadDTO{
		ID:                  u.ID,
		RFID:                u.RFID,
		ModeloID:            u.ModeloID,
		NombreUnidad:        u.NombreUnidad,
		Lote:                u.Lote,
		Estado:              u.Estado,
		SubEstado:           u.SubEstado,
		Categoria:           u.Categoria,
		Activo:              u.Activo,
		FechaIngreso:        u.FechaIngreso,
		UltimaActualizacion: u.UltimaActualizacion,
		FechaVencimiento:    u.FechaVencimiento,
	}
}

// unidadCentralDTO — fila del pool central.
type unidadCentralDTO struct {
	unidadDTO
	EsAlquiler       bool       `json:"es_alquiler"`
	AsignadoTenantID *int64     `json:"asignado_tenant_id,omitempty"`
	FechaAsignacion  *time.Time `json:"fecha_asignacion,omitempty"`
	TenantSchemaName string     `json:"tenant_schema_name"`
}

func toUnidadCentralDTO(uc *model.UnidadCentral) unidadCentralDTO {
	return unidadCentralDTO{
		unidadDTO:        toUnidadDTO(&uc.Unidad),
		EsAlquiler:       uc.EsAlquiler,
		AsignadoTenantID: uc.AsignadoTenantID,
		FechaAsignacion:  uc.FechaAsignacion,
		TenantSchemaName: uc.TenantSchemaName,
	}
}

// unidadFederadaDTO — fila de la vista federada.
type unidadFederadaDTO struct {
	unidadDTO
	Origen           string `json:"origen"`
	TenantID         *int64 `json:"tenant_id,omitempty"`
	TenantNombre     string `json:"tenant_nombre,omitempty"`
	EsAlquiler       *bool  `json:"es_alquiler,omitempty"`
	AsignadoTenantID *int64 `json:"asignado_tenant_id,omitempty"`
}

// listaFederadaDTO — página de la vista federada.
type listaFederadaDTO struct {
	Items      []unidadFederadaDTO `json:"items"`
	Total      int                 `json:"total"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"page_size"`
	TotalPages int                 `json:"total_pages"`
}

func toListaFederadaDTO(res *service.ResultadoFederado) listaFederadaDTO {
	items := make([]unidadFederadaDTO, 0, len(res.Items))
	for _, uf := range res.Items {
		items = append(items, unidadFederadaDTO{
			unidadDTO:        toUnidadDTO(&uf.Unidad),
			Origen:           uf.Origen,
			TenantID:         uf.TenantID,
			TenantNombre:     uf.TenantNombre,
			EsAlquiler:       uf.EsAlquiler,
			AsignadoTenantID: uf.AsignadoTenantID,
		})
	}
	return listaFederadaDTO{
		Items:      items,
		Total:      res.Total,
		Page:       res.Page,
		PageSize:   res.PageSize,
		TotalPages: res.TotalPages,
	}
}

// ubicacionDTO — resultado del resolutor de ubicación.
type ubicacionDTO struct {
	Tipo         string            `json:"tipo"`
	TenantID     *int64            `json:"tenant_id,omitempty"`
	TenantNombre string            `json:"tenant_nombre,omitempty"`
	Esquema      string            `json:"esquema,omitempty"`
	Activo       bool              `json:"activo"`
	Unidad       *unidadDTO        `json:"unidad,omitempty"`
	Central      *unidadCentralDTO `json:"central,omitempty"`
}

func toUbicacionDTO(u *model.Ubicacion) ubicacionDTO {
	dto := ubicacionDTO{
		Tipo:         u.Tipo,
		TenantID:     u.TenantID,
		TenantNombre: u.TenantNombre,
		Esquema:      u.Esquema,
		Activo:       u.Activo,
	}
	if u.Unidad != nil {
		d := toUnidadDTO(u.Unidad)
		dto.Unidad = &d
	}
	if u.Central != nil {
		d := toUnidadCentralDTO(u.Central)
		dto.Central = &d
	}
	return dto
}

// eventoHistorialDTO — evento del historial de reasignaciones.
type eventoHistorialDTO struct {
	ID               int64     `json:"id"`
	RFID             string    `json:"rfid"`
	FromTenantID     *int64    `json:"from_tenant_id,omitempty"`
	FromTenantNombre *string   `json:"from_tenant_nombre,omitempty"`
	ToTenantID       *int64    `json:"to_tenant_id,omitempty"`
	ToTenantNombre   *string   `json:"to_tenant_nombre,omitempty"`
	Motivo           string    `json:"motivo,omitempty"`
	CambiarDueno     bool      `json:"cambiar_dueno"`
	AdminNombre      *string   `json:"admin_nombre,omitempty"`
	AdminEmail       *string   `json:"admin_email,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func toEventosHistorialDTO(eventos []*model.EventoHistorial) []eventoHistorialDTO {
	out := make([]eventoHistorialDTO, 0, len(eventos))
	for _, e := range eventos {
		out = append(out, eventoHistorialDTO{
			ID:               e.ID,
			RFID:             e.RFID,
			FromTenantID:     e.FromTenantID,
			FromTenantNombre: e.FromTenantNombre,
			ToTenantID:       e.ToTenantID,
			ToTenantNombre:   e.ToTenantNombre,
			Motivo:           e.Motivo,
			CambiarDueno:     e.CambiarDueno,
			AdminNombre:      e.AdminNombre,
			AdminEmail:       e.AdminEmail,
			CreatedAt:        e.CreatedAt,
		})
	}
	return out
}
