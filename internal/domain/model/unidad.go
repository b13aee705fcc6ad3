// Paquete model — entidades de dominio del Central Module.
// Estructuras planas que mapean 1:1 con las tablas de PostgreSQL.
package model

import "time"

// Unidad — registro de un envase retornable dentro de una partición de tenant.
// Se almacena en <esquema>.inventario_unidades; la misma entidad lógica puede
// tener copias inactivas en otras particiones tras una reasignación.
type Unidad struct {
	// ID — serial local de la partición (no es identidad global)
	ID int64
	// RFID — identificador físico del envase, 24 caracteres A-Z0-9, inmutable
	RFID string
	// ModeloID — referencia al modelo del envase (capacidad, tipo)
	ModeloID int64
	// NombreUnidad — nombre descriptivo asignado por el tenant
	NombreUnidad string
	// Lote — lote de producción (puede ser nil)
	Lote *string
	// Estado — estado operativo (disponible, en_uso, mantenimiento...)
	Estado string
	// SubEstado — detalle del estado (puede ser nil)
	SubEstado *string
	// Categoria — categoría comercial (puede ser nil)
	Categoria *string
	// Activo — true si esta partición es la custodia vigente del envase
	Activo bool
	// FechaIngreso — primera alta del envase (se preserva entre movimientos)
	FechaIngreso time.Time
	// UltimaActualizacion — última modificación del registro
	UltimaActualizacion time.Time
	// FechaVencimiento — vencimiento sanitario del envase (columna opcional,
	// puede no existir en particiones con esquema desfasado)
	FechaVencimiento *time.Time
}

// UnidadCentral — registro del pool central de administración.
// Existe sólo mientras el envase no está asignado activamente a ningún tenant
// (invariante de exclusividad del pool).
type UnidadCentral struct {
	Unidad

	// EsAlquiler — true si el envase está en régimen de alquiler
	EsAlquiler bool
	// AsignadoTenantID — tenant al que está reservado (nil si libre)
	AsignadoTenantID *int64
	// FechaAsignacion — cuándo se reservó (nil si libre)
	FechaAsignacion *time.Time
	// TenantSchemaName — esquema destino, o el placeholder SIN_ASIGNAR
	TenantSchemaName string
}

// SinAsignar — placeholder de tenant_schema_name para envases libres en el pool.
const SinAsignar = "SIN_ASIGNAR"

// UnidadFederada — fila normalizada que devuelve el agregador federado.
// Unifica filas de particiones y del pool central en una sola forma.
type UnidadFederada struct {
	Unidad

	// Origen — procedencia de la fila: "tenant" o "central"
	Origen string
	// TenantID — tenant dueño de la fila (nil para filas del pool)
	TenantID *int64
	// TenantNombre — nombre visible del tenant (vacío para el pool)
	TenantNombre string
	// EsAlquiler — sólo presente en filas del pool
	EsAlquiler *bool
	// AsignadoTenantID — sólo presente en filas del pool
	AsignadoTenantID *int64
}

// Orígenes posibles de una fila federada.
const (
	OrigenTenant  = "tenant"
	OrigenCentral = "central"
)
