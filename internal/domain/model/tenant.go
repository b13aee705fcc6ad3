package model

import "time"

// Tenant — entrada del catálogo de particiones (tabla tenants).
// Cada tenant activo posee un esquema aislado tenant_<slug> con su copia
// de la tabla de inventario.
type Tenant struct {
	// ID — identificador del tenant
	ID int64
	// Nombre — nombre visible de la organización
	Nombre string
	// Esquema — identificador de la partición (tenant_<slug>)
	Esquema string
	// Activo — false excluye la partición de toda operación federada
	Activo bool
	// CreatedAt — alta en el catálogo
	CreatedAt time.Time
	// UpdatedAt — última modificación
	UpdatedAt time.Time
}
