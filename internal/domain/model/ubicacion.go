package model

// Tipos de ubicación que puede resolver el localizador.
const (
	// UbicacionParticion — el registro autoritativo vive en una partición.
	UbicacionParticion = "particion"
	// UbicacionPool — el registro autoritativo vive en el pool central.
	UbicacionPool = "pool"
)

// Ubicacion — resultado del localizador federado: dónde está la custodia
// de un envase en este momento.
type Ubicacion struct {
	// Tipo — "particion" o "pool"
	Tipo string
	// TenantID — tenant custodio (sólo si Tipo == particion)
	TenantID *int64
	// TenantNombre — nombre del tenant custodio
	TenantNombre string
	// Esquema — esquema de la partición custodia
	Esquema string
	// Activo — false si la fila encontrada es un remanente inactivo
	// (la búsqueda prefiere filas activas; una inactiva sólo aparece
	// cuando no existe custodia activa en ninguna partición)
	Activo bool
	// Unidad — registro de partición (sólo si Tipo == particion)
	Unidad *Unidad
	// Central — registro del pool (sólo si Tipo == pool)
	Central *UnidadCentral
}
