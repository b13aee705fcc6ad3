package model

import "time"

// EventoHistorial — evento del libro de auditoría de cambios de custodia
// (tabla historial_reasignaciones). Append-only: nunca se actualiza ni borra.
type EventoHistorial struct {
	// ID — serial del evento
	ID int64
	// RFID — envase afectado
	RFID string
	// FromTenantID — tenant origen (nil si venía del pool central)
	FromTenantID *int64
	// ToTenantID — tenant destino (nil si volvió al pool central)
	ToTenantID *int64
	// ChangedByAdminUserID — usuario administrador que ejecutó el movimiento
	ChangedByAdminUserID *int64
	// Motivo — texto libre con la razón del movimiento
	Motivo string
	// CambiarDueno — true si el movimiento también transfiere la propiedad
	// de largo plazo, no sólo la custodia
	CambiarDueno bool
	// CreatedAt — momento del movimiento
	CreatedAt time.Time

	// Campos de presentación, resueltos por JOIN en la lectura.

	// FromTenantNombre — nombre del tenant origen (nil si pool o borrado)
	FromTenantNombre *string
	// ToTenantNombre — nombre del tenant destino (nil si pool o borrado)
	ToTenantNombre *string
	// AdminNombre — nombre del usuario administrador
	AdminNombre *string
	// AdminEmail — contacto del usuario administrador
	AdminEmail *string
}
