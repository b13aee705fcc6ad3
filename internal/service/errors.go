// Paquete service — lógica de negocio del Central Module: localización
// federada, agregación scatter-gather y coordinación de reasignaciones.
package service

import (
	"errors"
	"fmt"
)

// Errores del nivel de servicio.
var (
	// ErrNotFound — recurso no encontrado (rfid o tenant desconocido).
	ErrNotFound = errors.New("recurso no encontrado")
	// ErrConflict — el envase ya tiene custodia activa en otra partición.
	ErrConflict = errors.New("conflicto de custodia")
	// ErrValidation — entrada inválida (rfid malformado, campos faltantes).
	ErrValidation = errors.New("error de validación")
)

// ConflictoError — conflicto de custodia con identidad del tenant en disputa,
// para que el llamador pueda decidir reintentar con force. Envuelve ErrConflict.
type ConflictoError struct {
	// RFID — envase en disputa
	RFID string
	// TenantID — primer tenant en conflicto detectado
	TenantID int64
	// TenantNombre — nombre visible del tenant en conflicto
	TenantNombre string
}

func (e *ConflictoError) Error() string {
	return fmt.Sprintf("el envase %s ya está activo en el tenant %q (id %d)",
		e.RFID, e.TenantNombre, e.TenantID)
}

func (e *ConflictoError) Unwrap() error {
	return ErrConflict
}
