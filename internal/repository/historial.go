package repository

import (
	"context"
	"fmt"

	"github.com/retornaloop/inventario/central-module/internal/domain/model"
)

// Límites de la lectura del historial.
const (
	// HistorialLimitDefault — límite por defecto de eventos devueltos.
	HistorialLimitDefault = 50
	// HistorialLimitMax — tope duro del límite.
	HistorialLimitMax = 200
)

// HistorialRepository — libro de auditoría de cambios de custodia.
// Append se invoca únicamente desde el coordinador, dentro de la misma
// transacción que el movimiento; la tabla nunca se actualiza ni se borra.
type HistorialRepository interface {
	// Append agrega un evento al libro.
	Append(ctx context.Context, ev *model.EventoHistorial) error
	// QueryByRFID devuelve los eventos de un rfid, más recientes primero,
	// con nombres de tenants y contacto del administrador resueltos por JOIN.
	QueryByRFID(ctx context.Context, rfid string, limit int) ([]*model.EventoHistorial, error)
}

// historialRepo — implementación de HistorialRepository.
type historialRepo struct {
	db DBTX
}

// NewHistorialRepository crea el repositorio del historial.
func NewHistorialRepository(db DBTX) HistorialRepository {
	return &historialRepo{db: db}
}

func (r *historialRepo) Append(ctx context.Context, ev *model.EventoHistorial) error {
	query := `
		INSERT INTO historial_reasignaciones
			(rfid, from_tenant_id, to_tenant_id, changed_by_admin_user_id, motivo, cambiar_dueno)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		ev.RFID, ev.FromTenantID, ev.ToTenantID, ev.ChangedByAdminUserID,
		ev.Motivo, ev.CambiarDueno,
	).Scan(&ev.ID, &ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("error al registrar evento de historial: %w", err)
	}
	return nil
}

func (r *historialRepo) QueryByRFID(ctx context.Context, rfid string, limit int) ([]*model.EventoHistorial, error) {
	if limit <= 0 {
		limit = HistorialLimitDefault
	}
	if limit > HistorialLimitMax {
		limit = HistorialLimitMax
	}

	query := `
		SELECT h.id, h.rfid, h.from_tenant_id, h.to_tenant_id,
			h.changed_by_admin_user_id, h.motivo, h.cambiar_dueno, h.created_at,
			tf.nombre, tt.nombre, u.nombre, u.email
		FROM historial_reasignaciones h
		LEFT JOIN tenants tf ON tf.id = h.from_tenant_id
		LEFT JOIN tenants tt ON tt.id = h.to_tenant_id
		LEFT JOIN admin_users u ON u.id = h.changed_by_admin_user_id
		WHERE h.rfid = $1
		ORDER BY h.created_at DESC, h.id DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, rfid, limit)
	if err != nil {
		return nil, fmt.Errorf("error al consultar el historial: %w", err)
	}
	defer rows.Close()

	var result []*model.EventoHistorial
	for rows.Next() {
		ev := &model.EventoHistorial{}
		if err := rows.Scan(
			&ev.ID, &ev.RFID, &ev.FromTenantID, &ev.ToTenantID,
			&ev.ChangedByAdminUserID, &ev.Motivo, &ev.CambiarDueno, &ev.CreatedAt,
			&ev.FromTenantNombre, &ev.ToTenantNombre, &ev.AdminNombre, &ev.AdminEmail,
		); err != nil {
			return nil, fmt.Errorf("error al escanear evento de historial: %w", err)
		}
		result = append(result, ev)
	}
	return result, rows.Err()
}
