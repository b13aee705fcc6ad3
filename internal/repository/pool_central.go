package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/retornaloop/inventario/central-module/internal/domain/model"
)

// PoolCentralRepository — acceso a la tabla compartida inventario_central,
// donde viven los envases sin asignar o en tránsito. Clave única: rfid.
type PoolCentralRepository interface {
	// GetByRFID devuelve la fila del pool para ese rfid.
	GetByRFID(ctx context.Context, rfid string) (*model.UnidadCentral, error)
	// Upsert inserta o sobreescribe la fila del rfid de forma idempotente.
	// fecha_ingreso se preserva; ultima_actualizacion siempre se refresca.
	Upsert(ctx context.Context, uc *model.UnidadCentral) (*model.UnidadCentral, error)
	// Delete borra la fila del rfid. Devuelve true si existía.
	Delete(ctx context.Context, rfid string) (bool, error)
	// QueryTodas devuelve todo el pool (lectura federada).
	QueryTodas(ctx context.Context) ([]*model.UnidadCentral, error)
	// BloquearRFID toma el advisory lock transaccional por envase que
	// serializa reasignaciones concurrentes del mismo rfid. Sólo tiene
	// sentido dentro de una transacción; se libera en commit o rollback.
	BloquearRFID(ctx context.Context, rfid string) error
}

// poolCentralRepo — implementación de PoolCentralRepository.
type poolCentralRepo struct {
	db DBTX
}

// NewPoolCentralRepository crea el repositorio del pool central.
func NewPoolCentralRepository(db DBTX) PoolCentralRepository {
	return &poolCentralRepo{db: db}
}

const poolSelect = `
	SELECT id, rfid, modelo_id, nombre_unidad, lote, estado, sub_estado,
		categoria, activo, fecha_ingreso, ultima_actualizacion, fecha_vencimiento,
		es_alquiler, asignado_tenant_id, fecha_asignacion, tenant_schema_name
	FROM inventario_central`

func (r *poolCentralRepo) scanFila(row pgx.Row) (*model.UnidadCentral, error) {
	uc := &model.UnidadCentral{}
	err := row.Scan(
		&uc.ID, &uc.RFID, &uc.ModeloID, &uc.NombreUnidad, &uc.Lote, &uc.Estado,
		&uc.SubEstado, &uc.Categoria, &uc.Activo, &uc.FechaIngreso,
		&uc.UltimaActualizacion, &uc.FechaVencimiento,
		&uc.EsAlquiler, &uc.AsignadoTenantID, &uc.FechaAsignacion, &uc.TenantSchemaName,
	)
	if err != nil {
		return nil, err
	}
	return uc, nil
}

func (r *poolCentralRepo) GetByRFID(ctx context.Context, rfid string) (*model.UnidadCentral, error) {
	uc, err := r.scanFila(r.db.QueryRow(ctx, poolSelect+" WHERE rfid = $1", rfid))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error al leer el pool central: %w", err)
	}
	return uc, nil
}

func (r *poolCentralRepo) Upsert(ctx context.Context, uc *model.UnidadCentral) (*model.UnidadCentral, error) {
	schemaName := uc.TenantSchemaName
	if schemaName == "" {
		schemaName = model.SinAsignar
	}

	query := `
		INSERT INTO inventario_central AS ic (rfid, modelo_id, nombre_unidad, lote,
			estado, sub_estado, categoria, activo, fecha_ingreso,
			ultima_actualizacion, fecha_vencimiento, es_alquiler,
			asignado_tenant_id, fecha_asignacion, tenant_schema_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, COALESCE($8::timestamptz, now()),
			now(), $9, $10, $11, $12, $13)
		ON CONFLICT (rfid) DO UPDATE SET
			modelo_id            = EXCLUDED.modelo_id,
			nombre_unidad        = EXCLUDED.nombre_unidad,
			lote                 = EXCLUDED.lote,
			estado               = EXCLUDED.estado,
			sub_estado           = EXCLUDED.sub_estado,
			categoria            = EXCLUDED.categoria,
			activo               = TRUE,
			fecha_ingreso        = COALESCE(ic.fecha_ingreso, EXCLUDED.fecha_ingreso),
			ultima_actualizacion = now(),
			fecha_vencimiento    = EXCLUDED.fecha_vencimiento,
			es_alquiler          = EXCLUDED.es_alquiler,
			asignado_tenant_id   = EXCLUDED.asignado_tenant_id,
			fecha_asignacion     = EXCLUDED.fecha_asignacion,
			tenant_schema_name   = EXCLUDED.tenant_schema_name
		RETURNING id, rfid, modelo_id, nombre_unidad, lote, estado, sub_estado,
			categoria, activo, fecha_ingreso, ultima_actualizacion, fecha_vencimiento,
			es_alquiler, asignado_tenant_id, fecha_asignacion, tenant_schema_name`

	var fechaIngreso any
	if !uc.FechaIngreso.IsZero() {
		fechaIngreso = uc.FechaIngreso
	}

	out, err := r.scanFila(r.db.QueryRow(ctx, query,
		uc.RFID, uc.ModeloID, uc.NombreUnidad, uc.Lote, uc.Estado, uc.SubEstado,
		uc.Categoria, fechaIngreso, uc.FechaVencimiento, uc.EsAlquiler,
		uc.AsignadoTenantID, uc.FechaAsignacion, schemaName,
	))
	if err != nil {
		return nil, fmt.Errorf("error al upsert en el pool central: %w", err)
	}
	return out, nil
}

func (r *poolCentralRepo) Delete(ctx context.Context, rfid string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM inventario_central WHERE rfid = $1`, rfid)
	if err != nil {
		return false, fmt.Errorf("error al borrar del pool central: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *poolCentralRepo) QueryTodas(ctx context.Context) ([]*model.UnidadCentral, error) {
	rows, err := r.db.Query(ctx, poolSelect)
	if err != nil {
		return nil, fmt.Errorf("error al listar el pool central: %w", err)
	}
	defer rows.Close()

	var result []*model.UnidadCentral
	for rows.Next() {
		uc := &model.UnidadCentral{}
		if err := rows.Scan(
			&uc.ID, &uc.RFID, &uc.ModeloID, &uc.NombreUnidad, &uc.Lote, &uc.Estado,
			&uc.SubEstado, &uc.Categoria, &uc.Activo, &uc.FechaIngreso,
			&uc.UltimaActualizacion, &uc.FechaVencimiento,
			&uc.EsAlquiler, &uc.AsignadoTenantID, &uc.FechaAsignacion, &uc.TenantSchemaName,
		); err != nil {
			return nil, fmt.Errorf("error al escanear fila del pool central: %w", err)
		}
		result = append(result, uc)
	}
	return result, rows.Err()
}

func (r *poolCentralRepo) BloquearRFID(ctx context.Context, rfid string) error {
	_, err := r.db.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, rfid)
	if err != nil {
		return fmt.Errorf("error al tomar el advisory lock de %s: %w", rfid, err)
	}
	return nil
}
