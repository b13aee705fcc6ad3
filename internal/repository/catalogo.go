package repository

import (
	"context"
	"fmt"

	"github.com/retornaloop/inventario/central-module/internal/domain/model"
)

// CatalogoRepository — lectura del catálogo de particiones (tabla tenants).
// El esquema reservado queda excluido de todos los resultados. La búsqueda
// por ID la sirve la caché de catálogo sobre esta misma lista.
type CatalogoRepository interface {
	// ListActivos devuelve los tenants activos del catálogo.
	ListActivos(ctx context.Context) ([]*model.Tenant, error)
}

// catalogoRepo — implementación de CatalogoRepository.
type catalogoRepo struct {
	db DBTX
}

// NewCatalogoRepository crea el repositorio del catálogo de particiones.
func NewCatalogoRepository(db DBTX) CatalogoRepository {
	return &catalogoRepo{db: db}
}

const catalogoSelect = `
	SELECT id, nombre, esquema, activo, created_at, updated_at
	FROM tenants`

func (r *catalogoRepo) ListActivos(ctx context.Context) ([]*model.Tenant, error) {
	query := catalogoSelect + `
	WHERE activo AND esquema <> $1
	ORDER BY id`

	rows, err := r.db.Query(ctx, query, EsquemaReservado)
	if err != nil {
		return nil, fmt.Errorf("error al listar el catálogo de tenants: %w", err)
	}
	defer rows.Close()

	var result []*model.Tenant
	for rows.Next() {
		t := &model.Tenant{}
		if err := rows.Scan(&t.ID, &t.Nombre, &t.Esquema, &t.Activo, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error al escanear tenant: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}
