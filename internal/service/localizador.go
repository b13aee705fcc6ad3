// localizador.go — resolución federada de la ubicación de un envase.
// Determina qué partición (o el pool central) tiene la custodia vigente.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/retornaloop/inventario/central-module/internal/domain/model"
	"github.com/retornaloop/inventario/central-module/internal/repository"
)

// Localizador — resolutor federado de ubicación.
type Localizador struct {
	db       repository.DBTX
	fab      repository.Fabrica
	catalogo *CatalogoCache
	logger   *slog.Logger
}

// NewLocalizador crea el resolutor de ubicación.
func NewLocalizador(
	db repository.DBTX,
	fab repository.Fabrica,
	catalogo *CatalogoCache,
	logger *slog.Logger,
) *Localizador {
	return &Localizador{
		db:       db,
		fab:      fab,
		catalogo: catalogo,
		logger:   logger.With(slog.String("component", "localizador")),
	}
}

// Resolver encuentra la custodia actual de un envase con búsqueda por
// prioridad: (a) fila activa en alguna partición; (b) cualquier fila en
// alguna partición — un remanente inactivo de un movimiento anterior;
// (c) el pool central. Devuelve ErrNotFound si no existe en ningún lado.
//
// En la fase (b) el orden de enumeración de particiones no está
// garantizado: si hay remanentes en varias, gana el primero encontrado.
// Ese no-determinismo es conocido y aceptado.
func (l *Localizador) Resolver(ctx context.Context, rfid string) (*model.Ubicacion, error) {
	rfid, err := NormalizarRFID(rfid)
	if err != nil {
		return nil, err
	}

	tenants, err := l.catalogo.Activos(ctx)
	if err != nil {
		return nil, err
	}

	// Fase (a): custodia activa.
	if ub, err := l.buscarEnParticiones(ctx, tenants, rfid, true); err != nil || ub != nil {
		return ub, err
	}

	// Fase (b): remanente inactivo.
	if ub, err := l.buscarEnParticiones(ctx, tenants, rfid, false); err != nil || ub != nil {
		return ub, err
	}

	// Fase (c): pool central.
	uc, err := l.fab.PoolCentral(l.db).GetByRFID(ctx, rfid)
	if err != nil {
		if esNotFound(err) {
			return nil, fmt.Errorf("%w: el envase %s no existe en ninguna partición ni en el pool", ErrNotFound, rfid)
		}
		return nil, err
	}

	return &model.Ubicacion{
		Tipo:    model.UbicacionPool,
		Activo:  uc.Activo,
		Central: uc,
	}, nil
}

// buscarEnParticiones recorre el catálogo buscando el rfid.
// soloActivas limita la búsqueda a filas con custodia vigente.
func (l *Localizador) buscarEnParticiones(ctx context.Context, tenants []*model.Tenant, rfid string, soloActivas bool) (*model.Ubicacion, error) {
	for _, t := range tenants {
		part, err := l.fab.Particion(l.db, t.Esquema)
		if err != nil {
			// Entrada corrupta del catálogo: se omite, nunca llega al SQL.
			l.logger.Warn("Esquema inválido en el catálogo, partición omitida",
				slog.String("esquema", t.Esquema),
				slog.String("error", err.Error()),
			)
			continue
		}

		var u *model.Unidad
		if soloActivas {
			u, err = part.FindActivaByRFID(ctx, rfid)
		} else {
			u, err = part.FindByRFID(ctx, rfid)
		}
		if err != nil {
			if esNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("error al resolver ubicación en %s: %w", t.Esquema, err)
		}

		tenantID := t.ID
		return &model.Ubicacion{
			Tipo:         model.UbicacionParticion,
			TenantID:     &tenantID,
			TenantNombre: t.Nombre,
			Esquema:      t.Esquema,
			Activo:       u.Activo,
			Unidad:       u,
		}, nil
	}
	return nil, nil
}

// CustodiosActivosEn devuelve todos los tenants con fila activa para el
// rfid sobre un DBTX explícito, de modo que el coordinador verifique dentro
// de su transacción tras tomar el advisory lock. La invariante de custodia
// única no tiene constraint que la imponga entre particiones independientes,
// así que se verifica proceduralmente antes de cada reasignación; más de un
// resultado significa invariante violada.
func (l *Localizador) CustodiosActivosEn(ctx context.Context, db repository.DBTX, rfid string) ([]*model.Tenant, error) {
	rfid, err := NormalizarRFID(rfid)
	if err != nil {
		return nil, err
	}

	tenants, err := l.catalogo.Activos(ctx)
	if err != nil {
		return nil, err
	}

	var custodios []*model.Tenant
	for _, t := range tenants {
		part, err := l.fab.Particion(db, t.Esquema)
		if err != nil {
			l.logger.Warn("Esquema inválido en el catálogo, partición omitida",
				slog.String("esquema", t.Esquema),
				slog.String("error", err.Error()),
			)
			continue
		}

		if _, err := part.FindActivaByRFID(ctx, rfid); err != nil {
			if esNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("error al buscar custodios en %s: %w", t.Esquema, err)
		}
		custodios = append(custodios, t)
	}
	return custodios, nil
}
