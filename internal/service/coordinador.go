// coordinador.go — coordinador de reasignaciones: movimientos de custodia
// entre particiones y el pool central, bajo los invariantes de custodia
// única activa y de presencia exclusiva en el pool.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/retornaloop/inventario/central-module/internal/domain/model"
	"github.com/retornaloop/inventario/central-module/internal/repository"
)

// Métricas Prometheus del coordinador.
var (
	reasignacionesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cm_reasignaciones_total",
		Help: "Reasignaciones de custodia, etiquetadas por resultado.",
	}, []string{"resultado"})
	desasignacionesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cm_desasignaciones_total",
		Help: "Devoluciones al pool central completadas.",
	})
)

// Valores de la etiqueta resultado.
const (
	resultadoOK        = "ok"
	resultadoConflicto = "conflicto"
	resultadoForzada   = "forzada"
	resultadoError     = "error"
)

// Transactor ejecuta una función dentro de una transacción.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// OpcionesReasignacion — modificadores de una reasignación o devolución.
type OpcionesReasignacion struct {
	// Force — desactivar custodias en conflicto en lugar de abortar
	Force bool
	// Motivo — texto libre registrado en el historial
	Motivo string
	// CambiarDueno — la operación transfiere también la propiedad
	CambiarDueno bool
	// ChangedByAdminUserID — operador que originó el cambio, si se conoce
	ChangedByAdminUserID *int64
}

// AltaCentral — datos de alta de una unidad en el pool central.
type AltaCentral struct {
	RFID         string
	ModeloID     int64
	NombreUnidad string
	Lote         *string
	Estado       string
	SubEstado    *string
	Categoria    *string
	EsAlquiler   bool
	// AsignadoTenantID — reserva administrativa, no otorga custodia
	AsignadoTenantID *int64
	FechaVencimiento *time.Time
}

// Coordinador — coordinador de reasignaciones de custodia.
type Coordinador struct {
	db       repository.DBTX
	txr      Transactor
	fab      repository.Fabrica
	loc      *Localizador
	catalogo *CatalogoCache
	logger   *slog.Logger
}

// NewCoordinador crea el coordinador de reasignaciones.
func NewCoordinador(
	db repository.DBTX,
	txr Transactor,
	fab repository.Fabrica,
	loc *Localizador,
	catalogo *CatalogoCache,
	logger *slog.Logger,
) *Coordinador {
	return &Coordinador{
		db:       db,
		txr:      txr,
		fab:      fab,
		loc:      loc,
		catalogo: catalogo,
		logger:   logger.With(slog.String("component", "coordinador")),
	}
}

// Reasignar mueve la custodia de una unidad a la partición del tenant
// destino. Toda la mutación ocurre en una sola transacción, serializada
// por unidad mediante un advisory lock transaccional sobre el rfid:
// dos reasignaciones concurrentes del mismo rfid se ejecutan una tras
// otra y la segunda ve el estado que dejó la primera.
//
// Sin Force, cualquier custodia activa en una partición distinta del
// origen y del destino aborta con ConflictoError. Con Force esas
// custodias se desactivan dentro de la misma transacción.
func (c *Coordinador) Reasignar(ctx context.Context, rfid string, tenantID int64, opts OpcionesReasignacion) (*model.Unidad, error) {
	rfid, err := NormalizarRFID(rfid)
	if err != nil {
		return nil, err
	}

	destino, err := c.catalogo.PorID(ctx, tenantID)
	if err != nil {
		if esNotFound(err) {
			return nil, fmt.Errorf("tenant destino %d: %w", tenantID, ErrNotFound)
		}
		return nil, fmt.Errorf("resolver tenant destino: %w", err)
	}

	// La resolución inicial ubica la unidad y aporta sus datos de
	// catálogo; la verificación de conflictos se repite dentro de la
	// transacción, ya bajo el lock.
	ubicacion, err := c.loc.Resolver(ctx, rfid)
	if err != nil {
		if esNotFound(err) {
			return nil, fmt.Errorf("unidad %s: %w", rfid, ErrNotFound)
		}
		return nil, err
	}

	var (
		resultado *model.Unidad
		huboForce bool
	)

	err = c.txr.RunInTx(ctx, func(tx pgx.Tx) error {
		pool := c.fab.PoolCentral(tx)
		if err := pool.BloquearRFID(ctx, rfid); err != nil {
			return fmt.Errorf("bloquear rfid: %w", err)
		}

		custodios, err := c.loc.CustodiosActivosEn(ctx, tx, rfid)
		if err != nil {
			return fmt.Errorf("verificar custodias activas: %w", err)
		}

		var (
			origen     *model.Tenant
			conflictos []*model.Tenant
		)
		for _, t := range custodios {
			switch t.ID {
			case tenantID:
				// Ya está en el destino; la reasignación es idempotente.
			case origenID(ubicacion):
				origen = t
			default:
				conflictos = append(conflictos, t)
			}
		}

		if len(conflictos) > 0 && !opts.Force {
			t := conflictos[0]
			return &ConflictoError{RFID: rfid, TenantID: t.ID, TenantNombre: t.Nombre}
		}

		// Desactivar la custodia del origen y, con Force, las de los
		// tenants en conflicto.
		porDesactivar := conflictos
		if origen != nil {
			porDesactivar = append(porDesactivar, origen)
		}
		for _, t := range porDesactivar {
			part, err := c.fab.Particion(tx, t.Esquema)
			if err != nil {
				return fmt.Errorf("partición %s: %w", t.Esquema, err)
			}
			if _, err := part.Desactivar(ctx, rfid); err != nil {
				return fmt.Errorf("desactivar en %s: %w", t.Esquema, err)
			}
		}
		huboForce = len(conflictos) > 0

		// Escribir la unidad en la partición destino conservando su
		// fecha de ingreso original.
		partDestino, err := c.fab.Particion(tx, destino.Esquema)
		if err != nil {
			return fmt.Errorf("partición destino %s: %w", destino.Esquema, err)
		}
		if err := partDestino.EnsureObjetos(ctx); err != nil {
			return fmt.Errorf("preparar partición destino: %w", err)
		}

		unidad := unidadDesdeUbicacion(ubicacion, rfid)
		resultado, err = partDestino.Upsert(ctx, unidad)
		if err != nil {
			return fmt.Errorf("upsert en destino: %w", err)
		}

		// La unidad deja de estar sin asignar: su fila del pool, si
		// existe, desaparece en la misma transacción.
		if _, err := pool.Delete(ctx, rfid); err != nil {
			return fmt.Errorf("retirar del pool central: %w", err)
		}

		var fromID *int64
		if origen != nil {
			id := origen.ID
			fromID = &id
		}
		evento := &model.EventoHistorial{
			RFID:                 rfid,
			FromTenantID:         fromID,
			ToTenantID:           &tenantID,
			ChangedByAdminUserID: opts.ChangedByAdminUserID,
			Motivo:               strings.TrimSpace(opts.Motivo),
			CambiarDueno:         opts.CambiarDueno,
		}
		if err := c.fab.Historial(tx).Append(ctx, evento); err != nil {
			return fmt.Errorf("registrar historial: %w", err)
		}
		return nil
	})
	if err != nil {
		var conflicto *ConflictoError
		if errors.As(err, &conflicto) {
			reasignacionesTotal.WithLabelValues(resultadoConflicto).Inc()
			return nil, conflicto
		}
		reasignacionesTotal.WithLabelValues(resultadoError).Inc()
		return nil, err
	}

	if huboForce {
		reasignacionesTotal.WithLabelValues(resultadoForzada).Inc()
	} else {
		reasignacionesTotal.WithLabelValues(resultadoOK).Inc()
	}

	c.logger.Info("Unidad reasignada",
		slog.String("rfid", rfid),
		slog.Int64("tenant_id", tenantID),
		slog.Bool("force", opts.Force),
	)
	return resultado, nil
}

// Desasignar devuelve una unidad al pool central: desactiva todas sus
// custodias activas y crea (o reactiva) su fila en inventario_central
// sin tenant asignado, en una sola transacción.
func (c *Coordinador) Desasignar(ctx context.Context, rfid string, opts OpcionesReasignacion) (*model.UnidadCentral, error) {
	rfid, err := NormalizarRFID(rfid)
	if err != nil {
		return nil, err
	}

	ubicacion, err := c.loc.Resolver(ctx, rfid)
	if err != nil {
		if esNotFound(err) {
			return nil, fmt.Errorf("unidad %s: %w", rfid, ErrNotFound)
		}
		return nil, err
	}

	var resultado *model.UnidadCentral

	err = c.txr.RunInTx(ctx, func(tx pgx.Tx) error {
		pool := c.fab.PoolCentral(tx)
		if err := pool.BloquearRFID(ctx, rfid); err != nil {
			return fmt.Errorf("bloquear rfid: %w", err)
		}

		custodios, err := c.loc.CustodiosActivosEn(ctx, tx, rfid)
		if err != nil {
			return fmt.Errorf("verificar custodias activas: %w", err)
		}

		var fromID *int64
		for _, t := range custodios {
			part, err := c.fab.Particion(tx, t.Esquema)
			if err != nil {
				return fmt.Errorf("partición %s: %w", t.Esquema, err)
			}
			if _, err := part.Desactivar(ctx, rfid); err != nil {
				return fmt.Errorf("desactivar en %s: %w", t.Esquema, err)
			}
			if fromID == nil {
				id := t.ID
				fromID = &id
			}
		}

		central := &model.UnidadCentral{
			Unidad:           *unidadDesdeUbicacion(ubicacion, rfid),
			TenantSchemaName: model.SinAsignar,
		}
		if ubicacion.Central != nil {
			central.EsAlquiler = ubicacion.Central.EsAlquiler
		}
		resultado, err = pool.Upsert(ctx, central)
		if err != nil {
			return fmt.Errorf("upsert en pool central: %w", err)
		}

		evento := &model.EventoHistorial{
			RFID:                 rfid,
			FromTenantID:         fromID,
			ToTenantID:           nil,
			ChangedByAdminUserID: opts.ChangedByAdminUserID,
			Motivo:               strings.TrimSpace(opts.Motivo),
			CambiarDueno:         opts.CambiarDueno,
		}
		if err := c.fab.Historial(tx).Append(ctx, evento); err != nil {
			return fmt.Errorf("registrar historial: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	desasignacionesTotal.Inc()
	c.logger.Info("Unidad devuelta al pool central", slog.String("rfid", rfid))
	return resultado, nil
}

// CrearEnCentral da de alta una unidad en el pool central. El alta es
// idempotente sobre unidades ya presentes en el pool, pero rechaza con
// ConflictoError los rfid con custodia activa en alguna partición: una
// unidad en uso no puede reaparecer como sin asignar.
//
// El alta no genera evento de historial: no es un movimiento de custodia.
func (c *Coordinador) CrearEnCentral(ctx context.Context, alta AltaCentral) (*model.UnidadCentral, error) {
	rfid, err := NormalizarRFID(alta.RFID)
	if err != nil {
		return nil, err
	}
	if alta.ModeloID <= 0 {
		return nil, fmt.Errorf("modelo_id debe ser positivo: %w", ErrValidation)
	}

	var asignado *model.Tenant
	if alta.AsignadoTenantID != nil {
		asignado, err = c.catalogo.PorID(ctx, *alta.AsignadoTenantID)
		if err != nil {
			if esNotFound(err) {
				return nil, fmt.Errorf("tenant asignado %d: %w", *alta.AsignadoTenantID, ErrNotFound)
			}
			return nil, fmt.Errorf("resolver tenant asignado: %w", err)
		}
	}

	var resultado *model.UnidadCentral

	err = c.txr.RunInTx(ctx, func(tx pgx.Tx) error {
		pool := c.fab.PoolCentral(tx)
		if err := pool.BloquearRFID(ctx, rfid); err != nil {
			return fmt.Errorf("bloquear rfid: %w", err)
		}

		custodios, err := c.loc.CustodiosActivosEn(ctx, tx, rfid)
		if err != nil {
			return fmt.Errorf("verificar custodias activas: %w", err)
		}
		if len(custodios) > 0 {
			t := custodios[0]
			return &ConflictoError{RFID: rfid, TenantID: t.ID, TenantNombre: t.Nombre}
		}

		estado := alta.Estado
		if estado == "" {
			estado = "disponible"
		}
		central := &model.UnidadCentral{
			Unidad: model.Unidad{
				RFID:             rfid,
				ModeloID:         alta.ModeloID,
				NombreUnidad:     alta.NombreUnidad,
				Lote:             alta.Lote,
				Estado:           estado,
				SubEstado:        alta.SubEstado,
				Categoria:        alta.Categoria,
				Activo:           true,
				FechaVencimiento: alta.FechaVencimiento,
			},
			EsAlquiler:       alta.EsAlquiler,
			TenantSchemaName: model.SinAsignar,
		}
		if asignado != nil {
			id := asignado.ID
			ahora := time.Now()
			central.AsignadoTenantID = &id
			central.FechaAsignacion = &ahora
			central.TenantSchemaName = asignado.Esquema
		}

		resultado, err = pool.Upsert(ctx, central)
		if err != nil {
			return fmt.Errorf("upsert en pool central: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("Unidad dada de alta en el pool central",
		slog.String("rfid", rfid),
		slog.Int64("modelo_id", alta.ModeloID),
	)
	return resultado, nil
}

// Historial devuelve los eventos de reasignación de una unidad, del más
// reciente al más antiguo.
func (c *Coordinador) Historial(ctx context.Context, rfid string, limit int) ([]*model.EventoHistorial, error) {
	rfid, err := NormalizarRFID(rfid)
	if err != nil {
		return nil, err
	}
	eventos, err := c.fab.Historial(c.db).QueryByRFID(ctx, rfid, limit)
	if err != nil {
		return nil, fmt.Errorf("consultar historial: %w", err)
	}
	return eventos, nil
}

// origenID devuelve el id del tenant donde se resolvió la unidad, o un
// valor imposible cuando se resolvió en el pool.
func origenID(u *model.Ubicacion) int64 {
	if u.TenantID != nil {
		return *u.TenantID
	}
	return -1
}

// unidadDesdeUbicacion proyecta la unidad resuelta a la forma que recibe
// la partición destino, ya activa y con el rfid normalizado.
func unidadDesdeUbicacion(u *model.Ubicacion, rfid string) *model.Unidad {
	var unidad model.Unidad
	switch {
	case u.Unidad != nil:
		unidad = *u.Unidad
	case u.Central != nil:
		unidad = u.Central.Unidad
	}
	unidad.ID = 0
	unidad.RFID = rfid
	unidad.Activo = true
	return &unidad
}
