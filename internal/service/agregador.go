// agregador.go — consulta federada scatter-gather sobre todas las
// particiones y el pool central, presentadas como un solo inventario.
package service

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"github.com/retornaloop/inventario/central-module/internal/domain/model"
	"github.com/retornaloop/inventario/central-module/internal/repository"
)

// Métricas Prometheus del agregador.
var (
	consultaFederadaDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cm_consulta_federada_duration_seconds",
		Help:    "Duración de las consultas federadas de inventario.",
		Buckets: prometheus.DefBuckets,
	})
	particionesOmitidasTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cm_particiones_omitidas_total",
		Help: "Particiones omitidas de una consulta federada por error de lectura.",
	})
)

// Límites de paginación de la vista federada.
const (
	pageSizeDefault = 20
	pageSizeMax     = 100
)

// Valores del filtro source.
const (
	// SourceCentral — consultar únicamente el pool central.
	SourceCentral = "central"
	// SourceTenants — consultar únicamente las particiones.
	SourceTenants = "tenants"
)

// FiltrosFederados — filtros de la consulta federada. Los campos cero
// se ignoran. Se aplican en memoria tras el scan-merge: el recuento de
// particiones es pequeño y cambia rara vez, y la corrección bajo esquemas
// heterogéneos pesa más que el costo del escaneo completo.
type FiltrosFederados struct {
	// Search — texto libre sobre rfid, nombre_unidad y lote
	Search string
	// Source — "central", "tenants" o vacío (ambos)
	Source string
	// TenantID — limitar a una partición concreta
	TenantID *int64
	// AsignadoTenantID — filas del pool reservadas para ese tenant
	AsignadoTenantID *int64
	// ModeloID — modelo exacto
	ModeloID *int64
	// Estado — estado exacto
	Estado string
	// Categoria — categoría exacta
	Categoria string
	// EsAlquiler — flag de alquiler (sólo aplica a filas del pool)
	EsAlquiler *bool
	// Activo — custodia vigente o remanente
	Activo *bool
	// RFID — rfid exacto (normalizado a mayúsculas)
	RFID string
}

// Paginacion — página solicitada de la vista federada.
type Paginacion struct {
	Page     int
	PageSize int
}

// ResultadoFederado — página de inventario federado.
type ResultadoFederado struct {
	Items      []*model.UnidadFederada
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// Agregador — consulta federada de inventario.
type Agregador struct {
	db       repository.DBTX
	fab      repository.Fabrica
	catalogo *CatalogoCache
	// fanout — máximo de consultas de partición concurrentes
	fanout int
	logger *slog.Logger
}

// NewAgregador crea el agregador federado.
func NewAgregador(
	db repository.DBTX,
	fab repository.Fabrica,
	catalogo *CatalogoCache,
	fanout int,
	logger *slog.Logger,
) *Agregador {
	if fanout < 1 {
		fanout = 1
	}
	return &Agregador{
		db:       db,
		fab:      fab,
		catalogo: catalogo,
		fanout:   fanout,
		logger:   logger.With(slog.String("component", "agregador")),
	}
}

// Listar ejecuta la consulta federada: fan-out concurrente sobre las
// particiones del catálogo (y/o el pool central según source), normaliza
// las filas a una sola forma, filtra en memoria, ordena por fecha_ingreso
// descendente (id descendente como desempate) y pagina por corte del
// arreglo en memoria.
//
// Una partición que falla incluso su consulta de respaldo se registra como
// warning y se omite: una partición mal migrada no debe romper la vista
// federada de las demás. Las lecturas no son transaccionales entre sí; la
// ventana de inconsistencia entre particiones es de sólo-visualización.
func (a *Agregador) Listar(ctx context.Context, filtros FiltrosFederados, pag Paginacion) (*ResultadoFederado, error) {
	start := time.Now()
	defer func() {
		consultaFederadaDuration.Observe(time.Since(start).Seconds())
	}()

	if filtros.RFID != "" {
		if rfid, err := NormalizarRFID(filtros.RFID); err == nil {
			filtros.RFID = rfid
		}
	}

	var filas []*model.UnidadFederada

	if filtros.Source != SourceCentral {
		deTenants, err := a.recolectarParticiones(ctx, filtros.TenantID)
		if err != nil {
			return nil, err
		}
		filas = append(filas, deTenants...)
	}

	if filtros.Source != SourceTenants && filtros.TenantID == nil {
		dePool, err := a.recolectarPool(ctx)
		if err != nil {
			return nil, err
		}
		filas = append(filas, dePool...)
	}

	filtradas := filtrar(filas, filtros)

	sort.Slice(filtradas, func(i, j int) bool {
		fi, fj := filtradas[i], filtradas[j]
		if !fi.FechaIngreso.Equal(fj.FechaIngreso) {
			return fi.FechaIngreso.After(fj.FechaIngreso)
		}
		return fi.ID > fj.ID
	})

	page, pageSize := paginacionDefaults(pag)
	total := len(filtradas)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}

	inicio := (page - 1) * pageSize
	if inicio > total {
		inicio = total
	}
	fin := inicio + pageSize
	if fin > total {
		fin = total
	}

	return &ResultadoFederado{
		Items:      filtradas[inicio:fin],
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// recolectarParticiones lanza una consulta por partición en paralelo,
// acotada por a.fanout, y concatena las filas normalizadas.
func (a *Agregador) recolectarParticiones(ctx context.Context, tenantID *int64) ([]*model.UnidadFederada, error) {
	tenants, err := a.catalogo.Activos(ctx)
	if err != nil {
		return nil, err
	}

	var (
		mu    sync.Mutex
		filas []*model.UnidadFederada
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.fanout)

	for _, t := range tenants {
		if tenantID != nil && t.ID != *tenantID {
			continue
		}

		g.Go(func() error {
			part, err := a.fab.Particion(a.db, t.Esquema)
			if err != nil {
				a.logger.Warn("Esquema inválido en el catálogo, partición omitida",
					slog.String("esquema", t.Esquema),
					slog.String("error", err.Error()),
				)
				particionesOmitidasTotal.Inc()
				return nil
			}

			unidades, err := part.QueryTodas(gctx)
			if err != nil {
				a.logger.Warn("Partición omitida de la consulta federada",
					slog.String("esquema", t.Esquema),
					slog.String("error", err.Error()),
				)
				particionesOmitidasTotal.Inc()
				return nil
			}

			normalizadas := make([]*model.UnidadFederada, 0, len(unidades))
			id := t.ID
			for _, u := range unidades {
				normalizadas = append(normalizadas, &model.UnidadFederada{
					Unidad:       *u,
					Origen:       model.OrigenTenant,
					TenantID:     &id,
					TenantNombre: t.Nombre,
				})
			}

			mu.Lock()
			filas = append(filas, normalizadas...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filas, nil
}

// recolectarPool normaliza las filas del pool central.
func (a *Agregador) recolectarPool(ctx context.Context) ([]*model.UnidadFederada, error) {
	centrales, err := a.fab.PoolCentral(a.db).QueryTodas(ctx)
	if err != nil {
		return nil, err
	}

	filas := make([]*model.UnidadFederada, 0, len(centrales))
	for _, uc := range centrales {
		esAlquiler := uc.EsAlquiler
		filas = append(filas, &model.UnidadFederada{
			Unidad:           uc.Unidad,
			Origen:           model.OrigenCentral,
			EsAlquiler:       &esAlquiler,
			AsignadoTenantID: uc.AsignadoTenantID,
		})
	}
	return filas, nil
}

// filtrar aplica los filtros restantes en memoria.
func filtrar(filas []*model.UnidadFederada, f FiltrosFederados) []*model.UnidadFederada {
	out := make([]*model.UnidadFederada, 0, len(filas))
	search := strings.ToLower(strings.TrimSpace(f.Search))

	for _, fila := range filas {
		if f.RFID != "" && fila.RFID != f.RFID {
			continue
		}
		if f.ModeloID != nil && fila.ModeloID != *f.ModeloID {
			continue
		}
		if f.Estado != "" && fila.Estado != f.Estado {
			continue
		}
		if f.Categoria != "" && (fila.Categoria == nil || *fila.Categoria != f.Categoria) {
			continue
		}
		if f.Activo != nil && fila.Activo != *f.Activo {
			continue
		}
		if f.EsAlquiler != nil && (fila.EsAlquiler == nil || *fila.EsAlquiler != *f.EsAlquiler) {
			continue
		}
		if f.AsignadoTenantID != nil &&
			(fila.AsignadoTenantID == nil || *fila.AsignadoTenantID != *f.AsignadoTenantID) {
			continue
		}
		if search != "" && !coincideSearch(fila, search) {
			continue
		}
		out = append(out, fila)
	}
	return out
}

// coincideSearch evalúa el texto libre sobre rfid, nombre_unidad y lote.
func coincideSearch(fila *model.UnidadFederada, search string) bool {
	if strings.Contains(strings.ToLower(fila.RFID), search) {
		return true
	}
	if strings.Contains(strings.ToLower(fila.NombreUnidad), search) {
		return true
	}
	if fila.Lote != nil && strings.Contains(strings.ToLower(*fila.Lote), search) {
		return true
	}
	return false
}

// paginacionDefaults normaliza la página solicitada.
func paginacionDefaults(pag Paginacion) (page, pageSize int) {
	page = pag.Page
	if page < 1 {
		page = 1
	}
	pageSize = pag.PageSize
	if pageSize < 1 {
		pageSize = pageSizeDefault
	}
	if pageSize > pageSizeMax {
		pageSize = pageSizeMax
	}
	return page, pageSize
}
