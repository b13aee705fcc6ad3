// mocks_test.go — dobles de prueba de la capa de repositorios.
// Cada mock expone campos-función para fijar el comportamiento por test.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/retornaloop/inventario/central-module/internal/domain/model"
	"github.com/retornaloop/inventario/central-module/internal/repository"
)

// testLogger — logger silencioso para los tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Catálogo ---

type mockCatalogoRepo struct {
	ListActivosFn func(ctx context.Context) ([]*model.Tenant, error)
}

func (m *mockCatalogoRepo) ListActivos(ctx context.Context) ([]*model.Tenant, error) {
	return m.ListActivosFn(ctx)
}

// --- Partición ---

type mockParticionRepo struct {
	esquema         string
	EnsureObjetosFn func(ctx context.Context) error
	FindByRFIDFn    func(ctx context.Context, rfid string) (*model.Unidad, error)
	FindActivaFn    func(ctx context.Context, rfid string) (*model.Unidad, error)
	QueryTodasFn    func(ctx context.Context) ([]*model.Unidad, error)
	UpsertFn        func(ctx context.Context, u *model.Unidad) (*model.Unidad, error)
	DesactivarFn    func(ctx context.Context, rfid string) (int64, error)
}

func (m *mockParticionRepo) Esquema() string { return m.esquema }

func (m *mockParticionRepo) EnsureObjetos(ctx context.Context) error {
	if m.EnsureObjetosFn == nil {
		return nil
	}
	return m.EnsureObjetosFn(ctx)
}

func (m *mockParticionRepo) FindByRFID(ctx context.Context, rfid string) (*model.Unidad, error) {
	if m.FindByRFIDFn == nil {
		return nil, repository.ErrNotFound
	}
	return m.FindByRFIDFn(ctx, rfid)
}

func (m *mockParticionRepo) FindActivaByRFID(ctx context.Context, rfid string) (*model.Unidad, error) {
	if m.FindActivaFn == nil {
		return nil, repository.ErrNotFound
	}
	return m.FindActivaFn(ctx, rfid)
}

func (m *mockParticionRepo) QueryTodas(ctx context.Context) ([]*model.Unidad, error) {
	if m.QueryTodasFn == nil {
		return nil, nil
	}
	return m.QueryTodasFn(ctx)
}

func (m *mockParticionRepo) Upsert(ctx context.Context, u *model.Unidad) (*model.Unidad, error) {
	return m.UpsertFn(ctx, u)
}

func (m *mockParticionRepo) Desactivar(ctx context.Context, rfid string) (int64, error) {
	if m.DesactivarFn == nil {
		return 0, nil
	}
	return m.DesactivarFn(ctx, rfid)
}

// --- Pool central ---

type mockPoolRepo struct {
	GetByRFIDFn    func(ctx context.Context, rfid string) (*model.UnidadCentral, error)
	UpsertFn       func(ctx context.Context, uc *model.UnidadCentral) (*model.UnidadCentral, error)
	DeleteFn       func(ctx context.Context, rfid string) (bool, error)
	QueryTodasFn   func(ctx context.Context) ([]*model.UnidadCentral, error)
	BloquearRFIDFn func(ctx context.Context, rfid string) error
}

func (m *mockPoolRepo) GetByRFID(ctx context.Context, rfid string) (*model.UnidadCentral, error) {
	if m.GetByRFIDFn == nil {
		return nil, repository.ErrNotFound
	}
	return m.GetByRFIDFn(ctx, rfid)
}

func (m *mockPoolRepo) Upsert(ctx context.Context, uc *model.UnidadCentral) (*model.UnidadCentral, error) {
	return m.UpsertFn(ctx, uc)
}

func (m *mockPoolRepo) Delete(ctx context.Context, rfid string) (bool, error) {
	if m.DeleteFn == nil {
		return false, nil
	}
	return m.DeleteFn(ctx, rfid)
}

func (m *mockPoolRepo) QueryTodas(ctx context.Context) ([]*model.UnidadCentral, error) {
	if m.QueryTodasFn == nil {
		return nil, nil
	}
	return m.QueryTodasFn(ctx)
}

func (m *mockPoolRepo) BloquearRFID(ctx context.Context, rfid string) error {
	if m.BloquearRFIDFn == nil {
		return nil
	}
	return m.BloquearRFIDFn(ctx, rfid)
}

// --- Historial ---

type mockHistorialRepo struct {
	AppendFn      func(ctx context.Context, e *model.EventoHistorial) error
	QueryByRFIDFn func(ctx context.Context, rfid string, limit int) ([]*model.EventoHistorial, error)
}

func (m *mockHistorialRepo) Append(ctx context.Context, e *model.EventoHistorial) error {
	if m.AppendFn == nil {
		return nil
	}
	return m.AppendFn(ctx, e)
}

func (m *mockHistorialRepo) QueryByRFID(ctx context.Context, rfid string, limit int) ([]*model.EventoHistorial, error) {
	if m.QueryByRFIDFn == nil {
		return nil, nil
	}
	return m.QueryByRFIDFn(ctx, rfid, limit)
}

// --- Fábrica ---

// mockFabrica entrega los mocks fijados, ignorando el DBTX recibido.
// particiones mapea esquema → repositorio de partición.
type mockFabrica struct {
	catalogo    repository.CatalogoRepository
	pool        repository.PoolCentralRepository
	historial   repository.HistorialRepository
	particiones map[string]repository.ParticionRepository
}

func (f *mockFabrica) Catalogo(_ repository.DBTX) repository.CatalogoRepository {
	return f.catalogo
}

func (f *mockFabrica) PoolCentral(_ repository.DBTX) repository.PoolCentralRepository {
	return f.pool
}

func (f *mockFabrica) Particion(_ repository.DBTX, esquema string) (repository.ParticionRepository, error) {
	if err := repository.ValidarEsquema(esquema); err != nil {
		return nil, err
	}
	part, ok := f.particiones[esquema]
	if !ok {
		return nil, fmt.Errorf("partición %s no configurada en el mock", esquema)
	}
	return part, nil
}

func (f *mockFabrica) Historial(_ repository.DBTX) repository.HistorialRepository {
	return f.historial
}

// --- Transactor ---

// mockTransactor ejecuta fn directamente, sin transacción real.
type mockTransactor struct {
	calls int
}

func (m *mockTransactor) RunInTx(_ context.Context, fn func(tx pgx.Tx) error) error {
	m.calls++
	return fn(nil)
}

// --- Datos de prueba ---

func tenantsDePrueba() []*model.Tenant {
	return []*model.Tenant{
		{ID: 7, Nombre: "Verdulería Sur", Esquema: "tenant_verduleria_sur", Activo: true},
		{ID: 9, Nombre: "Cafetería Norte", Esquema: "tenant_cafeteria_norte", Activo: true},
	}
}

func catalogoDePrueba(t *testing.T, tenants []*model.Tenant) *CatalogoCache {
	t.Helper()
	return NewCatalogoCache(&mockCatalogoRepo{
		ListActivosFn: func(context.Context) ([]*model.Tenant, error) {
			return tenants, nil
		},
	})
}

const rfidPrueba = "ABC123DEF456GHI789JKL012"
