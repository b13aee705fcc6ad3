package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/retornaloop/inventario/central-module/internal/domain/model"
)

// fakeRow — pgx.Row de prueba.
type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

// fakeDBTX — DBTX de prueba para ejercitar la sonda de existencia sin base
// de datos. Los campos en nil hacen fallar el test si se llaman.
type fakeDBTX struct {
	t        *testing.T
	queryRow func(sql string, args ...any) pgx.Row
	query    func(sql string, args ...any) (pgx.Rows, error)
}

func (f fakeDBTX) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.t.Fatalf("Exec inesperado: %s", sql)
	return pgconn.CommandTag{}, nil
}

func (f fakeDBTX) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if f.query == nil {
		f.t.Fatalf("Query inesperado: %s", sql)
	}
	return f.query(sql, args...)
}

func (f fakeDBTX) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if f.queryRow == nil {
		f.t.Fatalf("QueryRow inesperado: %s", sql)
	}
	return f.queryRow(sql, args...)
}

// regclassRow simula la respuesta de to_regclass: nil si la tabla no existe.
func regclassRow(nombre *string) pgx.Row {
	return fakeRow{scan: func(dest ...any) error {
		*(dest[0].(**string)) = nombre
		return nil
	}}
}

// TestParticionSinAprovisionarSeLeeVacia — un tenant registrado en el
// catálogo cuya tabla aún no existe se lee como partición vacía: la sonda
// devuelve NULL y la tabla nunca se consulta, así que un escaneo de
// custodios dentro de una transacción no la aborta.
func TestParticionSinAprovisionarSeLeeVacia(t *testing.T) {
	db := fakeDBTX{
		t:        t,
		queryRow: func(sql string, args ...any) pgx.Row { return regclassRow(nil) },
	}
	repo, err := NewParticionRepository(db, "tenant_sonda_vacia")
	if err != nil {
		t.Fatalf("NewParticionRepository() error: %v", err)
	}

	ctx := context.Background()

	unidades, err := repo.QueryTodas(ctx)
	if err != nil {
		t.Fatalf("QueryTodas() error: %v", err)
	}
	if len(unidades) != 0 {
		t.Errorf("QueryTodas() = %d unidades, esperadas 0", len(unidades))
	}

	if _, err := repo.FindActivaByRFID(ctx, rfidTest); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindActivaByRFID() error = %v, esperado ErrNotFound", err)
	}
	if _, err := repo.FindByRFID(ctx, rfidTest); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByRFID() error = %v, esperado ErrNotFound", err)
	}
}

// TestParticionTablaDesaparecida — si la tabla desaparece entre la sonda y
// la consulta (drop concurrente), 42P01 y 3F000 se tratan como partición
// vacía en lugar de propagarse.
func TestParticionTablaDesaparecida(t *testing.T) {
	for _, codigo := range []string{"42P01", "3F000"} {
		nombre := "tenant_sonda_caida.inventario_unidades"
		db := fakeDBTX{
			t:        t,
			queryRow: func(sql string, args ...any) pgx.Row { return regclassRow(&nombre) },
			query: func(sql string, args ...any) (pgx.Rows, error) {
				return nil, &pgconn.PgError{Code: codigo}
			},
		}
		repo, err := NewParticionRepository(db, "tenant_sonda_caida")
		if err != nil {
			t.Fatalf("NewParticionRepository() error: %v", err)
		}
		// La sonda cachea sólo la presencia; se limpia entre códigos para
		// que cada iteración vuelva a consultarla.
		tablasConfirmadas.Remove("tenant_sonda_caida")

		unidades, err := repo.QueryTodas(context.Background())
		if err != nil {
			t.Fatalf("QueryTodas() con %s error: %v", codigo, err)
		}
		if len(unidades) != 0 {
			t.Errorf("QueryTodas() con %s = %d unidades, esperadas 0", codigo, len(unidades))
		}
	}
}

// TestParticionSinObjetos — contra PostgreSQL real: las lecturas de una
// partición registrada pero sin aprovisionar devuelven vacío, y el primer
// EnsureObjetos la deja operativa.
func TestParticionSinObjetos(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	repo, err := NewParticionRepository(pool, "tenant_sin_objetos")
	if err != nil {
		t.Fatalf("NewParticionRepository() error: %v", err)
	}

	unidades, err := repo.QueryTodas(ctx)
	if err != nil {
		t.Fatalf("QueryTodas() sin objetos error: %v", err)
	}
	if len(unidades) != 0 {
		t.Fatalf("QueryTodas() sin objetos = %d unidades, esperadas 0", len(unidades))
	}
	if _, err := repo.FindActivaByRFID(ctx, rfidTest); !errors.Is(err, ErrNotFound) {
		t.Fatalf("FindActivaByRFID() sin objetos error = %v, esperado ErrNotFound", err)
	}

	if err := repo.EnsureObjetos(ctx); err != nil {
		t.Fatalf("EnsureObjetos() error: %v", err)
	}
	u := &model.Unidad{
		RFID:         rfidTest,
		ModeloID:     10,
		NombreUnidad: "Envase retornable 1L",
		Estado:       "disponible",
	}
	if _, err := repo.Upsert(ctx, u); err != nil {
		t.Fatalf("Upsert() tras EnsureObjetos error: %v", err)
	}
	if _, err := repo.FindActivaByRFID(ctx, rfidTest); err != nil {
		t.Fatalf("FindActivaByRFID() tras aprovisionar error: %v", err)
	}
}
