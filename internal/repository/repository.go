// Paquete repository — capa de acceso a datos PostgreSQL.
// Todas las consultas son SQL puro vía pgx, sin ORM. Los identificadores de
// esquema se validan contra una allow-list estricta antes de interpolarse.
package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Errores de la capa de repositorios.
var (
	// ErrNotFound — registro no encontrado.
	ErrNotFound = errors.New("registro no encontrado")
	// ErrConflict — conflicto de unicidad (recurso duplicado).
	ErrConflict = errors.New("conflicto — el registro ya existe")
	// ErrEsquemaInvalido — identificador de partición fuera de la allow-list.
	ErrEsquemaInvalido = errors.New("identificador de esquema inválido")
)

// EsquemaReservado — esquema plantilla excluido de toda operación de partición.
const EsquemaReservado = "tenant_admin"

// esquemaPattern — convención de nombres de particiones: tenant_<slug>.
var esquemaPattern = regexp.MustCompile(`^tenant_[a-z0-9_]{1,48}$`)

// ValidarEsquema verifica que el identificador de partición cumpla la
// convención tenant_<slug> y no sea el esquema reservado. Es la única
// puerta por la que un nombre de esquema llega a una sentencia SQL.
func ValidarEsquema(esquema string) error {
	if !esquemaPattern.MatchString(esquema) {
		return fmt.Errorf("%w: %q", ErrEsquemaInvalido, esquema)
	}
	if esquema == EsquemaReservado {
		return fmt.Errorf("%w: %q es un esquema reservado", ErrEsquemaInvalido, esquema)
	}
	return nil
}

// DBTX — interfaz para ejecutar consultas SQL.
// La implementan tanto *pgxpool.Pool como pgx.Tx, lo que permite usar los
// repositorios dentro y fuera de transacciones.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxRunner permite ejecutar operaciones dentro de una transacción.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner crea un TxRunner sobre el pool de conexiones.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunInTx ejecuta fn dentro de una transacción.
// Si fn devuelve error, la transacción se revierte completa; si no, se
// confirma. Ningún estado parcial es observable fuera de la transacción.
func (r *TxRunner) RunInTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error al iniciar la transacción: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback tras commit es no-op

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Fabrica construye repositorios ligados a un DBTX concreto (pool o tx).
// El coordinador de reasignaciones la usa para obtener repositorios ligados
// a la transacción en curso.
type Fabrica interface {
	Catalogo(db DBTX) CatalogoRepository
	PoolCentral(db DBTX) PoolCentralRepository
	Particion(db DBTX, esquema string) (ParticionRepository, error)
	Historial(db DBTX) HistorialRepository
}

// fabricaPG — implementación PostgreSQL de Fabrica.
type fabricaPG struct{}

// NewFabrica crea la fábrica de repositorios PostgreSQL.
func NewFabrica() Fabrica {
	return fabricaPG{}
}

func (fabricaPG) Catalogo(db DBTX) CatalogoRepository {
	return NewCatalogoRepository(db)
}

func (fabricaPG) PoolCentral(db DBTX) PoolCentralRepository {
	return NewPoolCentralRepository(db)
}

func (fabricaPG) Particion(db DBTX, esquema string) (ParticionRepository, error) {
	return NewParticionRepository(db, esquema)
}

func (fabricaPG) Historial(db DBTX) HistorialRepository {
	return NewHistorialRepository(db)
}

// isUniqueViolation verifica si el error es una violación de unicidad de PostgreSQL.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

// isObjetoAusente verifica si el error es una tabla (42P01) o un esquema
// (3F000) inexistente. Lo dispara una partición registrada en el catálogo
// cuyos objetos todavía no fueron aprovisionados; para las lecturas equivale
// a una partición vacía.
func isObjetoAusente(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "42P01" || pgErr.Code == "3F000"
	}
	return false
}

// isUndefinedColumn verifica si el error es una columna inexistente (42703).
// Lo dispara una partición con esquema desfasado que aún no tiene alguna
// columna opcional; la lectura se recupera con una consulta más estrecha.
func isUndefinedColumn(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "42703" // undefined_column
	}
	return false
}
