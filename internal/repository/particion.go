package repository

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jackc/pgx/v5"

	"github.com/retornaloop/inventario/central-module/internal/domain/model"
)

// Cachés de proceso sobre la forma de las particiones. Se pueblan en el
// primer uso por partición y no se invalidan nunca: las particiones se
// aprovisionan rara vez y el único trigger de refresco es el reinicio
// del proceso.
var (
	// objetosAsegurados — esquemas cuya tabla e índice ya fueron verificados.
	objetosAsegurados = mustLRU(512)
	// columnasAusentes — esquemas donde la columna opcional fecha_vencimiento
	// no existe; evita repetir la consulta amplia que va a fallar.
	columnasAusentes = mustLRU(512)
	// tablasConfirmadas — esquemas cuya tabla se comprobó que existe.
	// Sólo se cachea la presencia: la ausencia puede resolverse en cualquier
	// momento con EnsureObjetos y no debe quedar pegada.
	tablasConfirmadas = mustLRU(512)
)

func mustLRU(size int) *lru.Cache[string, bool] {
	c, err := lru.New[string, bool](size)
	if err != nil {
		panic(err)
	}
	return c
}

// LimpiarCachesDeParticion vacía las cachés de proceso sobre la forma de
// las particiones. El ciclo de vida normal nunca las invalida; sólo los
// tests que levantan bases de datos nuevas dentro del mismo proceso lo
// necesitan.
func LimpiarCachesDeParticion() {
	objetosAsegurados.Purge()
	columnasAusentes.Purge()
	tablasConfirmadas.Purge()
}

// ParticionRepository — acceso a la tabla inventario_unidades de una
// partición de tenant. Cada instancia queda ligada a un esquema validado;
// la misma forma lógica existe en todas las particiones.
type ParticionRepository interface {
	// Esquema devuelve el identificador de la partición.
	Esquema() string
	// EnsureObjetos garantiza que la tabla, el índice y la columna opcional
	// existen antes de escribir en la partición.
	EnsureObjetos(ctx context.Context) error
	// FindByRFID devuelve cualquier fila con ese rfid, activa o no.
	FindByRFID(ctx context.Context, rfid string) (*model.Unidad, error)
	// FindActivaByRFID devuelve la fila activa con ese rfid.
	FindActivaByRFID(ctx context.Context, rfid string) (*model.Unidad, error)
	// QueryTodas devuelve todas las filas de la partición (scan-merge federado).
	QueryTodas(ctx context.Context) ([]*model.Unidad, error)
	// Upsert inserta o reactiva la fila del rfid preservando fecha_ingreso.
	Upsert(ctx context.Context, u *model.Unidad) (*model.Unidad, error)
	// Desactivar marca activo=false; devuelve cuántas filas cambió.
	Desactivar(ctx context.Context, rfid string) (int64, error)
}

// particionRepo — implementación de ParticionRepository.
type particionRepo struct {
	db      DBTX
	esquema string
	// tabla — identificador ya saneado "esquema"."inventario_unidades"
	tabla string
}

// NewParticionRepository crea el repositorio de una partición.
// Rechaza esquemas fuera de la convención tenant_<slug> y el reservado.
func NewParticionRepository(db DBTX, esquema string) (ParticionRepository, error) {
	if err := ValidarEsquema(esquema); err != nil {
		return nil, err
	}
	return &particionRepo{
		db:      db,
		esquema: esquema,
		tabla:   pgx.Identifier{esquema, "inventario_unidades"}.Sanitize(),
	}, nil
}

func (r *particionRepo) Esquema() string {
	return r.esquema
}

func (r *particionRepo) EnsureObjetos(ctx context.Context) error {
	if ok, _ := objetosAsegurados.Get(r.esquema); ok {
		return nil
	}

	stmts := []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, pgx.Identifier{r.esquema}.Sanitize()),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id                   BIGSERIAL PRIMARY KEY,
				rfid                 CHAR(24) NOT NULL UNIQUE,
				modelo_id            BIGINT NOT NULL,
				nombre_unidad        TEXT NOT NULL DEFAULT '',
				lote                 TEXT,
				estado               TEXT NOT NULL DEFAULT 'disponible',
				sub_estado           TEXT,
				categoria            TEXT,
				activo               BOOLEAN NOT NULL DEFAULT TRUE,
				fecha_ingreso        TIMESTAMPTZ NOT NULL DEFAULT now(),
				ultima_actualizacion TIMESTAMPTZ NOT NULL DEFAULT now()
			)`, r.tabla),
		fmt.Sprintf(`ALTER TABLE %s ADD COLUMN IF NOT EXISTS fecha_vencimiento TIMESTAMPTZ`, r.tabla),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (activo)`,
			pgx.Identifier{"idx_" + r.esquema + "_unidades_activo"}.Sanitize(), r.tabla),
	}
	for _, stmt := range stmts {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("error al asegurar objetos de %s: %w", r.esquema, err)
		}
	}

	objetosAsegurados.Add(r.esquema, true)
	tablasConfirmadas.Add(r.esquema, true)
	// Tras asegurar, la columna opcional ya existe.
	columnasAusentes.Remove(r.esquema)
	return nil
}

// tablaExiste comprueba con to_regclass si la tabla de la partición ya fue
// aprovisionada. Un tenant recién registrado en el catálogo no tiene objetos
// hasta su primera reasignación entrante; consultarla directamente daría
// 42P01 y, dentro de una transacción, la abortaría. La sonda no falla nunca
// por ausencia, así que el escaneo de custodios puede correr en la misma
// transacción que el movimiento.
func (r *particionRepo) tablaExiste(ctx context.Context) (bool, error) {
	if ok, _ := tablasConfirmadas.Get(r.esquema); ok {
		return true, nil
	}

	var reg *string
	err := r.db.QueryRow(ctx, `SELECT to_regclass($1)::text`,
		r.esquema+".inventario_unidades").Scan(&reg)
	if err != nil {
		return false, fmt.Errorf("error al comprobar la tabla de %s: %w", r.esquema, err)
	}
	if reg == nil {
		return false, nil
	}

	tablasConfirmadas.Add(r.esquema, true)
	return true, nil
}

// columnasBase — columnas presentes en toda partición, drift incluido.
const columnasBase = `id, rfid, modelo_id, nombre_unidad, lote, estado, sub_estado,
		categoria, activo, fecha_ingreso, ultima_actualizacion`

// selectSQL arma el SELECT según la partición tenga o no la columna opcional.
func (r *particionRepo) selectSQL(where string) string {
	vencimiento := "fecha_vencimiento"
	if ausente, _ := columnasAusentes.Get(r.esquema); ausente {
		vencimiento = "NULL::timestamptz AS fecha_vencimiento"
	}
	return fmt.Sprintf("SELECT %s, %s FROM %s %s", columnasBase, vencimiento, r.tabla, where)
}

// queryUnidades ejecuta la consulta amplia y, ante una columna inexistente
// (42703, partición con esquema desfasado), registra la ausencia en la caché
// de proceso y reintenta con la consulta estrecha en lugar de fallar.
// Una partición sin objetos aprovisionados se lee como vacía.
func (r *particionRepo) queryUnidades(ctx context.Context, where string, args ...any) ([]*model.Unidad, error) {
	if existe, err := r.tablaExiste(ctx); err != nil {
		return nil, err
	} else if !existe {
		return nil, nil
	}

	rows, err := r.db.Query(ctx, r.selectSQL(where), args...)
	if err != nil {
		if isObjetoAusente(err) {
			return nil, nil
		}
		if !isUndefinedColumn(err) {
			return nil, fmt.Errorf("error al consultar %s: %w", r.esquema, err)
		}
		columnasAusentes.Add(r.esquema, true)
		rows, err = r.db.Query(ctx, r.selectSQL(where), args...)
		if err != nil {
			return nil, fmt.Errorf("error en la consulta de respaldo de %s: %w", r.esquema, err)
		}
	}
	defer rows.Close()

	var result []*model.Unidad
	for rows.Next() {
		u := &model.Unidad{}
		if err := rows.Scan(
			&u.ID, &u.RFID, &u.ModeloID, &u.NombreUnidad, &u.Lote, &u.Estado,
			&u.SubEstado, &u.Categoria, &u.Activo, &u.FechaIngreso,
			&u.UltimaActualizacion, &u.FechaVencimiento,
		); err != nil {
			return nil, fmt.Errorf("error al escanear unidad de %s: %w", r.esquema, err)
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func (r *particionRepo) FindByRFID(ctx context.Context, rfid string) (*model.Unidad, error) {
	unidades, err := r.queryUnidades(ctx, "WHERE rfid = $1", rfid)
	if err != nil {
		return nil, err
	}
	if len(unidades) == 0 {
		return nil, ErrNotFound
	}
	return unidades[0], nil
}

func (r *particionRepo) FindActivaByRFID(ctx context.Context, rfid string) (*model.Unidad, error) {
	unidades, err := r.queryUnidades(ctx, "WHERE rfid = $1 AND activo", rfid)
	if err != nil {
		return nil, err
	}
	if len(unidades) == 0 {
		return nil, ErrNotFound
	}
	return unidades[0], nil
}

func (r *particionRepo) QueryTodas(ctx context.Context) ([]*model.Unidad, error) {
	return r.queryUnidades(ctx, "")
}

func (r *particionRepo) Upsert(ctx context.Context, u *model.Unidad) (*model.Unidad, error) {
	// fecha_ingreso se preserva con COALESCE: la primera alta sobrevive
	// a cualquier movimiento posterior del envase.
	query := fmt.Sprintf(`
		INSERT INTO %s AS iu (rfid, modelo_id, nombre_unidad, lote, estado, sub_estado,
			categoria, activo, fecha_ingreso, ultima_actualizacion, fecha_vencimiento)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, COALESCE($8::timestamptz, now()), now(), $9)
		ON CONFLICT (rfid) DO UPDATE SET
			modelo_id            = EXCLUDED.modelo_id,
			nombre_unidad        = EXCLUDED.nombre_unidad,
			lote                 = EXCLUDED.lote,
			estado               = EXCLUDED.estado,
			sub_estado           = EXCLUDED.sub_estado,
			categoria            = EXCLUDED.categoria,
			activo               = TRUE,
			fecha_ingreso        = COALESCE(iu.fecha_ingreso, EXCLUDED.fecha_ingreso),
			ultima_actualizacion = now(),
			fecha_vencimiento    = EXCLUDED.fecha_vencimiento
		RETURNING id, rfid, modelo_id, nombre_unidad, lote, estado, sub_estado,
			categoria, activo, fecha_ingreso, ultima_actualizacion, fecha_vencimiento`,
		r.tabla)

	var fechaIngreso any
	if !u.FechaIngreso.IsZero() {
		fechaIngreso = u.FechaIngreso
	}

	out := &model.Unidad{}
	err := r.db.QueryRow(ctx, query,
		u.RFID, u.ModeloID, u.NombreUnidad, u.Lote, u.Estado, u.SubEstado,
		u.Categoria, fechaIngreso, u.FechaVencimiento,
	).Scan(
		&out.ID, &out.RFID, &out.ModeloID, &out.NombreUnidad, &out.Lote,
		&out.Estado, &out.SubEstado, &out.Categoria, &out.Activo,
		&out.FechaIngreso, &out.UltimaActualizacion, &out.FechaVencimiento,
	)
	if err != nil {
		return nil, fmt.Errorf("error al upsert en %s: %w", r.esquema, err)
	}
	return out, nil
}

func (r *particionRepo) Desactivar(ctx context.Context, rfid string) (int64, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET activo = FALSE, ultima_actualizacion = now()
		WHERE rfid = $1 AND activo`, r.tabla)

	tag, err := r.db.Exec(ctx, query, rfid)
	if err != nil {
		return 0, fmt.Errorf("error al desactivar en %s: %w", r.esquema, err)
	}
	return tag.RowsAffected(), nil
}
