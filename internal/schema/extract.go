package schema

import (
	"context"
	"fmt"

	"github.com/dkovalev/schemalens/internal/database"
	"github.com/dkovalev/schemalens/internal/database/postgres"
	"github.com/dkovalev/schemalens/internal/errs"
	"github.com/dkovalev/schemalens/internal/logger"
)

// ConnectFunc opens a read-only connection to a database.
type ConnectFunc func(ctx context.Context, cfg *database.Config) (database.Reader, error)

// Extractor reads the Postgres catalog and builds a Model. Each Extract call
// opens exactly one connection and closes it before returning, on every exit
// path. Nothing is cached between calls.
type Extractor struct {
	connect ConnectFunc
	log     *logger.Logger
}

// NewExtractor returns an Extractor backed by the pgx driver.
func NewExtractor(log *logger.Logger) *Extractor {
	return NewExtractorFunc(func(ctx context.Context, cfg *database.Config) (database.Reader, error) {
		return postgres.Connect(ctx, cfg)
	}, log)
}

// NewExtractorFunc returns an Extractor with a custom connector. Tests use
// this to substitute a fake catalog.
func NewExtractorFunc(connect ConnectFunc, log *logger.Logger) *Extractor {
	return &Extractor{connect: connect, log: log}
}

// Extract introspects the database described by cfg and returns a new Model.
// Any failure aborts the whole extraction — no partial model is ever returned.
func (e *Extractor) Extract(ctx context.Context, cfg *database.Config) (*Model, error) {
	r, err := e.connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	m, err := e.extract(ctx, r)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "catalog returned an inconsistent schema", err)
	}

	e.log.With().
		Int("tables", len(m.Tables)).
		Int("foreign_keys", len(m.ForeignKeys)).
		Logger().
		Info("schema extracted")

	return m, nil
}

// listTablesSQL lists base tables outside the engine's internal schemas,
// ordered by schema then table name. That order fixes Model.Tables and the
// per-table query sequence below.
const listTablesSQL = `
	SELECT table_schema, table_name
	FROM information_schema.tables
	WHERE table_schema NOT IN ('information_schema', 'pg_catalog', 'pg_toast')
	  AND table_type = 'BASE TABLE'
	ORDER BY table_schema, table_name`

const listColumnsSQL = `
	SELECT column_name, data_type, is_nullable = 'YES', ordinal_position
	FROM information_schema.columns
	WHERE table_schema = $1 AND table_name = $2
	ORDER BY ordinal_position`

const listPrimaryKeysSQL = `
	SELECT ccu.column_name
	FROM information_schema.table_constraints tc
	JOIN information_schema.constraint_column_usage ccu
	  ON tc.constraint_name = ccu.constraint_name
	 AND tc.table_schema    = ccu.table_schema
	WHERE tc.constraint_type = 'PRIMARY KEY'
	  AND tc.table_schema    = $1
	  AND tc.table_name      = $2`

// listForeignKeysSQL resolves, per FK constraint on the table, the local
// column and the schema-qualified referenced table and column. A composite
// constraint yields one row per column pair.
const listForeignKeysSQL = `
	SELECT
		kcu.column_name,
		ccu.table_schema AS foreign_schema,
		ccu.table_name   AS foreign_table,
		ccu.column_name  AS foreign_column
	FROM information_schema.table_constraints tc
	JOIN information_schema.key_column_usage kcu
	  ON tc.constraint_name = kcu.constraint_name
	 AND tc.table_schema    = kcu.table_schema
	JOIN information_schema.constraint_column_usage ccu
	  ON ccu.constraint_name = tc.constraint_name
	WHERE tc.constraint_type = 'FOREIGN KEY'
	  AND tc.table_schema    = $1
	  AND tc.table_name      = $2`

const listIndexesSQL = `
	SELECT indexname, indexdef
	FROM pg_indexes
	WHERE schemaname = $1 AND tablename = $2`

// qualifiedTable pairs the raw schema and table names with the qualified
// "schema.table" identifier used everywhere in the model.
type qualifiedTable struct {
	schema, table, qualified string
}

func (e *Extractor) extract(ctx context.Context, r database.Reader) (*Model, error) {
	tables, err := e.listTables(ctx, r)
	if err != nil {
		return nil, err
	}

	m := &Model{
		Tables:      make([]string, 0, len(tables)),
		Columns:     make(map[string][]ColumnInfo, len(tables)),
		PrimaryKeys: make(map[string]map[string]bool, len(tables)),
		Indexes:     make(map[string][]IndexInfo, len(tables)),
	}

	for _, t := range tables {
		m.Tables = append(m.Tables, t.qualified)

		cols, err := e.listColumns(ctx, r, t)
		if err != nil {
			return nil, err
		}
		m.Columns[t.qualified] = cols

		pks, err := e.listPrimaryKeys(ctx, r, t)
		if err != nil {
			return nil, err
		}
		if len(pks) > 0 {
			m.PrimaryKeys[t.qualified] = pks
		}

		fks, err := e.listForeignKeys(ctx, r, t)
		if err != nil {
			return nil, err
		}
		m.ForeignKeys = append(m.ForeignKeys, fks...)

		idxs, err := e.listIndexes(ctx, r, t)
		if err != nil {
			return nil, err
		}
		m.Indexes[t.qualified] = idxs
	}

	return m, nil
}

func (e *Extractor) listTables(ctx context.Context, r database.Reader) ([]qualifiedTable, error) {
	rows, err := r.Query(ctx, listTablesSQL)
	if err != nil {
		return nil, wrapQuery("list tables", err)
	}
	defer rows.Close()

	var tables []qualifiedTable
	for rows.Next() {
		var schema, table string
		if err := rows.Scan(&schema, &table); err != nil {
			return nil, wrapQuery("scan table name", err)
		}
		tables = append(tables, qualifiedTable{
			schema:    schema,
			table:     table,
			qualified: schema + "." + table,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQuery("iterate tables", err)
	}
	return tables, nil
}

func (e *Extractor) listColumns(ctx context.Context, r database.Reader, t qualifiedTable) ([]ColumnInfo, error) {
	rows, err := r.Query(ctx, listColumnsSQL, t.schema, t.table)
	if err != nil {
		return nil, wrapQuery(fmt.Sprintf("list columns of %s", t.qualified), err)
	}
	defer rows.Close()

	var cols []ColumnInfo
	for rows.Next() {
		var c ColumnInfo
		if err := rows.Scan(&c.Name, &c.DataType, &c.Nullable, &c.Position); err != nil {
			return nil, wrapQuery("scan column", err)
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQuery(fmt.Sprintf("iterate columns of %s", t.qualified), err)
	}
	return cols, nil
}

func (e *Extractor) listPrimaryKeys(ctx context.Context, r database.Reader, t qualifiedTable) (map[string]bool, error) {
	rows, err := r.Query(ctx, listPrimaryKeysSQL, t.schema, t.table)
	if err != nil {
		return nil, wrapQuery(fmt.Sprintf("list primary keys of %s", t.qualified), err)
	}
	defer rows.Close()

	pks := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, wrapQuery("scan primary key column", err)
		}
		pks[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQuery(fmt.Sprintf("iterate primary keys of %s", t.qualified), err)
	}
	return pks, nil
}

func (e *Extractor) listForeignKeys(ctx context.Context, r database.Reader, t qualifiedTable) ([]ForeignKeyEdge, error) {
	rows, err := r.Query(ctx, listForeignKeysSQL, t.schema, t.table)
	if err != nil {
		return nil, wrapQuery(fmt.Sprintf("list foreign keys of %s", t.qualified), err)
	}
	defer rows.Close()

	var fks []ForeignKeyEdge
	for rows.Next() {
		var fromCol, toSchema, toTable, toCol string
		if err := rows.Scan(&fromCol, &toSchema, &toTable, &toCol); err != nil {
			return nil, wrapQuery("scan foreign key", err)
		}
		fks = append(fks, ForeignKeyEdge{
			FromTable:  t.qualified,
			FromColumn: fromCol,
			ToTable:    toSchema + "." + toTable,
			ToColumn:   toCol,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQuery(fmt.Sprintf("iterate foreign keys of %s", t.qualified), err)
	}
	return fks, nil
}

func (e *Extractor) listIndexes(ctx context.Context, r database.Reader, t qualifiedTable) ([]IndexInfo, error) {
	rows, err := r.Query(ctx, listIndexesSQL, t.schema, t.table)
	if err != nil {
		return nil, wrapQuery(fmt.Sprintf("list indexes of %s", t.qualified), err)
	}
	defer rows.Close()

	var idxs []IndexInfo
	for rows.Next() {
		var idx IndexInfo
		if err := rows.Scan(&idx.Name, &idx.Definition); err != nil {
			return nil, wrapQuery("scan index", err)
		}
		idxs = append(idxs, idx)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQuery(fmt.Sprintf("iterate indexes of %s", t.qualified), err)
	}
	return idxs, nil
}

// wrapQuery tags an error as a catalog query failure unless the driver
// already classified it (connection drop mid-extraction, timeout, …).
func wrapQuery(msg string, err error) error {
	if errs.IsConnectionFailed(err) || errs.IsTimeout(err) || errs.IsQueryFailed(err) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}
