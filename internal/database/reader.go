// Package database defines the read-only contract between the catalog
// extractor and the concrete database drivers. Layers above this package
// never import the postgres package directly.
package database

import "context"

// Row represents a single result row.
type Row interface {
	Scan(dest ...any) error
}

// Rows represents multiple result rows.
// Callers must always call Close() when done, even on error.
type Rows interface {
	// Next advances to the next row. Returns false when no more rows exist
	// or on error.
	Next() bool

	// Scan copies the current row's columns into the provided destinations.
	Scan(dest ...any) error

	// Close releases resources held by the result set.
	Close()

	// Err returns any error encountered during iteration.
	Err() error
}

// Reader is the read-only connection interface all drivers must implement.
// Schema introspection only ever issues SELECT statements.
type Reader interface {
	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error

	// Query executes a SQL statement that returns multiple rows.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)

	// QueryRow executes a SQL statement that returns at most one row.
	QueryRow(ctx context.Context, sql string, args ...any) Row

	// Close releases all resources held by the connection.
	Close()
}
