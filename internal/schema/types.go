// Package schema holds the in-memory representation of an introspected
// database and the extractor that builds it from the Postgres catalog.
package schema

// ColumnInfo describes a single column in a table.
type ColumnInfo struct {
	Name     string `json:"name"`
	DataType string `json:"type"` // raw catalog type string: text, integer, timestamptz, …
	Nullable bool   `json:"nullable"`
	Position int    `json:"position"` // 1-based catalog ordinal, defines display order
}

// ForeignKeyEdge is a directed "references" relationship between two tables.
// Multiple edges between the same table pair are permitted (composite or
// multiple FK constraints) and are all preserved.
type ForeignKeyEdge struct {
	FromTable  string `json:"from_table"`
	FromColumn string `json:"from_column"`
	ToTable    string `json:"to_table"`
	ToColumn   string `json:"to_column"`
}

// IndexInfo is a name/definition pair from pg_indexes. The definition is an
// opaque catalog string, rendered verbatim.
type IndexInfo struct {
	Name       string `json:"name"`
	Definition string `json:"definition"`
}

// Model is the full introspected schema. It is built wholly by one extraction
// call and never mutated afterwards — a new extraction produces a new Model.
//
// Table identifiers are schema-qualified ("schema.table") and unique. A table
// absent from PrimaryKeys means "no primary key known", not an error. Foreign
// key endpoints may reference tables outside Tables (cross-schema references
// into excluded system schemas); renderers tolerate such unresolved nodes.
type Model struct {
	// Tables is sorted by schema name then table name.
	Tables []string `json:"tables"`

	// Columns maps a qualified table name to its columns, sorted strictly
	// ascending by Position.
	Columns map[string][]ColumnInfo `json:"columns"`

	// PrimaryKeys maps a qualified table name to the set of its PK columns.
	PrimaryKeys map[string]map[string]bool `json:"primary_keys"`

	// ForeignKeys holds every FK edge in extraction order.
	ForeignKeys []ForeignKeyEdge `json:"foreign_keys"`

	// Indexes maps a qualified table name to its index definitions.
	Indexes map[string][]IndexInfo `json:"indexes"`
}
