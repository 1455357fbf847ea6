package schema

import (
	"fmt"
)

// HasTable reports whether the qualified name is part of the extracted set.
func (m *Model) HasTable(name string) bool {
	for _, t := range m.Tables {
		if t == name {
			return true
		}
	}
	return false
}

// ColumnCount returns the number of columns known for the table.
// Unresolved tables (FK targets outside the extracted set) count zero.
func (m *Model) ColumnCount(table string) int {
	return len(m.Columns[table])
}

// IsPrimaryKey reports whether col is part of the table's primary key.
func (m *Model) IsPrimaryKey(table, col string) bool {
	return m.PrimaryKeys[table][col]
}

// TableStats summarises one table for the dashboard's analysis view.
type TableStats struct {
	Table       string `json:"table"`
	Columns     int    `json:"columns"`
	PKColumns   int    `json:"pk_columns"`
	ForeignKeys int    `json:"foreign_keys"`
	Indexes     int    `json:"indexes"`
}

// Stats holds per-table summaries plus model totals.
type Stats struct {
	TableCount      int          `json:"table_count"`
	ForeignKeyCount int          `json:"foreign_key_count"`
	Tables          []TableStats `json:"tables"`
}

// ComputeStats builds the tabular summary of the model: per-table counts of
// columns, primary-key columns, outgoing foreign keys, and indexes.
func (m *Model) ComputeStats() *Stats {
	outgoing := make(map[string]int, len(m.Tables))
	for _, fk := range m.ForeignKeys {
		outgoing[fk.FromTable]++
	}

	stats := &Stats{
		TableCount:      len(m.Tables),
		ForeignKeyCount: len(m.ForeignKeys),
		Tables:          make([]TableStats, 0, len(m.Tables)),
	}
	for _, t := range m.Tables {
		stats.Tables = append(stats.Tables, TableStats{
			Table:       t,
			Columns:     len(m.Columns[t]),
			PKColumns:   len(m.PrimaryKeys[t]),
			ForeignKeys: outgoing[t],
			Indexes:     len(m.Indexes[t]),
		})
	}
	return stats
}

// Validate checks the model invariants:
//   - qualified table names are unique,
//   - columns are sorted strictly ascending by position,
//   - every primary-key column exists in the table's column list.
//
// The extractor calls this before returning a model to the caller.
func (m *Model) Validate() error {
	seen := make(map[string]bool, len(m.Tables))
	for _, t := range m.Tables {
		if seen[t] {
			return fmt.Errorf("duplicate table %q", t)
		}
		seen[t] = true
	}

	for t, cols := range m.Columns {
		names := make(map[string]bool, len(cols))
		prev := 0
		for _, c := range cols {
			if c.Position <= prev {
				return fmt.Errorf("table %q: column %q position %d not strictly increasing", t, c.Name, c.Position)
			}
			prev = c.Position
			names[c.Name] = true
		}
		for pk := range m.PrimaryKeys[t] {
			if !names[pk] {
				return fmt.Errorf("table %q: primary key column %q not in column list", t, pk)
			}
		}
	}
	return nil
}
