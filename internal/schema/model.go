package schema

import (
	"strings"
	"time"
)

// Snapshot is the table/column metadata of one connection captured at FetchedAt.
// Snapshots are fetched fresh for every validation pass and never persisted.
type Snapshot struct {
	ConnectionID string    `json:"connectionId"`
	Tables       []*Table  `json:"tables"`
	FetchedAt    time.Time `json:"fetchedAt"`
}

type Table struct {
	Schema  string    `json:"schema"`
	Name    string    `json:"name"`
	Columns []*Column `json:"columns"`
}

type Column struct {
	Name       string `json:"name"`
	DataType   string `json:"type"`
	IsNullable bool   `json:"nullable"`
	IsPK       bool   `json:"primaryKey"`
}

// QualifiedName returns schema.table, or the bare name when no schema is known.
func (t *Table) QualifiedName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// Column looks up a column by case-insensitive name.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// PrimaryKeys returns the primary key column names in declaration order.
func (t *Table) PrimaryKeys() []string {
	var keys []string
	for _, c := range t.Columns {
		if c.IsPK {
			keys = append(keys, c.Name)
		}
	}
	return keys
}

// FindTable returns the first table whose name matches case-insensitively.
// An empty schemaName matches any schema.
func (s *Snapshot) FindTable(schemaName, table string) *Table {
	if s == nil {
		return nil
	}
	for _, t := range s.Tables {
		if !strings.EqualFold(t.Name, table) {
			continue
		}
		if schemaName != "" && !strings.EqualFold(t.Schema, schemaName) {
			continue
		}
		return t
	}
	return nil
}

// ColumnCount is the total number of columns across all tables.
func (s *Snapshot) ColumnCount() int {
	n := 0
	for _, t := range s.Tables {
		n += len(t.Columns)
	}
	return n
}
