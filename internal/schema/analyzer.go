package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"etl-verify/internal/dialect"
)

// ---------------------------------------------------------------------
// Schema Analysis Logic
// ---------------------------------------------------------------------

// Analyze reads table and column metadata for schemaName into a Snapshot.
// An empty schemaName resolves to the session's current schema.
func Analyze(ctx context.Context, db *sql.DB, d dialect.Dialect, schemaName string) (*Snapshot, error) {
	target, err := resolveSchema(ctx, db, d, schemaName)
	if err != nil {
		return nil, err
	}

	// Use map for O(1) lookups, with normalized keys for case-insensitive matching (Oracle support)
	tableMap := make(map[string]*Table)
	snap := &Snapshot{FetchedAt: time.Now().UTC()}

	// --- Step 1: Fetch Tables ---
	rows, err := db.QueryContext(ctx, d.GetTablesQuery(target), target)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var schemaCol, name sql.NullString
		if err := rows.Scan(&schemaCol, &name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		if !name.Valid {
			continue
		}
		t := &Table{Schema: schemaCol.String, Name: name.String}
		tableMap[tableKey(t.Schema, t.Name)] = t
		snap.Tables = append(snap.Tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}

	// --- Step 2: Fetch Columns ---
	colRows, err := db.QueryContext(ctx, d.GetColumnsQuery(target), target)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer colRows.Close()

	for colRows.Next() {
		var sName, tName, cName, dType, isNull, cKey sql.NullString
		if err := colRows.Scan(&sName, &tName, &cName, &dType, &isNull, &cKey); err != nil {
			return nil, fmt.Errorf("failed to scan column (table: %s): %w", tName.String, err)
		}

		if !tName.Valid || !cName.Valid {
			continue // Skip invalid rows
		}

		t, ok := tableMap[tableKey(sName.String, tName.String)]
		if !ok {
			continue
		}
		t.Columns = append(t.Columns, &Column{
			Name:       cName.String,
			DataType:   d.NormalizeType(dType.String),
			IsNullable: strings.EqualFold(isNull.String, "YES"),
			IsPK:       strings.Contains(cKey.String, "PRI"),
		})
	}
	if err := colRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}

	zap.S().Named("schema").Debugf("analyzed schema %s (%s): %d tables, %d columns",
		target, d.Name(), len(snap.Tables), snap.ColumnCount())
	return snap, nil
}

func resolveSchema(ctx context.Context, db *sql.DB, d dialect.Dialect, schemaName string) (string, error) {
	if schemaName != "" {
		return d.GetSchemaName(schemaName), nil
	}
	var current sql.NullString
	if err := db.QueryRowContext(ctx, d.GetCurrentSchemaQuery()).Scan(&current); err != nil {
		return "", fmt.Errorf("failed to get current schema: %w", err)
	}
	if current.String == "" {
		// MySQL returns NULL when the DSN selects no database
		if d.GetSchemaName("") == "" {
			return "", fmt.Errorf("no schema selected for %s connection", d.Name())
		}
		return d.GetSchemaName(""), nil
	}
	return d.GetSchemaName(current.String), nil
}

// Store with normalized key (UPPERCASE) for robust lookups
func tableKey(schemaName, table string) string {
	return strings.ToUpper(schemaName) + "." + strings.ToUpper(table)
}
