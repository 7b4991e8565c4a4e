package mapping

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"etl-verify/internal/schema"
)

const (
	templateSheet = "Mapping"

	PlaceholderConfigureTarget = "[Configure target]"
	PlaceholderEmpty           = "-.-"
)

var templateHeaders = []any{"Source Table", "Source Column", "Target Table", "Target Column", "Transformation Rule"}

// WriteTemplate writes an xlsx mapping sheet listing every source column.
// Target cells hold placeholders the validator skips until a user replaces
// them: auto-detected suggestions when the target has a same-named table or
// column, otherwise "[Configure target]". Either snapshot may be nil.
func WriteTemplate(w io.Writer, source, target *schema.Snapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", templateSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(templateSheet, "A1", &templateHeaders); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(templateSheet, "A1", "E1", style); err != nil {
		return err
	}
	if err := f.SetColWidth(templateSheet, "A", "E", 32); err != nil {
		return err
	}

	rows := templateRows(source, target)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{row.SourceTable, row.SourceColumn, row.TargetTable, row.TargetColumn, row.Transformation}
		if err := f.SetSheetRow(templateSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write template: %w", err)
	}
	return nil
}

func templateRows(source, target *schema.Snapshot) []Record {
	if source == nil || len(source.Tables) == 0 {
		return []Record{{
			SourceTable:  "Source",
			SourceColumn: PlaceholderEmpty,
			TargetTable:  "Target",
			TargetColumn: PlaceholderEmpty,
		}}
	}

	var rows []Record
	for _, t := range source.Tables {
		match := target.FindTable("", t.Name)
		for _, c := range t.Columns {
			rec := Record{
				SourceTable:  t.QualifiedName(),
				SourceColumn: c.Name,
				TargetTable:  PlaceholderConfigureTarget,
				TargetColumn: PlaceholderConfigureTarget,
			}
			if match != nil {
				rec.TargetTable = autoDetected(match.QualifiedName())
				if col := match.Column(c.Name); col != nil {
					rec.TargetColumn = autoDetected(col.Name)
				}
			}
			rows = append(rows, rec)
		}
	}
	return rows
}

func autoDetected(name string) string {
	return "[Auto-detected: " + name + "]"
}
