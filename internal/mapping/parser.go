package mapping

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	fieldSourceTable    = "source_table"
	fieldSourceColumn   = "source_column"
	fieldTargetTable    = "target_table"
	fieldTargetColumn   = "target_column"
	fieldTransformation = "transformation"

	// headerScanRows bounds how far down a sheet the header row may sit.
	headerScanRows = 10
)

var ErrNoHeader = errors.New("no mapping header row found")

var headerAliases = map[string][]string{
	fieldSourceTable:    {"source table", "source_table", "sourcetable", "src table", "source table name", "source object"},
	fieldSourceColumn:   {"source column", "source_column", "sourcecolumn", "src column", "source field", "source column name"},
	fieldTargetTable:    {"target table", "target_table", "targettable", "tgt table", "target table name", "target object"},
	fieldTargetColumn:   {"target column", "target_column", "targetcolumn", "tgt column", "target field", "target column name"},
	fieldTransformation: {"transformation", "transformation rule", "transformation logic", "rule", "notes"},
}

// Parse reads a mapping file, picking the format from its extension.
func Parse(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".xlsx", ".xlsm":
		return ParseXLSX(data)
	case ".csv":
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		return ParseCSV(bytes.NewReader(data), name)
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return nil, fmt.Errorf("unsupported mapping file type %q", ext)
	}
}

// ParseXLSX reads every sheet of a workbook. Sheets without a recognizable
// header row are skipped.
func ParseXLSX(data []byte) ([]Record, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("error opening Excel file: %w", err)
	}
	defer f.Close()

	var records []Record
	headerSeen := false
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			zap.S().Named("mapping").Warnf("Could not read %s sheet: %v", sheet, err)
			continue
		}
		recs, err := parseRows(rows, sheet)
		if errors.Is(err, ErrNoHeader) {
			zap.S().Named("mapping").Debugf("sheet %s has no mapping header, skipping", sheet)
			continue
		}
		headerSeen = true
		records = append(records, recs...)
	}

	if !headerSeen {
		return nil, ErrNoHeader
	}
	return records, nil
}

func ParseCSV(r io.Reader, sheet string) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return parseRows(rows, sheet)
}

type yamlFile struct {
	Mappings []Record `yaml:"mappings"`
}

// ParseYAML reads a `mappings:` list. Row numbers are list positions.
func ParseYAML(data []byte) ([]Record, error) {
	var doc yamlFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse yaml mapping: %w", err)
	}

	var records []Record
	for i, rec := range doc.Mappings {
		rec.Row = i + 1
		rec = trimRecord(rec)
		if rec.empty() {
			continue
		}
		if rec.Sheet == "" {
			rec.Sheet = "mappings"
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRows(rows [][]string, sheet string) ([]Record, error) {
	headerIdx, colMap := findHeader(rows)
	if headerIdx < 0 {
		return nil, ErrNoHeader
	}

	var records []Record
	for i := headerIdx + 1; i < len(rows); i++ {
		row := rows[i]
		rec := Record{
			SourceTable:    getColumnValue(row, colMap, fieldSourceTable),
			SourceColumn:   getColumnValue(row, colMap, fieldSourceColumn),
			TargetTable:    getColumnValue(row, colMap, fieldTargetTable),
			TargetColumn:   getColumnValue(row, colMap, fieldTargetColumn),
			Transformation: getColumnValue(row, colMap, fieldTransformation),
			Sheet:          sheet,
			Row:            i + 1,
		}
		if rec.empty() {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// findHeader returns the index of the first row naming at least two of the
// four identifier fields, with the field-to-column map built from it.
func findHeader(rows [][]string) (int, map[string]int) {
	for i := 0; i < len(rows) && i < headerScanRows; i++ {
		colMap := buildColumnMap(rows[i])
		identifiers := 0
		for _, f := range []string{fieldSourceTable, fieldSourceColumn, fieldTargetTable, fieldTargetColumn} {
			if _, ok := colMap[f]; ok {
				identifiers++
			}
		}
		if identifiers >= 2 {
			return i, colMap
		}
	}
	return -1, nil
}

func buildColumnMap(headers []string) map[string]int {
	colMap := make(map[string]int)
	for i, header := range headers {
		key := strings.ToLower(strings.TrimSpace(header))
		for field, aliases := range headerAliases {
			if _, taken := colMap[field]; taken {
				continue
			}
			for _, alias := range aliases {
				if key == alias {
					colMap[field] = i
				}
			}
		}
	}
	return colMap
}

func getColumnValue(row []string, colMap map[string]int, key string) string {
	if idx, exists := colMap[key]; exists && idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}

func trimRecord(r Record) Record {
	r.SourceTable = strings.TrimSpace(r.SourceTable)
	r.SourceColumn = strings.TrimSpace(r.SourceColumn)
	r.TargetTable = strings.TrimSpace(r.TargetTable)
	r.TargetColumn = strings.TrimSpace(r.TargetColumn)
	r.Transformation = strings.TrimSpace(r.Transformation)
	return r
}
