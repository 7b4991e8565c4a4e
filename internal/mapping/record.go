// Package mapping reads column-mapping sheets into Records and writes
// blank mapping templates.
package mapping

import "fmt"

// Record is one source-to-target column correspondence from a mapping sheet.
type Record struct {
	SourceTable    string `yaml:"source_table" json:"sourceTable"`
	SourceColumn   string `yaml:"source_column" json:"sourceColumn"`
	TargetTable    string `yaml:"target_table" json:"targetTable"`
	TargetColumn   string `yaml:"target_column" json:"targetColumn"`
	Transformation string `yaml:"transformation,omitempty" json:"transformation,omitempty"`
	Sheet          string `yaml:"sheet,omitempty" json:"sheet,omitempty"`
	// Row is the 1-based row in the originating sheet.
	Row int `yaml:"-" json:"row,omitempty"`
}

func (r Record) empty() bool {
	return r.SourceTable == "" && r.SourceColumn == "" && r.TargetTable == "" && r.TargetColumn == ""
}

// Location describes where the record came from, for error messages.
func (r Record) Location() string {
	if r.Sheet == "" {
		return fmt.Sprintf("row %d", r.Row)
	}
	return fmt.Sprintf("sheet '%s', row %d", r.Sheet, r.Row)
}
