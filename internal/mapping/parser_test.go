package mapping_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"etl-verify/internal/mapping"
	"etl-verify/internal/schema"
)

func setRow(t *testing.T, f *excelize.File, sheet string, row int, values ...any) {
	t.Helper()
	cell, err := excelize.CoordinatesToCellName(1, row)
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow(sheet, cell, &values))
}

func workbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", "Customers"))
	setRow(t, f, "Customers", 1, "Customer migration")
	setRow(t, f, "Customers", 3, "Source Table", "Source Column", "Target Table", "Target Column", "Transformation Rule")
	setRow(t, f, "Customers", 4, "dbo.Customers", "CustomerID", "public.customers", "customer_id", "")
	setRow(t, f, "Customers", 5, "", "", "", "", "")
	setRow(t, f, "Customers", 6, " dbo.Customers ", "Email", "public.customers", "email", "lower()")

	_, err := f.NewSheet("Notes")
	require.NoError(t, err)
	setRow(t, f, "Notes", 1, "free text only")

	_, err = f.NewSheet("Orders")
	require.NoError(t, err)
	setRow(t, f, "Orders", 1, "SRC TABLE", "Src Column", "tgt table", "TGT COLUMN")
	setRow(t, f, "Orders", 2, "sales.Orders", "OrderID", "public.orders", "order_id")

	var buf bytes.Buffer
	_, err = f.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseXLSX(t *testing.T) {
	records, err := mapping.ParseXLSX(workbook(t))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, mapping.Record{
		SourceTable: "dbo.Customers", SourceColumn: "CustomerID",
		TargetTable: "public.customers", TargetColumn: "customer_id",
		Sheet: "Customers", Row: 4,
	}, records[0])

	assert.Equal(t, "dbo.Customers", records[1].SourceTable)
	assert.Equal(t, "lower()", records[1].Transformation)
	assert.Equal(t, 6, records[1].Row)

	assert.Equal(t, "Orders", records[2].Sheet)
	assert.Equal(t, "order_id", records[2].TargetColumn)
	assert.Equal(t, "sheet 'Orders', row 2", records[2].Location())
}

func TestParseXLSX_NoHeader(t *testing.T) {
	f := excelize.NewFile()
	setRow(t, f, "Sheet1", 1, "nothing", "here")
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = mapping.ParseXLSX(buf.Bytes())
	assert.ErrorIs(t, err, mapping.ErrNoHeader)
}

func TestParseCSV(t *testing.T) {
	input := strings.Join([]string{
		"source_table,source_column,target_table,target_column,notes",
		"dbo.Customers,Email,public.customers,email,",
		",,,,",
		`"[dbo].[Orders]",Total,public.orders,total,"cast to numeric(10,2)"`,
	}, "\n")

	records, err := mapping.ParseCSV(strings.NewReader(input), "mapping")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "[dbo].[Orders]", records[1].SourceTable)
	assert.Equal(t, "cast to numeric(10,2)", records[1].Transformation)
	assert.Equal(t, 4, records[1].Row)
	assert.Equal(t, "mapping", records[1].Sheet)
}

func TestParseYAML(t *testing.T) {
	input := `
mappings:
  - source_table: dbo.Customers
    source_column: Email
    target_table: public.customers
    target_column: email
  - {}
  - source_table: sales.Orders
    source_column: Total
    target_table: public.orders
    target_column: total
    sheet: Orders
`
	records, err := mapping.ParseYAML([]byte(input))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "mappings", records[0].Sheet)
	assert.Equal(t, 1, records[0].Row)
	assert.Equal(t, "Orders", records[1].Sheet)
	assert.Equal(t, 3, records[1].Row)
}

func TestParse_ByExtension(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "crm.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("Source Table,Source Column,Target Table,Target Column\na,b,c,d\n"), 0o644))
	records, err := mapping.Parse(csvPath)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "crm", records[0].Sheet)

	xlsxPath := filepath.Join(dir, "crm.xlsx")
	require.NoError(t, os.WriteFile(xlsxPath, workbook(t), 0o644))
	records, err = mapping.Parse(xlsxPath)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	txtPath := filepath.Join(dir, "crm.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("x"), 0o644))
	_, err = mapping.Parse(txtPath)
	assert.ErrorContains(t, err, "unsupported mapping file type")
}

func TestWriteTemplate(t *testing.T) {
	source := &schema.Snapshot{Tables: []*schema.Table{
		{Schema: "dbo", Name: "Customers", Columns: []*schema.Column{{Name: "CustomerID"}, {Name: "Email"}}},
		{Schema: "dbo", Name: "AuditLog", Columns: []*schema.Column{{Name: "Entry"}}},
	}}
	target := &schema.Snapshot{Tables: []*schema.Table{
		{Schema: "public", Name: "customers", Columns: []*schema.Column{{Name: "email"}}},
	}}

	var buf bytes.Buffer
	require.NoError(t, mapping.WriteTemplate(&buf, source, target))

	records, err := mapping.ParseXLSX(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "dbo.Customers", records[0].SourceTable)
	assert.Equal(t, "[Auto-detected: public.customers]", records[0].TargetTable)
	assert.Equal(t, mapping.PlaceholderConfigureTarget, records[0].TargetColumn)
	assert.Equal(t, "[Auto-detected: email]", records[1].TargetColumn)
	assert.Equal(t, mapping.PlaceholderConfigureTarget, records[2].TargetTable)
}

func TestWriteTemplate_NoSource(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, mapping.WriteTemplate(&buf, nil, nil))

	records, err := mapping.ParseXLSX(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Source", records[0].SourceTable)
	assert.Equal(t, mapping.PlaceholderEmpty, records[0].TargetColumn)
}
