package dialect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"etl-verify/internal/dialect"
)

func TestGetDialect(t *testing.T) {
	tests := []struct {
		driver string
		want   string
	}{
		{"postgres", "postgres"},
		{"sqlserver", "sqlserver"},
		{"mssql", "sqlserver"},
		{"oracle", "oracle"},
		{"sqlite", "sqlite"},
		{"mysql", "mysql"},
		{"", "mysql"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, dialect.GetDialect(tt.driver).Name(), "driver %q", tt.driver)
	}
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"sales"."orders"`, dialect.GetDialect("postgres").QuoteIdent("sales.orders"))
	assert.Equal(t, "[dbo].[Customers]", dialect.GetDialect("sqlserver").QuoteIdent("[dbo].Customers"))
	assert.Equal(t, "`crm`.`users`", dialect.GetDialect("mysql").QuoteIdent("crm.users"))
	assert.Equal(t, `"HR"."EMPLOYEES"`, dialect.GetDialect("oracle").QuoteIdent("hr.employees"))
	assert.Equal(t, `"odd""name"`, dialect.GetDialect("sqlite").QuoteIdent(`odd"name`))
}

func TestGetSchemaNameDefaults(t *testing.T) {
	assert.Equal(t, "public", dialect.GetDialect("postgres").GetSchemaName(""))
	assert.Equal(t, "dbo", dialect.GetDialect("sqlserver").GetSchemaName(""))
	assert.Equal(t, "main", dialect.GetDialect("sqlite").GetSchemaName(""))
	assert.Equal(t, "SCOTT", dialect.GetDialect("oracle").GetSchemaName("scott"))
	assert.Equal(t, "shop", dialect.GetDialect("mysql").GetSchemaName("shop"))
}

func TestNormalizeType(t *testing.T) {
	assert.Equal(t, "int", dialect.GetDialect("postgres").NormalizeType("INT4"))
	assert.Equal(t, "varchar", dialect.GetDialect("sqlserver").NormalizeType("nvarchar"))
	assert.Equal(t, "varchar", dialect.GetDialect("oracle").NormalizeType("VARCHAR2"))
	assert.Equal(t, "varchar", dialect.GetDialect("sqlite").NormalizeType("VARCHAR(40)"))
}

func TestGetLimitRowQuery(t *testing.T) {
	assert.Equal(t, "SELECT a FROM t LIMIT 5", dialect.GetDialect("postgres").GetLimitRowQuery("SELECT a FROM t", 5))
	assert.Equal(t, "SELECT TOP 5 * FROM (SELECT a FROM t) AS limited", dialect.GetDialect("mssql").GetLimitRowQuery("SELECT a FROM t", 5))
	assert.Equal(t, "SELECT a FROM t ORDER BY a OFFSET 0 ROWS FETCH NEXT 5 ROWS ONLY", dialect.GetDialect("mssql").GetLimitRowQuery("SELECT a FROM t ORDER BY a", 5))
	assert.Equal(t, "SELECT a FROM t FETCH FIRST 5 ROWS ONLY", dialect.GetDialect("oracle").GetLimitRowQuery("SELECT a FROM t", 5))
}

func TestDriverName(t *testing.T) {
	assert.Equal(t, "sqlserver", dialect.DriverName("mssql"))
	assert.Equal(t, "postgres", dialect.DriverName("postgres"))
}
