package dialect

// Dialect abstracts database-specific operations.
type Dialect interface {
	// Metadata Queries (Schema Introspection)
	// Tables rows: TABLE_SCHEMA, TABLE_NAME
	GetTablesQuery(schema string) string
	// Column rows: TABLE_SCHEMA, TABLE_NAME, COLUMN_NAME, DATA_TYPE, IS_NULLABLE, COLUMN_KEY
	GetColumnsQuery(schema string) string
	// Returns a single row with the session's default schema.
	GetCurrentSchemaQuery() string

	// Query Generation
	QuoteIdent(name string) string // Quotes each dot-separated segment

	// Helpers
	Name() string
	NormalizeType(sqlType string) string
	GetSchemaName(input string) string
	GetLimitRowQuery(query string, limit int) string
}
