package testcase

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"etl-verify/internal/dialect"
	"etl-verify/internal/mapping"
	"etl-verify/internal/validator"
)

// Options selects the dialects used to quote generated SQL. A nil dialect
// leaves identifiers unquoted.
type Options struct {
	SourceDialect dialect.Dialect
	TargetDialect dialect.Dialect
	// SampleLimit caps the rows a column-values case selects. Zero selects
	// every row. It needs both dialects.
	SampleLimit int
}

type tablePair struct {
	source, target string
	srcCols        []string
	tgtCols        []string
	seen           map[string]bool
	transforms     []string
}

// Generate emits a row-count case and a column-values case for every
// (source table, target table) pair named by records. Placeholder rows are
// ignored. Pairs keep the order they first appear in and are matched
// case-insensitively, so generated names are unique.
func Generate(records []mapping.Record, opts Options) []*TestCase {
	var pairs []*tablePair
	index := make(map[string]*tablePair)

	for _, r := range records {
		if validator.IsSentinel(r.SourceTable) || validator.IsSentinel(r.TargetTable) {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(r.SourceTable)) + "\x00" + strings.ToLower(strings.TrimSpace(r.TargetTable))
		p, ok := index[key]
		if !ok {
			p = &tablePair{
				source: strings.TrimSpace(r.SourceTable),
				target: strings.TrimSpace(r.TargetTable),
				seen:   make(map[string]bool),
			}
			index[key] = p
			pairs = append(pairs, p)
		}

		if validator.IsSentinelColumn(r.SourceColumn) || validator.IsSentinelColumn(r.TargetColumn) {
			continue
		}
		src, tgt := validator.CleanColumn(r.SourceColumn), validator.CleanColumn(r.TargetColumn)
		colKey := strings.ToLower(src) + "\x00" + strings.ToLower(tgt)
		if p.seen[colKey] {
			continue
		}
		p.seen[colKey] = true
		p.srcCols = append(p.srcCols, src)
		p.tgtCols = append(p.tgtCols, tgt)
		if r.Transformation != "" {
			p.transforms = append(p.transforms, fmt.Sprintf("%s: %s", tgt, r.Transformation))
		}
	}

	var cases []*TestCase
	for _, p := range pairs {
		srcTable := qualify(p.source, opts.SourceDialect)
		tgtTable := qualify(p.target, opts.TargetDialect)
		label := p.source + " -> " + p.target

		cases = append(cases, &TestCase{
			ID:             uuid.New(),
			Name:           "Row count: " + label,
			Description:    fmt.Sprintf("Compare row counts of %s and %s", p.source, p.target),
			Category:       CategoryCompleteness,
			Severity:       SeverityCritical,
			SourceSQL:      fmt.Sprintf("SELECT COUNT(*) AS row_count FROM %s", srcTable),
			TargetSQL:      fmt.Sprintf("SELECT COUNT(*) AS row_count FROM %s", tgtTable),
			ExpectedResult: "Row counts match",
			SourceTable:    p.source,
			TargetTable:    p.target,
		})

		if len(p.srcCols) == 0 {
			continue
		}
		desc := fmt.Sprintf("Compare %d mapped column(s) of %s and %s", len(p.srcCols), p.source, p.target)
		if len(p.transforms) > 0 {
			desc += "; transformations: " + strings.Join(p.transforms, "; ")
		}
		cases = append(cases, &TestCase{
			ID:             uuid.New(),
			Name:           "Column values: " + label,
			Description:    desc,
			Category:       CategoryAccuracy,
			Severity:       SeverityHigh,
			SourceSQL:      limit(selectColumns(p.srcCols, srcTable, opts.SourceDialect), opts.SampleLimit, opts.SourceDialect),
			TargetSQL:      limit(selectColumns(p.tgtCols, tgtTable, opts.TargetDialect), opts.SampleLimit, opts.TargetDialect),
			ExpectedResult: "All mapped column values match",
			SourceTable:    p.source,
			TargetTable:    p.target,
		})
	}
	return cases
}

func qualify(table string, d dialect.Dialect) string {
	ident := validator.ParseIdentifier(table)
	name := quote(ident.Table, d)
	if ident.Schema != "" {
		name = quote(ident.Schema, d) + "." + name
	}
	return name
}

func quote(name string, d dialect.Dialect) string {
	if d == nil {
		return name
	}
	return d.QuoteIdent(name)
}

func selectColumns(cols []string, table string, d dialect.Dialect) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quote(c, d)
	}
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", strings.Join(quoted, ", "), table, quoted[0])
}

func limit(query string, n int, d dialect.Dialect) string {
	if n <= 0 || d == nil {
		return query
	}
	return d.GetLimitRowQuery(query, n)
}
