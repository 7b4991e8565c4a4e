// Package validator reconciles mapping records against live schema snapshots.
package validator

import (
	"fmt"
	"strings"

	"etl-verify/internal/mapping"
	"etl-verify/internal/schema"
)

type Outcome string

const (
	OutcomePassed          Outcome = "passed"
	OutcomeFailed          Outcome = "failed"
	OutcomeNoDataValidated Outcome = "no_data_validated"
)

const (
	sideSource = "source"
	sideTarget = "target"
)

type Stats struct {
	TablesFound   int `json:"tablesFound"`
	ColumnsFound  int `json:"columnsFound"`
	TotalTables   int `json:"totalTables"`
	TotalColumns  int `json:"totalColumns"`
	SourceSkipped int `json:"sourceSkipped"`
	TargetSkipped int `json:"targetSkipped"`
}

// Result is the outcome of one validation pass. Success only means neither
// side reported an error; Outcome separates a pass that validated nothing.
type Result struct {
	SourceErrors []string `json:"sourceErrors"`
	TargetErrors []string `json:"targetErrors"`
	Warnings     []string `json:"warnings"`
	Matches      []string `json:"matches"`
	Stats        Stats    `json:"stats"`
	Success      bool     `json:"success"`
	Outcome      Outcome  `json:"outcome"`
}

// tableAggregate accumulates every record that names the same table string.
type tableAggregate struct {
	key        string
	ident      Identifier
	table      *schema.Table
	tableFound bool
	total      map[string]struct{}
	found      map[string]struct{}
}

type sideValidator struct {
	side      string
	snapshots []*schema.Snapshot
	order     []*tableAggregate
	byKey     map[string]*tableAggregate
	errors    []string
	skipped   int
}

func newSideValidator(side string, snapshots []*schema.Snapshot) *sideValidator {
	var snaps []*schema.Snapshot
	for _, s := range snapshots {
		if s != nil {
			snaps = append(snaps, s)
		}
	}
	return &sideValidator{
		side:      side,
		snapshots: snaps,
		byKey:     make(map[string]*tableAggregate),
	}
}

// Validate matches records against the source snapshots (searched in order,
// first match wins) and the target snapshot. A side without any snapshot is
// not validated. Validate does not modify its inputs.
func Validate(records []mapping.Record, sources []*schema.Snapshot, target *schema.Snapshot) *Result {
	src := newSideValidator(sideSource, sources)
	tgt := newSideValidator(sideTarget, []*schema.Snapshot{target})

	for _, rec := range records {
		src.check(rec, rec.SourceTable, rec.SourceColumn)
		tgt.check(rec, rec.TargetTable, rec.TargetColumn)
	}

	res := &Result{
		SourceErrors: nonNil(src.errors),
		TargetErrors: nonNil(tgt.errors),
		Warnings:     []string{},
		Matches:      []string{},
	}
	for _, sv := range []*sideValidator{src, tgt} {
		if len(sv.snapshots) == 0 && len(records) > 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s side not validated: no schema snapshot available", title(sv.side)))
		}
		for _, agg := range sv.order {
			res.Stats.TotalTables++
			res.Stats.TotalColumns += len(agg.total)
			res.Stats.ColumnsFound += len(agg.found)
			if agg.tableFound {
				res.Stats.TablesFound++
				res.Matches = append(res.Matches,
					fmt.Sprintf("%s:Table '%s': Verified %d/%d cols", sv.side, agg.key, len(agg.found), len(agg.total)))
			}
		}
	}
	res.Stats.SourceSkipped = src.skipped
	res.Stats.TargetSkipped = tgt.skipped

	res.Success = len(res.SourceErrors) == 0 && len(res.TargetErrors) == 0
	switch {
	case res.Stats.TotalTables == 0:
		res.Outcome = OutcomeNoDataValidated
	case res.Success:
		res.Outcome = OutcomePassed
	default:
		res.Outcome = OutcomeFailed
	}
	return res
}

func (sv *sideValidator) check(rec mapping.Record, table, column string) {
	if IsSentinel(table) || IsSentinelColumn(column) {
		sv.skipped++
		return
	}
	if len(sv.snapshots) == 0 {
		return
	}

	key := strings.TrimSpace(table)
	agg, ok := sv.byKey[key]
	if !ok {
		agg = sv.resolve(key)
		sv.byKey[key] = agg
		sv.order = append(sv.order, agg)
		if !agg.tableFound {
			sv.errors = append(sv.errors, fmt.Sprintf("%s table '%s' not found", title(sv.side), key))
		}
	}

	col := CleanColumn(column)
	colKey := strings.ToLower(col)
	agg.total[colKey] = struct{}{}
	if !agg.tableFound {
		return
	}
	if agg.table.Column(col) == nil {
		sv.errors = append(sv.errors, fmt.Sprintf("%s column '%s' not found in table '%s' (%s)",
			title(sv.side), col, key, rec.Location()))
		return
	}
	agg.found[colKey] = struct{}{}
}

func (sv *sideValidator) resolve(key string) *tableAggregate {
	agg := &tableAggregate{
		key:   key,
		ident: ParseIdentifier(key),
		total: make(map[string]struct{}),
		found: make(map[string]struct{}),
	}
	for _, snap := range sv.snapshots {
		if t := snap.FindTable(agg.ident.Schema, agg.ident.Table); t != nil {
			agg.table = t
			agg.tableFound = true
			break
		}
	}
	return agg
}

func title(side string) string {
	if side == "" {
		return side
	}
	return strings.ToUpper(side[:1]) + side[1:]
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
