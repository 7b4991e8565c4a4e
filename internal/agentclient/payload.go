package agentclient

import (
	"strings"
	"time"

	"github.com/spf13/cast"

	"etl-verify/internal/schema"
)

const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusError     = "error"
)

// JobStatus is the normalized response of a status poll.
type JobStatus struct {
	JobID  string
	Status string
	Error  string
	Result *JobResult
}

// Terminal reports whether the agent has stopped working on the job.
func (s *JobStatus) Terminal() bool {
	switch s.Status {
	case StatusCompleted, StatusFailed, StatusError:
		return true
	}
	return false
}

// JobResult is the normalized comparison result of a job.
type JobResult struct {
	Summary    *ComparisonSummary
	Mismatches []map[string]any
	Error      string
}

type ComparisonSummary struct {
	SourceRowCount   int64
	TargetRowCount   int64
	MatchedRows      int64
	MismatchedRows   int64
	SourceOnlyRows   int64
	TargetOnlyRows   int64
	ComparisonStatus string
}

// Failed reports whether the summary carries a failed classification:
// any mismatch count or an explicit failed comparison status.
func (s *ComparisonSummary) Failed() bool {
	if s == nil {
		return false
	}
	if s.MismatchedRows > 0 || s.SourceOnlyRows > 0 || s.TargetOnlyRows > 0 {
		return true
	}
	switch s.ComparisonStatus {
	case "failed", "fail", "mismatch":
		return true
	}
	return false
}

var (
	jobIDKeys    = []string{"jobId", "job_id", "jobID", "id"}
	wrapperKeys  = []string{"data", "job"}
	resultKeys   = []string{"result", "results"}
	summaryKeys  = []string{"summary", "comparisonSummary", "comparison_summary"}
	mismatchKeys = []string{"mismatches", "sampleMismatches", "sample_mismatches", "mismatchData"}
	errorKeys    = []string{"error", "errorMessage", "error_message"}
)

// jobID resolves the job identifier from a submission response. Wrapper
// objects under data or job are searched after the top level.
func jobID(payload map[string]any) string {
	return findJobID(payload, 0)
}

func findJobID(m map[string]any, depth int) string {
	if m == nil || depth > 2 {
		return ""
	}
	if v, ok := lookup(m, jobIDKeys...); ok {
		if id := toString(v); id != "" {
			return id
		}
	}
	for _, k := range wrapperKeys {
		if id := findJobID(nested(m, k), depth+1); id != "" {
			return id
		}
	}
	return ""
}

func normalizeStatus(id string, payload map[string]any) *JobStatus {
	root := payload
	if _, ok := lookup(root, "status", "state"); !ok {
		for _, k := range wrapperKeys {
			if sub := nested(root, k); sub != nil {
				root = sub
				break
			}
		}
	}

	st := &JobStatus{JobID: id}
	if v, ok := lookup(root, "status", "state"); ok {
		st.Status = strings.ToLower(strings.TrimSpace(toString(v)))
	}
	st.Error = errorText(root)

	for _, k := range resultKeys {
		if sub := nested(root, k); sub != nil {
			st.Result = normalizeResult(sub)
			break
		}
	}
	if st.Result == nil {
		if _, ok := lookup(root, summaryKeys...); ok {
			st.Result = normalizeResult(root)
		}
	}
	if st.Result != nil && st.Result.Error == "" {
		st.Result.Error = st.Error
	}
	return st
}

func normalizeResult(payload map[string]any) *JobResult {
	root := payload
	if _, ok := lookup(root, summaryKeys...); !ok {
		for _, k := range append(append([]string{}, resultKeys...), wrapperKeys...) {
			if sub := nested(root, k); sub != nil {
				root = sub
				break
			}
		}
	}

	res := &JobResult{Error: errorText(root)}
	for _, k := range summaryKeys {
		if sub := nested(root, k); sub != nil {
			res.Summary = normalizeSummary(sub)
			break
		}
	}
	if v, ok := lookup(root, mismatchKeys...); ok {
		rows, err := cast.ToSliceE(v)
		if err == nil {
			for _, r := range rows {
				if row, err := cast.ToStringMapE(r); err == nil {
					res.Mismatches = append(res.Mismatches, row)
				}
			}
		}
	}
	return res
}

func normalizeSummary(m map[string]any) *ComparisonSummary {
	s := &ComparisonSummary{
		SourceRowCount: toInt64(m, "sourceRowCount", "source_row_count", "sourceCount", "sourceRows"),
		TargetRowCount: toInt64(m, "targetRowCount", "target_row_count", "targetCount", "targetRows"),
		MatchedRows:    toInt64(m, "matchedRows", "matched_rows", "matchedCount"),
		MismatchedRows: toInt64(m, "mismatchedRows", "mismatched_rows", "mismatchCount"),
		SourceOnlyRows: toInt64(m, "sourceOnlyRows", "source_only_rows"),
		TargetOnlyRows: toInt64(m, "targetOnlyRows", "target_only_rows"),
	}
	if v, ok := lookup(m, "comparisonStatus", "comparison_status", "status"); ok {
		s.ComparisonStatus = strings.ToLower(strings.TrimSpace(toString(v)))
	}
	return s
}

// normalizeSchema accepts a bare table list or an object carrying one under
// tables, data, schema or result.
func normalizeSchema(payload any) *schema.Snapshot {
	snap := &schema.Snapshot{FetchedAt: time.Now().UTC()}
	for _, raw := range tableList(payload, 0) {
		m, err := cast.ToStringMapE(raw)
		if err != nil {
			continue
		}
		t := normalizeTable(m)
		if t.Name != "" {
			snap.Tables = append(snap.Tables, t)
		}
	}
	return snap
}

func tableList(v any, depth int) []any {
	switch t := v.(type) {
	case []any:
		return t
	case map[string]any:
		if depth > 2 {
			return nil
		}
		for _, k := range []string{"tables", "data", "schema", "result"} {
			if sub, ok := t[k]; ok {
				if l := tableList(sub, depth+1); l != nil {
					return l
				}
			}
		}
	}
	return nil
}

func normalizeTable(m map[string]any) *schema.Table {
	t := &schema.Table{}
	if v, ok := lookup(m, "name", "tableName", "table_name", "TABLE_NAME", "table"); ok {
		t.Name = toString(v)
	}
	if v, ok := lookup(m, "schema", "schemaName", "schema_name", "TABLE_SCHEMA", "owner"); ok {
		t.Schema = toString(v)
	}
	if t.Schema == "" {
		if i := strings.LastIndex(t.Name, "."); i > 0 {
			t.Schema, t.Name = t.Name[:i], t.Name[i+1:]
		}
	}

	v, ok := lookup(m, "columns", "fields", "COLUMNS")
	if !ok {
		return t
	}
	cols, err := cast.ToSliceE(v)
	if err != nil {
		return t
	}
	for _, raw := range cols {
		if name, ok := raw.(string); ok {
			t.Columns = append(t.Columns, &schema.Column{Name: name})
			continue
		}
		cm, err := cast.ToStringMapE(raw)
		if err != nil {
			continue
		}
		col := &schema.Column{}
		if v, ok := lookup(cm, "name", "columnName", "column_name", "COLUMN_NAME"); ok {
			col.Name = toString(v)
		}
		if v, ok := lookup(cm, "type", "dataType", "data_type", "DATA_TYPE"); ok {
			col.DataType = toString(v)
		}
		if v, ok := lookup(cm, "nullable", "isNullable", "is_nullable", "IS_NULLABLE"); ok {
			col.IsNullable = toBool(v)
		}
		if v, ok := lookup(cm, "primaryKey", "isPrimaryKey", "is_primary_key", "pk", "isPK"); ok {
			col.IsPK = toBool(v)
		}
		if col.Name != "" {
			t.Columns = append(t.Columns, col)
		}
	}
	return t
}

func errorText(m map[string]any) string {
	v, ok := lookup(m, errorKeys...)
	if !ok {
		return ""
	}
	if sub, err := cast.ToStringMapE(v); err == nil {
		if msg, ok := lookup(sub, "message", "error", "detail"); ok {
			return toString(msg)
		}
		return ""
	}
	return toString(v)
}

func lookup(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func nested(m map[string]any, key string) map[string]any {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	sub, err := cast.ToStringMapE(v)
	if err != nil {
		return nil
	}
	return sub
}

func toString(v any) string {
	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func toInt64(m map[string]any, keys ...string) int64 {
	v, ok := lookup(m, keys...)
	if !ok {
		return 0
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return 0
	}
	return n
}

func toBool(v any) bool {
	if s, ok := v.(string); ok {
		switch strings.ToUpper(strings.TrimSpace(s)) {
		case "YES", "Y":
			return true
		case "NO", "N", "":
			return false
		}
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return false
	}
	return b
}
