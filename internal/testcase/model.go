// Package testcase holds the comparison test cases run against the
// execution agent and the results of their last run.
package testcase

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusRunning Status = "running"
	StatusPass    Status = "pass"
	StatusFail    Status = "fail"
)

const (
	CategoryCompleteness = "completeness"
	CategoryAccuracy     = "accuracy"

	SeverityCritical = "critical"
	SeverityHigh     = "high"
)

// TestCase is one source/target SQL comparison. ID is the stable key every
// result update is joined on; Name is unique within a suite.
type TestCase struct {
	ID             uuid.UUID  `yaml:"id" json:"id"`
	Name           string     `yaml:"name" json:"name"`
	Description    string     `yaml:"description,omitempty" json:"description,omitempty"`
	Category       string     `yaml:"category" json:"category"`
	Severity       string     `yaml:"severity" json:"severity"`
	SourceSQL      string     `yaml:"source_sql" json:"sourceSQL"`
	TargetSQL      string     `yaml:"target_sql" json:"targetSQL"`
	ExpectedResult string     `yaml:"expected_result,omitempty" json:"expectedResult,omitempty"`
	SourceTable    string     `yaml:"source_table,omitempty" json:"sourceTable,omitempty"`
	TargetTable    string     `yaml:"target_table,omitempty" json:"targetTable,omitempty"`
	LastRunResult  *RunResult `yaml:"last_run_result,omitempty" json:"lastRunResult,omitempty"`
}

type RunResult struct {
	Status    Status      `yaml:"status" json:"status"`
	Message   string      `yaml:"message" json:"message"`
	Timestamp time.Time   `yaml:"timestamp" json:"timestamp"`
	Details   *RunDetails `yaml:"details,omitempty" json:"details,omitempty"`
	JobID     string      `yaml:"job_id,omitempty" json:"jobId,omitempty"`
	Outcome   string      `yaml:"outcome,omitempty" json:"outcome,omitempty"`
}

// Terminal reports whether the result is final for its run.
func (r *RunResult) Terminal() bool {
	return r != nil && (r.Status == StatusPass || r.Status == StatusFail)
}

type RunDetails struct {
	SourceCount    int64            `yaml:"source_count" json:"sourceCount"`
	TargetCount    int64            `yaml:"target_count" json:"targetCount"`
	MatchedRows    int64            `yaml:"matched_rows" json:"matchedRows"`
	MismatchedRows int64            `yaml:"mismatched_rows" json:"mismatchedRows"`
	SourceOnlyRows int64            `yaml:"source_only_rows" json:"sourceOnlyRows"`
	TargetOnlyRows int64            `yaml:"target_only_rows" json:"targetOnlyRows"`
	MismatchData   []map[string]any `yaml:"mismatch_data,omitempty" json:"mismatchData,omitempty"`
}

// Clone returns a deep copy safe to hand out while the suite keeps mutating
// the original.
func (tc *TestCase) Clone() *TestCase {
	c := *tc
	c.LastRunResult = tc.LastRunResult.Clone()
	return &c
}

func (r *RunResult) Clone() *RunResult {
	if r == nil {
		return nil
	}
	c := *r
	if r.Details != nil {
		d := *r.Details
		d.MismatchData = append([]map[string]any(nil), r.Details.MismatchData...)
		c.Details = &d
	}
	return &c
}
