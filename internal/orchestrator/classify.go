package orchestrator

import (
	"fmt"
	"strings"

	"etl-verify/internal/agentclient"
	"etl-verify/internal/testcase"
)

const (
	ClassSyntax           = "Syntax Error"
	ClassObjectNotFound   = "Object Not Found"
	ClassNetwork          = "Network Error"
	ClassPermission       = "Permission Denied"
	ClassExecution        = "Execution Error"
	unknownExecutionError = "job failed without error details"
)

// Markers are matched case-insensitively, in class order. Syntax markers
// go first: Oracle reports invalid identifiers alongside object names.
var errorClasses = []struct {
	class   string
	markers []string
}{
	{ClassSyntax, []string{"ORA-00904", "ORA-00933", "ORA-00936", "syntax error", "invalid identifier", "Incorrect syntax", "SQL compilation error"}},
	{ClassObjectNotFound, []string{"ORA-00942", "does not exist", "Invalid object name", "no such table", "Unknown table", "not found"}},
	{ClassPermission, []string{"ORA-01031", "permission denied", "access denied", "insufficient privileges", "not authorized"}},
	{ClassNetwork, []string{"connection refused", "connection reset", "no route to host", "i/o timeout", "timed out", "timeout", "network", "EOF", "dial tcp"}},
}

// ClassifyError names the error class a remote error message belongs to.
func ClassifyError(msg string) string {
	lower := strings.ToLower(msg)
	for _, c := range errorClasses {
		for _, m := range c.markers {
			if strings.Contains(lower, strings.ToLower(m)) {
				return c.class
			}
		}
	}
	return ClassExecution
}

// FormatError prefixes msg with its error class.
func FormatError(msg string) string {
	if strings.TrimSpace(msg) == "" {
		msg = unknownExecutionError
	}
	return ClassifyError(msg) + ": " + msg
}

func passMessage(s *agentclient.ComparisonSummary) string {
	if s == nil {
		return "Passed: comparison completed"
	}
	return fmt.Sprintf("Passed: %d rows matched (source %d, target %d)", s.MatchedRows, s.SourceRowCount, s.TargetRowCount)
}

func mismatchMessage(s *agentclient.ComparisonSummary) string {
	if s == nil {
		s = &agentclient.ComparisonSummary{}
	}
	return fmt.Sprintf("Data mismatch: %d mismatched, %d source-only, %d target-only rows",
		s.MismatchedRows, s.SourceOnlyRows, s.TargetOnlyRows)
}

func details(res *agentclient.JobResult) *testcase.RunDetails {
	if res == nil || (res.Summary == nil && len(res.Mismatches) == 0) {
		return nil
	}
	d := &testcase.RunDetails{MismatchData: res.Mismatches}
	if s := res.Summary; s != nil {
		d.SourceCount = s.SourceRowCount
		d.TargetCount = s.TargetRowCount
		d.MatchedRows = s.MatchedRows
		d.MismatchedRows = s.MismatchedRows
		d.SourceOnlyRows = s.SourceOnlyRows
		d.TargetOnlyRows = s.TargetOnlyRows
	}
	return d
}

// hasMismatch reports whether a result carries a structured comparison
// summary that shows differing rows.
func hasMismatch(res *agentclient.JobResult) bool {
	if res == nil {
		return false
	}
	return res.Summary.Failed() || len(res.Mismatches) > 0
}

// verdict is the terminal classification of a finished remote job.
type verdict struct {
	state   State
	outcome Outcome
	status  testcase.Status
	message string
	details *testcase.RunDetails
}

// classifyCompleted judges a job the agent reported as completed. Absence
// of mismatch and error fields is a pass.
func classifyCompleted(res *agentclient.JobResult) verdict {
	switch {
	case hasMismatch(res):
		return verdict{StateFailed, OutcomeDataMismatch, testcase.StatusFail, mismatchMessage(res.Summary), details(res)}
	case res != nil && res.Error != "":
		return verdict{StateFailed, OutcomeExecutionError, testcase.StatusFail, FormatError(res.Error), details(res)}
	}
	var summary *agentclient.ComparisonSummary
	if res != nil {
		summary = res.Summary
	}
	return verdict{StatePassed, OutcomePassed, testcase.StatusPass, passMessage(summary), details(res)}
}

// classifyFailed judges a job the agent reported as failed or errored. A
// comparison summary makes it a data mismatch; otherwise it is an
// execution error.
func classifyFailed(st *agentclient.JobStatus) verdict {
	if hasMismatch(st.Result) {
		return verdict{StateFailed, OutcomeDataMismatch, testcase.StatusFail, mismatchMessage(st.Result.Summary), details(st.Result)}
	}
	msg := st.Error
	if msg == "" && st.Result != nil {
		msg = st.Result.Error
	}
	return verdict{StateFailed, OutcomeExecutionError, testcase.StatusFail, FormatError(msg), nil}
}
