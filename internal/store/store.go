// Package store keeps the history of terminal test case runs in a local
// SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"etl-verify/internal/testcase"
)

var ErrNoHistory = errors.New("no run history")

// fixed width so created_at sorts as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Record is one stored run.
type Record struct {
	ID          string               `json:"id"`
	CaseID      uuid.UUID            `json:"caseId"`
	CaseName    string               `json:"caseName"`
	Status      testcase.Status      `json:"status"`
	Outcome     string               `json:"outcome,omitempty"`
	Message     string               `json:"message"`
	JobID       string               `json:"jobId,omitempty"`
	SourceCount int64                `json:"sourceCount"`
	TargetCount int64                `json:"targetCount"`
	Details     *testcase.RunDetails `json:"details,omitempty"`
	CreatedAt   time.Time            `json:"createdAt"`
}

type Store struct {
	conn *sql.DB
}

// New opens (or creates) the history database at path. ":memory:" keeps it
// in memory.
func New(path string) (*Store, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single writer; also keeps ":memory:" on one database
	conn.SetMaxOpenConns(1)

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS run_results (
			id TEXT PRIMARY KEY,
			case_id TEXT NOT NULL,
			case_name TEXT NOT NULL,
			status TEXT NOT NULL,
			outcome TEXT NOT NULL DEFAULT '',
			message TEXT NOT NULL DEFAULT '',
			job_id TEXT NOT NULL DEFAULT '',
			source_count INTEGER NOT NULL DEFAULT 0,
			target_count INTEGER NOT NULL DEFAULT 0,
			details_json TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_run_results_case ON run_results(case_id, created_at)`,
	}
	for _, m := range migrations {
		if _, err := s.conn.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// Save stores a terminal result of tc. Non-terminal results are ignored.
func (s *Store) Save(ctx context.Context, tc *testcase.TestCase, result *testcase.RunResult) error {
	if tc == nil || result == nil || !result.Terminal() {
		return nil
	}

	var srcCount, tgtCount int64
	details := ""
	if d := result.Details; d != nil {
		srcCount, tgtCount = d.SourceCount, d.TargetCount
		b, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("encode details: %w", err)
		}
		details = string(b)
	}
	created := result.Timestamp
	if created.IsZero() {
		created = time.Now()
	}

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO run_results (id, case_id, case_name, status, outcome, message, job_id,
		 source_count, target_count, details_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), tc.ID.String(), tc.Name, string(result.Status), result.Outcome,
		result.Message, result.JobID, srcCount, tgtCount, details,
		created.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert run result: %w", err)
	}
	zap.S().Named("store").Debugf("stored %s result of %q", result.Status, tc.Name)
	return nil
}

const selectRecords = `SELECT id, case_id, case_name, status, outcome, message, job_id,
	source_count, target_count, details_json, created_at FROM run_results`

// List returns the newest limit records, newest first. limit <= 0 means all.
func (s *Store) List(ctx context.Context, limit int) ([]*Record, error) {
	q := selectRecords + ` ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}
	return s.query(ctx, q)
}

// ListByCase returns every record of one case, newest first.
func (s *Store) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*Record, error) {
	return s.query(ctx, selectRecords+` WHERE case_id = ? ORDER BY created_at DESC, rowid DESC`, caseID.String())
}

// LatestByCase returns the most recent record of one case, or ErrNoHistory.
func (s *Store) LatestByCase(ctx context.Context, caseID uuid.UUID) (*Record, error) {
	recs, err := s.query(ctx, selectRecords+` WHERE case_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, caseID.String())
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w for case %s", ErrNoHistory, caseID)
	}
	return recs[0], nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]*Record, error) {
	rows, err := s.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query run results: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		var (
			r                  Record
			caseID, status     string
			details, createdAt string
		)
		if err := rows.Scan(&r.ID, &caseID, &r.CaseName, &status, &r.Outcome, &r.Message, &r.JobID,
			&r.SourceCount, &r.TargetCount, &details, &createdAt); err != nil {
			return nil, err
		}
		if r.CaseID, err = uuid.Parse(caseID); err != nil {
			return nil, fmt.Errorf("run %s: bad case id: %w", r.ID, err)
		}
		r.Status = testcase.Status(status)
		if r.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("run %s: bad timestamp: %w", r.ID, err)
		}
		if details != "" {
			r.Details = &testcase.RunDetails{}
			if err := json.Unmarshal([]byte(details), r.Details); err != nil {
				return nil, fmt.Errorf("run %s: bad details: %w", r.ID, err)
			}
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
