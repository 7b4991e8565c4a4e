package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etl-verify/internal/store"
	"etl-verify/internal/testcase"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "history", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func result(status testcase.Status, msg string, at time.Time) *testcase.RunResult {
	return &testcase.RunResult{Status: status, Message: msg, Timestamp: at, JobID: "job-1", Outcome: "passed"}
}

func TestSave_RoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	tc := &testcase.TestCase{ID: uuid.New(), Name: "Row count: customers -> dim_customer"}
	at := time.Date(2026, 3, 1, 10, 0, 0, 500, time.UTC)

	res := result(testcase.StatusFail, "Data mismatch: 2 mismatched, 0 source-only, 0 target-only rows", at)
	res.Outcome = "data_mismatch"
	res.Details = &testcase.RunDetails{
		SourceCount:    10,
		TargetCount:    10,
		MatchedRows:    8,
		MismatchedRows: 2,
		MismatchData:   []map[string]any{{"id": float64(4)}},
	}
	require.NoError(t, s.Save(ctx, tc, res))

	rec, err := s.LatestByCase(ctx, tc.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, tc.ID, rec.CaseID)
	assert.Equal(t, tc.Name, rec.CaseName)
	assert.Equal(t, testcase.StatusFail, rec.Status)
	assert.Equal(t, "data_mismatch", rec.Outcome)
	assert.Equal(t, "job-1", rec.JobID)
	assert.Equal(t, int64(10), rec.SourceCount)
	assert.Equal(t, int64(10), rec.TargetCount)
	assert.Equal(t, res.Details, rec.Details)
	assert.True(t, at.Equal(rec.CreatedAt))
}

func TestSave_IgnoresRunningResults(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	tc := &testcase.TestCase{ID: uuid.New(), Name: "c"}

	require.NoError(t, s.Save(ctx, tc, result(testcase.StatusRunning, "Queued", time.Now())))
	require.NoError(t, s.Save(ctx, tc, nil))

	recs, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, recs)

	_, err = s.LatestByCase(ctx, tc.ID)
	assert.ErrorIs(t, err, store.ErrNoHistory)
}

func TestList_NewestFirst(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	a := &testcase.TestCase{ID: uuid.New(), Name: "a"}
	b := &testcase.TestCase{ID: uuid.New(), Name: "b"}
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.Save(ctx, a, result(testcase.StatusPass, "first", base)))
	require.NoError(t, s.Save(ctx, b, result(testcase.StatusPass, "second", base.Add(time.Second))))
	require.NoError(t, s.Save(ctx, a, result(testcase.StatusFail, "third", base.Add(1500*time.Millisecond))))

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "third", all[0].Message)
	assert.Equal(t, "second", all[1].Message)
	assert.Equal(t, "first", all[2].Message)
	assert.Nil(t, all[0].Details)

	limited, err := s.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "third", limited[0].Message)

	byCase, err := s.ListByCase(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, byCase, 2)
	assert.Equal(t, "third", byCase[0].Message)
	assert.Equal(t, "first", byCase[1].Message)

	latest, err := s.LatestByCase(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "second", latest.Message)
}

func TestNew_InMemory(t *testing.T) {
	s, err := store.New(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	tc := &testcase.TestCase{ID: uuid.New(), Name: "mem"}
	require.NoError(t, s.Save(ctx, tc, result(testcase.StatusPass, "ok", time.Time{})))

	recs, err := s.ListByCase(ctx, tc.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.False(t, recs[0].CreatedAt.IsZero())
}
