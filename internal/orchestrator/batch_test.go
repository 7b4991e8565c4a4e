package orchestrator_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etl-verify/internal/agentclient"
	"etl-verify/internal/orchestrator"
	"etl-verify/internal/testcase"
)

func mixedAgent() *fakeAgent {
	agent := newFakeAgent(&script{steps: []step{running(), completed()}})
	agent.scripts["mismatch"] = &script{
		steps:   []step{completed()},
		results: &agentclient.JobResult{Summary: summary(3, 1, 0, 0)},
	}
	agent.scripts["broken"] = &script{steps: []step{{status: agentclient.StatusFailed, errText: "connection reset by peer"}}}
	agent.scripts["rejected"] = &script{submitErr: fmt.Errorf("agent returned status 400: bad request")}
	return agent
}

func TestRunBatch_Sequential(t *testing.T) {
	agent := mixedAgent()
	suite := newSuite(t, "ok-1", "mismatch", "broken", "rejected", "ok-2")
	runner := orchestrator.NewRunner(agent, registry(), suite, fastOptions)

	var mu sync.Mutex
	var progress []int
	start := time.Now()
	sum := runner.RunBatch(context.Background(), target, orchestrator.BatchOptions{
		Pacing: 10 * time.Millisecond,
		Progress: func(done, total int, rep *orchestrator.CaseReport) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, 5, total)
			progress = append(progress, done)
		},
	})

	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, progress)
	assert.Equal(t, 5, sum.Total)
	assert.Equal(t, 5, sum.Completed)
	assert.Equal(t, 2, sum.Passed)
	assert.Equal(t, 3, sum.Failed)
	assert.Zero(t, sum.Skipped)
	assert.Equal(t, 1, agent.maxActive)

	require.Len(t, sum.Results, 5)
	assert.Equal(t, "ok-1", sum.Results[0].Name)
	assert.Equal(t, orchestrator.OutcomeDataMismatch, sum.Results[1].Outcome)
	assert.Equal(t, "Network Error: connection reset by peer", sum.Results[2].Result.Message)
	assert.Equal(t, orchestrator.OutcomeSubmissionError, sum.Results[3].Outcome)
	assert.Equal(t, orchestrator.OutcomePassed, sum.Results[4].Outcome)

	for _, tc := range suite.Cases() {
		require.NotNil(t, tc.LastRunResult, tc.Name)
		assert.True(t, tc.LastRunResult.Terminal())
	}
}

func TestRunBatch_SkippedNotCounted(t *testing.T) {
	agent := mixedAgent()
	runner := orchestrator.NewRunner(agent, registry(), newSuite(t, "a", "b"), fastOptions)

	sum := runner.RunBatch(context.Background(), orchestrator.Target{SourceConnectionID: "crm", TargetConnectionID: "dwh"}, orchestrator.BatchOptions{})
	assert.Equal(t, 2, sum.Total)
	assert.Zero(t, sum.Completed)
	assert.Zero(t, sum.Failed)
	assert.Equal(t, 2, sum.Skipped)
	assert.Zero(t, agent.submitted())
}

func TestRunBatch_Concurrent(t *testing.T) {
	agent := newFakeAgent(&script{
		steps: []step{
			{status: agentclient.StatusRunning, delay: 10 * time.Millisecond},
			{status: agentclient.StatusRunning, delay: 10 * time.Millisecond},
			completed(),
		},
	})
	var names []string
	for i := 0; i < 6; i++ {
		names = append(names, fmt.Sprintf("case-%d", i))
	}
	suite := newSuite(t, names...)
	runner := orchestrator.NewRunner(agent, registry(), suite, fastOptions)

	sum := runner.RunBatch(context.Background(), target, orchestrator.BatchOptions{Concurrency: 3, Pacing: time.Second})

	assert.Equal(t, 6, sum.Completed)
	assert.Equal(t, 6, sum.Passed)
	assert.Greater(t, agent.maxActive, 1)
	assert.LessOrEqual(t, agent.maxActive, 3)
	assert.Less(t, sum.Duration, time.Second)
	for i, rep := range sum.Results {
		assert.Equal(t, names[i], rep.Name)
	}
}

func TestRunBatch_CancelStopsBatch(t *testing.T) {
	agent := newFakeAgent(&script{steps: []step{running()}})
	suite := newSuite(t, "a", "b", "c")
	runner := orchestrator.NewRunner(agent, registry(), suite, fastOptions)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	sum := runner.RunBatch(ctx, target, orchestrator.BatchOptions{Pacing: time.Second})

	require.Len(t, sum.Results, 1)
	assert.Equal(t, orchestrator.OutcomeCancelled, sum.Results[0].Outcome)
	assert.Equal(t, 1, agent.submitted())
}

func TestRunTestCase_OverHTTP(t *testing.T) {
	var mu sync.Mutex
	polls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch r.URL.Path {
		case "/api/v1/jobs":
			_, _ = w.Write([]byte(`{"data":{"job_id":"remote-7"}}`))
		case "/api/v1/jobs/remote-7":
			polls++
			switch {
			case polls <= 2:
				http.NotFound(w, r)
			case polls == 3:
				_, _ = w.Write([]byte(`{"status":"running"}`))
			default:
				_, _ = w.Write([]byte(`{"status":"completed"}`))
			}
		case "/api/v1/jobs/remote-7/results":
			_, _ = w.Write([]byte(`{"result":{"summary":{"sourceRowCount":12,"targetRowCount":12,"matchedRows":12,"mismatchedRows":0}}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	suite := newSuite(t, "rows")
	runner := orchestrator.NewRunner(agentclient.New(srv.URL, "", time.Second), registry(), suite, fastOptions)
	rep := runner.RunTestCase(context.Background(), suite.Cases()[0].ID, target)

	assert.Equal(t, orchestrator.OutcomePassed, rep.Outcome)
	assert.Equal(t, "Passed: 12 rows matched (source 12, target 12)", rep.Result.Message)
	assert.Equal(t, "remote-7", rep.Result.JobID)
	assert.Equal(t, testcase.StatusPass, suite.Cases()[0].LastRunResult.Status)
}
