package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lthibault/jitterbug/v2"
	"go.uber.org/zap"

	"etl-verify/internal/agentclient"
	"etl-verify/internal/connection"
	"etl-verify/internal/metrics"
	"etl-verify/internal/testcase"
)

// Agent is the execution-agent surface the orchestrator needs.
type Agent interface {
	Submit(ctx context.Context, req *agentclient.JobRequest) (string, error)
	Status(ctx context.Context, id string) (*agentclient.JobStatus, error)
	Results(ctx context.Context, id string) (*agentclient.JobResult, error)
}

// Connections resolves connection ids into agent descriptors.
type Connections interface {
	Descriptor(id string) (*connection.Descriptor, error)
}

// Recorder persists terminal run results.
type Recorder interface {
	Save(ctx context.Context, tc *testcase.TestCase, result *testcase.RunResult) error
}

type Options struct {
	PollInterval    time.Duration
	PollJitter      time.Duration
	Timeout         time.Duration
	NotFoundRetries int
}

func DefaultOptions() Options {
	return Options{
		PollInterval:    2 * time.Second,
		Timeout:         60 * time.Second,
		NotFoundRetries: 3,
	}
}

// Target selects the agent and the connection pair a case runs against.
type Target struct {
	AgentID            string
	SourceConnectionID string
	TargetConnectionID string
}

// CaseReport is what one RunTestCase call produced. Result is nil for a
// skipped case.
type CaseReport struct {
	CaseID   uuid.UUID
	Name     string
	State    State
	Outcome  Outcome
	Reason   string
	Result   *testcase.RunResult
	Duration time.Duration
}

type Runner struct {
	agent    Agent
	conns    Connections
	suite    *testcase.Suite
	recorder Recorder
	opts     Options
	guard    runningCasesGuard
}

func NewRunner(agent Agent, conns Connections, suite *testcase.Suite, opts Options) *Runner {
	d := DefaultOptions()
	if opts.PollInterval <= 0 {
		opts.PollInterval = d.PollInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = d.Timeout
	}
	if opts.NotFoundRetries < 0 {
		opts.NotFoundRetries = d.NotFoundRetries
	}
	return &Runner{agent: agent, conns: conns, suite: suite, opts: opts}
}

// WithRecorder stores every terminal result through rec.
func (r *Runner) WithRecorder(rec Recorder) *Runner {
	r.recorder = rec
	return r
}

// RunTestCase drives one case through a remote comparison job and blocks
// until the job is terminal. The case's LastRunResult is updated on every
// transition. Cancelling ctx ends the job with the cancelled outcome.
func (r *Runner) RunTestCase(ctx context.Context, caseID uuid.UUID, target Target) *CaseReport {
	log := zap.S().Named("orchestrator")

	tc, ok := r.suite.Get(caseID)
	if !ok {
		return skipped(caseID, "", "test case not found")
	}
	if target.AgentID == "" {
		return skipped(caseID, tc.Name, "no active agent selected")
	}
	source, err := r.conns.Descriptor(target.SourceConnectionID)
	if err != nil {
		return skipped(caseID, tc.Name, "source connection unresolved: "+err.Error())
	}
	dest, err := r.conns.Descriptor(target.TargetConnectionID)
	if err != nil {
		return skipped(caseID, tc.Name, "target connection unresolved: "+err.Error())
	}
	if !r.guard.TryLock(caseID) {
		return skipped(caseID, tc.Name, "test case is already running")
	}
	defer r.guard.Unlock(caseID)

	j := &job{runner: r, tc: tc, start: time.Now(), state: StateIdle, done: make(chan struct{})}
	j.transition(StateQueued, "Queued")

	jobID, err := r.agent.Submit(ctx, &agentclient.JobRequest{
		AgentID:            target.AgentID,
		SourceConnectionID: source.ID,
		TargetConnectionID: dest.ID,
		SourceConnection:   source,
		TargetConnection:   dest,
		SourceQuery:        tc.SourceSQL,
		TargetQuery:        tc.TargetSQL,
		KeyColumns:         []string{},
		TestCase: agentclient.TestCasePayload{
			ID:             tc.ID.String(),
			Name:           tc.Name,
			Description:    tc.Description,
			Category:       tc.Category,
			Severity:       tc.Severity,
			ExpectedResult: tc.ExpectedResult,
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			j.cancel(ctx)
		} else {
			j.finalize(verdict{StateFailed, OutcomeSubmissionError, testcase.StatusFail, "Submission failed: " + FormatError(err.Error()), nil})
		}
		return j.report()
	}

	j.setJobID(jobID)
	j.transition(StateSubmitted, fmt.Sprintf("Submitted as job %s", jobID))
	log.Debugf("case %q submitted as job %s", tc.Name, jobID)

	jobCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		j.watchdog(jobCtx)
	}()
	go func() {
		defer wg.Done()
		j.poll(jobCtx)
	}()

	select {
	case <-j.done:
	case <-ctx.Done():
		j.cancel(ctx)
	}
	cancel()
	wg.Wait()

	return j.report()
}

func skipped(id uuid.UUID, name, reason string) *CaseReport {
	zap.S().Named("orchestrator").Infof("skipping %q: %s", name, reason)
	return &CaseReport{CaseID: id, Name: name, State: StateSkipped, Outcome: OutcomeSkipped, Reason: reason}
}

// job is the in-memory view of one remote comparison. Every state change
// goes through mu; the first terminal transition wins.
type job struct {
	runner *Runner
	tc     *testcase.TestCase
	start  time.Time

	mu      sync.Mutex
	jobID   string
	state   State
	outcome Outcome
	result  *testcase.RunResult
	end     time.Time
	done    chan struct{}
}

func (j *job) setJobID(id string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jobID = id
}

func (j *job) terminal() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state.Terminal()
}

// transition records a non-terminal state. It is a no-op once terminal.
func (j *job) transition(s State, msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.Terminal() {
		return
	}
	j.state = s
	j.publish(&testcase.RunResult{
		Status:    testcase.StatusRunning,
		Message:   msg,
		Timestamp: time.Now().UTC(),
		JobID:     j.jobID,
	})
}

// finalize moves the job to a terminal state. Only the first call has any
// effect; it reports whether this call won.
func (j *job) finalize(v verdict) bool {
	j.mu.Lock()
	if j.state.Terminal() {
		j.mu.Unlock()
		return false
	}
	j.state = v.state
	j.outcome = v.outcome
	j.end = time.Now()
	j.result = &testcase.RunResult{
		Status:    v.status,
		Message:   v.message,
		Timestamp: j.end.UTC(),
		Details:   v.details,
		JobID:     j.jobID,
		Outcome:   string(v.outcome),
	}
	j.publish(j.result)
	close(j.done)
	result := j.result.Clone()
	j.mu.Unlock()

	duration := j.end.Sub(j.start)
	metrics.ObserveRun(string(v.outcome), duration)
	zap.S().Named("orchestrator").Infof("case %q finished %s in %s: %s", j.tc.Name, v.outcome, duration.Round(time.Millisecond), v.message)

	if rec := j.runner.recorder; rec != nil {
		if err := rec.Save(context.Background(), j.tc, result); err != nil {
			zap.S().Named("orchestrator").Warnf("failed to record result of %q: %v", j.tc.Name, err)
		}
	}
	return true
}

func (j *job) cancel(ctx context.Context) {
	j.finalize(verdict{StateFailed, OutcomeCancelled, testcase.StatusFail, "Cancelled: " + ctx.Err().Error(), nil})
}

// publish must be called with mu held.
func (j *job) publish(result *testcase.RunResult) {
	if err := j.runner.suite.Update(j.tc.ID, result); err != nil {
		zap.S().Named("orchestrator").Warnf("failed to update case %q: %v", j.tc.Name, err)
	}
}

func (j *job) report() *CaseReport {
	j.mu.Lock()
	defer j.mu.Unlock()
	return &CaseReport{
		CaseID:   j.tc.ID,
		Name:     j.tc.Name,
		State:    j.state,
		Outcome:  j.outcome,
		Result:   j.result.Clone(),
		Duration: j.end.Sub(j.start),
	}
}

// watchdog fails the job once the timeout since submission elapses,
// whatever the poll loop is doing.
func (j *job) watchdog(ctx context.Context) {
	timeout := j.runner.opts.Timeout
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
		j.finalize(verdict{StateTimedOut, OutcomeTimedOut, testcase.StatusFail,
			fmt.Sprintf("Timeout: comparison did not complete within %s", timeout), nil})
	}
}

// poll checks the job status on every tick. Each request completes before
// the next tick is taken, and a response arriving after the job became
// terminal is dropped.
func (j *job) poll(ctx context.Context) {
	opts := j.runner.opts
	ticker := jitterbug.New(opts.PollInterval, &jitterbug.Norm{Stdev: opts.PollJitter, Mean: 0})
	defer ticker.Stop()

	notFound := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		st, err := j.runner.agent.Status(ctx, j.jobID)
		if j.terminal() || ctx.Err() != nil {
			return
		}
		if err != nil {
			var nf *agentclient.ErrJobNotFound
			if errors.As(err, &nf) {
				notFound++
				if notFound <= opts.NotFoundRetries {
					zap.S().Named("orchestrator").Debugf("job %s not found yet (%d/%d)", j.jobID, notFound, opts.NotFoundRetries)
					continue
				}
				j.finalize(verdict{StateFailed, OutcomePollError, testcase.StatusFail,
					fmt.Sprintf("Job %s not found after %d attempts", j.jobID, notFound), nil})
				return
			}
			j.finalize(verdict{StateFailed, OutcomePollError, testcase.StatusFail, "Status check failed: " + err.Error(), nil})
			return
		}
		notFound = 0

		switch st.Status {
		case agentclient.StatusCompleted:
			res, err := j.runner.agent.Results(ctx, j.jobID)
			if j.terminal() || ctx.Err() != nil {
				return
			}
			if err != nil {
				j.finalize(verdict{StateFailed, OutcomePollError, testcase.StatusFail, "Status check failed: fetching results: " + err.Error(), nil})
				return
			}
			if res.Summary == nil && st.Result != nil {
				res.Summary = st.Result.Summary
			}
			j.finalize(classifyCompleted(res))
			return
		case agentclient.StatusFailed, agentclient.StatusError:
			j.finalize(classifyFailed(st))
			return
		default:
			j.transition(StatePolling, fmt.Sprintf("Job %s %s", j.jobID, st.Status))
		}
	}
}
