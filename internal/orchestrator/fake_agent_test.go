package orchestrator_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"etl-verify/internal/agentclient"
)

// step is one scripted status poll response. The last step of a script
// repeats forever.
type step struct {
	status  string
	errText string
	result  *agentclient.JobResult
	err     error
	delay   time.Duration
	// ignoreCtx makes the delayed response arrive even after cancellation.
	ignoreCtx bool
}

type script struct {
	submitErr  error
	steps      []step
	results    *agentclient.JobResult
	resultsErr error
}

type fakeAgent struct {
	mu          sync.Mutex
	scripts     map[string]*script
	fallback    *script
	jobs        map[string]*script
	requests    []*agentclient.JobRequest
	polls       map[string]int
	resultCalls int
	inflight    int
	maxInflight int
	active      int
	maxActive   int
}

func newFakeAgent(fallback *script) *fakeAgent {
	return &fakeAgent{
		scripts:  make(map[string]*script),
		fallback: fallback,
		jobs:     make(map[string]*script),
		polls:    make(map[string]int),
	}
}

func (f *fakeAgent) Submit(ctx context.Context, req *agentclient.JobRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	s, ok := f.scripts[req.TestCase.Name]
	if !ok {
		s = f.fallback
	}
	if s.submitErr != nil {
		return "", s.submitErr
	}
	id := "job-" + req.TestCase.Name
	f.jobs[id] = s
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	return id, nil
}

func (f *fakeAgent) Status(ctx context.Context, id string) (*agentclient.JobStatus, error) {
	f.mu.Lock()
	s := f.jobs[id]
	n := f.polls[id]
	f.polls[id]++
	st := s.steps[min(n, len(s.steps)-1)]
	f.inflight++
	if f.inflight > f.maxInflight {
		f.maxInflight = f.inflight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inflight--
		f.mu.Unlock()
	}()

	if st.delay > 0 {
		if st.ignoreCtx {
			time.Sleep(st.delay)
		} else {
			select {
			case <-time.After(st.delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if st.err != nil {
		return nil, st.err
	}

	status := &agentclient.JobStatus{JobID: id, Status: st.status, Error: st.errText, Result: st.result}
	if status.Terminal() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}
	return status, nil
}

func (f *fakeAgent) Results(ctx context.Context, id string) (*agentclient.JobResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resultCalls++
	s := f.jobs[id]
	if s.resultsErr != nil {
		return nil, s.resultsErr
	}
	if s.results == nil {
		return &agentclient.JobResult{}, nil
	}
	res := *s.results
	return &res, nil
}

func (f *fakeAgent) pollCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls[id]
}

func (f *fakeAgent) submitted() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

var errNotFound = agentclient.NewErrJobNotFound("job")

func running() step { return step{status: agentclient.StatusRunning} }

func notFound() step { return step{err: errNotFound} }

func completed() step { return step{status: agentclient.StatusCompleted} }

func boom(msg string) step { return step{err: errors.New(msg)} }
