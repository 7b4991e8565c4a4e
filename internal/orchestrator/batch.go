package orchestrator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"etl-verify/internal/testcase"
)

type BatchOptions struct {
	// Concurrency above 1 runs cases on a bounded pool without pacing.
	Concurrency int
	// Pacing is the pause between consecutive cases in sequential mode.
	Pacing time.Duration
	// Progress, if set, is called after each case finishes.
	Progress func(done, total int, report *CaseReport)
}

// BatchSummary aggregates a batch. Completed counts every non-skipped case.
type BatchSummary struct {
	Total     int
	Completed int
	Passed    int
	Failed    int
	Skipped   int
	Duration  time.Duration
	Results   []*CaseReport
}

// RunBatch runs every case of the suite against target. A failing case never
// stops the batch; cancelling ctx does, leaving later cases unreported.
func (r *Runner) RunBatch(ctx context.Context, target Target, opts BatchOptions) *BatchSummary {
	cases := r.suite.Cases()
	start := time.Now()
	reports := make([]*CaseReport, len(cases))

	var mu sync.Mutex
	done := 0
	finished := func(i int, rep *CaseReport) {
		mu.Lock()
		defer mu.Unlock()
		reports[i] = rep
		done++
		if opts.Progress != nil {
			opts.Progress(done, len(cases), rep)
		}
	}

	if opts.Concurrency > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Concurrency)
		for i, tc := range cases {
			if gctx.Err() != nil {
				break
			}
			i, tc := i, tc
			g.Go(func() error {
				finished(i, r.RunTestCase(gctx, tc.ID, target))
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, tc := range cases {
			if ctx.Err() != nil {
				break
			}
			if i > 0 && opts.Pacing > 0 {
				select {
				case <-ctx.Done():
				case <-time.After(opts.Pacing):
				}
				if ctx.Err() != nil {
					break
				}
			}
			finished(i, r.RunTestCase(ctx, tc.ID, target))
		}
	}

	summary := &BatchSummary{Total: len(cases), Duration: time.Since(start)}
	for _, rep := range reports {
		if rep == nil {
			continue
		}
		summary.Results = append(summary.Results, rep)
		switch {
		case rep.State == StateSkipped:
			summary.Skipped++
		case rep.Result != nil && rep.Result.Status == testcase.StatusPass:
			summary.Completed++
			summary.Passed++
		default:
			summary.Completed++
			summary.Failed++
		}
	}

	zap.S().Named("orchestrator").Infof("batch finished in %s: %d/%d completed, %d passed, %d failed, %d skipped",
		summary.Duration.Round(time.Millisecond), summary.Completed, summary.Total, summary.Passed, summary.Failed, summary.Skipped)
	return summary
}
