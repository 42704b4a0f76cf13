package search

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eliteGoblin/bluecore/internal/domain"
)

// WorkFunc walks one root. It must return soon after ctx is done.
type WorkFunc func(ctx context.Context, root string) domain.WalkResult

// Limits bounds one dispatch.
type Limits struct {
	Concurrency   int           // max walks in flight
	TaskTimeout   time.Duration // per root; 0 disables
	GlobalTimeout time.Duration // whole dispatch; 0 disables
}

// Dispatcher runs one WorkFunc per root with bounded concurrency.
type Dispatcher struct {
	limits Limits
	logger *zap.Logger
}

// NewDispatcher creates a dispatcher. Concurrency below 1 is raised to 1.
func NewDispatcher(limits Limits, logger *zap.Logger) *Dispatcher {
	if limits.Concurrency < 1 {
		limits.Concurrency = 1
	}
	return &Dispatcher{limits: limits, logger: logger}
}

type completion struct {
	result domain.WalkResult
	// abandoned is set when the walk was cut short by the dispatch-wide
	// deadline rather than its own; such completions are not counted.
	abandoned bool
}

// Dispatch walks roots and aggregates the successful results.
// It returns once every root is accounted for or the global deadline
// (or ctx) fires, in which case results collected so far are returned and
// walks still in flight are abandoned.
func (d *Dispatcher) Dispatch(ctx context.Context, kind domain.SearchKind, roots []string, work WorkFunc) domain.SearchReport {
	start := time.Now()
	roots = UniqueRoots(roots)
	summary := domain.ScanSummary{
		RunID:     uuid.NewString(),
		Kind:      kind,
		Roots:     len(roots),
		StartedAt: start,
	}
	agg := NewAggregator()

	d.logger.Debug("search started",
		zap.String("run_id", summary.RunID),
		zap.String("kind", string(kind)),
		zap.Int("roots", len(roots)),
		zap.Int("concurrency", d.limits.Concurrency))

	globalCtx, cancel := withOptionalTimeout(ctx, d.limits.GlobalTimeout)
	defer cancel()

	// Sized so abandoned tasks can always deliver and exit.
	completions := make(chan completion, len(roots))
	next, inFlight := 0, 0
	launch := func() {
		root := roots[next]
		next++
		inFlight++
		go d.runTask(globalCtx, root, work, completions)
	}

	for inFlight < d.limits.Concurrency && next < len(roots) {
		launch()
	}

loop:
	for inFlight > 0 {
		select {
		case c := <-completions:
			if c.abandoned {
				continue
			}
			inFlight--
			d.record(&summary, agg, c.result)
			if next < len(roots) && globalCtx.Err() == nil {
				launch()
			}
		case <-globalCtx.Done():
			summary.GlobalTimeout = errors.Is(globalCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
			summary.Abandoned = inFlight
			summary.NotStarted = len(roots) - next
			d.logger.Warn("search stopped before all roots finished",
				zap.String("run_id", summary.RunID),
				zap.String("kind", string(kind)),
				zap.Bool("global_timeout", summary.GlobalTimeout),
				zap.Int("abandoned", summary.Abandoned),
				zap.Int("not_started", summary.NotStarted))
			break loop
		}
	}

	summary.Found = agg.Found()
	summary.Duration = time.Since(start)

	d.logger.Debug("search finished",
		zap.String("run_id", summary.RunID),
		zap.Int("completed", summary.Completed),
		zap.Int("timed_out", summary.TimedOut),
		zap.Int("failed", summary.Failed),
		zap.Int("found", summary.Found),
		zap.Duration("duration", summary.Duration))

	return domain.SearchReport{
		Summary:  summary,
		Files:    agg.Files(),
		Packages: agg.Packages(),
	}
}

// runTask races one walk against its own deadline and always delivers
// exactly one completion.
func (d *Dispatcher) runTask(parent context.Context, root string, work WorkFunc, out chan<- completion) {
	taskCtx, cancel := withOptionalTimeout(parent, d.limits.TaskTimeout)
	defer cancel()

	done := make(chan domain.WalkResult, 1)
	go func() {
		done <- work(taskCtx, root)
	}()

	select {
	case result := <-done:
		out <- completion{
			result:    result,
			abandoned: result.Status != domain.WalkOK && parent.Err() != nil,
		}
	case <-taskCtx.Done():
		out <- completion{
			result: domain.WalkResult{
				Root:   root,
				Status: domain.WalkTimedOut,
				Err:    taskCtx.Err(),
			},
			abandoned: parent.Err() != nil,
		}
	}
}

func (d *Dispatcher) record(summary *domain.ScanSummary, agg *Aggregator, result domain.WalkResult) {
	summary.Completed++

	switch result.Status {
	case domain.WalkOK:
		agg.Add(result)
		if result.Truncated {
			d.logger.Debug("search root truncated",
				zap.String("root", result.Root),
				zap.Int("visited", result.Visited))
		}
	case domain.WalkError:
		summary.Failed++
		d.logger.Debug("search root failed",
			zap.String("root", result.Root),
			zap.Error(result.Err))
	default:
		// A walk that observed its own cancellation is treated the same as
		// one the dispatcher gave up on: partial output is discarded.
		summary.TimedOut++
		d.logger.Info("search root timed out",
			zap.String("root", result.Root),
			zap.Duration("timeout", d.limits.TaskTimeout))
	}
}

// UniqueRoots cleans roots and drops empties and duplicates, keeping order.
func UniqueRoots(roots []string) []string {
	seen := make(map[string]struct{}, len(roots))
	out := make([]string, 0, len(roots))
	for _, root := range roots {
		if root == "" {
			continue
		}
		root = filepath.Clean(root)
		if _, ok := seen[root]; ok {
			continue
		}
		seen[root] = struct{}{}
		out = append(out, root)
	}
	return out
}

func withOptionalTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}
