// Package dispatch runs per-candidate detail work across a bounded
// worker pool while holding a global accepted-lead ceiling exactly
// once, even under contention.
package dispatch

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/handwerk-leads/leads-cli/internal/model"
)

// SlotLimiter bounds the total number of accepted leads across all
// workers. A reservation is taken before any expensive external call
// and released when the work does not produce a lead, so the cap can
// never be overshot and failed fetches never burn slots.
type SlotLimiter struct {
	mu    sync.Mutex
	count int
	max   int // 0 means unlimited
}

// NewSlotLimiter creates a limiter with the given maximum. max <= 0
// disables the cap.
func NewSlotLimiter(max int) *SlotLimiter {
	if max < 0 {
		max = 0
	}
	return &SlotLimiter{max: max}
}

// Seed pre-fills the counter, so leads collected by an interrupted run
// still count against the cap on resume.
func (l *SlotLimiter) Seed(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.count += n
}

// TryReserve atomically checks the cap and claims a slot. The check and
// the increment share one critical section: splitting them would let
// concurrent workers overshoot the cap by up to worker-count-1.
func (l *SlotLimiter) TryReserve() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.max > 0 && l.count >= l.max {
		return false
	}
	l.count++
	return true
}

// Release returns a reserved slot that did not culminate in an
// accepted lead.
func (l *SlotLimiter) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.count > 0 {
		l.count--
	}
}

// Count returns the current reserved/accepted total.
func (l *SlotLimiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Full reports whether the cap is reached.
func (l *SlotLimiter) Full() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.max > 0 && l.count >= l.max
}

// Work fetches details for one candidate and returns the resulting
// lead. Returning (nil, nil) means the candidate produced nothing
// (invalid record, no details); an error is treated the same way after
// logging. Work must be safe for concurrent use.
type Work func(ctx context.Context, c model.Candidate) (*model.Lead, error)

// Options configures a dispatch run.
type Options struct {
	// Skip is a cheap pre-check run before reserving a slot, e.g. the
	// checkpoint's IsProcessed test. A skipped candidate has no side
	// effects at all.
	Skip func(c model.Candidate) bool

	// OnRejected is called when a candidate is turned away because the
	// lead cap is already reached. The pipeline counts these as skipped
	// detail lookups.
	OnRejected func(c model.Candidate)

	// OnAccepted is called after each accepted lead with the number of
	// leads collected so far in this run. The pipeline uses it for
	// checkpoint cadence saves.
	OnAccepted func(collected int)

	// OnInterrupt is called once when the run is cut short by context
	// cancellation, before Run returns. Committed state (checkpoint)
	// is flushed here; in-flight tasks are abandoned.
	OnInterrupt func()
}

// Dispatcher runs candidate work on a bounded pool.
type Dispatcher struct {
	workers int
	limiter *SlotLimiter
	log     *zap.Logger
}

// New creates a Dispatcher with the given pool size and shared limiter.
func New(workers int, limiter *SlotLimiter) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{
		workers: workers,
		limiter: limiter,
		log:     zap.L().With(zap.String("component", "dispatch")),
	}
}

// Run processes all candidates and returns the accepted leads in
// completion order. A failing task is logged and contributes nothing;
// it never aborts its siblings. Run returns early (after OnInterrupt)
// when ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context, candidates []model.Candidate, work Work, opts Options) []model.Lead {
	var (
		mu    sync.Mutex
		leads []model.Lead
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)

	for _, c := range candidates {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return nil
			default:
			}

			lead := d.process(gctx, c, work, opts)
			if lead == nil {
				return nil
			}

			mu.Lock()
			leads = append(leads, *lead)
			collected := len(leads)
			mu.Unlock()

			if opts.OnAccepted != nil {
				opts.OnAccepted(collected)
			}
			return nil
		})
	}

	_ = g.Wait()

	if ctx.Err() != nil && opts.OnInterrupt != nil {
		opts.OnInterrupt()
	}

	return leads
}

// process handles one candidate: pre-check, slot reservation, detail
// work, and slot release when no lead came out of it.
func (d *Dispatcher) process(ctx context.Context, c model.Candidate, work Work, opts Options) (lead *model.Lead) {
	if opts.Skip != nil && opts.Skip(c) {
		return nil
	}

	// Reserve before the expensive external call; reject with no side
	// effects once the cap is reached.
	if !d.limiter.TryReserve() {
		if opts.OnRejected != nil {
			opts.OnRejected(c)
		}
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("task panicked", zap.String("candidate", c.Name), zap.Any("panic", r))
			lead = nil
		}
		if lead == nil {
			d.limiter.Release()
		}
	}()

	result, err := work(ctx, c)
	if err != nil {
		d.log.Debug("task failed", zap.String("candidate", c.Name), zap.Error(err))
		return nil
	}
	return result
}
