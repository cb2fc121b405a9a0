package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/gyaneshwarpardhi/towerroot/internal/config"
	"github.com/gyaneshwarpardhi/towerroot/internal/ctxlog"
	"github.com/gyaneshwarpardhi/towerroot/internal/dag"
	"github.com/gyaneshwarpardhi/towerroot/internal/input"
	"github.com/gyaneshwarpardhi/towerroot/internal/metrics"
	"github.com/gyaneshwarpardhi/towerroot/internal/nodeline"
	"github.com/gyaneshwarpardhi/towerroot/internal/report"
)

const defaultJobTimeoutMs = 5000

var (
	// ErrQueueFull is returned when the sort queue cannot take more work.
	ErrQueueFull = errors.New("sort queue full")
	// ErrTimeout is returned when a queued sort does not finish in time.
	ErrTimeout = errors.New("sort timed out")
	// ErrNoSnapshot is returned before any tree has been loaded.
	ErrNoSnapshot = errors.New("no tree loaded")
)

// Snapshot is one loaded, sorted tree. It is never modified after Load.
type Snapshot struct {
	ID       string
	Source   string
	Graph    *dag.Graph
	Order    dag.Order
	LoadedAt time.Time
}

// Report renders the snapshot.
func (s *Snapshot) Report() *report.Report {
	return report.New(s.Source, s.Graph, s.Order)
}

// Result is the outcome of sorting a single batch.
type Result struct {
	BatchID    string         `json:"batch_id"`
	Name       string         `json:"name,omitempty"`
	DurationMs float64        `json:"duration_ms"`
	Report     *report.Report `json:"report,omitempty"`
	Error      string         `json:"error,omitempty"`
	Err        error          `json:"-"`
}

// Engine keeps the current tree and runs ad-hoc sorts on a bounded pool.
type Engine struct {
	snapshot atomic.Pointer[Snapshot]
	strict   atomic.Bool
	pool     *workerPool[*input.Batch, *Result]
	reloads  singleflight.Group
	conf     config.EngineConf
}

// New creates an Engine using conf and starts its worker pool.
func New(ctx context.Context, conf config.EngineConf) *Engine {
	if conf.Workers <= 0 {
		conf.Workers = 1
	}
	if conf.QueueDepth <= 0 {
		conf.QueueDepth = 1
	}
	if conf.JobTimeoutMs <= 0 {
		conf.JobTimeoutMs = defaultJobTimeoutMs
	}
	e := &Engine{conf: conf}
	e.pool = newWorkerPool[*input.Batch, *Result](ctx, conf.Workers, conf.QueueDepth, e.run)
	return e
}

// SetStrictDuplicates toggles duplicate-id rejection for later builds.
func (e *Engine) SetStrictDuplicates(strict bool) {
	e.strict.Store(strict)
}

func (e *Engine) buildOptions() []dag.BuildOption {
	if e.strict.Load() {
		return []dag.BuildOption{dag.WithStrictDuplicates()}
	}
	return nil
}

// Compute parses, builds and sorts lines, recording metrics for the outcome.
func Compute(lines []string, opts ...dag.BuildOption) (*dag.Graph, dag.Order, error) {
	start := time.Now()
	g, order, err := compute(lines, opts...)
	metrics.SortDuration.Observe(float64(time.Since(start).Microseconds()) / 1000)
	observe(len(lines), err)
	return g, order, err
}

func compute(lines []string, opts ...dag.BuildOption) (*dag.Graph, dag.Order, error) {
	g, err := dag.Build(lines, opts...)
	if err != nil {
		return nil, nil, err
	}
	order, err := dag.Sort(g)
	if err != nil {
		return nil, nil, err
	}
	return g, order, nil
}

func observe(lines int, err error) {
	var se *dag.StructuralError
	switch {
	case err == nil:
		metrics.LinesParsed.Add(float64(lines))
		metrics.Sorts.WithLabelValues("ok").Inc()
	case errors.Is(err, nodeline.ErrParse):
		metrics.ParseErrors.Inc()
		metrics.Sorts.WithLabelValues("parse_error").Inc()
	case errors.As(err, &se):
		metrics.StructuralErrors.WithLabelValues(string(se.Kind)).Inc()
		metrics.Sorts.WithLabelValues("structural_error").Inc()
	default:
		metrics.Sorts.WithLabelValues("error").Inc()
	}
}

func (e *Engine) run(ctx context.Context, b *input.Batch) *Result {
	start := time.Now()
	res := &Result{BatchID: b.ID, Name: b.Name}
	g, order, err := Compute(b.Lines, e.buildOptions()...)
	res.DurationMs = float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		res.Err = err
		res.Error = err.Error()
		ctxlog.FromContext(ctx).Debug("sort failed", "batch", b.ID, "err", err)
		return res
	}
	res.Report = report.New(b.Name, g, order)
	ctxlog.FromContext(ctx).Debug("sort done", "batch", b.ID, "nodes", len(order), "root", order.Root())
	return res
}

// SortSync queues b and waits for its result, the job timeout or ctx.
func (e *Engine) SortSync(ctx context.Context, b *input.Batch) (*Result, error) {
	reply, ok := e.pool.Submit(ctx, b)
	if !ok {
		metrics.Sorts.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w (capacity %d)", ErrQueueFull, e.conf.QueueDepth)
	}
	return e.wait(ctx, reply)
}

func (e *Engine) wait(ctx context.Context, reply <-chan *Result) (*Result, error) {
	timeout := time.Duration(e.conf.JobTimeoutMs) * time.Millisecond
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case res := <-reply:
		return res, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w after %v", ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SortBatch queues every batch and collects one Result per batch, in order.
// A batch that cannot be queued or does not finish carries the error in its Result.
func (e *Engine) SortBatch(ctx context.Context, batches []*input.Batch) []*Result {
	replies := make([]<-chan *Result, len(batches))
	for i, b := range batches {
		if reply, ok := e.pool.Submit(ctx, b); ok {
			replies[i] = reply
		} else {
			metrics.Sorts.WithLabelValues("rejected").Inc()
		}
	}
	out := make([]*Result, len(batches))
	for i, b := range batches {
		if replies[i] == nil {
			out[i] = failed(b, ErrQueueFull)
			continue
		}
		res, err := e.wait(ctx, replies[i])
		if err != nil {
			out[i] = failed(b, err)
			continue
		}
		out[i] = res
	}
	return out
}

func failed(b *input.Batch, err error) *Result {
	return &Result{BatchID: b.ID, Name: b.Name, Err: err, Error: err.Error()}
}

// Load builds and sorts b synchronously and, on success, swaps it in as the
// current snapshot. On failure the previous snapshot stays in place.
func (e *Engine) Load(b *input.Batch) (*Snapshot, error) {
	g, order, err := Compute(b.Lines, e.buildOptions()...)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", b.Name, err)
	}
	s := &Snapshot{
		ID:       uuid.New().String(),
		Source:   b.Name,
		Graph:    g,
		Order:    order,
		LoadedAt: time.Now(),
	}
	e.snapshot.Store(s)
	metrics.TreeNodes.Set(float64(g.Len()))
	return s, nil
}

// Reload reads path and loads it. Concurrent reloads of the same path share
// one read.
func (e *Engine) Reload(ctx context.Context, path string) (*Snapshot, error) {
	v, err, shared := e.reloads.Do(path, func() (interface{}, error) {
		b, err := input.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return e.Load(b)
	})
	if err != nil {
		metrics.Reloads.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.Reloads.WithLabelValues("ok").Inc()
	s := v.(*Snapshot)
	ctxlog.FromContext(ctx).Info("tree loaded", "path", path, "nodes", s.Graph.Len(), "root", s.Order.Root(), "shared", shared)
	return s, nil
}

// Current returns the loaded snapshot.
func (e *Engine) Current() (*Snapshot, error) {
	s := e.snapshot.Load()
	if s == nil {
		return nil, ErrNoSnapshot
	}
	return s, nil
}

// QueueUtilization returns queue used / capacity (0–1).
func (e *Engine) QueueUtilization() float64 {
	if e.pool.QueueCap() == 0 {
		return 0
	}
	return float64(e.pool.QueueLen()) / float64(e.pool.QueueCap())
}

// Shutdown drains the pool gracefully.
func (e *Engine) Shutdown() {
	e.pool.Drain()
}
