package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/towerroot/internal/config"
	"github.com/gyaneshwarpardhi/towerroot/internal/dag"
	"github.com/gyaneshwarpardhi/towerroot/internal/input"
	"github.com/gyaneshwarpardhi/towerroot/internal/nodeline"
)

var sampleTower = []string{
	"pbga (66)", "xhth (57)", "ebii (61)", "havc (66)", "ktlj (57)",
	"fwft (72) -> ktlj, cntj, xhth", "qoyq (66)",
	"padx (45) -> pbga, havc, qoyq", "tknk (41) -> ugml, padx, fwft",
	"jptl (61)", "ugml (68) -> gyxo, ebii, jptl", "gyxo (61)", "cntj (57)",
}

func testConf() config.EngineConf {
	return config.EngineConf{Workers: 2, QueueDepth: 16, JobTimeoutMs: 2000}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	e := New(ctx, testConf())
	t.Cleanup(func() {
		e.Shutdown()
		cancel()
	})
	return e
}

func TestSortSync(t *testing.T) {
	e := newTestEngine(t)
	res, err := e.SortSync(context.Background(), input.NewBatch("sample", sampleTower))
	require.NoError(t, err)
	require.NoError(t, res.Err)
	require.NotNil(t, res.Report)
	assert.Equal(t, "tknk", res.Report.Root)
	assert.Equal(t, 13, res.Report.Count)
	assert.Equal(t, "sample", res.Name)
}

func TestNew_ZeroConfDefaults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	e := New(ctx, config.EngineConf{})
	t.Cleanup(func() {
		e.Shutdown()
		cancel()
	})
	assert.Equal(t, defaultJobTimeoutMs, e.conf.JobTimeoutMs)

	res, err := e.SortSync(context.Background(), input.NewBatch("sample", sampleTower))
	require.NoError(t, err)
	require.NoError(t, res.Err)
	assert.Equal(t, "tknk", res.Report.Root)
}

func TestSortSync_Errors(t *testing.T) {
	e := newTestEngine(t)

	res, err := e.SortSync(context.Background(), input.NewBatch("bad", []string{"abc 5"}))
	require.NoError(t, err)
	assert.ErrorIs(t, res.Err, nodeline.ErrParse)
	assert.NotEmpty(t, res.Error)
	assert.Nil(t, res.Report)

	res, err = e.SortSync(context.Background(), input.NewBatch("forest", []string{"a (1)", "b (2)"}))
	require.NoError(t, err)
	assert.ErrorIs(t, res.Err, dag.ErrStructural)
}

func TestSortSync_Strict(t *testing.T) {
	e := newTestEngine(t)
	lines := []string{"a (1) -> b", "b (2)", "b (3)"}

	res, err := e.SortSync(context.Background(), input.NewBatch("dup", lines))
	require.NoError(t, err)
	require.NoError(t, res.Err)

	e.SetStrictDuplicates(true)
	res, err = e.SortSync(context.Background(), input.NewBatch("dup", lines))
	require.NoError(t, err)
	var se *dag.StructuralError
	require.ErrorAs(t, res.Err, &se)
	assert.Equal(t, dag.KindDuplicateNode, se.Kind)
}

func TestSortSync_Timeout(t *testing.T) {
	conf := testConf()
	conf.JobTimeoutMs = 20
	e := &Engine{conf: conf}
	// No workers: the job is queued but never picked up.
	e.pool = newWorkerPool[*input.Batch, *Result](context.Background(), 0, 4, e.run)

	_, err := e.SortSync(context.Background(), input.NewBatch("slow", sampleTower))
	assert.ErrorIs(t, err, ErrTimeout)
	assert.InDelta(t, 0.25, e.QueueUtilization(), 1e-9)
}

func TestSortSync_Canceled(t *testing.T) {
	e := &Engine{conf: testConf()}
	e.pool = newWorkerPool[*input.Batch, *Result](context.Background(), 0, 4, e.run)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.SortSync(ctx, input.NewBatch("x", sampleTower))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSortBatch(t *testing.T) {
	e := newTestEngine(t)
	results := e.SortBatch(context.Background(), []*input.Batch{
		input.NewBatch("one", sampleTower),
		input.NewBatch("two", []string{"x (1)"}),
		input.NewBatch("three", []string{"x (1) -> y"}),
	})
	require.Len(t, results, 3)
	assert.Equal(t, "tknk", results[0].Report.Root)
	assert.Equal(t, "x", results[1].Report.Root)
	assert.ErrorIs(t, results[2].Err, dag.ErrStructural)
	assert.Equal(t, "three", results[2].Name)
}

func TestSortBatch_QueueFull(t *testing.T) {
	e := &Engine{conf: testConf()}
	e.pool = newWorkerPool[*input.Batch, *Result](context.Background(), 0, 1, e.run)
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // don't wait on the one queued job

	results := e.SortBatch(ctx, []*input.Batch{
		input.NewBatch("a", sampleTower),
		input.NewBatch("b", sampleTower),
	})
	assert.ErrorIs(t, results[0].Err, context.Canceled)
	assert.ErrorIs(t, results[1].Err, ErrQueueFull)
}

func TestLoadAndCurrent(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Current()
	assert.ErrorIs(t, err, ErrNoSnapshot)

	s, err := e.Load(input.NewBatch("sample", sampleTower))
	require.NoError(t, err)
	assert.Equal(t, nodeline.Identifier("tknk"), s.Order.Root())

	// A failing load keeps the previous snapshot.
	_, err = e.Load(input.NewBatch("bad", []string{"a (1) -> missing"}))
	assert.ErrorIs(t, err, dag.ErrStructural)

	cur, err := e.Current()
	require.NoError(t, err)
	assert.Equal(t, s.ID, cur.ID)
	assert.Equal(t, "tknk", cur.Report().Root)
}

func TestReload(t *testing.T) {
	e := newTestEngine(t)
	path := filepath.Join(t.TempDir(), "tower.txt")
	require.NoError(t, os.WriteFile(path, []byte("r (1) -> a\na (2)\n"), 0o644))

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.Reload(context.Background(), path)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}
	cur, err := e.Current()
	require.NoError(t, err)
	assert.Equal(t, nodeline.Identifier("r"), cur.Order.Root())
	assert.Equal(t, path, cur.Source)

	_, err = e.Reload(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestShutdown_RejectsWork(t *testing.T) {
	e := New(context.Background(), testConf())
	e.Shutdown()
	e.Shutdown() // idempotent

	_, err := e.SortSync(context.Background(), input.NewBatch("late", sampleTower))
	assert.True(t, errors.Is(err, ErrQueueFull))
}
