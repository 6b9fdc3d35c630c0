package tune

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cwbudde/mandelvec/internal/escape"
	"github.com/cwbudde/mandelvec/internal/store"
)

// gridOptimizer evaluates every point of an n×m grid over [0,1]².
type gridOptimizer struct {
	n, m int
}

func (g gridOptimizer) Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64) {
	var best []float64
	bestCost := 0.0
	for i := 0; i < g.n; i++ {
		for j := 0; j < g.m; j++ {
			pos := []float64{float64(i) / float64(g.n-1), float64(j) / float64(g.m-1)}
			if c := eval(pos); best == nil || c < bestCost {
				best, bestCost = pos, c
			}
		}
	}
	return best, bestCost
}

// bowl is a fake timing with its minimum at block 8, 2 workers.
type bowl struct {
	mu    sync.Mutex
	calls int
}

func (b *bowl) measure(v escape.Variant, p escape.Params, c Config) (time.Duration, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	d := 100 + abs(c.BlockSize-8)*10 + abs(c.Workers-2)*7
	return time.Duration(d) * time.Microsecond, nil
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

type traceRecorder struct {
	entries []store.TraceEntry
}

func (r *traceRecorder) Write(e store.TraceEntry) error {
	r.entries = append(r.entries, e)
	return nil
}

func testTuner(t *testing.T, name string) (*Tuner, *bowl) {
	t.Helper()
	v, err := escape.ParseVariant(name)
	if err != nil {
		t.Fatal(err)
	}
	p := escape.DefaultParams()
	p.Width, p.Height = 32, 32
	b := &bowl{}
	return &Tuner{
		Variant:      v,
		Params:       p,
		MaxBlockSize: 16,
		MaxWorkers:   4,
		Repeats:      2,
		Optimizer:    gridOptimizer{n: 16, m: 4},
		Measure:      b.measure,
	}, b
}

func TestTuner_FindsMinimum(t *testing.T) {
	tuner, b := testTuner(t, "stitch8")
	rec := &traceRecorder{}
	tuner.Trace = rec

	res, err := tuner.Tune(context.Background())
	if err != nil {
		t.Fatalf("Tune failed: %v", err)
	}
	if res.Best != (Config{BlockSize: 8, Workers: 2}) {
		t.Errorf("Best = %+v, want block 8 workers 2", res.Best)
	}
	if res.Elapsed != 100*time.Microsecond {
		t.Errorf("Elapsed = %v, want 100µs", res.Elapsed)
	}
	if res.Evaluations != 64 || res.Measured != 64 {
		t.Errorf("evaluations/measured = %d/%d, want 64/64", res.Evaluations, res.Measured)
	}
	if b.calls != 64*2 {
		t.Errorf("measure called %d times, want %d", b.calls, 64*2)
	}
	if len(rec.entries) != 64 || rec.entries[0].Evaluation != 1 {
		t.Errorf("trace has %d entries", len(rec.entries))
	}
}

func TestTuner_MemoizesConfigurations(t *testing.T) {
	tuner, b := testTuner(t, "direct8")
	rec := &traceRecorder{}
	tuner.Trace = rec

	res, err := tuner.Tune(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	// Block size is irrelevant for direct kernels, so only workers vary.
	if res.Measured != 4 {
		t.Errorf("Measured = %d, want 4", res.Measured)
	}
	if b.calls != 4*2 {
		t.Errorf("measure called %d times, want 8", b.calls)
	}
	if res.Best.BlockSize != escape.DefaultBlockSize || res.Best.Workers != 2 {
		t.Errorf("Best = %+v", res.Best)
	}
	cached := 0
	for _, e := range rec.entries {
		if e.Cached {
			cached++
		}
	}
	if cached != 60 {
		t.Errorf("cached trace entries = %d, want 60", cached)
	}
}

func TestTuner_Decode(t *testing.T) {
	tuner, _ := testTuner(t, "fma4")

	tests := []struct {
		pos  []float64
		want Config
	}{
		{[]float64{0, 0}, Config{1, 1}},
		{[]float64{1, 1}, Config{16, 4}},
		{[]float64{-3, 7}, Config{1, 4}},
		{[]float64{0.5, 0.5}, Config{9, 3}},
	}
	for _, tt := range tests {
		if got := tuner.Decode(tt.pos); got != tt.want {
			t.Errorf("Decode(%v) = %+v, want %+v", tt.pos, got, tt.want)
		}
	}
}

func TestTuner_CancelledContext(t *testing.T) {
	tuner, b := testTuner(t, "stitch4")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := tuner.Tune(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if b.calls != 0 {
		t.Errorf("measured %d times after cancellation", b.calls)
	}
}

func TestTuner_MeasureError(t *testing.T) {
	tuner, _ := testTuner(t, "stitch4")
	boom := errors.New("boom")
	tuner.Measure = func(escape.Variant, escape.Params, Config) (time.Duration, error) {
		return 0, boom
	}

	if _, err := tuner.Tune(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected measure error, got %v", err)
	}
}

func TestTuner_InvalidParams(t *testing.T) {
	tuner, _ := testTuner(t, "fpu")
	tuner.Params.Width = 10
	if _, err := tuner.Tune(context.Background()); !errors.Is(err, escape.ErrInvalidParams) {
		t.Errorf("expected ErrInvalidParams, got %v", err)
	}
}

func TestMeasureRender(t *testing.T) {
	p := escape.DefaultParams()
	p.Width, p.Height = 16, 16
	d, err := MeasureRender(escape.Variant{Kind: escape.KindDual, Width: 4}, p, Config{BlockSize: 4, Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	if d <= 0 {
		t.Errorf("elapsed = %v, want > 0", d)
	}
	if _, err := MeasureRender(escape.Variant{Kind: escape.KindDual, Width: 3}, p, Config{1, 1}); err == nil {
		t.Error("expected error for unsupported width")
	}
}

func TestNewTuner_Defaults(t *testing.T) {
	v := escape.Variant{Kind: escape.KindDual, Width: 4}
	tuner := NewTuner(v, escape.DefaultParams(), 7, 3)

	if tuner.Variant != v {
		t.Errorf("Variant = %v, want %v", tuner.Variant, v)
	}
	if tuner.Measure == nil {
		t.Error("Measure not set")
	}
	if tuner.Convergence != DefaultConvergenceConfig() {
		t.Errorf("Convergence = %+v, want defaults", tuner.Convergence)
	}
	m, ok := tuner.Optimizer.(*MayflyAdapter)
	if !ok {
		t.Fatalf("Optimizer = %T, want *MayflyAdapter", tuner.Optimizer)
	}
	if m.maxIters != 7 || m.seed != 3 || m.popSize != minPopulation {
		t.Errorf("mayfly = %+v", *m)
	}
}
