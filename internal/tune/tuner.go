// Package tune searches the renderer's execution knobs (speculative block size
// and worker count) for the fastest configuration on the current machine.
package tune

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/cwbudde/mandelvec/internal/escape"
	"github.com/cwbudde/mandelvec/internal/store"
)

// Config is one point of the search space.
type Config struct {
	BlockSize int `json:"blockSize"`
	Workers   int `json:"workers"`
}

// MeasureFunc times one render of p with the given configuration.
type MeasureFunc func(v escape.Variant, p escape.Params, c Config) (time.Duration, error)

// TraceSink receives every evaluated configuration. *store.TraceWriter
// satisfies it.
type TraceSink interface {
	Write(entry store.TraceEntry) error
}

// Result is the outcome of a tuning session.
type Result struct {
	Best        Config        `json:"best"`
	Elapsed     time.Duration `json:"elapsed"`
	Evaluations int           `json:"evaluations"`
	Measured    int           `json:"measured"`
	Converged   bool          `json:"converged"`
}

// errConverged marks objective calls skipped after convergence.
var errConverged = errors.New("search converged")

// Tuner searches block size and worker count for one variant and image.
type Tuner struct {
	Variant escape.Variant
	Params  escape.Params

	// MaxBlockSize and MaxWorkers bound the search; zero means 64 and
	// GOMAXPROCS.
	MaxBlockSize int
	MaxWorkers   int

	// Repeats is the number of renders per configuration; the minimum time
	// is used. Zero means 3.
	Repeats int

	Optimizer Optimizer
	Measure   MeasureFunc
	Trace     TraceSink

	// Convergence stops measuring new configurations once the best time has
	// not improved for a while. The zero value never stops.
	Convergence ConvergenceConfig

	mu        sync.Mutex
	memo      map[Config]time.Duration
	evals     int
	err       error
	tracker   *convergenceTracker
	converged bool
}

// NewTuner creates a tuner with the mayfly optimizer and real renders.
func NewTuner(v escape.Variant, p escape.Params, iterations int, seed int64) *Tuner {
	return &Tuner{
		Variant:     v,
		Params:      p,
		Optimizer:   NewMayfly(iterations, minPopulation, seed),
		Measure:     MeasureRender,
		Convergence: DefaultConvergenceConfig(),
	}
}

// MeasureRender renders p once with a fresh renderer and returns the wall time
// of the render call.
func MeasureRender(v escape.Variant, p escape.Params, c Config) (time.Duration, error) {
	r, err := escape.NewRenderer(v, escape.WithWorkers(c.Workers), escape.WithBlockSize(c.BlockSize))
	if err != nil {
		return 0, err
	}
	dst := make([]uint16, p.Pixels())
	start := time.Now()
	r.Render(p, dst)
	return time.Since(start), nil
}

func (t *Tuner) maxBlockSize() int {
	if t.MaxBlockSize > 0 {
		return t.MaxBlockSize
	}
	return 64
}

func (t *Tuner) maxWorkers() int {
	if t.MaxWorkers > 0 {
		return t.MaxWorkers
	}
	return runtime.GOMAXPROCS(0)
}

func (t *Tuner) repeats() int {
	if t.Repeats > 0 {
		return t.Repeats
	}
	return 3
}

// Decode maps a position in [0,1]² onto a configuration. Kinds without
// speculative blocks always decode to the default block size.
func (t *Tuner) Decode(pos []float64) Config {
	c := Config{
		BlockSize: scale(pos[0], t.maxBlockSize()),
		Workers:   scale(pos[1], t.maxWorkers()),
	}
	if t.Variant.Kind != escape.KindSpeculative && t.Variant.Kind != escape.KindDual {
		c.BlockSize = escape.DefaultBlockSize
	}
	return c
}

// scale maps x in [0,1] onto an integer in [1,n].
func scale(x float64, n int) int {
	if math.IsNaN(x) {
		return 1
	}
	x = min(max(x, 0), 1)
	return 1 + int(math.Round(x*float64(n-1)))
}

// Tune runs the search. The context stops further measurements; the best
// configuration seen so far is returned together with the context error.
func (t *Tuner) Tune(ctx context.Context) (Result, error) {
	if err := t.Params.Validate(); err != nil {
		return Result{}, fmt.Errorf("tune: %w", err)
	}
	if t.Optimizer == nil || t.Measure == nil {
		return Result{}, fmt.Errorf("tune: optimizer and measure function are required")
	}

	t.mu.Lock()
	t.memo = make(map[Config]time.Duration)
	t.evals = 0
	t.err = nil
	t.tracker = newConvergenceTracker(t.Convergence)
	t.converged = false
	t.mu.Unlock()

	objective := func(pos []float64) float64 {
		if ctx.Err() != nil {
			return math.Inf(1)
		}
		elapsed, err := t.evaluate(t.Decode(pos))
		if err != nil {
			return math.Inf(1)
		}
		return float64(elapsed.Microseconds())
	}

	lower := []float64{0, 0}
	upper := []float64{1, 1}
	t.Optimizer.Run(objective, lower, upper, 2)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.err != nil {
		return Result{}, t.err
	}

	res := Result{Evaluations: t.evals, Measured: len(t.memo), Converged: t.converged}
	first := true
	for c, d := range t.memo {
		if first || d < res.Elapsed || (d == res.Elapsed && less(c, res.Best)) {
			res.Best, res.Elapsed = c, d
			first = false
		}
	}
	if first {
		return res, fmt.Errorf("tune: no configuration measured: %w", ctx.Err())
	}

	slog.Info("Tuning finished",
		"variant", t.Variant.String(),
		"blockSize", res.Best.BlockSize,
		"workers", res.Best.Workers,
		"elapsed", res.Elapsed,
		"evaluations", res.Evaluations,
		"measured", res.Measured)

	return res, ctx.Err()
}

// less orders configurations deterministically for ties.
func less(a, b Config) bool {
	if a.Workers != b.Workers {
		return a.Workers < b.Workers
	}
	return a.BlockSize < b.BlockSize
}

// evaluate returns the memoised time for c, measuring it on first use.
func (t *Tuner) evaluate(c Config) (time.Duration, error) {
	t.mu.Lock()
	t.evals++
	n := t.evals
	d, cached := t.memo[c]
	stopped := t.converged
	t.mu.Unlock()

	if !cached && stopped {
		return 0, errConverged
	}

	if !cached {
		var err error
		d, err = t.measureBest(c)
		if err != nil {
			t.mu.Lock()
			if t.err == nil {
				t.err = fmt.Errorf("tune: measure %+v: %w", c, err)
			}
			t.mu.Unlock()
			return 0, err
		}
		t.mu.Lock()
		t.memo[c] = d
		if t.tracker.Update(d) {
			t.converged = true
		}
		t.mu.Unlock()
		slog.Debug("Measured configuration", "blockSize", c.BlockSize, "workers", c.Workers, "elapsed", d)
	}

	if t.Trace != nil {
		entry := store.TraceEntry{
			Evaluation:    n,
			BlockSize:     c.BlockSize,
			Workers:       c.Workers,
			ElapsedMicros: d.Microseconds(),
			Cached:        cached,
			Timestamp:     time.Now(),
		}
		if err := t.Trace.Write(entry); err != nil {
			slog.Warn("Failed to write tuning trace", "error", err)
		}
	}
	return d, nil
}

func (t *Tuner) measureBest(c Config) (time.Duration, error) {
	best := time.Duration(math.MaxInt64)
	for i := 0; i < t.repeats(); i++ {
		d, err := t.Measure(t.Variant, t.Params, c)
		if err != nil {
			return 0, err
		}
		best = min(best, d)
	}
	return best, nil
}
