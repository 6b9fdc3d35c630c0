package tune

import (
	"context"
	"testing"
	"time"

	"github.com/cwbudde/mandelvec/internal/escape"
)

func TestConvergenceTracker(t *testing.T) {
	c := newConvergenceTracker(ConvergenceConfig{Enabled: true, Patience: 2, Threshold: 0.1})

	steps := []struct {
		d     time.Duration
		done  bool
		stale int
	}{
		{100, false, 0},
		{80, false, 0}, // 20% faster
		{75, false, 1}, // 6% is below the threshold
		{60, false, 0}, // 25% faster than 80
		{59, false, 1},
		{90, true, 2},
	}
	for i, s := range steps {
		if got := c.Update(s.d); got != s.done {
			t.Errorf("step %d: Update(%d) = %v, want %v", i, s.d, got, s.done)
		}
		if c.StaleCount() != s.stale {
			t.Errorf("step %d: stale = %d, want %d", i, c.StaleCount(), s.stale)
		}
	}
	if c.best != 59 {
		t.Errorf("best = %d, want 59", c.best)
	}
}

func TestConvergenceTracker_Disabled(t *testing.T) {
	c := newConvergenceTracker(ConvergenceConfig{})
	for i := 0; i < 100; i++ {
		if c.Update(time.Millisecond) {
			t.Fatal("disabled tracker reported convergence")
		}
	}
}

func TestTuner_StopsMeasuringAfterConvergence(t *testing.T) {
	tuner, _ := testTuner(t, "stitch8")
	calls := 0
	tuner.Measure = func(escape.Variant, escape.Params, Config) (time.Duration, error) {
		calls++
		return 100 * time.Microsecond, nil
	}
	tuner.Convergence = ConvergenceConfig{Enabled: true, Patience: 3, Threshold: 0.02}

	res, err := tuner.Tune(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Converged {
		t.Error("expected Converged")
	}
	if res.Measured != 4 || calls != 4*tuner.Repeats {
		t.Errorf("measured %d configurations with %d calls, want 4 and %d", res.Measured, calls, 4*tuner.Repeats)
	}
	if res.Evaluations != 64 {
		t.Errorf("Evaluations = %d, want 64", res.Evaluations)
	}
	if res.Best != (Config{BlockSize: 1, Workers: 1}) {
		t.Errorf("Best = %+v, want block 1 workers 1", res.Best)
	}
}
