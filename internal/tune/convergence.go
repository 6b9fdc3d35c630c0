package tune

import (
	"log/slog"
	"math"
	"time"
)

// ConvergenceConfig stops a search once new configurations stop paying off.
type ConvergenceConfig struct {
	// Enabled controls whether convergence detection is active
	Enabled bool

	// Patience is the number of newly measured configurations without a
	// significant improvement before measuring stops.
	Patience int

	// Threshold is the minimum relative speed-up that counts as progress,
	// e.g. 0.02 = 2% faster than the last significant time.
	Threshold float64
}

// DefaultConvergenceConfig returns the settings used by the tune command.
func DefaultConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{
		Enabled:   true,
		Patience:  12,
		Threshold: 0.02,
	}
}

// convergenceTracker counts measurements since the last significant
// improvement. It is not safe for concurrent use; Tuner guards it.
type convergenceTracker struct {
	config          ConvergenceConfig
	best            time.Duration
	lastSignificant time.Duration
	measured        int
	staleCount      int
}

func newConvergenceTracker(config ConvergenceConfig) *convergenceTracker {
	return &convergenceTracker{
		config:          config,
		best:            math.MaxInt64,
		lastSignificant: math.MaxInt64,
	}
}

// Update records a new measurement and reports whether the search has
// converged.
func (c *convergenceTracker) Update(d time.Duration) bool {
	if !c.config.Enabled {
		return false
	}

	c.measured++
	c.best = min(c.best, d)

	if c.measured == 1 {
		c.lastSignificant = d
		return false
	}

	improvement := float64(c.lastSignificant-d) / float64(c.lastSignificant)
	if improvement >= c.config.Threshold {
		c.lastSignificant = d
		c.staleCount = 0
		return false
	}

	c.staleCount++
	if c.staleCount >= c.config.Patience {
		slog.Info("Tuning converged, no further measurements",
			"stale_count", c.staleCount,
			"patience", c.config.Patience,
			"best", c.best)
		return true
	}
	return false
}

// StaleCount returns the number of measurements since the last significant
// improvement.
func (c *convergenceTracker) StaleCount() int {
	return c.staleCount
}
