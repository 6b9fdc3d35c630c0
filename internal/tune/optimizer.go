package tune

// Optimizer defines a derivative-free minimiser over a box.
type Optimizer interface {
	// Run minimises eval over [lower, upper] in dim dimensions and returns
	// the best position found and its cost.
	Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64)
}
