// Package lane provides fixed-width lane groups for the escape-time kernels.
//
// A lane group is a plain Go array of W values (W ∈ {1, 4, 8, 16}) that is
// advanced in lock-step. The kernels in package escape are written once,
// generic over the lane group type, and instantiated per width; the Go
// compiler specialises every instantiation because arrays of different
// lengths have different GC shapes.
//
// # Lane Types
//
// Floats: [W]float32 for coordinates and iterates.
// Ints: [W]int32 for iteration counters and convergence masks.
//
// A mask lane is True (all bits set, -1) or False (0), the same encoding a
// hardware packed compare produces. Subtracting a mask from a counter is a
// conditional increment.
//
// # Rounding
//
// Mul rounds every product to float32 through an explicit conversion. The Go
// language allows the compiler to fuse x*y+z into a single FMA on some
// architectures unless the product is converted explicitly; the kernels rely
// on every variant producing bit-identical iterates, so no product is ever
// left unrounded.
//
// # Design Philosophy
//
//   - Use simple index loops over fixed-size arrays for auto-vectorisation
//   - Avoid unsafe and assembly
//   - Keep functions small and inlineable
package lane
