package escape

import "github.com/cwbudde/mandelvec/internal/lane"

// rowKernel fills the work unit starting at row y. Kernels that need no block
// size ignore the last argument.
type rowKernel func(g *Grid, y int, dst []uint16, blockSize int)

// kernelFor instantiates the row kernel for v.
func kernelFor(v Variant) rowKernel {
	switch v.Kind {
	case KindOrig:
		return origRow
	case KindFPU:
		return fpuRow
	}

	switch v.Width {
	case 1:
		return kernelSet[[1]float32, [1]int32](v.Kind)
	case 4:
		return kernelSet[[4]float32, [4]int32](v.Kind)
	case 8:
		return kernelSet[[8]float32, [8]int32](v.Kind)
	case 16:
		return kernelSet[[16]float32, [16]int32](v.Kind)
	}
	return nil
}

func kernelSet[F lane.Floats, M lane.Ints](kind Kind) rowKernel {
	switch kind {
	case KindDirect:
		return directRow[F, M]
	case KindSpeculative:
		return speculativeRow[F, M]
	case KindDual:
		return dualRows[F, M]
	}
	return nil
}
