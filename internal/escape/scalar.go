package escape

// Scalar reference engine.
//
// Both formulations report the smallest i in [0, maxIters) for which
// |z_{i+1}|² > threshold, where z_0 = 0 and z_{k+1} = z_k² + c, or maxIters
// if no such i exists. A NaN magnitude counts as escaped.
//
// Rounding contract shared by every variant:
//
//	re' = (re·re − im·im) + c_re
//	im' = 2·(re·im) + c_im
//
// with each product rounded to float32 on its own.

// Evaluate runs the direct complex formulation for a single sample point.
func Evaluate(cre, cim, threshold float32, maxIters int) int {
	var zre, zim float32

	i := 0
	for ; i < maxIters; i++ {
		rm := float32(zre * zim)
		tre := (float32(zre*zre) - float32(zim*zim)) + cre
		tim := (rm + rm) + cim

		if !(float32(tre*tre)+float32(tim*tim) <= threshold) {
			break
		}

		zre, zim = tre, tim
	}
	return i
}

// EvaluateExpanded runs the expanded real/imaginary formulation, carrying
// re², im² and re·im between iterations instead of z.
func EvaluateExpanded(cre, cim, threshold float32, maxIters int) int {
	re2 := float32(cre * cre)
	im2 := float32(cim * cim)
	rm := float32(cre * cim)

	i := 0
	for ; i < maxIters; i++ {
		if !(re2+im2 <= threshold) {
			break
		}
		re := (re2 - im2) + cre
		im := (rm + rm) + cim
		re2 = float32(re * re)
		im2 = float32(im * im)
		rm = float32(re * im)
	}
	return i
}

// scalarRow fills one output row using eval for every pixel.
func scalarRow(g *Grid, y int, dst []uint16, eval func(cre, cim, threshold float32, maxIters int) int) {
	p := g.Params()
	cim := g.Im(y)
	row := dst[y*p.Width : (y+1)*p.Width]
	for x := range row {
		row[x] = narrow(eval(g.Re(x), cim, p.Threshold, p.MaxIters))
	}
}

func origRow(g *Grid, y int, dst []uint16, _ int) {
	scalarRow(g, y, dst, Evaluate)
}

func fpuRow(g *Grid, y int, dst []uint16, _ int) {
	scalarRow(g, y, dst, EvaluateExpanded)
}

// scalarTail evaluates columns [from, width) of row y with the expanded
// formulation. The vector kernels use it when the width is not a multiple of
// their lane count, which only happens if the caller skipped validation.
func scalarTail(g *Grid, y, from int, row []uint16) {
	p := g.Params()
	cim := g.Im(y)
	for x := from; x < p.Width; x++ {
		row[x] = narrow(EvaluateExpanded(g.Re(x), cim, p.Threshold, p.MaxIters))
	}
}

// narrow saturates a scalar count the same way the lane packer does.
func narrow(n int) uint16 {
	if n > MaxIterCap {
		return MaxIterCap
	}
	return uint16(n)
}
