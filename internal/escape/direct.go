package escape

import "github.com/cwbudde/mandelvec/internal/lane"

// Direct Iteration Kernel.
//
// One lane group of W sample points is iterated in lock-step. The state kept
// between steps is the expanded form (re², im², re·im); the convergence mask
// is evaluated every step and the whole group exits as soon as no lane is
// live any more.
//
// The live mask is latched: once a lane exceeds the threshold it never counts
// again, even if a later iterate drops back under it. For thresholds below 4
// that can happen, and without the latch the counts would differ from the
// scalar reference.

// iterateDirect advances the group from iterate (re, im) at iteration i up to
// maxIters and returns the final counters. count holds the counters at entry.
func iterateDirect[F lane.Floats, M lane.Ints](cre, cim, re, im F, count M, i, maxIters int, threshold F) M {
	re2 := lane.Mul(re, re)
	im2 := lane.Mul(im, im)
	rm := lane.Mul(re, im)
	live := lane.SplatInt[M](lane.True)

	for ; i < maxIters; i++ {
		sum := lane.Add(re2, im2)
		re = lane.Add(cre, lane.Sub(re2, im2))
		live = lane.And(live, lane.LessEqual[F, M](sum, threshold))
		im = lane.Add(cim, lane.Add(rm, rm))

		if lane.AllZero(live) {
			break
		}
		count = lane.SubMask(count, live)

		re2 = lane.Mul(re, re)
		im2 = lane.Mul(im, im)
		rm = lane.Mul(re, im)
	}
	return count
}

// directGroup evaluates one lane group from the warm start z₁ = c.
func directGroup[F lane.Floats, M lane.Ints](cre, cim, threshold F, maxIters int) M {
	return iterateDirect(cre, cim, cre, cim, lane.SplatInt[M](0), 0, maxIters, threshold)
}

// directRow fills output row y with the Direct kernel.
func directRow[F lane.Floats, M lane.Ints](g *Grid, y int, dst []uint16, _ int) {
	p := g.Params()
	w := lane.Width[F]()
	re := g.ReRow()
	row := dst[y*p.Width : (y+1)*p.Width]

	cim := lane.Splat[F](g.Im(y))
	threshold := lane.Splat[F](p.Threshold)

	x := 0
	for ; x+w <= p.Width; x += w {
		cre := lane.Load[F](re[x:])
		count := directGroup[F, M](cre, cim, threshold, p.MaxIters)
		lane.Narrow(count, row[x:])
	}
	if x < p.Width {
		scalarTail(g, y, x, row)
	}
}
