package escape

import "github.com/cwbudde/mandelvec/internal/lane"

// DefaultBlockSize is the number of iterations a speculative block advances
// before its convergence test.
const DefaultBlockSize = 8

// Speculative-Block Kernel.
//
// The group advances a whole block of iterations without branching, carrying
// only the iterate (re, im). The block is accepted if every lane stayed under
// the threshold at every step, in which case all counters advance by the
// block size. Otherwise the block is discarded and the Direct kernel resumes
// from the pre-block iterate to find the exact divergence step.
//
// The per-step predicate is AND-ed into one mask inside the block instead of
// only testing the iterate after the last step. The two agree whenever escape
// is monotone (threshold >= 4); for smaller thresholds an iterate can leave
// the disc and come back within a block.

// blockState is the iterate of one lane group between speculative blocks.
type blockState[F lane.Floats] struct {
	re, im F
}

// tryBlock advances s by n iterations. It returns the advanced state and true
// if every lane stayed live for the whole block, or s unchanged and false.
func tryBlock[F lane.Floats, M lane.Ints](s blockState[F], cre, cim, threshold F, n int) (blockState[F], bool) {
	re, im := s.re, s.im
	live := lane.SplatInt[M](lane.True)

	for j := 0; j < n; j++ {
		rm := lane.Mul(re, im)
		re2 := lane.Mul(re, re)
		im2 := lane.Mul(im, im)
		live = lane.And(live, lane.LessEqual[F, M](lane.Add(re2, im2), threshold))
		im = lane.Add(cim, lane.Add(rm, rm))
		re = lane.Add(cre, lane.Sub(re2, im2))
	}

	if !lane.AllOnes(live) {
		return s, false
	}
	return blockState[F]{re: re, im: im}, true
}

// speculativeGroup evaluates one lane group with speculative blocks of size n
// followed by the Direct kernel for the remainder.
func speculativeGroup[F lane.Floats, M lane.Ints](cre, cim, threshold F, maxIters, n int) M {
	n = max(n, 1)
	s := blockState[F]{re: cre, im: cim}

	i := 0
	for i+n <= maxIters {
		next, ok := tryBlock[F, M](s, cre, cim, threshold, n)
		if !ok {
			break
		}
		s = next
		i += n
	}

	count := lane.SplatInt[M](int32(i))
	if i < maxIters {
		count = iterateDirect(cre, cim, s.re, s.im, count, i, maxIters, threshold)
	}
	return count
}

// speculativeRow fills output row y with the Speculative-Block kernel.
func speculativeRow[F lane.Floats, M lane.Ints](g *Grid, y int, dst []uint16, blockSize int) {
	p := g.Params()
	w := lane.Width[F]()
	re := g.ReRow()
	row := dst[y*p.Width : (y+1)*p.Width]

	cim := lane.Splat[F](g.Im(y))
	threshold := lane.Splat[F](p.Threshold)

	x := 0
	for ; x+w <= p.Width; x += w {
		cre := lane.Load[F](re[x:])
		count := speculativeGroup[F, M](cre, cim, threshold, p.MaxIters, blockSize)
		lane.Narrow(count, row[x:])
	}
	if x < p.Width {
		scalarTail(g, y, x, row)
	}
}
