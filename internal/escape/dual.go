package escape

import "github.com/cwbudde/mandelvec/internal/lane"

// Dual-Strand Scheduler.
//
// Two lane groups from adjacent rows share the real-axis vector and differ in
// their imaginary coordinate. Inside a speculative block every operation of
// strand A is immediately followed by the same operation of strand B, so the
// two independent dependency chains are in flight together. A block is
// accepted only when both strands stayed fully live; on rejection both strands
// fall back to the Direct kernel from their pre-block iterates.

// tryBlockPair is tryBlock for two strands with interleaved operations.
func tryBlockPair[F lane.Floats, M lane.Ints](a, b blockState[F], cre, cimA, cimB, threshold F, n int) (blockState[F], blockState[F], bool) {
	reA, imA := a.re, a.im
	reB, imB := b.re, b.im
	liveA := lane.SplatInt[M](lane.True)
	liveB := lane.SplatInt[M](lane.True)

	for j := 0; j < n; j++ {
		rmA := lane.Mul(reA, imA)
		rmB := lane.Mul(reB, imB)
		re2A := lane.Mul(reA, reA)
		re2B := lane.Mul(reB, reB)
		im2A := lane.Mul(imA, imA)
		im2B := lane.Mul(imB, imB)
		sumA := lane.Add(re2A, im2A)
		sumB := lane.Add(re2B, im2B)
		liveA = lane.And(liveA, lane.LessEqual[F, M](sumA, threshold))
		liveB = lane.And(liveB, lane.LessEqual[F, M](sumB, threshold))
		rmA = lane.Add(rmA, rmA)
		rmB = lane.Add(rmB, rmB)
		imA = lane.Add(cimA, rmA)
		imB = lane.Add(cimB, rmB)
		re2A = lane.Sub(re2A, im2A)
		re2B = lane.Sub(re2B, im2B)
		reA = lane.Add(cre, re2A)
		reB = lane.Add(cre, re2B)
	}

	if !lane.AllOnes(lane.And(liveA, liveB)) {
		return a, b, false
	}
	return blockState[F]{re: reA, im: imA}, blockState[F]{re: reB, im: imB}, true
}

// dualGroup evaluates the same columns of two rows as one dual-strand unit.
func dualGroup[F lane.Floats, M lane.Ints](cre, cimA, cimB, threshold F, maxIters, n int) (M, M) {
	n = max(n, 1)
	a := blockState[F]{re: cre, im: cimA}
	b := blockState[F]{re: cre, im: cimB}

	i := 0
	for i+n <= maxIters {
		nextA, nextB, ok := tryBlockPair[F, M](a, b, cre, cimA, cimB, threshold, n)
		if !ok {
			break
		}
		a, b = nextA, nextB
		i += n
	}

	countA := lane.SplatInt[M](int32(i))
	countB := countA
	if i < maxIters {
		countA = iterateDirect(cre, cimA, a.re, a.im, countA, i, maxIters, threshold)
		countB = iterateDirect(cre, cimB, b.re, b.im, countB, i, maxIters, threshold)
	}
	return countA, countB
}

// dualRows fills output rows y and y+1 as one dual-strand unit. If y is the
// last row it degrades to the single-strand kernel.
func dualRows[F lane.Floats, M lane.Ints](g *Grid, y int, dst []uint16, blockSize int) {
	p := g.Params()
	if y+1 >= p.Height {
		speculativeRow[F, M](g, y, dst, blockSize)
		return
	}

	w := lane.Width[F]()
	re := g.ReRow()
	rowA := dst[y*p.Width : (y+1)*p.Width]
	rowB := dst[(y+1)*p.Width : (y+2)*p.Width]

	cimA := lane.Splat[F](g.Im(y))
	cimB := lane.Splat[F](g.Im(y + 1))
	threshold := lane.Splat[F](p.Threshold)

	x := 0
	for ; x+w <= p.Width; x += w {
		cre := lane.Load[F](re[x:])
		countA, countB := dualGroup[F, M](cre, cimA, cimB, threshold, p.MaxIters, blockSize)
		lane.NarrowPair(countA, countB, rowA[x:], rowB[x:])
	}
	if x < p.Width {
		scalarTail(g, y, x, rowA)
		scalarTail(g, y+1, x, rowB)
	}
}
