package escape

// Grid maps pixel coordinates onto sample points of the complex plane.
//
// The real-axis coordinates are computed once and shared read-only by every
// row; imaginary coordinates are computed per row with the same expression.
// All variants take their sample points from a Grid, so they see bit-identical
// constants c.
type Grid struct {
	p      Params
	dRe    float32
	dIm    float32
	offset float32
	reRow  []float32
}

// NewGrid precomputes the sampling grid for p.
func NewGrid(p Params) *Grid {
	g := &Grid{
		p:      p,
		offset: p.Sampling.offset(),
	}
	if p.Width > 0 {
		g.dRe = (p.ReMax - p.ReMin) / float32(p.Width)
	}
	if p.Height > 0 {
		g.dIm = (p.ImMax - p.ImMin) / float32(p.Height)
	}

	g.reRow = make([]float32, max(p.Width, 0))
	for x := range g.reRow {
		g.reRow[x] = g.coord(p.ReMin, g.dRe, x)
	}
	return g
}

// coord returns lo + (i+offset)·step with the product rounded on its own.
func (g *Grid) coord(lo, step float32, i int) float32 {
	return lo + float32((float32(i)+g.offset)*step)
}

// Re returns the real coordinate of column x.
func (g *Grid) Re(x int) float32 {
	return g.reRow[x]
}

// Im returns the imaginary coordinate of row y.
func (g *Grid) Im(y int) float32 {
	return g.coord(g.p.ImMin, g.dIm, y)
}

// ReRow returns the shared real-axis coordinates. Callers must not modify it.
func (g *Grid) ReRow() []float32 {
	return g.reRow
}

// Params returns the parameters the grid was built from.
func (g *Grid) Params() Params {
	return g.p
}

// Step returns the per-pixel increments on both axes.
func (g *Grid) Step() (dRe, dIm float32) {
	return g.dRe, g.dIm
}
