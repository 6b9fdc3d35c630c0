package escape

import "testing"

func TestGrid_Coordinates(t *testing.T) {
	p := Params{ReMin: -2, ReMax: 2, ImMin: -1, ImMax: 1, Width: 16, Height: 16}

	g := NewGrid(p)
	dRe, dIm := g.Step()
	if dRe != 0.25 || dIm != 0.125 {
		t.Fatalf("Step = (%g, %g), want (0.25, 0.125)", dRe, dIm)
	}
	if got := g.Re(0); got != -2 {
		t.Errorf("Re(0) = %g, want -2", got)
	}
	if got := g.Re(8); got != 0 {
		t.Errorf("Re(8) = %g, want 0", got)
	}
	if got := g.Im(15); got != 0.875 {
		t.Errorf("Im(15) = %g, want 0.875", got)
	}
	if len(g.ReRow()) != 16 {
		t.Errorf("len(ReRow) = %d, want 16", len(g.ReRow()))
	}

	p.Sampling = SampleCenter
	g = NewGrid(p)
	if got := g.Re(0); got != -1.875 {
		t.Errorf("center Re(0) = %g, want -1.875", got)
	}
	if got := g.Im(0) + g.Im(15); got != 0 {
		t.Errorf("center Im(0)+Im(15) = %g, want 0", got)
	}
}

func TestGrid_ZeroSize(t *testing.T) {
	g := NewGrid(Params{ReMin: -1, ReMax: 1, ImMin: -1, ImMax: 1})
	if len(g.ReRow()) != 0 {
		t.Errorf("expected empty real row, got %d entries", len(g.ReRow()))
	}
}
