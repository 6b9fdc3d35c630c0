package escape

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Renderer fills count buffers with one fixed variant. A Renderer is safe for
// concurrent use; it holds no per-render state.
type Renderer struct {
	variant   Variant
	kernel    rowKernel
	workers   int
	blockSize int
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithWorkers bounds the number of goroutines used per render. Zero or a
// negative value means GOMAXPROCS; 1 renders on the calling goroutine.
func WithWorkers(n int) Option {
	return func(r *Renderer) {
		r.workers = n
	}
}

// WithBlockSize sets the speculative block size for the fma and stitch kinds.
// Values below 1 are clamped to 1.
func WithBlockSize(n int) Option {
	return func(r *Renderer) {
		r.blockSize = max(n, 1)
	}
}

// NewRenderer creates a renderer for v.
func NewRenderer(v Variant, opts ...Option) (*Renderer, error) {
	kernel := kernelFor(v)
	if kernel == nil {
		return nil, fmt.Errorf("%w: %v/%d", ErrUnknownVariant, v.Kind, v.Width)
	}

	r := &Renderer{
		variant:   v,
		kernel:    kernel,
		blockSize: DefaultBlockSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.workers <= 0 {
		r.workers = runtime.GOMAXPROCS(0)
	}
	return r, nil
}

// NewRendererForVariant parses name and constructs the matching renderer.
func NewRendererForVariant(name string, opts ...Option) (*Renderer, error) {
	v, err := ParseVariant(name)
	if err != nil {
		return nil, err
	}
	return NewRenderer(v, opts...)
}

// Variant returns the variant this renderer runs.
func (r *Renderer) Variant() Variant { return r.variant }

// Workers returns the goroutine bound.
func (r *Renderer) Workers() int { return r.workers }

// BlockSize returns the speculative block size.
func (r *Renderer) BlockSize() int { return r.blockSize }

// Render writes the escape count of every pixel of p into dst in row-major
// order, top row first. p is assumed valid (see Params.Validate). Render
// panics if dst holds fewer than p.Pixels() elements.
func (r *Renderer) Render(p Params, dst []uint16) {
	if len(dst) < p.Pixels() {
		panic(fmt.Sprintf("escape: output buffer too small: %d < %d", len(dst), p.Pixels()))
	}
	if p.Width <= 0 || p.Height <= 0 {
		return
	}

	g := NewGrid(p)
	step := r.variant.RowsPerUnit()

	if r.workers == 1 {
		for y := 0; y < p.Height; y += step {
			r.kernel(g, y, dst, r.blockSize)
		}
		return
	}

	// Units write disjoint row ranges of dst.
	var eg errgroup.Group
	eg.SetLimit(r.workers)
	for y := 0; y < p.Height; y += step {
		eg.Go(func() error {
			r.kernel(g, y, dst, r.blockSize)
			return nil
		})
	}
	_ = eg.Wait()
}

// Render is a convenience wrapper running ActiveVariant with default options.
// selectVariant only returns registered variants, so a failure here is a
// broken dispatch table and panics.
func Render(p Params, dst []uint16) {
	r, err := NewRenderer(ActiveVariant)
	if err != nil {
		panic(fmt.Sprintf("escape: active variant %v has no kernel: %v", ActiveVariant, err))
	}
	r.Render(p, dst)
}
