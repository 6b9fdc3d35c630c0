package escape

import (
	"errors"
	"fmt"
	"math"
)

// Alignment is the largest lane width; image dimensions must be multiples of it.
const Alignment = 16

// MaxPixels bounds width*height for a single render.
const MaxPixels = 8192 * 8192

// MaxIterCap is the largest iteration cap representable in the 16-bit output.
const MaxIterCap = math.MaxUint16

// ErrInvalidParams is returned by Validate for any precondition violation.
var ErrInvalidParams = errors.New("invalid render parameters")

// Sampling selects where inside a pixel cell the sample point lies.
type Sampling int

const (
	// SampleCorner samples c = min + x·step (the cell's lower-left corner).
	SampleCorner Sampling = iota
	// SampleCenter samples c = min + (x+½)·step.
	SampleCenter
)

func (s Sampling) String() string {
	switch s {
	case SampleCorner:
		return "corner"
	case SampleCenter:
		return "center"
	default:
		return "unknown"
	}
}

// MarshalText encodes the sampling mode by name.
func (s Sampling) MarshalText() ([]byte, error) {
	if s != SampleCorner && s != SampleCenter {
		return nil, fmt.Errorf("%w: unknown sampling mode %d", ErrInvalidParams, s)
	}
	return []byte(s.String()), nil
}

// UnmarshalText accepts "corner" and "center"; an empty string means corner.
func (s *Sampling) UnmarshalText(b []byte) error {
	switch string(b) {
	case "", "corner":
		*s = SampleCorner
	case "center":
		*s = SampleCenter
	default:
		return fmt.Errorf("%w: unknown sampling mode %q", ErrInvalidParams, b)
	}
	return nil
}

// offset returns the in-cell offset added to the pixel index.
func (s Sampling) offset() float32 {
	if s == SampleCenter {
		return 0.5
	}
	return 0
}

// Params describes one render: the rectangle of the complex plane, the
// iteration parameters and the pixel grid.
//
// Threshold bounds the squared magnitude |z|², not the radius.
type Params struct {
	ReMin     float32  `json:"reMin"`
	ReMax     float32  `json:"reMax"`
	ImMin     float32  `json:"imMin"`
	ImMax     float32  `json:"imMax"`
	Threshold float32  `json:"threshold"`
	MaxIters  int      `json:"maxIters"`
	Width     int      `json:"width"`
	Height    int      `json:"height"`
	Sampling  Sampling `json:"sampling"`
}

// DefaultParams returns the default 512x512 view of [-2,2]x[-2,2].
func DefaultParams() Params {
	return Params{
		ReMin:     -2.0,
		ReMax:     2.0,
		ImMin:     -2.0,
		ImMax:     2.0,
		Threshold: 20.0,
		MaxIters:  255,
		Width:     512,
		Height:    512,
	}
}

// Pixels returns Width*Height.
func (p Params) Pixels() int {
	return p.Width * p.Height
}

// Validate checks the caller-side preconditions. The renderer itself never
// validates; callers run this before invoking it.
func (p Params) Validate() error {
	for _, v := range []float32{p.ReMin, p.ReMax, p.ImMin, p.ImMax, p.Threshold} {
		if isNaNOrInf(v) {
			return fmt.Errorf("%w: window and threshold must be finite", ErrInvalidParams)
		}
	}

	switch {
	case p.Width <= 0 || p.Height <= 0:
		return fmt.Errorf("%w: width and height must be positive, got %dx%d", ErrInvalidParams, p.Width, p.Height)
	case p.Width%Alignment != 0:
		return fmt.Errorf("%w: width must be a multiple of %d, got %d", ErrInvalidParams, Alignment, p.Width)
	case p.Height%Alignment != 0:
		return fmt.Errorf("%w: height must be a multiple of %d, got %d", ErrInvalidParams, Alignment, p.Height)
	case p.Width > MaxPixels/p.Height:
		return fmt.Errorf("%w: width*height must not exceed 8192*8192", ErrInvalidParams)
	case p.ReMin >= p.ReMax:
		return fmt.Errorf("%w: wrong window definition (reMin %g >= reMax %g)", ErrInvalidParams, p.ReMin, p.ReMax)
	case p.ImMin >= p.ImMax:
		return fmt.Errorf("%w: wrong window definition (imMin %g >= imMax %g)", ErrInvalidParams, p.ImMin, p.ImMax)
	case p.Threshold <= 1:
		return fmt.Errorf("%w: threshold must be greater than 1, got %g", ErrInvalidParams, p.Threshold)
	case p.MaxIters < 0 || p.MaxIters > MaxIterCap:
		return fmt.Errorf("%w: maxIters must be in [0, %d], got %d", ErrInvalidParams, MaxIterCap, p.MaxIters)
	case p.Sampling != SampleCorner && p.Sampling != SampleCenter:
		return fmt.Errorf("%w: unknown sampling mode %d", ErrInvalidParams, p.Sampling)
	}
	return nil
}

func isNaNOrInf(v float32) bool {
	f := float64(v)
	return math.IsNaN(f) || math.IsInf(f, 0)
}
