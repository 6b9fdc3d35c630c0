package escape

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestDefaultParams_Valid(t *testing.T) {
	p := DefaultParams()
	if err := p.Validate(); err != nil {
		t.Fatalf("default params invalid: %v", err)
	}
	if p.Pixels() != 512*512 {
		t.Errorf("Pixels = %d, want %d", p.Pixels(), 512*512)
	}
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Params)
	}{
		{"zero width", func(p *Params) { p.Width = 0 }},
		{"negative height", func(p *Params) { p.Height = -16 }},
		{"unaligned width", func(p *Params) { p.Width = 500 }},
		{"unaligned height", func(p *Params) { p.Height = 24 }},
		{"too many pixels", func(p *Params) { p.Width, p.Height = 16384, 8192 }},
		{"reversed real window", func(p *Params) { p.ReMin, p.ReMax = 1, -1 }},
		{"empty imaginary window", func(p *Params) { p.ImMin, p.ImMax = 0.5, 0.5 }},
		{"threshold one", func(p *Params) { p.Threshold = 1 }},
		{"nan threshold", func(p *Params) { p.Threshold = float32(math.NaN()) }},
		{"infinite window", func(p *Params) { p.ReMax = float32(math.Inf(1)) }},
		{"negative iterations", func(p *Params) { p.MaxIters = -1 }},
		{"iterations above cap", func(p *Params) { p.MaxIters = MaxIterCap + 1 }},
		{"unknown sampling", func(p *Params) { p.Sampling = Sampling(7) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.modify(&p)
			err := p.Validate()
			if !errors.Is(err, ErrInvalidParams) {
				t.Errorf("Validate() = %v, want ErrInvalidParams", err)
			}
		})
	}
}

func TestParams_ValidateBoundaries(t *testing.T) {
	p := DefaultParams()
	p.MaxIters = 0
	if err := p.Validate(); err != nil {
		t.Errorf("maxIters 0 rejected: %v", err)
	}
	p.MaxIters = MaxIterCap
	if err := p.Validate(); err != nil {
		t.Errorf("maxIters %d rejected: %v", MaxIterCap, err)
	}
	p.Width, p.Height = 8192, 8192
	if err := p.Validate(); err != nil {
		t.Errorf("8192x8192 rejected: %v", err)
	}
}

func TestSampling_String(t *testing.T) {
	if SampleCorner.String() != "corner" || SampleCenter.String() != "center" {
		t.Errorf("unexpected names %q %q", SampleCorner, SampleCenter)
	}
	if Sampling(9).String() != "unknown" {
		t.Errorf("got %q for unknown sampling", Sampling(9))
	}
}

func TestSampling_JSON(t *testing.T) {
	p := DefaultParams()
	p.Sampling = SampleCenter
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"sampling":"center"`) {
		t.Errorf("sampling not encoded by name: %s", data)
	}

	var back Params
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back != p {
		t.Errorf("round trip = %+v, want %+v", back, p)
	}

	if err := json.Unmarshal([]byte(`{"sampling":"edge"}`), &back); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("expected ErrInvalidParams for unknown sampling, got %v", err)
	}
}
