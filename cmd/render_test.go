package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/cwbudde/mandelvec/internal/escape"
	"github.com/cwbudde/mandelvec/internal/store"
)

func defaultImageFlags() imageFlags {
	d := escape.DefaultParams()
	return imageFlags{
		width: d.Width, height: d.Height,
		xmin: d.ReMin, xmax: d.ReMax, ymin: d.ImMin, ymax: d.ImMax,
		threshold: d.Threshold,
		iters:     d.MaxIters,
		block:     escape.DefaultBlockSize,
	}
}

func TestImageFlags_Params(t *testing.T) {
	f := defaultImageFlags()
	p, err := f.params()
	if err != nil {
		t.Fatalf("default flags rejected: %v", err)
	}
	if p != escape.DefaultParams() {
		t.Errorf("params = %+v, want defaults", p)
	}

	f.center = true
	p, err = f.params()
	if err != nil {
		t.Fatal(err)
	}
	if p.Sampling != escape.SampleCenter {
		t.Errorf("sampling = %v, want center", p.Sampling)
	}
}

func TestImageFlags_ParamsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*imageFlags)
	}{
		{"unaligned width", func(f *imageFlags) { f.width = 100 }},
		{"inverted window", func(f *imageFlags) { f.xmin, f.xmax = 1, -1 }},
		{"threshold", func(f *imageFlags) { f.threshold = 1 }},
		{"iterations", func(f *imageFlags) { f.iters = 70000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := defaultImageFlags()
			tt.modify(&f)
			if _, err := f.params(); !errors.Is(err, escape.ErrInvalidParams) {
				t.Errorf("expected ErrInvalidParams, got %v", err)
			}
		})
	}
}

func TestVerify(t *testing.T) {
	f := defaultImageFlags()
	f.width, f.height = 32, 16
	p, err := f.params()
	if err != nil {
		t.Fatal(err)
	}

	got := reference(p, 1)
	if err := verify(p, got, 2); err != nil {
		t.Errorf("identical buffers failed verification: %v", err)
	}

	got[3*32+5]++
	err = verify(p, got, 1)
	if err == nil || !strings.Contains(err.Error(), "(5, 3)") {
		t.Errorf("expected mismatch at (5, 3), got %v", err)
	}
}

func TestBenchTargets(t *testing.T) {
	all, err := benchTargets(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != len(escape.SupportedVariants()) {
		t.Errorf("got %d targets, want all %d", len(all), len(escape.SupportedVariants()))
	}

	some, err := benchTargets([]string{"fpu", "AVX2+FMA+STITCH", "stitch8"})
	if err != nil {
		t.Fatal(err)
	}
	if len(some) != 2 || some[1] != (escape.Variant{Kind: escape.KindDual, Width: 8}) {
		t.Errorf("targets = %v, want [fpu stitch8]", some)
	}

	if _, err := benchTargets([]string{"mmx"}); !errors.Is(err, escape.ErrUnknownVariant) {
		t.Errorf("expected ErrUnknownVariant, got %v", err)
	}
}

func TestVariantRows(t *testing.T) {
	rows := variantRows()
	autos := 0
	for _, r := range rows {
		if r.Auto {
			autos++
		}
		if r.Name == "stitch16" && (len(r.Aliases) != 1 || r.Aliases[0] != "AVX512+FMA+STITCH") {
			t.Errorf("stitch16 aliases = %v", r.Aliases)
		}
	}
	if autos != 1 {
		t.Errorf("%d rows marked auto, want 1", autos)
	}
}

func TestRenderCommand_SaveAndList(t *testing.T) {
	dir := t.TempDir()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"render", "-p", "stitch4", "-w", "32", "--height", "16",
		"--verify", "--save", "--data-dir", dir, "--log-level", "error"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("render failed: %v", err)
	}

	text := out.String()
	for _, want := range []string{"Image 32 x 16", "STITCH4 ", " us", "verified against fpu", "saved run "} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}

	fsStore, err := store.NewFSStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	infos, err := fsStore.ListRuns()
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 || infos[0].Variant != "stitch4" || infos[0].Width != 32 {
		t.Errorf("stored runs = %+v", infos)
	}
}
