package escape

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseVariant(t *testing.T) {
	tests := []struct {
		name string
		want Variant
	}{
		{"orig", Variant{KindOrig, 1}},
		{"ORIG", Variant{KindOrig, 1}},
		{"FPU", Variant{KindFPU, 1}},
		{"direct1", Variant{KindDirect, 1}},
		{"direct16", Variant{KindDirect, 16}},
		{"fma4", Variant{KindSpeculative, 4}},
		{"stitch8", Variant{KindDual, 8}},
		{" Stitch16 ", Variant{KindDual, 16}},
		{"SSE", Variant{KindDirect, 4}},
		{"AVX2", Variant{KindDirect, 8}},
		{"AVX2+FMA", Variant{KindSpeculative, 8}},
		{"AVX2+FMA+STITCH", Variant{KindDual, 8}},
		{"AVX512", Variant{KindDirect, 16}},
		{"avx512+fma", Variant{KindSpeculative, 16}},
		{"AVX512+FMA+STITCH", Variant{KindDual, 16}},
		{"", ActiveVariant},
		{"auto", ActiveVariant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVariant(tt.name)
			if err != nil {
				t.Fatalf("ParseVariant(%q): %v", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("ParseVariant(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestParseVariant_Unknown(t *testing.T) {
	for _, name := range []string{"avx1024", "direct3", "fma", "stitch", "stitchx", "neon", "direct-4"} {
		if _, err := ParseVariant(name); !errors.Is(err, ErrUnknownVariant) {
			t.Errorf("ParseVariant(%q) error = %v, want ErrUnknownVariant", name, err)
		}
	}
}

func TestSupportedVariants_RoundTrip(t *testing.T) {
	all := SupportedVariants()
	if len(all) != 2+3*len(Widths) {
		t.Fatalf("got %d variants", len(all))
	}
	seen := map[string]bool{}
	for _, v := range all {
		name := v.String()
		if seen[name] {
			t.Errorf("duplicate name %q", name)
		}
		seen[name] = true

		back, err := ParseVariant(name)
		if err != nil || back != v {
			t.Errorf("ParseVariant(%q) = %v, %v; want %v", name, back, err, v)
		}
	}
}

func TestAliases_ResolveToCanonical(t *testing.T) {
	for _, a := range Aliases() {
		v, err := ParseVariant(a[0])
		if err != nil {
			t.Fatalf("alias %q: %v", a[0], err)
		}
		if v.String() != a[1] {
			t.Errorf("alias %q resolves to %s, listed as %s", a[0], v, a[1])
		}
	}
}

func TestVariant_JSON(t *testing.T) {
	type wrapper struct {
		Variant Variant `json:"variant"`
	}
	data, err := json.Marshal(wrapper{Variant{KindSpeculative, 8}})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"variant":"fma8"}` {
		t.Errorf("got %s", data)
	}

	var w wrapper
	if err := json.Unmarshal([]byte(`{"variant":"AVX2+FMA+STITCH"}`), &w); err != nil {
		t.Fatal(err)
	}
	if w.Variant != (Variant{KindDual, 8}) {
		t.Errorf("decoded %v", w.Variant)
	}
	if err := json.Unmarshal([]byte(`{"variant":"bogus"}`), &w); !errors.Is(err, ErrUnknownVariant) {
		t.Errorf("expected ErrUnknownVariant, got %v", err)
	}
}

func TestRowsPerUnit(t *testing.T) {
	if (Variant{KindDual, 4}).RowsPerUnit() != 2 {
		t.Error("dual variants fill two rows per unit")
	}
	if (Variant{KindDirect, 4}).RowsPerUnit() != 1 {
		t.Error("direct variants fill one row per unit")
	}
}
