package lane

import (
	"math"
	"testing"
)

func TestWidth(t *testing.T) {
	tests := []struct {
		name string
		got  int
		want int
	}{
		{"w1", Width[[1]float32](), 1},
		{"w4", Width[[4]float32](), 4},
		{"w8", Width[[8]float32](), 8},
		{"w16", Width[[16]float32](), 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("Width() = %d, want %d", tt.got, tt.want)
			}
		})
	}
}

func TestSplat(t *testing.T) {
	tests := []struct {
		name  string
		value float32
	}{
		{"zero", 0.0},
		{"one", 1.0},
		{"negative", -1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Splat[[8]float32](tt.value)
			for i, v := range result {
				if v != tt.value {
					t.Errorf("element %d = %f, want %f", i, v, tt.value)
				}
			}
		})
	}
}

func TestLoad(t *testing.T) {
	src := []float32{1, 2, 3, 4, 5, 6}
	got := Load[[4]float32](src[1:])
	want := [4]float32{2, 3, 4, 5}
	if got != want {
		t.Errorf("Load() = %v, want %v", got, want)
	}
}

func TestLoad_ShortSourcePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Load() on a short slice should panic")
		}
	}()
	Load[[8]float32](make([]float32, 7))
}

func TestArithmetic(t *testing.T) {
	a := [4]float32{1, -2, 3.5, 0}
	b := [4]float32{2, 2, -0.5, 7}

	if got, want := Add(a, b), ([4]float32{3, 0, 3, 7}); got != want {
		t.Errorf("Add() = %v, want %v", got, want)
	}
	if got, want := Sub(a, b), ([4]float32{-1, -4, 4, -7}); got != want {
		t.Errorf("Sub() = %v, want %v", got, want)
	}
	if got, want := Mul(a, b), ([4]float32{2, -4, -1.75, 0}); got != want {
		t.Errorf("Mul() = %v, want %v", got, want)
	}
}

func TestMul_RoundsToFloat32(t *testing.T) {
	// 1+2^-12 squared needs 25 significant bits; the float32 product must
	// drop the last one.
	x := float32(1 + 1.0/4096)
	got := Mul([1]float32{x}, [1]float32{x})[0]
	want := float32(float64(x) * float64(x))
	if got != want {
		t.Errorf("Mul() = %.10g, want %.10g", got, want)
	}
}

func TestLessEqual(t *testing.T) {
	nan := float32(math.NaN())
	a := [4]float32{1, 4, 5, nan}
	b := Splat[[4]float32](4)

	got := LessEqual[[4]float32, [4]int32](a, b)
	want := [4]int32{True, True, False, False}
	if got != want {
		t.Errorf("LessEqual() = %v, want %v", got, want)
	}
}

func TestMaskOps(t *testing.T) {
	tests := []struct {
		name    string
		m       [4]int32
		allZero bool
		allOnes bool
	}{
		{"none", [4]int32{}, true, false},
		{"all", SplatInt[[4]int32](True), false, true},
		{"mixed", [4]int32{True, False, True, False}, false, false},
		{"single", [4]int32{False, False, False, True}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AllZero(tt.m); got != tt.allZero {
				t.Errorf("AllZero() = %v, want %v", got, tt.allZero)
			}
			if got := AllOnes(tt.m); got != tt.allOnes {
				t.Errorf("AllOnes() = %v, want %v", got, tt.allOnes)
			}
		})
	}
}

func TestAnd(t *testing.T) {
	a := [4]int32{True, True, False, False}
	b := [4]int32{True, False, True, False}
	want := [4]int32{True, False, False, False}
	if got := And(a, b); got != want {
		t.Errorf("And() = %v, want %v", got, want)
	}
}

func TestSubMask_ConditionalIncrement(t *testing.T) {
	c := [4]int32{5, 5, 0, 9}
	m := [4]int32{True, False, True, False}
	want := [4]int32{6, 5, 1, 9}
	if got := SubMask(c, m); got != want {
		t.Errorf("SubMask() = %v, want %v", got, want)
	}
}
