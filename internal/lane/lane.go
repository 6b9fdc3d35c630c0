package lane

// MaxWidth is the widest lane group the kernels are instantiated with.
const MaxWidth = 16

// Mask lane values.
const (
	True  int32 = -1
	False int32 = 0
)

// Floats is the set of float32 lane groups.
type Floats interface {
	[1]float32 | [4]float32 | [8]float32 | [16]float32
}

// Ints is the set of int32 lane groups used for counters and masks.
type Ints interface {
	[1]int32 | [4]int32 | [8]int32 | [16]int32
}

// Width reports the number of lanes in F.
func Width[F Floats]() int {
	var v F
	return len(v)
}

// Splat creates a lane group with all elements set to x.
func Splat[F Floats](x float32) F {
	var result F
	for i := 0; i < len(result); i++ {
		result[i] = x
	}
	return result
}

// SplatInt creates an integer lane group with all elements set to x.
func SplatInt[M Ints](x int32) M {
	var result M
	for i := 0; i < len(result); i++ {
		result[i] = x
	}
	return result
}

// Load reads len(F) consecutive values from src.
// src must hold at least Width[F]() elements.
func Load[F Floats](src []float32) F {
	var result F
	_ = src[len(result)-1]
	for i := 0; i < len(result); i++ {
		result[i] = src[i]
	}
	return result
}

// Add performs element-wise addition.
func Add[F Floats](a, b F) F {
	var result F
	for i := 0; i < len(result); i++ {
		result[i] = a[i] + b[i]
	}
	return result
}

// Sub performs element-wise subtraction.
func Sub[F Floats](a, b F) F {
	var result F
	for i := 0; i < len(result); i++ {
		result[i] = a[i] - b[i]
	}
	return result
}

// Mul performs element-wise multiplication with every product rounded to
// float32 on its own.
func Mul[F Floats](a, b F) F {
	var result F
	for i := 0; i < len(result); i++ {
		result[i] = float32(a[i] * b[i])
	}
	return result
}

// LessEqual compares a[i] <= b[i] and returns True or False per lane.
// NaN lanes compare False.
func LessEqual[F Floats, M Ints](a, b F) M {
	var result M
	for i := 0; i < len(result); i++ {
		if a[i] <= b[i] {
			result[i] = True
		}
	}
	return result
}

// And performs element-wise bitwise AND of two masks.
func And[M Ints](a, b M) M {
	var result M
	for i := 0; i < len(result); i++ {
		result[i] = a[i] & b[i]
	}
	return result
}

// SubMask subtracts mask m from counter c. Lanes where m is True are
// incremented by one, the others are left unchanged.
func SubMask[M Ints](c, m M) M {
	var result M
	for i := 0; i < len(result); i++ {
		result[i] = c[i] - m[i]
	}
	return result
}

// AllZero reports whether every lane of m is zero.
func AllZero[M Ints](m M) bool {
	var acc int32
	for i := 0; i < len(m); i++ {
		acc |= m[i]
	}
	return acc == 0
}

// AllOnes reports whether every lane of m is True.
func AllOnes[M Ints](m M) bool {
	acc := True
	for i := 0; i < len(m); i++ {
		acc &= m[i]
	}
	return acc == True
}
