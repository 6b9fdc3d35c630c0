package escape

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Kind identifies an evaluation strategy.
type Kind int

const (
	KindOrig Kind = iota
	KindFPU
	KindDirect
	KindSpeculative
	KindDual
)

func (k Kind) String() string {
	switch k {
	case KindOrig:
		return "orig"
	case KindFPU:
		return "fpu"
	case KindDirect:
		return "direct"
	case KindSpeculative:
		return "fma"
	case KindDual:
		return "stitch"
	default:
		return "unknown"
	}
}

// Vector reports whether the kind runs on lane groups.
func (k Kind) Vector() bool {
	return k == KindDirect || k == KindSpeculative || k == KindDual
}

// Variant is one selectable implementation. Width is the lane count for the
// vector kinds and 1 for the scalar kinds.
type Variant struct {
	Kind  Kind
	Width int
}

// String returns the canonical variant name, e.g. "fpu" or "stitch8".
func (v Variant) String() string {
	if !v.Kind.Vector() {
		return v.Kind.String()
	}
	return v.Kind.String() + strconv.Itoa(v.Width)
}

// RowsPerUnit is the number of output rows one work unit fills.
func (v Variant) RowsPerUnit() int {
	if v.Kind == KindDual {
		return 2
	}
	return 1
}

// ErrUnknownVariant is returned when a name does not match a known variant.
var ErrUnknownVariant = errors.New("unknown variant")

// Widths lists the supported lane counts.
var Widths = []int{1, 4, 8, 16}

// aliases maps the historical procedure names onto canonical variants.
var aliases = map[string]Variant{
	"orig":              {KindOrig, 1},
	"fpu":               {KindFPU, 1},
	"sse":               {KindDirect, 4},
	"avx2":              {KindDirect, 8},
	"avx2+fma":          {KindSpeculative, 8},
	"avx2+fma+stitch":   {KindDual, 8},
	"avx512":            {KindDirect, 16},
	"avx512+fma":        {KindSpeculative, 16},
	"avx512+fma+stitch": {KindDual, 16},
}

// Aliases returns the historical procedure names and the canonical variant
// each one selects.
func Aliases() [][2]string {
	names := []string{"orig", "fpu", "sse", "avx2", "avx2+fma", "avx2+fma+stitch", "avx512", "avx512+fma", "avx512+fma+stitch"}
	out := make([][2]string, 0, len(names))
	for _, n := range names {
		out = append(out, [2]string{strings.ToUpper(n), aliases[n].String()})
	}
	return out
}

// ParseVariant maps user input to a variant. Matching is case-insensitive;
// "" and "auto" resolve to ActiveVariant.
func ParseVariant(name string) (Variant, error) {
	key := strings.ToLower(strings.TrimSpace(name))

	if key == "" || key == "auto" {
		return ActiveVariant, nil
	}
	if v, ok := aliases[key]; ok {
		return v, nil
	}

	for _, kind := range []Kind{KindDirect, KindSpeculative, KindDual} {
		prefix := kind.String()
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		w, err := strconv.Atoi(key[len(prefix):])
		if err != nil || !slices.Contains(Widths, w) {
			break
		}
		return Variant{kind, w}, nil
	}
	return Variant{}, fmt.Errorf("%w: %s", ErrUnknownVariant, name)
}

// SupportedVariants returns every canonical variant, scalar kinds first.
func SupportedVariants() []Variant {
	out := []Variant{{KindOrig, 1}, {KindFPU, 1}}
	for _, kind := range []Kind{KindDirect, KindSpeculative, KindDual} {
		for _, w := range Widths {
			out = append(out, Variant{kind, w})
		}
	}
	return out
}

// MarshalText encodes the canonical name.
func (v Variant) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText accepts any name ParseVariant accepts.
func (v *Variant) UnmarshalText(b []byte) error {
	parsed, err := ParseVariant(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
