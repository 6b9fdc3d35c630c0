package escape

import (
	"log/slog"
	"runtime"

	"golang.org/x/sys/cpu"
)

// ActiveVariant is the variant "auto" resolves to on this machine.
var ActiveVariant Variant

// cpuFeatures is the subset of CPU capabilities the selection depends on.
type cpuFeatures struct {
	AVX512F bool
	AVX2    bool
	FMA     bool
	SSE41   bool
	ASIMD   bool
}

func detectFeatures() cpuFeatures {
	return cpuFeatures{
		AVX512F: cpu.X86.HasAVX512F,
		AVX2:    cpu.X86.HasAVX2,
		FMA:     cpu.X86.HasFMA,
		SSE41:   cpu.X86.HasSSE41,
		ASIMD:   runtime.GOARCH == "arm64" && cpu.ARM64.HasASIMD,
	}
}

// selectVariant picks the widest lane group the hardware can keep in
// registers. Wider kinds use the dual-strand scheduler since it hides the
// latency of the multiply chain best.
func selectVariant(f cpuFeatures) Variant {
	switch {
	case f.AVX512F:
		return Variant{KindDual, 16}
	case f.AVX2 && f.FMA:
		return Variant{KindDual, 8}
	case f.SSE41 || f.ASIMD:
		return Variant{KindDirect, 4}
	default:
		return Variant{KindFPU, 1}
	}
}

func init() {
	f := detectFeatures()
	ActiveVariant = selectVariant(f)
	slog.Debug("escape kernel initialized",
		"variant", ActiveVariant.String(),
		"avx512f", f.AVX512F,
		"avx2", f.AVX2,
		"fma", f.FMA,
		"sse41", f.SSE41,
		"asimd", f.ASIMD)
}
