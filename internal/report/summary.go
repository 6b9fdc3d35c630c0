// Package report turns count buffers into summaries and tables. Everything
// here is stateless and runs after the engine has filled the buffer.
package report

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"

	"github.com/cwbudde/mandelvec/internal/escape"
)

// Summary describes the distribution of counts in one rendered buffer.
type Summary struct {
	Pixels   int     `json:"pixels"`
	Inside   int     `json:"inside"`
	Escaped  int     `json:"escaped"`
	Min      uint16  `json:"min"`
	Max      uint16  `json:"max"`
	Mean     float64 `json:"mean"`
	Checksum string  `json:"checksum"`
}

// Summarize computes the statistics of counts. A pixel is inside when its
// count reached maxIters.
func Summarize(counts []uint16, maxIters int) Summary {
	s := Summary{Pixels: len(counts)}
	if len(counts) == 0 {
		s.Checksum = Checksum(counts)
		return s
	}

	s.Min = counts[0]
	var total uint64
	for _, c := range counts {
		total += uint64(c)
		s.Min = min(s.Min, c)
		s.Max = max(s.Max, c)
		if int(c) >= maxIters {
			s.Inside++
		}
	}
	s.Escaped = s.Pixels - s.Inside
	s.Mean = float64(total) / float64(len(counts))
	s.Checksum = Checksum(counts)
	return s
}

// Checksum returns the FNV-1a 64 digest of counts in little-endian byte
// order, as 16 hex digits.
func Checksum(counts []uint16) string {
	h := fnv.New64a()
	var buf [2]byte
	for _, c := range counts {
		binary.LittleEndian.PutUint16(buf[:], c)
		_, _ = h.Write(buf[:])
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// Mismatch reports the number of differing entries between want and got and
// the index of the first difference, or -1 when they match. Buffers of
// different length count the excess entries as mismatches.
func Mismatch(want, got []uint16) (count, first int) {
	first = -1
	n := min(len(want), len(got))
	for i := 0; i < n; i++ {
		if want[i] != got[i] {
			if first < 0 {
				first = i
			}
			count++
		}
	}
	if extra := max(len(want), len(got)) - n; extra > 0 {
		if first < 0 {
			first = n
		}
		count += extra
	}
	return count, first
}

// HeaderLine is the one-line description printed before a timed render.
func HeaderLine(p escape.Params) string {
	return fmt.Sprintf("Image %d x %d, Area [(%0.5f,%0.5f), (%0.5f, %0.5f)], threshold=%0.2f, maxiters=%d",
		p.Width, p.Height, p.ReMin, p.ImMin, p.ReMax, p.ImMax, p.Threshold, p.MaxIters)
}

// TimingLine is the "<NAME> <elapsed> us" line printed after a timed render.
func TimingLine(name string, micros int64) string {
	return fmt.Sprintf("%s %d us", name, micros)
}
