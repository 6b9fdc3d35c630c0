package store

import (
	"testing"
	"time"

	"github.com/cwbudde/mandelvec/internal/escape"
	"github.com/cwbudde/mandelvec/internal/report"
)

// setupTestStore creates a temporary directory and returns an FSStore for testing.
func setupTestStore(t *testing.T) (*FSStore, string) {
	t.Helper()

	tempDir := t.TempDir()
	store, err := NewFSStore(tempDir)
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	return store, tempDir
}

// createTestRecord builds a valid record for a small render.
func createTestRecord(t *testing.T) *RunRecord {
	t.Helper()

	p := escape.DefaultParams()
	p.Width, p.Height = 32, 16
	counts := make([]uint16, p.Pixels())
	for i := range counts {
		counts[i] = uint16(i % 256)
	}
	v, err := escape.ParseVariant("stitch8")
	if err != nil {
		t.Fatal(err)
	}
	return NewRunRecord(v, p, 4, 8, 1234*time.Microsecond, report.Summarize(counts, p.MaxIters))
}
