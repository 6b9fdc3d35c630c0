package store

import (
	"time"

	"github.com/cwbudde/mandelvec/internal/escape"
	"github.com/cwbudde/mandelvec/internal/report"
	"github.com/google/uuid"
)

// RunRecord is the persisted result of one timed render. The count buffer
// itself is not stored; the summary carries its checksum.
type RunRecord struct {
	// ID is the unique identifier of the run
	ID string `json:"id"`

	// Variant is the canonical variant name the run used
	Variant string `json:"variant"`

	Params    escape.Params `json:"params"`
	Workers   int           `json:"workers"`
	BlockSize int           `json:"blockSize"`

	// ElapsedMicros is the wall time of the render alone
	ElapsedMicros int64 `json:"elapsedMicros"`

	Summary report.Summary `json:"summary"`

	// Source names what produced the run (cli, server, bench, tune)
	Source string `json:"source,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// RunInfo is the listing view of a run.
type RunInfo struct {
	ID            string    `json:"id"`
	Variant       string    `json:"variant"`
	Width         int       `json:"width"`
	Height        int       `json:"height"`
	MaxIters      int       `json:"maxIters"`
	ElapsedMicros int64     `json:"elapsedMicros"`
	Checksum      string    `json:"checksum"`
	Source        string    `json:"source,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewRunRecord creates a record with a fresh ID and the current time.
func NewRunRecord(variant escape.Variant, p escape.Params, workers, blockSize int, elapsed time.Duration, summary report.Summary) *RunRecord {
	return &RunRecord{
		ID:            uuid.New().String(),
		Variant:       variant.String(),
		Params:        p,
		Workers:       workers,
		BlockSize:     blockSize,
		ElapsedMicros: elapsed.Microseconds(),
		Summary:       summary,
		Timestamp:     time.Now(),
	}
}

// Elapsed returns the render time as a duration.
func (r *RunRecord) Elapsed() time.Duration {
	return time.Duration(r.ElapsedMicros) * time.Microsecond
}

// ToInfo converts a full RunRecord to RunInfo.
func (r *RunRecord) ToInfo() RunInfo {
	return RunInfo{
		ID:            r.ID,
		Variant:       r.Variant,
		Width:         r.Params.Width,
		Height:        r.Params.Height,
		MaxIters:      r.Params.MaxIters,
		ElapsedMicros: r.ElapsedMicros,
		Checksum:      r.Summary.Checksum,
		Source:        r.Source,
		Timestamp:     r.Timestamp,
	}
}

// Validate checks that the record is complete enough to be stored.
func (r *RunRecord) Validate() error {
	if r.ID == "" {
		return &ValidationError{Field: "ID", Reason: "cannot be empty"}
	}
	if _, err := uuid.Parse(r.ID); err != nil {
		return &ValidationError{Field: "ID", Reason: "must be a UUID"}
	}
	if _, err := escape.ParseVariant(r.Variant); err != nil || r.Variant == "" {
		return &ValidationError{Field: "Variant", Reason: "unknown variant " + r.Variant}
	}
	if err := r.Params.Validate(); err != nil {
		return &ValidationError{Field: "Params", Reason: err.Error()}
	}
	if r.ElapsedMicros < 0 {
		return &ValidationError{Field: "ElapsedMicros", Reason: "cannot be negative"}
	}
	if r.Summary.Pixels != r.Params.Pixels() {
		return &ValidationError{Field: "Summary.Pixels", Reason: "does not match width*height"}
	}
	if r.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	return nil
}

// ValidationError represents a run record validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
