package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/cwbudde/mandelvec/internal/escape"
	"github.com/cwbudde/mandelvec/internal/store"
)

// maxRequestBytes bounds the size of a render request body.
const maxRequestBytes = 1 << 16

// decodeRenderRequest reads a RenderRequest with default params underneath,
// so a body of {} renders the default view.
func decodeRenderRequest(w http.ResponseWriter, r *http.Request) (RenderRequest, error) {
	req := RenderRequest{Params: escape.DefaultParams()}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return RenderRequest{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if req.Workers < 0 {
		return RenderRequest{}, fmt.Errorf("workers must not be negative")
	}
	if req.BlockSize < 0 {
		return RenderRequest{}, fmt.Errorf("blockSize must not be negative")
	}
	return req, nil
}

// writeJSON writes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// jobFromRecord presents a stored run in the job shape the API returns.
func jobFromRecord(rec *store.RunRecord) Job {
	summary := rec.Summary
	end := rec.Timestamp
	return Job{
		ID:            rec.ID,
		State:         StateCompleted,
		Variant:       rec.Variant,
		Params:        rec.Params,
		Workers:       rec.Workers,
		BlockSize:     rec.BlockSize,
		ElapsedMicros: rec.ElapsedMicros,
		Summary:       &summary,
		Saved:         true,
		StartTime:     rec.Timestamp,
		EndTime:       &end,
	}
}

// VariantInfo describes one variant in GET /api/v1/variants.
type VariantInfo struct {
	Name    string   `json:"name"`
	Kind    string   `json:"kind"`
	Width   int      `json:"width"`
	Aliases []string `json:"aliases,omitempty"`
	Auto    bool     `json:"auto,omitempty"`
}

func listVariants() []VariantInfo {
	aliases := map[string][]string{}
	for _, a := range escape.Aliases() {
		aliases[a[1]] = append(aliases[a[1]], a[0])
	}

	variants := escape.SupportedVariants()
	out := make([]VariantInfo, 0, len(variants))
	for _, v := range variants {
		out = append(out, VariantInfo{
			Name:    v.String(),
			Kind:    v.Kind.String(),
			Width:   v.Width,
			Aliases: aliases[v.String()],
			Auto:    v == escape.ActiveVariant,
		})
	}
	return out
}
