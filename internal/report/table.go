package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// BenchRow is one measured variant in a benchmark table.
type BenchRow struct {
	Variant  string
	Elapsed  time.Duration
	Pixels   int
	Checksum string
	Match    bool
}

// MPixelsPerSecond returns the throughput of the row.
func (r BenchRow) MPixelsPerSecond() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Pixels) / r.Elapsed.Seconds() / 1e6
}

// WriteBench renders rows as a table. Speed-up is relative to the row named
// baseline; if no row has that name the column shows "-".
func WriteBench(w io.Writer, rows []BenchRow, baseline string) {
	var base time.Duration
	for _, r := range rows {
		if r.Variant == baseline {
			base = r.Elapsed
		}
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Variant", "Time (us)", "Speed-up", "Mpixel/s", "Checksum", "Match"})
	for _, r := range rows {
		speedup := "-"
		if base > 0 && r.Elapsed > 0 {
			speedup = fmt.Sprintf("%.2fx", float64(base)/float64(r.Elapsed))
		}
		match := "yes"
		if !r.Match {
			match = "NO"
		}
		t.AppendRow(table.Row{
			r.Variant,
			r.Elapsed.Microseconds(),
			speedup,
			fmt.Sprintf("%.1f", r.MPixelsPerSecond()),
			r.Checksum,
			match,
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	t.Render()
}

// VariantRow describes one selectable variant.
type VariantRow struct {
	Name    string
	Kind    string
	Width   int
	Aliases []string
	Auto    bool
}

// WriteVariants renders the variant registry.
func WriteVariants(w io.Writer, rows []VariantRow) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Name", "Kind", "Lanes", "Aliases", "Auto"})
	for _, r := range rows {
		auto := ""
		if r.Auto {
			auto = "*"
		}
		t.AppendRow(table.Row{r.Name, r.Kind, r.Width, strings.Join(r.Aliases, ", "), auto})
	}
	t.Render()
}

// RunRow is one stored render run.
type RunRow struct {
	ID        string
	Variant   string
	Width     int
	Height    int
	MaxIters  int
	Elapsed   time.Duration
	Checksum  string
	CreatedAt time.Time
}

// WriteRuns renders stored runs, newest first as given.
func WriteRuns(w io.Writer, rows []RunRow) {
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Variant", "Size", "Iters", "Time (us)", "Checksum", "Created"})
	for _, r := range rows {
		t.AppendRow(table.Row{
			r.ID,
			r.Variant,
			fmt.Sprintf("%dx%d", r.Width, r.Height),
			r.MaxIters,
			r.Elapsed.Microseconds(),
			r.Checksum,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 5, Align: text.AlignRight}})
	t.Render()
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

// TraceRow is one evaluated configuration of a tuning session.
type TraceRow struct {
	Evaluation int
	BlockSize  int
	Workers    int
	Elapsed    time.Duration
	Cached     bool
}

// WriteTrace renders a tuning trace in evaluation order and marks the fastest
// measured configuration.
func WriteTrace(w io.Writer, rows []TraceRow) {
	best := -1
	for i, r := range rows {
		if best < 0 || r.Elapsed < rows[best].Elapsed {
			best = i
		}
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Eval", "Block", "Workers", "Time (us)", "Cached", "Best"})
	for i, r := range rows {
		cached, mark := "", ""
		if r.Cached {
			cached = "yes"
		}
		if i == best {
			mark = "*"
		}
		t.AppendRow(table.Row{r.Evaluation, r.BlockSize, r.Workers, r.Elapsed.Microseconds(), cached, mark})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 4, Align: text.AlignRight}})
	t.Render()
}
