package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cwbudde/mandelvec/internal/report"
	"github.com/cwbudde/mandelvec/internal/server"
	"github.com/spf13/cobra"
)

var (
	serverURL string
)

var statusCmd = &cobra.Command{
	Use:   "status [render-id]",
	Short: "Query server renders",
	Long: `Queries a running server for render information.
If no render-id is provided, lists all renders.
If render-id is provided, shows details for that render.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	base := strings.TrimRight(serverURL, "/")
	out := cmd.OutOrStdout()
	client := &http.Client{Timeout: 30 * time.Second}

	if len(args) == 0 {
		var jobs []server.Job
		if err := getJSON(client, base+"/api/v1/renders", &jobs); err != nil {
			return err
		}
		printJobs(out, jobs)
		return nil
	}

	var job server.Job
	if err := getJSON(client, base+"/api/v1/renders/"+args[0], &job); err != nil {
		return err
	}
	printJob(out, job)
	return nil
}

func getJSON(client *http.Client, url string, v any) error {
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("render not found: %s", url)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func printJobs(w io.Writer, jobs []server.Job) {
	if len(jobs) == 0 {
		fmt.Fprintln(w, "No renders found")
		return
	}

	rows := make([]report.RunRow, 0, len(jobs))
	for _, job := range jobs {
		row := report.RunRow{
			ID:        shortID(job.ID),
			Variant:   job.Variant,
			Width:     job.Params.Width,
			Height:    job.Params.Height,
			MaxIters:  job.Params.MaxIters,
			Elapsed:   time.Duration(job.ElapsedMicros) * time.Microsecond,
			CreatedAt: job.StartTime,
		}
		if job.Summary != nil {
			row.Checksum = job.Summary.Checksum
		}
		rows = append(rows, row)
	}
	report.WriteRuns(w, rows)
}

func printJob(w io.Writer, job server.Job) {
	fmt.Fprintf(w, "Render: %s\n", job.ID)
	fmt.Fprintf(w, "State: %s\n", job.State)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Configuration:")
	fmt.Fprintf(w, "  %s\n", report.HeaderLine(job.Params))
	fmt.Fprintf(w, "  Variant: %s\n", job.Variant)
	fmt.Fprintf(w, "  Workers: %d\n", job.Workers)
	fmt.Fprintf(w, "  Block size: %d\n", job.BlockSize)
	fmt.Fprintf(w, "  Sampling: %s\n", job.Params.Sampling)
	fmt.Fprintln(w)

	if s := job.Summary; s != nil {
		fmt.Fprintln(w, "Result:")
		fmt.Fprintf(w, "  %s\n", report.TimingLine(strings.ToUpper(job.Variant), job.ElapsedMicros))
		fmt.Fprintf(w, "  Inside: %d of %d pixels\n", s.Inside, s.Pixels)
		fmt.Fprintf(w, "  Counts: min %d, max %d, mean %.2f\n", s.Min, s.Max, s.Mean)
		fmt.Fprintf(w, "  Checksum: %s\n", s.Checksum)
		if job.ElapsedMicros > 0 {
			mpix := float64(s.Pixels) / float64(job.ElapsedMicros)
			fmt.Fprintf(w, "  Throughput: %.1f Mpixel/s\n", mpix)
		}
	}

	if job.Error != "" {
		fmt.Fprintf(w, "\nError: %s\n", job.Error)
	}
}
