package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/mandelvec/internal/escape"
	"github.com/cwbudde/mandelvec/internal/report"
	"github.com/cwbudde/mandelvec/internal/store"
)

// runJob renders a job and records the outcome. If runStore is not nil the
// completed run is persisted under the job's ID.
func runJob(ctx context.Context, jm *JobManager, runStore store.Store, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	select {
	case <-ctx.Done():
		markJobCancelled(jm, jobID)
		return ctx.Err()
	default:
	}

	opts := []escape.Option{escape.WithWorkers(job.Workers)}
	if job.BlockSize > 0 {
		opts = append(opts, escape.WithBlockSize(job.BlockSize))
	}
	renderer, err := escape.NewRendererForVariant(job.Variant, opts...)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
		j.Workers = renderer.Workers()
		j.BlockSize = renderer.BlockSize()
	})
	broadcastState(jm, jobID)

	slog.Info("Starting render", "job_id", jobID, "variant", job.Variant,
		"width", job.Params.Width, "height", job.Params.Height)

	counts := make([]uint16, job.Params.Pixels())
	start := time.Now()
	renderer.Render(job.Params, counts)
	elapsed := time.Since(start)

	summary := report.Summarize(counts, job.Params.MaxIters)

	saved := false
	if runStore != nil {
		record := store.NewRunRecord(renderer.Variant(), job.Params, renderer.Workers(), renderer.BlockSize(), elapsed, summary)
		record.ID = jobID
		record.Source = "server"
		if err := runStore.SaveRun(record); err != nil {
			slog.Warn("Failed to save run", "job_id", jobID, "error", err)
		} else {
			saved = true
		}
	}

	endTime := time.Now()
	err = jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.ElapsedMicros = elapsed.Microseconds()
		j.Summary = &summary
		j.Saved = saved
		j.EndTime = &endTime
	})
	if err != nil {
		return err
	}

	slog.Info("Render completed",
		"job_id", jobID,
		"variant", job.Variant,
		"elapsed", elapsed,
		"inside", summary.Inside,
		"checksum", summary.Checksum,
	)

	broadcastState(jm, jobID)
	return nil
}

// broadcastState publishes the current state of a job to its subscribers.
func broadcastState(jm *JobManager, jobID string) {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return
	}
	jm.broadcaster.Broadcast(eventFor(job))
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	broadcastState(jm, jobID)
	slog.Error("Render failed", "job_id", jobID, "error", err)
}

// markJobCancelled marks a job as cancelled
func markJobCancelled(jm *JobManager, jobID string) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
	})
	broadcastState(jm, jobID)
	slog.Info("Render cancelled", "job_id", jobID)
}
