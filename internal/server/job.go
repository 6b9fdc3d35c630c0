package server

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cwbudde/mandelvec/internal/escape"
	"github.com/cwbudde/mandelvec/internal/report"
	"github.com/google/uuid"
)

// JobState represents the current state of a render job
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
)

// RenderRequest is the body of POST /api/v1/renders. Omitted params fields
// keep their defaults.
type RenderRequest struct {
	Variant   string        `json:"variant"`
	Params    escape.Params `json:"params"`
	Workers   int           `json:"workers,omitempty"`
	BlockSize int           `json:"blockSize,omitempty"`
}

// Job represents one render request and its outcome
type Job struct {
	ID            string          `json:"id"`
	State         JobState        `json:"state"`
	Variant       string          `json:"variant"`
	Params        escape.Params   `json:"params"`
	Workers       int             `json:"workers"`
	BlockSize     int             `json:"blockSize"`
	ElapsedMicros int64           `json:"elapsedMicros,omitempty"`
	Summary       *report.Summary `json:"summary,omitempty"`
	Saved         bool            `json:"saved"`
	StartTime     time.Time       `json:"startTime"`
	EndTime       *time.Time      `json:"endTime,omitempty"`
	Error         string          `json:"error,omitempty"`
}

// JobManager manages the lifecycle of jobs
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	broadcaster *EventBroadcaster
}

// NewJobManager creates a new JobManager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:        make(map[string]*Job),
		broadcaster: NewEventBroadcaster(),
	}
}

// CreateJob registers a pending job for an already resolved variant.
func (jm *JobManager) CreateJob(v escape.Variant, p escape.Params, workers, blockSize int) *Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job := &Job{
		ID:        uuid.New().String(),
		State:     StatePending,
		Variant:   v.String(),
		Params:    p,
		Workers:   workers,
		BlockSize: blockSize,
		StartTime: time.Now(),
	}

	jm.jobs[job.ID] = job
	return job
}

// GetJob returns a snapshot of the job with the given ID.
func (jm *JobManager) GetJob(id string) (Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, exists := jm.jobs[id]
	if !exists {
		return Job{}, false
	}
	return *job, true
}

// ListJobs returns snapshots of all jobs, oldest first.
func (jm *JobManager) ListJobs() []Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	jobs := make([]Job, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		jobs = append(jobs, *job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].StartTime.Before(jobs[j].StartTime)
	})
	return jobs
}

// UpdateJob atomically updates a job using the provided function
func (jm *JobManager) UpdateJob(id string, updateFn func(*Job)) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, exists := jm.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	updateFn(job)
	return nil
}

// RemoveJob forgets a job. It reports whether the job existed.
func (jm *JobManager) RemoveJob(id string) bool {
	jm.mu.Lock()
	_, exists := jm.jobs[id]
	delete(jm.jobs, id)
	jm.mu.Unlock()

	if exists {
		jm.broadcaster.CleanupJob(id)
	}
	return exists
}

// GetRunningJobs returns all jobs currently in the running state
func (jm *JobManager) GetRunningJobs() []Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	running := make([]Job, 0)
	for _, job := range jm.jobs {
		if job.State == StateRunning {
			running = append(running, *job)
		}
	}
	return running
}
