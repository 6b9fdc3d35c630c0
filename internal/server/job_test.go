package server

import (
	"sync"
	"testing"

	"github.com/cwbudde/mandelvec/internal/escape"
)

func testVariant(t *testing.T, name string) escape.Variant {
	t.Helper()
	v, err := escape.ParseVariant(name)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func smallParams() escape.Params {
	p := escape.DefaultParams()
	p.Width, p.Height = 32, 32
	p.MaxIters = 50
	return p
}

func TestJobManager_CreateJob(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(testVariant(t, "AVX2"), smallParams(), 2, 0)

	if job.ID == "" {
		t.Error("Job ID should not be empty")
	}
	if job.State != StatePending {
		t.Errorf("Expected state %s, got %s", StatePending, job.State)
	}
	if job.Variant != "direct8" {
		t.Errorf("Variant = %s, want canonical direct8", job.Variant)
	}
	if job.StartTime.IsZero() {
		t.Error("StartTime should be set")
	}
}

func TestJobManager_GetJob(t *testing.T) {
	jm := NewJobManager()
	created := jm.CreateJob(testVariant(t, "fpu"), smallParams(), 1, 0)

	got, exists := jm.GetJob(created.ID)
	if !exists {
		t.Fatal("Job should exist")
	}
	if got.ID != created.ID {
		t.Errorf("Expected ID %s, got %s", created.ID, got.ID)
	}

	if _, exists := jm.GetJob("non-existent"); exists {
		t.Error("Non-existent job should not be found")
	}
}

func TestJobManager_GetJobReturnsSnapshot(t *testing.T) {
	jm := NewJobManager()
	created := jm.CreateJob(testVariant(t, "fpu"), smallParams(), 1, 0)

	snap, _ := jm.GetJob(created.ID)
	snap.State = StateFailed

	again, _ := jm.GetJob(created.ID)
	if again.State != StatePending {
		t.Errorf("mutating a snapshot changed the stored job: %s", again.State)
	}
}

func TestJobManager_ListJobs(t *testing.T) {
	jm := NewJobManager()
	jm.CreateJob(testVariant(t, "fpu"), smallParams(), 1, 0)
	jm.CreateJob(testVariant(t, "orig"), smallParams(), 1, 0)

	jobs := jm.ListJobs()
	if len(jobs) != 2 {
		t.Fatalf("Expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].StartTime.After(jobs[1].StartTime) {
		t.Error("jobs should be ordered oldest first")
	}
}

func TestJobManager_UpdateAndRemove(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(testVariant(t, "fpu"), smallParams(), 1, 0)

	err := jm.UpdateJob(job.ID, func(j *Job) {
		j.State = StateRunning
	})
	if err != nil {
		t.Fatalf("UpdateJob failed: %v", err)
	}
	if got, _ := jm.GetJob(job.ID); got.State != StateRunning {
		t.Errorf("Expected state %s, got %s", StateRunning, got.State)
	}
	if running := jm.GetRunningJobs(); len(running) != 1 {
		t.Errorf("Expected 1 running job, got %d", len(running))
	}

	if err := jm.UpdateJob("non-existent", func(j *Job) {}); err == nil {
		t.Error("Expected error updating non-existent job")
	}

	if !jm.RemoveJob(job.ID) {
		t.Error("RemoveJob should report an existing job")
	}
	if jm.RemoveJob(job.ID) {
		t.Error("RemoveJob should report a missing job")
	}
}

func TestJobManager_ThreadSafety(t *testing.T) {
	jm := NewJobManager()
	v := testVariant(t, "fpu")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job := jm.CreateJob(v, smallParams(), 1, 0)
			jm.UpdateJob(job.ID, func(j *Job) { j.State = StateRunning })
			jm.GetJob(job.ID)
			jm.ListJobs()
		}()
	}
	wg.Wait()

	if len(jm.ListJobs()) != 20 {
		t.Errorf("Expected 20 jobs, got %d", len(jm.ListJobs()))
	}
}
