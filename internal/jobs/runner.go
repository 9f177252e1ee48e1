// Package jobs runs ingestion work in the background so upload
// requests can return immediately with a job ID to poll.
package jobs

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"parkatlas/internal/models"
)

// Status values a job moves through, in order.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Job is the queryable record of one background ingestion.
type Job struct {
	ID          string             `json:"id"`
	Destination string             `json:"destination"`
	Status      string             `json:"status"`
	Error       string             `json:"error,omitempty"`
	Stats       *models.IngestStats `json:"stats,omitempty"`
	SubmittedAt time.Time          `json:"submitted_at"`
	StartedAt   *time.Time         `json:"started_at,omitempty"`
	FinishedAt  *time.Time         `json:"finished_at,omitempty"`
}

// Work is the body of a job. It returns the stats to record.
type Work func(ctx context.Context) (models.IngestStats, error)

// maxConcurrent bounds how many jobs run at once across all
// destinations.
const maxConcurrent = 2

// Runner schedules and tracks background jobs. Jobs sharing a
// destination key are serialized so two uploads to the same destination
// never race each other's chunks.
type Runner struct {
	mu     sync.Mutex
	jobs   map[string]*Job
	slots  map[string]chan struct{}
	global chan struct{}
	wg     sync.WaitGroup
}

func NewRunner() *Runner {
	return &Runner{
		jobs:   make(map[string]*Job),
		slots:  make(map[string]chan struct{}),
		global: make(chan struct{}, maxConcurrent),
	}
}

// Submit registers a job and starts it once a slot for its destination
// frees up. The returned ID is usable with Status immediately.
func (r *Runner) Submit(ctx context.Context, destination string, work Work) string {
	id := uuid.New().String()
	job := &Job{
		ID:          id,
		Destination: destination,
		Status:      StatusPending,
		SubmittedAt: time.Now(),
	}

	r.mu.Lock()
	r.jobs[id] = job
	slot, ok := r.slots[destination]
	if !ok {
		// Capacity 1: one job per destination at a time.
		slot = make(chan struct{}, 1)
		r.slots[destination] = slot
	}
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		select {
		case slot <- struct{}{}:
		case <-ctx.Done():
			r.finish(id, nil, ctx.Err())
			return
		}
		defer func() { <-slot }()

		select {
		case r.global <- struct{}{}:
		case <-ctx.Done():
			r.finish(id, nil, ctx.Err())
			return
		}
		defer func() { <-r.global }()

		now := time.Now()
		r.mu.Lock()
		job.Status = StatusRunning
		job.StartedAt = &now
		r.mu.Unlock()

		log.Printf("Job %s started (destination %s)", id, destination)
		stats, err := work(ctx)
		r.finish(id, &stats, err)
	}()

	return id
}

func (r *Runner) finish(id string, stats *models.IngestStats, err error) {
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()

	job := r.jobs[id]
	job.FinishedAt = &now
	job.Stats = stats
	if err != nil {
		job.Status = StatusFailed
		job.Error = err.Error()
		log.Printf("Job %s failed: %v", id, err)
		return
	}
	job.Status = StatusSucceeded
	log.Printf("Job %s succeeded", id)
}

// Status returns a copy of one job's record.
func (r *Runner) Status(id string) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("no such job: %s", id)
	}
	return *job, nil
}

// List returns all known jobs, newest first.
func (r *Runner) List() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		out = append(out, *job)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out
}

// Wait blocks until every submitted job has finished. Used by CLI
// entrypoints and tests.
func (r *Runner) Wait() {
	r.wg.Wait()
}
