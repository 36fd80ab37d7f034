package jobs

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// Registry is the process-wide lookup table from job id to Job. It is
// constructed once in main and passed to the handlers and the pipeline;
// there is no package-level instance.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*Job)}
}

// Create allocates a fresh id, stores a new Job under it and returns the job.
// A job stays registered until Remove; if its pipeline run never reaches a
// terminal event the entry leaks for the process lifetime.
func (r *Registry) Create() *Job {
	job := newJob(newJobID())

	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
	return job
}

// Get looks up a job by id. A missing or already evicted id is reported via
// the boolean, not an error.
func (r *Registry) Get(id string) (*Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	return job, ok
}

// Remove deletes a job. Removing an unknown id is a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.jobs, id)
	r.mu.Unlock()
}

// Len returns the number of registered jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// ScheduleEviction removes the job after the grace delay, leaving a window
// in which a reconnecting client can still resolve the id.
func (r *Registry) ScheduleEviction(id string, after time.Duration) {
	time.AfterFunc(after, func() {
		r.Remove(id)
	})
}

// newJobID combines a millisecond timestamp with a random suffix; the suffix
// alone makes collisions with a live id practically impossible.
func newJobID() string {
	var b [6]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("job_%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("job_%d_%s", time.Now().UnixMilli(), hex.EncodeToString(b[:]))
}
