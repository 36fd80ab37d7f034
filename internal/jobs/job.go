package jobs

import (
	"sort"
	"sync"
)

// Status values are informational; the event stream is authoritative for
// control flow.
const (
	StatusPending  = "pending"
	StatusRunning  = "running"
	StatusFinished = "finished"
)

// Listener receives every event emitted on a job after the listener was
// registered. There is no replay for late subscribers.
type Listener func(ProgressEvent)

// Subscription identifies a registered listener so it can be removed.
type Subscription struct {
	id int
}

// Job is the publish side of the progress pub-sub: one tracked run of the
// evaluation pipeline, identified by an opaque id handed to the client.
type Job struct {
	ID string

	mu        sync.Mutex
	status    string
	nextSub   int
	listeners map[int]Listener
}

func newJob(id string) *Job {
	return &Job{
		ID:        id,
		status:    StatusPending,
		listeners: map[int]Listener{},
	}
}

// Status returns the job's informational status.
func (j *Job) Status() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// SetStatus updates the informational status.
func (j *Job) SetStatus(status string) {
	j.mu.Lock()
	j.status = status
	j.mu.Unlock()
}

// Subscribe registers a listener for future events. Any number of listeners
// may be attached; each reconnecting tab gets its own.
func (j *Job) Subscribe(fn Listener) Subscription {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.nextSub++
	id := j.nextSub
	j.listeners[id] = fn
	return Subscription{id: id}
}

// Unsubscribe removes a listener. Calling it twice, or with a subscription
// from a job that is already gone, is a no-op.
func (j *Job) Unsubscribe(sub Subscription) {
	j.mu.Lock()
	delete(j.listeners, sub.id)
	j.mu.Unlock()
}

// Emit synchronously delivers ev to every currently registered listener in
// registration order. The listener set is snapshotted under the lock so a
// concurrent Subscribe/Unsubscribe cannot corrupt delivery, and a panicking
// listener does not prevent delivery to the rest.
func (j *Job) Emit(ev ProgressEvent) {
	j.mu.Lock()
	if ev.Terminal() {
		j.status = StatusFinished
	} else if j.status == StatusPending {
		j.status = StatusRunning
	}
	ids := make([]int, 0, len(j.listeners))
	for id := range j.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	snapshot := make([]Listener, 0, len(ids))
	for _, id := range ids {
		snapshot = append(snapshot, j.listeners[id])
	}
	j.mu.Unlock()

	for _, fn := range snapshot {
		callListener(fn, ev)
	}
}

func callListener(fn Listener, ev ProgressEvent) {
	defer func() {
		_ = recover()
	}()
	fn(ev)
}
