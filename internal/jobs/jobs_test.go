package jobs

import (
	"strings"
	"testing"
	"time"
)

func TestEmitDeliversInRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	job := r.Create()

	var order []string
	job.Subscribe(func(ev ProgressEvent) {
		order = append(order, "first:"+string(ev.Type))
	})
	job.Subscribe(func(ev ProgressEvent) {
		order = append(order, "second:"+string(ev.Type))
	})

	job.Emit(ProgressEvent{Type: StageReceived})
	job.Emit(ProgressEvent{Type: StageValidated})

	want := []string{
		"first:received", "second:received",
		"first:validated", "second:validated",
	}
	if len(order) != len(want) {
		t.Fatalf("got %d deliveries, want %d: %v", len(order), len(want), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("delivery %d = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestLateSubscriberGetsNoReplay(t *testing.T) {
	r := NewRegistry()
	job := r.Create()

	job.Emit(ProgressEvent{Type: StageReceived})
	job.Emit(ProgressEvent{Type: StageValidated})

	var seen []Stage
	job.Subscribe(func(ev ProgressEvent) {
		seen = append(seen, ev.Type)
	})

	job.Emit(ProgressEvent{Type: StageScored})

	if len(seen) != 1 || seen[0] != StageScored {
		t.Fatalf("late subscriber saw %v, want only [scored]", seen)
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	r := NewRegistry()
	job := r.Create()

	var count int
	sub := job.Subscribe(func(ProgressEvent) { count++ })

	job.Emit(ProgressEvent{Type: StageReceived})
	job.Unsubscribe(sub)
	job.Unsubscribe(sub)
	job.Emit(ProgressEvent{Type: StageValidated})

	if count != 1 {
		t.Fatalf("listener invoked %d times after unsubscribe, want 1", count)
	}
}

func TestPanickingListenerDoesNotBlockOthers(t *testing.T) {
	r := NewRegistry()
	job := r.Create()

	job.Subscribe(func(ProgressEvent) { panic("listener bug") })

	var delivered bool
	job.Subscribe(func(ProgressEvent) { delivered = true })

	job.Emit(ProgressEvent{Type: StageReceived})

	if !delivered {
		t.Fatal("second listener was not invoked after first panicked")
	}
}

func TestEmitAdvancesStatus(t *testing.T) {
	r := NewRegistry()
	job := r.Create()

	if got := job.Status(); got != StatusPending {
		t.Fatalf("fresh job status = %q, want %q", got, StatusPending)
	}

	job.Emit(ProgressEvent{Type: StageReceived})
	if got := job.Status(); got != StatusRunning {
		t.Fatalf("status after first event = %q, want %q", got, StatusRunning)
	}

	job.Emit(ProgressEvent{Type: StageFinished, Payload: FinishedPayload{OK: true}})
	if got := job.Status(); got != StatusFinished {
		t.Fatalf("status after terminal event = %q, want %q", got, StatusFinished)
	}
}

func TestRegistryCreateGetRemove(t *testing.T) {
	r := NewRegistry()

	a := r.Create()
	b := r.Create()

	if a.ID == b.ID {
		t.Fatalf("two jobs share id %q", a.ID)
	}
	if !strings.HasPrefix(a.ID, "job_") {
		t.Fatalf("job id %q lacks job_ prefix", a.ID)
	}
	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", r.Len())
	}

	got, ok := r.Get(a.ID)
	if !ok || got != a {
		t.Fatalf("Get(%q) = %v, %v", a.ID, got, ok)
	}
	if _, ok := r.Get("job_unknown"); ok {
		t.Fatal("Get on unknown id reported ok")
	}

	r.Remove(a.ID)
	r.Remove(a.ID) // idempotent
	if _, ok := r.Get(a.ID); ok {
		t.Fatal("job still resolvable after Remove")
	}
	if r.Len() != 1 {
		t.Fatalf("Len() after remove = %d, want 1", r.Len())
	}
}

func TestScheduleEvictionRemovesAfterGrace(t *testing.T) {
	r := NewRegistry()
	job := r.Create()

	r.ScheduleEviction(job.ID, 10*time.Millisecond)

	if _, ok := r.Get(job.ID); !ok {
		t.Fatal("job evicted before the grace window elapsed")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := r.Get(job.ID); !ok {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("job was not evicted after the grace window")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTerminalEvent(t *testing.T) {
	if (ProgressEvent{Type: StageEmailFailed}).Terminal() {
		t.Fatal("email_failed must not terminate the stream")
	}
	if !(ProgressEvent{Type: StageFinished}).Terminal() {
		t.Fatal("finished must terminate the stream")
	}
}
