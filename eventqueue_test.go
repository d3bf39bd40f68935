package desnet

import (
	"testing"
	"time"
)

// recordingEvent appends its own label to a shared slice when executed, so
// tests can observe dispatch order without a full [Simulation].
type recordingEvent struct {
	eventBase
	label string
	trace *[]string
}

func (e *recordingEvent) Execute(sim *Simulation) {
	*e.trace = append(*e.trace, e.label)
}

func TestEventQueueOrdersByTimeThenSeq(t *testing.T) {
	q := NewEventQueue()
	var trace []string

	// same time, different insertion order: FIFO tiebreak (spec.md §4.1)
	q.Schedule(&recordingEvent{eventBase: eventBase{at: 5 * time.Second}, label: "a", trace: &trace})
	q.Schedule(&recordingEvent{eventBase: eventBase{at: 5 * time.Second}, label: "b", trace: &trace})
	q.Schedule(&recordingEvent{eventBase: eventBase{at: 1 * time.Second}, label: "c", trace: &trace})

	var order []string
	for q.Len() > 0 {
		ev, ok := q.PopMin()
		if !ok {
			t.Fatalf("PopMin: got !ok with Len()=%d", q.Len())
		}
		order = append(order, ev.(*recordingEvent).label)
	}

	want := []string{"c", "a", "b"}
	if len(order) != len(want) {
		t.Fatalf("order: got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d]: got %q, want %q", i, order[i], want[i])
		}
	}
}

func TestEventQueueEmpty(t *testing.T) {
	q := NewEventQueue()
	if q.Len() != 0 {
		t.Errorf("Len(): got %d, want 0", q.Len())
	}
	if _, ok := q.PopMin(); ok {
		t.Error("PopMin() on empty queue: got ok=true, want false")
	}
}

func TestHandleCancelSkipsExecute(t *testing.T) {
	q := NewEventQueue()
	var trace []string

	handle := q.Schedule(&recordingEvent{eventBase: eventBase{at: time.Second}, label: "cancel-me", trace: &trace})
	q.Schedule(&recordingEvent{eventBase: eventBase{at: 2 * time.Second}, label: "survive", trace: &trace})

	handle.Cancel()

	for q.Len() > 0 {
		ev, _ := q.PopMin()
		if ev.Cancelled() {
			continue
		}
		ev.Execute(nil)
	}

	if len(trace) != 1 || trace[0] != "survive" {
		t.Errorf("trace: got %v, want [survive]", trace)
	}
}

func TestHandleCancelNilIsNoOp(t *testing.T) {
	var h *Handle
	h.Cancel() // must not panic
}

func TestHandleDoubleCancelIsNoOp(t *testing.T) {
	q := NewEventQueue()
	var trace []string
	handle := q.Schedule(&recordingEvent{eventBase: eventBase{at: time.Second}, label: "x", trace: &trace})
	handle.Cancel()
	handle.Cancel() // must not panic or double-count

	ev, _ := q.PopMin()
	if !ev.Cancelled() {
		t.Error("Cancelled(): got false, want true")
	}
}
