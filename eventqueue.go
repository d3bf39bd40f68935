package desnet

//
// Priority-ordered event queue
//

import (
	"github.com/google/btree"
)

// Event is a unit of work scheduled at a specific [VirtualTime]. Concrete
// event kinds are small structs implementing this interface (spec.md §9:
// "replace an inheritance hierarchy with a tagged variant per event kind");
// see events.go.
type Event interface {
	// At returns the virtual time at which this event should execute.
	At() VirtualTime

	// Seq returns the insertion-order tiebreaker assigned by [EventQueue.Schedule].
	Seq() uint64

	// setSeq is called exactly once, by [EventQueue.Schedule].
	setSeq(seq uint64)

	// Cancelled reports whether this event was cancelled before execution.
	Cancelled() bool

	// cancel marks this event as cancelled. Implemented by [eventBase] and
	// invoked only through a [Handle].
	cancel()

	// Execute runs this event's state transition. It may schedule zero or
	// more successor events via sim.Schedule and cancel previously
	// scheduled events via their handles.
	Execute(sim *Simulation)
}

// Handle is a cancellable reference to a scheduled [Event]. The flow (or
// host, or router) that scheduled the event retains the handle and calls
// Cancel to retract obsolete future work; the driver never walks the queue
// to find it (spec.md §4.1).
type Handle struct {
	event    Event
	cancelFn func()
}

// Cancel marks the referenced event as cancelled. Cancellation is logical,
// not physical: the event remains in the queue until the driver extracts
// it and discards it without dispatch (spec.md §4.1). Cancelling a nil
// [Handle] or an already-cancelled one is a no-op.
func (h *Handle) Cancel() {
	if h == nil || h.cancelFn == nil {
		return
	}
	h.cancelFn()
}

// eventItem is the btree.Item wrapping an [Event] with its queue-assigned
// sequence number, establishing the lexicographic (time, seq) order spec.md
// §4.1 requires: ties at equal virtual time are broken by insertion order.
type eventItem struct {
	event Event
}

var _ btree.Item = eventItem{}

// Less implements btree.Item.
func (it eventItem) Less(other btree.Item) bool {
	o := other.(eventItem)
	if it.event.At() != o.event.At() {
		return it.event.At() < o.event.At()
	}
	return it.event.Seq() < o.event.Seq()
}

// EventQueue is the ordered multiset of (time, seq, event) triples driving
// the simulation (spec.md §4.1). The zero value is invalid; use
// [NewEventQueue].
type EventQueue struct {
	tree    *btree.BTree
	nextSeq uint64
}

// eventQueueDegree is the branching factor passed to [btree.New]; any small
// constant works, this one matches the teacher corpus's default google/btree
// usage elsewhere in the example pack.
const eventQueueDegree = 32

// NewEventQueue creates an empty [EventQueue].
func NewEventQueue() *EventQueue {
	return &EventQueue{
		tree:    btree.New(eventQueueDegree),
		nextSeq: 0,
	}
}

// Schedule inserts ev into the queue, assigns it the next insertion
// sequence number, and returns a [Handle] that can later cancel it.
func (q *EventQueue) Schedule(ev Event) *Handle {
	ev.setSeq(q.nextSeq)
	q.nextSeq++
	q.tree.ReplaceOrInsert(eventItem{event: ev})
	return &Handle{event: ev, cancelFn: ev.cancel}
}

// Len returns the number of events still in the queue, including cancelled
// ones awaiting extraction.
func (q *EventQueue) Len() int {
	return q.tree.Len()
}

// PopMin removes and returns the minimum (time, seq) event in the queue.
// The second return value is false if the queue is empty.
func (q *EventQueue) PopMin() (Event, bool) {
	item := q.tree.DeleteMin()
	if item == nil {
		return nil, false
	}
	return item.(eventItem).event, true
}
