package desnet

//
// Flow: per-connection sender state machine — sliding window, Reno-style
// congestion control, RTT estimation, retransmission (spec.md §3, §4.4).
// This is the core of the simulator (spec.md §2 budget: 35% of the repo).
//

import (
	"math"

	"github.com/ooni-desnet/desnet/internal/invariant"
)

// Phase is a [Flow]'s congestion-control phase.
type Phase int

const (
	// SlowStart grows cwnd by 1 per new ACK.
	SlowStart Phase = iota

	// CongestionAvoid grows cwnd by 1/cwnd per new ACK.
	CongestionAvoid

	// FastRecovery inflates cwnd by 1 per further duplicate ACK until the
	// retransmitted packet is acknowledged.
	FastRecovery
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case SlowStart:
		return "SLOW_START"
	case CongestionAvoid:
		return "CONGESTION_AVOID"
	case FastRecovery:
		return "FAST_RECOVERY"
	default:
		return "UNKNOWN"
	}
}

// dupAckThreshold is the number of duplicate ACKs that triggers a fast
// retransmit (spec.md §4.4 defaults).
const dupAckThreshold = 3

// FlowConfig describes a [Flow] as parsed from the topology's `flows`
// array (spec.md §6).
type FlowConfig struct {
	ID           FlowID
	Src          NodeID
	Dst          NodeID
	PayloadBytes int
	MSSBits      int
	StartTime    VirtualTime
}

// Flow is a per-connection reliable-delivery state machine (spec.md §3,
// §4.4). Immutable fields are set once at construction; the rest is
// sender-side mutable state mutated only by event handlers.
type Flow struct {
	id        FlowID
	srcHost   NodeID
	dstHost   NodeID
	mssBits   int
	startTime VirtualTime

	totalPackets int

	cwnd     float64
	ssthresh float64
	phase    Phase

	base    uint64
	nextSeq uint64

	// inFlight maps an outstanding DATA seq to the virtual time it was
	// actually transmitted (set by the SendPacket handler, not at
	// schedule time, spec.md §4.4).
	inFlight map[uint64]VirtualTime

	dupAckCount  int
	lastAckedSeq uint64

	rtt *rttEstimator

	timeout *Handle

	done bool

	logger Logger
}

// NewFlow constructs a [Flow] from cfg, with the defaults of spec.md §4.4:
// cwnd=1.0, ssthresh=+Inf, phase=SlowStart.
func NewFlow(cfg FlowConfig, logger Logger) *Flow {
	return &Flow{
		id:           cfg.ID,
		srcHost:      cfg.Src,
		dstHost:      cfg.Dst,
		mssBits:      cfg.MSSBits,
		startTime:    cfg.StartTime,
		totalPackets: ceilDiv(cfg.PayloadBytes*8, cfg.MSSBits),
		cwnd:         1.0,
		ssthresh:     math.Inf(1),
		phase:        SlowStart,
		base:         0,
		nextSeq:      0,
		inFlight:     map[uint64]VirtualTime{},
		rtt:          newRTTEstimator(),
		logger:       logger,
	}
}

// ID returns the flow's identifier.
func (f *Flow) ID() FlowID { return f.id }

// Done reports whether the flow has delivered every packet (spec.md §3:
// "flow terminates when base == total_packets").
func (f *Flow) Done() bool { return f.done }

// Cwnd returns the current congestion window, for metrics (spec.md §6
// SeriesFlowWindow).
func (f *Flow) Cwnd() float64 { return f.cwnd }

// Base returns the oldest un-ACKed sequence number.
func (f *Flow) Base() uint64 { return f.base }

// start implements spec.md §4.4 "Start": initialize sender state, send
// the first window's worth of packets, arm the first Timeout.
func (f *Flow) start(sim *Simulation) {
	f.base = 0
	f.nextSeq = 0
	f.replenish(sim)
	f.armTimeout(sim, f.base)
}

// replenish implements spec.md §4.4 "Window replenishment": schedule
// SendPacket events for every seq in [next_seq, min(base+floor(cwnd),
// total_packets)), advancing next_seq as each is scheduled.
func (f *Flow) replenish(sim *Simulation) {
	limit := f.base + uint64(math.Floor(f.cwnd))
	if uint64(f.totalPackets) < limit {
		limit = uint64(f.totalPackets)
	}
	for f.nextSeq < limit {
		sim.scheduleDataSend(f, f.nextSeq)
		f.nextSeq++
	}
}

// recordSend is called by the SendPacket handler at execute-time, so RTT
// sampling reflects real queueing delay rather than scheduling time
// (spec.md §4.4).
func (f *Flow) recordSend(seq uint64, now VirtualTime) {
	f.inFlight[seq] = now
}

// armTimeout cancels any existing Timeout and arms a fresh one for the
// oldest outstanding packet (spec.md invariant: "every in-flight DATA
// packet has exactly one live Timeout event scheduled").
func (f *Flow) armTimeout(sim *Simulation, seq uint64) {
	f.timeout.Cancel()
	ev := &timeoutEvent{eventBase: eventBase{at: sim.Now() + f.rtt.rto}, flow: f}
	f.timeout = sim.queue.Schedule(ev)
}

// cancelTimeout cancels the flow's outstanding Timeout, if any.
func (f *Flow) cancelTimeout() {
	f.timeout.Cancel()
	f.timeout = nil
}

// onAck implements spec.md §4.4 "On ACK receipt". A completed flow still
// idempotently absorbs ACKs with ackSeq <= last_acked_seq (spec.md §8
// property 7): the receiver's terminal ACK can legitimately reach the
// sender more than once (e.g. one already in flight when the deadline that
// would have re-emitted it is cancelled), and that must be a no-op rather
// than an assertion failure.
func (f *Flow) onAck(sim *Simulation, ackSeq uint64) {
	if f.done {
		invariant.Check(ackSeq <= f.lastAckedSeq, "ACK %d for flow %s exceeds last-acked %d after completion", ackSeq, f.id, f.lastAckedSeq)
		return
	}
	invariant.Check(ackSeq >= f.lastAckedSeq, "ACK %d for flow %s precedes last-acked %d", ackSeq, f.id, f.lastAckedSeq)

	if ackSeq > f.lastAckedSeq {
		f.onNewAck(sim, ackSeq)
		return
	}
	f.onDuplicateAck(sim, ackSeq)
}

// onNewAck handles a cumulative ACK that advances base.
func (f *Flow) onNewAck(sim *Simulation, ackSeq uint64) {
	if sendTime, ok := f.inFlight[ackSeq-1]; ok {
		f.rtt.sample(sim.Now() - sendTime)
	}

	f.base = ackSeq
	for seq := range f.inFlight {
		if seq < f.base {
			delete(f.inFlight, seq)
		}
	}

	switch f.phase {
	case SlowStart:
		f.cwnd += 1.0
		if f.cwnd >= f.ssthresh {
			f.phase = CongestionAvoid
		}
	case CongestionAvoid:
		f.cwnd += 1.0 / f.cwnd
	case FastRecovery:
		f.cwnd = f.ssthresh
		f.phase = CongestionAvoid
	}

	f.lastAckedSeq = ackSeq
	f.dupAckCount = 0

	if f.base == uint64(f.totalPackets) {
		f.cancelTimeout()
		f.done = true
		return
	}

	f.replenish(sim)

	if f.base < f.nextSeq {
		f.armTimeout(sim, f.base)
	} else {
		f.cancelTimeout()
	}
}

// onDuplicateAck handles a duplicate ACK, including fast-retransmit entry
// and fast-recovery window inflation (spec.md §4.4).
func (f *Flow) onDuplicateAck(sim *Simulation, ackSeq uint64) {
	f.dupAckCount++

	if f.dupAckCount == dupAckThreshold && f.phase != FastRecovery {
		f.ssthresh = math.Max(2, math.Floor(f.cwnd/2))
		f.cwnd = f.ssthresh + 3
		f.phase = FastRecovery
		sim.scheduleDataSend(f, ackSeq)
		return
	}

	if f.phase == FastRecovery && f.dupAckCount > dupAckThreshold {
		f.cwnd += 1.0
		if uint64(math.Floor(f.cwnd)) > f.nextSeq-f.base && f.nextSeq < uint64(f.totalPackets) {
			sim.scheduleDataSend(f, f.nextSeq)
			f.nextSeq++
		}
	}
}

// onTimeout implements spec.md §4.4 "On Timeout".
func (f *Flow) onTimeout(sim *Simulation) {
	invariant.Check(!f.done, "Timeout fired for already-terminated flow %s", f.id)

	f.ssthresh = math.Max(2, math.Floor(f.cwnd/2))
	f.cwnd = 1.0
	f.phase = SlowStart
	f.rtt.backoff()
	f.dupAckCount = 0

	sim.scheduleDataSend(f, f.base)
	f.armTimeout(sim, f.base)
}
