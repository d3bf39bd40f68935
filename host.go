package desnet

//
// Host: source and sink of flows (spec.md §3, §4.4 receiver actions)
//

import "github.com/ooni-desnet/desnet/internal/invariant"

// dupAckInterval is the default delay before a receiver re-emits its last
// cumulative ACK to cover a lost ACK (spec.md §4.4 receiver actions).
const dupAckInterval VirtualTime = 200_000_000 // 200ms, in nanoseconds of VirtualTime

// receiveState is a host's per-terminating-flow receive state (spec.md
// §3: "next_expected_seq, out_of_order_set, scheduled DuplicateAckDeadline").
type receiveState struct {
	nextExpectedSeq uint64
	outOfOrder      map[uint64]struct{}
	dupAckDeadline  *Handle
}

// Host is a source and sink of [Flow]s (spec.md §2, §3).
type Host struct {
	baseNode

	receive map[FlowID]*receiveState

	logger Logger
}

// NewHost constructs a [Host].
func NewHost(id NodeID, logger Logger) *Host {
	return &Host{
		baseNode: baseNode{id: id},
		receive:  map[FlowID]*receiveState{},
		logger:   logger,
	}
}

// outgoingLink returns the host's (typically single) incident link and the
// direction traffic takes leaving the host on it.
func (h *Host) outgoingLink() (*Link, LinkDirection, bool) {
	if len(h.links) == 0 {
		return nil, 0, false
	}
	l := h.links[0]
	return l, h.outgoingDirection(l), true
}

// receiveStateFor returns (creating if necessary) the receive state for
// flowID.
func (h *Host) receiveStateFor(flowID FlowID) *receiveState {
	rs, ok := h.receive[flowID]
	if !ok {
		rs = &receiveState{outOfOrder: map[uint64]struct{}{}}
		h.receive[flowID] = rs
	}
	return rs
}

// onData implements the receiver actions of spec.md §4.4 for a DATA packet
// arriving at this host.
func (h *Host) onData(sim *Simulation, flowID FlowID, seq uint64) {
	rs := h.receiveStateFor(flowID)

	switch {
	case seq == rs.nextExpectedSeq:
		rs.nextExpectedSeq++
		for {
			if _, present := rs.outOfOrder[rs.nextExpectedSeq]; !present {
				break
			}
			delete(rs.outOfOrder, rs.nextExpectedSeq)
			rs.nextExpectedSeq++
		}
		h.emitAck(sim, flowID, rs.nextExpectedSeq)

		// Once every packet has been delivered there is nothing left to
		// cover for a lost ACK: cancel the deadline instead of re-arming it,
		// or it would fire forever and keep re-emitting the terminal ACK
		// (spec.md §8 property 9).
		flow := sim.mustFlow(flowID)
		if rs.nextExpectedSeq == uint64(flow.totalPackets) {
			rs.dupAckDeadline.Cancel()
			rs.dupAckDeadline = nil
		} else {
			h.rearmDupAckDeadline(sim, flowID, rs)
		}

	case seq > rs.nextExpectedSeq:
		rs.outOfOrder[seq] = struct{}{}
		h.emitAck(sim, flowID, rs.nextExpectedSeq)

	default: // seq < rs.nextExpectedSeq: our previous ACK was lost
		h.emitAck(sim, flowID, rs.nextExpectedSeq)
	}
}

// rearmDupAckDeadline cancels any pending DuplicateAckDeadline for flowID
// and schedules a fresh one, per spec.md §4.4: "Cancel any pending
// DuplicateAckDeadline for this flow and schedule a new one... whose
// firing would re-emit the same ACK (covers lost ACKs)".
func (h *Host) rearmDupAckDeadline(sim *Simulation, flowID FlowID, rs *receiveState) {
	rs.dupAckDeadline.Cancel()
	ev := &duplicateAckDeadlineEvent{
		eventBase: eventBase{at: sim.Now() + dupAckInterval},
		host:      h,
		flowID:    flowID,
	}
	rs.dupAckDeadline = sim.queue.Schedule(ev)
}

// onDuplicateAckDeadline re-emits the current cumulative ACK and re-arms
// itself (spec.md §4.5).
func (h *Host) onDuplicateAckDeadline(sim *Simulation, flowID FlowID) {
	rs, ok := h.receive[flowID]
	invariant.Check(ok, "duplicate-ack deadline fired for host %s with no receive state for flow %s", h.id, flowID)
	h.emitAck(sim, flowID, rs.nextExpectedSeq)
	h.rearmDupAckDeadline(sim, flowID, rs)
}

// emitAck sends an ACK packet for flowID carrying ackSeq back toward the
// flow's source.
func (h *Host) emitAck(sim *Simulation, flowID FlowID, ackSeq uint64) {
	flow := sim.mustFlow(flowID)
	link, direction, ok := h.outgoingLink()
	invariant.Check(ok, "host %s has no incident link to emit an ACK on", h.id)
	id := flowID
	pkt := Packet{
		Kind:     PacketAck,
		SizeBits: AckPacketSizeBits,
		Seq:      ackSeq,
		Src:      h.id,
		Dst:      flow.srcHost,
		FlowID:   &id,
	}
	sim.sendOnLink(link, direction, pkt, h.id, nil)
}
