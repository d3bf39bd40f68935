package desnet

//
// Event kinds: one small struct per row of spec.md §4.5's handler table.
//

// eventBase provides the bookkeeping every [Event] needs (time, insertion
// sequence, cancellation flag) so concrete event kinds only carry the
// fields their own handler requires (spec.md §9: "each variant holds only
// its required fields").
type eventBase struct {
	at        VirtualTime
	seq       uint64
	cancelled bool
}

// At implements Event.
func (b *eventBase) At() VirtualTime { return b.at }

// Seq implements Event.
func (b *eventBase) Seq() uint64 { return b.seq }

// setSeq implements Event.
func (b *eventBase) setSeq(seq uint64) { b.seq = seq }

// Cancelled implements Event.
func (b *eventBase) Cancelled() bool { return b.cancelled }

// cancel is invoked by the [Handle] this event was scheduled with.
func (b *eventBase) cancel() { b.cancelled = true }

// startFlowEvent starts a [Flow]'s sender state machine (spec.md §4.4
// "Start").
type startFlowEvent struct {
	eventBase
	flow *Flow
}

// Execute implements Event.
func (e *startFlowEvent) Execute(sim *Simulation) {
	e.flow.start(sim)
}

// sendPacketEvent transmits one packet onto a link in a given direction
// (spec.md §4.5 "SendPacket").
type sendPacketEvent struct {
	eventBase
	pkt       Packet
	fromNode  NodeID
	link      *Link
	direction LinkDirection
	// flow is set for DATA packets so the handler can record send_time
	// at execute-time, not at schedule-time (spec.md §4.4: "RTT reflects
	// real queueing").
	flow *Flow
}

// Execute implements Event.
func (e *sendPacketEvent) Execute(sim *Simulation) {
	sim.handleSendPacket(e)
}

// receivePacketEvent delivers a packet that has finished propagating
// across a link (spec.md §4.5 "ReceivePacket").
type receivePacketEvent struct {
	eventBase
	pkt    Packet
	atNode NodeID
}

// Execute implements Event.
func (e *receivePacketEvent) Execute(sim *Simulation) {
	sim.handleReceivePacket(e)
}

// timeoutEvent fires a [Flow]'s retransmission timer (spec.md §4.4 "On
// Timeout").
type timeoutEvent struct {
	eventBase
	flow *Flow
}

// Execute implements Event.
func (e *timeoutEvent) Execute(sim *Simulation) {
	e.flow.onTimeout(sim)
}

// duplicateAckDeadlineEvent re-emits a receiver's last cumulative ACK,
// covering the case where the ACK itself was lost (spec.md §4.4 receiver
// actions).
type duplicateAckDeadlineEvent struct {
	eventBase
	host   *Host
	flowID FlowID
}

// Execute implements Event.
func (e *duplicateAckDeadlineEvent) Execute(sim *Simulation) {
	e.host.onDuplicateAckDeadline(sim, e.flowID)
}

// routerDiscoveryEvent drives a [Router]'s periodic distance-vector
// broadcast (spec.md §4.3).
type routerDiscoveryEvent struct {
	eventBase
	router *Router
}

// Execute implements Event.
func (e *routerDiscoveryEvent) Execute(sim *Simulation) {
	e.router.onDiscovery(sim)
}
