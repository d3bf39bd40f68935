package desnet

//
// Simulation: the driver that owns the event queue, topology, and flows,
// and exposes RunUntilEmpty (spec.md §2 item 9, §4.1, §5).
//

import "github.com/ooni-desnet/desnet/internal/invariant"

// funcEvent is internal bookkeeping scheduled by the driver itself (buffer
// credit on departure) — not one of the six user-visible event kinds of
// spec.md §2 item 8, kept separate so that list stays exactly six.
type funcEvent struct {
	eventBase
	fn func(sim *Simulation)
}

// Execute implements Event.
func (e *funcEvent) Execute(sim *Simulation) { e.fn(sim) }

// Simulation owns every topology entity and flow and drives the event
// loop (spec.md §5: "the simulation object owns all mutable state").
type Simulation struct {
	queue *EventQueue
	now   VirtualTime

	hosts   map[NodeID]*Host
	routers map[NodeID]*Router
	links   map[LinkID]*Link
	flows   map[FlowID]*Flow

	logger  Logger
	metrics MetricsSink

	// Horizon stops RunUntilEmpty once virtual time would exceed it. Zero
	// means unbounded (spec.md §4.1: "optionally, when virtual time
	// passes a configured horizon").
	Horizon VirtualTime

	// Trace, if non-nil, is invoked for every dispatched (non-cancelled)
	// event — the CLI's -d/-dd diagnostics hook (spec.md §6).
	Trace func(sim *Simulation, ev Event)

	lossCount   int
	routingMiss int
}

// NewSimulation constructs an empty [Simulation]. logger and metrics must
// not be nil; use internal/nullsink for tests that don't care.
func NewSimulation(logger Logger, metrics MetricsSink) *Simulation {
	return &Simulation{
		queue:   NewEventQueue(),
		hosts:   map[NodeID]*Host{},
		routers: map[NodeID]*Router{},
		links:   map[LinkID]*Link{},
		flows:   map[FlowID]*Flow{},
		logger:  logger,
		metrics: metrics,
	}
}

// Now returns the simulation's current virtual time.
func (s *Simulation) Now() VirtualTime { return s.now }

// LossCount returns the number of packets dropped by tail-drop so far.
func (s *Simulation) LossCount() int { return s.lossCount }

// RoutingMissCount returns the number of packets dropped for lack of a
// route so far.
func (s *Simulation) RoutingMissCount() int { return s.routingMiss }

// AddHost registers h with the simulation.
func (s *Simulation) AddHost(h *Host) { s.hosts[h.id] = h }

// AddRouter registers r with the simulation.
func (s *Simulation) AddRouter(r *Router) { s.routers[r.id] = r }

// AddLink registers l with the simulation.
func (s *Simulation) AddLink(l *Link) { s.links[l.ID()] = l }

// AddFlow registers f with the simulation and schedules its StartFlow
// event at f.startTime.
func (s *Simulation) AddFlow(f *Flow) {
	s.flows[f.id] = f
	s.queue.Schedule(&startFlowEvent{eventBase: eventBase{at: f.startTime}, flow: f})
}

// Flow returns the flow registered under id, for callers (tests, CLI
// summaries) that need to inspect a flow's final state after a run.
func (s *Simulation) Flow(id FlowID) (*Flow, bool) {
	f, ok := s.flows[id]
	return f, ok
}

// EventsPending returns the number of events still in the queue, including
// cancelled ones awaiting extraction (spec.md §8 property 9: "no spurious
// event remains scheduled past flow completion").
func (s *Simulation) EventsPending() int {
	return s.queue.Len()
}

// ArmRouterDiscovery schedules r's first RouterDiscovery event at
// r.tRouting (spec.md §4.3).
func (s *Simulation) ArmRouterDiscovery(r *Router) {
	r.scheduleDiscovery(s, 0)
}

// mustFlow looks up a flow by id, panicking per spec.md §7 ("an
// inconsistency, e.g. ACK for an unknown flow, is an assertion failure")
// if it is not found.
func (s *Simulation) mustFlow(id FlowID) *Flow {
	f, ok := s.flows[id]
	invariant.Check(ok, "%v: %s", ErrUnknownFlow, id)
	return f
}

// scheduleDataSend schedules a SendPacket event for seq on f's sender
// host's own outgoing link, tagging the event with f so the handler
// records the send time used for RTT sampling (spec.md §4.4).
func (s *Simulation) scheduleDataSend(f *Flow, seq uint64) {
	host, ok := s.hosts[f.srcHost]
	invariant.Check(ok, "%v: flow %s source %s", ErrUnknownNode, f.id, f.srcHost)
	link, direction, ok := host.outgoingLink()
	invariant.Check(ok, "host %s has no incident link to send on", f.srcHost)

	id := f.id
	pkt := Packet{
		Kind:     PacketData,
		SizeBits: f.mssBits,
		Seq:      seq,
		Src:      f.srcHost,
		Dst:      f.dstHost,
		FlowID:   &id,
	}
	s.queue.Schedule(&sendPacketEvent{
		eventBase: eventBase{at: s.now},
		pkt:       pkt,
		fromNode:  f.srcHost,
		link:      link,
		direction: direction,
		flow:      f,
	})
}

// sendOnLink schedules a SendPacket event for pkt on link/direction,
// originating from fromNode. flow is non-nil only when the caller wants
// the handler to record a send time for RTT purposes (spec.md §4.4); ACK
// and ROUTING packets, and router-forwarded DATA packets, pass nil.
func (s *Simulation) sendOnLink(link *Link, direction LinkDirection, pkt Packet, fromNode NodeID, flow *Flow) {
	s.queue.Schedule(&sendPacketEvent{
		eventBase: eventBase{at: s.now},
		pkt:       pkt,
		fromNode:  fromNode,
		link:      link,
		direction: direction,
		flow:      flow,
	})
}

// handleSendPacket implements the SendPacket row of spec.md §4.5.
func (s *Simulation) handleSendPacket(ev *sendPacketEvent) {
	if ev.flow != nil && ev.pkt.Kind == PacketData {
		ev.flow.recordSend(ev.pkt.Seq, s.now)
	}

	outcome, departure, arrival := ev.link.TryEnqueue(ev.direction, ev.pkt, s.now)
	if outcome == Dropped {
		s.lossCount++
		s.metrics.Record(MetricSample{T: s.now, Series: SeriesPacketLoss, Key: string(ev.link.ID()), Value: 1})
		return
	}

	pkt, link, direction := ev.pkt, ev.link, ev.direction
	s.queue.Schedule(&funcEvent{
		eventBase: eventBase{at: departure},
		fn: func(sim *Simulation) {
			link.OnDeparture(direction, pkt)
			sim.metrics.Record(MetricSample{T: sim.now, Series: SeriesBufferOccupancy, Key: string(link.ID()), Value: link.BufferOccupancy(direction)})
		},
	})

	txSeconds := (departure - s.now).Seconds()
	if txSeconds > 0 {
		rate := float64(pkt.SizeBits) / txSeconds
		s.metrics.Record(MetricSample{T: s.now, Series: SeriesLinkRate, Key: string(link.ID()), Value: rate})
	}

	destNode := otherEndpoint(link, ev.fromNode)
	s.queue.Schedule(&receivePacketEvent{
		eventBase: eventBase{at: arrival},
		pkt:       pkt,
		atNode:    destNode,
	})
}

// handleReceivePacket implements the ReceivePacket row of spec.md §4.5.
func (s *Simulation) handleReceivePacket(ev *receivePacketEvent) {
	if r, ok := s.routers[ev.atNode]; ok {
		s.routeAtRouter(r, ev.pkt)
		return
	}
	if h, ok := s.hosts[ev.atNode]; ok {
		s.deliverAtHost(h, ev.pkt)
		return
	}
	invariant.Check(false, "%v: %s", ErrUnknownNode, ev.atNode)
}

// routeAtRouter handles a packet arriving at a router: ROUTING packets
// update the router's state; everything else is forwarded per the routing
// table, or dropped as a routing miss (spec.md §4.3, §4.5).
func (s *Simulation) routeAtRouter(r *Router, pkt Packet) {
	if pkt.Kind == PacketRouting {
		r.onRoutingPacket(pkt)
		return
	}

	link, direction, ok := r.RouteFor(pkt.Dst)
	if !ok {
		s.routingMiss++
		s.metrics.Record(MetricSample{T: s.now, Series: SeriesPacketLoss, Key: string(r.id), Value: 1})
		return
	}
	s.sendOnLink(link, direction, pkt, r.id, nil)
}

// deliverAtHost handles a packet arriving at a host: DATA is handed to the
// receiver-side flow logic, ACK to the sender-side flow logic, and
// ROUTING packets are ignored since hosts don't route (spec.md §4.5).
func (s *Simulation) deliverAtHost(h *Host, pkt Packet) {
	switch pkt.Kind {
	case PacketData:
		invariant.Check(pkt.FlowID != nil, "DATA packet at host %s with no flow id", h.id)
		h.onData(s, *pkt.FlowID, pkt.Seq)
		flow := s.mustFlow(*pkt.FlowID)
		s.metrics.Record(MetricSample{T: s.now, Series: SeriesFlowRate, Key: string(flow.id), Value: float64(flow.base * uint64(flow.mssBits) / 8)})
	case PacketAck:
		invariant.Check(pkt.FlowID != nil, "ACK packet at host %s with no flow id", h.id)
		flow := s.mustFlow(*pkt.FlowID)
		flow.onAck(s, pkt.Seq)
		s.metrics.Record(MetricSample{T: s.now, Series: SeriesFlowWindow, Key: string(flow.id), Value: flow.cwnd})
		if flow.rtt.haveSample {
			s.metrics.Record(MetricSample{T: s.now, Series: SeriesFlowRTT, Key: string(flow.id), Value: flow.rtt.srtt})
		}
	case PacketRouting:
		// hosts do not participate in distance-vector routing
	}
}

// RunUntilEmpty repeatedly extracts the minimum-time event, advances
// virtual time, and dispatches it, until the queue is empty or Horizon is
// exceeded (spec.md §4.1). It asserts that extraction times never
// decrease (testable property 5 of spec.md §8).
func (s *Simulation) RunUntilEmpty() {
	for {
		ev, ok := s.queue.PopMin()
		if !ok {
			return
		}
		invariant.Check(ev.At() >= s.now, "event queue extraction time went backwards: %v < %v", ev.At(), s.now)
		s.now = ev.At()

		if s.Horizon > 0 && s.now > s.Horizon {
			return
		}
		if ev.Cancelled() {
			continue
		}
		if s.Trace != nil {
			s.Trace(s, ev)
		}
		ev.Execute(s)
	}
}
