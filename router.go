package desnet

//
// Router: distance-vector routing (spec.md §3, §4.3)
//

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// routeEntry is one row of a [Router]'s routing table.
type routeEntry struct {
	link *Link
	cost RouteCost
}

// Router maintains a routing table from destination host identifier to
// outgoing link, recomputed periodically from distance-vector exchanges
// with its neighbors (spec.md §3, §4.3).
type Router struct {
	baseNode

	tRouting VirtualTime

	// routingTable maps destination host id to the best known route.
	routingTable map[NodeID]routeEntry

	// neighborVectors holds the last advertised vector of each adjacent
	// node. Directly attached hosts are seeded with a permanent {self: 0}
	// vector, since hosts never emit ROUTING packets of their own.
	neighborVectors map[NodeID]map[NodeID]RouteCost

	discovery *Handle

	logger Logger
}

// NewRouter constructs a [Router]. tRouting is the interval between
// RouterDiscovery events (spec.md §4.3, default 5s).
func NewRouter(id NodeID, tRouting VirtualTime, logger Logger) *Router {
	return &Router{
		baseNode:        baseNode{id: id},
		tRouting:        tRouting,
		routingTable:    map[NodeID]routeEntry{},
		neighborVectors: map[NodeID]map[NodeID]RouteCost{},
		logger:          logger,
	}
}

// AttachLink records l as one of the router's incident links. When the
// link's other endpoint is a host, that host is immediately seeded into
// neighborVectors as directly reachable at zero extra cost, since hosts
// don't participate in distance-vector exchange (spec.md §4.3 concerns
// routers only).
func (r *Router) AttachLink(l *Link, otherEndpointIsHost bool) {
	r.attach(l)
	if !otherEndpointIsHost {
		return
	}
	a, b := l.Endpoints()
	host := a
	if host == r.id {
		host = b
	}
	r.neighborVectors[host] = map[NodeID]RouteCost{host: 0}
}

// RouteFor returns the outgoing link for destination dst, and the
// direction to use on it. ok is false when there is no known route (spec.md
// §4.3: "absent entry causes packets destined to it from this router to be
// dropped and counted as a routing miss").
func (r *Router) RouteFor(dst NodeID) (link *Link, direction LinkDirection, ok bool) {
	entry, found := r.routingTable[dst]
	if !found {
		return nil, 0, false
	}
	return entry.link, r.outgoingDirection(entry.link), true
}

// scheduleDiscovery arms (or re-arms) this router's next RouterDiscovery
// event at now+tRouting.
func (r *Router) scheduleDiscovery(sim *Simulation, now VirtualTime) {
	ev := &routerDiscoveryEvent{eventBase: eventBase{at: now + r.tRouting}, router: r}
	r.discovery = sim.queue.Schedule(ev)
}

// onDiscovery implements the RouterDiscovery handler of spec.md §4.3:
// broadcast the current table to every neighbor, then reschedule.
func (r *Router) onDiscovery(sim *Simulation) {
	payload := make(map[NodeID]RouteCost, len(r.routingTable))
	for dst, entry := range r.routingTable {
		payload[dst] = entry.cost
	}

	for _, l := range r.links {
		direction := r.outgoingDirection(l)
		pkt := Packet{
			Kind:           PacketRouting,
			SizeBits:       RoutingPacketSizeBits,
			Src:            r.id,
			Dst:            otherEndpoint(l, r.id),
			RoutingPayload: payload,
		}
		sim.sendOnLink(l, direction, pkt, r.id, nil)
	}

	r.scheduleDiscovery(sim, sim.Now())
}

// onRoutingPacket implements the receive side of spec.md §4.3: store the
// neighbor's vector and recompute the local table.
func (r *Router) onRoutingPacket(pkt Packet) {
	r.neighborVectors[pkt.Src] = pkt.RoutingPayload
	r.recompute()
}

// recompute rebuilds routingTable as, for every known destination, the
// minimum over neighbors M of cost(local->M) + M.vector[d]; ties are
// broken by link identifier lexicographic order for determinism (spec.md
// §4.3).
func (r *Router) recompute() {
	destSet := map[NodeID]struct{}{}
	for _, vector := range r.neighborVectors {
		for dst := range vector {
			destSet[dst] = struct{}{}
		}
	}
	dests := maps.Keys(destSet)
	slices.Sort(dests)

	neighbors := maps.Keys(r.neighborVectors)
	slices.Sort(neighbors)

	table := map[NodeID]routeEntry{}
	for _, dst := range dests {
		if dst == r.id {
			continue
		}
		var best routeEntry
		haveBest := false
		for _, neighbor := range neighbors {
			vector := r.neighborVectors[neighbor]
			cost, known := vector[dst]
			if !known {
				continue
			}
			link, _, found := r.linkTo(neighbor)
			if !found {
				continue
			}
			candidate := r.edgeCost(link) + cost
			if !haveBest || candidate < best.cost ||
				(candidate == best.cost && link.ID() < best.link.ID()) {
				best = routeEntry{link: link, cost: candidate}
				haveBest = true
			}
		}
		if haveBest {
			table[dst] = best
		}
	}
	r.routingTable = table
}

// edgeCost returns the instantaneous cost of leaving this router on l.
func (r *Router) edgeCost(l *Link) RouteCost {
	return l.InstantaneousCost(r.id)
}

// otherEndpoint returns the endpoint of l that is not id.
func otherEndpoint(l *Link, id NodeID) NodeID {
	a, b := l.Endpoints()
	if a == id {
		return b
	}
	return a
}
