package desnet

//
// Node: abstract endpoint shared by Host and Router (spec.md §3: "Router
// and Host... Each node owns its adjacency").
//

// Node is the abstract endpoint of a [Link]. [Host] and [Router] are its
// only specializations (spec.md §2).
type Node interface {
	// ID returns the node's identifier.
	ID() NodeID

	// Links returns the node's incident links, in the order they were
	// attached.
	Links() []*Link
}

// baseNode provides the adjacency bookkeeping shared by [Host] and
// [Router] (spec.md §9: node polymorphism is a tagged variant, not an
// inheritance hierarchy — baseNode is embedded, never referenced through
// a shared base pointer).
type baseNode struct {
	id    NodeID
	links []*Link
}

// ID implements Node.
func (n *baseNode) ID() NodeID { return n.id }

// Links implements Node.
func (n *baseNode) Links() []*Link { return n.links }

// attach records l as one of this node's incident links.
func (n *baseNode) attach(l *Link) { n.links = append(n.links, l) }

// linkTo returns the incident link whose other endpoint is peer, and the
// direction traffic takes leaving this node onto that link.
func (n *baseNode) linkTo(peer NodeID) (*Link, LinkDirection, bool) {
	for _, l := range n.links {
		a, b := l.Endpoints()
		switch {
		case a == n.id && b == peer:
			return l, LinkDirectionAToB, true
		case b == n.id && a == peer:
			return l, LinkDirectionBToA, true
		}
	}
	return nil, 0, false
}

// outgoingDirection returns the direction traffic takes when leaving this
// node on link l.
func (n *baseNode) outgoingDirection(l *Link) LinkDirection {
	a, _ := l.Endpoints()
	if a == n.id {
		return LinkDirectionAToB
	}
	return LinkDirectionBToA
}
