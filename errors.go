package desnet

//
// Sentinel errors (spec.md §7)
//

import "errors"

// ErrNotEndpoint indicates a node that is not one of a link's two
// endpoints was used as a source for that link.
var ErrNotEndpoint = errors.New("desnet: node is not a link endpoint")

// ErrUnknownFlow indicates a packet referenced a flow id the simulation
// has no record of. Per spec.md §7 this is a simulation-invariant
// violation, not a recoverable runtime error: the caller should treat it
// as a bug and abort, see internal/invariant.
var ErrUnknownFlow = errors.New("desnet: unknown flow")

// ErrUnknownNode indicates a packet referenced a node id the simulation
// has no record of.
var ErrUnknownNode = errors.New("desnet: unknown node")

// ErrNoRoute indicates a router had no routing-table entry for a
// packet's destination. This is a modeled loss (spec.md §4.3, §7), not an
// error condition: callers count it as a routing miss and drop silently.
var ErrNoRoute = errors.New("desnet: no route to destination")
