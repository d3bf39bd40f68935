// Package desnet implements a discrete-event simulator of a small packet
// network: hosts exchange data over links joined by routers, a Reno-style
// congestion-control state machine drives each flow's sending rate, and a
// distance-vector protocol keeps routers' forwarding tables converged.
//
// The simulation never touches a real socket, clock, or byte on the wire:
// every packet is a small in-memory value, and every delay is virtual time
// advanced by the engine's own event queue.
package desnet
