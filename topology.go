package desnet

//
// Topology configuration loading (spec.md §6): parses the JSON topology
// file, validates it, and wires the resulting nodes/links/flows into a
// [Simulation]. This is an external collaborator per spec.md §1, kept
// deliberately simple (stdlib encoding/json only, see DESIGN.md).
//

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultTRouting is the default interval between RouterDiscovery events
// (spec.md §4.3).
const DefaultTRouting VirtualTime = 5_000_000_000 // 5s, in nanoseconds

// DefaultMSSBits is the MSS used for a flow when its config omits one.
const DefaultMSSBits = 8192 // 1024 bytes

// TopologyConfig is the parsed shape of spec.md §6's JSON topology format.
type TopologyConfig struct {
	Hosts   []HostConfig     `json:"hosts"`
	Routers []RouterConfig   `json:"routers"`
	Links   []LinkFileConfig `json:"links"`
	Flows   []FlowFileConfig `json:"flows"`

	// TRoutingSeconds optionally overrides DefaultTRouting for every
	// router in this topology (spec.md §4.3: "configurable").
	TRoutingSeconds float64 `json:"t_routing_s,omitempty"`
}

// HostConfig is one entry of the `hosts` array.
type HostConfig struct {
	ID string `json:"id"`
}

// RouterConfig is one entry of the `routers` array.
type RouterConfig struct {
	ID string `json:"id"`
}

// LinkFileConfig is one entry of the `links` array.
type LinkFileConfig struct {
	ID          string    `json:"id"`
	Endpoints   [2]string `json:"endpoints"`
	CapacityBps float64   `json:"capacity_bps"`
	PropDelayS  float64   `json:"prop_delay_s"`
	BufferBytes int       `json:"buffer_bytes"`
}

// FlowFileConfig is one entry of the `flows` array.
type FlowFileConfig struct {
	ID           string  `json:"id"`
	Src          string  `json:"src"`
	Dst          string  `json:"dst"`
	PayloadBytes int     `json:"payload_bytes"`
	StartTimeS   float64 `json:"start_time_s"`
	MSSBits      int     `json:"mss_bits,omitempty"`
}

// ConfigError aggregates every configuration problem found while loading
// a topology, so the CLI can report all of them in one pass instead of
// failing on the first (DESIGN.md, modeled on the teacher's net.go
// ErrDial multi-error builder).
type ConfigError struct {
	Problems []string
}

// Error implements error.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid topology configuration: %s", strings.Join(e.Problems, "; "))
}

// add records a new problem, formatted like fmt.Sprintf.
func (e *ConfigError) add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// empty reports whether no problems were recorded.
func (e *ConfigError) empty() bool { return len(e.Problems) == 0 }

// ParseTopology unmarshals a JSON topology document.
func ParseTopology(data []byte) (*TopologyConfig, error) {
	var cfg TopologyConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("desnet: malformed topology document: %w", err)
	}
	return &cfg, nil
}

// Validate checks every reference, size, and time in cfg, per spec.md §6
// ("every endpoint reference resolves; each host has >=1 incident link;
// each flow's src and dst are hosts; times non-negative; sizes
// positive"). It returns a non-nil *ConfigError listing every problem
// found, or nil if cfg is well-formed.
func (cfg *TopologyConfig) Validate() *ConfigError {
	errs := &ConfigError{}

	ids := map[string]bool{}
	hostIDs := map[string]bool{}
	for _, h := range cfg.Hosts {
		if h.ID == "" {
			errs.add("host with empty id")
			continue
		}
		if ids[h.ID] {
			errs.add("duplicate node id %q", h.ID)
		}
		ids[h.ID] = true
		hostIDs[h.ID] = true
	}
	for _, r := range cfg.Routers {
		if r.ID == "" {
			errs.add("router with empty id")
			continue
		}
		if ids[r.ID] {
			errs.add("duplicate node id %q", r.ID)
		}
		ids[r.ID] = true
	}

	linkIDs := map[string]bool{}
	incidence := map[string]int{}
	for _, l := range cfg.Links {
		if l.ID == "" {
			errs.add("link with empty id")
		} else if linkIDs[l.ID] {
			errs.add("duplicate link id %q", l.ID)
		}
		linkIDs[l.ID] = true

		for _, end := range l.Endpoints {
			if !ids[end] {
				errs.add("link %q references unknown endpoint %q", l.ID, end)
				continue
			}
			incidence[end]++
		}
		if l.CapacityBps <= 0 {
			errs.add("link %q has non-positive capacity_bps", l.ID)
		}
		if l.PropDelayS < 0 {
			errs.add("link %q has negative prop_delay_s", l.ID)
		}
		if l.BufferBytes <= 0 {
			errs.add("link %q has non-positive buffer_bytes", l.ID)
		}
	}

	for hostID := range hostIDs {
		if incidence[hostID] < 1 {
			errs.add("host %q has no incident link", hostID)
		}
	}

	flowIDs := map[string]bool{}
	for _, f := range cfg.Flows {
		if f.ID == "" {
			errs.add("flow with empty id")
		} else if flowIDs[f.ID] {
			errs.add("duplicate flow id %q", f.ID)
		}
		flowIDs[f.ID] = true

		if !hostIDs[f.Src] {
			errs.add("flow %q source %q is not a host", f.ID, f.Src)
		}
		if !hostIDs[f.Dst] {
			errs.add("flow %q destination %q is not a host", f.ID, f.Dst)
		}
		if f.PayloadBytes <= 0 {
			errs.add("flow %q has non-positive payload_bytes", f.ID)
		}
		if f.StartTimeS < 0 {
			errs.add("flow %q has negative start_time_s", f.ID)
		}
		if f.MSSBits < 0 {
			errs.add("flow %q has negative mss_bits", f.ID)
		}
	}

	if errs.empty() {
		return nil
	}
	return errs
}

// Build validates cfg and, if valid, constructs a [Simulation] wiring
// every host, router, link, and flow (spec.md §6). logger and metrics
// must not be nil.
func (cfg *TopologyConfig) Build(logger Logger, metrics MetricsSink) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sim := NewSimulation(logger, metrics)

	tRouting := DefaultTRouting
	if cfg.TRoutingSeconds > 0 {
		tRouting = durationFromSeconds(cfg.TRoutingSeconds)
	}

	isHost := map[NodeID]bool{}
	for _, h := range cfg.Hosts {
		isHost[NodeID(h.ID)] = true
		sim.AddHost(NewHost(NodeID(h.ID), logger))
	}

	routers := map[NodeID]*Router{}
	for _, r := range cfg.Routers {
		router := NewRouter(NodeID(r.ID), tRouting, logger)
		routers[NodeID(r.ID)] = router
		sim.AddRouter(router)
	}

	for _, l := range cfg.Links {
		link := NewLink(LinkConfig{
			ID:          LinkID(l.ID),
			A:           NodeID(l.Endpoints[0]),
			B:           NodeID(l.Endpoints[1]),
			CapacityBps: l.CapacityBps,
			PropDelay:   durationFromSeconds(l.PropDelayS),
			BufferBytes: l.BufferBytes,
		})
		sim.AddLink(link)

		for _, end := range []NodeID{link.cfg.A, link.cfg.B} {
			other := otherEndpoint(link, end)
			if router, ok := routers[end]; ok {
				router.AttachLink(link, isHost[other])
			} else if host, ok := sim.hosts[end]; ok {
				host.attach(link)
			}
		}
	}

	for _, f := range cfg.Flows {
		mss := f.MSSBits
		if mss <= 0 {
			mss = DefaultMSSBits
		}
		flow := NewFlow(FlowConfig{
			ID:           FlowID(f.ID),
			Src:          NodeID(f.Src),
			Dst:          NodeID(f.Dst),
			PayloadBytes: f.PayloadBytes,
			MSSBits:      mss,
			StartTime:    durationFromSeconds(f.StartTimeS),
		}, logger)
		sim.AddFlow(flow)
	}

	for _, r := range cfg.Routers {
		sim.ArmRouterDiscovery(routers[NodeID(r.ID)])
	}

	return sim, nil
}
