package desnet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const validTopologyJSON = `{
	"hosts": [{"id": "h1"}, {"id": "h2"}],
	"routers": [{"id": "r1"}],
	"links": [
		{"id": "l1", "endpoints": ["h1", "r1"], "capacity_bps": 1000000, "prop_delay_s": 0.01, "buffer_bytes": 65536},
		{"id": "l2", "endpoints": ["r1", "h2"], "capacity_bps": 1000000, "prop_delay_s": 0.01, "buffer_bytes": 65536}
	],
	"flows": [
		{"id": "f1", "src": "h1", "dst": "h2", "payload_bytes": 4096, "start_time_s": 0}
	]
}`

func TestParseTopologyValid(t *testing.T) {
	cfg, err := ParseTopology([]byte(validTopologyJSON))
	require.NoError(t, err)
	require.Len(t, cfg.Hosts, 2)
	require.Len(t, cfg.Routers, 1)
	require.Len(t, cfg.Links, 2)
	require.Len(t, cfg.Flows, 1)
}

func TestParseTopologyMalformed(t *testing.T) {
	_, err := ParseTopology([]byte(`{not json`))
	require.Error(t, err)
}

func TestValidateAcceptsWellFormedTopology(t *testing.T) {
	cfg, err := ParseTopology([]byte(validTopologyJSON))
	require.NoError(t, err)
	require.Nil(t, cfg.Validate())
}

func TestValidateCatchesUnknownEndpoint(t *testing.T) {
	cfg, err := ParseTopology([]byte(`{
		"hosts": [{"id": "h1"}],
		"links": [{"id": "l1", "endpoints": ["h1", "ghost"], "capacity_bps": 1, "buffer_bytes": 1}]
	}`))
	require.NoError(t, err)

	errs := cfg.Validate()
	require.NotNil(t, errs)
	require.Contains(t, errs.Error(), "ghost")
}

func TestValidateCatchesHostWithNoIncidentLink(t *testing.T) {
	cfg, err := ParseTopology([]byte(`{"hosts": [{"id": "h1"}, {"id": "h2"}]}`))
	require.NoError(t, err)

	errs := cfg.Validate()
	require.NotNil(t, errs)
	require.Contains(t, errs.Error(), "h1")
}

func TestValidateCatchesDuplicateIDs(t *testing.T) {
	cfg, err := ParseTopology([]byte(`{
		"hosts": [{"id": "h1"}, {"id": "h1"}],
		"links": [{"id": "l1", "endpoints": ["h1", "h1"], "capacity_bps": 1, "buffer_bytes": 1}]
	}`))
	require.NoError(t, err)

	errs := cfg.Validate()
	require.NotNil(t, errs)
	require.Contains(t, errs.Error(), "duplicate node id")
}

func TestValidateCatchesNonPositiveSizes(t *testing.T) {
	cfg, err := ParseTopology([]byte(`{
		"hosts": [{"id": "h1"}, {"id": "h2"}],
		"links": [{"id": "l1", "endpoints": ["h1", "h2"], "capacity_bps": 0, "buffer_bytes": 0}],
		"flows": [{"id": "f1", "src": "h1", "dst": "h2", "payload_bytes": 0, "start_time_s": -1}]
	}`))
	require.NoError(t, err)

	errs := cfg.Validate()
	require.NotNil(t, errs)
	require.Contains(t, errs.Error(), "non-positive capacity_bps")
	require.Contains(t, errs.Error(), "non-positive buffer_bytes")
	require.Contains(t, errs.Error(), "non-positive payload_bytes")
	require.Contains(t, errs.Error(), "negative start_time_s")
}

func TestBuildConstructsWiredSimulation(t *testing.T) {
	cfg, err := ParseTopology([]byte(validTopologyJSON))
	require.NoError(t, err)

	sim, err := cfg.Build(noopLogger{}, noopMetrics{})
	require.NoError(t, err)
	require.NotNil(t, sim)

	require.Len(t, sim.hosts, 2)
	require.Len(t, sim.routers, 1)
	require.Len(t, sim.links, 2)
	require.Len(t, sim.flows, 1)

	router := sim.routers["r1"]
	require.Contains(t, router.neighborVectors, NodeID("h1"))
	require.Contains(t, router.neighborVectors, NodeID("h2"))
}

func TestBuildRejectsInvalidTopology(t *testing.T) {
	cfg, err := ParseTopology([]byte(`{"hosts": [{"id": "h1"}]}`))
	require.NoError(t, err)

	_, err = cfg.Build(noopLogger{}, noopMetrics{})
	require.Error(t, err)
}

func TestBuildDefaultsMissingMSS(t *testing.T) {
	cfg, err := ParseTopology([]byte(validTopologyJSON))
	require.NoError(t, err)

	sim, err := cfg.Build(noopLogger{}, noopMetrics{})
	require.NoError(t, err)

	flow := sim.flows["f1"]
	require.Equal(t, DefaultMSSBits, flow.mssBits)
}
