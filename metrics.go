package desnet

//
// Metrics: time-series samples for offline plotting (spec.md §6)
//

// Series identifies the kind of a [MetricSample].
type Series string

const (
	// SeriesLinkRate is the instantaneous transmission rate achieved on a
	// link direction, in bits per second.
	SeriesLinkRate Series = "link_rate"

	// SeriesBufferOccupancy is bytes_in_buffer / buffer_bytes for a link
	// direction.
	SeriesBufferOccupancy Series = "buffer_occupancy"

	// SeriesPacketLoss counts a single dropped packet or routing miss.
	SeriesPacketLoss Series = "packet_loss"

	// SeriesFlowRate is a flow's cumulative delivered bytes.
	SeriesFlowRate Series = "flow_rate"

	// SeriesFlowWindow is a flow's congestion window, in packets.
	SeriesFlowWindow Series = "flow_window"

	// SeriesFlowRTT is a flow's smoothed RTT estimate, in seconds.
	SeriesFlowRTT Series = "flow_rtt"
)

// MetricSample is one record of the metrics log (spec.md §6: "a sequence
// of records {t, series, key, value}").
type MetricSample struct {
	T      VirtualTime
	Series Series
	Key    string
	Value  float64
}

// MetricsSink receives [MetricSample]s as the simulation runs. Write-only:
// the core never reads its own metrics back (spec.md §1: "the metrics log
// writer" is an external collaborator).
type MetricsSink interface {
	Record(sample MetricSample)
}
