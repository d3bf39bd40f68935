package desnet

//
// JSON metrics log writer (spec.md §6) and end-of-run summary statistics
//

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"
)

// jsonMetricSample is the on-disk shape of a [MetricSample], matching
// spec.md §6's `{t, series, key, value}` record exactly.
type jsonMetricSample struct {
	T      float64 `json:"t"`
	Series Series  `json:"series"`
	Key    string  `json:"key"`
	Value  float64 `json:"value"`
}

// JSONMetricsSink writes one JSON object per line to an underlying
// writer, and keeps every sample in memory for the end-of-run summary
// (§1.5 of SPEC_FULL.md). The zero value is invalid; use
// [NewJSONMetricsSink].
type JSONMetricsSink struct {
	w       *bufio.Writer
	closer  io.Closer
	enc     *json.Encoder
	samples []MetricSample
}

// NewJSONMetricsSink wraps w (kept open by the caller) as a
// [JSONMetricsSink].
func NewJSONMetricsSink(w io.Writer) *JSONMetricsSink {
	bw := bufio.NewWriter(w)
	return &JSONMetricsSink{
		w:   bw,
		enc: json.NewEncoder(bw),
	}
}

// MetricsLogPath derives the metrics log path from a topology config file
// name, per spec.md §6: "plot/<stem>_log.json".
func MetricsLogPath(configPath string) string {
	base := filepath.Base(configPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join("plot", stem+"_log.json")
}

// CreateJSONMetricsSink creates (and if needed makes the parent directory
// of) the metrics log file derived from configPath, and returns a sink
// writing to it; the caller must call the sink's Close when done.
func CreateJSONMetricsSink(configPath string) (*JSONMetricsSink, error) {
	path := MetricsLogPath(configPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("desnet: creating metrics log directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("desnet: creating metrics log %s: %w", path, err)
	}
	sink := NewJSONMetricsSink(f)
	sink.closer = f
	return sink, nil
}

// Record implements MetricsSink.
func (s *JSONMetricsSink) Record(sample MetricSample) {
	s.samples = append(s.samples, sample)
	_ = s.enc.Encode(jsonMetricSample{
		T:      sample.T.Seconds(),
		Series: sample.Series,
		Key:    sample.Key,
		Value:  sample.Value,
	})
}

// Close flushes buffered output and closes the underlying file, if any.
// Per spec.md §7 ("Log I/O failure... partial logs are acceptable and
// closed cleanly"), Close always attempts to close the file even if the
// flush failed.
func (s *JSONMetricsSink) Close() error {
	flushErr := s.w.Flush()
	var closeErr error
	if s.closer != nil {
		closeErr = s.closer.Close()
	}
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

var _ MetricsSink = &JSONMetricsSink{}

// Summary is the end-of-run statistics report computed from a
// [JSONMetricsSink]'s recorded samples, using montanaflynn/stats exactly
// as the teacher's integration_test.go does for median RTT (DESIGN.md).
type Summary struct {
	FlowRTTMedianSeconds  map[string]float64
	FlowRTTP95Seconds     map[string]float64
	LinkBufferOccMedian   map[string]float64
	TotalPacketsDelivered float64
	TotalPacketsLost      float64
}

// Summarize computes a [Summary] from the samples recorded so far.
func (s *JSONMetricsSink) Summarize() (*Summary, error) {
	rttByFlow := map[string][]float64{}
	occByLink := map[string][]float64{}
	summary := &Summary{
		FlowRTTMedianSeconds: map[string]float64{},
		FlowRTTP95Seconds:    map[string]float64{},
		LinkBufferOccMedian:  map[string]float64{},
	}

	for _, sample := range s.samples {
		switch sample.Series {
		case SeriesFlowRTT:
			rttByFlow[sample.Key] = append(rttByFlow[sample.Key], sample.Value)
		case SeriesBufferOccupancy:
			occByLink[sample.Key] = append(occByLink[sample.Key], sample.Value)
		case SeriesPacketLoss:
			summary.TotalPacketsLost += sample.Value
		case SeriesFlowRate:
			if sample.Value > summary.TotalPacketsDelivered {
				summary.TotalPacketsDelivered = sample.Value
			}
		}
	}

	for key, values := range rttByFlow {
		median, err := stats.Median(values)
		if err != nil {
			return nil, fmt.Errorf("desnet: computing median RTT for %s: %w", key, err)
		}
		p95, err := stats.Percentile(values, 95)
		if err != nil {
			return nil, fmt.Errorf("desnet: computing p95 RTT for %s: %w", key, err)
		}
		summary.FlowRTTMedianSeconds[key] = median
		summary.FlowRTTP95Seconds[key] = p95
	}

	for key, values := range occByLink {
		median, err := stats.Median(values)
		if err != nil {
			return nil, fmt.Errorf("desnet: computing median buffer occupancy for %s: %w", key, err)
		}
		summary.LinkBufferOccMedian[key] = median
	}

	return summary, nil
}

// SortedKeys returns the keys of m sorted lexicographically, used when
// printing a [Summary] so repeated runs print in the same order (spec.md
// §6 determinism contract).
func SortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
