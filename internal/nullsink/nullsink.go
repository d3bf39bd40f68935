// Package nullsink provides no-op [desnet.Logger] and [desnet.MetricsSink]
// implementations for tests that don't care about diagnostics or metrics.
package nullsink

import "github.com/ooni-desnet/desnet"

// NullLogger is a [desnet.Logger] that does not emit logs.
type NullLogger struct{}

// Debug implements desnet.Logger.
func (nl *NullLogger) Debug(message string) {
	// nothing
}

// Debugf implements desnet.Logger.
func (nl *NullLogger) Debugf(format string, v ...any) {
	// nothing
}

// Info implements desnet.Logger.
func (nl *NullLogger) Info(message string) {
	// nothing
}

// Infof implements desnet.Logger.
func (nl *NullLogger) Infof(format string, v ...any) {
	// nothing
}

// Warn implements desnet.Logger.
func (nl *NullLogger) Warn(message string) {
	// nothing
}

// Warnf implements desnet.Logger.
func (nl *NullLogger) Warnf(format string, v ...any) {
	// nothing
}

var _ desnet.Logger = &NullLogger{}

// NullMetricsSink is a [desnet.MetricsSink] that discards every record.
type NullMetricsSink struct{}

// Record implements desnet.MetricsSink.
func (ns *NullMetricsSink) Record(sample desnet.MetricSample) {
	// nothing
}

var _ desnet.MetricsSink = &NullMetricsSink{}
