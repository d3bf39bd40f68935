package desnet

//
// RTT estimation and RTO computation (spec.md §4.4)
//

import "time"

// rttEstimatorDefaults holds the tunable constants of spec.md §4.4.
type rttEstimatorDefaults struct {
	alpha  float64
	beta   float64
	rtoMin VirtualTime
	rtoMax VirtualTime
}

// defaultRTTParams are the spec.md §4.4 defaults: α=1/8, β=1/4,
// rto_min=1s, rto capped at 60s.
var defaultRTTParams = rttEstimatorDefaults{
	alpha:  1.0 / 8.0,
	beta:   1.0 / 4.0,
	rtoMin: time.Second,
	rtoMax: 60 * time.Second,
}

// rttEstimator is a flow's smoothed-RTT / RTO estimator (teacher's rtx.go
// keeps retransmission-adjacent math in its own small file; this follows
// that convention rather than folding the estimator into flow.go).
type rttEstimator struct {
	params     rttEstimatorDefaults
	srtt       float64 // seconds; zero means "no sample yet"
	rttvar     float64 // seconds
	rto        VirtualTime
	haveSample bool
}

// newRTTEstimator constructs an estimator with the initial RTO of spec.md
// §4.4 (1.0s) before any sample has been observed.
func newRTTEstimator() *rttEstimator {
	return &rttEstimator{
		params: defaultRTTParams,
		rto:    defaultRTTParams.rtoMin,
	}
}

// sample folds a new RTT observation into the estimator, per spec.md §4.4:
// srtt = (1-α)·srtt + α·rtt; rttvar = (1-β)·rttvar + β·|rtt-srtt|;
// rto = max(rto_min, srtt + 4·rttvar).
func (e *rttEstimator) sample(rtt VirtualTime) {
	r := rtt.Seconds()
	if !e.haveSample {
		e.srtt = r
		e.rttvar = r / 2
		e.haveSample = true
	} else {
		e.rttvar = (1-e.params.beta)*e.rttvar + e.params.beta*absFloat(r-e.srtt)
		e.srtt = (1-e.params.alpha)*e.srtt + e.params.alpha*r
	}
	candidate := durationFromSeconds(e.srtt + 4*e.rttvar)
	e.rto = maxDuration(e.params.rtoMin, candidate)
}

// backoff doubles the RTO on a retransmission timeout, capped at rto_max
// (spec.md §4.4: "double rto (exponential backoff, capped at 60 s)").
func (e *rttEstimator) backoff() {
	doubled := e.rto * 2
	if doubled > e.params.rtoMax {
		doubled = e.params.rtoMax
	}
	e.rto = doubled
}

// absFloat returns the absolute value of x.
func absFloat(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
