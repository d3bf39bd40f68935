package desnet

//
// Small numeric helpers shared across the engine
//

import "time"

// durationFromSeconds converts a floating-point second count to a
// [VirtualTime], clamping negative results to zero (a malformed
// configuration should never produce a negative delay, but floating-point
// rounding at the margins should never panic either).
func durationFromSeconds(seconds float64) VirtualTime {
	if seconds < 0 {
		seconds = 0
	}
	return time.Duration(seconds * float64(time.Second))
}

// maxDuration returns the larger of a and b.
func maxDuration(a, b VirtualTime) VirtualTime {
	if a > b {
		return a
	}
	return b
}

// ceilDiv returns ceil(a / b) for positive integers.
func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
