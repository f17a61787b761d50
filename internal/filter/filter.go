// Package filter smooths noisy scalar input signals (stick axes, touch
// deltas) with an adaptive low-pass filter. The cutoff frequency rises with
// the speed of the signal, so slow motion is heavily smoothed while fast
// motion passes through with little added lag.
package filter

import "math"

// Motion is an adaptive low-pass filter for a single scalar signal.
// It keeps a smoothed derivative estimate and widens its cutoff as the
// signal moves faster. Each independently filtered signal (stick-x,
// stick-y, touch-dx, ...) needs its own instance; instances share no state.
type Motion struct {
	minCutoff float64 // baseline cutoff frequency in Hz
	beta      float64 // speed coefficient: cutoff gain per unit of derivative
	dCutoff   float64 // cutoff for the derivative stage

	value       float64
	derivative  float64
	initialized bool
}

// NewMotion creates a filter with the given baseline cutoff, speed
// coefficient, and derivative cutoff. Zero or negative parameters are
// replaced with conservative defaults.
func NewMotion(minCutoff, beta, dCutoff float64) *Motion {
	if minCutoff <= 0 {
		minCutoff = 1.0
	}
	if beta < 0 {
		beta = 0
	}
	if dCutoff <= 0 {
		dCutoff = 1.0
	}
	return &Motion{
		minCutoff: minCutoff,
		beta:      beta,
		dCutoff:   dCutoff,
	}
}

// Filter smooths one sample. dt is the elapsed time since the previous
// sample in seconds; dt <= 0 returns the raw value without touching any
// internal state.
func (m *Motion) Filter(value, dt float64) float64 {
	if dt <= 0 {
		return value
	}

	if !m.initialized {
		m.value = value
		m.derivative = 0
		m.initialized = true
		return value
	}

	// Smooth the derivative first, then use its magnitude to open up
	// the value-stage cutoff.
	rawDerivative := (value - m.value) / dt
	m.derivative = lowPass(rawDerivative, m.derivative, alpha(m.dCutoff, dt))

	cutoff := m.minCutoff + m.beta*math.Abs(m.derivative)
	m.value = lowPass(value, m.value, alpha(cutoff, dt))

	return m.value
}

// Reset clears all filter history. Call it whenever sampling resumes after
// an idle gap (touch lift followed by a new touch-down), otherwise the stale
// derivative estimate produces a spike on the first new sample.
func (m *Motion) Reset() {
	m.value = 0
	m.derivative = 0
	m.initialized = false
}

// alpha converts a cutoff frequency into an exponential smoothing factor
// for the given sample interval.
func alpha(cutoff, dt float64) float64 {
	tau := 1.0 / (2.0 * math.Pi * cutoff)
	return 1.0 / (1.0 + tau/dt)
}

func lowPass(value, prev, a float64) float64 {
	return a*value + (1.0-a)*prev
}
