// SPDX-License-Identifier: MIT
package analysis

// Estimator defines the interface for components that turn one full window of
// samples into a physiological reading. Implementations are called once per
// admitted sample after warm-up, so they should avoid allocating.
type Estimator interface {
	Estimate(window []float64) Reading
}

// SpectrumProvider defines an interface for components that can expose the magnitude
// spectrum behind their latest estimate. This decouples telemetry and tests from the
// concrete estimator.
type SpectrumProvider interface {
	GetMagnitudes() []float64                // GetMagnitudes returns a copy of the latest positive-frequency magnitudes.
	GetFrequencyForBin(binIndex int) float64 // GetFrequencyForBin returns the frequency (Hz) of a retained bin.
	GetWindowSize() int                      // GetWindowSize returns the number of samples per estimate.
	GetSampleRate() float64                  // GetSampleRate returns the sample rate (Hz).
}

// Compile-time checks for interface implementations.
var _ Estimator = (*SpectralEstimator)(nil)
var _ SpectrumProvider = (*SpectralEstimator)(nil)
