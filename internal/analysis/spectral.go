// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math/cmplx"

	"biotune/internal/log"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Reading holds the rates derived from one full window. A rate of zero means no
// qualifying peak was found in its band.
type Reading struct {
	BPM float64 // Heart rate, beats per minute.
	RR  float64 // Respiration rate, breaths per minute.
}

// EstimatorConfig describes the window and bands a SpectralEstimator works with.
type EstimatorConfig struct {
	WindowSize    int     // Samples per estimate.
	SampleRate    float64 // Samples per second.
	PeakThreshold float64 // A peak must exceed this fraction of the strongest retained bin.
	HeartRate     Band
	Respiration   Band
}

// DefaultEstimatorConfig returns a 10 second window at 50Hz with the default bands.
func DefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{
		WindowSize:    500,
		SampleRate:    50,
		PeakThreshold: 0.1,
		HeartRate:     HeartRateBand,
		Respiration:   RespirationBand,
	}
}

// Pre-allocated buffers for spectral calculations.
type spectralWorkspace struct {
	input     []float64    // Detrended window.
	fftOutput []complex128 // FFT coefficients for bins 0..N/2.
	magnitude []float64    // Magnitudes of the strictly positive bins.
	freqs     []float64    // Frequency (Hz) of each retained bin.
	peaks     []int        // Indices into magnitude of qualifying peaks.
}

// SpectralEstimator detrends a window, transforms it, and picks the strongest
// qualifying peak in the heart rate and respiration bands.
type SpectralEstimator struct {
	fftCalculator *fourier.FFT // Reusable FFT calculator instance.
	cfg           EstimatorConfig
	workspace     spectralWorkspace
}

// NewSpectralEstimator validates cfg and pre-allocates every buffer the estimator
// needs. The window size does not have to be a power of two.
func NewSpectralEstimator(cfg EstimatorConfig) (*SpectralEstimator, error) {
	if cfg.WindowSize < 2 {
		return nil, fmt.Errorf("window size must be at least 2, got %d", cfg.WindowSize)
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", cfg.SampleRate)
	}
	if cfg.PeakThreshold < 0 || cfg.PeakThreshold >= 1 {
		return nil, fmt.Errorf("peak threshold must be in [0, 1), got %f", cfg.PeakThreshold)
	}

	// Strictly positive frequencies are bins 1..ceil(N/2)-1. For even N the bin at N/2
	// is the Nyquist bin, which sits on the negative side and is dropped.
	positive := (cfg.WindowSize - 1) / 2

	e := &SpectralEstimator{
		fftCalculator: fourier.NewFFT(cfg.WindowSize),
		cfg:           cfg,
		workspace: spectralWorkspace{
			input:     make([]float64, cfg.WindowSize),
			fftOutput: make([]complex128, cfg.WindowSize/2+1),
			magnitude: make([]float64, positive),
			freqs:     make([]float64, positive),
			peaks:     make([]int, 0, positive),
		},
	}
	for i := range e.workspace.freqs {
		e.workspace.freqs[i] = e.fftCalculator.Freq(i+1) * cfg.SampleRate
	}

	log.Debugf("Analysis: Initializing SpectralEstimator (Window: %d, SampleRate: %.1f Hz, Bins: %d)",
		cfg.WindowSize, cfg.SampleRate, positive)

	return e, nil
}

// Estimate runs the detrend, FFT and peak search over window and classifies the
// qualifying peaks into the two bands. window is expected to hold exactly
// WindowSize samples; a shorter window is zero-padded after detrending.
func (e *SpectralEstimator) Estimate(window []float64) Reading {
	ws := &e.workspace

	// --- 1. Detrend ---
	n := min(len(window), e.cfg.WindowSize)
	mean := 0.0
	if n > 0 {
		mean = stat.Mean(window[:n], nil)
	}
	for i := range ws.input {
		if i < n {
			ws.input[i] = window[i] - mean
		} else {
			ws.input[i] = 0
		}
	}

	// --- 2. Transform ---
	e.fftCalculator.Coefficients(ws.fftOutput, ws.input)

	// --- 3. Keep strictly positive frequencies ---
	for i := range ws.magnitude {
		ws.magnitude[i] = cmplx.Abs(ws.fftOutput[i+1])
	}
	if len(ws.magnitude) == 0 {
		return Reading{}
	}

	// --- 4. Peak search relative to the strongest bin ---
	peak := floats.Max(ws.magnitude)
	if peak <= 0 {
		return Reading{}
	}
	ws.peaks = findPeaks(ws.magnitude, peak*e.cfg.PeakThreshold, ws.peaks[:0])

	// --- 5. Strongest in-band peak per band ---
	var (
		reading           Reading
		bestHeart, bestRR float64
	)
	for _, p := range ws.peaks {
		freq, mag := ws.freqs[p], ws.magnitude[p]
		if e.cfg.HeartRate.Contains(freq) && mag > bestHeart {
			bestHeart = mag
			reading.BPM = PerMinute(freq)
		}
		if e.cfg.Respiration.Contains(freq) && mag > bestRR {
			bestRR = mag
			reading.RR = PerMinute(freq)
		}
	}

	return reading
}

// GetMagnitudes returns a copy of the positive-frequency magnitudes of the last estimate.
func (e *SpectralEstimator) GetMagnitudes() []float64 {
	out := make([]float64, len(e.workspace.magnitude))
	copy(out, e.workspace.magnitude)
	return out
}

// GetFrequencyForBin returns the frequency (Hz) for a retained bin, 0 if out of range.
func (e *SpectralEstimator) GetFrequencyForBin(binIndex int) float64 {
	if binIndex < 0 || binIndex >= len(e.workspace.freqs) {
		return 0.0
	}
	return e.workspace.freqs[binIndex]
}

// GetWindowSize returns the configured window size.
func (e *SpectralEstimator) GetWindowSize() int {
	return e.cfg.WindowSize
}

// GetSampleRate returns the configured sample rate (Hz).
func (e *SpectralEstimator) GetSampleRate() float64 {
	return e.cfg.SampleRate
}

// BinWidth returns the frequency resolution of the estimator in Hz.
func (e *SpectralEstimator) BinWidth() float64 {
	return e.cfg.SampleRate / float64(e.cfg.WindowSize)
}
