// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"

	"biotune/pkg/utils"
)

const (
	testSampleRate = 50
	testWindowSize = 500 // 10 seconds
)

func newTestEstimator(t testing.TB) *SpectralEstimator {
	t.Helper()
	e, err := NewSpectralEstimator(DefaultEstimatorConfig())
	if err != nil {
		t.Fatalf("NewSpectralEstimator: %v", err)
	}
	return e
}

func TestEstimateFlatWindow(t *testing.T) {
	e := newTestEstimator(t)

	window := make([]float64, testWindowSize)
	for i := range window {
		window[i] = 512
	}

	got := e.Estimate(window)
	if got.BPM != 0 || got.RR != 0 {
		t.Errorf("flat window: got BPM=%.2f RR=%.2f, want 0/0", got.BPM, got.RR)
	}
}

func TestEstimatePureTones(t *testing.T) {
	tests := []struct {
		desc    string
		tones   []utils.Tone
		wantBPM float64
		wantRR  float64
	}{
		{"Heart only 1.2Hz", []utils.Tone{{Frequency: 1.2, Amplitude: 100}}, 72, 0},
		{"Breath only 0.3Hz", []utils.Tone{{Frequency: 0.3, Amplitude: 80}}, 0, 18},
		{"Heart and breath", []utils.Tone{{Frequency: 1.5, Amplitude: 60}, {Frequency: 0.2, Amplitude: 120}}, 90, 12},
		{"Strongest heart peak wins", []utils.Tone{{Frequency: 1.0, Amplitude: 50}, {Frequency: 2.0, Amplitude: 150}}, 120, 0},
		{"Strongest breath peak wins", []utils.Tone{{Frequency: 0.4, Amplitude: 140}, {Frequency: 0.2, Amplitude: 40}}, 0, 24},
		{"Out of band only", []utils.Tone{{Frequency: 5, Amplitude: 100}}, 0, 0},
		{"Band edge included", []utils.Tone{{Frequency: 2.5, Amplitude: 100}}, 150, 0},
	}

	e := newTestEstimator(t)
	tolerance := e.BinWidth() * 60

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			samples := utils.GenerateComplexWave(testWindowSize, testSampleRate, tt.tones...)
			got := e.Estimate(utils.ToFloat64(samples))

			if math.Abs(got.BPM-tt.wantBPM) > tolerance {
				t.Errorf("BPM = %.2f, want %.2f ± %.2f", got.BPM, tt.wantBPM, tolerance)
			}
			if math.Abs(got.RR-tt.wantRR) > tolerance {
				t.Errorf("RR = %.2f, want %.2f ± %.2f", got.RR, tt.wantRR, tolerance)
			}
			if tt.wantBPM == 0 && got.BPM != 0 {
				t.Errorf("BPM = %.2f, want exactly 0", got.BPM)
			}
			if tt.wantRR == 0 && got.RR != 0 {
				t.Errorf("RR = %.2f, want exactly 0", got.RR)
			}
		})
	}
}

func TestEstimateDropsNyquistAndDC(t *testing.T) {
	e := newTestEstimator(t)

	// 249 strictly positive bins for N=500, 0.1Hz apart starting at 0.1Hz.
	if got := len(e.GetMagnitudes()); got != 249 {
		t.Fatalf("retained bins = %d, want 249", got)
	}
	if f := e.GetFrequencyForBin(0); math.Abs(f-0.1) > 1e-9 {
		t.Errorf("first retained bin = %.3f Hz, want 0.1", f)
	}
	if f := e.GetFrequencyForBin(248); math.Abs(f-24.9) > 1e-9 {
		t.Errorf("last retained bin = %.3f Hz, want 24.9", f)
	}
	if f := e.GetFrequencyForBin(249); f != 0 {
		t.Errorf("out of range bin = %.3f Hz, want 0", f)
	}
}

func TestEstimatePeakLocation(t *testing.T) {
	e := newTestEstimator(t)
	samples := utils.GenerateSineWave(testWindowSize, testSampleRate, 1.2, 100)
	e.Estimate(utils.ToFloat64(samples))

	mags := e.GetMagnitudes()
	peak := utils.FindPeakBin(mags, 0, len(mags)-1)
	if f := e.GetFrequencyForBin(peak); math.Abs(f-1.2) > 1e-9 {
		t.Errorf("strongest bin at %.3f Hz, want 1.2", f)
	}
}

func TestNewSpectralEstimatorErrors(t *testing.T) {
	tests := []struct {
		desc   string
		mutate func(*EstimatorConfig)
	}{
		{"Window too small", func(c *EstimatorConfig) { c.WindowSize = 1 }},
		{"Zero sample rate", func(c *EstimatorConfig) { c.SampleRate = 0 }},
		{"Negative threshold", func(c *EstimatorConfig) { c.PeakThreshold = -0.1 }},
		{"Threshold of one", func(c *EstimatorConfig) { c.PeakThreshold = 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			cfg := DefaultEstimatorConfig()
			tt.mutate(&cfg)
			if _, err := NewSpectralEstimator(cfg); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestEstimateHotPath(t *testing.T) {
	e := newTestEstimator(t)
	window := utils.ToFloat64(utils.GenerateSineWave(testWindowSize, testSampleRate, 1.2, 100))

	// Warm-up call so lazily initialised FFT state is not counted.
	e.Estimate(window)
	allocs := testing.AllocsPerRun(100, func() {
		e.Estimate(window)
	})

	if allocs > 0 {
		t.Errorf("Expected zero allocations in Estimate hot path, got %.1f", allocs)
	}
}

func BenchmarkEstimate(b *testing.B) {
	e := newTestEstimator(b)
	window := utils.ToFloat64(utils.GenerateComplexWave(testWindowSize, testSampleRate,
		utils.Tone{Frequency: 1.2, Amplitude: 100},
		utils.Tone{Frequency: 0.3, Amplitude: 60},
	))

	b.ReportAllocs()

	for b.Loop() {
		e.Estimate(window)
	}
}
