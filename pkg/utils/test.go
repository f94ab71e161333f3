package utils

import (
	"math"
	"sync"
)

// MockTransport implements the Transport interface for testing.
type MockTransport struct {
	mu     sync.Mutex
	Sent   []any
	Closed bool
}

// Send stores the data for later inspection instead of transmitting.
func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, data)
	return nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Last returns the most recently sent value, nil if nothing was sent.
func (m *MockTransport) Last() any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return nil
	}
	return m.Sent[len(m.Sent)-1]
}

// Tone is one sinusoidal component of a synthetic sensor signal.
type Tone struct {
	Frequency float64 // Hz
	Amplitude float64 // sensor units
}

// SensorBaseline is the resting value of a 10-bit pulse sensor.
const SensorBaseline = 512

// GenerateSineWave returns size integer samples of a single tone riding on the
// sensor baseline, as the controller would send them.
func GenerateSineWave(size int, sampleRate, frequency, amplitude float64) []int {
	return GenerateComplexWave(size, sampleRate, Tone{Frequency: frequency, Amplitude: amplitude})
}

// GenerateComplexWave sums the given tones on top of the sensor baseline and rounds
// each sample to an integer.
func GenerateComplexWave(size int, sampleRate float64, tones ...Tone) []int {
	buffer := make([]int, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		signal := float64(SensorBaseline)
		for _, tone := range tones {
			signal += tone.Amplitude * math.Sin(2*math.Pi*tone.Frequency*t)
		}
		buffer[i] = int(math.Round(signal))
	}
	return buffer
}

// ToFloat64 converts integer samples to float64.
func ToFloat64(samples []int) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = float64(s)
	}
	return out
}

func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}
