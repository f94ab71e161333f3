package analysis

import "fmt"

// Band is a closed frequency interval, in Hz, that a physiological rate must fall in.
type Band struct {
	Name   string
	LowHz  float64
	HighHz float64
}

// Default bands.
var (
	HeartRateBand   = Band{Name: "heart_rate", LowHz: 0.8, HighHz: 2.5}   // 48 to 150 BPM
	RespirationBand = Band{Name: "respiration", LowHz: 0.1, HighHz: 0.5} // 6 to 30 breaths/min
)

// NewBand builds a band from a [low, high] pair as it appears in configuration.
func NewBand(name string, bounds []float64) (Band, error) {
	if len(bounds) != 2 || bounds[0] < 0 || bounds[0] > bounds[1] {
		return Band{}, fmt.Errorf("invalid %s band %v", name, bounds)
	}
	return Band{Name: name, LowHz: bounds[0], HighHz: bounds[1]}, nil
}

// Contains reports whether freq lies inside the band, edges included.
func (b Band) Contains(freq float64) bool {
	return freq >= b.LowHz && freq <= b.HighHz
}

// PerMinute converts a frequency in Hz into a per-minute rate.
func PerMinute(freq float64) float64 {
	return freq * 60
}
