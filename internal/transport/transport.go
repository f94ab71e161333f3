// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"time"
)

// Transport defines a generic interface for publishing readings or events.
// Implementations should be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}

// Reading is the telemetry record published for every admitted sample once the
// window is full. Transports receive it by value.
type Reading struct {
	Session   string    `json:"session"`   // Engine run identifier.
	Sequence  uint64    `json:"sequence"`  // Monotonic per session.
	BPM       float64   `json:"bpm"`       // Heart rate.
	RR        float64   `json:"rr"`        // Respiration rate.
	Score     float64   `json:"score"`     // Arousal score.
	Tier      string    `json:"tier"`      // low, medium or high.
	Timestamp time.Time `json:"timestamp"` // When the reading was computed.
}

// Fanout sends to every wrapped transport. A failing transport does not stop
// delivery to the others; the errors are joined.
type Fanout []Transport

// Send delivers data to each transport in order.
func (f Fanout) Send(data any) error {
	var errs []error
	for _, t := range f {
		if err := t.Send(data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every transport.
func (f Fanout) Close() error {
	var errs []error
	for _, t := range f {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Ensure Fanout satisfies the interface at compile time.
var _ Transport = Fanout(nil)
