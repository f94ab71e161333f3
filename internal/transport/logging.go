// SPDX-License-Identifier: MIT
package transport

import (
	"biotune/internal/log"
)

// LoggingTransport implements the Transport interface by logging readings at
// debug level. It is always present so a run without network sinks still leaves
// a trace of what was computed.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	log.Debugf("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the received data.
func (lt *LoggingTransport) Send(data any) error {
	switch r := data.(type) {
	case Reading:
		log.Debugw("Reading",
			"seq", r.Sequence,
			"bpm", r.BPM,
			"rr", r.RR,
			"score", r.Score,
			"tier", r.Tier,
		)
	default:
		log.Debugf("LOG_TRANSPORT: Received (%T): %+v", data, data)
	}
	return nil // Logging transport never fails to "send"
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	log.Debugf("LOG_TRANSPORT: Close called.")
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
