// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"fmt"
	"time"

	"biotune/internal/log"

	"github.com/nats-io/nats.go"
)

// NATSTransport publishes each reading as JSON on a subject.
type NATSTransport struct {
	conn    *nats.Conn
	subject string
}

// Connect dials a NATS server with reconnects enabled forever.
func Connect(url string) (*nats.Conn, error) {
	return nats.Connect(
		url,
		nats.Name("biotune"),
		nats.Timeout(3*time.Second),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warnf("NATSTransport: Disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infof("NATSTransport: Reconnected to %s", nc.ConnectedUrl())
		}),
	)
}

// NewNATSTransport connects to url and publishes on subject.
func NewNATSTransport(url, subject string) (*NATSTransport, error) {
	if subject == "" {
		return nil, fmt.Errorf("NATSTransport: subject cannot be empty")
	}
	nc, err := Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	log.Infof("NATSTransport: Publishing on %q via %s", subject, nc.ConnectedUrl())
	return NewNATSTransportWithConn(nc, subject), nil
}

// NewNATSTransportWithConn publishes over an existing connection.
func NewNATSTransportWithConn(nc *nats.Conn, subject string) *NATSTransport {
	return &NATSTransport{conn: nc, subject: subject}
}

// Send marshals data to JSON and publishes it. Publishing is buffered by the
// client; it does not wait for the server.
func (t *NATSTransport) Send(data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode NATS payload: %w", err)
	}
	if err := t.conn.Publish(t.subject, payload); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", t.subject, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (t *NATSTransport) Close() error {
	log.Infof("NATSTransport: Draining connection")
	return t.conn.Drain()
}

// Ensure NATSTransport satisfies the interface
var _ Transport = (*NATSTransport)(nil)
