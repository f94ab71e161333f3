// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"biotune/internal/log"
	"biotune/internal/transport"
)

// PacketSize is the fixed length of a reading packet.
const PacketSize = 4 + 8 + 4 + 4 + 4 + 1

// ErrShortPacket is returned by DecodePacket for truncated input.
var ErrShortPacket = errors.New("udp packet too short")

// UDPPublisher keeps the latest reading handed to Send and transmits it on a
// fixed interval, decoupling the network rate from the sample rate. Readings
// that arrive between ticks are coalesced.
type UDPPublisher struct {
	sender   *UDPSender    // The underlying UDP sender instance.
	interval time.Duration // The interval at which packets are sent.

	ticker   *time.Ticker   // Ticker that triggers packet sending.
	doneChan chan struct{}  // Closed to stop the publisher goroutine.
	stopOnce sync.Once      // Ensures the stop logic runs only once per Start/Stop cycle.
	wg       sync.WaitGroup // Waits for the publisher goroutine to finish during Stop.
	mu       sync.Mutex     // Protects ticker and doneChan during Start/Stop.

	latestMu sync.Mutex
	latest   transport.Reading
	fresh    bool // latest has not been sent yet

	sequenceNum  uint32        // Monotonically increasing sequence number for packets.
	packetBuffer *bytes.Buffer // Reusable buffer for constructing the binary packet.
}

// NewUDPPublisher creates a publisher. If interval is not positive it defaults
// to 100ms.
func NewUDPPublisher(interval time.Duration, sender *UDPSender) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	if interval <= 0 {
		interval = 100 * time.Millisecond
		log.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}
	log.Infof("UDPPublisher: Initializing (Interval: %s)", interval)

	p := &UDPPublisher{
		sender:       sender,
		interval:     interval,
		packetBuffer: new(bytes.Buffer),
	}
	p.packetBuffer.Grow(PacketSize)
	return p, nil
}

// Send stores the reading for the next tick. Other payloads are ignored.
func (p *UDPPublisher) Send(data any) error {
	r, ok := data.(transport.Reading)
	if !ok {
		return nil
	}
	p.latestMu.Lock()
	p.latest = r
	p.fresh = true
	p.latestMu.Unlock()
	return nil
}

// Start begins the periodic publishing process. Calling it while running is a no-op.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		log.Warnf("UDPPublisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		log.Debugf("UDPPublisher: Publisher goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine to terminate and waits for it to exit.
// Calling it when not running is a no-op.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	log.Debugf("UDPPublisher: Publisher goroutine finished.")
	return nil
}

/*
UDP Packet Structure (BigEndian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Monotonically increasing|
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| BPM               | float32        | 4            | Heart rate              |
| RR                | float32        | 4            | Respiration rate        |
| Score             | float32        | 4            | Arousal score           |
| Tier              | uint8          | 1            | 0 low, 1 medium, 2 high |
+-----------------------------------------------------------------------------+
*/

// Packet is a decoded reading packet.
type Packet struct {
	Sequence  uint32
	Timestamp int64
	BPM       float32
	RR        float32
	Score     float32
	Tier      uint8
}

// buildAndSendPacket sends the latest reading if it has not been sent yet.
func (p *UDPPublisher) buildAndSendPacket() {
	p.latestMu.Lock()
	if !p.fresh {
		p.latestMu.Unlock()
		return
	}
	r := p.latest
	p.fresh = false
	p.latestMu.Unlock()

	p.sequenceNum++
	pkt := Packet{
		Sequence:  p.sequenceNum,
		Timestamp: r.Timestamp.UnixNano(),
		BPM:       float32(r.BPM),
		RR:        float32(r.RR),
		Score:     float32(r.Score),
		Tier:      tierCode(r.Tier),
	}

	p.packetBuffer.Reset()
	if err := binary.Write(p.packetBuffer, binary.BigEndian, pkt); err != nil {
		log.Errorf("UDPPublisher: Error packing data into binary buffer: %v", err)
		return
	}

	if err := p.sender.Send(p.packetBuffer.Bytes()); err == nil {
		log.Debugf("UDPPublisher: Sent packet %d (%d bytes)", p.sequenceNum, p.packetBuffer.Len())
	}
}

// DecodePacket parses a packet produced by the publisher.
func DecodePacket(b []byte) (Packet, error) {
	var pkt Packet
	if len(b) < PacketSize {
		return pkt, fmt.Errorf("%w: %d bytes", ErrShortPacket, len(b))
	}
	err := binary.Read(bytes.NewReader(b[:PacketSize]), binary.BigEndian, &pkt)
	return pkt, err
}

func tierCode(tier string) uint8 {
	switch tier {
	case "medium":
		return 1
	case "high":
		return 2
	default:
		return 0
	}
}

// Close stops the publisher and closes the sender.
func (p *UDPPublisher) Close() error {
	if err := p.Stop(); err != nil {
		return err
	}
	return p.sender.Close()
}

// Ensure UDPPublisher satisfies the transport interface at compile time.
var _ transport.Transport = (*UDPPublisher)(nil)
