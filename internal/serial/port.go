// SPDX-License-Identifier: MIT
package serial

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"biotune/internal/log"

	tarm "github.com/tarm/serial"
)

// ErrNoPort is returned by Detect when nothing under /dev looks like a controller.
var ErrNoPort = errors.New("no serial device found")

// candidatePatterns are the device names USB serial adapters show up as.
var candidatePatterns = []string{"tty.usbserial", "ttyUSB", "ttyACM", "cu.usbmodem"}

// Config holds the link parameters.
type Config struct {
	Name        string        // Device path, e.g. /dev/ttyUSB0.
	Baud        int           // Line speed.
	ReadTimeout time.Duration // Upper bound on a single read; zero blocks forever.
}

// Port is the bidirectional line link to the controller board. Inbound bytes are
// split into lines, outbound commands are written as-is.
type Port struct {
	*LineReader
	port *tarm.Port
	name string
}

// Open opens the device described by cfg. An empty name triggers Detect.
func Open(cfg Config) (*Port, error) {
	name := cfg.Name
	if name == "" {
		detected, err := Detect("/dev")
		if err != nil {
			return nil, err
		}
		name = detected
	}

	p, err := tarm.OpenPort(&tarm.Config{
		Name:        name,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}
	log.Infof("Serial: Opened %s at %d baud (read timeout %s)", name, cfg.Baud, cfg.ReadTimeout)

	return &Port{
		LineReader: NewLineReader(p),
		port:       p,
		name:       name,
	}, nil
}

// Name returns the device path in use.
func (p *Port) Name() string {
	return p.name
}

// Write sends raw bytes to the controller.
func (p *Port) Write(b []byte) (int, error) {
	n, err := p.port.Write(b)
	if err != nil {
		return n, fmt.Errorf("serial write failed: %w", err)
	}
	return n, nil
}

// Discard drops everything received but not yet consumed, both in the kernel
// buffer and in the partially assembled line.
func (p *Port) Discard() error {
	p.LineReader.Reset()
	if err := p.port.Flush(); err != nil {
		return fmt.Errorf("serial flush failed: %w", err)
	}
	return nil
}

// Close releases the device.
func (p *Port) Close() error {
	log.Infof("Serial: Closing %s", p.name)
	return p.port.Close()
}

// Candidates lists entries of dir whose names look like USB serial adapters,
// sorted by path.
func Candidates(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	var out []string
	for _, e := range entries {
		for _, pattern := range candidatePatterns {
			if strings.Contains(e.Name(), pattern) {
				out = append(out, dir+"/"+e.Name())
				break
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// Detect returns the first serial candidate in dir.
func Detect(dir string) (string, error) {
	candidates, err := Candidates(dir)
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "", ErrNoPort
	}
	log.Infof("Serial: Auto-detected controller at %s", candidates[0])
	return candidates[0], nil
}
