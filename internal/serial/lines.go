// SPDX-License-Identifier: MIT
package serial

import (
	"bytes"
	"errors"
	"io"
)

// ErrNoData means a read completed without producing a full line. With a read
// timeout configured this is the normal idle case; callers just try again.
var ErrNoData = errors.New("no data available")

// maxPending bounds a line that never terminates. Anything longer than this is
// garbage from the controller and is dropped.
const maxPending = 4096

// LineReader assembles newline-terminated lines from a reader that may return
// partial data or time out. A read that returns nothing, including io.EOF from
// an expired timeout, surfaces as ErrNoData rather than an error.
type LineReader struct {
	r       io.Reader
	pending []byte
	chunk   []byte
}

// NewLineReader wraps r.
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{
		r:       r,
		pending: make([]byte, 0, 256),
		chunk:   make([]byte, 256),
	}
}

// ReadLine returns the next complete line without its terminator. It performs
// at most one read on the underlying reader per call.
func (l *LineReader) ReadLine() (string, error) {
	if line, ok := l.next(); ok {
		return line, nil
	}

	n, err := l.r.Read(l.chunk)
	if n > 0 {
		l.pending = append(l.pending, l.chunk[:n]...)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}

	if line, ok := l.next(); ok {
		return line, nil
	}
	if len(l.pending) > maxPending {
		l.pending = l.pending[:0]
	}
	return "", ErrNoData
}

// Reset drops any partially received line.
func (l *LineReader) Reset() {
	l.pending = l.pending[:0]
}

func (l *LineReader) next() (string, bool) {
	i := bytes.IndexByte(l.pending, '\n')
	if i < 0 {
		return "", false
	}
	line := string(bytes.TrimRight(l.pending[:i], "\r"))
	l.pending = append(l.pending[:0], l.pending[i+1:]...)
	return line, true
}
