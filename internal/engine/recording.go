// SPDX-License-Identifier: MIT
package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"biotune/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Recorder writes admitted samples to a mono WAV file at the sensor sample rate,
// so a session can be replayed or inspected in any audio editor.
type Recorder struct {
	path       string
	outputFile *os.File
	wavEncoder *wav.Encoder
	sampleBuf  *audio.IntBuffer // Reusable single-sample buffer
	written    int
}

// RecordingPath returns dir/session-DD-MM-YYYY-HHMMSS.wav.
func RecordingPath(dir string, now time.Time) string {
	return filepath.Join(dir, "session-"+now.UTC().Format("02-01-2006-150405")+".wav")
}

// NewRecorder creates the output file and its parent directory.
func NewRecorder(path string, sampleRate, bitDepth int) (*Recorder, error) {
	if bitDepth != 8 && bitDepth != 16 && bitDepth != 24 && bitDepth != 32 {
		return nil, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create recording directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording: %w", err)
	}

	r := &Recorder{
		path:       path,
		outputFile: file,
		wavEncoder: wav.NewEncoder(file, sampleRate, bitDepth, 1, 1),
		sampleBuf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
			Data:           make([]int, 1),
			SourceBitDepth: bitDepth,
		},
	}
	log.Infof("Recorder: Writing samples to %s (%d Hz, %d bit)", path, sampleRate, bitDepth)
	return r, nil
}

// Path returns the output file path.
func (r *Recorder) Path() string {
	return r.path
}

// Write appends one sample.
func (r *Recorder) Write(sample int) error {
	r.sampleBuf.Data[0] = sample
	if err := r.wavEncoder.Write(r.sampleBuf); err != nil {
		return fmt.Errorf("failed to write sample: %w", err)
	}
	r.written++
	return nil
}

// Written returns the number of samples recorded so far.
func (r *Recorder) Written() int {
	return r.written
}

// Close finalises the WAV header and closes the file.
func (r *Recorder) Close() error {
	if r.wavEncoder != nil {
		if err := r.wavEncoder.Close(); err != nil {
			r.outputFile.Close()
			return fmt.Errorf("failed to finalise recording: %w", err)
		}
		r.wavEncoder = nil
	}

	if r.outputFile != nil {
		if err := r.outputFile.Close(); err != nil {
			return err
		}
		r.outputFile = nil
		log.Infof("Recorder: Saved %d samples to %s", r.written, r.path)
	}
	return nil
}
