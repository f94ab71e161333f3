// SPDX-License-Identifier: MIT

// Package player turns completed button actions into playback commands.
package player

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"time"

	"biotune/internal/analysis"
	"biotune/internal/catalog"
	"biotune/internal/control"
	"biotune/internal/emotion"
	"biotune/internal/log"
)

// Commands understood by the playback controller.
var (
	PauseCommand  = []byte("PAUSE\n")
	ResumeCommand = []byte("PLAY\n")
)

// Arousal exposes the latest arousal state. *analysis.ArousalComposer satisfies it.
type Arousal interface {
	Score() float64
	Tier() analysis.Tier
	Ready() bool
}

// EmotionRecord is the result of the last capture.
type EmotionRecord struct {
	Emotion    string        // Empty when nothing was recognised.
	Score      float64       // Arousal score at capture time.
	Tier       analysis.Tier // Arousal tier at capture time.
	CapturedAt time.Time
}

// Config wires a Dispatcher to its collaborators. Link, Catalog and Arousal are required.
type Config struct {
	Link            io.Writer        // Outbound command channel.
	Catalog         *catalog.Catalog // Song table.
	Capturer        emotion.Capturer // Defaults to NoopCapturer.
	Arousal         Arousal          // Source of the live score and tier.
	Rand            *rand.Rand       // Track picker, seeded from the clock when nil.
	CaptureDuration time.Duration    // How long Record observes the listener.
	Discard         func() error     // Drops inbound data buffered while Record blocked.
	Summary         io.Writer        // Human readable selection log, defaults to stdout.
	Now             func() time.Time
}

// Dispatcher executes Record, Play and Pause. It is owned by the engine loop and
// is not safe for concurrent use.
type Dispatcher struct {
	cfg     Config
	record  *EmotionRecord
	playing bool
}

// NewDispatcher validates cfg and fills in defaults.
func NewDispatcher(cfg Config) (*Dispatcher, error) {
	if cfg.Link == nil {
		return nil, fmt.Errorf("dispatcher: link cannot be nil")
	}
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("dispatcher: catalog cannot be nil")
	}
	if cfg.Arousal == nil {
		return nil, fmt.Errorf("dispatcher: arousal source cannot be nil")
	}
	if cfg.Capturer == nil {
		cfg.Capturer = emotion.NoopCapturer{}
	}
	if cfg.Rand == nil {
		seed := uint64(time.Now().UnixNano())
		cfg.Rand = rand.New(rand.NewPCG(seed, seed>>1))
	}
	if cfg.Summary == nil {
		cfg.Summary = os.Stdout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Dispatcher{cfg: cfg}, nil
}

// Dispatch routes a completed button action.
func (d *Dispatcher) Dispatch(ctx context.Context, action control.Action) error {
	switch action.Button {
	case control.Record:
		d.Record(ctx)
		return nil
	case control.Play:
		_, err := d.Play()
		return err
	case control.Pause:
		return d.Pause()
	default:
		return fmt.Errorf("dispatcher: unknown button %v", action.Button)
	}
}

// Record captures the listener's emotion and stores it with the current arousal.
// A failed capture is stored as an absent emotion.
func (d *Dispatcher) Record(ctx context.Context) EmotionRecord {
	log.Infof("Player: Capturing emotion for %s", d.cfg.CaptureDuration)

	label, err := d.cfg.Capturer.Capture(ctx, d.cfg.CaptureDuration)
	if err != nil {
		log.Warnf("Player: Emotion capture failed: %v", err)
		label = ""
	}

	rec := EmotionRecord{
		Emotion:    label,
		Score:      d.cfg.Arousal.Score(),
		Tier:       d.cfg.Arousal.Tier(),
		CapturedAt: d.cfg.Now(),
	}
	d.record = &rec

	// Samples that arrived while we were blocked are stale.
	if d.cfg.Discard != nil {
		if err := d.cfg.Discard(); err != nil {
			log.Warnf("Player: Failed to discard buffered input: %v", err)
		}
	}

	emotionName := rec.Emotion
	if emotionName == "" {
		emotionName = "(none)"
	}
	log.Infow("Emotion recorded", "emotion", emotionName, "score", rec.Score, "tier", rec.Tier.String())
	return rec
}

// Play starts a track matching the recorded emotion and the arousal tier, or
// resumes playback when nothing has been recorded yet. The returned track is
// the zero value for a resume.
//
// Once the estimator has produced a reading the live tier is used; the tier
// stored with the record only matters before the first reading.
func (d *Dispatcher) Play() (catalog.Track, error) {
	d.playing = true

	if d.record == nil {
		log.Infof("Player: No emotion recorded, resuming playback")
		return catalog.Track{}, d.write(ResumeCommand)
	}

	tier := d.record.Tier
	score := d.record.Score
	if d.cfg.Arousal.Ready() {
		tier = d.cfg.Arousal.Tier()
		score = d.cfg.Arousal.Score()
	}

	category := d.cfg.Catalog.Resolve(d.record.Emotion)
	tracks := d.cfg.Catalog.Lookup(category, tier)
	track := tracks[d.cfg.Rand.IntN(len(tracks))]

	d.printSummary(category, score, tier, track)

	if err := d.write([]byte(track.ID)); err != nil {
		return track, err
	}
	return track, d.write([]byte(track.Title))
}

// Pause stops playback. It is sent unconditionally.
func (d *Dispatcher) Pause() error {
	d.playing = false
	log.Infof("Player: Pausing playback")
	return d.write(PauseCommand)
}

// Playing reports whether the last command started or resumed playback.
func (d *Dispatcher) Playing() bool {
	return d.playing
}

// LastRecord returns the stored emotion record, if any.
func (d *Dispatcher) LastRecord() (EmotionRecord, bool) {
	if d.record == nil {
		return EmotionRecord{}, false
	}
	return *d.record, true
}

func (d *Dispatcher) write(b []byte) error {
	if _, err := d.cfg.Link.Write(b); err != nil {
		return fmt.Errorf("failed to send player command: %w", err)
	}
	return nil
}

func (d *Dispatcher) printSummary(category string, score float64, tier analysis.Tier, track catalog.Track) {
	fmt.Fprintf(d.cfg.Summary, "\n---------- Song Selection ----------\n")
	fmt.Fprintf(d.cfg.Summary, "Emotion : %s\n", category)
	fmt.Fprintf(d.cfg.Summary, "Arousal : %.2f (%s)\n", score, tier)
	fmt.Fprintf(d.cfg.Summary, "Track   : %s %s\n", track.ID, track.Title)
	fmt.Fprintf(d.cfg.Summary, "------------------------------------\n")
}
