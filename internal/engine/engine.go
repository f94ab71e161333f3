// SPDX-License-Identifier: MIT
/*
Package engine runs the sensor pipeline:
- Line ingest from the serial link
- Sliding window spectral analysis (heart rate, respiration)
- Arousal scoring and telemetry publishing
- Button state machine and playback dispatch

Threading:
- A single goroutine owns every piece of pipeline state
- Buffers are pre-allocated so admitting a sample does not allocate
- Telemetry transports receive copies and may run their own goroutines
*/
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"biotune/internal/analysis"
	"biotune/internal/catalog"
	"biotune/internal/config"
	"biotune/internal/control"
	"biotune/internal/emotion"
	"biotune/internal/ingest"
	"biotune/internal/log"
	"biotune/internal/player"
	"biotune/internal/serial"
	"biotune/internal/transport"

	"github.com/google/uuid"
)

// Link is the bidirectional line channel to the controller. *serial.Port satisfies it.
// ReadLine returns serial.ErrNoData when a read expires without a full line.
type Link interface {
	ReadLine() (string, error)
	Write(p []byte) (int, error)
	Discard() error
	Close() error
}

// Options supplies the collaborators the engine does not build itself. Every
// field is optional.
type Options struct {
	Catalog   *catalog.Catalog    // Defaults to the built-in catalog.
	Capturer  emotion.Capturer    // Defaults to emotion.NoopCapturer.
	Transport transport.Transport // Defaults to a LoggingTransport.
	Recorder  *Recorder           // Raw sample recording, nil disables.
	Rand      *rand.Rand          // Track picker.
	Summary   io.Writer           // Song selection summary, defaults to stdout.
	Now       func() time.Time
}

type Engine struct {
	// Core configuration and identity.
	config  *config.Config
	session string
	now     func() time.Time

	// Sensor link.
	link Link

	// Analysis pipeline.
	window    *analysis.SlidingWindow
	estimator analysis.Estimator
	composer  *analysis.ArousalComposer
	scratch   []float64 // Window snapshot handed to the estimator
	last      analysis.Reading
	sequence  uint64

	// Control surface.
	keymap     control.Keymap
	buttons    *control.ButtonStateMachine
	dispatcher *player.Dispatcher

	// Outputs.
	transport transport.Transport
	recorder  *Recorder

	closed bool
}

// NewEngine builds the pipeline described by cfg on top of link. The engine takes
// ownership of link, the recorder and the transport and closes them in Close.
func NewEngine(cfg *config.Config, link Link, opts Options) (*Engine, error) {
	if link == nil {
		return nil, fmt.Errorf("engine: link cannot be nil")
	}

	heart, err := analysis.NewBand(analysis.HeartRateBand.Name, cfg.Analysis.HeartRateBand)
	if err != nil {
		return nil, err
	}
	resp, err := analysis.NewBand(analysis.RespirationBand.Name, cfg.Analysis.RespirationBand)
	if err != nil {
		return nil, err
	}

	windowSize := cfg.WindowSize()
	estimator, err := analysis.NewSpectralEstimator(analysis.EstimatorConfig{
		WindowSize:    windowSize,
		SampleRate:    float64(cfg.Analysis.SampleRate),
		PeakThreshold: cfg.Analysis.PeakThreshold,
		HeartRate:     heart,
		Respiration:   resp,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create spectral estimator: %w", err)
	}

	composer := analysis.NewArousalComposer(analysis.ArousalWeights{
		HeartRate:   cfg.Arousal.HeartRateWeight,
		Respiration: cfg.Arousal.RespirationWeight,
		LowCut:      cfg.Arousal.LowCut,
		HighCut:     cfg.Arousal.HighCut,
	})

	keymap, err := control.NewKeymap(cfg.Buttons)
	if err != nil {
		return nil, err
	}

	if opts.Catalog == nil {
		opts.Catalog = catalog.Builtin()
	}
	if opts.Transport == nil {
		opts.Transport = transport.NewLoggingTransport()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	dispatcher, err := player.NewDispatcher(player.Config{
		Link:            link,
		Catalog:         opts.Catalog,
		Capturer:        opts.Capturer,
		Arousal:         composer,
		Rand:            opts.Rand,
		CaptureDuration: cfg.Emotion.CaptureDuration,
		Discard:         link.Discard,
		Summary:         opts.Summary,
		Now:             opts.Now,
	})
	if err != nil {
		return nil, err
	}

	e := &Engine{
		config:     cfg,
		session:    uuid.NewString(),
		now:        opts.Now,
		link:       link,
		window:     analysis.NewSlidingWindow(windowSize),
		estimator:  estimator,
		composer:   composer,
		scratch:    make([]float64, windowSize),
		keymap:     keymap,
		buttons:    control.NewButtonStateMachine(keymap.Buttons()...),
		dispatcher: dispatcher,
		transport:  opts.Transport,
		recorder:   opts.Recorder,
	}

	log.Infow("Engine initialised",
		"session", e.session,
		"window", windowSize,
		"sample_rate", cfg.Analysis.SampleRate,
		"resolution_hz", estimator.BinWidth(),
	)
	return e, nil
}

// Run reads the link until ctx is cancelled or the link fails. The link,
// recorder and transports are closed on every return path.
func (e *Engine) Run(ctx context.Context) (err error) {
	defer func() {
		if cerr := e.Close(); err == nil {
			err = cerr
		}
	}()

	log.Infof("Engine: Waiting for samples (need %d for the first estimate)", e.window.Cap())
	for {
		if ctx.Err() != nil {
			log.Infof("Engine: Shutting down")
			return nil
		}

		line, err := e.link.ReadLine()
		if errors.Is(err, serial.ErrNoData) {
			continue
		}
		if err != nil {
			return fmt.Errorf("serial read failed: %w", err)
		}
		e.HandleLine(ctx, line)
	}
}

// HandleLine processes one line from the controller.
func (e *Engine) HandleLine(ctx context.Context, line string) {
	ev := ingest.Parse(line)
	switch ev.Kind {
	case ingest.Sample:
		e.admit(ev.Sample)

	case ingest.Press:
		if id, ok := e.keymap.Lookup(ev.Button); ok {
			e.buttons.Press(id)
		} else {
			log.Debugf("Engine: Unmapped button B%d", ev.Button)
		}

	case ingest.Release:
		id, ok := e.keymap.Lookup(ev.Button)
		if !ok {
			log.Debugf("Engine: Unmapped button B%d", ev.Button)
			return
		}
		if action, ok := e.buttons.Release(id); ok {
			log.Debugf("Engine: %s released", action.Button)
			if err := e.dispatcher.Dispatch(ctx, action); err != nil {
				log.Warnf("Engine: %s failed: %v", action.Button, err)
			}
		}

	default:
		log.Debugf("Engine: Ignoring line %q", line)
	}
}

// admit pushes a sample and, once the window is full, recomputes the reading.
func (e *Engine) admit(sample int) {
	e.window.Push(sample)

	if e.recorder != nil {
		if err := e.recorder.Write(sample); err != nil {
			log.Errorf("Engine: Recording stopped: %v", err)
			e.recorder.Close()
			e.recorder = nil
		}
	}

	if !e.window.IsFull() {
		return
	}

	e.scratch = e.window.SnapshotInto(e.scratch)
	e.last = e.estimator.Estimate(e.scratch)
	score, tier := e.composer.Update(e.last)
	e.sequence++

	if e.sequence == 1 {
		log.Infof("Engine: Window full, estimates start")
	}
	if e.sequence%uint64(e.config.Analysis.SampleRate) == 0 {
		log.Infof("Engine: BPM %.1f  RR %.1f  arousal %.2f (%s)", e.last.BPM, e.last.RR, score, tier)
	}

	reading := transport.Reading{
		Session:   e.session,
		Sequence:  e.sequence,
		BPM:       e.last.BPM,
		RR:        e.last.RR,
		Score:     score,
		Tier:      tier.String(),
		Timestamp: e.now(),
	}
	if err := e.transport.Send(reading); err != nil {
		log.Debugf("Engine: Publishing reading %d failed: %v", e.sequence, err)
	}
}

// Session returns the identifier attached to every published reading.
func (e *Engine) Session() string {
	return e.session
}

// Reading returns the latest spectral reading and whether one exists.
func (e *Engine) Reading() (analysis.Reading, bool) {
	return e.last, e.composer.Ready()
}

// Arousal returns the latest arousal score and tier.
func (e *Engine) Arousal() (float64, analysis.Tier) {
	return e.composer.Score(), e.composer.Tier()
}

// Spectrum returns the bin frequencies and magnitudes behind the latest reading,
// or nil when the estimator does not expose them.
func (e *Engine) Spectrum() (freqs, mags []float64) {
	sp, ok := e.estimator.(analysis.SpectrumProvider)
	if !ok {
		return nil, nil
	}
	mags = sp.GetMagnitudes()
	freqs = make([]float64, len(mags))
	for i := range freqs {
		freqs[i] = sp.GetFrequencyForBin(i)
	}
	return freqs, mags
}

// WindowLen returns the number of samples currently buffered.
func (e *Engine) WindowLen() int {
	return e.window.Len()
}

// Dispatcher exposes the playback dispatcher.
func (e *Engine) Dispatcher() *player.Dispatcher {
	return e.dispatcher
}

// Close releases the recorder, the transports and the link. Calling it more
// than once is a no-op.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	var errs []error
	if e.recorder != nil {
		if err := e.recorder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("recorder: %w", err))
		}
		e.recorder = nil
	}
	if err := e.transport.Close(); err != nil {
		errs = append(errs, fmt.Errorf("transport: %w", err))
	}
	if err := e.link.Close(); err != nil {
		errs = append(errs, fmt.Errorf("link: %w", err))
	}
	return errors.Join(errs...)
}
