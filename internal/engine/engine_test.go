package engine

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"strconv"
	"testing"
	"time"

	"biotune/internal/analysis"
	"biotune/internal/config"
	"biotune/internal/emotion"
	"biotune/internal/serial"
	"biotune/internal/transport"
	"biotune/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

// scriptedLink replays lines, then reports no data. onDrained runs once when
// the script is exhausted.
type scriptedLink struct {
	lines     []string
	err       error
	onDrained func()
	writes    []string
	discards  int
	closed    int
}

func (l *scriptedLink) ReadLine() (string, error) {
	if len(l.lines) == 0 {
		if l.err != nil {
			return "", l.err
		}
		if l.onDrained != nil {
			l.onDrained()
			l.onDrained = nil
		}
		return "", serial.ErrNoData
	}
	line := l.lines[0]
	l.lines = l.lines[1:]
	return line, nil
}

func (l *scriptedLink) Write(p []byte) (int, error) {
	l.writes = append(l.writes, string(p))
	return len(p), nil
}

func (l *scriptedLink) Discard() error { l.discards++; return nil }
func (l *scriptedLink) Close() error   { l.closed++; return nil }

func sampleLines(samples []int) []string {
	out := make([]string, len(samples))
	for i, s := range samples {
		out[i] = strconv.Itoa(s)
	}
	return out
}

func newTestEngine(t *testing.T, link Link, capturer emotion.Capturer, tr transport.Transport) *Engine {
	t.Helper()
	cfg := config.Default()
	cfg.Emotion.CaptureDuration = time.Millisecond
	e, err := NewEngine(cfg, link, Options{
		Capturer:  capturer,
		Transport: tr,
		Rand:      rand.New(rand.NewPCG(5, 6)),
		Summary:   io.Discard,
	})
	require.NoError(t, err)
	return e
}

func TestRunFullSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lines := sampleLines(utils.GenerateSineWave(510, 50, 1.2, 100))
	lines = append(lines, "B3", "noise", "B3_RELEASE", "B1", "B1", "B1_RELEASE", "B2", "B2_RELEASE")
	link := &scriptedLink{lines: lines, onDrained: cancel}
	mock := &utils.MockTransport{}
	capturer := emotion.CapturerFunc(func(context.Context, time.Duration) (string, error) {
		return "happy", nil
	})

	e := newTestEngine(t, link, capturer, mock)
	require.NoError(t, e.Run(ctx))

	// 510 samples into a 500 sample window: one reading per sample once full.
	require.Len(t, mock.Sent, 11)
	last := mock.Last().(transport.Reading)
	assert.Equal(t, uint64(11), last.Sequence)
	assert.Equal(t, e.Session(), last.Session)
	assert.InDelta(t, 72, last.BPM, 6)
	assert.Equal(t, 0.0, last.RR)
	assert.Equal(t, "high", last.Tier)
	assert.Equal(t, 500, e.WindowLen())

	reading, ok := e.Reading()
	require.True(t, ok)
	assert.InDelta(t, 72, reading.BPM, 6)

	freqs, mags := e.Spectrum()
	require.Len(t, freqs, 249)
	require.Len(t, mags, 249)
	assert.InDelta(t, 1.2, freqs[floats.MaxIdx(mags)], 1e-9)

	// Record, then Play (one action despite the double press), then Pause.
	assert.Equal(t, 1, link.discards)
	require.Len(t, link.writes, 3)
	assert.Contains(t, []string{"0007", "0008", "0009"}, link.writes[0])
	assert.Equal(t, "PAUSE\n", link.writes[2])
	assert.False(t, e.Dispatcher().Playing())

	rec, ok := e.Dispatcher().LastRecord()
	require.True(t, ok)
	assert.Equal(t, "happy", rec.Emotion)
	assert.Equal(t, analysis.TierHigh, rec.Tier)

	assert.Equal(t, 1, link.closed)
	assert.True(t, mock.Closed)
}

func TestFlatSignalGivesZeroRates(t *testing.T) {
	link := &scriptedLink{}
	mock := &utils.MockTransport{}
	e := newTestEngine(t, link, nil, mock)

	for range 500 {
		e.HandleLine(context.Background(), "512")
	}
	require.Len(t, mock.Sent, 1)
	r := mock.Last().(transport.Reading)
	assert.Equal(t, 0.0, r.BPM)
	assert.Equal(t, 0.0, r.RR)
	assert.Equal(t, "low", r.Tier)
}

func TestNoReadingBeforeWindowFull(t *testing.T) {
	link := &scriptedLink{}
	mock := &utils.MockTransport{}
	e := newTestEngine(t, link, nil, mock)

	for range 499 {
		e.HandleLine(context.Background(), "600")
	}
	assert.Empty(t, mock.Sent)
	_, ok := e.Reading()
	assert.False(t, ok)
	assert.Equal(t, 499, e.WindowLen())
}

func TestPlayWithoutRecordResumes(t *testing.T) {
	link := &scriptedLink{}
	e := newTestEngine(t, link, nil, &utils.MockTransport{})

	ctx := context.Background()
	e.HandleLine(ctx, "B1_RELEASE") // lone release
	e.HandleLine(ctx, "B1")
	e.HandleLine(ctx, "B1_RELEASE")
	e.HandleLine(ctx, "B9")
	e.HandleLine(ctx, "B9_RELEASE")

	assert.Equal(t, []string{"PLAY\n"}, link.writes)
	assert.True(t, e.Dispatcher().Playing())
}

func TestRunReadErrorClosesEverything(t *testing.T) {
	boom := errors.New("device unplugged")
	link := &scriptedLink{lines: []string{"1", "2"}, err: boom}
	mock := &utils.MockTransport{}
	e := newTestEngine(t, link, nil, mock)

	err := e.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, link.closed)
	assert.True(t, mock.Closed)

	require.NoError(t, e.Close())
	assert.Equal(t, 1, link.closed)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	link := &scriptedLink{lines: []string{"1"}}
	e := newTestEngine(t, link, nil, &utils.MockTransport{})
	require.NoError(t, e.Run(ctx))
	assert.Len(t, link.lines, 1)
	assert.Equal(t, 1, link.closed)
}

func TestNewEngineRejectsBadConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Buttons = map[int]string{1: "rewind"}
	_, err := NewEngine(cfg, &scriptedLink{}, Options{})
	assert.Error(t, err)

	cfg = config.Default()
	cfg.Analysis.HeartRateBand = []float64{2}
	_, err = NewEngine(cfg, &scriptedLink{}, Options{})
	assert.Error(t, err)

	_, err = NewEngine(config.Default(), nil, Options{})
	assert.Error(t, err)
}

func TestPlayTierFollowsLiveReading(t *testing.T) {
	link := &scriptedLink{}
	capturer := emotion.CapturerFunc(func(context.Context, time.Duration) (string, error) {
		return "happy", nil
	})
	e := newTestEngine(t, link, capturer, &utils.MockTransport{})
	ctx := context.Background()

	// Recorded before any reading: the record's tier (low) drives Play.
	e.HandleLine(ctx, "B3")
	e.HandleLine(ctx, "B3_RELEASE")
	rec, ok := e.Dispatcher().LastRecord()
	require.True(t, ok)
	assert.Equal(t, analysis.TierLow, rec.Tier)

	e.HandleLine(ctx, "B1")
	e.HandleLine(ctx, "B1_RELEASE")
	require.Len(t, link.writes, 2)
	assert.Contains(t, []string{"0001", "0002", "0003"}, link.writes[0])

	// A full window arrives: the live tier (high) replaces the stored one.
	for _, line := range sampleLines(utils.GenerateSineWave(500, 50, 1.2, 100)) {
		e.HandleLine(ctx, line)
	}
	_, tier := e.Arousal()
	require.Equal(t, analysis.TierHigh, tier)

	e.HandleLine(ctx, "B1")
	e.HandleLine(ctx, "B1_RELEASE")
	require.Len(t, link.writes, 4)
	assert.Contains(t, []string{"0007", "0008", "0009"}, link.writes[2])

	rec, _ = e.Dispatcher().LastRecord()
	assert.Equal(t, analysis.TierLow, rec.Tier)
}
