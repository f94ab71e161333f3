package player

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"testing"
	"time"

	"biotune/internal/analysis"
	"biotune/internal/catalog"
	"biotune/internal/control"
	"biotune/internal/emotion"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingLink keeps every write separately so two-part commands can be checked.
type recordingLink struct {
	writes [][]byte
	err    error
}

func (l *recordingLink) Write(b []byte) (int, error) {
	if l.err != nil {
		return 0, l.err
	}
	l.writes = append(l.writes, append([]byte(nil), b...))
	return len(b), nil
}

func (l *recordingLink) strings() []string {
	out := make([]string, len(l.writes))
	for i, w := range l.writes {
		out[i] = string(w)
	}
	return out
}

type fixedArousal struct {
	score float64
	tier  analysis.Tier
	ready bool
}

func (a *fixedArousal) Score() float64      { return a.score }
func (a *fixedArousal) Tier() analysis.Tier { return a.tier }
func (a *fixedArousal) Ready() bool         { return a.ready }

func staticCapturer(label string, err error) emotion.Capturer {
	return emotion.CapturerFunc(func(context.Context, time.Duration) (string, error) {
		return label, err
	})
}

func newTestDispatcher(t *testing.T, link io.Writer, capturer emotion.Capturer, arousal Arousal) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(Config{
		Link:            link,
		Catalog:         catalog.Builtin(),
		Capturer:        capturer,
		Arousal:         arousal,
		Rand:            rand.New(rand.NewPCG(1, 2)),
		CaptureDuration: time.Millisecond,
		Summary:         io.Discard,
	})
	require.NoError(t, err)
	return d
}

func TestNewDispatcherRequiresCollaborators(t *testing.T) {
	_, err := NewDispatcher(Config{Catalog: catalog.Builtin(), Arousal: &fixedArousal{}})
	assert.Error(t, err)
	_, err = NewDispatcher(Config{Link: io.Discard, Arousal: &fixedArousal{}})
	assert.Error(t, err)
	_, err = NewDispatcher(Config{Link: io.Discard, Catalog: catalog.Builtin()})
	assert.Error(t, err)
}

func TestPlayWithoutRecordResumes(t *testing.T) {
	link := &recordingLink{}
	d := newTestDispatcher(t, link, nil, &fixedArousal{})

	track, err := d.Play()
	require.NoError(t, err)
	assert.Equal(t, catalog.Track{}, track)
	assert.Equal(t, []string{"PLAY\n"}, link.strings())
	assert.True(t, d.Playing())
}

func TestPauseIsIdempotent(t *testing.T) {
	link := &recordingLink{}
	d := newTestDispatcher(t, link, nil, &fixedArousal{})

	require.NoError(t, d.Pause())
	require.NoError(t, d.Pause())
	assert.Equal(t, []string{"PAUSE\n", "PAUSE\n"}, link.strings())
	assert.False(t, d.Playing())
}

func TestPlayHappyMedium(t *testing.T) {
	allowed := map[string]bool{"0004": true, "0005": true, "0006": true}

	for seed := range uint64(20) {
		link := &recordingLink{}
		d := newTestDispatcher(t, link, staticCapturer("happy", nil), &fixedArousal{score: 0.5, tier: analysis.TierMedium, ready: true})
		d.cfg.Rand = rand.New(rand.NewPCG(seed, seed))

		d.Record(context.Background())
		track, err := d.Play()
		require.NoError(t, err)

		require.Len(t, link.writes, 2)
		assert.True(t, allowed[string(link.writes[0])], "unexpected id %q", link.writes[0])
		assert.Equal(t, track.ID, string(link.writes[0]))
		assert.Equal(t, track.Title, string(link.writes[1]))
		assert.True(t, d.Playing())
	}
}

func TestPlayPrefersLiveTier(t *testing.T) {
	arousal := &fixedArousal{score: 0.1, tier: analysis.TierLow}
	link := &recordingLink{}
	d := newTestDispatcher(t, link, staticCapturer("sad", nil), arousal)

	rec := d.Record(context.Background())
	assert.Equal(t, analysis.TierLow, rec.Tier)

	// No reading yet: the recorded tier is used.
	track, err := d.Play()
	require.NoError(t, err)
	assert.Contains(t, []string{"0010", "0011", "0012"}, track.ID)

	// A reading arrives: the live tier wins.
	arousal.score, arousal.tier, arousal.ready = 120, analysis.TierHigh, true
	track, err = d.Play()
	require.NoError(t, err)
	assert.Contains(t, []string{"0016", "0017", "0018"}, track.ID)
}

func TestRecordFailureFallsBackToDefault(t *testing.T) {
	link := &recordingLink{}
	d := newTestDispatcher(t, link, staticCapturer("happy", errors.New("camera busy")),
		&fixedArousal{score: 90, tier: analysis.TierHigh, ready: true})

	rec := d.Record(context.Background())
	assert.Empty(t, rec.Emotion)

	got, ok := d.LastRecord()
	require.True(t, ok)
	assert.Equal(t, rec, got)

	track, err := d.Play()
	require.NoError(t, err)
	assert.Contains(t, []string{"0034", "0035", "0036"}, track.ID)
}

func TestRecordUnknownEmotionFallsBack(t *testing.T) {
	link := &recordingLink{}
	d := newTestDispatcher(t, link, staticCapturer("surprised", nil),
		&fixedArousal{score: 0.4, tier: analysis.TierMedium, ready: true})

	d.Record(context.Background())
	track, err := d.Play()
	require.NoError(t, err)
	assert.Contains(t, []string{"0031", "0032", "0033"}, track.ID)
}

func TestRecordDiscardsBufferedInput(t *testing.T) {
	discarded := 0
	d, err := NewDispatcher(Config{
		Link:     io.Discard,
		Catalog:  catalog.Builtin(),
		Arousal:  &fixedArousal{},
		Capturer: staticCapturer("angry", nil),
		Discard:  func() error { discarded++; return nil },
		Summary:  io.Discard,
		Now:      func() time.Time { return time.Unix(100, 0) },
	})
	require.NoError(t, err)

	rec := d.Record(context.Background())
	assert.Equal(t, 1, discarded)
	assert.Equal(t, "angry", rec.Emotion)
	assert.Equal(t, time.Unix(100, 0), rec.CapturedAt)
}

func TestDispatch(t *testing.T) {
	link := &recordingLink{}
	var summary bytes.Buffer
	d, err := NewDispatcher(Config{
		Link:     link,
		Catalog:  catalog.Builtin(),
		Arousal:  &fixedArousal{score: 0.2, tier: analysis.TierLow, ready: true},
		Capturer: staticCapturer("neutral", nil),
		Rand:     rand.New(rand.NewPCG(3, 4)),
		Summary:  &summary,
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, d.Dispatch(ctx, control.Action{Button: control.Pause}))
	require.NoError(t, d.Dispatch(ctx, control.Action{Button: control.Record}))
	require.NoError(t, d.Dispatch(ctx, control.Action{Button: control.Play}))

	require.Len(t, link.writes, 3)
	assert.Equal(t, "PAUSE\n", string(link.writes[0]))
	assert.Contains(t, []string{"0028", "0029", "0030"}, string(link.writes[1]))
	assert.Contains(t, summary.String(), "Emotion : neutral")
	assert.Contains(t, summary.String(), "(low)")
}

func TestWriteErrorsAreReported(t *testing.T) {
	link := &recordingLink{err: errors.New("unplugged")}
	d := newTestDispatcher(t, link, nil, &fixedArousal{})

	assert.Error(t, d.Pause())
	assert.False(t, d.Playing())
	_, err := d.Play()
	assert.Error(t, err)
	assert.True(t, d.Playing())
}
