// SPDX-License-Identifier: MIT

// Package emotion talks to the external facial emotion classifier.
package emotion

import (
	"context"
	"sort"
	"strings"
	"time"
)

// Capturer observes the listener for a bounded duration and returns the dominant
// emotion label. An empty label with a nil error means nothing was recognised.
type Capturer interface {
	Capture(ctx context.Context, duration time.Duration) (string, error)
}

// CapturerFunc adapts a plain function to Capturer.
type CapturerFunc func(ctx context.Context, duration time.Duration) (string, error)

// Capture calls f.
func (f CapturerFunc) Capture(ctx context.Context, duration time.Duration) (string, error) {
	return f(ctx, duration)
}

// NoopCapturer never recognises anything. It is used when no classifier is configured.
type NoopCapturer struct{}

// Capture returns an empty label immediately.
func (NoopCapturer) Capture(context.Context, time.Duration) (string, error) {
	return "", nil
}

// Dominant returns the most frequent non-empty label, lowercased. Ties go to
// the label that sorts first so the result does not depend on frame order.
func Dominant(labels []string) string {
	counts := make(map[string]int, len(labels))
	for _, l := range labels {
		l = strings.ToLower(strings.TrimSpace(l))
		if l != "" {
			counts[l]++
		}
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	best, bestCount := "", 0
	for _, k := range keys {
		if counts[k] > bestCount {
			best, bestCount = k, counts[k]
		}
	}
	return best
}

var (
	_ Capturer = CapturerFunc(nil)
	_ Capturer = NoopCapturer{}
	_ Capturer = (*HTTPCapturer)(nil)
)
