// SPDX-License-Identifier: MIT

// Package catalog holds the immutable emotion x arousal tier song table.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"

	"biotune/internal/analysis"

	"gopkg.in/yaml.v3"
)

//go:embed builtin.yaml
var builtinYAML []byte

// Catalog errors.
var (
	ErrEmptyCatalog   = errors.New("catalog has no emotions")
	ErrMissingTier    = errors.New("catalog emotion is missing an arousal tier")
	ErrUnknownDefault = errors.New("catalog default category is not a known emotion")
	ErrTrackID        = errors.New("track id must be 1 to 4 decimal digits")
)

var tiers = []analysis.Tier{analysis.TierLow, analysis.TierMedium, analysis.TierHigh}

// Track is a single playable entry.
type Track struct {
	ID    string `yaml:"id"`    // Zero-padded 4 digit file number.
	Title string `yaml:"title"` // Sent after the id so the player can display it.
}

// file is the on-disk layout of a catalog.
type file struct {
	DefaultCategory string                        `yaml:"default_category"`
	Emotions        map[string]map[string][]Track `yaml:"emotions"`
}

// Catalog maps (emotion, tier) onto an ordered set of tracks. It is built once at
// startup and never mutated, so Lookup is safe from any goroutine.
type Catalog struct {
	entries         map[string]map[analysis.Tier][]Track
	defaultCategory string
}

// Builtin returns the catalog compiled into the binary.
func Builtin() *Catalog {
	c, err := Parse(builtinYAML)
	if err != nil {
		panic(fmt.Sprintf("builtin catalog is invalid: %v", err))
	}
	return c
}

// Load reads a catalog from a YAML file. An empty path returns the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Builtin(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(f.Emotions) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{
		entries:         make(map[string]map[analysis.Tier][]Track, len(f.Emotions)),
		defaultCategory: normalize(f.DefaultCategory),
	}
	for emotion, byTier := range f.Emotions {
		key := normalize(emotion)
		c.entries[key] = make(map[analysis.Tier][]Track, len(tiers))
		for name, tracks := range byTier {
			tier, err := analysis.ParseTier(name)
			if err != nil {
				return nil, fmt.Errorf("emotion %q: %w", emotion, err)
			}
			normalized := make([]Track, 0, len(tracks))
			for _, tr := range tracks {
				id, err := normalizeID(tr.ID)
				if err != nil {
					return nil, fmt.Errorf("emotion %q tier %s: %w: %q", emotion, tier, ErrTrackID, tr.ID)
				}
				normalized = append(normalized, Track{ID: id, Title: strings.TrimSpace(tr.Title)})
			}
			c.entries[key][tier] = normalized
		}
		for _, tier := range tiers {
			if len(c.entries[key][tier]) == 0 {
				return nil, fmt.Errorf("%w: %s/%s", ErrMissingTier, emotion, tier.Key())
			}
		}
	}
	if _, ok := c.entries[c.defaultCategory]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDefault, f.DefaultCategory)
	}
	return c, nil
}

// Lookup returns the candidate tracks for emotion and tier. Emotions outside the
// catalog's vocabulary, including the empty "absent" emotion, resolve to the
// default category. The result is never empty.
func (c *Catalog) Lookup(emotion string, tier analysis.Tier) []Track {
	return slices.Clone(c.entries[c.Resolve(emotion)][tier])
}

// Resolve returns the category Lookup will use for emotion.
func (c *Catalog) Resolve(emotion string) string {
	key := normalize(emotion)
	if _, ok := c.entries[key]; ok {
		return key
	}
	return c.defaultCategory
}

// Known reports whether emotion is part of the catalog vocabulary.
func (c *Catalog) Known(emotion string) bool {
	_, ok := c.entries[normalize(emotion)]
	return ok
}

// Emotions returns the vocabulary in alphabetical order.
func (c *Catalog) Emotions() []string {
	out := make([]string, 0, len(c.entries))
	for e := range c.entries {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// DefaultCategory returns the fallback emotion.
func (c *Catalog) DefaultCategory() string {
	return c.defaultCategory
}

// WithDefault returns a copy of the catalog that falls back to category instead.
func (c *Catalog) WithDefault(category string) (*Catalog, error) {
	key := normalize(category)
	if _, ok := c.entries[key]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDefault, category)
	}
	return &Catalog{entries: c.entries, defaultCategory: key}, nil
}

func normalize(emotion string) string {
	return strings.ToLower(strings.TrimSpace(emotion))
}

// normalizeID left-pads numeric ids to the 4 digits the player expects.
func normalizeID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > 4 {
		return "", ErrTrackID
	}
	n, err := strconv.Atoi(id)
	if err != nil || n < 0 || strings.ContainsAny(id, "+-") {
		return "", ErrTrackID
	}
	return fmt.Sprintf("%04d", n), nil
}
