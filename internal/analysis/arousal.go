package analysis

import (
	"fmt"
	"strings"
)

// Tier buckets an arousal score.
type Tier int

const (
	TierLow Tier = iota
	TierMedium
	TierHigh
)

// String returns the short tier name.
func (t Tier) String() string {
	switch t {
	case TierLow:
		return "low"
	case TierMedium:
		return "medium"
	case TierHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Key returns the catalog key for the tier, e.g. "medium_arousal".
func (t Tier) Key() string {
	return t.String() + "_arousal"
}

// ParseTier accepts either the short name ("low") or the catalog key ("low_arousal").
func ParseTier(s string) (Tier, error) {
	switch strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "_arousal") {
	case "low":
		return TierLow, nil
	case "medium":
		return TierMedium, nil
	case "high":
		return TierHigh, nil
	default:
		return TierLow, fmt.Errorf("unknown arousal tier %q", s)
	}
}

// ArousalWeights holds the weights and tier cut points of the arousal score.
type ArousalWeights struct {
	HeartRate   float64
	Respiration float64
	LowCut      float64 // score < LowCut is low
	HighCut     float64 // score >= HighCut is high
}

// DefaultArousalWeights returns 0.4·BPM + 0.6·RR with cut points 0.33 and 0.66.
//
// The cut points look like they were meant for a normalised score, but the rates
// are fed in per minute as they come out of the estimator. Any realistic reading
// therefore lands in the high tier; do not normalise here.
func DefaultArousalWeights() ArousalWeights {
	return ArousalWeights{
		HeartRate:   0.4,
		Respiration: 0.6,
		LowCut:      0.33,
		HighCut:     0.66,
	}
}

// ArousalComposer keeps the latest arousal score and tier.
type ArousalComposer struct {
	weights ArousalWeights
	score   float64
	tier    Tier
	ready   bool
}

// NewArousalComposer creates a composer with no reading yet. Until the first
// Update the score is 0 and the tier is low.
func NewArousalComposer(weights ArousalWeights) *ArousalComposer {
	return &ArousalComposer{weights: weights, tier: TierLow}
}

// Update recomputes the score and tier from r and returns them.
func (c *ArousalComposer) Update(r Reading) (float64, Tier) {
	c.score = c.weights.HeartRate*r.BPM + c.weights.Respiration*r.RR
	c.tier = c.Classify(c.score)
	c.ready = true
	return c.score, c.tier
}

// Classify maps a score onto a tier using the configured cut points.
func (c *ArousalComposer) Classify(score float64) Tier {
	switch {
	case score < c.weights.LowCut:
		return TierLow
	case score < c.weights.HighCut:
		return TierMedium
	default:
		return TierHigh
	}
}

// Score returns the latest arousal score.
func (c *ArousalComposer) Score() float64 { return c.score }

// Tier returns the latest arousal tier.
func (c *ArousalComposer) Tier() Tier { return c.tier }

// Ready reports whether at least one reading has been composed.
func (c *ArousalComposer) Ready() bool { return c.ready }
