// Package ingest classifies the lines received from the sensor controller.
//
// Each line is either an integer sample, a button edge token ("B2" for a press,
// "B2_RELEASE" for a release), or noise that is ignored.
package ingest

import (
	"strconv"
	"strings"
)

// Kind identifies what a received line carried.
type Kind int

const (
	Ignored Kind = iota
	Sample
	Press
	Release
)

func (k Kind) String() string {
	switch k {
	case Sample:
		return "sample"
	case Press:
		return "press"
	case Release:
		return "release"
	default:
		return "ignored"
	}
}

// Event is the result of parsing one line.
type Event struct {
	Kind   Kind
	Sample int // set for Sample
	Button int // button number, set for Press and Release
}

const (
	buttonPrefix  = "B"
	releaseSuffix = "_RELEASE"
)

// Parse classifies a single line. Surrounding whitespace, including the carriage
// return some controllers send, is ignored. Anything that is neither an integer
// nor a well formed button token yields an Ignored event.
func Parse(line string) Event {
	line = strings.TrimSpace(line)
	if line == "" {
		return Event{Kind: Ignored}
	}

	if rest, ok := strings.CutPrefix(line, buttonPrefix); ok {
		kind := Press
		if r, released := strings.CutSuffix(rest, releaseSuffix); released {
			kind = Release
			rest = r
		}
		n, ok := parseButton(rest)
		if !ok {
			return Event{Kind: Ignored}
		}
		return Event{Kind: kind, Button: n}
	}

	v, err := strconv.Atoi(line)
	if err != nil {
		return Event{Kind: Ignored}
	}
	return Event{Kind: Sample, Sample: v}
}

// parseButton accepts only plain decimal digits so that "B+1" or "B-1" are noise.
func parseButton(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
