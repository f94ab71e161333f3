package control

import (
	"fmt"
	"sort"
)

// Keymap maps the controller's button numbers ("B1" is 1) onto logical buttons.
type Keymap map[int]ButtonID

// DefaultKeymap matches the controller firmware: B1 play, B2 pause, B3 record.
func DefaultKeymap() Keymap {
	return Keymap{1: Play, 2: Pause, 3: Record}
}

// NewKeymap builds a keymap from configuration, e.g. {1: "play"}.
func NewKeymap(actions map[int]string) (Keymap, error) {
	km := make(Keymap, len(actions))
	for n, name := range actions {
		id, err := ParseButtonID(name)
		if err != nil {
			return nil, fmt.Errorf("button B%d: %w", n, err)
		}
		km[n] = id
	}
	return km, nil
}

// Lookup returns the logical button bound to number n.
func (k Keymap) Lookup(n int) (ButtonID, bool) {
	id, ok := k[n]
	return id, ok
}

// Buttons returns the distinct logical buttons in the keymap, in a stable order.
func (k Keymap) Buttons() []ButtonID {
	seen := make(map[ButtonID]bool, len(k))
	var out []ButtonID
	for _, id := range k {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
