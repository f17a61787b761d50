package gesture

import (
	"time"

	"github.com/pleimann/gopad/internal/mapping"
)

// sequenceMatcher keeps a bounded history of recent presses and matches it
// against the profile's ordered sequences. History capacity is the longest
// configured sequence; entries older than the longest configured window are
// pruned on every record. Matching is longest-first with declaration order
// breaking ties, so [a,b,c] always beats [a,b] on the same input.
type sequenceMatcher struct {
	history []buttonEvent
}

// record appends a press and returns the matched sequence, if any. A match
// clears the history so overlapping input cannot re-trigger immediately.
func (m *sequenceMatcher) record(p *mapping.Profile, b mapping.Button, at time.Time) *mapping.Sequence {
	if p.MaxSequenceLen == 0 {
		return nil
	}

	m.history = append(m.history, buttonEvent{button: b, at: at})
	if len(m.history) > p.MaxSequenceLen {
		m.history = m.history[len(m.history)-p.MaxSequenceLen:]
	}

	cutoff := at.Add(-p.MaxSequenceWin)
	drop := 0
	for drop < len(m.history) && m.history[drop].at.Before(cutoff) {
		drop++
	}
	m.history = m.history[drop:]

	for _, seq := range p.Sequences {
		n := len(seq.Buttons)
		if n > len(m.history) {
			continue
		}
		tail := m.history[len(m.history)-n:]
		matched := true
		for i := range tail {
			if tail[i].button != seq.Buttons[i] {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}
		if tail[n-1].at.Sub(tail[0].at) > seq.Window {
			continue
		}
		m.clear()
		return seq
	}

	return nil
}

func (m *sequenceMatcher) clear() {
	m.history = m.history[:0]
}
