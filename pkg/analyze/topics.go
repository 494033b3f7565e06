package analyze

import (
	"sort"
	"strings"
	"time"

	"github.com/confabhq/confab/pkg/meeting"
)

// ShiftKind classifies how the discussion moved to a new topic.
type ShiftKind string

const (
	ShiftNatural        ShiftKind = "natural"
	ShiftQuestionDriven ShiftKind = "question-driven"
	ShiftAbrupt         ShiftKind = "abrupt"
)

// TopicShift describes a detected change in the active topic set.
type TopicShift struct {
	From []string  `json:"from"`
	To   []string  `json:"to"`
	Kind ShiftKind `json:"kind"`
}

// Topics is the window-level topic result.
type Topics struct {
	// Active lists topic categories with >= minTopicHits keyword
	// co-occurrences in the window, sorted by name.
	Active []string `json:"active"`

	// Shift is non-nil when the active set changed since the last
	// computation.
	Shift *TopicShift `json:"shift,omitempty"`
}

// topics recomputes the active topic set and detects shifts.
func (a *Analyzer) topics(now time.Time) Topics {
	hits := make(map[string]int)
	for _, seg := range a.window {
		words := tokenize(seg.Text)
		for topic, kws := range topicCategories {
			for _, kw := range kws {
				if containsWord(words, kw) {
					hits[topic]++
				}
			}
		}
	}

	active := make(map[string]bool)
	for topic, n := range hits {
		if n >= minTopicHits {
			active[topic] = true
		}
	}

	out := Topics{Active: sortedKeys(active)}
	if !sameSet(active, a.activeTopics) {
		shift := &TopicShift{
			From: sortedKeys(a.activeTopics),
			To:   out.Active,
			Kind: a.classifyShift(active),
		}
		// Only report a shift once something was active before;
		// the first topic of a meeting is not a shift.
		if len(a.activeTopics) > 0 {
			out.Shift = shift
		}
		a.updateTopicMarker(active, now)
		a.activeTopics = active
	} else if a.topic != nil {
		a.topic.Depth = len(a.window)
	}
	return out
}

// classifyShift decides natural vs question-driven vs abrupt.
// A question in the most recent segments marks the shift question
// driven; no overlap between old and new sets marks it abrupt.
func (a *Analyzer) classifyShift(next map[string]bool) ShiftKind {
	n := len(a.window)
	for i := n - 1; i >= 0 && i >= n-2; i-- {
		if strings.Contains(a.window[i].Text, "?") {
			return ShiftQuestionDriven
		}
	}
	for topic := range next {
		if a.activeTopics[topic] {
			return ShiftNatural
		}
	}
	if len(a.activeTopics) == 0 || len(next) == 0 {
		return ShiftNatural
	}
	return ShiftAbrupt
}

// updateTopicMarker replaces the ephemeral current-topic marker.
func (a *Analyzer) updateTopicMarker(active map[string]bool, now time.Time) {
	names := sortedKeys(active)
	if len(names) == 0 {
		a.topic = nil
		return
	}
	a.topic = &meeting.Topic{
		Name:          names[0],
		StartTime:     now,
		Depth:         len(a.window),
		RelatedTopics: names[1:],
	}
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sameSet(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
