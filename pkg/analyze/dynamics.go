package analyze

import (
	"math"
	"time"
)

// Pattern classifies the conversation shape in the window.
type Pattern string

const (
	PatternMonologue  Pattern = "monologue"
	PatternDialogue   Pattern = "dialogue"
	PatternDiscussion Pattern = "discussion"
	PatternDebate     Pattern = "debate"
)

// Dynamics is the window-level conversation dynamics result.
type Dynamics struct {
	Pattern Pattern `json:"pattern"`

	// Balance is 1 - (sum |time_i - expected| / total), in [0, 1].
	// 1 means perfectly even speaking time.
	Balance float64 `json:"balance"`

	// DominantSpeaker is set when one speaker holds more than
	// DominantShare of total speaking time.
	DominantSpeaker string `json:"dominantSpeaker,omitempty"`
}

// dynamics classifies the conversation from turn counts and speaking
// time distribution.
func (a *Analyzer) dynamics() Dynamics {
	if len(a.window) == 0 {
		return Dynamics{Pattern: PatternMonologue, Balance: 1}
	}

	speaking := make(map[string]time.Duration)
	turns := make(map[string]int)
	var prev string
	var total time.Duration
	for _, seg := range a.window {
		speaking[seg.Speaker] += seg.Duration()
		total += seg.Duration()
		if seg.Speaker != prev {
			turns[seg.Speaker]++
			prev = seg.Speaker
		}
	}

	n := len(speaking)
	out := Dynamics{Balance: 1}
	if total > 0 && n > 0 {
		expected := float64(total) / float64(n)
		var dev float64
		for _, d := range speaking {
			dev += math.Abs(float64(d) - expected)
		}
		out.Balance = clamp01(1 - dev/float64(total))
		for speaker, d := range speaking {
			if float64(d)/float64(total) > DominantShare {
				out.DominantSpeaker = speaker
			}
		}
	}

	switch {
	case n <= 1:
		out.Pattern = PatternMonologue
	case n == 2:
		out.Pattern = PatternDialogue
	default:
		out.Pattern = classifyGroup(turns)
	}
	return out
}

// classifyGroup separates calm discussion from debate using the
// coefficient of variation of turn counts: rapid uneven back-and-forth
// between a few speakers reads as debate.
func classifyGroup(turns map[string]int) Pattern {
	var sum float64
	for _, t := range turns {
		sum += float64(t)
	}
	mean := sum / float64(len(turns))
	var variance float64
	for _, t := range turns {
		variance += (float64(t) - mean) * (float64(t) - mean)
	}
	variance /= float64(len(turns))
	if mean > 0 && math.Sqrt(variance)/mean > 0.8 {
		return PatternDebate
	}
	return PatternDiscussion
}
