package analyze

import (
	"strings"
	"time"
)

// Engagement is one participant's engagement in the window.
type Engagement struct {
	// Level is the blended engagement score, clamped to [0, 100].
	Level float64 `json:"level"`

	SpeakingTime time.Duration `json:"speakingTime"`
	Interactions int           `json:"interactions"` // turns taken
	Questions    int           `json:"questions"`
	VoiceEnergy  float64       `json:"voiceEnergy"` // mean energy in [0,1], 0.5 baseline when unknown
}

const (
	// fullSpeakingTime is the speaking time that earns a full
	// speaking-time component score.
	fullSpeakingTime = time.Minute

	// fullInteractions and fullQuestions saturate their components.
	fullInteractions = 10
	fullQuestions    = 5
)

// engagement computes per-speaker engagement over the window.
// With no data the map is empty; pipeline callers treat a missing
// speaker as the 50-point baseline.
func (a *Analyzer) engagement() map[string]Engagement {
	out := make(map[string]Engagement)
	if len(a.window) == 0 {
		return out
	}

	var prevSpeaker string
	type acc struct {
		speaking  time.Duration
		turns     int
		questions int
		energySum float64
		energyN   int
	}
	accs := make(map[string]*acc)
	for _, seg := range a.window {
		st := accs[seg.Speaker]
		if st == nil {
			st = &acc{}
			accs[seg.Speaker] = st
		}
		st.speaking += seg.Duration()
		if seg.Speaker != prevSpeaker {
			st.turns++
			prevSpeaker = seg.Speaker
		}
		st.questions += strings.Count(seg.Text, "?")
		if seg.Voice != nil {
			st.energySum += seg.Voice.Energy
			st.energyN++
		}
	}

	w := a.cfg.Weights
	for speaker, st := range accs {
		energy := 0.5 // neutral baseline when no voice stats
		if st.energyN > 0 {
			energy = st.energySum / float64(st.energyN)
		}
		level := 100 * (w.SpeakingTime*clamp01(float64(st.speaking)/float64(fullSpeakingTime)) +
			w.Interaction*clamp01(float64(st.turns)/fullInteractions) +
			w.Questions*clamp01(float64(st.questions)/fullQuestions) +
			w.Voice*clamp01(energy))
		out[speaker] = Engagement{
			Level:        clamp100(level),
			SpeakingTime: st.speaking,
			Interactions: st.turns,
			Questions:    st.questions,
			VoiceEnergy:  energy,
		}
	}
	return out
}
