package analyze

import (
	"time"

	"github.com/confabhq/confab/pkg/meeting"
)

const (
	// DefaultWindow is the rolling window length.
	DefaultWindow = 30 * time.Second

	// TickInterval is the fixed recompute cadence.
	TickInterval = time.Second

	// DominantShare is the speaking-time share above which a speaker
	// is flagged dominant.
	DominantShare = 0.4
)

// EngagementWeights blends the engagement components. Fields should
// sum to roughly 1.
type EngagementWeights struct {
	SpeakingTime float64
	Interaction  float64
	Questions    float64
	Voice        float64
}

// DefaultEngagementWeights per the tuning baseline.
var DefaultEngagementWeights = EngagementWeights{
	SpeakingTime: 0.3,
	Interaction:  0.2,
	Questions:    0.3,
	Voice:        0.2,
}

// Config tunes the Analyzer.
type Config struct {
	// Window overrides DefaultWindow. Zero selects the default.
	Window time.Duration

	// Weights overrides DefaultEngagementWeights when non-zero.
	Weights EngagementWeights
}

// Analyzer maintains the sliding window for one meeting.
type Analyzer struct {
	cfg Config

	window []*meeting.Segment

	// activeTopics is the topic set from the previous computation,
	// used to detect shifts.
	activeTopics map[string]bool
	topic        *meeting.Topic
}

// New creates an Analyzer.
func New(cfg Config) *Analyzer {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Weights == (EngagementWeights{}) {
		cfg.Weights = DefaultEngagementWeights
	}
	return &Analyzer{cfg: cfg, activeTopics: make(map[string]bool)}
}

// Add inserts a segment and trims the window. It returns true when the
// segment matches the important keyword set, signalling the caller to
// recompute immediately rather than waiting for the tick.
func (a *Analyzer) Add(seg *meeting.Segment) bool {
	a.window = append(a.window, seg)
	a.trim(seg.EndTime)
	return IsImportant(seg.Text)
}

// trim drops segments entirely older than the window.
func (a *Analyzer) trim(now time.Time) {
	cutoff := now.Add(-a.cfg.Window)
	i := 0
	for i < len(a.window) && a.window[i].EndTime.Before(cutoff) {
		i++
	}
	a.window = a.window[i:]
}

// WindowLen returns the number of segments currently in the window.
func (a *Analyzer) WindowLen() int { return len(a.window) }

// Snapshot is the output of one analysis pass.
type Snapshot struct {
	At         time.Time                   `json:"at"`
	Sentiment  Sentiment                   `json:"sentiment"`
	Emotion    Emotion                     `json:"emotion"`
	Topics     Topics                      `json:"topics"`
	Engagement map[string]Engagement       `json:"engagement"`
	Dynamics   Dynamics                    `json:"dynamics"`
}

// Analyze recomputes all analyses over the current window.
func (a *Analyzer) Analyze(now time.Time) *Snapshot {
	a.trim(now)
	return &Snapshot{
		At:         now,
		Sentiment:  a.sentiment(),
		Emotion:    a.emotion(),
		Topics:     a.topics(now),
		Engagement: a.engagement(),
		Dynamics:   a.dynamics(),
	}
}

// CurrentTopic returns the active topic marker, or nil.
func (a *Analyzer) CurrentTopic() *meeting.Topic { return a.topic }

// clamp01 bounds v to [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// clamp100 bounds v to [0, 100].
func clamp100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
