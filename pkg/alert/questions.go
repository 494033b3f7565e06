package alert

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/confabhq/confab/pkg/meeting"
)

// UnansweredAfter is how long a question may stay open before a
// low-priority alert is raised.
const UnansweredAfter = 120 * time.Second

// openQuestion is a tracked question awaiting an answer.
type openQuestion struct {
	speaker string
	text    string
	words   map[string]bool
	askedAt time.Time
}

// QuestionTracker watches for questions (text ending in '?') and
// raises a low-priority alert when one stays unanswered past
// UnansweredAfter. An answer is detected heuristically: a later
// segment from another speaker sharing enough content words with the
// question.
type QuestionTracker struct {
	open []*openQuestion
	emit func(*meeting.Alert)
}

// NewQuestionTracker creates a tracker that pushes alerts via emit.
func NewQuestionTracker(emit func(*meeting.Alert)) *QuestionTracker {
	return &QuestionTracker{emit: emit}
}

// Observe inspects one segment: it may answer open questions and may
// open a new one.
func (t *QuestionTracker) Observe(seg *meeting.Segment) {
	words := contentWords(seg.Text)

	// Answer check against all open questions from other speakers.
	kept := t.open[:0]
	for _, q := range t.open {
		if seg.Speaker != q.speaker && overlap(q.words, words) >= 2 {
			continue // answered
		}
		kept = append(kept, q)
	}
	t.open = kept

	if text := strings.TrimSpace(seg.Text); strings.HasSuffix(text, "?") {
		t.open = append(t.open, &openQuestion{
			speaker: seg.Speaker,
			text:    text,
			words:   words,
			askedAt: seg.EndTime,
		})
	}
}

// Sweep raises alerts for questions open longer than UnansweredAfter.
func (t *QuestionTracker) Sweep(meetingID string, now time.Time) {
	kept := t.open[:0]
	for _, q := range t.open {
		if now.Sub(q.askedAt) < UnansweredAfter {
			kept = append(kept, q)
			continue
		}
		t.emit(&meeting.Alert{
			ID:        uuid.NewString(),
			MeetingID: meetingID,
			RuleID:    "sys-unanswered-question",
			Priority:  meeting.PriorityLow,
			Message:   fmt.Sprintf("question unanswered for %s: %q", UnansweredAfter, q.text),
			Context:   map[string]string{"speaker": q.speaker, "question": q.text},
			Speaker:   q.speaker,
			CreatedAt: now,
		})
	}
	t.open = kept
}

// Open returns the number of currently open questions.
func (t *QuestionTracker) Open() int { return len(t.open) }

// contentWords extracts lowercase words longer than 3 runes, the
// overlap basis for answer detection.
func contentWords(text string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?;:()\"'")
		if len(w) > 3 {
			out[w] = true
		}
	}
	return out
}

func overlap(a, b map[string]bool) int {
	n := 0
	for w := range a {
		if b[w] {
			n++
		}
	}
	return n
}
