// Package summarize produces the end-of-meeting summary from the full
// transcript and the tracked decisions.
package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"

	"github.com/confabhq/confab/pkg/meeting"
)

// Summary is the structured result pushed to clients and persisted as
// the final meeting insight.
type Summary struct {
	Overview    string   `json:"overview"`
	KeyPoints   []string `json:"keyPoints"`
	ActionItems []string `json:"actionItems"`
	Topics      []string `json:"topics"`
	Sentiment   string   `json:"sentiment"`
}

// Input is everything the summarizer sees.
type Input struct {
	MeetingID string
	Title     string
	Duration  time.Duration
	Segments  []*meeting.Segment
	Decisions []*meeting.Decision
}

// Summarizer turns a finished meeting into a Summary.
type Summarizer interface {
	Summarize(ctx context.Context, in Input) (*Summary, error)
}

// Func adapts a function to the Summarizer interface.
type Func func(ctx context.Context, in Input) (*Summary, error)

func (f Func) Summarize(ctx context.Context, in Input) (*Summary, error) {
	return f(ctx, in)
}

var ErrEmptyTranscript = errors.New("summarize: empty transcript")

// maxTranscriptChars bounds the prompt size; older segments are
// dropped first.
const maxTranscriptChars = 262144

// buildTranscript renders segments as "speaker: text" lines, keeping
// the most recent lines within the size budget.
func buildTranscript(segments []*meeting.Segment) string {
	lines := make([]string, 0, len(segments))
	total := 0
	for i := len(segments) - 1; i >= 0; i-- {
		line := fmt.Sprintf("%s: %s", segments[i].Speaker, segments[i].Text)
		if total+len(line) > maxTranscriptChars {
			break
		}
		total += len(line)
		lines = append(lines, line)
	}
	// Restore chronological order.
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return strings.Join(lines, "\n")
}

func buildDecisionNotes(decisions []*meeting.Decision) string {
	if len(decisions) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Decisions tracked during the meeting:\n")
	for _, d := range decisions {
		fmt.Fprintf(&b, "- [%s] %s\n", d.Status, d.Description)
	}
	return b.String()
}

// decode unmarshals model output into a Summary, repairing malformed
// JSON on syntax errors before giving up.
func decode(data []byte) (*Summary, error) {
	var s Summary
	err := json.Unmarshal(data, &s)
	if err == nil {
		return &s, nil
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		fixed, rerr := jsonrepair.JSONRepair(string(data))
		if rerr != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(fixed), &s); err != nil {
			return nil, err
		}
		return &s, nil
	}
	return nil, err
}
