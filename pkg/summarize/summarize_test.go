package summarize

import (
	"strings"
	"testing"

	"github.com/confabhq/confab/pkg/meeting"
)

func seg(speaker, text string) *meeting.Segment {
	return &meeting.Segment{Speaker: speaker, Text: text}
}

func TestBuildTranscript(t *testing.T) {
	got := buildTranscript([]*meeting.Segment{
		seg("alice", "hello everyone"),
		seg("bob", "hi alice"),
	})
	want := "alice: hello everyone\nbob: hi alice"
	if got != want {
		t.Errorf("got %q want %q", got, want)
	}
}

func TestBuildTranscriptKeepsRecentWithinBudget(t *testing.T) {
	long := strings.Repeat("x", maxTranscriptChars-10)
	segments := []*meeting.Segment{
		seg("old", long),
		seg("mid", "middle line"),
		seg("new", "latest line"),
	}
	got := buildTranscript(segments)
	if strings.Contains(got, "old:") {
		t.Error("oldest oversized segment survived")
	}
	if !strings.HasSuffix(got, "new: latest line") {
		t.Errorf("transcript tail=%q", got[max(0, len(got)-40):])
	}
	if !strings.HasPrefix(got, "mid: middle line") {
		t.Errorf("transcript head=%q", got[:min(40, len(got))])
	}
}

func TestDecode(t *testing.T) {
	t.Run("clean", func(t *testing.T) {
		s, err := decode([]byte(`{"overview":"ok","topics":["budget"],"sentiment":"neutral"}`))
		if err != nil {
			t.Fatal(err)
		}
		if s.Overview != "ok" || len(s.Topics) != 1 {
			t.Errorf("summary=%+v", s)
		}
	})

	t.Run("fenced and truncated", func(t *testing.T) {
		raw := "```json\n{\"overview\": \"cut short\", \"keyPoints\": [\"a\", \"b\"\n```"
		s, err := decode([]byte(raw))
		if err != nil {
			t.Fatal(err)
		}
		if s.Overview != "cut short" || len(s.KeyPoints) != 2 {
			t.Errorf("summary=%+v", s)
		}
	})

	t.Run("hopeless", func(t *testing.T) {
		if _, err := decode([]byte(`"just a string"`)); err == nil {
			t.Fatal("no error")
		}
	})
}

func TestBuildDecisionNotes(t *testing.T) {
	notes := buildDecisionNotes([]*meeting.Decision{
		{Description: "ship by Friday", Status: meeting.DecisionAgreed},
	})
	if !strings.Contains(notes, "[agreed] ship by Friday") {
		t.Errorf("notes=%q", notes)
	}
	if buildDecisionNotes(nil) != "" {
		t.Error("non-empty notes for no decisions")
	}
}

func TestAsInsight(t *testing.T) {
	ins := AsInsight("m1", "i1", &Summary{
		Overview:    "short meeting",
		ActionItems: []string{"bob files the ticket"},
	})
	if ins.Kind != "summary" || ins.MeetingID != "m1" {
		t.Errorf("insight=%+v", ins)
	}
	if !strings.Contains(ins.Content, "bob files the ticket") {
		t.Errorf("content=%q", ins.Content)
	}
}
