package decision

import (
	"testing"
	"time"

	"github.com/confabhq/confab/pkg/meeting"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func mkseg(speaker, text string, offset time.Duration) *meeting.Segment {
	return &meeting.Segment{
		ID:        speaker + text,
		MeetingID: "m1",
		Speaker:   speaker,
		Text:      text,
		StartTime: t0.Add(offset),
		EndTime:   t0.Add(offset + 2*time.Second),
	}
}

func newTracker() *Tracker {
	return NewTracker(Config{MeetingID: "m1"})
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func TestProposalOpensDecision(t *testing.T) {
	tr := newTracker()
	events := tr.Observe(mkseg("alice", "I suggest we ship by Friday", 0))
	if len(events) != 1 || events[0].Kind != EventProposed {
		t.Fatalf("events=%v", kinds(events))
	}
	d := tr.Active()
	if d == nil || d.Status != meeting.DecisionProposed {
		t.Fatalf("active=%+v", d)
	}
	if d.Type != "delivery" {
		t.Errorf("type=%q", d.Type)
	}
	if len(d.MadeBy) != 1 || d.MadeBy[0] != "alice" {
		t.Errorf("madeBy=%v", d.MadeBy)
	}
}

func TestDiscussionAccruesStances(t *testing.T) {
	tr := newTracker()
	tr.Observe(mkseg("alice", "I suggest we ship by Friday", 0))
	events := tr.Observe(mkseg("bob", "I agree, sounds good to me", 5*time.Second))
	if len(events) != 1 || events[0].Kind != EventUpdated {
		t.Fatalf("events=%v", kinds(events))
	}
	d := tr.Active()
	if d.Status != meeting.DecisionDiscussed {
		t.Errorf("status=%s", d.Status)
	}
	if len(d.SupportingArguments) != 1 {
		t.Errorf("supporting=%v", d.SupportingArguments)
	}

	tr.Observe(mkseg("carol", "I disagree, that won't work", 10*time.Second))
	d = tr.Active()
	if len(d.OpposingArguments) != 1 {
		t.Errorf("opposing=%v", d.OpposingArguments)
	}
	var carol *meeting.Stakeholder
	for i := range d.Stakeholders {
		if d.Stakeholders[i].Speaker == "carol" {
			carol = &d.Stakeholders[i]
		}
	}
	if carol == nil || carol.Stance != meeting.StanceOppose {
		t.Errorf("carol=%+v", carol)
	}
}

func TestExplicitFinalization(t *testing.T) {
	tests := []struct {
		text string
		want meeting.DecisionStatus
	}{
		{"ok, decision made, we ship Friday", meeting.DecisionAgreed},
		{"let's postpone this to next week", meeting.DecisionDeferred},
		{"actually, scrap that", meeting.DecisionRejected},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			tr := newTracker()
			tr.Observe(mkseg("alice", "I suggest we ship by Friday", 0))
			events := tr.Observe(mkseg("bob", tt.text, 5*time.Second))
			if !isFinalizedEvent(events) {
				t.Fatalf("events=%v", kinds(events))
			}
			if tr.Active() != nil {
				t.Error("decision still active after finalization")
			}
			final := tr.Finalized()
			if len(final) != 1 || final[0].Status != tt.want {
				t.Errorf("finalized=%+v", final)
			}
		})
	}
}

func TestProposalMergesIntoOverlappingActive(t *testing.T) {
	tr := newTracker()
	tr.Observe(mkseg("alice", "we should hire two engineers for the platform team", 0))
	first := tr.Active().ID
	events := tr.Observe(mkseg("bob", "I suggest we hire those engineers for platform now", 5*time.Second))
	if len(events) != 1 || events[0].Kind != EventUpdated {
		t.Fatalf("events=%v", kinds(events))
	}
	d := tr.Active()
	if d.ID != first {
		t.Error("merge created a new decision")
	}
	if len(d.MadeBy) != 2 {
		t.Errorf("madeBy=%v", d.MadeBy)
	}
}

func TestUnrelatedProposalDisplacesActive(t *testing.T) {
	tr := newTracker()
	tr.Observe(mkseg("alice", "we should hire two engineers for the platform team", 0))
	events := tr.Observe(mkseg("bob", "unrelated: I suggest repainting the office lobby", 5*time.Second))
	if len(events) != 2 || events[0].Kind != EventFinalized || events[1].Kind != EventProposed {
		t.Fatalf("events=%v", kinds(events))
	}
	if events[0].Decision.Status != meeting.DecisionDeferred {
		t.Errorf("displaced status=%s", events[0].Decision.Status)
	}

	// Invariant: at most one active decision.
	if tr.Active() == nil {
		t.Fatal("no active decision")
	}
	discussed := 0
	for _, d := range tr.Finalized() {
		if d.Status == meeting.DecisionDiscussed {
			discussed++
		}
	}
	if discussed != 0 {
		t.Errorf("finalized list contains %d discussed decisions", discussed)
	}
}

func TestImplicitFinalization(t *testing.T) {
	t.Run("high alignment plus topic shift agrees", func(t *testing.T) {
		tr := newTracker()
		tr.Observe(mkseg("alice", "I suggest we ship the beta by Friday", 0))
		tr.Observe(mkseg("bob", "I agree, sounds good", 5*time.Second))
		tr.Observe(mkseg("carol", "agreed, works for me", 10*time.Second))

		events := tr.OnTopicShift(t0.Add(20 * time.Second))
		if !isFinalizedEvent(events) {
			t.Fatalf("events=%v", kinds(events))
		}
		if events[0].Decision.Status != meeting.DecisionAgreed {
			t.Errorf("status=%s", events[0].Decision.Status)
		}
	})

	t.Run("low alignment stays open", func(t *testing.T) {
		tr := newTracker()
		tr.Observe(mkseg("alice", "I suggest we ship the beta by Friday", 0))
		tr.Observe(mkseg("bob", "I disagree with the whole plan here", 5*time.Second))
		if events := tr.OnTopicShift(t0.Add(20 * time.Second)); len(events) != 0 {
			t.Errorf("events=%v", kinds(events))
		}
		if tr.Active() == nil {
			t.Error("decision was finalized despite low alignment")
		}
	})

	t.Run("policy disabled", func(t *testing.T) {
		tr := NewTracker(Config{MeetingID: "m1", Finalize: FinalizePolicy{Enabled: false, AlignmentThreshold: 0.8}})
		tr.Observe(mkseg("alice", "I suggest we ship the beta by Friday", 0))
		tr.Observe(mkseg("bob", "I agree, sounds good", 5*time.Second))
		if events := tr.OnTopicShift(t0.Add(20 * time.Second)); len(events) != 0 {
			t.Errorf("events=%v", kinds(events))
		}
	})
}

func TestQualityScore(t *testing.T) {
	tr := newTracker()
	tr.Observe(mkseg("alice", "I suggest we ship by Friday because the contract requires it", 0))
	d := tr.Active()
	if d.QualityScore < 0 || d.QualityScore > 100 {
		t.Fatalf("score=%v out of range", d.QualityScore)
	}
	base := d.QualityScore

	// More evidence raises the score.
	tr.Observe(mkseg("bob", "I agree, and the risk is low; I'll own the deadline", 5*time.Second))
	d = tr.Active()
	if d.QualityScore <= base {
		t.Errorf("score did not grow: %v -> %v", base, d.QualityScore)
	}
	if d.QualityScore > 100 {
		t.Errorf("score=%v", d.QualityScore)
	}
}

func TestConflicts(t *testing.T) {
	t.Run("contradiction and resource", func(t *testing.T) {
		tr := newTracker()
		tr.Observe(mkseg("alice", "we should increase the marketing budget", 0))
		tr.Observe(mkseg("bob", "decision made, go ahead", 5*time.Second))
		tr.Observe(mkseg("carol", "we should decrease the overall budget", 10*time.Second))

		conflicts := tr.Conflicts(t0.Add(time.Minute))
		var haveContradiction, haveResource bool
		for _, c := range conflicts {
			switch c.Kind {
			case ConflictContradiction:
				haveContradiction = true
			case ConflictResource:
				haveResource = true
			}
		}
		if !haveContradiction {
			t.Error("no contradiction conflict")
		}
		if !haveResource {
			t.Error("no resource conflict")
		}
	})

	t.Run("timeline collision", func(t *testing.T) {
		tr := newTracker()
		tr.Observe(mkseg("alice", "we should ship the fix asap", 0))
		tr.Observe(mkseg("bob", "I suggest we launch the patch immediately, unrelated matter", 5*time.Second))
		conflicts := tr.Conflicts(t0.Add(time.Minute))
		found := false
		for _, c := range conflicts {
			if c.Kind == ConflictTimeline {
				found = true
			}
		}
		if !found {
			t.Error("no timeline conflict")
		}
	})

	t.Run("old decisions ignored", func(t *testing.T) {
		tr := newTracker()
		tr.Observe(mkseg("alice", "we should increase the marketing budget", 0))
		tr.Observe(mkseg("bob", "decision made", 5*time.Second))
		tr.Observe(mkseg("carol", "we should decrease the overall budget", 10*time.Second))
		if got := tr.Conflicts(t0.Add(3 * time.Hour)); len(got) != 0 {
			t.Errorf("conflicts=%d past the window", len(got))
		}
	})
}
