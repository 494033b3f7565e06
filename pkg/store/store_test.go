package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/confabhq/confab/pkg/meeting"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()
	b, err := NewBadger(BadgerOptions{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { b.Close() })
	return map[string]Store{
		"memory": NewMemory(),
		"badger": b,
	}
}

func seg(meetingID, speaker, text string, at time.Time) *meeting.Segment {
	return &meeting.Segment{
		ID:         speaker + text,
		MeetingID:  meetingID,
		Speaker:    speaker,
		Text:       text,
		StartTime:  at,
		EndTime:    at.Add(2 * time.Second),
		Confidence: 0.9,
	}
}

func TestStoreSegments(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			batch1 := []*meeting.Segment{
				seg("m1", "alice", "hello", base),
				seg("m1", "bob", "hi", base.Add(3*time.Second)),
			}
			if err := s.AppendSegments(ctx, batch1); err != nil {
				t.Fatal(err)
			}
			if err := s.AppendSegments(ctx, []*meeting.Segment{
				seg("m1", "alice", "next item", base.Add(6*time.Second)),
			}); err != nil {
				t.Fatal(err)
			}

			got, err := s.ListSegments(ctx, "m1")
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 3 {
				t.Fatalf("segments=%d, want 3", len(got))
			}
			// Append order preserved: startTime non-decreasing.
			for i := 1; i < len(got); i++ {
				if got[i].StartTime.Before(got[i-1].StartTime) {
					t.Errorf("segment %d out of order", i)
				}
			}
			if got[0].Speaker != "alice" || got[1].Speaker != "bob" {
				t.Errorf("speakers=%s,%s", got[0].Speaker, got[1].Speaker)
			}

			// Other meetings are isolated.
			other, err := s.ListSegments(ctx, "m2")
			if err != nil {
				t.Fatal(err)
			}
			if len(other) != 0 {
				t.Errorf("m2 segments=%d", len(other))
			}
		})
	}
}

func TestStoreAlertsAndDecisions(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a := &meeting.Alert{ID: "a1", MeetingID: "m1", RuleID: "r1", Priority: meeting.PriorityHigh, Message: "budget mention"}
			if err := s.UpsertAlert(ctx, a); err != nil {
				t.Fatal(err)
			}
			// Upsert replaces by ID.
			a2 := *a
			a2.IsAcknowledged = true
			if err := s.UpsertAlert(ctx, &a2); err != nil {
				t.Fatal(err)
			}
			alerts, err := s.ListAlerts(ctx, "m1")
			if err != nil {
				t.Fatal(err)
			}
			if len(alerts) != 1 || !alerts[0].IsAcknowledged {
				t.Errorf("alerts=%+v", alerts)
			}

			d := &meeting.Decision{ID: "d1", MeetingID: "m1", Description: "ship friday", Status: meeting.DecisionAgreed}
			if err := s.UpsertDecision(ctx, d); err != nil {
				t.Fatal(err)
			}
			if err := s.UpsertInsight(ctx, &meeting.Insight{ID: "i1", MeetingID: "m1", Kind: "summary"}); err != nil {
				t.Fatal(err)
			}
			if err := s.UpdateMeetingStatus(ctx, &meeting.StatusUpdate{MeetingID: "m1", Status: "completed", DurationSeconds: 600}); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("recovers within attempts", func(t *testing.T) {
		m := NewMemory()
		m.FailNext(2, errors.New("transient"))
		r := NewRetry(m)
		r.Initial = time.Millisecond
		err := r.UpsertAlert(ctx, &meeting.Alert{ID: "a1", MeetingID: "m1"})
		if err != nil {
			t.Fatalf("retry did not recover: %v", err)
		}
	})

	t.Run("exhausts after max attempts", func(t *testing.T) {
		m := NewMemory()
		cause := errors.New("down")
		m.FailNext(10, cause)
		r := NewRetry(m)
		r.Initial = time.Millisecond
		err := r.UpsertAlert(ctx, &meeting.Alert{ID: "a1", MeetingID: "m1"})
		if !errors.Is(err, cause) {
			t.Fatalf("err=%v, want wrap of %v", err, cause)
		}
	})
}
