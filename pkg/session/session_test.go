package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/confabhq/confab/pkg/meeting"
)

// collector records events in order.
type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) add(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *collector) kinds() []EventKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]EventKind, len(c.events))
	for i, ev := range c.events {
		out[i] = ev.Kind
	}
	return out
}

func (c *collector) has(kind EventKind) bool {
	for _, k := range c.kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

func TestJoinLeave(t *testing.T) {
	var c collector
	r := NewRegistry(Options{OnEvent: c.add})
	defer r.Close()

	if _, err := r.Join("m1", "alice", meeting.RoleHost); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Join("m1", "bob", meeting.RoleParticipant); err != nil {
		t.Fatal(err)
	}

	s := r.Session("m1")
	if s == nil || len(s.Participants) != 2 {
		t.Fatalf("session=%+v", s)
	}
	if s.Host() == nil || s.Host().UserID != "alice" {
		t.Errorf("host=%+v", s.Host())
	}

	r.Leave("m1", "bob")
	r.Leave("m1", "alice")
	if r.Session("m1") != nil {
		t.Error("room not deleted after last leave")
	}
	if !c.has(EventRoomClosed) {
		t.Errorf("events=%v", c.kinds())
	}
}

func TestRecordingPermissions(t *testing.T) {
	r := NewRegistry(Options{})
	defer r.Close()
	r.Join("m1", "alice", meeting.RoleHost)
	r.Join("m1", "bob", meeting.RoleParticipant)

	var pe *meeting.PermissionError
	if err := r.StartRecording("m1", "bob"); !errors.As(err, &pe) {
		t.Errorf("non-host start: err=%v", err)
	}
	if err := r.StartRecording("m1", "alice"); err != nil {
		t.Errorf("host start: err=%v", err)
	}
	if !r.Session("m1").IsRecording {
		t.Error("recording not set")
	}
	if err := r.StopRecording("m1", "alice"); err != nil {
		t.Errorf("host stop: err=%v", err)
	}
	if r.Session("m1").IsRecording {
		t.Error("recording still set")
	}
}

func TestGraceWindow(t *testing.T) {
	t.Run("reconnect within grace", func(t *testing.T) {
		var c collector
		r := NewRegistry(Options{Grace: 80 * time.Millisecond, OnEvent: c.add})
		defer r.Close()
		r.Join("m1", "alice", meeting.RoleHost)
		r.Join("m1", "bob", meeting.RoleParticipant)

		r.Disconnect("m1", "bob")
		if r.Session("m1").Participants["bob"].IsActive {
			t.Error("bob still active after disconnect")
		}

		// Reconnect inside the window.
		time.Sleep(20 * time.Millisecond)
		r.Join("m1", "bob", meeting.RoleParticipant)
		if !r.Session("m1").Participants["bob"].IsActive {
			t.Error("bob not restored after reconnect")
		}

		// Past the original grace deadline: no removal happened.
		time.Sleep(120 * time.Millisecond)
		if r.Session("m1").Participants["bob"] == nil {
			t.Fatal("bob removed despite reconnect")
		}
		if c.has(EventLeft) {
			t.Errorf("left event finalized: %v", c.kinds())
		}
	})

	t.Run("expiry removes participant", func(t *testing.T) {
		var c collector
		r := NewRegistry(Options{Grace: 30 * time.Millisecond, OnEvent: c.add})
		defer r.Close()
		r.Join("m1", "alice", meeting.RoleHost)
		r.Join("m1", "bob", meeting.RoleParticipant)

		r.Disconnect("m1", "bob")
		time.Sleep(80 * time.Millisecond)
		if r.Session("m1").Participants["bob"] != nil {
			t.Error("bob not removed after grace expiry")
		}
		if !c.has(EventLeft) {
			t.Errorf("events=%v", c.kinds())
		}
	})

	t.Run("room closes when last grace expires", func(t *testing.T) {
		r := NewRegistry(Options{Grace: 20 * time.Millisecond})
		defer r.Close()
		r.Join("m1", "alice", meeting.RoleHost)
		r.Disconnect("m1", "alice")
		time.Sleep(60 * time.Millisecond)
		if r.Session("m1") != nil {
			t.Error("room survived last participant's grace expiry")
		}
	})
}

func TestHealthCheck(t *testing.T) {
	liveConns := make(map[string]bool)
	var mu sync.Mutex
	r := NewRegistry(Options{
		Grace: 10 * time.Millisecond,
		IsLive: func(connID string) bool {
			mu.Lock()
			defer mu.Unlock()
			return liveConns[connID]
		},
	})
	defer r.Close()

	conn1, _ := r.Join("m1", "alice", meeting.RoleHost)
	conn2, _ := r.Join("m1", "bob", meeting.RoleParticipant)
	mu.Lock()
	liveConns[conn1] = true
	liveConns[conn2] = false
	mu.Unlock()

	if purged := r.HealthCheck(); purged != 1 {
		t.Errorf("purged=%d, want 1", purged)
	}
	if r.Session("m1").Participants["bob"].IsActive {
		t.Error("dead connection still active")
	}
	if !r.Session("m1").Participants["alice"].IsActive {
		t.Error("live connection purged")
	}
}

func TestPeakParticipants(t *testing.T) {
	r := NewRegistry(Options{})
	defer r.Close()
	r.Join("m1", "a", meeting.RoleHost)
	r.Join("m1", "b", meeting.RoleParticipant)
	r.Leave("m1", "b")
	if got := r.PeakParticipants("m1"); got != 2 {
		t.Errorf("peak=%d, want 2", got)
	}
}
