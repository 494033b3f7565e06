// Package session manages meeting room and participant lifecycle: join
// and leave, host-only recording control, the disconnect grace window
// that tolerates transient network loss, and the periodic connection
// health sweep.
//
// The Registry owns all meeting.Session state exclusively. Callers get
// copies; mutations go through Registry methods only.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/confabhq/confab/pkg/meeting"
)

const (
	// GracePeriod is how long a disconnected participant is kept
	// inactive before actual removal.
	GracePeriod = 30 * time.Second

	// HealthInterval is how often dead connections are purged.
	HealthInterval = 60 * time.Second
)

// EventKind enumerates registry lifecycle events.
type EventKind string

const (
	EventJoined       EventKind = "joined"
	EventReconnected  EventKind = "reconnected"
	EventLeft         EventKind = "left"
	EventDisconnected EventKind = "disconnected"
	EventRoomClosed   EventKind = "room-closed"
	EventRecording    EventKind = "recording"
)

// Event is emitted on every lifecycle change.
type Event struct {
	Kind      EventKind
	MeetingID string
	UserID    string

	// Recording is meaningful only for EventRecording.
	Recording bool
}

// Options configures the Registry.
type Options struct {
	// Grace overrides GracePeriod. Zero selects the default.
	Grace time.Duration

	// OnEvent receives lifecycle events. Called outside the registry
	// lock; may be nil.
	OnEvent func(Event)

	// IsLive reports whether a connection is still alive; used by the
	// health sweep. Nil disables purging.
	IsLive func(connectionID string) bool
}

type room struct {
	session *meeting.Session
	grace   map[string]*time.Timer // userID -> pending removal
	peak    int
}

// Registry tracks all live meeting sessions in the process.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*room
	opts  Options
}

// NewRegistry creates a Registry.
func NewRegistry(opts Options) *Registry {
	if opts.Grace == 0 {
		opts.Grace = GracePeriod
	}
	return &Registry{
		rooms: make(map[string]*room),
		opts:  opts,
	}
}

// Join adds a participant to a meeting, creating the room on first
// join. Rejoining while inside the grace window cancels removal and
// restores active status with the new connection.
// Returns the participant's connection ID.
func (r *Registry) Join(meetingID, userID string, role meeting.Role) (string, error) {
	if meetingID == "" || userID == "" {
		return "", fmt.Errorf("session: join requires meeting and user IDs")
	}
	connID := uuid.NewString()

	r.mu.Lock()
	rm := r.rooms[meetingID]
	if rm == nil {
		rm = &room{
			session: &meeting.Session{
				MeetingID:    meetingID,
				Participants: make(map[string]*meeting.Participant),
				StartTime:    time.Now(),
			},
			grace: make(map[string]*time.Timer),
		}
		r.rooms[meetingID] = rm
	}

	kind := EventJoined
	if p, ok := rm.session.Participants[userID]; ok {
		if t := rm.grace[userID]; t != nil {
			t.Stop()
			delete(rm.grace, userID)
		}
		p.ConnectionID = connID
		p.IsActive = true
		kind = EventReconnected
	} else {
		rm.session.Participants[userID] = &meeting.Participant{
			UserID:       userID,
			ConnectionID: connID,
			JoinedAt:     time.Now(),
			Role:         role,
			IsActive:     true,
		}
	}
	if n := rm.session.ActiveCount(); n > rm.peak {
		rm.peak = n
	}
	r.mu.Unlock()

	r.emit(Event{Kind: kind, MeetingID: meetingID, UserID: userID})
	return connID, nil
}

// Disconnect marks a participant inactive and schedules removal after
// the grace window. Reconnection within the window cancels removal.
func (r *Registry) Disconnect(meetingID, userID string) {
	r.mu.Lock()
	rm := r.rooms[meetingID]
	if rm == nil {
		r.mu.Unlock()
		return
	}
	p := rm.session.Participants[userID]
	if p == nil || !p.IsActive {
		r.mu.Unlock()
		return
	}
	p.IsActive = false
	if t := rm.grace[userID]; t != nil {
		t.Stop()
	}
	rm.grace[userID] = time.AfterFunc(r.opts.Grace, func() {
		r.expire(meetingID, userID)
	})
	r.mu.Unlock()

	r.emit(Event{Kind: EventDisconnected, MeetingID: meetingID, UserID: userID})
}

// Leave removes a participant immediately, bypassing the grace window.
func (r *Registry) Leave(meetingID, userID string) {
	r.remove(meetingID, userID, EventLeft)
}

// expire finalizes a disconnect whose grace window lapsed.
func (r *Registry) expire(meetingID, userID string) {
	r.mu.Lock()
	rm := r.rooms[meetingID]
	if rm == nil {
		r.mu.Unlock()
		return
	}
	p := rm.session.Participants[userID]
	if p == nil || p.IsActive {
		// Reconnected while the timer fired; nothing to do.
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	r.remove(meetingID, userID, EventLeft)
}

func (r *Registry) remove(meetingID, userID string, kind EventKind) {
	r.mu.Lock()
	rm := r.rooms[meetingID]
	if rm == nil {
		r.mu.Unlock()
		return
	}
	if _, ok := rm.session.Participants[userID]; !ok {
		r.mu.Unlock()
		return
	}
	delete(rm.session.Participants, userID)
	if t := rm.grace[userID]; t != nil {
		t.Stop()
		delete(rm.grace, userID)
	}
	closed := len(rm.session.Participants) == 0
	if closed {
		for _, t := range rm.grace {
			t.Stop()
		}
		delete(r.rooms, meetingID)
	}
	r.mu.Unlock()

	r.emit(Event{Kind: kind, MeetingID: meetingID, UserID: userID})
	if closed {
		r.emit(Event{Kind: EventRoomClosed, MeetingID: meetingID})
	}
}

// StartRecording enables recording. Host only; others get a
// PermissionError.
func (r *Registry) StartRecording(meetingID, userID string) error {
	return r.setRecording(meetingID, userID, true)
}

// StopRecording disables recording. Host only.
func (r *Registry) StopRecording(meetingID, userID string) error {
	return r.setRecording(meetingID, userID, false)
}

func (r *Registry) setRecording(meetingID, userID string, on bool) error {
	op := "stop recording"
	if on {
		op = "start recording"
	}
	r.mu.Lock()
	rm := r.rooms[meetingID]
	if rm == nil {
		r.mu.Unlock()
		return fmt.Errorf("session: no such meeting: %s", meetingID)
	}
	p := rm.session.Participants[userID]
	if p == nil || p.Role != meeting.RoleHost {
		r.mu.Unlock()
		return &meeting.PermissionError{UserID: userID, Op: op}
	}
	rm.session.IsRecording = on
	r.mu.Unlock()

	r.emit(Event{Kind: EventRecording, MeetingID: meetingID, UserID: userID, Recording: on})
	return nil
}

// Session returns a copy of the meeting's session state, or nil.
func (r *Registry) Session(meetingID string) *meeting.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm := r.rooms[meetingID]
	if rm == nil {
		return nil
	}
	cp := &meeting.Session{
		MeetingID:    rm.session.MeetingID,
		Participants: make(map[string]*meeting.Participant, len(rm.session.Participants)),
		IsRecording:  rm.session.IsRecording,
		StartTime:    rm.session.StartTime,
	}
	for id, p := range rm.session.Participants {
		pc := *p
		cp.Participants[id] = &pc
	}
	return cp
}

// PeakParticipants returns the highest concurrent active count seen.
func (r *Registry) PeakParticipants(meetingID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rm := r.rooms[meetingID]; rm != nil {
		return rm.peak
	}
	return 0
}

// HealthCheck disconnects every active participant whose connection is
// no longer live according to Options.IsLive. Returns the number of
// connections purged.
func (r *Registry) HealthCheck() int {
	if r.opts.IsLive == nil {
		return 0
	}
	type dead struct{ meetingID, userID string }
	var purge []dead

	r.mu.Lock()
	for mid, rm := range r.rooms {
		for uid, p := range rm.session.Participants {
			if p.IsActive && !r.opts.IsLive(p.ConnectionID) {
				purge = append(purge, dead{mid, uid})
			}
		}
	}
	r.mu.Unlock()

	for _, d := range purge {
		r.Disconnect(d.meetingID, d.userID)
	}
	return len(purge)
}

// Run executes the periodic health sweep until ctx is cancelled.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(HealthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.HealthCheck()
		}
	}
}

// Close stops all grace timers and drops all rooms.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rm := range r.rooms {
		for _, t := range rm.grace {
			t.Stop()
		}
	}
	r.rooms = make(map[string]*room)
}

func (r *Registry) emit(ev Event) {
	if r.opts.OnEvent != nil {
		r.opts.OnEvent(ev)
	}
}
