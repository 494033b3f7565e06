package meeting

import "time"

// Role is a participant's role within a meeting.
type Role string

const (
	RoleHost        Role = "host"
	RoleParticipant Role = "participant"
)

// Participant describes one connected user inside a session.
type Participant struct {
	UserID       string    `json:"userId"`
	ConnectionID string    `json:"connectionId"`
	JoinedAt     time.Time `json:"joinedAt"`
	Role         Role      `json:"role"`

	// IsActive is false while the participant is inside the
	// disconnect grace window waiting for a possible reconnect.
	IsActive bool `json:"isActive"`
}

// Session is the live state of one meeting room. It is owned exclusively
// by session.Registry; other packages receive copies.
type Session struct {
	MeetingID    string                  `json:"meetingId"`
	Participants map[string]*Participant `json:"participants"`
	IsRecording  bool                    `json:"isRecording"`
	StartTime    time.Time               `json:"startTime"`
}

// Host returns the first active host participant, or nil.
func (s *Session) Host() *Participant {
	for _, p := range s.Participants {
		if p.Role == RoleHost && p.IsActive {
			return p
		}
	}
	return nil
}

// ActiveCount returns the number of participants not in a grace window.
func (s *Session) ActiveCount() int {
	n := 0
	for _, p := range s.Participants {
		if p.IsActive {
			n++
		}
	}
	return n
}
