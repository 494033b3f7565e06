package meeting

import (
	"encoding/json"
	"fmt"
	"time"
)

// Client-to-server event types.
const (
	EvJoinMeeting    = "join-meeting"
	EvLeaveMeeting   = "leave-meeting"
	EvAudioChunk     = "audio-chunk"
	EvStartRecording = "start-recording"
	EvStopRecording  = "stop-recording"
	EvRequestResync  = "request-resync"
)

// Server-to-client event types.
const (
	EvMeetingJoined           = "meeting-joined"
	EvParticipantJoined       = "participant-joined"
	EvParticipantLeft         = "participant-left"
	EvParticipantDisconnected = "participant-disconnected"
	EvTranscriptionChunk      = "transcription-chunk"
	EvAnalysisUpdate          = "analysis:update"
	EvAlertTriggered          = "alert:triggered"
	EvInsightGenerated        = "insight:generated"
	EvRecordingStarted        = "recording-started"
	EvRecordingStopped        = "recording-stopped"
	EvError                   = "error"
)

// Envelope is the wire frame for all events in both directions.
type Envelope struct {
	Type      string          `json:"type"`
	MeetingID string          `json:"meetingId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Time      time.Time       `json:"time,omitzero"`
}

// NewEnvelope marshals data into an Envelope stamped with now.
// Marshal failures are programming errors and panic.
func NewEnvelope(typ, meetingID string, data any) Envelope {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			panic(fmt.Sprintf("meeting: marshal %s event: %v", typ, err))
		}
		raw = b
	}
	return Envelope{Type: typ, MeetingID: meetingID, Data: raw, Time: time.Now()}
}

// ErrorEvent is emitted on any pipeline failure so that failures are
// observable externally rather than silently swallowed.
type ErrorEvent struct {
	Type      string `json:"type"` // failing subsystem, e.g. "persistence", "transcription"
	MeetingID string `json:"meetingId"`
	Cause     string `json:"cause"`
}

// PermissionError is returned for host-only operations attempted by a
// non-host, e.g. start-recording.
type PermissionError struct {
	UserID string
	Op     string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("meeting: permission denied: user %s cannot %s", e.UserID, e.Op)
}
