package meeting

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for segment validation.
var (
	ErrEmptySpeaker  = errors.New("meeting: segment has empty speaker")
	ErrEmptyText     = errors.New("meeting: segment has empty text")
	ErrTimeOrder     = errors.New("meeting: segment start time after end time")
	ErrBadConfidence = errors.New("meeting: segment confidence out of [0,1]")
)

// Segment is one speaker-attributed span of transcribed text.
// Segments are immutable once created and appended to a per-meeting
// sequence ordered by non-decreasing StartTime.
type Segment struct {
	ID         string        `json:"id" msgpack:"id"`
	MeetingID  string        `json:"meetingId" msgpack:"mid"`
	Speaker    string        `json:"speaker" msgpack:"spk"`
	Text       string        `json:"text" msgpack:"txt"`
	StartTime  time.Time     `json:"startTime" msgpack:"st"`
	EndTime    time.Time     `json:"endTime" msgpack:"et"`
	Confidence float64       `json:"confidence" msgpack:"cf"`
	Language   string        `json:"language,omitempty" msgpack:"lang,omitempty"`

	// Voice carries optional acoustic stats captured alongside the
	// transcript. Nil when the capture layer provides none.
	Voice *VoiceStats `json:"voice,omitempty" msgpack:"vc,omitempty"`
}

// VoiceStats are per-segment acoustic measurements used to blend
// voice signal into sentiment and engagement scoring.
type VoiceStats struct {
	Energy float64 `json:"energy" msgpack:"en"` // normalized RMS in [0,1]
	Pitch  float64 `json:"pitch" msgpack:"pt"`  // relative pitch in [0,1], 0.5 = speaker baseline
	Pace   float64 `json:"pace" msgpack:"pc"`   // words per second
}

// Duration returns the span covered by the segment.
func (s *Segment) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// Validate checks the ingestion contract: non-empty speaker and text,
// StartTime <= EndTime and Confidence in [0,1].
func (s *Segment) Validate() error {
	if s.Speaker == "" {
		return ErrEmptySpeaker
	}
	if s.Text == "" {
		return ErrEmptyText
	}
	if s.EndTime.Before(s.StartTime) {
		return fmt.Errorf("%w: start=%s end=%s", ErrTimeOrder, s.StartTime.Format(time.RFC3339Nano), s.EndTime.Format(time.RFC3339Nano))
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return fmt.Errorf("%w: %v", ErrBadConfidence, s.Confidence)
	}
	return nil
}
