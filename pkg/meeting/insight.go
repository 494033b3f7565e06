package meeting

import "time"

// Insight is a derived observation pushed to clients and persisted as a
// summary row: cross-engine correlations, break suggestions, and the
// end-of-meeting LLM summary.
type Insight struct {
	ID        string    `json:"id" msgpack:"id"`
	MeetingID string    `json:"meetingId" msgpack:"mid"`
	Kind      string    `json:"kind" msgpack:"knd"` // e.g. "summary", "warning", "suggestion"
	Title     string    `json:"title" msgpack:"ttl"`
	Content   string    `json:"content" msgpack:"cnt"`
	CreatedAt time.Time `json:"createdAt" msgpack:"ct"`
}

// StatusUpdate carries the meeting status fields the pipeline writes at
// meeting end, per the persistence contract.
type StatusUpdate struct {
	MeetingID       string    `json:"meetingId" msgpack:"mid"`
	Status          string    `json:"status" msgpack:"sts"` // e.g. "completed"
	EndTime         time.Time `json:"endTime" msgpack:"et"`
	Speakers        []string  `json:"speakers" msgpack:"spk"`
	DurationSeconds int       `json:"durationSeconds" msgpack:"dur"`
}
