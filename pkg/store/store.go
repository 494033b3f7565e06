// Package store defines the persistence contract between the realtime
// pipeline and the durable store, with a BadgerDB-backed implementation
// for production and an in-memory implementation for testing.
//
// The pipeline treats the store as opaque and best-effort: in-memory
// state is updated first and durable writes go through RetryStore,
// which retries with exponential backoff before giving up.
package store

import (
	"context"
	"errors"

	"github.com/confabhq/confab/pkg/meeting"
)

// Sentinel errors.
var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("store: not found")
)

// Store is the durable persistence contract.
//
// Implementations must be safe for concurrent use; each meeting's
// pipeline flushes independently.
type Store interface {
	// AppendSegments appends transcript rows for a meeting. Segments
	// within one call must already be ordered by StartTime.
	AppendSegments(ctx context.Context, segments []*meeting.Segment) error

	// ListSegments returns all persisted segments for a meeting in
	// append order.
	ListSegments(ctx context.Context, meetingID string) ([]*meeting.Segment, error)

	// UpsertAlert inserts or replaces an alert row by ID.
	UpsertAlert(ctx context.Context, alert *meeting.Alert) error

	// ListAlerts returns all alerts for a meeting.
	ListAlerts(ctx context.Context, meetingID string) ([]*meeting.Alert, error)

	// UpsertDecision inserts or replaces a decision row by ID.
	UpsertDecision(ctx context.Context, d *meeting.Decision) error

	// ListDecisions returns all decisions for a meeting.
	ListDecisions(ctx context.Context, meetingID string) ([]*meeting.Decision, error)

	// UpsertInsight inserts or replaces an insight row by ID.
	UpsertInsight(ctx context.Context, ins *meeting.Insight) error

	// ListInsights returns all insights for a meeting.
	ListInsights(ctx context.Context, meetingID string) ([]*meeting.Insight, error)

	// UpdateMeetingStatus writes the end-of-meeting status fields.
	UpdateMeetingStatus(ctx context.Context, upd *meeting.StatusUpdate) error

	// Close releases resources.
	Close() error
}
