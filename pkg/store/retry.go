package store

import (
	"context"
	"fmt"
	"time"

	"github.com/googleapis/gax-go/v2"

	"github.com/confabhq/confab/pkg/meeting"
)

// MaxAttempts is the total number of tries for each durable write.
const MaxAttempts = 3

// Retry wraps a Store and retries failed writes with exponential
// backoff up to MaxAttempts. After exhaustion the last error is
// returned; the caller decides whether to drop the item (alerts) or
// leave it for the next flush cycle (segments).
type Retry struct {
	inner Store

	// Backoff settings per attempt sequence. Zero value selects
	// 100ms initial, 2s max, 2x multiplier.
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// NewRetry wraps inner with default backoff settings.
func NewRetry(inner Store) *Retry {
	return &Retry{inner: inner}
}

// do runs fn up to MaxAttempts times with backoff between tries.
func (r *Retry) do(ctx context.Context, op string, fn func() error) error {
	bo := gax.Backoff{
		Initial:    r.Initial,
		Max:        r.Max,
		Multiplier: r.Multiplier,
	}
	if bo.Initial == 0 {
		bo.Initial = 100 * time.Millisecond
	}
	if bo.Max == 0 {
		bo.Max = 2 * time.Second
	}

	var err error
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		if attempt > 0 {
			if serr := gax.Sleep(ctx, bo.Pause()); serr != nil {
				return serr
			}
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return fmt.Errorf("store: %s failed after %d attempts: %w", op, MaxAttempts, err)
}

func (r *Retry) AppendSegments(ctx context.Context, segments []*meeting.Segment) error {
	return r.do(ctx, "append segments", func() error {
		return r.inner.AppendSegments(ctx, segments)
	})
}

func (r *Retry) ListSegments(ctx context.Context, meetingID string) ([]*meeting.Segment, error) {
	return r.inner.ListSegments(ctx, meetingID)
}

func (r *Retry) UpsertAlert(ctx context.Context, alert *meeting.Alert) error {
	return r.do(ctx, "upsert alert", func() error {
		return r.inner.UpsertAlert(ctx, alert)
	})
}

func (r *Retry) ListAlerts(ctx context.Context, meetingID string) ([]*meeting.Alert, error) {
	return r.inner.ListAlerts(ctx, meetingID)
}

func (r *Retry) UpsertDecision(ctx context.Context, d *meeting.Decision) error {
	return r.do(ctx, "upsert decision", func() error {
		return r.inner.UpsertDecision(ctx, d)
	})
}

func (r *Retry) ListDecisions(ctx context.Context, meetingID string) ([]*meeting.Decision, error) {
	return r.inner.ListDecisions(ctx, meetingID)
}

func (r *Retry) UpsertInsight(ctx context.Context, ins *meeting.Insight) error {
	return r.do(ctx, "upsert insight", func() error {
		return r.inner.UpsertInsight(ctx, ins)
	})
}

func (r *Retry) ListInsights(ctx context.Context, meetingID string) ([]*meeting.Insight, error) {
	return r.inner.ListInsights(ctx, meetingID)
}

func (r *Retry) UpdateMeetingStatus(ctx context.Context, upd *meeting.StatusUpdate) error {
	return r.do(ctx, "update meeting status", func() error {
		return r.inner.UpdateMeetingStatus(ctx, upd)
	})
}

func (r *Retry) Close() error { return r.inner.Close() }
