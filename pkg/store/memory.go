package store

import (
	"context"
	"sync"

	"github.com/confabhq/confab/pkg/meeting"
)

// Memory is an in-memory Store for testing. Safe for concurrent use.
type Memory struct {
	mu        sync.RWMutex
	segments  map[string][]*meeting.Segment
	alerts    map[string]map[string]*meeting.Alert
	decisions map[string]map[string]*meeting.Decision
	insights  map[string]map[string]*meeting.Insight
	statuses  map[string]*meeting.StatusUpdate

	// FailNext makes the next n writes fail with the given error.
	// Used to exercise retry paths in tests.
	failErr  error
	failLeft int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		segments:  make(map[string][]*meeting.Segment),
		alerts:    make(map[string]map[string]*meeting.Alert),
		decisions: make(map[string]map[string]*meeting.Decision),
		insights:  make(map[string]map[string]*meeting.Insight),
		statuses:  make(map[string]*meeting.StatusUpdate),
	}
}

// FailNext makes the next n write calls return err.
func (m *Memory) FailNext(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failLeft = n
	m.failErr = err
}

// failLocked consumes one scheduled failure if any.
func (m *Memory) failLocked() error {
	if m.failLeft > 0 {
		m.failLeft--
		return m.failErr
	}
	return nil
}

func (m *Memory) AppendSegments(_ context.Context, segments []*meeting.Segment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failLocked(); err != nil {
		return err
	}
	for _, seg := range segments {
		m.segments[seg.MeetingID] = append(m.segments[seg.MeetingID], seg)
	}
	return nil
}

func (m *Memory) ListSegments(_ context.Context, meetingID string) ([]*meeting.Segment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*meeting.Segment, len(m.segments[meetingID]))
	copy(out, m.segments[meetingID])
	return out, nil
}

func (m *Memory) UpsertAlert(_ context.Context, alert *meeting.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failLocked(); err != nil {
		return err
	}
	byID := m.alerts[alert.MeetingID]
	if byID == nil {
		byID = make(map[string]*meeting.Alert)
		m.alerts[alert.MeetingID] = byID
	}
	byID[alert.ID] = alert
	return nil
}

func (m *Memory) ListAlerts(_ context.Context, meetingID string) ([]*meeting.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*meeting.Alert
	for _, a := range m.alerts[meetingID] {
		out = append(out, a)
	}
	return out, nil
}

func (m *Memory) UpsertDecision(_ context.Context, d *meeting.Decision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failLocked(); err != nil {
		return err
	}
	byID := m.decisions[d.MeetingID]
	if byID == nil {
		byID = make(map[string]*meeting.Decision)
		m.decisions[d.MeetingID] = byID
	}
	byID[d.ID] = d
	return nil
}

func (m *Memory) ListDecisions(_ context.Context, meetingID string) ([]*meeting.Decision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*meeting.Decision
	for _, d := range m.decisions[meetingID] {
		out = append(out, d)
	}
	return out, nil
}

func (m *Memory) UpsertInsight(_ context.Context, ins *meeting.Insight) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failLocked(); err != nil {
		return err
	}
	byID := m.insights[ins.MeetingID]
	if byID == nil {
		byID = make(map[string]*meeting.Insight)
		m.insights[ins.MeetingID] = byID
	}
	byID[ins.ID] = ins
	return nil
}

func (m *Memory) ListInsights(_ context.Context, meetingID string) ([]*meeting.Insight, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*meeting.Insight
	for _, i := range m.insights[meetingID] {
		out = append(out, i)
	}
	return out, nil
}

func (m *Memory) UpdateMeetingStatus(_ context.Context, upd *meeting.StatusUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failLocked(); err != nil {
		return err
	}
	m.statuses[upd.MeetingID] = upd
	return nil
}

// Status returns the stored status update for a meeting, or nil.
func (m *Memory) Status(meetingID string) *meeting.StatusUpdate {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statuses[meetingID]
}

// Insights returns all insights for a meeting.
func (m *Memory) Insights(meetingID string) []*meeting.Insight {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*meeting.Insight
	for _, i := range m.insights[meetingID] {
		out = append(out, i)
	}
	return out
}

func (m *Memory) Close() error { return nil }
