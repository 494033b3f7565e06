// Package decision tracks proposals through a per-meeting state
// machine (proposed -> discussed -> agreed/deferred/rejected), scores
// decision quality and detects conflicts between recent decisions.
//
// At most one decision is active (proposed or discussed) per meeting.
// A new proposal whose wording overlaps the active discussion is
// merged into it; an unrelated proposal closes the active discussion
// as deferred and takes its place, keeping the invariant.
//
// The tracker is owned by one meeting's pipeline goroutine and is not
// safe for concurrent use.
package decision

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/confabhq/confab/pkg/meeting"
)

// EventKind classifies tracker output events.
type EventKind string

const (
	EventProposed  EventKind = "proposed"
	EventUpdated   EventKind = "updated"
	EventFinalized EventKind = "finalized"
)

// Event is emitted whenever the active decision changes.
type Event struct {
	Kind     EventKind
	Decision *meeting.Decision // snapshot copy
}

// FinalizePolicy tunes the implicit finalization heuristic: an active
// decision whose stakeholder alignment exceeds AlignmentThreshold is
// finalized as agreed when the discussion topic shifts. The inference
// is approximate; disable it to require explicit finalization phrases.
type FinalizePolicy struct {
	Enabled            bool
	AlignmentThreshold float64
}

// DefaultFinalizePolicy enables implicit finalization above 80%.
var DefaultFinalizePolicy = FinalizePolicy{Enabled: true, AlignmentThreshold: 0.8}

// Config tunes the Tracker.
type Config struct {
	// MeetingID scopes created decisions. Required.
	MeetingID string

	// Finalize overrides DefaultFinalizePolicy when Enabled or
	// AlignmentThreshold is set.
	Finalize FinalizePolicy

	// MergeOverlap is the keyword-overlap ratio above which a new
	// proposal merges into the active discussion. Default 0.3.
	MergeOverlap float64
}

// Tracker runs the decision state machine for one meeting.
type Tracker struct {
	cfg Config

	active    *meeting.Decision
	finalized []*meeting.Decision

	// Influence base: cumulative word counts per speaker.
	words      map[string]int
	totalWords int

	// Quality evidence gathered from discussion segments while a
	// decision is active.
	evidence map[string]bool // component name -> seen
	comments int
	speakers map[string]bool
}

// NewTracker creates a Tracker.
func NewTracker(cfg Config) *Tracker {
	if cfg.Finalize == (FinalizePolicy{}) {
		cfg.Finalize = DefaultFinalizePolicy
	}
	if cfg.MergeOverlap == 0 {
		cfg.MergeOverlap = 0.3
	}
	return &Tracker{
		cfg:   cfg,
		words: make(map[string]int),
	}
}

// Active returns a copy of the active decision, or nil.
func (t *Tracker) Active() *meeting.Decision {
	if t.active == nil {
		return nil
	}
	cp := *t.active
	return &cp
}

// Finalized returns all finalized decisions.
func (t *Tracker) Finalized() []*meeting.Decision { return t.finalized }

// Observe feeds one segment through the state machine and returns any
// resulting events.
func (t *Tracker) Observe(seg *meeting.Segment) []Event {
	t.words[seg.Speaker] += len(strings.Fields(seg.Text))
	t.totalWords += len(strings.Fields(seg.Text))

	var events []Event

	if t.active != nil {
		events = append(events, t.observeActive(seg)...)
	}

	// A segment that just finalized a decision is spent; otherwise a
	// proposal phrase opens (or merges into) a discussion.
	if !isFinalizedEvent(events) {
		if p := matchAny(seg.Text, proposalPhrases); p != "" {
			events = append(events, t.propose(seg)...)
		}
	}
	return events
}

func isFinalizedEvent(events []Event) bool {
	for _, ev := range events {
		if ev.Kind == EventFinalized {
			return true
		}
	}
	return false
}

// observeActive accrues stances and checks finalization phrases.
func (t *Tracker) observeActive(seg *meeting.Segment) []Event {
	d := t.active

	switch {
	case matchAny(seg.Text, finalizePhrases) != "":
		return t.finalize(meeting.DecisionAgreed, seg.EndTime)
	case matchAny(seg.Text, deferPhrases) != "":
		return t.finalize(meeting.DecisionDeferred, seg.EndTime)
	case matchAny(seg.Text, rejectPhrases) != "":
		return t.finalize(meeting.DecisionRejected, seg.EndTime)
	}

	var changed bool
	switch {
	case matchAny(seg.Text, agreementPhrases) != "":
		t.setStance(seg.Speaker, meeting.StanceSupport)
		d.SupportingArguments = append(d.SupportingArguments, seg.Text)
		changed = true
	case matchAny(seg.Text, disagreementPhrases) != "":
		t.setStance(seg.Speaker, meeting.StanceOppose)
		d.OpposingArguments = append(d.OpposingArguments, seg.Text)
		changed = true
	case matchAny(seg.Text, conditionPhrases) != "":
		t.setStance(seg.Speaker, meeting.StanceNeutral)
		d.Conditions = append(d.Conditions, seg.Text)
		changed = true
	}

	if !changed {
		// Related chatter still deepens the discussion.
		if overlapRatio(contentWords(d.Description), contentWords(seg.Text)) >= t.cfg.MergeOverlap {
			t.comments++
			t.speakers[seg.Speaker] = true
			t.gatherEvidence(seg.Text)
		}
		return nil
	}

	d.Status = meeting.DecisionDiscussed
	t.comments++
	t.speakers[seg.Speaker] = true
	t.gatherEvidence(seg.Text)
	t.rescore()
	return []Event{{Kind: EventUpdated, Decision: t.Active()}}
}

// propose opens a new decision, merging into or displacing the active
// one as needed.
func (t *Tracker) propose(seg *meeting.Segment) []Event {
	if t.active != nil {
		if overlapRatio(contentWords(t.active.Description), contentWords(seg.Text)) >= t.cfg.MergeOverlap {
			// Same discussion, reworded: merge.
			t.active.MadeBy = appendUnique(t.active.MadeBy, seg.Speaker)
			t.comments++
			t.speakers[seg.Speaker] = true
			t.gatherEvidence(seg.Text)
			t.rescore()
			return []Event{{Kind: EventUpdated, Decision: t.Active()}}
		}
		// Unrelated proposal: the room moved on. Close the stale
		// discussion as deferred so only one stays active.
		events := t.finalize(meeting.DecisionDeferred, seg.StartTime)
		return append(events, t.open(seg)...)
	}
	return t.open(seg)
}

func (t *Tracker) open(seg *meeting.Segment) []Event {
	t.active = &meeting.Decision{
		ID:          uuid.NewString(),
		MeetingID:   t.cfg.MeetingID,
		Description: seg.Text,
		Type:        classify(seg.Text),
		MadeBy:      []string{seg.Speaker},
		Status:      meeting.DecisionProposed,
		ProposedAt:  seg.StartTime,
		Confidence:  0.5,
		IsUrgent:    matchAny(seg.Text, urgentWords) != "",
	}
	t.evidence = make(map[string]bool)
	t.comments = 0
	t.speakers = map[string]bool{seg.Speaker: true}
	t.gatherEvidence(seg.Text)
	t.setStance(seg.Speaker, meeting.StanceSupport)
	t.rescore()
	return []Event{{Kind: EventProposed, Decision: t.Active()}}
}

// OnTopicShift applies the implicit finalization policy when the
// discussion moves to a new topic.
func (t *Tracker) OnTopicShift(now time.Time) []Event {
	if t.active == nil || !t.cfg.Finalize.Enabled {
		return nil
	}
	if t.active.Status != meeting.DecisionDiscussed {
		return nil
	}
	if t.active.Alignment() > t.cfg.Finalize.AlignmentThreshold {
		return t.finalize(meeting.DecisionAgreed, now)
	}
	return nil
}

// CloseActive defers whatever is still active; called when the meeting
// ends so no decision outlives its meeting.
func (t *Tracker) CloseActive(now time.Time) []Event {
	if t.active == nil {
		return nil
	}
	return t.finalize(meeting.DecisionDeferred, now)
}

// finalize moves the active decision to a terminal status.
func (t *Tracker) finalize(status meeting.DecisionStatus, at time.Time) []Event {
	d := t.active
	d.Status = status
	d.FinalizedAt = at
	if status == meeting.DecisionAgreed {
		d.Confidence = clamp01(0.5 + d.Alignment()/2)
	}
	t.rescore()
	t.finalized = append(t.finalized, d)
	t.active = nil
	cp := *d
	return []Event{{Kind: EventFinalized, Decision: &cp}}
}

// setStance records or updates a stakeholder stance, weighted by the
// speaker's cumulative word-count share.
func (t *Tracker) setStance(speaker string, stance meeting.Stance) {
	influence := 0.0
	if t.totalWords > 0 {
		influence = float64(t.words[speaker]) / float64(t.totalWords)
	}
	for i := range t.active.Stakeholders {
		if t.active.Stakeholders[i].Speaker == speaker {
			t.active.Stakeholders[i].Stance = stance
			t.active.Stakeholders[i].Influence = influence
			return
		}
	}
	t.active.Stakeholders = append(t.active.Stakeholders, meeting.Stakeholder{
		Speaker: speaker, Stance: stance, Influence: influence,
	})
}

func (t *Tracker) gatherEvidence(text string) {
	for name, words := range map[string][]string{
		"rationale":    rationaleWords,
		"alternatives": alternativeWords,
		"risk":         riskWords,
		"criteria":     criteriaWords,
		"ownership":    ownershipWords,
		"timeline":     timelineWords,
	} {
		if matchAny(text, words) != "" {
			t.evidence[name] = true
		}
	}
}

// classify guesses a coarse decision type from its wording.
func classify(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "hire") || strings.Contains(lower, "team"):
		return "staffing"
	case strings.Contains(lower, "budget") || strings.Contains(lower, "cost") || strings.Contains(lower, "spend"):
		return "budget"
	case strings.Contains(lower, "ship") || strings.Contains(lower, "launch") || strings.Contains(lower, "release"):
		return "delivery"
	case strings.Contains(lower, "deadline") || strings.Contains(lower, "schedule"):
		return "timeline"
	default:
		return "general"
	}
}

func appendUnique(s []string, v string) []string {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
