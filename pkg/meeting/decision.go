package meeting

import "time"

// DecisionStatus is the decision state machine:
//
//	proposed -> discussed -> agreed | deferred | rejected
//
// At most one decision per meeting is in the discussed ("active") state
// at any time; decision.Tracker enforces this.
type DecisionStatus string

const (
	DecisionProposed  DecisionStatus = "proposed"
	DecisionDiscussed DecisionStatus = "discussed"
	DecisionAgreed    DecisionStatus = "agreed"
	DecisionDeferred  DecisionStatus = "deferred"
	DecisionRejected  DecisionStatus = "rejected"
)

// Terminal reports whether the status admits no further transitions.
func (s DecisionStatus) Terminal() bool {
	switch s {
	case DecisionAgreed, DecisionDeferred, DecisionRejected:
		return true
	}
	return false
}

// Stance is a stakeholder's tracked position toward an active decision.
type Stance string

const (
	StanceSupport Stance = "support"
	StanceOppose  Stance = "oppose"
	StanceNeutral Stance = "neutral"
)

// Stakeholder tracks one participant's stance and influence on a decision.
// Influence derives from the speaker's cumulative word-count share in the
// meeting so far.
type Stakeholder struct {
	Speaker   string  `json:"speaker"`
	Stance    Stance  `json:"stance"`
	Influence float64 `json:"influence"` // in [0,1]
}

// Decision accrues state per segment while active and is finalized to a
// terminal status explicitly or by the implicit-finalize policy.
type Decision struct {
	ID                  string         `json:"id" msgpack:"id"`
	MeetingID           string         `json:"meetingId" msgpack:"mid"`
	Description         string         `json:"description" msgpack:"desc"`
	Type                string         `json:"type" msgpack:"typ"`
	MadeBy              []string       `json:"madeBy" msgpack:"by"`
	Status              DecisionStatus `json:"status" msgpack:"sts"`
	Stakeholders        []Stakeholder  `json:"stakeholders" msgpack:"stk"`
	SupportingArguments []string       `json:"supportingArguments,omitempty" msgpack:"sup,omitempty"`
	OpposingArguments   []string       `json:"opposingArguments,omitempty" msgpack:"opp,omitempty"`
	Conditions          []string       `json:"conditions,omitempty" msgpack:"cnd,omitempty"`
	QualityScore        float64        `json:"qualityScore" msgpack:"qs"` // clamped to [0,100]
	Confidence          float64        `json:"confidence" msgpack:"cf"`  // in [0,1]
	ProposedAt          time.Time      `json:"proposedAt" msgpack:"pat"`
	FinalizedAt         time.Time      `json:"finalizedAt,omitzero" msgpack:"fat,omitempty"`
	IsUrgent            bool           `json:"isUrgent,omitempty" msgpack:"urg,omitempty"`
}

// Alignment returns the influence-weighted share of supporting
// stakeholders, in [0,1]. Returns 0 when there are no stakeholders.
func (d *Decision) Alignment() float64 {
	var total, support float64
	for _, s := range d.Stakeholders {
		w := s.Influence
		if w <= 0 {
			w = 0.01
		}
		total += w
		if s.Stance == StanceSupport {
			support += w
		}
	}
	if total == 0 {
		return 0
	}
	return support / total
}

// Topic is the ephemeral marker for the current discussion subject.
// Topics are replaced on shift, never mutated.
type Topic struct {
	Name          string    `json:"name"`
	StartTime     time.Time `json:"startTime"`
	Depth         int       `json:"depth"` // number of segments while active
	RelatedTopics []string  `json:"relatedTopics,omitempty"`
}
