package decision

import "github.com/confabhq/confab/pkg/meeting"

// Quality component weights, summing to 100 with the two scaled
// components at full score.
const (
	wRationale    = 15
	wAlternatives = 15
	wRisk         = 10
	wCriteria     = 10
	wOwnership    = 10
	wTimeline     = 10
	wAlignment    = 15
	wDepth        = 15
)

// rescore recomputes the active decision's quality score from the
// gathered evidence, stakeholder alignment and discussion depth.
// The result is clamped to [0, 100].
func (t *Tracker) rescore() {
	d := t.active
	if d == nil {
		return
	}
	score := 0.0
	if t.evidence["rationale"] {
		score += wRationale
	}
	if t.evidence["alternatives"] {
		score += wAlternatives
	}
	if t.evidence["risk"] {
		score += wRisk
	}
	if t.evidence["criteria"] {
		score += wCriteria
	}
	if t.evidence["ownership"] {
		score += wOwnership
	}
	if t.evidence["timeline"] {
		score += wTimeline
	}
	score += wAlignment * d.Alignment()
	score += wDepth * t.discussionDepth(d)

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	d.QualityScore = score
}

// discussionDepth in [0, 1]: comment volume x speaker diversity x
// presence of recorded arguments.
func (t *Tracker) discussionDepth(d *meeting.Decision) float64 {
	volume := float64(t.comments) / 10
	if volume > 1 {
		volume = 1
	}
	diversity := float64(len(t.speakers)) / 3
	if diversity > 1 {
		diversity = 1
	}
	args := 0.5
	if len(d.SupportingArguments)+len(d.OpposingArguments) > 0 {
		args = 1
	}
	return volume * diversity * args
}
