package decision

import (
	"fmt"
	"strings"
	"time"

	"github.com/confabhq/confab/pkg/meeting"
)

// ConflictKind classifies a detected conflict between two decisions.
type ConflictKind string

const (
	ConflictContradiction ConflictKind = "contradiction"
	ConflictResource      ConflictKind = "resource"
	ConflictTimeline      ConflictKind = "timeline"
)

// Conflict pairs two decisions that pull against each other. Conflicts
// are emitted for human review, never auto-resolved.
type Conflict struct {
	Kind   ConflictKind
	A, B   *meeting.Decision
	Detail string
}

// conflictWindow bounds how far back pairwise comparison reaches.
const conflictWindow = time.Hour

// Conflicts compares all decisions finalized or proposed within the
// last hour pairwise and returns detected conflicts.
func (t *Tracker) Conflicts(now time.Time) []Conflict {
	var recent []*meeting.Decision
	for _, d := range t.finalized {
		if now.Sub(d.ProposedAt) <= conflictWindow {
			recent = append(recent, d)
		}
	}
	if t.active != nil && now.Sub(t.active.ProposedAt) <= conflictWindow {
		recent = append(recent, t.active)
	}

	var out []Conflict
	for i := 0; i < len(recent); i++ {
		for j := i + 1; j < len(recent); j++ {
			out = append(out, compare(recent[i], recent[j])...)
		}
	}
	return out
}

// compare applies the three conflict checks to one pair.
func compare(a, b *meeting.Decision) []Conflict {
	var out []Conflict
	al, bl := strings.ToLower(a.Description), strings.ToLower(b.Description)

	for _, pair := range opposingActions {
		if (strings.Contains(al, pair[0]) && strings.Contains(bl, pair[1])) ||
			(strings.Contains(al, pair[1]) && strings.Contains(bl, pair[0])) {
			out = append(out, Conflict{
				Kind: ConflictContradiction, A: a, B: b,
				Detail: fmt.Sprintf("opposite actions %q vs %q", pair[0], pair[1]),
			})
			break
		}
	}

	if a.Type == b.Type {
		for _, res := range resourceWords {
			if strings.Contains(al, res) && strings.Contains(bl, res) {
				out = append(out, Conflict{
					Kind: ConflictResource, A: a, B: b,
					Detail: fmt.Sprintf("both contend for %q", res),
				})
				break
			}
		}
	}

	if a.IsUrgent && b.IsUrgent {
		out = append(out, Conflict{
			Kind: ConflictTimeline, A: a, B: b,
			Detail: "both marked urgent",
		})
	}
	return out
}
