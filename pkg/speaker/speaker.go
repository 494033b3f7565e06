// Package speaker identifies speakers within a meeting by matching
// voice signatures against known per-meeting profiles.
//
// The registry binds a chunk to the best-matching existing profile when
// cosine similarity is at least MinSimilarity, otherwise it creates a
// new profile. Profile centroids are updated by running average so a
// speaker's signature refines over the course of the meeting.
package speaker

import (
	"fmt"

	"github.com/confabhq/confab/pkg/audio"
)

const (
	// MinSimilarity is the cosine similarity needed to bind a chunk to
	// an existing profile.
	MinSimilarity = 0.8

	// DefaultMaxProfiles caps profiles per meeting. Past the cap,
	// unmatched chunks bind to the nearest profile regardless of
	// similarity instead of creating new ones.
	DefaultMaxProfiles = 16
)

// Profile is one identified speaker within a meeting.
type Profile struct {
	Label     string // stable label, e.g. "speaker-1"
	Centroid  []float64
	Samples   int // number of chunks merged into the centroid
	WordCount int // cumulative transcribed words, updated by ingestion
}

// Registry holds the speaker profiles for a single meeting. It is owned
// by that meeting's ingestion goroutine and is not safe for concurrent
// use.
type Registry struct {
	profiles    []*Profile
	maxProfiles int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{maxProfiles: DefaultMaxProfiles}
}

// Identify matches the signature against known profiles. It returns the
// bound profile and whether it was newly created.
func (r *Registry) Identify(sig []float64) (*Profile, bool) {
	var best *Profile
	bestSim := -1.0
	for _, p := range r.profiles {
		if sim := audio.Cosine(sig, p.Centroid); sim > bestSim {
			best, bestSim = p, sim
		}
	}
	if best != nil && (bestSim >= MinSimilarity || len(r.profiles) >= r.maxProfiles) {
		best.merge(sig)
		return best, false
	}
	p := &Profile{
		Label:    fmt.Sprintf("speaker-%d", len(r.profiles)+1),
		Centroid: append([]float64(nil), sig...),
		Samples:  1,
	}
	r.profiles = append(r.profiles, p)
	return p, true
}

// merge folds a new signature into the centroid by running average.
func (p *Profile) merge(sig []float64) {
	n := float64(p.Samples)
	for i := range p.Centroid {
		p.Centroid[i] = (p.Centroid[i]*n + sig[i]) / (n + 1)
	}
	p.Samples++
}

// Lookup returns the profile with the given label, or nil.
func (r *Registry) Lookup(label string) *Profile {
	for _, p := range r.profiles {
		if p.Label == label {
			return p
		}
	}
	return nil
}

// Profiles returns all profiles in creation order.
func (r *Registry) Profiles() []*Profile {
	return r.profiles
}

// Labels returns all profile labels in creation order.
func (r *Registry) Labels() []string {
	out := make([]string, len(r.profiles))
	for i, p := range r.profiles {
		out[i] = p.Label
	}
	return out
}
