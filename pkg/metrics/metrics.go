// Package metrics is an in-memory time-series store for per-meeting
// numeric metrics (sentiment score, engagement level, alert counts,
// speaking time and the like).
//
// Raw points are kept at full resolution for one hour; a periodic
// compression pass merges older points into per-minute aggregate
// buckets. Recording a point also runs it through a rolling-window
// anomaly check against the recent history of the same series.
package metrics

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/confabhq/confab/pkg/meeting"
)

// Point is one raw sample. Meta carries descriptive attributes of the
// sample (speaker, rule ID and the like); aggregation into buckets
// discards it, so it survives only as long as the raw point does.
type Point struct {
	Time  time.Time         `json:"time"`
	Value float64           `json:"value"`
	Meta  map[string]string `json:"meta,omitempty"`
}

// Bucket is a per-minute aggregate of compressed samples.
type Bucket struct {
	Start time.Time `json:"start"` // truncated to the minute
	Sum   float64   `json:"sum"`
	Min   float64   `json:"min"`
	Max   float64   `json:"max"`
	Count int       `json:"count"`
}

// Avg returns the bucket mean, 0 for an empty bucket.
func (b Bucket) Avg() float64 {
	if b.Count == 0 {
		return 0
	}
	return b.Sum / float64(b.Count)
}

func (b *Bucket) add(v float64) {
	if b.Count == 0 || v < b.Min {
		b.Min = v
	}
	if b.Count == 0 || v > b.Max {
		b.Max = v
	}
	b.Sum += v
	b.Count++
}

// Anomaly reports a sample deviating from its series' recent history.
type Anomaly struct {
	MeetingID string
	Metric    string
	Point     Point
	Mean      float64
	Stddev    float64
	Score     float64 // |value-mean| / stddev
	Priority  meeting.Priority
}

const (
	// anomalyWindow is how many preceding points feed the rolling
	// mean and standard deviation.
	anomalyWindow = 20

	// anomalyMinPoints gates the check until the series has enough
	// history to make deviation meaningful.
	anomalyMinPoints = 5

	mediumSigma = 2.0
	highSigma   = 3.0
)

type key struct {
	meetingID string
	metric    string
}

type series struct {
	points  []Point  // raw, time-ordered
	buckets []Bucket // compressed per-minute, time-ordered, all older than points
}

// Store holds all metric series. Safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	series map[key]*series
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{series: make(map[key]*series)}
}

// Record appends one sample and returns a non-nil Anomaly if the value
// deviates more than 2 standard deviations from the rolling mean of the
// preceding points (3 standard deviations escalates the priority).
// meta may be nil; it is kept on the raw point and in raw exports.
func (s *Store) Record(meetingID, metric string, at time.Time, value float64, meta map[string]string) *Anomaly {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{meetingID, metric}
	sr := s.series[k]
	if sr == nil {
		sr = &series{}
		s.series[k] = sr
	}

	p := Point{Time: at, Value: value, Meta: meta}
	anom := detect(sr.points, p)
	if anom != nil {
		anom.MeetingID = meetingID
		anom.Metric = metric
	}
	sr.points = append(sr.points, p)
	return anom
}

// detect runs the rolling-window check against points recorded before
// the candidate. Deviation is measured against history only, so a
// spike does not mask itself.
func detect(history []Point, p Point) *Anomaly {
	n := len(history)
	if n < anomalyMinPoints {
		return nil
	}
	start := n - anomalyWindow
	if start < 0 {
		start = 0
	}
	window := history[start:]

	var sum float64
	for _, h := range window {
		sum += h.Value
	}
	mean := sum / float64(len(window))
	var ss float64
	for _, h := range window {
		d := h.Value - mean
		ss += d * d
	}
	stddev := math.Sqrt(ss / float64(len(window)))
	if stddev == 0 {
		return nil
	}

	score := math.Abs(p.Value-mean) / stddev
	if score <= mediumSigma {
		return nil
	}
	prio := meeting.PriorityMedium
	if score > highSigma {
		prio = meeting.PriorityHigh
	}
	return &Anomaly{Point: p, Mean: mean, Stddev: stddev, Score: score, Priority: prio}
}

// Names returns the metric names recorded for a meeting, sorted.
func (s *Store) Names(meetingID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for k := range s.series {
		if k.meetingID == meetingID {
			out = append(out, k.metric)
		}
	}
	sort.Strings(out)
	return out
}

// Points returns a copy of the raw (uncompressed) points of one series
// within [from, to).
func (s *Store) Points(meetingID, metric string, from, to time.Time) []Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	sr := s.series[key{meetingID, metric}]
	if sr == nil {
		return nil
	}
	var out []Point
	for _, p := range sr.points {
		if !p.Time.Before(from) && p.Time.Before(to) {
			out = append(out, p)
		}
	}
	return out
}

// Drop discards all series of one meeting.
func (s *Store) Drop(meetingID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.series {
		if k.meetingID == meetingID {
			delete(s.series, k)
		}
	}
}
