package metrics

import (
	"sort"
	"time"
)

// compressAfter is the age past which raw points are folded into
// per-minute buckets.
const compressAfter = time.Hour

// Minutely returns per-minute aggregates of one series within
// [from, to), merging compressed buckets with still-raw points.
func (s *Store) Minutely(meetingID, metric string, from, to time.Time) []Bucket {
	s.mu.Lock()
	defer s.mu.Unlock()
	sr := s.series[key{meetingID, metric}]
	if sr == nil {
		return nil
	}

	byMinute := make(map[time.Time]*Bucket)
	for _, b := range sr.buckets {
		if b.Start.Before(from) || !b.Start.Before(to) {
			continue
		}
		cp := b
		byMinute[b.Start] = &cp
	}
	for _, p := range sr.points {
		if p.Time.Before(from) || !p.Time.Before(to) {
			continue
		}
		min := p.Time.Truncate(time.Minute)
		b := byMinute[min]
		if b == nil {
			b = &Bucket{Start: min}
			byMinute[min] = b
		}
		b.add(p.Value)
	}
	return sortBuckets(byMinute)
}

// Hourly rolls the per-minute aggregates of one series up to hours.
func (s *Store) Hourly(meetingID, metric string, from, to time.Time) []Bucket {
	minutes := s.Minutely(meetingID, metric, from, to)
	byHour := make(map[time.Time]*Bucket)
	for _, m := range minutes {
		hour := m.Start.Truncate(time.Hour)
		b := byHour[hour]
		if b == nil {
			b = &Bucket{Start: hour, Min: m.Min, Max: m.Max}
			byHour[hour] = b
		}
		if m.Min < b.Min {
			b.Min = m.Min
		}
		if m.Max > b.Max {
			b.Max = m.Max
		}
		b.Sum += m.Sum
		b.Count += m.Count
	}
	return sortBuckets(byHour)
}

// Compress folds raw points older than one hour into per-minute
// buckets, merging into existing buckets for the same minute. Points
// newer than the cutoff are left untouched at full resolution.
func (s *Store) Compress(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-compressAfter)

	for _, sr := range s.series {
		var keep []Point
		byMinute := make(map[time.Time]*Bucket, len(sr.buckets))
		for i := range sr.buckets {
			byMinute[sr.buckets[i].Start] = &sr.buckets[i]
		}
		var created map[time.Time]*Bucket
		for _, p := range sr.points {
			if !p.Time.Before(cutoff) {
				keep = append(keep, p)
				continue
			}
			min := p.Time.Truncate(time.Minute)
			b := byMinute[min]
			if b == nil {
				if created == nil {
					created = make(map[time.Time]*Bucket)
				}
				b = created[min]
				if b == nil {
					b = &Bucket{Start: min}
					created[min] = b
				}
			}
			b.add(p.Value)
		}
		for _, b := range created {
			sr.buckets = append(sr.buckets, *b)
		}
		if created != nil {
			sortBucketSlice(sr.buckets)
		}
		sr.points = keep
	}
}

func sortBuckets(m map[time.Time]*Bucket) []Bucket {
	out := make([]Bucket, 0, len(m))
	for _, b := range m {
		out = append(out, *b)
	}
	sortBucketSlice(out)
	return out
}

func sortBucketSlice(bs []Bucket) {
	sort.Slice(bs, func(i, j int) bool { return bs[i].Start.Before(bs[j].Start) })
}
