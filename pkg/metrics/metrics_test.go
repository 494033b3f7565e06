package metrics

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/confabhq/confab/pkg/meeting"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// seedStable records 20 alternating samples (10, 12, 10, ...) giving a
// rolling mean of 11 and standard deviation of 1.
func seedStable(s *Store, metric string) time.Time {
	at := t0
	for i := 0; i < 20; i++ {
		v := 10.0
		if i%2 == 1 {
			v = 12.0
		}
		if a := s.Record("m1", metric, at, v, nil); a != nil {
			panic("unexpected anomaly while seeding")
		}
		at = at.Add(time.Second)
	}
	return at
}

func TestAnomalyDetection(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  meeting.Priority
		none  bool
	}{
		{"within two sigma", 12.9, 0, true},
		{"exactly two sigma", 13.0, 0, true},
		{"above two sigma", 13.5, meeting.PriorityMedium, false},
		{"exactly three sigma", 14.0, meeting.PriorityMedium, false},
		{"above three sigma", 14.5, meeting.PriorityHigh, false},
		{"low outlier", 7.5, meeting.PriorityHigh, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			at := seedStable(s, "sentiment")
			a := s.Record("m1", "sentiment", at, tt.value, nil)
			if tt.none {
				if a != nil {
					t.Fatalf("anomaly=%+v, want none", a)
				}
				return
			}
			if a == nil {
				t.Fatal("no anomaly")
			}
			if a.Priority != tt.want {
				t.Errorf("priority=%s want %s (score=%v)", a.Priority, tt.want, a.Score)
			}
			if a.Metric != "sentiment" || a.MeetingID != "m1" {
				t.Errorf("labels=%s/%s", a.MeetingID, a.Metric)
			}
		})
	}
}

func TestAnomalyNeedsHistory(t *testing.T) {
	s := NewStore()
	for i := 0; i < anomalyMinPoints-1; i++ {
		v := 10.0
		if i%2 == 1 {
			v = 12.0
		}
		s.Record("m1", "engagement", t0.Add(time.Duration(i)*time.Second), v, nil)
	}
	if a := s.Record("m1", "engagement", t0.Add(time.Minute), 1000, nil); a != nil {
		t.Errorf("anomaly on %d-point history: %+v", anomalyMinPoints-1, a)
	}
}

func TestAnomalyFlatSeries(t *testing.T) {
	s := NewStore()
	for i := 0; i < 20; i++ {
		s.Record("m1", "flat", t0.Add(time.Duration(i)*time.Second), 5, nil)
	}
	if a := s.Record("m1", "flat", t0.Add(time.Minute), 500, nil); a != nil {
		t.Errorf("anomaly on zero-variance series: %+v", a)
	}
}

func TestMinutelyAggregation(t *testing.T) {
	s := NewStore()
	s.Record("m1", "alerts", t0.Add(10*time.Second), 1, nil)
	s.Record("m1", "alerts", t0.Add(30*time.Second), 3, nil)
	s.Record("m1", "alerts", t0.Add(70*time.Second), 5, nil)

	got := s.Minutely("m1", "alerts", t0, t0.Add(time.Hour))
	if len(got) != 2 {
		t.Fatalf("buckets=%d", len(got))
	}
	b := got[0]
	if !b.Start.Equal(t0) || b.Count != 2 || b.Sum != 4 || b.Min != 1 || b.Max != 3 || b.Avg() != 2 {
		t.Errorf("first bucket=%+v", b)
	}
	if !got[1].Start.Equal(t0.Add(time.Minute)) || got[1].Count != 1 {
		t.Errorf("second bucket=%+v", got[1])
	}
}

func TestCompress(t *testing.T) {
	s := NewStore()
	// Two old points in the same minute, one recent point.
	s.Record("m1", "energy", t0, 2, nil)
	s.Record("m1", "energy", t0.Add(20*time.Second), 4, nil)
	recent := t0.Add(90 * time.Minute)
	s.Record("m1", "energy", recent, 8, nil)

	before := s.Minutely("m1", "energy", t0, recent.Add(time.Minute))
	s.Compress(recent.Add(time.Second))
	after := s.Minutely("m1", "energy", t0, recent.Add(time.Minute))

	if len(before) != len(after) {
		t.Fatalf("bucket count changed: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("bucket %d changed: %+v -> %+v", i, before[i], after[i])
		}
	}

	// Raw retention: old points folded away, recent one untouched.
	if got := s.Points("m1", "energy", t0, recent.Add(time.Minute)); len(got) != 1 || got[0].Value != 8 {
		t.Errorf("raw points after compress: %+v", got)
	}

	// Compressing again with the same cutoff is a no-op.
	s.Compress(recent.Add(time.Second))
	again := s.Minutely("m1", "energy", t0, recent.Add(time.Minute))
	for i := range after {
		if after[i] != again[i] {
			t.Errorf("bucket %d changed on repeat compress: %+v -> %+v", i, after[i], again[i])
		}
	}
}

func TestHourlyRollup(t *testing.T) {
	s := NewStore()
	s.Record("m1", "speech", t0.Add(5*time.Minute), 10, nil)
	s.Record("m1", "speech", t0.Add(25*time.Minute), 30, nil)
	s.Record("m1", "speech", t0.Add(65*time.Minute), 50, nil)

	got := s.Hourly("m1", "speech", t0, t0.Add(2*time.Hour))
	if len(got) != 2 {
		t.Fatalf("hours=%d", len(got))
	}
	h := got[0]
	if h.Count != 2 || h.Sum != 40 || h.Min != 10 || h.Max != 30 {
		t.Errorf("first hour=%+v", h)
	}
}

func TestExportJSON(t *testing.T) {
	s := NewStore()
	s.Record("m1", "a", t0, 1, nil)
	s.Record("m1", "b", t0, 2, nil)
	s.Record("m2", "a", t0, 9, nil)

	var buf bytes.Buffer
	if err := s.Export(&buf, FormatJSON, Filter{MeetingID: "m1"}); err != nil {
		t.Fatal(err)
	}
	var rows []exportRow
	if err := json.Unmarshal(buf.Bytes(), &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows=%+v", rows)
	}
	for _, r := range rows {
		if r.Avg == 9 {
			t.Error("export leaked another meeting's series")
		}
	}
}

func TestExportCSVFiltered(t *testing.T) {
	s := NewStore()
	s.Record("m1", "a", t0, 1, nil)
	s.Record("m1", "a", t0.Add(10*time.Minute), 2, nil)
	s.Record("m1", "b", t0, 3, nil)

	var buf bytes.Buffer
	err := s.Export(&buf, FormatCSV, Filter{
		MeetingID: "m1", Metric: "a",
		From: t0.Add(5 * time.Minute), To: t0.Add(time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 { // header + one row
		t.Fatalf("lines=%q", lines)
	}
	if !strings.HasPrefix(lines[0], "metric,start,avg") {
		t.Errorf("header=%q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "a,") {
		t.Errorf("row=%q", lines[1])
	}
}

func TestExportRawJSON(t *testing.T) {
	s := NewStore()
	s.Record("m1", "speaking", t0, 1.5, map[string]string{"speaker": "alice"})
	s.Record("m1", "speaking", t0.Add(time.Second), 2.5, map[string]string{"speaker": "bob"})
	s.Record("m1", "other", t0, 9, nil)

	var buf bytes.Buffer
	err := s.Export(&buf, FormatJSON, Filter{MeetingID: "m1", Metric: "speaking", Raw: true})
	if err != nil {
		t.Fatal(err)
	}
	var rows []rawRow
	if err := json.Unmarshal(buf.Bytes(), &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows=%+v", rows)
	}
	if rows[0].Value != 1.5 || rows[0].Meta["speaker"] != "alice" {
		t.Errorf("first row=%+v", rows[0])
	}
	if rows[1].Meta["speaker"] != "bob" {
		t.Errorf("second row=%+v", rows[1])
	}
}

func TestExportRawCSVTimeFiltered(t *testing.T) {
	s := NewStore()
	s.Record("m1", "speaking", t0, 1, map[string]string{"speaker": "alice", "role": "host"})
	s.Record("m1", "speaking", t0.Add(time.Minute), 2, nil)

	var buf bytes.Buffer
	err := s.Export(&buf, FormatCSV, Filter{
		MeetingID: "m1", Metric: "speaking", Raw: true,
		From: t0, To: t0.Add(30 * time.Second),
	})
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 { // header + one row
		t.Fatalf("lines=%q", lines)
	}
	if lines[0] != "metric,time,value,meta" {
		t.Errorf("header=%q", lines[0])
	}
	if !strings.Contains(lines[1], "role=host;speaker=alice") {
		t.Errorf("row=%q", lines[1])
	}
}

func TestExportUnknownFormat(t *testing.T) {
	s := NewStore()
	if err := s.Export(&bytes.Buffer{}, Format("xml"), Filter{MeetingID: "m1"}); err == nil {
		t.Fatal("no error")
	}
}

func TestDrop(t *testing.T) {
	s := NewStore()
	s.Record("m1", "a", t0, 1, nil)
	s.Record("m2", "a", t0, 1, nil)
	s.Drop("m1")
	if got := s.Names("m1"); len(got) != 0 {
		t.Errorf("names=%v", got)
	}
	if got := s.Names("m2"); len(got) != 1 {
		t.Errorf("m2 names=%v", got)
	}
}
