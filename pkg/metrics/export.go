package metrics

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Format selects the export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

var ErrUnknownFormat = errors.New("metrics: unknown export format")

// Filter narrows an export. Zero From/To mean unbounded; empty Metric
// exports every series of the meeting.
type Filter struct {
	MeetingID string
	Metric    string
	From, To  time.Time

	// Raw exports the un-aggregated samples (with their metadata)
	// instead of per-minute aggregate rows. Only samples still inside
	// the raw retention window are available; compressed history is
	// export-able in aggregate form only.
	Raw bool
}

func (f Filter) bounds() (time.Time, time.Time) {
	from, to := f.From, f.To
	if to.IsZero() {
		to = time.Unix(1<<62, 0)
	}
	return from, to
}

// exportRow is one per-minute aggregate in the export output.
type exportRow struct {
	Metric string    `json:"metric"`
	Start  time.Time `json:"start"`
	Avg    float64   `json:"avg"`
	Min    float64   `json:"min"`
	Max    float64   `json:"max"`
	Count  int       `json:"count"`
}

// rawRow is one un-aggregated sample in the export output.
type rawRow struct {
	Metric string            `json:"metric"`
	Time   time.Time         `json:"time"`
	Value  float64           `json:"value"`
	Meta   map[string]string `json:"meta,omitempty"`
}

// Export writes the series matching the filter to w: per-minute
// aggregates by default, un-aggregated samples when Filter.Raw is set.
func (s *Store) Export(w io.Writer, format Format, f Filter) error {
	if f.Raw {
		return s.exportRaw(w, format, f)
	}
	rows := s.rows(f)
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"metric", "start", "avg", "min", "max", "count"}); err != nil {
			return err
		}
		for _, r := range rows {
			rec := []string{
				r.Metric,
				r.Start.Format(time.RFC3339),
				strconv.FormatFloat(r.Avg, 'f', -1, 64),
				strconv.FormatFloat(r.Min, 'f', -1, 64),
				strconv.FormatFloat(r.Max, 'f', -1, 64),
				strconv.Itoa(r.Count),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func (s *Store) exportRaw(w io.Writer, format Format, f Filter) error {
	rows := s.rawRows(f)
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"metric", "time", "value", "meta"}); err != nil {
			return err
		}
		for _, r := range rows {
			rec := []string{
				r.Metric,
				r.Time.Format(time.RFC3339Nano),
				strconv.FormatFloat(r.Value, 'f', -1, 64),
				formatMeta(r.Meta),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// formatMeta renders metadata as "k=v;k=v" with sorted keys, so CSV
// rows are stable.
func formatMeta(meta map[string]string) string {
	if len(meta) == 0 {
		return ""
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + meta[k]
	}
	return strings.Join(parts, ";")
}

func (s *Store) rawRows(f Filter) []rawRow {
	names := []string{f.Metric}
	if f.Metric == "" {
		names = s.Names(f.MeetingID)
	}
	from, to := f.bounds()

	rows := make([]rawRow, 0)
	for _, name := range names {
		for _, p := range s.Points(f.MeetingID, name, from, to) {
			rows = append(rows, rawRow{Metric: name, Time: p.Time, Value: p.Value, Meta: p.Meta})
		}
	}
	return rows
}

func (s *Store) rows(f Filter) []exportRow {
	names := []string{f.Metric}
	if f.Metric == "" {
		names = s.Names(f.MeetingID)
	}
	from, to := f.bounds()

	rows := make([]exportRow, 0)
	for _, name := range names {
		for _, b := range s.Minutely(f.MeetingID, name, from, to) {
			rows = append(rows, exportRow{
				Metric: name,
				Start:  b.Start,
				Avg:    b.Avg(),
				Min:    b.Min,
				Max:    b.Max,
				Count:  b.Count,
			})
		}
	}
	return rows
}
