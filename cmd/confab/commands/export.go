package commands

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/confabhq/confab/pkg/meeting"
	"github.com/confabhq/confab/pkg/storage"
	"github.com/confabhq/confab/pkg/store"
)

var (
	exportMeetingID string
	exportFormat    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a meeting's stored artifacts",
	Long: `Export everything persisted for one meeting: transcript, alerts,
decisions and insights. Artifacts are written to the configured export
backend (local directory or S3 bucket) under <meeting-id>/.

Formats:
  json - one JSON file per artifact type
  csv  - transcript as CSV, everything else as JSON

Example:
  confab export --config confab.yaml --meeting m-42 --format csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cfgFile)
		if err != nil {
			return err
		}
		if exportMeetingID == "" {
			return fmt.Errorf("--meeting is required")
		}
		return runExport(cmd.Context(), cfg, exportMeetingID, exportFormat)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportMeetingID, "meeting", "", "meeting ID to export (required)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "transcript format: json or csv")
}

func runExport(ctx context.Context, cfg *Config, meetingID, format string) error {
	if format != "json" && format != "csv" {
		return fmt.Errorf("unknown format %q", format)
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	db, err := store.NewBadger(store.BadgerOptions{Dir: cfg.DataDir})
	if err != nil {
		return err
	}
	defer db.Close()

	fs, err := cfg.Export.fileStore()
	if err != nil {
		return err
	}

	segments, err := db.ListSegments(ctx, meetingID)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return fmt.Errorf("no transcript for meeting %s", meetingID)
	}

	if format == "csv" {
		if err := writeArtifact(ctx, fs, meetingID+"/transcript.csv", func(b *strings.Builder) error {
			return writeTranscriptCSV(b, segments)
		}); err != nil {
			return err
		}
	} else {
		if err := writeJSONArtifact(ctx, fs, meetingID+"/transcript.json", segments); err != nil {
			return err
		}
	}

	alerts, err := db.ListAlerts(ctx, meetingID)
	if err != nil {
		return err
	}
	decisions, err := db.ListDecisions(ctx, meetingID)
	if err != nil {
		return err
	}
	insights, err := db.ListInsights(ctx, meetingID)
	if err != nil {
		return err
	}

	for path, v := range map[string]any{
		meetingID + "/alerts.json":    alerts,
		meetingID + "/decisions.json": decisions,
		meetingID + "/insights.json":  insights,
	} {
		if err := writeJSONArtifact(ctx, fs, path, v); err != nil {
			return err
		}
	}

	fmt.Printf("exported meeting %s: %d segments, %d alerts, %d decisions, %d insights\n",
		meetingID, len(segments), len(alerts), len(decisions), len(insights))
	return nil
}

func writeJSONArtifact(ctx context.Context, fs storage.FileStore, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return storage.WriteAll(ctx, fs, path, data)
}

func writeArtifact(ctx context.Context, fs storage.FileStore, path string, fill func(*strings.Builder) error) error {
	var b strings.Builder
	if err := fill(&b); err != nil {
		return err
	}
	return storage.WriteAll(ctx, fs, path, []byte(b.String()))
}

func writeTranscriptCSV(b *strings.Builder, segments []*meeting.Segment) error {
	w := csv.NewWriter(b)
	if err := w.Write([]string{"start", "end", "speaker", "text", "confidence"}); err != nil {
		return err
	}
	for _, seg := range segments {
		rec := []string{
			seg.StartTime.Format(time.RFC3339Nano),
			seg.EndTime.Format(time.RFC3339Nano),
			seg.Speaker,
			seg.Text,
			strconv.FormatFloat(seg.Confidence, 'f', -1, 64),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
