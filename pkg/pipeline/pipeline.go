// Package pipeline wires one meeting's engines into a single
// processing loop: ingestion feeds the sliding-window analyzer, the
// alert rule engine, the decision tracker and the metric store, and
// everything they produce is broadcast to the meeting room and
// persisted best-effort.
//
// Each meeting runs its own Pipeline goroutine; per-meeting state is
// mutated only from that goroutine, so the engines need no locking.
// Meetings never share mutable state.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/confabhq/confab/pkg/alert"
	"github.com/confabhq/confab/pkg/analyze"
	"github.com/confabhq/confab/pkg/decision"
	"github.com/confabhq/confab/pkg/ingest"
	"github.com/confabhq/confab/pkg/meeting"
	"github.com/confabhq/confab/pkg/metrics"
	"github.com/confabhq/confab/pkg/storage"
	"github.com/confabhq/confab/pkg/store"
	"github.com/confabhq/confab/pkg/summarize"
	"github.com/confabhq/confab/pkg/transcribe"
)

// Publisher delivers events to a meeting room. *broadcast.Hub
// satisfies it.
type Publisher interface {
	Publish(meetingID string, env meeting.Envelope)
}

// Intervals are the pipeline's periodic timers. Zero fields select the
// defaults; tests shrink them.
type Intervals struct {
	Tick     time.Duration // analysis recompute + alert drain, default 1s
	Flush    time.Duration // segment persistence, default 5s
	Review   time.Duration // participation/energy review, default 30s
	Rollup   time.Duration // metric aggregation snapshot, default 60s
	Compress time.Duration // metric compression sweep, default 1h
}

func (iv *Intervals) defaults() {
	if iv.Tick <= 0 {
		iv.Tick = time.Second
	}
	if iv.Flush <= 0 {
		iv.Flush = ingest.DefaultFlushInterval
	}
	if iv.Review <= 0 {
		iv.Review = 30 * time.Second
	}
	if iv.Rollup <= 0 {
		iv.Rollup = time.Minute
	}
	if iv.Compress <= 0 {
		iv.Compress = time.Hour
	}
}

// DefaultBreakAfter is how long a meeting runs before the pipeline
// suggests a break.
const DefaultBreakAfter = 45 * time.Minute

// Options configures one meeting's pipeline.
type Options struct {
	MeetingID string // required
	Title     string
	OrgID     string

	// Language hint and organization vocabulary for transcription.
	Language   string
	Vocabulary []string

	// OrgRules extend the built-in alert rules.
	OrgRules []*meeting.Rule

	// Transcriber is the speech-to-text collaborator. Required.
	Transcriber transcribe.Transcriber

	// Store is the durable store. Required.
	Store store.Store

	// Publisher broadcasts events to the meeting room. May be nil.
	Publisher Publisher

	// Metrics receives pipeline samples. May be nil.
	Metrics *metrics.Store

	// Summarizer produces the end-of-meeting summary. May be nil.
	Summarizer summarize.Summarizer

	// Notifier is the out-of-band path for high/critical alerts.
	Notifier alert.Notifier

	// Artifacts, when set, receives the end-of-meeting metric archive
	// under meetings/<id>/metrics.json before the series are dropped.
	Artifacts storage.FileStore

	// BreakAfter overrides DefaultBreakAfter.
	BreakAfter time.Duration

	Intervals Intervals
	Logger    *slog.Logger
}

// Pipeline owns one meeting's engines. All engine access happens on
// the Run goroutine; PushAudio and Stop are the only concurrent entry
// points.
type Pipeline struct {
	opts Options
	log  *slog.Logger

	gateway   *ingest.Gateway
	analyzer  *analyze.Analyzer
	alerts    *alert.Engine
	decisions *decision.Tracker

	audioCh chan []byte
	done    chan struct{}

	started        time.Time
	lastSnap       *analyze.Snapshot
	lastSegmentAt  time.Time
	breakSuggested bool
	silenceWarned  bool
}

// New builds a Pipeline; Run must be called to start it.
func New(opts Options) (*Pipeline, error) {
	if opts.MeetingID == "" {
		return nil, fmt.Errorf("pipeline: meeting id required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("pipeline: store required")
	}
	if opts.Transcriber == nil {
		return nil, fmt.Errorf("pipeline: transcriber required")
	}
	if opts.BreakAfter <= 0 {
		opts.BreakAfter = DefaultBreakAfter
	}
	opts.Intervals.defaults()
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	log := opts.Logger.With("meeting_id", opts.MeetingID)

	p := &Pipeline{
		opts:    opts,
		log:     log,
		audioCh: make(chan []byte, 256),
		done:    make(chan struct{}),
	}

	var err error
	p.gateway, err = ingest.NewGateway(ingest.Options{
		MeetingID:     opts.MeetingID,
		Transcriber:   opts.Transcriber,
		Language:      opts.Language,
		Vocabulary:    opts.Vocabulary,
		Store:         opts.Store,
		FlushInterval: opts.Intervals.Flush,
		OnError:       p.emitError,
		Logger:        log,
	})
	if err != nil {
		return nil, err
	}

	p.analyzer = analyze.New(analyze.Config{})
	p.decisions = decision.NewTracker(decision.Config{MeetingID: opts.MeetingID})
	p.alerts, err = alert.NewEngine(alert.Options{
		MeetingID: opts.MeetingID,
		OrgRules:  opts.OrgRules,
		Store:     opts.Store,
		Notifier:  opts.Notifier,
		OnAlert:   p.onAlert,
		OnError:   p.publishErrorEvent,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// PushAudio hands raw PCM to the pipeline. It never blocks: when the
// pipeline is saturated the chunk is dropped with a warning.
func (p *Pipeline) PushAudio(pcm []byte) {
	data := append([]byte(nil), pcm...)
	select {
	case p.audioCh <- data:
	case <-p.done:
	default:
		p.log.Warn("audio queue full, dropping chunk", "bytes", len(pcm))
	}
}

// Done is closed after the final flush completes.
func (p *Pipeline) Done() <-chan struct{} { return p.done }

// Run processes audio and timers until ctx is cancelled, then runs the
// shutdown sequence: flush all buffers, final aggregation, summary,
// status update.
func (p *Pipeline) Run(ctx context.Context) {
	p.started = time.Now()
	p.lastSegmentAt = p.started

	tick := time.NewTicker(p.opts.Intervals.Tick)
	flush := time.NewTicker(p.opts.Intervals.Flush)
	review := time.NewTicker(p.opts.Intervals.Review)
	rollup := time.NewTicker(p.opts.Intervals.Rollup)
	compress := time.NewTicker(p.opts.Intervals.Compress)
	defer tick.Stop()
	defer flush.Stop()
	defer review.Stop()
	defer rollup.Stop()
	defer compress.Stop()

	for {
		select {
		case <-ctx.Done():
			p.finish(context.WithoutCancel(ctx))
			close(p.done)
			return
		case pcm := <-p.audioCh:
			for _, seg := range p.gateway.Push(ctx, pcm) {
				p.handleSegment(ctx, seg)
			}
		case now := <-tick.C:
			p.onTick(ctx, now)
		case <-flush.C:
			p.gateway.Flush(ctx)
		case now := <-review.C:
			p.review(ctx, now)
		case now := <-rollup.C:
			p.rollup(now)
		case now := <-compress.C:
			if p.opts.Metrics != nil {
				p.opts.Metrics.Compress(now)
			}
		}
	}
}

// handleSegment pushes one transcript segment through every engine.
func (p *Pipeline) handleSegment(ctx context.Context, seg *meeting.Segment) {
	p.lastSegmentAt = seg.EndTime
	p.silenceWarned = false
	p.publish(meeting.EvTranscriptionChunk, seg)

	important := p.analyzer.Add(seg)
	if important {
		p.publishSnapshot(ctx, p.analyzer.Analyze(seg.EndTime))
	}

	p.alerts.Evaluate(&alert.Input{Segment: seg, Snapshot: p.lastSnap})

	for _, ev := range p.decisions.Observe(seg) {
		p.onDecisionEvent(ctx, ev)
	}

	meta := map[string]string{"speaker": seg.Speaker}
	p.record("segment.confidence", seg.EndTime, seg.Confidence, meta)
	if seg.Voice != nil {
		p.record("voice.energy", seg.EndTime, seg.Voice.Energy, meta)
	}
	p.record("speaking.seconds."+seg.Speaker, seg.EndTime, seg.Duration().Seconds(), meta)
}

// onTick recomputes the rolling analysis, advances the question
// tracker and drains one queued alert.
func (p *Pipeline) onTick(ctx context.Context, now time.Time) {
	if p.analyzer.WindowLen() > 0 {
		p.publishSnapshot(ctx, p.analyzer.Analyze(now))
	}
	p.alerts.Tick(now)
	p.alerts.DrainOnce(ctx)
}

// publishSnapshot broadcasts an analysis update and reacts to topic
// shifts: a shift can implicitly finalize the active decision.
func (p *Pipeline) publishSnapshot(ctx context.Context, snap *analyze.Snapshot) {
	p.lastSnap = snap
	p.publish(meeting.EvAnalysisUpdate, snap)
	p.record("sentiment.score", snap.At, snap.Sentiment.Score, nil)

	if snap.Topics.Shift != nil {
		for _, ev := range p.decisions.OnTopicShift(snap.At) {
			p.onDecisionEvent(ctx, ev)
		}
	}
}

// onAlert broadcasts a drained alert.
func (p *Pipeline) onAlert(a *meeting.Alert) {
	p.publish(meeting.EvAlertTriggered, a)
	p.record("alerts."+a.Priority.String(), a.CreatedAt, 1, map[string]string{"rule": a.RuleID})
}

// onDecisionEvent persists and broadcasts a decision change, and runs
// the cross-engine conflict correlation when a decision lands agreed.
func (p *Pipeline) onDecisionEvent(ctx context.Context, ev decision.Event) {
	d := ev.Decision
	if err := p.opts.Store.UpsertDecision(ctx, d); err != nil {
		p.emitError("persistence", err)
	}
	p.publish(meeting.EvInsightGenerated, map[string]any{
		"kind":     "decision-" + string(ev.Kind),
		"decision": d,
	})

	if ev.Kind == decision.EventFinalized && d.Status == meeting.DecisionAgreed {
		p.warnConflicts(ctx, d)
	}
}

// warnConflicts raises a combined warning when a freshly agreed
// decision conflicts with another recent decision.
func (p *Pipeline) warnConflicts(ctx context.Context, d *meeting.Decision) {
	for _, c := range p.decisions.Conflicts(d.FinalizedAt) {
		if c.A.ID != d.ID && c.B.ID != d.ID {
			continue
		}
		other := c.A
		if other.ID == d.ID {
			other = c.B
		}
		p.insight(ctx, "warning", "Conflicting decisions",
			fmt.Sprintf("%q was agreed but conflicts with %q (%s: %s)",
				d.Description, other.Description, c.Kind, c.Detail))
	}
}

// review runs the 30s participation pass: sustained silence with open
// questions, and the long-meeting break suggestion.
func (p *Pipeline) review(ctx context.Context, now time.Time) {
	silent := now.Sub(p.lastSegmentAt) >= p.opts.Intervals.Review
	if silent && p.alerts.OpenQuestions() > 0 && !p.silenceWarned {
		p.silenceWarned = true
		p.insight(ctx, "suggestion", "Open questions going unanswered",
			fmt.Sprintf("The room has been quiet for %s with %d question(s) still open; consider revisiting them.",
				now.Sub(p.lastSegmentAt).Round(time.Second), p.alerts.OpenQuestions()))
	}

	if !p.breakSuggested && now.Sub(p.started) >= p.opts.BreakAfter {
		p.breakSuggested = true
		p.insight(ctx, "suggestion", "Time for a break",
			fmt.Sprintf("The meeting has been running for %s without a pause.",
				now.Sub(p.started).Round(time.Minute)))
	}
}

// rollup records coarse per-speaker aggregates once a minute so that
// long-horizon metrics survive window trimming.
func (p *Pipeline) rollup(now time.Time) {
	if p.lastSnap == nil {
		return
	}
	for speaker, e := range p.lastSnap.Engagement {
		p.record("engagement."+speaker, now, e.Level, map[string]string{"speaker": speaker})
	}
	p.record("dynamics.balance", now, p.lastSnap.Dynamics.Balance, nil)
}

// finish is the cancellation sequence: drain remaining audio, flush
// every buffer, persist final state and emit the summary.
func (p *Pipeline) finish(ctx context.Context) {
	// Drain audio already queued before the stop.
	for {
		select {
		case pcm := <-p.audioCh:
			for _, seg := range p.gateway.Push(ctx, pcm) {
				p.handleSegment(ctx, seg)
			}
			continue
		default:
		}
		break
	}
	for _, seg := range p.gateway.Close(ctx) {
		p.handleSegment(ctx, seg)
	}
	p.gateway.Flush(ctx)

	// Finalize the dangling decision as deferred so nothing stays
	// active past the meeting.
	now := time.Now()
	for _, ev := range p.decisions.CloseActive(now) {
		p.onDecisionEvent(ctx, ev)
	}
	p.alerts.Flush(ctx)

	if p.analyzer.WindowLen() > 0 {
		p.publishSnapshot(ctx, p.analyzer.Analyze(now))
	}

	p.summarizeMeeting(ctx)

	speakers := p.gateway.Speakers().Labels()
	upd := &meeting.StatusUpdate{
		MeetingID:       p.opts.MeetingID,
		Status:          "completed",
		EndTime:         now,
		Speakers:        speakers,
		DurationSeconds: int(now.Sub(p.started).Seconds()),
	}
	if err := p.opts.Store.UpdateMeetingStatus(ctx, upd); err != nil {
		p.emitError("persistence", err)
	}
	if p.opts.Metrics != nil {
		p.archiveMetrics(ctx)
		p.opts.Metrics.Drop(p.opts.MeetingID)
	}
	p.log.Info("pipeline finished",
		"duration", now.Sub(p.started).Round(time.Second), "speakers", len(speakers))
}

// archiveMetrics writes the meeting's metric series to the artifact
// store before they are dropped from memory: per-minute aggregates in
// metrics.json, the raw samples still in the retention window (with
// their metadata) in metrics-raw.json.
func (p *Pipeline) archiveMetrics(ctx context.Context) {
	if p.opts.Artifacts == nil {
		return
	}
	exports := []struct {
		name   string
		filter metrics.Filter
	}{
		{"metrics.json", metrics.Filter{MeetingID: p.opts.MeetingID}},
		{"metrics-raw.json", metrics.Filter{MeetingID: p.opts.MeetingID, Raw: true}},
	}
	for _, e := range exports {
		var buf bytes.Buffer
		if err := p.opts.Metrics.Export(&buf, metrics.FormatJSON, e.filter); err != nil {
			p.emitError("export", err)
			continue
		}
		path := "meetings/" + p.opts.MeetingID + "/" + e.name
		if err := storage.WriteAll(ctx, p.opts.Artifacts, path, buf.Bytes()); err != nil {
			p.emitError("export", err)
		}
	}
}

// summarizeMeeting asks the LLM collaborator for the final summary.
func (p *Pipeline) summarizeMeeting(ctx context.Context) {
	if p.opts.Summarizer == nil {
		return
	}
	segs, err := p.opts.Store.ListSegments(ctx, p.opts.MeetingID)
	if err != nil {
		p.emitError("persistence", err)
		return
	}
	sum, err := p.opts.Summarizer.Summarize(ctx, summarize.Input{
		MeetingID: p.opts.MeetingID,
		Title:     p.opts.Title,
		Duration:  time.Since(p.started),
		Segments:  segs,
		Decisions: p.decisions.Finalized(),
	})
	if err != nil {
		p.emitError("summary", err)
		return
	}
	ins := summarize.AsInsight(p.opts.MeetingID, uuid.NewString(), sum)
	ins.CreatedAt = time.Now()
	if err := p.opts.Store.UpsertInsight(ctx, ins); err != nil {
		p.emitError("persistence", err)
	}
	p.publish(meeting.EvInsightGenerated, ins)
}

// insight persists and broadcasts a derived observation.
func (p *Pipeline) insight(ctx context.Context, kind, title, content string) {
	ins := &meeting.Insight{
		ID:        uuid.NewString(),
		MeetingID: p.opts.MeetingID,
		Kind:      kind,
		Title:     title,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := p.opts.Store.UpsertInsight(ctx, ins); err != nil {
		p.emitError("persistence", err)
	}
	p.publish(meeting.EvInsightGenerated, ins)
}

// record writes one metric sample; detected anomalies are broadcast as
// events, never raised as failures.
func (p *Pipeline) record(name string, at time.Time, v float64, meta map[string]string) {
	if p.opts.Metrics == nil {
		return
	}
	if a := p.opts.Metrics.Record(p.opts.MeetingID, name, at, v, meta); a != nil {
		p.publish(meeting.EvInsightGenerated, map[string]any{
			"kind":     "anomaly",
			"metric":   a.Metric,
			"value":    a.Point.Value,
			"mean":     a.Mean,
			"stddev":   a.Stddev,
			"score":    a.Score,
			"priority": a.Priority.String(),
		})
	}
}

func (p *Pipeline) publish(typ string, data any) {
	if p.opts.Publisher == nil {
		return
	}
	p.opts.Publisher.Publish(p.opts.MeetingID, meeting.NewEnvelope(typ, p.opts.MeetingID, data))
}

// emitError logs and broadcasts a pipeline failure so it is observable
// externally.
func (p *Pipeline) emitError(kind string, err error) {
	p.publishErrorEvent(meeting.ErrorEvent{
		Type:      kind,
		MeetingID: p.opts.MeetingID,
		Cause:     err.Error(),
	})
}

func (p *Pipeline) publishErrorEvent(ev meeting.ErrorEvent) {
	p.log.Error("pipeline error", "type", ev.Type, "cause", ev.Cause)
	p.publish(meeting.EvError, ev)
}
