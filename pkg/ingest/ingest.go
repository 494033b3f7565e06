// Package ingest turns raw participant audio into speaker-attributed
// transcript segments.
//
// Incoming PCM is re-framed into fixed chunks with a small overlap,
// gated on RMS energy so silence never reaches the transcription
// engine, attributed to a speaker by voice-signature matching, sent to
// the engine with the language hint and organization vocabulary, and
// finally post-corrected per locale. Produced segments are delivered
// immediately and buffered for periodic persistence, so live latency
// does not ride on store latency.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/confabhq/confab/pkg/audio"
	"github.com/confabhq/confab/pkg/meeting"
	"github.com/confabhq/confab/pkg/speaker"
	"github.com/confabhq/confab/pkg/transcribe"
)

// DefaultFlushInterval is how often buffered segments are persisted.
const DefaultFlushInterval = 5 * time.Second

// SegmentStore is the persistence subset the gateway needs.
type SegmentStore interface {
	AppendSegments(ctx context.Context, segs []*meeting.Segment) error
}

// Options configures a Gateway.
type Options struct {
	// MeetingID stamps produced segments. Required.
	MeetingID string

	// Transcriber is the external speech-to-text collaborator. Required.
	Transcriber transcribe.Transcriber

	// Language hint forwarded to the engine, e.g. "en-US".
	Language string

	// Vocabulary is the organization's custom term list.
	Vocabulary []string

	// SilenceThreshold gates chunks on RMS energy. Defaults to
	// audio.DefaultSilenceThreshold.
	SilenceThreshold float64

	// Store receives buffered segments on Flush. Optional; without it
	// segments are only delivered via OnSegment.
	Store SegmentStore

	// FlushInterval drives Run's periodic persistence. Defaults to
	// DefaultFlushInterval.
	FlushInterval time.Duration

	// OnSegment is called for every produced segment, in order.
	OnSegment func(*meeting.Segment)

	// OnError observes per-stage failures ("transcription",
	// "persistence"). Failures skip the failing unit and keep the
	// stream going.
	OnError func(stage string, err error)

	Logger *slog.Logger
}

func (o *Options) defaults() error {
	if o.MeetingID == "" {
		return fmt.Errorf("ingest: meeting id required")
	}
	if o.Transcriber == nil {
		return fmt.Errorf("ingest: transcriber required")
	}
	if o.SilenceThreshold <= 0 {
		o.SilenceThreshold = audio.DefaultSilenceThreshold
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = DefaultFlushInterval
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return nil
}

// Gateway ingests one meeting's audio. It is owned by the meeting's
// pipeline goroutine and is not safe for concurrent use.
type Gateway struct {
	opts     Options
	chunker  *audio.Chunker
	speakers *speaker.Registry

	base   time.Time // wall time of the first chunk's start
	chunks int       // completed chunks so far

	pending []*meeting.Segment // awaiting persistence
}

// NewGateway creates a Gateway for one meeting.
func NewGateway(opts Options) (*Gateway, error) {
	if err := opts.defaults(); err != nil {
		return nil, err
	}
	return &Gateway{
		opts:     opts,
		chunker:  audio.NewChunker(),
		speakers: speaker.NewRegistry(),
	}, nil
}

// Speakers exposes the per-meeting speaker registry.
func (g *Gateway) Speakers() *speaker.Registry { return g.speakers }

// Push feeds raw PCM16LE audio into the gateway and returns the
// segments produced by any chunks completed by this write.
func (g *Gateway) Push(ctx context.Context, pcm []byte) []*meeting.Segment {
	if g.base.IsZero() {
		g.base = time.Now()
	}
	var out []*meeting.Segment
	for _, chunk := range g.chunker.Push(pcm) {
		if seg := g.process(ctx, chunk); seg != nil {
			out = append(out, seg)
		}
	}
	return out
}

// chunkStep is the stride between consecutive chunk start times.
const chunkStep = audio.ChunkDuration - audio.ChunkOverlap

// process runs one complete chunk through the gate, speaker binding
// and transcription. Returns nil for silence, engine failures and
// empty transcripts.
func (g *Gateway) process(ctx context.Context, chunk []byte) *meeting.Segment {
	start := g.base.Add(time.Duration(g.chunks) * chunkStep)
	g.chunks++

	rms := audio.RMS(chunk)
	if rms < g.opts.SilenceThreshold {
		return nil
	}

	sig := audio.Signature(chunk)
	prof, created := g.speakers.Identify(sig)
	if created {
		g.opts.Logger.Debug("new speaker profile",
			"meeting_id", g.opts.MeetingID, "speaker", prof.Label)
	}

	res, err := g.opts.Transcriber.Transcribe(ctx, &transcribe.Request{
		Audio:      chunk,
		Language:   g.opts.Language,
		Vocabulary: g.opts.Vocabulary,
	})
	if err != nil {
		g.fail("transcription", err)
		return nil
	}
	text := strings.TrimSpace(transcribe.Correct(res.Text, res.Language))
	if text == "" {
		return nil
	}
	prof.WordCount += len(strings.Fields(text))

	end := start.Add(audio.ChunkDuration)
	seg := &meeting.Segment{
		ID:         uuid.NewString(),
		MeetingID:  g.opts.MeetingID,
		Speaker:    prof.Label,
		Text:       text,
		StartTime:  start,
		EndTime:    end,
		Confidence: res.Confidence,
		Language:   res.Language,
		Voice:      voiceStats(rms, sig, text),
	}
	g.pending = append(g.pending, seg)
	if g.opts.OnSegment != nil {
		g.opts.OnSegment(seg)
	}
	return seg
}

// voiceStats derives acoustic features for downstream scoring: energy
// from RMS, relative pitch from the spectral-band centroid, pace from
// the word rate.
func voiceStats(rms float64, sig []float64, text string) *meeting.VoiceStats {
	energy := rms / 0.3
	if energy > 1 {
		energy = 1
	}
	var weight, centroid float64
	for i, v := range sig {
		weight += v
		centroid += float64(i) * v
	}
	pitch := 0.5
	if weight > 0 {
		pitch = centroid / weight / float64(len(sig)-1)
	}
	return &meeting.VoiceStats{
		Energy: energy,
		Pitch:  pitch,
		Pace:   float64(len(strings.Fields(text))) / audio.ChunkDuration.Seconds(),
	}
}

// Flush persists buffered segments. Store failures are reported via
// OnError; the segments are kept for the next attempt.
func (g *Gateway) Flush(ctx context.Context) {
	if g.opts.Store == nil || len(g.pending) == 0 {
		return
	}
	if err := g.opts.Store.AppendSegments(ctx, g.pending); err != nil {
		g.fail("persistence", err)
		return
	}
	g.pending = g.pending[:0]
}

// Close drains the partial trailing chunk and flushes the store buffer.
func (g *Gateway) Close(ctx context.Context) []*meeting.Segment {
	var out []*meeting.Segment
	if tail := g.chunker.Flush(); tail != nil {
		if seg := g.process(ctx, tail); seg != nil {
			out = append(out, seg)
		}
	}
	g.Flush(ctx)
	return out
}

func (g *Gateway) fail(stage string, err error) {
	g.opts.Logger.Error("ingest stage failed",
		"meeting_id", g.opts.MeetingID, "stage", stage, "error", err)
	if g.opts.OnError != nil {
		g.opts.OnError(stage, err)
	}
}
