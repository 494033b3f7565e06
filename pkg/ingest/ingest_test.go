package ingest

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/confabhq/confab/pkg/audio"
	"github.com/confabhq/confab/pkg/meeting"
	"github.com/confabhq/confab/pkg/transcribe"
)

// sinePCM generates n samples of a sine tone as PCM16LE.
func sinePCM(freq, amp float64, n int) []byte {
	out := make([]byte, 2*n)
	for i := 0; i < n; i++ {
		v := int16(amp * 32767 * math.Sin(2*math.Pi*freq*float64(i)/audio.SampleRate))
		out[2*i] = byte(v)
		out[2*i+1] = byte(v >> 8)
	}
	return out
}

func speech() []byte {
	return sinePCM(440, 0.3, audio.BytesIn(audio.ChunkDuration)/2)
}

type countingTranscriber struct {
	calls int
	text  string
	err   error
}

func (c *countingTranscriber) Transcribe(_ context.Context, req *transcribe.Request) (*transcribe.Result, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &transcribe.Result{Text: c.text, Language: "en-US", Confidence: 0.9}, nil
}

type captureStore struct {
	appended []*meeting.Segment
	failNext error
}

func (s *captureStore) AppendSegments(_ context.Context, segs []*meeting.Segment) error {
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return err
	}
	s.appended = append(s.appended, segs...)
	return nil
}

func newGateway(t *testing.T, opts Options) *Gateway {
	t.Helper()
	if opts.MeetingID == "" {
		opts.MeetingID = "m1"
	}
	g, err := NewGateway(opts)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestPushProducesSegments(t *testing.T) {
	tr := &countingTranscriber{text: "we gonna ship friday"}
	g := newGateway(t, Options{Transcriber: tr, Language: "en-US"})

	segs := g.Push(context.Background(), speech())
	if len(segs) != 1 {
		t.Fatalf("segments=%d", len(segs))
	}
	seg := segs[0]
	if err := seg.Validate(); err != nil {
		t.Fatal(err)
	}
	if seg.Speaker != "speaker-1" {
		t.Errorf("speaker=%q", seg.Speaker)
	}
	if seg.Text != "we going to ship friday" {
		t.Errorf("text=%q", seg.Text)
	}
	if d := seg.Duration(); d != audio.ChunkDuration {
		t.Errorf("duration=%s", d)
	}
	if seg.Voice == nil || seg.Voice.Energy <= 0 || seg.Voice.Pace <= 0 {
		t.Errorf("voice=%+v", seg.Voice)
	}
}

func TestSilenceSkipsTranscription(t *testing.T) {
	tr := &countingTranscriber{text: "should not appear"}
	g := newGateway(t, Options{Transcriber: tr})

	segs := g.Push(context.Background(), make([]byte, audio.BytesIn(audio.ChunkDuration)))
	if len(segs) != 0 {
		t.Errorf("segments=%d from silence", len(segs))
	}
	if tr.calls != 0 {
		t.Errorf("transcriber called %d times for silence", tr.calls)
	}
}

func TestSpeakerStaysBound(t *testing.T) {
	tr := &countingTranscriber{text: "one two three"}
	g := newGateway(t, Options{Transcriber: tr})

	ctx := context.Background()
	g.Push(ctx, speech())
	segs := g.Push(ctx, speech())
	if len(segs) == 0 {
		t.Fatal("no segments")
	}
	for _, seg := range segs {
		if seg.Speaker != "speaker-1" {
			t.Errorf("speaker=%q, same voice split across profiles", seg.Speaker)
		}
	}
	if n := len(g.Speakers().Profiles()); n != 1 {
		t.Errorf("profiles=%d", n)
	}
	if wc := g.Speakers().Lookup("speaker-1").WordCount; wc == 0 {
		t.Error("word count not accumulated")
	}
}

func TestTranscriptionFailureSkipsChunk(t *testing.T) {
	tr := &countingTranscriber{err: errors.New("engine down")}
	var stage string
	g := newGateway(t, Options{
		Transcriber: tr,
		OnError:     func(s string, _ error) { stage = s },
	})

	ctx := context.Background()
	if segs := g.Push(ctx, speech()); len(segs) != 0 {
		t.Errorf("segments=%d despite engine failure", len(segs))
	}
	if stage != "transcription" {
		t.Errorf("stage=%q", stage)
	}

	// Recovery: the stream keeps going once the engine is back.
	tr.err = nil
	tr.text = "back online"
	if segs := g.Push(ctx, speech()); len(segs) != 1 {
		t.Errorf("segments=%d after recovery", len(segs))
	}
}

func TestFlushPersists(t *testing.T) {
	tr := &countingTranscriber{text: "persist me"}
	st := &captureStore{}
	g := newGateway(t, Options{Transcriber: tr, Store: st})

	ctx := context.Background()
	g.Push(ctx, speech())
	g.Flush(ctx)
	if len(st.appended) != 1 {
		t.Fatalf("appended=%d", len(st.appended))
	}

	// A failed flush keeps the batch for the next attempt.
	g.Push(ctx, speech())
	st.failNext = errors.New("store down")
	g.Flush(ctx)
	if len(st.appended) != 1 {
		t.Fatalf("appended=%d after failed flush", len(st.appended))
	}
	g.Flush(ctx)
	if len(st.appended) != 2 {
		t.Errorf("appended=%d after retry", len(st.appended))
	}
}

func TestCloseDrainsTail(t *testing.T) {
	tr := &countingTranscriber{text: "tail words"}
	st := &captureStore{}
	g := newGateway(t, Options{Transcriber: tr, Store: st})

	ctx := context.Background()
	// 150ms of audio: one complete chunk plus a partial tail.
	n := audio.BytesIn(150*time.Millisecond) / 2
	segs := g.Push(ctx, sinePCM(440, 0.3, n))
	if len(segs) != 1 {
		t.Fatalf("segments=%d", len(segs))
	}
	tail := g.Close(ctx)
	if len(tail) != 1 {
		t.Fatalf("tail segments=%d", len(tail))
	}
	if !tail[0].StartTime.After(segs[0].StartTime) {
		t.Error("tail segment not after the first")
	}
	if len(st.appended) != 2 {
		t.Errorf("appended=%d after close", len(st.appended))
	}
}
