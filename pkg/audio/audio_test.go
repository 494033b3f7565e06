package audio

import (
	"math"
	"testing"
	"time"
)

// sine generates PCM16LE mono audio of the given frequency and duration.
func sine(freq float64, d time.Duration, amplitude float64) []byte {
	n := int(time.Duration(SampleRate) * d / time.Second)
	out := make([]byte, n*2)
	for i := 0; i < n; i++ {
		v := amplitude * math.Sin(2*math.Pi*freq*float64(i)/SampleRate)
		s := int16(v * 32767)
		out[2*i] = byte(s)
		out[2*i+1] = byte(s >> 8)
	}
	return out
}

func TestBytesIn(t *testing.T) {
	if got := BytesIn(100 * time.Millisecond); got != 3200 {
		t.Errorf("BytesIn(100ms)=%d, want 3200", got)
	}
	if got := BytesIn(20 * time.Millisecond); got != 640 {
		t.Errorf("BytesIn(20ms)=%d, want 640", got)
	}
	if got := DurationOf(3200); got != 100*time.Millisecond {
		t.Errorf("DurationOf(3200)=%s", got)
	}
}

func TestRMS(t *testing.T) {
	if got := RMS(nil); got != 0 {
		t.Errorf("RMS(nil)=%v", got)
	}
	silence := make([]byte, 3200)
	if !IsSilent(silence, 0) {
		t.Error("zero samples not silent")
	}
	voiced := sine(300, 100*time.Millisecond, 0.5)
	if IsSilent(voiced, 0) {
		t.Error("0.5 amplitude sine detected as silence")
	}
	// RMS of a sine is amplitude/sqrt(2).
	got := RMS(voiced)
	want := 0.5 / math.Sqrt2
	if math.Abs(got-want) > 0.01 {
		t.Errorf("RMS=%v, want ~%v", got, want)
	}
}

func TestChunker(t *testing.T) {
	c := NewChunker()

	// 100ms in: exactly one chunk.
	chunks := c.Push(sine(300, 100*time.Millisecond, 0.3))
	if len(chunks) != 1 {
		t.Fatalf("chunks=%d, want 1", len(chunks))
	}
	if len(chunks[0]) != BytesIn(ChunkDuration) {
		t.Errorf("chunk size=%d", len(chunks[0]))
	}

	// Another 80ms completes the second chunk (20ms carried over).
	chunks = c.Push(sine(300, 80*time.Millisecond, 0.3))
	if len(chunks) != 1 {
		t.Fatalf("chunks=%d, want 1", len(chunks))
	}

	// Consecutive chunks share the overlap region.
	c2 := NewChunker()
	all := c2.Push(sine(300, 280*time.Millisecond, 0.3))
	if len(all) != 3 {
		t.Fatalf("chunks=%d, want 3", len(all))
	}
	overlap := BytesIn(ChunkOverlap)
	tail := all[0][len(all[0])-overlap:]
	head := all[1][:overlap]
	for i := range tail {
		if tail[i] != head[i] {
			t.Fatalf("overlap mismatch at byte %d", i)
		}
	}
}

func TestSignature(t *testing.T) {
	t.Run("same voice similar", func(t *testing.T) {
		a := Signature(sine(240, 100*time.Millisecond, 0.5))
		b := Signature(sine(240, 100*time.Millisecond, 0.3))
		if sim := Cosine(a, b); sim < 0.95 {
			t.Errorf("same-frequency similarity=%v", sim)
		}
	})

	t.Run("different voices dissimilar", func(t *testing.T) {
		a := Signature(sine(120, 100*time.Millisecond, 0.5))
		b := Signature(sine(2600, 100*time.Millisecond, 0.5))
		if sim := Cosine(a, b); sim > 0.5 {
			t.Errorf("cross-frequency similarity=%v", sim)
		}
	})

	t.Run("normalized", func(t *testing.T) {
		sig := Signature(sine(800, 100*time.Millisecond, 0.5))
		var norm float64
		for _, v := range sig {
			norm += v * v
		}
		if math.Abs(norm-1) > 1e-9 {
			t.Errorf("norm^2=%v", norm)
		}
	})
}

func TestCosine(t *testing.T) {
	if got := Cosine([]float64{1, 0}, []float64{0, 1}); got != 0 {
		t.Errorf("orthogonal=%v", got)
	}
	if got := Cosine([]float64{1, 2}, []float64{2, 4}); math.Abs(got-1) > 1e-9 {
		t.Errorf("parallel=%v", got)
	}
	if got := Cosine([]float64{1}, []float64{1, 2}); got != 0 {
		t.Errorf("length mismatch=%v", got)
	}
}
