// Package audio provides the PCM math used by ingestion: fixed-size
// chunking with overlap, RMS energy for the silence gate, and a
// lightweight spectral-band voice signature for speaker matching.
//
// All functions operate on PCM16 signed little-endian mono audio at
// SampleRate Hz. This is the only format the pipeline accepts; the
// capture layer is responsible for delivering it.
package audio

import (
	"math"
	"time"
)

const (
	// SampleRate is the fixed input sample rate in Hz.
	SampleRate = 16000

	// BytesPerSample for PCM16 mono.
	BytesPerSample = 2

	// ChunkDuration is the fixed chunk length fed to the gateway.
	ChunkDuration = 100 * time.Millisecond

	// ChunkOverlap is the amount of audio shared between consecutive
	// chunks for boundary accuracy.
	ChunkOverlap = 20 * time.Millisecond
)

// BytesIn returns the number of PCM bytes covering d.
func BytesIn(d time.Duration) int {
	samples := int(time.Duration(SampleRate) * d / time.Second)
	return samples * BytesPerSample
}

// DurationOf returns the duration covered by n PCM bytes.
func DurationOf(n int) time.Duration {
	return time.Duration(n/BytesPerSample) * time.Second / time.Duration(SampleRate)
}

// Samples decodes PCM16LE bytes into float64 samples in [-1, 1).
// A trailing odd byte is ignored.
func Samples(pcm []byte) []float64 {
	n := len(pcm) / 2
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		s := int16(pcm[2*i]) | int16(pcm[2*i+1])<<8
		out[i] = float64(s) / 32768
	}
	return out
}

// RMS returns the root-mean-square energy of the PCM data, in [0, 1].
func RMS(pcm []byte) float64 {
	samples := Samples(pcm)
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// DefaultSilenceThreshold is the RMS level below which a chunk is
// treated as silence and skipped without transcription.
const DefaultSilenceThreshold = 0.01

// IsSilent reports whether the chunk's RMS energy is below threshold.
// A zero threshold selects DefaultSilenceThreshold.
func IsSilent(pcm []byte, threshold float64) bool {
	if threshold <= 0 {
		threshold = DefaultSilenceThreshold
	}
	return RMS(pcm) < threshold
}
