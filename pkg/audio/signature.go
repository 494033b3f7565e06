package audio

import "math"

// NumBands is the dimensionality of the voice signature vector.
const NumBands = 8

// signatureBands are the center frequencies (Hz) probed by Signature.
// They cover the voiced-speech range; the spread between low and high
// band energies is what separates speakers.
var signatureBands = [NumBands]float64{
	120, 240, 480, 800, 1200, 1800, 2600, 3600,
}

// Signature computes an 8-band spectral energy vector for a PCM chunk
// using one Goertzel filter per band, then L2-normalizes the result.
// The returned vector is a lightweight voice fingerprint compared via
// Cosine; it is not a biometric embedding.
func Signature(pcm []byte) []float64 {
	samples := Samples(pcm)
	sig := make([]float64, NumBands)
	if len(samples) == 0 {
		return sig
	}
	for i, freq := range signatureBands {
		sig[i] = goertzel(samples, freq)
	}
	var norm float64
	for _, v := range sig {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return sig
	}
	for i := range sig {
		sig[i] /= norm
	}
	return sig
}

// goertzel returns the power of the signal at the target frequency.
func goertzel(samples []float64, freq float64) float64 {
	w := 2 * math.Pi * freq / SampleRate
	coeff := 2 * math.Cos(w)
	var s0, s1, s2 float64
	for _, x := range samples {
		s0 = x + coeff*s1 - s2
		s2 = s1
		s1 = s0
	}
	power := s1*s1 + s2*s2 - coeff*s1*s2
	if power < 0 {
		return 0
	}
	return power / float64(len(samples))
}

// Cosine returns the cosine similarity of two equal-length vectors,
// in [-1, 1]. Returns 0 when either vector is zero or lengths differ.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
