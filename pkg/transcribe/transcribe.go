// Package transcribe defines the contract with the external
// speech-to-text collaborator and provides a websocket streaming client
// plus locale-specific post-corrections.
//
// The pipeline never depends on a concrete engine: ingestion takes a
// Transcriber, and a Mux routes by engine name so deployments can
// register several backends.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNoTranscriber is returned by Mux when no engine matches the name.
var ErrNoTranscriber = errors.New("transcribe: transcriber not found")

// Request carries one audio chunk to the engine.
type Request struct {
	// Audio is PCM16LE mono 16kHz audio.
	Audio []byte

	// Language is a hint, e.g. "en-US". Empty means auto-detect.
	Language string

	// Vocabulary is the organization's custom term list, passed to the
	// engine to bias recognition.
	Vocabulary []string
}

// Word is one recognized word with its offset inside the chunk.
type Word struct {
	Text       string  `json:"text"`
	StartMs    int     `json:"startMs"`
	EndMs      int     `json:"endMs"`
	Confidence float64 `json:"confidence"`
}

// Result is the engine's response for one chunk.
type Result struct {
	Text       string  `json:"text"`
	Words      []Word  `json:"words,omitempty"`
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

// Transcriber is the collaborator contract.
type Transcriber interface {
	Transcribe(ctx context.Context, req *Request) (*Result, error)
}

// Func adapts an ordinary function to a Transcriber.
type Func func(ctx context.Context, req *Request) (*Result, error)

// Transcribe calls the underlying function.
func (f Func) Transcribe(ctx context.Context, req *Request) (*Result, error) {
	return f(ctx, req)
}

// Mux routes transcription requests to a registered engine by name.
// Safe for concurrent use.
type Mux struct {
	mu      sync.RWMutex
	engines map[string]Transcriber
}

// NewMux creates an empty Mux.
func NewMux() *Mux {
	return &Mux{engines: make(map[string]Transcriber)}
}

// Handle registers a Transcriber under the given engine name.
func (m *Mux) Handle(name string, t Transcriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.engines[name] = t
}

// HandleFunc registers a Func under the given engine name.
func (m *Mux) HandleFunc(name string, f Func) {
	m.Handle(name, f)
}

// Transcribe dispatches to the engine registered under name.
func (m *Mux) Transcribe(ctx context.Context, name string, req *Request) (*Result, error) {
	m.mu.RLock()
	t := m.engines[name]
	m.mu.RUnlock()
	if t == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoTranscriber, name)
	}
	return t.Transcribe(ctx, req)
}
