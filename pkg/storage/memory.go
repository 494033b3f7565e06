package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

// Memory is an in-process FileStore for tests.
type Memory struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

func (m *Memory) Read(_ context.Context, path string) (io.ReadCloser, error) {
	if err := checkPath(path); err != nil {
		return nil, err
	}
	m.mu.Lock()
	data, ok := m.blobs[path]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("storage: read %s: %w", path, os.ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *Memory) Write(_ context.Context, path string) (io.WriteCloser, error) {
	if err := checkPath(path); err != nil {
		return nil, err
	}
	return &memWriter{store: m, path: path}, nil
}

func (m *Memory) Delete(_ context.Context, path string) error {
	if err := checkPath(path); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.blobs, path)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Exists(_ context.Context, path string) (bool, error) {
	if err := checkPath(path); err != nil {
		return false, err
	}
	m.mu.Lock()
	_, ok := m.blobs[path]
	m.mu.Unlock()
	return ok, nil
}

// memWriter buffers writes and commits the blob on Close.
type memWriter struct {
	store *Memory
	path  string
	buf   bytes.Buffer
}

func (w *memWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *memWriter) Close() error {
	w.store.mu.Lock()
	w.store.blobs[w.path] = append([]byte(nil), w.buf.Bytes()...)
	w.store.mu.Unlock()
	return nil
}

var _ FileStore = (*Memory)(nil)
