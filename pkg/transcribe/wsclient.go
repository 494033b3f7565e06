package transcribe

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSClient is a Transcriber backed by a websocket transcription
// service. It keeps one connection open and sends one request frame per
// chunk, reading one response frame back. On any transport error the
// connection is dropped and redialed on the next call.
type WSClient struct {
	url    string
	apiKey string
	dialer *websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
}

// WSClientOptions configures a WSClient.
type WSClientOptions struct {
	// URL is the websocket endpoint, e.g. "wss://stt.example.com/v1/stream".
	// Required.
	URL string

	// APIKey is sent as a Bearer token on the handshake.
	APIKey string

	// HandshakeTimeout bounds the dial. Default 10s.
	HandshakeTimeout time.Duration
}

// NewWSClient creates a websocket transcription client.
func NewWSClient(opts WSClientOptions) (*WSClient, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("transcribe: WSClientOptions.URL is required")
	}
	timeout := opts.HandshakeTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &WSClient{
		url:    opts.URL,
		apiKey: opts.APIKey,
		dialer: &websocket.Dialer{HandshakeTimeout: timeout},
	}, nil
}

// wsRequest is the frame sent per chunk.
type wsRequest struct {
	Audio      string   `json:"audio"` // base64 PCM16LE 16kHz mono
	Language   string   `json:"language,omitempty"`
	Vocabulary []string `json:"vocabulary,omitempty"`
}

// wsResponse is the frame returned per chunk.
type wsResponse struct {
	Text       string  `json:"text"`
	Words      []Word  `json:"words"`
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error,omitempty"`
}

// Transcribe implements Transcriber.
func (c *WSClient) Transcribe(ctx context.Context, req *Request) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := c.connLocked(ctx)
	if err != nil {
		return nil, err
	}

	frame := wsRequest{
		Audio:      base64.StdEncoding.EncodeToString(req.Audio),
		Language:   req.Language,
		Vocabulary: req.Vocabulary,
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetWriteDeadline(deadline)
		conn.SetReadDeadline(deadline)
	}
	if err := conn.WriteJSON(frame); err != nil {
		c.dropLocked()
		return nil, fmt.Errorf("transcribe: send chunk: %w", err)
	}

	var resp wsResponse
	if err := conn.ReadJSON(&resp); err != nil {
		c.dropLocked()
		return nil, fmt.Errorf("transcribe: read result: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("transcribe: engine error: %s", resp.Error)
	}
	return &Result{
		Text:       resp.Text,
		Words:      resp.Words,
		Language:   resp.Language,
		Confidence: resp.Confidence,
	}, nil
}

// connLocked returns the live connection, dialing if needed.
func (c *WSClient) connLocked(ctx context.Context) (*websocket.Conn, error) {
	if c.conn != nil {
		return c.conn, nil
	}
	header := http.Header{}
	if c.apiKey != "" {
		header.Set("Authorization", "Bearer "+c.apiKey)
	}
	conn, resp, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("transcribe: dial %s: status %d: %w", c.url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("transcribe: dial %s: %w", c.url, err)
	}
	c.conn = conn
	return conn, nil
}

// dropLocked closes and forgets the connection.
func (c *WSClient) dropLocked() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// Close closes the underlying connection if open.
func (c *WSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropLocked()
	return nil
}
