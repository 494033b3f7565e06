package transcribe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
)

func TestMux(t *testing.T) {
	m := NewMux()
	m.HandleFunc("echo", func(_ context.Context, req *Request) (*Result, error) {
		return &Result{Text: "ok", Language: req.Language}, nil
	})

	t.Run("routes by name", func(t *testing.T) {
		res, err := m.Transcribe(context.Background(), "echo", &Request{Language: "en"})
		if err != nil {
			t.Fatal(err)
		}
		if res.Text != "ok" || res.Language != "en" {
			t.Errorf("res=%+v", res)
		}
	})

	t.Run("unknown engine", func(t *testing.T) {
		_, err := m.Transcribe(context.Background(), "nope", &Request{})
		if !errors.Is(err, ErrNoTranscriber) {
			t.Errorf("err=%v", err)
		}
	})
}

func TestCorrect(t *testing.T) {
	tests := []struct {
		text, lang, want string
	}{
		{"we are gonna ship", "en-US", "we are going to ship"},
		{"Gonna ship it", "en", "Going to ship it"},
		{"gonna, sure", "en", "going to, sure"},
		{"nothing to fix", "en", "nothing to fix"},
		{"gonna ship", "fr", "gonna ship"},
		{"", "en", ""},
	}
	for _, tt := range tests {
		t.Run(tt.text+"/"+tt.lang, func(t *testing.T) {
			if got := Correct(tt.text, tt.lang); got != tt.want {
				t.Errorf("Correct(%q, %q) = %q, want %q", tt.text, tt.lang, got, tt.want)
			}
		})
	}
}

func TestWSClient(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var req wsRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			conn.WriteJSON(wsResponse{Text: "hello world", Language: req.Language, Confidence: 0.9})
		}
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c, err := NewWSClient(WSClientOptions{URL: url})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	res, err := c.Transcribe(context.Background(), &Request{Audio: []byte{0, 0}, Language: "en"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "hello world" || res.Language != "en" || res.Confidence != 0.9 {
		t.Errorf("res=%+v", res)
	}

	// Second call reuses the connection.
	if _, err := c.Transcribe(context.Background(), &Request{Audio: []byte{0, 0}}); err != nil {
		t.Fatal(err)
	}
}
