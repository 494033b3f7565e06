package broadcast

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/confabhq/confab/pkg/meeting"
)

// testServer upgrades incoming connections, joins them to a room and
// collects the resulting clients.
type testServer struct {
	hub *Hub
	srv *httptest.Server

	mu      sync.Mutex
	clients []*Client
}

func newTestServer(t *testing.T, hub *Hub) *testServer {
	t.Helper()
	ts := &testServer{hub: hub}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	ts.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := hub.Join(conn, r.URL.Query().Get("meeting"), r.URL.Query().Get("user"))
		ts.mu.Lock()
		ts.clients = append(ts.clients, c)
		ts.mu.Unlock()
	}))
	t.Cleanup(ts.srv.Close)
	return ts
}

func (ts *testServer) dial(t *testing.T, meetingID, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") +
		"?meeting=" + meetingID + "&user=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (ts *testServer) client(i int) *Client {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.clients[i]
}

func readEnvelope(t *testing.T, conn *websocket.Conn) meeting.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env meeting.Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatal(err)
	}
	return env
}

func TestPublishFanout(t *testing.T) {
	hub := NewHub(Options{})
	ts := newTestServer(t, hub)

	a := ts.dial(t, "m1", "alice")
	b := ts.dial(t, "m1", "bob")
	other := ts.dial(t, "m2", "carol")
	waitFor(t, func() bool { return hub.ClientCount("m1") == 2 && hub.ClientCount("m2") == 1 })

	hub.Publish("m1", meeting.NewEnvelope(meeting.EvAnalysisUpdate, "m1", map[string]int{"n": 1}))

	for _, conn := range []*websocket.Conn{a, b} {
		env := readEnvelope(t, conn)
		if env.Type != meeting.EvAnalysisUpdate || env.MeetingID != "m1" {
			t.Errorf("env=%+v", env)
		}
	}

	// Room scoping: m2's client sees nothing.
	other.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	if err := other.ReadJSON(&meeting.Envelope{}); err == nil {
		t.Error("event leaked into another room")
	}
}

func TestResyncReplaysBacklog(t *testing.T) {
	hub := NewHub(Options{})
	ts := newTestServer(t, hub)

	for i := 0; i < 5; i++ {
		hub.Publish("m1", meeting.NewEnvelope(meeting.EvTranscriptionChunk, "m1", map[string]int{"seq": i}))
	}

	conn := ts.dial(t, "m1", "late")
	waitFor(t, func() bool { return hub.ClientCount("m1") == 1 })

	if sent := hub.Resync(ts.client(0)); sent != 5 {
		t.Fatalf("sent=%d", sent)
	}
	for i := 0; i < 5; i++ {
		env := readEnvelope(t, conn)
		want := fmt.Sprintf(`{"seq":%d}`, i)
		if string(env.Data) != want {
			t.Errorf("backlog[%d]=%s want %s", i, env.Data, want)
		}
	}
}

func TestReplayBounded(t *testing.T) {
	hub := NewHub(Options{ReplayLimit: 3})
	ts := newTestServer(t, hub)

	for i := 0; i < 10; i++ {
		hub.Publish("m1", meeting.NewEnvelope(meeting.EvTranscriptionChunk, "m1", map[string]int{"seq": i}))
	}
	conn := ts.dial(t, "m1", "late")
	waitFor(t, func() bool { return hub.ClientCount("m1") == 1 })

	if sent := hub.Resync(ts.client(0)); sent != 3 {
		t.Fatalf("sent=%d", sent)
	}
	// Oldest events were evicted; replay starts at seq 7.
	if env := readEnvelope(t, conn); string(env.Data) != `{"seq":7}` {
		t.Errorf("first=%s", env.Data)
	}
}

func TestSlowClientDropped(t *testing.T) {
	hub := NewHub(Options{SendBuffer: 1})
	ts := newTestServer(t, hub)
	ts.dial(t, "m1", "slow")
	waitFor(t, func() bool { return hub.ClientCount("m1") == 1 })

	// Stop the write pump without unregistering so the queue backs up.
	c := ts.client(0)
	c.shutdown()

	hub.Publish("m1", meeting.NewEnvelope(meeting.EvAnalysisUpdate, "m1", nil))
	hub.Publish("m1", meeting.NewEnvelope(meeting.EvAnalysisUpdate, "m1", nil))

	if n := hub.ClientCount("m1"); n != 0 {
		t.Errorf("clients=%d, slow client not dropped", n)
	}
}

func TestCloseRoom(t *testing.T) {
	hub := NewHub(Options{})
	ts := newTestServer(t, hub)
	conn := ts.dial(t, "m1", "alice")
	waitFor(t, func() bool { return hub.ClientCount("m1") == 1 })

	hub.CloseRoom("m1")
	if n := hub.ClientCount("m1"); n != 0 {
		t.Errorf("clients=%d", n)
	}
	conn.SetReadDeadline(time.Now().Add(time.Second))
	if err := conn.ReadJSON(&meeting.Envelope{}); err == nil {
		t.Error("read succeeded on closed room")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached")
}
