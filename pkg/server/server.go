// Package server is the websocket front door: it authenticates
// clients, runs the bidirectional event protocol (join, audio,
// recording control, resync), and owns the per-meeting pipelines,
// starting one when a room opens and tearing it down when the room
// closes.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/confabhq/confab/pkg/alert"
	"github.com/confabhq/confab/pkg/broadcast"
	"github.com/confabhq/confab/pkg/meeting"
	"github.com/confabhq/confab/pkg/metrics"
	"github.com/confabhq/confab/pkg/pipeline"
	"github.com/confabhq/confab/pkg/session"
	"github.com/confabhq/confab/pkg/storage"
	"github.com/confabhq/confab/pkg/store"
	"github.com/confabhq/confab/pkg/summarize"
	"github.com/confabhq/confab/pkg/transcribe"
)

// Options configures the Server.
type Options struct {
	// Store is the durable store shared by all pipelines. Required.
	Store store.Store

	// Transcriber is the speech-to-text collaborator. Required.
	Transcriber transcribe.Transcriber

	// Authenticate maps an incoming request to a user identity.
	// Defaults to reading the X-User-ID header (or "user" query
	// parameter); production deployments plug in their token check.
	Authenticate func(r *http.Request) (userID string, err error)

	// Hub defaults to a fresh broadcast hub.
	Hub *broadcast.Hub

	// Metrics defaults to a fresh in-memory store.
	Metrics *metrics.Store

	// Summarizer may be nil; meetings then end without an LLM summary.
	Summarizer summarize.Summarizer

	// Notifier receives high/critical alerts out of band. May be nil.
	Notifier alert.Notifier

	// Artifacts receives end-of-meeting archives. May be nil.
	Artifacts storage.FileStore

	// OrgRules extend the built-in alert rules for every meeting.
	OrgRules []*meeting.Rule

	// Language and Vocabulary are passed to transcription.
	Language   string
	Vocabulary []string

	// Grace overrides the disconnect grace window.
	Grace time.Duration

	// PipelineIntervals override the pipeline timers; tests shrink
	// them.
	PipelineIntervals pipeline.Intervals

	Logger *slog.Logger
}

type meetingPipeline struct {
	p      *pipeline.Pipeline
	cancel context.CancelFunc
}

// Server handles websocket clients and owns all per-meeting pipelines.
type Server struct {
	opts     Options
	log      *slog.Logger
	hub      *broadcast.Hub
	sessions *session.Registry
	upgrader websocket.Upgrader

	mu        sync.Mutex
	pipelines map[string]*meetingPipeline
	conns     map[string]bool // live connection IDs
}

// New creates a Server.
func New(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("server: store required")
	}
	if opts.Transcriber == nil {
		return nil, fmt.Errorf("server: transcriber required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Hub == nil {
		opts.Hub = broadcast.NewHub(broadcast.Options{Logger: opts.Logger})
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewStore()
	}
	if opts.Authenticate == nil {
		opts.Authenticate = headerAuth
	}

	s := &Server{
		opts:      opts,
		log:       opts.Logger,
		hub:       opts.Hub,
		upgrader:  websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		pipelines: make(map[string]*meetingPipeline),
		conns:     make(map[string]bool),
	}
	s.sessions = session.NewRegistry(session.Options{
		Grace:   opts.Grace,
		OnEvent: s.onSessionEvent,
		IsLive:  s.isLive,
	})
	return s, nil
}

// Sessions exposes the session registry, e.g. for status endpoints.
func (s *Server) Sessions() *session.Registry { return s.sessions }

// Hub exposes the broadcast hub.
func (s *Server) Hub() *broadcast.Hub { return s.hub }

// Run drives the periodic connection health sweep until ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) {
	s.sessions.Run(ctx)
}

// Close stops every running pipeline and waits for their final
// flushes.
func (s *Server) Close() {
	s.mu.Lock()
	running := make([]*meetingPipeline, 0, len(s.pipelines))
	for mid, mp := range s.pipelines {
		running = append(running, mp)
		delete(s.pipelines, mid)
	}
	s.mu.Unlock()

	for _, mp := range running {
		mp.cancel()
	}
	for _, mp := range running {
		<-mp.p.Done()
	}
	s.sessions.Close()
}

func headerAuth(r *http.Request) (string, error) {
	if u := r.Header.Get("X-User-ID"); u != "" {
		return u, nil
	}
	if u := r.URL.Query().Get("user"); u != "" {
		return u, nil
	}
	return "", errors.New("server: missing user identity")
}

// ServeHTTP upgrades the connection and runs its event loop.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, err := s.opts.Authenticate(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.serveConn(conn, userID)
}

// joinRequest is the join-meeting payload.
type joinRequest struct {
	MeetingID string `json:"meetingId"`
	Role      string `json:"role"` // "host" or "participant"
}

// audioPayload carries one audio-chunk; Audio is base64 in JSON.
type audioPayload struct {
	Audio []byte `json:"audio"`
}

// joinedPayload answers a successful join.
type joinedPayload struct {
	MeetingID    string   `json:"meetingId"`
	Participants []string `json:"participants"`
	IsRecording  bool     `json:"isRecording"`
}

// connState is one connection's protocol state.
type connState struct {
	userID    string
	meetingID string
	connID    string
	client    *broadcast.Client
}

func (s *Server) serveConn(conn *websocket.Conn, userID string) {
	st := &connState{userID: userID}
	defer func() {
		if st.meetingID != "" {
			s.markDead(st.connID)
			s.sessions.Disconnect(st.meetingID, st.userID)
			st.client.Close()
		} else {
			conn.Close()
		}
	}()

	for {
		var env meeting.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
		if done := s.handleEvent(conn, st, &env); done {
			return
		}
	}
}

// handleEvent dispatches one client event. Returns true when the
// connection should end.
func (s *Server) handleEvent(conn *websocket.Conn, st *connState, env *meeting.Envelope) bool {
	switch env.Type {
	case meeting.EvJoinMeeting:
		s.handleJoin(conn, st, env)
	case meeting.EvAudioChunk:
		var p audioPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			s.sendError(st, "protocol", err)
			return false
		}
		if mp := s.pipelineFor(st.meetingID); mp != nil {
			mp.p.PushAudio(p.Audio)
		}
	case meeting.EvStartRecording:
		if err := s.sessions.StartRecording(st.meetingID, st.userID); err != nil {
			s.sendError(st, "permission", err)
		}
	case meeting.EvStopRecording:
		if err := s.sessions.StopRecording(st.meetingID, st.userID); err != nil {
			s.sendError(st, "permission", err)
		}
	case meeting.EvRequestResync:
		if st.client != nil {
			s.hub.Resync(st.client)
		}
	case meeting.EvLeaveMeeting:
		if st.meetingID != "" {
			s.markDead(st.connID)
			s.sessions.Leave(st.meetingID, st.userID)
			st.client.Close()
			st.meetingID = ""
		}
		return true
	default:
		s.sendError(st, "protocol", fmt.Errorf("unknown event type %q", env.Type))
	}
	return false
}

func (s *Server) handleJoin(conn *websocket.Conn, st *connState, env *meeting.Envelope) {
	if st.meetingID != "" {
		s.sendError(st, "protocol", errors.New("already joined"))
		return
	}
	var req joinRequest
	if err := json.Unmarshal(env.Data, &req); err != nil || req.MeetingID == "" {
		conn.WriteJSON(meeting.NewEnvelope(meeting.EvError, "", meeting.ErrorEvent{
			Type: "protocol", Cause: "join-meeting requires meetingId",
		}))
		return
	}
	role := meeting.RoleParticipant
	if req.Role == string(meeting.RoleHost) {
		role = meeting.RoleHost
	}

	connID, err := s.sessions.Join(req.MeetingID, st.userID, role)
	if err != nil {
		conn.WriteJSON(meeting.NewEnvelope(meeting.EvError, req.MeetingID, meeting.ErrorEvent{
			Type: "session", MeetingID: req.MeetingID, Cause: err.Error(),
		}))
		return
	}

	s.mu.Lock()
	s.conns[connID] = true
	s.mu.Unlock()

	st.meetingID = req.MeetingID
	st.connID = connID
	st.client = s.hub.Join(conn, req.MeetingID, st.userID)
	s.ensurePipeline(req.MeetingID)

	payload := joinedPayload{MeetingID: req.MeetingID}
	if sess := s.sessions.Session(req.MeetingID); sess != nil {
		payload.IsRecording = sess.IsRecording
		for uid := range sess.Participants {
			payload.Participants = append(payload.Participants, uid)
		}
	}
	st.client.Send(meeting.NewEnvelope(meeting.EvMeetingJoined, req.MeetingID, payload))

	// Replay the room backlog behind the join ack so a (re)joining
	// client recovers state without asking; request-resync stays
	// available as a manual path.
	s.hub.Resync(st.client)
}

// ensurePipeline starts the meeting's pipeline on first join.
func (s *Server) ensurePipeline(meetingID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pipelines[meetingID]; ok {
		return
	}
	p, err := pipeline.New(pipeline.Options{
		MeetingID:   meetingID,
		Language:    s.opts.Language,
		Vocabulary:  s.opts.Vocabulary,
		OrgRules:    s.opts.OrgRules,
		Transcriber: s.opts.Transcriber,
		Store:       s.opts.Store,
		Publisher:   s.hub,
		Metrics:     s.opts.Metrics,
		Summarizer:  s.opts.Summarizer,
		Notifier:    s.opts.Notifier,
		Artifacts:   s.opts.Artifacts,
		Intervals:   s.opts.PipelineIntervals,
		Logger:      s.log,
	})
	if err != nil {
		s.log.Error("pipeline start failed", "meeting_id", meetingID, "error", err)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.pipelines[meetingID] = &meetingPipeline{p: p, cancel: cancel}
	go p.Run(ctx)
	s.log.Info("pipeline started", "meeting_id", meetingID)
}

func (s *Server) pipelineFor(meetingID string) *meetingPipeline {
	if meetingID == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pipelines[meetingID]
}

// stopMeeting tears the meeting down: the pipeline flushes and then
// the room's replay buffer is discarded.
func (s *Server) stopMeeting(meetingID string) {
	s.mu.Lock()
	mp := s.pipelines[meetingID]
	delete(s.pipelines, meetingID)
	s.mu.Unlock()
	if mp == nil {
		return
	}
	mp.cancel()
	go func() {
		<-mp.p.Done()
		s.hub.CloseRoom(meetingID)
		s.log.Info("pipeline stopped", "meeting_id", meetingID)
	}()
}

// onSessionEvent relays lifecycle changes to the room and reacts to
// room closure.
func (s *Server) onSessionEvent(ev session.Event) {
	type participantPayload struct {
		UserID string `json:"userId"`
	}
	switch ev.Kind {
	case session.EventJoined, session.EventReconnected:
		s.hub.Publish(ev.MeetingID, meeting.NewEnvelope(
			meeting.EvParticipantJoined, ev.MeetingID, participantPayload{ev.UserID}))
	case session.EventLeft:
		s.hub.Publish(ev.MeetingID, meeting.NewEnvelope(
			meeting.EvParticipantLeft, ev.MeetingID, participantPayload{ev.UserID}))
	case session.EventDisconnected:
		s.hub.Publish(ev.MeetingID, meeting.NewEnvelope(
			meeting.EvParticipantDisconnected, ev.MeetingID, participantPayload{ev.UserID}))
	case session.EventRecording:
		typ := meeting.EvRecordingStopped
		if ev.Recording {
			typ = meeting.EvRecordingStarted
		}
		s.hub.Publish(ev.MeetingID, meeting.NewEnvelope(typ, ev.MeetingID, participantPayload{ev.UserID}))
	case session.EventRoomClosed:
		s.stopMeeting(ev.MeetingID)
	}
}

func (s *Server) isLive(connID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns[connID]
}

func (s *Server) markDead(connID string) {
	if connID == "" {
		return
	}
	s.mu.Lock()
	delete(s.conns, connID)
	s.mu.Unlock()
}

// sendError reports a per-connection failure to that client only.
func (s *Server) sendError(st *connState, kind string, err error) {
	if st.client == nil {
		return
	}
	st.client.Send(meeting.NewEnvelope(meeting.EvError, st.meetingID, meeting.ErrorEvent{
		Type:      kind,
		MeetingID: st.meetingID,
		Cause:     err.Error(),
	}))
}
