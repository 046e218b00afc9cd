package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/meaaditiya/portfoliomanager-sub002/core/logger"
	"github.com/meaaditiya/portfoliomanager-sub002/core/presence"
	"github.com/meaaditiya/portfoliomanager-sub002/pkg/clientip"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 4096
)

// Client-to-server presence events.
const (
	wsEventVisitorJoin    = "visitorJoin"
	wsEventPageChange     = "pageChange"
	wsEventActivityUpdate = "activityUpdate"
	wsEventVisitorLeave   = "visitorLeave"
)

// Server-to-client events.
const wsEventLiveCount = "liveCountUpdate"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The socket only carries presence events and anonymous live counts, so
	// cross-origin frontends are allowed to connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type wsPresencePayload struct {
	SessionID string `json:"sessionId"`
	Page      string `json:"page"`
}

// serveWS upgrades the connection and runs the presence event loop for one
// socket. Each socket gets a server-assigned ID so a dropped connection can
// be tied back to its visitor even if the client never sent a session.
func (a *App) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		a.logger.LogAttrs(r.Context(), slog.LevelWarn, "websocket upgrade failed",
			logger.Component("ws"),
			logger.ClientIP(clientip.GetIP(r)),
			logger.Error(err))
		return
	}

	socketID := uuid.New().String()
	session := &wsSession{
		app:      a,
		conn:     conn,
		socketID: socketID,
		ip:       clientip.GetIP(r),
		ua:       r.UserAgent(),
		out:      make(chan wsEnvelope, 16),
	}
	session.run(r.Context())
}

// wsSession is the per-connection state. sessionID is set by the first
// presence event the client sends.
type wsSession struct {
	app       *App
	conn      *websocket.Conn
	socketID  string
	sessionID string
	ip        string
	ua        string
	out       chan wsEnvelope
}

func (s *wsSession) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.writePump(ctx)
	go s.forwardLiveCounts(ctx)

	// The client gets the current count immediately so the UI never waits
	// for the next change to render a number.
	if count, err := s.app.tracker.LiveCount(ctx); err == nil {
		s.send(wsLiveCountEnvelope(count))
	}

	s.readPump(ctx)
	cancel()

	// The request context is gone once the read loop exits; the disconnect
	// write gets its own deadline.
	cleanupCtx, cleanupCancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cleanupCancel()
	if err := s.app.tracker.Disconnect(cleanupCtx, s.sessionID, s.socketID); err != nil {
		s.app.logger.LogAttrs(cleanupCtx, slog.LevelWarn, "websocket disconnect cleanup failed",
			logger.Component("ws"),
			logger.SessionID(s.sessionID),
			logger.Error(err))
	}
}

func (s *wsSession) readPump(ctx context.Context) {
	defer func() { _ = s.conn.Close() }()

	s.conn.SetReadLimit(wsMaxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.app.logger.LogAttrs(ctx, slog.LevelDebug, "websocket closed unexpectedly",
					logger.Component("ws"),
					logger.Error(err))
			}
			return
		}

		var env wsEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			// Malformed frames are dropped, not fatal.
			s.app.logger.LogAttrs(ctx, slog.LevelDebug, "malformed websocket frame ignored",
				logger.Component("ws"),
				logger.Error(err))
			continue
		}
		s.handleEvent(ctx, env)
	}
}

func (s *wsSession) handleEvent(ctx context.Context, env wsEnvelope) {
	switch env.Event {
	case wsEventVisitorJoin, wsEventPageChange, wsEventActivityUpdate:
		p, ok := s.presencePayload(env.Data)
		if !ok {
			return
		}
		s.sessionID = p.SessionID
		if p.Page == "" {
			p.Page = "/"
		}

		if _, err := s.app.tracker.Track(ctx, presence.JoinParams{
			SessionID: p.SessionID,
			SocketID:  s.socketID,
			IPAddress: s.ip,
			UserAgent: s.ua,
			Page:      p.Page,
		}); err != nil {
			s.app.logger.LogAttrs(ctx, slog.LevelWarn, "websocket presence event failed",
				logger.Component("ws"),
				logger.Event(env.Event),
				logger.SessionID(p.SessionID),
				logger.Error(err))
		}

	case wsEventVisitorLeave:
		p, ok := s.presencePayload(env.Data)
		if !ok {
			return
		}
		if _, err := s.app.tracker.Leave(ctx, p.SessionID); err != nil {
			s.app.logger.LogAttrs(ctx, slog.LevelWarn, "websocket presence event failed",
				logger.Component("ws"),
				logger.Event(env.Event),
				logger.SessionID(p.SessionID),
				logger.Error(err))
		}
	}
}

// presencePayload decodes an event payload, filling in the session resolved
// by an earlier visitorJoin. pageChange, activityUpdate, and visitorLeave
// carry no sessionId of their own (visitorLeave carries no payload at all),
// so the socket's remembered session is the usual source. Events arriving
// before any session is known are dropped.
func (s *wsSession) presencePayload(data json.RawMessage) (wsPresencePayload, bool) {
	var p wsPresencePayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &p); err != nil {
			return p, false
		}
	}
	if p.SessionID == "" {
		p.SessionID = s.sessionID
	}
	return p, p.SessionID != ""
}

// forwardLiveCounts relays tracker broadcasts to this socket until the
// connection goes away.
func (s *wsSession) forwardLiveCounts(ctx context.Context) {
	sub := s.app.tracker.Subscribe(ctx)
	defer func() { _ = sub.Close() }()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Receive(ctx):
			if !ok {
				return
			}
			s.send(wsLiveCountEnvelope(msg.Data.Count))
		}
	}
}

func (s *wsSession) writePump(ctx context.Context) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case env := <-s.out:
			_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := s.conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// send queues an envelope without blocking; a stalled socket drops updates
// instead of wedging the broadcaster.
func (s *wsSession) send(env wsEnvelope) {
	select {
	case s.out <- env:
	default:
	}
}

type wsLiveCountPayload struct {
	LiveViewers int64     `json:"liveViewers"`
	Timestamp   time.Time `json:"timestamp"`
}

func wsLiveCountEnvelope(count int64) wsEnvelope {
	data, _ := json.Marshal(wsLiveCountPayload{LiveViewers: count, Timestamp: time.Now()})
	return wsEnvelope{Event: wsEventLiveCount, Data: data}
}
