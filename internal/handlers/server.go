// internal/handlers/server.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/codenames/internal/auth"
	"github.com/jason-s-yu/codenames/internal/cache"
	"github.com/jason-s-yu/codenames/internal/game"
	"github.com/jason-s-yu/codenames/internal/middleware"
	"github.com/jason-s-yu/codenames/internal/room"
)

// publishTimeout bounds a single action record push.
const publishTimeout = 2 * time.Second

// Server wires the registries, the engine and the room hub to the HTTP and
// websocket surface.
type Server struct {
	Players  *game.PlayerStore
	Games    *game.GameStore
	Hub      *room.Hub
	Engine   *game.Engine
	Tokens   *auth.Issuer
	Recorder cache.Publisher
	Logger   *logrus.Logger

	Version         string
	DefaultLanguage string
	OriginPatterns  []string

	closeInit sync.Once
	closeOnce sync.Once
	closed    chan struct{}
}

// Routes returns the HTTP handler serving the API and the websocket endpoint.
func (s *Server) Routes() http.Handler {
	router := httprouter.New()
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
		s.Logger.WithField("path", r.URL.Path).Errorf("panic serving request: %v", v)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
	router.GET("/ws", s.handleWS)
	router.GET("/healthz", s.handleHealth)
	router.GET("/version", s.handleVersion)
	router.GET("/games", s.handleListGames)
	router.GET("/games/:code", s.handleSnapshot)
	router.GET("/games/:code/qr", s.handleQR)
	return middleware.LogMiddleware(s.Logger)(router)
}

// Dispose ends a match: the registries forget it and its players, and every
// connection in its room is told the game is closed.
func (s *Server) Dispose(code, reason string) {
	s.dispose(code, reason, false)
}

// dispose closes the match under its lock before dropping it, so joins,
// reconnects and actions that arrive later are refused. With onlyIfEmpty the
// match is kept when a member came back in the meantime.
func (s *Server) dispose(code, reason string, onlyIfEmpty bool) bool {
	m, err := s.Games.Get(code)
	if err != nil {
		return false
	}
	m.Mu.Lock()
	if m.Closed() || (onlyIfEmpty && !m.AllReconnecting()) {
		m.Mu.Unlock()
		return false
	}
	m.Close()
	rec := s.record(m, "", cache.TypeMatchDisposed, nil)
	m.Mu.Unlock()

	ids := s.Games.Dispose(code)
	for _, id := range ids {
		s.Players.Unregister(id)
	}

	frame := s.encode(OutboundMessage{Event: EventGameClosed, Data: closedData{GameID: code, Reason: reason}})
	for _, c := range s.Hub.Remove(code) {
		c.Write(frame)
	}
	s.Logger.WithField("match", code).Infof("closed: %s", reason)
	s.publish(rec)
	return true
}

func (s *Server) closing() chan struct{} {
	s.closeInit.Do(func() { s.closed = make(chan struct{}) })
	return s.closed
}

// Shutdown closes every open websocket with ServerShutdownError. The HTTP
// server's own Shutdown does not reach hijacked connections.
func (s *Server) Shutdown() {
	ch := s.closing()
	s.closeOnce.Do(func() { close(ch) })
}

// record builds an action record for m. Caller holds m.Mu.
func (s *Server) record(m *game.Match, actor, typ string, payload any) cache.ActionRecord {
	rec := cache.ActionRecord{
		Match:       m.ID,
		ActionIndex: m.NextActionIndex(),
		Actor:       actor,
		ActionType:  typ,
		Round:       m.Round,
		Timestamp:   time.Now().UnixMilli(),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err == nil {
			rec.Payload = raw
		}
	}
	return rec
}

func (s *Server) encode(msg OutboundMessage) []byte {
	b, err := json.Marshal(msg)
	if err != nil {
		s.Logger.WithError(err).Errorf("failed to marshal %s message", msg.Event)
		b, _ = json.Marshal(OutboundMessage{Event: EventError, Ack: msg.Ack, Error: "internal error"})
	}
	return b
}

// broadcastState sends a snapshot to the room. Callers hold the match lock so
// that frames reach every connection in the order the states were produced.
func (s *Server) broadcastState(code string, snapshot []byte) {
	frame := s.encode(OutboundMessage{Event: EventGameStateUpdated, Data: json.RawMessage(snapshot)})
	n := s.Hub.Broadcast(code, frame)
	s.Logger.WithField("match", code).Debugf("state broadcast to %d connection(s)", n)
}

// publish pushes rec to the action log. Failures are logged and otherwise ignored.
func (s *Server) publish(rec cache.ActionRecord) {
	if s.Recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := s.Recorder.Publish(ctx, rec); err != nil {
		s.Logger.WithField("match", rec.Match).WithError(err).Warn("failed to publish action record")
	}
}
