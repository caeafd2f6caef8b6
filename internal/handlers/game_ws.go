// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/codenames/internal/cache"
	"github.com/jason-s-yu/codenames/internal/game"
	"github.com/jason-s-yu/codenames/internal/middleware"
	"github.com/jason-s-yu/codenames/internal/room"
)

// writeTimeout bounds a single websocket frame write.
const writeTimeout = 5 * time.Second

// session is the state of one websocket. It is only touched by the
// connection's read goroutine.
type session struct {
	id       string // connection id, also the player id of a fresh player
	out      *room.Connection
	playerID string
	code     string
}

func (sess *session) bound() bool {
	return sess.playerID != ""
}

func (sess *session) bind(code, playerID string) {
	sess.code = code
	sess.playerID = playerID
}

func (sess *session) unbind() {
	sess.code = ""
	sess.playerID = ""
}

func (sess *session) send(frame []byte) {
	sess.out.Write(frame)
}

// handleWS upgrades the request and runs the connection until the client
// goes away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{Subprotocol},
		OriginPatterns: s.OriginPatterns,
	})
	if err != nil {
		s.Logger.Warnf("WebSocket accept error from %s: %v", r.RemoteAddr, err)
		return
	}
	defer c.CloseNow()

	if c.Subprotocol() != Subprotocol {
		s.Logger.Warnf("Client %s connected with invalid subprotocol: %q", r.RemoteAddr, c.Subprotocol())
		c.Close(BadSubprotocolError, "client must use the '"+Subprotocol+"' subprotocol")
		return
	}
	middleware.LogWebSocketConnect(s.Logger, r.RemoteAddr, r.URL.Path)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess := &session{id: uuid.NewString()}
	sess.out = room.NewConnection(sess.id, room.DefaultBuffer, cancel, s.Logger)
	defer sess.out.Close()

	go s.writePump(ctx, c, sess)
	go func() {
		select {
		case <-s.closing():
			c.Close(ServerShutdownError, "server shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	err = s.readLoop(ctx, c, sess)
	s.disconnect(sess)
	middleware.LogWebSocketDisconnect(s.Logger, r.RemoteAddr, r.URL.Path, err)
	c.Close(websocket.StatusNormalClosure, "")
}

// writePump drains the session's queue onto the socket.
func (s *Server) writePump(ctx context.Context, c *websocket.Conn, sess *session) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-sess.out.OutChan:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Write(writeCtx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				if ctx.Err() == nil {
					s.Logger.WithField("conn", sess.id).Warnf("Error writing WebSocket message: %v", err)
				}
				sess.out.Close()
				return
			}
		}
	}
}

// readLoop handles client frames in receipt order until the socket closes.
// A nil return means the client closed normally.
func (s *Server) readLoop(ctx context.Context, c *websocket.Conn, sess *session) error {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if msgType != websocket.MessageText {
			s.Logger.Warnf("Received non-text message type %d from %s. Ignoring.", msgType, sess.id)
			continue
		}

		var msg InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.Logger.Warnf("Invalid JSON received from %s: %v", sess.id, err)
			sess.send(s.encode(OutboundMessage{Event: EventError, Error: "invalid JSON format"}))
			continue
		}

		switch msg.Event {
		case EventCreateGame:
			s.createGame(sess, msg)
		case EventJoinGame:
			s.joinGame(sess, msg)
		case EventAction:
			s.applyAction(sess, msg)
		case EventReconnect:
			s.reconnect(sess, msg)
		case EventPing:
			sess.send(s.encode(OutboundMessage{Event: EventPong, Ack: msg.Ack}))
		default:
			s.Logger.Warnf("Unknown event '%s' from %s.", msg.Event, sess.id)
			sess.send(s.encode(OutboundMessage{Event: EventError, Ack: msg.Ack, Error: "unknown event: " + msg.Event}))
		}
	}
}

func (s *Server) ack(sess *session, msg InboundMessage, data any) {
	sess.send(s.encode(OutboundMessage{Event: EventAck, Ack: msg.Ack, Data: data}))
}

func (s *Server) ackError(sess *session, msg InboundMessage, text string) {
	sess.send(s.encode(OutboundMessage{Event: EventAck, Ack: msg.Ack, Error: text}))
}

// checkFree reports whether the session may enter a match. A binding to a
// match that has since been disposed is dropped.
func (s *Server) checkFree(sess *session) bool {
	if !sess.bound() {
		return true
	}
	if _, err := s.Games.ByPlayer(sess.playerID); err != nil {
		sess.unbind()
		return true
	}
	return false
}

func (s *Server) sendSession(sess *session) {
	token, err := s.Tokens.Issue(sess.playerID, sess.code)
	if err != nil {
		s.Logger.WithError(err).Error("failed to issue reconnect token")
	}
	sess.send(s.encode(OutboundMessage{
		Event: EventSession,
		Data:  sessionData{PlayerID: sess.playerID, GameID: sess.code, Token: token},
	}))
}

// snapshot marshals m under its lock.
func snapshot(m *game.Match) ([]byte, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.Snapshot()
}

func (s *Server) createGame(sess *session, msg InboundMessage) {
	if !s.checkFree(sess) {
		s.ackError(sess, msg, "could not create game: already in a game")
		return
	}
	var req createGameData
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.ackError(sess, msg, "could not create game: malformed request")
		return
	}
	if req.Language == "" {
		req.Language = s.DefaultLanguage
	}

	player, err := s.Players.Register(sess.id, req.Name)
	if err != nil {
		s.ackError(sess, msg, fmt.Sprintf("could not create game: %v", err))
		return
	}
	m, err := s.Games.Create(req.GameID, player, req.Language)
	if err != nil {
		s.Players.Unregister(player.ID)
		s.Logger.WithError(err).Info("create game failed")
		s.ackError(sess, msg, fmt.Sprintf("could not create game: %v", err))
		return
	}

	sess.bind(m.ID, player.ID)
	s.Hub.Join(m.ID, player.ID, sess.out)

	m.Mu.Lock()
	snap, err := m.Snapshot()
	if err != nil {
		m.Mu.Unlock()
		s.Logger.WithField("match", m.ID).WithError(err).Error("failed to marshal snapshot")
		s.ackError(sess, msg, "could not create game: internal error")
		return
	}
	rec := s.record(m, player.ID, cache.TypeMatchCreated, req)
	s.ack(sess, msg, json.RawMessage(snap))
	m.Mu.Unlock()

	s.sendSession(sess)
	s.publish(rec)
}

func (s *Server) joinGame(sess *session, msg InboundMessage) {
	if !s.checkFree(sess) {
		s.ackError(sess, msg, "could not join game: already in a game")
		return
	}
	var req joinGameData
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.ackError(sess, msg, "could not join game: malformed request")
		return
	}

	player, err := s.Players.Register(sess.id, req.Name)
	if err != nil {
		s.ackError(sess, msg, fmt.Sprintf("could not join game: %v", err))
		return
	}
	m, err := s.Games.Join(req.GameID, player)
	if err != nil {
		s.Players.Unregister(player.ID)
		s.Logger.WithError(err).Info("join game failed")
		s.ackError(sess, msg, fmt.Sprintf("could not join game: %v", err))
		return
	}

	sess.bind(m.ID, player.ID)
	s.Hub.Join(m.ID, player.ID, sess.out)

	m.Mu.Lock()
	if m.Closed() {
		m.Mu.Unlock()
		sess.unbind()
		s.Hub.Leave(m.ID, player.ID, sess.out)
		s.Players.Unregister(player.ID)
		s.ackError(sess, msg, fmt.Sprintf("could not join game: %v", game.ErrMatchNotFound))
		return
	}
	snap, err := m.Snapshot()
	if err != nil {
		m.Mu.Unlock()
		s.Logger.WithField("match", m.ID).WithError(err).Error("failed to marshal snapshot")
		s.ackError(sess, msg, "could not join game: internal error")
		return
	}
	rec := s.record(m, player.ID, cache.TypePlayerJoined, map[string]string{"name": player.Name, "team": string(player.Team)})
	s.broadcastState(m.ID, snap)
	s.ack(sess, msg, json.RawMessage(snap))
	m.Mu.Unlock()

	s.sendSession(sess)
	s.publish(rec)
}

func (s *Server) reject(sess *session, action, reason string) {
	sess.send(s.encode(OutboundMessage{
		Event: EventActionRejected,
		Data:  rejectedData{Action: action, Reason: reason},
	}))
}

func (s *Server) applyAction(sess *session, msg InboundMessage) {
	var req actionData
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.reject(sess, "", "malformed action")
		return
	}
	if !sess.bound() {
		s.reject(sess, req.Action, "not in a game")
		return
	}
	entry := s.Logger.WithFields(logrus.Fields{"match": sess.code, "player": sess.playerID})

	action, err := game.DecodeAction(req.Action, req.Data)
	if err != nil {
		entry.WithError(err).Info("undecodable action")
		s.reject(sess, req.Action, reasonOf(err))
		return
	}
	player, err := s.Players.Get(sess.playerID)
	if err != nil {
		s.reject(sess, req.Action, "not in a game")
		return
	}
	m, err := s.Games.ByPlayer(sess.playerID)
	if err != nil {
		s.reject(sess, req.Action, "not in a game")
		return
	}

	m.Mu.Lock()
	if m.Closed() {
		m.Mu.Unlock()
		s.reject(sess, action.Name(), "not in a game")
		return
	}
	out, err := s.Engine.Apply(player, m, action)
	if err != nil {
		m.Mu.Unlock()
		s.reject(sess, action.Name(), reasonOf(err))
		return
	}
	recs := []cache.ActionRecord{s.record(m, player.ID, action.Name(), req.Data)}
	if out.RoundOver {
		recs = append(recs, s.record(m, "", cache.TypeRoundOver, map[string]any{"winner": out.Winner}))
	}
	snap, err := m.Snapshot()
	if err == nil {
		s.broadcastState(m.ID, snap)
	}
	m.Mu.Unlock()

	if err != nil {
		entry.WithError(err).Error("failed to marshal snapshot")
	}
	for _, rec := range recs {
		s.publish(rec)
	}
}

// reasonOf turns an engine error into the text shown to the caller.
func reasonOf(err error) string {
	var rej *game.RejectedError
	if errors.As(err, &rej) {
		return rej.Reason
	}
	return err.Error()
}

func (s *Server) reconnect(sess *session, msg InboundMessage) {
	if !s.checkFree(sess) {
		s.ackError(sess, msg, "could not reconnect: already in a game")
		return
	}
	var req reconnectData
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.ackError(sess, msg, "could not reconnect: malformed request")
		return
	}
	playerID, code, err := s.Tokens.Verify(req.Token)
	if err != nil {
		s.Logger.WithError(err).Info("reconnect with invalid token")
		s.ackError(sess, msg, "could not reconnect: invalid token")
		return
	}
	m, err := s.Games.ByPlayer(playerID)
	if err != nil || m.ID != code {
		s.ackError(sess, msg, "could not reconnect: game no longer exists")
		return
	}

	m.Mu.Lock()
	if m.Closed() {
		m.Mu.Unlock()
		s.ackError(sess, msg, "could not reconnect: game no longer exists")
		return
	}
	p := m.Player(playerID)
	if p == nil || !p.IsReconnecting {
		m.Mu.Unlock()
		s.ackError(sess, msg, "could not reconnect: player is still connected")
		return
	}
	p.IsReconnecting = false
	m.Touch()
	snap, err := m.Snapshot()
	if err != nil {
		p.IsReconnecting = true
		m.Mu.Unlock()
		s.Logger.WithField("match", code).WithError(err).Error("failed to marshal snapshot")
		s.ackError(sess, msg, "could not reconnect: internal error")
		return
	}
	sess.bind(code, playerID)
	s.Hub.Join(code, playerID, sess.out)
	s.broadcastState(code, snap)
	s.ack(sess, msg, json.RawMessage(snap))
	m.Mu.Unlock()

	s.Logger.WithField("match", code).Infof("%s reconnected", p)
	s.sendSession(sess)
}

// disconnect marks the session's player as reconnecting. A match whose
// players have all gone is disposed.
func (s *Server) disconnect(sess *session) {
	if !sess.bound() {
		return
	}
	code, playerID := sess.code, sess.playerID
	sess.unbind()
	s.Hub.Leave(code, playerID, sess.out)

	m, err := s.Games.ByPlayer(playerID)
	if err != nil {
		return
	}

	entry := s.Logger.WithField("match", code)

	m.Mu.Lock()
	if m.Closed() {
		m.Mu.Unlock()
		return
	}
	if p := m.Player(playerID); p != nil {
		p.IsReconnecting = true
	}
	empty := m.AllReconnecting()
	if !empty {
		snap, err := m.Snapshot()
		if err == nil {
			s.broadcastState(code, snap)
		} else {
			entry.WithError(err).Error("failed to marshal snapshot")
		}
	}
	m.Mu.Unlock()

	if !empty {
		entry.Infof("player %s disconnected", playerID)
		return
	}
	// A member may have reconnected since the lock was released; dispose
	// checks again under the lock.
	if s.dispose(code, "all players left", true) {
		entry.Info("every player disconnected")
	}
}
