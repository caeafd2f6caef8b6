// internal/handlers/protocol.go
package handlers

import (
	"encoding/json"
)

// Subprotocol is the websocket subprotocol clients must request.
const Subprotocol = "codenames"

// Inbound events.
const (
	EventCreateGame = "createGame"
	EventJoinGame   = "joinGame"
	EventAction     = "action"
	EventReconnect  = "reconnect"
	EventPing       = "ping"
)

// Outbound events.
const (
	EventAck              = "ack"
	EventGameStateUpdated = "game_state_updated"
	EventSession          = "session"
	EventActionRejected   = "action_rejected"
	EventGameClosed       = "game_closed"
	EventPong             = "pong"
	EventError            = "error"
)

// InboundMessage is the envelope of every client frame.
type InboundMessage struct {
	Event string          `json:"event"`
	Ack   *int            `json:"ack,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// OutboundMessage is the envelope of every server frame.
type OutboundMessage struct {
	Event string `json:"event"`
	Ack   *int   `json:"ack,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

type createGameData struct {
	Name     string `json:"name"`
	GameID   string `json:"gameId"`
	Language string `json:"language"`
}

type joinGameData struct {
	Name   string `json:"name"`
	GameID string `json:"gameId"`
}

type actionData struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

type reconnectData struct {
	Token string `json:"token"`
}

type sessionData struct {
	PlayerID string `json:"playerId"`
	GameID   string `json:"gameId"`
	Token    string `json:"token,omitempty"`
}

type rejectedData struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

type closedData struct {
	GameID string `json:"gameId"`
	Reason string `json:"reason"`
}

