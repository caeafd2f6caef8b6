// internal/game/actions.go
package game

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/jason-s-yu/codenames/internal/models"
)

// Action names as they appear on the wire.
const (
	ActionSwitchTeam   = "switchTeam"
	ActionStartRound   = "startRound"
	ActionSubmitHint   = "submitHint"
	ActionNominateCard = "nominateCard"
	ActionEndTurn      = "endTurn"
)

// Action is one player intent. The set of implementations is closed.
type Action interface {
	Name() string
	isAction()
}

type SwitchTeam struct {
	Team models.Colour `json:"team"`
}

type StartRound struct{}

type SubmitHint struct {
	Word   string `json:"word"`
	Amount int    `json:"amount"`
}

type NominateCard struct {
	Index int `json:"index"`
}

type EndTurn struct{}

func (SwitchTeam) Name() string   { return ActionSwitchTeam }
func (StartRound) Name() string   { return ActionStartRound }
func (SubmitHint) Name() string   { return ActionSubmitHint }
func (NominateCard) Name() string { return ActionNominateCard }
func (EndTurn) Name() string      { return ActionEndTurn }

func (SwitchTeam) isAction()   {}
func (StartRound) isAction()   {}
func (SubmitHint) isAction()   {}
func (NominateCard) isAction() {}
func (EndTurn) isAction()      {}

// DecodeAction builds an Action from its wire name and payload. switchTeam
// and nominateCard accept either a bare value ("red", 4) or an object
// ({"team":"red"}, {"index":4}).
func DecodeAction(name string, raw json.RawMessage) (Action, error) {
	raw = bytes.TrimSpace(raw)
	switch name {
	case ActionSwitchTeam:
		var a SwitchTeam
		if err := decodeBareOrObject(raw, &a.Team, &a); err != nil {
			return nil, reject(name, "malformed payload: %v", err)
		}
		return a, nil
	case ActionStartRound, "startGame":
		return StartRound{}, nil
	case ActionSubmitHint:
		var a SubmitHint
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, reject(name, "malformed payload: %v", err)
		}
		return a, nil
	case ActionNominateCard:
		var a NominateCard
		if err := decodeBareOrObject(raw, &a.Index, &a); err != nil {
			return nil, reject(name, "malformed payload: %v", err)
		}
		return a, nil
	case ActionEndTurn:
		return EndTurn{}, nil
	default:
		return nil, reject(name, "unknown action")
	}
}

func decodeBareOrObject(raw json.RawMessage, bare, obj any) error {
	if len(raw) == 0 {
		return fmt.Errorf("missing payload")
	}
	if raw[0] == '{' {
		return json.Unmarshal(raw, obj)
	}
	return json.Unmarshal(raw, bare)
}
