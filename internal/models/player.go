// internal/models/player.go
package models

import "fmt"

// Player is a connection-scoped participant. All mutable fields are owned by
// the match the player belongs to and must only be changed under that
// match's lock.
type Player struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Team           Colour `json:"team"`
	IsHost         bool   `json:"isHost,omitempty"`
	IsGameMaster   bool   `json:"isGameMaster,omitempty"`
	IsReconnecting bool   `json:"isReconnecting,omitempty"`
}

// NewPlayer returns a player that has not been assigned to a team yet.
func NewPlayer(id, name string) *Player {
	return &Player{
		ID:   id,
		Name: name,
		Team: White,
	}
}

// String renders the player for log lines: the name followed by a shortened id.
func (p *Player) String() string {
	id := p.ID
	if len(id) > 8 {
		id = id[:8] + "..."
	}
	return fmt.Sprintf("%s (%s)", p.Name, id)
}
