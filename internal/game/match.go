// internal/game/match.go
package game

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/jason-s-yu/codenames/internal/models"
)

// Phase is the coarse state of a match.
type Phase string

const (
	PhaseLobby Phase = "lobby"
	PhaseRound Phase = "round"
	PhaseOver  Phase = "over"
)

// Match holds the entire state for a single match in memory. Its JSON form is
// the snapshot sent to clients. Every field is guarded by Mu.
type Match struct {
	ID            string           `json:"id"`
	Round         int              `json:"round"`
	Phase         Phase            `json:"phase"`
	Players       []*models.Player `json:"players"`
	Language      string           `json:"language"`
	InTurn        models.Colour    `json:"inTurn"`
	Cards         []models.Card    `json:"cards,omitempty"`
	Hint          *models.Hint     `json:"hint"`
	HintHistory   []models.Hint    `json:"hintHistory"`
	WinnerHistory []models.Colour  `json:"winnerHistory"`

	CreatedAt  time.Time `json:"-"`
	LastActive time.Time `json:"-"`

	actionIndex int
	closed      bool

	Mu sync.Mutex `json:"-"`
}

// NewMatch returns a match waiting in the lobby.
func NewMatch(id, language string) *Match {
	now := time.Now()
	return &Match{
		ID:            id,
		Round:         -1,
		Phase:         PhaseLobby,
		Players:       []*models.Player{},
		Language:      language,
		InTurn:        models.White,
		HintHistory:   []models.Hint{},
		WinnerHistory: []models.Colour{},
		CreatedAt:     now,
		LastActive:    now,
	}
}

// Snapshot marshals the current state. Caller holds Mu.
func (m *Match) Snapshot() ([]byte, error) {
	return json.Marshal(m)
}

// Touch records activity for the idle janitor. Caller holds Mu.
func (m *Match) Touch() {
	m.LastActive = time.Now()
}

// NextActionIndex numbers the records published for this match. Caller holds Mu.
func (m *Match) NextActionIndex() int {
	i := m.actionIndex
	m.actionIndex++
	return i
}

// Close marks the match as being disposed. A closed match accepts no joins,
// reconnects or actions. Caller holds Mu.
func (m *Match) Close() {
	m.closed = true
}

// Closed reports whether Close was called. Caller holds Mu.
func (m *Match) Closed() bool {
	return m.closed
}

// Player returns the member with the given id, or nil.
func (m *Match) Player(id string) *models.Player {
	for _, p := range m.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Host returns the player flagged as host, or nil for an empty match.
func (m *Match) Host() *models.Player {
	for _, p := range m.Players {
		if p.IsHost {
			return p
		}
	}
	return nil
}

// TeamMembers returns the members of team in join order.
func (m *Match) TeamMembers(team models.Colour) []*models.Player {
	var out []*models.Player
	for _, p := range m.Players {
		if p.Team == team {
			out = append(out, p)
		}
	}
	return out
}

// GameMaster returns the game master of team, or nil.
func (m *Match) GameMaster(team models.Colour) *models.Player {
	for _, p := range m.Players {
		if p.Team == team && p.IsGameMaster {
			return p
		}
	}
	return nil
}

// AddPlayer appends p to the team with fewer members, red on a tie.
func (m *Match) AddPlayer(p *models.Player) {
	if len(m.TeamMembers(models.Red)) <= len(m.TeamMembers(models.Blue)) {
		p.Team = models.Red
	} else {
		p.Team = models.Blue
	}
	m.Players = append(m.Players, p)
}

// AllReconnecting reports whether no member currently has a live connection.
func (m *Match) AllReconnecting() bool {
	for _, p := range m.Players {
		if !p.IsReconnecting {
			return false
		}
	}
	return true
}

// Remaining counts the unconsumed cards of colour c.
func (m *Match) Remaining(c models.Colour) int {
	n := 0
	for _, card := range m.Cards {
		if card.Colour == c && !card.IsConsumed {
			n++
		}
	}
	return n
}

func (m *Match) words() []string {
	out := make([]string, len(m.Cards))
	for i, c := range m.Cards {
		out[i] = c.Content
	}
	return out
}

// advanceTurn hands the turn to the other team and discards the current hint.
func (m *Match) advanceTurn() {
	m.InTurn = m.InTurn.Other()
	m.Hint = nil
}

func (m *Match) endGame(winner models.Colour) {
	m.Phase = PhaseOver
	m.WinnerHistory = append(m.WinnerHistory, winner)
}
