// internal/game/player_store.go
package game

import (
	"fmt"
	"sync"

	"github.com/jason-s-yu/codenames/internal/models"
)

// PlayerStore tracks every connected player by id.
type PlayerStore struct {
	mu      sync.Mutex
	players map[string]*models.Player
}

// NewPlayerStore initializes and returns an empty PlayerStore.
func NewPlayerStore() *PlayerStore {
	return &PlayerStore{players: make(map[string]*models.Player)}
}

// Register validates name and creates a player that has no team yet.
func (s *PlayerStore) Register(id, name string) (*models.Player, error) {
	name, err := ValidateName(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.players[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrPlayerExists, id)
	}
	p := models.NewPlayer(id, name)
	s.players[id] = p
	return p, nil
}

// Get returns the player registered under id.
func (s *PlayerStore) Get(id string) (*models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, id)
	}
	return p, nil
}

// Unregister forgets the player. Unknown ids are ignored.
func (s *PlayerStore) Unregister(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.players, id)
}

// Len returns the number of registered players.
func (s *PlayerStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.players)
}
