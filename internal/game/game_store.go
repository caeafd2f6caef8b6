// internal/game/game_store.go
package game

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/codenames/internal/board"
	"github.com/jason-s-yu/codenames/internal/models"
	"github.com/jason-s-yu/codenames/internal/words"
)

// CodeLength is the length of generated match codes.
const CodeLength = 3

// codeAttempts bounds random draws per code length before growing it.
const codeAttempts = 64

// Languages reports which word list languages exist.
type Languages interface {
	Has(lang string) bool
}

// GameStore manages active matches in memory, keyed by their code, along
// with the match each registered player belongs to.
type GameStore struct {
	mu       sync.Mutex
	games    map[string]*Match
	byPlayer map[string]string // player id -> match code

	langs  Languages
	rng    board.Rand
	logger *logrus.Logger
}

// NewGameStore returns an empty store validating languages against langs.
func NewGameStore(langs Languages, logger *logrus.Logger) *GameStore {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &GameStore{
		games:    make(map[string]*Match),
		byPlayer: make(map[string]string),
		langs:    langs,
		rng:      board.Default,
		logger:   logger,
	}
}

// NormalizeCode upper-cases code and checks it is at least CodeLength letters A-Z.
func NormalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) < CodeLength {
		return "", fmt.Errorf("%w: %q", ErrInvalidCode, code)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("%w: %q", ErrInvalidCode, code)
		}
	}
	return code, nil
}

// Create registers a new lobby match with host as its first member. An
// empty code is replaced by a fresh random one.
func (s *GameStore) Create(code string, host *models.Player, language string) (*Match, error) {
	lang, err := words.NormalizeLanguage(language)
	if err != nil {
		return nil, err
	}
	if s.langs != nil && !s.langs.Has(lang) {
		return nil, fmt.Errorf("%w: %q", words.ErrUnknownLanguage, language)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.byPlayer[host.ID]; busy {
		return nil, fmt.Errorf("%w: %s is already in a match", ErrPlayerExists, host.ID)
	}
	if strings.TrimSpace(code) == "" {
		code = s.freeCodeLocked()
	} else {
		if code, err = NormalizeCode(code); err != nil {
			return nil, err
		}
		if _, taken := s.games[code]; taken {
			return nil, fmt.Errorf("%w: %s", ErrMatchExists, code)
		}
	}

	m := NewMatch(code, lang)
	host.IsHost = true
	m.AddPlayer(host)
	s.games[code] = m
	s.byPlayer[host.ID] = code
	s.logger.WithField("match", code).Infof("created by %s (%s)", host, lang)
	return m, nil
}

func (s *GameStore) freeCodeLocked() string {
	for n := CodeLength; ; n++ {
		for i := 0; i < codeAttempts; i++ {
			code := randomCode(s.rng, n)
			if _, taken := s.games[code]; !taken {
				return code
			}
		}
	}
}

func randomCode(rng board.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('A' + rng.IntN(26))
	}
	return string(b)
}

// Join adds p to the lobby match code, balancing the teams.
func (s *GameStore) Join(code string, p *models.Player) (*Match, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.byPlayer[p.ID]; busy {
		return nil, fmt.Errorf("%w: %s is already in a match", ErrPlayerExists, p.ID)
	}
	m, ok := s.games[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, code)
	}

	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Closed() {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, code)
	}
	if m.Phase != PhaseLobby {
		return nil, fmt.Errorf("%w: %s is in phase %s", ErrMatchNotJoinable, code, m.Phase)
	}
	m.AddPlayer(p)
	m.Touch()
	s.byPlayer[p.ID] = code
	s.logger.WithField("match", code).Infof("%s joined team %s", p, p.Team)
	return m, nil
}

// Get returns the match with the given code.
func (s *GameStore) Get(code string) (*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.games[strings.ToUpper(code)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, code)
	}
	return m, nil
}

// ByPlayer returns the match playerID belongs to.
func (s *GameStore) ByPlayer(playerID string) (*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.byPlayer[playerID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotInMatch, playerID)
	}
	m, ok := s.games[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, code)
	}
	return m, nil
}

// Dispose drops the match and its player associations, returning the ids of
// its members. Unknown codes return nil.
func (s *GameStore) Dispose(code string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.games[code]
	if !ok {
		s.logger.WithField("match", code).Warn("attempted to dispose a match that does not exist")
		return nil
	}
	delete(s.games, code)

	var ids []string
	for id, c := range s.byPlayer {
		if c == code {
			ids = append(ids, id)
			delete(s.byPlayer, id)
		}
	}
	sort.Strings(ids)
	s.logger.WithField("match", m.ID).Infof("disposed (%d player(s))", len(ids))
	return ids
}

// Matches returns the active matches ordered by code.
func (s *GameStore) Matches() []*Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Match, 0, len(s.games))
	for _, m := range s.games {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
