// internal/game/engine.go
package game

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/codenames/internal/board"
	"github.com/jason-s-yu/codenames/internal/models"
)

// WordSource draws the words for a new grid.
type WordSource interface {
	Sample(lang string, count int, exclude []string, rng board.Rand) ([]string, error)
}

// Rules are the tunable parts of the game.
type Rules struct {
	// EnforceHintOverlap rejects hints that contain, or are contained in, a
	// card on the grid.
	EnforceHintOverlap bool
	// MinPlayersPerTeam is the smallest team size that can start a round.
	MinPlayersPerTeam int
}

// DefaultRules returns the rules used when nothing is configured.
func DefaultRules() Rules {
	return Rules{EnforceHintOverlap: true}
}

// Outcome summarises the effect of a successful action.
type Outcome struct {
	TurnAdvanced bool
	RoundOver    bool
	Winner       models.Colour
}

// Engine validates and executes actions against a match. It holds no match
// state itself and may be shared by every match in the process.
type Engine struct {
	Words WordSource
	Rules Rules
	// Rand is shared by every match. Calls to it are serialised by the
	// engine, so a plain seeded *rand.Rand is fine.
	Rand   board.Rand
	Logger *logrus.Logger

	randMu sync.Mutex
}

// lockedRand serialises access to a Rand shared between matches.
type lockedRand struct {
	mu *sync.Mutex
	r  board.Rand
}

func (l lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

func (l lockedRand) Shuffle(n int, swap func(i, j int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.r.Shuffle(n, swap)
}

// NewEngine returns an engine drawing from words with the default generator.
func NewEngine(words WordSource, rules Rules, logger *logrus.Logger) *Engine {
	return &Engine{Words: words, Rules: rules, Rand: board.Default, Logger: logger}
}

func (e *Engine) rng() board.Rand {
	if e.Rand == nil {
		return board.Default
	}
	return lockedRand{mu: &e.randMu, r: e.Rand}
}

func (e *Engine) log() *logrus.Logger {
	if e.Logger == nil {
		return logrus.StandardLogger()
	}
	return e.Logger
}

// Apply validates action for actor and, when valid, applies it to m. The
// caller must hold m.Mu. A returned error means m was not modified.
func (e *Engine) Apply(actor *models.Player, m *Match, action Action) (Outcome, error) {
	entry := e.log().WithFields(logrus.Fields{"match": m.ID, "action": action.Name()})
	if actor == nil {
		return Outcome{}, ErrPlayerNotFound
	}
	caller := m.Player(actor.ID)
	if caller == nil {
		return Outcome{}, fmt.Errorf("%w: %s", ErrNotInMatch, actor.ID)
	}
	entry = entry.WithField("player", caller.String())

	var (
		out Outcome
		err error
	)
	switch a := action.(type) {
	case SwitchTeam:
		out, err = switchTeam(e, caller, m, a)
	case StartRound:
		out, err = startRound(e, caller, m, a)
	case SubmitHint:
		out, err = submitHint(e, caller, m, a)
	case NominateCard:
		out, err = nominateCard(e, caller, m, a)
	case EndTurn:
		out, err = endTurn(e, caller, m, a)
	default:
		err = reject(action.Name(), "unknown action")
	}

	if err != nil {
		if errors.Is(err, ErrRejected) {
			entry.WithError(err).WithField("payload", action).Info("action rejected")
		} else {
			entry.WithError(err).Error("action failed")
		}
		return Outcome{}, err
	}

	m.Touch()
	entry.WithFields(logrus.Fields{
		"turnAdvanced": out.TurnAdvanced,
		"roundOver":    out.RoundOver,
	}).Debug("action applied")
	if out.RoundOver {
		entry.Infof("round %d won by %s", m.Round, out.Winner)
	}
	return out, nil
}

func switchTeam(_ *Engine, caller *models.Player, m *Match, a SwitchTeam) (Outcome, error) {
	if m.Phase != PhaseLobby {
		return Outcome{}, reject(a.Name(), "teams can only be changed in the lobby")
	}
	if !a.Team.IsTeam() {
		return Outcome{}, reject(a.Name(), "invalid target team %q", a.Team)
	}
	if caller.Team == a.Team {
		return Outcome{}, reject(a.Name(), "already on team %s", a.Team)
	}
	caller.Team = a.Team
	return Outcome{}, nil
}

func startRound(e *Engine, caller *models.Player, m *Match, a StartRound) (Outcome, error) {
	if !caller.IsHost {
		return Outcome{}, reject(a.Name(), "only the host can start a round")
	}
	if m.Phase == PhaseRound {
		return Outcome{}, reject(a.Name(), "a round is already in progress")
	}
	for _, team := range []models.Colour{models.Red, models.Blue} {
		if n := len(m.TeamMembers(team)); n < e.Rules.MinPlayersPerTeam {
			return Outcome{}, reject(a.Name(), "team %s has %d player(s), need %d", team, n, e.Rules.MinPlayersPerTeam)
		}
	}

	rng := e.rng()
	starting := board.RandomTeam(rng)
	words, err := e.Words.Sample(m.Language, board.TotalCards, m.words(), rng)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: drawing words: %w", ErrConfiguration, err)
	}
	colours, err := board.Generate(board.TotalCards, board.CardsPerTeam, board.Assassins, starting, rng)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: generating board: %w", ErrConfiguration, err)
	}
	if len(words) != len(colours) {
		return Outcome{}, fmt.Errorf("%w: %d words for %d colours", ErrConfiguration, len(words), len(colours))
	}

	m.Round++
	m.Phase = PhaseRound
	m.Hint = nil
	m.HintHistory = []models.Hint{}
	rotateGameMasters(m)

	cards := make([]models.Card, len(words))
	for i := range words {
		cards[i] = models.Card{Content: words[i], Colour: colours[i]}
	}
	m.Cards = cards
	m.InTurn = starting
	return Outcome{}, nil
}

// rotateGameMasters picks the member at index round mod teamSize of each team.
// An empty team has no game master.
func rotateGameMasters(m *Match) {
	for _, p := range m.Players {
		p.IsGameMaster = false
	}
	for _, team := range []models.Colour{models.Red, models.Blue} {
		members := m.TeamMembers(team)
		if len(members) == 0 {
			continue
		}
		members[m.Round%len(members)].IsGameMaster = true
	}
}

func submitHint(e *Engine, caller *models.Player, m *Match, a SubmitHint) (Outcome, error) {
	if m.Phase != PhaseRound {
		return Outcome{}, reject(a.Name(), "no round in progress")
	}
	if !caller.IsGameMaster {
		return Outcome{}, reject(a.Name(), "only the game master can give hints")
	}
	if caller.Team != m.InTurn {
		return Outcome{}, reject(a.Name(), "it is not team %s's turn", caller.Team)
	}
	word := strings.TrimSpace(a.Word)
	if !validHintWord(word) {
		return Outcome{}, reject(a.Name(), "hint must be a word made of letters")
	}
	if a.Amount < MinHintAmount || a.Amount > MaxHintAmount {
		return Outcome{}, reject(a.Name(), "amount must be between %d and %d", MinHintAmount, MaxHintAmount)
	}
	if e.Rules.EnforceHintOverlap {
		if card := overlappingCard(word, m.words()); card != "" {
			return Outcome{}, reject(a.Name(), "hint overlaps the card %q", card)
		}
	}

	h := models.Hint{Word: word, Amount: a.Amount, Team: caller.Team}
	m.Hint = &h
	m.HintHistory = append(m.HintHistory, h)
	return Outcome{}, nil
}

// guessable holds the checks shared by nominateCard and endTurn.
func guessable(name string, caller *models.Player, m *Match) error {
	if m.Phase != PhaseRound {
		return reject(name, "no round in progress")
	}
	if m.Hint == nil {
		return reject(name, "waiting for a hint")
	}
	if caller.IsGameMaster {
		return reject(name, "game masters cannot guess")
	}
	if caller.Team != m.InTurn {
		return reject(name, "it is not team %s's turn", caller.Team)
	}
	return nil
}

func nominateCard(_ *Engine, caller *models.Player, m *Match, a NominateCard) (Outcome, error) {
	if m.Phase == PhaseRound && len(m.Cards) == 0 {
		return Outcome{}, ErrNoBoard
	}
	if err := guessable(a.Name(), caller, m); err != nil {
		return Outcome{}, err
	}
	if a.Index < 0 || a.Index >= len(m.Cards) {
		return Outcome{}, reject(a.Name(), "card index %d out of range", a.Index)
	}
	card := &m.Cards[a.Index]
	if card.IsConsumed {
		return Outcome{}, reject(a.Name(), "card %d is already revealed", a.Index)
	}

	card.IsConsumed = true
	team := caller.Team

	switch {
	case card.Colour == models.Black:
		return win(m, team.Other()), nil
	case card.Colour != team:
		if card.Colour == team.Other() && m.Remaining(team.Other()) == 0 {
			return win(m, team.Other()), nil
		}
		m.advanceTurn()
		return Outcome{TurnAdvanced: true}, nil
	default:
		if m.Remaining(team) == 0 {
			return win(m, team), nil
		}
		return Outcome{}, nil
	}
}

func endTurn(_ *Engine, caller *models.Player, m *Match, a EndTurn) (Outcome, error) {
	if err := guessable(a.Name(), caller, m); err != nil {
		return Outcome{}, err
	}
	m.advanceTurn()
	return Outcome{TurnAdvanced: true}, nil
}

func win(m *Match, winner models.Colour) Outcome {
	m.endGame(winner)
	return Outcome{RoundOver: true, Winner: winner}
}
