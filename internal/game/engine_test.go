// internal/game/engine_test.go
package game

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/codenames/internal/board"
	"github.com/jason-s-yu/codenames/internal/models"
	"github.com/jason-s-yu/codenames/internal/words"
)

// stubWords hands out predictable letter-only words and records what it was
// asked to exclude.
type stubWords struct {
	calls    int
	excluded [][]string
	err      error
}

func (s *stubWords) Sample(_ string, count int, exclude []string, _ board.Rand) ([]string, error) {
	s.excluded = append(s.excluded, exclude)
	if s.err != nil {
		return nil, s.err
	}
	out := make([]string, count)
	for i := range out {
		out[i] = fmt.Sprintf("word%c%c", 'a'+s.calls, 'a'+i)
	}
	s.calls++
	return out, nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestEngine(seed uint64) (*Engine, *stubWords) {
	sw := &stubWords{}
	return &Engine{
		Words:  sw,
		Rules:  DefaultRules(),
		Rand:   rand.New(rand.NewPCG(seed, seed+1)),
		Logger: quietLogger(),
	}, sw
}

// newTestMatch builds a lobby match. The first player is the host; teams
// alternate red, blue, red, ...
func newTestMatch(n int) (*Match, []*models.Player) {
	m := NewMatch("ABC", "en")
	players := make([]*models.Player, n)
	for i := range players {
		players[i] = models.NewPlayer(fmt.Sprintf("p%d", i), fmt.Sprintf("player%d", i))
		m.AddPlayer(players[i])
	}
	if n > 0 {
		players[0].IsHost = true
	}
	return m, players
}

// startedMatch returns a four player match in round 0 with a hint given by
// the team in turn.
func startedMatch(t *testing.T, seed uint64) (*Engine, *Match, []*models.Player) {
	t.Helper()
	e, _ := newTestEngine(seed)
	m, players := newTestMatch(4)
	_, err := e.Apply(players[0], m, StartRound{})
	require.NoError(t, err)
	_, err = e.Apply(m.GameMaster(m.InTurn), m, SubmitHint{Word: "apple", Amount: 2})
	require.NoError(t, err)
	return e, m, players
}

func guesser(m *Match, team models.Colour) *models.Player {
	for _, p := range m.TeamMembers(team) {
		if !p.IsGameMaster {
			return p
		}
	}
	return nil
}

func indexOf(m *Match, c models.Colour) int {
	for i, card := range m.Cards {
		if card.Colour == c && !card.IsConsumed {
			return i
		}
	}
	return -1
}

// consumeAllBut reveals every card of colour c except one and returns the
// index of the one left.
func consumeAllBut(m *Match, c models.Colour) int {
	last := -1
	for i := range m.Cards {
		if m.Cards[i].Colour != c {
			continue
		}
		if last == -1 {
			last = i
			continue
		}
		m.Cards[i].IsConsumed = true
	}
	return last
}

func assertRejected(t *testing.T, err error, action string) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRejected)
	var rej *RejectedError
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, action, rej.Action)
}

func TestStartRoundBuildsStandardGrid(t *testing.T) {
	for seed := uint64(0); seed < 20; seed++ {
		e, _ := newTestEngine(seed)
		m, players := newTestMatch(4)

		_, err := e.Apply(players[0], m, StartRound{})
		require.NoError(t, err)

		require.Len(t, m.Cards, 25)
		colours := make([]models.Colour, len(m.Cards))
		for i, c := range m.Cards {
			colours[i] = c.Colour
			assert.False(t, c.IsConsumed)
		}
		starting := m.InTurn
		require.True(t, starting.IsTeam())
		assert.Equal(t, 8, board.Count(colours, starting))
		assert.Equal(t, 7, board.Count(colours, starting.Other()))
		assert.Equal(t, 1, board.Count(colours, models.Black))
		assert.Equal(t, 9, board.Count(colours, models.White))

		assert.Equal(t, 0, m.Round)
		assert.Equal(t, PhaseRound, m.Phase)
		assert.Nil(t, m.Hint)
		assert.Empty(t, m.HintHistory)
	}
}

func TestStartRoundAssignsOneGameMasterPerTeam(t *testing.T) {
	e, _ := newTestEngine(1)
	m, players := newTestMatch(4)

	_, err := e.Apply(players[0], m, StartRound{})
	require.NoError(t, err)
	assert.True(t, players[0].IsGameMaster)
	assert.True(t, players[1].IsGameMaster)
	assert.False(t, players[2].IsGameMaster)
	assert.False(t, players[3].IsGameMaster)

	m.Phase = PhaseOver
	_, err = e.Apply(players[0], m, StartRound{})
	require.NoError(t, err)
	assert.Equal(t, 1, m.Round)
	assert.False(t, players[0].IsGameMaster)
	assert.False(t, players[1].IsGameMaster)
	assert.True(t, players[2].IsGameMaster)
	assert.True(t, players[3].IsGameMaster)
}

func TestStartRoundWithEmptyTeam(t *testing.T) {
	e, _ := newTestEngine(1)
	m, players := newTestMatch(1)

	_, err := e.Apply(players[0], m, StartRound{})
	require.NoError(t, err)
	assert.True(t, players[0].IsGameMaster)
	assert.Nil(t, m.GameMaster(models.Blue))
}

func TestStartRoundRequiresHostOutsideRound(t *testing.T) {
	e, _ := newTestEngine(1)
	m, players := newTestMatch(2)

	_, err := e.Apply(players[1], m, StartRound{})
	assertRejected(t, err, ActionStartRound)
	assert.Equal(t, PhaseLobby, m.Phase)

	_, err = e.Apply(players[0], m, StartRound{})
	require.NoError(t, err)
	_, err = e.Apply(players[0], m, StartRound{})
	assertRejected(t, err, ActionStartRound)
	assert.Equal(t, 0, m.Round)
}

func TestStartRoundMinPlayersPerTeam(t *testing.T) {
	e, _ := newTestEngine(1)
	e.Rules.MinPlayersPerTeam = 2
	m, players := newTestMatch(3)

	_, err := e.Apply(players[0], m, StartRound{})
	assertRejected(t, err, ActionStartRound)

	m.AddPlayer(models.NewPlayer("p3", "player3"))
	_, err = e.Apply(players[0], m, StartRound{})
	assert.NoError(t, err)
}

func TestStartRoundConfigurationErrorLeavesMatchUntouched(t *testing.T) {
	e, sw := newTestEngine(1)
	sw.err = words.ErrNotEnoughWords
	m, players := newTestMatch(2)

	_, err := e.Apply(players[0], m, StartRound{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.ErrorIs(t, err, words.ErrNotEnoughWords)
	assert.NotErrorIs(t, err, ErrRejected)

	assert.Equal(t, -1, m.Round)
	assert.Equal(t, PhaseLobby, m.Phase)
	assert.Equal(t, models.White, m.InTurn)
	assert.Empty(t, m.Cards)
	assert.False(t, players[0].IsGameMaster)
}

func TestStartRoundExcludesPreviousGrid(t *testing.T) {
	e, sw := newTestEngine(1)
	m, players := newTestMatch(2)

	_, err := e.Apply(players[0], m, StartRound{})
	require.NoError(t, err)
	first := m.words()

	m.Phase = PhaseOver
	m.HintHistory = append(m.HintHistory, models.Hint{Word: "old", Amount: 1, Team: models.Red})
	_, err = e.Apply(players[0], m, StartRound{})
	require.NoError(t, err)

	require.Len(t, sw.excluded, 2)
	assert.Empty(t, sw.excluded[0])
	assert.Equal(t, first, sw.excluded[1])
	assert.Empty(t, m.HintHistory)
}

func TestSubmitHintRoundTrip(t *testing.T) {
	e, _ := newTestEngine(3)
	m, players := newTestMatch(4)
	_, err := e.Apply(players[0], m, StartRound{})
	require.NoError(t, err)

	gm := m.GameMaster(m.InTurn)
	require.NotNil(t, gm)
	_, err = e.Apply(gm, m, SubmitHint{Word: "Bär", Amount: 3})
	require.NoError(t, err)

	require.NotNil(t, m.Hint)
	assert.Equal(t, models.Hint{Word: "Bär", Amount: 3, Team: gm.Team}, *m.Hint)
	assert.Equal(t, []models.Hint{*m.Hint}, m.HintHistory)
}

func TestSubmitHintByNonGameMasterIsRejected(t *testing.T) {
	e, _ := newTestEngine(3)
	m, players := newTestMatch(4)
	_, err := e.Apply(players[0], m, StartRound{})
	require.NoError(t, err)

	_, err = e.Apply(guesser(m, m.InTurn), m, SubmitHint{Word: "apple", Amount: 3})
	assertRejected(t, err, ActionSubmitHint)
	assert.Nil(t, m.Hint)
	assert.Empty(t, m.HintHistory)
}

func TestSubmitHintValidation(t *testing.T) {
	e, _ := newTestEngine(3)
	m, players := newTestMatch(4)
	_, err := e.Apply(players[0], m, StartRound{})
	require.NoError(t, err)
	gm := m.GameMaster(m.InTurn)
	m.Cards[0].Content = "Apple"

	cases := []SubmitHint{
		{Word: "", Amount: 1},
		{Word: "   ", Amount: 1},
		{Word: "abc1", Amount: 1},
		{Word: "pear", Amount: 0},
		{Word: "pear", Amount: 11},
		{Word: "APPLE pie", Amount: 1},
		{Word: "app", Amount: 1},
	}
	for _, h := range cases {
		_, err := e.Apply(gm, m, h)
		assertRejected(t, err, ActionSubmitHint)
	}
	assert.Nil(t, m.Hint)

	_, err = e.Apply(m.GameMaster(m.InTurn.Other()), m, SubmitHint{Word: "pear", Amount: 1})
	assertRejected(t, err, ActionSubmitHint)

	e.Rules.EnforceHintOverlap = false
	_, err = e.Apply(gm, m, SubmitHint{Word: "APPLE pie", Amount: 1})
	assert.NoError(t, err)
}

func TestSwitchTeam(t *testing.T) {
	e, _ := newTestEngine(1)
	m, players := newTestMatch(2)
	require.Equal(t, models.Red, players[0].Team)

	_, err := e.Apply(players[0], m, SwitchTeam{Team: models.Red})
	assertRejected(t, err, ActionSwitchTeam)

	_, err = e.Apply(players[0], m, SwitchTeam{Team: models.Black})
	assertRejected(t, err, ActionSwitchTeam)

	_, err = e.Apply(players[0], m, SwitchTeam{Team: models.Blue})
	require.NoError(t, err)
	assert.Equal(t, models.Blue, players[0].Team)

	_, err = e.Apply(players[0], m, StartRound{})
	require.NoError(t, err)
	_, err = e.Apply(players[1], m, SwitchTeam{Team: models.Red})
	assertRejected(t, err, ActionSwitchTeam)
}

func TestApplyRejectsOutsider(t *testing.T) {
	e, _ := newTestEngine(1)
	m, _ := newTestMatch(2)

	_, err := e.Apply(models.NewPlayer("ghost", "ghost"), m, StartRound{})
	assert.ErrorIs(t, err, ErrNotInMatch)
}

func TestNominateCardGuards(t *testing.T) {
	e, _ := newTestEngine(5)
	m, players := newTestMatch(4)
	_, err := e.Apply(players[0], m, StartRound{})
	require.NoError(t, err)
	g := guesser(m, m.InTurn)

	_, err = e.Apply(g, m, NominateCard{Index: 0})
	assertRejected(t, err, ActionNominateCard)

	_, err = e.Apply(m.GameMaster(m.InTurn), m, SubmitHint{Word: "apple", Amount: 1})
	require.NoError(t, err)

	for _, idx := range []int{-1, 25, 100} {
		_, err = e.Apply(g, m, NominateCard{Index: idx})
		assertRejected(t, err, ActionNominateCard)
	}

	_, err = e.Apply(m.GameMaster(m.InTurn), m, NominateCard{Index: 0})
	assertRejected(t, err, ActionNominateCard)

	_, err = e.Apply(guesser(m, m.InTurn.Other()), m, NominateCard{Index: 0})
	assertRejected(t, err, ActionNominateCard)

	m.Cards[3].IsConsumed = true
	_, err = e.Apply(g, m, NominateCard{Index: 3})
	assertRejected(t, err, ActionNominateCard)

	for i, c := range m.Cards {
		if i != 3 {
			assert.False(t, c.IsConsumed)
		}
	}
}

func TestNominateAssassinLoses(t *testing.T) {
	e, m, _ := startedMatch(t, 7)
	team := m.InTurn

	out, err := e.Apply(guesser(m, team), m, NominateCard{Index: indexOf(m, models.Black)})
	require.NoError(t, err)
	assert.Equal(t, Outcome{RoundOver: true, Winner: team.Other()}, out)
	assert.Equal(t, PhaseOver, m.Phase)
	assert.Equal(t, []models.Colour{team.Other()}, m.WinnerHistory)
}

func TestNominateOwnLastCardWins(t *testing.T) {
	e, m, _ := startedMatch(t, 8)
	team := m.InTurn
	last := consumeAllBut(m, team)

	out, err := e.Apply(guesser(m, team), m, NominateCard{Index: last})
	require.NoError(t, err)
	assert.True(t, out.RoundOver)
	assert.Equal(t, team, out.Winner)
	assert.Equal(t, PhaseOver, m.Phase)
	assert.Equal(t, []models.Colour{team}, m.WinnerHistory)
}

func TestNominateOpponentLastCardHandsThemTheWin(t *testing.T) {
	e, m, _ := startedMatch(t, 9)
	team := m.InTurn
	last := consumeAllBut(m, team.Other())

	out, err := e.Apply(guesser(m, team), m, NominateCard{Index: last})
	require.NoError(t, err)
	assert.True(t, out.RoundOver)
	assert.Equal(t, team.Other(), out.Winner)
	assert.Equal(t, []models.Colour{team.Other()}, m.WinnerHistory)
}

func TestNominateWrongColourAdvancesTurn(t *testing.T) {
	for _, colour := range []models.Colour{models.White, models.Red, models.Blue} {
		e, m, _ := startedMatch(t, 10)
		team := m.InTurn
		if colour == team {
			continue
		}

		out, err := e.Apply(guesser(m, team), m, NominateCard{Index: indexOf(m, colour)})
		require.NoError(t, err)
		assert.True(t, out.TurnAdvanced)
		assert.Equal(t, team.Other(), m.InTurn)
		assert.Nil(t, m.Hint)
		assert.Equal(t, PhaseRound, m.Phase)
		assert.Len(t, m.HintHistory, 1)
	}
}

func TestNominateOwnColourKeepsGuessing(t *testing.T) {
	e, m, _ := startedMatch(t, 11)
	team := m.InTurn
	hint := m.Hint
	idx := indexOf(m, team)

	out, err := e.Apply(guesser(m, team), m, NominateCard{Index: idx})
	require.NoError(t, err)
	assert.Equal(t, Outcome{}, out)
	assert.True(t, m.Cards[idx].IsConsumed)
	assert.Equal(t, team, m.InTurn)
	assert.Same(t, hint, m.Hint)
}

func TestNominateWithoutBoard(t *testing.T) {
	e, m, _ := startedMatch(t, 12)
	m.Cards = nil

	_, err := e.Apply(guesser(m, m.InTurn), m, NominateCard{Index: 0})
	assert.ErrorIs(t, err, ErrNoBoard)
	assert.NotErrorIs(t, err, ErrRejected)
}

func TestEndTurn(t *testing.T) {
	e, m, _ := startedMatch(t, 13)
	team := m.InTurn

	_, err := e.Apply(m.GameMaster(team), m, EndTurn{})
	assertRejected(t, err, ActionEndTurn)

	out, err := e.Apply(guesser(m, team), m, EndTurn{})
	require.NoError(t, err)
	assert.True(t, out.TurnAdvanced)
	assert.Equal(t, team.Other(), m.InTurn)
	assert.Nil(t, m.Hint)

	_, err = e.Apply(guesser(m, m.InTurn), m, EndTurn{})
	assertRejected(t, err, ActionEndTurn)
}

func TestReplayAfterRoundOver(t *testing.T) {
	e, m, players := startedMatch(t, 14)
	_, err := e.Apply(guesser(m, m.InTurn), m, NominateCard{Index: indexOf(m, models.Black)})
	require.NoError(t, err)
	require.Equal(t, PhaseOver, m.Phase)

	_, err = e.Apply(guesser(m, m.InTurn), m, EndTurn{})
	assertRejected(t, err, ActionEndTurn)

	_, err = e.Apply(players[0], m, StartRound{})
	require.NoError(t, err)
	assert.Equal(t, 1, m.Round)
	assert.Equal(t, PhaseRound, m.Phase)
	assert.Len(t, m.WinnerHistory, 1)
	for _, c := range m.Cards {
		assert.False(t, c.IsConsumed)
	}
}

func TestSubmitHintStoresTrimmedWord(t *testing.T) {
	e, _ := newTestEngine(11)
	m, players := newTestMatch(4)
	_, err := e.Apply(players[0], m, StartRound{})
	require.NoError(t, err)

	_, err = e.Apply(m.GameMaster(m.InTurn), m, SubmitHint{Word: "  apple ", Amount: 2})
	require.NoError(t, err)
	require.NotNil(t, m.Hint)
	assert.Equal(t, "apple", m.Hint.Word)
	require.Len(t, m.HintHistory, 1)
	assert.Equal(t, "apple", m.HintHistory[0].Word)
}

func TestSharedRandAcrossMatches(t *testing.T) {
	bank, err := words.Default()
	require.NoError(t, err)
	e := &Engine{
		Words:  bank,
		Rules:  DefaultRules(),
		Rand:   rand.New(rand.NewPCG(5, 6)),
		Logger: quietLogger(),
	}

	const n = 8
	matches := make([]*Match, n)
	hosts := make([]*models.Player, n)
	for i := range matches {
		m, players := newTestMatch(4)
		matches[i], hosts[i] = m, players[0]
	}

	var wg sync.WaitGroup
	for i := range matches {
		wg.Add(1)
		go func(m *Match, host *models.Player) {
			defer wg.Done()
			for r := 0; r < 5; r++ {
				m.Mu.Lock()
				m.Phase = PhaseLobby
				_, err := e.Apply(host, m, StartRound{})
				m.Mu.Unlock()
				assert.NoError(t, err)
			}
		}(matches[i], hosts[i])
	}
	wg.Wait()

	for _, m := range matches {
		assert.Len(t, m.Cards, board.TotalCards)
		assert.Equal(t, 4, m.Round)
	}
}
