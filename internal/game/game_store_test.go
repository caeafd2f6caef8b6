// internal/game/game_store_test.go
package game

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/codenames/internal/models"
	"github.com/jason-s-yu/codenames/internal/words"
)

func newTestStores(t *testing.T) (*GameStore, *PlayerStore) {
	t.Helper()
	bank, err := words.Default()
	require.NoError(t, err)
	return NewGameStore(bank, quietLogger()), NewPlayerStore()
}

func register(t *testing.T, ps *PlayerStore, id string) *models.Player {
	t.Helper()
	p, err := ps.Register(id, "name-"+id)
	require.NoError(t, err)
	return p
}

func TestCreateGeneratesCode(t *testing.T) {
	gs, ps := newTestStores(t)
	host := register(t, ps, "host")

	m, err := gs.Create("", host, "EN-us")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[A-Z]{3}$`), m.ID)
	assert.Equal(t, "en", m.Language)
	assert.Equal(t, PhaseLobby, m.Phase)
	assert.Equal(t, -1, m.Round)
	assert.True(t, host.IsHost)
	assert.Equal(t, models.Red, host.Team)
	assert.Equal(t, []*models.Player{host}, m.Players)

	got, err := gs.ByPlayer("host")
	require.NoError(t, err)
	assert.Same(t, m, got)
}

func TestCreateGeneratesDistinctCodes(t *testing.T) {
	gs, _ := newTestStores(t)
	seen := make(map[string]bool)
	for i := 0; i < 300; i++ {
		m, err := gs.Create("", models.NewPlayer(fmt.Sprintf("h%d", i), "host"), "en")
		require.NoError(t, err)
		assert.False(t, seen[m.ID], "duplicate code %s", m.ID)
		seen[m.ID] = true
	}
	assert.Len(t, gs.Matches(), 300)
}

func TestCreateWithExplicitCode(t *testing.T) {
	gs, ps := newTestStores(t)

	m, err := gs.Create("party", register(t, ps, "a"), "de")
	require.NoError(t, err)
	assert.Equal(t, "PARTY", m.ID)

	_, err = gs.Create("PARTY", register(t, ps, "b"), "de")
	assert.ErrorIs(t, err, ErrMatchExists)

	_, err = gs.Create("a1", register(t, ps, "c"), "de")
	assert.ErrorIs(t, err, ErrInvalidCode)

	_, err = gs.Create("", register(t, ps, "d"), "fr")
	assert.ErrorIs(t, err, words.ErrUnknownLanguage)
}

func TestJoinBalancesTeams(t *testing.T) {
	gs, ps := newTestStores(t)
	m, err := gs.Create("abc", register(t, ps, "p0"), "en")
	require.NoError(t, err)

	for i := 1; i < 5; i++ {
		_, err := gs.Join("abc", register(t, ps, fmt.Sprintf("p%d", i)))
		require.NoError(t, err)
	}
	teams := make([]models.Colour, len(m.Players))
	for i, p := range m.Players {
		teams[i] = p.Team
	}
	assert.Equal(t, []models.Colour{models.Red, models.Blue, models.Red, models.Blue, models.Red}, teams)
	assert.Len(t, m.TeamMembers(models.Red), 3)
}

func TestJoinAfterSwitchFillsSmallerTeam(t *testing.T) {
	gs, ps := newTestStores(t)
	m, err := gs.Create("abc", register(t, ps, "p0"), "en")
	require.NoError(t, err)
	_, err = gs.Join("abc", register(t, ps, "p1"))
	require.NoError(t, err)
	m.Players[1].Team = models.Red

	p2 := register(t, ps, "p2")
	_, err = gs.Join("abc", p2)
	require.NoError(t, err)
	assert.Equal(t, models.Blue, p2.Team)
}

func TestJoinErrors(t *testing.T) {
	gs, ps := newTestStores(t)
	m, err := gs.Create("abc", register(t, ps, "p0"), "en")
	require.NoError(t, err)

	_, err = gs.Join("XYZ", register(t, ps, "p1"))
	assert.ErrorIs(t, err, ErrMatchNotFound)

	_, err = gs.Join("abc", m.Players[0])
	assert.ErrorIs(t, err, ErrPlayerExists)

	m.Phase = PhaseRound
	_, err = gs.Join("abc", register(t, ps, "p2"))
	assert.ErrorIs(t, err, ErrMatchNotJoinable)

	_, err = gs.ByPlayer("p2")
	assert.ErrorIs(t, err, ErrNotInMatch)
}

func TestJoinClosedMatch(t *testing.T) {
	gs, ps := newTestStores(t)
	m, err := gs.Create("abc", register(t, ps, "p0"), "en")
	require.NoError(t, err)

	m.Mu.Lock()
	m.Close()
	m.Mu.Unlock()

	_, err = gs.Join("abc", register(t, ps, "p1"))
	assert.ErrorIs(t, err, ErrMatchNotFound)
	assert.Len(t, m.Players, 1)
	_, err = gs.ByPlayer("p1")
	assert.ErrorIs(t, err, ErrNotInMatch)
}

func TestTwoPlayersJoinAndStart(t *testing.T) {
	gs, ps := newTestStores(t)
	bank, err := words.Default()
	require.NoError(t, err)
	e := NewEngine(bank, DefaultRules(), quietLogger())

	host := register(t, ps, "host")
	m, err := gs.Create("", host, "en")
	require.NoError(t, err)
	guest := register(t, ps, "guest")
	_, err = gs.Join(m.ID, guest)
	require.NoError(t, err)

	assert.Equal(t, models.Red, host.Team)
	assert.Equal(t, models.Blue, guest.Team)

	m.Mu.Lock()
	_, err = e.Apply(host, m, StartRound{})
	m.Mu.Unlock()
	require.NoError(t, err)
	assert.Equal(t, PhaseRound, m.Phase)
	assert.True(t, host.IsGameMaster)
	assert.True(t, guest.IsGameMaster)
	assert.Len(t, m.Cards, 25)
}

func TestDispose(t *testing.T) {
	gs, ps := newTestStores(t)
	m, err := gs.Create("abc", register(t, ps, "p0"), "en")
	require.NoError(t, err)
	_, err = gs.Join(m.ID, register(t, ps, "p1"))
	require.NoError(t, err)
	other, err := gs.Create("def", register(t, ps, "p2"), "en")
	require.NoError(t, err)

	assert.Equal(t, []string{"p0", "p1"}, gs.Dispose("ABC"))
	assert.Nil(t, gs.Dispose("ABC"))

	_, err = gs.Get("ABC")
	assert.ErrorIs(t, err, ErrMatchNotFound)
	_, err = gs.ByPlayer("p0")
	assert.ErrorIs(t, err, ErrNotInMatch)

	got, err := gs.ByPlayer("p2")
	require.NoError(t, err)
	assert.Same(t, other, got)
}

func TestConcurrentJoins(t *testing.T) {
	gs, _ := newTestStores(t)
	m, err := gs.Create("abc", models.NewPlayer("host", "host"), "en")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := gs.Join("abc", models.NewPlayer(fmt.Sprintf("p%d", i), "guest"))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	m.Mu.Lock()
	defer m.Mu.Unlock()
	assert.Len(t, m.Players, 51)
	assert.Len(t, m.TeamMembers(models.Red), 26)
	assert.Len(t, m.TeamMembers(models.Blue), 25)
}

func TestPlayerStore(t *testing.T) {
	ps := NewPlayerStore()

	p, err := ps.Register("a", "  Jörg ")
	require.NoError(t, err)
	assert.Equal(t, "Jörg", p.Name)
	assert.Equal(t, models.White, p.Team)

	_, err = ps.Register("a", "someone")
	assert.ErrorIs(t, err, ErrPlayerExists)

	for _, name := range []string{"", "ab", "bad<name>"} {
		_, err = ps.Register("b", name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}

	got, err := ps.Get("a")
	require.NoError(t, err)
	assert.Same(t, p, got)

	ps.Unregister("a")
	_, err = ps.Get("a")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
	assert.Zero(t, ps.Len())
}

func TestSnapshotShape(t *testing.T) {
	m := NewMatch("ABC", "en")
	m.AddPlayer(models.NewPlayer("p0", "alice"))

	raw, err := m.Snapshot()
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "ABC", got["id"])
	assert.EqualValues(t, -1, got["round"])
	assert.Equal(t, "lobby", got["phase"])
	assert.Equal(t, "white", got["inTurn"])
	assert.Contains(t, got, "hint")
	assert.Nil(t, got["hint"])
	assert.NotContains(t, got, "cards")
	assert.NotContains(t, got, "Mu")
	assert.NotContains(t, got, "CreatedAt")
	assert.Equal(t, []any{}, got["hintHistory"])
}

func TestDecodeAction(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Action
	}{
		{ActionSwitchTeam, `"blue"`, SwitchTeam{Team: models.Blue}},
		{ActionSwitchTeam, `{"team":"red"}`, SwitchTeam{Team: models.Red}},
		{ActionStartRound, ``, StartRound{}},
		{"startGame", `null`, StartRound{}},
		{ActionSubmitHint, `{"word":"apple","amount":2}`, SubmitHint{Word: "apple", Amount: 2}},
		{ActionNominateCard, `4`, NominateCard{Index: 4}},
		{ActionNominateCard, ` {"index":7}`, NominateCard{Index: 7}},
		{ActionEndTurn, `{}`, EndTurn{}},
	}
	for _, tc := range cases {
		got, err := DecodeAction(tc.name, json.RawMessage(tc.raw))
		require.NoError(t, err, tc.name+" "+tc.raw)
		assert.Equal(t, tc.want, got)
	}

	_, err := DecodeAction("flipTable", nil)
	assert.ErrorIs(t, err, ErrRejected)
	_, err = DecodeAction(ActionNominateCard, json.RawMessage(`"four"`))
	assert.ErrorIs(t, err, ErrRejected)
	_, err = DecodeAction(ActionSubmitHint, nil)
	assert.ErrorIs(t, err, ErrRejected)
}
