// internal/board/board.go
package board

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/jason-s-yu/codenames/internal/models"
)

// Standard deck composition for a 5x5 grid.
const (
	TotalCards   = 25
	CardsPerTeam = 7
	Assassins    = 1
)

var (
	// ErrInvalidComposition is returned when the requested counts cannot fit into the grid.
	ErrInvalidComposition = errors.New("invalid deck composition")
	// ErrInvalidStartingTeam is returned when the starting team is not red or blue.
	ErrInvalidStartingTeam = errors.New("starting team must be red or blue")
)

// Rand is the subset of *rand.Rand used for drawing teams, words and shuffles.
// Tests pass a seeded *rand.Rand; production code uses Default.
type Rand interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

type globalRand struct{}

func (globalRand) IntN(n int) int                     { return rand.IntN(n) }
func (globalRand) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// Default is backed by the auto-seeded, goroutine-safe top-level generator.
var Default Rand = globalRand{}

// RandomTeam picks the starting team with a fair coin.
func RandomTeam(rng Rand) models.Colour {
	if rng.IntN(2) == 0 {
		return models.Red
	}
	return models.Blue
}

// Generate builds the colour assignment for a grid of total cards: perTeam
// cards for each team plus one extra for startingTeam, the given number of
// assassins, and neutral cards for the remainder. The result is a uniformly
// random permutation.
func Generate(total, perTeam, assassins int, startingTeam models.Colour, rng Rand) ([]models.Colour, error) {
	if !startingTeam.IsTeam() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStartingTeam, startingTeam)
	}
	if perTeam < 0 || assassins < 0 {
		return nil, fmt.Errorf("%w: negative counts (perTeam=%d, assassins=%d)", ErrInvalidComposition, perTeam, assassins)
	}
	neutral := total - (2*perTeam + 1 + assassins)
	if neutral < 0 {
		return nil, fmt.Errorf("%w: %d cards cannot hold %d per team and %d assassin(s)", ErrInvalidComposition, total, perTeam, assassins)
	}

	colours := make([]models.Colour, 0, total)
	colours = appendN(colours, models.Red, perTeam+bonus(startingTeam, models.Red))
	colours = appendN(colours, models.Blue, perTeam+bonus(startingTeam, models.Blue))
	colours = appendN(colours, models.Black, assassins)
	colours = appendN(colours, models.White, neutral)

	// Fisher-Yates, so every permutation is equally likely.
	rng.Shuffle(len(colours), func(i, j int) {
		colours[i], colours[j] = colours[j], colours[i]
	})
	return colours, nil
}

// Count returns how many entries of colours equal c.
func Count(colours []models.Colour, c models.Colour) int {
	n := 0
	for _, col := range colours {
		if col == c {
			n++
		}
	}
	return n
}

func bonus(startingTeam, team models.Colour) int {
	if startingTeam == team {
		return 1
	}
	return 0
}

func appendN(dst []models.Colour, c models.Colour, n int) []models.Colour {
	for i := 0; i < n; i++ {
		dst = append(dst, c)
	}
	return dst
}
