// internal/models/colour.go
package models

// Colour is the affiliation of a card or a player. Red and Blue are the two
// playable teams; White doubles as the neutral bystander colour and as the
// "no team yet" marker for players, Black marks the assassin.
type Colour string

const (
	White Colour = "white"
	Black Colour = "black"
	Red   Colour = "red"
	Blue  Colour = "blue"
)

// IsTeam reports whether c is one of the two playable team colours.
func (c Colour) IsTeam() bool {
	return c == Red || c == Blue
}

// Other returns the opposing team. Non-team colours have no opposite and are
// returned unchanged.
func (c Colour) Other() Colour {
	switch c {
	case Red:
		return Blue
	case Blue:
		return Red
	default:
		return c
	}
}

// ParseColour maps a wire value onto a Colour. The second return value is
// false for anything that is not one of the four known colours.
func ParseColour(s string) (Colour, bool) {
	switch c := Colour(s); c {
	case White, Black, Red, Blue:
		return c, true
	default:
		return "", false
	}
}
