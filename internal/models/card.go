// internal/models/card.go
package models

// Card is a single word on the grid together with its hidden affiliation.
type Card struct {
	Content    string `json:"content"`
	Colour     Colour `json:"colour"`
	IsConsumed bool   `json:"isConsumed,omitempty"`
}

// Hint is a word plus the number of cards it is meant to cover.
type Hint struct {
	Word   string `json:"word"`
	Amount int    `json:"amount"`
	Team   Colour `json:"team"`
}
