// internal/game/errors.go
package game

import (
	"errors"
	"fmt"
)

var (
	ErrMatchNotFound    = errors.New("match not found")
	ErrMatchNotJoinable = errors.New("match is not accepting players")
	ErrMatchExists      = errors.New("match code already in use")
	ErrInvalidCode      = errors.New("match code must be at least 3 letters A-Z")
	ErrPlayerNotFound   = errors.New("player not found")
	ErrPlayerExists     = errors.New("player already registered")
	ErrNotInMatch       = errors.New("player is not part of a match")
	ErrInvalidName      = errors.New("invalid player name")

	// ErrRejected matches every *RejectedError.
	ErrRejected = errors.New("action rejected")
	// ErrConfiguration aborts a round start when words or colours cannot be drawn.
	ErrConfiguration = errors.New("match configuration error")
	// ErrNoBoard means a nomination reached a round without a grid.
	ErrNoBoard = errors.New("round has no board")
)

// RejectedError reports an action that failed validation. The match is left
// untouched when it is returned.
type RejectedError struct {
	Action string
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Action, e.Reason)
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}

func reject(action, format string, args ...any) error {
	return &RejectedError{Action: action, Reason: fmt.Sprintf(format, args...)}
}
