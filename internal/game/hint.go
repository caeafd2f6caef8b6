// internal/game/hint.go
package game

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// Hint amount bounds, inclusive.
const (
	MinHintAmount = 1
	MaxHintAmount = 10
)

// MinNameLength is the shortest accepted display name, in runes.
const MinNameLength = 3

// validHintWord accepts letters of any script separated by spaces.
func validHintWord(word string) bool {
	if strings.TrimSpace(word) == "" {
		return false
	}
	for _, r := range word {
		if !unicode.IsLetter(r) && r != ' ' {
			return false
		}
	}
	return true
}

// overlappingCard returns the first card content that contains word or is
// contained in it, compared case-folded. The empty string means no overlap.
func overlappingCard(word string, contents []string) string {
	fold := cases.Fold()
	w := fold.String(strings.TrimSpace(word))
	for _, c := range contents {
		fc := fold.String(c)
		if strings.Contains(fc, w) || strings.Contains(w, fc) {
			return c
		}
	}
	return ""
}

// ValidateName checks a display name: at least MinNameLength runes of
// letters, digits, spaces and -_'. in any script.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) < MinNameLength {
		return "", fmt.Errorf("%w: must be at least %d characters", ErrInvalidName, MinNameLength)
	}
	for _, r := range name {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == ' ':
		case strings.ContainsRune("-_'.", r):
		default:
			return "", fmt.Errorf("%w: unexpected character %q", ErrInvalidName, r)
		}
	}
	return name, nil
}
