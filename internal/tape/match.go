package tape

import (
	"strings"

	"golang.org/x/text/cases"
)

// Matches reports whether t should be visible for the search term.
// An empty term matches everything. Otherwise the term must appear as a
// case-insensitive substring of the title or of the tape label.
func Matches(t Tape, term string) bool {
	if term == "" {
		return true
	}
	folder := cases.Fold()
	return matchFolded(folder, t, folder.String(term))
}

// Filter returns the tapes matching term, preserving their order.
// With an empty term the input slice is returned unchanged.
func Filter(tapes []Tape, term string) []Tape {
	if term == "" {
		return tapes
	}
	// A Caser must not be shared between goroutines.
	folder := cases.Fold()
	needle := folder.String(term)

	result := make([]Tape, 0, len(tapes))
	for _, t := range tapes {
		if matchFolded(folder, t, needle) {
			result = append(result, t)
		}
	}
	return result
}

// matchFolded checks both fields against an already case-folded needle.
func matchFolded(folder cases.Caser, t Tape, needle string) bool {
	return strings.Contains(folder.String(t.Title), needle) ||
		strings.Contains(folder.String(t.Tape), needle)
}
