// Package progress persists an exam taker's in-flight state — chosen answers,
// bookmarked questions, and current position — per (actor, exam) key, so a
// sitting survives reloads and resumes where it left off.
package progress

import (
	"sort"
	"strings"
)

// State is the full in-progress record for one sitting. Every save writes the
// whole document, so last-write-wins can never corrupt partial fields.
type State struct {
	// Answers maps 1-based question position to the chosen option id.
	// Sparse; unanswered positions are absent.
	Answers map[int]string `json:"answers,omitempty"`
	// Bookmarked holds flagged question positions, kept sorted.
	Bookmarked []int `json:"bookmarked,omitempty"`
	// CurrentIndex is the 0-based index of the question on screen.
	CurrentIndex int `json:"current_index"`
}

// NewState returns an empty sitting state.
func NewState() State {
	return State{Answers: make(map[int]string)}
}

// IsEmpty reports whether the state records no progress at all. An empty
// record loaded from storage is indistinguishable from no record.
func (s *State) IsEmpty() bool {
	return len(s.Answers) == 0 && len(s.Bookmarked) == 0 && s.CurrentIndex == 0
}

// SelectAnswer records the chosen option for a question position,
// overwriting any prior choice. Single-select only.
func (s *State) SelectAnswer(position int, optionID string) {
	if s.Answers == nil {
		s.Answers = make(map[int]string)
	}
	s.Answers[position] = optionID
}

// ToggleBookmark flips membership of a question position in the bookmark set.
func (s *State) ToggleBookmark(position int) {
	for i, p := range s.Bookmarked {
		if p == position {
			s.Bookmarked = append(s.Bookmarked[:i], s.Bookmarked[i+1:]...)
			return
		}
	}
	s.Bookmarked = append(s.Bookmarked, position)
	sort.Ints(s.Bookmarked)
}

// IsBookmarked reports whether a question position is bookmarked.
func (s *State) IsBookmarked(position int) bool {
	for _, p := range s.Bookmarked {
		if p == position {
			return true
		}
	}
	return false
}

// Navigate moves the current position, clamped to [0, lastIndex]. It never
// navigates outside the question list.
func (s *State) Navigate(index, lastIndex int) {
	if index < 0 {
		index = 0
	}
	if index > lastIndex {
		index = lastIndex
	}
	if lastIndex < 0 {
		index = 0
	}
	s.CurrentIndex = index
}

// Slug derives a stable key fragment from an exam's display title: lowercase,
// alphanumerics kept, everything else collapsed to single dashes.
func Slug(title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
