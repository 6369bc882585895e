package domain

import "fmt"

// Entry is one board snapshot and the position played to reach it.
type Entry struct {
	Board    Board    `json:"board"`
	Position Position `json:"position"`
}

// History is an append-only list of entries. Entries are stored and
// returned by value, so nothing handed out can alter them.
type History struct {
	entries []Entry
}

// NewHistory returns a history holding only the empty starting board.
// The start entry carries the (0,0) placeholder position.
func NewHistory() *History {
	return &History{entries: []Entry{{}}}
}

// Append adds an entry to the end.
func (h *History) Append(b Board, p Position) {
	h.entries = append(h.entries, Entry{Board: b, Position: p})
}

// EntryAt returns the entry at i.
func (h *History) EntryAt(i int) (Entry, error) {
	if i < 0 || i >= len(h.entries) {
		return Entry{}, fmt.Errorf("history entry %d of %d: %w", i, len(h.entries), ErrOutOfRange)
	}
	return h.entries[i], nil
}

// Len returns the number of entries.
func (h *History) Len() int {
	return len(h.entries)
}

func (h *History) all() []Entry {
	return append([]Entry(nil), h.entries...)
}
