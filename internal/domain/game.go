package domain

import (
	"errors"
	"fmt"
)

// Errors returned by domain operations.
var (
	ErrOutOfRange      = errors.New("out of range")
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// State is the phase of the displayed board.
type State uint8

const (
	InProgress State = iota
	Won
	Draw
)

func (s State) String() string {
	switch s {
	case Won:
		return "won"
	case Draw:
		return "draw"
	default:
		return "in progress"
	}
}

// Move describes one entry of the move list.
type Move struct {
	Step  int
	Label string
}

// Controller holds a game with its full move history. X moves on even
// steps and O on odd ones; the turn is never stored separately.
type Controller struct {
	history   *History
	step      int
	ascending bool
}

// New returns a controller at the start of a game, listing moves ascending.
func New() *Controller {
	return &Controller{history: NewHistory(), ascending: true}
}

// PlayAt plays the next mark at cell idx (0..8) on the displayed board.
// Moves on an occupied cell or after a win are ignored and report false.
// A move played after jumping back is appended after all existing entries.
func (c *Controller) PlayAt(idx int) (bool, error) {
	if idx < 0 || idx > 8 {
		return false, fmt.Errorf("cell %d: %w", idx, ErrOutOfRange)
	}
	b := c.CurrentBoard()
	if Detect(b).Winner != Empty || b[idx] != Empty {
		return false, nil
	}
	b[idx] = c.Next()
	c.history.Append(b, PositionOf(idx))
	c.step = c.history.Len() - 1
	return true, nil
}

// JumpTo displays the board at step without touching the history.
func (c *Controller) JumpTo(step int) error {
	if step < 0 || step >= c.history.Len() {
		return fmt.Errorf("jump to step %d: %w", step, ErrOutOfRange)
	}
	c.step = step
	return nil
}

// ToggleOrder flips the move list order.
func (c *Controller) ToggleOrder() {
	c.ascending = !c.ascending
}

// CurrentBoard returns a copy of the displayed board.
func (c *Controller) CurrentBoard() Board {
	return c.history.entries[c.step].Board
}

// Next returns the mark to be played on the displayed board.
func (c *Controller) Next() Cell {
	if c.step%2 == 0 {
		return X
	}
	return O
}

// Step returns the index of the displayed entry.
func (c *Controller) Step() int { return c.step }

// Ascending reports whether the move list is in ascending order.
func (c *Controller) Ascending() bool { return c.ascending }

// Len returns the history length.
func (c *Controller) Len() int { return c.history.Len() }

// EntryAt returns the history entry at i.
func (c *Controller) EntryAt(i int) (Entry, error) { return c.history.EntryAt(i) }

// WinningLine returns the completed triple on the displayed board, if any.
func (c *Controller) WinningLine() []int {
	return Detect(c.CurrentBoard()).Line
}

// State returns the phase of the displayed board.
func (c *Controller) State() State {
	b := c.CurrentBoard()
	switch {
	case Detect(b).Winner != Empty:
		return Won
	case b.Full():
		return Draw
	default:
		return InProgress
	}
}

// Status returns the status line for the displayed board.
func (c *Controller) Status() string {
	b := c.CurrentBoard()
	if w := Detect(b).Winner; w != Empty {
		return "Winner: " + w.String()
	}
	if !b.Full() {
		return "Next player: " + c.Next().String()
	}
	return "The game ended in a draw."
}

// MoveList returns one jump target per history entry in display order.
func (c *Controller) MoveList() []Move {
	n := c.history.Len()
	out := make([]Move, 0, n)
	for i := 0; i < n; i++ {
		m := i
		if !c.ascending {
			m = n - 1 - i
		}
		out = append(out, Move{Step: m, Label: moveLabel(m, c.history.entries[m].Position)})
	}
	return out
}

func moveLabel(step int, p Position) string {
	if step == 0 {
		return "Go to game start"
	}
	return fmt.Sprintf("Go to move #%d (%d, %d)", step, p.Row, p.Col)
}

// Snapshot is the serializable form of a controller.
type Snapshot struct {
	Entries   []Entry `json:"entries"`
	Step      int     `json:"step"`
	Ascending bool    `json:"ascending"`
}

// Snapshot returns a deep copy of the controller state.
func (c *Controller) Snapshot() Snapshot {
	return Snapshot{Entries: c.history.all(), Step: c.step, Ascending: c.ascending}
}

// Restore rebuilds a controller from a snapshot.
func Restore(s Snapshot) (*Controller, error) {
	if len(s.Entries) == 0 {
		return nil, fmt.Errorf("no entries: %w", ErrInvalidSnapshot)
	}
	if s.Step < 0 || s.Step >= len(s.Entries) {
		return nil, fmt.Errorf("step %d of %d entries: %w", s.Step, len(s.Entries), ErrInvalidSnapshot)
	}
	for i, e := range s.Entries {
		for j, cell := range e.Board {
			if cell > O {
				return nil, fmt.Errorf("entry %d cell %d holds %d: %w", i, j, cell, ErrInvalidSnapshot)
			}
		}
	}
	return &Controller{
		history:   &History{entries: append([]Entry(nil), s.Entries...)},
		step:      s.Step,
		ascending: s.Ascending,
	}, nil
}
