package domain

// Cell represents a board cell state.
type Cell uint8

const (
	Empty Cell = iota
	X
	O
)

func (c Cell) String() string {
	switch c {
	case X:
		return "X"
	case O:
		return "O"
	default:
		return ""
	}
}

// Board is a fixed 3x3 board stored row-major.
type Board [9]Cell

// Full reports whether no empty cell is left.
func (b Board) Full() bool {
	for _, c := range b {
		if c == Empty {
			return false
		}
	}
	return true
}

// Position is the (row, col) a move was played at.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// PositionOf converts a row-major cell index to its position.
func PositionOf(idx int) Position {
	return Position{Row: idx / 3, Col: idx % 3}
}

// Result is the outcome of Detect. Line is nil when there is no winner.
type Result struct {
	Winner Cell
	Line   []int
}

var lines = [8][3]int{
	// rows
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	// cols
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	// diags
	{0, 4, 8}, {2, 4, 6},
}

// Detect returns the first completed line in rows, columns, diagonals order.
func Detect(b Board) Result {
	for _, ln := range lines {
		c := b[ln[0]]
		if c != Empty && c == b[ln[1]] && c == b[ln[2]] {
			return Result{Winner: c, Line: []int{ln[0], ln[1], ln[2]}}
		}
	}
	return Result{Winner: Empty}
}
