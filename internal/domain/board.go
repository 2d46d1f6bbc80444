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

// MarshalText renders the cell as "", "X" or "O".
func (c Cell) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Board is a fixed 3x3 board stored row-major: index i is row i/3, column i%3.
type Board [9]Cell

// Line is an index triple that wins the game when uniformly marked.
type Line [3]int

// Lines in the order they are checked.
var Lines = [8]Line{
	// rows
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	// cols
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	// diags
	{0, 4, 8}, {2, 4, 6},
}

// WinningLine returns the first line whose three cells hold the same mark.
func WinningLine(b Board) (Line, bool) {
	for _, ln := range Lines {
		if a := b[ln[0]]; a != Empty && a == b[ln[1]] && a == b[ln[2]] {
			return ln, true
		}
	}
	return Line{}, false
}

// CalculateWinner returns the mark of the first completed line, or Empty.
// Empty is returned both for a game in progress and for a tie.
func CalculateWinner(b Board) Cell {
	ln, ok := WinningLine(b)
	if !ok {
		return Empty
	}
	return b[ln[0]]
}

// Full reports whether no Empty cell is left.
func (b Board) Full() bool {
	for _, c := range b {
		if c == Empty {
			return false
		}
	}
	return true
}
