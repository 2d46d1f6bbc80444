package domain

import (
	"errors"

	"github.com/jaminalder/tic-tac-toe-history/internal/ordinal"
)

// Cells on the board; also the step at which the board is full.
const Cells = 9

// Errors returned by domain operations.
var (
	ErrOutOfBounds    = errors.New("out of bounds")
	ErrStepOutOfRange = errors.New("step out of range")
)

// Outcome is the derived state of the displayed board.
type Outcome uint8

const (
	InProgress Outcome = iota
	Won
	Tied
)

func (o Outcome) String() string {
	switch o {
	case Won:
		return "won"
	case Tied:
		return "tied"
	default:
		return "in progress"
	}
}

// Game is an immutable value: the move history and the step on display.
// Transitions return a new Game; stored boards are never written to.
type Game struct {
	history []Board
	step    int
}

// New returns a game holding only the empty starting board, X to move.
func New() Game {
	return Game{history: []Board{{}}}
}

// Step is the index of the board on display.
func (g Game) Step() int { return g.step }

// Len is the number of boards in the history, the starting board included.
func (g Game) Len() int { return len(g.history) }

// Current returns the board on display.
func (g Game) Current() Board {
	if len(g.history) == 0 {
		return Board{}
	}
	return g.history[g.step]
}

// History returns a copy of every board recorded so far.
func (g Game) History() []Board {
	if len(g.history) == 0 {
		return []Board{{}}
	}
	out := make([]Board, len(g.history))
	copy(out, g.history)
	return out
}

// NextPlayer is X on even steps and O on odd ones.
func (g Game) NextPlayer() Cell {
	if g.step%2 == 0 {
		return X
	}
	return O
}

// Winner returns the winning mark on the displayed board, or Empty.
func (g Game) Winner() Cell {
	return CalculateWinner(g.Current())
}

// Outcome derives InProgress, Won or Tied from the displayed board and step.
func (g Game) Outcome() Outcome {
	switch {
	case g.Winner() != Empty:
		return Won
	case g.step == Cells && g.Current().Full():
		return Tied
	default:
		return InProgress
	}
}

// Status is the line of text shown above the board.
func (g Game) Status() string {
	switch g.Outcome() {
	case Won:
		return "Winner: " + g.Winner().String()
	case Tied:
		return "Tie"
	default:
		return "Next player: " + g.NextPlayer().String()
	}
}

// Play marks cell (0..8) for the next player. Playing an occupied cell or
// playing once the displayed board has a winner returns g unchanged.
// Any boards after the displayed step are discarded before the new board
// is appended.
func (g Game) Play(cell int) (Game, error) {
	if cell < 0 || cell >= Cells {
		return g, ErrOutOfBounds
	}
	if len(g.history) == 0 {
		g = New()
	}
	board := g.history[g.step]
	if CalculateWinner(board) != Empty || board[cell] != Empty {
		return g, nil
	}
	board[cell] = g.NextPlayer()

	history := make([]Board, g.step+1, g.step+2)
	copy(history, g.history[:g.step+1])
	history = append(history, board)
	return Game{history: history, step: len(history) - 1}, nil
}

// JumpTo displays the board at step without touching the history.
func (g Game) JumpTo(step int) (Game, error) {
	if len(g.history) == 0 {
		g = New()
	}
	if step < 0 || step >= len(g.history) {
		return g, ErrStepOutOfRange
	}
	return Game{history: g.history, step: step}, nil
}

// Move is an entry of the history browser.
type Move struct {
	Step    int    `json:"step"`
	Label   string `json:"label"`
	Current bool   `json:"current"`
}

// MoveLabel returns "Start" for step 0 and "<ordinal> move" otherwise.
func MoveLabel(step int) string {
	if step == 0 {
		return "Start"
	}
	return ordinal.Format(step) + " move"
}

// Moves lists one jump target per recorded board.
func (g Game) Moves() []Move {
	n := g.Len()
	if n == 0 {
		n = 1
	}
	moves := make([]Move, n)
	for i := range moves {
		moves[i] = Move{Step: i, Label: MoveLabel(i), Current: i == g.step}
	}
	return moves
}
