package domain

// Snapshot is everything the presentation needs to draw one state.
type Snapshot struct {
	Board       Board  `json:"board"`
	Step        int    `json:"step"`
	Status      string `json:"status"`
	Outcome     string `json:"outcome"`
	Winner      Cell   `json:"winner"`
	WinningLine []int  `json:"winning_line,omitempty"`
	NextPlayer  Cell   `json:"next_player"`
	Moves       []Move `json:"moves"`
}

// Snapshot derives the view of g.
func (g Game) Snapshot() Snapshot {
	b := g.Current()
	s := Snapshot{
		Board:      b,
		Step:       g.step,
		Status:     g.Status(),
		Outcome:    g.Outcome().String(),
		Winner:     CalculateWinner(b),
		NextPlayer: g.NextPlayer(),
		Moves:      g.Moves(),
	}
	if ln, ok := WinningLine(b); ok {
		s.WinningLine = ln[:]
	}
	return s
}

// OnWinningLine reports whether cell belongs to the completed line.
func (s Snapshot) OnWinningLine(cell int) bool {
	for _, i := range s.WinningLine {
		if i == cell {
			return true
		}
	}
	return false
}
