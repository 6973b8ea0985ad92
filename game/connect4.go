package game

import "strings"

const (
	c4Rows = 6
	c4Cols = 7
)

// Connect4 is the standard 6x7 game. Actions are column indexes; a played
// disc falls to the lowest free row of its column.
type Connect4 struct{}

func (Connect4) Name() string     { return "connect4" }
func (Connect4) ActionSize() int  { return c4Cols }
func (Connect4) EncodedSize() int { return 3 * c4Rows * c4Cols }

func (Connect4) Initial() State {
	return &c4State{player: PlayerA}
}

// c4State indexes cells row-major with row 0 at the bottom.
type c4State struct {
	cells  [c4Rows * c4Cols]Player
	player Player
	winner Player
	filled int8
}

func (s *c4State) Player() Player { return s.player }

func (s *c4State) Terminal() bool {
	return s.winner != NoPlayer || int(s.filled) == len(s.cells)
}

func (s *c4State) LegalActions() []Action {
	if s.Terminal() {
		return nil
	}
	actions := make([]Action, 0, c4Cols)
	for col := 0; col < c4Cols; col++ {
		if s.cells[(c4Rows-1)*c4Cols+col] == NoPlayer {
			actions = append(actions, Action(col))
		}
	}
	return actions
}

func (s *c4State) Apply(a Action) (State, error) {
	if a < 0 || int(a) >= c4Cols || s.Terminal() {
		return nil, ErrInvalidAction
	}
	row := -1
	for r := 0; r < c4Rows; r++ {
		if s.cells[r*c4Cols+int(a)] == NoPlayer {
			row = r
			break
		}
	}
	if row < 0 {
		return nil, ErrInvalidAction
	}
	next := *s
	next.cells[row*c4Cols+int(a)] = s.player
	next.filled++
	if next.connects(row, int(a), s.player) {
		next.winner = s.player
	}
	next.player = s.player.Other()
	return &next, nil
}

// connects reports whether the disc just placed at (row, col) completes a
// run of four for p.
func (s *c4State) connects(row, col int, p Player) bool {
	dirs := [4][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}}
	for _, d := range dirs {
		run := 1
		for _, sign := range [2]int{1, -1} {
			r, c := row+sign*d[0], col+sign*d[1]
			for r >= 0 && r < c4Rows && c >= 0 && c < c4Cols && s.cells[r*c4Cols+c] == p {
				run++
				r += sign * d[0]
				c += sign * d[1]
			}
		}
		if run >= 4 {
			return true
		}
	}
	return false
}

func (s *c4State) Outcome(p Player) float32 {
	switch s.winner {
	case p:
		return 1
	case p.Other():
		return -1
	}
	return 0
}

func (s *c4State) Encode() []float32 {
	n := c4Rows * c4Cols
	out := make([]float32, 3*n)
	for i, c := range s.cells {
		switch c {
		case s.player:
			out[i] = 1
		case s.player.Other():
			out[n+i] = 1
		}
	}
	if s.player == PlayerA {
		for i := 2 * n; i < 3*n; i++ {
			out[i] = 1
		}
	}
	return out
}

func (s *c4State) String() string {
	symbols := map[Player]byte{PlayerA: 'X', PlayerB: 'O', NoPlayer: '.'}
	var sb strings.Builder
	for row := c4Rows - 1; row >= 0; row-- {
		for col := 0; col < c4Cols; col++ {
			sb.WriteByte(symbols[s.cells[row*c4Cols+col]])
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
