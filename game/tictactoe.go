package game

import "strings"

// TicTacToe is the standard 3x3 game. Actions are cell indexes row*3+col,
// numbered from the top-left.
type TicTacToe struct{}

func (TicTacToe) Name() string     { return "tictactoe" }
func (TicTacToe) ActionSize() int  { return 9 }
func (TicTacToe) EncodedSize() int { return 27 }

func (TicTacToe) Initial() State {
	return &tttState{player: PlayerA}
}

type tttState struct {
	cells  [9]Player
	player Player
	winner Player
	filled int8
}

// tttLines are the eight winning triples.
var tttLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

func (s *tttState) Player() Player { return s.player }

func (s *tttState) Terminal() bool {
	return s.winner != NoPlayer || s.filled == 9
}

func (s *tttState) LegalActions() []Action {
	if s.Terminal() {
		return nil
	}
	actions := make([]Action, 0, 9-s.filled)
	for i, c := range s.cells {
		if c == NoPlayer {
			actions = append(actions, Action(i))
		}
	}
	return actions
}

func (s *tttState) Apply(a Action) (State, error) {
	if a < 0 || int(a) >= len(s.cells) || s.cells[a] != NoPlayer || s.Terminal() {
		return nil, ErrInvalidAction
	}
	next := *s
	next.cells[a] = s.player
	next.filled++
	for _, line := range tttLines {
		if next.cells[line[0]] == s.player && next.cells[line[1]] == s.player && next.cells[line[2]] == s.player {
			next.winner = s.player
			break
		}
	}
	next.player = s.player.Other()
	return &next, nil
}

func (s *tttState) Outcome(p Player) float32 {
	switch s.winner {
	case p:
		return 1
	case p.Other():
		return -1
	}
	return 0
}

// Encode emits three 3x3 planes: the mover's stones, the opponent's stones,
// and a full plane of 1s when PlayerA is to move.
func (s *tttState) Encode() []float32 {
	out := make([]float32, 27)
	for i, c := range s.cells {
		switch c {
		case s.player:
			out[i] = 1
		case s.player.Other():
			out[9+i] = 1
		}
	}
	if s.player == PlayerA {
		for i := 18; i < 27; i++ {
			out[i] = 1
		}
	}
	return out
}

func (s *tttState) String() string {
	symbols := map[Player]byte{PlayerA: 'X', PlayerB: 'O', NoPlayer: '.'}
	var sb strings.Builder
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			if col > 0 {
				sb.WriteByte('|')
			}
			sb.WriteByte(symbols[s.cells[row*3+col]])
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
