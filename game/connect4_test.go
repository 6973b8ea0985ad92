package game

import (
	"errors"
	"testing"
)

func TestConnect4Gravity(t *testing.T) {
	s := playout(t, Connect4{}.Initial(), 3, 3)
	c4 := s.(*c4State)
	if c4.cells[0*c4Cols+3] != PlayerA {
		t.Fatalf("first disc should rest on the bottom row:\n%s", s)
	}
	if c4.cells[1*c4Cols+3] != PlayerB {
		t.Fatalf("second disc should stack on top:\n%s", s)
	}
}

func TestConnect4VerticalWin(t *testing.T) {
	s := playout(t, Connect4{}.Initial(), 0, 1, 0, 1, 0, 1, 0)
	if !s.Terminal() || s.Outcome(PlayerA) != 1 {
		t.Fatalf("expected vertical win for A:\n%s", s)
	}
}

func TestConnect4HorizontalWin(t *testing.T) {
	s := playout(t, Connect4{}.Initial(), 0, 0, 1, 1, 2, 2, 3)
	if !s.Terminal() || s.Outcome(PlayerA) != 1 {
		t.Fatalf("expected horizontal win for A:\n%s", s)
	}
}

func TestConnect4DiagonalWin(t *testing.T) {
	// Builds an ascending diagonal for A at columns 0..3.
	s := playout(t, Connect4{}.Initial(), 0, 1, 1, 2, 2, 3, 2, 3, 3, 6, 3)
	if !s.Terminal() || s.Outcome(PlayerA) != 1 {
		t.Fatalf("expected diagonal win for A:\n%s", s)
	}
}

func TestConnect4FullColumnIllegal(t *testing.T) {
	s := Connect4{}.Initial()
	for i := 0; i < c4Rows; i++ {
		s = playout(t, s, 5)
	}
	for _, a := range s.LegalActions() {
		if a == 5 {
			t.Fatalf("full column still listed as legal:\n%s", s)
		}
	}
	if _, err := s.Apply(5); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("dropping into a full column: err = %v, want ErrInvalidAction", err)
	}
}

func TestConnect4Encode(t *testing.T) {
	s := Connect4{}.Initial()
	if got := len(s.Encode()); got != (Connect4{}).EncodedSize() {
		t.Fatalf("encoding length %d, want %d", got, (Connect4{}).EncodedSize())
	}
}
