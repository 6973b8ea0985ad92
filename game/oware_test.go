package game

import (
	"errors"
	"testing"
)

func TestOwareInitial(t *testing.T) {
	s := Oware{}.Initial()
	if s.Terminal() {
		t.Fatal("fresh board should not be terminal")
	}
	if got := len(s.LegalActions()); got != 6 {
		t.Fatalf("expected 6 legal actions, got %d", got)
	}
}

func TestOwareSowing(t *testing.T) {
	s := playout(t, Oware{}.Initial(), 2)
	ow := s.(*owareState)
	if ow.pits[2] != 0 {
		t.Fatalf("origin pit should be emptied:\n%s", s)
	}
	for _, pit := range []int{3, 4, 5, 6} {
		if ow.pits[pit] != 5 {
			t.Fatalf("pit %d = %d, want 5:\n%s", pit, ow.pits[pit], s)
		}
	}
	if ow.Player() != PlayerB {
		t.Fatalf("turn should pass to B, got %s", ow.Player())
	}
}

func TestOwareLongLapSkipsOrigin(t *testing.T) {
	s := &owareState{player: PlayerA}
	s.pits[0] = 12
	s.pits[6] = 4 // keep the opponent fed
	next := playout(t, s, 0)
	ow := next.(*owareState)
	if ow.pits[0] != 0 {
		t.Fatalf("origin must stay empty on a full lap, got %d", ow.pits[0])
	}
	if ow.pits[1] != 2 {
		t.Fatalf("pit 1 should receive the lap's extra seed, got %d", ow.pits[1])
	}
}

func TestOwareCapture(t *testing.T) {
	s := &owareState{player: PlayerA}
	s.pits[5] = 1
	s.pits[6] = 1
	s.pits[7] = 4
	next := playout(t, s, 5)
	ow := next.(*owareState)
	if ow.scoreA != 2 {
		t.Fatalf("scoreA = %d, want 2 after capturing pit 6:\n%s", ow.scoreA, next)
	}
	if ow.pits[6] != 0 {
		t.Fatalf("captured pit should be empty, got %d", ow.pits[6])
	}
}

func TestOwareChainCapture(t *testing.T) {
	s := &owareState{player: PlayerA}
	s.pits[5] = 2
	s.pits[6] = 1
	s.pits[7] = 2
	s.pits[8] = 4
	// Sowing 2 seeds from pit 5 lands in pit 7: pit 7 -> 3, pit 6 -> 2,
	// both captured walking backwards.
	next := playout(t, s, 5)
	ow := next.(*owareState)
	if ow.scoreA != 5 {
		t.Fatalf("scoreA = %d, want 5 from chain capture:\n%s", ow.scoreA, next)
	}
}

func TestOwareGrandSlamForfeited(t *testing.T) {
	s := &owareState{player: PlayerA}
	s.pits[0] = 4
	s.pits[5] = 1
	s.pits[6] = 1
	next := playout(t, s, 5)
	ow := next.(*owareState)
	if ow.scoreA != 0 {
		t.Fatalf("grand slam must forfeit the capture, scoreA = %d", ow.scoreA)
	}
	if ow.pits[6] != 2 {
		t.Fatalf("seeds must stay on the board after a forfeited capture, pit 6 = %d", ow.pits[6])
	}
}

func TestOwareMustFeed(t *testing.T) {
	s := &owareState{player: PlayerA}
	s.pits[0] = 1 // reaches only pit 1, does not feed
	s.pits[5] = 2 // reaches pits 6 and 7, feeds
	actions := s.LegalActions()
	if len(actions) != 1 || actions[0] != 5 {
		t.Fatalf("only the feeding move should be legal, got %v", actions)
	}
}

func TestOwareInvalidAction(t *testing.T) {
	// A empties pit 0, B empties pit 6; pit 0 is then not playable for A.
	s := playout(t, Oware{}.Initial(), 0, 0)
	if _, err := s.Apply(0); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("empty pit: err = %v, want ErrInvalidAction", err)
	}
	if _, err := s.Apply(Action(-1)); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("negative action: err = %v, want ErrInvalidAction", err)
	}
}

func TestOwareScoreWin(t *testing.T) {
	s := &owareState{player: PlayerA, scoreA: 25, scoreB: 10}
	if !s.Terminal() {
		t.Fatal("25 captured seeds should end the game")
	}
	if s.Outcome(PlayerA) != 1 || s.Outcome(PlayerB) != -1 {
		t.Fatalf("outcome = %v/%v, want 1/-1", s.Outcome(PlayerA), s.Outcome(PlayerB))
	}
}

func TestOwarePlyCapAdjudication(t *testing.T) {
	s := &owareState{player: PlayerA, ply: owareMaxPlies, scoreA: 10, scoreB: 10}
	s.pits[0] = 5 // A's side outweighs B's
	s.pits[6] = 2
	if !s.Terminal() {
		t.Fatal("ply cap should end the game")
	}
	if s.Outcome(PlayerA) != 1 {
		t.Fatalf("adjudication should favor A, got %v", s.Outcome(PlayerA))
	}
}

func TestOwareEncode(t *testing.T) {
	s := Oware{}.Initial()
	enc := s.Encode()
	if len(enc) != (Oware{}).EncodedSize() {
		t.Fatalf("encoding length %d, want %d", len(enc), (Oware{}).EncodedSize())
	}
}
