package game

import (
	"fmt"
	"strings"
)

const (
	owarePits     = 12
	owareSide     = 6
	owareMaxPlies = 200
)

// Oware is a 2x6 mancala variant. Pits 0-5 belong to PlayerA, pits 6-11 to
// PlayerB, sown counterclockwise. Actions select the mover's pit (0-5 on
// their own side).
//
// House rules used here: the origin pit is skipped on laps of 12+ seeds,
// captures take trailing opponent pits of 2 or 3 seeds, a grand slam
// (capturing every opponent seed) forfeits the capture, and a player whose
// opponent is seedless may only play moves that feed them. Games stopped by
// starvation or the ply cap are adjudicated by adding each side's remaining
// seeds to its score.
type Oware struct{}

func (Oware) Name() string     { return "oware" }
func (Oware) ActionSize() int  { return owareSide }
func (Oware) EncodedSize() int { return owarePits + 2 }

func (Oware) Initial() State {
	s := &owareState{player: PlayerA}
	for i := range s.pits {
		s.pits[i] = 4
	}
	return s
}

type owareState struct {
	pits   [owarePits]int8
	scoreA int8
	scoreB int8
	player Player
	ply    int16
}

func (s *owareState) Player() Player { return s.player }

func (s *owareState) score(p Player) int8 {
	if p == PlayerA {
		return s.scoreA
	}
	return s.scoreB
}

// base returns the index of p's first pit.
func base(p Player) int {
	if p == PlayerA {
		return 0
	}
	return owareSide
}

func (s *owareState) sideSeeds(p Player) int {
	total := 0
	for i := base(p); i < base(p)+owareSide; i++ {
		total += int(s.pits[i])
	}
	return total
}

func (s *owareState) Terminal() bool {
	if s.scoreA > 24 || s.scoreB > 24 {
		return true
	}
	if s.ply >= owareMaxPlies {
		return true
	}
	return len(s.LegalActions()) == 0
}

func (s *owareState) LegalActions() []Action {
	if s.scoreA > 24 || s.scoreB > 24 || s.ply >= owareMaxPlies {
		return nil
	}
	mustFeed := s.sideSeeds(s.player.Other()) == 0
	actions := make([]Action, 0, owareSide)
	for a := 0; a < owareSide; a++ {
		pit := base(s.player) + a
		seeds := int(s.pits[pit])
		if seeds == 0 {
			continue
		}
		if mustFeed && !feeds(pit, seeds, s.player) {
			continue
		}
		actions = append(actions, Action(a))
	}
	return actions
}

// feeds reports whether sowing `seeds` from `pit` drops at least one seed on
// the opponent's side.
func feeds(pit, seeds int, p Player) bool {
	if seeds >= owarePits-1 {
		return true // a full lap always crosses
	}
	last := pit + seeds
	if p == PlayerA {
		return last >= owareSide
	}
	return last >= owarePits
}

func (s *owareState) Apply(a Action) (State, error) {
	legal := false
	for _, la := range s.LegalActions() {
		if la == a {
			legal = true
			break
		}
	}
	if !legal {
		return nil, ErrInvalidAction
	}

	next := *s
	origin := base(s.player) + int(a)
	seeds := int(next.pits[origin])
	next.pits[origin] = 0

	// Sow counterclockwise, skipping the origin on long laps.
	pos := origin
	for seeds > 0 {
		pos = (pos + 1) % owarePits
		if pos == origin {
			continue
		}
		next.pits[pos]++
		seeds--
	}

	// Capture trailing opponent pits of 2 or 3, walking backwards from the
	// last seed sown. Scan first, commit only if the capture is not a grand
	// slam (taking every opponent seed forfeits the capture).
	opp := s.player.Other()
	capStart, capEnd := base(opp), base(opp)+owareSide
	captured := int8(0)
	lastCap := -1
	for p := pos; p >= capStart && p < capEnd; p-- {
		if next.pits[p] != 2 && next.pits[p] != 3 {
			break
		}
		captured += next.pits[p]
		lastCap = p
	}
	if captured > 0 && int(captured) < next.sideSeeds(opp) {
		for p := lastCap; p <= pos; p++ {
			next.pits[p] = 0
		}
		if s.player == PlayerA {
			next.scoreA += captured
		} else {
			next.scoreB += captured
		}
	}

	next.player = s.player.Other()
	next.ply++
	return &next, nil
}

func (s *owareState) Outcome(p Player) float32 {
	scoreA, scoreB := int(s.scoreA), int(s.scoreB)
	if scoreA <= 24 && scoreB <= 24 {
		// Adjudicated finish: each side keeps its remaining seeds.
		scoreA += s.sideSeeds(PlayerA)
		scoreB += s.sideSeeds(PlayerB)
	}
	mine, theirs := scoreA, scoreB
	if p == PlayerB {
		mine, theirs = scoreB, scoreA
	}
	switch {
	case mine > theirs:
		return 1
	case mine < theirs:
		return -1
	}
	return 0
}

// Encode rotates the board so the mover's pits come first, scaled to [0,1].
func (s *owareState) Encode() []float32 {
	out := make([]float32, owarePits+2)
	b := base(s.player)
	for i := 0; i < owarePits; i++ {
		out[i] = float32(s.pits[(b+i)%owarePits]) / 24
	}
	out[owarePits] = float32(s.score(s.player)) / 48
	out[owarePits+1] = float32(s.score(s.player.Other())) / 48
	return out
}

func (s *owareState) String() string {
	var sb strings.Builder
	sb.WriteString("B: ")
	for i := owarePits - 1; i >= owareSide; i-- {
		fmt.Fprintf(&sb, "%2d ", s.pits[i])
	}
	fmt.Fprintf(&sb, "(score %d)\nA: ", s.scoreB)
	for i := 0; i < owareSide; i++ {
		fmt.Fprintf(&sb, "%2d ", s.pits[i])
	}
	fmt.Fprintf(&sb, "(score %d) to move: %s\n", s.scoreA, s.player)
	return sb.String()
}
