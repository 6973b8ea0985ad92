// Package game defines the contract between the search core and concrete
// two-player zero-sum perfect-information games.
//
// States are immutable values: Apply returns a fresh State and never mutates
// the receiver. This is what makes them safe to hang off search tree nodes
// that are traversed concurrently.
package game

import (
	"errors"
	"fmt"
)

// ErrInvalidAction reports an action that is not legal in the state it was
// applied to. It indicates a programming error in the caller or in search
// bookkeeping, never a recoverable condition.
var ErrInvalidAction = errors.New("invalid action")

// Player identifies a side. PlayerA always moves first.
type Player int8

const (
	NoPlayer Player = 0
	PlayerA  Player = 1
	PlayerB  Player = -1
)

// Other returns the opposing player.
func (p Player) Other() Player { return -p }

func (p Player) String() string {
	switch p {
	case PlayerA:
		return "A"
	case PlayerB:
		return "B"
	}
	return "-"
}

// Action indexes into a game's fixed action space [0, ActionSize).
type Action int

// State is one immutable position.
type State interface {
	// Player is the player to move. Undefined on terminal states.
	Player() Player

	// LegalActions returns the legal action indexes in ascending order.
	// Empty if and only if the state is terminal.
	LegalActions() []Action

	// Apply plays an action and returns the resulting position.
	// Returns ErrInvalidAction if the action is not legal here.
	Apply(Action) (State, error)

	// Terminal reports whether the game is over.
	Terminal() bool

	// Outcome scores a finished game from p's perspective:
	// +1 win, -1 loss, 0 draw. Only defined when Terminal is true.
	Outcome(p Player) float32

	// Encode produces the fixed-shape numeric representation consumed by
	// evaluators. Its length equals the variant's EncodedSize.
	Encode() []float32

	// String renders the position for logs and tests.
	String() string
}

// Game describes one variant and creates its initial position.
type Game interface {
	Name() string
	ActionSize() int
	EncodedSize() int
	Initial() State
}

// ByName resolves a variant by its Name, for flag parsing in binaries.
func ByName(name string) (Game, error) {
	for _, g := range []Game{TicTacToe{}, Connect4{}, Oware{}} {
		if g.Name() == name {
			return g, nil
		}
	}
	return nil, fmt.Errorf("unknown game %q", name)
}
