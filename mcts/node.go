// Package mcts implements PUCT Monte Carlo Tree Search guided by a learned
// policy/value evaluator.
//
// A tree is private to one Search call and is released when the call
// returns; there is no transposition merging and no cross-move reuse.
package mcts

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/brensch/zeromax/game"
)

// Node is one position reached during search.
//
// value accumulates from the perspective of the player to move at this node.
// vloss counts in-flight simulations traversing the node; it penalizes the
// node during selection only and never leaks into final statistics.
type Node struct {
	mu sync.Mutex

	state    game.State
	player   game.Player
	action   game.Action // edge from parent; -1 at the root
	parent   *Node
	children []*Node // indexed by action, nil where illegal

	prior    float32
	visits   int
	value    float64
	vloss    int
	expanded bool
	terminal bool
}

func newNode(state game.State, parent *Node, action game.Action, prior float32) *Node {
	return &Node{
		state:    state,
		player:   state.Player(),
		action:   action,
		parent:   parent,
		prior:    prior,
		terminal: state.Terminal(),
	}
}

// Visits returns the node's completed simulation count.
func (n *Node) Visits() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.visits
}

// Q is the mean value from the perspective of the player to move at the
// node, 0 before the first visit.
func (n *Node) Q() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.visits == 0 {
		return 0
	}
	return n.value / float64(n.visits)
}

// expand populates one child per legal action, with the evaluator policy
// restricted to legal actions and renormalized. Must only be called once.
func (n *Node) expand(policy []float32, actionSize int) error {
	legal := n.state.LegalActions()
	if len(legal) == 0 {
		return fmt.Errorf("expand terminal node: %w", game.ErrInvalidAction)
	}
	var mass float32
	for _, a := range legal {
		mass += policy[a]
	}
	n.children = make([]*Node, actionSize)
	for _, a := range legal {
		p := policy[a]
		if mass > 0 {
			p /= mass
		} else {
			p = 1 / float32(len(legal)) // degenerate policy: fall back to uniform
		}
		next, err := n.state.Apply(a)
		if err != nil {
			return err
		}
		n.children[a] = newNode(next, n, a, p)
	}
	n.expanded = true
	return nil
}

// mixNoise blends Dirichlet noise into the children priors:
// P' = (1-eps)*P + eps*noise. noise must be indexed like the legal actions
// in ascending order and sum to 1.
func (n *Node) mixNoise(noise []float64, eps float64) {
	i := 0
	for _, c := range n.children {
		if c == nil {
			continue
		}
		c.prior = float32((1-eps)*float64(c.prior) + eps*noise[i])
		i++
	}
}

// selectChild picks the child maximizing the PUCT score
//
//	U(a) = Q(a) + cPuct * P(a) * sqrt(N) / (1 + N(a))
//
// where Q(a) is the child's mean value seen from this node's player and N
// counts this node's visits. In-flight virtual losses inflate N(a) and drag
// Q(a) toward a loss so concurrent simulations spread out. Ties go to the
// lowest action index.
func (n *Node) selectChild(cPuct float64) *Node {
	sqrtN := math.Sqrt(float64(n.visits + n.vloss))
	if sqrtN == 0 {
		sqrtN = 1 // first pick from a fresh node is prior-driven
	}
	var best *Node
	bestScore := math.Inf(-1)
	for _, c := range n.children {
		if c == nil {
			continue
		}
		nEff := c.visits + c.vloss
		q := 0.0
		if nEff > 0 {
			w := -c.value // children alternate the player to move
			if c.player == n.player {
				w = c.value
			}
			q = (w - float64(c.vloss)) / float64(nEff)
		}
		u := q + cPuct*float64(c.prior)*sqrtN/(1+float64(nEff))
		if u > bestScore {
			bestScore = u
			best = c
		}
	}
	return best
}

func (n *Node) addVirtualLoss() {
	n.mu.Lock()
	n.vloss++
	n.mu.Unlock()
}

// record reverts the node's virtual loss and applies the true backup. v is
// the leaf value from leafPlayer's perspective; it is re-signed to this
// node's player so the (visits, value) pair always moves together.
func (n *Node) record(v float64, leafPlayer game.Player) {
	n.mu.Lock()
	n.vloss--
	n.visits++
	if n.player == leafPlayer {
		n.value += v
	} else {
		n.value -= v
	}
	n.mu.Unlock()
}

// Render formats the node's children statistics for debugging, most visited
// first.
func (n *Node) Render() string {
	type line struct {
		action game.Action
		visits int
		q      float64
		prior  float32
	}
	lines := make([]line, 0, len(n.children))
	for _, c := range n.children {
		if c == nil {
			continue
		}
		lines = append(lines, line{c.action, c.visits, c.Q(), c.prior})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].visits > lines[j].visits })
	var sb strings.Builder
	fmt.Fprintf(&sb, "node N=%d Q=%+.3f player=%s\n", n.visits, n.Q(), n.player)
	for _, l := range lines {
		fmt.Fprintf(&sb, "  a=%d N=%d Q=%+.3f P=%.3f\n", l.action, l.visits, l.q, l.prior)
	}
	return sb.String()
}
