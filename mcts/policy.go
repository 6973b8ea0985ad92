package mcts

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/brensch/zeromax/game"
)

// Policy normalizes the root visit counts into a probability distribution
// over the action space. All zeros if no simulations completed.
func (r *Result) Policy() []float32 {
	out := make([]float32, len(r.Visits))
	total := 0
	for _, n := range r.Visits {
		total += n
	}
	if total == 0 {
		return out
	}
	for i, n := range r.Visits {
		out[i] = float32(n) / float32(total)
	}
	return out
}

// Best returns the most visited root action, lowest index on ties.
func (r *Result) Best() game.Action {
	best, bestN := game.Action(-1), -1
	for a, n := range r.Visits {
		if n > bestN {
			best, bestN = game.Action(a), n
		}
	}
	return best
}

// Sample draws a root action with probability proportional to N^(1/tau).
// Temperature 0 degenerates to Best; negative temperatures are rejected.
func (r *Result) Sample(rng *rand.Rand, tau float64) (game.Action, error) {
	if tau < 0 {
		return -1, fmt.Errorf("temperature %v: %w", tau, ErrInvalidConfig)
	}
	if tau == 0 {
		return r.Best(), nil
	}

	weights := make([]float64, len(r.Visits))
	total := 0.0
	for a, n := range r.Visits {
		if n == 0 {
			continue
		}
		w := math.Pow(float64(n), 1/tau)
		if math.IsInf(w, 1) {
			// tau small enough to overflow the weights is
			// indistinguishable from the tau->0 limit.
			return r.Best(), nil
		}
		weights[a] = w
		total += w
	}
	if total == 0 {
		return r.Best(), nil
	}

	target := rng.Float64() * total
	acc := 0.0
	last := game.Action(-1)
	for a, w := range weights {
		if w == 0 {
			continue
		}
		acc += w
		last = game.Action(a)
		if target < acc {
			return last, nil
		}
	}
	return last, nil // floating point slack lands on the final visited action
}

// TemperatureSchedule is the standard self-play schedule: sample with
// temperature Tau for the first Moves plies, then play greedily.
type TemperatureSchedule struct {
	Moves int
	Tau   float64
}

// At returns the temperature for the given ply (0-based).
func (s TemperatureSchedule) At(ply int) float64 {
	if ply < s.Moves {
		return s.Tau
	}
	return 0
}
