// Package nn defines the evaluator contract the search core depends on and
// provides the ONNX Runtime implementation used for trained models.
package nn

import (
	"errors"
	"fmt"
	"math"

	"github.com/brensch/zeromax/game"
)

// ErrEvaluation reports a malformed evaluator result: wrong policy support,
// NaN or negative entries, or an out-of-range value. A search receiving it
// aborts rather than risking corrupted tree statistics.
var ErrEvaluation = errors.New("evaluation error")

// Evaluator maps a position to a policy over the full action space and a
// scalar value in [-1, 1] from the perspective of the player to move.
// Implementations must be deterministic for fixed weights and safe for
// concurrent calls.
type Evaluator interface {
	Evaluate(state game.State) (policy []float32, value float32, err error)
}

// Validate checks an evaluator result against the contract.
func Validate(policy []float32, value float32, actionSize int) error {
	if len(policy) != actionSize {
		return fmt.Errorf("policy has %d entries, want %d: %w", len(policy), actionSize, ErrEvaluation)
	}
	for i, p := range policy {
		if p < 0 || math.IsNaN(float64(p)) || math.IsInf(float64(p), 0) {
			return fmt.Errorf("policy[%d] = %v: %w", i, p, ErrEvaluation)
		}
	}
	if value < -1 || value > 1 || math.IsNaN(float64(value)) {
		return fmt.Errorf("value %v outside [-1, 1]: %w", value, ErrEvaluation)
	}
	return nil
}

// Uniform is the weightless evaluator: a flat policy and a zero value.
// Useful for bootstrapping self-play before any model exists and as a test
// double.
type Uniform struct {
	Actions int
}

func (u Uniform) Evaluate(game.State) ([]float32, float32, error) {
	policy := make([]float32, u.Actions)
	for i := range policy {
		policy[i] = 1 / float32(u.Actions)
	}
	return policy, 0, nil
}
