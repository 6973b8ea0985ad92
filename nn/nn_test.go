package nn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brensch/zeromax/game"
)

func TestValidate(t *testing.T) {
	nan := float32(math.NaN())

	t.Run("accepts a well formed result", func(t *testing.T) {
		require.NoError(t, Validate([]float32{0.5, 0.5, 0}, 0.25, 3))
	})

	t.Run("rejects wrong support", func(t *testing.T) {
		err := Validate([]float32{0.5, 0.5}, 0, 3)
		require.ErrorIs(t, err, ErrEvaluation)
	})

	t.Run("rejects negative entries", func(t *testing.T) {
		err := Validate([]float32{1.2, -0.2, 0}, 0, 3)
		require.ErrorIs(t, err, ErrEvaluation)
	})

	t.Run("rejects NaN entries", func(t *testing.T) {
		err := Validate([]float32{nan, 0.5, 0.5}, 0, 3)
		require.ErrorIs(t, err, ErrEvaluation)
	})

	t.Run("rejects out of range value", func(t *testing.T) {
		err := Validate([]float32{1, 0, 0}, 1.5, 3)
		require.ErrorIs(t, err, ErrEvaluation)
		err = Validate([]float32{1, 0, 0}, nan, 3)
		require.ErrorIs(t, err, ErrEvaluation)
	})
}

func TestUniform(t *testing.T) {
	u := Uniform{Actions: 9}
	policy, value, err := u.Evaluate(game.TicTacToe{}.Initial())
	require.NoError(t, err)
	require.NoError(t, Validate(policy, value, 9))
	require.Zero(t, value)

	var sum float32
	for _, p := range policy {
		sum += p
	}
	require.InDelta(t, 1.0, float64(sum), 1e-6)
}

func TestSoftmax(t *testing.T) {
	out := softmax([]float32{1, 1, 1, 1})
	for _, p := range out {
		require.InDelta(t, 0.25, float64(p), 1e-6)
	}

	out = softmax([]float32{10, 0, -10})
	require.Greater(t, out[0], out[1])
	require.Greater(t, out[1], out[2])
	require.NoError(t, Validate(out, 0, 3))
}
