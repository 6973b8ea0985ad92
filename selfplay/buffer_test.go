package selfplay

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brensch/zeromax/game"
	"github.com/brensch/zeromax/mcts"
)

func numbered(n int) []Example {
	out := make([]Example, n)
	for i := range out {
		out[i] = Example{Value: float32(i), Player: game.PlayerA}
	}
	return out
}

func TestBufferRejectsNonPositiveCapacity(t *testing.T) {
	_, err := NewBuffer(0)
	require.ErrorIs(t, err, mcts.ErrInvalidConfig)
	_, err = NewBuffer(-3)
	require.ErrorIs(t, err, mcts.ErrInvalidConfig)
}

func TestBufferEvictsOldestFirst(t *testing.T) {
	b, err := NewBuffer(10)
	require.NoError(t, err)

	b.Append(numbered(15)...)
	require.Equal(t, 10, b.Len())

	// Everything sampleable must come from the last ten appends.
	batch, err := b.SampleBatch(rand.New(rand.NewSource(1)), 10)
	require.NoError(t, err)
	seen := make(map[float32]bool)
	for _, ex := range batch {
		require.GreaterOrEqual(t, ex.Value, float32(5), "evicted example resurfaced")
		seen[ex.Value] = true
	}
	require.Len(t, seen, 10, "sampling without replacement must not repeat")
}

func TestBufferSampleRejectsNegativeBatch(t *testing.T) {
	b, err := NewBuffer(10)
	require.NoError(t, err)
	b.Append(numbered(5)...)

	_, err = b.SampleBatch(rand.New(rand.NewSource(1)), -1)
	require.ErrorIs(t, err, mcts.ErrInvalidConfig)
}

func TestBufferSampleLargerThanContents(t *testing.T) {
	b, err := NewBuffer(10)
	require.NoError(t, err)
	b.Append(numbered(10)...)

	_, err = b.SampleBatch(rand.New(rand.NewSource(1)), 11)
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestBufferClear(t *testing.T) {
	b, err := NewBuffer(4)
	require.NoError(t, err)
	b.Append(numbered(4)...)
	b.Clear()
	require.Zero(t, b.Len())

	_, err = b.SampleBatch(rand.New(rand.NewSource(1)), 1)
	require.ErrorIs(t, err, ErrInsufficientData)

	b.Append(numbered(2)...)
	require.Equal(t, 2, b.Len())
}

func TestBufferSampleDistinct(t *testing.T) {
	b, err := NewBuffer(100)
	require.NoError(t, err)
	b.Append(numbered(100)...)

	rng := rand.New(rand.NewSource(9))
	for trial := 0; trial < 20; trial++ {
		batch, err := b.SampleBatch(rng, 32)
		require.NoError(t, err)
		seen := make(map[float32]bool)
		for _, ex := range batch {
			require.False(t, seen[ex.Value])
			seen[ex.Value] = true
		}
	}
}
