package mcts

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brensch/zeromax/game"
)

func TestPolicyNormalizesVisits(t *testing.T) {
	r := &Result{Visits: []int{10, 0, 30, 60, 0, 0, 0, 0, 0}}
	p := r.Policy()
	require.InDelta(t, 0.1, p[0], 1e-6)
	require.InDelta(t, 0.3, p[2], 1e-6)
	require.InDelta(t, 0.6, p[3], 1e-6)
	require.Zero(t, p[1])
}

func TestPolicyAllZeroWithoutSimulations(t *testing.T) {
	r := &Result{Visits: make([]int, 9)}
	for _, v := range r.Policy() {
		require.Zero(t, v)
	}
}

func TestBestBreaksTiesOnLowestAction(t *testing.T) {
	r := &Result{Visits: []int{0, 40, 10, 40, 0}}
	require.Equal(t, game.Action(1), r.Best())
}

func TestSampleGreedyAtZeroTemperature(t *testing.T) {
	r := &Result{Visits: []int{5, 80, 15}}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		a, err := r.Sample(rng, 0)
		require.NoError(t, err)
		require.Equal(t, game.Action(1), a)
	}
}

func TestSampleTinyTemperatureDegeneratesToGreedy(t *testing.T) {
	// 1/tau overflows the visit weights; the draw must collapse to argmax
	// rather than landing on whatever action the fall-through reaches.
	r := &Result{Visits: []int{5, 80, 15}}
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 20; i++ {
		a, err := r.Sample(rng, 1e-9)
		require.NoError(t, err)
		require.Equal(t, game.Action(1), a)
	}
}

func TestSampleRejectsNegativeTemperature(t *testing.T) {
	r := &Result{Visits: []int{1, 2, 3}}
	_, err := r.Sample(rand.New(rand.NewSource(1)), -0.5)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSampleTracksVisitProportions(t *testing.T) {
	r := &Result{Visits: []int{100, 0, 300, 600}}
	rng := rand.New(rand.NewSource(7))

	counts := make([]int, 4)
	const draws = 20000
	for i := 0; i < draws; i++ {
		a, err := r.Sample(rng, 1)
		require.NoError(t, err)
		counts[a]++
	}

	require.Zero(t, counts[1], "unvisited actions must never be sampled")
	require.InDelta(t, 0.1, float64(counts[0])/draws, 0.02)
	require.InDelta(t, 0.3, float64(counts[2])/draws, 0.02)
	require.InDelta(t, 0.6, float64(counts[3])/draws, 0.02)
}

func TestSampleSharpensAtLowTemperature(t *testing.T) {
	r := &Result{Visits: []int{100, 200}}
	rng := rand.New(rand.NewSource(3))

	counts := make([]int, 2)
	const draws = 5000
	for i := 0; i < draws; i++ {
		a, err := r.Sample(rng, 0.25)
		require.NoError(t, err)
		counts[a]++
	}
	// At tau=0.25 the weight ratio is 2^4 = 16, so the favorite should take
	// roughly 94% of the draws.
	require.Greater(t, float64(counts[1])/draws, 0.9)
}

func TestTemperatureSchedule(t *testing.T) {
	s := TemperatureSchedule{Moves: 10, Tau: 1}
	require.Equal(t, 1.0, s.At(0))
	require.Equal(t, 1.0, s.At(9))
	require.Zero(t, s.At(10))
	require.Zero(t, s.At(50))
}
