package selfplay

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/brensch/zeromax/game"
	"github.com/brensch/zeromax/mcts"
	"github.com/brensch/zeromax/nn"
)

func testDriver(t *testing.T, seed int64) *Driver {
	t.Helper()
	d, err := NewDriver(game.TicTacToe{}, nn.Uniform{Actions: 9}, Config{
		Search:      mcts.Config{Sims: 50, DirichletEpsilon: 0.25},
		Temperature: mcts.TemperatureSchedule{Moves: 4, Tau: 1},
		Seed:        seed,
	}, zerolog.Nop())
	require.NoError(t, err)
	return d
}

func TestDriverRejectsMissingBudget(t *testing.T) {
	_, err := NewDriver(game.TicTacToe{}, nn.Uniform{Actions: 9}, Config{}, zerolog.Nop())
	require.ErrorIs(t, err, mcts.ErrInvalidConfig)
}

func TestDriverPlaysCompleteGame(t *testing.T) {
	rec, err := testDriver(t, 1).Play(context.Background())
	require.NoError(t, err)

	require.True(t, rec.Completed)
	require.Equal(t, rec.Plies, len(rec.Examples), "one example per move")
	require.GreaterOrEqual(t, rec.Plies, 5, "a tic-tac-toe game needs at least five moves")
	require.LessOrEqual(t, rec.Plies, 9)

	for i, ex := range rec.Examples {
		require.Len(t, ex.Encoding, 27)
		require.Len(t, ex.Policy, 9)
		var sum float32
		for _, p := range ex.Policy {
			sum += p
		}
		require.InDelta(t, 1.0, sum, 1e-4, "example %d policy must normalize", i)
		// Players strictly alternate from the first mover.
		want := game.PlayerA
		if i%2 == 1 {
			want = game.PlayerB
		}
		require.Equal(t, want, ex.Player)
	}
}

func TestDriverValueTargetsMatchOutcome(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		rec, err := testDriver(t, seed).Play(context.Background())
		require.NoError(t, err)

		for i, ex := range rec.Examples {
			switch rec.Winner {
			case game.NoPlayer:
				require.Zero(t, ex.Value, "draw targets are 0 (seed %d ex %d)", seed, i)
			case ex.Player:
				require.Equal(t, float32(1), ex.Value, "winner targets +1 (seed %d ex %d)", seed, i)
			default:
				require.Equal(t, float32(-1), ex.Value, "loser targets -1 (seed %d ex %d)", seed, i)
			}
		}
	}
}

func TestDriverDeterministicForSeed(t *testing.T) {
	first, err := testDriver(t, 42).Play(context.Background())
	require.NoError(t, err)
	second, err := testDriver(t, 42).Play(context.Background())
	require.NoError(t, err)

	require.Equal(t, first.Winner, second.Winner)
	require.Equal(t, first.Plies, second.Plies)
	require.Equal(t, first.Examples, second.Examples)
}

func TestDriverStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec, err := testDriver(t, 1).Play(ctx)
	require.NoError(t, err, "cancellation is a graceful stop, not an error")
	require.False(t, rec.Completed)
	require.Empty(t, rec.Examples)
}

func TestDriverOnMoveObservesEveryPly(t *testing.T) {
	d := testDriver(t, 3)
	var events []MoveEvent
	d.OnMove = func(e MoveEvent) { events = append(events, e) }

	rec, err := d.Play(context.Background())
	require.NoError(t, err)
	require.Len(t, events, rec.Plies)
	for i, e := range events {
		require.Equal(t, i, e.Ply)
		require.Equal(t, rec.GameID, e.GameID)
		require.NotEmpty(t, e.Board)
	}
}
