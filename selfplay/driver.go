// Package selfplay turns the search engine into training data: a driver
// plays complete games against itself and a replay buffer holds the
// resulting examples for sampling.
package selfplay

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/brensch/zeromax/game"
	"github.com/brensch/zeromax/mcts"
	"github.com/brensch/zeromax/nn"
)

// Example is one training position: the encoded state, the search's
// normalized visit distribution over the full action space, the player who
// was to move, and the final game outcome signed to that player.
type Example struct {
	Encoding []float32
	Policy   []float32
	Player   game.Player
	Value    float32
}

// MoveEvent describes one committed self-play move, for observers.
type MoveEvent struct {
	GameID string
	Ply    int
	Board  string
	Action game.Action
	Policy []float32
	Value  float64
}

// GameRecord is the outcome of one self-play game.
type GameRecord struct {
	GameID   string
	Examples []Example
	Winner   game.Player // NoPlayer on a draw
	Plies    int

	// Completed is false when the context expired mid-game. The partial
	// examples carry zero values; they are not training data.
	Completed bool
}

// Config holds the self-play options.
type Config struct {
	// Search configures each per-move tree search.
	Search mcts.Config

	// Temperature is the move sampling schedule. The zero value plays
	// greedily from ply 0.
	Temperature mcts.TemperatureSchedule

	// Seed drives move sampling and per-game search seeds. Zero picks a
	// time-based seed.
	Seed int64
}

// Driver plays self-play games one at a time. Not safe for concurrent use;
// pool drivers, not calls.
type Driver struct {
	game game.Game
	eval nn.Evaluator
	cfg  Config
	log  zerolog.Logger
	rng  *rand.Rand

	// OnMove, when set, observes every committed move. Called on the
	// driver's goroutine; keep it fast.
	OnMove func(MoveEvent)

	games int
}

// NewDriver validates the configuration and builds a driver.
func NewDriver(g game.Game, eval nn.Evaluator, cfg Config, log zerolog.Logger) (*Driver, error) {
	if cfg.Search.Sims <= 0 {
		return nil, fmt.Errorf("simulation budget %d: %w", cfg.Search.Sims, mcts.ErrInvalidConfig)
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	return &Driver{
		game: g,
		eval: eval,
		cfg:  cfg,
		log:  log.With().Str("game", g.Name()).Logger(),
		rng:  rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Play runs one full game from the initial position and returns the valued
// examples. Context cancellation between moves stops the game gracefully:
// the record comes back with Completed false and no values assigned.
func (d *Driver) Play(ctx context.Context) (*GameRecord, error) {
	d.games++
	gameID := fmt.Sprintf("selfplay_%d_%d", d.cfg.Seed, d.games)

	engine, err := mcts.New(d.game, d.eval, d.searchConfig())
	if err != nil {
		return nil, err
	}

	rec := &GameRecord{GameID: gameID}
	state := d.game.Initial()

	for !state.Terminal() {
		if ctx.Err() != nil {
			d.log.Debug().Str("game_id", gameID).Int("plies", rec.Plies).
				Msg("self-play game interrupted")
			return rec, nil
		}

		result, err := engine.Search(ctx, state)
		if err != nil {
			return nil, fmt.Errorf("search ply %d: %w", rec.Plies, err)
		}
		if result.Sims < d.cfg.Search.Sims {
			// The budget was cut short by the context; the truncated
			// statistics are not a training target.
			return rec, nil
		}

		rec.Examples = append(rec.Examples, Example{
			Encoding: state.Encode(),
			Policy:   result.Policy(),
			Player:   state.Player(),
		})

		action, err := result.Sample(d.rng, d.cfg.Temperature.At(rec.Plies))
		if err != nil {
			return nil, err
		}

		if d.OnMove != nil {
			d.OnMove(MoveEvent{
				GameID: gameID,
				Ply:    rec.Plies,
				Board:  state.String(),
				Action: action,
				Policy: result.Policy(),
				Value:  result.Value,
			})
		}

		state, err = state.Apply(action)
		if err != nil {
			return nil, fmt.Errorf("apply ply %d: %w", rec.Plies, err)
		}
		rec.Plies++
	}

	rec.Completed = true
	rec.Winner = winner(state)
	for i := range rec.Examples {
		rec.Examples[i].Value = state.Outcome(rec.Examples[i].Player)
	}

	d.log.Info().Str("game_id", gameID).Int("plies", rec.Plies).
		Stringer("winner", rec.Winner).Msg("self-play game complete")
	return rec, nil
}

// searchConfig derives a fresh search seed per game so repeated games
// explore different lines while the whole run stays reproducible.
func (d *Driver) searchConfig() mcts.Config {
	cfg := d.cfg.Search
	cfg.Seed = d.rng.Uint64()
	return cfg
}

func winner(terminal game.State) game.Player {
	switch {
	case terminal.Outcome(game.PlayerA) > 0:
		return game.PlayerA
	case terminal.Outcome(game.PlayerB) > 0:
		return game.PlayerB
	default:
		return game.NoPlayer
	}
}
