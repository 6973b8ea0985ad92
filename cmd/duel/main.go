// Duel pits two search configurations against each other over a series of
// games and reports the win rate, alternating first move between sides.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/brensch/zeromax/game"
	"github.com/brensch/zeromax/mcts"
	"github.com/brensch/zeromax/nn"
)

type contender struct {
	name   string
	engine *mcts.Engine
}

func main() {
	gameName := flag.String("game", "tictactoe", "Game variant: tictactoe, connect4 or oware")
	games := flag.Int("games", 50, "Number of games to play")
	simsA := flag.Int("sims-a", 400, "Simulation budget for contender A")
	simsB := flag.Int("sims-b", 100, "Simulation budget for contender B")
	modelA := flag.String("model-a", "", "ONNX model for contender A; empty means uniform")
	modelB := flag.String("model-b", "", "ONNX model for contender B; empty means uniform")
	seed := flag.Int64("seed", 0, "RNG seed; 0 picks a time-based seed")
	verbose := flag.Bool("verbose", false, "Dump per-move search statistics")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	g, err := game.ByName(*gameName)
	if err != nil {
		log.Fatal().Err(err).Msg("bad -game flag")
	}
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := buildContender(log, g, "A", *modelA, *simsA, uint64(*seed))
	b := buildContender(log, g, "B", *modelB, *simsB, uint64(*seed)+1)

	var winsA, winsB, draws int
	for i := 0; i < *games && ctx.Err() == nil; i++ {
		// Alternate who moves first so first-player advantage cancels out.
		first, second := a, b
		if i%2 == 1 {
			first, second = b, a
		}

		winner, plies, err := playGame(ctx, g, first, second, *verbose)
		if err != nil {
			log.Fatal().Err(err).Int("game", i).Msg("duel game failed")
		}

		switch winner {
		case "":
			draws++
		case a.name:
			winsA++
		default:
			winsB++
		}
		log.Info().Int("game", i).Str("first", first.name).Str("winner", winner).
			Int("plies", plies).Msg("game complete")
	}

	played := winsA + winsB + draws
	if played == 0 {
		return
	}
	fmt.Printf("\n%s over %d games:\n", g.Name(), played)
	fmt.Printf("  A (sims=%d model=%q): %d wins (%.1f%%)\n", *simsA, *modelA, winsA, pct(winsA, played))
	fmt.Printf("  B (sims=%d model=%q): %d wins (%.1f%%)\n", *simsB, *modelB, winsB, pct(winsB, played))
	fmt.Printf("  draws: %d (%.1f%%)\n", draws, pct(draws, played))
}

func buildContender(log zerolog.Logger, g game.Game, name, modelPath string, sims int, seed uint64) *contender {
	var eval nn.Evaluator = nn.Uniform{Actions: g.ActionSize()}
	if modelPath != "" {
		onnx, err := nn.NewOnnxEvaluator(modelPath, g, nn.OnnxConfig{})
		if err != nil {
			log.Fatal().Err(err).Str("model", modelPath).Msg("load onnx model")
		}
		eval = onnx
	}

	engine, err := mcts.New(g, eval, mcts.Config{Sims: sims, Seed: seed})
	if err != nil {
		log.Fatal().Err(err).Str("contender", name).Msg("bad search config")
	}
	return &contender{name: name, engine: engine}
}

// playGame plays one game between first (moving first) and second, and
// returns the winning contender's name, empty on a draw.
func playGame(ctx context.Context, g game.Game, first, second *contender, verbose bool) (string, int, error) {
	state := g.Initial()
	plies := 0
	byPlayer := map[game.Player]*contender{
		game.PlayerA: first,
		game.PlayerB: second,
	}

	for !state.Terminal() {
		if ctx.Err() != nil {
			return "", plies, ctx.Err()
		}
		side := byPlayer[state.Player()]
		result, err := side.engine.Search(ctx, state)
		if err != nil {
			return "", plies, err
		}
		if verbose {
			fmt.Printf("ply %d (%s to move as %s):\n%s%s\n",
				plies, side.name, state.Player(), state, result.Render())
		}

		state, err = state.Apply(result.Best())
		if err != nil {
			return "", plies, err
		}
		plies++
	}

	switch {
	case state.Outcome(game.PlayerA) > 0:
		return first.name, plies, nil
	case state.Outcome(game.PlayerB) > 0:
		return second.name, plies, nil
	}
	return "", plies, nil
}

func pct(n, total int) float64 {
	return 100 * float64(n) / float64(total)
}
