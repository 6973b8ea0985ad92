// Self-play worker pool: plays games with the configured evaluator, streams
// training rows to parquet batches, and optionally serves live boards over
// WebSocket and a terminal dashboard.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/brensch/zeromax/game"
	"github.com/brensch/zeromax/mcts"
	"github.com/brensch/zeromax/monitor"
	"github.com/brensch/zeromax/nn"
	"github.com/brensch/zeromax/selfplay"
	"github.com/brensch/zeromax/store"
)

var totalMoves atomic.Int64
var totalEvaluations atomic.Int64
var totalGames atomic.Int64

type instrumentedEvaluator struct {
	nn.Evaluator
}

func (e *instrumentedEvaluator) Evaluate(s game.State) ([]float32, float32, error) {
	totalEvaluations.Add(1)
	return e.Evaluator.Evaluate(s)
}

type gameUpdate struct {
	WorkerID int
	Winner   game.Player
	Plies    int
	Examples int
}

type gameWriteRequest struct {
	rows []store.TrainingRow
}

type model struct {
	gamesPlayed   int
	totalExamples int
	moves         int64
	evaluations   int64
	startTime     time.Time
	recentGames   []string
	updates       chan gameUpdate
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), tickCmd())
}

func waitForUpdate(updates chan gameUpdate) tea.Cmd {
	return func() tea.Msg {
		return <-updates
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case tickMsg:
		m.moves = totalMoves.Load()
		m.evaluations = totalEvaluations.Load()
		return m, tickCmd()
	case gameUpdate:
		m.gamesPlayed++
		m.totalExamples += msg.Examples
		line := fmt.Sprintf("Worker %d: winner %s, plies %d, examples %d",
			msg.WorkerID, msg.Winner, msg.Plies, msg.Examples)
		m.recentGames = append([]string{line}, m.recentGames...)
		if len(m.recentGames) > 10 {
			m.recentGames = m.recentGames[:10]
		}
		return m, waitForUpdate(m.updates)
	}
	return m, nil
}

func (m model) View() string {
	duration := time.Since(m.startTime)
	perSec := func(n int64) float64 {
		if duration.Seconds() < 1 {
			return 0
		}
		return float64(n) / duration.Seconds()
	}

	s := fmt.Sprintf("Games Played:    %d\n", m.gamesPlayed)
	s += fmt.Sprintf("Total Examples:  %d\n", m.totalExamples)
	s += fmt.Sprintf("Duration:        %s\n", duration.Round(time.Second))
	s += fmt.Sprintf("Games/Sec:       %.2f\n", perSec(int64(m.gamesPlayed)))
	s += fmt.Sprintf("Moves/Sec:       %.2f\n", perSec(m.moves))
	s += fmt.Sprintf("Evaluations/Sec: %.2f\n\n", perSec(m.evaluations))

	s += "Recent Games:\n"
	for _, g := range m.recentGames {
		s += g + "\n"
	}

	s += "\nPress q to quit.\n"
	return s
}

func main() {
	gameName := flag.String("game", "tictactoe", "Game variant: tictactoe, connect4 or oware")
	sims := flag.Int("sims", 200, "Simulation budget per move")
	workers := flag.Int("workers", 8, "Number of self-play workers")
	outDir := flag.String("out-dir", "data/generated", "Output directory for training parquet batches")
	gamesPerFlush := flag.Int("games-per-flush", 50, "Number of games to buffer per parquet flush")
	maxGames := flag.Int64("max-games", 0, "If > 0, stop after this many games across all workers")
	seed := flag.Int64("seed", 0, "Base RNG seed; 0 picks a time-based seed")
	tempMoves := flag.Int("temperature-moves", 8, "Plies sampled at temperature 1 before greedy play")
	modelPath := flag.String("model", "", "ONNX model path; empty plays with a uniform evaluator")
	batchSize := flag.Int("onnx-batch-size", nn.DefaultBatchSize, "ONNX inference batch size")
	batchTimeout := flag.Duration("onnx-batch-timeout", nn.DefaultBatchTimeout, "Max wait to fill an ONNX batch")
	monitorAddr := flag.String("monitor-addr", "", "If set, serve live boards over WebSocket on this address")
	tui := flag.Bool("tui", false, "Show the terminal dashboard instead of log output")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	g, err := game.ByName(*gameName)
	if err != nil {
		log.Fatal().Err(err).Msg("bad -game flag")
	}
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	if *tui {
		// Keep the dashboard clean.
		log = zerolog.Nop()
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	var eval nn.Evaluator = nn.Uniform{Actions: g.ActionSize()}
	if *modelPath != "" {
		onnx, err := nn.NewOnnxEvaluator(*modelPath, g, nn.OnnxConfig{
			BatchSize:    *batchSize,
			BatchTimeout: *batchTimeout,
		})
		if err != nil {
			log.Fatal().Err(err).Str("model", *modelPath).Msg("load onnx model")
		}
		defer onnx.Close()
		eval = onnx
	}
	eval = &instrumentedEvaluator{Evaluator: eval}

	var mon *monitor.Server
	if *monitorAddr != "" {
		mon = monitor.NewServer(log)
		defer mon.Close()
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/ws", mon)
			if err := http.ListenAndServe(*monitorAddr, mux); err != nil {
				log.Error().Err(err).Msg("monitor server stopped")
			}
		}()
		log.Info().Str("addr", *monitorAddr).Msg("serving live boards on /ws")
	}

	updates := make(chan gameUpdate, *workers)
	writeReqs := make(chan gameWriteRequest, (*workers)*4)

	writerDone := make(chan struct{})
	go func() {
		parquetWriterLoop(log, *outDir, *gamesPerFlush, writeReqs)
		close(writerDone)
	}()

	var workerWG sync.WaitGroup
	for i := 0; i < *workers; i++ {
		workerWG.Add(1)
		go func(workerID int) {
			defer workerWG.Done()

			driver, err := selfplay.NewDriver(g, eval, selfplay.Config{
				Search:      mcts.Config{Sims: *sims, DirichletEpsilon: 0.25, Seed: uint64(*seed) + uint64(workerID)},
				Temperature: mcts.TemperatureSchedule{Moves: *tempMoves, Tau: 1},
				Seed:        *seed + int64(workerID),
			}, log)
			if err != nil {
				log.Error().Err(err).Int("worker", workerID).Msg("driver init failed")
				return
			}
			driver.OnMove = func(e selfplay.MoveEvent) {
				totalMoves.Add(1)
				if mon != nil {
					mon.OnMove(e)
				}
			}

			for ctx.Err() == nil {
				rec, err := driver.Play(ctx)
				if err != nil {
					log.Error().Err(err).Int("worker", workerID).Msg("game aborted")
					return
				}
				if !rec.Completed {
					return
				}

				total := totalGames.Add(1)
				if *maxGames > 0 && total >= *maxGames {
					cancel()
				}

				rows := store.RowsFromRecord(rec, g.Name(), *modelPath)
				writeReqs <- gameWriteRequest{rows: rows}

				// Never block shutdown on a stalled dashboard.
				select {
				case updates <- gameUpdate{
					WorkerID: workerID,
					Winner:   rec.Winner,
					Plies:    rec.Plies,
					Examples: len(rec.Examples),
				}:
				default:
				}
			}
		}(i)
	}

	if *tui {
		p := tea.NewProgram(model{startTime: time.Now(), updates: updates}, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		cancel()
		workerWG.Wait()
		close(writeReqs)
		<-writerDone
		return
	}

	startTime := time.Now()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutdown requested; waiting for workers to finish current games")
			workerWG.Wait()
			close(writeReqs)
			<-writerDone
			log.Info().Int64("games", totalGames.Load()).Msg("shutdown complete")
			return
		case u := <-updates:
			log.Info().Int("worker", u.WorkerID).Stringer("winner", u.Winner).
				Int("plies", u.Plies).Int("examples", u.Examples).Msg("game complete")
		case <-ticker.C:
			elapsed := time.Since(startTime).Seconds()
			log.Info().
				Float64("moves_per_sec", float64(totalMoves.Load())/elapsed).
				Float64("evals_per_sec", float64(totalEvaluations.Load())/elapsed).
				Int64("games", totalGames.Load()).
				Msg("stats")
		}
	}
}

// parquetWriterLoop streams incoming rows into a BatchWriter so memory use
// stays flat regardless of flush size; every gamesPerFlush games the batch
// is finalized into outDir and a fresh one opened.
func parquetWriterLoop(log zerolog.Logger, outDir string, gamesPerFlush int, in <-chan gameWriteRequest) {
	if gamesPerFlush <= 0 {
		gamesPerFlush = 50
	}

	var w *store.BatchWriter
	finalize := func() {
		if w == nil {
			return
		}
		outPath, rows, games, err := w.Finalize()
		w = nil
		if err != nil {
			log.Error().Err(err).Msg("parquet flush failed")
			return
		}
		if outPath != "" {
			log.Info().Str("path", outPath).Int("games", games).Int("rows", rows).
				Msg("parquet flush ok")
		}
	}

	for req := range in {
		if len(req.rows) == 0 {
			continue
		}
		if w == nil {
			var err error
			w, err = store.NewBatchWriter(outDir)
			if err != nil {
				log.Error().Err(err).Str("dir", outDir).Msg("open parquet batch")
				continue
			}
		}
		if err := w.WriteRows(req.rows); err != nil {
			log.Error().Err(err).Msg("write parquet rows")
			finalize()
			continue
		}
		w.NoteGameWritten()
		if w.BufferedGames() >= gamesPerFlush {
			finalize()
		}
	}
	finalize()
}
