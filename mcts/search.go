package mcts

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/brensch/zeromax/game"
	"github.com/brensch/zeromax/nn"
)

// ErrInvalidConfig reports configuration rejected before any search work:
// a non-positive simulation budget, temperature or capacity.
var ErrInvalidConfig = errors.New("invalid configuration")

const (
	DefaultCpuct          = 1.5
	DefaultDirichletAlpha = 0.3
)

// Config holds the search options.
type Config struct {
	// Sims is the simulation budget per Search call. Required.
	Sims int

	// Cpuct controls exploration strength. DefaultCpuct if zero.
	Cpuct float64

	// Batch is how many simulation paths are selected per wave before
	// their leaves are evaluated. Larger batches overlap evaluator
	// latency at the cost of slightly staler selection; the value is part
	// of the search semantics and changes statistics. Defaults to 1.
	Batch int

	// Workers is how many evaluator calls of a wave may run at once.
	// A pure throughput knob: it never changes statistics.
	Workers int

	// DirichletAlpha and DirichletEpsilon configure root exploration
	// noise: P' = (1-eps)*P + eps*Dir(alpha). Eps 0 disables noise.
	DirichletAlpha   float64
	DirichletEpsilon float64

	// Seed drives all randomness inside the engine.
	Seed uint64
}

func (c Config) withDefaults() Config {
	if c.Cpuct == 0 {
		c.Cpuct = DefaultCpuct
	}
	if c.Batch <= 0 {
		c.Batch = 1
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.DirichletAlpha <= 0 {
		c.DirichletAlpha = DefaultDirichletAlpha
	}
	return c
}

// Engine runs PUCT searches for one game variant. An Engine is not safe for
// concurrent use; give each self-play worker its own.
type Engine struct {
	game game.Game
	eval nn.Evaluator
	cfg  Config
	src  rand.Source
}

// New validates the configuration and builds an engine.
func New(g game.Game, eval nn.Evaluator, cfg Config) (*Engine, error) {
	if cfg.Sims <= 0 {
		return nil, fmt.Errorf("simulation budget %d: %w", cfg.Sims, ErrInvalidConfig)
	}
	return &Engine{
		game: g,
		eval: eval,
		cfg:  cfg.withDefaults(),
		src:  rand.NewSource(cfg.Seed),
	}, nil
}

// Result is the outcome of one Search call.
type Result struct {
	// Visits holds the root visit count per action index; zero entries are
	// unvisited or illegal actions.
	Visits []int

	// Value is the root mean value from the root player's perspective.
	Value float64

	// Sims is how many simulations actually completed. It equals the
	// configured budget unless the context expired early.
	Sims int

	root *Node
}

// Render formats the root statistics for debugging.
func (r *Result) Render() string { return r.root.Render() }

// evalJob carries one pending leaf evaluation through a wave.
type evalJob struct {
	leaf   *Node
	policy []float32
	value  float32
	err    error
}

// Search runs the configured simulation budget against a fresh tree rooted
// at state and returns the root visit distribution.
//
// The root is expanded first (with Dirichlet noise if configured); that
// setup evaluation is not a simulation, so the root's visit count and the
// sum of its children's visit counts both land exactly on the completed
// simulation count. Each simulation then selects a path by PUCT to an
// unexpanded or terminal leaf, evaluates it, and backs the value up to the
// root. Selection and backup run on the calling goroutine; the wave's leaf
// evaluations run concurrently across cfg.Workers goroutines, with virtual
// losses steering the wave's paths apart.
//
// Context expiry is not an error: the partial statistics accumulated so far
// are returned, with Sims reporting how many simulations completed.
func (e *Engine) Search(ctx context.Context, state game.State) (*Result, error) {
	if state.Terminal() {
		return nil, fmt.Errorf("search from terminal state: %w", game.ErrInvalidAction)
	}
	root := newNode(state, nil, -1, 1)
	if err := e.expandRoot(root); err != nil {
		return nil, err
	}

	done := 0
	for done < e.cfg.Sims {
		if ctx != nil && ctx.Err() != nil {
			break
		}

		wave := e.cfg.Batch
		if rest := e.cfg.Sims - done; wave > rest {
			wave = rest
		}

		paths := make([][]*Node, 0, wave)
		jobs := make(map[*Node]*evalJob)
		var order []*evalJob
		for i := 0; i < wave; i++ {
			path := e.selectPath(root)
			leaf := path[len(path)-1]
			if !leaf.terminal {
				if _, ok := jobs[leaf]; !ok {
					job := &evalJob{leaf: leaf}
					jobs[leaf] = job
					order = append(order, job)
				}
			}
			paths = append(paths, path)
		}

		if err := e.evaluate(order); err != nil {
			return nil, err
		}

		for _, path := range paths {
			leaf := path[len(path)-1]
			if !leaf.expanded && !leaf.terminal {
				if err := leaf.expand(jobs[leaf].policy, e.game.ActionSize()); err != nil {
					return nil, err
				}
			}

			var v float64
			if leaf.terminal {
				v = float64(leaf.state.Outcome(leaf.player))
			} else {
				v = float64(jobs[leaf].value)
			}
			for _, n := range path {
				n.record(v, leaf.player)
			}
			done++
		}
	}

	return e.result(root, done), nil
}

// expandRoot performs the setup evaluation of the root and mixes in
// exploration noise. No statistics are recorded.
func (e *Engine) expandRoot(root *Node) error {
	policy, _, err := e.eval.Evaluate(root.state)
	if err == nil {
		err = nn.Validate(policy, 0, e.game.ActionSize())
	}
	if err != nil {
		return fmt.Errorf("evaluate root: %w", err)
	}
	if err := root.expand(policy, e.game.ActionSize()); err != nil {
		return err
	}
	if e.cfg.DirichletEpsilon > 0 {
		e.addRootNoise(root)
	}
	return nil
}

// selectPath walks from the root to the first unexpanded or terminal node,
// marking the whole path with a virtual loss.
func (e *Engine) selectPath(root *Node) []*Node {
	path := []*Node{root}
	root.addVirtualLoss()
	n := root
	for n.expanded && !n.terminal {
		n = n.selectChild(e.cfg.Cpuct)
		n.addVirtualLoss()
		path = append(path, n)
	}
	return path
}

// evaluate runs the wave's distinct leaf evaluations on a bounded worker
// pool and validates every result before it can touch the tree. Any
// evaluator failure aborts the whole search: a partial evaluation would
// corrupt tree statistics irrecoverably.
func (e *Engine) evaluate(jobs []*evalJob) error {
	if len(jobs) == 0 {
		return nil
	}
	workers := e.cfg.Workers
	if workers > len(jobs) {
		workers = len(jobs)
	}

	queue := make(chan *evalJob, len(jobs))
	for _, job := range jobs {
		queue <- job
	}
	close(queue)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range queue {
				policy, value, err := e.eval.Evaluate(job.leaf.state)
				if err == nil {
					err = nn.Validate(policy, value, e.game.ActionSize())
				}
				if err != nil {
					job.err = fmt.Errorf("evaluate leaf: %w", err)
					continue
				}
				job.policy = policy
				job.value = value
			}
		}()
	}
	wg.Wait()

	for _, job := range jobs {
		if job.err != nil {
			return job.err
		}
	}
	return nil
}

// addRootNoise mixes Dirichlet noise into the root priors for self-play
// exploration.
func (e *Engine) addRootNoise(root *Node) {
	legal := 0
	for _, c := range root.children {
		if c != nil {
			legal++
		}
	}
	if legal < 2 {
		return
	}
	alpha := make([]float64, legal)
	for i := range alpha {
		alpha[i] = e.cfg.DirichletAlpha
	}
	dir := distmv.NewDirichlet(alpha, e.src)
	root.mixNoise(dir.Rand(nil), e.cfg.DirichletEpsilon)
}

func (e *Engine) result(root *Node, sims int) *Result {
	r := &Result{
		Visits: make([]int, e.game.ActionSize()),
		Value:  root.Q(),
		Sims:   sims,
		root:   root,
	}
	for _, c := range root.children {
		if c != nil {
			r.Visits[c.action] = c.visits
		}
	}
	return r
}
