package selfplay

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/brensch/zeromax/mcts"
)

// ErrInsufficientData reports a sample request larger than the buffer.
var ErrInsufficientData = errors.New("insufficient data")

// ReplayBuffer is a fixed-capacity FIFO ring of training examples shared
// between self-play producers and a training-data consumer. Safe for
// concurrent use.
type ReplayBuffer struct {
	mu   sync.RWMutex
	data []Example
	next int
	size int
}

// NewBuffer builds a buffer holding at most capacity examples.
func NewBuffer(capacity int) (*ReplayBuffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("buffer capacity %d: %w", capacity, mcts.ErrInvalidConfig)
	}
	return &ReplayBuffer{data: make([]Example, capacity)}, nil
}

// Append adds examples in order, evicting the oldest entries once the
// buffer is full.
func (b *ReplayBuffer) Append(examples ...Example) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ex := range examples {
		b.data[b.next] = ex
		b.next = (b.next + 1) % len(b.data)
		if b.size < len(b.data) {
			b.size++
		}
	}
}

// Len returns the number of stored examples.
func (b *ReplayBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Clear empties the buffer.
func (b *ReplayBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next = 0
	b.size = 0
}

// SampleBatch draws n distinct examples uniformly at random. The batch is a
// consistent snapshot: appends racing the call never tear it.
func (b *ReplayBuffer) SampleBatch(rng *rand.Rand, n int) ([]Example, error) {
	if n < 0 {
		return nil, fmt.Errorf("batch size %d: %w", n, mcts.ErrInvalidConfig)
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n > b.size {
		return nil, fmt.Errorf("batch %d from %d examples: %w", n, b.size, ErrInsufficientData)
	}
	batch := make([]Example, 0, n)
	for _, i := range rng.Perm(b.size)[:n] {
		batch = append(batch, b.data[i])
	}
	return batch, nil
}
