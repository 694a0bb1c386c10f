// Package batch slices a row count into fixed-size batches per epoch.
package batch

import (
	"fmt"
	"math/rand/v2"

	"github.com/cognicore/arcs/pkg/arcs/errs"
)

// Generator hands out row indexes for fixed-size batches. A trailing partial
// batch is dropped. It is not safe for concurrent use.
type Generator struct {
	size    int
	shuffle bool
	rng     *rand.Rand
	order   []int
}

// New creates a generator over n rows. With shuffle set, the row order is
// permuted now and again at every EndEpoch.
func New(n, size int, shuffle bool, rng *rand.Rand) (*Generator, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative row count %d", errs.ErrInvalidConfiguration, n)
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: batch size must be positive, got %d", errs.ErrInvalidConfiguration, size)
	}
	if shuffle && rng == nil {
		return nil, fmt.Errorf("%w: shuffling needs a random source", errs.ErrInvalidConfiguration)
	}

	g := &Generator{size: size, shuffle: shuffle, rng: rng, order: make([]int, n)}
	for i := range g.order {
		g.order[i] = i
	}
	g.EndEpoch()
	return g, nil
}

// Len returns the number of full batches per epoch.
func (g *Generator) Len() int {
	return len(g.order) / g.size
}

// Indexes returns the row indexes of batch i.
func (g *Generator) Indexes(i int) ([]int, error) {
	if i < 0 || i >= g.Len() {
		return nil, fmt.Errorf("%w: batch %d not in [0,%d)", errs.ErrOutOfRange, i, g.Len())
	}
	return append([]int(nil), g.order[i*g.size:(i+1)*g.size]...), nil
}

// EndEpoch reshuffles the row order when shuffling is enabled.
func (g *Generator) EndEpoch() {
	if !g.shuffle {
		return
	}
	g.rng.Shuffle(len(g.order), func(i, j int) {
		g.order[i], g.order[j] = g.order[j], g.order[i]
	})
}
