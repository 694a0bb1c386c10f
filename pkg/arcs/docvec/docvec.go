// Package docvec defines where document embeddings come from.
package docvec

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cognicore/arcs/pkg/arcs/errs"
)

// Source looks up dense document vectors by id.
type Source interface {
	Vector(ctx context.Context, id string) ([]float32, error)
	IDs(ctx context.Context) ([]string, error)
	Dim() int
}

// Cached wraps a Source with an LRU cache of vectors.
type Cached struct {
	src   Source
	cache *lru.Cache[string, []float32]
}

// NewCached caches up to size vectors of src.
func NewCached(src Source, size int) (*Cached, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: cache size must be positive, got %d", errs.ErrInvalidConfiguration, size)
	}
	c, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrInvalidConfiguration, err)
	}
	return &Cached{src: src, cache: c}, nil
}

// Vector returns a copy of the cached vector, loading it on a miss.
func (c *Cached) Vector(ctx context.Context, id string) ([]float32, error) {
	if v, ok := c.cache.Get(id); ok {
		return append([]float32(nil), v...), nil
	}
	v, err := c.src.Vector(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.Add(id, append([]float32(nil), v...))
	return v, nil
}

// IDs implements Source. Ids come from the underlying source.
func (c *Cached) IDs(ctx context.Context) ([]string, error) {
	return c.src.IDs(ctx)
}

// Dim implements Source.
func (c *Cached) Dim() int {
	return c.src.Dim()
}

// Len returns the number of cached vectors.
func (c *Cached) Len() int {
	return c.cache.Len()
}

// EncodeVector serializes v as little-endian float32s.
func EncodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector reverses EncodeVector.
func DecodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: vector blob of %d bytes", errs.ErrMalformedRecord, len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
