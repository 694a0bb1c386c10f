// Package memvec is an in-memory docvec.Source.
package memvec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/cognicore/arcs/pkg/arcs/errs"
)

// LineSource yields trimmed lines until io.EOF. *stream.Reader satisfies it.
type LineSource interface {
	Next() (string, error)
}

// Store keeps vectors in a map. Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	dim  int
	vecs map[string][]float32
}

// New creates an empty store of the given dimensionality.
func New(dim int) *Store {
	return &Store{dim: dim, vecs: make(map[string][]float32)}
}

// Put stores a copy of v under id.
func (s *Store) Put(id string, v []float32) error {
	if len(v) != s.dim {
		return fmt.Errorf("%w: vector for %q has %d values, want %d", errs.ErrMalformedRecord, id, len(v), s.dim)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vecs[id] = append([]float32(nil), v...)
	return nil
}

// LoadText reads "doc_id v1 v2 ..." lines. The first vector fixes the
// dimensionality; blank lines and "#" comments are skipped.
func LoadText(src LineSource) (*Store, error) {
	var s *Store
	lineNo := 0
	for {
		line, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		lineNo++
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		id, v, err := ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if s == nil {
			s = New(len(v))
		}
		if err := s.Put(id, v); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if s == nil {
		s = New(0)
	}
	return s, nil
}

// ParseLine splits a "doc_id v1 v2 ..." line.
func ParseLine(line string) (string, []float32, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", nil, fmt.Errorf("%w: vector line needs an id and at least one value", errs.ErrMalformedRecord)
	}
	v := make([]float32, len(fields)-1)
	for i, f := range fields[1:] {
		x, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return "", nil, fmt.Errorf("%w: value %q: %w", errs.ErrMalformedRecord, f, err)
		}
		v[i] = float32(x)
	}
	return fields[0], v, nil
}

// Vector implements docvec.Source.
func (s *Store) Vector(ctx context.Context, id string) ([]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vecs[id]
	if !ok {
		return nil, fmt.Errorf("%w: document %q has no vector", errs.ErrKeyNotFound, id)
	}
	return append([]float32(nil), v...), nil
}

// IDs implements docvec.Source. Ids are sorted.
func (s *Store) IDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.vecs))
	for id := range s.vecs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// Dim implements docvec.Source.
func (s *Store) Dim() int {
	return s.dim
}

// Len returns the number of stored vectors.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vecs)
}
