// Package vectorize turns tokenized topics into normalized term-frequency
// vectors over a fixed vocabulary.
package vectorize

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/cognicore/arcs/pkg/arcs/errs"
	"github.com/cognicore/arcs/pkg/arcs/topics"
)

// Topic numbers outside this range are never vectorized.
const (
	MinTopic = 51
	MaxTopic = 450
)

// Norm selects the row normalization.
type Norm string

const (
	L1 Norm = "l1"
	L2 Norm = "l2"
)

// ParseNorm accepts "l1" or "l2".
func ParseNorm(s string) (Norm, error) {
	switch n := Norm(s); n {
	case L1, L2:
		return n, nil
	}
	return "", fmt.Errorf("%w: unknown norm %q", errs.ErrInvalidConfiguration, s)
}

// Fields selects which topic fields contribute tokens.
type Fields struct {
	Title       bool
	Description bool
	Narrative   bool
}

func (f Fields) any() bool {
	return f.Title || f.Description || f.Narrative
}

func (f Fields) tokens(t topics.Topic) []string {
	var out []string
	if f.Title {
		out = append(out, t.Title...)
	}
	if f.Description {
		out = append(out, t.Description...)
	}
	if f.Narrative {
		out = append(out, t.Narrative...)
	}
	return out
}

// Space is an immutable set of topic vectors.
type Space struct {
	dim    int
	rows   [][]float32
	rowOf  map[int]int
	oov    map[int][]string
	fields Fields
	norm   Norm
}

// Vector returns a copy of the vector for topic n.
func (s *Space) Vector(n int) ([]float32, error) {
	if n < MinTopic || n > MaxTopic {
		return nil, fmt.Errorf("%w: topic %d not in [%d,%d]", errs.ErrOutOfRange, n, MinTopic, MaxTopic)
	}
	i, ok := s.rowOf[n]
	if !ok {
		return nil, fmt.Errorf("%w: topic %d has no vector", errs.ErrKeyNotFound, n)
	}
	return append([]float32(nil), s.rows[i]...), nil
}

// OOV returns the distinct tokens of topic n that were not in the
// vocabulary, sorted.
func (s *Space) OOV(n int) []string {
	return append([]string(nil), s.oov[n]...)
}

// OOVCount returns the number of distinct out-of-vocabulary tokens across all
// topics.
func (s *Space) OOVCount() int {
	total := 0
	for _, terms := range s.oov {
		total += len(terms)
	}
	return total
}

// Rows returns the number of vectorized topics.
func (s *Space) Rows() int {
	return len(s.rows)
}

// Dim returns the vector dimensionality, the vocabulary size.
func (s *Space) Dim() int {
	return s.dim
}

// Vectorizer builds topic spaces and caches the last one.
type Vectorizer struct {
	set *topics.Set

	mu     sync.Mutex
	cached *Space
	vocab  *Vocabulary
}

// New creates a vectorizer over a loaded topic set.
func New(set *topics.Set) *Vectorizer {
	return &Vectorizer{set: set}
}

// Vectorize returns the space for the given vocabulary, fields and norm. A
// call with the same arguments as the previous one returns the cached space.
func (v *Vectorizer) Vectorize(vocab *Vocabulary, fields Fields, norm Norm) (*Space, error) {
	if !fields.any() {
		return nil, fmt.Errorf("%w: no topic field selected", errs.ErrInvalidConfiguration)
	}
	if norm != L1 && norm != L2 {
		return nil, fmt.Errorf("%w: unknown norm %q", errs.ErrInvalidConfiguration, norm)
	}
	if vocab == nil {
		return nil, fmt.Errorf("%w: nil vocabulary", errs.ErrInvalidConfiguration)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if c := v.cached; c != nil && v.vocab == vocab && c.fields == fields && c.norm == norm {
		return c, nil
	}

	numbers := v.set.Numbers()
	s := &Space{
		dim:    vocab.Len(),
		rows:   make([][]float32, 0, len(numbers)),
		rowOf:  make(map[int]int, len(numbers)),
		oov:    make(map[int][]string),
		fields: fields,
		norm:   norm,
	}

	for _, n := range numbers {
		if n < MinTopic || n > MaxTopic {
			continue
		}
		t, err := v.set.Get(n)
		if err != nil {
			return nil, err
		}

		row := make([]float32, s.dim)
		missing := make(map[string]struct{})
		for _, tok := range fields.tokens(t) {
			c, ok := vocab.Column(tok)
			if !ok {
				missing[tok] = struct{}{}
				continue
			}
			row[c]++
		}
		normalize(row, norm)

		if len(missing) > 0 {
			terms := make([]string, 0, len(missing))
			for tok := range missing {
				terms = append(terms, tok)
			}
			sort.Strings(terms)
			s.oov[n] = terms
		}
		s.rowOf[n] = len(s.rows)
		s.rows = append(s.rows, row)
	}

	v.cached, v.vocab = s, vocab
	return s, nil
}

// normalize scales row to unit norm in place. A zero row stays zero.
func normalize(row []float32, norm Norm) {
	var total float64
	for _, x := range row {
		if norm == L1 {
			total += math.Abs(float64(x))
		} else {
			total += float64(x) * float64(x)
		}
	}
	if norm == L2 {
		total = math.Sqrt(total)
	}
	if total == 0 {
		return
	}
	for i := range row {
		row[i] = float32(float64(row[i]) / total)
	}
}
