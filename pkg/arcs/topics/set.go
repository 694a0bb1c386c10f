package topics

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"go.uber.org/zap"

	"github.com/cognicore/arcs/pkg/arcs/errs"
)

// Set holds parsed topics keyed by number. It is read-only after Load.
type Set struct {
	topics map[int]Topic
}

type loadOptions struct {
	logger *zap.Logger
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

// WithLogger sets the logger used to report duplicate topic numbers.
func WithLogger(l *zap.Logger) LoadOption {
	return func(o *loadOptions) { o.logger = l }
}

// Load parses every topic of src. A repeated topic number replaces the
// earlier record.
func Load(src LineSource, tok Tokenizer, opts ...LoadOption) (*Set, error) {
	o := loadOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	p := NewParser(src, tok)
	s := &Set{topics: make(map[int]Topic)}
	for {
		t, err := p.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if _, dup := s.topics[t.Number]; dup {
			o.logger.Warn("Duplicate topic number, keeping the later record", zap.Int("topic", t.Number))
		}
		s.topics[t.Number] = t
	}

	o.logger.Debug("Loaded topics", zap.Int("count", len(s.topics)))
	return s, nil
}

// NewSet builds a set from already parsed topics.
func NewSet(ts ...Topic) *Set {
	s := &Set{topics: make(map[int]Topic, len(ts))}
	for _, t := range ts {
		s.topics[t.Number] = t
	}
	return s
}

// Get returns the topic numbered n.
func (s *Set) Get(n int) (Topic, error) {
	t, ok := s.topics[n]
	if !ok {
		return Topic{}, fmt.Errorf("%w: topic %d", errs.ErrKeyNotFound, n)
	}
	return t, nil
}

// Title returns the title tokens of topic n.
func (s *Set) Title(n int) ([]string, error) {
	t, err := s.Get(n)
	return t.Title, err
}

// Description returns the description tokens of topic n.
func (s *Set) Description(n int) ([]string, error) {
	t, err := s.Get(n)
	return t.Description, err
}

// Narrative returns the narrative tokens of topic n.
func (s *Set) Narrative(n int) ([]string, error) {
	t, err := s.Get(n)
	return t.Narrative, err
}

// Numbers returns all topic numbers in ascending order.
func (s *Set) Numbers() []int {
	out := make([]int, 0, len(s.topics))
	for n := range s.topics {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// Len returns the number of topics.
func (s *Set) Len() int {
	return len(s.topics)
}
