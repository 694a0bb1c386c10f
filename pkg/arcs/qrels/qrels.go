// Package qrels indexes TREC relevance judgments.
//
// Each input line has four whitespace-separated columns:
//
//	topic_no iteration doc_id relevance
//
// A relevance value of "1" marks the document relevant; anything else is
// irrelevant. The store is immutable after Load and safe for concurrent
// readers.
package qrels

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"

	"github.com/cognicore/arcs/pkg/arcs/errs"
)

const relevantFlag = "1"

// LineSource yields trimmed lines until io.EOF. *stream.Reader satisfies it.
type LineSource interface {
	Next() (string, error)
}

// Conflict is a document judged both relevant and irrelevant for a topic.
type Conflict struct {
	Topic int
	DocID string
}

// Store holds relevant and irrelevant document sets per topic.
type Store struct {
	// index[rel][topic] is the set; sorted[rel][topic] the same ids in order.
	index  [2]map[int]map[string]struct{}
	sorted [2]map[int][]string
	lines  int
}

func flagIndex(rel bool) int {
	if rel {
		return 1
	}
	return 0
}

// Load consumes every judgment line of src.
func Load(src LineSource) (*Store, error) {
	s := &Store{}
	for i := range s.index {
		s.index[i] = make(map[int]map[string]struct{})
		s.sorted[i] = make(map[int][]string)
	}

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
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, fmt.Errorf("%w: qrels line %d: want 4 columns, got %d", errs.ErrMalformedRecord, lineNo, len(fields))
		}
		topic, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("%w: qrels line %d: bad topic %q", errs.ErrMalformedRecord, lineNo, fields[0])
		}
		s.add(topic, fields[2], fields[3] == relevantFlag)
		s.lines++
	}

	for i := range s.index {
		for topic, set := range s.index[i] {
			ids := make([]string, 0, len(set))
			for id := range set {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			s.sorted[i][topic] = ids
		}
	}
	return s, nil
}

func (s *Store) add(topic int, doc string, rel bool) {
	m := s.index[flagIndex(rel)]
	set, ok := m[topic]
	if !ok {
		set = make(map[string]struct{})
		m[topic] = set
	}
	set[doc] = struct{}{}
}

// Len returns the number of judgment lines loaded.
func (s *Store) Len() int {
	return s.lines
}

// DocList returns the judged documents of topic with the given relevance,
// sorted. The slice is a copy.
func (s *Store) DocList(topic int, rel bool) ([]string, error) {
	ids, ok := s.sorted[flagIndex(rel)][topic]
	if !ok {
		return nil, fmt.Errorf("%w: topic %d (relevant=%t)", errs.ErrKeyNotFound, topic, rel)
	}
	return append([]string(nil), ids...), nil
}

// Contains reports whether doc is judged for topic with the given relevance.
func (s *Store) Contains(topic int, doc string, rel bool) bool {
	_, ok := s.index[flagIndex(rel)][topic][doc]
	return ok
}

// Judged reports whether doc carries any judgment for topic.
func (s *Store) Judged(topic int, doc string) bool {
	return s.Contains(topic, doc, true) || s.Contains(topic, doc, false)
}

// Topics returns the topics that have judgments with the given relevance,
// ascending.
func (s *Store) Topics(rel bool) []int {
	m := s.sorted[flagIndex(rel)]
	out := make([]int, 0, len(m))
	for t := range m {
		out = append(out, t)
	}
	sort.Ints(out)
	return out
}

// RandomDocs draws exactly k documents from the topic's set. Draws are
// without replacement when k does not exceed the set size and with
// replacement otherwise.
func (s *Store) RandomDocs(rng *rand.Rand, k, topic int, rel bool) ([]string, error) {
	if k < 0 {
		return nil, fmt.Errorf("%w: negative sample size %d", errs.ErrInvalidConfiguration, k)
	}
	ids, ok := s.sorted[flagIndex(rel)][topic]
	if !ok {
		return nil, fmt.Errorf("%w: topic %d (relevant=%t)", errs.ErrKeyNotFound, topic, rel)
	}
	return Sample(rng, ids, k)
}

// Sample draws k items from pool: without replacement when k <= len(pool),
// with replacement otherwise. pool is not modified.
func Sample(rng *rand.Rand, pool []string, k int) ([]string, error) {
	if k < 0 {
		return nil, fmt.Errorf("%w: negative sample size %d", errs.ErrInvalidConfiguration, k)
	}
	if k == 0 {
		return []string{}, nil
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w: cannot draw %d from an empty pool", errs.ErrEmptySamplingPool, k)
	}

	out := make([]string, k)
	if k > len(pool) {
		for i := range out {
			out[i] = pool[rng.IntN(len(pool))]
		}
		return out, nil
	}

	// Partial Fisher-Yates over a copy.
	work := append([]string(nil), pool...)
	for i := 0; i < k; i++ {
		j := i + rng.IntN(len(work)-i)
		work[i], work[j] = work[j], work[i]
	}
	copy(out, work[:k])
	return out, nil
}

// Conflicts lists documents judged both relevant and irrelevant for the same
// topic, ordered by topic then id.
func (s *Store) Conflicts() []Conflict {
	var out []Conflict
	for _, topic := range s.Topics(true) {
		for _, id := range s.sorted[1][topic] {
			if s.Contains(topic, id, false) {
				out = append(out, Conflict{Topic: topic, DocID: id})
			}
		}
	}
	return out
}
