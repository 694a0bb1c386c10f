package vectorize

import (
	"errors"
	"io"
	"strings"
)

// LineSource yields trimmed lines until io.EOF. *stream.Reader satisfies it.
type LineSource interface {
	Next() (string, error)
}

// Vocabulary maps terms to vector columns in insertion order.
type Vocabulary struct {
	index map[string]int
	terms []string
}

// NewVocabulary builds a vocabulary from terms. Repeated terms keep their
// first column.
func NewVocabulary(terms ...string) *Vocabulary {
	v := &Vocabulary{index: make(map[string]int, len(terms))}
	for _, t := range terms {
		v.add(t)
	}
	return v
}

// LoadVocabulary reads one term per line. Extra columns (such as a corpus
// count) are ignored; blank lines are skipped.
func LoadVocabulary(src LineSource) (*Vocabulary, error) {
	v := NewVocabulary()
	for {
		line, err := src.Next()
		if errors.Is(err, io.EOF) {
			return v, nil
		}
		if err != nil {
			return nil, err
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		v.add(fields[0])
	}
}

func (v *Vocabulary) add(term string) {
	if term == "" {
		return
	}
	if _, ok := v.index[term]; ok {
		return
	}
	v.index[term] = len(v.terms)
	v.terms = append(v.terms, term)
}

// Column returns the column of term.
func (v *Vocabulary) Column(term string) (int, bool) {
	c, ok := v.index[term]
	return c, ok
}

// Terms returns the terms in column order.
func (v *Vocabulary) Terms() []string {
	return append([]string(nil), v.terms...)
}

// Len returns the number of terms.
func (v *Vocabulary) Len() int {
	return len(v.terms)
}
