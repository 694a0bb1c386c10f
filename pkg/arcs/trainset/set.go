package trainset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/arcs/pkg/arcs/errs"
)

const headerPrefix = "# build "

// ErrMisaligned reports columns of different lengths or a label outside {0,1}.
var ErrMisaligned = errors.New("trainset: misaligned columns")

// Set is a training set stored as three parallel columns. Row i is the
// example (DocIDs[i], Topics[i], Labels[i]).
type Set struct {
	ID     ulid.ULID
	DocIDs []string
	Topics []int
	Labels []int
}

func (s *Set) append(ids []string, topic, label int) {
	for _, id := range ids {
		s.DocIDs = append(s.DocIDs, id)
		s.Topics = append(s.Topics, topic)
		s.Labels = append(s.Labels, label)
	}
}

// Len returns the number of examples.
func (s *Set) Len() int {
	return len(s.DocIDs)
}

// Validate checks that the columns are aligned and labels are binary.
func (s *Set) Validate() error {
	if len(s.DocIDs) != len(s.Topics) || len(s.DocIDs) != len(s.Labels) {
		return fmt.Errorf("%w: %d doc ids, %d topics, %d labels", ErrMisaligned, len(s.DocIDs), len(s.Topics), len(s.Labels))
	}
	for i, l := range s.Labels {
		if l != 0 && l != 1 {
			return fmt.Errorf("%w: row %d has label %d", ErrMisaligned, i, l)
		}
	}
	return nil
}

// Shuffle applies one random permutation to all three columns.
func (s *Set) Shuffle(rng *rand.Rand) {
	rng.Shuffle(s.Len(), func(i, j int) {
		s.DocIDs[i], s.DocIDs[j] = s.DocIDs[j], s.DocIDs[i]
		s.Topics[i], s.Topics[j] = s.Topics[j], s.Topics[i]
		s.Labels[i], s.Labels[j] = s.Labels[j], s.Labels[i]
	})
}

// Summary counts the examples of one topic.
type Summary struct {
	Topic    int
	Positive int
	Negative int
}

// Summaries returns per-topic label counts ordered by topic.
func (s *Set) Summaries() []Summary {
	byTopic := make(map[int]*Summary)
	for i, t := range s.Topics {
		sum, ok := byTopic[t]
		if !ok {
			sum = &Summary{Topic: t}
			byTopic[t] = sum
		}
		if s.Labels[i] == 1 {
			sum.Positive++
		} else {
			sum.Negative++
		}
	}

	out := make([]Summary, 0, len(byTopic))
	for _, sum := range byTopic {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Topic < out[j].Topic })
	return out
}

// WriteTo writes the set as "doc_id topic label" lines after a build header.
func (s *Set) WriteTo(w io.Writer) (int64, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}

	bw := bufio.NewWriter(w)
	var n int64
	write := func(format string, args ...any) error {
		k, err := fmt.Fprintf(bw, format, args...)
		n += int64(k)
		return err
	}

	if err := write("%s%s\n", headerPrefix, s.ID); err != nil {
		return n, fmt.Errorf("%w: write training set: %w", errs.ErrIO, err)
	}
	for i := range s.DocIDs {
		if err := write("%s %d %d\n", s.DocIDs[i], s.Topics[i], s.Labels[i]); err != nil {
			return n, fmt.Errorf("%w: write training set: %w", errs.ErrIO, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return n, fmt.Errorf("%w: write training set: %w", errs.ErrIO, err)
	}
	return n, nil
}

// LineSource yields trimmed lines until io.EOF. *stream.Reader satisfies it.
type LineSource interface {
	Next() (string, error)
}

// Read loads a set written by WriteTo. The build header is optional.
func Read(src LineSource) (*Set, error) {
	s := &Set{}
	lineNo := 0
	for {
		line, err := src.Next()
		if errors.Is(err, io.EOF) {
			return s, nil
		}
		if err != nil {
			return nil, err
		}
		lineNo++
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			if rest, ok := strings.CutPrefix(line, headerPrefix); ok {
				id, err := ulid.ParseStrict(strings.TrimSpace(rest))
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: bad build id: %w", errs.ErrMalformedRecord, lineNo, err)
				}
				s.ID = id
			}
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("%w: line %d: want 3 columns, got %d", errs.ErrMalformedRecord, lineNo, len(fields))
		}
		topic, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad topic %q", errs.ErrMalformedRecord, lineNo, fields[1])
		}
		label, err := strconv.Atoi(fields[2])
		if err != nil || (label != 0 && label != 1) {
			return nil, fmt.Errorf("%w: line %d: bad label %q", errs.ErrMalformedRecord, lineNo, fields[2])
		}
		s.append([]string{fields[0]}, topic, label)
	}
}
