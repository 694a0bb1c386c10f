// Package arcs ties relevance judgments, topics and document vectors
// together into a training set for relevance models.
package arcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/arcs/pkg/arcs/docvec"
	"github.com/cognicore/arcs/pkg/arcs/errs"
	"github.com/cognicore/arcs/pkg/arcs/topics"
	"github.com/cognicore/arcs/pkg/arcs/trainset"
	"github.com/cognicore/arcs/pkg/arcs/vectorize"
)

// Arcs is the training-set preparation facade. It is not safe for
// concurrent use.
type Arcs struct {
	qrels      trainset.Judgments
	topics     *topics.Set
	vectors    docvec.Source
	vocab      *vectorize.Vocabulary
	universe   []string
	ratio      trainset.Ratio
	start, end int
	strict     bool
	rng        *rand.Rand
	logger     *zap.Logger

	vectorizer *vectorize.Vectorizer
	set        *trainset.Set
	reports    []trainset.TopicReport
}

// Options configures an Arcs instance. Qrels and either Vectors or Universe
// are required; Topics and Vocabulary are needed for topic vectors.
type Options struct {
	Qrels      trainset.Judgments
	Topics     *topics.Set
	Vectors    docvec.Source
	Vocabulary *vectorize.Vocabulary
	Universe   []string // overrides Vectors.IDs as the document universe
	Ratio      trainset.Ratio
	TopicStart int
	TopicEnd   int
	Rand       *rand.Rand
	Logger     *zap.Logger

	// StrictTopics fails the build on a topic in range without relevant
	// judgments instead of skipping it.
	StrictTopics bool
}

// New creates an Arcs instance with the given dependencies.
func New(opts Options) (*Arcs, error) {
	if opts.Qrels == nil {
		return nil, fmt.Errorf("%w: relevance judgments are required", errs.ErrInvalidConfiguration)
	}
	if opts.Vectors == nil && opts.Universe == nil {
		return nil, fmt.Errorf("%w: a vector source or a document universe is required", errs.ErrInvalidConfiguration)
	}
	if opts.Ratio == (trainset.Ratio{}) {
		opts.Ratio = trainset.DefaultRatio
	}
	if opts.TopicStart == 0 && opts.TopicEnd == 0 {
		opts.TopicStart, opts.TopicEnd = trainset.TopicStart, trainset.TopicEnd
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	a := &Arcs{
		qrels:    opts.Qrels,
		topics:   opts.Topics,
		vectors:  opts.Vectors,
		vocab:    opts.Vocabulary,
		universe: opts.Universe,
		ratio:    opts.Ratio,
		start:    opts.TopicStart,
		end:      opts.TopicEnd,
		strict:   opts.StrictTopics,
		rng:      opts.Rand,
		logger:   opts.Logger,
	}
	if a.topics != nil {
		a.vectorizer = vectorize.New(a.topics)
	}
	return a, nil
}

// CreateTrainingSet builds a fresh training set, replacing any earlier one,
// and optionally shuffles its rows.
func (a *Arcs) CreateTrainingSet(ctx context.Context, shuffle bool) (*trainset.Set, error) {
	universe := a.universe
	if universe == nil {
		ids, err := a.vectors.IDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("list document ids: %w", err)
		}
		universe = ids
	}

	b, err := trainset.NewBuilder(a.qrels, universe,
		trainset.WithRatio(a.ratio),
		trainset.WithTopicRange(a.start, a.end),
		trainset.WithStrictTopics(a.strict),
		trainset.WithRand(a.rng),
		trainset.WithLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}
	set, err := b.Build()
	if err != nil {
		return nil, err
	}
	if shuffle {
		set.Shuffle(a.rng)
	}

	a.set, a.reports = set, b.Reports()
	return set, nil
}

// TrainingSet returns the last built set, or nil.
func (a *Arcs) TrainingSet() *trainset.Set {
	return a.set
}

// Reports returns per-topic counts of the last build.
func (a *Arcs) Reports() []trainset.TopicReport {
	return append([]trainset.TopicReport(nil), a.reports...)
}

// TopicSpace vectorizes the loaded topics.
func (a *Arcs) TopicSpace(fields vectorize.Fields, norm vectorize.Norm) (*vectorize.Space, error) {
	if a.vectorizer == nil || a.vocab == nil {
		return nil, fmt.Errorf("%w: topic vectors need topics and a vocabulary", errs.ErrInvalidConfiguration)
	}
	return a.vectorizer.Vectorize(a.vocab, fields, norm)
}

// TopicVectors returns the topic vector of every training row.
func (a *Arcs) TopicVectors(fields vectorize.Fields, norm vectorize.Norm) ([][]float32, error) {
	set, err := a.built()
	if err != nil {
		return nil, err
	}
	space, err := a.TopicSpace(fields, norm)
	if err != nil {
		return nil, err
	}
	out := make([][]float32, set.Len())
	for i, topic := range set.Topics {
		if out[i], err = space.Vector(topic); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DocVectors returns the document vector of every training row.
func (a *Arcs) DocVectors(ctx context.Context) ([][]float32, error) {
	set, err := a.built()
	if err != nil {
		return nil, err
	}
	if a.vectors == nil {
		return nil, fmt.Errorf("%w: no vector source", errs.ErrInvalidConfiguration)
	}
	out := make([][]float32, set.Len())
	for i, id := range set.DocIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if out[i], err = a.vectors.Vector(ctx, id); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (a *Arcs) built() (*trainset.Set, error) {
	if a.set == nil {
		return nil, fmt.Errorf("%w: training set not built yet", errs.ErrInvalidConfiguration)
	}
	return a.set, nil
}

// Example is one training row with its vectors.
type Example struct {
	DocID       string
	Topic       int
	DocVector   []float32
	TopicVector []float32
	Label       int
}

// ExampleIterator walks the training set row by row.
type ExampleIterator struct {
	ctx     context.Context
	set     *trainset.Set
	vectors docvec.Source
	space   *vectorize.Space
	next    int
}

// Examples returns an iterator over the training rows with document and
// topic vectors resolved lazily.
func (a *Arcs) Examples(ctx context.Context, fields vectorize.Fields, norm vectorize.Norm) (*ExampleIterator, error) {
	set, err := a.built()
	if err != nil {
		return nil, err
	}
	if a.vectors == nil {
		return nil, fmt.Errorf("%w: no vector source", errs.ErrInvalidConfiguration)
	}
	space, err := a.TopicSpace(fields, norm)
	if err != nil {
		return nil, err
	}
	return &ExampleIterator{ctx: ctx, set: set, vectors: a.vectors, space: space}, nil
}

// Next returns the next example, or io.EOF after the last row.
func (it *ExampleIterator) Next() (Example, error) {
	if it.next >= it.set.Len() {
		return Example{}, io.EOF
	}
	if err := it.ctx.Err(); err != nil {
		return Example{}, err
	}

	i := it.next
	ex := Example{DocID: it.set.DocIDs[i], Topic: it.set.Topics[i], Label: it.set.Labels[i]}

	var err error
	if ex.DocVector, err = it.vectors.Vector(it.ctx, ex.DocID); err != nil {
		return Example{}, err
	}
	if ex.TopicVector, err = it.space.Vector(ex.Topic); err != nil {
		return Example{}, err
	}
	it.next++
	return ex, nil
}

// Collect drains the iterator.
func (it *ExampleIterator) Collect() ([]Example, error) {
	var out []Example
	for {
		ex, err := it.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, ex)
	}
}
