// Package trainset builds stratified (document, topic, label) training sets
// from relevance judgments and a document universe.
package trainset

import (
	crand "crypto/rand"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/cognicore/arcs/pkg/arcs/errs"
	"github.com/cognicore/arcs/pkg/arcs/qrels"
)

// Default topic range.
const (
	TopicStart = 51
	TopicEnd   = 450
)

// ErrAlreadyBuilt is returned by Build when the builder already produced a
// set and Reset was not called.
var ErrAlreadyBuilt = errors.New("trainset: already built, call Reset first")

// Judgments is the read-only view of relevance judgments the builder needs.
// *qrels.Store satisfies it.
type Judgments interface {
	Topics(rel bool) []int
	DocList(topic int, rel bool) ([]string, error)
	RandomDocs(rng *rand.Rand, k, topic int, rel bool) ([]string, error)
}

// TopicReport records what Build added for one topic.
type TopicReport struct {
	Topic    int
	Positive int
	Hard     int
	Easy     int
}

type options struct {
	ratio      Ratio
	start, end int
	strict     bool
	rng        *rand.Rand
	logger     *zap.Logger
}

// Option configures a Builder.
type Option func(*options)

// WithRatio overrides DefaultRatio.
func WithRatio(r Ratio) Option {
	return func(o *options) { o.ratio = r }
}

// WithTopicRange sets the inclusive topic range to process.
func WithTopicRange(start, end int) Option {
	return func(o *options) { o.start, o.end = start, end }
}

// WithStrictTopics makes Build fail with errs.ErrKeyNotFound on the first
// topic in range that has no relevant judgments instead of skipping it.
func WithStrictTopics(v bool) Option {
	return func(o *options) { o.strict = v }
}

// WithRand injects the random source used for sampling.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) { o.rng = rng }
}

// WithLogger sets the builder logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Builder assembles a training set. It is not safe for concurrent use.
type Builder struct {
	q        Judgments
	universe []string
	inverse  map[string]struct{}
	opts     options
	entropy  *ulid.MonotonicEntropy

	built   bool
	reports []TopicReport
}

// NewBuilder creates a builder. Duplicate ids in universe are dropped,
// keeping first occurrence order.
func NewBuilder(q Judgments, universe []string, opts ...Option) (*Builder, error) {
	o := options{
		ratio: DefaultRatio,
		start: TopicStart,
		end:   TopicEnd,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.ratio.Validate(); err != nil {
		return nil, err
	}
	if o.start > o.end {
		return nil, fmt.Errorf("%w: topic range %d..%d is empty", errs.ErrInvalidConfiguration, o.start, o.end)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	inverse := make(map[string]struct{}, len(universe))
	deduped := make([]string, 0, len(universe))
	for _, id := range universe {
		if _, dup := inverse[id]; dup {
			continue
		}
		inverse[id] = struct{}{}
		deduped = append(deduped, id)
	}

	return &Builder{
		q:        q,
		universe: deduped,
		inverse:  inverse,
		opts:     o,
		entropy:  ulid.Monotonic(crand.Reader, 0),
	}, nil
}

// Reset allows the builder to run again.
func (b *Builder) Reset() {
	b.built = false
	b.reports = nil
}

// Reports returns the per-topic counts of the last Build.
func (b *Builder) Reports() []TopicReport {
	return append([]TopicReport(nil), b.reports...)
}

// Build walks the topic range and, for every topic with relevant judgments,
// appends all relevant documents (label 1), hard negatives drawn from the
// judged-irrelevant set and easy negatives drawn from documents never judged
// for the topic (label 0). Topics without relevant judgments are skipped
// unless WithStrictTopics is set.
func (b *Builder) Build() (*Set, error) {
	if b.built {
		return nil, ErrAlreadyBuilt
	}

	withRelevant := make(map[int]struct{})
	for _, t := range b.q.Topics(true) {
		withRelevant[t] = struct{}{}
	}

	set := &Set{ID: ulid.MustNew(ulid.Now(), b.entropy)}
	var (
		reports []TopicReport
		skipped []int
	)

	for topic := b.opts.start; topic <= b.opts.end; topic++ {
		if _, ok := withRelevant[topic]; !ok && !b.opts.strict {
			skipped = append(skipped, topic)
			continue
		}

		relevant, err := b.q.DocList(topic, true)
		if err != nil {
			return nil, fmt.Errorf("topic %d relevant documents: %w", topic, err)
		}
		hardCount, easyCount := NegativeCounts(len(relevant), b.opts.ratio)

		hard, err := b.q.RandomDocs(b.opts.rng, hardCount, topic, false)
		if err != nil {
			return nil, fmt.Errorf("topic %d hard negatives: %w", topic, err)
		}
		irrelevant, err := b.q.DocList(topic, false)
		if err != nil {
			return nil, fmt.Errorf("topic %d hard negatives: %w", topic, err)
		}
		easy, err := b.easyNegatives(topic, easyCount, relevant, irrelevant)
		if err != nil {
			return nil, err
		}

		set.append(relevant, topic, 1)
		set.append(hard, topic, 0)
		set.append(easy, topic, 0)
		reports = append(reports, TopicReport{
			Topic:    topic,
			Positive: len(relevant),
			Hard:     len(hard),
			Easy:     len(easy),
		})
	}

	if len(skipped) > 0 {
		b.opts.logger.Debug("Skipped topics without relevant judgments",
			zap.Int("count", len(skipped)),
			zap.Ints("topics", skipped))
	}

	b.built = true
	b.reports = reports
	b.opts.logger.Info("Built training set",
		zap.String("id", set.ID.String()),
		zap.Int("topics", len(reports)),
		zap.Int("examples", set.Len()))
	return set, nil
}

// easyNegatives draws k documents from the universe minus the judged union,
// without replacement when the pool is large enough and with replacement
// otherwise.
func (b *Builder) easyNegatives(topic, k int, relevant, irrelevant []string) ([]string, error) {
	if k == 0 {
		return []string{}, nil
	}

	judged := make(map[string]struct{}, len(relevant)+len(irrelevant))
	for _, id := range relevant {
		judged[id] = struct{}{}
	}
	for _, id := range irrelevant {
		judged[id] = struct{}{}
	}
	excluded := 0
	for id := range judged {
		if _, ok := b.inverse[id]; ok {
			excluded++
		}
	}

	poolSize := len(b.universe) - excluded
	if poolSize <= 0 {
		return nil, fmt.Errorf("%w: topic %d: every document in the universe is judged", errs.ErrEmptySamplingPool, topic)
	}

	// A large pool is sampled by rejection; a small one is materialized.
	if k <= poolSize && poolSize > 4*k {
		out := make([]string, 0, k)
		taken := make(map[int]struct{}, k)
		for len(out) < k {
			i := b.opts.rng.IntN(len(b.universe))
			if _, dup := taken[i]; dup {
				continue
			}
			if _, skip := judged[b.universe[i]]; skip {
				continue
			}
			taken[i] = struct{}{}
			out = append(out, b.universe[i])
		}
		return out, nil
	}

	pool := make([]string, 0, poolSize)
	for _, id := range b.universe {
		if _, skip := judged[id]; !skip {
			pool = append(pool, id)
		}
	}
	return qrels.Sample(b.opts.rng, pool, k)
}
