package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cognicore/arcs/internal/metrics"
	"github.com/cognicore/arcs/pkg/arcs"
	"github.com/cognicore/arcs/pkg/arcs/batch"
	"github.com/cognicore/arcs/pkg/arcs/config"
	"github.com/cognicore/arcs/pkg/arcs/errs"
	"github.com/cognicore/arcs/pkg/arcs/qrels"
	"github.com/cognicore/arcs/pkg/arcs/topics"
	"github.com/cognicore/arcs/pkg/arcs/vectorize"
)

var (
	buildQrels   string
	buildDB      string
	buildVectors string
	buildTopics  string
	buildVocab   string
	buildOutput  string

	// buildBatchSize overrides sampling.batch_size when positive
	buildBatchSize int
	buildEpochs    int
	buildBatches   string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a stratified training set from qrels and document vectors",
	Long: `build samples, for every topic in the configured range, all relevant
documents, judged-irrelevant "hard" negatives and unjudged "easy" negatives
in the configured ratio, then writes "doc topic label" lines.

The document universe is the id set of the vector source (--db or --vectors).

With --batches, the row indexes of every full batch are written per epoch as
"epoch batch idx idx ..." lines, reshuffled between epochs when
sampling.shuffle is set.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildQrels, "qrels", "", "Relevance judgments file")
	buildCmd.Flags().StringVar(&buildDB, "db", "", "SQLite vector database (from import-vectors)")
	buildCmd.Flags().StringVar(&buildVectors, "vectors", "", "Text vectors file, used when --db is not set")
	buildCmd.Flags().StringVar(&buildTopics, "topics", "", "Topics file, enables topic vector diagnostics")
	buildCmd.Flags().StringVar(&buildVocab, "vocab", "", "Vocabulary file (overrides the one stored in --db)")
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "Training set file (default stdout)")
	buildCmd.Flags().IntVar(&buildBatchSize, "batch-size", 0, "Rows per batch (default sampling.batch_size)")
	buildCmd.Flags().IntVar(&buildEpochs, "epochs", 1, "Epochs of batches to write with --batches")
	buildCmd.Flags().StringVar(&buildBatches, "batches", "", "Write batch row indexes to this file")
	_ = buildCmd.MarkFlagRequired("qrels")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start := time.Now()

	q, err := loadQrels(buildQrels)
	if err != nil {
		return err
	}

	vectors, vocab, done, err := vectorSource(ctx, buildDB, buildVectors)
	if err != nil {
		return err
	}
	defer done() //nolint:errcheck

	if buildVocab != "" {
		if vocab, err = loadVocabulary(buildVocab); err != nil {
			return err
		}
	}

	var set *topics.Set
	if buildTopics != "" {
		if set, err = loadTopics(buildTopics); err != nil {
			return err
		}
	}

	rng := newRand()
	a, err := arcs.New(arcs.Options{
		Qrels:      q,
		Topics:     set,
		Vectors:    vectors,
		Vocabulary: vocab,
		Ratio:      cfg.Sampling.Ratio,
		TopicStart: cfg.Sampling.TopicStart,
		TopicEnd:   cfg.Sampling.TopicEnd,
		Rand:       rng,
		Logger:     logger,

		StrictTopics: cfg.Sampling.Strict,
	})
	if err != nil {
		return err
	}

	ts, err := a.CreateTrainingSet(ctx, cfg.Sampling.Shuffle)
	if err != nil {
		return fmt.Errorf("build training set: %w", err)
	}
	recordReports(a)

	if set != nil && vocab != nil {
		if err := reportTopicSpace(a); err != nil {
			return err
		}
	}

	out, err := outputWriter(buildOutput)
	if err != nil {
		return err
	}
	err = writeAndClose(out, func(w io.Writer) error {
		_, err := ts.WriteTo(w)
		return err
	})
	if err != nil {
		return fmt.Errorf("write training set: %w", err)
	}

	size := cfg.Sampling.BatchSize
	if buildBatchSize > 0 {
		size = buildBatchSize
	}
	gen, err := batch.New(ts.Len(), size, cfg.Sampling.Shuffle, rng)
	if err != nil {
		return err
	}
	if buildBatches != "" {
		if err := saveBatches(buildBatches, gen, buildEpochs); err != nil {
			return err
		}
	}

	recorder.Stage("build", start)
	logger.Info("Built training set",
		zap.String("id", ts.ID.String()),
		zap.Int("examples", ts.Len()),
		zap.Int("topics", len(a.Reports())),
		zap.Int("batches", gen.Len()),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// saveBatches writes one "epoch\tbatch\tidx idx ..." line per full batch.
func saveBatches(path string, gen *batch.Generator, epochs int) error {
	if epochs < 1 {
		return fmt.Errorf("%w: epochs must be positive, got %d", errs.ErrInvalidConfiguration, epochs)
	}
	out, err := outputWriter(path)
	if err != nil {
		return err
	}
	err = writeAndClose(out, func(w io.Writer) error {
		bw := bufio.NewWriter(w)
		for e := 0; e < epochs; e++ {
			if e > 0 {
				gen.EndEpoch()
			}
			for i := 0; i < gen.Len(); i++ {
				idx, err := gen.Indexes(i)
				if err != nil {
					return err
				}
				fields := make([]string, len(idx))
				for j, v := range idx {
					fields[j] = strconv.Itoa(v)
				}
				if _, err := fmt.Fprintf(bw, "%d\t%d\t%s\n", e, i, strings.Join(fields, " ")); err != nil {
					return err
				}
			}
		}
		return bw.Flush()
	})
	if err != nil {
		return fmt.Errorf("write batches %s: %w", path, err)
	}
	logger.Debug("Wrote batches",
		zap.String("path", path),
		zap.Int("epochs", epochs),
		zap.Int("per_epoch", gen.Len()))
	return nil
}

func loadQrels(path string) (*qrels.Store, error) {
	r, err := openLines(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	q, err := qrels.Load(r)
	if err != nil {
		return nil, fmt.Errorf("load qrels %s: %w", path, err)
	}

	for _, rel := range []bool{true, false} {
		n := 0
		for _, t := range q.Topics(rel) {
			docs, _ := q.DocList(t, rel)
			n += len(docs)
		}
		recorder.Judgments(rel, n)
	}
	for _, c := range q.Conflicts() {
		logger.Warn("Document judged both relevant and irrelevant",
			zap.Int("topic", c.Topic), zap.String("doc", c.DocID))
	}
	return q, nil
}

func loadTopics(path string) (*topics.Set, error) {
	comp, err := config.NewLoader(cfg).Load()
	if err != nil {
		return nil, err
	}
	r, err := openLines(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	set, err := topics.Load(r, comp.Tokenizer, topics.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("load topics %s: %w", path, err)
	}
	recorder.Topics(set.Len())
	return set, nil
}

func recordReports(a *arcs.Arcs) {
	for _, rep := range a.Reports() {
		recorder.Examples(metrics.KindPositive, rep.Positive)
		recorder.Examples(metrics.KindHard, rep.Hard)
		recorder.Examples(metrics.KindEasy, rep.Easy)
		logger.Debug("Sampled topic",
			zap.Int("topic", rep.Topic),
			zap.Int("positive", rep.Positive),
			zap.Int("hard", rep.Hard),
			zap.Int("easy", rep.Easy))
	}
}

func reportTopicSpace(a *arcs.Arcs) error {
	norm, err := vectorize.ParseNorm(cfg.Vectorize.Norm)
	if err != nil {
		return err
	}
	space, err := a.TopicSpace(cfg.Fields(), norm)
	if err != nil {
		return fmt.Errorf("vectorize topics: %w", err)
	}
	recorder.OOV(space.OOVCount())
	logger.Info("Vectorized topics",
		zap.Int("rows", space.Rows()),
		zap.Int("dim", space.Dim()),
		zap.Int("oov_terms", space.OOVCount()))
	return nil
}
