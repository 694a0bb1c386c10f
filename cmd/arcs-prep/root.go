package main

import (
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cognicore/arcs/internal/logging"
	"github.com/cognicore/arcs/internal/metrics"
	"github.com/cognicore/arcs/pkg/arcs/config"
	"github.com/cognicore/arcs/pkg/arcs/stream"
)

var (
	// configPath is the YAML configuration file
	configPath string
	// logLevel overrides logging.level from the config
	logLevel string
	// metricsFile receives Prometheus text metrics after the command
	metricsFile string

	cfg      config.Config
	logger   *zap.Logger
	recorder *metrics.Recorder
)

var rootCmd = &cobra.Command{
	Use:   "arcs-prep",
	Short: "Prepare TREC training data for relevance models",
	Long: `arcs-prep parses TREC document collections, topic files and relevance
judgments, and builds stratified (document, topic, label) training sets.

Examples:
  # Tokenize a collection into a snapshot
  arcs-prep parse-docs ./collection -o docs.tsv

  # Check a snapshot for duplicate document ids
  arcs-prep verify docs.tsv

  # Load document vectors into SQLite
  arcs-prep import-vectors vectors.txt --db vectors.db --vocab vocab.txt

  # Build a training set
  arcs-prep build --qrels qrels.txt --db vectors.db --topics topics.txt -o train.txt`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if configPath != "" {
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
		} else {
			cfg = config.Default()
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		logger, err = logging.New(cfg.Logging.Level, cfg.Logging.Format)
		if err != nil {
			return err
		}
		recorder = metrics.New()
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		defer logger.Sync() //nolint:errcheck
		if metricsFile == "" {
			return nil
		}
		if err := recorder.WriteTextfile(metricsFile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
		logger.Debug("Wrote metrics", zap.String("path", metricsFile))
		return nil
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config (defaults built in)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus text metrics to this file")
}

// newRand seeds from sampling.seed, or from the clock when it is 0.
func newRand() *rand.Rand {
	seed := cfg.Sampling.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed))
}

// openLines opens a plain line-oriented input (qrels, vectors, vocabularies).
func openLines(path string, opts ...stream.Option) (*stream.Reader, error) {
	return stream.Open(path, append([]stream.Option{stream.WithLinesAreDocuments(true)}, opts...)...)
}

// outputWriter returns stdout for "" or "-", otherwise a created file.
func outputWriter(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, nil
}

// writeAndClose runs write against wc and closes it. The close error is
// returned when the write itself succeeded.
func writeAndClose(wc io.WriteCloser, write func(io.Writer) error) (err error) {
	defer func() {
		if cerr := wc.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
	}()
	return write(wc)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
