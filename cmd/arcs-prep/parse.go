package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cognicore/arcs/pkg/arcs/config"
	"github.com/cognicore/arcs/pkg/arcs/corpus"
	"github.com/cognicore/arcs/pkg/arcs/stream"
	"github.com/cognicore/arcs/pkg/arcs/topics"
)

var parseOutput string

var parseDocsCmd = &cobra.Command{
	Use:   "parse-docs <path>",
	Short: "Parse a TREC document collection into a token snapshot",
	Long: `parse-docs walks a file or directory of <DOC> records and writes one
line per document: id, title and tokens separated by tabs.`,
	Args: cobra.ExactArgs(1),
	RunE: runParseDocs,
}

var parseTopicsCmd = &cobra.Command{
	Use:   "parse-topics <path>",
	Short: "Parse TREC topics and print their tokenized fields",
	Args:  cobra.ExactArgs(1),
	RunE:  runParseTopics,
}

func init() {
	parseDocsCmd.Flags().StringVarP(&parseOutput, "output", "o", "", "Snapshot file (default stdout)")
	parseTopicsCmd.Flags().StringVarP(&parseOutput, "output", "o", "", "Output file (default stdout)")
	rootCmd.AddCommand(parseDocsCmd, parseTopicsCmd)
}

// countingSource records every document pulled through it.
type countingSource struct {
	src corpus.DocumentSource
}

func (c countingSource) Next() (corpus.Document, error) {
	d, err := c.src.Next()
	if err == nil {
		recorder.Document(d.HasTitle)
	}
	return d, err
}

func runParseDocs(cmd *cobra.Command, args []string) error {
	start := time.Now()
	comp, err := config.NewLoader(cfg).Load()
	if err != nil {
		return err
	}
	opts, err := cfg.StreamOptions()
	if err != nil {
		return err
	}
	r, err := stream.Open(args[0], opts...)
	if err != nil {
		return err
	}
	defer r.Close()

	out, err := outputWriter(parseOutput)
	if err != nil {
		return err
	}

	p := corpus.NewParser(r, comp.Tokenizer, append(cfg.ParserOptions(), corpus.WithLogger(logger))...)
	var n int
	err = writeAndClose(out, func(w io.Writer) error {
		var err error
		n, err = corpus.Save(w, countingSource{src: p})
		return err
	})
	if err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}
	recorder.Stage("parse_docs", start)
	logger.Info("Parsed documents",
		zap.Int("documents", n),
		zap.Int("files", len(r.Files())),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func runParseTopics(cmd *cobra.Command, args []string) error {
	start := time.Now()
	comp, err := config.NewLoader(cfg).Load()
	if err != nil {
		return err
	}
	r, err := openLines(args[0])
	if err != nil {
		return err
	}
	defer r.Close()

	set, err := topics.Load(r, comp.Tokenizer, topics.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}

	out, err := outputWriter(parseOutput)
	if err != nil {
		return err
	}
	err = writeAndClose(out, func(w io.Writer) error {
		for _, n := range set.Numbers() {
			t, _ := set.Get(n)
			_, err := fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", t.Number,
				strings.Join(t.Title, " "),
				strings.Join(t.Description, " "),
				strings.Join(t.Narrative, " "))
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write topics: %w", err)
	}

	recorder.Topics(set.Len())
	recorder.Stage("parse_topics", start)
	logger.Info("Parsed topics", zap.Int("topics", set.Len()))
	return nil
}
