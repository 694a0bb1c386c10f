package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cognicore/arcs/pkg/arcs/docvec"
	"github.com/cognicore/arcs/pkg/arcs/docvec/memvec"
	"github.com/cognicore/arcs/pkg/arcs/docvec/sqlite"
	"github.com/cognicore/arcs/pkg/arcs/vectorize"
)

var (
	importDB    string
	importVocab string
)

var importVectorsCmd = &cobra.Command{
	Use:   "import-vectors <vectors.txt>",
	Short: "Load \"doc_id v1 v2 ...\" vectors into a SQLite database",
	Args:  cobra.ExactArgs(1),
	RunE:  runImportVectors,
}

func init() {
	importVectorsCmd.Flags().StringVar(&importDB, "db", "", "SQLite database path")
	importVectorsCmd.Flags().StringVar(&importVocab, "vocab", "", "Vocabulary file (one term per line) to store alongside")
	_ = importVectorsCmd.MarkFlagRequired("db")
	rootCmd.AddCommand(importVectorsCmd)
}

func runImportVectors(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	start := time.Now()

	st, err := sqlite.Open(ctx, importDB)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", importDB, cerr)
		}
	}()

	r, err := openLines(args[0])
	if err != nil {
		return err
	}
	defer r.Close()

	n, err := st.Import(ctx, r)
	if err != nil {
		return fmt.Errorf("import %s: %w", args[0], err)
	}

	if importVocab != "" {
		vocab, err := loadVocabulary(importVocab)
		if err != nil {
			return err
		}
		if err := st.ImportVocabulary(ctx, vocab); err != nil {
			return err
		}
		logger.Info("Imported vocabulary", zap.Int("terms", vocab.Len()))
	}

	recorder.Stage("import_vectors", start)
	logger.Info("Imported vectors", zap.Int("vectors", n), zap.Int("dim", st.Dim()))
	return nil
}

func loadVocabulary(path string) (*vectorize.Vocabulary, error) {
	r, err := openLines(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	vocab, err := vectorize.LoadVocabulary(r)
	if err != nil {
		return nil, fmt.Errorf("load vocabulary %s: %w", path, err)
	}
	return vocab, nil
}

// vectorSource opens the SQLite database when dbPath is set, otherwise a
// text export. The result is wrapped in an LRU cache. The vocabulary is nil
// unless the database stores one.
func vectorSource(ctx context.Context, dbPath, textPath string) (docvec.Source, *vectorize.Vocabulary, func() error, error) {
	var (
		src   docvec.Source
		vocab *vectorize.Vocabulary
		done  = func() error { return nil }
	)

	switch {
	case dbPath != "":
		st, err := sqlite.Open(ctx, dbPath)
		if err != nil {
			return nil, nil, nil, err
		}
		if vocab, err = st.Vocabulary(ctx); err != nil {
			st.Close()
			return nil, nil, nil, err
		}
		if vocab.Len() == 0 {
			vocab = nil
		}
		src, done = st, st.Close
	case textPath != "":
		r, err := openLines(textPath)
		if err != nil {
			return nil, nil, nil, err
		}
		defer r.Close()
		mem, err := memvec.LoadText(r)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("load vectors %s: %w", textPath, err)
		}
		src = mem
	default:
		return nil, nil, nil, fmt.Errorf("either --db or --vectors is required")
	}

	cached, err := docvec.NewCached(src, cfg.Vectorize.CacheSize)
	if err != nil {
		done()
		return nil, nil, nil, err
	}
	return cached, vocab, done, nil
}
