// Package sqlite stores document vectors and the embedding vocabulary in a
// SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/cognicore/arcs/pkg/arcs/docvec"
	"github.com/cognicore/arcs/pkg/arcs/docvec/memvec"
	"github.com/cognicore/arcs/pkg/arcs/errs"
	"github.com/cognicore/arcs/pkg/arcs/vectorize"
)

const metaDim = "dim"

// LineSource yields trimmed lines until io.EOF. *stream.Reader satisfies it.
type LineSource interface {
	Next() (string, error)
}

// Store implements docvec.Source over SQLite.
type Store struct {
	db  *sql.DB
	dim int
}

var _ docvec.Source = (*Store)(nil)

// Open opens (or creates) a vector database with WAL mode enabled.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", errs.ErrIO, path, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: enable WAL: %w", errs.ErrIO, err)
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.loadDim(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS doc_vectors (
	doc_id TEXT PRIMARY KEY,
	vec BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS vocabulary (
	term TEXT PRIMARY KEY,
	idx INTEGER NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%w: init schema: %w", errs.ErrIO, err)
	}
	return nil
}

func (s *Store) loadDim(ctx context.Context) error {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", metaDim).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: read dim: %w", errs.ErrIO, err)
	}
	dim, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%w: stored dim %q", errs.ErrMalformedRecord, raw)
	}
	s.dim = dim
	return nil
}

// Vector implements docvec.Source.
func (s *Store) Vector(ctx context.Context, id string) ([]float32, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, "SELECT vec FROM doc_vectors WHERE doc_id = ?", id).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: document %q has no vector", errs.ErrKeyNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read vector %q: %w", errs.ErrIO, id, err)
	}
	return docvec.DecodeVector(blob)
}

// IDs implements docvec.Source. Ids are sorted.
func (s *Store) IDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT doc_id FROM doc_vectors ORDER BY doc_id")
	if err != nil {
		return nil, fmt.Errorf("%w: list ids: %w", errs.ErrIO, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: list ids: %w", errs.ErrIO, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list ids: %w", errs.ErrIO, err)
	}
	return ids, nil
}

// Dim implements docvec.Source. It is 0 until vectors are imported.
func (s *Store) Dim() int {
	return s.dim
}

// Import loads "doc_id v1 v2 ..." lines in one transaction, replacing
// existing vectors with the same id. It returns the number of vectors stored.
func (s *Store) Import(ctx context.Context, src LineSource) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin import: %w", errs.ErrIO, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT OR REPLACE INTO doc_vectors (doc_id, vec) VALUES (?, ?)")
	if err != nil {
		return 0, fmt.Errorf("%w: prepare import: %w", errs.ErrIO, err)
	}
	defer stmt.Close()

	dim := s.dim
	n, lineNo := 0, 0
	for {
		line, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, err
		}
		lineNo++
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		id, v, err := memvec.ParseLine(line)
		if err != nil {
			return 0, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if dim == 0 {
			dim = len(v)
		}
		if len(v) != dim {
			return 0, fmt.Errorf("%w: line %d: vector has %d values, want %d", errs.ErrMalformedRecord, lineNo, len(v), dim)
		}
		if _, err := stmt.ExecContext(ctx, id, docvec.EncodeVector(v)); err != nil {
			return 0, fmt.Errorf("%w: store vector %q: %w", errs.ErrIO, id, err)
		}
		n++
	}

	if dim != s.dim {
		if _, err := tx.ExecContext(ctx, "INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)", metaDim, strconv.Itoa(dim)); err != nil {
			return 0, fmt.Errorf("%w: store dim: %w", errs.ErrIO, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit import: %w", errs.ErrIO, err)
	}
	s.dim = dim
	return n, nil
}

// ImportVocabulary replaces the stored vocabulary with terms in column order.
func (s *Store) ImportVocabulary(ctx context.Context, vocab *vectorize.Vocabulary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin vocabulary import: %w", errs.ErrIO, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM vocabulary"); err != nil {
		return fmt.Errorf("%w: clear vocabulary: %w", errs.ErrIO, err)
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO vocabulary (term, idx) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("%w: prepare vocabulary import: %w", errs.ErrIO, err)
	}
	defer stmt.Close()

	for i, term := range vocab.Terms() {
		if _, err := stmt.ExecContext(ctx, term, i); err != nil {
			return fmt.Errorf("%w: store term %q: %w", errs.ErrIO, term, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit vocabulary import: %w", errs.ErrIO, err)
	}
	return nil
}

// Vocabulary returns the stored vocabulary.
func (s *Store) Vocabulary(ctx context.Context) (*vectorize.Vocabulary, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT term FROM vocabulary ORDER BY idx")
	if err != nil {
		return nil, fmt.Errorf("%w: read vocabulary: %w", errs.ErrIO, err)
	}
	defer rows.Close()

	var terms []string
	for rows.Next() {
		var term string
		if err := rows.Scan(&term); err != nil {
			return nil, fmt.Errorf("%w: read vocabulary: %w", errs.ErrIO, err)
		}
		terms = append(terms, term)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read vocabulary: %w", errs.ErrIO, err)
	}
	return vectorize.NewVocabulary(terms...), nil
}
