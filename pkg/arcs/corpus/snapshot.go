package corpus

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/cognicore/arcs/pkg/arcs/errs"
)

// Snapshot format, one document per line:
//
//	doc_id <TAB> title <TAB> token token token ...
//
// An empty title field means the document had no title. Read snapshots with
// stream.WithKeepSpace so empty fields keep their tabs.

var fieldCleaner = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ")

// DocumentSource yields documents until io.EOF. *Parser and *SnapshotReader
// satisfy it.
type DocumentSource interface {
	Next() (Document, error)
}

// Save drains p and writes every document to w in snapshot format.
// It returns the number of documents written. A document without an id
// cannot be stored and fails with errs.ErrMalformedRecord.
func Save(w io.Writer, p DocumentSource) (int, error) {
	bw := bufio.NewWriter(w)
	n := 0
	for {
		d, err := p.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return n, err
		}
		if strings.TrimSpace(d.ID) == "" {
			_ = bw.Flush()
			return n, fmt.Errorf("%w: document %d has no id", errs.ErrMalformedRecord, n+1)
		}
		if err := writeSnapshotLine(bw, d); err != nil {
			return n, err
		}
		n++
	}
	if err := bw.Flush(); err != nil {
		return n, fmt.Errorf("%w: flush snapshot: %w", errs.ErrIO, err)
	}
	return n, nil
}

func writeSnapshotLine(w *bufio.Writer, d Document) error {
	title := ""
	if d.HasTitle {
		title = fieldCleaner.Replace(d.Title)
	}
	_, err := fmt.Fprintf(w, "%s\t%s\t%s\n", fieldCleaner.Replace(d.ID), title, strings.Join(d.Tokens, " "))
	if err != nil {
		return fmt.Errorf("%w: write snapshot: %w", errs.ErrIO, err)
	}
	return nil
}

// SnapshotReader reads documents back from snapshot lines.
type SnapshotReader struct {
	src  LineSource
	line int
}

// NewSnapshotReader creates a reader over snapshot lines.
func NewSnapshotReader(src LineSource) *SnapshotReader {
	return &SnapshotReader{src: src}
}

// Next returns the next stored document, or io.EOF. Blank lines are skipped.
func (r *SnapshotReader) Next() (Document, error) {
	for {
		line, err := r.src.Next()
		if err != nil {
			return Document{}, err
		}
		r.line++
		if strings.TrimSpace(line) == "" {
			continue
		}

		parts := strings.SplitN(line, "\t", 3)
		id := strings.TrimSpace(parts[0])
		if id == "" {
			return Document{}, fmt.Errorf("%w: snapshot line %d: missing document id", errs.ErrMalformedRecord, r.line)
		}

		d := Document{ID: id}
		if len(parts) > 1 && parts[1] != "" {
			d.Title, d.HasTitle = parts[1], true
		}
		if len(parts) > 2 {
			d.Tokens = strings.Fields(parts[2])
		}
		return d, nil
	}
}

// ReadSnapshot loads every document of a snapshot.
func ReadSnapshot(src LineSource) ([]Document, error) {
	r := NewSnapshotReader(src)
	var docs []Document
	for {
		d, err := r.Next()
		if errors.Is(err, io.EOF) {
			return docs, nil
		}
		if err != nil {
			return docs, err
		}
		docs = append(docs, d)
	}
}

// VerifyReport summarizes a snapshot.
type VerifyReport struct {
	Total      int
	Duplicates []string // ids seen more than once, sorted
}

// Verify scans a snapshot and reports ids that occur more than once.
// Duplicate ids are legal in a collection; this is a diagnostic.
func Verify(src LineSource) (VerifyReport, error) {
	r := NewSnapshotReader(src)
	seen := make(map[string]int)
	var report VerifyReport

	for {
		d, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return report, err
		}
		report.Total++
		seen[d.ID]++
	}

	for id, n := range seen {
		if n > 1 {
			report.Duplicates = append(report.Duplicates, id)
		}
	}
	sort.Strings(report.Duplicates)
	return report, nil
}
