// Package corpus parses TREC-style tagged document collections into
// tokenized documents.
//
// A record looks like
//
//	<DOC>
//	<DOCNO> FR880104-0001 </DOCNO>
//	<TTL>Airbus subsidies</TTL>
//	<TEXT> ... </TEXT>
//	</DOC>
//
// Tags may also share a line (<DOC><DOCNO>D1</DOCNO><TEXT>..</TEXT></DOC>).
package corpus

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/cognicore/arcs/pkg/arcs/errs"
)

const (
	docStart   = "<DOC>"
	docEnd     = "</DOC>"
	docNoOpen  = "<DOCNO>"
	docNoClose = "</DOCNO>"

	// lineSeparator is reinserted between the lines of a record body.
	lineSeparator = "\n"
)

// LineSource yields trimmed lines until io.EOF. *stream.Reader satisfies it.
type LineSource interface {
	Next() (string, error)
}

// Tokenizer turns cleaned text into tokens. *ingest.Tokenizer satisfies it.
type Tokenizer interface {
	Tokenize(text string) []string
}

// Document is one parsed record. It is owned by the caller.
type Document struct {
	ID       string
	Tokens   []string
	Title    string
	HasTitle bool
}

type options struct {
	mergeTitle    bool
	noisePrefixes []string
	logger        *zap.Logger
}

// Option configures a Parser.
type Option func(*options)

// WithMergeTitle controls whether a found title is prepended to the body
// before tokenizing. Enabled by default.
func WithMergeTitle(v bool) Option {
	return func(o *options) { o.mergeTitle = v }
}

// WithNoisePrefixes sets markers skipped at the start of a title span.
func WithNoisePrefixes(prefixes ...string) Option {
	return func(o *options) { o.noisePrefixes = prefixes }
}

// WithLogger sets the parser logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Parser is a pull iterator over the documents of a line source. It is
// single-pass and not safe for concurrent use.
type Parser struct {
	cur    *cursor
	tok    Tokenizer
	opts   options
	count  int
	err    error
	logger *zap.Logger
}

// NewParser creates a document parser over src.
func NewParser(src LineSource, tok Tokenizer, opts ...Option) *Parser {
	o := options{mergeTitle: true}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{
		cur:    &cursor{src: src},
		tok:    tok,
		opts:   o,
		logger: logger,
	}
}

// Count returns the number of documents emitted so far.
func (p *Parser) Count() int {
	return p.count
}

// Next returns the next document, or io.EOF when no further record starts.
// A record cut off by the end of input yields errs.ErrMalformedRecord; after
// any error the parser keeps returning it.
func (p *Parser) Next() (Document, error) {
	if p.err != nil {
		return Document{}, p.err
	}

	if _, err := p.cur.readUntil(docStart, false, false); err != nil {
		if errors.Is(err, io.EOF) {
			p.err = io.EOF
			return Document{}, io.EOF
		}
		return p.fail(err)
	}

	line, err := p.cur.readUntil(docNoOpen, true, false)
	if err != nil {
		return p.fail(p.truncated(err, docNoOpen, ""))
	}
	id, rest := splitDocNo(line)
	if rest != "" {
		p.cur.unread(rest)
	}
	if id == "" {
		p.logger.Warn("Document has empty DOCNO", zap.Int("record", p.count+1))
	}

	content, err := p.cur.readUntil(docEnd, false, true)
	if err != nil {
		return p.fail(p.truncated(err, docEnd, id))
	}

	text, title, hasTitle := parseContent(content, p.opts.noisePrefixes)
	if p.opts.mergeTitle && hasTitle {
		text = title + " " + text
	}

	p.count++
	return Document{
		ID:       id,
		Tokens:   p.tok.Tokenize(text),
		Title:    title,
		HasTitle: hasTitle,
	}, nil
}

// ReadAll drains the parser.
func (p *Parser) ReadAll() ([]Document, error) {
	var docs []Document
	for {
		d, err := p.Next()
		if errors.Is(err, io.EOF) {
			return docs, nil
		}
		if err != nil {
			return docs, err
		}
		docs = append(docs, d)
	}
}

func (p *Parser) fail(err error) (Document, error) {
	p.err = err
	return Document{}, err
}

func (p *Parser) truncated(err error, tag, id string) error {
	if !errors.Is(err, io.EOF) {
		return err
	}
	if id == "" {
		return fmt.Errorf("%w: record %d: input ended before %s", errs.ErrMalformedRecord, p.count+1, tag)
	}
	return fmt.Errorf("%w: record %d (%s): input ended before %s", errs.ErrMalformedRecord, p.count+1, id, tag)
}

// splitDocNo extracts the identifier from a line starting with <DOCNO> and
// returns whatever follows </DOCNO>.
func splitDocNo(line string) (id, rest string) {
	body := strings.TrimPrefix(line, docNoOpen)
	k := strings.Index(body, docNoClose)
	if k < 0 {
		return strings.TrimSpace(body), ""
	}
	return strings.TrimSpace(body[:k]), strings.TrimSpace(body[k+len(docNoClose):])
}

// cursor is a line source with pushback. Items holding several lines
// (whole-file mode) are split so each file parses like a line stream.
type cursor struct {
	src     LineSource
	pending []string
}

func (c *cursor) next() (string, error) {
	if n := len(c.pending); n > 0 {
		line := c.pending[n-1]
		c.pending = c.pending[:n-1]
		return line, nil
	}

	item, err := c.src.Next()
	if err != nil {
		return "", err
	}
	if !strings.Contains(item, "\n") {
		return item, nil
	}

	lines := strings.Split(item, "\n")
	for i := len(lines) - 1; i > 0; i-- {
		c.pending = append(c.pending, strings.TrimSpace(lines[i]))
	}
	return strings.TrimSpace(lines[0]), nil
}

func (c *cursor) unread(line string) {
	c.pending = append(c.pending, line)
}

// readUntil consumes lines until one contains tag.
//
// With collectAll every line before the match (and the part of the matching
// line before the tag) is gathered, joined by the line separator. With
// collectMatchLine the matching line from the tag onward is appended too;
// otherwise the text after the tag is pushed back for the next read.
// Exhaustion is reported as io.EOF together with whatever was gathered.
func (c *cursor) readUntil(tag string, collectMatchLine, collectAll bool) (string, error) {
	var b strings.Builder
	sep := ""
	add := func(s string) {
		b.WriteString(sep)
		b.WriteString(s)
		sep = lineSeparator
	}

	for {
		line, err := c.next()
		if err != nil {
			return b.String(), err
		}

		idx := strings.Index(line, tag)
		if idx < 0 {
			if collectAll {
				add(line)
			}
			continue
		}

		if before := strings.TrimSpace(line[:idx]); collectAll && before != "" {
			add(before)
		}
		if collectMatchLine {
			add(line[idx:])
		} else if rest := strings.TrimSpace(line[idx+len(tag):]); rest != "" {
			c.unread(rest)
		}
		return b.String(), nil
	}
}
