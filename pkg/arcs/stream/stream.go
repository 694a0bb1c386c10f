// Package stream turns files and directories into a lazy sequence of
// trimmed text lines. It is the token source shared by the document, topic
// and judgment parsers.
package stream

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/cognicore/arcs/pkg/arcs/errs"
)

// maxLineSize bounds a single line. TREC files occasionally carry very long
// unwrapped paragraphs.
const maxLineSize = 16 << 20

// ErrClosed is returned by Next after Close.
var ErrClosed = errors.New("stream: reader closed")

// LineSource is anything that yields lines until io.EOF.
// *Reader satisfies it; parsers accept it so tests can feed lines directly.
type LineSource interface {
	Next() (string, error)
}

type source struct {
	name string
	open func() (io.ReadCloser, error)
}

// Reader is a single-pass, non-restartable line reader over one or more
// sources. It is not safe for concurrent use.
type Reader struct {
	sources      []source
	linesAreDocs bool
	keepSpace    bool

	idx     int
	current io.ReadCloser
	name    string
	scanner *bufio.Scanner
	closed  bool
}

type options struct {
	linesAreDocs bool
	keepSpace    bool
	minDepth     int
	maxDepth     int
	pattern      *regexp.Regexp
	exclude      *regexp.Regexp
}

// Option configures Open.
type Option func(*options)

// WithLinesAreDocuments selects line mode (true, the default) or whole-file
// mode, where every file is yielded as a single trimmed item.
func WithLinesAreDocuments(v bool) Option {
	return func(o *options) { o.linesAreDocs = v }
}

// WithKeepSpace disables trimming of surrounding whitespace. Only a trailing
// carriage return is dropped. Tab-separated formats whose leading field may
// be empty need it.
func WithKeepSpace(v bool) Option {
	return func(o *options) { o.keepSpace = v }
}

// WithMinDepth skips files shallower than depth. Files directly inside the
// input directory are at depth 0.
func WithMinDepth(depth int) Option {
	return func(o *options) { o.minDepth = depth }
}

// WithMaxDepth skips files deeper than depth. Negative means unlimited.
func WithMaxDepth(depth int) Option {
	return func(o *options) { o.maxDepth = depth }
}

// WithPattern keeps only files whose base name matches re.
func WithPattern(re *regexp.Regexp) Option {
	return func(o *options) { o.pattern = re }
}

// WithExcludePattern drops files whose base name matches re.
func WithExcludePattern(re *regexp.Regexp) Option {
	return func(o *options) { o.exclude = re }
}

func defaultOptions() options {
	return options{linesAreDocs: true, maxDepth: -1}
}

// Open resolves path (a file or a directory) into a Reader. Directories are
// walked recursively in lexical order. An empty directory is not an error;
// the returned Reader is simply exhausted.
func Open(path string, opts ...Option) (*Reader, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %w", errs.ErrIO, path, err)
	}

	var files []string
	if info.IsDir() {
		files, err = walk(path, o)
		if err != nil {
			return nil, err
		}
	} else {
		files = []string{path}
	}

	r := &Reader{linesAreDocs: o.linesAreDocs, keepSpace: o.keepSpace}
	for _, f := range files {
		name := f
		r.sources = append(r.sources, source{
			name: name,
			open: func() (io.ReadCloser, error) { return os.Open(name) },
		})
	}
	return r, nil
}

// FromReader wraps an already open reader as a single-source Reader. The
// Reader takes ownership and closes rc when it is exhausted or closed.
func FromReader(name string, rc io.ReadCloser, opts ...Option) *Reader {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Reader{
		linesAreDocs: o.linesAreDocs,
		keepSpace:    o.keepSpace,
		sources: []source{{
			name: name,
			open: func() (io.ReadCloser, error) { return rc, nil },
		}},
	}
}

// FromString is FromReader over an in-memory string.
func FromString(name, text string, opts ...Option) *Reader {
	return FromReader(name, io.NopCloser(strings.NewReader(text)), opts...)
}

func walk(root string, o options) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		depth := strings.Count(filepath.ToSlash(rel), "/")
		if depth < o.minDepth {
			return nil
		}
		if o.maxDepth >= 0 && depth > o.maxDepth {
			return nil
		}

		base := d.Name()
		if o.pattern != nil && !o.pattern.MatchString(base) {
			return nil
		}
		if o.exclude != nil && o.exclude.MatchString(base) {
			return nil
		}

		files = append(files, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walk %s: %w", errs.ErrIO, root, err)
	}
	sort.Strings(files)
	return files, nil
}

// Files returns the resolved source names in reading order.
func (r *Reader) Files() []string {
	names := make([]string, len(r.sources))
	for i, s := range r.sources {
		names[i] = s.name
	}
	return names
}

// LinesAreDocuments reports whether the reader is in line mode.
func (r *Reader) LinesAreDocuments() bool {
	return r.linesAreDocs
}

// Next returns the next trimmed line (or whole file in whole-file mode).
// It returns io.EOF once every source is consumed.
func (r *Reader) Next() (string, error) {
	if r.closed {
		return "", ErrClosed
	}

	for {
		if r.current == nil {
			if r.idx >= len(r.sources) {
				return "", io.EOF
			}
			if err := r.openNext(); err != nil {
				return "", err
			}
		}

		if !r.linesAreDocs {
			data, err := io.ReadAll(r.current)
			name := r.name
			r.release()
			if err != nil {
				return "", fmt.Errorf("%w: read %s: %w", errs.ErrIO, name, err)
			}
			return r.clean(string(data)), nil
		}

		if r.scanner.Scan() {
			return r.clean(r.scanner.Text()), nil
		}

		err := r.scanner.Err()
		name := r.name
		r.release()
		if err != nil {
			return "", fmt.Errorf("%w: read %s: %w", errs.ErrIO, name, err)
		}
	}
}

func (r *Reader) openNext() error {
	src := r.sources[r.idx]
	r.idx++

	rc, err := src.open()
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", errs.ErrIO, src.name, err)
	}
	r.current = rc
	r.name = src.name
	if r.linesAreDocs {
		r.scanner = bufio.NewScanner(rc)
		r.scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	}
	return nil
}

func (r *Reader) release() {
	if r.current != nil {
		_ = r.current.Close()
	}
	r.current = nil
	r.scanner = nil
	r.name = ""
}

// Close releases the open file handle, if any. It is safe to call more than
// once and after the reader is exhausted.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	var err error
	if r.current != nil {
		err = r.current.Close()
	}
	r.current = nil
	r.scanner = nil
	return err
}

// clean drops invalid UTF-8 and surrounding whitespace.
func (r *Reader) clean(s string) string {
	s = strings.ToValidUTF8(s, "")
	if r.keepSpace {
		return strings.TrimSuffix(s, "\r")
	}
	return strings.TrimSpace(s)
}
