// Package errs defines the failure taxonomy shared by the arcs packages.
// Callers match with errors.Is; packages wrap these with context via %w.
package errs

import "errors"

var (
	// ErrIO reports an unreadable path or file.
	ErrIO = errors.New("io error")

	// ErrMalformedRecord reports a terminator that never appeared before the
	// stream ran out, or a record field that could not be parsed.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrKeyNotFound reports a topic, document or flag that was never indexed.
	ErrKeyNotFound = errors.New("key not found")

	// ErrInvalidConfiguration reports unusable options, such as a vectorizer
	// without fields or sampling ratios that do not sum to 1.0.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrEmptySamplingPool reports a sampling request with no candidates.
	ErrEmptySamplingPool = errors.New("empty sampling pool")

	// ErrOutOfRange reports a topic number outside the valid topic range.
	ErrOutOfRange = errors.New("out of range")
)
