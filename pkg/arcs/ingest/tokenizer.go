// Package ingest turns cleaned document and topic text into token sequences.
package ingest

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cognicore/arcs/pkg/arcs/lexicon"
	"github.com/cognicore/arcs/pkg/arcs/stoplist"
)

// Options controls token filtering and normalization.
type Options struct {
	MinLen         int      // minimum token length in characters
	MaxLen         int      // maximum token length in characters
	Lowercase      bool     // lowercase surface forms
	Lemma          bool     // emit lemmas (requires a lexicon)
	UseStopwords   bool     // drop stopwords
	ExtraStopwords []string // added on top of the stoplist
	AlphaOnly      bool     // drop tokens containing non-letters
}

// DefaultOptions mirrors the corpus tokenizer settings: 2..15 characters,
// lowercase lemmas, stopwords removed, letters only.
func DefaultOptions() Options {
	return Options{
		MinLen:       2,
		MaxLen:       15,
		Lowercase:    true,
		Lemma:        true,
		UseStopwords: true,
		AlphaOnly:    true,
	}
}

// Tokenizer handles text tokenization and normalization
type Tokenizer struct {
	opts    Options
	stops   *stoplist.Manager
	lexicon *lexicon.Lexicon // Optional: lemma table
}

// NewTokenizer creates a tokenizer. opts.ExtraStopwords are added to stops;
// a nil stoplist means no stopwords besides those.
func NewTokenizer(opts Options, stops *stoplist.Manager) *Tokenizer {
	if stops == nil {
		stops = stoplist.NewManager(nil)
	}
	for _, w := range opts.ExtraStopwords {
		stops.Add(w)
	}
	return &Tokenizer{opts: opts, stops: stops}
}

// SetLexicon assigns the lemma table used when Options.Lemma is set.
// Example: "subsidies" → "subsidy"
func (t *Tokenizer) SetLexicon(lex *lexicon.Lexicon) {
	t.lexicon = lex
}

// Options returns the tokenizer configuration.
func (t *Tokenizer) Options() Options {
	return t.opts
}

// Tokenize splits text on anything that is not a letter or digit and
// returns the filtered, normalized tokens in order.
func (t *Tokenizer) Tokenize(text string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		if word := t.processToken(current.String()); word != "" {
			tokens = append(tokens, word)
		}
		current.Reset()
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			current.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()

	return tokens
}

// processToken applies the alpha filter, lemma/case normalization, length
// bounds and stopword filtering. It returns "" for dropped tokens.
func (t *Tokenizer) processToken(token string) string {
	if t.opts.AlphaOnly && !isAlpha(token) {
		return ""
	}

	lower := strings.ToLower(token)
	word := token
	if t.opts.Lowercase {
		word = lower
	}
	if t.opts.Lemma && t.lexicon != nil && t.lexicon.Has(lower) {
		word = t.lexicon.Lemma(lower)
	}

	n := utf8.RuneCountInString(word)
	if n < t.opts.MinLen || (t.opts.MaxLen > 0 && n > t.opts.MaxLen) {
		return ""
	}

	if t.opts.UseStopwords && (t.stops.IsStop(lower) || t.stops.IsStop(word)) {
		return ""
	}

	return word
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// AddStopword adds a word to the stopword list
func (t *Tokenizer) AddStopword(word string) {
	t.stops.Add(word)
}

// RemoveStopword removes a word from the stopword list
func (t *Tokenizer) RemoveStopword(word string) {
	t.stops.Remove(word)
}
