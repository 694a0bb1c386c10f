package config

import (
	"fmt"

	"github.com/cognicore/arcs/pkg/arcs/ingest"
	"github.com/cognicore/arcs/pkg/arcs/lexicon"
	"github.com/cognicore/arcs/pkg/arcs/stoplist"
)

// Loader loads the word list files and constructs the tokenizer.
type Loader struct {
	StoplistPath string
	LemmasPath   string
	Options      ingest.Options
}

// Components holds the loaded tokenizer pieces.
type Components struct {
	Tokenizer *ingest.Tokenizer
	Stoplist  *stoplist.Manager
	Lexicon   *lexicon.Lexicon
}

// NewLoader prepares a Loader from the tokenizer section of c.
func NewLoader(c Config) *Loader {
	return &Loader{
		StoplistPath: c.Tokenizer.Stoplist,
		LemmasPath:   c.Tokenizer.Lemmas,
		Options:      c.TokenizerOptions(),
	}
}

// Load reads the configured files and returns initialized components.
// Without a stoplist file the built-in English list is used; without a lemma
// file the built-in English lemma table is used when lemmatisation is on.
func (l *Loader) Load() (*Components, error) {
	comp := &Components{}

	if l.StoplistPath != "" {
		sl, err := LoadStoplist(l.StoplistPath)
		if err != nil {
			return nil, fmt.Errorf("load stoplist: %w", err)
		}
		comp.Stoplist = stoplist.NewManager(sl.Terms)
	} else {
		comp.Stoplist = stoplist.English()
	}

	if l.LemmasPath != "" {
		lex, err := LoadLemmas(l.LemmasPath)
		if err != nil {
			return nil, fmt.Errorf("load lemmas: %w", err)
		}
		comp.Lexicon = lex
	} else if l.Options.Lemma {
		comp.Lexicon = lexicon.English()
	}

	comp.Tokenizer = ingest.NewTokenizer(l.Options, comp.Stoplist)
	if comp.Lexicon != nil {
		comp.Tokenizer.SetLexicon(comp.Lexicon)
	}
	return comp, nil
}
