package ingest

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cognicore/arcs/pkg/arcs/lexicon"
	"github.com/cognicore/arcs/pkg/arcs/stoplist"
)

func TestTokenizerBasic(t *testing.T) {
	tokenizer := NewTokenizer(DefaultOptions(), stoplist.NewManager([]string{"the", "a", "and", "of", "over"}))

	tokens := tokenizer.Tokenize("The quick brown fox jumps over the lazy dog")

	want := []string{"quick", "brown", "fox", "jumps", "lazy", "dog"}
	if diff := cmp.Diff(want, tokens); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenizerSplitsHyphens(t *testing.T) {
	tokenizer := NewTokenizer(DefaultOptions(), nil)

	tokens := tokenizer.Tokenize("machine-learning co-operation")
	want := []string{"machine", "learning", "co", "operation"}
	if diff := cmp.Diff(want, tokens); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenizerCaseNormalization(t *testing.T) {
	tokenizer := NewTokenizer(DefaultOptions(), nil)

	for _, tok := range tokenizer.Tokenize("AIRBUS Subsidies Europe") {
		if tok != strings.ToLower(tok) {
			t.Errorf("Token %s should be lowercased", tok)
		}
	}

	opts := DefaultOptions()
	opts.Lowercase = false
	keep := NewTokenizer(opts, nil).Tokenize("AIRBUS Europe")
	if diff := cmp.Diff([]string{"AIRBUS", "Europe"}, keep); diff != "" {
		t.Errorf("case should be preserved (-want +got):\n%s", diff)
	}
}

func TestTokenizerLengthBounds(t *testing.T) {
	opts := DefaultOptions()
	opts.MinLen = 3
	opts.MaxLen = 5
	tokenizer := NewTokenizer(opts, nil)

	tokens := tokenizer.Tokenize("ox cat horse elephant")
	if diff := cmp.Diff([]string{"cat", "horse"}, tokens); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenizerLengthCountsRunes(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxLen = 4
	tokenizer := NewTokenizer(opts, nil)

	// "café" is 5 bytes but 4 characters.
	tokens := tokenizer.Tokenize("café")
	if len(tokens) != 1 {
		t.Errorf("expected 'café' to pass a 4-character limit, got %v", tokens)
	}
}

func TestTokenizerAlphaOnly(t *testing.T) {
	tokenizer := NewTokenizer(DefaultOptions(), nil)
	tokens := tokenizer.Tokenize("in 1988 the f16 fleet grew")
	for _, tok := range tokens {
		if tok == "1988" || tok == "f16" {
			t.Errorf("alpha-only should drop %q", tok)
		}
	}

	opts := DefaultOptions()
	opts.AlphaOnly = false
	mixed := NewTokenizer(opts, nil).Tokenize("the f16 in 1988")
	if diff := cmp.Diff([]string{"the", "f16", "in", "1988"}, mixed); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenizerStopwordsToggle(t *testing.T) {
	opts := DefaultOptions()
	opts.UseStopwords = false
	tokenizer := NewTokenizer(opts, stoplist.English())

	tokens := tokenizer.Tokenize("the cat")
	if len(tokens) != 2 {
		t.Errorf("stopwords disabled should keep 'the', got %v", tokens)
	}
}

func TestTokenizerExtraStopwords(t *testing.T) {
	opts := DefaultOptions()
	opts.ExtraStopwords = []string{"document", "Relevant"}
	tokenizer := NewTokenizer(opts, stoplist.English())

	tokens := tokenizer.Tokenize("a relevant document must mention airbus")
	if diff := cmp.Diff([]string{"mention", "airbus"}, tokens); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenizerLemma(t *testing.T) {
	lex := lexicon.New()
	lex.AddLemma("subsidy", []string{"subsidies"})
	lex.AddLemma("be", []string{"is", "are"})

	tokenizer := NewTokenizer(DefaultOptions(), stoplist.NewManager([]string{"be"}))
	tokenizer.SetLexicon(lex)

	tokens := tokenizer.Tokenize("Subsidies are reported")
	if diff := cmp.Diff([]string{"subsidy", "reported"}, tokens); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}

	opts := DefaultOptions()
	opts.Lemma = false
	surface := NewTokenizer(opts, nil)
	surface.SetLexicon(lex)
	if got := surface.Tokenize("subsidies"); len(got) != 1 || got[0] != "subsidies" {
		t.Errorf("lemma disabled should keep surface form, got %v", got)
	}
}

func TestAddRemoveStopword(t *testing.T) {
	tokenizer := NewTokenizer(DefaultOptions(), stoplist.NewManager([]string{"the"}))

	tokens := tokenizer.Tokenize("the cat")
	if len(tokens) != 1 || tokens[0] != "cat" {
		t.Error("Should filter 'the'")
	}

	tokenizer.RemoveStopword("the")
	if tokens := tokenizer.Tokenize("the cat"); len(tokens) != 2 {
		t.Error("'the' should not be filtered after removal")
	}

	tokenizer.AddStopword("cat")
	if tokens := tokenizer.Tokenize("the cat"); len(tokens) != 1 || tokens[0] != "the" {
		t.Errorf("'cat' should be filtered after adding, got %v", tokens)
	}
}

func TestTokenizerEmpty(t *testing.T) {
	tokenizer := NewTokenizer(DefaultOptions(), nil)
	if tokens := tokenizer.Tokenize("  \n\t ... "); len(tokens) != 0 {
		t.Errorf("expected no tokens, got %v", tokens)
	}
}
