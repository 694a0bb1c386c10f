package lexicon

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLexiconNew(t *testing.T) {
	lex := New()
	if lex == nil {
		t.Fatal("New() returned nil")
	}
	if stats := lex.Stats(); stats.Lemmas != 0 {
		t.Errorf("New lexicon should have 0 lemmas, got %d", stats.Lemmas)
	}
}

func TestLexiconAddLemma(t *testing.T) {
	lex := New()
	lex.AddLemma("subsidy", []string{"subsidies", "Subsidy"})

	if got := lex.Lemma("subsidies"); got != "subsidy" {
		t.Errorf("Lemma('subsidies') = %q, want 'subsidy'", got)
	}
	if got := lex.Lemma("SUBSIDIES"); got != "subsidy" {
		t.Errorf("Lemma should be case-insensitive, got %q", got)
	}
	if got := lex.Lemma("airbus"); got != "airbus" {
		t.Errorf("unknown token should pass through, got %q", got)
	}

	forms := lex.Forms("subsidies")
	if len(forms) != 2 || forms[0] != "subsidy" {
		t.Errorf("Forms('subsidies') = %v, want [subsidy subsidies]", forms)
	}
}

func TestLexiconReplaceLemma(t *testing.T) {
	lex := New()
	lex.AddLemma("run", []string{"ran", "running"})
	lex.AddLemma("run", []string{"runs"})

	if lex.Has("ran") {
		t.Error("old forms should be removed when a lemma is replaced")
	}
	if got := lex.Lemma("runs"); got != "run" {
		t.Errorf("Lemma('runs') = %q, want 'run'", got)
	}
}

func TestLexiconLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lemmas.yaml")
	content := `lemmas:
  - lemma: be
    forms: [is, are, was, were]
  - lemma: country
    forms: [countries]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	lex, err := LoadFromYAML(path)
	if err != nil {
		t.Fatalf("LoadFromYAML: %v", err)
	}

	stats := lex.Stats()
	if stats.Lemmas != 2 || stats.Forms != 7 {
		t.Errorf("Stats = %+v, want 2 lemmas and 7 forms", stats)
	}
	if got := lex.Lemma("were"); got != "be" {
		t.Errorf("Lemma('were') = %q, want 'be'", got)
	}
}

func TestLexiconLoadErrors(t *testing.T) {
	if _, err := LoadFromYAML("/nonexistent/lemmas.yaml"); err == nil {
		t.Error("Should error on non-existent file")
	}
	if _, err := Parse([]byte("lemmas: [unclosed")); err == nil {
		t.Error("Should error on malformed YAML")
	}
}

func TestEnglishTable(t *testing.T) {
	lex := English()
	tests := map[string]string{
		"subsidies": "subsidy",
		"were":      "be",
		"paid":      "pay",
		"children":  "child",
		"Countries": "country",
		"airbus":    "airbus",
	}
	for form, want := range tests {
		if got := lex.Lemma(form); got != want {
			t.Errorf("Lemma(%q) = %q, want %q", form, got, want)
		}
	}

	// Each call returns an independent table.
	lex.AddLemma("airbus", []string{"airbuses"})
	if English().Has("airbuses") {
		t.Error("English() should not share state between calls")
	}
}
