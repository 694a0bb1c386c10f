// Package lexicon maps inflected word forms to their lemma.
package lexicon

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed lemmas_en.yaml
var englishYAML []byte

// Lexicon is a lemma table:
// - forms: lemma -> every known surface form (including the lemma)
// - reverseIndex: surface form -> lemma
//
// Example: "subsidy" -> ["subsidy", "subsidies"]
type Lexicon struct {
	forms        map[string][]string
	reverseIndex map[string]string
}

// New creates an empty lexicon.
func New() *Lexicon {
	return &Lexicon{
		forms:        make(map[string][]string),
		reverseIndex: make(map[string]string),
	}
}

// English returns a fresh lexicon seeded with the built-in English lemma
// table.
func English() *Lexicon {
	lex, err := Parse(englishYAML)
	if err != nil {
		panic(fmt.Sprintf("lexicon: embedded english table: %v", err))
	}
	return lex
}

// LoadFromYAML loads a lemma table from a YAML file.
//
// Expected format:
//
//	lemmas:
//	  - lemma: subsidy
//	    forms: [subsidies]
//	  - lemma: be
//	    forms: [is, are, was, were, been]
//
// All entries are lowercased; the lemma is included in its own form list.
func LoadFromYAML(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes the YAML lemma table format accepted by LoadFromYAML.
func Parse(data []byte) (*Lexicon, error) {
	var config struct {
		Lemmas []struct {
			Lemma string   `yaml:"lemma"`
			Forms []string `yaml:"forms"`
		} `yaml:"lemmas"`
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	lex := New()
	for _, entry := range config.Lemmas {
		lex.AddLemma(entry.Lemma, entry.Forms)
	}
	return lex, nil
}

// AddLemma registers forms of a lemma. The lemma is always the first entry
// of its form list. Re-adding a lemma replaces its previous forms.
func (l *Lexicon) AddLemma(lemma string, forms []string) {
	lemma = strings.ToLower(strings.TrimSpace(lemma))
	if lemma == "" {
		return
	}

	if old, exists := l.forms[lemma]; exists {
		for _, f := range old {
			delete(l.reverseIndex, f)
		}
	}

	normalized := make([]string, 0, len(forms)+1)
	seen := map[string]bool{lemma: true}
	normalized = append(normalized, lemma)

	for _, f := range forms {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" || seen[f] {
			continue
		}
		normalized = append(normalized, f)
		seen[f] = true
	}

	l.forms[lemma] = normalized
	for _, f := range normalized {
		l.reverseIndex[f] = lemma
	}
}

// Lemma returns the lemma of a token, or the lowercased token itself when it
// is not in the table.
//
// Examples:
//   - Lemma("Subsidies") -> "subsidy"
//   - Lemma("unknown") -> "unknown"
func (l *Lexicon) Lemma(token string) string {
	token = strings.ToLower(token)
	if lemma, ok := l.reverseIndex[token]; ok {
		return lemma
	}
	return token
}

// Forms returns all known forms sharing a lemma with token (lemma first).
// Unknown tokens return a slice holding only the token.
func (l *Lexicon) Forms(token string) []string {
	token = strings.ToLower(token)
	if forms, ok := l.forms[token]; ok {
		return forms
	}
	if lemma, ok := l.reverseIndex[token]; ok {
		return l.forms[lemma]
	}
	return []string{token}
}

// Has reports whether token is a known lemma or form.
func (l *Lexicon) Has(token string) bool {
	_, ok := l.reverseIndex[strings.ToLower(token)]
	return ok
}

// Stats returns statistics about the lexicon contents.
func (l *Lexicon) Stats() Stats {
	total := 0
	for _, forms := range l.forms {
		total += len(forms)
	}
	return Stats{Lemmas: len(l.forms), Forms: total}
}

// Stats holds statistics about lexicon contents.
type Stats struct {
	Lemmas int // Number of lemma groups
	Forms  int // Total number of forms across all groups
}
