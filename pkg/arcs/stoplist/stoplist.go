// Package stoplist holds the stopword set consulted by the tokenizer.
package stoplist

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed stopwords_en.yaml
var englishYAML []byte

// Manager is a case-insensitive stopword set.
type Manager struct {
	stops map[string]struct{}
}

// NewManager creates a stoplist from the given terms.
func NewManager(initialStops []string) *Manager {
	m := &Manager{stops: make(map[string]struct{}, len(initialStops))}
	for _, s := range initialStops {
		m.Add(s)
	}
	return m
}

// English returns a fresh manager seeded with the built-in English list.
func English() *Manager {
	terms, err := Parse(englishYAML)
	if err != nil {
		// The embedded file is part of the build.
		panic(fmt.Sprintf("stoplist: embedded english list: %v", err))
	}
	return NewManager(terms)
}

// Parse decodes a YAML document of the form `terms: [a, b, ...]`.
func Parse(data []byte) ([]string, error) {
	var sl struct {
		Terms []string `yaml:"terms"`
	}
	if err := yaml.Unmarshal(data, &sl); err != nil {
		return nil, err
	}
	return sl.Terms, nil
}

// IsStop checks if a token is a stopword
func (m *Manager) IsStop(token string) bool {
	_, ok := m.stops[strings.ToLower(token)]
	return ok
}

// Add adds a token to the stoplist
func (m *Manager) Add(token string) {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return
	}
	m.stops[token] = struct{}{}
}

// Remove removes a token from the stoplist
func (m *Manager) Remove(token string) {
	delete(m.stops, strings.ToLower(token))
}

// Len returns the number of stopwords.
func (m *Manager) Len() int {
	return len(m.stops)
}

// All returns all stopwords, sorted.
func (m *Manager) All() []string {
	result := make([]string, 0, len(m.stops))
	for s := range m.stops {
		result = append(result, s)
	}
	sort.Strings(result)
	return result
}
