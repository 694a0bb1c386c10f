// Package config loads arcs settings from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/arcs/pkg/arcs/corpus"
	"github.com/cognicore/arcs/pkg/arcs/errs"
	"github.com/cognicore/arcs/pkg/arcs/ingest"
	"github.com/cognicore/arcs/pkg/arcs/lexicon"
	"github.com/cognicore/arcs/pkg/arcs/stoplist"
	"github.com/cognicore/arcs/pkg/arcs/stream"
	"github.com/cognicore/arcs/pkg/arcs/trainset"
	"github.com/cognicore/arcs/pkg/arcs/vectorize"
)

// Config holds the settings of a training-set preparation run.
type Config struct {
	Tokenizer TokenizerConfig `yaml:"tokenizer"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Sampling  SamplingConfig  `yaml:"sampling"`
	Vectorize VectorizeConfig `yaml:"vectorize"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// TokenizerConfig mirrors ingest.Options plus the word list files.
type TokenizerConfig struct {
	MinLen         int      `yaml:"min_len"`
	MaxLen         int      `yaml:"max_len"`
	Lowercase      bool     `yaml:"lowercase"`
	Lemma          bool     `yaml:"lemma"`
	UseStopwords   bool     `yaml:"use_stopwords"`
	AlphaOnly      bool     `yaml:"alpha_only"`
	ExtraStopwords []string `yaml:"extra_stopwords"`
	Stoplist       string   `yaml:"stoplist"` // YAML `terms:` file; empty = built-in English list
	Lemmas         string   `yaml:"lemmas"`   // YAML lemma table; empty = built-in English table
}

// CorpusConfig controls how collections are walked and parsed.
type CorpusConfig struct {
	LinesAreDocuments bool     `yaml:"lines_are_documents"`
	MinDepth          int      `yaml:"min_depth"`
	MaxDepth          int      `yaml:"max_depth"` // -1 = unlimited
	Pattern           string   `yaml:"pattern"`
	ExcludePattern    string   `yaml:"exclude_pattern"`
	MergeTitle        bool     `yaml:"merge_title"`
	NoisePrefixes     []string `yaml:"noise_prefixes"`
}

// SamplingConfig controls training-set construction.
type SamplingConfig struct {
	Ratio      trainset.Ratio `yaml:"ratio"`
	TopicStart int            `yaml:"topic_start"`
	TopicEnd   int            `yaml:"topic_end"`
	Strict     bool           `yaml:"strict_topics"`
	Seed       uint64         `yaml:"seed"` // 0 = seed from the clock
	Shuffle    bool           `yaml:"shuffle"`
	BatchSize  int            `yaml:"batch_size"`
}

// VectorizeConfig selects topic fields and normalization.
type VectorizeConfig struct {
	Title       bool   `yaml:"title"`
	Description bool   `yaml:"description"`
	Narrative   bool   `yaml:"narrative"`
	Norm        string `yaml:"norm"` // l1 or l2
	CacheSize   int    `yaml:"cache_size"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// Default returns the settings used when no file overrides them.
func Default() Config {
	tok := ingest.DefaultOptions()
	return Config{
		Tokenizer: TokenizerConfig{
			MinLen:       tok.MinLen,
			MaxLen:       tok.MaxLen,
			Lowercase:    tok.Lowercase,
			Lemma:        tok.Lemma,
			UseStopwords: tok.UseStopwords,
			AlphaOnly:    tok.AlphaOnly,
		},
		Corpus: CorpusConfig{
			LinesAreDocuments: true,
			MaxDepth:          -1,
			MergeTitle:        true,
		},
		Sampling: SamplingConfig{
			Ratio:      trainset.DefaultRatio,
			TopicStart: trainset.TopicStart,
			TopicEnd:   trainset.TopicEnd,
			Shuffle:    true,
			BatchSize:  32,
		},
		Vectorize: VectorizeConfig{
			Title:     true,
			Norm:      string(vectorize.L1),
			CacheSize: 4096,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a YAML file on top of Default, expands ${VAR} references,
// applies defaults and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("%w: read config %s: %w", errs.ErrIO, path, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration data. See Load.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(expandEnvVars(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: parse config: %w", errs.ErrInvalidConfiguration, err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	d := Default()
	if c.Tokenizer.MinLen <= 0 {
		c.Tokenizer.MinLen = d.Tokenizer.MinLen
	}
	if c.Tokenizer.MaxLen <= 0 {
		c.Tokenizer.MaxLen = d.Tokenizer.MaxLen
	}
	if c.Sampling.Ratio == (trainset.Ratio{}) {
		c.Sampling.Ratio = d.Sampling.Ratio
	}
	if c.Sampling.TopicStart == 0 && c.Sampling.TopicEnd == 0 {
		c.Sampling.TopicStart, c.Sampling.TopicEnd = d.Sampling.TopicStart, d.Sampling.TopicEnd
	}
	if c.Sampling.BatchSize <= 0 {
		c.Sampling.BatchSize = d.Sampling.BatchSize
	}
	if c.Vectorize.Norm == "" {
		c.Vectorize.Norm = d.Vectorize.Norm
	}
	if c.Vectorize.CacheSize <= 0 {
		c.Vectorize.CacheSize = d.Vectorize.CacheSize
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = d.Logging.Format
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.Tokenizer.MinLen > c.Tokenizer.MaxLen {
		return fmt.Errorf("%w: tokenizer.min_len %d exceeds max_len %d", errs.ErrInvalidConfiguration, c.Tokenizer.MinLen, c.Tokenizer.MaxLen)
	}
	if err := c.Sampling.Ratio.Validate(); err != nil {
		return fmt.Errorf("sampling.ratio: %w", err)
	}
	if c.Sampling.TopicStart > c.Sampling.TopicEnd {
		return fmt.Errorf("%w: sampling.topic_start %d exceeds topic_end %d", errs.ErrInvalidConfiguration, c.Sampling.TopicStart, c.Sampling.TopicEnd)
	}
	if !c.Vectorize.Title && !c.Vectorize.Description && !c.Vectorize.Narrative {
		return fmt.Errorf("%w: vectorize needs at least one of title, description, narrative", errs.ErrInvalidConfiguration)
	}
	if _, err := vectorize.ParseNorm(c.Vectorize.Norm); err != nil {
		return fmt.Errorf("vectorize.norm: %w", err)
	}
	for _, p := range []string{c.Corpus.Pattern, c.Corpus.ExcludePattern} {
		if _, err := compileOptional(p); err != nil {
			return err
		}
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: logging.format must be \"json\" or \"console\", got %q", errs.ErrInvalidConfiguration, c.Logging.Format)
	}
	return nil
}

// TokenizerOptions converts the tokenizer section.
func (c *Config) TokenizerOptions() ingest.Options {
	t := c.Tokenizer
	return ingest.Options{
		MinLen:         t.MinLen,
		MaxLen:         t.MaxLen,
		Lowercase:      t.Lowercase,
		Lemma:          t.Lemma,
		UseStopwords:   t.UseStopwords,
		ExtraStopwords: t.ExtraStopwords,
		AlphaOnly:      t.AlphaOnly,
	}
}

// StreamOptions converts the corpus walking settings.
func (c *Config) StreamOptions() ([]stream.Option, error) {
	opts := []stream.Option{
		stream.WithLinesAreDocuments(c.Corpus.LinesAreDocuments),
		stream.WithMinDepth(c.Corpus.MinDepth),
		stream.WithMaxDepth(c.Corpus.MaxDepth),
	}
	include, err := compileOptional(c.Corpus.Pattern)
	if err != nil {
		return nil, err
	}
	if include != nil {
		opts = append(opts, stream.WithPattern(include))
	}
	exclude, err := compileOptional(c.Corpus.ExcludePattern)
	if err != nil {
		return nil, err
	}
	if exclude != nil {
		opts = append(opts, stream.WithExcludePattern(exclude))
	}
	return opts, nil
}

// ParserOptions converts the corpus parsing settings.
func (c *Config) ParserOptions() []corpus.Option {
	return []corpus.Option{
		corpus.WithMergeTitle(c.Corpus.MergeTitle),
		corpus.WithNoisePrefixes(c.Corpus.NoisePrefixes...),
	}
}

// Fields converts the vectorize field selection.
func (c *Config) Fields() vectorize.Fields {
	return vectorize.Fields{
		Title:       c.Vectorize.Title,
		Description: c.Vectorize.Description,
		Narrative:   c.Vectorize.Narrative,
	}
}

func compileOptional(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: pattern %q: %w", errs.ErrInvalidConfiguration, pattern, err)
	}
	return re, nil
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment values.
func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		name, def, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(name)
		if val == "" && hasDefault {
			val = def
		}
		return []byte(val)
	})
}

// Stoplist is the stopword file format.
type Stoplist struct {
	Terms []string `yaml:"terms"`
}

// LoadStoplist loads stopwords from a YAML file.
func LoadStoplist(path string) (*Stoplist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read stoplist %s: %w", errs.ErrIO, path, err)
	}
	terms, err := stoplist.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: parse stoplist %s: %w", errs.ErrInvalidConfiguration, path, err)
	}
	return &Stoplist{Terms: terms}, nil
}

// LoadLemmas loads a lemma table from a YAML file.
func LoadLemmas(path string) (*lexicon.Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read lemmas %s: %w", errs.ErrIO, path, err)
	}
	lex, err := lexicon.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: parse lemmas %s: %w", errs.ErrInvalidConfiguration, path, err)
	}
	return lex, nil
}
