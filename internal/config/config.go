// Package config holds the YAML application configuration shared by the
// split, train, and chat commands.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Persona configures one trainable persona.
type Persona struct {
	Name    string   `yaml:"name"`
	Corpus  string   `yaml:"corpus"`
	Aliases []string `yaml:"aliases,omitempty"`
}

// Config is the application configuration.
type Config struct {
	Personas []Persona `yaml:"personas"`

	// ModelDB is the SQLite bundle holding trained models.
	ModelDB string `yaml:"model_db"`

	// Overrides points to the YAML override rule file; empty disables
	// override rules.
	Overrides string `yaml:"overrides,omitempty"`

	MarkovOrder int `yaml:"markov_order"`

	// SimilarityThreshold gates retrieval vs. generative fallback.
	// Tunable; there is no principled derivation for a "right" value.
	// A pointer so an explicit 0 (always retrieve) is distinguishable
	// from unset.
	SimilarityThreshold *float64 `yaml:"similarity_threshold,omitempty"`

	MaxGeneratedTokens int `yaml:"max_generated_tokens"`
}

// Default returns the default two-persona configuration.
func Default() *Config {
	return &Config{
		Personas: []Persona{
			{Name: "bot1", Corpus: "data/bot1.txt"},
			{Name: "bot2", Corpus: "data/bot2.txt"},
		},
		ModelDB:             "models/persona.db",
		MarkovOrder:         2,
		SimilarityThreshold: floatPtr(0.55),
		MaxGeneratedTokens:  20,
	}
}

func floatPtr(v float64) *float64 { return &v }

// Load reads a config file and fills unset fields with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) applyDefaults() {
	def := Default()
	if len(c.Personas) == 0 {
		c.Personas = def.Personas
	}
	if c.ModelDB == "" {
		c.ModelDB = def.ModelDB
	}
	if c.MarkovOrder == 0 {
		c.MarkovOrder = def.MarkovOrder
	}
	if c.SimilarityThreshold == nil {
		c.SimilarityThreshold = def.SimilarityThreshold
	}
	if c.MaxGeneratedTokens == 0 {
		c.MaxGeneratedTokens = def.MaxGeneratedTokens
	}
}

func (c *Config) validate() error {
	seen := make(map[string]bool)
	for i, p := range c.Personas {
		if p.Name == "" {
			return fmt.Errorf("persona %d has no name", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate persona name %q", p.Name)
		}
		seen[p.Name] = true
		if p.Corpus == "" {
			return fmt.Errorf("persona %s has no corpus path", p.Name)
		}
	}
	if c.MarkovOrder < 1 {
		return fmt.Errorf("markov_order must be at least 1, got %d", c.MarkovOrder)
	}
	if t := *c.SimilarityThreshold; t < 0 || t > 1 {
		return fmt.Errorf("similarity_threshold must be in [0, 1], got %f", t)
	}
	return nil
}

// AliasMap returns the splitter's persona lookup: persona name to its
// accepted author name variants (the persona's own name plus aliases).
func (c *Config) AliasMap() map[string][]string {
	m := make(map[string][]string, len(c.Personas))
	for _, p := range c.Personas {
		m[p.Name] = append([]string{p.Name}, p.Aliases...)
	}
	return m
}
