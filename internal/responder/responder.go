// Package responder decides how a persona answers one input: override
// rules first, then confident retrieval, then Markov fallback. The
// branches are strictly ordered and internal degradations never surface
// as errors; a reply is always produced.
package responder

import (
	"math/rand"
	"strings"
	"unicode"

	"github.com/rcliao/persona-bot/internal/override"
	"github.com/rcliao/persona-bot/internal/persona"
	"github.com/rcliao/persona-bot/internal/tokenizer"
)

// Config holds the per-turn decision tunables.
type Config struct {
	// SimilarityThreshold is the minimum cosine similarity for a
	// retrieved reply to be trusted over generation. A tunable with no
	// principled derivation; adjust per corpus.
	SimilarityThreshold float64

	// MaxGeneratedTokens caps fallback generation length.
	MaxGeneratedTokens int

	// ShortReplyWords: retrieved replies with fewer words than this get
	// a short generated tail appended.
	ShortReplyWords int

	// TailTokens caps the appended tail.
	TailTokens int
}

// DefaultConfig returns the decision defaults.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: 0.55,
		MaxGeneratedTokens:  20,
		ShortReplyWords:     4,
		TailTokens:          12,
	}
}

// cannedReplies back the final fallback when the chain produces nothing.
var cannedReplies = []string{
	"Hmm, tell me more.",
	"Oh? Interesting. Go on.",
	"I don't have much to say about that, but I'm listening.",
}

// Responder answers inputs for one persona.
type Responder struct {
	model *persona.Model
	rules override.RuleSet
	cfg   Config
	tok   *tokenizer.Tokenizer
	rng   *rand.Rand
}

// New creates a responder. Queries are tokenized with the model's own
// training configuration. The random source drives both override
// response choice and Markov sampling, so a fixed seed reproduces a
// session exactly.
func New(model *persona.Model, rules override.RuleSet, cfg Config, rng *rand.Rand) *Responder {
	// Fill only unset length fields; the threshold is taken as given
	// since 0 is a meaningful setting.
	def := DefaultConfig()
	if cfg.MaxGeneratedTokens <= 0 {
		cfg.MaxGeneratedTokens = def.MaxGeneratedTokens
	}
	if cfg.ShortReplyWords <= 0 {
		cfg.ShortReplyWords = def.ShortReplyWords
	}
	if cfg.TailTokens <= 0 {
		cfg.TailTokens = def.TailTokens
	}
	return &Responder{
		model: model,
		rules: rules,
		cfg:   cfg,
		tok:   tokenizer.New(model.Tokenizer),
		rng:   rng,
	}
}

// Respond produces a reply for the input. Decision order: override
// rules, retrieval above the similarity threshold, Markov generation.
func (r *Responder) Respond(input string) string {
	if resp, ok := r.rules.Respond(r.model.Name, input, r.rng); ok {
		return polish(resp)
	}

	tokens := r.tok.Tokenize(input)
	if len(tokens) > 0 {
		if best, score := r.model.Index.Query(tokens); best >= 0 && score >= r.cfg.SimilarityThreshold {
			reply := r.model.Replies[best]
			if len(strings.Fields(reply)) < r.cfg.ShortReplyWords {
				if tail := r.generate(r.cfg.TailTokens); tail != "" {
					reply = reply + " " + tail
				}
			}
			return polish(reply)
		}
	}

	if gen := r.generate(r.cfg.MaxGeneratedTokens); gen != "" {
		return polish(gen)
	}
	return polish(cannedReplies[r.rng.Intn(len(cannedReplies))])
}

// generate synthesizes a sentence from the persona's chain, or returns
// an empty string when the chain has nothing to say.
func (r *Responder) generate(maxTokens int) string {
	tokens := r.model.Chain.Generate(r.rng, maxTokens)
	if len(tokens) == 0 {
		return ""
	}
	s := tokenizer.Join(tokens)
	s = strings.ReplaceAll(s, " i ", " I ")
	return capitalize(s)
}

// polish ensures the reply ends with terminal punctuation.
func polish(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	switch s[len(s)-1] {
	case '.', '!', '?':
		return s
	}
	return s + "."
}

func capitalize(s string) string {
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
