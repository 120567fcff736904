// Package tokenizer turns raw utterance text into comparable token sequences.
package tokenizer

import (
	"regexp"
	"strings"
)

// Config controls normalization behavior.
type Config struct {
	// KeepSentenceMarks emits . ! ? as standalone boundary tokens
	// instead of dropping them with the rest of the punctuation.
	KeepSentenceMarks bool

	// Lemmatize strips common inflection suffixes word by word.
	Lemmatize bool
}

// DefaultConfig returns the normalization used for both training and queries.
func DefaultConfig() Config {
	return Config{KeepSentenceMarks: true}
}

// Tokenizer normalizes text. It never fails; unknown characters are dropped.
type Tokenizer struct {
	cfg Config
}

// New creates a tokenizer with the given config.
func New(cfg Config) *Tokenizer {
	return &Tokenizer{cfg: cfg}
}

// Words keep mentions, hashtags, and contractions; sentence marks are
// matched separately so they can survive as boundary tokens.
var tokenRe = regexp.MustCompile(`[a-z0-9_'@#+-]+|[.!?]`)

// Tokenize lower-cases text and splits it into normalized tokens.
// Empty or whitespace-only input yields an empty slice, which callers
// must treat as "no usable content".
func (t *Tokenizer) Tokenize(text string) []string {
	text = strings.ToLower(strings.ReplaceAll(text, "’", "'"))
	matches := tokenRe.FindAllString(text, -1)

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if IsSentenceMark(m) {
			// Collapse runs like "!!!" into a single boundary token.
			if !t.cfg.KeepSentenceMarks {
				continue
			}
			if n := len(out); n > 0 && out[n-1] == m {
				continue
			}
			out = append(out, m)
			continue
		}
		if t.cfg.Lemmatize {
			m = lemma(m)
		}
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

// IsSentenceMark reports whether tok is a sentence boundary token.
func IsSentenceMark(tok string) bool {
	return tok == "." || tok == "!" || tok == "?"
}

// Join reassembles tokens into display text, attaching boundary marks
// to the preceding word.
func Join(tokens []string) string {
	var b strings.Builder
	for i, tok := range tokens {
		if i > 0 && !IsSentenceMark(tok) {
			b.WriteByte(' ')
		}
		b.WriteString(tok)
	}
	return b.String()
}

// lemma applies naive suffix stripping. It is deliberately crude: the
// goal is folding obvious inflections (walks/walking/walked -> walk),
// not linguistic correctness.
func lemma(w string) string {
	switch {
	case len(w) > 5 && strings.HasSuffix(w, "ing"):
		return w[:len(w)-3]
	case len(w) > 4 && strings.HasSuffix(w, "ed"):
		return w[:len(w)-2]
	case len(w) > 3 && strings.HasSuffix(w, "s") &&
		!strings.HasSuffix(w, "ss") && !strings.HasSuffix(w, "'s") && !strings.HasSuffix(w, "us"):
		return w[:len(w)-1]
	}
	return w
}
