// Package persona composes the trained artifacts for one persona: a
// retrieval index and a Markov chain over its historical utterances.
package persona

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/rcliao/persona-bot/internal/index"
	"github.com/rcliao/persona-bot/internal/markov"
	"github.com/rcliao/persona-bot/internal/tokenizer"
)

// Model is the immutable trained artifact for one persona. Replies are
// the raw utterances, aligned by index with the retrieval rows.
// Tokenizer records the normalization the model was trained with;
// queries must use the same normalization.
type Model struct {
	Name      string
	Replies   []string
	Index     *index.Index
	Chain     *markov.Chain
	Tokenizer tokenizer.Config
}

// TrainOptions configures training for one persona.
type TrainOptions struct {
	Tokenizer   tokenizer.Config
	Index       index.Options
	MarkovOrder int
}

// DefaultTrainOptions returns the training defaults (order-2 chain,
// unigram+bigram index).
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Tokenizer:   tokenizer.DefaultConfig(),
		Index:       index.DefaultOptions(),
		MarkovOrder: 2,
	}
}

// Train builds a persona model from raw utterance lines. Lines that
// normalize to nothing are skipped; if none survive, training fails
// with index.ErrEmptyCorpus.
func Train(name string, lines []string, opts TrainOptions) (*Model, error) {
	if opts.MarkovOrder < 1 {
		opts.MarkovOrder = 2
	}
	tok := tokenizer.New(opts.Tokenizer)

	var (
		docs    [][]string
		replies []string
	)
	for _, line := range lines {
		tokens := tok.Tokenize(line)
		if len(tokens) == 0 {
			continue
		}
		docs = append(docs, tokens)
		replies = append(replies, line)
	}

	ix, err := index.Build(docs, opts.Index)
	if err != nil {
		return nil, fmt.Errorf("persona %s: %w", name, err)
	}

	return &Model{
		Name:      name,
		Replies:   replies,
		Index:     ix,
		Chain:     markov.Build(docs, opts.MarkovOrder),
		Tokenizer: opts.Tokenizer,
	}, nil
}

// TrainFile trains from a corpus file (one utterance per line).
func TrainFile(name, path string, opts TrainOptions) (*Model, error) {
	lines, err := LoadCorpus(path)
	if err != nil {
		return nil, fmt.Errorf("persona %s: %w", name, err)
	}
	return Train(name, lines, opts)
}

// LoadCorpus reads a newline-delimited corpus, dropping blank lines.
func LoadCorpus(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	return lines, nil
}
