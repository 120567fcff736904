// Package markov builds fixed-order transition tables from persona
// utterances and samples novel token sequences from them.
package markov

import (
	"math/rand"
	"sort"
	"strings"
)

// Sentinel tokens marking utterance boundaries. Generation starts from
// StartToken contexts and terminates when EndToken is sampled.
const (
	StartToken = "<s>"
	EndToken   = "</s>"
)

// keySep joins prefix tokens into a table key. Unit separator cannot
// appear in normalized tokens.
const keySep = "\x1f"

// Chain is an order-k transition table: each k-token prefix maps to the
// observed successor tokens with counts. Immutable after Build.
type Chain struct {
	Order       int
	Transitions map[string]map[string]int

	startKeys []string // sorted prefixes beginning with StartToken
}

// New wraps an existing transition table (used when loading a persisted
// model). Every prefix is expected to map to a non-empty successor set.
func New(order int, transitions map[string]map[string]int) *Chain {
	c := &Chain{Order: order, Transitions: transitions}
	c.indexStartKeys()
	return c
}

// Build records every length-order prefix -> successor observation from
// the token sequences, each padded with start/end sentinels.
func Build(seqs [][]string, order int) *Chain {
	if order < 1 {
		order = 1
	}
	c := &Chain{Order: order, Transitions: make(map[string]map[string]int)}

	for _, seq := range seqs {
		if len(seq) == 0 {
			continue
		}
		padded := make([]string, 0, len(seq)+2)
		padded = append(padded, StartToken)
		padded = append(padded, seq...)
		padded = append(padded, EndToken)
		if len(padded) <= order {
			continue
		}
		for i := 0; i+order < len(padded); i++ {
			key := strings.Join(padded[i:i+order], keySep)
			succ := c.Transitions[key]
			if succ == nil {
				succ = make(map[string]int)
				c.Transitions[key] = succ
			}
			succ[padded[i+order]]++
		}
	}

	c.indexStartKeys()
	return c
}

// Len returns the number of distinct prefixes.
func (c *Chain) Len() int { return len(c.Transitions) }

// Generate samples at most maxTokens tokens, weighted by observed
// counts. It terminates when the end sentinel is sampled or the cap is
// reached; the cap holds for any table, including tables whose cycles
// never reach an end sentinel. An absent context restarts from the
// start-sentinel distribution instead of failing. The random source is
// supplied by the caller, so a fixed seed reproduces output exactly.
func (c *Chain) Generate(rng *rand.Rand, maxTokens int) []string {
	if len(c.Transitions) == 0 || maxTokens <= 0 {
		return nil
	}

	ctx := c.restartContext(rng)
	out := make([]string, 0, maxTokens)
	for _, tok := range ctx {
		if tok != StartToken && tok != EndToken && len(out) < maxTokens {
			out = append(out, tok)
		}
	}

	for len(out) < maxTokens {
		succ := c.Transitions[strings.Join(ctx, keySep)]
		if succ == nil {
			ctx = c.restartContext(rng)
			succ = c.Transitions[strings.Join(ctx, keySep)]
		}
		if len(succ) == 0 {
			break
		}
		next := sample(rng, succ)
		if next == EndToken {
			break
		}
		out = append(out, next)
		ctx = append(ctx[1:], next)
	}
	return out
}

// restartContext picks a uniformly random start-sentinel prefix, or any
// prefix when the table never observed a start (possible for persisted
// tables built from foreign data).
func (c *Chain) restartContext(rng *rand.Rand) []string {
	keys := c.startKeys
	if len(keys) == 0 {
		keys = c.sortedKeys()
	}
	return strings.Split(keys[rng.Intn(len(keys))], keySep)
}

func (c *Chain) indexStartKeys() {
	c.startKeys = c.startKeys[:0]
	for key := range c.Transitions {
		if strings.HasPrefix(key, StartToken) &&
			(len(key) == len(StartToken) || key[len(StartToken)] == keySep[0]) {
			c.startKeys = append(c.startKeys, key)
		}
	}
	sort.Strings(c.startKeys)
}

func (c *Chain) sortedKeys() []string {
	keys := make([]string, 0, len(c.Transitions))
	for key := range c.Transitions {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// sample draws a successor weighted by count. Successors are walked in
// sorted order so a fixed seed always yields the same token.
func sample(rng *rand.Rand, succ map[string]int) string {
	total := 0
	toks := make([]string, 0, len(succ))
	for tok, n := range succ {
		toks = append(toks, tok)
		total += n
	}
	sort.Strings(toks)

	r := rng.Intn(total)
	for _, tok := range toks {
		r -= succ[tok]
		if r < 0 {
			return tok
		}
	}
	return toks[len(toks)-1]
}
