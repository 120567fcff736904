// Package index implements a TF-IDF vector space over a persona's
// utterances with cosine nearest-neighbor lookup.
package index

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// ErrEmptyCorpus means a persona's corpus had no usable utterances.
// Training cannot proceed for that persona.
var ErrEmptyCorpus = errors.New("corpus has no usable utterances")

// Options configures index construction.
type Options struct {
	// NGramMax includes word n-grams up to this length as terms.
	NGramMax int

	// MaxFeatures caps the vocabulary, keeping the most frequent terms.
	// Zero means no cap.
	MaxFeatures int
}

// DefaultOptions returns the construction defaults (unigrams + bigrams,
// vocabulary capped at 60000 terms).
func DefaultOptions() Options {
	return Options{NGramMax: 2, MaxFeatures: 60000}
}

// SparseVector maps term index to weight. Rows are L2-normalized at
// build time so cosine similarity reduces to a dot product.
type SparseVector map[int]float64

// Index is a frozen TF-IDF vector space. The vocabulary is never
// updated after Build; out-of-vocabulary query terms weigh zero.
type Index struct {
	Vocab map[string]int
	IDF   []float64
	Rows  []SparseVector

	NGramMax int
}

// Build fits an index over the tokenized corpus. Every document must be
// a non-empty token sequence; row i stays aligned with the caller's
// reply at index i.
func Build(docs [][]string, opts Options) (*Index, error) {
	if opts.NGramMax <= 0 {
		opts = DefaultOptions()
	}
	if len(docs) == 0 {
		return nil, ErrEmptyCorpus
	}

	// Corpus-wide term counts drive the MaxFeatures cut.
	termCounts := make(map[string]int)
	docTerms := make([][]string, len(docs))
	for i, doc := range docs {
		if len(doc) == 0 {
			return nil, fmt.Errorf("document %d is empty", i)
		}
		terms := ngrams(doc, opts.NGramMax)
		docTerms[i] = terms
		for _, term := range terms {
			termCounts[term]++
		}
	}

	vocab := fitVocabulary(termCounts, opts.MaxFeatures)

	// Smoothed IDF: ln((1+N)/(1+df)) + 1.
	df := make([]int, len(vocab))
	for _, terms := range docTerms {
		seen := make(map[int]bool, len(terms))
		for _, term := range terms {
			if idx, ok := vocab[term]; ok && !seen[idx] {
				seen[idx] = true
				df[idx]++
			}
		}
	}
	n := float64(len(docs))
	idf := make([]float64, len(vocab))
	for i, d := range df {
		idf[i] = math.Log((1+n)/(1+float64(d))) + 1
	}

	ix := &Index{Vocab: vocab, IDF: idf, NGramMax: opts.NGramMax}
	ix.Rows = make([]SparseVector, len(docs))
	for i, terms := range docTerms {
		ix.Rows[i] = ix.vectorize(terms)
	}
	return ix, nil
}

// Query transforms tokens through the frozen vocabulary and returns the
// index of the most similar stored row with its cosine similarity.
// Ties break toward the lowest row index. A query with no vocabulary
// overlap returns (-1, 0): callers must treat it as "no match".
func (ix *Index) Query(tokens []string) (best int, score float64) {
	vec := ix.vectorize(ngrams(tokens, ix.NGramMax))
	if len(vec) == 0 {
		return -1, 0
	}

	// Fixed summation order keeps scores bit-identical across runs, so
	// ties always break the same way.
	idxs := sortedIndices(vec)

	best = -1
	for i, row := range ix.Rows {
		var dot float64
		for _, idx := range idxs {
			dot += vec[idx] * row[idx]
		}
		if dot > score {
			score = dot
			best = i
		}
	}
	if best < 0 {
		return -1, 0
	}
	return best, score
}

// Size returns the number of stored rows.
func (ix *Index) Size() int { return len(ix.Rows) }

// vectorize builds an L2-normalized TF-IDF vector over known terms.
func (ix *Index) vectorize(terms []string) SparseVector {
	vec := make(SparseVector)
	for _, term := range terms {
		if idx, ok := ix.Vocab[term]; ok {
			vec[idx] += ix.IDF[idx]
		}
	}
	if len(vec) == 0 {
		return vec
	}
	var norm float64
	for _, idx := range sortedIndices(vec) {
		norm += vec[idx] * vec[idx]
	}
	norm = math.Sqrt(norm)
	for idx := range vec {
		vec[idx] /= norm
	}
	return vec
}

func sortedIndices(vec SparseVector) []int {
	idxs := make([]int, 0, len(vec))
	for idx := range vec {
		idxs = append(idxs, idx)
	}
	sort.Ints(idxs)
	return idxs
}

// fitVocabulary selects terms and assigns stable indices. Terms are
// sorted lexically so identical corpora always produce identical
// vocabularies; the MaxFeatures cut keeps the most frequent terms,
// breaking frequency ties lexically.
func fitVocabulary(termCounts map[string]int, maxFeatures int) map[string]int {
	terms := make([]string, 0, len(termCounts))
	for term := range termCounts {
		terms = append(terms, term)
	}

	if maxFeatures > 0 && len(terms) > maxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			ci, cj := termCounts[terms[i]], termCounts[terms[j]]
			if ci != cj {
				return ci > cj
			}
			return terms[i] < terms[j]
		})
		terms = terms[:maxFeatures]
	}

	sort.Strings(terms)
	vocab := make(map[string]int, len(terms))
	for i, term := range terms {
		vocab[term] = i
	}
	return vocab
}

// ngrams expands a token sequence into terms: the tokens themselves
// plus space-joined n-grams up to max.
func ngrams(tokens []string, max int) []string {
	if max < 1 {
		max = 1
	}
	terms := make([]string, 0, len(tokens)*max)
	for n := 1; n <= max; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			if n == 1 {
				terms = append(terms, tokens[i])
				continue
			}
			terms = append(terms, strings.Join(tokens[i:i+n], " "))
		}
	}
	return terms
}
