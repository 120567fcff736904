package index

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func tokenize(lines ...string) [][]string {
	docs := make([][]string, len(lines))
	for i, l := range lines {
		docs[i] = strings.Fields(l)
	}
	return docs
}

func TestBuild_EmptyCorpus(t *testing.T) {
	_, err := Build(nil, DefaultOptions())
	if !errors.Is(err, ErrEmptyCorpus) {
		t.Fatalf("expected ErrEmptyCorpus, got %v", err)
	}
}

func TestQuery_SelfMatch(t *testing.T) {
	docs := tokenize("hello there", "how are you", "see you later")
	ix, err := Build(docs, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	for i, doc := range docs {
		best, score := ix.Query(doc)
		if best != i {
			t.Errorf("query %v: best = %d, want %d", doc, best, i)
		}
		if math.Abs(score-1.0) > 1e-9 {
			t.Errorf("query %v: score = %f, want 1.0", doc, score)
		}
	}
}

func TestQuery_DuplicateTieBreak(t *testing.T) {
	// Duplicate utterances: the earliest index must win.
	docs := tokenize("hello there", "how are you", "hello there")
	ix, err := Build(docs, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	best, score := ix.Query([]string{"hello", "there"})
	if best != 0 {
		t.Errorf("best = %d, want 0 (lowest index on tie)", best)
	}
	if math.Abs(score-1.0) > 1e-9 {
		t.Errorf("score = %f, want 1.0", score)
	}
}

func TestQuery_NoOverlap(t *testing.T) {
	docs := tokenize("hello there", "how are you")
	ix, err := Build(docs, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	best, score := ix.Query([]string{"zzz", "qqq"})
	if best != -1 || score != 0 {
		t.Errorf("got (%d, %f), want (-1, 0)", best, score)
	}

	best, score = ix.Query(nil)
	if best != -1 || score != 0 {
		t.Errorf("empty query: got (%d, %f), want (-1, 0)", best, score)
	}
}

func TestQuery_SingleEntryCorpus(t *testing.T) {
	ix, err := Build(tokenize("only one line here"), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	best, _ := ix.Query([]string{"one"})
	if best != 0 {
		t.Errorf("best = %d, want 0", best)
	}
}

func TestQuery_PartialOverlapRanks(t *testing.T) {
	docs := tokenize(
		"the cat sat on the mat",
		"dogs chase the ball",
		"the cat chased a mouse",
	)
	ix, err := Build(docs, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	best, score := ix.Query([]string{"cat", "mouse"})
	if best != 2 {
		t.Errorf("best = %d, want 2", best)
	}
	if score <= 0 || score >= 1 {
		t.Errorf("score = %f, want in (0, 1)", score)
	}
}

func TestBuild_MaxFeaturesCapsVocabulary(t *testing.T) {
	docs := tokenize(
		"alpha beta gamma",
		"alpha beta delta",
		"alpha epsilon zeta",
	)
	ix, err := Build(docs, Options{NGramMax: 1, MaxFeatures: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(ix.Vocab) != 2 {
		t.Fatalf("vocab size = %d, want 2", len(ix.Vocab))
	}
	// "alpha" (3 occurrences) and "beta" (2) are the most frequent.
	if _, ok := ix.Vocab["alpha"]; !ok {
		t.Error("expected alpha in capped vocabulary")
	}
	if _, ok := ix.Vocab["beta"]; !ok {
		t.Error("expected beta in capped vocabulary")
	}
}

func TestBuild_BigramsDistinguishOrder(t *testing.T) {
	docs := tokenize("good night", "night good grief")
	ix, err := Build(docs, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ix.Vocab["good night"]; !ok {
		t.Error("expected bigram term 'good night'")
	}
	best, _ := ix.Query([]string{"good", "night"})
	if best != 0 {
		t.Errorf("best = %d, want 0 (exact bigram match)", best)
	}
}

func TestQuery_ScoreStableAcrossCalls(t *testing.T) {
	// Many overlapping terms make the dot product sensitive to float
	// summation order; repeated calls must return the exact same score.
	docs := tokenize(
		"one two three four five six seven eight nine ten",
		"two three four five six seven eight nine ten eleven",
		"three four five six seven eight nine ten eleven twelve",
	)
	ix, err := Build(docs, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	query := strings.Fields("two three four five six seven eight nine")
	firstBest, firstScore := ix.Query(query)
	for i := 0; i < 100; i++ {
		best, score := ix.Query(query)
		if best != firstBest || score != firstScore {
			t.Fatalf("call %d: (%d, %v) vs first (%d, %v)", i, best, score, firstBest, firstScore)
		}
	}
}

func TestBuild_DeterministicVocabulary(t *testing.T) {
	docs := tokenize("b a c", "c d a")
	a, err := Build(docs, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	b, err := Build(docs, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Vocab) != len(b.Vocab) {
		t.Fatalf("vocab sizes differ: %d vs %d", len(a.Vocab), len(b.Vocab))
	}
	for term, idx := range a.Vocab {
		if b.Vocab[term] != idx {
			t.Errorf("term %q index %d vs %d", term, idx, b.Vocab[term])
		}
	}
}
