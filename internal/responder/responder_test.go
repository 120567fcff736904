package responder

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/rcliao/persona-bot/internal/override"
	"github.com/rcliao/persona-bot/internal/persona"
)

func trainModel(t *testing.T, lines ...string) *persona.Model {
	t.Helper()
	m, err := persona.Train("bot1", lines, persona.DefaultTrainOptions())
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	return m
}

func newResponder(t *testing.T, m *persona.Model, rules override.RuleSet) *Responder {
	t.Helper()
	if rules == nil {
		rules = override.RuleSet{}
	}
	return New(m, rules, DefaultConfig(), rand.New(rand.NewSource(5)))
}

func TestRespond_RetrievalOnExactMatch(t *testing.T) {
	m := trainModel(t,
		"i love playing this game so much honestly",
		"the weather has been terrible all week here",
	)
	r := newResponder(t, m, nil)

	got := r.Respond("the weather has been terrible all week here")
	if got != "the weather has been terrible all week here." {
		t.Errorf("got %q, want the stored reply with terminal punctuation", got)
	}
}

func TestRespond_OverrideBeatsPerfectRetrieval(t *testing.T) {
	m := trainModel(t, "kya is my best friend forever and always")
	rules := override.RuleSet{
		"bot1": {{
			Match:     []string{"kya"},
			Responses: []string{"Don't you dare say anything bad about her!"},
		}},
	}
	r := newResponder(t, m, rules)

	// The input is an exact corpus match (similarity 1.0) but the
	// override must still win.
	got := r.Respond("kya is my best friend forever and always")
	if got != "Don't you dare say anything bad about her!" {
		t.Errorf("override lost to retrieval: %q", got)
	}
}

func TestRespond_FallsBackToGeneration(t *testing.T) {
	m := trainModel(t,
		"hello there friend of mine",
		"what a lovely day outside",
	)
	r := newResponder(t, m, nil)

	// Zero vocabulary overlap: retrieval scores 0 and the selector must
	// fall through to generation without crashing.
	got := r.Respond("zzzz qqqq xxxx")
	if got == "" {
		t.Fatal("expected a non-empty generated reply")
	}
	if last := got[len(got)-1]; last != '.' && last != '!' && last != '?' {
		t.Errorf("reply %q lacks terminal punctuation", got)
	}
}

func TestRespond_EmptyInputGoesToFallback(t *testing.T) {
	m := trainModel(t, "hello there friend of mine")
	r := newResponder(t, m, nil)

	if got := r.Respond("🙄"); got == "" {
		t.Fatal("expected a reply for unusable input")
	}
}

func TestRespond_ShortRetrievalGetsTail(t *testing.T) {
	m := trainModel(t,
		"ok",
		"this longer sentence gives the chain something to walk through",
	)
	cfg := DefaultConfig()
	cfg.SimilarityThreshold = 0.5
	r := New(m, override.RuleSet{}, cfg, rand.New(rand.NewSource(5)))

	got := r.Respond("ok")
	if !strings.HasPrefix(got, "ok ") && got != "ok." {
		t.Errorf("expected retrieved reply with optional tail, got %q", got)
	}
	if len(got) <= len("ok.") {
		t.Logf("no tail appended (chain may have ended immediately): %q", got)
	}
}

func TestRespond_Deterministic(t *testing.T) {
	lines := []string{
		"hello there friend of mine",
		"what a lovely day outside",
		"tell me about your day",
	}
	a := newResponder(t, trainModel(t, lines...), nil)
	b := newResponder(t, trainModel(t, lines...), nil)

	for i := 0; i < 10; i++ {
		ra := a.Respond("zzzz unseen input")
		rb := b.Respond("zzzz unseen input")
		if ra != rb {
			t.Fatalf("same seed diverged on turn %d: %q vs %q", i, ra, rb)
		}
	}
}

func TestNew_KeepsCallerThreshold(t *testing.T) {
	m := trainModel(t, "hello there friend of mine")

	// Only the unset length fields get defaults; the threshold must
	// survive as given, including 0.
	r := New(m, override.RuleSet{}, Config{SimilarityThreshold: 0.9}, rand.New(rand.NewSource(5)))
	if r.cfg.SimilarityThreshold != 0.9 {
		t.Errorf("threshold = %f, want 0.9", r.cfg.SimilarityThreshold)
	}
	if r.cfg.MaxGeneratedTokens != 20 || r.cfg.ShortReplyWords != 4 || r.cfg.TailTokens != 12 {
		t.Errorf("length defaults not filled: %+v", r.cfg)
	}

	r = New(m, override.RuleSet{}, Config{SimilarityThreshold: 0}, rand.New(rand.NewSource(5)))
	if r.cfg.SimilarityThreshold != 0 {
		t.Errorf("zero threshold replaced: %f", r.cfg.SimilarityThreshold)
	}
}

func TestPolish(t *testing.T) {
	tests := []struct{ in, want string }{
		{"hello", "hello."},
		{"hello!", "hello!"},
		{"really?", "really?"},
		{"done.", "done."},
		{"  spaced out ", "spaced out."},
		{"", ""},
	}
	for _, tt := range tests {
		if got := polish(tt.in); got != tt.want {
			t.Errorf("polish(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
