package splitter

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

var testAliases = map[string][]string{
	"bot1": {"bot1", "galaxydev", "colin"},
	"bot2": {"bot2", "daydreaming_val", "val"},
}

func TestSplit_HeaderWithTimestamp(t *testing.T) {
	log := `galaxydev — 8/5/2025 5:46 PM
hey what are you up to
val — 8/5/2025 5:47 PM
not much honestly
just playing games
`
	got, err := Split(strings.NewReader(log), testAliases)
	if err != nil {
		t.Fatal(err)
	}

	if want := []string{"hey what are you up to"}; !reflect.DeepEqual(got["bot1"], want) {
		t.Errorf("bot1 = %v, want %v", got["bot1"], want)
	}
	if want := []string{"not much honestly just playing games"}; !reflect.DeepEqual(got["bot2"], want) {
		t.Errorf("bot2 = %v, want %v", got["bot2"], want)
	}
}

func TestSplit_UsernameOnlyLine(t *testing.T) {
	log := `galaxydev
— 8/6/2025 7:41 AM
good morning to you

val
— 8/6/2025 7:43 AM
hi there
`
	got, err := Split(strings.NewReader(log), testAliases)
	if err != nil {
		t.Fatal(err)
	}

	if want := []string{"good morning to you"}; !reflect.DeepEqual(got["bot1"], want) {
		t.Errorf("bot1 = %v, want %v", got["bot1"], want)
	}
	if want := []string{"hi there"}; !reflect.DeepEqual(got["bot2"], want) {
		t.Errorf("bot2 = %v, want %v", got["bot2"], want)
	}
}

func TestSplit_UnknownAuthorDropped(t *testing.T) {
	log := `somestranger — 8/5/2025 5:46 PM
you should not see this
colin — 8/5/2025 5:50 PM
but you should see this
`
	got, err := Split(strings.NewReader(log), testAliases)
	if err != nil {
		t.Fatal(err)
	}

	if len(got["bot1"]) != 1 || got["bot1"][0] != "but you should see this" {
		t.Errorf("bot1 = %v", got["bot1"])
	}
	for persona, msgs := range got {
		for _, m := range msgs {
			if strings.Contains(m, "should not") {
				t.Errorf("stranger message leaked into %s: %q", persona, m)
			}
		}
	}
}

func TestSplit_SanitizesAndDedupes(t *testing.T) {
	log := `galaxydev — 8/5/2025 5:46 PM
check this https://example.com/thing out
galaxydev — 8/5/2025 5:47 PM
[Image]
galaxydev — 8/5/2025 5:48 PM
check this out
`
	got, err := Split(strings.NewReader(log), testAliases)
	if err != nil {
		t.Fatal(err)
	}

	// URL is stripped, making the first and third messages identical;
	// the bare image marker sanitizes to nothing.
	if want := []string{"check this out"}; !reflect.DeepEqual(got["bot1"], want) {
		t.Errorf("bot1 = %v, want %v", got["bot1"], want)
	}
}

func TestSplit_AuthorVariants(t *testing.T) {
	log := `@Colin — 8/5/2025 5:46 PM
one
GALAXYDEV — 8/5/2025 5:47 PM
two
`
	got, err := Split(strings.NewReader(log), testAliases)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"one", "two"}; !reflect.DeepEqual(got["bot1"], want) {
		t.Errorf("bot1 = %v, want %v", got["bot1"], want)
	}
}

func TestWriteCorpora(t *testing.T) {
	dir := t.TempDir()
	paths, err := WriteCorpora(dir, map[string][]string{
		"bot1": {"hello", "goodbye"},
	})
	if err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(paths["bot1"])
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello\ngoodbye\n" {
		t.Errorf("corpus content = %q", string(data))
	}
	if filepath.Base(paths["bot1"]) != "bot1.txt" {
		t.Errorf("unexpected filename %s", paths["bot1"])
	}
}
