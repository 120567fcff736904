package session

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/rcliao/persona-bot/internal/override"
	"github.com/rcliao/persona-bot/internal/persona"
	"github.com/rcliao/persona-bot/internal/responder"
)

func testSession(t *testing.T) *Session {
	t.Helper()
	responders := make(map[string]*responder.Responder)
	for _, name := range []string{"bot1", "bot2"} {
		m, err := persona.Train(name, []string{
			"hello there friend of mine",
			"what a lovely day outside",
		}, persona.DefaultTrainOptions())
		if err != nil {
			t.Fatal(err)
		}
		responders[name] = responder.New(m, override.RuleSet{}, responder.DefaultConfig(),
			rand.New(rand.NewSource(1)))
	}
	s, err := New(responders)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNew_RequiresPersonas(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected error for empty responder set")
	}
}

func TestRun_DefaultActiveAndQuit(t *testing.T) {
	s := testSession(t)
	if s.Active() != "bot1" {
		t.Errorf("default active = %s, want bot1", s.Active())
	}

	var out strings.Builder
	if err := s.Run(strings.NewReader("/quit\n"), &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Goodbye.") {
		t.Errorf("missing goodbye in output: %q", out.String())
	}
}

func TestRun_SwitchPersona(t *testing.T) {
	s := testSession(t)

	var out strings.Builder
	input := "/bot2\nhello there friend of mine\n/quit\n"
	if err := s.Run(strings.NewReader(input), &out); err != nil {
		t.Fatal(err)
	}

	if s.Active() != "bot2" {
		t.Errorf("active = %s, want bot2", s.Active())
	}
	if !strings.Contains(out.String(), "Switched to bot2.") {
		t.Errorf("missing switch confirmation: %q", out.String())
	}
	if !strings.Contains(out.String(), "[bot2]") {
		t.Errorf("reply not attributed to bot2: %q", out.String())
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	s := testSession(t)

	var out strings.Builder
	if err := s.Run(strings.NewReader("/bot9\n/quit\n"), &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Unknown command") {
		t.Errorf("missing unknown-command help: %q", out.String())
	}
	if s.Active() != "bot1" {
		t.Errorf("unknown command changed active persona to %s", s.Active())
	}
}

func TestRun_EOFTerminates(t *testing.T) {
	s := testSession(t)

	var out strings.Builder
	if err := s.Run(strings.NewReader("hello there friend of mine\n"), &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Goodbye.") {
		t.Errorf("EOF should say goodbye: %q", out.String())
	}
}

func TestRun_EmptyLinesSkipped(t *testing.T) {
	s := testSession(t)

	var out strings.Builder
	if err := s.Run(strings.NewReader("\n   \n/quit\n"), &out); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out.String(), "[bot1]") {
		t.Errorf("empty input must not produce a reply: %q", out.String())
	}
}
