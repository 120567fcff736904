// Package session runs the interactive chat loop: it holds the active
// persona, dispatches input to its responder, and handles the
// persona-switch and quit commands.
package session

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rcliao/persona-bot/internal/responder"
)

// Theme defines the session color scheme.
type Theme struct {
	Primary lipgloss.Color
	Dim     lipgloss.Color
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Dim:     lipgloss.Color("#6e7681"),
}

// Styles holds the render styles derived from a theme.
type Styles struct {
	Persona lipgloss.Style
	Reply   lipgloss.Style
	Help    lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Persona: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Reply:   lipgloss.NewStyle(),
		Help:    lipgloss.NewStyle().Foreground(t.Dim),
	}
}

// Session is one interactive run. The only mutable state is the active
// persona name, changed by explicit switch commands.
type Session struct {
	responders map[string]*responder.Responder
	order      []string
	active     string
	styles     Styles
}

// New creates a session over the given responders. The first persona in
// sorted order starts active.
func New(responders map[string]*responder.Responder) (*Session, error) {
	if len(responders) == 0 {
		return nil, fmt.Errorf("session needs at least one persona")
	}
	order := make([]string, 0, len(responders))
	for name := range responders {
		order = append(order, name)
	}
	sort.Strings(order)

	return &Session{
		responders: responders,
		order:      order,
		active:     order[0],
		styles:     NewStyles(DefaultTheme),
	}, nil
}

// Active returns the current persona name.
func (s *Session) Active() string { return s.active }

// Run blocks on input lines until /quit or EOF. Each turn computes one
// reply and prints it; command lines start with "/".
func (s *Session) Run(in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, s.styles.Help.Render("Commands: "+s.commandHelp()))
	fmt.Fprintf(out, "Active persona: %s\n", s.styles.Persona.Render(s.active))

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(out, "%s ", s.styles.Help.Render("[you] (active="+s.active+")>"))
		if !scanner.Scan() {
			fmt.Fprintln(out, "\nGoodbye.")
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := s.handleCommand(out, line); quit {
				return nil
			}
			continue
		}

		reply := s.responders[s.active].Respond(line)
		fmt.Fprintf(out, "%s %s\n",
			s.styles.Persona.Render("["+s.active+"]"),
			s.styles.Reply.Render(reply))
	}
}

// handleCommand processes a "/" line and reports whether to quit.
func (s *Session) handleCommand(out io.Writer, line string) bool {
	cmd := strings.ToLower(strings.Fields(line)[0])
	if cmd == "/quit" {
		fmt.Fprintln(out, "Goodbye.")
		return true
	}
	name := strings.TrimPrefix(cmd, "/")
	if _, ok := s.responders[name]; ok {
		s.active = name
		fmt.Fprintf(out, "Switched to %s.\n", name)
		return false
	}
	fmt.Fprintln(out, s.styles.Help.Render("Unknown command. "+s.commandHelp()))
	return false
}

func (s *Session) commandHelp() string {
	parts := make([]string, 0, len(s.order)+1)
	for _, name := range s.order {
		parts = append(parts, "/"+name)
	}
	parts = append(parts, "/quit")
	return strings.Join(parts, ", ")
}
