// Package splitter parses a combined chat log export and extracts
// per-persona utterance corpora suitable for training.
//
// The expected input is a Discord-style export where messages start
// with either "username — 8/5/2025 5:46 PM" header lines or a bare
// username line followed by a timestamp line, with the message body on
// the following lines until the next header.
package splitter

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	headerRe       = regexp.MustCompile(`^([^—]+?)\s*—\s*(.+)$`)
	usernameOnlyRe = regexp.MustCompile(`^[A-Za-z0-9_@]{1,60}$`)
	dateRe         = regexp.MustCompile(`\d{1,2}[/\-]\d{1,2}[/\-]?\d{2,4}|\d{4}`)
	urlRe          = regexp.MustCompile(`https?://\S+`)
	imageRe        = regexp.MustCompile(`(?i)\[image\]|\bimage\b`)
	spaceRe        = regexp.MustCompile(`\s+`)
)

// Split reads a chat log and groups messages per persona. The aliases
// map persona name to its accepted author name variants; authors that
// match no persona are dropped. Messages are sanitized and
// de-duplicated per persona, preserving first-seen order.
func Split(r io.Reader, aliases map[string][]string) (map[string][]string, error) {
	lookup := buildLookup(aliases)

	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	raw := make(map[string][]string)
	current := ""

	i := 0
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			i++
			continue
		}

		if m := headerRe.FindStringSubmatch(line); m != nil {
			current = lookup[normalizeAuthor(m[1])]
			rest := strings.TrimSpace(m[2])
			if dateRe.MatchString(rest) {
				// Header carried only a timestamp; the message starts
				// on the following lines.
				var msg []string
				i = collectMessage(lines, i+1, &msg)
				appendMessage(raw, current, strings.Join(msg, " "))
			} else {
				msg := []string{rest}
				i = collectMessage(lines, i+1, &msg)
				appendMessage(raw, current, strings.Join(msg, " "))
			}
			continue
		}

		if usernameOnlyRe.MatchString(line) {
			current = lookup[normalizeAuthor(line)]
			next := i + 1
			// Skip a standalone timestamp line after the username.
			if next < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[next]), "—") {
				next++
			}
			var msg []string
			i = collectMessage(lines, next, &msg)
			appendMessage(raw, current, strings.Join(msg, " "))
			continue
		}

		// Continuation content without a preceding header.
		var msg []string
		i = collectMessage(lines, i, &msg)
		appendMessage(raw, current, strings.Join(msg, " "))
	}

	out := make(map[string][]string, len(raw))
	for name, msgs := range raw {
		out[name] = dedupe(msgs)
	}
	return out, nil
}

// SplitFile parses the log at path.
func SplitFile(path string, aliases map[string][]string) (map[string][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer f.Close()
	return Split(f, aliases)
}

// WriteCorpora writes one utterance-per-line file per persona under dir,
// named <persona>.txt, and returns the written paths by persona.
func WriteCorpora(dir string, corpora map[string][]string) (map[string]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	paths := make(map[string]string, len(corpora))
	for name, msgs := range corpora {
		path := filepath.Join(dir, name+".txt")
		var b strings.Builder
		for _, m := range msgs {
			b.WriteString(m)
			b.WriteByte('\n')
		}
		if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
			return nil, fmt.Errorf("write corpus %s: %w", name, err)
		}
		paths[name] = path
	}
	return paths, nil
}

// collectMessage gathers contiguous non-header lines starting at from,
// appending them to msg, and returns the next index to process. A bare
// single word is indistinguishable from a username line and ends the
// message.
func collectMessage(lines []string, from int, msg *[]string) int {
	i := from
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			i++
			continue
		}
		if headerRe.MatchString(line) || usernameOnlyRe.MatchString(line) {
			break
		}
		*msg = append(*msg, line)
		i++
	}
	return i
}

func appendMessage(raw map[string][]string, persona, msg string) {
	if persona == "" {
		return
	}
	msg = sanitize(msg)
	if msg != "" {
		raw[persona] = append(raw[persona], msg)
	}
}

// sanitize strips URLs and image markers and collapses whitespace.
func sanitize(msg string) string {
	msg = imageRe.ReplaceAllString(msg, "")
	msg = urlRe.ReplaceAllString(msg, "")
	return strings.TrimSpace(spaceRe.ReplaceAllString(msg, " "))
}

func dedupe(msgs []string) []string {
	seen := make(map[string]bool, len(msgs))
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

// buildLookup inverts the alias map: lowered author variant -> persona.
func buildLookup(aliases map[string][]string) map[string]string {
	lookup := make(map[string]string)
	for persona, variants := range aliases {
		for _, v := range variants {
			lookup[normalizeAuthor(v)] = persona
		}
	}
	return lookup
}

// normalizeAuthor lowers an author name, strips a leading @, and keeps
// only the first whitespace-separated token.
func normalizeAuthor(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimPrefix(name, "@")
	if fields := strings.Fields(name); len(fields) > 0 {
		return fields[0]
	}
	return ""
}
