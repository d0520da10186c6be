package generator

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ErrEmptySummary is returned when the model produced no usable markdown.
var ErrEmptySummary = errors.New("model returned empty markdown")

var (
	titleLine = regexp.MustCompile(`(?m)^#\s+(.+)$`)
	// Whole answer wrapped in ``` or ```markdown fences.
	fenced = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\\n(.*?)\\n?```$")
)

// PostProcess validates raw model output and fills the Summary fields.
func PostProcess(raw string) (Summary, error) {
	md := strings.TrimSpace(raw)
	if m := fenced.FindStringSubmatch(md); m != nil {
		md = strings.TrimSpace(m[1])
	}
	if md == "" {
		return Summary{}, ErrEmptySummary
	}

	digest := extractDigest(md)
	if digest == "" {
		digest = defaultDigest(md, 160)
	}
	return Summary{
		Markdown: md,
		Title:    extractTitle(md),
		Digest:   digest,
	}, nil
}

func extractTitle(md string) string {
	if m := titleLine.FindStringSubmatch(md); len(m) >= 2 {
		return strings.Trim(strings.TrimSpace(m[1]), "*")
	}
	return ""
}

// First paragraph line that is not a heading.
func extractDigest(md string) string {
	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return line
	}
	return ""
}

func defaultDigest(md string, limit int) string {
	joined := strings.Join(strings.Fields(md), " ")
	if utf8.RuneCountInString(joined) <= limit {
		return joined
	}
	return string([]rune(joined)[:limit])
}
