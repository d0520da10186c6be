package markup

import (
	"regexp"
	"strings"
)

var (
	headingLine  = regexp.MustCompile(`^#{1,6}[ \t]+(.*)$`)
	boldPair     = regexp.MustCompile(`\*\*(.*?)\*\*`)
	bulletMarker = regexp.MustCompile(`^([ \t]*)[*+-][ \t]+`)
	blankRun     = regexp.MustCompile(`\n{3,}`)
)

// ToChatMarkup rewrites Markdown into Slack mrkdwn. Headings become bold lines,
// **bold** becomes *bold*, bullet markers become "• " and runs of two or more
// blank lines collapse to one. Applying it twice yields the same text.
func ToChatMarkup(markdown string) string {
	lines := strings.Split(markdown, "\n")
	for i, line := range lines {
		lines[i] = chatLine(line)
	}
	return blankRun.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
}

func chatLine(line string) string {
	if m := headingLine.FindStringSubmatch(line); m != nil {
		text := stripBold(m[1])
		text = strings.Trim(text, "* \t")
		if text != "" {
			return "*" + text + "*"
		}
	}

	line = rewriteBold(line)
	return bulletMarker.ReplaceAllString(line, "${1}• ")
}

// rewriteBold converts **x** pairs to *x* until no pair is left, so nested or
// adjacent markers cannot resurface on a second pass.
func rewriteBold(s string) string {
	for {
		next := boldPair.ReplaceAllString(s, "*${1}*")
		if next == s {
			return s
		}
		s = next
	}
}

// stripBold drops **x** markers entirely; used on heading text that is already
// rendered bold as a whole.
func stripBold(s string) string {
	for {
		next := boldPair.ReplaceAllString(s, "${1}")
		if next == s {
			return s
		}
		s = next
	}
}
