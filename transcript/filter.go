package transcript

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Accent-free keywords; names are folded before matching.
var transcriptKeywords = []string{
	"transcript",
	"transcricao",
	"ata",
	"meeting",
	"reuniao",
	"gemini",
	"meet",
}

// IsTranscriptFile reports whether name looks like a meeting transcript,
// ignoring case and accents ("Transcrição" matches "transcricao").
func IsTranscriptFile(name string) bool {
	folded := strings.ToLower(fold(name))
	for _, k := range transcriptKeywords {
		if strings.Contains(folded, k) {
			return true
		}
	}
	return false
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
