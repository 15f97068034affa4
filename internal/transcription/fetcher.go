package transcription

import (
	"strings"

	"github.com/therealutkarshpriyadarshi/vidsum/pkg/models"
)

// danda is the Devanagari full stop some caption tracks end every line with
const danda = "।"

// JoinEntries concatenates caption entries into one string. English entries
// are joined with a space. Other languages drop the danda from each entry
// and join with ". " so the segmenter sees sentence boundaries.
func JoinEntries(lang string, entries []models.TranscriptEntry) string {
	parts := make([]string, 0, len(entries))
	if lang == "en" {
		for _, e := range entries {
			parts = append(parts, strings.TrimSpace(e.Text))
		}
		return strings.Join(parts, " ")
	}

	for _, e := range entries {
		parts = append(parts, strings.TrimSpace(strings.ReplaceAll(e.Text, danda, "")))
	}
	return strings.Join(parts, ". ")
}

// capitalize upper-cases the first letter and lower-cases the rest
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	r[0] = []rune(strings.ToUpper(string(r[0])))[0]
	return string(r)
}
