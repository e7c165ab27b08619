package suggestion

import (
	"regexp"
	"strings"

	"obd-backend/diagnosis"
)

const closingQuestion = "Based on this information, what could be the causes of the problem and how can it be resolved?"

var markdownChars = regexp.MustCompile("[*_#`~]")

// Prompt renders the record as the user message sent to the assistant.
func Prompt(rec diagnosis.Record) string {
	var b strings.Builder
	for _, f := range rec.Fields() {
		b.WriteString(f.Label)
		b.WriteString(": ")
		b.WriteString(f.Value)
		b.WriteByte('\n')
	}
	b.WriteString(closingQuestion)
	return b.String()
}

// StripMarkdown removes emphasis, heading and code fence characters.
func StripMarkdown(s string) string {
	return markdownChars.ReplaceAllString(s, "")
}
