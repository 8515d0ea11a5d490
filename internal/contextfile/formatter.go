// Package contextfile reads local files and prepares them for safe injection
// into a model prompt.
package contextfile

import (
	"fmt"
	"strings"
)

// DefaultMaxTotalChars is the total context budget across all files
// (roughly 100k tokens).
const DefaultMaxTotalChars = 400000

// Formatter turns validated files into one structured text block using
// tag-delimited sections per file. Output is deterministic: the same input
// sequence always yields the same string byte-for-byte.
type Formatter struct {
	maxTotalChars int
}

// NewFormatter creates a Formatter with the given total character budget.
// A non-positive budget falls back to the default.
func NewFormatter(maxTotalChars int) *Formatter {
	if maxTotalChars <= 0 {
		maxTotalChars = DefaultMaxTotalChars
	}
	return &Formatter{maxTotalChars: maxTotalChars}
}

// Format serializes the files in order. Empty input yields an empty string,
// never an error. Files past the total budget are dropped with a flagged
// skip note so truncation is never silent.
func (f *Formatter) Format(contexts []FileContext) string {
	if len(contexts) == 0 {
		return ""
	}

	parts := make([]string, 0, len(contexts))
	total := 0
	budgetSpent := false

	for _, fc := range contexts {
		if budgetSpent {
			parts = append(parts, SkipNote(fc.Path, "context budget exceeded"))
			continue
		}

		block := formatFile(fc)
		if total+len(block) > f.maxTotalChars {
			budgetSpent = true
			parts = append(parts, SkipNote(fc.Path, "context budget exceeded"))
			continue
		}

		parts = append(parts, block)
		total += len(block)
	}

	return strings.Join(parts, "\n\n")
}

// SkipNote renders the marker for a file that was left out of the context
// block, with the reason as an attribute.
func SkipNote(path, reason string) string {
	return fmt.Sprintf(`<skipped path="%s" reason="%s"/>`, escapeAttr(path), escapeAttr(reason))
}

func formatFile(fc FileContext) string {
	var sb strings.Builder
	sb.WriteString(`<file path="`)
	sb.WriteString(escapeAttr(fc.Path))
	sb.WriteString(`"`)
	if fc.Truncated {
		sb.WriteString(` truncated="true"`)
	}
	sb.WriteString(">\n")
	sb.WriteString(fc.Content)
	sb.WriteString("\n</file>")
	return sb.String()
}

var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	`"`, "&quot;",
	"<", "&lt;",
	">", "&gt;",
)

func escapeAttr(s string) string {
	return attrEscaper.Replace(s)
}
