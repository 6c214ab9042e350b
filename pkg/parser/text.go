package parser

import (
	"context"
	"strings"
	"unicode/utf8"
)

// TextParser handles formats that are already plain text. Invalid UTF-8
// sequences are replaced rather than rejected.
type TextParser struct{}

// Extensions lists the plain-text format family
func (p *TextParser) Extensions() []string {
	return []string{"txt", "md", "markdown", "log", "json", "yaml", "yml", "xml", "html", "htm"}
}

// Parse returns the file content as text
func (p *TextParser) Parse(_ context.Context, data []byte, fileName string) *Result {
	res := &Result{Metadata: baseMetadata(fileName, len(data))}

	content := string(data)
	if !utf8.ValidString(content) {
		content = strings.ToValidUTF8(content, "�")
		res.Warnings = append(res.Warnings, "file contains invalid UTF-8 sequences, replaced")
	}

	// Strip a UTF-8 BOM if present
	content = strings.TrimPrefix(content, "\uFEFF")
	content = normalizeNewlines(content)

	if strings.TrimSpace(content) == "" {
		res.Warnings = append(res.Warnings, "file contains no text")
		return res
	}

	res.Content = content
	return res
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
