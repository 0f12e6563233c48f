// Package export turns a transcript into a portable Markdown document.
package export

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"codingbuddy/internal/models"
)

// MIMEType is the content type of exported documents.
const MIMEType = "text/markdown"

const filenamePrefix = "coding-buddy-chat"

// ErrEmptyTranscript is returned when there are no messages to export.
var ErrEmptyTranscript = errors.New("transcript contains no messages")

// fenceRe matches code fence markers, including an opener's language tag when the tag sits on
// its own line. The markers are presentation, not content, so they are stripped from exports.
var fenceRe = regexp.MustCompile("```(?:[a-zA-Z0-9_+-]+\n)?")

// defaultCodePatterns is a best-effort guess at message text that is probably source code:
// declarations, assignments, brace-style keywords, and import statements. Matching messages
// get extra blank lines around them in the exported document.
var defaultCodePatterns = []string{
	`(?m)^\s*(func|function|def|class|type|var|let|const)\b`,
	`(?m)^\s*(import|from|package|#include|require)\b`,
	`(?m)^\s*[\w.\[\]]+\s*=[^=]`,
	`(?m)\b(if|for|while|switch|return)\s*\(`,
	"```",
}

// Exporter builds Markdown documents from transcripts. The zero value is not usable; call New.
type Exporter struct {
	codePatterns []*regexp.Regexp
}

// Option customizes an Exporter.
type Option func(*Exporter) error

// WithCodePatterns replaces the default code-detection heuristic with the given regular
// expressions.
func WithCodePatterns(patterns []string) Option {
	return func(e *Exporter) error {
		compiled := make([]*regexp.Regexp, 0, len(patterns))
		for _, p := range patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return fmt.Errorf("invalid code pattern %q: %w", p, err)
			}
			compiled = append(compiled, re)
		}
		e.codePatterns = compiled
		return nil
	}
}

// New creates an Exporter with the default code-detection patterns, then applies opts.
func New(opts ...Option) (Exporter, error) {
	e := Exporter{}
	if err := WithCodePatterns(defaultCodePatterns)(&e); err != nil {
		return Exporter{}, err
	}
	for _, opt := range opts {
		if err := opt(&e); err != nil {
			return Exporter{}, err
		}
	}
	return e, nil
}

// Build renders the transcript as UTF-8 Markdown: one section per message, a role heading
// followed by the message's plain text, sections joined by blank lines. Code fence markers are
// stripped from the body since exports carry plain text, and messages that look like source
// code are padded with extra blank lines. Returns ErrEmptyTranscript for an empty transcript.
func (e Exporter) Build(messages []models.Message) (string, error) {
	if len(messages) == 0 {
		return "", ErrEmptyTranscript
	}

	sections := make([]string, 0, len(messages))
	for _, msg := range messages {
		body := strings.TrimSpace(fenceRe.ReplaceAllString(msg.Text, ""))

		var sb strings.Builder
		sb.WriteString("### ")
		sb.WriteString(msg.Role.ExportLabel())
		sb.WriteString("\n\n")
		if e.looksLikeCode(msg.Text) {
			sb.WriteString("\n")
			sb.WriteString(body)
			sb.WriteString("\n")
		} else {
			sb.WriteString(body)
		}
		sections = append(sections, sb.String())
	}

	return strings.Join(sections, "\n\n") + "\n", nil
}

func (e Exporter) looksLikeCode(text string) bool {
	for _, re := range e.codePatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Filename returns the download name for an export taken at the given time. The timestamp
// suffix keeps repeated exports from colliding.
func Filename(now time.Time) string {
	return fmt.Sprintf("%s-%s.md", filenamePrefix, now.Format("20060102-150405"))
}
