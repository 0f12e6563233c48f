package models

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting"
	"github.com/yuin/goldmark/renderer/html"
)

// markdown is configured without html.WithUnsafe, so raw HTML in message text never reaches
// the transcript view. Hard wraps turn every newline into a line break.
var markdown = goldmark.New(
	goldmark.WithExtensions(
		highlighting.NewHighlighting(
			highlighting.WithStyle("monokai"),
		),
	),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
	),
)

// Render converts raw message text into display HTML. Fenced code spans become highlighted
// code regions and newlines become line breaks; the input is otherwise treated as untrusted
// text, so markup in it is never passed through. Callers get back HTML that is safe to
// inject into the transcript view.
func Render(text string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("failed to render message: %w", err)
	}
	return template.HTML(buf.String()), nil
}
