package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codingbuddy/internal/models"
)

func TestRenderLineBreaks(t *testing.T) {
	out, err := models.Render("a\n\nb")
	require.NoError(t, err)

	html := string(out)
	assert.Contains(t, html, "a")
	assert.Contains(t, html, "b")

	out, err = models.Render("line one\nline two")
	require.NoError(t, err)
	assert.Contains(t, string(out), "<br", "single newlines become hard line breaks")
}

func TestRenderFencedCode(t *testing.T) {
	out, err := models.Render("```\ncode\n```")
	require.NoError(t, err)

	html := string(out)
	assert.Contains(t, html, "<pre")
	assert.Contains(t, html, "code")
	assert.NotContains(t, html, "```")
}

func TestRenderInlineCode(t *testing.T) {
	out, err := models.Render("```x=1```")
	require.NoError(t, err)

	assert.Contains(t, string(out), "<code>x=1</code>")
}

func TestRenderEscapesHTML(t *testing.T) {
	out, err := models.Render("<script>alert(1)</script>")
	require.NoError(t, err)

	assert.NotContains(t, string(out), "<script>")
}

func TestRenderPlainText(t *testing.T) {
	out, err := models.Render("just some words")
	require.NoError(t, err)

	assert.Contains(t, string(out), "just some words")
}
