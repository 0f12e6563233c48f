package export_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codingbuddy/internal/export"
	"codingbuddy/internal/models"
)

func TestBuildEmptyTranscript(t *testing.T) {
	exporter, err := export.New()
	require.NoError(t, err)

	_, err = exporter.Build(nil)
	assert.ErrorIs(t, err, export.ErrEmptyTranscript)
}

func TestBuildSections(t *testing.T) {
	exporter, err := export.New()
	require.NoError(t, err)

	out, err := exporter.Build([]models.Message{
		{Role: models.RoleUser, Text: "hi"},
		{Role: models.RoleAssistant, Text: "```x=1```"},
	})
	require.NoError(t, err)

	assert.Contains(t, out, "### User\n\nhi")
	assert.Contains(t, out, "### Bot")
	assert.Contains(t, out, "x=1", "fence markers are stripped but the text is preserved")
	assert.NotContains(t, out, "```")
}

func TestBuildStripsFenceLanguage(t *testing.T) {
	exporter, err := export.New()
	require.NoError(t, err)

	out, err := exporter.Build([]models.Message{
		{Role: models.RoleAssistant, Text: "```go\nx := 1\n```"},
	})
	require.NoError(t, err)

	assert.Contains(t, out, "x := 1")
	assert.NotContains(t, out, "go\n", "language tag is presentation, not content")
}

func TestBuildPadsCodeLookingMessages(t *testing.T) {
	exporter, err := export.New()
	require.NoError(t, err)

	tests := []struct {
		name     string
		text     string
		wantPad  bool
	}{
		{name: "function declaration", text: "func main() {\n}", wantPad: true},
		{name: "import statement", text: "import os", wantPad: true},
		{name: "assignment", text: "count = 1", wantPad: true},
		{name: "prose", text: "hello there, how are you", wantPad: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := exporter.Build([]models.Message{
				{Role: models.RoleAssistant, Text: tt.text},
			})
			require.NoError(t, err)

			padded := strings.Contains(out, "### Bot\n\n\n")
			assert.Equal(t, tt.wantPad, padded, "output: %q", out)
		})
	}
}

func TestWithCodePatterns(t *testing.T) {
	exporter, err := export.New(export.WithCodePatterns([]string{`^SELECT\b`}))
	require.NoError(t, err)

	out, err := exporter.Build([]models.Message{
		{Role: models.RoleAssistant, Text: "func main() {}"},
	})
	require.NoError(t, err)
	assert.NotContains(t, out, "### Bot\n\n\n", "default patterns are replaced, not extended")

	out, err = exporter.Build([]models.Message{
		{Role: models.RoleAssistant, Text: "SELECT * FROM users"},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "### Bot\n\n\n")
}

func TestWithCodePatternsInvalid(t *testing.T) {
	_, err := export.New(export.WithCodePatterns([]string{"("}))
	assert.Error(t, err)
}

func TestFilename(t *testing.T) {
	now := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, "coding-buddy-chat-20240102-150405.md", export.Filename(now))
}
