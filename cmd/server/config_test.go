package main

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"codingbuddy/internal/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConfigDefaults(t *testing.T) {
	raw := `
llm:
  provider: ollama
`
	cfg := config{}
	require.NoError(t, yaml.Unmarshal([]byte(raw), &cfg))

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, defaultSystemPrompt, cfg.SystemPrompt)
	require.NotNil(t, cfg.LLM)
}

func TestConfigOllama(t *testing.T) {
	raw := `
port: "9090"
llm:
  provider: ollama
  model: codellama
  host: http://localhost:11434
`
	cfg := config{}
	require.NoError(t, yaml.Unmarshal([]byte(raw), &cfg))

	assert.Equal(t, "9090", cfg.Port)

	o, ok := cfg.LLM.(*ollamaConfig)
	require.True(t, ok)
	assert.Equal(t, "codellama", o.Model)
	assert.Equal(t, "http://localhost:11434", o.Host)

	llm, err := cfg.LLM.llm(cfg.SystemPrompt, testLogger())
	require.NoError(t, err)
	assert.IsType(t, services.Ollama{}, llm)
}

func TestConfigOpenAI(t *testing.T) {
	raw := `
llm:
  provider: openai
  apiKey: test-key
`
	cfg := config{}
	require.NoError(t, yaml.Unmarshal([]byte(raw), &cfg))

	llm, err := cfg.LLM.llm(cfg.SystemPrompt, testLogger())
	require.NoError(t, err)
	assert.IsType(t, services.OpenAI{}, llm)
}

func TestConfigOpenAIMissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	raw := `
llm:
  provider: openai
`
	cfg := config{}
	require.NoError(t, yaml.Unmarshal([]byte(raw), &cfg))

	_, err := cfg.LLM.llm(cfg.SystemPrompt, testLogger())
	assert.ErrorIs(t, err, services.ErrNoProvider)
}

func TestConfigAnthropic(t *testing.T) {
	raw := `
llm:
  provider: anthropic
  apiKey: test-key
  maxTokens: 1024
`
	cfg := config{}
	require.NoError(t, yaml.Unmarshal([]byte(raw), &cfg))

	llm, err := cfg.LLM.llm(cfg.SystemPrompt, testLogger())
	require.NoError(t, err)
	assert.IsType(t, services.Anthropic{}, llm)
}

func TestConfigUnknownProvider(t *testing.T) {
	raw := `
llm:
  provider: aol
`
	cfg := config{}
	err := yaml.Unmarshal([]byte(raw), &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown llm provider")
}

func TestConfigMissingLLM(t *testing.T) {
	raw := `
port: "8080"
`
	cfg := config{}
	err := yaml.Unmarshal([]byte(raw), &cfg)
	assert.ErrorIs(t, err, services.ErrNoProvider)
}
