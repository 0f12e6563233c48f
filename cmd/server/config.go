package main

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"codingbuddy/internal/handlers"
	"codingbuddy/internal/services"
)

// Per-provider fallback models, used when the config leaves the model unset.
const (
	defaultOllamaModel    = "qwen2.5-coder"
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultAnthropicModel = "claude-3-5-sonnet-latest"

	defaultAnthropicMaxTokens = 4096
)

const defaultSystemPrompt = "You are Coding Buddy, a friendly assistant who helps with " +
	"programming questions. Prefer short answers with fenced code blocks."

type llmConfig interface {
	llm(systemPrompt string, logger *slog.Logger) (handlers.LLM, error)
}

// BaseLLMConfig contains the common fields for all provider configurations.
type BaseLLMConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

type config struct {
	Port         string
	SystemPrompt string
	LLM          llmConfig
	Store        storeConfig
	Log          logConfig
	Export       exportConfig
}

type storeConfig struct {
	// Type selects the transcript store: "memory" (default) or "bolt".
	Type string `yaml:"type"`
	Path string `yaml:"path"`
}

type logConfig struct {
	Level string `yaml:"level"`
	// File enables JSON logging with rotation instead of text on stdout.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

type exportConfig struct {
	// CodePatterns overrides the heuristic that decides which exported messages get padded
	// as probable code blocks.
	CodePatterns []string `yaml:"codePatterns"`
}

type ollamaConfig struct {
	BaseLLMConfig `yaml:",inline"`
	Host          string `yaml:"host"`
}

type openAIConfig struct {
	BaseLLMConfig `yaml:",inline"`
	APIKey        string `yaml:"apiKey"`
}

type anthropicConfig struct {
	BaseLLMConfig `yaml:",inline"`
	APIKey        string `yaml:"apiKey"`
	MaxTokens     int    `yaml:"maxTokens"`
}

func (c *config) UnmarshalYAML(value *yaml.Node) error {
	var rawConfig struct {
		Port         string         `yaml:"port"`
		SystemPrompt string         `yaml:"systemPrompt"`
		LLM          map[string]any `yaml:"llm"`
		Store        storeConfig    `yaml:"store"`
		Log          logConfig      `yaml:"log"`
		Export       exportConfig   `yaml:"export"`
	}

	if err := value.Decode(&rawConfig); err != nil {
		return err
	}

	c.Port = rawConfig.Port
	if c.Port == "" {
		c.Port = "8080"
	}
	c.SystemPrompt = rawConfig.SystemPrompt
	if c.SystemPrompt == "" {
		c.SystemPrompt = defaultSystemPrompt
	}
	c.Store = rawConfig.Store
	c.Log = rawConfig.Log
	c.Export = rawConfig.Export

	if len(rawConfig.LLM) == 0 {
		return services.ErrNoProvider
	}

	llmProvider, ok := rawConfig.LLM["provider"].(string)
	if !ok {
		return fmt.Errorf("%w: llm provider is required", services.ErrNoProvider)
	}

	llmRawYAML, err := yaml.Marshal(rawConfig.LLM)
	if err != nil {
		return err
	}

	var llm llmConfig
	switch llmProvider {
	case "ollama":
		llm = &ollamaConfig{}
	case "openai":
		llm = &openAIConfig{}
	case "anthropic":
		llm = &anthropicConfig{}
	default:
		return fmt.Errorf("unknown llm provider: %s", llmProvider)
	}

	if err := yaml.Unmarshal(llmRawYAML, llm); err != nil {
		return err
	}

	c.LLM = llm

	return nil
}

func (o ollamaConfig) llm(systemPrompt string, _ *slog.Logger) (handlers.LLM, error) {
	host := o.Host
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	if host == "" {
		host = "http://127.0.0.1:11434"
	}

	model := o.Model
	if model == "" {
		model = defaultOllamaModel
	}

	return services.NewOllama(host, model, systemPrompt), nil
}

func (o openAIConfig) llm(systemPrompt string, logger *slog.Logger) (handlers.LLM, error) {
	apiKey := o.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: openai apiKey is required", services.ErrNoProvider)
	}

	model := o.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	return services.NewOpenAI(apiKey, model, systemPrompt, logger), nil
}

func (a anthropicConfig) llm(systemPrompt string, _ *slog.Logger) (handlers.LLM, error) {
	apiKey := a.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: anthropic apiKey is required", services.ErrNoProvider)
	}

	model := a.Model
	if model == "" {
		model = defaultAnthropicModel
	}

	maxTokens := a.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	return services.NewAnthropic(apiKey, model, systemPrompt, maxTokens), nil
}
