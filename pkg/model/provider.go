package model

import "context"

// Model is a blocking, tool-augmented completion backend. Complete sends the
// full history plus the advertised tool descriptors and returns the
// normalized response. It is the only network suspension point of a turn.
type Model interface {
	Complete(ctx context.Context, messages []Message, tools []ToolDef) (*Completion, error)
}

// Provider constructs concrete Model implementations for a specific backend
// such as OpenAI or an Azure deployment.
type Provider interface {
	Name() string
	NewModel(ctx context.Context, cfg ModelConfig) (Model, error)
}

// ModelConfig captures the settings required to build a Model instance.
// Extra carries provider-specific tweaks without bloating the common
// surface. The yaml tags let named configurations load straight from the
// settings file.
type ModelConfig struct {
	Name     string            `yaml:"name"`
	Provider string            `yaml:"provider"`
	Model    string            `yaml:"model"`
	BaseURL  string            `yaml:"base_url"`
	APIKey   string            `yaml:"api_key"`
	Headers  map[string]string `yaml:"headers"`
	Extra    map[string]any    `yaml:"extra"`
}
