package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/cexll/chatloop-go/pkg/mcp"
	"github.com/cexll/chatloop-go/pkg/model"
	"github.com/cexll/chatloop-go/pkg/session"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the loader looks when no path is given.
const DefaultPath = "chatloop.yaml"

const defaultSystemPrompt = "You are a helpful assistant with access to tools. " +
	"Use them when they help answer the user."

// EngineConfig carries the turn-engine bounds.
type EngineConfig struct {
	MaxRounds int `yaml:"max_rounds"`
}

// Settings is the full on-disk configuration: the active model name, the
// named model configurations reachable through /model, the seeded prompts,
// the remote server launch specs, and the engine bounds.
type Settings struct {
	Model   string                       `yaml:"model"`
	Models  map[string]model.ModelConfig `yaml:"models"`
	Prompts session.Prompts              `yaml:"prompts"`
	Servers map[string]mcp.LaunchSpec    `yaml:"servers"`
	Engine  EngineConfig                 `yaml:"engine"`
}

// DefaultSettings returns the configuration used when no file exists.
func DefaultSettings() *Settings {
	return &Settings{
		Model:   "default",
		Models:  map[string]model.ModelConfig{},
		Prompts: session.Prompts{System: defaultSystemPrompt},
		Servers: map[string]mcp.LaunchSpec{},
		Engine:  EngineConfig{MaxRounds: 0},
	}
}

// Load reads settings from path, falling back to defaults when the file
// does not exist. Environment references like ${OPENAI_API_KEY} are
// expanded before parsing so secrets stay out of the file.
func Load(path string) (*Settings, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Decode(data)
}

// Decode parses a raw YAML payload into Settings.
func Decode(data []byte) (*Settings, error) {
	if len(data) == 0 {
		return nil, errors.New("config payload is empty")
	}
	settings := DefaultSettings()
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), settings); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	settings.normalize()
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// normalize backfills each model config's Name from its map key so the
// session can tell configurations apart after a /model swap.
func (s *Settings) normalize() {
	for key, cfg := range s.Models {
		if strings.TrimSpace(cfg.Name) == "" {
			cfg.Name = key
		}
		s.Models[key] = cfg
	}
	if strings.TrimSpace(s.Prompts.System) == "" {
		s.Prompts.System = defaultSystemPrompt
	}
}

// Validate enforces minimal structural guarantees.
func (s *Settings) Validate() error {
	if s == nil {
		return errors.New("settings is nil")
	}
	for key, cfg := range s.Models {
		if strings.TrimSpace(cfg.Provider) == "" {
			return fmt.Errorf("model %s: provider is required", key)
		}
	}
	for key, spec := range s.Servers {
		if strings.TrimSpace(spec.Command) == "" {
			return fmt.Errorf("server %s: command is required", key)
		}
	}
	if s.Engine.MaxRounds < 0 {
		return fmt.Errorf("engine.max_rounds cannot be negative: %d", s.Engine.MaxRounds)
	}
	return nil
}

// Active resolves the model configuration named by the top-level model key.
func (s *Settings) Active() (model.ModelConfig, error) {
	return s.Lookup(s.Model)
}

// Lookup resolves a named model configuration; it backs /model and
// implements session.ConfigSource.
func (s *Settings) Lookup(name string) (model.ModelConfig, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return model.ModelConfig{}, errors.New("model name is empty")
	}
	cfg, ok := s.Models[trimmed]
	if !ok {
		return model.ModelConfig{}, fmt.Errorf("model configuration %q not found", trimmed)
	}
	return cfg, nil
}

// ServerNames returns the configured server identifiers in lexicographic
// order. Launch specs live in a map, so this is the stable connection
// order the registry merge follows.
func (s *Settings) ServerNames() []string {
	names := make([]string, 0, len(s.Servers))
	for name := range s.Servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
