package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cexll/chatloop-go/pkg/tool"
)

const maxFileBytes = 1 << 20 // 1 MiB

type readFileParams struct {
	Path string `json:"path" jsonschema:"description=Path relative to the workspace root"`
}

type writeFileParams struct {
	Path    string `json:"path" jsonschema:"description=Path relative to the workspace root"`
	Content string `json:"content" jsonschema:"description=Full file contents to write"`
}

// ReadFileTool exposes bounded file reads confined to a root directory.
func ReadFileTool(root string) (tool.Registration, error) {
	schema, err := tool.SchemaFor(&readFileParams{})
	if err != nil {
		return tool.Registration{}, err
	}
	resolved := resolveRoot(root)
	return tool.Registration{
		Descriptor: tool.Descriptor{
			Name:        "read_file",
			Description: "Read a text file from the workspace and return its contents.",
			Parameters:  schema,
		},
		Invoker: tool.InvokerFunc(func(ctx context.Context, args string) (string, error) {
			var params readFileParams
			if err := decodeArgs(args, schema, &params); err != nil {
				return "", err
			}
			target, err := resolvePath(resolved, params.Path)
			if err != nil {
				return "", err
			}
			if err := ctx.Err(); err != nil {
				return "", err
			}
			info, err := os.Stat(target)
			if err != nil {
				return "", fmt.Errorf("stat file: %w", err)
			}
			if info.IsDir() {
				return "", fmt.Errorf("%s is a directory", params.Path)
			}
			if info.Size() > maxFileBytes {
				return "", fmt.Errorf("file exceeds %d bytes limit", maxFileBytes)
			}
			data, err := os.ReadFile(target)
			if err != nil {
				return "", fmt.Errorf("read file: %w", err)
			}
			return string(data), nil
		}),
	}, nil
}

// WriteFileTool exposes whole-file writes confined to a root directory.
func WriteFileTool(root string) (tool.Registration, error) {
	schema, err := tool.SchemaFor(&writeFileParams{})
	if err != nil {
		return tool.Registration{}, err
	}
	resolved := resolveRoot(root)
	return tool.Registration{
		Descriptor: tool.Descriptor{
			Name:        "write_file",
			Description: "Create or overwrite a text file in the workspace.",
			Parameters:  schema,
		},
		Invoker: tool.InvokerFunc(func(ctx context.Context, args string) (string, error) {
			var params writeFileParams
			if err := decodeArgs(args, schema, &params); err != nil {
				return "", err
			}
			target, err := resolvePath(resolved, params.Path)
			if err != nil {
				return "", err
			}
			if err := ctx.Err(); err != nil {
				return "", err
			}
			data := []byte(params.Content)
			if len(data) > maxFileBytes {
				return "", fmt.Errorf("content exceeds %d bytes limit", maxFileBytes)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return "", fmt.Errorf("ensure directory: %w", err)
			}
			if err := os.WriteFile(target, data, 0o644); err != nil {
				return "", fmt.Errorf("write file: %w", err)
			}
			return fmt.Sprintf("wrote %d bytes to %s", len(data), params.Path), nil
		}),
	}, nil
}

// decodeArgs parses the serialized payload, validates it against the
// schema, then decodes it into the typed parameter struct.
func decodeArgs(args string, schema json.RawMessage, dest any) error {
	trimmed := strings.TrimSpace(args)
	payload := map[string]any{}
	if trimmed != "" {
		if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
			return fmt.Errorf("parse arguments: %w", err)
		}
	}
	if err := tool.ValidateArgs(payload, schema); err != nil {
		return err
	}
	if trimmed == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(trimmed), dest); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	return nil
}

func resolveRoot(root string) string {
	trimmed := strings.TrimSpace(root)
	if trimmed == "" {
		if wd, err := os.Getwd(); err == nil {
			return wd
		}
		return "."
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// resolvePath confines a user-supplied path inside root.
func resolvePath(root, path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", errors.New("path cannot be empty")
	}
	candidate := trimmed
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(root, candidate)
	}
	candidate = filepath.Clean(candidate)
	rel, err := filepath.Rel(root, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s escapes the workspace root", trimmed)
	}
	return candidate, nil
}
