package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func toRawTool(t *mcpsdk.Tool) (RawTool, error) {
	if t == nil {
		return RawTool{}, errors.New("tool descriptor is nil")
	}
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return RawTool{}, errors.New("tool descriptor has no name")
	}
	raw := RawTool{Name: name, Description: t.Description}
	if t.InputSchema != nil {
		schema, err := json.Marshal(t.InputSchema)
		if err != nil {
			return RawTool{}, fmt.Errorf("encode schema for tool %s: %w", name, err)
		}
		raw.Schema = schema
	}
	return raw, nil
}

func rawArguments(args string) json.RawMessage {
	return json.RawMessage(args)
}

// resultText flattens a call result into the textual form fed back to the
// model: text blocks joined by newlines, otherwise the structured content
// as JSON. Error-flagged results are still data, not Go errors.
func resultText(result *mcpsdk.CallToolResult) string {
	if result == nil {
		return ""
	}
	var parts []string
	for _, content := range result.Content {
		if text, ok := content.(*mcpsdk.TextContent); ok && text.Text != "" {
			parts = append(parts, text.Text)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, "\n")
	}
	if result.StructuredContent != nil {
		if data, err := json.Marshal(result.StructuredContent); err == nil {
			return string(data)
		}
	}
	return ""
}
