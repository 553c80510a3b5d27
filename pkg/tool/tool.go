package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Descriptor is the schema advertised to the model for one callable tool.
// Parameters holds the raw JSON-schema of the argument payload.
type Descriptor struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Invoker executes a tool given the serialized argument payload exactly as
// the model emitted it, and returns the stringified output. Failures are
// ordinary errors; callers turn them into result data, never panics.
type Invoker interface {
	Invoke(ctx context.Context, args string) (string, error)
}

// InvokerFunc adapts a plain function to the Invoker interface.
type InvokerFunc func(ctx context.Context, args string) (string, error)

func (f InvokerFunc) Invoke(ctx context.Context, args string) (string, error) {
	return f(ctx, args)
}

// Registration pairs a local tool descriptor with its invoker. Local tools
// are collected explicitly at startup; there is no reflective discovery.
type Registration struct {
	Descriptor Descriptor
	Invoker    Invoker
}

// SchemaFor reflects the JSON schema of a parameter struct. The result is
// inlined (no $ref) so it can be sent to the model as-is.
func SchemaFor(params any) (json.RawMessage, error) {
	reflector := jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
	}
	schema := reflector.Reflect(params)
	schema.Version = ""
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("encode parameter schema: %w", err)
	}
	return data, nil
}
