package builtin

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/cexll/chatloop-go/pkg/tool"
)

const maxShellOutput = 64 << 10 // 64 KiB

type shellParams struct {
	Command string `json:"command" jsonschema:"description=Shell command line to execute"`
}

// ShellTool runs a command line through the system shell and returns its
// combined output. Non-zero exits are reported as output, not as errors:
// the model needs to see the failure text.
func ShellTool(workdir string) (tool.Registration, error) {
	schema, err := tool.SchemaFor(&shellParams{})
	if err != nil {
		return tool.Registration{}, err
	}
	resolved := resolveRoot(workdir)
	return tool.Registration{
		Descriptor: tool.Descriptor{
			Name:        "shell",
			Description: "Execute a shell command in the workspace and return its combined output.",
			Parameters:  schema,
		},
		Invoker: tool.InvokerFunc(func(ctx context.Context, args string) (string, error) {
			var params shellParams
			if err := decodeArgs(args, schema, &params); err != nil {
				return "", err
			}
			command := strings.TrimSpace(params.Command)
			if command == "" {
				return "", fmt.Errorf("command cannot be empty")
			}

			// #nosec G204 -- executing model-chosen commands is this tool's purpose.
			cmd := exec.CommandContext(ctx, "sh", "-c", command)
			cmd.Dir = resolved
			output, runErr := cmd.CombinedOutput()

			text := string(output)
			if len(text) > maxShellOutput {
				text = text[:maxShellOutput] + "\n[output truncated]"
			}
			if runErr != nil {
				if _, ok := runErr.(*exec.ExitError); ok {
					return fmt.Sprintf("%s\n[exit status: %v]", text, runErr), nil
				}
				return "", fmt.Errorf("run command: %w", runErr)
			}
			return text, nil
		}),
	}, nil
}

// Registrations collects every local tool rooted at dir, in a fixed order.
func Registrations(dir string) ([]tool.Registration, error) {
	shell, err := ShellTool(dir)
	if err != nil {
		return nil, err
	}
	read, err := ReadFileTool(dir)
	if err != nil {
		return nil, err
	}
	write, err := WriteFileTool(dir)
	if err != nil {
		return nil, err
	}
	return []tool.Registration{shell, read, write}, nil
}
