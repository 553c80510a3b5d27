package builtin

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadWriteRoundtrip(t *testing.T) {
	root := t.TempDir()

	write, err := WriteFileTool(root)
	require.NoError(t, err)
	read, err := ReadFileTool(root)
	require.NoError(t, err)

	out, err := write.Invoker.Invoke(context.Background(),
		`{"path":"notes/todo.txt","content":"buy milk\n"}`)
	require.NoError(t, err)
	require.Contains(t, out, "todo.txt")

	got, err := read.Invoker.Invoke(context.Background(), `{"path":"notes/todo.txt"}`)
	require.NoError(t, err)
	require.Equal(t, "buy milk\n", got)
}

func TestReadRejectsEscape(t *testing.T) {
	read, err := ReadFileTool(t.TempDir())
	require.NoError(t, err)

	_, err = read.Invoker.Invoke(context.Background(), `{"path":"../../etc/passwd"}`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "escapes the workspace root")
}

func TestReadRejectsDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))

	read, err := ReadFileTool(root)
	require.NoError(t, err)
	_, err = read.Invoker.Invoke(context.Background(), `{"path":"sub"}`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "directory")
}

func TestReadMissingRequiredField(t *testing.T) {
	read, err := ReadFileTool(t.TempDir())
	require.NoError(t, err)

	_, err = read.Invoker.Invoke(context.Background(), `{}`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing required field: path")
}

func TestReadMalformedArguments(t *testing.T) {
	read, err := ReadFileTool(t.TempDir())
	require.NoError(t, err)

	_, err = read.Invoker.Invoke(context.Background(), `{not json`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse arguments")
}

func TestWriteCreatesParentDirectories(t *testing.T) {
	root := t.TempDir()
	write, err := WriteFileTool(root)
	require.NoError(t, err)

	_, err = write.Invoker.Invoke(context.Background(),
		`{"path":"a/b/c.txt","content":"deep"}`)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "a", "b", "c.txt"))
	require.NoError(t, err)
	require.Equal(t, "deep", string(data))
}

func TestShellReturnsCombinedOutput(t *testing.T) {
	shell, err := ShellTool(t.TempDir())
	require.NoError(t, err)

	out, err := shell.Invoker.Invoke(context.Background(), `{"command":"echo hello"}`)
	require.NoError(t, err)
	require.Equal(t, "hello\n", out)
}

func TestShellExitStatusIsData(t *testing.T) {
	shell, err := ShellTool(t.TempDir())
	require.NoError(t, err)

	out, err := shell.Invoker.Invoke(context.Background(), `{"command":"echo oops >&2; exit 3"}`)
	require.NoError(t, err)
	require.Contains(t, out, "oops")
	require.Contains(t, out, "[exit status: exit status 3]")
}

func TestShellRunsInWorkdir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "marker.txt"), []byte("x"), 0o644))

	shell, err := ShellTool(root)
	require.NoError(t, err)
	out, err := shell.Invoker.Invoke(context.Background(), `{"command":"ls"}`)
	require.NoError(t, err)
	require.Contains(t, out, "marker.txt")
}

func TestShellRejectsEmptyCommand(t *testing.T) {
	shell, err := ShellTool(t.TempDir())
	require.NoError(t, err)

	_, err = shell.Invoker.Invoke(context.Background(), `{"command":"  "}`)
	require.Error(t, err)
}

func TestShellTruncatesLongOutput(t *testing.T) {
	shell, err := ShellTool(t.TempDir())
	require.NoError(t, err)

	out, err := shell.Invoker.Invoke(context.Background(),
		`{"command":"head -c 100000 /dev/zero | tr '\\0' 'a'"}`)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(out, "[output truncated]"))
	require.LessOrEqual(t, len(out), maxShellOutput+len("\n[output truncated]"))
}

func TestRegistrationsOrderAndSchemas(t *testing.T) {
	regs, err := Registrations(t.TempDir())
	require.NoError(t, err)
	require.Len(t, regs, 3)
	require.Equal(t, "shell", regs[0].Descriptor.Name)
	require.Equal(t, "read_file", regs[1].Descriptor.Name)
	require.Equal(t, "write_file", regs[2].Descriptor.Name)
	for _, reg := range regs {
		require.NotEmpty(t, reg.Descriptor.Parameters)
		require.NotNil(t, reg.Invoker)
	}
}
