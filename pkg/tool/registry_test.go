package tool

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/cexll/chatloop-go/pkg/mcp"
	"github.com/stretchr/testify/require"
)

// fakeSource serves canned tool listings and records calls.
type fakeSource struct {
	tools   map[string][]mcp.RawTool
	listErr map[string]error
	calls   []string
}

func (f *fakeSource) ListTools(ctx context.Context, server string) ([]mcp.RawTool, error) {
	if err := f.listErr[server]; err != nil {
		return nil, err
	}
	return f.tools[server], nil
}

func (f *fakeSource) CallTool(ctx context.Context, server, tool, args string) (string, error) {
	f.calls = append(f.calls, server+"/"+tool+"/"+args)
	return "remote output", nil
}

func localReg(name string) Registration {
	return Registration{
		Descriptor: Descriptor{Name: name, Description: "local " + name},
		Invoker: InvokerFunc(func(ctx context.Context, args string) (string, error) {
			return "local output", nil
		}),
	}
}

func TestBuildLocalOnly(t *testing.T) {
	set, err := Build(context.Background(), nil, []Registration{localReg("shell"), localReg("read_file")}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 2, set.Len())

	descs := set.Descriptors()
	require.Equal(t, "shell", descs[0].Name)
	require.Equal(t, "read_file", descs[1].Name)

	inv, ok := set.Lookup("shell")
	require.True(t, ok)
	out, err := inv.Invoke(context.Background(), "{}")
	require.NoError(t, err)
	require.Equal(t, "local output", out)
}

func TestBuildMergesServersInOrder(t *testing.T) {
	src := &fakeSource{tools: map[string][]mcp.RawTool{
		"alpha": {{Name: "search", Description: "remote search", Schema: json.RawMessage(`{"type":"object"}`)}},
		"beta":  {{Name: "fetch", Description: "remote fetch"}},
	}}
	set, err := Build(context.Background(), nil, []Registration{localReg("shell")}, src, []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Equal(t, 3, set.Len())

	descs := set.Descriptors()
	require.Equal(t, []string{"shell", "search", "fetch"}, []string{descs[0].Name, descs[1].Name, descs[2].Name})
	require.Equal(t, json.RawMessage(`{"type":"object"}`), descs[1].Parameters)

	inv, ok := set.Lookup("search")
	require.True(t, ok)
	out, err := inv.Invoke(context.Background(), `{"q":"go"}`)
	require.NoError(t, err)
	require.Equal(t, "remote output", out)
	require.Equal(t, []string{`alpha/search/{"q":"go"}`}, src.calls)
}

func TestBuildCollisionLaterSourceWins(t *testing.T) {
	src := &fakeSource{tools: map[string][]mcp.RawTool{
		"alpha": {{Name: "shell", Description: "remote shell"}},
	}}
	set, err := Build(context.Background(), nil, []Registration{localReg("shell")}, src, []string{"alpha"})
	require.NoError(t, err)

	// Both descriptors remain advertised; invocation routes to the winner.
	require.Len(t, set.Descriptors(), 2)
	require.Equal(t, 1, set.Len())

	inv, ok := set.Lookup("shell")
	require.True(t, ok)
	remote, ok := inv.(RemoteInvoker)
	require.True(t, ok)
	require.Equal(t, "alpha", remote.Server)
	require.Equal(t, "shell", remote.Tool)
}

func TestBuildUnnamedRemoteToolFails(t *testing.T) {
	src := &fakeSource{tools: map[string][]mcp.RawTool{
		"alpha": {{Name: "  ", Description: "anonymous"}},
	}}
	_, err := Build(context.Background(), nil, nil, src, []string{"alpha"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "alpha")
}

func TestBuildListFailurePropagates(t *testing.T) {
	src := &fakeSource{listErr: map[string]error{"alpha": errors.New("not connected")}}
	_, err := Build(context.Background(), nil, nil, src, []string{"alpha"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "register server alpha")
}

func TestBuildRejectsBadLocals(t *testing.T) {
	_, err := Build(context.Background(), nil, []Registration{{Descriptor: Descriptor{Name: ""}}}, nil, nil)
	require.Error(t, err)

	_, err = Build(context.Background(), nil, []Registration{{Descriptor: Descriptor{Name: "shell"}}}, nil, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "shell")
}

func TestBuildServerWithoutSourceFails(t *testing.T) {
	_, err := Build(context.Background(), nil, nil, nil, []string{"alpha"})
	require.Error(t, err)
}

func TestNilSetIsEmpty(t *testing.T) {
	var set *Set
	require.Nil(t, set.Descriptors())
	require.Equal(t, 0, set.Len())
	_, ok := set.Lookup("anything")
	require.False(t, ok)
}

func TestSchemaForInlinesStruct(t *testing.T) {
	type params struct {
		Path  string `json:"path" jsonschema:"description=File path"`
		Limit int    `json:"limit,omitempty"`
	}
	raw, err := SchemaFor(&params{})
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(raw, &schema))
	require.Equal(t, "object", schema["type"])
	require.NotContains(t, schema, "$ref")

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, props, "path")
	require.Contains(t, props, "limit")

	required, ok := schema["required"].([]any)
	require.True(t, ok)
	require.Equal(t, []any{"path"}, required)
}
