package mcp

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// State tracks the lifecycle of one remote tool server. Closed is terminal.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "disconnected"
	}
}

// LaunchSpec describes how to start one tool-provider subprocess.
type LaunchSpec struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// RawTool is a tool enumerated from a remote server, schema as raw JSON.
type RawTool struct {
	Name        string
	Description string
	Schema      []byte
}

// toolSession is the subset of the SDK client session the manager relies
// on. Tests substitute fakes through the connectSession seam.
type toolSession interface {
	ListTools(ctx context.Context, params *mcpsdk.ListToolsParams) (*mcpsdk.ListToolsResult, error)
	CallTool(ctx context.Context, params *mcpsdk.CallToolParams) (*mcpsdk.CallToolResult, error)
	Close() error
}

// connectSession is overridden in tests to stub process launch and the
// transport handshake.
var connectSession = launchAndConnect

func launchAndConnect(ctx context.Context, name string, spec LaunchSpec) (toolSession, error) {
	command := strings.TrimSpace(spec.Command)
	if command == "" {
		return nil, fmt.Errorf("server %s: launch command is empty", name)
	}
	// #nosec G204 -- the launch spec comes from the operator's own config file.
	cmd := exec.CommandContext(ctx, command, spec.Args...)
	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "chatloop", Version: "dev"}, nil)
	session, err := client.Connect(ctx, &mcpsdk.CommandTransport{Command: cmd}, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to server %s: %w", name, err)
	}
	return session, nil
}

type server struct {
	name    string
	state   State
	session toolSession
}

// Manager owns the lifecycle of every connected tool-provider subprocess.
// Servers are addressed by the stable identifier given at Connect time.
type Manager struct {
	logger *zap.Logger

	mu      sync.Mutex
	servers map[string]*server
	order   []string
}

// NewManager constructs an empty manager. A nil logger disables logging.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		logger:  logger,
		servers: make(map[string]*server),
	}
}

// Connect launches the subprocess described by spec and establishes its
// session. Identifiers are unique; reconnecting a known name fails.
func (m *Manager) Connect(ctx context.Context, name string, spec LaunchSpec) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return errors.New("server identifier is empty")
	}

	m.mu.Lock()
	if _, exists := m.servers[trimmed]; exists {
		m.mu.Unlock()
		return fmt.Errorf("server %s is already registered", trimmed)
	}
	srv := &server{name: trimmed, state: StateConnecting}
	m.servers[trimmed] = srv
	m.order = append(m.order, trimmed)
	m.mu.Unlock()

	session, err := connectSession(ctx, trimmed, spec)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		srv.state = StateDisconnected
		return err
	}
	srv.session = session
	srv.state = StateReady
	m.logger.Info("server connected", zap.String("server", trimmed))
	return nil
}

// Servers reports the registered identifiers in connection order.
func (m *Manager) Servers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...)
}

// States snapshots the lifecycle state of every registered server.
func (m *Manager) States() map[string]State {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]State, len(m.servers))
	for name, srv := range m.servers {
		out[name] = srv.state
	}
	return out
}

// ListTools enumerates the tools exposed by one ready server. A tool with
// an empty name fails the whole call: the server cannot be registered.
func (m *Manager) ListTools(ctx context.Context, name string) ([]RawTool, error) {
	session, err := m.readySession(name)
	if err != nil {
		return nil, err
	}

	var (
		tools  []RawTool
		cursor string
	)
	for {
		page, err := session.ListTools(ctx, &mcpsdk.ListToolsParams{Cursor: cursor})
		if err != nil {
			return nil, fmt.Errorf("list tools on server %s: %w", name, err)
		}
		for _, t := range page.Tools {
			raw, err := toRawTool(t)
			if err != nil {
				return nil, fmt.Errorf("server %s: %w", name, err)
			}
			tools = append(tools, raw)
		}
		if page.NextCursor == "" {
			return tools, nil
		}
		cursor = page.NextCursor
	}
}

// CallTool forwards one invocation to the named server and converts the
// result to text. Args is the serialized JSON payload from the model.
func (m *Manager) CallTool(ctx context.Context, name, tool, args string) (string, error) {
	session, err := m.readySession(name)
	if err != nil {
		return "", err
	}

	params := &mcpsdk.CallToolParams{Name: tool}
	if strings.TrimSpace(args) != "" {
		params.Arguments = rawArguments(args)
	}
	result, err := session.CallTool(ctx, params)
	if err != nil {
		return "", fmt.Errorf("call tool %s on server %s: %w", tool, name, err)
	}
	return resultText(result), nil
}

// Close shuts down one server. The server is marked closed even when the
// session teardown reports an error.
func (m *Manager) Close(name string) error {
	m.mu.Lock()
	srv, exists := m.servers[strings.TrimSpace(name)]
	m.mu.Unlock()
	if !exists {
		return fmt.Errorf("unknown server %s", name)
	}
	return m.closeServer(srv)
}

// CloseAll tears down every server best-effort: one failure is logged and
// joined into the returned error, the remaining servers are still closed.
func (m *Manager) CloseAll() error {
	var joined error
	for _, name := range m.Servers() {
		m.mu.Lock()
		srv := m.servers[name]
		m.mu.Unlock()
		if err := m.closeServer(srv); err != nil {
			m.logger.Warn("server close failed", zap.String("server", name), zap.Error(err))
			joined = errors.Join(joined, fmt.Errorf("close server %s: %w", name, err))
		}
	}
	return joined
}

func (m *Manager) closeServer(srv *server) error {
	m.mu.Lock()
	if srv.state == StateClosed {
		m.mu.Unlock()
		return nil
	}
	session := srv.session
	srv.state = StateClosed
	srv.session = nil
	m.mu.Unlock()

	if session == nil {
		return nil
	}
	return session.Close()
}

func (m *Manager) readySession(name string) (toolSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	srv, exists := m.servers[strings.TrimSpace(name)]
	if !exists {
		return nil, fmt.Errorf("unknown server %s", name)
	}
	if srv.state != StateReady || srv.session == nil {
		return nil, fmt.Errorf("server %s is %s, not ready", srv.name, srv.state)
	}
	return srv.session, nil
}
