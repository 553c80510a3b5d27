package tool

import "context"

// Caller is the slice of the server manager a remote invoker dispatches
// through.
type Caller interface {
	CallTool(ctx context.Context, server, tool, args string) (string, error)
}

// RemoteInvoker addresses one tool on one remote server. It is a plain
// tagged value rather than a captured closure so invocations stay
// inspectable and dispatch through a single generic call path.
type RemoteInvoker struct {
	Server string
	Tool   string
	Caller Caller
}

var _ Invoker = RemoteInvoker{}

func (r RemoteInvoker) Invoke(ctx context.Context, args string) (string, error) {
	return r.Caller.CallTool(ctx, r.Server, r.Tool, args)
}
