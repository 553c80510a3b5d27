package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cexll/chatloop-go/pkg/model"
	"github.com/cexll/chatloop-go/pkg/tool"
	"go.uber.org/zap"
)

// DefaultMaxRounds bounds tool-resolution rounds per turn. The upstream
// loop is unbounded; a model that always emits tool calls would otherwise
// never terminate, so the bound is explicit and configurable.
const DefaultMaxRounds = 8

// ErrMaxRounds reports that a turn hit the configured round bound.
var ErrMaxRounds = errors.New("tool resolution round limit reached")

// TurnError is the engine's single fatal failure shape: the cause plus the
// in-flight history, so callers keep everything resolved before the abort.
type TurnError struct {
	History []model.Message
	Err     error
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("turn aborted with %d messages in flight: %v", len(e.History), e.Err)
}

func (e *TurnError) Unwrap() error {
	return e.Err
}

// TurnResult is the outcome of one completed turn.
type TurnResult struct {
	History  []model.Message
	Usage    model.Usage
	Duration time.Duration
	Rounds   int
}

// Engine drives one turn to completion: complete, resolve tool calls in
// order, repeat until the assistant answers without calls. Execution is
// single-threaded; exactly one completion or tool call is in flight at any
// moment.
type Engine struct {
	model     model.Model
	tools     *tool.Set
	maxRounds int
	logger    *zap.Logger
}

// New constructs an Engine. maxRounds <= 0 selects DefaultMaxRounds; a nil
// logger disables diagnostics.
func New(m model.Model, tools *tool.Set, maxRounds int, logger *zap.Logger) *Engine {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{model: m, tools: tools, maxRounds: maxRounds, logger: logger}
}

// Run executes the turn loop over a copy of history. The input slice is
// never mutated. Only a failed completion call (or the exhausted round
// bound) is fatal; tool-level failures become ordinary history data.
func (e *Engine) Run(ctx context.Context, history []model.Message) (*TurnResult, error) {
	started := time.Now()
	current := append([]model.Message(nil), history...)
	defs := e.toolDefs()

	var usage model.Usage
	rounds := 0
	for {
		if rounds >= e.maxRounds {
			return nil, &TurnError{History: current, Err: ErrMaxRounds}
		}
		rounds++

		completion, err := e.model.Complete(ctx, current, defs)
		if err != nil {
			return nil, &TurnError{History: current, Err: fmt.Errorf("completion call failed: %w", err)}
		}
		usage = usage.Add(completion.Usage)

		if len(completion.Messages) == 0 {
			return nil, &TurnError{History: current, Err: errors.New("completion returned no choices")}
		}
		if len(completion.Messages) > 1 {
			e.logger.Warn("completion returned multiple choices, using the first",
				zap.Int("choices", len(completion.Messages)))
		}
		assistant := completion.Messages[0]
		if assistant.Role == "" {
			assistant.Role = model.RoleAssistant
		}

		results := e.ResolveTools(ctx, assistant)
		current = append(current, assistant)
		current = append(current, results...)

		if len(results) == 0 {
			return &TurnResult{
				History:  current,
				Usage:    usage,
				Duration: time.Since(started),
				Rounds:   rounds,
			}, nil
		}
	}
}

// ResolveTools resolves every tool call attached to msg, strictly in the
// order the calls appear. Each result message carries the correlation id of
// its request. A message without tool calls resolves to nothing, leaving
// the history unchanged. Unknown tools and invoker failures are converted
// to textual error results; nothing here raises.
func (e *Engine) ResolveTools(ctx context.Context, msg model.Message) []model.Message {
	if len(msg.ToolCalls) == 0 {
		return nil
	}
	results := make([]model.Message, 0, len(msg.ToolCalls))
	for _, call := range msg.ToolCalls {
		results = append(results, model.Message{
			Role:       model.RoleTool,
			ToolCallID: call.ID,
			Content:    e.invoke(ctx, call),
		})
	}
	return results
}

func (e *Engine) invoke(ctx context.Context, call model.ToolCall) string {
	invoker, ok := e.tools.Lookup(call.Name)
	if !ok {
		e.logger.Warn("model requested unknown tool", zap.String("tool", call.Name))
		return fmt.Sprintf("error: unknown tool %q", call.Name)
	}
	started := time.Now()
	output, err := invoker.Invoke(ctx, call.Arguments)
	if err != nil {
		e.logger.Warn("tool invocation failed",
			zap.String("tool", call.Name),
			zap.Duration("duration", time.Since(started)),
			zap.Error(err))
		return fmt.Sprintf("error: %v", err)
	}
	e.logger.Debug("tool invoked",
		zap.String("tool", call.Name),
		zap.Duration("duration", time.Since(started)))
	return output
}

func (e *Engine) toolDefs() []model.ToolDef {
	descriptors := e.tools.Descriptors()
	if len(descriptors) == 0 {
		return nil
	}
	defs := make([]model.ToolDef, 0, len(descriptors))
	for _, desc := range descriptors {
		defs = append(defs, model.ToolDef{
			Name:        desc.Name,
			Description: desc.Description,
			Parameters:  desc.Parameters,
		})
	}
	return defs
}
