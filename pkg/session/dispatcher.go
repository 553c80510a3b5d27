package session

import (
	"fmt"
	"strings"

	"github.com/cexll/chatloop-go/pkg/model"
)

// commandMarker introduces a slash command; anything else is a message.
const commandMarker = "/"

// ConfigSource resolves a named model configuration. It backs the /model
// command and is the dispatcher's only collaborator that touches disk.
type ConfigSource interface {
	Lookup(name string) (model.ModelConfig, error)
}

// Dispatcher classifies one line of raw input and produces the next State.
// The transition itself is pure: given the same state, input and
// collaborator answers it always yields the same result, and it performs
// no network or process I/O of its own.
type Dispatcher struct {
	// Configs resolves /model arguments. Nil makes every /model fail.
	Configs ConfigSource
	// Inspect receives the current state on /debug.
	Inspect func(State)
	// Notify carries one-line feedback (active model, lookup failures)
	// back to the surface. Optional.
	Notify func(string)
}

// Next computes the transition for one line of input. Empty input is the
// end-of-input contract and quits; the surface re-prompts blank lines
// before they ever reach the dispatcher.
func (d Dispatcher) Next(st State, raw string) State {
	input := strings.TrimSpace(raw)
	if input == "" {
		return st.withNext(NextQuit)
	}
	if strings.HasPrefix(input, commandMarker) {
		return d.command(st, strings.TrimPrefix(input, commandMarker))
	}
	return st.Append(model.Message{Role: model.RoleUser, Content: input}).withNext(NextLLM)
}

func (d Dispatcher) command(st State, input string) State {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return st.withNext(NextUser)
	}

	switch fields[0] {
	case "quit":
		return st.withNext(NextQuit)
	case "clear":
		return st.cleared().withNext(NextUser)
	case "debug":
		if d.Inspect != nil {
			d.Inspect(st)
		}
		return st.withNext(NextUser)
	case "model":
		return d.swapModel(st, fields[1:])
	default:
		// Unknown commands are a no-op rather than a message: a typo
		// must not leak into the conversation.
		return st.withNext(NextUser)
	}
}

func (d Dispatcher) swapModel(st State, args []string) State {
	if len(args) == 0 {
		d.notify(fmt.Sprintf("active model: %s", st.Config.Name))
		return st.withNext(NextUser)
	}
	name := args[0]
	if d.Configs == nil {
		d.notify(fmt.Sprintf("no model configurations available, keeping %s", st.Config.Name))
		return st.withNext(NextUser)
	}
	cfg, err := d.Configs.Lookup(name)
	if err != nil {
		// Failed lookups leave the state, config included, untouched.
		d.notify(fmt.Sprintf("model %s: %v", name, err))
		return st.withNext(NextUser)
	}
	return st.withConfig(cfg).withNext(NextUser)
}

func (d Dispatcher) notify(msg string) {
	if d.Notify != nil {
		d.Notify(msg)
	}
}
