package session

import (
	"github.com/cexll/chatloop-go/pkg/model"
	"github.com/cexll/chatloop-go/pkg/tool"
)

// Next names the state the top-level loop moves to after a transition.
type Next int

const (
	// NextUser blocks on the next line of user input.
	NextUser Next = iota
	// NextLLM hands the history to the turn engine.
	NextLLM
	// NextQuit terminates the loop.
	NextQuit
)

// Prompts holds the named default messages seeded into a conversation.
type Prompts struct {
	System string `yaml:"system"`
}

// State is the immutable record threaded through every turn. Transitions
// never mutate a State in place; they return a fresh value with copied
// history, so two States never alias the same backing array.
type State struct {
	History  []model.Message
	Prompts  Prompts
	Config   model.ModelConfig
	Tools    []tool.Descriptor
	Registry *tool.Set
	Next     Next
}

// New seeds a session: history holds exactly the system prompt, the tool
// snapshot is fixed for the whole session, and control starts at the user.
func New(prompts Prompts, cfg model.ModelConfig, set *tool.Set) State {
	return State{
		History:  []model.Message{{Role: model.RoleSystem, Content: prompts.System}},
		Prompts:  prompts,
		Config:   cfg,
		Tools:    set.Descriptors(),
		Registry: set,
		Next:     NextUser,
	}
}

// Append returns a State whose history is extended by msgs.
func (s State) Append(msgs ...model.Message) State {
	history := make([]model.Message, 0, len(s.History)+len(msgs))
	history = append(history, s.History...)
	history = append(history, msgs...)
	next := s
	next.History = history
	return next
}

// Advance installs the history produced by a completed turn and hands
// control back to the user.
func (s State) Advance(history []model.Message) State {
	next := s
	next.History = append([]model.Message(nil), history...)
	next.Next = NextUser
	return next
}

// Reprompt returns to the user without touching anything else.
func (s State) Reprompt() State {
	return s.withNext(NextUser)
}

func (s State) withNext(n Next) State {
	next := s
	next.Next = n
	return next
}

func (s State) withConfig(cfg model.ModelConfig) State {
	next := s
	next.Config = cfg
	return next
}

// cleared resets history to exactly the system prompt.
func (s State) cleared() State {
	next := s
	next.History = []model.Message{{Role: model.RoleSystem, Content: s.Prompts.System}}
	return next
}
