package session

import (
	"errors"
	"testing"

	"github.com/cexll/chatloop-go/pkg/model"
	"github.com/stretchr/testify/require"
)

type fakeConfigs struct {
	configs map[string]model.ModelConfig
}

func (f fakeConfigs) Lookup(name string) (model.ModelConfig, error) {
	cfg, ok := f.configs[name]
	if !ok {
		return model.ModelConfig{}, errors.New("not found")
	}
	return cfg, nil
}

func newTestState() State {
	return New(
		Prompts{System: "system prompt"},
		model.ModelConfig{Name: "default", Provider: "openai", Model: "gpt-4o"},
		nil,
	)
}

func TestNewSeedsSystemPrompt(t *testing.T) {
	st := newTestState()
	require.Len(t, st.History, 1)
	require.Equal(t, model.RoleSystem, st.History[0].Role)
	require.Equal(t, "system prompt", st.History[0].Content)
	require.Equal(t, NextUser, st.Next)
}

func TestPlainInputAppendsUserMessage(t *testing.T) {
	st := newTestState()
	next := Dispatcher{}.Next(st, "Hello")

	require.Equal(t, NextLLM, next.Next)
	require.Len(t, next.History, 2)
	require.Equal(t, model.RoleUser, next.History[1].Role)
	require.Equal(t, "Hello", next.History[1].Content)

	// The original state is untouched.
	require.Len(t, st.History, 1)
	require.Equal(t, NextUser, st.Next)
}

func TestEmptyInputQuits(t *testing.T) {
	st := newTestState()
	next := Dispatcher{}.Next(st, "")
	require.Equal(t, NextQuit, next.Next)
	require.Equal(t, st.History, next.History)
}

func TestQuitCommand(t *testing.T) {
	next := Dispatcher{}.Next(newTestState(), "/quit")
	require.Equal(t, NextQuit, next.Next)
}

func TestClearResetsHistoryToSystemPrompt(t *testing.T) {
	d := Dispatcher{}
	st := d.Next(newTestState(), "Hello")
	st = st.Append(model.Message{Role: model.RoleAssistant, Content: "Hi there"})
	require.Len(t, st.History, 3)

	cleared := d.Next(st, "/clear")
	require.Equal(t, NextUser, cleared.Next)
	require.Len(t, cleared.History, 1)
	require.Equal(t, model.RoleSystem, cleared.History[0].Role)
	require.Equal(t, "system prompt", cleared.History[0].Content)
}

func TestDebugInspectsWithoutStateChange(t *testing.T) {
	var inspected *State
	d := Dispatcher{Inspect: func(s State) { inspected = &s }}

	st := newTestState()
	next := d.Next(st, "/debug")

	require.NotNil(t, inspected)
	require.Equal(t, NextUser, next.Next)
	require.Equal(t, st.History, next.History)
	require.Equal(t, st.Config, next.Config)
}

func TestModelSwapSuccess(t *testing.T) {
	azure := model.ModelConfig{Name: "azure", Provider: "azure", Model: "gpt-4o"}
	d := Dispatcher{Configs: fakeConfigs{configs: map[string]model.ModelConfig{"azure": azure}}}

	st := Dispatcher{}.Next(newTestState(), "Hello")
	st = st.Reprompt()
	next := d.Next(st, "/model azure")

	require.Equal(t, NextUser, next.Next)
	require.Equal(t, azure, next.Config)
	// History is not touched by a config swap.
	require.Equal(t, st.History, next.History)
}

func TestModelSwapFailureLeavesStateUntouched(t *testing.T) {
	var notices []string
	d := Dispatcher{
		Configs: fakeConfigs{},
		Notify:  func(msg string) { notices = append(notices, msg) },
	}

	st := newTestState()
	next := d.Next(st, "/model doesnotexist")

	require.Equal(t, NextUser, next.Next)
	require.Equal(t, st.Config, next.Config)
	require.Equal(t, st.History, next.History)
	require.NotEmpty(t, notices)
}

func TestModelWithoutArgumentReportsActive(t *testing.T) {
	var notices []string
	d := Dispatcher{Notify: func(msg string) { notices = append(notices, msg) }}

	next := d.Next(newTestState(), "/model")
	require.Equal(t, NextUser, next.Next)
	require.Len(t, notices, 1)
	require.Contains(t, notices[0], "default")
}

func TestUnknownCommandIsNoOp(t *testing.T) {
	st := newTestState()
	next := Dispatcher{}.Next(st, "/bogus argument")
	require.Equal(t, NextUser, next.Next)
	require.Equal(t, st.History, next.History)
	require.Equal(t, st.Config, next.Config)
}

func TestTransitionIsDeterministic(t *testing.T) {
	d := Dispatcher{}
	st := newTestState()
	first := d.Next(st, "same input")
	second := d.Next(st, "same input")
	require.Equal(t, first, second)
}
