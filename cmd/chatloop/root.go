package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cexll/chatloop-go/pkg/config"
	"github.com/cexll/chatloop-go/pkg/engine"
	"github.com/cexll/chatloop-go/pkg/mcp"
	"github.com/cexll/chatloop-go/pkg/model"
	"github.com/cexll/chatloop-go/pkg/model/openai"
	"github.com/cexll/chatloop-go/pkg/session"
	"github.com/cexll/chatloop-go/pkg/tool"
	"github.com/cexll/chatloop-go/pkg/tool/builtin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "chatloop",
		Short:         "Interactive tool-augmented chat loop",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath, os.Stdin, os.Stdout)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to the settings file")
	return cmd
}

func run(ctx context.Context, configPath string, in io.Reader, out io.Writer) error {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	settings, err := config.Load(configPath)
	if err != nil {
		return err
	}
	active, err := settings.Active()
	if err != nil {
		return fmt.Errorf("resolve active model: %w", err)
	}

	factory := model.NewFactory(openai.NewProvider(nil), openai.NewAzureProvider(nil))
	mdl, err := factory.NewModel(ctx, active)
	if err != nil {
		return err
	}

	manager := mcp.NewManager(logger.Named("mcp"))
	defer func() {
		if err := manager.CloseAll(); err != nil {
			logger.Warn("server shutdown incomplete", zap.Error(err))
		}
	}()
	for _, name := range settings.ServerNames() {
		if err := manager.Connect(ctx, name, settings.Servers[name]); err != nil {
			return err
		}
	}

	locals, err := builtin.Registrations("")
	if err != nil {
		return fmt.Errorf("register local tools: %w", err)
	}
	set, err := tool.Build(ctx, logger.Named("registry"), locals, manager, settings.ServerNames())
	if err != nil {
		return err
	}
	logger.Info("tool registry ready", zap.Int("tools", set.Len()))

	eng := engine.New(mdl, set, settings.Engine.MaxRounds, logger.Named("engine"))
	st := session.New(settings.Prompts, active, set)
	dispatcher := session.Dispatcher{
		Configs: settings,
		Inspect: func(s session.State) { dumpState(out, s, manager) },
		Notify:  func(msg string) { fmt.Fprintln(out, msg) },
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for st.Next != session.NextQuit {
		switch st.Next {
		case session.NextUser:
			fmt.Fprint(out, "> ")
			if !scanner.Scan() {
				// End of input behaves exactly like /quit.
				st = dispatcher.Next(st, "")
				continue
			}
			line := scanner.Text()
			if isBlank(line) {
				continue
			}
			st = dispatcher.Next(st, line)

		case session.NextLLM:
			if cfg := st.Config; cfg.Name != active.Name {
				swapped, err := factory.NewModel(ctx, cfg)
				if err != nil {
					logger.Error("model swap failed", zap.Error(err))
					st = st.Reprompt()
					continue
				}
				active = cfg
				mdl = swapped
				eng = engine.New(mdl, set, settings.Engine.MaxRounds, logger.Named("engine"))
			}

			result, err := eng.Run(ctx, st.History)
			if err != nil {
				// The turn aborted; keep the previous state and reprompt.
				logger.Error("turn failed", zap.Error(err))
				st = st.Reprompt()
				continue
			}
			printReply(out, result)
			st = st.Advance(result.History)
		}
	}
	return scanner.Err()
}

func isBlank(line string) bool {
	for _, r := range line {
		if r != ' ' && r != '\t' {
			return false
		}
	}
	return true
}

func printReply(out io.Writer, result *engine.TurnResult) {
	for i := len(result.History) - 1; i >= 0; i-- {
		if result.History[i].Role == model.RoleAssistant {
			fmt.Fprintln(out, result.History[i].Content)
			break
		}
	}
	fmt.Fprintf(out, "[tokens=%d rounds=%d duration=%s]\n",
		result.Usage.TotalTokens, result.Rounds, result.Duration.Round(time.Millisecond))
}

func dumpState(out io.Writer, st session.State, manager *mcp.Manager) {
	fmt.Fprintf(out, "model: %s (%s)\n", st.Config.Name, st.Config.Provider)
	fmt.Fprintf(out, "tools: %d advertised\n", len(st.Tools))
	for name, state := range manager.States() {
		fmt.Fprintf(out, "server %s: %s\n", name, state)
	}
	for i, msg := range st.History {
		fmt.Fprintf(out, "%3d %-9s %s\n", i, msg.Role, summarize(msg))
	}
}

func summarize(msg model.Message) string {
	text := msg.Content
	if len(msg.ToolCalls) > 0 {
		text = fmt.Sprintf("%s (%d tool calls)", text, len(msg.ToolCalls))
	}
	if msg.ToolCallID != "" {
		text = fmt.Sprintf("[%s] %s", msg.ToolCallID, text)
	}
	const limit = 120
	if len(text) > limit {
		return text[:limit] + "..."
	}
	return text
}
