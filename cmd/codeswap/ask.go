package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/codeswap/codeswap/internal/api"
	"github.com/codeswap/codeswap/internal/config"
	"github.com/codeswap/codeswap/internal/router"
	"github.com/codeswap/codeswap/internal/session"
	"github.com/codeswap/codeswap/internal/tools"
)

var (
	askNoTools bool
	askRoute   bool
	askNoSave  bool
)

var askCmd = &cobra.Command{
	Use:   "ask <prompt>",
	Short: "Send a one-shot prompt to a model",
	Long: `Send a single prompt and stream the reply to stdout.

The model may use tools (shell, read_file, write_file, run_tests, lint)
by embedding tool calls in its reply; ask-level tools prompt for
confirmation unless --yolo is set. With --route (or auto_route in the
config) the prompt is classified first and sent to the best-fit model.

The exchange is saved to session history unless --no-save is given or
auto_save is disabled. With auto_resume enabled in the config, the prompt
continues the most recent session instead of starting a new one.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askNoTools, "no-tools", false, "Disable tool use for this prompt")
	askCmd.Flags().BoolVar(&askRoute, "route", false, "Classify the prompt and pick a model automatically")
	askCmd.Flags().BoolVar(&askNoSave, "no-save", false, "Do not save this exchange to session history")
}

func runAsk(cmd *cobra.Command, args []string) error {
	prompt := strings.Join(args, " ")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	apiKey, err := cfg.ResolveAPIKey(flagAPIKey)
	if err != nil {
		return err
	}

	model := cfg.ResolveModel(flagModel)
	if askRoute || cfg.AutoRoute {
		decision := router.New(model, cfg.RouteOverrides).Route(prompt)
		model = decision.Model
		printStatus("→", decision.Reasoning, color.FgCyan)
		if decision.SuggestCrew {
			printStatus("💡", "This looks like a multi-step task; consider 'codeswap crew run'", color.FgYellow)
		}
	}

	client := api.NewClient(apiKey)
	systemPrompt := "You are a helpful coding assistant. Be concise and direct."

	var executor *tools.Executor
	if !askNoTools {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
		executor = tools.NewExecutor(tools.NewRegistry(), cwd, cfg.YoloMode)
		executor.Confirm = confirmTool
		executor.Notify = func(format string, args ...any) {
			printStatus("⚙", fmt.Sprintf(format, args...), color.FgYellow)
		}
		systemPrompt += "\n\n" + executor.SystemPrompt()
	}

	saving := !askNoSave && cfg.AutoSave
	var store *session.Store
	var resumeID string
	var prior []api.Message
	if saving {
		store, err = session.NewStore(config.SessionsDir())
		if err != nil {
			return fmt.Errorf("open session store: %w", err)
		}
		if cfg.AutoResume {
			resumeID, prior, err = loadResume(store)
			if err != nil {
				printStatus("⚠", fmt.Sprintf("Could not resume latest session: %v", err), color.FgYellow)
				resumeID, prior = "", nil
			} else if resumeID != "" {
				printStatus("↻", fmt.Sprintf("Resuming session %s (%d prior messages)", resumeID[:8], len(prior)), color.FgCyan)
			}
		}
	}

	messages := make([]api.Message, 0, len(prior)+2)
	messages = append(messages, api.Message{Role: "system", Content: systemPrompt})
	messages = append(messages, prior...)
	messages = append(messages, api.Message{Role: "user", Content: prompt})
	newStart := len(messages) - 1

	ctx := cmd.Context()
	text, usage, err := client.Stream(ctx, model, messages, 4096, func(delta string) {
		fmt.Print(delta)
	})
	if err != nil {
		return fmt.Errorf("completion: %w", err)
	}
	totalIn, totalOut := usage.InputTokens, usage.OutputTokens

	if executor != nil {
		text, messages, err = executor.ProcessResponse(ctx, text, messages, func(ctx context.Context, msgs []api.Message) (string, error) {
			fmt.Println()
			reply, u, err := client.Stream(ctx, model, msgs, 4096, func(delta string) {
				fmt.Print(delta)
			})
			totalIn += u.InputTokens
			totalOut += u.OutputTokens
			return reply, err
		})
		if err != nil {
			return fmt.Errorf("tool loop: %w", err)
		}
	}
	fmt.Println()

	cost := config.EstimateCost(model, totalIn, totalOut)
	printStatus("✓", fmt.Sprintf("%d in / %d out tokens, ~$%.4f", totalIn, totalOut, cost), color.FgGreen)

	if !saving {
		return nil
	}
	if resumeID != "" {
		return appendExchange(store, resumeID, messages[newStart:], text, totalIn, totalOut)
	}
	return saveExchange(store, messages, text, systemPrompt, model, totalIn+totalOut, cost, cfg.MaxSessions)
}

// loadResume returns the latest session's id and messages so a new prompt
// continues that conversation. A missing latest session is not an error.
func loadResume(store *session.Store) (string, []api.Message, error) {
	latest, err := store.Latest()
	if err != nil || latest == nil {
		return "", nil, err
	}
	sess, err := store.Load(latest.SessionID)
	if err != nil {
		return "", nil, err
	}
	prior := make([]api.Message, 0, len(sess.Messages))
	for _, m := range sess.Messages {
		prior = append(prior, api.Message{Role: m.Role, Content: m.Content})
	}
	return sess.Meta.SessionID, prior, nil
}

// appendExchange adds this turn's messages to a resumed session. Token
// usage lands on the assistant message; the store refreshes the totals.
func appendExchange(store *session.Store, id string, turn []api.Message, finalText string, inTok, outTok int) error {
	for _, m := range turn {
		if err := store.Append(id, session.Message{Role: m.Role, Content: m.Content}); err != nil {
			return fmt.Errorf("append to session: %w", err)
		}
	}
	err := store.Append(id, session.Message{
		Role:         "assistant",
		Content:      finalText,
		InputTokens:  inTok,
		OutputTokens: outTok,
	})
	if err != nil {
		return fmt.Errorf("append to session: %w", err)
	}
	printStatus("✓", fmt.Sprintf("Appended to session %s", id[:8]), color.FgGreen)
	return nil
}

// saveExchange persists a fresh conversation and prunes old sessions.
func saveExchange(store *session.Store, messages []api.Message, finalText, systemPrompt, model string, totalTokens int, cost float64, maxSessions int) error {
	stored := make([]session.Message, 0, len(messages)+1)
	for _, m := range messages {
		stored = append(stored, session.Message{Role: m.Role, Content: m.Content})
	}
	stored = append(stored, session.Message{Role: "assistant", Content: finalText})

	id, err := store.Save(stored, systemPrompt, model, "", totalTokens, cost)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if maxSessions > 0 {
		if _, err := store.Prune(maxSessions); err != nil {
			return fmt.Errorf("prune sessions: %w", err)
		}
	}
	printStatus("✓", fmt.Sprintf("Saved session %s", id[:8]), color.FgGreen)
	return nil
}

// confirmTool prompts on stdin before an ask-level tool runs.
func confirmTool(toolName, argsJSON string) bool {
	fmt.Printf("\nAllow tool %s?\n%s\n[y/N]: ", color.New(color.FgYellow).Sprint(toolName), argsJSON)
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}
