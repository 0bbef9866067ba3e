package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/codeswap/codeswap/internal/config"
)

var (
	flagAPIKey string
	flagModel  string
	flagYolo   bool
)

var rootCmd = &cobra.Command{
	Use:   "codeswap",
	Short: "Multi-model AI assistant with crew orchestration",
	Long: `Codeswap runs coding tasks against OpenRouter models, either as a
single one-shot prompt or as a multi-agent crew: an orchestrator plans
subtasks, specialists execute them in parallel, and the orchestrator
synthesizes the results under a per-run budget ceiling.

Core capabilities:
- One-shot prompts with streaming output and optional tool use
- Crew runs: plan, execute (up to 3 agents in parallel), synthesize
- Keyword task routing to the best-fit model per prompt
- Session history stored as append-only JSONL
- Crew run history stored in a local SQLite database`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagAPIKey, "api-key", "", "OpenRouter API key (overrides env and config)")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "Model slug (overrides config default)")
	rootCmd.PersistentFlags().BoolVar(&flagYolo, "yolo", false, "Run tools without confirmation prompts")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(crewCmd)
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads the user config and applies the persistent flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if flagYolo {
		cfg.YoloMode = true
	}
	return cfg, nil
}

// printStatus prints a status line with color
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}
