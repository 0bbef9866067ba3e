package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/codeswap/codeswap/internal/api"
	"github.com/codeswap/codeswap/internal/config"
	"github.com/codeswap/codeswap/internal/crew"
	"github.com/codeswap/codeswap/internal/state"
	"github.com/codeswap/codeswap/internal/tools"
	"github.com/codeswap/codeswap/pkg/models"
)

var (
	crewName     string
	crewBudget   float64
	crewNoTools  bool
	historyLimit int
)

var crewCmd = &cobra.Command{
	Use:   "crew",
	Short: "Run multi-agent crews and inspect their history",
	Long: `Run a task through a crew of agents.

A crew pairs an orchestrator with specialists. The orchestrator splits
the task into subtasks, the specialists execute them in parallel (at
most 3 at a time), and the orchestrator synthesizes the results. Each
run stops at the crew's budget ceiling.

Crews are YAML files in ` + "`~/.config/codeswap/crews/`" + `; four starter
crews are written on first use. A run can be aborted from another
terminal with 'codeswap crew stop'.`,
}

var crewRunCmd = &cobra.Command{
	Use:   "run <task>",
	Short: "Execute a task with a crew of agents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCrew,
}

var crewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available crews",
	RunE:  runCrewList,
}

var crewHistoryCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recent crew runs, or one run in detail",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCrewHistory,
}

var crewStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Signal the running crew to abort",
	RunE:  runCrewStop,
}

func init() {
	crewRunCmd.Flags().StringVar(&crewName, "crew", "default", "Crew to run")
	crewRunCmd.Flags().Float64Var(&crewBudget, "budget", 0, "Budget ceiling in USD (overrides the crew file)")
	crewRunCmd.Flags().BoolVar(&crewNoTools, "no-tools", false, "Disable tool use for all agents")
	crewHistoryCmd.Flags().IntVar(&historyLimit, "limit", 10, "How many runs to show")

	crewCmd.AddCommand(crewRunCmd)
	crewCmd.AddCommand(crewListCmd)
	crewCmd.AddCommand(crewHistoryCmd)
	crewCmd.AddCommand(crewStopCmd)
}

func runCrew(cmd *cobra.Command, args []string) error {
	task := strings.Join(args, " ")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	apiKey, err := cfg.ResolveAPIKey(flagAPIKey)
	if err != nil {
		return err
	}

	crewsDir := config.CrewsDir()
	if err := crew.EnsureDefaultCrews(crewsDir); err != nil {
		return fmt.Errorf("write default crews: %w", err)
	}
	crewCfg, err := crew.LoadConfig(crewsDir, crewName)
	if err != nil {
		return err
	}
	if crewBudget > 0 {
		crewCfg.BudgetLimitUSD = crewBudget
	}

	engine := crew.NewEngine(api.NewClient(apiKey), crewCfg)
	if !crewNoTools {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
		executor := tools.NewExecutor(tools.NewRegistry(), cwd, cfg.YoloMode)
		executor.Confirm = confirmTool
		engine.WithTools(executor)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	watcher, err := crew.NewStopWatcher(config.SignalsDir())
	if err != nil {
		return fmt.Errorf("start stop watcher: %w", err)
	}
	watcher.Clear()
	defer watcher.Close()
	release := watcher.CancelOnStop(cancel)
	defer release()

	type outcome struct {
		run *crewRunResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		run, err := engine.Execute(ctx, task)
		done <- outcome{&crewRunResult{run: run, totalCost: engine.TotalCost()}, err}
	}()

	displayEvents(engine.Events())

	result := <-done
	watcher.Clear()

	if result.run.run != nil {
		if err := saveRunHistory(result.run); err != nil {
			printStatus("⚠", fmt.Sprintf("Could not record run history: %v", err), color.FgYellow)
		}
	}
	if result.err != nil {
		return result.err
	}

	printRunSummary(result.run)
	return nil
}

type crewRunResult struct {
	run       *models.CrewRun
	totalCost float64
}

// displayEvents renders the engine's progress stream until it closes.
// A ticker keeps the terminal alive during long silent stretches.
func displayEvents(events <-chan crew.Event) {
	agentColor := color.New(color.FgCyan)
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	started := time.Now()
	lastEvent := time.Now()
	streaming := false

	endStream := func() {
		if streaming {
			fmt.Println()
			streaming = false
		}
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				endStream()
				return
			}
			lastEvent = time.Now()

			switch ev.Type {
			case crew.EventCrewStart:
				printStatus("🚀", fmt.Sprintf("Crew run %s with agents: %s",
					ev.RunID, strings.Join(ev.Agents, ", ")), color.FgGreen)
			case crew.EventPlan:
				endStream()
				printStatus("📋", fmt.Sprintf("Plan: %d subtasks", len(ev.Subtasks)), color.FgGreen)
				for _, st := range ev.Subtasks {
					fmt.Printf("   %s. %s (%s)\n", st.ID, st.Description, agentColor.Sprint(st.AssignedTo))
				}
			case crew.EventAgentStart:
				endStream()
				printStatus("▶", fmt.Sprintf("%s started subtask %s (%s)",
					agentColor.Sprint(ev.Agent), ev.SubtaskID, ev.Model), color.FgWhite)
			case crew.EventAgentDelta, crew.EventSynthesisDelta:
				fmt.Print(ev.Text)
				streaming = true
			case crew.EventAgentDone:
				endStream()
				printStatus("✓", fmt.Sprintf("%s finished subtask %s (%d in / %d out, $%.4f)",
					agentColor.Sprint(ev.Agent), ev.SubtaskID,
					ev.InputTokens, ev.OutputTokens, ev.CostUSD), color.FgGreen)
			case crew.EventCrewDone:
				endStream()
				printStatus("✓", fmt.Sprintf("Crew done in %s, total cost $%.4f",
					time.Since(started).Round(time.Second), ev.TotalCost), color.FgGreen)
			case crew.EventError:
				endStream()
				printStatus("✗", ev.Message, color.FgRed)
			}

		case <-ticker.C:
			if !streaming && time.Since(lastEvent) > 5*time.Second {
				printStatus("…", fmt.Sprintf("working (%s elapsed)",
					time.Since(started).Round(time.Second)), color.FgWhite)
			}
		}
	}
}

// saveRunHistory records the finished run in the audit database.
func saveRunHistory(result *crewRunResult) error {
	db, err := state.Open(config.RunDBPath())
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return err
	}
	return db.SaveRun(result.run, result.totalCost, time.Now())
}

func printRunSummary(result *crewRunResult) {
	run := result.run
	fmt.Println()
	printStatus("📊", fmt.Sprintf("Run %s (%s)", run.RunID, run.Status), color.FgGreen)
	for _, st := range run.Subtasks {
		symbol, attr := "✓", color.FgGreen
		if st.Status != models.SubtaskDone {
			symbol, attr = "✗", color.FgRed
		}
		printStatus(symbol, fmt.Sprintf("[%s] %s → %s", st.ID, st.Description, st.AssignedTo), attr)
	}
	if run.FinalResult != "" {
		fmt.Println()
		fmt.Println(run.FinalResult)
	}
}

func runCrewList(cmd *cobra.Command, args []string) error {
	crewsDir := config.CrewsDir()
	if err := crew.EnsureDefaultCrews(crewsDir); err != nil {
		return fmt.Errorf("write default crews: %w", err)
	}
	names, err := crew.ListConfigs(crewsDir)
	if err != nil {
		return err
	}

	nameColor := color.New(color.FgCyan)
	for _, name := range names {
		cfg, err := crew.LoadConfig(crewsDir, name)
		if err != nil {
			printStatus("⚠", fmt.Sprintf("%s: %v", name, err), color.FgYellow)
			continue
		}
		fmt.Printf("%s - %s (%d agents, $%.2f budget)\n",
			nameColor.Sprint(cfg.Name), cfg.Description, len(cfg.Agents), cfg.BudgetLimitUSD)
	}
	return nil
}

func runCrewHistory(cmd *cobra.Command, args []string) error {
	dbPath := config.RunDBPath()
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No crew runs recorded yet. Run 'codeswap crew run <task>' to start.")
		return nil
	}

	db, err := state.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open run database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate run database: %w", err)
	}

	if len(args) == 1 {
		return showRunDetail(db, args[0])
	}

	runs, err := db.ListRuns(historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No crew runs recorded yet.")
		return nil
	}

	idColor := color.New(color.FgCyan)
	for _, r := range runs {
		task := r.UserTask
		if len(task) > 60 {
			task = task[:57] + "..."
		}
		fmt.Printf("%s  %-10s %-12s $%.4f  %s\n",
			idColor.Sprint(r.RunID), r.CrewName, r.Status, r.TotalCost,
			r.StartedAt.Local().Format("2006-01-02 15:04"))
		fmt.Printf("             %s\n", task)
	}
	return nil
}

func showRunDetail(db *state.DB, runID string) error {
	summary, subtasks, err := db.GetRun(runID)
	if err != nil {
		return err
	}

	printStatus("📊", fmt.Sprintf("Run %s (%s, crew %s)", summary.RunID, summary.Status, summary.CrewName), color.FgGreen)
	fmt.Printf("Task: %s\n", summary.UserTask)
	fmt.Printf("Cost: $%.4f, started %s\n", summary.TotalCost,
		summary.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Println()

	for _, st := range subtasks {
		symbol, attr := "✓", color.FgGreen
		if st.Status != models.SubtaskDone {
			symbol, attr = "✗", color.FgRed
		}
		printStatus(symbol, fmt.Sprintf("[%s] %s → %s (%d in / %d out, $%.4f)",
			st.ID, st.Description, st.AssignedTo, st.InputTokens, st.OutputTokens, st.CostUSD), attr)
		if st.Result != "" {
			fmt.Printf("   %s\n", truncateLine(st.Result, 200))
		}
	}
	return nil
}

func runCrewStop(cmd *cobra.Command, args []string) error {
	watcher, err := crew.NewStopWatcher(config.SignalsDir())
	if err != nil {
		return fmt.Errorf("open signals directory: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Signal(); err != nil {
		return fmt.Errorf("write stop signal: %w", err)
	}
	printStatus("✓", "Stop signal written; the running crew will abort shortly", color.FgGreen)
	return nil
}

// truncateLine flattens and caps a result for one-line display.
func truncateLine(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}
