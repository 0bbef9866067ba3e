package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/codeswap/codeswap/internal/config"
	"github.com/codeswap/codeswap/internal/session"
)

var pruneKeep int

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage saved conversation sessions",
	Long: `List, show, delete, and prune saved sessions.

Sessions are append-only JSONL files with a sidecar index. The index is
disposable: 'codeswap sessions reindex' rebuilds it from the logs.`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, newest first",
	RunE:  runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show [session-id]",
	Short: "Print a session transcript (latest when no id is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSessionsShow,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

var sessionsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old auto-named sessions beyond the keep limit",
	RunE:  runSessionsPrune,
}

var sessionsReindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the session index from the JSONL logs",
	RunE:  runSessionsReindex,
}

func init() {
	sessionsPruneCmd.Flags().IntVar(&pruneKeep, "keep", 0, "How many sessions to keep (default: max_sessions from config)")

	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	sessionsCmd.AddCommand(sessionsPruneCmd)
	sessionsCmd.AddCommand(sessionsReindexCmd)
}

func openStore() (*session.Store, error) {
	store, err := session.NewStore(config.SessionsDir())
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	return store, nil
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	metas, err := store.List()
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		fmt.Println("No sessions saved yet.")
		return nil
	}

	idColor := color.New(color.FgCyan)
	for _, m := range metas {
		fmt.Printf("%s  %-40s %3d msgs  %6d tok  $%.4f  %s\n",
			idColor.Sprint(m.SessionID[:8]), m.Name, m.MessageCount,
			m.TotalTokens, m.TotalCost, m.UpdatedAt)
	}
	return nil
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	var id string
	if len(args) == 1 {
		id = args[0]
	} else {
		latest, err := store.Latest()
		if err != nil {
			return err
		}
		if latest == nil {
			fmt.Println("No sessions saved yet.")
			return nil
		}
		id = latest.SessionID
	}

	// Accept the 8-char prefix shown by list.
	if len(id) < 32 {
		full, err := resolveSessionID(store, id)
		if err != nil {
			return err
		}
		id = full
	}

	sess, err := store.Load(id)
	if err != nil {
		return err
	}

	printStatus("💬", fmt.Sprintf("%s (%s, %d messages)", sess.Meta.Name, sess.Meta.Model, sess.Meta.MessageCount), color.FgGreen)
	roleColor := color.New(color.FgCyan)
	for _, msg := range sess.Messages {
		fmt.Printf("\n%s:\n%s\n", roleColor.Sprint(msg.Role), msg.Content)
	}
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	id := args[0]
	if len(id) < 32 {
		full, err := resolveSessionID(store, id)
		if err != nil {
			return err
		}
		id = full
	}

	deleted, err := store.Delete(id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("no session with id %s", args[0])
	}
	printStatus("✓", fmt.Sprintf("Deleted session %s", args[0]), color.FgGreen)
	return nil
}

func runSessionsPrune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	keep := pruneKeep
	if keep <= 0 {
		keep = cfg.MaxSessions
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	pruned, err := store.Prune(keep)
	if err != nil {
		return err
	}
	printStatus("✓", fmt.Sprintf("Pruned %d session(s), keeping up to %d", pruned, keep), color.FgGreen)
	return nil
}

func runSessionsReindex(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	if err := store.Reindex(); err != nil {
		return err
	}
	printStatus("✓", "Session index rebuilt", color.FgGreen)
	return nil
}

// resolveSessionID expands a unique id prefix to the full session id.
func resolveSessionID(store *session.Store, prefix string) (string, error) {
	metas, err := store.List()
	if err != nil {
		return "", err
	}
	var match string
	for _, m := range metas {
		if len(m.SessionID) >= len(prefix) && m.SessionID[:len(prefix)] == prefix {
			if match != "" {
				return "", fmt.Errorf("session id prefix %q is ambiguous", prefix)
			}
			match = m.SessionID
		}
	}
	if match == "" {
		return "", fmt.Errorf("no session with id %s", prefix)
	}
	return match, nil
}
