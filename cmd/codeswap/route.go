package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/codeswap/codeswap/internal/router"
)

var routeShowTable bool

var routeCmd = &cobra.Command{
	Use:   "route [prompt]",
	Short: "Show which model a prompt would be routed to",
	Long: `Classify a prompt against the task categories and print the routing
decision without calling any model. With --table, print the full
category-to-model routing table instead.`,
	RunE: runRoute,
}

func init() {
	routeCmd.Flags().BoolVar(&routeShowTable, "table", false, "Print the category routing table")
}

func runRoute(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	r := router.New(cfg.ResolveModel(flagModel), cfg.RouteOverrides)

	if routeShowTable {
		printRouteTable(r)
		return nil
	}
	if len(args) == 0 {
		return fmt.Errorf("provide a prompt to classify, or use --table")
	}

	prompt := strings.Join(args, " ")
	decision := r.Route(prompt)

	modelColor := color.New(color.FgCyan)
	fmt.Printf("Category:   %s\n", decision.Category)
	fmt.Printf("Confidence: %.2f\n", decision.Confidence)
	fmt.Printf("Model:      %s\n", modelColor.Sprint(decision.Model))
	fmt.Printf("Reasoning:  %s\n", decision.Reasoning)
	if decision.SuggestCrew {
		printStatus("💡", "Multiple strong task signals; a crew run may fit better: codeswap crew run", color.FgYellow)
	}
	return nil
}

func printRouteTable(r *router.Router) {
	table := r.RouteTable()
	modelColor := color.New(color.FgCyan)
	for _, cat := range router.Categories {
		fmt.Printf("%-18s %s\n", cat, modelColor.Sprint(table[cat]))
	}
}
