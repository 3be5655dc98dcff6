package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/talentflow/internal/config"
	"github.com/jonathan/talentflow/internal/observability"
	"github.com/jonathan/talentflow/internal/watch"
)

var completeCmd = &cobra.Command{
	Use:   "complete <pipeline-id> <step>",
	Short: "Mark a step complete and advance the pipeline",
	Long: `Mark the named step complete. The next open step becomes active and the
normalized status map is persisted, so at most one step is ever active.`,
	Args: cobra.ExactArgs(2),
	RunE: runComplete,
}

func init() {
	rootCmd.AddCommand(completeCmd)
}

func runComplete(_ *cobra.Command, args []string) error {
	cfg := config.Load()
	client := watch.NewClient(cfg.APIBaseURL)

	p, err := client.CompleteStep(context.Background(), args[0], args[1])
	if err != nil {
		return fmt.Errorf("failed to complete step: %w", err)
	}

	fmt.Printf("step %q complete\n", args[1])
	observability.NewPrinter(os.Stdout).PrintPipeline(p)
	return nil
}
