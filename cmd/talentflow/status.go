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

var statusCmd = &cobra.Command{
	Use:   "status <pipeline-id>",
	Short: "Show a pipeline's background jobs and artifacts",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, args []string) error {
	cfg := config.Load()
	client := watch.NewClient(cfg.APIBaseURL)
	printer := observability.NewPrinter(os.Stdout)

	ctx := context.Background()
	p, err := client.Pipeline(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to load pipeline: %w", err)
	}
	printer.PrintPipeline(p)

	snap, err := client.FetchUploadStatus(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to load upload status: %w", err)
	}
	printer.PrintUploadStatus(snap)
	return nil
}
