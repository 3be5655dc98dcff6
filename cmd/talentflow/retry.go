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

var retryCmd = &cobra.Command{
	Use:   "retry <pipeline-id>",
	Short: "Re-run the extraction job for a pipeline",
	Args:  cobra.ExactArgs(1),
	RunE:  runRetry,
}

func init() {
	rootCmd.AddCommand(retryCmd)
}

func runRetry(_ *cobra.Command, args []string) error {
	cfg := config.Load()
	client := watch.NewClient(cfg.APIBaseURL)
	bus := watch.NewBus(client, nil)
	controller := watch.NewRetryController(client, bus)

	res, err := controller.Retry(context.Background(), args[0], nil)
	if err != nil {
		return fmt.Errorf("retry failed: %w", err)
	}

	fmt.Printf("extraction job re-enqueued: %s\n", res.JobID)
	observability.NewPrinter(os.Stdout).PrintPipeline(res.Pipeline)
	return nil
}
