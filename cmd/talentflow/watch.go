package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/talentflow/internal/config"
	"github.com/jonathan/talentflow/internal/observability"
	"github.com/jonathan/talentflow/internal/pipeline"
	"github.com/jonathan/talentflow/internal/session"
	"github.com/jonathan/talentflow/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch <pipeline-id>",
	Short: "Watch a pipeline's extraction job until it finishes",
	Long: `Subscribe to the pipeline's extraction stream and run the polling
backstop alongside it. Both report terminal conditions to a shared consumer
that re-fetches the canonical record, so the final state is printed exactly
once regardless of which mechanism noticed first.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(_ *cobra.Command, args []string) error {
	pipelineID := args[0]
	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sess := session.New(session.NewMemKV())
	if err := sess.SetActivePipeline(ctx, pipelineID); err != nil {
		return err
	}
	sess.RecordAction(ctx, "watch "+pipelineID)
	defer sess.Flush(context.Background())

	client := watch.NewClient(cfg.APIBaseURL)
	printer := observability.NewPrinter(os.Stdout)

	p, err := client.Pipeline(ctx, pipelineID)
	if err != nil {
		return fmt.Errorf("failed to load pipeline: %w", err)
	}
	printer.PrintPipeline(p)

	if _, ok := p.Artifacts["jd"]; ok {
		fmt.Println("extraction already complete")
		return nil
	}

	terminal := make(chan watch.Condition, 1)
	bus := watch.NewBus(client, func(p *pipeline.Pipeline, cond watch.Condition) {
		printer.PrintCondition(cond)
		if cond.Kind == watch.CondTimeout {
			return
		}
		printer.PrintPipeline(p)
		select {
		case terminal <- cond:
		default:
		}
	})

	monitor := watch.NewMonitor(client, bus)
	if err := monitor.Start(ctx, pipelineID); err != nil {
		return err
	}
	defer monitor.Stop()

	reconciler := watch.NewReconciler(client, bus)
	reconciler.Interval = cfg.PollInterval
	reconciler.MaxAttempts = cfg.PollMaxAttempts

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		bus.Run(gctx)
		return nil
	})
	g.Go(func() error {
		err := reconciler.Poll(gctx, pipelineID)
		if err == context.Canceled {
			return nil
		}
		return err
	})

	var cond watch.Condition
	select {
	case cond = <-terminal:
	case <-ctx.Done():
	}
	cancel()
	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}

	switch cond.Kind {
	case watch.CondFailed:
		sess.RecordAction(context.Background(), "watch "+pipelineID+" failed: "+cond.Err)
	case watch.CondReady:
		sess.RecordAction(context.Background(), "watch "+pipelineID+" ready")
	}
	return nil
}
