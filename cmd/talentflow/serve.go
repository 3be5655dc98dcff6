package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/jonathan/talentflow/internal/config"
	"github.com/jonathan/talentflow/internal/jobs"
	"github.com/jonathan/talentflow/internal/server"
	"github.com/jonathan/talentflow/internal/store"
)

var (
	servePort     int
	serveInMemory bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the pipeline CRUD endpoints, the extraction job SSE stream, and the retry and upload-status surfaces.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT)")
	serveCmd.Flags().BoolVar(&serveInMemory, "in-memory", false, "Use the in-memory pipeline store instead of Postgres")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	if servePort != 0 {
		cfg.Port = servePort
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var st store.Store
	if serveInMemory {
		st = store.NewMemory()
		log.Println("[serve] using in-memory pipeline store")
	} else {
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable is required (or pass --in-memory)")
		}
		pg, err := store.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to Postgres: %w", err)
		}
		defer pg.Close()
		if err := pg.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
		st = pg
	}

	queue, err := jobs.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	defer queue.Close()

	srv, err := server.New(server.Config{
		Port:          cfg.Port,
		Store:         st,
		Jobs:          queue,
		StreamTimeout: cfg.StreamTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
