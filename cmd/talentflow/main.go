// Package main provides the entry point for the TalentFlow pipeline tracker.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "talentflow",
	Short: "TalentFlow curation pipeline tracker",
	Long:  "TalentFlow tracks multi-step job application pipelines: serve the REST/SSE API, watch a pipeline's extraction job to completion, or retry a failed extraction.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
