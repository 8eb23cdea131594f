package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0Reliance/Maeple-sub002/internal/mcp"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Run the pipeline as an MCP (Model Context Protocol) server",
		Long: `Start an MCP server that exposes the analysis pipeline over stdio.

Exposed tools:

  • bio_analyze  - Run a capture through the pipeline
  • bio_assess   - Grade the reliability of an analysis record
  • bio_compare  - Compare self-reported scores against a record
  • bio_history  - List recent journaled analyses

The server communicates via JSON-RPC 2.0 over stdin/stdout, following the
Model Context Protocol specification.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			a, err := buildApp(cfg, newLogger(cmd))
			if err != nil {
				return err
			}
			defer a.Close()

			server, err := mcp.NewServer(&mcp.Config{
				Name:        "maeple-bio",
				Version:     version,
				HistoryPath: cfg.History.Path,
			}, a.pipeline)
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}
			defer server.Close()

			if err := server.Run(cmd.Context()); err != nil {
				return fmt.Errorf("MCP server error: %w", err)
			}
			return nil
		},
	}
}
