package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"toolbridge/internal/config"
	"toolbridge/internal/metrics"
	"toolbridge/internal/platform"
	"toolbridge/internal/platform/github"
	"toolbridge/internal/tool"
)

func githubCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "github",
		Short: "Serve source-hosting tools (GitHub health check)",
		Args:  cobra.NoArgs,
		RunE:  runGitHub,
	}
}

func runGitHub(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fatalConfig(err)
	}
	if err := config.ValidateGitHub(cfg); err != nil {
		return fatalConfig(err)
	}

	ctx, stop := signalContext()
	defer stop()

	client, err := newGitHubClient(cfg, logger)
	if err != nil {
		return err
	}
	reg := tool.NewRegistry(logger)
	reg.Register(tool.NewHealthTool(client, "GitHub", logger))

	instructions := fmt.Sprintf("You are connected to a GitHub MCP server for %s.\n\nUse health to check the connection to the GitHub API.", client.Repository())
	return serve(ctx, cfg, "github-mcp", instructions, reg, metrics.NewCollector("toolbridge"))
}

func newGitHubClient(cfg *config.Config, logger *slog.Logger) (*github.Client, error) {
	return github.New(github.Config{
		Token:      cfg.GitHub.Token,
		Owner:      cfg.GitHub.Owner,
		Repo:       cfg.GitHub.Repo,
		BaseURL:    cfg.GitHub.BaseURL,
		HTTPClient: platform.SharedHTTPClient(cfg.General.FetchTimeout),
		Logger:     logger,
	})
}
