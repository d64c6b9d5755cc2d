package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"toolbridge/internal/config"
	"toolbridge/internal/mcp"
	"toolbridge/internal/metrics"
	"toolbridge/internal/tool"
)

const defaultEnvFile = ".env"

var (
	version = "0.1.0"
	logger  = newLogger(slog.LevelInfo)

	// overridable via flags
	configPath string
	envFile    string
	logLevel   string
	transport  string
	listenAddr string
)

func main() {
	root := &cobra.Command{
		Use:          "toolbridge",
		Short:        "MCP tool servers for Discord and GitHub",
		Long:         "toolbridge exposes chat channel history and source-hosting health checks as MCP tools, over stdio or streamable HTTP.",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "path to config.yaml (default: ~/.toolbridge/config.yaml when present)")
	pf.StringVar(&envFile, "env-file", defaultEnvFile, "path to a .env file loaded before reading the environment")
	pf.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&transport, "transport", "", "MCP transport: stdio or http")
	pf.StringVar(&listenAddr, "listen", "", "listen address for the http transport")

	root.AddCommand(discordCmd())
	root.AddCommand(githubCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger logs to stderr; stdout carries MCP frames on the stdio transport.
func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// resolveConfigPath returns the config path from --config, or the default
// path when that file exists, or "" to run from the environment only.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if _, err := os.Stat(config.DefaultConfigPath()); err == nil {
		return config.DefaultConfigPath()
	}
	return ""
}

// loadConfig loads .env, the config file and the environment, applies flag
// overrides and reconfigures the logger.
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(envFile, envFile != defaultEnvFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.General.LogLevel = logLevel
	}
	if transport != "" {
		cfg.Server.Transport = transport
	}
	if listenAddr != "" {
		cfg.Server.Listen = listenAddr
	}
	logger = newLogger(cfg.General.Level())
	slog.SetDefault(logger)
	return cfg, nil
}

// serve exposes the tools in reg until SIGINT or SIGTERM.
func serve(ctx context.Context, cfg *config.Config, name, instructions string, reg *tool.Registry, m *metrics.Collector) error {
	srv, err := mcp.New(mcp.Config{
		Name:         name,
		Version:      version,
		Instructions: instructions,
		Registry:     reg,
		Metrics:      m,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	logger.Info("serving tools", "server", name, "tools", reg.Names(), "transport", cfg.Server.Transport)
	return srv.Serve(ctx, mcp.Transport(cfg.Server.Transport), cfg.Server.Listen)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func fatalConfig(err error) error {
	return fmt.Errorf("startup configuration: %w", err)
}
