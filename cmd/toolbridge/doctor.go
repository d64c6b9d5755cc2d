package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"toolbridge/internal/config"
	"toolbridge/internal/tool"
)

const probeTimeout = 15 * time.Second

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your toolbridge setup",
		Long: `Verifies the configuration of both servers and that the chat platform
and GitHub accept the configured credentials. Reports pass/fail for each check.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "toolbridge doctor v%s\n", version)
			fmt.Fprintf(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			r := &report{w: out}

			// 1. Config file
			if path := resolveConfigPath(); path == "" {
				r.warn("Config file", "none, using environment only")
			} else if _, err := os.Stat(path); err != nil {
				r.fail("Config file", fmt.Sprintf("not found at %s", path))
			} else {
				r.pass("Config file", path)
			}

			// 2. Config loads
			cfg, err := loadConfig()
			if err != nil {
				r.fail("Config", err.Error())
				return r.summary()
			}
			r.pass("Config", "loaded")

			var probes []probe

			// 3. Chat process configuration
			if err := config.ValidateChat(cfg); err != nil {
				r.fail("Chat config", err.Error())
			} else {
				r.pass("Chat config", cfg.Chat.Platform)
				chat, err := newChatSession(cfg, logger)
				if err != nil {
					r.fail("Chat client", err.Error())
				} else {
					probes = append(probes, probe{name: platformLabel(chat.Name()) + " API", prober: chat})
				}
			}

			// 4. GitHub process configuration
			if err := config.ValidateGitHub(cfg); err != nil {
				r.fail("GitHub config", err.Error())
			} else {
				r.pass("GitHub config", cfg.GitHub.Owner+"/"+cfg.GitHub.Repo)
				gh, err := newGitHubClient(cfg, logger)
				if err != nil {
					r.fail("GitHub client", err.Error())
				} else {
					probes = append(probes, probe{name: "GitHub API", prober: gh})
				}
			}

			// 5. Listen address
			if cfg.Server.Transport == "http" {
				if err := checkListen(cfg.Server.Listen); err != nil {
					r.warn("Listen address", fmt.Sprintf("%s may be in use: %v", cfg.Server.Listen, err))
				} else {
					r.pass("Listen address", cfg.Server.Listen+" available")
				}
			}

			// 6. Platform connectivity
			for _, res := range runProbes(cmd.Context(), probes) {
				if res.err != nil {
					r.fail(res.name, res.err.Error())
				} else {
					r.pass(res.name, "authenticated as "+res.identity)
				}
			}

			return r.summary()
		},
	}
}

type probe struct {
	name   string
	prober tool.Prober
}

type probeResult struct {
	name     string
	identity string
	err      error
}

// runProbes calls every prober concurrently. Results keep the order of
// probes; a failing probe does not cancel the others.
func runProbes(ctx context.Context, probes []probe) []probeResult {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	results := make([]probeResult, len(probes))
	var g errgroup.Group
	for i, p := range probes {
		g.Go(func() error {
			who, err := p.prober.WhoAmI(ctx)
			results[i] = probeResult{name: p.name, identity: who, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func checkListen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return ln.Close()
}

type report struct {
	w                      io.Writer
	passed, warned, failed int
}

func (r *report) pass(check, detail string) {
	r.passed++
	fmt.Fprintf(r.w, "  [PASS] %-20s %s\n", check, detail)
}

func (r *report) fail(check, detail string) {
	r.failed++
	fmt.Fprintf(r.w, "  [FAIL] %-20s %s\n", check, detail)
}

func (r *report) warn(check, detail string) {
	r.warned++
	fmt.Fprintf(r.w, "  [WARN] %-20s %s\n", check, detail)
}

func (r *report) summary() error {
	fmt.Fprintf(r.w, "\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(r.w, "Results: %d passed, %d warnings, %d failed\n", r.passed, r.warned, r.failed)
	if r.failed > 0 {
		fmt.Fprintf(r.w, "\nPlease fix the failed checks before running toolbridge.\n")
		return fmt.Errorf("%d check(s) failed", r.failed)
	}
	fmt.Fprintf(r.w, "\nAll checks passed! toolbridge is ready to run.\n")
	return nil
}
