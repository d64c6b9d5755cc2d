package tool

import (
	"context"
	"fmt"
	"log/slog"
)

// Prober checks that the platform accepts the configured credentials and
// reports the authenticated identity.
type Prober interface {
	WhoAmI(ctx context.Context) (string, error)
}

// HealthTool reports whether the server can reach its platform.
type HealthTool struct {
	prober  Prober
	service string
	logger  *slog.Logger
}

// NewHealthTool creates a health tool for the named service, e.g. "GitHub".
func NewHealthTool(p Prober, service string, logger *slog.Logger) *HealthTool {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthTool{prober: p, service: service, logger: logger}
}

func (t *HealthTool) Name() string { return "health" }
func (t *HealthTool) Description() string {
	return fmt.Sprintf("Check that the %s MCP server is running and can reach the %s API.", t.service, t.service)
}
func (t *HealthTool) Parameters() map[string]any {
	return ToolParameters(map[string]Param{}, nil)
}

func (t *HealthTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	who, err := t.prober.WhoAmI(ctx)
	if err != nil {
		t.logger.Warn("health check failed", "service", t.service, "error", err)
		return fmt.Sprintf("%s MCP server health check failed: %v", t.service, err), nil
	}
	t.logger.Debug("health check ok", "service", t.service, "identity", who)
	return fmt.Sprintf("%s MCP server is healthy and connected to %s API", t.service, t.service), nil
}
