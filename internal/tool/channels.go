package tool

import (
	"context"
	"fmt"
	"strings"
)

// ChannelsTool lists the symbolic channel names the messages tool accepts.
type ChannelsTool struct {
	channels map[string]string
	names    []string
}

func NewChannelsTool(channels map[string]string, names []string) *ChannelsTool {
	return &ChannelsTool{channels: channels, names: names}
}

func (t *ChannelsTool) Name() string { return "list-discord-channels" }
func (t *ChannelsTool) Description() string {
	return "List the channel names accepted by get-discord-messages and the channel IDs they map to."
}
func (t *ChannelsTool) Parameters() map[string]any {
	return ToolParameters(map[string]Param{}, nil)
}

func (t *ChannelsTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	if len(t.names) == 0 {
		return "No channels configured", nil
	}
	var sb strings.Builder
	sb.WriteString("Available channels:")
	for _, name := range t.names {
		fmt.Fprintf(&sb, "\n- %s (%s)", name, t.channels[name])
	}
	return sb.String(), nil
}
