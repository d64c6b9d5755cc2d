package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"toolbridge/internal/config"
	"toolbridge/internal/domain"
	"toolbridge/internal/metrics"
	"toolbridge/internal/platform"
	"toolbridge/internal/platform/discord"
	"toolbridge/internal/platform/slack"
	"toolbridge/internal/retrieval"
	"toolbridge/internal/tool"
)

// chatSession is a chat platform with an explicit connection lifecycle.
type chatSession interface {
	domain.ChatPlatform
	Open(ctx context.Context) error
	Close() error
}

func discordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discord",
		Short: "Serve chat channel tools (Discord, or Slack with CHAT_PLATFORM=slack)",
		Long: `Connects to the chat platform and serves the get-discord-messages,
list-discord-channels and health tools until interrupted.`,
		Args: cobra.NoArgs,
		RunE: runDiscord,
	}
}

func runDiscord(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fatalConfig(err)
	}
	if err := config.ValidateChat(cfg); err != nil {
		return fatalConfig(err)
	}

	ctx, stop := signalContext()
	defer stop()

	chat, err := newChatSession(cfg, logger)
	if err != nil {
		return err
	}
	if err := chat.Open(ctx); err != nil {
		return err
	}
	collector := metrics.NewCollector("toolbridge")
	collector.SetPlatformConnected(chat.Name(), true)
	defer func() {
		if err := chat.Close(); err != nil {
			logger.Warn("closing chat session", "platform", chat.Name(), "err", err)
		}
		collector.SetPlatformConnected(chat.Name(), false)
	}()

	reg := newChatRegistry(cfg, chat, logger)
	return serve(ctx, cfg, chat.Name()+"-mcp", chatInstructions(&cfg.Chat), reg, collector)
}

// newChatSession creates the client for the configured chat platform.
func newChatSession(cfg *config.Config, logger *slog.Logger) (chatSession, error) {
	httpClient := platform.SharedHTTPClient(cfg.General.FetchTimeout)
	switch cfg.Chat.Platform {
	case config.PlatformSlack:
		return slack.New(slack.Config{
			Token:      cfg.Chat.Slack.BotToken,
			APIURL:     cfg.Chat.Slack.APIURL,
			HTTPClient: httpClient,
			Logger:     logger,
		}), nil
	case config.PlatformDiscord, "":
		return discord.New(discord.Config{
			Token:      cfg.Chat.Discord.Token,
			GuildID:    cfg.Chat.Discord.ServerID,
			HTTPClient: httpClient,
			Logger:     logger,
		})
	default:
		return nil, fmt.Errorf("unknown chat platform %q", cfg.Chat.Platform)
	}
}

// newChatRegistry wires the retrieval service and the chat tools.
func newChatRegistry(cfg *config.Config, p domain.ChatPlatform, logger *slog.Logger) *tool.Registry {
	svc := retrieval.NewService(retrieval.Config{
		Platform: p,
		Timeout:  cfg.General.FetchTimeout,
		Logger:   logger,
	})
	channels := cfg.Chat.Channels()
	names := cfg.Chat.ChannelNames()

	reg := tool.NewRegistry(logger)
	reg.Register(tool.NewMessagesTool(tool.MessagesConfig{
		Fetcher:  svc,
		Channels: channels,
		Names:    names,
		Location: cfg.General.Location(),
		Logger:   logger,
	}))
	reg.Register(tool.NewChannelsTool(channels, names))
	reg.Register(tool.NewHealthTool(p, platformLabel(p.Name()), logger))
	return reg
}

func chatInstructions(c *config.ChatConfig) string {
	return fmt.Sprintf(`You are connected to a %s MCP server.

Use get-discord-messages to read the most recent messages of a channel,
newest first. Channels are addressed by name: %s.
Use list-discord-channels to see the names and the channel IDs they map to.
Use health to check the connection to the chat platform.`,
		platformLabel(c.Platform), strings.Join(c.ChannelNames(), ", "))
}

func platformLabel(name string) string {
	switch name {
	case config.PlatformSlack:
		return "Slack"
	case "github":
		return "GitHub"
	default:
		return "Discord"
	}
}
