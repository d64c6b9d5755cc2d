package tool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"toolbridge/internal/domain"
	"toolbridge/internal/render"
	"toolbridge/internal/retrieval"
)

const (
	minLimit = 1
	maxLimit = 100
)

// MessageFetcher is the part of the retrieval service the messages tool
// depends on.
type MessageFetcher interface {
	FetchMessages(ctx context.Context, channelID string, limit int) ([]domain.NormalizedMessage, error)
	DisplayName(ctx context.Context, channelID, fallback string) string
}

var _ MessageFetcher = (*retrieval.Service)(nil)

// MessagesTool lists the recent messages of a channel addressed by its
// symbolic name.
type MessagesTool struct {
	fetcher  MessageFetcher
	channels map[string]string
	names    []string
	loc      *time.Location
	logger   *slog.Logger
}

type MessagesConfig struct {
	Fetcher MessageFetcher
	// Channels maps symbolic channel names to platform channel IDs.
	Channels map[string]string
	// Names is the sorted list of symbolic names shown on unknown input.
	Names    []string
	Location *time.Location
	Logger   *slog.Logger
}

func NewMessagesTool(cfg MessagesConfig) *MessagesTool {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &MessagesTool{
		fetcher:  cfg.Fetcher,
		channels: cfg.Channels,
		names:    cfg.Names,
		loc:      cfg.Location,
		logger:   cfg.Logger,
	}
}

type messagesRequest struct {
	Channel string `json:"channel"`
	// Limit is decoded as a float so out-of-range values clamp instead of
	// overflowing on conversion.
	Limit *float64 `json:"limit"`
}

func (t *MessagesTool) Name() string { return "get-discord-messages" }
func (t *MessagesTool) Description() string {
	return "Retrieve the most recent messages from a configured channel, newest first. " +
		"Available channels: " + strings.Join(t.names, ", ") + "."
}
func (t *MessagesTool) Parameters() map[string]any {
	return ToolParameters(map[string]Param{
		"channel": {
			Type:        "string",
			Description: "Symbolic channel name (" + strings.Join(t.names, ", ") + ")",
		},
		"limit": {
			Type:        "integer",
			Description: "Maximum number of messages to retrieve",
			Minimum:     intPtr(minLimit),
			Maximum:     intPtr(maxLimit),
			Default:     retrieval.DefaultLimit,
		},
	}, []string{"channel"})
}

func (t *MessagesTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	var req messagesRequest
	if err := decodeArgs(args, &req); err != nil {
		return "", err
	}
	if req.Channel == "" {
		return "", errors.New("channel is required")
	}

	channelID, ok := t.channels[req.Channel]
	if !ok {
		return fmt.Sprintf("Unknown channel name: %s. Available channels: %s",
			req.Channel, strings.Join(t.names, ", ")), nil
	}

	limit := retrieval.DefaultLimit
	if req.Limit != nil {
		limit = int(max(minLimit, min(*req.Limit, maxLimit)))
	}

	msgs, err := t.fetcher.FetchMessages(ctx, channelID, limit)
	if err != nil {
		t.logger.Warn("message retrieval failed", "channel", req.Channel, "channel_id", channelID, "error", err)
		return fmt.Sprintf("Failed to retrieve messages from channel %s. "+
			"The channel may not exist or may not be a text channel.", req.Channel), nil
	}
	if len(msgs) == 0 {
		return "No messages found in channel " + req.Channel, nil
	}

	name := t.fetcher.DisplayName(ctx, channelID, req.Channel)
	t.logger.Debug("messages retrieved", "channel", req.Channel, "count", len(msgs))
	return render.Messages(name, channelID, msgs, t.loc), nil
}
