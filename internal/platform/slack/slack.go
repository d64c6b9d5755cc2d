// Package slack implements domain.ChatPlatform for Slack workspaces.
package slack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"toolbridge/internal/domain"
)

// maxFetch is the largest page conversations.history is asked for.
const maxFetch = 100

// Client is an authenticated Slack bot client.
type Client struct {
	api    *slack.Client
	logger *slog.Logger
}

// Config configures the Slack client.
type Config struct {
	Token string
	// APIURL overrides the Slack API endpoint, it must end with a slash.
	APIURL     string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

var _ domain.ChatPlatform = (*Client)(nil)

// New creates a Slack client.
func New(cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	var opts []slack.Option
	if cfg.APIURL != "" {
		opts = append(opts, slack.OptionAPIURL(cfg.APIURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, slack.OptionHTTPClient(cfg.HTTPClient))
	}
	return &Client{
		api:    slack.New(cfg.Token, opts...),
		logger: cfg.Logger,
	}
}

func (c *Client) Name() string { return "slack" }

// Open verifies the token.
func (c *Client) Open(ctx context.Context) error {
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack auth: %w", err)
	}
	c.logger.InfoContext(ctx, "slack session opened", "team", resp.Team, "user", resp.User)
	return nil
}

// Close is a no-op, Slack's Web API is stateless.
func (c *Client) Close() error { return nil }

// ResolveChannel implements domain.ChatPlatform.
func (c *Client) ResolveChannel(ctx context.Context, id string) (*domain.Channel, error) {
	ch, err := c.api.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{ChannelID: id})
	if err != nil {
		return nil, classify(err)
	}
	return &domain.Channel{
		ID:   ch.ID,
		Name: ch.Name,
		Kind: kindOf(ch),
	}, nil
}

// FetchRecords implements domain.ChatPlatform.
func (c *Client) FetchRecords(ctx context.Context, channelID string, limit int) ([]domain.ChannelRecord, error) {
	limit = max(min(limit, maxFetch), 1)
	resp, err := c.api.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: channelID,
		Limit:     limit,
	})
	if err != nil {
		return nil, classify(err)
	}
	records := make([]domain.ChannelRecord, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		rec, err := record(m)
		if err != nil {
			c.logger.WarnContext(ctx, "skipping message", "channel_id", channelID, "ts", m.Timestamp, "err", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// WhoAmI implements domain.ChatPlatform.
func (c *Client) WhoAmI(ctx context.Context) (string, error) {
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return "", fmt.Errorf("slack: auth.test: %w", err)
	}
	return resp.User, nil
}

func record(m slack.Message) (domain.ChannelRecord, error) {
	created, err := ParseTimestamp(m.Timestamp)
	if err != nil {
		return domain.ChannelRecord{}, err
	}
	author := domain.Author{
		Username: m.Username,
		ID:       m.User,
		IsBot:    m.BotID != "" || m.SubType == slack.MsgSubTypeBotMessage,
	}
	if author.ID == "" {
		author.ID = m.BotID
	}
	if author.Username == "" {
		author.Username = author.ID
	}
	attachments := make([]string, 0, len(m.Files))
	for _, f := range m.Files {
		if f.URLPrivate != "" {
			attachments = append(attachments, f.URLPrivate)
		}
	}
	return domain.ChannelRecord{
		ID:          m.Timestamp,
		Author:      author,
		Content:     m.Text,
		CreatedAt:   created,
		Attachments: attachments,
	}, nil
}

// ParseTimestamp converts a Slack "seconds.micros" timestamp to time.Time.
func ParseTimestamp(ts string) (time.Time, error) {
	secs, frac, _ := strings.Cut(ts, ".")
	s, err := strconv.ParseInt(secs, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid slack timestamp %q", ts)
	}
	var us int64
	if frac != "" {
		frac = (frac + "000000")[:6]
		if us, err = strconv.ParseInt(frac, 10, 64); err != nil {
			return time.Time{}, fmt.Errorf("invalid slack timestamp %q", ts)
		}
	}
	return time.Unix(s, us*int64(time.Microsecond)).UTC(), nil
}

func kindOf(ch *slack.Channel) domain.ChannelKind {
	switch {
	case ch.IsIM || ch.IsMpIM:
		return domain.KindDirect
	case ch.IsChannel || ch.IsGroup || ch.IsPrivate:
		return domain.KindText
	default:
		return domain.KindOther
	}
}

var notFoundErrors = []string{"channel_not_found", "not_in_channel", "missing_scope"}

func classify(err error) error {
	var se slack.SlackErrorResponse
	code := err.Error()
	if errors.As(err, &se) {
		code = se.Err
	}
	for _, nf := range notFoundErrors {
		if code == nf {
			return fmt.Errorf("%w: %v", domain.ErrChannelNotFound, err)
		}
	}
	return fmt.Errorf("slack: %w", err)
}
