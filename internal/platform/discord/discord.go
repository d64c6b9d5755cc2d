// Package discord implements domain.ChatPlatform on top of a discordgo
// session.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"toolbridge/internal/domain"
)

// Intents requested when the gateway connection is opened.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsMessageContent |
	discordgo.IntentsGuildMessageReactions

// maxFetch is the largest page the Discord API returns for channel messages.
const maxFetch = 100

// session is the subset of *discordgo.Session used by Client.
type session interface {
	Open() error
	Close() error
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
}

// Client is an authenticated Discord bot session.
type Client struct {
	session session
	guildID string
	logger  *slog.Logger
}

// Config configures the Discord client.
type Config struct {
	Token string
	// GuildID restricts lookups to one server. Channels of other servers are
	// reported as not found.
	GuildID    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

var _ domain.ChatPlatform = (*Client)(nil)

// New creates a Discord client. The gateway connection is not opened until
// Open is called.
func New(cfg Config) (*Client, error) {
	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	s.Identify.Intents = Intents
	if cfg.HTTPClient != nil {
		s.Client = cfg.HTTPClient
	}
	return newClient(s, cfg.GuildID, cfg.Logger), nil
}

func newClient(s session, guildID string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{session: s, guildID: guildID, logger: logger}
}

func (c *Client) Name() string { return "discord" }

// Open authenticates and connects to the gateway.
func (c *Client) Open(ctx context.Context) error {
	if err := c.session.Open(); err != nil {
		return fmt.Errorf("discord connect: %w", err)
	}
	c.logger.InfoContext(ctx, "discord session opened", "guild_id", c.guildID)
	return nil
}

// Close disconnects from the gateway.
func (c *Client) Close() error {
	c.logger.Info("discord session closing")
	return c.session.Close()
}

// ResolveChannel implements domain.ChatPlatform.
func (c *Client) ResolveChannel(ctx context.Context, id string) (*domain.Channel, error) {
	ch, err := c.session.Channel(id, discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify(err)
	}
	if c.guildID != "" && ch.GuildID != c.guildID {
		return nil, fmt.Errorf("%w: %s belongs to another server", domain.ErrChannelNotFound, id)
	}
	return &domain.Channel{
		ID:      ch.ID,
		Name:    ch.Name,
		GuildID: ch.GuildID,
		Kind:    kindOf(ch.Type),
	}, nil
}

// FetchRecords implements domain.ChatPlatform.
func (c *Client) FetchRecords(ctx context.Context, channelID string, limit int) ([]domain.ChannelRecord, error) {
	limit = max(min(limit, maxFetch), 1)
	msgs, err := c.session.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify(err)
	}
	records := make([]domain.ChannelRecord, 0, len(msgs))
	for _, m := range msgs {
		if m == nil {
			continue
		}
		records = append(records, record(m))
	}
	return records, nil
}

// WhoAmI implements domain.ChatPlatform.
func (c *Client) WhoAmI(ctx context.Context) (string, error) {
	u, err := c.session.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("discord: current user: %w", err)
	}
	return u.Username, nil
}

func record(m *discordgo.Message) domain.ChannelRecord {
	var author domain.Author
	if m.Author != nil {
		author = domain.Author{
			Username: m.Author.Username,
			ID:       m.Author.ID,
			IsBot:    m.Author.Bot,
		}
	}
	attachments := make([]string, 0, len(m.Attachments))
	for _, a := range m.Attachments {
		if a != nil {
			attachments = append(attachments, a.URL)
		}
	}
	return domain.ChannelRecord{
		ID:          m.ID,
		Author:      author,
		Content:     m.Content,
		CreatedAt:   m.Timestamp,
		Attachments: attachments,
	}
}

func kindOf(t discordgo.ChannelType) domain.ChannelKind {
	switch t {
	case discordgo.ChannelTypeGuildText:
		return domain.KindText
	case discordgo.ChannelTypeGuildVoice, discordgo.ChannelTypeGuildStageVoice:
		return domain.KindVoice
	case discordgo.ChannelTypeGuildCategory:
		return domain.KindCategory
	case discordgo.ChannelTypeGuildNews:
		return domain.KindAnnouncement
	case discordgo.ChannelTypeGuildNewsThread, discordgo.ChannelTypeGuildPublicThread, discordgo.ChannelTypeGuildPrivateThread:
		return domain.KindThread
	case discordgo.ChannelTypeGuildForum:
		return domain.KindForum
	case discordgo.ChannelTypeDM, discordgo.ChannelTypeGroupDM:
		return domain.KindDirect
	default:
		return domain.KindOther
	}
}

// classify maps "unknown channel" and "missing access" REST errors to
// domain.ErrChannelNotFound.
func classify(err error) error {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusNotFound, http.StatusForbidden:
			return fmt.Errorf("%w: %v", domain.ErrChannelNotFound, err)
		}
	}
	return fmt.Errorf("discord: %w", err)
}
