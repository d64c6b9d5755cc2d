// Package retrieval fetches the recent messages of a chat channel and
// normalizes them into a platform-independent shape.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"toolbridge/internal/domain"
)

const (
	// DefaultLimit is the number of messages requested when none is given.
	DefaultLimit = 25

	// TimestampLayout is the ISO-8601 form of NormalizedMessage.Timestamp.
	TimestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Fetch failures. All of them mean "could not retrieve"; they are kept apart
// so that callers can log or test the cause.
var (
	ErrNotFound    = errors.New("channel not found")
	ErrWrongKind   = errors.New("not a text channel")
	ErrUnavailable = errors.New("platform unavailable")
)

// Service retrieves channel messages through a ChatPlatform. It keeps no
// per-call state and may be used concurrently.
type Service struct {
	platform domain.ChatPlatform
	timeout  time.Duration
	logger   *slog.Logger
}

// Config configures a Service.
type Config struct {
	Platform domain.ChatPlatform
	// Timeout bounds a single FetchMessages call. Zero disables it.
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewService creates a retrieval service on top of the given platform.
func NewService(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		platform: cfg.Platform,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
	}
}

// FetchMessages returns up to limit of the most recent messages of the
// channel, newest first. A channel without messages yields an empty, non-nil
// slice. Any failure yields a nil slice and one of ErrNotFound, ErrWrongKind
// or ErrUnavailable.
func (s *Service) FetchMessages(ctx context.Context, channelID string, limit int) ([]domain.NormalizedMessage, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	ch, err := s.platform.ResolveChannel(ctx, channelID)
	if err != nil {
		s.logger.WarnContext(ctx, "resolve channel failed", "channel_id", channelID, "err", err)
		if errors.Is(err, domain.ErrChannelNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, channelID)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if ch == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, channelID)
	}
	if ch.Kind != domain.KindText {
		s.logger.InfoContext(ctx, "channel is not a text channel", "channel_id", channelID, "kind", ch.Kind)
		return nil, fmt.Errorf("%w: %s is %s", ErrWrongKind, channelID, ch.Kind)
	}

	records, err := s.platform.FetchRecords(ctx, channelID, limit)
	if err != nil {
		s.logger.WarnContext(ctx, "fetch messages failed", "channel_id", channelID, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(records) > limit {
		records = records[:limit]
	}

	sorted := SortNewestFirst(records)
	out := make([]domain.NormalizedMessage, 0, len(sorted))
	for _, r := range sorted {
		out = append(out, Normalize(r))
	}
	s.logger.DebugContext(ctx, "fetched messages", "channel_id", channelID, "limit", limit, "count", len(out))
	return out, nil
}

// DisplayName returns the name of the text channel, or fallback if the
// channel cannot be resolved or is not a text channel.
func (s *Service) DisplayName(ctx context.Context, channelID, fallback string) string {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	ch, err := s.platform.ResolveChannel(ctx, channelID)
	if err != nil || ch == nil || ch.Kind != domain.KindText || ch.Name == "" {
		return fallback
	}
	return ch.Name
}

// SortNewestFirst returns a copy of records ordered by creation time,
// most recent first. Records with equal timestamps keep their input order.
func SortNewestFirst(records []domain.ChannelRecord) []domain.ChannelRecord {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b domain.ChannelRecord) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return sorted
}

// Normalize converts a platform record into a NormalizedMessage.
func Normalize(r domain.ChannelRecord) domain.NormalizedMessage {
	attachments := make([]string, len(r.Attachments))
	copy(attachments, r.Attachments)
	return domain.NormalizedMessage{
		ID:          r.ID,
		Author:      r.Author,
		Content:     r.Content,
		Timestamp:   r.CreatedAt.UTC().Format(TimestampLayout),
		Attachments: attachments,
	}
}
