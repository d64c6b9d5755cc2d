package domain

import (
	"context"
	"errors"
)

// ErrChannelNotFound is returned by a ChatPlatform when the channel does not
// exist or is not visible to the bot.
var ErrChannelNotFound = errors.New("channel not found")

// ChannelKind discriminates the kinds of channel a platform can return.
type ChannelKind int

const (
	KindOther ChannelKind = iota
	KindText
	KindVoice
	KindCategory
	KindAnnouncement
	KindThread
	KindForum
	KindDirect
)

var kindNames = map[ChannelKind]string{
	KindOther:        "other",
	KindText:         "text",
	KindVoice:        "voice",
	KindCategory:     "category",
	KindAnnouncement: "announcement",
	KindThread:       "thread",
	KindForum:        "forum",
	KindDirect:       "direct",
}

func (k ChannelKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "other"
}

// Channel is a resolved message container on a chat platform.
type Channel struct {
	ID      string
	Name    string
	GuildID string
	Kind    ChannelKind
}

// ChatPlatform is the authenticated connection to a chat service. A single
// instance is shared by all concurrent tool invocations.
type ChatPlatform interface {
	// Name returns the platform name, e.g. "discord".
	Name() string
	// ResolveChannel looks up a channel by its platform identifier.
	ResolveChannel(ctx context.Context, id string) (*Channel, error)
	// FetchRecords returns up to limit of the most recent messages in the
	// channel, in whatever order the platform returns them.
	FetchRecords(ctx context.Context, channelID string, limit int) ([]ChannelRecord, error)
	// WhoAmI returns the name of the authenticated account.
	WhoAmI(ctx context.Context) (string, error)
}
