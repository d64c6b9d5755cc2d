package domain

import "time"

// Author identifies the sender of a message.
type Author struct {
	Username string `json:"username"`
	ID       string `json:"id"`
	IsBot    bool   `json:"isBot"`
}

// ChannelRecord is a message as returned by a chat platform. It only lives for
// the duration of a single fetch.
type ChannelRecord struct {
	ID          string
	Author      Author
	Content     string
	CreatedAt   time.Time
	Attachments []string // attachment URLs in platform order
}

// NormalizedMessage is the platform-independent form of a ChannelRecord.
type NormalizedMessage struct {
	ID          string   `json:"id"`
	Author      Author   `json:"author"`
	Content     string   `json:"content"`
	Timestamp   string   `json:"timestamp"` // ISO-8601, UTC
	Attachments []string `json:"attachments"`
}
