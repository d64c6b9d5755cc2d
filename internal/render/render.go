// Package render turns normalized messages into the plain-text block returned
// to the calling agent.
package render

import (
	"fmt"
	"strings"
	"time"

	"toolbridge/internal/domain"
)

// DisplayLayout is the fixed timestamp format used in rendered messages.
const DisplayLayout = "2006-01-02 15:04:05 MST"

const (
	botMarker     = " [BOT]"
	separatorLine = "---"
)

// Messages renders msgs as a numbered list under a header naming the channel.
// Timestamps are shown in loc (UTC when nil). The output depends only on the
// arguments.
func Messages(displayName, channelID string, msgs []domain.NormalizedMessage, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	blocks := make([]string, 0, len(msgs))
	for i, m := range msgs {
		blocks = append(blocks, message(i+1, m, loc))
	}
	return fmt.Sprintf("Messages from #%s (%s):\n\n%s", displayName, channelID, strings.Join(blocks, "\n\n"))
}

func message(n int, m domain.NormalizedMessage, loc *time.Location) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%d] %s - %s\n%s", n, AuthorLine(m.Author), Timestamp(m.Timestamp, loc), m.Content)
	if len(m.Attachments) > 0 {
		sb.WriteString("\nAttachments: ")
		sb.WriteString(strings.Join(m.Attachments, ", "))
	}
	sb.WriteString("\n")
	sb.WriteString(separatorLine)
	return sb.String()
}

// AuthorLine formats an author as "name [BOT] (id)".
func AuthorLine(a domain.Author) string {
	name := a.Username
	if a.IsBot {
		name += botMarker
	}
	return fmt.Sprintf("%s (%s)", name, a.ID)
}

// Timestamp reformats an ISO-8601 timestamp for display. Values that do not
// parse are returned unchanged.
func Timestamp(iso string, loc *time.Location) string {
	t, err := time.Parse(time.RFC3339Nano, iso)
	if err != nil {
		return iso
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DisplayLayout)
}
