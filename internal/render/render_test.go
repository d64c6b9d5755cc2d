package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"toolbridge/internal/domain"
)

var sample = []domain.NormalizedMessage{
	{
		ID:          "1002",
		Author:      domain.Author{Username: "octo", ID: "77", IsBot: true},
		Content:     "Build failed",
		Timestamp:   "2025-03-14T09:26:53.589Z",
		Attachments: []string{"https://cdn.example/log.txt", "https://cdn.example/trace.png"},
	},
	{
		ID:        "1001",
		Author:    domain.Author{Username: "alice", ID: "12"},
		Content:   "hello there",
		Timestamp: "2025-03-14T09:20:00.000Z",
	},
}

func TestMessages(t *testing.T) {
	got := Messages("feedback", "C123", sample, nil)

	want := "Messages from #feedback (C123):\n\n" +
		"[1] octo [BOT] (77) - 2025-03-14 09:26:53 UTC\n" +
		"Build failed\n" +
		"Attachments: https://cdn.example/log.txt, https://cdn.example/trace.png\n" +
		"---\n\n" +
		"[2] alice (12) - 2025-03-14 09:20:00 UTC\n" +
		"hello there\n" +
		"---"
	assert.Equal(t, want, got)
}

func TestMessages_Deterministic(t *testing.T) {
	a := Messages("general", "C9", sample, time.UTC)
	b := Messages("general", "C9", sample, time.UTC)
	assert.Equal(t, a, b)
}

func TestMessages_ContainsEveryField(t *testing.T) {
	got := Messages("feedback", "C123", sample, nil)
	for _, m := range sample {
		assert.Contains(t, got, m.Author.Username)
		assert.Contains(t, got, "("+m.Author.ID+")")
		assert.Contains(t, got, m.Content)
		for _, a := range m.Attachments {
			assert.Contains(t, got, a)
		}
	}
	assert.Equal(t, 1, strings.Count(got, "[BOT]"))
	assert.Equal(t, 1, strings.Count(got, "Attachments:"), "only messages with attachments list them")
}

func TestMessages_Location(t *testing.T) {
	loc := time.FixedZone("CET", 60*60)
	got := Messages("feedback", "C123", sample[:1], loc)
	assert.Contains(t, got, "2025-03-14 10:26:53 CET")
}

func TestAuthorLine(t *testing.T) {
	assert.Equal(t, "bob (1)", AuthorLine(domain.Author{Username: "bob", ID: "1"}))
	assert.Equal(t, "ci [BOT] (2)", AuthorLine(domain.Author{Username: "ci", ID: "2", IsBot: true}))
}

func TestTimestamp_Unparseable(t *testing.T) {
	assert.Equal(t, "yesterday", Timestamp("yesterday", nil))
}
