package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

// envVars lists every variable Load reads, so tests start from a clean slate
// even when CI exports some of them (GITHUB_TOKEN, typically).
var envVars = []string{
	"TOOLBRIDGE_LOG_LEVEL", "TOOLBRIDGE_TIMEZONE", "TOOLBRIDGE_FETCH_TIMEOUT",
	"TOOLBRIDGE_TRANSPORT", "TOOLBRIDGE_LISTEN",
	"CHAT_PLATFORM", "FEEDBACK_CHANNEL_ID", "GITHUB_CHANNEL_ID", "GENERAL_CHANNEL_ID",
	"DISCORD_TOKEN", "APP_ID", "PUBLIC_KEY", "DISCORD_SERVER_ID",
	"SLACK_BOT_TOKEN", "SLACK_API_URL",
	"GITHUB_TOKEN", "REPO_OWNER", "REPO_NAME", "GITHUB_API_URL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range envVars {
		t.Setenv(v, "")
	}
}

func setDiscordEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DISCORD_TOKEN", "discord-token-123456")
	t.Setenv("APP_ID", "app")
	t.Setenv("PUBLIC_KEY", "pubkey")
	t.Setenv("DISCORD_SERVER_ID", "G1")
	t.Setenv("FEEDBACK_CHANNEL_ID", "100")
	t.Setenv("GITHUB_CHANNEL_ID", "200")
	t.Setenv("GENERAL_CHANNEL_ID", "300")
}

// --- Validate ---

func TestLoad_DefaultsOnly(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("defaults should load: %v", err)
	}
	if cfg.Chat.Platform != PlatformDiscord {
		t.Fatalf("expected discord, got %q", cfg.Chat.Platform)
	}
	if cfg.General.FetchTimeout != 30*time.Second {
		t.Fatalf("unexpected fetch timeout %v", cfg.General.FetchTimeout)
	}
}

func TestValidateChat_Discord(t *testing.T) {
	clearEnv(t)
	setDiscordEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := ValidateChat(cfg); err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
	if cfg.Chat.Discord.ServerID != "G1" {
		t.Fatalf("env not applied: %+v", cfg.Chat.Discord)
	}
}

func TestValidateChat_MissingReportsEveryVariable(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISCORD_TOKEN", "tok")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	err = ValidateChat(cfg)
	if err == nil {
		t.Fatal("expected error for missing variables")
	}
	for _, name := range []string{"APP_ID", "PUBLIC_KEY", "DISCORD_SERVER_ID", "FEEDBACK_CHANNEL_ID", "GITHUB_CHANNEL_ID", "GENERAL_CHANNEL_ID"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error should mention %s: %v", name, err)
		}
	}
	if strings.Contains(err.Error(), "DISCORD_TOKEN") {
		t.Errorf("DISCORD_TOKEN is set and must not be reported: %v", err)
	}
}

func TestValidateChat_Slack(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHAT_PLATFORM", "slack")
	t.Setenv("FEEDBACK_CHANNEL_ID", "C1")
	t.Setenv("GITHUB_CHANNEL_ID", "C2")
	t.Setenv("GENERAL_CHANNEL_ID", "C3")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	err = ValidateChat(cfg)
	if err == nil || !strings.Contains(err.Error(), "SLACK_BOT_TOKEN") {
		t.Fatalf("expected SLACK_BOT_TOKEN error, got %v", err)
	}
	if strings.Contains(err.Error(), "DISCORD_TOKEN") {
		t.Fatalf("discord settings must not be required for slack: %v", err)
	}

	cfg.Chat.Slack.BotToken = "xoxb-1"
	if err := ValidateChat(cfg); err != nil {
		t.Fatalf("expected valid slack config: %v", err)
	}
}

func TestValidateChat_InvalidPlatform(t *testing.T) {
	clearEnv(t)
	setDiscordEnv(t)
	t.Setenv("CHAT_PLATFORM", "irc")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := ValidateChat(cfg); err == nil || !strings.Contains(err.Error(), "CHAT_PLATFORM must be one of") {
		t.Fatalf("expected platform error, got %v", err)
	}
}

func TestValidateGitHub(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	err = ValidateGitHub(cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, name := range []string{"GITHUB_TOKEN", "REPO_OWNER", "REPO_NAME"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error should mention %s: %v", name, err)
		}
	}

	t.Setenv("GITHUB_TOKEN", "ghp_x")
	t.Setenv("REPO_OWNER", "acme")
	t.Setenv("REPO_NAME", "widgets")
	cfg, err = Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := ValidateGitHub(cfg); err != nil {
		t.Fatalf("expected valid: %v", err)
	}
}

func TestLoad_InvalidTransport(t *testing.T) {
	clearEnv(t)
	t.Setenv("TOOLBRIDGE_TRANSPORT", "carrier-pigeon")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for invalid transport")
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	clearEnv(t)
	t.Setenv("TOOLBRIDGE_LOG_LEVEL", "loud")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("TOOLBRIDGE_FETCH_TIMEOUT", "soon")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

// --- Load / Save ---

func TestLoad_YAMLWithEnvExpansion(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_FEEDBACK_ID", "999")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
general:
  logLevel: debug
  fetchTimeout: 5s
chat:
  feedbackChannelId: ${TEST_FEEDBACK_ID}
  githubChannelId: ${TEST_UNSET_ID:-201}
  generalChannelId: "301"
  extraChannels:
    releases: "401"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := map[string]string{"feedback": "999", "github": "201", "general": "301", "releases": "401"}
	if got := cfg.Chat.Channels(); !reflect.DeepEqual(got, want) {
		t.Fatalf("channels: got %v, want %v", got, want)
	}
	if cfg.General.FetchTimeout != 5*time.Second {
		t.Fatalf("fetch timeout: %v", cfg.General.FetchTimeout)
	}
	if cfg.General.Level() != slog.LevelDebug {
		t.Fatalf("level: %v", cfg.General.Level())
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("chat:\n  feedbackChannelId: \"1\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FEEDBACK_CHANNEL_ID", "2")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Chat.FeedbackChannelID != "2" {
		t.Fatalf("expected env to win, got %q", cfg.Chat.FeedbackChannelID)
	}
}

func TestLoadSave_RoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")

	original := Defaults()
	original.Chat.GeneralChannelID = "12345"
	original.General.FetchTimeout = 90 * time.Second
	if err := Save(path, original); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Chat.GeneralChannelID != "12345" {
		t.Fatalf("expected '12345', got %q", loaded.Chat.GeneralChannelID)
	}
	if loaded.General.FetchTimeout != 90*time.Second {
		t.Fatalf("expected 90s, got %v", loaded.General.FetchTimeout)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("chat: [unclosed"), 0o600)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("TOOLBRIDGE_TEST_DOTENV=hello\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("TOOLBRIDGE_TEST_DOTENV") })

	if err := LoadDotEnv(path, true); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := os.Getenv("TOOLBRIDGE_TEST_DOTENV"); got != "hello" {
		t.Fatalf("expected hello, got %q", got)
	}
}

func TestLoadDotEnv_Missing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.env")
	if err := LoadDotEnv(missing, false); err != nil {
		t.Fatalf("optional file: %v", err)
	}
	if err := LoadDotEnv(missing, true); err == nil {
		t.Fatal("expected error for required missing file")
	}
}

// --- Helpers ---

func TestChannelNames_Sorted(t *testing.T) {
	c := ChatConfig{
		FeedbackChannelID: "1", GitHubChannelID: "2", GeneralChannelID: "3",
		ExtraChannels: map[string]string{"alerts": "4", "feedback": "override-ignored"},
	}
	want := []string{"alerts", "feedback", "general", "github"}
	if got := c.ChannelNames(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if c.Channels()["feedback"] != "1" {
		t.Fatal("extra channels must not replace the built-in ones")
	}
}

func TestLocation(t *testing.T) {
	g := GeneralConfig{}
	if g.Location() != time.UTC {
		t.Fatal("empty timezone should be UTC")
	}
	g.Timezone = "Not/AZone"
	if g.Location() != time.UTC {
		t.Fatal("invalid timezone should fall back to UTC")
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TB_SET", "value")
	tests := map[string]string{
		"${TB_SET}":             "value",
		"${TB_UNSET_XYZ}":       "${TB_UNSET_XYZ}",
		"${TB_UNSET_XYZ:-dflt}": "dflt",
		"pre-${TB_SET}-post":    "pre-value-post",
		"no variables here":     "no variables here",
	}
	for in, want := range tests {
		if got := ExpandEnvVars(in); got != want {
			t.Errorf("ExpandEnvVars(%q) = %q, want %q", in, got, want)
		}
	}
}

// --- Accessor ---

func TestGetByPath(t *testing.T) {
	cfg := Defaults()
	val, err := GetByPath(cfg, "chat.platform")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if val != "discord" {
		t.Fatalf("expected 'discord', got %v", val)
	}
	if _, err := GetByPath(cfg, "nonexistent.path"); err == nil {
		t.Fatal("expected error for nonexistent path")
	}
}

func TestSanitize(t *testing.T) {
	cfg := Defaults()
	cfg.Chat.Discord.Token = "abcdefghijklmnop"
	cfg.GitHub.Token = "short"
	cfg.Chat.ExtraChannels = map[string]string{"x": "1"}

	s := Sanitize(cfg)
	if s.Chat.Discord.Token != "abcd****mnop" {
		t.Fatalf("discord token not masked: %q", s.Chat.Discord.Token)
	}
	if s.GitHub.Token != "***" {
		t.Fatalf("github token not masked: %q", s.GitHub.Token)
	}
	if cfg.Chat.Discord.Token != "abcdefghijklmnop" {
		t.Fatal("Sanitize must not modify the original")
	}
	data, _ := json.Marshal(s)
	if strings.Contains(string(data), "abcdefghijklmnop") {
		t.Fatal("secret leaked into sanitized output")
	}
}
