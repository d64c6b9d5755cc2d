// Package config loads and validates toolbridge configuration. Values come
// from an optional YAML file, a .env file and the process environment, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rusq/osenv/v2"
	"gopkg.in/yaml.v3"
)

// Chat platforms.
const (
	PlatformDiscord = "discord"
	PlatformSlack   = "slack"
)

// Symbolic channel names that are always configured.
const (
	ChannelGitHub   = "github"
	ChannelFeedback = "feedback"
	ChannelGeneral  = "general"
)

// Config is the root configuration.
type Config struct {
	General GeneralConfig `yaml:"general" json:"general"`
	Server  ServerConfig  `yaml:"server" json:"server"`
	Chat    ChatConfig    `yaml:"chat" json:"chat"`
	GitHub  GitHubConfig  `yaml:"github" json:"github"`
}

type GeneralConfig struct {
	LogLevel string `yaml:"logLevel" json:"logLevel" env:"TOOLBRIDGE_LOG_LEVEL" validate:"oneof=debug info warn error"`
	// Timezone is the IANA zone used to display message timestamps.
	Timezone     string        `yaml:"timezone" json:"timezone" env:"TOOLBRIDGE_TIMEZONE" validate:"timezone"`
	FetchTimeout time.Duration `yaml:"fetchTimeout" json:"fetchTimeout" env:"TOOLBRIDGE_FETCH_TIMEOUT" validate:"gte=0"`
}

type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport" env:"TOOLBRIDGE_TRANSPORT" validate:"oneof=stdio http"`
	Listen    string `yaml:"listen" json:"listen" env:"TOOLBRIDGE_LISTEN" validate:"required,hostname_port"`
}

type ChatConfig struct {
	Platform          string            `yaml:"platform" json:"platform" env:"CHAT_PLATFORM" validate:"oneof=discord slack"`
	FeedbackChannelID string            `yaml:"feedbackChannelId" json:"feedbackChannelId" env:"FEEDBACK_CHANNEL_ID" validate:"required"`
	GitHubChannelID   string            `yaml:"githubChannelId" json:"githubChannelId" env:"GITHUB_CHANNEL_ID" validate:"required"`
	GeneralChannelID  string            `yaml:"generalChannelId" json:"generalChannelId" env:"GENERAL_CHANNEL_ID" validate:"required"`
	ExtraChannels     map[string]string `yaml:"extraChannels,omitempty" json:"extraChannels,omitempty" validate:"dive,keys,required,endkeys,required"`
	Discord           DiscordConfig     `yaml:"discord" json:"discord" validate:"-"`
	Slack             SlackConfig       `yaml:"slack" json:"slack" validate:"-"`
}

type DiscordConfig struct {
	Token     string `yaml:"token" json:"token" env:"DISCORD_TOKEN" validate:"required"`
	AppID     string `yaml:"appId" json:"appId" env:"APP_ID" validate:"required"`
	PublicKey string `yaml:"publicKey" json:"publicKey" env:"PUBLIC_KEY" validate:"required"`
	ServerID  string `yaml:"serverId" json:"serverId" env:"DISCORD_SERVER_ID" validate:"required"`
}

type SlackConfig struct {
	BotToken string `yaml:"botToken" json:"botToken" env:"SLACK_BOT_TOKEN" validate:"required"`
	APIURL   string `yaml:"apiUrl,omitempty" json:"apiUrl,omitempty" env:"SLACK_API_URL" validate:"omitempty,url"`
}

type GitHubConfig struct {
	Token   string `yaml:"token" json:"token" env:"GITHUB_TOKEN" validate:"required"`
	Owner   string `yaml:"owner" json:"owner" env:"REPO_OWNER" validate:"required"`
	Repo    string `yaml:"repo" json:"repo" env:"REPO_NAME" validate:"required"`
	BaseURL string `yaml:"baseUrl,omitempty" json:"baseUrl,omitempty" env:"GITHUB_API_URL" validate:"omitempty,url"`
}

// DefaultConfigPath is the config file looked up when none is given.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultConfigDir returns ~/.toolbridge.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".toolbridge"
	}
	return filepath.Join(home, ".toolbridge")
}

// LoadDotEnv loads variables from a .env file into the environment without
// overriding variables that are already set. A missing file is an error
// only when required is true.
func LoadDotEnv(path string, required bool) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(ExpandPath(path)); err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("cannot load env file %s: %w", path, err)
	}
	return nil
}

// Load reads the YAML file at path (if path is not empty), applies
// environment overrides and validates the sections shared by all
// processes. Process-specific sections are checked by ValidateChat and
// ValidateGitHub.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		path = ExpandPath(path)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
		}
		data = []byte(ExpandEnvVars(string(data)))
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
		}
	}
	if err := applyEnv(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, err
	}
	if err := validateSections(&cfg.General, &cfg.Server); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg *Config) error {
	path = ExpandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// applyEnv overrides every field carrying an `env` tag with the value of
// that environment variable, when set.
func applyEnv(v reflect.Value) error {
	t := v.Type()
	for i := range t.NumField() {
		f, fv := t.Field(i), v.Field(i)
		if f.Type.Kind() == reflect.Struct {
			if err := applyEnv(fv); err != nil {
				return err
			}
			continue
		}
		name := f.Tag.Get("env")
		if name == "" {
			continue
		}
		raw := osenv.Value(name, "")
		if raw == "" {
			continue
		}
		switch {
		case f.Type == reflect.TypeFor[time.Duration]():
			d, err := time.ParseDuration(raw)
			if err != nil {
				return fmt.Errorf("invalid duration in %s: %w", name, err)
			}
			fv.SetInt(int64(d))
		case f.Type.Kind() == reflect.String:
			fv.SetString(raw)
		}
	}
	return nil
}

// ValidateChat checks everything the chat process needs.
func ValidateChat(cfg *Config) error {
	sections := []any{&cfg.General, &cfg.Server, &cfg.Chat}
	switch cfg.Chat.Platform {
	case PlatformDiscord:
		sections = append(sections, &cfg.Chat.Discord)
	case PlatformSlack:
		sections = append(sections, &cfg.Chat.Slack)
	}
	return validateSections(sections...)
}

// ValidateGitHub checks everything the source-hosting process needs.
func ValidateGitHub(cfg *Config) error {
	return validateSections(&cfg.General, &cfg.Server, &cfg.GitHub)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(fieldName)
	return v
}

// fieldName reports fields by their environment variable, falling back to
// the YAML key.
func fieldName(f reflect.StructField) string {
	if env := f.Tag.Get("env"); env != "" {
		return env
	}
	name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
	return name
}

func validateSections(sections ...any) error {
	var errs []string
	for _, s := range sections {
		err := validate.Struct(s)
		if err == nil {
			continue
		}
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs = append(errs, describe(fe))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "missing required value: " + fe.Field()
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s: invalid value %q (%s)", fe.Field(), fmt.Sprint(fe.Value()), fe.Tag())
	}
}

// Channels returns the symbolic channel name to channel ID mapping.
func (c *ChatConfig) Channels() map[string]string {
	m := map[string]string{
		ChannelGitHub:   c.GitHubChannelID,
		ChannelFeedback: c.FeedbackChannelID,
		ChannelGeneral:  c.GeneralChannelID,
	}
	for name, id := range c.ExtraChannels {
		if _, ok := m[name]; !ok {
			m[name] = id
		}
	}
	return m
}

// ChannelNames returns the configured symbolic names in sorted order.
func (c *ChatConfig) ChannelNames() []string {
	names := make([]string, 0, 3+len(c.ExtraChannels))
	for name := range c.Channels() {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Location returns the display time zone.
func (g *GeneralConfig) Location() *time.Location {
	if g.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(g.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Level returns the slog level for LogLevel.
func (g *GeneralConfig) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(g.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// ${VAR:-default} uses "default" when VAR is unset or empty; a reference to
// an unset variable without a default is left as is.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		hasDefault := len(groups) >= 3 && groups[2] != ""

		val, exists := os.LookupEnv(groups[1])
		if !exists || val == "" {
			if hasDefault {
				return groups[2]
			}
			return match
		}
		return val
	})
}

// ExpandPath resolves a leading ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
