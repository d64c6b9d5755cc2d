package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// GetByPath retrieves a config value by dot-notation path (e.g. "chat.platform").
func GetByPath(cfg *Config, path string) (any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}

	var current any = m
	for _, key := range strings.Split(path, ".") {
		switch v := current.(type) {
		case map[string]any:
			val, ok := v[key]
			if !ok {
				return nil, fmt.Errorf("key not found: %s", path)
			}
			current = val
		case []any:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, fmt.Errorf("invalid array index: %s", key)
			}
			current = v[idx]
		default:
			return nil, fmt.Errorf("cannot traverse into %T at %s", current, key)
		}
	}
	return current, nil
}

// Sanitize returns a copy of the config with credentials masked.
func Sanitize(cfg *Config) *Config {
	c := *cfg
	c.Chat.ExtraChannels = make(map[string]string, len(cfg.Chat.ExtraChannels))
	for k, v := range cfg.Chat.ExtraChannels {
		c.Chat.ExtraChannels[k] = v
	}
	c.Chat.Discord.Token = maskString(c.Chat.Discord.Token)
	c.Chat.Discord.PublicKey = maskString(c.Chat.Discord.PublicKey)
	c.Chat.Slack.BotToken = maskString(c.Chat.Slack.BotToken)
	c.GitHub.Token = maskString(c.GitHub.Token)
	return &c
}

// maskString shows the first and last 4 characters and masks the rest.
func maskString(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
