package config

import "time"

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:     "info",
			Timezone:     "UTC",
			FetchTimeout: 30 * time.Second,
		},
		Server: ServerConfig{
			Transport: "stdio",
			Listen:    "127.0.0.1:8484",
		},
		Chat: ChatConfig{
			Platform: PlatformDiscord,
		},
	}
}
