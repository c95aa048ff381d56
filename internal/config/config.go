package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	GatewayURL string `mapstructure:"GATEWAY_URL"`
	FeedURL    string `mapstructure:"FEED_URL"`
	AuthToken  string `mapstructure:"AUTH_TOKEN"`
	Env        string `mapstructure:"GO_ENV"`

	// Bounded window for the initial friends + conversations load, seconds.
	LoadTimeoutSeconds int `mapstructure:"LOAD_TIMEOUT_SECONDS"`
	// Unread-count poll backstop interval, seconds.
	UnreadPollSeconds int `mapstructure:"UNREAD_POLL_SECONDS"`
	// Message page size for paginated history fetches.
	PageSize int `mapstructure:"PAGE_SIZE"`
}

var AppConfig *Config

func LoadConfig() {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	viper.SetDefault("GATEWAY_URL", "http://localhost:8080/api")
	viper.SetDefault("FEED_URL", "ws://localhost:8080/feed")
	viper.SetDefault("GO_ENV", "development")
	viper.SetDefault("LOAD_TIMEOUT_SECONDS", 10)
	viper.SetDefault("UNREAD_POLL_SECONDS", 45)
	viper.SetDefault("PAGE_SIZE", 50)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Unable to decode config: %v", err)
	}
}

// LoadTimeout returns the initial-load window as a duration.
func (c *Config) LoadTimeout() time.Duration {
	return time.Duration(c.LoadTimeoutSeconds) * time.Second
}

// UnreadPollInterval returns the unread backstop interval as a duration.
func (c *Config) UnreadPollInterval() time.Duration {
	return time.Duration(c.UnreadPollSeconds) * time.Second
}
