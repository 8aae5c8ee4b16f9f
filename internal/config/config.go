// Package config loads the application configuration from file and
// environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/S-Corkum/taskboard/internal/api"
	ws "github.com/S-Corkum/taskboard/internal/api/websocket"
	"github.com/S-Corkum/taskboard/internal/repository/redis"
)

// Config holds the complete application configuration
type Config struct {
	API       api.Config   `mapstructure:"api"`
	Redis     redis.Config `mapstructure:"redis"`
	WebSocket ws.Config    `mapstructure:"websocket"`
	Logging   Logging      `mapstructure:"logging"`
}

// Logging holds log output settings
type Logging struct {
	Level string `mapstructure:"level"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	configFile := os.Getenv("TASKBOARD_CONFIG_FILE")
	if configFile == "" {
		configFile = "configs/config.yaml"
	}
	v.SetConfigFile(configFile)

	// Environment variables prefixed with TASKBOARD_ override the file.
	v.SetEnvPrefix("TASKBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// The config file is optional when environment variables are set.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.listen_address", ":8080")
	v.SetDefault("api.read_timeout", 30*time.Second)
	v.SetDefault("api.write_timeout", 30*time.Second)
	v.SetDefault("api.idle_timeout", 90*time.Second)
	v.SetDefault("api.enable_cors", true)
	v.SetDefault("api.rate_limit.enabled", true)
	v.SetDefault("api.rate_limit.limit", 100)
	v.SetDefault("api.rate_limit.burst", 200)
	v.SetDefault("api.rate_limit.expiration", 15*time.Minute)
	v.SetDefault("api.auth.enabled", false)

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.pool_timeout", 4*time.Second)

	v.SetDefault("websocket.send_buffer", 64)
	v.SetDefault("websocket.write_timeout", 10*time.Second)
	v.SetDefault("websocket.read_timeout", 60*time.Second)
	v.SetDefault("websocket.max_message_size", 32*1024)

	v.SetDefault("logging.level", "info")
}
