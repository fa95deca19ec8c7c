package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/DoyleJ11/quiz-client/internal/ws"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	ServerURL string `yaml:"server_url"`

	Log struct {
		Level string `yaml:"level"`
		Dev   bool   `yaml:"dev"`
	} `yaml:"log"`

	Transport struct {
		ReconnectWait time.Duration `yaml:"reconnect_wait"`
		MaxReconnects int           `yaml:"max_reconnects"`
		WriteTimeout  time.Duration `yaml:"write_timeout"`
		PingTimeout   time.Duration `yaml:"ping_timeout"`
	} `yaml:"transport"`
}

func Default() Config {
	var c Config
	c.ServerURL = "ws://localhost:3000/socket.io/?EIO=4&transport=websocket"
	c.Log.Level = "info"

	d := ws.DefaultConfig(c.ServerURL)
	c.Transport.ReconnectWait = d.ReconnectWait
	c.Transport.MaxReconnects = d.MaxReconnects
	c.Transport.WriteTimeout = d.WriteTimeout
	c.Transport.PingTimeout = d.PingTimeout
	return c
}

// Load layers defaults, then the YAML file at path (if non-empty), then .env
// files, then QUIZ_* environment variables.
func Load(path string, envFiles ...string) (Config, error) {
	c := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return c, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return c, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// A missing .env is fine; existing process env wins over it.
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return c, fmt.Errorf("failed to load env file: %w", err)
	}

	c.ServerURL = getEnv("QUIZ_SERVER_URL", c.ServerURL)
	c.Log.Level = getEnv("QUIZ_LOG_LEVEL", c.Log.Level)
	c.Log.Dev = getEnvAsBool("QUIZ_LOG_DEV", c.Log.Dev)
	c.Transport.ReconnectWait = getEnvAsDuration("QUIZ_RECONNECT_WAIT", c.Transport.ReconnectWait)
	c.Transport.MaxReconnects = getEnvAsInt("QUIZ_MAX_RECONNECTS", c.Transport.MaxReconnects)
	c.Transport.WriteTimeout = getEnvAsDuration("QUIZ_WRITE_TIMEOUT", c.Transport.WriteTimeout)
	c.Transport.PingTimeout = getEnvAsDuration("QUIZ_PING_TIMEOUT", c.Transport.PingTimeout)

	return c, c.Validate()
}

func (c Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("%w: server_url: %v", ErrInvalid, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("%w: server_url scheme must be ws or wss, got %q", ErrInvalid, u.Scheme)
	}
	if c.Transport.ReconnectWait < 0 || c.Transport.WriteTimeout <= 0 || c.Transport.PingTimeout <= 0 {
		return fmt.Errorf("%w: transport durations must be positive", ErrInvalid)
	}
	return nil
}

// WS maps the config onto the websocket client settings.
func (c Config) WS() ws.Config {
	w := ws.DefaultConfig(c.ServerURL)
	w.ReconnectWait = c.Transport.ReconnectWait
	w.MaxReconnects = c.Transport.MaxReconnects
	w.WriteTimeout = c.Transport.WriteTimeout
	w.PingTimeout = c.Transport.PingTimeout
	return w
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
