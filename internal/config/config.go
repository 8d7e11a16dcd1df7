package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	toml "github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "REALTIME_"

// MaxReconnectAttempts bounds client.max_reconnect_attempts. With the
// default 1s delay the last attempt already waits over 17 years.
const MaxReconnectAttempts = 30

// Credential sources.
const (
	SourceNone   = "none"
	SourceStatic = "static"
	SourceFile   = "file"
	SourceRedis  = "redis"
	SourceOAuth2 = "oauth2"
)

// Config is the process configuration of realtime-tail.
type Config struct {
	Client      ClientConfig      `koanf:"client"`
	Credentials CredentialsConfig `koanf:"credentials"`
	Server      ServerConfig      `koanf:"server"`
	Logging     LoggingConfig     `koanf:"logging"`
	// Articles are subscribed to on every open connection.
	Articles []string `koanf:"articles"`
}

// ClientConfig holds the realtime.Client settings.
type ClientConfig struct {
	Endpoint             string        `koanf:"endpoint"`
	HeartbeatInterval    time.Duration `koanf:"heartbeat_interval"`
	ReconnectDelay       time.Duration `koanf:"reconnect_delay"`
	MaxReconnectAttempts int           `koanf:"max_reconnect_attempts"`
	WriteTimeout         time.Duration `koanf:"write_timeout"`
	HandshakeTimeout     time.Duration `koanf:"handshake_timeout"`
	MessageSizeLimit     int64         `koanf:"message_size_limit"`
}

// CredentialsConfig selects where the connection token comes from.
type CredentialsConfig struct {
	Source string       `koanf:"source"`
	Token  string       `koanf:"token"`
	File   string       `koanf:"file"`
	Redis  RedisConfig  `koanf:"redis"`
	OAuth2 OAuth2Config `koanf:"oauth2"`
}

// RedisConfig locates the token in Redis.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	Key      string `koanf:"key"`
}

// OAuth2Config configures the client credentials grant.
type OAuth2Config struct {
	ClientID     string   `koanf:"client_id"`
	ClientSecret string   `koanf:"client_secret"`
	TokenURL     string   `koanf:"token_url"`
	Scopes       []string `koanf:"scopes"`
}

// ServerConfig configures the status server.
type ServerConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// APIKeys, when set, guard /status and /metrics.
	APIKeys     []string `koanf:"api_keys"`
	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level string `koanf:"level"`
}

// Load reads configuration from an optional TOML file and then from
// REALTIME_ environment variables. Environment values win.
func Load(configPath string) (*Config, error) {
	cfg := defaultConfig()

	k := koanf.New(".")

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			TagName:          "koanf",
			WeaklyTypedInput: true,
			Result:           cfg,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// envKey maps REALTIME_CLIENT_HEARTBEAT__INTERVAL to
// client.heartbeat_interval. A few short names are accepted as well.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))

	switch s {
	case "endpoint", "ws_url":
		return "client.endpoint"
	case "token":
		return "credentials.token"
	case "log_level":
		return "logging.level"
	}

	s = strings.ReplaceAll(s, "__", "%UNDERSCORE%")
	s = strings.ReplaceAll(s, "_", ".")
	return strings.ReplaceAll(s, "%UNDERSCORE%", "_")
}

func defaultConfig() *Config {
	return &Config{
		Client: ClientConfig{
			Endpoint:             "ws://localhost:8080/ws",
			HeartbeatInterval:    30 * time.Second,
			ReconnectDelay:       time.Second,
			MaxReconnectAttempts: 5,
			WriteTimeout:         10 * time.Second,
			HandshakeTimeout:     10 * time.Second,
			MessageSizeLimit:     65536,
		},
		Credentials: CredentialsConfig{
			Source: SourceNone,
			Redis: RedisConfig{
				Addr: "localhost:6379",
				Key:  "realtime:token",
			},
		},
		Server: ServerConfig{
			Enabled:         true,
			Port:            9091,
			ShutdownTimeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.Client.Endpoint)
	switch {
	case c.Client.Endpoint == "":
		errs = append(errs, errors.New("client.endpoint is required"))
	case err != nil:
		errs = append(errs, fmt.Errorf("client.endpoint: %w", err))
	case u.Scheme != "ws" && u.Scheme != "wss":
		errs = append(errs, fmt.Errorf("client.endpoint must use ws or wss, got %q", u.Scheme))
	}
	if c.Client.HeartbeatInterval < 0 {
		errs = append(errs, errors.New("client.heartbeat_interval must not be negative"))
	}
	if c.Client.ReconnectDelay <= 0 {
		errs = append(errs, errors.New("client.reconnect_delay must be positive"))
	}
	if c.Client.MaxReconnectAttempts < 0 || c.Client.MaxReconnectAttempts > MaxReconnectAttempts {
		errs = append(errs, fmt.Errorf("client.max_reconnect_attempts must be between 0 and %d, got %d",
			MaxReconnectAttempts, c.Client.MaxReconnectAttempts))
	}
	if c.Client.MessageSizeLimit <= 0 {
		errs = append(errs, errors.New("client.message_size_limit must be positive"))
	}

	if err := c.validateCredentials(); err != nil {
		errs = append(errs, err)
	}

	if c.Server.Enabled && (c.Server.Port < 1 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}

	return errors.Join(errs...)
}

func (c *Config) validateCredentials() error {
	cred := c.Credentials
	switch cred.Source {
	case SourceNone, "":
	case SourceStatic:
		if cred.Token == "" {
			return errors.New("credentials.token is required for the static source")
		}
	case SourceFile:
		if cred.File == "" {
			return errors.New("credentials.file is required for the file source")
		}
	case SourceRedis:
		if cred.Redis.Addr == "" || cred.Redis.Key == "" {
			return errors.New("credentials.redis.addr and credentials.redis.key are required for the redis source")
		}
	case SourceOAuth2:
		if cred.OAuth2.ClientID == "" || cred.OAuth2.TokenURL == "" {
			return errors.New("credentials.oauth2.client_id and credentials.oauth2.token_url are required for the oauth2 source")
		}
	default:
		return fmt.Errorf("credentials.source must be one of none, static, file, redis, oauth2; got %q", cred.Source)
	}
	return nil
}

// LogLevel returns the parsed logging level. Call after Validate.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}
