// Package config loads chatfront settings from flags, environment, .env files
// and an optional YAML config file.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "CHATFRONT"

	DefaultAPIBaseURL     = "http://localhost:5000/api"
	DefaultRequestTimeout = 60 * time.Second
	DefaultCopyAckDelay   = 2 * time.Second
	DefaultPreviewLimit   = 500
)

// Settings is the resolved configuration for one chatfront process.
type Settings struct {
	APIBaseURL     string        `yaml:"api-base-url"`
	UserID         string        `yaml:"user-id"`
	Token          string        `yaml:"token"`
	RequestTimeout time.Duration `yaml:"request-timeout"`
	CopyAckDelay   time.Duration `yaml:"copy-ack-delay"`
	PreviewLimit   int           `yaml:"preview-limit"`

	LogLevel  string `yaml:"log-level"`
	LogFormat string `yaml:"log-format"`
	LogFile   string `yaml:"log-file"`

	Redis RedisSettings `yaml:"redis"`

	RecorderCommand string `yaml:"recorder-command"`
	ModelCatalog    string `yaml:"model-catalog"`
}

// RedisSettings configures the optional Redis Streams event transport.
type RedisSettings struct {
	Enabled  bool   `yaml:"redis-enabled"`
	Addr     string `yaml:"redis-addr"`
	Group    string `yaml:"redis-group"`
	Consumer string `yaml:"redis-consumer"`
}

// AddFlags registers the persistent flags shared by every command.
func AddFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a YAML config file")
	fs.String("env-file", ".env", "Optional .env file to load before reading the environment")
	fs.String("api-base-url", DefaultAPIBaseURL, "Base URL of the chat API")
	fs.String("user-id", "", "Authenticated user id")
	fs.String("token", "", "Bearer token for session-mutating calls")
	fs.Duration("request-timeout", DefaultRequestTimeout, "Timeout applied to every API request")
	fs.Duration("copy-ack-delay", DefaultCopyAckDelay, "How long a copied indicator stays visible")
	fs.Int("preview-limit", DefaultPreviewLimit, "Characters of attachment content shown in previews")
	fs.String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	fs.String("log-format", "auto", "Log format (auto, text, json)")
	fs.String("log-file", "", "Write logs to this file instead of stderr")
	fs.Bool("redis-enabled", false, "Publish engine events on Redis Streams")
	fs.String("redis-addr", "localhost:6379", "Redis address host:port")
	fs.String("redis-group", "chatfront", "Redis consumer group")
	fs.String("redis-consumer", "chatfront-1", "Redis consumer name")
	fs.String("recorder-command", "", "External command used to capture audio (defaults to the first of arecord, rec)")
	fs.String("model-catalog", "", "YAML file overriding the built-in model catalog")
}

// Load resolves Settings from the given flag set. Precedence is flags, then
// environment (CHATFRONT_*), then the config file, then defaults.
func Load(fs *pflag.FlagSet) (*Settings, error) {
	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, errors.Wrap(err, "bind flags")
	}

	envFile := expand(v.GetString("env-file"))
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "load env file %s", envFile)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := expand(v.GetString("config")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "chatfront"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "read config")
			}
		}
	}
	if used := v.ConfigFileUsed(); used != "" {
		log.Debug().Str("path", used).Msg("loaded config file")
	}

	s := &Settings{
		APIBaseURL:     strings.TrimRight(v.GetString("api-base-url"), "/"),
		UserID:         v.GetString("user-id"),
		Token:          v.GetString("token"),
		RequestTimeout: v.GetDuration("request-timeout"),
		CopyAckDelay:   v.GetDuration("copy-ack-delay"),
		PreviewLimit:   v.GetInt("preview-limit"),
		LogLevel:       v.GetString("log-level"),
		LogFormat:      v.GetString("log-format"),
		LogFile:        expand(v.GetString("log-file")),
		Redis: RedisSettings{
			Enabled:  v.GetBool("redis-enabled"),
			Addr:     v.GetString("redis-addr"),
			Group:    v.GetString("redis-group"),
			Consumer: v.GetString("redis-consumer"),
		},
		RecorderCommand: v.GetString("recorder-command"),
		ModelCatalog:    expand(v.GetString("model-catalog")),
	}
	return s, s.Validate()
}

// expand resolves a leading ~ in a path setting.
func expand(path string) string {
	if path == "" {
		return ""
	}
	out, err := homedir.Expand(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("could not expand path")
		return path
	}
	return out
}

// Validate normalizes zero values and rejects unusable settings.
func (s *Settings) Validate() error {
	if s.APIBaseURL == "" {
		return errors.New("api-base-url must not be empty")
	}
	if !strings.HasPrefix(s.APIBaseURL, "http://") && !strings.HasPrefix(s.APIBaseURL, "https://") {
		return errors.Errorf("api-base-url %q must be an http(s) URL", s.APIBaseURL)
	}
	if s.RequestTimeout <= 0 {
		s.RequestTimeout = DefaultRequestTimeout
	}
	if s.CopyAckDelay <= 0 {
		s.CopyAckDelay = DefaultCopyAckDelay
	}
	if s.PreviewLimit <= 0 {
		s.PreviewLimit = DefaultPreviewLimit
	}
	return nil
}
