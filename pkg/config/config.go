package config

import (
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

type Config struct {
	Environment string `koanf:"environment" default:"development"`

	ServerHost string `koanf:"server_host" default:"127.0.0.1"`
	ServerPort int    `koanf:"server_port" default:"3690"`

	DatabaseFilePath          string        `koanf:"database_file_path" default:"./tmp/shelfmark.sqlite"`
	DatabaseDebug             bool          `koanf:"database_debug"`
	DatabaseConnectRetryCount int           `koanf:"database_connect_retry_count" default:"5"`
	DatabaseConnectRetryDelay time.Duration `koanf:"database_connect_retry_delay" default:"2s"`
	DatabaseBusyTimeout       time.Duration `koanf:"database_busy_timeout" default:"5s"`

	// SessionSecret signs the session JWT cookie.
	SessionSecret string `koanf:"session_secret" default:"shelfmark-development-secret"`

	// UploadDir is where cover images are written.
	UploadDir string `koanf:"upload_dir" default:"./tmp/covers"`

	// PageSize is the number of books per catalog page.
	PageSize int `koanf:"page_size" default:"6"`

	BcryptCost int `koanf:"bcrypt_cost" default:"12"`

	Hostname string `koanf:"-"`
}

const (
	configFileENV = "SHELFMARK_CONFIG_FILE"
	envPrefix     = "SHELFMARK_"
)

// New loads configuration from defaults, then an optional YAML config file,
// then SHELFMARK_* environment variables, in increasing precedence.
func New() (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.WithStack(err)
	}

	k := koanf.New(".")

	configFile := os.Getenv(configFileENV)
	if configFile == "" {
		configFile = "shelfmark.yaml"
	}
	if _, err := os.Stat(configFile); err == nil {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file %s", configFile)
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.WithStack(err)
	}

	if cfg.Environment == "production" && cfg.SessionSecret == "shelfmark-development-secret" {
		return nil, errors.New("session_secret must be set in production")
	}

	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	cfg.Hostname = hostname

	if cfg.Environment == "development" {
		cfg.DatabaseDebug = true
	}

	return cfg, nil
}
