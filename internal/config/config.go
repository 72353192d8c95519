package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Mode values for Reader.Mode. An empty mode lets each host pick its own:
// the CLI blocks, the Slack server runs in the background.
const (
	ModeSync  = "sync"
	ModeAsync = "async"
)

// Config holds the settings shared by the CLI and the Slack server.
type Config struct {
	Reader struct {
		BaseURL string `yaml:"base_url"`
		Mode    string `yaml:"mode"`
	} `yaml:"reader"`
	HTTP struct {
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"http"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Slack struct {
		ListenAddr      string        `yaml:"listen_addr"`
		SigningSecret   string        `yaml:"signing_secret"`
		ResultTimeout   time.Duration `yaml:"result_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		RateLimit       float64       `yaml:"rate_limit"`
		RateBurst       int           `yaml:"rate_burst"`
	} `yaml:"slack"`
}

// Default returns the built-in configuration.
func Default() Config {
	var cfg Config
	cfg.Reader.BaseURL = "https://r.jina.ai/"
	cfg.HTTP.Timeout = 60 * time.Second
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Slack.ListenAddr = ":8080"
	cfg.Slack.ResultTimeout = 2 * time.Minute
	cfg.Slack.ShutdownTimeout = 10 * time.Second
	cfg.Slack.RateBurst = 5
	return cfg
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- path is supplied by the operator.
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if len(data) == 0 {
			return cfg, errors.New("config file is empty")
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("JINA_READER_BASE_URL"); ok && v != "" {
		c.Reader.BaseURL = v
	}
	if v, ok := lookup("JINA_READER_MODE"); ok && v != "" {
		c.Reader.Mode = v
	}
	if v, ok := lookup("JINA_READER_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("JINA_READER_TIMEOUT: %w", err)
		}
		c.HTTP.Timeout = d
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup("SLACK_SIGNING_SECRET"); ok && v != "" {
		c.Slack.SigningSecret = v
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		c.Slack.ListenAddr = ":" + v
	}
	return nil
}

// ModeOr returns Reader.Mode, or fallback when it is unset.
func (c Config) ModeOr(fallback string) string {
	if c.Reader.Mode == "" {
		return fallback
	}
	return c.Reader.Mode
}

// Validate checks values that would otherwise fail later at runtime.
func (c Config) Validate() error {
	var errs []error
	if c.Reader.BaseURL == "" {
		errs = append(errs, errors.New("reader.base_url must not be empty"))
	}
	switch c.Reader.Mode {
	case "", ModeSync, ModeAsync:
	default:
		errs = append(errs, fmt.Errorf("reader.mode must be %q or %q, got %q", ModeSync, ModeAsync, c.Reader.Mode))
	}
	if c.HTTP.Timeout < 0 {
		errs = append(errs, errors.New("http.timeout must not be negative"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if c.Slack.RateLimit < 0 {
		errs = append(errs, errors.New("slack.rate_limit must not be negative"))
	}
	if c.Slack.RateLimit > 0 && c.Slack.RateBurst < 1 {
		errs = append(errs, errors.New("slack.rate_burst must be at least 1 when rate_limit is set"))
	}
	return errors.Join(errs...)
}
