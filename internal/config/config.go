// Package config loads client settings from defaults, an optional YAML
// file, an optional .env file and TJ_* environment variables, in that order
// of increasing precedence. Command-line flags are applied by the binaries
// on top of the loaded Config.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dreamware/tjsocial/internal/feed"
)

// API configures the HTTP client.
type API struct {
	URL       string        `yaml:"url"`
	Timeout   time.Duration `yaml:"timeout"`
	Retries   int           `yaml:"retries"`
	RetryBase time.Duration `yaml:"retry_base"`
}

// Log configures the structured logger.
type Log struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Feed configures feed rendering.
type Feed struct {
	Sort string `yaml:"sort"`
}

// Username configures the availability check.
type Username struct {
	Debounce  time.Duration `yaml:"debounce"`
	MinLength int           `yaml:"min_length"`
}

// OTP configures one-time-code resends.
type OTP struct {
	CooldownSeconds int `yaml:"cooldown_seconds"`
}

// Config is the complete client configuration.
type Config struct {
	API      API      `yaml:"api"`
	Log      Log      `yaml:"log"`
	Feed     Feed     `yaml:"feed"`
	Username Username `yaml:"username"`
	OTP      OTP      `yaml:"otp"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		API: API{
			URL:       "http://127.0.0.1:8080",
			Timeout:   5 * time.Second,
			Retries:   5,
			RetryBase: time.Second,
		},
		Log:      Log{Level: "info", Format: "text"},
		Feed:     Feed{Sort: string(feed.SortRecent)},
		Username: Username{Debounce: 1500 * time.Millisecond, MinLength: 3},
		OTP:      OTP{CooldownSeconds: 60},
	}
}

// Load builds a Config. path names an optional YAML file and envFile an
// optional dotenv file; either may be empty, and a missing envFile is not
// an error. The result is validated.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	}

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, fmt.Errorf("config: %w", err)
		}
		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		err = dec.Decode(&cfg)
		f.Close()
		if err != nil && !errors.Is(err, io.EOF) {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides fields from TJ_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := parseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	str("TJ_API_URL", &c.API.URL)
	dur("TJ_API_TIMEOUT", &c.API.Timeout)
	num("TJ_API_RETRIES", &c.API.Retries)
	str("TJ_LOG_LEVEL", &c.Log.Level)
	str("TJ_LOG_FORMAT", &c.Log.Format)
	str("TJ_FEED_SORT", &c.Feed.Sort)
	dur("TJ_USERNAME_DEBOUNCE", &c.Username.Debounce)
	num("TJ_OTP_COOLDOWN", &c.OTP.CooldownSeconds)
	return errors.Join(errs...)
}

// parseDuration accepts Go durations ("1.5s") or bare milliseconds ("1500").
func parseDuration(v string) (time.Duration, error) {
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(v)
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.API.URL) == "" {
		errs = append(errs, errors.New("config: api.url is required"))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("config: api.timeout must be positive"))
	}
	if c.API.Retries < 0 {
		errs = append(errs, errors.New("config: api.retries must not be negative"))
	}
	if c.API.RetryBase <= 0 {
		errs = append(errs, errors.New("config: api.retry_base must be positive"))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("config: unknown log level %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("config: unknown log format %q", c.Log.Format))
	}
	if _, err := feed.ParseSortKey(c.Feed.Sort); err != nil {
		errs = append(errs, fmt.Errorf("config: feed.sort: %w", err))
	}
	if c.Username.Debounce <= 0 {
		errs = append(errs, errors.New("config: username.debounce must be positive"))
	}
	if c.Username.MinLength <= 0 {
		errs = append(errs, errors.New("config: username.min_length must be positive"))
	}
	if c.OTP.CooldownSeconds <= 0 {
		errs = append(errs, errors.New("config: otp.cooldown_seconds must be positive"))
	}
	return errors.Join(errs...)
}

// SortKey returns the parsed feed sort key.
func (c Config) SortKey() feed.SortKey {
	k, err := feed.ParseSortKey(c.Feed.Sort)
	if err != nil {
		return feed.SortRecent
	}
	return k
}
