// Package config loads service settings from the environment, an optional
// .env file and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"tomatoService/internal/clock"
)

const (
	defaultWebPort         = "8080"
	defaultRedisKey        = "timerState"
	defaultHistoryTable    = "segment_history"
	defaultAllowedOrigins  = "*"
	defaultShutdownTimeout = 5 * time.Second
)

// Config holds everything cmd/main needs to wire the service
type Config struct {
	WebPort       string
	RedisAddr     string
	RedisKey      string
	DSN           string
	HistoryTable  string
	JWTSecret     string
	APIPassphrase string
	// APIPassphraseHash is a bcrypt hash used instead of APIPassphrase
	APIPassphraseHash string
	AllowedOrigins    []string
	ShutdownTimeout   time.Duration
	Preset            clock.TimerDurations
}

type yamlConfig struct {
	Preset struct {
		Work  *float64 `yaml:"work"`
		Break *float64 `yaml:"break"`
	} `yaml:"preset"`
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		WebPort:         defaultWebPort,
		RedisKey:        defaultRedisKey,
		HistoryTable:    defaultHistoryTable,
		AllowedOrigins:  []string{defaultAllowedOrigins},
		ShutdownTimeout: defaultShutdownTimeout,
		Preset:          clock.DefaultPreset,
	}
}

// Load reads settings. Process environment wins over envFile, which wins over
// the YAML file named by CONFIG_FILE. A missing envFile is ignored.
func Load(envFile string) (Config, error) {
	fileEnv := map[string]string{}
	if envFile != "" {
		values, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read env file: %w", err)
		}
		if values != nil {
			fileEnv = values
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileEnv[key]
		return v, ok
	}
	return load(lookup)
}

func load(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if path, ok := lookup("CONFIG_FILE"); ok && path != "" {
		if err := applyYAML(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if v, ok := lookup("WEB_PORT"); ok && v != "" {
		cfg.WebPort = v
	}
	if v, ok := lookup("REDIS_ADDR"); ok {
		cfg.RedisAddr = v
	}
	if v, ok := lookup("REDIS_KEY"); ok && v != "" {
		cfg.RedisKey = v
	}
	if v, ok := lookup("DSN"); ok {
		cfg.DSN = v
	}
	if v, ok := lookup("HISTORY_TABLE"); ok && v != "" {
		cfg.HistoryTable = v
	}
	if v, ok := lookup("JWT_SECRET"); ok {
		cfg.JWTSecret = v
	}
	if v, ok := lookup("API_PASSPHRASE"); ok {
		cfg.APIPassphrase = v
	}
	if v, ok := lookup("API_PASSPHRASE_HASH"); ok {
		cfg.APIPassphraseHash = v
	}
	if v, ok := lookup("ALLOWED_ORIGINS"); ok && strings.TrimSpace(v) != "" {
		cfg.AllowedOrigins = splitList(v)
	}
	if v, ok := lookup("SHUTDOWN_TIMEOUT"); ok && v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SHUTDOWN_TIMEOUT %q: %w", v, err)
		}
		cfg.ShutdownTimeout = d
	}

	return cfg, nil
}

func applyYAML(cfg *Config, path string) error {
	rawData, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}

	var fileData yamlConfig
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}

	if fileData.Preset.Work != nil {
		cfg.Preset.Work = clock.ClampMinutes(*fileData.Preset.Work)
	}
	if fileData.Preset.Break != nil {
		cfg.Preset.Break = clock.ClampMinutes(*fileData.Preset.Break)
	}
	return nil
}

// parseDuration accepts Go durations ("5s") or a bare number of seconds
func parseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("must not be negative")
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return d, nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// AuthEnabled reports whether a secret and a passphrase or its hash are set
func (c Config) AuthEnabled() bool {
	return c.JWTSecret != "" && (c.APIPassphrase != "" || c.APIPassphraseHash != "")
}
