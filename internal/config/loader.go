package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "LOGDASH_"

// ConfigPaths defines the config file search paths in priority order
var ConfigPaths = []string{
	"./.logdash.yaml",               // Project-specific config (highest priority)
	"~/.config/logdash/config.yaml", // User config
	"/etc/logdash/config.yaml",      // System config (lowest priority)
}

// Loader handles configuration loading with priority merging
type Loader struct {
	configPaths []string
	envFile     string
	warn        func(format string, args ...interface{})
}

// NewLoader creates a new config loader
func NewLoader() *Loader {
	return &Loader{
		configPaths: ConfigPaths,
		envFile:     ".env",
		warn: func(format string, args ...interface{}) {
			fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
		},
	}
}

// WithEnvFile sets the dotenv file read before environment overrides.
// An empty path disables dotenv loading.
func (l *Loader) WithEnvFile(path string) *Loader {
	l.envFile = path
	return l
}

// LoadConfig loads configuration from multiple sources with priority order:
// 1. Command line flags (handled by caller)
// 2. Environment variables, including ones from .env
// 3. ./.logdash.yaml
// 4. ~/.config/logdash/config.yaml
// 5. /etc/logdash/config.yaml
// 6. Built-in defaults
func (l *Loader) LoadConfig(customPath string) (*Config, error) {
	config := DefaultConfig()

	if customPath != "" {
		if err := validateConfigPath(customPath); err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		if err := l.loadFromFile(config, expandPath(customPath)); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", customPath, err)
		}
	} else {
		// lowest priority first so later files win
		for i := len(l.configPaths) - 1; i >= 0; i-- {
			path := expandPath(l.configPaths[i])
			if !fileExists(path) {
				continue
			}
			if err := l.loadFromFile(config, path); err != nil {
				l.warn("failed to load config from %s: %v", path, err)
			}
		}
	}

	if err := l.loadEnvFile(); err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// loadFromFile decodes YAML over the current values, so keys absent from
// the file keep whatever an earlier source set.
func (l *Loader) loadFromFile(config *Config, path string) error {
	// #nosec G304 - path is validated by validateConfigPath() or comes from ConfigPaths
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	merged := *config
	if err := yaml.Unmarshal(data, &merged); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	*config = merged
	return nil
}

// loadEnvFile exports variables from the dotenv file. Variables already set
// in the process environment are not overridden.
func (l *Loader) loadEnvFile() error {
	if l.envFile == "" {
		return nil
	}
	err := godotenv.Load(l.envFile)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", l.envFile, err)
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(config *Config) error {
	envMappings := map[string]func(string) error{
		// Backend
		"LOGDASH_BACKEND_URL":            func(v string) error { config.Backend.URL = v; return nil },
		"LOGDASH_BACKEND_TIMEOUT":        func(v string) error { return parseDuration(v, &config.Backend.Timeout) },
		"LOGDASH_BACKEND_UPLOAD_TIMEOUT": func(v string) error { return parseDuration(v, &config.Backend.UploadTimeout) },
		"LOGDASH_BACKEND_MAX_RETRIES":    func(v string) error { return parseInt(v, &config.Backend.MaxRetries) },

		// Poll
		"LOGDASH_POLL_INTERVAL":     func(v string) error { return parseDuration(v, &config.Poll.Interval) },
		"LOGDASH_POLL_MAX_FAILURES": func(v string) error { return parseInt(v, &config.Poll.MaxFailures) },
		"LOGDASH_POLL_TIMEOUT":      func(v string) error { return parseDuration(v, &config.Poll.Timeout) },

		// UI
		"LOGDASH_UI_THEME":     func(v string) error { config.UI.Theme = v; return nil },
		"LOGDASH_UI_NO_EMOJI":  func(v string) error { return parseBool(v, &config.UI.NoEmoji) },
		"LOGDASH_UI_PAGE_SIZE": func(v string) error { return parseInt(v, &config.UI.PageSize) },

		// Output
		"LOGDASH_OUTPUT_DEFAULT_FORMAT":   func(v string) error { config.Output.DefaultFormat = v; return nil },
		"LOGDASH_OUTPUT_COLOR_MODE":       func(v string) error { config.Output.ColorMode = v; return nil },
		"LOGDASH_OUTPUT_VERBOSE":          func(v string) error { return parseBool(v, &config.Output.Verbose) },
		"LOGDASH_OUTPUT_LOG_FILE":         func(v string) error { config.Output.LogFile = v; return nil },
		"LOGDASH_OUTPUT_TIMESTAMP_FORMAT": func(v string) error { config.Output.TimestampFormat = v; return nil },

		// Watch
		"LOGDASH_WATCH_DEBOUNCE": func(v string) error { return parseDuration(v, &config.Watch.Debounce) },
	}

	for envVar, setter := range envMappings {
		if value := os.Getenv(envVar); value != "" {
			if err := setter(value); err != nil {
				return fmt.Errorf("invalid value for %s: %w", envVar, err)
			}
		}
	}

	// suggestions are '|' separated since questions may contain commas
	if raw := os.Getenv("LOGDASH_UI_SUGGESTIONS"); raw != "" {
		var suggestions []string
		for _, s := range strings.Split(raw, "|") {
			if s = strings.TrimSpace(s); s != "" {
				suggestions = append(suggestions, s)
			}
		}
		config.UI.Suggestions = suggestions
	}

	return nil
}

// GetConfigPaths returns the list of configuration file paths that will be searched
func GetConfigPaths() []string {
	paths := make([]string, 0, len(ConfigPaths))
	for _, path := range ConfigPaths {
		paths = append(paths, expandPath(path))
	}
	return paths
}

// FindConfigFile finds the first existing config file in the search paths
func FindConfigFile() (string, bool) {
	for _, path := range ConfigPaths {
		expandedPath := expandPath(path)
		if fileExists(expandedPath) {
			return expandedPath, true
		}
	}
	return "", false
}

// validateConfigPath validates that a config path is safe to read
func validateConfigPath(path string) error {
	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path traversal not allowed")
	}

	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("config file must have .yaml or .yml extension")
	}

	absPath, err := filepath.Abs(expandPath(cleanPath))
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	if strings.HasPrefix(absPath, "/proc/") || strings.HasPrefix(absPath, "/sys/") {
		return fmt.Errorf("access to system files not allowed")
	}

	return nil
}

// ExpandPath expands a leading ~ to the home directory
func ExpandPath(path string) string {
	return expandPath(path)
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func parseInt(s string, dst *int) error {
	val, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseBool(s string, dst *bool) error {
	val, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseDuration(s string, dst *time.Duration) error {
	val, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}
