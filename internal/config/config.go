package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds the complete application configuration
type Config struct {
	Version string        `yaml:"version" json:"version"`
	Backend BackendConfig `yaml:"backend" json:"backend"`
	Poll    PollConfig    `yaml:"poll" json:"poll"`
	UI      UIConfig      `yaml:"ui" json:"ui"`
	Output  OutputConfig  `yaml:"output" json:"output"`
	Watch   WatchConfig   `yaml:"watch" json:"watch"`
}

// BackendConfig configures the scanning/RAG backend connection
type BackendConfig struct {
	URL           string        `yaml:"url" json:"url"`                       // backend origin
	Timeout       time.Duration `yaml:"timeout" json:"timeout"`               // per-request timeout
	UploadTimeout time.Duration `yaml:"upload_timeout" json:"upload_timeout"` // upload and rescan timeout
	MaxRetries    int           `yaml:"max_retries" json:"max_retries"`       // retries for GET requests
}

// PollConfig configures index status polling after an upload
type PollConfig struct {
	Interval    time.Duration `yaml:"interval" json:"interval"`
	MaxFailures int           `yaml:"max_failures" json:"max_failures"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
}

// UIConfig configures the dashboard
type UIConfig struct {
	Theme       string   `yaml:"theme" json:"theme"` // default|high-contrast|minimal
	NoEmoji     bool     `yaml:"no_emoji" json:"no_emoji"`
	Suggestions []string `yaml:"suggestions" json:"suggestions"` // quick prompts in the chat tab
	PageSize    int      `yaml:"page_size" json:"page_size"`
}

// OutputConfig configures command output
type OutputConfig struct {
	DefaultFormat   string `yaml:"default_format" json:"default_format"` // text|json|markdown|csv
	ColorMode       string `yaml:"color_mode" json:"color_mode"`         // auto|always|never
	Verbose         bool   `yaml:"verbose" json:"verbose"`
	LogFile         string `yaml:"log_file" json:"log_file"` // dashboard log destination
	TimestampFormat string `yaml:"timestamp_format" json:"timestamp_format"`
}

// WatchConfig configures the watch command
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce" json:"debounce"`
}

// DefaultSuggestions are the chat quick prompts used when none are configured
var DefaultSuggestions = []string{
	"Why did the server crash?",
	"What is the root cause of the errors?",
	"Which errors occur most frequently?",
	"Summarize the critical issues",
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	suggestions := make([]string, len(DefaultSuggestions))
	copy(suggestions, DefaultSuggestions)

	return &Config{
		Version: "1.0",
		Backend: BackendConfig{
			URL:           "http://localhost:8000",
			Timeout:       60 * time.Second,
			UploadTimeout: 5 * time.Minute,
			MaxRetries:    3,
		},
		Poll: PollConfig{
			Interval:    3 * time.Second,
			MaxFailures: 5,
			Timeout:     10 * time.Minute,
		},
		UI: UIConfig{
			Theme:       "default",
			NoEmoji:     false,
			Suggestions: suggestions,
			PageSize:    50,
		},
		Output: OutputConfig{
			DefaultFormat:   "text",
			ColorMode:       "auto",
			Verbose:         false,
			TimestampFormat: "15:04:05",
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.validateBackendConfig(); err != nil {
		return err
	}
	if err := c.validatePollConfig(); err != nil {
		return err
	}
	if err := c.validateUIConfig(); err != nil {
		return err
	}
	if err := c.validateOutputConfig(); err != nil {
		return err
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must be non-negative")
	}
	return nil
}

func (c *Config) validateBackendConfig() error {
	if c.Backend.URL == "" {
		return fmt.Errorf("backend.url is required")
	}
	u, err := url.Parse(c.Backend.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid backend url: %s (must be an http or https URL)", c.Backend.URL)
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend.timeout must be greater than 0")
	}
	if c.Backend.UploadTimeout <= 0 {
		return fmt.Errorf("backend.upload_timeout must be greater than 0")
	}
	if c.Backend.MaxRetries < 0 {
		return fmt.Errorf("backend.max_retries must be non-negative")
	}
	return nil
}

func (c *Config) validatePollConfig() error {
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be greater than 0")
	}
	if c.Poll.MaxFailures < 1 {
		return fmt.Errorf("poll.max_failures must be greater than 0")
	}
	if c.Poll.Timeout < c.Poll.Interval {
		return fmt.Errorf("poll.timeout must be at least poll.interval")
	}
	return nil
}

func (c *Config) validateUIConfig() error {
	if c.UI.Theme != "" {
		validThemes := map[string]bool{
			"default":       true,
			"high-contrast": true,
			"minimal":       true,
		}
		if !validThemes[c.UI.Theme] {
			return fmt.Errorf("invalid theme: %s (must be one of: default, high-contrast, minimal)", c.UI.Theme)
		}
	}
	if c.UI.PageSize < 1 {
		return fmt.Errorf("ui.page_size must be greater than 0")
	}
	if len(c.UI.Suggestions) > 9 {
		return fmt.Errorf("ui.suggestions supports at most 9 entries, got %d", len(c.UI.Suggestions))
	}
	return nil
}

func (c *Config) validateOutputConfig() error {
	if c.Output.DefaultFormat != "" {
		validFormats := map[string]bool{
			"json":     true,
			"text":     true,
			"markdown": true,
			"csv":      true,
		}
		if !validFormats[c.Output.DefaultFormat] {
			return fmt.Errorf("invalid output format: %s (must be one of: json, text, markdown, csv)", c.Output.DefaultFormat)
		}
	}
	if c.Output.ColorMode != "" {
		validColorModes := map[string]bool{
			"auto":   true,
			"always": true,
			"never":  true,
		}
		if !validColorModes[c.Output.ColorMode] {
			return fmt.Errorf("invalid color mode: %s (must be one of: auto, always, never)", c.Output.ColorMode)
		}
	}
	return nil
}
