package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/yildizm/logdash/internal/api"
	"github.com/yildizm/logdash/internal/config"
	"github.com/yildizm/logdash/internal/logger"
	"github.com/yildizm/logdash/internal/monitor"
	"github.com/yildizm/logdash/internal/session"
)

// requestTracker times every backend call made by the running command
var requestTracker = monitor.NewTracker()

func newLogger(component string) *logger.Logger {
	return logger.NewWithCallback(component, isVerbose)
}

func newClient(cfg *config.Config) (*api.Client, error) {
	client, err := api.New(cfg.Backend.URL,
		api.WithTimeout(cfg.Backend.Timeout),
		api.WithUploadTimeout(cfg.Backend.UploadTimeout),
		api.WithRetries(cfg.Backend.MaxRetries),
		api.WithLogger(newLogger("api")),
		api.WithTracker(requestTracker),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid backend: %w", err)
	}
	return client, nil
}

func newStore(cfg *config.Config) (*session.Store, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return session.New(client,
		session.WithPollInterval(cfg.Poll.Interval),
		session.WithMaxPollFailures(cfg.Poll.MaxFailures),
		session.WithPollTimeout(cfg.Poll.Timeout),
		session.WithLogger(newLogger("session")),
	), nil
}

// Status line printers
var (
	successColor = color.New(color.FgGreen, color.Bold)
	warnColor    = color.New(color.FgYellow)
	failColor    = color.New(color.FgRed, color.Bold)
	labelColor   = color.New(color.FgCyan)
)

func printSuccess(w io.Writer, format string, args ...interface{}) {
	_, _ = successColor.Fprintf(w, format+"\n", args...)
}

func printWarn(w io.Writer, format string, args ...interface{}) {
	_, _ = warnColor.Fprintf(w, format+"\n", args...)
}

func printFail(w io.Writer, format string, args ...interface{}) {
	_, _ = failColor.Fprintf(w, format+"\n", args...)
}

func printLabel(w io.Writer, label, value string) {
	_, _ = labelColor.Fprintf(w, "%-14s", label)
	fmt.Fprintln(w, value)
}

func ragColor(status api.RagStatus) *color.Color {
	switch status {
	case api.RagReady:
		return successColor
	case api.RagError:
		return failColor
	case api.RagBuilding:
		return warnColor
	default:
		return color.New(color.Reset)
	}
}

func validateFilePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty file path")
	}

	cleanPath := filepath.Clean(path)

	info, err := os.Stat(cleanPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %s", cleanPath)
		}
		return fmt.Errorf("cannot access file: %w", err)
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", cleanPath)
	}

	return nil
}

// writeOutput writes output to the named file, or to w when path is empty
func writeOutput(w io.Writer, output []byte, path string) error {
	if path == "" {
		_, err := w.Write(output)
		return err
	}

	cleanPath := filepath.Clean(path)
	file, err := os.Create(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && isVerbose() {
			fmt.Fprintf(os.Stderr, "Warning: failed to close output file: %v\n", closeErr)
		}
	}()

	if _, err := file.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("failed to sync output file: %w", err)
	}
	return nil
}
