package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/yildizm/go-logparser"
	"github.com/yildizm/logdash/internal/api"
	"github.com/yildizm/logdash/internal/emoji"
	"github.com/yildizm/logdash/internal/session"
)

func newWatchCommand() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Re-scan a log file whenever it changes",
		Long: `Upload a log file, then upload it again each time it is written to. New
warning and error lines are echoed as they arrive and a summary line is
printed after every scan. Press Ctrl+C to stop watching.

Examples:
  logdash watch app.log
  logdash watch --quiet app.log`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args[0], quiet)
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "only print scan summaries")

	return cmd
}

type watchState struct {
	out    io.Writer
	store  *session.Store
	path   string
	quiet  bool
	parser logparser.Parser
	stamp  string
}

func runWatch(cmd *cobra.Command, filename string, quiet bool) error {
	cfg := GetGlobalConfig()

	watcher, file, cleanup, err := setupFileWatcher(filename)
	if err != nil {
		return err
	}
	defer cleanup()

	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	w := &watchState{
		out:    cmd.OutOrStdout(),
		store:  store,
		path:   filename,
		quiet:  quiet,
		parser: logparser.New(),
		stamp:  cfg.Output.TimestampFormat,
	}

	fmt.Fprintf(w.out, "%s Watching %s (Ctrl+C to stop)\n", emoji.GetEmoji("watch"), filename)
	w.rescan(ctx)

	return runWatchLoop(ctx, watcher, file, w, cfg.Watch.Debounce)
}

// rescan uploads the whole file and prints one summary line
func (w *watchState) rescan(ctx context.Context) {
	scan, err := uploadPath(ctx, w.store, w.path)
	stamp := time.Now().Format(w.stamp)
	if err != nil {
		printFail(w.out, "[%s] %s %s", stamp, emoji.GetEmoji("error"), api.Message(err))
		return
	}
	fmt.Fprintf(w.out, "[%s] %s %s: %d lines, %d errors (%s%%)\n",
		stamp, emoji.GetEmoji("statistics"), scan.Filename, scan.TotalLines, scan.ErrorCount,
		session.FormatRate(session.ErrorRate(scan)))
}

// echoNewLines prints warning and error lines appended since the last read
func (w *watchState) echoNewLines(file *os.File) error {
	scanner := bufio.NewScanner(file)

	var newLines []string
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			newLines = append(newLines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}
	if len(newLines) == 0 || w.quiet {
		return nil
	}

	entries, err := w.parser.ParseString(strings.Join(newLines, "\n"))
	if err != nil {
		if isVerbose() {
			fmt.Fprintf(os.Stderr, "Failed to parse lines: %v\n", err)
		}
		return nil
	}

	for _, entry := range entries {
		switch strings.ToUpper(entry.Level) {
		case "ERROR", "FATAL", "CRITICAL", "PANIC":
			printFail(w.out, "  %s %s", emoji.GetEmoji("error"), entry.Message)
		case "WARN", "WARNING":
			printWarn(w.out, "  %s %s", emoji.GetEmoji("warning"), entry.Message)
		}
	}
	return nil
}

// cleanupWatcher safely closes watcher with error logging
func cleanupWatcher(watcher *fsnotify.Watcher) {
	if err := watcher.Close(); err != nil && isVerbose() {
		fmt.Fprintf(os.Stderr, "Warning: failed to close watcher: %v\n", err)
	}
}

// cleanupFile safely closes file with error logging
func cleanupFile(file *os.File) {
	if err := file.Close(); err != nil && isVerbose() {
		fmt.Fprintf(os.Stderr, "Warning: failed to close file: %v\n", err)
	}
}

// createWatcher creates and configures a new file system watcher
func createWatcher(filename string) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := watcher.Add(filename); err != nil {
		cleanupWatcher(watcher)
		return nil, fmt.Errorf("failed to watch file: %w", err)
	}

	return watcher, nil
}

// openWatchFile opens the file positioned at its end
func openWatchFile(filename string) (*os.File, error) {
	// #nosec G304 - path is validated by caller
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		cleanupFile(file)
		return nil, fmt.Errorf("failed to seek to end of file: %w", err)
	}

	return file, nil
}

// setupFileWatcher creates and configures file watcher
func setupFileWatcher(filename string) (*fsnotify.Watcher, *os.File, func(), error) {
	if err := validateWatchFilePath(filename); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid file path: %w", err)
	}

	watcher, err := createWatcher(filename)
	if err != nil {
		return nil, nil, nil, err
	}

	file, err := openWatchFile(filename)
	if err != nil {
		cleanupWatcher(watcher)
		return nil, nil, nil, err
	}

	cleanup := func() {
		cleanupWatcher(watcher)
		cleanupFile(file)
	}

	return watcher, file, cleanup, nil
}

// runWatchLoop echoes new lines on every write and re-scans once writes
// have been quiet for the debounce period
func runWatchLoop(ctx context.Context, watcher *fsnotify.Watcher, file *os.File, w *watchState, debounce time.Duration) error {
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			if isVerbose() {
				fmt.Fprintf(os.Stderr, "\nStopping watch...\n")
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !event.Has(fsnotify.Write) {
				continue
			}
			if err := w.echoNewLines(file); err != nil && isVerbose() {
				fmt.Fprintf(os.Stderr, "Error handling event: %v\n", err)
			}
			timer.Reset(debounce)

		case <-timer.C:
			w.rescan(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			if isVerbose() {
				fmt.Fprintf(os.Stderr, "Watcher error: %v\n", err)
			}
		}
	}
}

// validateWatchFilePath validates that a file path is safe to watch
func validateWatchFilePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("empty file path")
	}

	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path traversal not allowed")
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("cannot watch directory, must be a file")
	}

	return nil
}
