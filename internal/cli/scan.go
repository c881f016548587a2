package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/yildizm/logdash/internal/api"
	"github.com/yildizm/logdash/internal/emoji"
	"github.com/yildizm/logdash/internal/formatter"
	"github.com/yildizm/logdash/internal/session"
)

var (
	scanWait       bool
	scanOutputFile string
)

func newScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <file>",
		Short: "Upload a log file and print the scan",
		Long: `Upload a log file to the backend and print the scan summary: error count,
error rate, categories, matched patterns and the first errors.

With --wait the command also waits until the backend has indexed the file for
chat, so a following "logdash ask" can be answered.

Examples:
  logdash scan app.log
  logdash scan -o json app.log
  logdash scan --wait --output-file report.md -o markdown app.log`,
		Args: cobra.ExactArgs(1),
		RunE: runScan,
	}

	cmd.Flags().BoolVar(&scanWait, "wait", false, "wait until the chat index is ready")
	cmd.Flags().StringVar(&scanOutputFile, "output-file", "", "save output to file instead of stdout")

	return cmd
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg := GetGlobalConfig()
	path := args[0]
	if err := validateFilePath(path); err != nil {
		return fmt.Errorf("invalid file: %w", err)
	}

	f, err := formatter.New(cfg.Output.DefaultFormat, colorEnabled() && scanOutputFile == "")
	if err != nil {
		return err
	}

	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	scan, err := uploadPath(ctx, store, path)
	if err != nil {
		return err
	}

	errOut := cmd.ErrOrStderr()
	if scanWait {
		fmt.Fprintf(errOut, "%s Waiting for the chat index...\n", emoji.GetEmoji("building"))
		status, err := store.WaitForRag(ctx)
		if err != nil && !errors.Is(err, session.ErrNotPolling) {
			return fmt.Errorf("waiting for index: %w", err)
		}
		if status == api.RagError {
			printWarn(errOut, "%s Index failed: %s", emoji.GetEmoji("warning"), store.Snapshot().RagError)
		}
	}

	snap := store.Snapshot()
	output, err := f.Format(&formatter.Report{Scan: scan, RagStatus: snap.RagStatus, RagError: snap.RagError})
	if err != nil {
		return fmt.Errorf("failed to format scan: %w", err)
	}
	if err := writeOutput(cmd.OutOrStdout(), output, scanOutputFile); err != nil {
		return err
	}
	if scanOutputFile != "" {
		printSuccess(errOut, "%s Output saved to: %s", emoji.GetEmoji("success"), scanOutputFile)
	}
	return nil
}

// uploadPath sends the file at path through the store
func uploadPath(ctx context.Context, store *session.Store, path string) (*api.ScanResult, error) {
	// #nosec G304 - path validated by caller
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	scan, err := store.Upload(ctx, filepath.Base(path), file)
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	return scan, nil
}
