package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yildizm/logdash/internal/ui"
)

func newDashboardCommand() *cobra.Command {
	var exportDir string

	cmd := &cobra.Command{
		Use:   "dashboard [file]",
		Short: "Open the interactive dashboard",
		Long: `Open the full-screen dashboard with Upload, Stats, Errors and Chat views.

Examples:
  logdash dashboard
  logdash dashboard app.log
  logdash dashboard --log-file /tmp/logdash.log`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return startDashboard(cmd, args, exportDir)
		},
	}

	cmd.Flags().StringVar(&exportDir, "export-dir", ".", "directory for CSV exports of the error table")

	return cmd
}

func runDashboard(cmd *cobra.Command, args []string) error {
	return startDashboard(cmd, args, ".")
}

func startDashboard(cmd *cobra.Command, args []string, exportDir string) error {
	cfg := GetGlobalConfig()

	var initial string
	if len(args) == 1 {
		if err := validateFilePath(args[0]); err != nil {
			return fmt.Errorf("invalid file: %w", err)
		}
		initial = args[0]
	}

	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	return ui.Run(cmd.Context(), store, ui.Options{
		Suggestions: cfg.UI.Suggestions,
		InitialFile: initial,
		ExportDir:   exportDir,
		LogFile:     cfg.Output.LogFile,
		PageSize:    cfg.UI.PageSize,
	})
}
