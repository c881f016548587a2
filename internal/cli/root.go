package cli

import (
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/yildizm/logdash/internal/config"
	"github.com/yildizm/logdash/internal/emoji"
	"github.com/yildizm/logdash/internal/ui"
)

var (
	cfgFile    string
	verbose    bool
	noColor    bool
	noEmoji    bool
	outputFmt  string
	backendURL string
	logFile    string

	globalConfig = config.DefaultConfig()
)

// NewRootCommand creates the root command
func NewRootCommand(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "logdash [file]",
		Short: "Terminal dashboard for log scanning and chat",
		Long: `logdash uploads log files to a scanning backend, shows the classified
errors, categories and matched patterns, and lets you ask questions about the
log once the backend has indexed it.

Without a subcommand it opens the interactive dashboard. A file argument is
uploaded right away.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Auto-disable emojis on Windows if not explicitly set
			if runtime.GOOS == "windows" && !cmd.Flag("no-emoji").Changed {
				noEmoji = true
			}
			return setupConfig(cmd)
		},
		RunE: runDashboard,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&noEmoji, "no-emoji", false, "disable emoji output (useful for Windows terminals)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "", "output format (text, json, markdown, csv)")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend-url", "", "backend base URL (default from config)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs here while the dashboard runs")

	// Add subcommands
	rootCmd.AddCommand(newDashboardCommand())
	rootCmd.AddCommand(newScanCommand())
	rootCmd.AddCommand(newAskCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newPatternsCommand())
	rootCmd.AddCommand(newRescanCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newVersionCommand(version, commit, date))

	return rootCmd
}

// setupConfig loads the config and lays explicitly set flags over it
func setupConfig(cmd *cobra.Command) error {
	cfg, err := config.NewLoader().LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("backend-url") {
		cfg.Backend.URL = backendURL
	}
	if flags.Changed("verbose") {
		cfg.Output.Verbose = verbose
	}
	if flags.Changed("output") {
		cfg.Output.DefaultFormat = outputFmt
	}
	if flags.Changed("log-file") {
		cfg.Output.LogFile = logFile
	}
	if flags.Changed("no-emoji") || noEmoji {
		cfg.UI.NoEmoji = noEmoji
	}
	if noColor {
		cfg.Output.ColorMode = "never"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	globalConfig = cfg
	verbose = cfg.Output.Verbose

	emoji.SetEmojiDisabled(cfg.UI.NoEmoji)
	switch cfg.Output.ColorMode {
	case "never":
		color.NoColor = true
	case "always":
		color.NoColor = false
	}
	ui.SetColorDisabled(color.NoColor)
	ui.SetThemeByName(cfg.UI.Theme)
	return nil
}

func newVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display version number, build commit, date, and runtime information",
		Run: func(cmd *cobra.Command, args []string) {
			displayVersion := version
			displayCommit := commit
			displayDate := date

			if version == "dev" || version == "" {
				displayVersion = "development"
			}
			if commit == "none" || commit == "" {
				displayCommit = "local-build"
			}
			if date == "unknown" || date == "" {
				displayDate = "local-build"
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "logdash %s (%s) built on %s\n", displayVersion, displayCommit, displayDate)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// Global helpers
func isVerbose() bool {
	return verbose
}

// GetGlobalConfig returns the configuration loaded for the running command
func GetGlobalConfig() *config.Config {
	return globalConfig
}

func colorEnabled() bool {
	return !color.NoColor
}
