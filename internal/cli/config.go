package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/yildizm/logdash/internal/config"
	"github.com/yildizm/logdash/internal/emoji"
	"gopkg.in/yaml.v3"
)

// newConfigCommand creates the config command with subcommands
func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage logdash configuration",
		Long: `Manage logdash configuration files and settings.

The config command provides subcommands for initializing, viewing,
validating, and locating configuration files.`,
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand())
	configCmd.AddCommand(newConfigValidateCommand())
	configCmd.AddCommand(newConfigPathCommand())

	return configCmd
}

// newConfigInitCommand creates the config init subcommand
func newConfigInitCommand() *cobra.Command {
	var (
		outputPath string
		minimal    bool
		force      bool
	)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new configuration file",
		Long: `Initialize a new logdash configuration file with default values.

By default, creates a full configuration file with all options and comments.
Use --minimal for a compact configuration with only essential settings.`,
		Example: `  # Create full config in current directory
  logdash config init

  # Create minimal config
  logdash config init --minimal

  # Create config at specific path
  logdash config init --path ~/.config/logdash/config.yaml

  # Overwrite existing config
  logdash config init --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputPath == "" {
				outputPath = ".logdash.yaml"
			}

			if !force && fileExists(outputPath) {
				return fmt.Errorf("config file already exists at %s (use --force to overwrite)", outputPath)
			}

			dir := filepath.Dir(outputPath)
			if dir != "." && dir != "/" {
				if err := os.MkdirAll(dir, 0o750); err != nil {
					return fmt.Errorf("failed to create directory %s: %w", dir, err)
				}
			}

			content := config.SampleConfig()
			if minimal {
				content = config.MinimalSampleConfig()
			}

			if err := os.WriteFile(outputPath, []byte(content), 0o600); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}

			out := cmd.OutOrStdout()
			printSuccess(out, "%s Configuration file created at: %s", emoji.GetEmoji("success"), outputPath)
			if minimal {
				fmt.Fprintf(out, "%s Created minimal configuration with essential settings\n", emoji.GetEmoji("file"))
			} else {
				fmt.Fprintf(out, "%s Created full configuration with all options and documentation\n", emoji.GetEmoji("file"))
			}

			return nil
		},
	}

	initCmd.Flags().StringVarP(&outputPath, "path", "p", "", "output path for config file (default: .logdash.yaml)")
	initCmd.Flags().BoolVarP(&minimal, "minimal", "m", false, "create minimal configuration")
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing config file")

	return initCmd
}

// newConfigShowCommand creates the config show subcommand
func newConfigShowCommand() *cobra.Command {
	var format string

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the effective configuration after loading from all sources.

Shows the merged configuration from defaults, the config file,
environment variable overrides and command-line flags.`,
		Example: `  # Show config in YAML format
  logdash config show

  # Show config in JSON format
  logdash config show --format json

  # Show config from specific file
  logdash config show --config /path/to/config.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := GetGlobalConfig()
			out := cmd.OutOrStdout()

			switch format {
			case "json":
				data, err := json.MarshalIndent(cfg, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal config to JSON: %w", err)
				}
				fmt.Fprintln(out, string(data))
			case "yaml":
				data, err := yaml.Marshal(cfg)
				if err != nil {
					return fmt.Errorf("failed to marshal config to YAML: %w", err)
				}
				fmt.Fprint(out, string(data))
			default:
				return fmt.Errorf("unsupported format: %s (use json or yaml)", format)
			}

			return nil
		},
	}

	showCmd.Flags().StringVarP(&format, "format", "f", "yaml", "output format (yaml, json)")

	return showCmd
}

// newConfigValidateCommand creates the config validate subcommand
func newConfigValidateCommand() *cobra.Command {
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		Long: `Validate a logdash configuration file for syntax and semantic errors.

Checks the configuration file for:
- Valid YAML syntax
- A usable backend URL
- Valid values for enums
- Proper data types`,
		Example: `  # Validate current config
  logdash config validate

  # Validate specific config file
  logdash config validate --config /path/to/config.yaml`,
		// loading happens here so a broken file is reported instead of
		// failing the root pre-run
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			cfg, err := config.NewLoader().LoadConfig(cfgFile)
			if err == nil {
				err = cfg.Validate()
			}
			if err != nil {
				printFail(out, "%s Configuration validation failed:", emoji.GetEmoji("error"))
				fmt.Fprintf(out, "   %v\n", err)
				return err
			}

			printSuccess(out, "%s Configuration is valid", emoji.GetEmoji("success"))

			fmt.Fprintf(out, "%s Configuration summary:\n", emoji.GetEmoji("statistics"))
			fmt.Fprintf(out, "   Version: %s\n", cfg.Version)
			fmt.Fprintf(out, "   Backend URL: %s\n", cfg.Backend.URL)
			fmt.Fprintf(out, "   Theme: %s\n", cfg.UI.Theme)
			fmt.Fprintf(out, "   Output Format: %s\n", cfg.Output.DefaultFormat)
			fmt.Fprintf(out, "   Chat Suggestions: %d configured\n", len(cfg.UI.Suggestions))

			return nil
		},
	}

	return validateCmd
}

// newConfigPathCommand creates the config path subcommand
func newConfigPathCommand() *cobra.Command {
	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Show configuration file search paths",
		Long: `Display the list of paths logdash searches for configuration files.

Shows the search order and indicates which files exist.`,
		Example: `  # Show config search paths
  logdash config path`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s Configuration file search paths (in priority order):\n\n", emoji.GetEmoji("folder"))

			priority := []string{"Highest", "Medium", "Lowest"}
			for i, path := range config.GetConfigPaths() {
				exists := " " + emoji.GetEmoji("error") + " (not found)"
				if fileExists(path) {
					exists = " " + emoji.GetEmoji("success") + " (exists)"
				}

				fmt.Fprintf(out, "  %d. %s%s\n", i+1, path, exists)
				if i < len(priority) {
					fmt.Fprintf(out, "     Priority: %s\n", priority[i])
				}
				fmt.Fprintln(out)
			}

			if currentConfig, found := config.FindConfigFile(); found {
				fmt.Fprintf(out, "%s Current config file: %s\n", emoji.GetEmoji("target"), currentConfig)
			} else {
				fmt.Fprintf(out, "%s No config file found, using defaults\n", emoji.GetEmoji("file"))
			}

			fmt.Fprintln(out)
			fmt.Fprintf(out, "%s Environment variables with %s prefix override file settings\n", emoji.GetEmoji("tip"), config.EnvPrefix)
		},
	}

	return pathCmd
}

// Helper function to check if file exists
func fileExists(filename string) bool {
	_, err := os.Stat(filename)
	return err == nil
}
