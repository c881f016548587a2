package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yildizm/logdash/internal/api"
	"github.com/yildizm/logdash/internal/formatter"
	"github.com/yildizm/logdash/internal/session"
)

func newRescanCommand() *cobra.Command {
	var (
		patterns []string
		all      bool
	)

	cmd := &cobra.Command{
		Use:   "rescan",
		Short: "Re-scan the current file with selected patterns",
		Long: `Re-run the scan of the file the backend is serving, matching only the
given patterns. The chat index is left as it is.

A pattern is given either as the expression listed by "logdash patterns" or
as its description (case-insensitive).

Examples:
  logdash rescan --pattern '\bTIMEOUT\b' --pattern "Access Denied"
  logdash rescan --all -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRescan(cmd, patterns, all)
		},
	}

	cmd.Flags().StringArrayVarP(&patterns, "pattern", "p", nil, "pattern to match (repeatable)")
	cmd.Flags().BoolVar(&all, "all", false, "match every pattern the backend knows")

	return cmd
}

func runRescan(cmd *cobra.Command, patterns []string, all bool) error {
	cfg := GetGlobalConfig()
	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if !all && len(patterns) == 0 {
		return session.ErrNoPatterns
	}

	known, err := client.Patterns(ctx)
	if err != nil {
		return fmt.Errorf("failed to load patterns: %w", err)
	}
	if all {
		patterns = known.Patterns
	} else if patterns, err = resolvePatterns(known, patterns); err != nil {
		return err
	}
	if len(patterns) == 0 {
		return session.ErrNoPatterns
	}

	status, err := client.Status(ctx)
	if err != nil {
		return fmt.Errorf("backend unreachable at %s: %w", client.BaseURL(), err)
	}
	if status.Filename == nil || *status.Filename == "" {
		return session.ErrNoSession
	}

	f, err := formatter.New(cfg.Output.DefaultFormat, colorEnabled())
	if err != nil {
		return err
	}

	scan, err := client.Rescan(ctx, patterns)
	if err != nil {
		return fmt.Errorf("rescan failed: %w", err)
	}
	if scan.Filename == "" {
		scan.Filename = *status.Filename
	}

	output, err := f.Format(&formatter.Report{Scan: scan})
	if err != nil {
		return fmt.Errorf("failed to format scan: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(output)
	return err
}

// resolvePatterns maps each name to a backend pattern key. A name matches a
// key exactly or a key's description ignoring case. Duplicates are dropped.
func resolvePatterns(known *api.PatternsResponse, names []string) ([]string, error) {
	keys := make(map[string]bool, len(known.Patterns))
	for _, key := range known.Patterns {
		keys[key] = true
	}

	seen := make(map[string]bool, len(names))
	resolved := make([]string, 0, len(names))
	var unknown []string
	for _, name := range names {
		key := name
		if !keys[key] {
			key = ""
			want := strings.TrimSpace(name)
			for _, k := range known.Patterns {
				if desc := known.Descriptions[k]; want != "" && strings.EqualFold(desc, want) {
					key = k
					break
				}
			}
		}
		if key == "" {
			unknown = append(unknown, name)
			continue
		}
		if !seen[key] {
			seen[key] = true
			resolved = append(resolved, key)
		}
	}

	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown pattern(s): %s (see \"logdash patterns\")", strings.Join(unknown, ", "))
	}
	return resolved, nil
}
