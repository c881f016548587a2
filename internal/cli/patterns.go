package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/yildizm/logdash/internal/emoji"
)

func newPatternsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "patterns",
		Short: "List the backend's error patterns",
		Long: `List the patterns the backend can match, with their descriptions.
Pattern names are the values accepted by "logdash rescan --pattern".

Examples:
  logdash patterns
  logdash patterns -o json`,
		Args: cobra.NoArgs,
		RunE: runPatterns,
	}
}

type patternInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func runPatterns(cmd *cobra.Command, args []string) error {
	client, err := newClient(GetGlobalConfig())
	if err != nil {
		return err
	}

	resp, err := client.Patterns(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load patterns: %w", err)
	}

	patterns := make([]patternInfo, 0, len(resp.Patterns))
	for _, name := range resp.Patterns {
		patterns = append(patterns, patternInfo{Name: name, Description: resp.Descriptions[name]})
	}
	sort.Slice(patterns, func(i, j int) bool { return patterns[i].Name < patterns[j].Name })

	out := cmd.OutOrStdout()
	if GetGlobalConfig().Output.DefaultFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(patterns)
	}

	if len(patterns) == 0 {
		fmt.Fprintln(out, "No patterns available")
		return nil
	}

	fmt.Fprintf(out, "%s Found %d patterns:\n\n", emoji.GetEmoji("pattern"), len(patterns))
	for _, p := range patterns {
		_, _ = labelColor.Fprintf(out, "  %s\n", p.Name)
		if p.Description != "" {
			fmt.Fprintf(out, "    %s\n", p.Description)
		}
	}
	return nil
}
