package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/yildizm/logdash/internal/emoji"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show backend and index status",
		Long: `Show the file the backend is serving and the state of its chat index.
With --verbose the request timings are printed too.`,
		Args: cobra.NoArgs,
		RunE: runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := GetGlobalConfig()
	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	status, err := client.Status(ctx)
	if err != nil {
		return fmt.Errorf("backend unreachable at %s: %w", client.BaseURL(), err)
	}
	rag, err := client.RagStatus(ctx)
	if err != nil {
		return fmt.Errorf("index status failed: %w", err)
	}

	file := "none"
	if status.Filename != nil && *status.Filename != "" {
		file = *status.Filename
	}

	printLabel(out, "Backend:", client.BaseURL())
	printLabel(out, "File:", file)
	printLabel(out, "Ready:", fmt.Sprintf("%t", status.Ready))
	_, _ = labelColor.Fprintf(out, "%-14s", "Index:")
	_, _ = ragColor(rag.Status).Fprintf(out, "%s %s\n", emoji.ForRagStatus(string(rag.Status)), rag.Status)
	if rag.Error != "" {
		printLabel(out, "Index error:", rag.Error)
	}

	if isVerbose() {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Requests:")
		for _, s := range requestTracker.Snapshot() {
			fmt.Fprintf(out, "  %-12s count=%d errors=%d avg=%s max=%s\n",
				s.Operation, s.Count, s.Errors, s.Avg.Round(time.Microsecond), s.Max.Round(time.Microsecond))
		}
	}
	return nil
}
