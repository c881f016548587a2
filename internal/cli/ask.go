package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yildizm/logdash/internal/api"
	"github.com/yildizm/logdash/internal/emoji"
	"github.com/yildizm/logdash/internal/session"
)

func newAskCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question...>",
		Short: "Ask a question about the indexed log",
		Long: `Ask the backend a question about the log it has indexed. The index must be
ready; run "logdash scan --wait <file>" first if it is not.

Examples:
  logdash ask what are the main errors
  logdash ask "why does the database connection fail?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAsk,
	}
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return session.ErrEmptyQuestion
	}

	store, err := newStore(GetGlobalConfig())
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	if err := store.Initialize(ctx); err != nil && isVerbose() {
		printWarn(cmd.ErrOrStderr(), "%s %s", emoji.GetEmoji("warning"), api.Message(err))
	}

	reply, err := store.Query(ctx, question)
	if errors.Is(err, session.ErrNotReady) {
		return fmt.Errorf("%w: upload a file with \"logdash scan --wait <file>\" first", err)
	}
	if err != nil {
		if reply.Failed {
			return errors.New(api.Message(err))
		}
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
	return nil
}
