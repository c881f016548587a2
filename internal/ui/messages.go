package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/yildizm/logdash/internal/api"
	"github.com/yildizm/logdash/internal/session"
	"github.com/yildizm/logdash/internal/ui/components"
)

// Messages bridging store calls and notifications into the program
type (
	storeEventMsg  session.Event
	storeClosedMsg struct{}

	initDoneMsg struct {
		err error
	}

	uploadDoneMsg struct {
		file *components.StagedFile
		scan *api.ScanResult
		err  error
	}

	queryDoneMsg struct {
		err error
	}

	rescanDoneMsg struct {
		err error
	}

	exportDoneMsg struct {
		path string
		rows int
		err  error
	}
)

// listenForEvent waits for the next store notification
func listenForEvent(events <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return storeClosedMsg{}
		}
		return storeEventMsg(ev)
	}
}

func initCmd(ctx context.Context, store *session.Store) tea.Cmd {
	return func() tea.Msg {
		return initDoneMsg{err: store.Initialize(ctx)}
	}
}

func uploadCmd(ctx context.Context, store *session.Store, file *components.StagedFile) tea.Cmd {
	return func() tea.Msg {
		// #nosec G304 - path chosen by the user
		f, err := os.Open(file.Path)
		if err != nil {
			return uploadDoneMsg{file: file, err: fmt.Errorf("cannot open %s: %w", file.Name, err)}
		}
		defer func() { _ = f.Close() }()

		scan, err := store.Upload(ctx, file.Name, f)
		return uploadDoneMsg{file: file, scan: scan, err: err}
	}
}

func queryCmd(ctx context.Context, store *session.Store, question string) tea.Cmd {
	return func() tea.Msg {
		_, err := store.Query(ctx, question)
		return queryDoneMsg{err: err}
	}
}

func rescanCmd(ctx context.Context, store *session.Store, patterns []string) tea.Cmd {
	return func() tea.Msg {
		_, err := store.Rescan(ctx, patterns)
		return rescanDoneMsg{err: err}
	}
}

// exportCmd writes rows to dir as <file>-errors.csv
func exportCmd(table *components.ErrorTable, dir, filename string) tea.Cmd {
	rows := len(table.Filtered())
	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if name == "" || name == "." {
		name = "scan"
	}
	path := filepath.Join(dir, name+"-errors.csv")

	// render now so later table changes don't race the write
	var b strings.Builder
	if err := table.Export(&b); err != nil {
		return func() tea.Msg { return exportDoneMsg{path: path, err: err} }
	}
	data := b.String()

	return func() tea.Msg {
		err := os.WriteFile(path, []byte(data), 0o600)
		return exportDoneMsg{path: path, rows: rows, err: err}
	}
}
