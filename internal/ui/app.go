package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/yildizm/logdash/internal/api"
	"github.com/yildizm/logdash/internal/emoji"
	"github.com/yildizm/logdash/internal/logger"
	"github.com/yildizm/logdash/internal/session"
	"github.com/yildizm/logdash/internal/ui/components"
)

// Tab is one dashboard view
type Tab int

const (
	TabUpload Tab = iota
	TabStats
	TabErrors
	TabChat
)

var tabNames = []string{"Upload", "Stats", "Errors", "Chat"}

func (t Tab) String() string {
	if int(t) < len(tabNames) {
		return tabNames[t]
	}
	return "?"
}

// Options configures the dashboard
type Options struct {
	Suggestions []string
	// InitialFile is uploaded as soon as the dashboard starts
	InitialFile string
	// ExportDir receives CSV exports of the error table
	ExportDir string
	// LogFile receives log output while the dashboard owns the terminal
	LogFile string
	// PageSize is the number of error rows per page, default when zero
	PageSize int
}

// Model is the dashboard. It reads the store through snapshots and changes
// it only through store methods run as commands.
type Model struct {
	ctx         context.Context
	store       *session.Store
	events      <-chan session.Event
	unsubscribe func()
	opts        Options

	snap session.Snapshot
	tab  Tab

	upload *components.UploadPanel
	stats  *components.StatsPanel
	table  *components.ErrorTable
	chat   *components.ChatPanel

	spinner spinner.Model
	styles  *Styles

	// banner is the dismissable upload failure
	banner string
	notice string

	width    int
	height   int
	quitting bool
}

// New creates a dashboard over store
func New(ctx context.Context, store *session.Store, opts Options) *Model {
	events, unsubscribe := store.Subscribe()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	styles := GetStyles()
	sp.Style = styles.Spinner

	suggestions := opts.Suggestions
	if len(suggestions) > 4 {
		suggestions = suggestions[:4]
	}

	table := components.NewErrorTable()
	if opts.PageSize > 0 {
		table.SetPageSize(opts.PageSize)
	}

	return &Model{
		ctx:         ctx,
		store:       store,
		events:      events,
		unsubscribe: unsubscribe,
		opts:        opts,
		snap:        store.Snapshot(),
		upload:      components.NewUploadPanel(),
		stats:       components.NewStatsPanel(),
		table:       table,
		chat:        components.NewChatPanel(suggestions),
		spinner:     sp,
		styles:      styles,
		width:       100,
		height:      30,
	}
}

// Init starts the store bridge, the spinner and backend initialization
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spinner.Tick,
		listenForEvent(m.events),
		initCmd(m.ctx, m.store),
	}
	if m.opts.InitialFile != "" && m.upload.Pick(m.opts.InitialFile) {
		if staged, err := m.upload.Submit(); err == nil {
			cmds = append(cmds, uploadCmd(m.ctx, m.store, staged))
		}
	}
	return tea.Batch(cmds...)
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowResize(msg)
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case storeEventMsg:
		m.refresh()
		return m, listenForEvent(m.events)
	case storeClosedMsg:
		return m, nil
	case initDoneMsg:
		if msg.err != nil {
			m.notice = "Backend not reachable: " + api.Message(msg.err)
		}
		m.refresh()
		return m, nil
	case uploadDoneMsg:
		return m.handleUploadDone(msg)
	case queryDoneMsg:
		if msg.err != nil && session.IsValidationError(msg.err) {
			m.notice = msg.err.Error()
		}
		return m, nil
	case rescanDoneMsg:
		if msg.err != nil {
			m.notice = "Rescan failed: " + api.Message(msg.err)
		} else {
			m.notice = "Rescan complete"
		}
		return m, nil
	case exportDoneMsg:
		if msg.err != nil {
			m.notice = "Export failed: " + msg.err.Error()
		} else {
			m.notice = fmt.Sprintf("Exported %d rows to %s", msg.rows, msg.path)
		}
		return m, nil
	}

	return m.forward(msg)
}

func (m *Model) handleWindowResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	inner := max(20, m.width-4)
	m.upload.SetWidth(inner)
	m.stats.SetWidth(inner)
	m.table.SetWidth(inner)
	// header, tabs, banner and footer take six lines
	m.chat.SetSize(inner, max(8, m.height-8))
	m.chat.SetTranscript(m.snap)
	return m, nil
}

func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m.handleQuit()
	case "esc":
		if m.banner != "" {
			m.banner = ""
			return m, nil
		}
	case "tab":
		return m.switchTab((m.tab + 1) % Tab(len(tabNames)))
	case "shift+tab":
		return m.switchTab((m.tab + Tab(len(tabNames)) - 1) % Tab(len(tabNames)))
	}

	if m.acceptsShortcuts() {
		switch msg.String() {
		case "q":
			return m.handleQuit()
		case "1", "2", "3", "4":
			return m.switchTab(Tab(msg.Runes[0] - '1'))
		case "r":
			if m.tab == TabStats {
				return m.handleRescan()
			}
		}
	}

	return m.forward(msg)
}

// acceptsShortcuts reports whether single-letter keys are free for the
// dashboard rather than a text input.
func (m *Model) acceptsShortcuts() bool {
	switch m.tab {
	case TabStats:
		return true
	case TabErrors:
		return !m.table.Searching()
	}
	return false
}

func (m *Model) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m.tab {
	case TabUpload:
		staged, cmd := m.upload.Update(msg)
		if staged != nil {
			return m, tea.Batch(cmd, m.startUpload(staged))
		}
		return m, cmd
	case TabErrors:
		action, cmd := m.table.Update(msg)
		if action == components.TableExport {
			return m, tea.Batch(cmd, m.startExport())
		}
		return m, cmd
	case TabChat:
		question, cmd := m.chat.Update(msg, m.snap)
		if question != "" {
			return m, tea.Batch(cmd, queryCmd(m.ctx, m.store, question))
		}
		return m, cmd
	}
	return m, nil
}

func (m *Model) startUpload(staged *components.StagedFile) tea.Cmd {
	if m.snap.Uploading {
		m.upload.SetError(session.ErrUploadInFlight.Error())
		return nil
	}
	m.banner = ""
	m.notice = ""
	return uploadCmd(m.ctx, m.store, staged)
}

func (m *Model) startExport() tea.Cmd {
	if m.snap.Scan == nil {
		return nil
	}
	dir := m.opts.ExportDir
	if dir == "" {
		dir = "."
	}
	return exportCmd(m.table, dir, m.snap.Scan.Filename)
}

func (m *Model) handleRescan() (tea.Model, tea.Cmd) {
	if m.snap.Patterns == nil || len(m.snap.Patterns.Patterns) == 0 {
		m.notice = session.ErrNoPatterns.Error()
		return m, nil
	}
	m.notice = "Rescanning..."
	return m, rescanCmd(m.ctx, m.store, m.snap.Patterns.Patterns)
}

func (m *Model) handleUploadDone(msg uploadDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if session.IsValidationError(msg.err) {
			m.upload.SetError(msg.err.Error())
		} else {
			m.banner = api.Message(msg.err)
		}
		m.refresh()
		return m, nil
	}

	m.chat.Reset()
	m.refresh()
	m.notice = fmt.Sprintf("Scanned %s", msg.scan.Filename)
	return m.switchTab(TabStats)
}

func (m *Model) switchTab(tab Tab) (tea.Model, tea.Cmd) {
	if tab < TabUpload || int(tab) >= len(tabNames) {
		return m, nil
	}
	m.tab = tab
	m.upload.Blur()
	m.chat.Blur()
	switch tab {
	case TabUpload:
		return m, m.upload.Focus()
	case TabChat:
		return m, m.chat.Focus()
	}
	return m, nil
}

func (m *Model) handleQuit() (tea.Model, tea.Cmd) {
	m.quitting = true
	return m, tea.Quit
}

// refresh re-reads the store and pushes the snapshot into the panels
func (m *Model) refresh() {
	prev := m.snap
	m.snap = m.store.Snapshot()

	if m.snap.Scan != prev.Scan {
		var entries []api.ErrorEntry
		if m.snap.Scan != nil {
			entries = m.snap.Scan.Errors
		}
		m.table.SetEntries(entries)
	}
	m.chat.SetTranscript(m.snap)
}

// View renders the dashboard
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{m.renderHeader(), m.renderTabs()}
	if m.banner != "" {
		sections = append(sections, m.styles.Banner.Render(emoji.GetEmoji("error")+" "+m.banner+"  (esc to dismiss)"))
	}

	var body string
	switch m.tab {
	case TabUpload:
		body = m.upload.View(m.snap.Uploading)
	case TabStats:
		body = m.stats.View(m.snap)
	case TabErrors:
		if m.snap.Scan == nil {
			body = m.styles.Muted.Render("No scan yet.")
		} else {
			body = m.table.View()
		}
	case TabChat:
		body = m.chat.View(m.snap)
	}
	sections = append(sections, body, m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderHeader() string {
	title := m.styles.Title.Render("logdash")

	file := m.snap.CurrentFile
	if file == "" {
		file = "no file"
	}
	status := string(m.snap.RagStatus)
	if status == "" {
		status = string(api.RagIdle)
	}
	parts := []string{
		title,
		m.styles.Status.Render(emoji.GetEmoji("file") + " " + file),
		m.renderRag(status),
	}
	if m.busy() {
		parts = append(parts, m.spinner.View()+" "+m.styles.Status.Render(m.busyLabel()))
	}
	return strings.Join(parts, "  ")
}

func (m *Model) renderRag(status string) string {
	text := emoji.ForRagStatus(status) + " index " + status
	switch api.RagStatus(status) {
	case api.RagReady:
		return m.styles.Success.Render(text)
	case api.RagError:
		return m.styles.Error.Render(text)
	case api.RagBuilding:
		return m.styles.Warning.Render(text)
	}
	return m.styles.Status.Render(text)
}

func (m *Model) busy() bool {
	return m.snap.Uploading || m.snap.Querying || m.snap.Rescanning || m.snap.RagStatus == api.RagBuilding
}

func (m *Model) busyLabel() string {
	switch {
	case m.snap.Uploading:
		return "uploading"
	case m.snap.Rescanning:
		return "rescanning"
	case m.snap.Querying:
		return "asking"
	default:
		return "building index"
	}
}

func (m *Model) renderTabs() string {
	tabs := make([]string, 0, len(tabNames))
	for i, name := range tabNames {
		if Tab(i) == m.tab {
			tabs = append(tabs, m.styles.ActiveTab.Render(name))
		} else {
			tabs = append(tabs, m.styles.Tab.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m *Model) renderFooter() string {
	help := "tab switch view • ctrl+c quit"
	switch m.tab {
	case TabStats:
		help = "r rescan • 1-4 views • q quit • " + help
	case TabErrors:
		help = "1-4 views • q quit • " + help
	}
	footer := m.styles.Help.Render(help)
	if m.notice != "" {
		footer = m.styles.Status.Render(m.notice) + "\n" + footer
	}
	return footer
}

// Close unsubscribes the dashboard from the store
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// Run runs the dashboard until the user quits or ctx is done
func Run(ctx context.Context, store *session.Store, opts Options) error {
	var logOut io.Writer = io.Discard
	if opts.LogFile != "" {
		f, err := tea.LogToFile(opts.LogFile, "logdash")
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer func() { _ = f.Close() }()
		logOut = f
	}
	logger.SetDefaultOutput(logOut)
	defer logger.SetDefaultOutput(os.Stderr)

	model := New(ctx, store, opts)
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
