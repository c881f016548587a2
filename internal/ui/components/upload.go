package components

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/yildizm/go-logparser"
	"github.com/yildizm/logdash/internal/emoji"
	"github.com/yildizm/logdash/internal/session"
)

const (
	previewLines = 6
	previewBytes = 64 * 1024
)

// StagedFile is a file chosen for upload but not yet sent
type StagedFile struct {
	Path string
	Name string
	Size int64
}

// PreviewLine is one locally parsed line of the staged file
type PreviewLine struct {
	Level   string
	Message string
}

// UploadPanel stages a log file and hands it to the dashboard on submit.
// Terminal drops arrive as pasted paths.
type UploadPanel struct {
	input    textinput.Model
	dragging bool
	staged   *StagedFile
	preview  []PreviewLine
	err      string
	width    int
}

// NewUploadPanel creates an upload panel with a focused path input
func NewUploadPanel() *UploadPanel {
	in := textinput.New()
	in.Placeholder = "path/to/app.log"
	in.Prompt = "> "
	in.CharLimit = 4096
	in.Focus()
	return &UploadPanel{input: in, width: 60}
}

// SetWidth sets the render width
func (p *UploadPanel) SetWidth(width int) {
	p.width = width
	p.input.Width = max(10, width-8)
}

// Focus gives the path input keyboard focus
func (p *UploadPanel) Focus() tea.Cmd {
	return p.input.Focus()
}

// Blur removes keyboard focus
func (p *UploadPanel) Blur() {
	p.input.Blur()
}

// Dragging reports whether a drag is hovering the panel
func (p *UploadPanel) Dragging() bool {
	return p.dragging
}

func (p *UploadPanel) DragEnter() {
	p.dragging = true
}

func (p *UploadPanel) DragLeave() {
	p.dragging = false
}

// Drop ends a drag and stages the dropped path
func (p *UploadPanel) Drop(path string) bool {
	p.dragging = false
	return p.Pick(path)
}

// Pick stages path. On failure the previously staged file is dropped and
// the reason is kept as the panel's error.
func (p *UploadPanel) Pick(path string) bool {
	path = cleanPath(path)
	p.input.SetValue(path)
	if path == "" {
		p.reset(session.ErrNoFile.Error())
		return false
	}

	info, err := os.Stat(path)
	if err != nil {
		p.reset(fmt.Sprintf("cannot open %s: %v", path, unwrapPathError(err)))
		return false
	}
	if !info.Mode().IsRegular() {
		p.reset(fmt.Sprintf("%s: not a regular file", path))
		return false
	}

	p.staged = &StagedFile{Path: path, Name: filepath.Base(path), Size: info.Size()}
	p.err = ""
	p.preview = loadPreview(path)
	return true
}

// Submit validates the staged file. The returned file is what the caller
// should upload.
func (p *UploadPanel) Submit() (*StagedFile, error) {
	if p.staged == nil {
		p.err = session.ErrNoFile.Error()
		return nil, session.ErrNoFile
	}
	p.err = ""
	staged := *p.staged
	return &staged, nil
}

// Staged returns the currently staged file, if any
func (p *UploadPanel) Staged() *StagedFile {
	return p.staged
}

// Preview returns the parsed preview of the staged file
func (p *UploadPanel) Preview() []PreviewLine {
	return p.preview
}

// Err returns the local validation error
func (p *UploadPanel) Err() string {
	return p.err
}

// SetError shows msg as the panel's error
func (p *UploadPanel) SetError(msg string) {
	p.err = msg
}

func (p *UploadPanel) reset(msg string) {
	p.staged = nil
	p.preview = nil
	p.err = msg
}

// Update handles input. It returns a staged file when the user submitted.
func (p *UploadPanel) Update(msg tea.Msg) (*StagedFile, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		p.input, cmd = p.input.Update(msg)
		return nil, cmd
	}

	if key.Paste {
		p.DragEnter()
		p.Drop(string(key.Runes))
		return nil, nil
	}

	if key.Type == tea.KeyEnter {
		value := cleanPath(p.input.Value())
		if value != "" && (p.staged == nil || p.staged.Path != value) {
			if !p.Pick(value) {
				return nil, nil
			}
		}
		staged, err := p.Submit()
		if err != nil {
			return nil, nil
		}
		return staged, nil
	}

	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return nil, cmd
}

// View renders the panel
func (p *UploadPanel) View(uploading bool) string {
	titleStyle := lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(secondaryColor)
	errStyle := lipgloss.NewStyle().Foreground(errorColor).Bold(true)

	borderColor := secondaryColor
	if p.dragging {
		borderColor = primaryColor
	}
	drop := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(1, 2).
		Width(max(20, p.width-4))

	hint := "Type or paste a log file path, then press Enter"
	if p.dragging {
		hint = "Release to stage the file"
	}

	lines := []string{
		titleStyle.Render(emoji.GetEmoji("upload") + " Upload a log file"),
		mutedStyle.Render(hint),
		"",
		p.input.View(),
	}

	if p.staged != nil {
		lines = append(lines, "",
			fmt.Sprintf("%s %s  %s", emoji.GetEmoji("file"), p.staged.Name, mutedStyle.Render(FormatBytes(p.staged.Size))))
	}
	if uploading {
		lines = append(lines, "", mutedStyle.Render("Uploading..."))
	}
	if p.err != "" {
		lines = append(lines, "", errStyle.Render(p.err))
	}

	out := drop.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	if len(p.preview) > 0 {
		out = lipgloss.JoinVertical(lipgloss.Left, out, "", p.renderPreview())
	}
	return out
}

func (p *UploadPanel) renderPreview() string {
	header := lipgloss.NewStyle().Foreground(secondaryColor).Bold(true).Render("Preview")
	rows := []string{header}
	width := max(20, p.width-14)
	for _, line := range p.preview {
		level := lipgloss.NewStyle().Foreground(levelColor(line.Level)).Width(7).Render(line.Level)
		rows = append(rows, level+" "+Truncate(line.Message, width))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func levelColor(level string) lipgloss.AdaptiveColor {
	switch strings.ToUpper(level) {
	case "ERROR", "FATAL", "CRITICAL":
		return errorColor
	case "WARN", "WARNING":
		return warningColor
	case "INFO":
		return successColor
	default:
		return secondaryColor
	}
}

// loadPreview parses the head of path. Preview failures are not errors.
func loadPreview(path string) []PreviewLine {
	// #nosec G304 - path chosen by the user
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer func() { _ = f.Close() }()

	head, err := io.ReadAll(io.LimitReader(f, previewBytes))
	if err != nil || len(head) == 0 {
		return nil
	}

	var lines []string
	for _, line := range strings.Split(string(head), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == previewLines {
			break
		}
	}
	if len(lines) == 0 {
		return nil
	}

	entries, err := logparser.New().ParseString(strings.Join(lines, "\n"))
	if err != nil || len(entries) == 0 {
		preview := make([]PreviewLine, len(lines))
		for i, line := range lines {
			preview[i] = PreviewLine{Level: "-", Message: line}
		}
		return preview
	}

	preview := make([]PreviewLine, 0, len(entries))
	for _, entry := range entries {
		level := strings.ToUpper(entry.Level)
		if level == "" {
			level = "-"
		}
		preview = append(preview, PreviewLine{Level: level, Message: entry.Message})
	}
	return preview
}

// cleanPath undoes the quoting terminals add to dropped paths
func cleanPath(path string) string {
	path = strings.TrimSpace(path)
	if len(path) >= 2 {
		if (path[0] == '\'' && path[len(path)-1] == '\'') || (path[0] == '"' && path[len(path)-1] == '"') {
			path = path[1 : len(path)-1]
		}
	}
	path = strings.TrimPrefix(path, "file://")
	return strings.ReplaceAll(path, `\ `, " ")
}

func unwrapPathError(err error) error {
	var pe *os.PathError
	if errors.As(err, &pe) {
		return pe.Err
	}
	return err
}

// FormatBytes renders a size with base-1024 units. Bytes are whole numbers,
// KB and MB carry one decimal.
func FormatBytes(n int64) string {
	const unit = 1024
	switch {
	case n < unit:
		return fmt.Sprintf("%d B", n)
	case n < unit*unit:
		return fmt.Sprintf("%.1f KB", float64(n)/unit)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(unit*unit))
	}
}
