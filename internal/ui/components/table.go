package components

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/yildizm/logdash/internal/api"
	"github.com/yildizm/logdash/internal/formatter"
)

const (
	// PageSize is the default number of rows shown per page
	PageSize = 50
	// FilterAll disables the category filter
	FilterAll = "all"
)

type tableKeyMap struct {
	Up, Down, Expand, NextPage, PrevPage, NextFilter, Search, Export key.Binding
}

var tableKeys = tableKeyMap{
	Up:         key.NewBinding(key.WithKeys("up", "k")),
	Down:       key.NewBinding(key.WithKeys("down", "j")),
	Expand:     key.NewBinding(key.WithKeys("enter", " ")),
	NextPage:   key.NewBinding(key.WithKeys("right", "l", "pgdown")),
	PrevPage:   key.NewBinding(key.WithKeys("left", "h", "pgup")),
	NextFilter: key.NewBinding(key.WithKeys("f")),
	Search:     key.NewBinding(key.WithKeys("/")),
	Export:     key.NewBinding(key.WithKeys("e")),
}

// ErrorTable filters, searches and pages over a scan's error list
type ErrorTable struct {
	entries  []api.ErrorEntry
	filtered []api.ErrorEntry

	category string
	search   string
	page     int
	cursor   int
	// expanded is the line number of the open row, 0 when none is open
	expanded int

	searchInput textinput.Model
	searching   bool
	width       int
	pageSize    int
}

// NewErrorTable creates an empty table
func NewErrorTable() *ErrorTable {
	in := textinput.New()
	in.Placeholder = "search content, line or code"
	in.Prompt = "/ "
	t := &ErrorTable{category: FilterAll, page: 1, searchInput: in, width: 100, pageSize: PageSize}
	t.apply()
	return t
}

// SetEntries replaces the rows and resets filter, search and paging
func (t *ErrorTable) SetEntries(entries []api.ErrorEntry) {
	t.entries = entries
	t.category = FilterAll
	t.search = ""
	t.searchInput.SetValue("")
	t.expanded = 0
	t.resetPage()
}

// SetPageSize sets the rows per page and returns to page 1
func (t *ErrorTable) SetPageSize(n int) {
	if n < 1 {
		n = PageSize
	}
	t.pageSize = n
	t.resetPage()
}

// SetWidth sets the render width
func (t *ErrorTable) SetWidth(width int) {
	t.width = width
}

// SetCategory sets the category filter and returns to page 1
func (t *ErrorTable) SetCategory(category string) {
	if category == "" {
		category = FilterAll
	}
	t.category = category
	t.resetPage()
}

// SetSearch sets the search text and returns to page 1
func (t *ErrorTable) SetSearch(search string) {
	t.search = search
	t.resetPage()
}

// Category returns the active category filter
func (t *ErrorTable) Category() string { return t.category }

// Search returns the active search text
func (t *ErrorTable) Search() string { return t.search }

// Page returns the current 1-based page
func (t *ErrorTable) Page() int { return t.page }

// PageCount returns the number of pages, at least 1
func (t *ErrorTable) PageCount() int {
	return max(1, (len(t.filtered)+t.pageSize-1)/t.pageSize)
}

// Filtered returns every row matching the filter and search
func (t *ErrorTable) Filtered() []api.ErrorEntry {
	return t.filtered
}

// Rows returns the rows on the current page
func (t *ErrorTable) Rows() []api.ErrorEntry {
	start := (t.page - 1) * t.pageSize
	if start >= len(t.filtered) {
		return nil
	}
	end := min(start+t.pageSize, len(t.filtered))
	return t.filtered[start:end]
}

// NextPage moves forward one page
func (t *ErrorTable) NextPage() {
	if t.page < t.PageCount() {
		t.page++
		t.cursor = 0
	}
}

// PrevPage moves back one page
func (t *ErrorTable) PrevPage() {
	if t.page > 1 {
		t.page--
		t.cursor = 0
	}
}

// Toggle expands the row with lineNumber, or collapses it when already open.
// Opening a row closes any other.
func (t *ErrorTable) Toggle(lineNumber int) {
	if t.expanded == lineNumber {
		t.expanded = 0
		return
	}
	t.expanded = lineNumber
}

// Expanded returns the line number of the open row
func (t *ErrorTable) Expanded() (int, bool) {
	return t.expanded, t.expanded != 0
}

// Categories lists the filter choices: "all" followed by every category in the data
func (t *ErrorTable) Categories() []string {
	seen := map[string]bool{}
	out := []string{FilterAll}
	for _, e := range t.entries {
		if e.Category != "" && !seen[e.Category] {
			seen[e.Category] = true
			out = append(out, e.Category)
		}
	}
	return out
}

// CycleCategory advances to the next filter choice
func (t *ErrorTable) CycleCategory() {
	cats := t.Categories()
	for i, c := range cats {
		if c == t.category {
			t.SetCategory(cats[(i+1)%len(cats)])
			return
		}
	}
	t.SetCategory(FilterAll)
}

// Searching reports whether the search input has focus
func (t *ErrorTable) Searching() bool {
	return t.searching
}

// Export writes the filtered rows as CSV
func (t *ErrorTable) Export(w io.Writer) error {
	return formatter.WriteErrorsCSV(w, t.filtered)
}

func (t *ErrorTable) resetPage() {
	t.page = 1
	t.cursor = 0
	t.apply()
}

func (t *ErrorTable) apply() {
	t.filtered = FilterErrors(t.entries, t.category, t.search)
}

// FilterErrors keeps entries whose category equals category (or category is
// "all") and which match search case-insensitively against content, line
// number or error code.
func FilterErrors(entries []api.ErrorEntry, category, search string) []api.ErrorEntry {
	search = strings.ToLower(search)
	out := make([]api.ErrorEntry, 0, len(entries))
	for _, e := range entries {
		if category != FilterAll && category != "" && e.Category != category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(e.Content), search) &&
			!strings.Contains(strconv.Itoa(e.LineNumber), search) &&
			!strings.Contains(strings.ToLower(e.ErrorCode), search) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// TableAction is what the table asks of its parent after a key press
type TableAction int

const (
	TableNone TableAction = iota
	TableExport
)

// Update handles keys. Search mode captures all keys until Enter or Esc.
func (t *ErrorTable) Update(msg tea.Msg) (TableAction, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return TableNone, nil
	}

	if t.searching {
		switch keyMsg.Type {
		case tea.KeyEnter:
			t.searching = false
			t.searchInput.Blur()
			return TableNone, nil
		case tea.KeyEsc:
			t.searching = false
			t.searchInput.Blur()
			t.searchInput.SetValue("")
			t.SetSearch("")
			return TableNone, nil
		}
		var cmd tea.Cmd
		t.searchInput, cmd = t.searchInput.Update(msg)
		if v := t.searchInput.Value(); v != t.search {
			t.SetSearch(v)
		}
		return TableNone, cmd
	}

	rows := t.Rows()
	switch {
	case key.Matches(keyMsg, tableKeys.Up):
		if t.cursor > 0 {
			t.cursor--
		}
	case key.Matches(keyMsg, tableKeys.Down):
		if t.cursor < len(rows)-1 {
			t.cursor++
		}
	case key.Matches(keyMsg, tableKeys.Expand):
		if t.cursor < len(rows) {
			t.Toggle(rows[t.cursor].LineNumber)
		}
	case key.Matches(keyMsg, tableKeys.NextPage):
		t.NextPage()
	case key.Matches(keyMsg, tableKeys.PrevPage):
		t.PrevPage()
	case key.Matches(keyMsg, tableKeys.NextFilter):
		t.CycleCategory()
	case key.Matches(keyMsg, tableKeys.Search):
		t.searching = true
		return TableNone, t.searchInput.Focus()
	case key.Matches(keyMsg, tableKeys.Export):
		return TableExport, nil
	}
	return TableNone, nil
}

// View renders the current page
func (t *ErrorTable) View() string {
	headerStyle := lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(secondaryColor)
	selected := lipgloss.NewStyle().Background(selectedColor).Foreground(primaryColor)

	status := fmt.Sprintf("Filter: %s  Search: %q  %d of %d errors  Page %d/%d",
		t.category, t.search, len(t.filtered), len(t.entries), t.page, t.PageCount())
	lines := []string{mutedStyle.Render(status)}
	if t.searching {
		lines = append(lines, t.searchInput.View())
	}

	if len(t.filtered) == 0 {
		lines = append(lines, "", mutedStyle.Render("No errors match."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	contentWidth := max(20, t.width-48)
	lines = append(lines, headerStyle.Render(fmt.Sprintf("%-7s %-9s %-14s %-10s %s", "LINE", "SEVERITY", "CATEGORY", "CODE", "CONTENT")))

	for i, e := range t.Rows() {
		sev := formatter.SeverityOf(e.MatchedPattern)
		sevText := lipgloss.NewStyle().Foreground(SeverityColor(sev)).Render(fmt.Sprintf("%-9s", sev))
		catText := lipgloss.NewStyle().Foreground(CategoryColor(e.Category)).Render(fmt.Sprintf("%-14s", Truncate(e.Category, 14)))
		code := e.ErrorCode
		if code == "" {
			code = "-"
		}
		row := fmt.Sprintf("%-7d %s %s %-10s %s", e.LineNumber, sevText, catText, Truncate(code, 10), Truncate(firstLine(e.Content), contentWidth))
		if i == t.cursor {
			row = selected.Render(row)
		}
		lines = append(lines, row)

		if e.LineNumber == t.expanded {
			detail := lipgloss.NewStyle().
				Foreground(secondaryColor).
				Border(lipgloss.NormalBorder(), false, false, false, true).
				BorderForeground(SeverityColor(sev)).
				PaddingLeft(1).
				MarginLeft(8).
				Width(max(20, t.width-12)).
				Render(fmt.Sprintf("Pattern: %s\n%s", e.MatchedPattern, e.Content))
			lines = append(lines, detail)
		}
	}

	lines = append(lines, "", mutedStyle.Render("↑↓ move • enter expand • ←→ page • f filter • / search • e export csv"))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Truncate shortens s to width terminal cells
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}

func firstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return s[:i] + " …"
	}
	return s
}
