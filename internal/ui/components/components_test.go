package components

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/yildizm/logdash/internal/api"
	"github.com/yildizm/logdash/internal/emoji"
	"github.com/yildizm/logdash/internal/formatter"
	"github.com/yildizm/logdash/internal/session"
)

func init() {
	emoji.SetEmojiDisabled(true)
}

func twoErrors() []api.ErrorEntry {
	return []api.ErrorEntry{
		{LineNumber: 1, Category: "database", Content: "conn refused", MatchedPattern: "Connection Refused"},
		{LineNumber: 2, Category: "network", Content: "timeout", MatchedPattern: "Timeout"},
	}
}

func TestFilterErrors(t *testing.T) {
	entries := []api.ErrorEntry{
		{LineNumber: 1, Category: "database", Content: "conn refused"},
		{LineNumber: 2, Category: "network", Content: "timeout"},
		{LineNumber: 31, Category: "network", Content: "Upstream Reset", ErrorCode: "E502"},
	}

	tests := []struct {
		name     string
		category string
		search   string
		want     []int
	}{
		{"category database", "database", "", []int{1}},
		{"search timeout", FilterAll, "timeout", []int{2}},
		{"all empty search", FilterAll, "", []int{1, 2, 31}},
		{"case insensitive", FilterAll, "UPSTREAM", []int{31}},
		{"line number", FilterAll, "31", []int{31}},
		{"error code", FilterAll, "e502", []int{31}},
		{"category and search", "network", "conn", nil},
		{"unknown category", "security", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterErrors(entries, tt.category, tt.search)
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d entries, got %d (%+v)", len(tt.want), len(got), got)
			}
			for i, line := range tt.want {
				if got[i].LineNumber != line {
					t.Errorf("Entry %d: expected line %d, got %d", i, line, got[i].LineNumber)
				}
			}
		})
	}
}

func TestErrorTableFilterAndSearch(t *testing.T) {
	table := NewErrorTable()
	table.SetEntries(twoErrors())

	table.SetCategory("database")
	if got := table.Filtered(); len(got) != 1 || got[0].LineNumber != 1 {
		t.Errorf("Expected only line 1 for database, got %+v", got)
	}

	table.SetCategory(FilterAll)
	table.SetSearch("timeout")
	if got := table.Filtered(); len(got) != 1 || got[0].LineNumber != 2 {
		t.Errorf("Expected only line 2 for search, got %+v", got)
	}
}

func manyErrors(n int) []api.ErrorEntry {
	entries := make([]api.ErrorEntry, n)
	for i := range entries {
		cat := "database"
		if i%2 == 1 {
			cat = "network"
		}
		entries[i] = api.ErrorEntry{LineNumber: i + 1, Category: cat, Content: fmt.Sprintf("failure %d", i+1)}
	}
	return entries
}

func TestErrorTableCustomPageSize(t *testing.T) {
	table := NewErrorTable()
	table.SetEntries(manyErrors(120))
	table.NextPage()

	table.SetPageSize(25)
	if table.Page() != 1 || table.PageCount() != 5 {
		t.Errorf("Expected page 1 of 5, got %d of %d", table.Page(), table.PageCount())
	}

	table.SetPageSize(0)
	if table.PageCount() != 3 {
		t.Errorf("Expected default page size for 0, got %d pages", table.PageCount())
	}
}

func TestErrorTablePagination(t *testing.T) {
	table := NewErrorTable()
	table.SetEntries(manyErrors(120))

	if table.PageCount() != 3 {
		t.Fatalf("Expected 3 pages, got %d", table.PageCount())
	}
	if len(table.Rows()) != PageSize {
		t.Errorf("Expected %d rows on page 1, got %d", PageSize, len(table.Rows()))
	}

	table.NextPage()
	table.NextPage()
	table.NextPage()
	if table.Page() != 3 {
		t.Errorf("Expected to stop at page 3, got %d", table.Page())
	}
	if len(table.Rows()) != 20 {
		t.Errorf("Expected 20 rows on the last page, got %d", len(table.Rows()))
	}

	table.SetSearch("failure")
	if table.Page() != 1 {
		t.Errorf("Expected search to reset to page 1, got %d", table.Page())
	}

	table.NextPage()
	table.SetCategory("network")
	if table.Page() != 1 {
		t.Errorf("Expected filter change to reset to page 1, got %d", table.Page())
	}
	if table.PageCount() != 2 {
		t.Errorf("Expected 60 network rows over 2 pages, got %d", table.PageCount())
	}

	table.PrevPage()
	if table.Page() != 1 {
		t.Errorf("Expected to stay on page 1, got %d", table.Page())
	}
}

func TestErrorTableSingleExpandedRow(t *testing.T) {
	table := NewErrorTable()
	table.SetEntries(twoErrors())

	if _, open := table.Expanded(); open {
		t.Fatal("Expected no row expanded initially")
	}

	table.Toggle(1)
	table.Toggle(2)
	if line, open := table.Expanded(); !open || line != 2 {
		t.Errorf("Expected only row 2 expanded, got %d (%v)", line, open)
	}

	table.Toggle(2)
	if _, open := table.Expanded(); open {
		t.Error("Expected re-toggling the open row to collapse it")
	}
}

func TestErrorTableKeys(t *testing.T) {
	table := NewErrorTable()
	table.SetEntries(twoErrors())

	table.Update(tea.KeyMsg{Type: tea.KeyDown})
	table.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if line, open := table.Expanded(); !open || line != 2 {
		t.Errorf("Expected enter on second row to expand line 2, got %d", line)
	}

	table.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("f")})
	if table.Category() != "database" {
		t.Errorf("Expected filter to cycle to database, got %q", table.Category())
	}

	table.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	if !table.Searching() {
		t.Fatal("Expected / to start searching")
	}
	table.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("conn")})
	if table.Search() != "conn" {
		t.Errorf("Expected search text to follow input, got %q", table.Search())
	}
	table.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if table.Searching() || table.Search() != "" {
		t.Errorf("Expected esc to clear search, got %q", table.Search())
	}

	if action, _ := table.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")}); action != TableExport {
		t.Errorf("Expected export action, got %v", action)
	}
}

func TestErrorTableCategories(t *testing.T) {
	table := NewErrorTable()
	table.SetEntries(twoErrors())

	got := strings.Join(table.Categories(), ",")
	if got != "all,database,network" {
		t.Errorf("Unexpected filter choices %q", got)
	}
}

func TestErrorTableExportFiltered(t *testing.T) {
	table := NewErrorTable()
	table.SetEntries(twoErrors())
	table.SetCategory("network")

	var buf bytes.Buffer
	if err := table.Export(&buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("Invalid CSV: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected header and one row, got %d records", len(records))
	}
	if records[1][0] != "2" {
		t.Errorf("Expected exported row for line 2, got %v", records[1])
	}
}

func TestErrorTableView(t *testing.T) {
	table := NewErrorTable()
	if !strings.Contains(table.View(), "No errors match.") {
		t.Error("Expected empty table message")
	}

	table.SetEntries(twoErrors())
	table.Toggle(1)
	view := table.View()
	for _, want := range []string{"conn refused", "timeout", "Pattern: Connection Refused", "Page 1/1"} {
		if !strings.Contains(view, want) {
			t.Errorf("Expected view to contain %q", want)
		}
	}
}

func TestSeverityColors(t *testing.T) {
	if SeverityColor(formatter.SeverityCritical) == SeverityColor(formatter.SeverityWarning) {
		t.Error("Expected critical and warning to differ")
	}
	if SeverityColor(formatter.SeverityOf("Fatal Error")) != SeverityColor(formatter.SeverityCritical) {
		t.Error("Expected Fatal Error to be drawn as critical")
	}
	if SeverityColor(formatter.SeverityOf("something else")) != SeverityColor(formatter.SeverityWarning) {
		t.Error("Expected unknown patterns to be drawn as warnings")
	}
}

func TestCategoryColor(t *testing.T) {
	tests := map[string]string{
		"database":    "#4299E1",
		"network":     "#9F7AEA",
		"resource":    "#F56565",
		"made-up":     string(NeutralColor),
		"":            string(NeutralColor),
		"performance": "#48BB78",
	}
	for name, want := range tests {
		if got := string(CategoryColor(name)); got != want {
			t.Errorf("CategoryColor(%q) = %s, want %s", name, got, want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048575, "1024.0 KB"},
		{1048576, "1.0 MB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStatsOrdering(t *testing.T) {
	scan := &api.ScanResult{
		TotalLines: 100,
		ErrorCount: 12,
		Categories: api.NewCounts(
			api.Count{Name: "network", Count: 2},
			api.Count{Name: "database", Count: 5},
			api.Count{Name: "io", Count: 5},
		),
		PatternMatches: api.NewCounts(
			api.Count{Name: "P1", Count: 1}, api.Count{Name: "P2", Count: 7},
			api.Count{Name: "P3", Count: 3}, api.Count{Name: "P4", Count: 9},
			api.Count{Name: "P5", Count: 2}, api.Count{Name: "P6", Count: 4},
		),
	}

	cats := Categories(scan)
	if len(cats) != 3 || cats[0].Name != "database" || cats[1].Name != "io" || cats[2].Name != "network" {
		t.Errorf("Unexpected category order %+v", cats)
	}

	top := TopPatternsOf(scan)
	var names []string
	for _, p := range top {
		names = append(names, p.Name)
	}
	if got := strings.Join(names, ","); got != "P4,P2,P6,P3,P5" {
		t.Errorf("Unexpected top patterns %s", got)
	}

	if Categories(nil) != nil || TopPatternsOf(nil) != nil {
		t.Error("Expected nil scan to give no rows")
	}
}

func TestStatsPanelView(t *testing.T) {
	panel := NewStatsPanel()
	if !strings.Contains(panel.View(session.Snapshot{}), "No scan yet") {
		t.Error("Expected placeholder without a scan")
	}

	snap := session.Snapshot{
		Scan: &api.ScanResult{
			Filename:   "app.log",
			TotalLines: 100,
			ErrorCount: 5,
			Categories: api.NewCounts(api.Count{Name: "database", Count: 3}, api.Count{Name: "network", Count: 2}),
			ErrorCodes: api.NewCounts(api.Count{Name: "E42", Count: 1}),
		},
		RagStatus: api.RagError,
		RagError:  "embedding model missing",
	}

	cards := panel.Cards(snap)
	values := map[string]string{}
	descriptions := map[string]string{}
	for _, c := range cards {
		values[c.Title] = c.Value
		descriptions[c.Title] = c.Description
	}
	if values["Error Rate"] != "5.00%" {
		t.Errorf("Expected 5.00%% error rate, got %q", values["Error Rate"])
	}
	if values["Top Category"] != "database" {
		t.Errorf("Expected database top category, got %q", values["Top Category"])
	}

	if descriptions["Index"] != "embedding model missing" {
		t.Errorf("Expected backend index error on the card, got %q", descriptions["Index"])
	}

	view := panel.View(snap)
	for _, want := range []string{"Categories", "Top Patterns", "Error Codes", "E42", "database"} {
		if !strings.Contains(view, want) {
			t.Errorf("Expected view to contain %q", want)
		}
	}
}

func TestCanSubmit(t *testing.T) {
	tests := []struct {
		name     string
		question string
		querying bool
		ready    bool
		want     bool
	}{
		{"ready with text", "why?", false, true, true},
		{"empty", "", false, true, false},
		{"whitespace", "  \n ", false, true, false},
		{"in flight", "why?", true, true, false},
		{"not ready", "why?", false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanSubmit(tt.question, tt.querying, tt.ready); got != tt.want {
				t.Errorf("CanSubmit() = %v, want %v", got, tt.want)
			}
		})
	}
}

func readySnapshot() session.Snapshot {
	return session.Snapshot{Scan: &api.ScanResult{Filename: "app.log"}, RagStatus: api.RagReady}
}

func TestChatEnterSubmits(t *testing.T) {
	chat := NewChatPanel(nil)
	snap := readySnapshot()

	chat.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("what failed?")}, snap)
	q, _ := chat.Update(tea.KeyMsg{Type: tea.KeyEnter}, snap)
	if q != "what failed?" {
		t.Fatalf("Expected submitted question, got %q", q)
	}
	if chat.Value() != "" {
		t.Errorf("Expected input cleared after submit, got %q", chat.Value())
	}
}

func TestChatEnterBlockedWhenNotReady(t *testing.T) {
	chat := NewChatPanel(nil)
	snap := readySnapshot()
	snap.RagStatus = api.RagBuilding

	chat.SetValue("what failed?")
	if q, _ := chat.Update(tea.KeyMsg{Type: tea.KeyEnter}, snap); q != "" {
		t.Errorf("Expected no submit while building, got %q", q)
	}
	if chat.Value() != "what failed?" {
		t.Errorf("Expected question kept, got %q", chat.Value())
	}

	snap = readySnapshot()
	snap.Querying = true
	if q, _ := chat.Update(tea.KeyMsg{Type: tea.KeyEnter}, snap); q != "" {
		t.Errorf("Expected no submit while a query runs, got %q", q)
	}
}

func TestChatModifiedEnterInsertsNewline(t *testing.T) {
	chat := NewChatPanel(nil)
	snap := readySnapshot()

	chat.SetValue("first")
	if q, _ := chat.Update(tea.KeyMsg{Type: tea.KeyEnter, Alt: true}, snap); q != "" {
		t.Fatalf("Expected alt+enter not to submit, got %q", q)
	}
	chat.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("second")}, snap)
	if got := chat.Value(); got != "first\nsecond" {
		t.Errorf("Expected a line break, got %q", got)
	}
}

func TestChatSuggestions(t *testing.T) {
	suggestions := []string{"What are the main errors?", "Any database issues?"}
	chat := NewChatPanel(suggestions)
	snap := readySnapshot()

	if q, _ := chat.Update(tea.KeyMsg{Type: tea.KeyF2}, snap); q != suggestions[1] {
		t.Errorf("Expected F2 to send the second suggestion, got %q", q)
	}
	if q, _ := chat.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("1")}, snap); q != suggestions[0] {
		t.Errorf("Expected 1 on empty input to send the first suggestion, got %q", q)
	}

	chat.SetValue("x")
	if q, _ := chat.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("1")}, snap); q != "" {
		t.Errorf("Expected digits to be typed once input has text, got %q", q)
	}

	building := readySnapshot()
	building.RagStatus = api.RagBuilding
	chat.SetValue("")
	if q, _ := chat.Update(tea.KeyMsg{Type: tea.KeyF1}, building); q != "" {
		t.Errorf("Expected no send while building, got %q", q)
	}
	if chat.Value() != suggestions[0] {
		t.Errorf("Expected suggestion staged in the input, got %q", chat.Value())
	}
}

func TestChatScrollFlag(t *testing.T) {
	chat := NewChatPanel(nil)
	if !chat.NeedsScroll() {
		t.Fatal("Expected scroll armed on a fresh panel")
	}

	snap := readySnapshot()
	chat.SetTranscript(snap)
	if !chat.NeedsScroll() {
		t.Error("Expected empty transcript to leave the scroll armed")
	}

	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	snap.Transcript = []session.ChatMessage{{ID: "1", Role: session.RoleUser, Text: "hi", Timestamp: now}}
	chat.SetTranscript(snap)
	if chat.NeedsScroll() {
		t.Error("Expected first non-empty refresh to consume the scroll")
	}

	snap.Transcript = append(snap.Transcript, session.ChatMessage{ID: "2", Role: session.RoleAssistant, Text: "hello", Timestamp: now})
	chat.SetTranscript(snap)
	if chat.NeedsScroll() {
		t.Error("Expected later messages not to re-arm the scroll")
	}

	chat.SetValue("next")
	chat.Update(tea.KeyMsg{Type: tea.KeyEnter}, snap)
	if !chat.NeedsScroll() {
		t.Error("Expected sending a question to arm the scroll")
	}

	chat.SetTranscript(snap)
	chat.Reset()
	if !chat.NeedsScroll() {
		t.Error("Expected reset to arm the scroll")
	}
}

func TestChatScrollsOncePerArming(t *testing.T) {
	chat := NewChatPanel(nil)
	chat.SetSize(80, 10)

	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	snap := readySnapshot()
	for i := 0; i < 10; i++ {
		snap.Transcript = append(snap.Transcript, session.ChatMessage{
			ID: fmt.Sprint(i), Role: session.RoleUser, Text: fmt.Sprintf("question %d", i), Timestamp: now,
		})
	}
	chat.SetTranscript(snap)
	if !chat.viewport.AtBottom() {
		t.Fatal("Expected the armed refresh to scroll to the bottom")
	}
	offset := chat.viewport.YOffset

	snap.Transcript = append(snap.Transcript, session.ChatMessage{ID: "late", Role: session.RoleAssistant, Text: "late answer", Timestamp: now})
	chat.SetTranscript(snap)
	if chat.viewport.YOffset != offset {
		t.Errorf("Expected an unarmed refresh to keep offset %d, got %d", offset, chat.viewport.YOffset)
	}
	if chat.viewport.AtBottom() {
		t.Error("Expected no scroll for a message arriving without a new question")
	}

	chat.SetValue("next")
	chat.Update(tea.KeyMsg{Type: tea.KeyEnter}, snap)
	chat.SetTranscript(snap)
	if !chat.viewport.AtBottom() {
		t.Error("Expected the refresh after sending a question to scroll again")
	}
}

func TestChatTranscriptRendering(t *testing.T) {
	chat := NewChatPanel(nil)
	snap := readySnapshot()
	now := time.Now()
	snap.Transcript = []session.ChatMessage{
		{ID: "1", Role: session.RoleUser, Text: "first question", Timestamp: now},
		{ID: "2", Role: session.RoleAssistant, Text: session.ErrorPrefix + "boom", Timestamp: now, Failed: true},
	}
	chat.SetSize(100, 40)
	chat.SetTranscript(snap)

	view := chat.View(snap)
	if !strings.Contains(view, "first question") || !strings.Contains(view, "boom") {
		t.Errorf("Expected both messages in view, got %q", view)
	}
	if strings.Index(view, "first question") > strings.Index(view, "boom") {
		t.Error("Expected chronological order")
	}
}

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write log: %v", err)
	}
	return path
}

func TestUploadSubmitWithoutFile(t *testing.T) {
	panel := NewUploadPanel()
	staged, err := panel.Submit()
	if staged != nil || !errors.Is(err, session.ErrNoFile) {
		t.Fatalf("Expected ErrNoFile, got %v %v", staged, err)
	}
	if panel.Err() != "Please select a file first" {
		t.Errorf("Unexpected validation text %q", panel.Err())
	}
}

func TestUploadPickAndSubmit(t *testing.T) {
	path := writeLog(t, "2026-01-01T10:00:00Z ERROR db connection refused\n2026-01-01T10:00:01Z INFO retrying\n")
	panel := NewUploadPanel()

	if !panel.Pick(path) {
		t.Fatalf("Expected pick to succeed, error %q", panel.Err())
	}
	staged, err := panel.Submit()
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if staged.Name != "app.log" || staged.Path != path || staged.Size == 0 {
		t.Errorf("Unexpected staged file %+v", staged)
	}
	if len(panel.Preview()) == 0 {
		t.Error("Expected a preview of the staged file")
	}
}

func TestUploadRejectsDirectoryAndMissing(t *testing.T) {
	panel := NewUploadPanel()

	if panel.Pick(t.TempDir()) {
		t.Error("Expected directory to be rejected")
	}
	if !strings.Contains(panel.Err(), "not a regular file") {
		t.Errorf("Unexpected error %q", panel.Err())
	}

	path := writeLog(t, "line\n")
	panel.Pick(path)
	if panel.Pick(filepath.Join(t.TempDir(), "missing.log")) {
		t.Error("Expected missing file to be rejected")
	}
	if panel.Staged() != nil {
		t.Error("Expected a failed pick to clear the staged file")
	}
}

func TestUploadDragAndDrop(t *testing.T) {
	path := writeLog(t, "hello\n")
	panel := NewUploadPanel()

	panel.DragEnter()
	if !panel.Dragging() {
		t.Fatal("Expected dragging after DragEnter")
	}
	panel.DragLeave()
	if panel.Dragging() {
		t.Fatal("Expected not dragging after DragLeave")
	}

	panel.DragEnter()
	if !panel.Drop("'" + path + "'") {
		t.Fatalf("Expected quoted drop to stage, error %q", panel.Err())
	}
	if panel.Dragging() {
		t.Error("Expected drop to end the drag")
	}
}

func TestUploadPasteThenEnter(t *testing.T) {
	path := writeLog(t, "hello\n")
	panel := NewUploadPanel()

	if staged, _ := panel.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(path), Paste: true}); staged != nil {
		t.Fatal("Expected paste to stage without submitting")
	}
	if panel.Staged() == nil {
		t.Fatalf("Expected pasted path to be staged, error %q", panel.Err())
	}

	staged, _ := panel.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if staged == nil || staged.Path != path {
		t.Errorf("Expected enter to submit the staged file, got %+v", staged)
	}
}

func TestCleanPath(t *testing.T) {
	tests := map[string]string{
		"  /tmp/a.log \n":       "/tmp/a.log",
		"'/tmp/a b.log'":        "/tmp/a b.log",
		`"/tmp/a.log"`:          "/tmp/a.log",
		`/tmp/my\ file.log`:     "/tmp/my file.log",
		"file:///var/log/x.log": "/var/log/x.log",
	}
	for in, want := range tests {
		if got := cleanPath(in); got != want {
			t.Errorf("cleanPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello world", 5); got != "hell…" {
		t.Errorf("Unexpected truncation %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Expected untouched string, got %q", got)
	}
	if got := Truncate("日本語テキスト", 6); got != "日本…" {
		t.Errorf("Expected width-aware truncation, got %q", got)
	}
}
