package components

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/yildizm/logdash/internal/api"
	"github.com/yildizm/logdash/internal/emoji"
	"github.com/yildizm/logdash/internal/session"
)

// TopPatterns is how many matched patterns the stats panel lists
const TopPatterns = 5

// StatsCard represents a statistics card component
type StatsCard struct {
	Title       string
	Value       string
	Description string
	Status      string // "success", "warning", "error", "info"
	Icon        string
	Width       int
	Height      int
}

// NewStatsCard creates a new stats card
func NewStatsCard(title, value, description string) *StatsCard {
	return &StatsCard{
		Title:       title,
		Value:       value,
		Description: description,
		Status:      "info",
		Width:       20,
		Height:      4,
	}
}

// SetStatus sets the status color of the card
func (s *StatsCard) SetStatus(status string) *StatsCard {
	s.Status = status
	return s
}

// SetIcon sets the icon for the card
func (s *StatsCard) SetIcon(icon string) *StatsCard {
	s.Icon = icon
	return s
}

// Render renders the stats card
func (s *StatsCard) Render() string {
	var valueColor lipgloss.AdaptiveColor
	switch s.Status {
	case "success":
		valueColor = successColor
	case "warning":
		valueColor = warningColor
	case "error":
		valueColor = errorColor
	case "info":
		valueColor = primaryColor
	default:
		valueColor = secondaryColor
	}

	title := lipgloss.NewStyle().Foreground(primaryColor).Bold(true).Render(s.Title)
	if s.Icon != "" {
		title = s.Icon + " " + title
	}

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		title,
		lipgloss.NewStyle().Foreground(valueColor).Bold(true).Render(s.Value),
		lipgloss.NewStyle().Foreground(secondaryColor).Render(s.Description),
	)

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(secondaryColor).
		Padding(0, 1).
		Width(s.Width).
		Height(s.Height).
		Render(content)
}

// StatsPanel is a read-only projection of the current scan
type StatsPanel struct {
	width int
}

// NewStatsPanel creates a stats panel
func NewStatsPanel() *StatsPanel {
	return &StatsPanel{width: 80}
}

// SetWidth sets the render width
func (p *StatsPanel) SetWidth(width int) {
	p.width = width
}

// Cards builds the summary cards for snap
func (p *StatsPanel) Cards(snap session.Snapshot) []*StatsCard {
	scan := snap.Scan

	rate := snap.ErrorRateValue()
	errorStatus := "success"
	switch {
	case rate > 10:
		errorStatus = "error"
	case rate > 0:
		errorStatus = "warning"
	}

	top, ok := snap.TopCategory()
	if !ok {
		top = "none"
	}

	ragStatus := "info"
	switch snap.RagStatus {
	case api.RagReady:
		ragStatus = "success"
	case api.RagError:
		ragStatus = "error"
	case api.RagBuilding:
		ragStatus = "warning"
	}
	ragDesc := "Chat index"
	if snap.RagStatus == api.RagError && snap.RagError != "" {
		ragDesc = snap.RagError
	}

	return []*StatsCard{
		NewStatsCard("Total Lines", formatNumber(scan.TotalLines), scan.Filename).
			SetIcon(emoji.GetEmoji("file")),
		NewStatsCard("Errors", formatNumber(scan.ErrorCount), "Matched error lines").
			SetIcon(emoji.GetEmoji("error")).SetStatus(errorStatus),
		NewStatsCard("Error Rate", snap.ErrorRate()+"%", "Errors per line").
			SetIcon(emoji.GetEmoji("statistics")).SetStatus(errorStatus),
		NewStatsCard("Top Category", top, "Most frequent").
			SetIcon(emoji.GetEmoji("category")),
		NewStatsCard("Index", string(snap.RagStatus), ragDesc).
			SetIcon(emoji.ForRagStatus(string(snap.RagStatus))).SetStatus(ragStatus),
	}
}

// View renders the panel for snap
func (p *StatsPanel) View(snap session.Snapshot) string {
	if snap.Scan == nil {
		return lipgloss.NewStyle().Foreground(secondaryColor).
			Render("No scan yet. Upload a log file to see statistics.")
	}

	cards := p.Cards(snap)
	columns := max(1, p.width/24)
	cardWidth := max(18, p.width/columns-2)
	var rows []string
	for i := 0; i < len(cards); i += columns {
		end := min(i+columns, len(cards))
		rendered := make([]string, 0, end-i)
		for _, card := range cards[i:end] {
			card.Width = cardWidth
			rendered = append(rendered, card.Render())
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
	}

	sections := []string{
		lipgloss.JoinVertical(lipgloss.Left, rows...),
		"",
		p.renderCategories(snap.Scan),
		"",
		p.renderPatterns(snap.Scan),
	}
	if codes := api.SortedByCount(snap.Scan.ErrorCodes); len(codes) > 0 {
		sections = append(sections, "", p.renderCounts(emoji.GetEmoji("code")+" Error Codes", codes, nil))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// Categories returns categories by descending count, ties in backend order
func Categories(scan *api.ScanResult) []api.Count {
	if scan == nil {
		return nil
	}
	return api.SortedByCount(scan.Categories)
}

// TopPatternsOf returns at most TopPatterns matched patterns by descending count
func TopPatternsOf(scan *api.ScanResult) []api.Count {
	if scan == nil {
		return nil
	}
	patterns := api.SortedByCount(scan.PatternMatches)
	if len(patterns) > TopPatterns {
		patterns = patterns[:TopPatterns]
	}
	return patterns
}

func (p *StatsPanel) renderCategories(scan *api.ScanResult) string {
	return p.renderCounts(emoji.GetEmoji("category")+" Categories", Categories(scan), func(name string) lipgloss.TerminalColor {
		return CategoryColor(name)
	})
}

func (p *StatsPanel) renderPatterns(scan *api.ScanResult) string {
	return p.renderCounts(emoji.GetEmoji("pattern")+" Top Patterns", TopPatternsOf(scan), nil)
}

func (p *StatsPanel) renderCounts(title string, counts []api.Count, color func(string) lipgloss.TerminalColor) string {
	header := lipgloss.NewStyle().Foreground(primaryColor).Bold(true).Render(title)
	if len(counts) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, header,
			lipgloss.NewStyle().Foreground(secondaryColor).Render("  none"))
	}

	maxCount := counts[0].Count
	barWidth := max(10, min(40, p.width-40))
	nameWidth := 0
	for _, c := range counts {
		nameWidth = max(nameWidth, lipgloss.Width(c.Name))
	}

	lines := []string{header}
	for _, c := range counts {
		var style lipgloss.Style
		if color != nil {
			style = lipgloss.NewStyle().Foreground(color(c.Name))
		} else {
			style = lipgloss.NewStyle().Foreground(secondaryColor)
		}
		filled := 0
		if maxCount > 0 {
			filled = max(1, c.Count*barWidth/maxCount)
		}
		bar := style.Render(strings.Repeat("█", filled))
		name := fmt.Sprintf("  %-*s", nameWidth, c.Name)
		lines = append(lines, fmt.Sprintf("%s %s %s", name, bar, formatNumber(c.Count)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// formatNumber formats large numbers with commas
func formatNumber(n int) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	str := strconv.Itoa(n)
	if len(str) <= 3 {
		return str
	}

	var result strings.Builder
	for i, digit := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result.WriteString(",")
		}
		result.WriteRune(digit)
	}

	return result.String()
}
