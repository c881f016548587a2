package ui

import (
	"os"
	"sync/atomic"

	"github.com/charmbracelet/lipgloss"
)

// Theme is the dashboard color set
type Theme struct {
	Name string

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Accent    lipgloss.AdaptiveColor

	Success lipgloss.AdaptiveColor
	Warning lipgloss.AdaptiveColor
	Error   lipgloss.AdaptiveColor
	Info    lipgloss.AdaptiveColor

	Border   lipgloss.AdaptiveColor
	Muted    lipgloss.AdaptiveColor
	Selected lipgloss.AdaptiveColor
	// Banner is the background of the dismissable error line
	Banner lipgloss.AdaptiveColor
}

func buildTheme(name string, primary, secondary, accent, success, warning, errorColor, info, border, muted, selected, banner [2]string) Theme {
	c := func(p [2]string) lipgloss.AdaptiveColor {
		return lipgloss.AdaptiveColor{Light: p[0], Dark: p[1]}
	}
	return Theme{
		Name:      name,
		Primary:   c(primary),
		Secondary: c(secondary),
		Accent:    c(accent),
		Success:   c(success),
		Warning:   c(warning),
		Error:     c(errorColor),
		Info:      c(info),
		Border:    c(border),
		Muted:     c(muted),
		Selected:  c(selected),
		Banner:    c(banner),
	}
}

var (
	DefaultTheme = buildTheme("default",
		[2]string{"#1E40AF", "#3B82F6"}, [2]string{"#6B7280", "#9CA3AF"}, [2]string{"#7C3AED", "#A855F7"},
		[2]string{"#059669", "#10B981"}, [2]string{"#D97706", "#F59E0B"}, [2]string{"#DC2626", "#EF4444"},
		[2]string{"#0891B2", "#06B6D4"}, [2]string{"#D1D5DB", "#374151"}, [2]string{"#6B7280", "#9CA3AF"},
		[2]string{"#DBEAFE", "#1E3A8A"}, [2]string{"#FEE2E2", "#7F1D1D"})

	HighContrastTheme = buildTheme("high-contrast",
		[2]string{"#000000", "#FFFFFF"}, [2]string{"#666666", "#BBBBBB"}, [2]string{"#000080", "#8080FF"},
		[2]string{"#006600", "#00FF00"}, [2]string{"#CC6600", "#FFAA00"}, [2]string{"#CC0000", "#FF4444"},
		[2]string{"#0066CC", "#4499FF"}, [2]string{"#000000", "#FFFFFF"}, [2]string{"#666666", "#BBBBBB"},
		[2]string{"#CCCCCC", "#333333"}, [2]string{"#FFFF00", "#800000"})

	MinimalTheme = buildTheme("minimal",
		[2]string{"#2D3748", "#E2E8F0"}, [2]string{"#718096", "#A0AEC0"}, [2]string{"#4A5568", "#CBD5E0"},
		[2]string{"#2F855A", "#68D391"}, [2]string{"#C05621", "#F6AD55"}, [2]string{"#C53030", "#FC8181"},
		[2]string{"#2B6CB0", "#63B3ED"}, [2]string{"#E2E8F0", "#2D3748"}, [2]string{"#A0AEC0", "#718096"},
		[2]string{"#EDF2F7", "#2D3748"}, [2]string{"#FED7D7", "#63171B"})
)

var themes = map[string]*Theme{
	"default":       &DefaultTheme,
	"high-contrast": &HighContrastTheme,
	"minimal":       &MinimalTheme,
}

var (
	currentTheme  atomic.Pointer[Theme]
	colorDisabled atomic.Bool
)

func init() {
	currentTheme.Store(&DefaultTheme)
}

// GetTheme returns the active theme
func GetTheme() Theme {
	return *currentTheme.Load()
}

// SetTheme sets the active theme
func SetTheme(theme *Theme) {
	t := *theme
	currentTheme.Store(&t)
}

// SetThemeByName sets the theme by name and reports whether it exists
func SetThemeByName(name string) bool {
	t, ok := themes[name]
	if ok {
		SetTheme(t)
	}
	return ok
}

// SetColorDisabled forces plain rendering regardless of NO_COLOR
func SetColorDisabled(disabled bool) {
	colorDisabled.Store(disabled)
}

// IsColorDisabled checks if colors should be disabled
func IsColorDisabled() bool {
	return colorDisabled.Load() || os.Getenv("NO_COLOR") != ""
}

// GetAvailableThemes returns list of available theme names
func GetAvailableThemes() []string {
	return []string{"default", "high-contrast", "minimal"}
}

// Styles are the dashboard chrome styles derived from a theme
type Styles struct {
	Theme Theme

	Title     lipgloss.Style
	Muted     lipgloss.Style
	Tab       lipgloss.Style
	ActiveTab lipgloss.Style
	Body      lipgloss.Style
	Banner    lipgloss.Style
	Status    lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Spinner   lipgloss.Style
	Help      lipgloss.Style
}

// GetStyles builds styles for the active theme. With colors disabled every
// style is the zero style.
func GetStyles() *Styles {
	theme := GetTheme()
	if IsColorDisabled() {
		plain := lipgloss.NewStyle()
		return &Styles{
			Theme: theme, Title: plain.Bold(true), Muted: plain, Tab: plain.Padding(0, 1),
			ActiveTab: plain.Padding(0, 1).Underline(true), Body: plain, Banner: plain,
			Status: plain, Success: plain, Warning: plain, Error: plain, Spinner: plain, Help: plain,
		}
	}

	return &Styles{
		Theme: theme,

		Title: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true).
			Padding(0, 1),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Tab: lipgloss.NewStyle().
			Foreground(theme.Secondary).
			Padding(0, 2),

		ActiveTab: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Background(theme.Selected).
			Bold(true).
			Padding(0, 2),

		Body: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		Banner: lipgloss.NewStyle().
			Foreground(theme.Error).
			Background(theme.Banner).
			Bold(true).
			Padding(0, 1),

		Status: lipgloss.NewStyle().
			Foreground(theme.Secondary),

		Success: lipgloss.NewStyle().
			Foreground(theme.Success).
			Bold(true),

		Warning: lipgloss.NewStyle().
			Foreground(theme.Warning).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(theme.Error).
			Bold(true),

		Spinner: lipgloss.NewStyle().
			Foreground(theme.Accent),

		Help: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Italic(true),
	}
}
