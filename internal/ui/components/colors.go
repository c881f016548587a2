package components

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/yildizm/logdash/internal/formatter"
)

var (
	primaryColor   = lipgloss.AdaptiveColor{Light: "#3B82F6", Dark: "#60A5FA"}
	secondaryColor = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	successColor   = lipgloss.AdaptiveColor{Light: "#10B981", Dark: "#34D399"}
	warningColor   = lipgloss.AdaptiveColor{Light: "#F59E0B", Dark: "#FBBF24"}
	errorColor     = lipgloss.AdaptiveColor{Light: "#EF4444", Dark: "#F87171"}
	selectedColor  = lipgloss.AdaptiveColor{Light: "#DBEAFE", Dark: "#1E3A8A"}
)

// NeutralColor is used for categories outside the palette
const NeutralColor = lipgloss.Color("#A0AEC0")

var categoryPalette = map[string]lipgloss.Color{
	"database":    "#4299E1",
	"performance": "#48BB78",
	"security":    "#ED8936",
	"network":     "#9F7AEA",
	"resource":    "#F56565",
	"application": "#667EEA",
	"io":          "#ED64A6",
}

// CategoryColor maps a category name to its palette color
func CategoryColor(category string) lipgloss.Color {
	if c, ok := categoryPalette[category]; ok {
		return c
	}
	return NeutralColor
}

// SeverityColor maps a severity class to a display color
func SeverityColor(s formatter.Severity) lipgloss.AdaptiveColor {
	switch s {
	case formatter.SeverityCritical:
		return errorColor
	case formatter.SeverityError:
		return lipgloss.AdaptiveColor{Light: "#EA580C", Dark: "#FB923C"}
	default:
		return warningColor
	}
}
