package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/surge-downloader/gamedash/internal/config"
)

var (
	// Colors
	ColorPrimary   = lipgloss.Color("#bd93f9") // Dracula Purple
	ColorSecondary = lipgloss.Color("#ff79c6") // Dracula Pink
	ColorSuccess   = lipgloss.Color("#50fa7b") // Dracula Green
	ColorError     = lipgloss.Color("#ff5555") // Dracula Red
	ColorWarning   = lipgloss.Color("#ffb86c") // Dracula Orange
	ColorInfo      = lipgloss.Color("#8be9fd") // Dracula Cyan
	ColorText      = lipgloss.Color("#f8f8f2") // Dracula Foreground
	ColorSubtext   = lipgloss.Color("#6272a4") // Dracula Comment
	ColorBorder    = lipgloss.Color("#44475a") // Dracula Selection
	ColorGray      = lipgloss.Color("#44475a")
	ColorBar       = lipgloss.Color("#282a36") // Dracula Background
)

var (
	AppStyle          lipgloss.Style
	HeaderStyle       lipgloss.Style
	StatsStyle        lipgloss.Style
	CardStyle         lipgloss.Style
	SelectedCardStyle lipgloss.Style
	CardTitleStyle    lipgloss.Style
	CardStatsStyle    lipgloss.Style
	StatsLabelStyle   lipgloss.Style
	StatsValueStyle   lipgloss.Style
	StatusBarStyle    lipgloss.Style
	NoticeStyle       lipgloss.Style
	PanelStyle        lipgloss.Style
)

func init() {
	buildStyles()
}

// ApplyTheme switches the palette for the configured theme. The adaptive
// theme asks the terminal for its background color.
func ApplyTheme(theme int) {
	dark := true
	switch theme {
	case config.ThemeLight:
		dark = false
	case config.ThemeAdaptive:
		dark = termenv.HasDarkBackground()
	}

	if dark {
		ColorText = lipgloss.Color("#f8f8f2")
		ColorSubtext = lipgloss.Color("#6272a4")
		ColorBorder = lipgloss.Color("#44475a")
		ColorBar = lipgloss.Color("#282a36")
	} else {
		ColorText = lipgloss.Color("#282a36")
		ColorSubtext = lipgloss.Color("#7c7f93")
		ColorBorder = lipgloss.Color("#bcc0cc")
		ColorBar = lipgloss.Color("#e6e9ef")
	}
	buildStyles()
}

func buildStyles() {
	AppStyle = lipgloss.NewStyle().
		Padding(DefaultPaddingY, DefaultPaddingX).
		Foreground(ColorText)

	HeaderStyle = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true).
		Padding(DefaultPaddingY, DefaultPaddingX).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorPrimary).
		BorderBottom(true)

	// Stats Style in Header
	StatsStyle = lipgloss.NewStyle().
		Foreground(ColorSubtext).
		Padding(DefaultPaddingY, DefaultPaddingX)

	// Base Card Style
	CardStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(DefaultPaddingY, DefaultPaddingX)

	// Selected Card Style (highlighted border)
	SelectedCardStyle = CardStyle.
		BorderForeground(ColorSecondary)

	// Text inside the card
	CardTitleStyle = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true)

	CardStatsStyle = lipgloss.NewStyle().
		Foreground(ColorSubtext).
		Italic(true)

	StatsLabelStyle = lipgloss.NewStyle().
		Foreground(ColorSubtext).
		Width(12)

	StatsValueStyle = lipgloss.NewStyle().
		Foreground(ColorText)

	StatusBarStyle = lipgloss.NewStyle().
		Foreground(ColorText).
		Background(ColorBar).
		Padding(DefaultPaddingY, DefaultPaddingX)

	NoticeStyle = lipgloss.NewStyle().
		Foreground(ColorWarning).
		Bold(true)

	PanelStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(DefaultPaddingY, DefaultPaddingX)
}

// statusColor picks the badge color for a download status.
func statusColor(status string) lipgloss.Color {
	switch status {
	case "completed":
		return ColorSuccess
	case "error":
		return ColorError
	case "paused":
		return ColorWarning
	case "extracting":
		return ColorInfo
	default:
		return ColorSecondary
	}
}
