package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/surge-downloader/gamedash/internal/engine/types"
)

func (m RootModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	if m.state == DetailState {
		if d, ok := m.GetSelectedDownload(); ok {
			detail := PanelStyle.Width(m.width - 4).Render(m.renderDetails(d, m.width-8))
			return lipgloss.JoinVertical(lipgloss.Left, detail, m.renderFooter())
		}
	}

	availableWidth := m.width - HeaderWidthOffset*2

	header := m.renderHeader(availableWidth)
	graph := m.renderGraph(availableWidth)
	list := m.renderList(availableWidth)

	body := lipgloss.JoinVertical(lipgloss.Left, header, graph, list)
	if m.width >= MinWidthForDetails {
		listWidth := availableWidth - DetailPaneWidth - 2
		var detail string
		if d, ok := m.GetSelectedDownload(); ok {
			detail = m.renderDetails(d, DetailPaneWidth-4)
		} else {
			detail = lipgloss.Place(DetailPaneWidth-4, 5, lipgloss.Center, lipgloss.Center,
				lipgloss.NewStyle().Foreground(ColorInfo).Render("No Download Selected"))
		}
		body = lipgloss.JoinVertical(lipgloss.Left,
			header,
			graph,
			lipgloss.JoinHorizontal(lipgloss.Top,
				m.renderList(listWidth),
				PanelStyle.Width(DetailPaneWidth).Render(detail),
			),
		)
	}

	return AppStyle.Render(lipgloss.JoinVertical(lipgloss.Left, body, m.renderFooter()))
}

func (m RootModel) renderHeader(width int) string {
	active, completed, failed, speed := m.CalculateStats()
	stats := fmt.Sprintf("%d active  %d completed  %d failed  %s/s",
		active, completed, failed, humanize.Bytes(uint64(speed)))
	if m.streamClosed {
		stats += "  (offline)"
	}

	title := HeaderStyle.Render("GAMEDASH")
	gap := width - lipgloss.Width(title) - lipgloss.Width(stats) - 2
	if gap < 1 {
		gap = 1
	}
	return lipgloss.JoinHorizontal(lipgloss.Bottom, title, strings.Repeat(" ", gap), StatsStyle.Render(stats))
}

func (m RootModel) renderGraph(width int) string {
	axisWidth := 10
	graphWidth := width - axisWidth - 1
	if graphWidth < 10 {
		graphWidth = 10
	}
	maxSpeed := graphScale(m.SpeedHistory)

	axisStyle := lipgloss.NewStyle().Width(axisWidth).Foreground(ColorSubtext).Align(lipgloss.Right)
	axis := lipgloss.JoinVertical(lipgloss.Right,
		axisStyle.Render(humanize.Bytes(uint64(maxSpeed))+"/s"),
		strings.Repeat("\n", GraphHeight-3),
		axisStyle.Render("0"),
	)

	graph := renderSpeedGraph(m.SpeedHistory, graphWidth, GraphHeight, maxSpeed, ColorSecondary)
	return lipgloss.JoinHorizontal(lipgloss.Top, axis, lipgloss.NewStyle().MarginLeft(1).Render(graph))
}

func (m RootModel) renderList(width int) string {
	downloads := m.Downloads()
	if len(downloads) == 0 {
		return lipgloss.Place(width, 5, lipgloss.Center, lipgloss.Center,
			lipgloss.NewStyle().Foreground(ColorInfo).Render("No downloads"))
	}

	cards := make([]string, 0, len(downloads))
	for i, d := range downloads {
		style := CardStyle
		if i == m.cursor {
			style = SelectedCardStyle
		}
		cards = append(cards, style.Width(width-2).Render(m.renderCard(d, width-6)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards...)
}

func (m RootModel) renderCard(d types.DownloadRecord, width int) string {
	badge := lipgloss.NewStyle().Foreground(statusColor(string(d.Status))).Bold(true).Render(string(d.Status))
	title := CardTitleStyle.Render(truncateString(recordName(d), width-lipgloss.Width(badge)-2))
	gap := width - lipgloss.Width(title) - lipgloss.Width(badge)
	if gap < 1 {
		gap = 1
	}
	top := title + strings.Repeat(" ", gap) + badge

	bar := m.bar
	bar.Width = width - ProgressBarWidthOffset
	if bar.Width < MinProgressBarWidth {
		bar.Width = MinProgressBarWidth
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		top,
		bar.ViewAs(d.SmoothedPercentage/100),
		CardStatsStyle.Render(cardSummary(d)),
	)
}

func (m RootModel) renderDetails(d types.DownloadRecord, width int) string {
	row := func(label, value string) string {
		return lipgloss.JoinHorizontal(lipgloss.Left,
			StatsLabelStyle.Render(label),
			StatsValueStyle.Render(truncateString(value, width-14)))
	}

	lines := []string{
		CardTitleStyle.Render(truncateString(recordName(d), width)),
		"",
		row("Download:", d.DownloadID),
		row("Game:", d.GameID),
		row("Status:", string(d.Status)),
		row("Progress:", fmt.Sprintf("%.1f%% (raw %.1f%%)", d.SmoothedPercentage, d.Percentage)),
		row("Size:", fmt.Sprintf("%s / %s", humanize.Bytes(uint64(d.Downloaded)), humanize.Bytes(uint64(d.Total)))),
	}
	if d.Active() {
		lines = append(lines,
			row("Speed:", humanize.Bytes(uint64(d.SmoothedSpeed))+"/s"),
			row("ETA:", formatETA(d.ETA)),
		)
	}
	if d.StatusMessage != "" {
		lines = append(lines, row("Message:", d.StatusMessage))
	}
	if d.Version != "" {
		version := d.Version
		if d.IsUpdate {
			version += " (update)"
		}
		lines = append(lines, row("Version:", version))
	}
	if d.InstallPath != "" {
		lines = append(lines, row("Installed:", d.InstallPath))
	}
	if d.Executable != "" {
		lines = append(lines, row("Executable:", d.Executable))
	}
	if d.Error != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(ColorError).Render(truncateString(d.Error, width)))
	}
	if rep, ok := m.reports[d.DownloadID]; ok {
		lines = append(lines, "")
		for _, res := range rep.Results {
			mark := lipgloss.NewStyle().Foreground(ColorSuccess).Render("✓")
			if res.Err != nil {
				mark = lipgloss.NewStyle().Foreground(ColorError).Render("✗")
			}
			lines = append(lines, mark+" "+res.Task)
		}
	}
	lines = append(lines, "", CardStatsStyle.Render("Updated "+humanize.Time(d.LastUpdate)))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m RootModel) renderFooter() string {
	if m.notice != "" {
		return StatusBarStyle.Width(m.width).Render(NoticeStyle.Render(m.notice))
	}
	help := " [↑/↓] Select  [Enter] Details  [P] Pause  [R] Resume  [X] Cancel  [C] Copy path  [Q] Quit"
	if m.state == DetailState {
		help = " [Esc] Back  [P] Pause  [R] Resume  [X] Cancel  [C] Copy path"
	}
	return StatusBarStyle.Width(m.width).Render(help)
}

func cardSummary(d types.DownloadRecord) string {
	switch d.Status {
	case types.StatusCompleted:
		if d.InstallPath != "" {
			return fmt.Sprintf("%s  %s", humanize.Bytes(uint64(d.Total)), d.InstallPath)
		}
		return humanize.Bytes(uint64(d.Total))
	case types.StatusError:
		return d.Error
	case types.StatusPaused:
		if d.StatusMessage != "" {
			return d.StatusMessage
		}
		return fmt.Sprintf("%s / %s paused", humanize.Bytes(uint64(d.Downloaded)), humanize.Bytes(uint64(d.Total)))
	default:
		return fmt.Sprintf("%.1f%%  %s / %s  %s/s  ETA %s",
			d.SmoothedPercentage,
			humanize.Bytes(uint64(d.Downloaded)),
			humanize.Bytes(uint64(d.Total)),
			humanize.Bytes(uint64(d.SmoothedSpeed)),
			formatETA(d.ETA))
	}
}

func recordName(d types.DownloadRecord) string {
	switch {
	case d.GameName != "":
		return d.GameName
	case d.GameID != "":
		return d.GameID
	default:
		return d.DownloadID
	}
}

func formatETA(seconds int64) string {
	if seconds <= 0 {
		return "--"
	}
	return (time.Duration(seconds) * time.Second).String()
}

func truncateString(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return string(r[:max])
	}
	return string(r[:max-1]) + "…"
}
