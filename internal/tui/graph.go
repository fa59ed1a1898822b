package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Block characters, lowest to highest.
var graphBlocks = []string{" ", "▂", "▃", "▄", "▅", "▆", "▇", "█"}

// renderSpeedGraph draws data as right-aligned bars over a dashed grid.
// Values are scaled against maxVal and clamped to the graph height.
func renderSpeedGraph(data []float64, width, height int, maxVal float64, color lipgloss.Color) string {
	if width < 1 || height < 1 {
		return ""
	}
	if maxVal <= 0 {
		maxVal = 1
	}

	gridStyle := lipgloss.NewStyle().Foreground(ColorGray)
	barStyle := lipgloss.NewStyle().Foreground(color)

	rows := make([][]string, height)
	for i := range rows {
		rows[i] = make([]string, width)
		for j := range rows[i] {
			if i%2 == 0 {
				rows[i][j] = gridStyle.Render("╌")
			} else {
				rows[i][j] = " "
			}
		}
	}

	// Only the newest samples that fit; no zero padding so the grid shows
	// through on the left until history fills up.
	visible := data
	if len(visible) > width {
		visible = visible[len(visible)-width:]
	}
	offset := width - len(visible)

	for x, val := range visible {
		if val < 0 {
			val = 0
		}
		pct := val / maxVal
		if pct > 1.0 {
			pct = 1.0
		}
		subBlocks := pct * float64(height) * 8.0

		for y := 0; y < height; y++ {
			rowValue := subBlocks - float64(y*8)
			if rowValue <= 0 {
				continue
			}
			char := "█"
			if rowValue < 8 {
				char = graphBlocks[int(rowValue)]
			}
			rows[height-1-y][offset+x] = barStyle.Render(char)
		}
	}

	var s strings.Builder
	for i, row := range rows {
		s.WriteString(strings.Join(row, ""))
		if i < height-1 {
			s.WriteRune('\n')
		}
	}
	return s.String()
}

// graphScale returns the axis maximum: the largest sample plus 10%.
func graphScale(data []float64) float64 {
	maxVal := 1.0
	for _, v := range data {
		if v > maxVal {
			maxVal = v
		}
	}
	return maxVal * 1.1
}
