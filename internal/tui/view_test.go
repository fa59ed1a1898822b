package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"github.com/surge-downloader/gamedash/internal/engine/events"
	"github.com/surge-downloader/gamedash/internal/engine/types"
)

func TestView_Loading(t *testing.T) {
	m, _ := newTestModel(t)
	m.width = 0
	assert.Equal(t, "Loading...", m.View())
}

func TestView_Empty(t *testing.T) {
	m, _ := newTestModel(t)
	out := m.View()
	assert.Contains(t, out, "No downloads")
	assert.Contains(t, out, "GAMEDASH")
}

func TestView_ListsDownloads(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = apply(t, m, eventMsg{ev: events.StatusMsg{DownloadID: "a", GameName: "Half-Life", Status: "downloading"}})
	m, _ = apply(t, m, eventMsg{ev: events.DownloadCompleteMsg{DownloadID: "b", GameID: "portal", InstallPath: "/games/portal"}})

	out := m.View()
	assert.Contains(t, out, "Half-Life")
	assert.Contains(t, out, "portal")
	assert.Contains(t, out, "1 active  1 completed  0 failed")
}

func TestView_DetailState(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = apply(t, m, eventMsg{ev: events.StatusMsg{DownloadID: "a", GameName: "Doom", Status: "downloading", Version: "1.9", IsUpdate: true}})
	m, _ = apply(t, m, key("enter"))

	out := m.View()
	assert.Contains(t, out, "Doom")
	assert.Contains(t, out, "1.9 (update)")
	assert.Contains(t, out, "[Esc] Back")
}

func TestView_NarrowTerminal(t *testing.T) {
	m, _ := newTestModel(t)
	m.width = 60
	m, _ = apply(t, m, eventMsg{ev: events.StatusMsg{DownloadID: "a", GameName: "Doom", Status: "downloading"}})

	out := m.View()
	assert.Contains(t, out, "Doom")
	assert.NotContains(t, out, "No Download Selected")
}

func TestCardSummary(t *testing.T) {
	testCases := []struct {
		name string
		rec  types.DownloadRecord
		want string
	}{
		{"completed with path", types.DownloadRecord{Status: types.StatusCompleted, Total: 1000, InstallPath: "/g"}, "1.0 kB  /g"},
		{"completed", types.DownloadRecord{Status: types.StatusCompleted, Total: 1000}, "1.0 kB"},
		{"error", types.DownloadRecord{Status: types.StatusError, Error: "boom"}, "boom"},
		{"paused message", types.DownloadRecord{Status: types.StatusPaused, StatusMessage: "Waiting for disk"}, "Waiting for disk"},
		{"paused", types.DownloadRecord{Status: types.StatusPaused, Downloaded: 500, Total: 1000}, "500 B / 1.0 kB paused"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, cardSummary(tc.rec))
		})
	}
}

func TestRecordName(t *testing.T) {
	assert.Equal(t, "Doom", recordName(types.DownloadRecord{DownloadID: "d", GameID: "g", GameName: "Doom"}))
	assert.Equal(t, "g", recordName(types.DownloadRecord{DownloadID: "d", GameID: "g"}))
	assert.Equal(t, "d", recordName(types.DownloadRecord{DownloadID: "d"}))
}

func TestFormatETA(t *testing.T) {
	assert.Equal(t, "--", formatETA(0))
	assert.Equal(t, "--", formatETA(-5))
	assert.Equal(t, "1m30s", formatETA(90))
}

func TestTruncateString(t *testing.T) {
	testCases := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello world", 6, "hello…"},
		{"hello", 1, "h"},
		{"hello", 0, ""},
		{"ÄÖÜäöü", 4, "ÄÖÜ…"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, truncateString(tc.in, tc.max), "truncateString(%q, %d)", tc.in, tc.max)
	}
}

func TestRenderSpeedGraph_Dimensions(t *testing.T) {
	out := renderSpeedGraph([]float64{1, 2, 3, 4}, 20, GraphHeight, 4, ColorSecondary)
	lines := strings.Split(out, "\n")
	assert.Len(t, lines, GraphHeight)
	for _, line := range lines {
		assert.Equal(t, 20, lipgloss.Width(line))
	}
}

func TestRenderSpeedGraph_Empty(t *testing.T) {
	assert.Empty(t, renderSpeedGraph(nil, 0, 5, 1, ColorSecondary))
	assert.Empty(t, renderSpeedGraph(nil, 10, 0, 1, ColorSecondary))
	assert.NotEmpty(t, renderSpeedGraph(nil, 10, 2, 0, ColorSecondary))
}

func TestGraphScale(t *testing.T) {
	assert.InDelta(t, 1.1, graphScale(nil), 1e-9)
	assert.InDelta(t, 110.0, graphScale([]float64{10, 100, 50}), 1e-9)
}
