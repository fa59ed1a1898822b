package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/surge-downloader/gamedash/internal/effects"
	"github.com/surge-downloader/gamedash/internal/engine"
	"github.com/surge-downloader/gamedash/internal/engine/events"
	"github.com/surge-downloader/gamedash/internal/engine/reconcile"
	"github.com/surge-downloader/gamedash/internal/engine/types"
	"github.com/surge-downloader/gamedash/internal/testutil"
)

func newTestModel(t *testing.T) (RootModel, *testutil.FakeBackend) {
	t.Helper()
	backend := testutil.NewFakeBackend(16)
	store := reconcile.NewStore(types.DefaultParams())
	coord := effects.NewCoordinator(backend, backend, effects.Options{Notify: true})
	session, err := engine.Open(context.Background(), backend, store, coord)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(session.Close)

	m := NewRootModel(context.Background(), session, backend)
	m.width = 120
	m.height = 40
	return m, backend
}

func apply(t *testing.T, m RootModel, msg tea.Msg) (RootModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	rm, ok := next.(RootModel)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return rm, cmd
}

func key(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// =============================================================================
// Event Handling
// =============================================================================

func TestUpdate_EventAppliesToStore(t *testing.T) {
	m, _ := newTestModel(t)

	m, cmd := apply(t, m, eventMsg{ev: events.StatusMsg{DownloadID: "dl", GameName: "Quake", Status: "downloading"}})
	if cmd == nil {
		t.Fatal("Expected a command to keep listening for events")
	}
	m, _ = apply(t, m, eventMsg{ev: events.ProgressMsg{DownloadID: "dl", Percentage: 25, Total: 1000, Downloaded: 250}})

	d, ok := m.GetSelectedDownload()
	if !ok {
		t.Fatal("Expected a selected download")
	}
	if d.GameName != "Quake" || d.Status != types.StatusDownloading {
		t.Errorf("Unexpected record: %+v", d)
	}
	if d.SmoothedPercentage != 25 {
		t.Errorf("SmoothedPercentage = %v, want 25", d.SmoothedPercentage)
	}
}

func TestUpdate_CompletionPlansEffectsOnce(t *testing.T) {
	m, _ := newTestModel(t)
	done := events.DownloadCompleteMsg{DownloadID: "dl", GameID: "g", InstallPath: "/games/g"}

	m, _ = apply(t, m, eventMsg{ev: done})
	if !m.session.Effects.Fired("dl", reconcile.Completed) {
		t.Fatal("Expected side effects to be planned on completion")
	}
	if !strings.Contains(m.notice, "finished") {
		t.Errorf("Expected completion notice, got %q", m.notice)
	}

	m.notice = ""
	m, _ = apply(t, m, eventMsg{ev: done})
	if m.notice != "" {
		t.Errorf("Duplicate completion should be silent, got notice %q", m.notice)
	}
}

func TestUpdate_ErrorNotice(t *testing.T) {
	m, _ := newTestModel(t)

	m, _ = apply(t, m, eventMsg{ev: events.DownloadErrorMsg{DownloadID: "dl", GameID: "g", Err: errors.New("disk full")}})
	if !strings.Contains(m.notice, "disk full") {
		t.Errorf("Expected error text in notice, got %q", m.notice)
	}
}

func TestUpdate_EffectsReport(t *testing.T) {
	m, _ := newTestModel(t)
	report := effects.Report{
		DownloadID: "dl",
		Transition: reconcile.Completed,
		Results: []effects.Result{
			{Task: "refresh-installed-games"},
			{Task: "notify", Err: errors.New("no notification daemon")},
		},
	}

	m, _ = apply(t, m, effectsDoneMsg{report: report})
	if _, ok := m.reports["dl"]; !ok {
		t.Error("Expected report to be stored")
	}
	if !strings.Contains(m.notice, "1 follow-up step(s) failed") {
		t.Errorf("Unexpected notice %q", m.notice)
	}
}

func TestUpdate_StreamClosed(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = apply(t, m, streamClosedMsg{})
	if !m.streamClosed {
		t.Error("Expected streamClosed to be set")
	}
	if !strings.Contains(m.View(), "offline") {
		t.Error("Expected header to show offline state")
	}
}

func TestUpdate_TickTracksSpeed(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = apply(t, m, eventMsg{ev: events.ProgressMsg{DownloadID: "a", Percentage: 10, Speed: 300}})
	m, _ = apply(t, m, eventMsg{ev: events.ProgressMsg{DownloadID: "b", Percentage: 10, Speed: 200}})

	for i := 0; i < SpeedHistoryLen+5; i++ {
		m, _ = apply(t, m, tickMsg(time.Now()))
	}
	if len(m.SpeedHistory) != SpeedHistoryLen {
		t.Errorf("SpeedHistory length = %d, want %d", len(m.SpeedHistory), SpeedHistoryLen)
	}
	if last := m.SpeedHistory[len(m.SpeedHistory)-1]; last != 500 {
		t.Errorf("Aggregate speed = %v, want 500", last)
	}
}

func TestUpdate_NoticeExpires(t *testing.T) {
	m, _ := newTestModel(t)
	now := time.Unix(1000, 0)
	m.now = func() time.Time { return now }
	m.setNotice("hello")

	m, _ = apply(t, m, tickMsg(now))
	if m.notice != "hello" {
		t.Fatal("Notice expired too early")
	}
	now = now.Add(NoticeDuration + time.Millisecond)
	m, _ = apply(t, m, tickMsg(now))
	if m.notice != "" {
		t.Errorf("Notice should have expired, got %q", m.notice)
	}
}

// =============================================================================
// Key Handling
// =============================================================================

func TestKeys_Navigation(t *testing.T) {
	m, _ := newTestModel(t)
	for _, id := range []string{"a", "b", "c"} {
		m, _ = apply(t, m, eventMsg{ev: events.StatusMsg{DownloadID: id, Status: "starting"}})
	}

	m, _ = apply(t, m, key("down"))
	m, _ = apply(t, m, key("j"))
	m, _ = apply(t, m, key("down"))
	if m.cursor != 2 {
		t.Errorf("cursor = %d, want 2 (clamped)", m.cursor)
	}
	m, _ = apply(t, m, key("k"))
	if d, _ := m.GetSelectedDownload(); d.DownloadID != "b" {
		t.Errorf("Selected %q, want b", d.DownloadID)
	}

	m, _ = apply(t, m, key("enter"))
	if m.state != DetailState {
		t.Fatal("Expected DetailState after enter")
	}
	m, _ = apply(t, m, key("esc"))
	if m.state != DashboardState {
		t.Error("Expected DashboardState after esc")
	}
}

func TestKeys_Commands(t *testing.T) {
	testCases := []struct {
		key  string
		call string
	}{
		{"p", "pause:dl"},
		{"r", "resume:dl"},
		{"x", "cancel:dl"},
	}

	for _, tc := range testCases {
		t.Run(tc.key, func(t *testing.T) {
			m, backend := newTestModel(t)
			m, _ = apply(t, m, eventMsg{ev: events.StatusMsg{DownloadID: "dl", Status: "downloading"}})

			_, cmd := apply(t, m, key(tc.key))
			if cmd == nil {
				t.Fatal("Expected a command")
			}
			msg, ok := cmd().(commandDoneMsg)
			if !ok {
				t.Fatalf("Expected commandDoneMsg")
			}
			if msg.err != nil {
				t.Errorf("Unexpected error: %v", msg.err)
			}

			calls := backend.Calls()
			if calls[len(calls)-1] != tc.call {
				t.Errorf("Last call = %q, want %q", calls[len(calls)-1], tc.call)
			}
		})
	}
}

func TestKeys_CommandsIgnoredForTerminal(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = apply(t, m, eventMsg{ev: events.DownloadCompleteMsg{DownloadID: "dl"}})

	for _, k := range []string{"p", "r", "x"} {
		if _, cmd := apply(t, m, key(k)); cmd != nil {
			t.Errorf("Key %q should do nothing for a completed download", k)
		}
	}
}

func TestKeys_CommandFailureNotice(t *testing.T) {
	m, backend := newTestModel(t)
	backend.Fail("pause", errors.New("not running"))
	m, _ = apply(t, m, eventMsg{ev: events.StatusMsg{DownloadID: "dl", Status: "downloading"}})

	_, cmd := apply(t, m, key("p"))
	m, _ = apply(t, m, cmd())
	if !strings.Contains(m.notice, "not running") {
		t.Errorf("Expected failure notice, got %q", m.notice)
	}
}

func TestKeys_CopyWithoutInstallPath(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = apply(t, m, eventMsg{ev: events.StatusMsg{DownloadID: "dl", Status: "downloading"}})

	m, cmd := apply(t, m, key("c"))
	if cmd != nil {
		t.Error("Expected no clipboard command without an install path")
	}
	if !strings.Contains(m.notice, "No install path") {
		t.Errorf("Unexpected notice %q", m.notice)
	}
}

func TestKeys_Quit(t *testing.T) {
	m, _ := newTestModel(t)
	_, cmd := apply(t, m, key("q"))
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}
}
