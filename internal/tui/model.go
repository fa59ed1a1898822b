package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/surge-downloader/gamedash/internal/core"
	"github.com/surge-downloader/gamedash/internal/effects"
	"github.com/surge-downloader/gamedash/internal/engine"
	"github.com/surge-downloader/gamedash/internal/engine/events"
	"github.com/surge-downloader/gamedash/internal/engine/types"
)

type UIState int //Defines UIState as int to be used in rootModel

const (
	DashboardState UIState = iota //DashboardState is 0 increments after each line
	DetailState                   //DetailState is 1
)

// eventMsg carries one backend event into the Update loop.
type eventMsg struct {
	ev events.Event
}

// streamClosedMsg is sent once the event channel is closed.
type streamClosedMsg struct{}

// effectsDoneMsg reports a finished side-effect job.
type effectsDoneMsg struct {
	report effects.Report
}

// commandDoneMsg reports a pause/resume/cancel call.
type commandDoneMsg struct {
	action string
	id     string
	err    error
}

// clipboardMsg reports a clipboard copy.
type clipboardMsg struct {
	text string
	err  error
}

type tickMsg time.Time

// RootModel is the dashboard. Every event from the backend is applied to the
// session's store inside Update, so the store only ever sees one goroutine.
type RootModel struct {
	ctx      context.Context
	session  *engine.Session
	commands core.Commands

	width  int
	height int
	state  UIState
	cursor int

	bar          progress.Model
	SpeedHistory []float64
	reports      map[string]effects.Report

	notice       string
	noticeUntil  time.Time
	streamClosed bool

	now func() time.Time
}

// NewRootModel creates the dashboard for an opened session. commands may be
// nil, which disables the pause/resume/cancel keys.
func NewRootModel(ctx context.Context, session *engine.Session, commands core.Commands) RootModel {
	return RootModel{
		ctx:          ctx,
		session:      session,
		commands:     commands,
		state:        DashboardState,
		bar:          progress.New(progress.WithDefaultGradient()),
		SpeedHistory: make([]float64, 0, SpeedHistoryLen),
		reports:      make(map[string]effects.Report),
		now:          time.Now,
	}
}

func (m RootModel) Init() tea.Cmd {
	return tea.Batch(listenForEvents(m.session.Events()), tickCmd())
}

func listenForEvents(sub <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sub
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg{ev: ev}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(TickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Downloads returns the records in display order.
func (m RootModel) Downloads() []types.DownloadRecord {
	return m.session.Store.List()
}

// GetSelectedDownload returns the record under the cursor.
func (m RootModel) GetSelectedDownload() (types.DownloadRecord, bool) {
	list := m.Downloads()
	if m.cursor < 0 || m.cursor >= len(list) {
		return types.DownloadRecord{}, false
	}
	return list[m.cursor], true
}

// CalculateStats returns the number of active, completed and failed downloads
// and the combined smoothed speed of the active ones.
func (m RootModel) CalculateStats() (active, completed, failed int, speed float64) {
	for _, d := range m.Downloads() {
		switch d.Status {
		case types.StatusCompleted:
			completed++
		case types.StatusError:
			failed++
		default:
			active++
			speed += d.SmoothedSpeed
		}
	}
	return active, completed, failed, speed
}
