package tui

import (
	"context"
	"fmt"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/surge-downloader/gamedash/internal/effects"
	"github.com/surge-downloader/gamedash/internal/engine/reconcile"
	"github.com/surge-downloader/gamedash/internal/utils"
)

// Update handles messages and updates the model
func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case eventMsg:
		out, job := m.session.Handle(msg.ev)
		if job != nil {
			cmds = append(cmds, runJobCmd(m.ctx, job))
		}
		switch out.Transition {
		case reconcile.Completed:
			m.setNotice(fmt.Sprintf("%s finished", displayName(out)))
		case reconcile.Failed:
			m.setNotice(fmt.Sprintf("%s failed: %s", displayName(out), out.Record.Error))
		}
		m.clampCursor()
		cmds = append(cmds, listenForEvents(m.session.Events()))

	case streamClosedMsg:
		m.streamClosed = true
		m.setNotice("Disconnected from download backend")

	case effectsDoneMsg:
		m.reports[msg.report.DownloadID] = msg.report
		if failed := msg.report.Failed(); len(failed) > 0 {
			m.setNotice(fmt.Sprintf("%d follow-up step(s) failed for %s", len(failed), msg.report.DownloadID))
		}

	case commandDoneMsg:
		if msg.err != nil {
			utils.Debug("tui: %s %s failed: %v", msg.action, msg.id, msg.err)
			m.setNotice(fmt.Sprintf("Could not %s %s: %v", msg.action, msg.id, msg.err))
		} else {
			m.setNotice(fmt.Sprintf("Requested %s for %s", msg.action, msg.id))
		}

	case clipboardMsg:
		if msg.err != nil {
			m.setNotice("Clipboard unavailable: " + msg.err.Error())
		} else {
			m.setNotice("Copied " + msg.text)
		}

	case tickMsg:
		_, _, _, speed := m.CalculateStats()
		m.SpeedHistory = append(m.SpeedHistory, speed)
		if len(m.SpeedHistory) > SpeedHistoryLen {
			m.SpeedHistory = m.SpeedHistory[len(m.SpeedHistory)-SpeedHistoryLen:]
		}
		if m.notice != "" && m.now().After(m.noticeUntil) {
			m.notice = ""
		}
		cmds = append(cmds, tickCmd())

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, tea.Batch(cmds...)
}

func (m RootModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.state {
	case DetailState:
		switch key {
		case "esc", "q", "enter":
			m.state = DashboardState
			return m, nil
		}

	case DashboardState:
		switch key {
		case "q":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down", "j":
			if m.cursor < len(m.Downloads())-1 {
				m.cursor++
			}
			return m, nil
		case "enter":
			if _, ok := m.GetSelectedDownload(); ok {
				m.state = DetailState
			}
			return m, nil
		}
	}

	d, ok := m.GetSelectedDownload()
	if !ok {
		return m, nil
	}
	switch key {
	case "p":
		if d.Active() {
			return m, m.commandCmd("pause", d.DownloadID)
		}
	case "r":
		if d.Active() {
			return m, m.commandCmd("resume", d.DownloadID)
		}
	case "x":
		if d.Active() {
			return m, m.commandCmd("cancel", d.DownloadID)
		}
	case "c":
		if d.InstallPath != "" {
			return m, copyCmd(d.InstallPath)
		}
		m.setNotice("No install path for " + d.DownloadID)
	}
	return m, nil
}

func (m *RootModel) setNotice(text string) {
	m.notice = text
	m.noticeUntil = m.now().Add(NoticeDuration)
}

func (m *RootModel) clampCursor() {
	n := len(m.Downloads())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m RootModel) commandCmd(action, id string) tea.Cmd {
	if m.commands == nil {
		return nil
	}
	commands := m.commands
	parent := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, CommandTimeout)
		defer cancel()

		var err error
		switch action {
		case "pause":
			err = commands.Pause(ctx, id)
		case "resume":
			err = commands.Resume(ctx, id)
		case "cancel":
			err = commands.Cancel(ctx, id)
		}
		return commandDoneMsg{action: action, id: id, err: err}
	}
}

// runJobCmd runs side effects off the Update loop. The store mutation that
// triggered them has already happened.
func runJobCmd(ctx context.Context, job *effects.Job) tea.Cmd {
	return func() tea.Msg {
		return effectsDoneMsg{report: job.Run(ctx)}
	}
}

func copyCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return clipboardMsg{text: text, err: clipboard.WriteAll(text)}
	}
}

func displayName(out reconcile.Outcome) string {
	switch {
	case out.Record.GameName != "":
		return out.Record.GameName
	case out.Record.GameID != "":
		return out.Record.GameID
	default:
		return out.DownloadID
	}
}
