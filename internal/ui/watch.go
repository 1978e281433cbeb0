package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/skysync/internal/jobs"
)

// tailLines bounds how much of the tool's log the watch view shows.
const tailLines = 8

type progressMsg jobs.Update

type updatesClosedMsg struct{}

type doneMsg struct {
	err error
}

// WatchModel renders a single in-flight run.
type WatchModel struct {
	description string
	job         *jobs.Job
	done        <-chan error

	spinner  spinner.Model
	progress jobs.Update
	started  time.Time
	finished bool
	err      error
}

// NewWatchModel creates the watch view for a run handle's job and outcome
// channel.
func NewWatchModel(description string, job *jobs.Job, done <-chan error) *WatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.title
	return &WatchModel{
		description: description,
		job:         job,
		done:        done,
		spinner:     s,
		started:     time.Now(),
	}
}

func (m *WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForUpdate(), m.waitForDone())
}

// waitForUpdate blocks on the job's progress channel and converts each
// delivery into a message. Re-issued after every receipt.
func (m *WatchModel) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		update, ok := <-m.job.Updates()
		if !ok {
			return updatesClosedMsg{}
		}
		return progressMsg(update)
	}
}

func (m *WatchModel) waitForDone() tea.Cmd {
	return func() tea.Msg {
		return doneMsg{err: <-m.done}
	}
}

func (m *WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			// the run itself keeps going; only the view exits
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		if m.finished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progressMsg:
		m.progress = jobs.Update(msg)
		return m, m.waitForUpdate()

	case updatesClosedMsg:
		return m, nil

	case doneMsg:
		m.finished = true
		m.err = msg.err
		return m, tea.Quit
	}

	return m, nil
}

func (m *WatchModel) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("skysync · "+m.description) + "\n")

	switch {
	case !m.finished:
		status := m.progress.Message
		if status == "" {
			status = "starting transfer..."
		}
		b.WriteString(fmt.Sprintf("%s %s\n", m.spinner.View(), status))
		b.WriteString(styles.help.Render(fmt.Sprintf("elapsed %s · q to detach", time.Since(m.started).Round(time.Second))) + "\n")
	case m.err != nil:
		b.WriteString(styles.err.Render("✗ run failed") + "\n")
		b.WriteString(fmt.Sprintf("%v\n", m.err))
	default:
		b.WriteString(styles.ok.Render("✓ run finished") + "\n")
	}

	if tail := m.logTail(); tail != "" {
		b.WriteString("\n" + styles.help.Render(tail) + "\n")
	}

	return b.String()
}

// Err exposes the run outcome once the program returns.
func (m *WatchModel) Err() error {
	return m.err
}

func (m *WatchModel) logTail() string {
	lines := strings.Split(strings.TrimRight(m.job.Output(), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return ""
	}
	if len(lines) > tailLines {
		lines = lines[len(lines)-tailLines:]
	}
	return strings.Join(lines, "\n")
}
