package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"focusflow/internal/model"
	"focusflow/internal/session"
	"focusflow/internal/timer"
)

const maxNotes = 5

type eventMsg timer.Event

type eventsClosedMsg struct{}

type sendResultMsg struct{ err error }

// countdownModel renders one runner. Commands go out through send; events
// come back through the runner's subscription.
type countdownModel struct {
	events <-chan timer.Event
	send   func(timer.Command) error
	bell   func()
	theme  Theme

	session model.Session
	state   session.State
	notes   []string
	err     error
	done    bool
}

func newCountdownModel(s model.Session, events <-chan timer.Event, send func(timer.Command) error, bell func(), theme Theme) countdownModel {
	return countdownModel{
		events:  events,
		send:    send,
		bell:    bell,
		theme:   theme,
		session: s,
		state:   session.StateOf(s),
	}
}

func waitForEvent(events <-chan timer.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m countdownModel) sendCmd(cmd timer.Command) tea.Cmd {
	return func() tea.Msg {
		return sendResultMsg{err: m.send(cmd)}
	}
}

func (m countdownModel) Init() tea.Cmd {
	return waitForEvent(m.events)
}

func (m countdownModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()
		if msg.Type == tea.KeySpace {
			key = " "
		}
		switch key {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ", "enter", "t":
			return m, m.sendCmd(timer.CommandToggle)
		case "s":
			return m, m.sendCmd(timer.CommandStart)
		case "p":
			return m, m.sendCmd(timer.CommandPause)
		case "r":
			return m, m.sendCmd(timer.CommandReset)
		case "e":
			return m, m.sendCmd(timer.CommandEnd)
		}
		return m, nil

	case sendResultMsg:
		m.err = msg.err
		return m, nil

	case eventMsg:
		ev := timer.Event(msg)
		m.session = ev.Session
		m.state = ev.State
		switch ev.Type {
		case timer.EventActivity:
			m.notes = append(m.notes, ev.Note.Message)
			if len(m.notes) > maxNotes {
				m.notes = m.notes[len(m.notes)-maxNotes:]
			}
		case timer.EventAlarm:
			if m.bell != nil {
				m.bell()
			}
		case timer.EventEnded:
			m.done = true
		}
		return m, waitForEvent(m.events)

	case eventsClosedMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m countdownModel) View() string {
	var b strings.Builder
	style := m.theme.Style(m.session)

	fmt.Fprintf(&b, "%s  %s\n\n", m.theme.Header.Render("FocusFlow"), m.theme.Dim.Render("code "+m.session.Code))
	fmt.Fprintf(&b, "  %s  %s\n", style.Render(FormatClock(m.session.TimeLeftSeconds)), style.Render(PhaseLabel(m.session)))
	fmt.Fprintf(&b, "  cycle %d/%d  %s\n\n", m.session.CurrentCycle, m.session.TotalCycles, m.theme.Dim.Render(StateLabel(m.state)))

	for _, note := range m.notes {
		fmt.Fprintf(&b, "  %s\n", m.theme.Dim.Render("• "+note))
	}
	if len(m.notes) > 0 {
		b.WriteString("\n")
	}
	if m.err != nil {
		fmt.Fprintf(&b, "  %s\n\n", m.theme.Ended.Render(m.err.Error()))
	}
	if m.done {
		b.WriteString(m.theme.Dim.Render("  session over, press q to exit") + "\n")
	} else {
		b.WriteString(m.theme.Dim.Render("  space toggle · r reset · e end · q quit") + "\n")
	}
	return b.String()
}

// runTUI drives runner behind a bubbletea program until the user quits or
// the session ends.
func runTUI(ctx context.Context, runner *timer.Runner, theme Theme, bell func()) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := runner.Subscribe(64)
	result := make(chan error, 1)
	go func() { result <- runner.Run(runCtx) }()

	send := func(cmd timer.Command) error { return runner.Send(runCtx, cmd) }
	program := tea.NewProgram(newCountdownModel(runner.Session(), events, send, bell, theme), tea.WithContext(ctx))
	_, err := program.Run()

	cancel()
	runErr := <-result
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("run countdown view: %w", err)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}
