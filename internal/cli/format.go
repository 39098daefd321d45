package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"focusflow/internal/model"
	"focusflow/internal/session"
	"focusflow/internal/timer"
)

// Theme colours the countdown by phase.
type Theme struct {
	Focus  lipgloss.Style
	Break  lipgloss.Style
	Done   lipgloss.Style
	Ended  lipgloss.Style
	Dim    lipgloss.Style
	Header lipgloss.Style
}

var (
	colorGreen  = lipgloss.Color("#8ec07c")
	colorYellow = lipgloss.Color("#fabd2f")
	colorRed    = lipgloss.Color("#fb4934")
	colorBlue   = lipgloss.Color("#83a598")
	colorDim    = lipgloss.Color("#928374")
	colorHeader = lipgloss.Color("#fe8019")
)

func ThemeFor(name string) Theme {
	switch strings.ToLower(name) {
	case "mono":
		plain := lipgloss.NewStyle()
		return Theme{Focus: plain.Bold(true), Break: plain, Done: plain.Bold(true), Ended: plain, Dim: plain, Header: plain.Bold(true)}
	case "dark":
		return Theme{
			Focus:  lipgloss.NewStyle().Foreground(colorBlue).Bold(true),
			Break:  lipgloss.NewStyle().Foreground(colorGreen),
			Done:   lipgloss.NewStyle().Foreground(colorGreen).Bold(true),
			Ended:  lipgloss.NewStyle().Foreground(colorDim),
			Dim:    lipgloss.NewStyle().Foreground(colorDim),
			Header: lipgloss.NewStyle().Foreground(colorBlue).Bold(true),
		}
	default:
		return Theme{
			Focus:  lipgloss.NewStyle().Foreground(colorRed).Bold(true),
			Break:  lipgloss.NewStyle().Foreground(colorGreen).Bold(true),
			Done:   lipgloss.NewStyle().Foreground(colorYellow).Bold(true),
			Ended:  lipgloss.NewStyle().Foreground(colorDim),
			Dim:    lipgloss.NewStyle().Foreground(colorDim),
			Header: lipgloss.NewStyle().Foreground(colorHeader).Bold(true),
		}
	}
}

// Style picks the style for the session's current phase.
func (t Theme) Style(s model.Session) lipgloss.Style {
	switch {
	case s.Status == model.StatusCompleted:
		return t.Done
	case s.Status == model.StatusEndedEarly:
		return t.Ended
	case s.IsBreak:
		return t.Break
	default:
		return t.Focus
	}
}

// FormatClock renders seconds as MM:SS. Hours roll into the minutes.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func PhaseLabel(s model.Session) string {
	switch {
	case s.Status == model.StatusCompleted:
		return "Completed"
	case s.Status == model.StatusEndedEarly:
		return "Ended early"
	case s.InLongBreak():
		return "Long break"
	case s.IsBreak:
		return "Break"
	default:
		return "Focus"
	}
}

func StateLabel(st session.State) string {
	return strings.ReplaceAll(strings.ToLower(string(st)), "_", " ")
}

// StatusLine is the one-line summary used by plain output.
func StatusLine(s model.Session, st session.State) string {
	return fmt.Sprintf("%s %s  cycle %d/%d  %s",
		PhaseLabel(s), FormatClock(s.TimeLeftSeconds), s.CurrentCycle, s.TotalCycles, StateLabel(st))
}

// EventLine renders a runner event for plain output. State events for
// unchanged clocks return "".
func EventLine(ev timer.Event, theme Theme) string {
	stamp := theme.Dim.Render(ev.At.Format(time.TimeOnly))
	switch ev.Type {
	case timer.EventState:
		return stamp + " " + theme.Style(ev.Session).Render(StatusLine(ev.Session, ev.State))
	case timer.EventActivity:
		return stamp + " " + ev.Note.Message
	case timer.EventAlarm:
		return "\a" + stamp + " " + theme.Header.Render(fmt.Sprintf("alarm (%s): %s", ev.Sound, PhaseLabel(ev.Session)))
	case timer.EventEnded:
		return stamp + " " + theme.Style(ev.Session).Render("Session "+PhaseLabel(ev.Session))
	}
	return ""
}

func parseCommand(input string) (timer.Command, bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "s", "start":
		return timer.CommandStart, true
	case "p", "pause":
		return timer.CommandPause, true
	case "t", "toggle", "":
		return timer.CommandToggle, true
	case "r", "reset":
		return timer.CommandReset, true
	case "e", "end":
		return timer.CommandEnd, true
	}
	return "", false
}
