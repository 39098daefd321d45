package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"focusflow/internal/model"
	"focusflow/internal/storeclient"
	"focusflow/internal/timer"
)

func (a *App) runSession(cmd *cobra.Command, s *model.Session) error {
	interactive := a.IsInteractive()
	logger := a.Logger
	if interactive {
		// Log lines would tear the countdown view.
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	channel := storeclient.NewChannel(a.client, storeclient.ChannelOptions{Logger: logger})
	runner := timer.NewRunner(*s, a.client, channel, timer.Options{
		Clock:               a.Clock,
		Logger:              logger,
		ClientID:            a.client.ClientID(),
		BroadcastEveryTicks: a.Preferences.BroadcastEveryTicks,
		WatchdogInterval:    a.Preferences.WatchdogInterval(),
		PauseBetweenPhases:  a.Preferences.PauseBetweenPhases,
		AlarmSound:          a.Preferences.AlarmSound,
	})

	theme := ThemeFor(a.Preferences.Theme)
	if interactive {
		return runTUI(cmd.Context(), runner, theme, a.Bell)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Session %s: type start, pause, reset, end or quit\n", s.Code)
	return runPlain(cmd.Context(), runner, a.In, cmd.OutOrStdout(), theme, logger)
}

// runPlain prints runner events as lines and reads commands from in, one
// per line, until the session ends or the user quits.
func runPlain(ctx context.Context, runner *timer.Runner, in io.Reader, out io.Writer, theme Theme, logger *slog.Logger) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := runner.Subscribe(256)
	result := make(chan error, 1)
	go func() { result <- runner.Run(runCtx) }()
	go readCommands(runCtx, in, runner, cancel, logger)

	for ev := range events {
		if line := EventLine(ev, theme); line != "" {
			fmt.Fprintln(out, line)
		}
	}

	err := <-result
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func readCommands(ctx context.Context, in io.Reader, runner *timer.Runner, quit func(), logger *slog.Logger) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(line, "q") || strings.EqualFold(line, "quit") {
			quit()
			return
		}
		cmd, ok := parseCommand(line)
		if !ok {
			logger.Warn("unknown command", "input", line)
			continue
		}
		if err := runner.Send(ctx, cmd); err != nil {
			return
		}
	}
}
