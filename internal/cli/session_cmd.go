package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"focusflow/internal/model"
)

func newCreateCmd(app *App) *cobra.Command {
	var params model.CreateSessionParams
	var run bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a shared focus session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return err
			}
			created, err := app.client.Create(cmd.Context(), params)
			if err != nil {
				return fmt.Errorf("create session: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Session %s created: %d x %s focus, %s break, %s long break\n",
				created.Code, created.TotalCycles,
				FormatClock(created.FocusSeconds()), FormatClock(created.BreakSeconds()), FormatClock(created.LongBreakSeconds()))
			if !run {
				return nil
			}
			return app.runSession(cmd, created)
		},
	}

	cmd.Flags().Float64Var(&params.FocusMinutes, "focus", 25, "focus minutes per cycle")
	cmd.Flags().Float64Var(&params.BreakMinutes, "break", 5, "short break minutes")
	cmd.Flags().Float64Var(&params.LongBreakMinutes, "long-break", 15, "long break minutes after the last cycle")
	cmd.Flags().IntVar(&params.TotalCycles, "cycles", 4, "work cycles")
	cmd.Flags().BoolVar(&run, "run", false, "start the countdown after creating")
	return cmd
}

func newJoinCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "join <code>",
		Short: "Join a session by code and follow its countdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return err
			}
			found, err := app.client.GetByCode(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("find session %s: %w", args[0], err)
			}
			joined, err := app.client.Join(cmd.Context(), found.ID)
			if err != nil {
				return fmt.Errorf("join session %s: %w", found.Code, err)
			}
			return app.runSession(cmd, joined)
		},
	}
}

func newRunCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "run <code>",
		Short: "Resume the countdown of a session without announcing a join",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return err
			}
			found, err := app.client.GetByCode(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("find session %s: %w", args[0], err)
			}
			return app.runSession(cmd, found)
		},
	}
}

func newHistoryCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List sessions you created, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return err
			}
			sessions, err := app.client.History(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list history: %w", err)
			}
			if len(sessions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sessions yet.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tSTATUS\tCYCLE\tCREATED")
			for _, s := range sessions {
				fmt.Fprintf(w, "%s\t%s\t%d/%d\t%s\n",
					s.Code, s.Status, s.CurrentCycle, s.TotalCycles, s.CreatedAt.Local().Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum sessions to list (server default when 0)")
	return cmd
}

func newActivitiesCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "activities <code>",
		Short: "Show a session's activity log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return err
			}
			found, err := app.client.GetByCode(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("find session %s: %w", args[0], err)
			}
			activities, err := app.client.Activities(cmd.Context(), found.ID, limit)
			if err != nil {
				return fmt.Errorf("list activities: %w", err)
			}
			for _, a := range activities {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-18s %s\n",
					a.CreatedAt.Local().Format("15:04:05"), strings.ToLower(string(a.Type)), a.Message)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum entries")
	return cmd
}

func newTipCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tip",
		Short: "Print a random focus tip",
		RunE: func(cmd *cobra.Command, args []string) error {
			tip, err := app.client.Tip(cmd.Context())
			if err != nil {
				return fmt.Errorf("get tip: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tip)
			return nil
		},
	}
}
