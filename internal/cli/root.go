package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"focusflow/internal/config"
	"focusflow/internal/storeclient"
)

// App holds what the participant commands share. Fields left nil get
// process defaults in NewRootCmd.
type App struct {
	Config      config.ClientConfig
	Preferences config.Preferences

	In  io.Reader
	Out io.Writer
	Err io.Writer

	// IsInteractive selects the countdown view over plain line output.
	IsInteractive func() bool
	// Bell rings the terminal for phase alarms in the countdown view.
	Bell   func()
	Clock  clockwork.Clock
	Logger *slog.Logger

	client *storeclient.Client
}

// NewRootCmd creates the top-level "focusflow" command.
func NewRootCmd(app *App) *cobra.Command {
	if app.In == nil {
		app.In = os.Stdin
	}
	if app.Out == nil {
		app.Out = os.Stdout
	}
	if app.Err == nil {
		app.Err = os.Stderr
	}
	if app.IsInteractive == nil {
		app.IsInteractive = func() bool { return false }
	}
	if app.Bell == nil {
		app.Bell = func() { fmt.Fprint(app.Err, "\a") }
	}
	if app.Clock == nil {
		app.Clock = clockwork.NewRealClock()
	}
	if app.Logger == nil {
		app.Logger = config.NewLogger(app.Err, "warn", "text")
	}

	root := &cobra.Command{
		Use:           "focusflow",
		Short:         "Shared focus sessions from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init()
		},
	}
	root.SetIn(app.In)
	root.SetOut(app.Out)
	root.SetErr(app.Err)
	config.BindClientFlags(root.PersistentFlags(), &app.Config)

	root.AddCommand(
		newRegisterCmd(app),
		newLoginCmd(app),
		newCreateCmd(app),
		newJoinCmd(app),
		newRunCmd(app),
		newHistoryCmd(app),
		newActivitiesCmd(app),
		newTipCmd(app),
	)
	return root
}

func (a *App) init() error {
	prefs, err := config.LoadPreferences(a.Config.PreferencesPath)
	if err != nil {
		return err
	}
	a.Preferences = prefs

	token := a.Config.Token
	if token == "" {
		token = prefs.Token
	}
	a.client = storeclient.New(a.Config.Server, token)
	return nil
}

// saveToken remembers the login for later invocations.
func (a *App) saveToken(token string) error {
	a.Preferences.Token = token
	return config.SavePreferences(a.Config.PreferencesPath, a.Preferences)
}

func (a *App) requireLogin() error {
	if a.client.Token() == "" {
		return fmt.Errorf("not logged in: run `focusflow login` or pass --token")
	}
	return nil
}
