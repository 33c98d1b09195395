package cmds

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/chatfront/pkg/ui"
)

func newTUICommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tui [session]",
		Short: "Open the interactive session browser and chat",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isatty.IsTerminal(os.Stdout.Fd()) {
				return errors.New("tui needs a terminal on stdout")
			}
			bus, err := app.Bus()
			if err != nil {
				return err
			}
			alerts := ui.NewAlertQueue()
			ws, err := app.Workspace(cmd.Context(), bus, alerts)
			if err != nil {
				return err
			}
			opts := ui.Options{
				Workspace:    ws,
				Bus:          bus,
				Alerts:       alerts,
				PreviewLimit: app.Settings.PreviewLimit,
			}
			if len(args) == 1 {
				opts.Initial = args[0]
			}
			return ui.Run(cmd.Context(), opts)
		},
	}
}
