package cmds

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newMemoryCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Read and edit the notes attached to a session",
	}
	cmd.AddCommand(newMemoryGetCommand(app), newMemorySetCommand(app))
	return cmd
}

func newMemoryGetCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "get <session>",
		Short: "Print the session memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := app.Workspace(cmd.Context(), nil, nil)
			if err != nil {
				return err
			}
			text, err := ws.Session.Memory.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(app.Out, text)
			return err
		},
	}
}

func newMemorySetCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set <session> <text...|->",
		Short: "Replace the session memory; - reads it from stdin",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args[1:], " ")
			if text == "-" {
				b, err := io.ReadAll(app.In)
				if err != nil {
					return errors.Wrap(err, "read stdin")
				}
				text = strings.TrimRight(string(b), "\n")
			}

			ws, err := app.Workspace(cmd.Context(), nil, nil)
			if err != nil {
				return err
			}
			m := ws.Session.Memory
			// Load binds the editor to the session; the fetched text is replaced.
			if _, err := m.Load(cmd.Context(), args[0]); err != nil {
				return err
			}
			m.SetText(text)
			if err := m.Save(cmd.Context()); err != nil {
				return err
			}
			_, err = fmt.Fprintln(app.Err, "memory saved")
			return err
		},
	}
}
