package cmds

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	input "github.com/tcnksm/go-input"

	"github.com/go-go-golems/chatfront/pkg/directory"
)

type sessionRow struct {
	ID      string `json:"id" yaml:"id"`
	Key     string `json:"key" yaml:"key"`
	Title   string `json:"title" yaml:"title"`
	Model   string `json:"model" yaml:"model"`
	Updated string `json:"updated,omitempty" yaml:"updated,omitempty"`
}

func rowsOf(entries []directory.Entry) []sessionRow {
	rows := make([]sessionRow, 0, len(entries))
	for _, e := range entries {
		r := sessionRow{ID: e.ID, Key: e.Key(), Title: e.Title(), Model: e.Model}
		if !e.UpdatedAt.IsZero() {
			r.Updated = e.UpdatedAt.Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, r)
	}
	return rows
}

func newSessionsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"s"},
		Short:   "List, create, search and delete chat sessions",
	}
	cmd.AddCommand(
		newSessionsListCommand(app),
		newSessionsSearchCommand(app),
		newSessionsNewCommand(app),
		newSessionsDeleteCommand(app),
	)
	return cmd
}

func printSessions(app *App, format string, entries []directory.Entry) error {
	rows := rowsOf(entries)
	return render(app.Out, format, rows, func() error {
		if len(rows) == 0 {
			_, err := fmt.Fprintln(app.Out, "no sessions")
			return err
		}
		tbl := make([][]string, 0, len(rows))
		for _, r := range rows {
			tbl = append(tbl, []string{r.Key, r.Title, r.Model, r.Updated})
		}
		_, err := fmt.Fprint(app.Out, renderTable([]string{"KEY", "TITLE", "MODEL", "UPDATED"}, tbl))
		return err
	})
}

func newSessionsListCommand(app *App) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the sessions of the authenticated user, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := app.Workspace(cmd.Context(), nil, nil)
			if err != nil {
				return err
			}
			entries, err := ws.Directory.List(cmd.Context())
			if err != nil {
				return err
			}
			return printSessions(app, format, entries)
		},
	}
	addOutputFlag(cmd, &format)
	return cmd
}

func newSessionsSearchCommand(app *App) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search session titles and message bodies",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := app.Workspace(cmd.Context(), nil, nil)
			if err != nil {
				return err
			}
			if _, err := ws.Directory.List(cmd.Context()); err != nil {
				return err
			}
			return printSessions(app, format, ws.Directory.Search(strings.Join(args, " ")))
		},
	}
	addOutputFlag(cmd, &format)
	return cmd
}

func newSessionsNewCommand(app *App) *cobra.Command {
	var name, model string
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := app.Workspace(cmd.Context(), nil, nil)
			if err != nil {
				return err
			}
			key, err := ws.Directory.Create(cmd.Context(), name, model)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(app.Out, key)
			return err
		},
	}
	cmd.Flags().StringVar(&name, "name", directory.DefaultName, "Session name")
	cmd.Flags().StringVar(&model, "model", directory.FallbackModel, "Model identifier")
	return cmd
}

func newSessionsDeleteCommand(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id-or-key>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := app.Workspace(cmd.Context(), nil, nil)
			if err != nil {
				return err
			}
			if _, err := ws.Directory.List(cmd.Context()); err != nil {
				return err
			}
			entry, ok := ws.Directory.Lookup(args[0])
			if !ok {
				return errors.Errorf("no session %q", args[0])
			}
			if !yes {
				ok, err := confirm(app, fmt.Sprintf("Delete %q? [y/N]", entry.Title()))
				if err != nil {
					return err
				}
				if !ok {
					_, err = fmt.Fprintln(app.Out, "aborted")
					return err
				}
			}
			if err := ws.Directory.Delete(cmd.Context(), entry.ID); err != nil {
				return err
			}
			_, err = fmt.Fprintf(app.Out, "deleted %s\n", entry.Key())
			return err
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func confirm(app *App, query string) (bool, error) {
	ui := &input.UI{Writer: app.Err, Reader: app.In}
	answer, err := ui.Ask(query, &input.Options{
		Default: "n",
		Loop:    true,
		ValidateFunc: func(answer string) error {
			switch strings.ToLower(answer) {
			case "y", "yes", "n", "no", "":
				return nil
			default:
				return errors.Errorf("please enter 'y' or 'n'")
			}
		},
	})
	if err != nil {
		return false, errors.Wrap(err, "failed to get user input")
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
