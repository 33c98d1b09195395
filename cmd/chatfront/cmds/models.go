package cmds

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newModelsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Inspect the model catalog",
	}
	cmd.AddCommand(newModelsListCommand(app), newModelsResolveCommand(app))
	return cmd
}

func newModelsListCommand(app *App) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List selectable models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.Catalog()
			if err != nil {
				return err
			}
			return render(app.Out, format, c.Options, func() error {
				rows := make([][]string, 0, len(c.Options))
				for _, o := range c.Options {
					value := o.Value
					if value == c.Default {
						value += " *"
					}
					rows = append(rows, []string{value, o.Label, o.Provider, strings.Join(o.Aliases, ", ")})
				}
				_, err := fmt.Fprint(app.Out, renderTable([]string{"VALUE", "LABEL", "PROVIDER", "ALIASES"}, rows))
				return err
			})
		},
	}
	addOutputFlag(cmd, &format)
	return cmd
}

func newModelsResolveCommand(app *App) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "resolve <model>",
		Short: "Show which model a stored identifier is sent as",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.Catalog()
			if err != nil {
				return err
			}
			sel := c.Select(args[0])
			return render(app.Out, format, sel, func() error {
				_, err := fmt.Fprintln(app.Out, sel.String())
				return err
			})
		},
	}
	addOutputFlag(cmd, &format)
	return cmd
}
