package cmds

import (
	"fmt"

	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/chatfront/pkg/attachments"
)

type attachRow struct {
	Name    string `json:"name" yaml:"name"`
	URL     string `json:"url,omitempty" yaml:"url,omitempty"`
	Reply   string `json:"reply,omitempty" yaml:"reply,omitempty"`
	Applied bool   `json:"applied" yaml:"applied"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

func newAttachCommand(app *App) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "attach <session> <file...>",
		Short: "Upload files into a session",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := make([]attachments.File, 0, len(args)-1)
			for _, p := range args[1:] {
				path, err := homedir.Expand(p)
				if err != nil {
					return err
				}
				f, err := attachments.ReadFile(path)
				if err != nil {
					return err
				}
				if !attachments.IsAccepted(f.Name) {
					log.Warn().Str("file", f.Name).Msg("file type is not in the accepted list, uploading anyway")
				}
				files = append(files, f)
			}

			s, err := openSession(cmd, app, args[0])
			if err != nil {
				return err
			}
			results, attachErr := s.Attachments.Attach(cmd.Context(), files)

			rows := make([]attachRow, 0, len(results))
			for _, r := range results {
				row := attachRow{Name: r.Name}
				if r.Canonical != nil {
					row.URL = r.Canonical.URL
				}
				if r.Submit != nil {
					row.Applied = r.Submit.Applied
					if n := len(r.Submit.History); n > 0 {
						row.Reply = r.Submit.History[n-1].Text
					}
				}
				if r.Err != nil {
					row.Error = r.Err.Error()
				}
				rows = append(rows, row)
			}
			err = render(app.Out, format, rows, func() error {
				for _, row := range rows {
					line := fmt.Sprintf("%s  %s", row.Name, row.URL)
					if row.Error != "" {
						line = fmt.Sprintf("%s  failed: %s", row.Name, row.Error)
					}
					if _, err := fmt.Fprintln(app.Out, line); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
			return attachErr
		},
	}
	addOutputFlag(cmd, &format)
	return cmd
}
