package cmds

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/chatfront/pkg/api"
	"github.com/go-go-golems/chatfront/pkg/models"
	"github.com/go-go-golems/chatfront/pkg/session"
	"github.com/go-go-golems/chatfront/pkg/ui"
)

type transcript struct {
	Session  string           `json:"session" yaml:"session"`
	Model    models.Selection `json:"model" yaml:"model"`
	Messages []api.Message    `json:"messages" yaml:"messages"`
}

func newChatCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Read and write the messages of a session",
	}
	cmd.AddCommand(newChatHistoryCommand(app), newChatSendCommand(app))
	return cmd
}

// openSession builds a workspace and enters key.
func openSession(cmd *cobra.Command, app *App, key string) (*session.Session, error) {
	ws, err := app.Workspace(cmd.Context(), nil, nil)
	if err != nil {
		return nil, err
	}
	if err := ws.Session.Open(cmd.Context(), key); err != nil {
		return nil, err
	}
	return ws.Session, nil
}

func printTranscript(app *App, format string, s *session.Session, msgs []api.Message) error {
	t := transcript{Session: s.ID(), Model: s.Model.Current(), Messages: msgs}
	return render(app.Out, format, t, func() error {
		r := ui.NewRenderer(100, app.Settings.PreviewLimit)
		_, err := fmt.Fprintf(app.Out, "%s\n\n%s\n", t.Model, r.Timeline(msgs, -1, nil))
		return err
	})
}

func newChatHistoryCommand(app *App) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "history <session>",
		Short: "Print the messages of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app, args[0])
			if err != nil {
				return err
			}
			return printTranscript(app, format, s, s.Timeline.Messages())
		},
	}
	addOutputFlag(cmd, &format)
	return cmd
}

func newChatSendCommand(app *App) *cobra.Command {
	var (
		format string
		model  string
	)
	cmd := &cobra.Command{
		Use:   "send <session> <message...>",
		Short: "Send a message and print the reply",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app, args[0])
			if err != nil {
				return err
			}
			if model != "" {
				s.SelectModel(model)
			}
			s.Composer.SetDraft(strings.Join(args[1:], " "))
			res, err := s.Send(cmd.Context())
			if err != nil {
				return err
			}
			if len(res.History) <= res.Index+1 {
				return errors.New("server returned no reply")
			}
			return printTranscript(app, format, s, res.History[res.Index+1:])
		},
	}
	addOutputFlag(cmd, &format)
	cmd.Flags().StringVar(&model, "model", "", "Model to use for this turn")
	return cmd
}
