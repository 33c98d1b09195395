package cmds

import (
	"github.com/spf13/cobra"

	"github.com/go-go-golems/chatfront/pkg/config"
	"github.com/go-go-golems/chatfront/pkg/logging"
)

// NewRootCommand builds the chatfront command tree around app. Streams left
// nil on app are not touched until a command needs them.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "chatfront",
		Short:         "chatfront is a terminal client for a hosted chat backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			s, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			closer, err := logging.Init(logging.Settings{
				Level:  s.LogLevel,
				Format: s.LogFormat,
				File:   s.LogFile,
			})
			if err != nil {
				return err
			}
			app.closers = append(app.closers, closer)
			app.Settings = s
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.Close()
		},
	}
	config.AddFlags(root.PersistentFlags())

	root.AddCommand(
		newSessionsCommand(app),
		newChatCommand(app),
		newAttachCommand(app),
		newVoiceCommand(app),
		newMemoryCommand(app),
		newModelsCommand(app),
		newTUICommand(app),
	)
	return root
}
