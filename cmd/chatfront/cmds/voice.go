package cmds

import (
	"bufio"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newVoiceCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "voice",
		Short: "Record voice messages",
	}
	cmd.AddCommand(newVoiceRecordCommand(app))
	return cmd
}

func newVoiceRecordCommand(app *App) *cobra.Command {
	var (
		duration time.Duration
		send     bool
	)
	cmd := &cobra.Command{
		Use:   "record <session>",
		Short: "Record a clip, upload it and print the transcription",
		Long: "Record a clip with the local recorder. Recording stops after --duration,\n" +
			"or when enter is pressed if no duration is given.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(cmd, app, args[0])
			if err != nil {
				return err
			}
			if err := s.Voice.Start(ctx); err != nil {
				return err
			}

			if duration > 0 {
				_, _ = fmt.Fprintf(app.Err, "recording with %s for %s...\n", s.Voice.CapturerName(), duration)
				select {
				case <-time.After(duration):
				case <-ctx.Done():
					s.Voice.Cancel()
					return ctx.Err()
				}
			} else {
				_, _ = fmt.Fprintf(app.Err, "recording with %s, press enter to stop\n", s.Voice.CapturerName())
				pressed := make(chan struct{})
				go func() {
					_, _ = bufio.NewReader(app.In).ReadString('\n')
					close(pressed)
				}()
				select {
				case <-pressed:
				case <-ctx.Done():
					s.Voice.Cancel()
					return ctx.Err()
				}
			}

			_, _ = fmt.Fprintf(app.Err, "uploading %s of audio\n", s.Voice.Elapsed())
			text, err := s.Voice.StopAndUpload(ctx)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintln(app.Out, text); err != nil {
				return err
			}
			if !send {
				return nil
			}
			res, err := s.Send(ctx)
			if err != nil {
				return err
			}
			if len(res.History) > res.Index+1 {
				_, err = fmt.Fprintln(app.Out, res.History[len(res.History)-1].Text)
			}
			return err
		},
	}
	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "Stop recording after this long")
	cmd.Flags().BoolVar(&send, "send", false, "Send the transcription as a message")
	return cmd
}
