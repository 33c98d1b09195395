package ui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mitchellh/go-homedir"

	"github.com/go-go-golems/chatfront/pkg/attachments"
	"github.com/go-go-golems/chatfront/pkg/session"
)

type refreshMsg struct{}

type listedMsg struct{ err error }

type openedMsg struct {
	key string
	err error
}

type sentMsg struct{ err error }

type deletedMsg struct{ err error }

type attachedMsg struct {
	results []attachments.Result
	err     error
}

type voiceStartedMsg struct{ err error }

type voiceDoneMsg struct {
	text string
	err  error
}

type memorySavedMsg struct{ err error }

func listCmd(ctx context.Context, ws *session.Workspace) tea.Cmd {
	return func() tea.Msg {
		_, err := ws.Directory.List(ctx)
		return listedMsg{err: err}
	}
}

func openCmd(ctx context.Context, ws *session.Workspace, key string) tea.Cmd {
	return func() tea.Msg {
		return openedMsg{key: key, err: ws.Session.Open(ctx, key)}
	}
}

func enterCmd(ws *session.Workspace) tea.Cmd {
	return func() tea.Msg {
		key, ok := ws.Directory.Enter()
		if !ok {
			return nil
		}
		return openedMsg{key: key}
	}
}

func createCmd(ctx context.Context, ws *session.Workspace) tea.Cmd {
	return func() tea.Msg {
		model := ws.Session.Model.Current().Effective
		key, err := ws.Directory.Create(ctx, "", model)
		return openedMsg{key: key, err: err}
	}
}

func deleteCmd(ctx context.Context, ws *session.Workspace, id string) tea.Cmd {
	return func() tea.Msg {
		return deletedMsg{err: ws.Directory.Delete(ctx, id)}
	}
}

func sendCmd(ctx context.Context, ws *session.Workspace) tea.Cmd {
	return func() tea.Msg {
		_, err := ws.Session.Send(ctx)
		return sentMsg{err: err}
	}
}

// attachCmd reads whitespace-separated paths and runs them through the pipeline.
func attachCmd(ctx context.Context, ws *session.Workspace, line string) tea.Cmd {
	return func() tea.Msg {
		var files []attachments.File
		for _, p := range strings.Fields(line) {
			path, err := homedir.Expand(p)
			if err != nil {
				return attachedMsg{err: err}
			}
			f, err := attachments.ReadFile(path)
			if err != nil {
				return attachedMsg{err: err}
			}
			files = append(files, f)
		}
		if len(files) == 0 {
			return nil
		}
		res, err := ws.Session.Attachments.Attach(ctx, files)
		return attachedMsg{results: res, err: err}
	}
}

func voiceStartCmd(ctx context.Context, ws *session.Workspace) tea.Cmd {
	return func() tea.Msg {
		return voiceStartedMsg{err: ws.Session.Voice.Start(ctx)}
	}
}

func voiceStopCmd(ctx context.Context, ws *session.Workspace) tea.Cmd {
	return func() tea.Msg {
		text, err := ws.Session.Voice.StopAndUpload(ctx)
		return voiceDoneMsg{text: text, err: err}
	}
}

func memorySaveCmd(ctx context.Context, ws *session.Workspace, text string) tea.Cmd {
	return func() tea.Msg {
		ws.Session.Memory.SetText(text)
		return memorySavedMsg{err: ws.Session.Memory.Save(ctx)}
	}
}
