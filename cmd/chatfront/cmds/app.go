package cmds

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatfront/pkg/api"
	"github.com/go-go-golems/chatfront/pkg/config"
	"github.com/go-go-golems/chatfront/pkg/events"
	"github.com/go-go-golems/chatfront/pkg/failure"
	"github.com/go-go-golems/chatfront/pkg/models"
	"github.com/go-go-golems/chatfront/pkg/redisstream"
	"github.com/go-go-golems/chatfront/pkg/session"
	"github.com/go-go-golems/chatfront/pkg/voice"
)

// App carries the resolved settings and process streams to every command.
type App struct {
	Settings *config.Settings
	Out      io.Writer
	Err      io.Writer
	In       io.Reader
	// Capturer overrides the recorder probed from settings.
	Capturer voice.Capturer

	closers []io.Closer
}

func (a *App) Client() (*api.Client, error) {
	if a.Settings == nil {
		return nil, errors.New("settings not loaded")
	}
	return api.NewClient(a.Settings.APIBaseURL,
		api.WithTimeout(a.Settings.RequestTimeout),
		api.WithCredentials(api.Credentials{UserID: a.Settings.UserID, Token: a.Settings.Token}),
	)
}

func (a *App) Catalog() (*models.Catalog, error) {
	if a.Settings != nil && a.Settings.ModelCatalog != "" {
		return models.LoadFile(a.Settings.ModelCatalog)
	}
	return models.Builtin(), nil
}

// Bus builds the event router: Redis Streams when enabled, in-memory otherwise.
func (a *App) Bus() (*events.Router, error) {
	r, err := redisstream.BuildRouter(redisstream.FromConfig(a.Settings.Redis))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, r)
	return r, nil
}

// Alerter prints alerts to stderr.
func (a *App) Alerter() failure.Alerter {
	return failure.AlerterFunc(func(msg string) {
		_, _ = fmt.Fprintf(a.Err, "alert: %s\n", msg)
	})
}

// Workspace builds the engine. sink and alerter may be nil.
func (a *App) Workspace(ctx context.Context, sink events.Sink, alerter failure.Alerter) (*session.Workspace, error) {
	c, err := a.Client()
	if err != nil {
		return nil, err
	}
	catalog, err := a.Catalog()
	if err != nil {
		return nil, err
	}
	if alerter == nil {
		alerter = a.Alerter()
	}
	capturer := a.Capturer
	if capturer == nil {
		capturer = voice.NewCapturer(a.Settings.RecorderCommand)
	}
	ws, err := session.NewWorkspace(ctx, session.Options{
		Client:       c,
		Catalog:      catalog,
		Sink:         sink,
		Alerter:      alerter,
		CopyAckDelay: a.Settings.CopyAckDelay,
		Capturer:     capturer,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closerFunc(func() error {
		ws.Close()
		return nil
	}))
	return ws, nil
}

// Close releases everything the commands opened, newest first.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			log.Debug().Err(err).Msg("close")
		}
	}
	a.closers = nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
