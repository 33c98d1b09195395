package session

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatfront/pkg/directory"
)

// Workspace pairs the user's directory with the active session. Navigating
// from the directory opens the chosen session.
type Workspace struct {
	Directory *directory.Directory
	Session   *Session

	mu  sync.Mutex
	ctx context.Context
}

func NewWorkspace(ctx context.Context, opts Options) (*Workspace, error) {
	s, err := New(opts)
	if err != nil {
		return nil, err
	}
	w := &Workspace{Session: s, ctx: ctx}
	w.Directory, err = directory.New(directory.Config{
		Client:    opts.Client,
		Navigator: w.navigate,
		Alerter:   opts.Alerter,
		Sink:      opts.Sink,
	})
	if err != nil {
		s.Close()
		return nil, errors.Wrap(err, "create directory")
	}
	return w, nil
}

func (w *Workspace) navigate(key string) {
	w.mu.Lock()
	ctx := w.ctx
	w.mu.Unlock()
	if err := w.Session.Open(ctx, key); err != nil {
		log.Warn().Err(err).Str("session_id", key).Msg("could not open session")
	}
}

func (w *Workspace) Close() {
	w.Session.Close()
}
