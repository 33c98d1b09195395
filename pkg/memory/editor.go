// Package memory edits a session's persistent notes.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatfront/pkg/failure"
)

// StatusSaveFailed is shown after a failed save until the status clears.
const StatusSaveFailed = "Error saving memory"

// DefaultStatusDelay is how long a status message stays visible.
const DefaultStatusDelay = 2 * time.Second

type Client interface {
	GetMemory(ctx context.Context, sessionID string) (string, error)
	SaveMemory(ctx context.Context, sessionID, memory string) error
}

type Editor struct {
	client Client
	delay  time.Duration

	mu        sync.Mutex
	sessionID string
	// loaded is the session whose notes text holds.
	loaded string
	text   string
	status string
	saving bool
	clear  *time.Timer
}

func NewEditor(c Client, statusDelay time.Duration) (*Editor, error) {
	if c == nil {
		return nil, errors.New("memory: client is nil")
	}
	if statusDelay <= 0 {
		statusDelay = DefaultStatusDelay
	}
	return &Editor{client: c, delay: statusDelay}, nil
}

// Load fetches the notes for sessionID. A failed reload of the same session
// keeps the text; a failed load of another session clears it and Save is
// refused until a load succeeds.
func (e *Editor) Load(ctx context.Context, sessionID string) (string, error) {
	e.mu.Lock()
	e.sessionID = sessionID
	if e.loaded != sessionID {
		e.loaded, e.text = "", ""
	}
	e.mu.Unlock()

	text, err := e.client.GetMemory(ctx, sessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to load memory")
		return e.Text(), failure.Load("load memory", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sessionID != sessionID {
		return e.text, nil
	}
	e.loaded, e.text = sessionID, text
	return text, nil
}

func (e *Editor) Text() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.text
}

func (e *Editor) SetText(s string) {
	e.mu.Lock()
	e.text = s
	e.mu.Unlock()
}

// Status is the transient message under the editor.
func (e *Editor) Status() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

func (e *Editor) Saving() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saving
}

// Save posts the current text. A failure sets StatusSaveFailed; the status is
// cleared after the status delay either way.
func (e *Editor) Save(ctx context.Context) error {
	e.mu.Lock()
	if e.saving {
		e.mu.Unlock()
		return errors.New("memory save already in progress")
	}
	if e.sessionID == "" {
		e.mu.Unlock()
		return failure.Precondition("save memory", "no session selected")
	}
	if e.loaded != e.sessionID {
		e.mu.Unlock()
		return failure.Precondition("save memory", "memory not loaded")
	}
	e.saving = true
	sid, text := e.sessionID, e.text
	e.mu.Unlock()

	err := e.client.SaveMemory(ctx, sid, text)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.saving = false
	if err != nil {
		log.Error().Err(err).Str("session_id", sid).Msg("failed to save memory")
		e.status = StatusSaveFailed
		err = failure.Submit("save memory", err)
	} else {
		log.Info().Str("session_id", sid).Int("chars", len(text)).Msg("memory saved")
	}
	if e.clear != nil {
		e.clear.Stop()
	}
	e.clear = time.AfterFunc(e.delay, func() {
		e.mu.Lock()
		e.status = ""
		e.mu.Unlock()
	})
	return err
}

func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.clear != nil {
		e.clear.Stop()
		e.clear = nil
	}
}
