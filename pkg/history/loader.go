// Package history seeds a session's timeline and model selection from the
// server on session entry.
package history

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatfront/pkg/api"
	"github.com/go-go-golems/chatfront/pkg/failure"
	"github.com/go-go-golems/chatfront/pkg/models"
	"github.com/go-go-golems/chatfront/pkg/timeline"
)

// Fetcher loads canonical history.
type Fetcher interface {
	History(ctx context.Context, sessionID string) (*api.HistoryResponse, error)
}

// Loader fetches history once per distinct session entry.
type Loader struct {
	fetcher  Fetcher
	timeline *timeline.Timeline
	model    *models.Holder

	mu      sync.Mutex
	entered string
	gen     uint64
}

func NewLoader(f Fetcher, tl *timeline.Timeline, model *models.Holder) *Loader {
	return &Loader{fetcher: f, timeline: tl, model: model}
}

// Active returns the session id currently entered.
func (l *Loader) Active() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entered
}

// Enter makes sessionID the active session and loads it. Entering the session
// that is already active does nothing; entering another one (including
// returning to a previous one) fetches again. The timeline is cleared before
// the fetch, so a failed load leaves the new session empty rather than
// showing the previous one.
func (l *Loader) Enter(ctx context.Context, sessionID string) error {
	l.mu.Lock()
	if sessionID == l.entered {
		l.mu.Unlock()
		return nil
	}
	l.entered = sessionID
	l.gen++
	l.mu.Unlock()

	if sessionID == "" {
		return nil
	}
	l.timeline.Reset(sessionID)
	return l.Load(ctx, sessionID)
}

// Leave clears the active session so the next Enter fetches.
func (l *Loader) Leave() {
	l.mu.Lock()
	l.entered = ""
	l.gen++
	l.mu.Unlock()
}

// Load fetches the session and, on success, replaces the timeline and model
// selection. On failure the prior state is kept. Results for a session that
// is no longer active are dropped.
func (l *Loader) Load(ctx context.Context, sessionID string) error {
	l.mu.Lock()
	gen := l.gen
	l.mu.Unlock()

	resp, err := l.fetcher.History(ctx, sessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to load history")
		return failure.Load("load history", err)
	}

	l.mu.Lock()
	stale := gen != l.gen || sessionID != l.entered
	l.mu.Unlock()
	if stale {
		log.Debug().Str("session_id", sessionID).Msg("dropping history for inactive session")
		return nil
	}

	l.timeline.Replace(resp.Messages)
	if l.model != nil {
		l.model.Select(resp.SelectedModel)
	}
	log.Info().Str("session_id", sessionID).Int("messages", len(resp.Messages)).Msg("history loaded")
	return nil
}

// Refresh reloads the active session.
func (l *Loader) Refresh(ctx context.Context) error {
	id := l.Active()
	if id == "" {
		return nil
	}
	return l.Load(ctx, id)
}
