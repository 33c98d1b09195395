// Package composer turns user input into timeline entries and authoritative
// round trips.
package composer

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatfront/pkg/api"
	"github.com/go-go-golems/chatfront/pkg/events"
	"github.com/go-go-golems/chatfront/pkg/failure"
	"github.com/go-go-golems/chatfront/pkg/models"
	"github.com/go-go-golems/chatfront/pkg/timeline"
)

// Sender performs the authoritative round trip.
type Sender interface {
	Send(ctx context.Context, req api.SendRequest) (*api.SendResponse, error)
}

type Config struct {
	Client   Sender
	Timeline *timeline.Timeline
	Model    *models.Holder
	// Session returns the active session id at submit time.
	Session func() string
	UserID  string
	Sink    events.Sink
}

// Composer coordinates optimistic append, send and wholesale replacement.
type Composer struct {
	client   Sender
	timeline *timeline.Timeline
	model    *models.Holder
	session  func() string
	userID   string
	sink     events.Sink

	mu       sync.Mutex
	draft    string
	requests map[string]*RequestRecord
	seq      uint64
	inflight int
}

// Result describes a completed submit.
type Result struct {
	IdempotencyKey string
	// Index is where the optimistic message was appended.
	Index int
	// Applied is false when a more complete history had already replaced the timeline.
	Applied bool
	History []api.Message
}

func New(cfg Config) (*Composer, error) {
	if cfg.Client == nil {
		return nil, errors.New("composer: client is nil")
	}
	if cfg.Timeline == nil {
		return nil, errors.New("composer: timeline is nil")
	}
	if cfg.Session == nil {
		return nil, errors.New("composer: session source is nil")
	}
	if cfg.Model == nil {
		cfg.Model = models.NewHolder(nil)
	}
	return &Composer{
		client:   cfg.Client,
		timeline: cfg.Timeline,
		model:    cfg.Model,
		session:  cfg.Session,
		userID:   cfg.UserID,
		sink:     cfg.Sink,
		requests: map[string]*RequestRecord{},
	}, nil
}

func (c *Composer) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

func (c *Composer) SetDraft(s string) {
	c.mu.Lock()
	c.draft = s
	c.mu.Unlock()
}

// Busy is true while any round trip is in flight; the compose affordance is
// disabled meanwhile.
func (c *Composer) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight > 0
}

// SubmitDraft sends the draft as a text turn and clears it.
func (c *Composer) SubmitDraft(ctx context.Context) (*Result, error) {
	c.mu.Lock()
	text := strings.TrimSpace(c.draft)
	if text == "" {
		c.mu.Unlock()
		return nil, ErrEmptyTurn
	}
	c.draft = ""
	c.mu.Unlock()
	return c.SubmitTurn(ctx, Turn{Text: text})
}

// Preview pins an optimistic message without a round trip and returns its
// index. The preview survives canonical replacements until Settle or a
// session change, and release runs when it is dropped. Attachment previews
// are keyed by their correlation id.
func (c *Composer) Preview(t Turn, release func()) (int, error) {
	if t.Empty() {
		return -1, ErrEmptyTurn
	}
	if err := t.Attachment.Validate(); err != nil {
		return -1, err
	}
	key := uuid.NewString()
	if t.Attachment != nil && t.Attachment.CorrelationID != "" {
		key = t.Attachment.CorrelationID
	}
	return c.timeline.Pin(key, t.Message(), release), nil
}

// Settle stops carrying the preview for correlationID. It disappears with
// the next canonical replacement.
func (c *Composer) Settle(correlationID string) bool {
	return c.timeline.Unpin(correlationID)
}

// SubmitTurn appends the optimistic message, sends the effective payload and
// replaces the timeline with the returned canonical history. On failure the
// optimistic message stays and the error is a submit failure.
func (c *Composer) SubmitTurn(ctx context.Context, t Turn) (*Result, error) {
	if t.Empty() {
		return nil, ErrEmptyTurn
	}
	if err := t.Attachment.Validate(); err != nil {
		return nil, err
	}
	if t.Attachment.IsLocal() {
		return nil, errors.Errorf("attachment %q has not been uploaded", t.Attachment.Name)
	}
	sessionID := c.session()
	if sessionID == "" {
		return nil, failure.Precondition("send turn", "no active session")
	}
	if c.userID == "" {
		return nil, failure.Precondition("send turn", "user not authenticated")
	}

	key := uuid.NewString()
	corr := ""
	if t.Attachment != nil {
		corr = t.Attachment.CorrelationID
	}

	idx := c.timeline.Append(t.Message())

	c.mu.Lock()
	rec := c.startRecordLocked(key, corr)
	c.mu.Unlock()
	c.emitBusy(sessionID)

	sel := c.model.Current()
	resp, err := c.client.Send(ctx, api.SendRequest{
		SessionID:      sessionID,
		Message:        t.Payload(),
		SelectedModel:  sel.Effective,
		UserID:         c.userID,
		File:           t.Attachment,
		IdempotencyKey: key,
	})
	if err != nil {
		c.mu.Lock()
		c.finishRecordLocked(rec, StatusError, err)
		c.mu.Unlock()
		c.emitBusy(sessionID)
		log.Error().Err(err).Str("session_id", sessionID).Str("idempotency_key", key).Msg("send failed")
		return nil, failure.Submit("send turn", err)
	}

	// The timeline holds the baseline shared with history loads, so a result
	// older than anything already shown is dropped as stale.
	applied := c.session() == sessionID && c.timeline.ApplyCanonical(sessionID, resp.History, rec.Seq)

	status := StatusCompleted
	if !applied {
		status = StatusStale
	}
	c.mu.Lock()
	c.finishRecordLocked(rec, status, nil)
	c.mu.Unlock()
	c.emitBusy(sessionID)

	log.Info().
		Str("session_id", sessionID).
		Str("idempotency_key", key).
		Str("model", sel.Effective).
		Int("history", len(resp.History)).
		Bool("applied", applied).
		Msg("turn submitted")
	return &Result{IdempotencyKey: key, Index: idx, Applied: applied, History: resp.History}, nil
}

func (c *Composer) emitBusy(sessionID string) {
	state := "idle"
	if c.Busy() {
		state = "busy"
	}
	events.Emit(c.sink, events.Event{Type: events.TypeComposerBusy, SessionID: sessionID, State: state})
}
