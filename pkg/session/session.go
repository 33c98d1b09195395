// Package session wires the engine for one active chat: timeline, history
// loader, composer, attachment pipeline, voice capture and memory editor,
// all sharing an explicit model selection.
package session

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatfront/pkg/api"
	"github.com/go-go-golems/chatfront/pkg/attachments"
	"github.com/go-go-golems/chatfront/pkg/composer"
	"github.com/go-go-golems/chatfront/pkg/directory"
	"github.com/go-go-golems/chatfront/pkg/events"
	"github.com/go-go-golems/chatfront/pkg/failure"
	"github.com/go-go-golems/chatfront/pkg/history"
	"github.com/go-go-golems/chatfront/pkg/memory"
	"github.com/go-go-golems/chatfront/pkg/models"
	"github.com/go-go-golems/chatfront/pkg/timeline"
	"github.com/go-go-golems/chatfront/pkg/voice"
)

// Client is every server call the engine makes. *api.Client implements it.
type Client interface {
	history.Fetcher
	composer.Sender
	attachments.Uploader
	voice.Uploader
	memory.Client
	directory.Client
}

var _ Client = (*api.Client)(nil)

type Options struct {
	Client       Client
	Catalog      *models.Catalog
	Sink         events.Sink
	Alerter      failure.Alerter
	Clipboard    timeline.Clipboard
	CopyAckDelay time.Duration
	Capturer     voice.Capturer
	// VoiceTick overrides the voice elapsed-counter period.
	VoiceTick   time.Duration
	StatusDelay time.Duration
}

// Session is the engine for the active chat. The model selection is owned
// here and passed to the parts that need it.
type Session struct {
	Model       *models.Holder
	Timeline    *timeline.Timeline
	Loader      *history.Loader
	Composer    *composer.Composer
	Attachments *attachments.Pipeline
	Voice       *voice.Machine
	Memory      *memory.Editor
}

func New(opts Options) (*Session, error) {
	if opts.Client == nil {
		return nil, errors.New("session: client is nil")
	}
	if opts.Catalog == nil {
		opts.Catalog = models.Builtin()
	}
	if opts.Alerter == nil {
		opts.Alerter = failure.NopAlerter
	}

	s := &Session{Model: models.NewHolder(opts.Catalog)}

	tlOpts := []timeline.Option{timeline.WithSink(opts.Sink)}
	if opts.Clipboard != nil {
		tlOpts = append(tlOpts, timeline.WithClipboard(opts.Clipboard))
	}
	if opts.CopyAckDelay > 0 {
		tlOpts = append(tlOpts, timeline.WithCopyAckDelay(opts.CopyAckDelay))
	}
	s.Timeline = timeline.New("", tlOpts...)
	s.Loader = history.NewLoader(opts.Client, s.Timeline, s.Model)

	var err error
	s.Composer, err = composer.New(composer.Config{
		Client:   opts.Client,
		Timeline: s.Timeline,
		Model:    s.Model,
		Session:  s.Loader.Active,
		UserID:   opts.Client.Credentials().UserID,
		Sink:     opts.Sink,
	})
	if err != nil {
		return nil, err
	}

	s.Attachments, err = attachments.New(attachments.Config{
		Uploader:  opts.Client,
		Submitter: s.Composer,
		Sink:      opts.Sink,
		Alerter:   opts.Alerter,
		SessionID: s.Loader.Active,
	})
	if err != nil {
		return nil, err
	}

	s.Voice, err = voice.New(voice.Config{
		Capturer:     opts.Capturer,
		Uploader:     opts.Client,
		Session:      s.Loader.Active,
		OnTranscript: s.Composer.SetDraft,
		Sink:         opts.Sink,
		Alerter:      opts.Alerter,
		TickInterval: opts.VoiceTick,
	})
	if err != nil {
		return nil, err
	}

	s.Memory, err = memory.NewEditor(opts.Client, opts.StatusDelay)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ID is the active session id, empty before the first Open.
func (s *Session) ID() string {
	return s.Loader.Active()
}

// Open enters sessionID: history and model are fetched, then its memory.
// Entering another session clears the previous one's timeline and memory
// first, so a failed load shows an empty session, never the old one. The
// history error is returned after memory has been attempted.
func (s *Session) Open(ctx context.Context, sessionID string) error {
	if s.ID() != sessionID {
		s.Voice.Cancel()
	}
	loadErr := s.Loader.Enter(ctx, sessionID)
	if sessionID == "" {
		return loadErr
	}
	if _, err := s.Memory.Load(ctx, sessionID); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("memory unavailable")
	}
	return loadErr
}

// SelectModel changes the model used for subsequent turns.
func (s *Session) SelectModel(id string) models.Selection {
	return s.Model.Select(id)
}

// Send submits the composer draft.
func (s *Session) Send(ctx context.Context) (*composer.Result, error) {
	return s.Composer.SubmitDraft(ctx)
}

// Close releases preview blobs, stops capture and pending timers.
func (s *Session) Close() {
	s.Attachments.Close()
	s.Voice.Close()
	s.Memory.Close()
	s.Timeline.Close()
}
