// Package directory holds the user's session list: listing, creation,
// deletion, search and keyboard selection.
package directory

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatfront/pkg/api"
	"github.com/go-go-golems/chatfront/pkg/events"
	"github.com/go-go-golems/chatfront/pkg/failure"
)

// Client is the server surface the directory needs.
type Client interface {
	Credentials() api.Credentials
	ListSessions(ctx context.Context) ([]api.Session, error)
	CreateSession(ctx context.Context, name, model, memory string) (string, error)
	DeleteSession(ctx context.Context, id string) error
}

// Navigator opens a session's chat by its key.
type Navigator func(sessionKey string)

type Config struct {
	Client    Client
	Navigator Navigator
	Alerter   failure.Alerter
	Sink      events.Sink
}

// Directory is fetched independently of the active timeline; the two may
// briefly disagree.
type Directory struct {
	client   Client
	navigate Navigator
	alerter  failure.Alerter
	sink     events.Sink

	mu       sync.Mutex
	entries  []Entry
	query    string
	filtered []int
	cursor   int
}

func New(cfg Config) (*Directory, error) {
	if cfg.Client == nil {
		return nil, errors.New("directory: client is nil")
	}
	if cfg.Navigator == nil {
		cfg.Navigator = func(string) {}
	}
	if cfg.Alerter == nil {
		cfg.Alerter = failure.NopAlerter
	}
	d := &Directory{
		client:   cfg.Client,
		navigate: cfg.Navigator,
		alerter:  cfg.Alerter,
		sink:     cfg.Sink,
	}
	return d, nil
}

func (d *Directory) requireAuth(op string) error {
	if d.client.Credentials().Complete() {
		return nil
	}
	return failure.Precondition(op, api.ErrNotAuthenticated.Error())
}

// List fetches the sessions, newest first. On failure the previous list is kept.
func (d *Directory) List(ctx context.Context) ([]Entry, error) {
	if err := d.requireAuth("list sessions"); err != nil {
		// Listing without credentials is silently skipped.
		log.Debug().Err(err).Msg("skipping session list")
		return d.Entries(), err
	}
	sessions, err := d.client.ListSessions(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch sessions")
		return d.Entries(), failure.Load("list sessions", err)
	}
	entries := make([]Entry, len(sessions))
	for i, s := range sessions {
		entries[len(sessions)-1-i] = Entry{Session: s}
	}

	d.mu.Lock()
	d.entries = entries
	d.refilterLocked()
	out := append([]Entry(nil), d.entries...)
	d.mu.Unlock()

	d.emit()
	return out, nil
}

// Create makes a session, refreshes the list and navigates to it.
func (d *Directory) Create(ctx context.Context, name, model string) (string, error) {
	if err := d.requireAuth("create session"); err != nil {
		failure.Report(d.alerter, err)
		return "", err
	}
	if name == "" {
		name = DefaultName
	}
	if model == "" {
		model = FallbackModel
	}
	id, err := d.client.CreateSession(ctx, name, model, "")
	if err != nil {
		log.Error().Err(err).Msg("failed to create new chat")
		d.alerter.Alert("Failed to create new chat")
		return "", failure.Submit("create session", err)
	}
	log.Info().Str("session_id", id).Str("model", model).Msg("created session")

	// The new session is opened even if the refresh fails.
	_, _ = d.List(ctx)
	d.navigate(id)
	return id, nil
}

// Delete removes a session locally once the server confirms it. id is the
// record id (Session.ID), not the chat key.
func (d *Directory) Delete(ctx context.Context, id string) error {
	if err := d.requireAuth("delete session"); err != nil {
		failure.Report(d.alerter, err)
		return err
	}
	if err := d.client.DeleteSession(ctx, id); err != nil {
		log.Error().Err(err).Str("id", id).Msg("error deleting session")
		return failure.Submit("delete session", err)
	}

	d.mu.Lock()
	kept := d.entries[:0:0]
	for _, e := range d.entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	d.entries = kept
	d.refilterLocked()
	d.mu.Unlock()

	d.emit()
	return nil
}

func (d *Directory) Entries() []Entry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Entry(nil), d.entries...)
}

// Lookup finds an entry by record id or chat key.
func (d *Directory) Lookup(idOrKey string) (Entry, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range d.entries {
		if e.ID == idOrKey || e.Key() == idOrKey {
			return e, true
		}
	}
	return Entry{}, false
}

// Search sets the query and returns the filtered entries. A changed query
// moves the cursor back to the first result.
func (d *Directory) Search(query string) []Entry {
	d.mu.Lock()
	defer d.mu.Unlock()
	if query != d.query {
		d.query = query
		d.cursor = 0
	}
	d.refilterLocked()
	return d.resultsLocked()
}

func (d *Directory) Query() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.query
}

// Results are the entries matching the current query.
func (d *Directory) Results() []Entry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.resultsLocked()
}

func (d *Directory) resultsLocked() []Entry {
	out := make([]Entry, 0, len(d.filtered))
	for _, i := range d.filtered {
		out = append(out, d.entries[i])
	}
	return out
}

func (d *Directory) refilterLocked() {
	d.filtered = d.filtered[:0]
	for i, e := range d.entries {
		if e.Matches(d.query) {
			d.filtered = append(d.filtered, i)
		}
	}
	if d.cursor >= len(d.filtered) {
		d.cursor = 0
	}
}

func (d *Directory) Cursor() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cursor
}

// Down moves the cursor forward, wrapping to the first result.
func (d *Directory) Down() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n := len(d.filtered); n > 0 {
		d.cursor = (d.cursor + 1) % n
	}
}

// Up moves the cursor back, wrapping to the last result.
func (d *Directory) Up() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n := len(d.filtered); n > 0 {
		d.cursor = (d.cursor - 1 + n) % n
	}
}

func (d *Directory) Selected() (Entry, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cursor < 0 || d.cursor >= len(d.filtered) {
		return Entry{}, false
	}
	return d.entries[d.filtered[d.cursor]], true
}

// Enter navigates to the selected result.
func (d *Directory) Enter() (string, bool) {
	e, ok := d.Selected()
	if !ok {
		return "", false
	}
	d.navigate(e.Key())
	return e.Key(), true
}

func (d *Directory) emit() {
	events.Emit(d.sink, events.Event{Type: events.TypeDirectoryUpdated})
}
