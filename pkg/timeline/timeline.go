// Package timeline owns the rendered message list of one session. The list is
// only ever appended to (optimistic entries) or replaced wholesale (canonical
// history); it is never reordered or merged.
package timeline

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatfront/pkg/api"
	"github.com/go-go-golems/chatfront/pkg/events"
)

const DefaultCopyAckDelay = 2 * time.Second

// Timeline is the message list for one session plus its ephemeral UI state.
type Timeline struct {
	mu            sync.Mutex
	sessionID     string
	messages      []api.Message
	revision      uint64
	scrollPending bool
	pins          []pin

	// Length and sequence of the last authoritative history, shared by every
	// writer of canonical state.
	canonLen int
	canonSeq uint64

	clip     Clipboard
	ackDelay time.Duration
	copied   map[Key]*time.Timer
	sink     events.Sink
	closed   bool
}

// pin is a local entry carried across replacements until it is settled or
// the session changes.
type pin struct {
	key     string
	msg     api.Message
	release func()
}

type Option func(*Timeline)

func WithClipboard(c Clipboard) Option {
	return func(t *Timeline) {
		if c != nil {
			t.clip = c
		}
	}
}

func WithCopyAckDelay(d time.Duration) Option {
	return func(t *Timeline) {
		if d > 0 {
			t.ackDelay = d
		}
	}
}

func WithSink(s events.Sink) Option {
	return func(t *Timeline) { t.sink = s }
}

func New(sessionID string, opts ...Option) *Timeline {
	t := &Timeline{
		sessionID: sessionID,
		clip:      SystemClipboard{},
		ackDelay:  DefaultCopyAckDelay,
		copied:    map[Key]*time.Timer{},
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Timeline) SessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionID
}

// Reset retargets the timeline to another session and clears it, dropping
// every pinned entry.
func (t *Timeline) Reset(sessionID string) {
	t.mu.Lock()
	t.sessionID = sessionID
	for k, tm := range t.copied {
		tm.Stop()
		delete(t.copied, k)
	}
	dropped := t.pins
	t.pins = nil
	t.canonLen, t.canonSeq = 0, 0
	rev := t.swapLocked(nil)
	t.mu.Unlock()

	releasePins(dropped)

	events.Emit(t.sink, events.Event{Type: events.TypeTimelineReplaced, SessionID: sessionID, Revision: rev})
}

// Messages returns a copy of the current list.
func (t *Timeline) Messages() []api.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]api.Message(nil), t.messages...)
}

func (t *Timeline) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}

// Revision changes every time the list identity changes.
func (t *Timeline) Revision() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.revision
}

// Append adds an optimistic entry and returns its index.
func (t *Timeline) Append(m api.Message) int {
	t.mu.Lock()
	next := make([]api.Message, len(t.messages), len(t.messages)+1)
	copy(next, t.messages)
	next = append(next, m)
	idx := len(next) - 1
	rev := t.swapLocked(next)
	sid := t.sessionID
	t.mu.Unlock()

	events.Emit(t.sink, events.Event{Type: events.TypeTimelineAppended, SessionID: sid, Revision: rev})
	return idx
}

// Pin appends m like Append and keeps it at the tail across every Replace
// until Unpin or Reset. release runs once when the pin is dropped.
func (t *Timeline) Pin(key string, m api.Message, release func()) int {
	t.mu.Lock()
	t.pins = append(t.pins, pin{key: key, msg: m, release: release})
	t.mu.Unlock()
	return t.Append(m)
}

// Unpin stops carrying key across replacements and runs its release. The
// entry stays visible until the next Replace.
func (t *Timeline) Unpin(key string) bool {
	t.mu.Lock()
	var dropped []pin
	for i, p := range t.pins {
		if p.key == key {
			dropped = append(dropped, p)
			t.pins = append(t.pins[:i:i], t.pins[i+1:]...)
			break
		}
	}
	t.mu.Unlock()
	releasePins(dropped)
	return len(dropped) > 0
}

// Pinned returns the keys still carried across replacements.
func (t *Timeline) Pinned() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	keys := make([]string, 0, len(t.pins))
	for _, p := range t.pins {
		keys = append(keys, p.key)
	}
	return keys
}

func releasePins(pins []pin) {
	for _, p := range pins {
		if p.release != nil {
			p.release()
		}
	}
}

// Replace installs msgs as the authoritative list, followed by any pinned
// entries. It becomes the baseline for ApplyCanonical.
func (t *Timeline) Replace(msgs []api.Message) {
	t.mu.Lock()
	t.canonLen, t.canonSeq = len(msgs), 0
	rev, sid, n := t.replaceLocked(msgs)
	t.mu.Unlock()
	t.replaced(sid, n, rev)
}

// ApplyCanonical replaces the list with a round trip's history unless it is
// for another session or older than what is shown. A session's history only
// grows, so a shorter one is stale; equal lengths go to the higher seq.
func (t *Timeline) ApplyCanonical(sessionID string, msgs []api.Message, seq uint64) bool {
	t.mu.Lock()
	n := len(msgs)
	if t.sessionID != sessionID || n < t.canonLen || (n == t.canonLen && seq <= t.canonSeq) {
		t.mu.Unlock()
		return false
	}
	t.canonLen, t.canonSeq = n, seq
	rev, sid, total := t.replaceLocked(msgs)
	t.mu.Unlock()
	t.replaced(sid, total, rev)
	return true
}

func (t *Timeline) replaceLocked(msgs []api.Message) (uint64, string, int) {
	next := make([]api.Message, 0, len(msgs)+len(t.pins))
	next = append(next, msgs...)
	for _, p := range t.pins {
		next = append(next, p.msg)
	}
	return t.swapLocked(next), t.sessionID, len(next)
}

func (t *Timeline) replaced(sid string, n int, rev uint64) {
	log.Debug().Str("session_id", sid).Int("messages", n).Uint64("revision", rev).Msg("timeline replaced")
	events.Emit(t.sink, events.Event{Type: events.TypeTimelineReplaced, SessionID: sid, Revision: rev})
}

func (t *Timeline) swapLocked(next []api.Message) uint64 {
	t.messages = next
	t.revision++
	t.scrollPending = true
	return t.revision
}

// ConsumeScroll reports whether the view should scroll to the newest entry
// and clears the request.
func (t *Timeline) ConsumeScroll() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	pending := t.scrollPending
	t.scrollPending = false
	return pending
}

// Close stops pending acknowledgment timers and drops pinned entries.
func (t *Timeline) Close() {
	t.mu.Lock()
	for k, tm := range t.copied {
		tm.Stop()
		delete(t.copied, k)
	}
	dropped := t.pins
	t.pins = nil
	t.closed = true
	t.mu.Unlock()
	releasePins(dropped)
}
