// Package events carries engine notifications such as timeline revisions,
// recording state and directory refreshes to whatever front end is attached.
package events

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

type Type string

const (
	TypeTimelineAppended  Type = "timeline.appended"
	TypeTimelineReplaced  Type = "timeline.replaced"
	TypeComposerBusy      Type = "composer.busy"
	TypeAttachmentPreview Type = "attachment.preview"
	TypeAttachmentFinal   Type = "attachment.canonical"
	TypeVoiceState        Type = "voice.state"
	TypeVoiceTick         Type = "voice.tick"
	TypeDirectoryUpdated  Type = "directory.updated"
)

// DirectoryTopic receives directory events, which are not tied to one session.
const DirectoryTopic = "chat:directory"

// TopicForSession computes the event topic for a session.
func TopicForSession(sessionID string) string { return "chat:" + sessionID }

// Event is one engine notification.
type Event struct {
	Type          Type      `json:"type"`
	SessionID     string    `json:"session_id,omitempty"`
	Revision      uint64    `json:"revision,omitempty"`
	State         string    `json:"state,omitempty"`
	Elapsed       int       `json:"elapsed,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Message       string    `json:"message,omitempty"`
	At            time.Time `json:"at"`
}

// Topic returns the topic the event is published on.
func (e Event) Topic() string {
	if e.Type == TypeDirectoryUpdated || e.SessionID == "" {
		return DirectoryTopic
	}
	return TopicForSession(e.SessionID)
}

func (e Event) Marshal() ([]byte, error) {
	b, err := json.Marshal(e)
	return b, errors.Wrap(err, "marshal event")
}

func Unmarshal(b []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		return Event{}, errors.Wrap(err, "unmarshal event")
	}
	return e, nil
}

// Sink receives events. Publishing never blocks the caller on delivery.
type Sink interface {
	PublishEvent(e Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(e Event)

func (f SinkFunc) PublishEvent(e Event) { f(e) }

// Emit publishes e on s when s is set, stamping the time if missing.
func Emit(s Sink, e Event) {
	if s == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	s.PublishEvent(e)
}
