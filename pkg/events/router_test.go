package events

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestRouter_InMemoryRoundTrip(t *testing.T) {
	r := NewRouter()
	defer func() { require.NoError(t, r.Close()) }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := r.Subscribe(ctx, TopicForSession("s1"))
	require.NoError(t, err)

	require.NoError(t, r.Publish(Event{Type: TypeTimelineReplaced, SessionID: "s1", Revision: 3}))

	select {
	case e := <-ch:
		require.Equal(t, TypeTimelineReplaced, e.Type)
		require.Equal(t, uint64(3), e.Revision)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestEventTopic(t *testing.T) {
	require.Equal(t, "chat:s1", Event{Type: TypeVoiceState, SessionID: "s1"}.Topic())
	require.Equal(t, DirectoryTopic, Event{Type: TypeDirectoryUpdated, SessionID: "s1"}.Topic())
	require.Equal(t, DirectoryTopic, Event{Type: TypeComposerBusy}.Topic())
}

func TestEmit_NilSink(t *testing.T) {
	Emit(nil, Event{Type: TypeVoiceState})

	var got Event
	Emit(SinkFunc(func(e Event) { got = e }), Event{Type: TypeAttachmentPreview, Message: "x"})
	require.Equal(t, "x", got.Message)
	require.False(t, got.At.IsZero())
}

func TestRouter_SubscribeHook(t *testing.T) {
	var topics []string
	r := NewRouter(WithSubscribeHook(func(_ context.Context, topic string) error {
		topics = append(topics, topic)
		if topic == DirectoryTopic {
			return errors.New("no group")
		}
		return nil
	}))
	defer func() { require.NoError(t, r.Close()) }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err := r.Subscribe(ctx, TopicForSession("s1"))
	require.NoError(t, err)
	_, err = r.Subscribe(ctx, DirectoryTopic)
	require.Error(t, err)
	require.Equal(t, []string{"chat:s1", DirectoryTopic}, topics)
}
