package timeline

import (
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/chatfront/pkg/api"
	"github.com/go-go-golems/chatfront/pkg/events"
)

type memClipboard struct {
	mu   sync.Mutex
	last string
	err  error
}

func (m *memClipboard) WriteAll(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.last = text
	return nil
}

func user(text string) api.Message { return api.Message{Sender: api.SenderUser, Text: text} }

func TestAppendAndReplace_RevisionAndScroll(t *testing.T) {
	var got []events.Event
	tl := New("s1", WithSink(events.SinkFunc(func(e events.Event) { got = append(got, e) })))

	require.False(t, tl.ConsumeScroll())
	idx := tl.Append(user("hi"))
	require.Equal(t, 0, idx)
	require.Equal(t, uint64(1), tl.Revision())
	require.True(t, tl.ConsumeScroll())
	require.False(t, tl.ConsumeScroll())

	canonical := []api.Message{user("hi"), {Sender: api.SenderAssistant, Text: "hello"}}
	tl.Replace(canonical)
	require.Equal(t, canonical, tl.Messages())
	require.Equal(t, uint64(2), tl.Revision())
	require.True(t, tl.ConsumeScroll())

	require.Len(t, got, 2)
	require.Equal(t, events.TypeTimelineAppended, got[0].Type)
	require.Equal(t, events.TypeTimelineReplaced, got[1].Type)
	require.Equal(t, "s1", got[1].SessionID)
}

func TestReplace_DoesNotAliasCallerSlice(t *testing.T) {
	tl := New("s1")
	in := []api.Message{user("a"), user("b")}
	tl.Replace(in)
	in[0].Text = "mutated"
	require.Equal(t, "a", tl.Messages()[0].Text)
}

func TestReplace_KeepsServerOrder(t *testing.T) {
	tl := New("s1")
	tl.Append(user("local"))
	server := []api.Message{user("z"), user("a"), user("m")}
	tl.Replace(server)
	require.Equal(t, server, tl.Messages())
}

func TestCopy_AcknowledgesPerKeyAndReverts(t *testing.T) {
	clip := &memClipboard{}
	tl := New("s1", WithClipboard(clip), WithCopyAckDelay(40*time.Millisecond))
	defer tl.Close()

	require.NoError(t, tl.Copy(MessageKey(0), "hello"))
	require.Equal(t, "hello", clip.last)
	require.True(t, tl.IsCopied(MessageKey(0)))
	require.False(t, tl.IsCopied(MessageKey(1)))

	require.NoError(t, tl.Copy(SegmentKey(2, 1), "frame"))
	require.ElementsMatch(t, []Key{MessageKey(0), SegmentKey(2, 1)}, tl.CopiedKeys())

	require.Eventually(t, func() bool {
		return !tl.IsCopied(MessageKey(0)) && !tl.IsCopied(SegmentKey(2, 1))
	}, time.Second, 5*time.Millisecond)
}

func TestCopy_RecopyRestartsTimer(t *testing.T) {
	tl := New("s1", WithClipboard(&memClipboard{}), WithCopyAckDelay(80*time.Millisecond))
	defer tl.Close()

	require.NoError(t, tl.Copy(ContentKey(0), "a"))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, tl.Copy(ContentKey(0), "a"))
	time.Sleep(50 * time.Millisecond)
	require.True(t, tl.IsCopied(ContentKey(0)))
}

func TestCopy_ClipboardFailure(t *testing.T) {
	tl := New("s1", WithClipboard(&memClipboard{err: errors.New("no display")}))
	require.Error(t, tl.Copy(MessageKey(0), "x"))
	require.False(t, tl.IsCopied(MessageKey(0)))
}

func TestReset_ClearsAndRetargets(t *testing.T) {
	tl := New("s1", WithClipboard(&memClipboard{}))
	tl.Append(user("a"))
	require.NoError(t, tl.Copy(MessageKey(0), "a"))

	tl.Reset("s2")
	require.Equal(t, "s2", tl.SessionID())
	require.Zero(t, tl.Len())
	require.Empty(t, tl.CopiedKeys())
}

func texts(msgs []api.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Text
	}
	return out
}

func TestPin_SurvivesReplaceUntilUnpinned(t *testing.T) {
	tl := New("s1")
	released := 0
	tl.Pin("c1", user("draft.png"), func() { released++ })

	tl.Replace([]api.Message{user("a"), user("b")})
	require.Equal(t, []string{"a", "b", "draft.png"}, texts(tl.Messages()))
	require.Equal(t, []string{"c1"}, tl.Pinned())

	require.True(t, tl.Unpin("c1"))
	require.False(t, tl.Unpin("c1"))
	require.Equal(t, 1, released)
	require.Equal(t, []string{"a", "b", "draft.png"}, texts(tl.Messages()))

	tl.Replace([]api.Message{user("a")})
	require.Equal(t, []string{"a"}, texts(tl.Messages()))
}

func TestPin_ResetAndCloseRelease(t *testing.T) {
	tl := New("s1")
	released := []string{}
	tl.Pin("c1", user("x"), func() { released = append(released, "c1") })
	tl.Reset("s2")
	require.Equal(t, []string{"c1"}, released)
	require.Empty(t, tl.Pinned())
	require.Zero(t, tl.Len())

	tl.Pin("c2", user("y"), func() { released = append(released, "c2") })
	tl.Close()
	require.Equal(t, []string{"c1", "c2"}, released)
}

func TestApplyCanonical_BaselineSharedWithReplace(t *testing.T) {
	tl := New("s1")
	tl.Replace([]api.Message{user("a"), user("b"), user("c")})

	require.False(t, tl.ApplyCanonical("s1", []api.Message{user("a"), user("b")}, 1))
	require.Equal(t, 3, tl.Len())

	require.True(t, tl.ApplyCanonical("s1", []api.Message{user("a"), user("b"), user("c")}, 1))
	require.False(t, tl.ApplyCanonical("s1", []api.Message{user("a"), user("b"), user("c")}, 1))
	require.False(t, tl.ApplyCanonical("s2", []api.Message{user("a"), user("b"), user("c"), user("d")}, 2))
	require.True(t, tl.ApplyCanonical("s1", []api.Message{user("a"), user("b"), user("c"), user("d")}, 2))
	require.Equal(t, 4, tl.Len())

	tl.Reset("s1")
	require.True(t, tl.ApplyCanonical("s1", []api.Message{user("z")}, 1))
}
