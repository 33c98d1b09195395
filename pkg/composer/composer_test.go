package composer

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/chatfront/pkg/api"
	"github.com/go-go-golems/chatfront/pkg/failure"
	"github.com/go-go-golems/chatfront/pkg/models"
	"github.com/go-go-golems/chatfront/pkg/timeline"
)

type fakeSender struct {
	mu    sync.Mutex
	reqs  []api.SendRequest
	fn    func(req api.SendRequest) (*api.SendResponse, error)
	calls int
}

func (f *fakeSender) Send(_ context.Context, req api.SendRequest) (*api.SendResponse, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.calls++
	fn := f.fn
	f.mu.Unlock()
	return fn(req)
}

func echoServer(tl *timeline.Timeline) func(req api.SendRequest) (*api.SendResponse, error) {
	return func(req api.SendRequest) (*api.SendResponse, error) {
		return &api.SendResponse{History: []api.Message{
			{Sender: api.SenderUser, Text: req.Message},
			{Sender: api.SenderAssistant, Text: "reply to " + req.Message},
		}}, nil
	}
}

func newComposer(t *testing.T, s Sender, tl *timeline.Timeline) *Composer {
	t.Helper()
	c, err := New(Config{
		Client:   s,
		Timeline: tl,
		Model:    models.NewHolder(nil),
		Session:  func() string { return "s1" },
		UserID:   "u1",
	})
	require.NoError(t, err)
	return c
}

func TestSubmitTurn_OptimisticThenReplace(t *testing.T) {
	tl := timeline.New("s1")
	tl.Replace([]api.Message{{Sender: api.SenderAssistant, Text: "welcome"}})

	s := &fakeSender{}
	var seenDuringSend []api.Message
	s.fn = func(req api.SendRequest) (*api.SendResponse, error) {
		seenDuringSend = tl.Messages()
		return &api.SendResponse{History: []api.Message{
			{Sender: api.SenderAssistant, Text: "welcome"},
			{Sender: api.SenderUser, Text: "hi"},
			{Sender: api.SenderAssistant, Text: "hello!"},
		}}, nil
	}
	c := newComposer(t, s, tl)

	res, err := c.SubmitTurn(context.Background(), Turn{Text: "hi"})
	require.NoError(t, err)
	require.True(t, res.Applied)
	require.Equal(t, 1, res.Index)

	require.Len(t, seenDuringSend, 2)
	require.Equal(t, api.Message{Sender: api.SenderUser, Text: "hi"}, seenDuringSend[1])
	require.Equal(t, res.History, tl.Messages())

	req := s.reqs[0]
	require.Equal(t, "s1", req.SessionID)
	require.Equal(t, "u1", req.UserID)
	require.Equal(t, "gemma-7b-it", req.SelectedModel)
	require.NotEmpty(t, req.IdempotencyKey)

	rec, ok := c.Record(res.IdempotencyKey)
	require.True(t, ok)
	require.Equal(t, StatusCompleted, rec.Status)
	require.False(t, c.Busy())
}

func TestSubmitTurn_ConvergesOnRepeat(t *testing.T) {
	tl := timeline.New("s1")
	s := &fakeSender{}
	s.fn = echoServer(tl)
	c := newComposer(t, s, tl)

	for i := 0; i < 2; i++ {
		_, err := c.SubmitTurn(context.Background(), Turn{Text: "same"})
		require.NoError(t, err)
		require.Len(t, tl.Messages(), 2)
	}
}

func TestSubmitTurn_AttachmentContentIsPayload(t *testing.T) {
	tl := timeline.New("s1")
	s := &fakeSender{}
	s.fn = echoServer(tl)
	c := newComposer(t, s, tl)

	att := api.NewCanonicalAttachment(api.UploadedFile{OriginalName: "notes.pdf", URL: "https://x/notes.pdf", MimeType: "application/pdf", Content: "full document text"}, "corr-1")
	_, err := c.SubmitTurn(context.Background(), AttachmentTurn(att))
	require.NoError(t, err)

	require.Equal(t, "full document text", s.reqs[0].Message)
	require.Equal(t, att, s.reqs[0].File)
}

func TestSubmitTurn_RejectsLocalAttachment(t *testing.T) {
	tl := timeline.New("s1")
	s := &fakeSender{fn: echoServer(nil)}
	c := newComposer(t, s, tl)

	_, err := c.SubmitTurn(context.Background(), AttachmentTurn(api.NewLocalAttachment("a.png", api.BlobScheme+"1", "image/png", "c")))
	require.Error(t, err)
	require.Zero(t, s.calls)
	require.Zero(t, tl.Len())
}

func TestSubmitTurn_FailureKeepsOptimistic(t *testing.T) {
	tl := timeline.New("s1")
	s := &fakeSender{fn: func(api.SendRequest) (*api.SendResponse, error) { return nil, errors.New("503") }}
	c := newComposer(t, s, tl)

	_, err := c.SubmitTurn(context.Background(), Turn{Text: "hello"})
	require.True(t, failure.Is(err, failure.KindSubmit))
	require.Equal(t, []api.Message{{Sender: api.SenderUser, Text: "hello"}}, tl.Messages())
	require.False(t, c.Busy())
	recs := c.Records()
	require.Len(t, recs, 1)
	require.Equal(t, StatusError, recs[0].Status)
	require.Equal(t, "503", recs[0].Error)
}

func TestSubmitTurn_Preconditions(t *testing.T) {
	tl := timeline.New("")
	s := &fakeSender{fn: echoServer(nil)}

	c, err := New(Config{Client: s, Timeline: tl, Session: func() string { return "" }, UserID: "u1"})
	require.NoError(t, err)
	_, err = c.SubmitTurn(context.Background(), Turn{Text: "x"})
	require.True(t, failure.Is(err, failure.KindPrecondition))

	_, err = c.SubmitTurn(context.Background(), Turn{Text: "   "})
	require.ErrorIs(t, err, ErrEmptyTurn)
	require.Zero(t, s.calls)
	require.Zero(t, tl.Len())
}

func TestSubmitTurn_OlderResponseDoesNotOverwriteNewer(t *testing.T) {
	tl := timeline.New("s1")
	releaseFirst := make(chan struct{})
	firstStarted := make(chan struct{})
	s := &fakeSender{}
	s.fn = func(req api.SendRequest) (*api.SendResponse, error) {
		if req.Message == "first" {
			close(firstStarted)
			<-releaseFirst
			return &api.SendResponse{History: []api.Message{{Sender: api.SenderUser, Text: "first"}}}, nil
		}
		return &api.SendResponse{History: []api.Message{
			{Sender: api.SenderUser, Text: "first"},
			{Sender: api.SenderUser, Text: "second"},
		}}, nil
	}
	c := newComposer(t, s, tl)

	var wg sync.WaitGroup
	var first *Result
	wg.Add(1)
	go func() {
		defer wg.Done()
		var err error
		first, err = c.SubmitTurn(context.Background(), Turn{Text: "first"})
		require.NoError(t, err)
	}()
	<-firstStarted
	require.True(t, c.Busy())

	second, err := c.SubmitTurn(context.Background(), Turn{Text: "second"})
	require.NoError(t, err)
	require.True(t, second.Applied)
	close(releaseFirst)
	wg.Wait()

	require.False(t, first.Applied)
	require.Len(t, tl.Messages(), 2)
	rec, _ := c.Record(first.IdempotencyKey)
	require.Equal(t, StatusStale, rec.Status)
}

func TestSubmitTurn_LongerHistoryWinsRegardlessOfIssueOrder(t *testing.T) {
	tl := timeline.New("s1")
	releaseFirst := make(chan struct{})
	firstStarted := make(chan struct{})
	s := &fakeSender{}
	// The server handled "second" before "first", so the first request's
	// response carries the fuller history.
	s.fn = func(req api.SendRequest) (*api.SendResponse, error) {
		if req.Message == "first" {
			close(firstStarted)
			<-releaseFirst
			return &api.SendResponse{History: []api.Message{
				{Sender: api.SenderUser, Text: "second"},
				{Sender: api.SenderUser, Text: "first"},
			}}, nil
		}
		return &api.SendResponse{History: []api.Message{{Sender: api.SenderUser, Text: "second"}}}, nil
	}
	c := newComposer(t, s, tl)

	done := make(chan *Result)
	go func() {
		r, _ := c.SubmitTurn(context.Background(), Turn{Text: "first"})
		done <- r
	}()
	<-firstStarted

	second, err := c.SubmitTurn(context.Background(), Turn{Text: "second"})
	require.NoError(t, err)
	require.True(t, second.Applied)
	close(releaseFirst)
	first := <-done

	require.NotNil(t, first)
	require.True(t, first.Applied)
	require.Equal(t, []string{"second", "first"}, texts(tl.Messages()))
}

func texts(msgs []api.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Text)
	}
	return out
}

func TestSubmitDraft_ClearsDraft(t *testing.T) {
	tl := timeline.New("s1")
	s := &fakeSender{fn: echoServer(tl)}
	c := newComposer(t, s, tl)

	_, err := c.SubmitDraft(context.Background())
	require.ErrorIs(t, err, ErrEmptyTurn)

	c.SetDraft("  transcribed words ")
	_, err = c.SubmitDraft(context.Background())
	require.NoError(t, err)
	require.Empty(t, c.Draft())
	require.Equal(t, "transcribed words", s.reqs[0].Message)
}

func TestPreview_AppendsWithoutSending(t *testing.T) {
	tl := timeline.New("s1")
	s := &fakeSender{fn: echoServer(tl)}
	c := newComposer(t, s, tl)

	idx, err := c.Preview(AttachmentTurn(api.NewLocalAttachment("a.png", api.BlobScheme+"1", "image/png", "c")), nil)
	require.NoError(t, err)
	require.Equal(t, 0, idx)
	require.Equal(t, "📄 a.png", tl.Messages()[0].Text)
	require.Zero(t, s.calls)
}

func TestPreview_SurvivesReplaceUntilSettled(t *testing.T) {
	tl := timeline.New("s1")
	s := &fakeSender{fn: echoServer(tl)}
	c := newComposer(t, s, tl)

	released := 0
	_, err := c.Preview(AttachmentTurn(api.NewLocalAttachment("a.png", api.BlobScheme+"1", "image/png", "corr-a")), func() { released++ })
	require.NoError(t, err)

	_, err = c.SubmitTurn(context.Background(), Turn{Text: "hi"})
	require.NoError(t, err)
	require.Equal(t, []string{"hi", "reply to hi", "📄 a.png"}, texts(tl.Messages()))
	require.Zero(t, released)

	require.True(t, c.Settle("corr-a"))
	require.Equal(t, 1, released)
	_, err = c.SubmitTurn(context.Background(), Turn{Text: "again"})
	require.NoError(t, err)
	require.Equal(t, []string{"again", "reply to again"}, texts(tl.Messages()))
}

func TestSubmitTurn_ShorterThanLoadedHistoryIsStale(t *testing.T) {
	tl := timeline.New("s1")
	tl.Replace([]api.Message{
		{Sender: api.SenderUser, Text: "a"},
		{Sender: api.SenderAssistant, Text: "b"},
		{Sender: api.SenderUser, Text: "c"},
	})
	s := &fakeSender{fn: echoServer(tl)}
	c := newComposer(t, s, tl)

	res, err := c.SubmitTurn(context.Background(), Turn{Text: "late"})
	require.NoError(t, err)
	require.False(t, res.Applied)
	require.Equal(t, []string{"a", "b", "c", "late"}, texts(tl.Messages()))
	rec, _ := c.Record(res.IdempotencyKey)
	require.Equal(t, StatusStale, rec.Status)
}
