package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/chatfront/pkg/api"
	"github.com/go-go-golems/chatfront/pkg/api/apitest"
	"github.com/go-go-golems/chatfront/pkg/attachments"
	"github.com/go-go-golems/chatfront/pkg/composer"
	"github.com/go-go-golems/chatfront/pkg/voice"
)

type stubCapturer struct{}

func (stubCapturer) Open(context.Context) (voice.Recording, error) { return stubRecording{}, nil }
func (stubCapturer) Name() string { return "stub" }

type stubRecording struct{}

func (stubRecording) Finish() ([]byte, error) { return []byte("RIFF....WAVE"), nil }
func (stubRecording) Abort() {}

func newWorkspace(t *testing.T, srv *apitest.Server) *Workspace {
	t.Helper()
	c, err := api.NewClient(srv.BaseURL(), api.WithCredentials(api.Credentials{UserID: "u1", Token: "tok"}))
	require.NoError(t, err)
	w, err := NewWorkspace(context.Background(), Options{
		Client:    c,
		Capturer:  stubCapturer{},
		VoiceTick: -1,
	})
	require.NoError(t, err)
	t.Cleanup(w.Close)
	return w
}

func TestWorkspace_CreateNavigatesAndChats(t *testing.T) {
	srv := apitest.NewServer("tok")
	defer srv.Close()
	w := newWorkspace(t, srv)
	ctx := context.Background()

	key, err := w.Directory.Create(ctx, "", "llama3-8b-8192")
	require.NoError(t, err)
	require.Equal(t, key, w.Session.ID())
	require.Len(t, w.Directory.Entries(), 1)

	w.Session.Composer.SetDraft("hello")
	res, err := w.Session.Send(ctx)
	require.NoError(t, err)
	require.True(t, res.Applied)
	require.Equal(t, srv.Messages(key), w.Session.Timeline.Messages())
	require.Equal(t, "llama3-8b-8192", srv.SentRequests()[0].SelectedModel)
	require.Equal(t, "u1", srv.SentRequests()[0].UserID)
}

func TestSession_OpenLoadsHistoryModelAndMemory(t *testing.T) {
	srv := apitest.NewServer("tok")
	defer srv.Close()
	key := srv.AddSession("Trip", "groq/llama3-70b-8192",
		api.Message{Sender: api.SenderUser, Text: "hi"},
		api.Message{Sender: api.SenderAssistant, Text: "hello"},
	)
	srv.SetMemory(key, "prefers trains")

	w := newWorkspace(t, srv)
	require.NoError(t, w.Session.Open(context.Background(), key))

	require.Equal(t, srv.Messages(key), w.Session.Timeline.Messages())
	sel := w.Session.Model.Current()
	require.Equal(t, "groq/llama3-70b-8192", sel.Requested)
	require.Equal(t, "llama3-70b-8192", sel.Effective)
	require.True(t, sel.Remapped)
	require.Equal(t, "prefers trains", w.Session.Memory.Text())
}

func TestSession_AttachmentsPreviewThenCanonical(t *testing.T) {
	srv := apitest.NewServer("tok")
	defer srv.Close()
	key := srv.AddSession("Docs", "gemma-7b-it")
	w := newWorkspace(t, srv)
	ctx := context.Background()
	require.NoError(t, w.Session.Open(ctx, key))

	res, err := w.Session.Attachments.Attach(ctx, []attachments.File{
		{Name: "a.txt", MimeType: "text/plain", Data: []byte("alpha notes")},
		{Name: "b.txt", MimeType: "text/plain", Data: []byte("beta notes")},
	})
	require.NoError(t, err)
	require.Len(t, res, 2)
	require.Equal(t, 0, w.Session.Attachments.Blobs().Len())

	// The server saw the extracted content as the payload.
	payloads := map[string]bool{}
	for _, s := range srv.SentRequests() {
		payloads[s.Message] = true
	}
	require.True(t, payloads["alpha notes"])
	require.True(t, payloads["beta notes"])

	msgs := w.Session.Timeline.Messages()
	var names []string
	for _, m := range msgs {
		if m.File != nil {
			require.False(t, m.File.IsLocal())
			require.Equal(t, composer.AttachmentLabelPrefix+m.File.Name, m.Text)
			names = append(names, m.File.Name)
		}
	}
	require.ElementsMatch(t, []string{"a.txt", "b.txt"}, names)
}

func TestSession_VoiceFillsDraft(t *testing.T) {
	srv := apitest.NewServer("tok")
	defer srv.Close()
	key := srv.AddSession("Voice", "gemma-7b-it")
	w := newWorkspace(t, srv)
	ctx := context.Background()
	require.NoError(t, w.Session.Open(ctx, key))

	require.NoError(t, w.Session.Voice.Start(ctx))
	w.Session.Voice.Tick()
	text, err := w.Session.Voice.StopAndUpload(ctx)
	require.NoError(t, err)
	require.Equal(t, "transcribed words", text)
	require.Equal(t, "transcribed words", w.Session.Composer.Draft())
	require.Empty(t, srv.SentRequests())
}

func TestSession_MemorySave(t *testing.T) {
	srv := apitest.NewServer("tok")
	defer srv.Close()
	key := srv.AddSession("Mem", "gemma-7b-it")
	w := newWorkspace(t, srv)
	ctx := context.Background()
	require.NoError(t, w.Session.Open(ctx, key))

	w.Session.Memory.SetText("remember the milk")
	require.NoError(t, w.Session.Memory.Save(ctx))
	require.Eventually(t, func() bool { return srv.MemoryOf(key) == "remember the milk" }, time.Second, 10*time.Millisecond)
}

func TestSession_FailedUploadPreviewOutlivesOtherTurns(t *testing.T) {
	srv := apitest.NewServer("tok")
	defer srv.Close()
	key := srv.AddSession("Docs", "gemma-7b-it")
	other := srv.AddSession("Other", "gemma-7b-it")
	srv.FailUploadOf("bad.txt")
	w := newWorkspace(t, srv)
	ctx := context.Background()
	require.NoError(t, w.Session.Open(ctx, key))

	res, err := w.Session.Attachments.Attach(ctx, []attachments.File{
		{Name: "good.txt", MimeType: "text/plain", Data: []byte("good notes")},
		{Name: "bad.txt", MimeType: "text/plain", Data: []byte("bad notes")},
	})
	require.Error(t, err)
	require.NoError(t, res[0].Err)
	require.Error(t, res[1].Err)

	w.Session.Composer.SetDraft("and another thing")
	_, err = w.Session.Send(ctx)
	require.NoError(t, err)

	var good, bad *api.Message
	msgs := w.Session.Timeline.Messages()
	for i := range msgs {
		if msgs[i].File == nil {
			continue
		}
		switch msgs[i].File.Name {
		case "good.txt":
			good = &msgs[i]
		case "bad.txt":
			bad = &msgs[i]
		}
	}
	require.NotNil(t, good)
	require.False(t, good.File.IsLocal())
	require.NotNil(t, bad)
	require.True(t, bad.File.IsLocal())
	require.Equal(t, composer.AttachmentLabelPrefix+"bad.txt", bad.Text)
	require.Same(t, bad, &msgs[len(msgs)-1])

	require.Equal(t, 1, w.Session.Attachments.Blobs().Len())
	_, ok := w.Session.Attachments.Blobs().Resolve(res[1].Preview.URL)
	require.True(t, ok)

	require.NoError(t, w.Session.Open(ctx, other))
	require.Empty(t, w.Session.Timeline.Messages())
	require.Zero(t, w.Session.Attachments.Blobs().Len())
}

func TestSession_FailedOpenDoesNotShowPreviousSession(t *testing.T) {
	srv := apitest.NewServer("tok")
	defer srv.Close()
	key := srv.AddSession("Trip", "gemma-7b-it", api.Message{Sender: api.SenderUser, Text: "hi"})
	srv.SetMemory(key, "prefers trains")
	w := newWorkspace(t, srv)
	ctx := context.Background()
	require.NoError(t, w.Session.Open(ctx, key))
	require.Equal(t, "prefers trains", w.Session.Memory.Text())

	require.Error(t, w.Session.Open(ctx, "missing"))
	require.Equal(t, "missing", w.Session.ID())
	require.Empty(t, w.Session.Timeline.Messages())
	require.Empty(t, w.Session.Memory.Text())
	require.Equal(t, "prefers trains", srv.MemoryOf(key))
}
