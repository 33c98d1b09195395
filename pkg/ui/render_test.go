package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/chatfront/pkg/api"
	"github.com/go-go-golems/chatfront/pkg/timeline"
)

func TestRenderer_AttachmentPreviewIsBounded(t *testing.T) {
	r := NewRenderer(60, 10)
	a := api.NewCanonicalAttachment(api.UploadedFile{
		OriginalName: "notes.txt", URL: "https://x/notes.txt", MimeType: "text/plain",
		Content: "0123456789abcdefghij",
	}, "")
	out := r.Attachment(0, a, nil)
	require.Contains(t, out, "0123456789...")
	require.NotContains(t, out, "abcdefghij")
}

func TestRenderer_LocalAttachmentShowsUploading(t *testing.T) {
	r := NewRenderer(60, 500)
	a := api.NewLocalAttachment("a.png", "blob:1", "image/png", "c1")
	out := r.Attachment(0, a, func(timeline.Key) bool { return false })
	require.Contains(t, out, "[image] a.png")
	require.Contains(t, out, "uploading...")
	require.NotContains(t, out, "blob:1")
}

func TestRenderer_VideoFramesOnlyWhenPresent(t *testing.T) {
	r := NewRenderer(60, 500)
	empty := api.NewCanonicalAttachment(api.UploadedFile{OriginalName: "v.mp4", URL: "u", MimeType: "video/mp4"}, "")
	require.NotContains(t, r.Attachment(0, empty, nil), "1.")

	v := api.NewCanonicalAttachment(api.UploadedFile{
		OriginalName: "v.mp4", URL: "u", MimeType: "video/mp4",
		Frames: []string{"intro", "demo"},
	}, "")
	copied := func(k timeline.Key) bool { return k == timeline.SegmentKey(2, 1) }
	out := r.Attachment(2, v, copied)
	require.Contains(t, out, "1. intro")
	lines := strings.Split(out, "\n")
	var demo string
	for _, l := range lines {
		if strings.Contains(l, "demo") {
			demo = l
		}
	}
	require.Contains(t, demo, "copied")
}

func TestRenderer_CopiedMarkerPerMessage(t *testing.T) {
	r := NewRenderer(60, 500)
	msgs := []api.Message{
		{Sender: api.SenderUser, Text: "first"},
		{Sender: api.SenderUser, Text: "second"},
	}
	copied := func(k timeline.Key) bool { return k == timeline.MessageKey(1) }
	require.NotContains(t, r.Message(0, msgs[0], false, copied), "copied")
	require.Contains(t, r.Message(1, msgs[1], false, copied), "copied")
}

func TestHighlightTitle_KeepsText(t *testing.T) {
	out := HighlightTitle("Trip Planning", "plan", func(s ...string) string { return strings.Join(s, "") })
	require.Contains(t, out, "Trip ")
	require.Contains(t, out, "Plan")
	require.Contains(t, out, "ning")
}
