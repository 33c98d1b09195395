package attachments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	timeout = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func TestBlobStore_RegisterResolveRelease(t *testing.T) {
	b := NewBlobStore()
	a := b.Register(File{Name: "a.png", MimeType: "image/png"})
	c := b.Register(File{Name: "c.png", MimeType: "image/png"})
	require.NotEqual(t, a, c)

	f, ok := b.Resolve(a)
	require.True(t, ok)
	require.Equal(t, "a.png", f.Name)

	b.Release(a)
	_, ok = b.Resolve(a)
	require.False(t, ok)
	require.Equal(t, 1, b.ReleaseAll())
	require.Equal(t, 0, b.Len())
}

func TestIsAccepted(t *testing.T) {
	require.True(t, IsAccepted("report.PDF"))
	require.True(t, IsAccepted("clip.mp4"))
	require.False(t, IsAccepted("script.exe"))
}
