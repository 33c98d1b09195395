package memory

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/chatfront/pkg/failure"
)

type fakeClient struct {
	notes   map[string]string
	saveErr error
	getErr  error
}

func (f *fakeClient) GetMemory(_ context.Context, id string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	return f.notes[id], nil
}

func (f *fakeClient) SaveMemory(_ context.Context, id, memory string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.notes[id] = memory
	return nil
}

func TestEditor_LoadEditSave(t *testing.T) {
	c := &fakeClient{notes: map[string]string{"s1": "likes go"}}
	e, err := NewEditor(c, 10*time.Millisecond)
	require.NoError(t, err)
	defer e.Close()

	text, err := e.Load(context.Background(), "s1")
	require.NoError(t, err)
	require.Equal(t, "likes go", text)

	e.SetText("likes go and tea")
	require.NoError(t, e.Save(context.Background()))
	require.Equal(t, "likes go and tea", c.notes["s1"])
	require.Empty(t, e.Status())
	require.False(t, e.Saving())
}

func TestEditor_SaveFailureStatusClears(t *testing.T) {
	c := &fakeClient{notes: map[string]string{}, saveErr: errors.New("nope")}
	e, err := NewEditor(c, 20*time.Millisecond)
	require.NoError(t, err)
	defer e.Close()

	_, err = e.Load(context.Background(), "s1")
	require.NoError(t, err)
	err = e.Save(context.Background())
	require.True(t, failure.Is(err, failure.KindSubmit))
	require.Equal(t, StatusSaveFailed, e.Status())
	require.Eventually(t, func() bool { return e.Status() == "" }, time.Second, 5*time.Millisecond)
}

func TestEditor_ReloadFailureKeepsText(t *testing.T) {
	c := &fakeClient{notes: map[string]string{"s1": "likes go"}}
	e, err := NewEditor(c, time.Millisecond)
	require.NoError(t, err)
	defer e.Close()

	_, err = e.Load(context.Background(), "s1")
	require.NoError(t, err)
	e.SetText("draft")

	c.getErr = errors.New("down")
	text, err := e.Load(context.Background(), "s1")
	require.True(t, failure.Is(err, failure.KindLoad))
	require.Equal(t, "draft", text)

	require.NoError(t, e.Save(context.Background()))
	require.Equal(t, "draft", c.notes["s1"])
}

func TestEditor_FailedLoadOfOtherSessionDoesNotCarryNotes(t *testing.T) {
	c := &fakeClient{notes: map[string]string{"a": "alpha notes", "b": "beta notes"}}
	e, err := NewEditor(c, time.Millisecond)
	require.NoError(t, err)
	defer e.Close()

	_, err = e.Load(context.Background(), "a")
	require.NoError(t, err)

	c.getErr = errors.New("down")
	text, err := e.Load(context.Background(), "b")
	require.True(t, failure.Is(err, failure.KindLoad))
	require.Empty(t, text)
	require.Empty(t, e.Text())

	require.True(t, failure.Is(e.Save(context.Background()), failure.KindPrecondition))
	require.Equal(t, "beta notes", c.notes["b"])
	require.Equal(t, "alpha notes", c.notes["a"])

	c.getErr = nil
	text, err = e.Load(context.Background(), "b")
	require.NoError(t, err)
	require.Equal(t, "beta notes", text)
	require.NoError(t, e.Save(context.Background()))
}

func TestEditor_SaveWithoutSession(t *testing.T) {
	e, err := NewEditor(&fakeClient{notes: map[string]string{}}, 0)
	require.NoError(t, err)
	require.True(t, failure.Is(e.Save(context.Background()), failure.KindPrecondition))
}
