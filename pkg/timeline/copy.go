package timeline

import (
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/pkg/errors"
)

// Clipboard is where copied text goes.
type Clipboard interface {
	WriteAll(text string) error
}

// SystemClipboard writes to the OS clipboard.
type SystemClipboard struct{}

func (SystemClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return errors.New("clipboard is not supported on this system")
	}
	return clipboard.WriteAll(text)
}

// Key identifies one copy affordance.
type Key string

func MessageKey(msg int) Key { return Key(fmt.Sprintf("msg:%d", msg)) }
func ContentKey(msg int) Key { return Key(fmt.Sprintf("content:%d", msg)) }
func SegmentKey(msg, frame int) Key { return Key(fmt.Sprintf("frame:%d:%d", msg, frame)) }

// Copy writes text to the clipboard and marks key as copied until the
// acknowledgment delay elapses. Copying the same key again restarts its timer;
// other keys are unaffected.
func (t *Timeline) Copy(key Key, text string) error {
	if err := t.clip.WriteAll(text); err != nil {
		return errors.Wrap(err, "copy to clipboard")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	if old, ok := t.copied[key]; ok {
		old.Stop()
	}
	var tm *time.Timer
	tm = time.AfterFunc(t.ackDelay, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.copied[key] == tm {
			delete(t.copied, key)
		}
	})
	t.copied[key] = tm
	return nil
}

// IsCopied reports whether key still shows its copied acknowledgment.
func (t *Timeline) IsCopied(key Key) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.copied[key]
	return ok
}

// CopiedKeys returns the keys currently acknowledged.
func (t *Timeline) CopiedKeys() []Key {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Key, 0, len(t.copied))
	for k := range t.copied {
		out = append(out, k)
	}
	return out
}

// AckDelay is how long a copy acknowledgment stays visible.
func (t *Timeline) AckDelay() time.Duration {
	return t.ackDelay
}
