package voice

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrUnsupported is returned by a capturer on a platform without a recorder.
var ErrUnsupported = errors.New("voice capture is not supported on this platform")

// Capturer acquires the recording device.
type Capturer interface {
	// Open blocks until the device is ready and capture has started.
	Open(ctx context.Context) (Recording, error)
	Name() string
}

// Recording is an active capture.
type Recording interface {
	// Finish stops capturing and returns the finalized WAV clip.
	Finish() ([]byte, error)
	// Abort stops capturing and discards the clip.
	Abort()
}

// knownRecorders are probed in order when no command is configured.
var knownRecorders = [][]string{
	{"arecord", "-q", "-f", "cd", "-t", "wav"},
	{"rec", "-q", "-c", "1", "-t", "wav"},
}

// NewCapturer picks a capture backend once at startup. command overrides the
// probed recorder; the output file path is appended to it.
func NewCapturer(command string) Capturer {
	if fields := strings.Fields(command); len(fields) > 0 {
		if path, err := exec.LookPath(fields[0]); err == nil {
			return &CommandCapturer{Path: path, Args: fields[1:]}
		}
		log.Warn().Str("command", fields[0]).Msg("configured recorder not found")
		return Unsupported{}
	}
	for _, r := range knownRecorders {
		if path, err := exec.LookPath(r[0]); err == nil {
			log.Debug().Str("recorder", path).Msg("voice capture available")
			return &CommandCapturer{Path: path, Args: r[1:]}
		}
	}
	return Unsupported{}
}

// Unsupported is the capturer for platforms without a recorder.
type Unsupported struct{}

func (Unsupported) Open(context.Context) (Recording, error) { return nil, ErrUnsupported }
func (Unsupported) Name() string { return "unsupported" }

// CommandCapturer records through an external program writing WAV to a file.
type CommandCapturer struct {
	Path string
	Args []string
	// Grace is how long a recorder gets to flush after an interrupt.
	Grace time.Duration
}

func (c *CommandCapturer) Name() string { return filepath.Base(c.Path) }

func (c *CommandCapturer) Open(ctx context.Context) (Recording, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.CreateTemp("", "chatfront-voice-*.wav")
	if err != nil {
		return nil, errors.Wrap(err, "create clip file")
	}
	out := f.Name()
	_ = f.Close()

	args := append(append([]string(nil), c.Args...), out)
	cmd := exec.Command(c.Path, args...)
	if err := cmd.Start(); err != nil {
		_ = os.Remove(out)
		return nil, errors.Wrapf(err, "start %s", c.Name())
	}
	grace := c.Grace
	if grace <= 0 {
		grace = 2 * time.Second
	}
	r := &commandRecording{cmd: cmd, out: out, grace: grace, exited: make(chan error, 1)}
	go func() { r.exited <- cmd.Wait() }()
	return r, nil
}

type commandRecording struct {
	cmd    *exec.Cmd
	out    string
	grace  time.Duration
	exited chan error

	once sync.Once
}

func (r *commandRecording) stop() {
	r.once.Do(func() {
		_ = r.cmd.Process.Signal(os.Interrupt)
		select {
		case <-r.exited:
		case <-time.After(r.grace):
			_ = r.cmd.Process.Kill()
			<-r.exited
		}
	})
}

func (r *commandRecording) Finish() ([]byte, error) {
	r.stop()
	defer func() { _ = os.Remove(r.out) }()
	clip, err := os.ReadFile(r.out)
	if err != nil {
		return nil, errors.Wrap(err, "read clip")
	}
	if len(clip) == 0 {
		return nil, errors.New("recorder produced an empty clip")
	}
	return clip, nil
}

func (r *commandRecording) Abort() {
	r.stop()
	_ = os.Remove(r.out)
}
