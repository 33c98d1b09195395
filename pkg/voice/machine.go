// Package voice implements the capture-then-transcribe state machine behind
// the composer's microphone affordance.
package voice

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatfront/pkg/events"
	"github.com/go-go-golems/chatfront/pkg/failure"
)

type State string

const (
	StateIdle      State = "idle"
	StateAcquiring State = "acquiring"
	StateRecording State = "recording"
	StateStopping  State = "stopping"
	StateUploading State = "uploading"
)

var (
	// ErrBusy is returned when a capture is started while one is active.
	ErrBusy = errors.New("a voice capture is already active")
	// ErrNotRecording is returned when stopping without an active recording.
	ErrNotRecording = errors.New("no voice capture is recording")
)

// Uploader transcribes a finalized clip for a session.
type Uploader interface {
	UploadVoice(ctx context.Context, sessionID string, clip []byte) (string, error)
}

type Config struct {
	Capturer Capturer
	Uploader Uploader
	// Session returns the session the clip is scoped to.
	Session func() string
	// OnTranscript receives the transcription. The engine uses it to fill
	// the composer draft; it never submits.
	OnTranscript func(text string)
	Sink         events.Sink
	Alerter      failure.Alerter
	// TickInterval is the elapsed-counter period. Zero means one second;
	// negative disables the internal ticker and Tick must be driven manually.
	TickInterval time.Duration
}

// Machine is the single capture slot of one composer.
type Machine struct {
	capturer     Capturer
	uploader     Uploader
	session      func() string
	onTranscript func(string)
	sink         events.Sink
	alerter      failure.Alerter
	interval     time.Duration

	mu        sync.Mutex
	state     State
	elapsed   int
	recording Recording
	stopTick  chan struct{}
	tickDone  chan struct{}
}

func New(cfg Config) (*Machine, error) {
	if cfg.Capturer == nil {
		cfg.Capturer = Unsupported{}
	}
	if cfg.Uploader == nil {
		return nil, errors.New("voice: uploader is nil")
	}
	if cfg.Session == nil {
		cfg.Session = func() string { return "" }
	}
	if cfg.OnTranscript == nil {
		cfg.OnTranscript = func(string) {}
	}
	if cfg.Alerter == nil {
		cfg.Alerter = failure.NopAlerter
	}
	if cfg.TickInterval == 0 {
		cfg.TickInterval = time.Second
	}
	return &Machine{
		capturer:     cfg.Capturer,
		uploader:     cfg.Uploader,
		session:      cfg.Session,
		onTranscript: cfg.OnTranscript,
		sink:         cfg.Sink,
		alerter:      cfg.Alerter,
		interval:     cfg.TickInterval,
		state:        StateIdle,
	}, nil
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Seconds is the elapsed recording time. It is frozen while the clip is
// finalized and uploaded and is zero whenever the machine is idle.
func (m *Machine) Seconds() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.elapsed
}

// Elapsed formats Seconds as mm:ss.
func (m *Machine) Elapsed() string {
	return FormatElapsed(m.Seconds())
}

func FormatElapsed(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// CanStart reports whether the capture affordance is enabled.
func (m *Machine) CanStart() bool {
	return m.State() == StateIdle
}

func (m *Machine) CapturerName() string {
	return m.capturer.Name()
}

// Start acquires the device and begins recording.
func (m *Machine) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateIdle {
		m.mu.Unlock()
		return ErrBusy
	}
	m.setStateLocked(StateAcquiring)
	m.mu.Unlock()

	rec, err := m.capturer.Open(ctx)
	if err != nil {
		log.Error().Err(err).Str("capturer", m.capturer.Name()).Msg("could not acquire recording device")
		m.toIdle()
		err = failure.Capture("start voice capture", err)
		failure.Report(m.alerter, err)
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateAcquiring {
		// Closed while acquiring.
		rec.Abort()
		return ErrNotRecording
	}
	m.recording = rec
	m.elapsed = 0
	m.setStateLocked(StateRecording)
	if m.interval > 0 {
		m.stopTick = make(chan struct{})
		m.tickDone = make(chan struct{})
		go m.runTicker(m.interval, m.stopTick, m.tickDone)
	}
	return nil
}

func (m *Machine) runTicker(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			m.Tick()
		}
	}
}

// Tick advances the elapsed counter by one second while recording.
func (m *Machine) Tick() {
	m.mu.Lock()
	if m.state != StateRecording {
		m.mu.Unlock()
		return
	}
	m.elapsed++
	e := events.Event{Type: events.TypeVoiceTick, SessionID: m.session(), State: string(m.state), Elapsed: m.elapsed}
	m.mu.Unlock()
	events.Emit(m.sink, e)
}

// StopAndUpload finalizes the clip and uploads it as the session's voice
// message. On success the transcription is handed to OnTranscript and
// returned. Any failure, including a missing session id, returns the machine
// to idle without a retry.
func (m *Machine) StopAndUpload(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.state != StateRecording {
		m.mu.Unlock()
		return "", ErrNotRecording
	}
	rec := m.recording
	m.recording = nil
	m.setStateLocked(StateStopping)
	done := m.stopTickerLocked()
	m.mu.Unlock()
	waitTicker(done)

	clip, err := rec.Finish()
	if err != nil {
		log.Error().Err(err).Msg("could not finalize voice clip")
		m.toIdle()
		err = failure.Capture("finalize voice clip", err)
		failure.Report(m.alerter, err)
		return "", err
	}

	sessionID := m.session()
	if sessionID == "" {
		m.toIdle()
		err := failure.Precondition("upload voice", "no session selected")
		failure.Report(m.alerter, err)
		return "", err
	}

	m.mu.Lock()
	m.setStateLocked(StateUploading)
	secs := m.elapsed
	m.mu.Unlock()
	log.Info().Str("session_id", sessionID).Int("bytes", len(clip)).Str("elapsed", FormatElapsed(secs)).Msg("uploading voice clip")

	text, err := m.uploader.UploadVoice(ctx, sessionID, clip)
	m.toIdle()
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("voice upload failed")
		if !failure.Is(err, failure.KindUpload) {
			err = failure.Upload("upload voice", err)
		}
		failure.Report(m.alerter, err)
		return "", err
	}
	m.onTranscript(text)
	return text, nil
}

// Cancel discards an active recording. It is a no-op unless recording.
func (m *Machine) Cancel() {
	m.mu.Lock()
	if m.state != StateRecording {
		m.mu.Unlock()
		return
	}
	rec := m.recording
	m.recording = nil
	done := m.stopTickerLocked()
	m.elapsed = 0
	m.setStateLocked(StateIdle)
	m.mu.Unlock()
	waitTicker(done)
	rec.Abort()
}

// Close cancels any recording and stops the ticker.
func (m *Machine) Close() {
	m.mu.Lock()
	if m.state == StateAcquiring {
		m.setStateLocked(StateIdle)
	}
	m.mu.Unlock()
	m.Cancel()
}

func (m *Machine) toIdle() {
	m.mu.Lock()
	m.elapsed = 0
	m.setStateLocked(StateIdle)
	m.mu.Unlock()
}

func (m *Machine) stopTickerLocked() chan struct{} {
	if m.stopTick == nil {
		return nil
	}
	close(m.stopTick)
	done := m.tickDone
	m.stopTick, m.tickDone = nil, nil
	return done
}

func waitTicker(done chan struct{}) {
	if done != nil {
		<-done
	}
}

func (m *Machine) setStateLocked(s State) {
	if m.state == s {
		return
	}
	log.Debug().Str("from", string(m.state)).Str("to", string(s)).Msg("voice state")
	m.state = s
	events.Emit(m.sink, events.Event{Type: events.TypeVoiceState, SessionID: m.session(), State: string(s), Elapsed: m.elapsed})
}
