// Package failure classifies engine errors. Every failure is terminal for the
// operation that produced it; nothing is retried automatically.
package failure

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is the failure class an operation reports.
type Kind string

const (
	// KindLoad covers history and session-list fetches. Logged only.
	KindLoad Kind = "load"
	// KindSubmit covers sending a turn. Logged only; the optimistic message stays.
	KindSubmit Kind = "submit"
	// KindUpload covers file and voice uploads. Logged and alerted.
	KindUpload Kind = "upload"
	// KindCapture is a recording device that could not be opened or finalized. Alerted.
	KindCapture Kind = "capture"
	// KindPrecondition is a missing user id, token or session id. Alerted, never sent.
	KindPrecondition Kind = "precondition"
)

// Error is a classified failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s failure [%s]", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s failure [%s]: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Alerting reports whether the failure should be surfaced to the user.
func (e *Error) Alerting() bool {
	switch e.Kind {
	case KindUpload, KindCapture, KindPrecondition:
		return true
	default:
		return false
	}
}

func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Load(op string, err error) error   { return New(KindLoad, op, err) }
func Submit(op string, err error) error { return New(KindSubmit, op, err) }
func Upload(op string, err error) error { return New(KindUpload, op, err) }

// Capture builds a recording-device failure.
func Capture(op string, err error) error { return New(KindCapture, op, err) }

// Precondition builds a precondition failure with a plain message.
func Precondition(op, msg string) error {
	return New(KindPrecondition, op, errors.New(msg))
}

// KindOf returns the kind of the first classified failure in err's chain.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) && fe != nil {
		return fe.Kind, true
	}
	return "", false
}

// Is reports whether err carries a failure of the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// Alerter surfaces failures that the user must acknowledge.
type Alerter interface {
	Alert(msg string)
}

// AlerterFunc adapts a function to Alerter.
type AlerterFunc func(msg string)

func (f AlerterFunc) Alert(msg string) { f(msg) }

// NopAlerter drops alerts.
var NopAlerter Alerter = AlerterFunc(func(string) {})

// Report sends err to the alerter when its kind requires user attention.
// It returns true when an alert was raised.
func Report(a Alerter, err error) bool {
	if a == nil || err == nil {
		return false
	}
	var fe *Error
	if !errors.As(err, &fe) || fe == nil || !fe.Alerting() {
		return false
	}
	a.Alert(fe.Error())
	return true
}
