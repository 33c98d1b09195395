package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/go-go-golems/chatfront/pkg/events"
)

// AlertQueue collects alerts raised by engine goroutines until the TUI
// picks them up. It implements failure.Alerter.
type AlertQueue struct {
	ch chan string
}

func NewAlertQueue() *AlertQueue {
	return &AlertQueue{ch: make(chan string, 16)}
}

// Alert never blocks; alerts beyond the buffer are dropped.
func (q *AlertQueue) Alert(msg string) {
	select {
	case q.ch <- msg:
	default:
	}
}

type alertMsg string

func waitForAlert(q *AlertQueue) tea.Cmd {
	return func() tea.Msg {
		return alertMsg(<-q.ch)
	}
}

type eventMsg struct {
	event events.Event
	src   <-chan events.Event
}

// subscriptionClosedMsg ends a listener whose channel closed.
type subscriptionClosedMsg struct{}

func waitForEvent(ch <-chan events.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return subscriptionClosedMsg{}
		}
		return eventMsg{event: e, src: ch}
	}
}
