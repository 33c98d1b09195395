// Package ui is the terminal front end: a session directory beside the
// active chat, with a compose line, attachments, voice capture and memory.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatfront/pkg/directory"
	"github.com/go-go-golems/chatfront/pkg/events"
	"github.com/go-go-golems/chatfront/pkg/memory"
	"github.com/go-go-golems/chatfront/pkg/session"
	"github.com/go-go-golems/chatfront/pkg/timeline"
	"github.com/go-go-golems/chatfront/pkg/voice"
)

type focus int

const (
	focusChat focus = iota
	focusDirectory
)

type prompt int

const (
	promptNone prompt = iota
	promptAttach
	promptMemory
	promptConfirmDelete
)

type Options struct {
	Workspace    *session.Workspace
	Bus          *events.Router
	Alerts       *AlertQueue
	PreviewLimit int
	// Initial is opened on start when set.
	Initial string
}

type Model struct {
	ctx      context.Context
	ws       *session.Workspace
	bus      *events.Router
	alerts   *AlertQueue
	renderer *Renderer
	limit    int
	initial  string

	viewport viewport.Model
	input    textinput.Model
	search   textinput.Model

	focus    focus
	prompt   prompt
	selected int
	pending  directory.Entry
	status   string
	alert    string
	width    int
	height   int
	ready    bool

	dirSub     <-chan events.Event
	sessionSub <-chan events.Event
	subCancel  context.CancelFunc
}

func NewModel(ctx context.Context, opts Options) *Model {
	in := textinput.New()
	in.Placeholder = "Type a message"
	in.Prompt = "> "
	in.Focus()

	search := textinput.New()
	search.Placeholder = "Search chats..."
	search.Prompt = "/ "

	alerts := opts.Alerts
	if alerts == nil {
		alerts = NewAlertQueue()
	}
	return &Model{
		ctx:      ctx,
		ws:       opts.Workspace,
		bus:      opts.Bus,
		alerts:   alerts,
		limit:    opts.PreviewLimit,
		initial:  opts.Initial,
		input:    in,
		search:   search,
		selected: -1,
		renderer: NewRenderer(80, opts.PreviewLimit),
	}
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{listCmd(m.ctx, m.ws), waitForAlert(m.alerts), textinput.Blink}
	if m.bus != nil {
		ch, err := m.bus.Subscribe(m.ctx, events.DirectoryTopic)
		if err != nil {
			log.Warn().Err(err).Msg("directory events unavailable")
		} else {
			m.dirSub = ch
			cmds = append(cmds, waitForEvent(ch))
		}
	}
	if m.initial != "" {
		cmds = append(cmds, openCmd(m.ctx, m.ws, m.initial))
	}
	return tea.Batch(cmds...)
}

// subscribeSession moves the session event listener to key.
func (m *Model) subscribeSession(key string) tea.Cmd {
	if m.bus == nil || key == "" {
		return nil
	}
	if m.subCancel != nil {
		m.subCancel()
	}
	ctx, cancel := context.WithCancel(m.ctx)
	ch, err := m.bus.Subscribe(ctx, events.TopicForSession(key))
	if err != nil {
		cancel()
		log.Warn().Err(err).Str("session_id", key).Msg("session events unavailable")
		return nil
	}
	m.subCancel = cancel
	m.sessionSub = ch
	return waitForEvent(ch)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.shutdown()
			return m, tea.Quit
		}
		if m.prompt != promptNone {
			return m, m.updatePrompt(msg)
		}
		if msg.String() == "tab" {
			m.toggleFocus()
			return m, nil
		}
		if m.focus == focusDirectory {
			return m, m.updateDirectory(msg)
		}
		cmds = append(cmds, m.updateChat(msg))

	case eventMsg:
		// Every engine event is a redraw.
		if msg.src == m.sessionSub || msg.src == m.dirSub {
			cmds = append(cmds, waitForEvent(msg.src))
		}

	case subscriptionClosedMsg:

	case alertMsg:
		m.alert = string(msg)
		cmds = append(cmds, waitForAlert(m.alerts))

	case refreshMsg:
		if m.ws.Session.Voice.State() == voice.StateRecording {
			cmds = append(cmds, m.tickRefresh(time.Second))
		}

	case listedMsg:
		if msg.err != nil {
			m.status = "could not load sessions"
		}

	case openedMsg:
		if msg.err != nil {
			m.status = "could not open session: " + msg.err.Error()
		} else if msg.key != "" {
			m.status = ""
			m.selected = -1
			m.focus = focusChat
			m.input.Focus()
			m.search.Blur()
			cmds = append(cmds, m.subscribeSession(msg.key))
		}

	case sentMsg:
		if msg.err != nil {
			// Submit failures are logged; the optimistic message stays.
			m.status = ""
		}

	case deletedMsg:
		if msg.err != nil {
			m.status = "could not delete session"
		}

	case attachedMsg:
		if msg.err != nil {
			m.status = "attachment: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("attached %d file(s)", len(msg.results))
		}

	case voiceStartedMsg:
		if msg.err == nil {
			cmds = append(cmds, m.tickRefresh(time.Second))
		}

	case voiceDoneMsg:
		if msg.err == nil {
			m.input.SetValue(m.ws.Session.Composer.Draft())
			m.input.CursorEnd()
		}

	case memorySavedMsg:
		if msg.err == nil {
			m.status = "memory saved"
		}
		cmds = append(cmds, m.tickRefresh(memory.DefaultStatusDelay+50*time.Millisecond))
	}

	m.refresh()
	if scrollsViewport(msg) {
		var vpCmd tea.Cmd
		m.viewport, vpCmd = m.viewport.Update(msg)
		cmds = append(cmds, vpCmd)
	}
	return m, tea.Batch(cmds...)
}

// scrollsViewport keeps typed text out of the viewport's vim-style keys.
func scrollsViewport(msg tea.Msg) bool {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return true
	}
	switch k.String() {
	case "pgup", "pgdown":
		return true
	}
	return false
}

func (m *Model) tickRefresh(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return refreshMsg{} })
}

func (m *Model) toggleFocus() {
	if m.focus == focusChat {
		m.focus = focusDirectory
		m.input.Blur()
		m.search.Focus()
		return
	}
	m.focus = focusChat
	m.search.Blur()
	m.input.Focus()
}

func (m *Model) updateDirectory(msg tea.KeyMsg) tea.Cmd {
	d := m.ws.Directory
	switch msg.String() {
	case "down":
		d.Down()
		return nil
	case "up":
		d.Up()
		return nil
	case "enter":
		return enterCmd(m.ws)
	case "ctrl+n":
		return createCmd(m.ctx, m.ws)
	case "ctrl+d":
		if e, ok := d.Selected(); ok {
			m.pending = e
			m.prompt = promptConfirmDelete
		}
		return nil
	case "esc":
		m.search.SetValue("")
		d.Search("")
		return nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	d.Search(m.search.Value())
	return cmd
}

func (m *Model) updateChat(msg tea.KeyMsg) tea.Cmd {
	s := m.ws.Session
	tl := s.Timeline
	switch msg.String() {
	case "enter":
		if s.Composer.Busy() || strings.TrimSpace(m.input.Value()) == "" {
			return nil
		}
		s.Composer.SetDraft(m.input.Value())
		m.input.SetValue("")
		return sendCmd(m.ctx, m.ws)
	case "ctrl+p":
		if n := tl.Len(); n > 0 {
			if m.selected <= 0 {
				m.selected = n - 1
			} else {
				m.selected--
			}
		}
		return nil
	case "ctrl+n":
		if n := tl.Len(); n > 0 {
			m.selected = (m.selected + 1) % n
		}
		return nil
	case "ctrl+y":
		return m.copySelected(false)
	case "ctrl+t":
		return m.copySelected(true)
	case "ctrl+o":
		m.openPrompt(promptAttach, "", "files to attach: ")
		return nil
	case "ctrl+e":
		m.openPrompt(promptMemory, s.Memory.Text(), "memory: ")
		return nil
	case "ctrl+l":
		m.cycleModel()
		return nil
	case "ctrl+r":
		switch s.Voice.State() {
		case voice.StateIdle:
			return voiceStartCmd(m.ctx, m.ws)
		case voice.StateRecording:
			return voiceStopCmd(m.ctx, m.ws)
		}
		return nil
	case "esc":
		m.alert = ""
		m.selected = -1
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	s.Composer.SetDraft(m.input.Value())
	return cmd
}

// copySelected copies the selected message (newest when none is selected),
// or its attachment content when content is set.
func (m *Model) copySelected(content bool) tea.Cmd {
	tl := m.ws.Session.Timeline
	msgs := tl.Messages()
	if len(msgs) == 0 {
		return nil
	}
	i := m.selected
	if i < 0 || i >= len(msgs) {
		i = len(msgs) - 1
	}
	key, text := timeline.MessageKey(i), msgs[i].Text
	if content {
		f := msgs[i].File
		if f == nil || f.Content == "" {
			return nil
		}
		key, text = timeline.ContentKey(i), f.Content
	}
	if err := tl.Copy(key, text); err != nil {
		m.status = "copy failed: " + err.Error()
		return nil
	}
	return m.tickRefresh(tl.AckDelay() + 50*time.Millisecond)
}

func (m *Model) cycleModel() {
	h := m.ws.Session.Model
	opts := h.Catalog().Options
	if len(opts) == 0 {
		return
	}
	cur := h.Current().Effective
	next := opts[0].Value
	for i, o := range opts {
		if o.Value == cur {
			next = opts[(i+1)%len(opts)].Value
			break
		}
	}
	sel := m.ws.Session.SelectModel(next)
	m.status = "model: " + sel.String()
}

func (m *Model) openPrompt(p prompt, value, label string) {
	m.prompt = p
	m.input.Prompt = label
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
}

func (m *Model) closePrompt() {
	m.prompt = promptNone
	m.input.Prompt = "> "
	m.input.SetValue(m.ws.Session.Composer.Draft())
	m.input.CursorEnd()
}

func (m *Model) updatePrompt(msg tea.KeyMsg) tea.Cmd {
	if m.prompt == promptConfirmDelete {
		p := m.pending
		m.prompt = promptNone
		if msg.String() == "y" {
			return deleteCmd(m.ctx, m.ws, p.ID)
		}
		return nil
	}

	switch msg.String() {
	case "esc":
		m.closePrompt()
		return nil
	case "enter":
		value := m.input.Value()
		p := m.prompt
		m.closePrompt()
		if p == promptAttach {
			return attachCmd(m.ctx, m.ws, value)
		}
		return memorySaveCmd(m.ctx, m.ws, value)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) resize(w, h int) {
	m.width, m.height = w, h
	chatWidth := w - directoryWidth - 6
	if chatWidth < 20 {
		chatWidth = 20
	}
	vh := h - 7
	if vh < 3 {
		vh = 3
	}
	if !m.ready {
		m.viewport = viewport.New(chatWidth, vh)
		m.ready = true
	} else {
		m.viewport.Width = chatWidth
		m.viewport.Height = vh
	}
	m.input.Width = chatWidth - 4
	m.search.Width = directoryWidth - 4
	m.renderer = NewRenderer(chatWidth-4, m.limit)
}

// refresh re-renders the timeline and follows new messages.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	tl := m.ws.Session.Timeline
	m.viewport.SetContent(m.renderer.Timeline(tl.Messages(), m.selected, tl.IsCopied))
	if tl.ConsumeScroll() {
		m.viewport.GotoBottom()
	}
}

func (m *Model) shutdown() {
	if m.subCancel != nil {
		m.subCancel()
	}
	m.ws.Session.Voice.Cancel()
}

func (m *Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	left := m.directoryView()
	right := m.chatView()
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	return lipgloss.JoinVertical(lipgloss.Left, body, m.footer())
}

func (m *Model) directoryView() string {
	d := m.ws.Directory
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Chats"))
	sb.WriteString("\n")
	sb.WriteString(m.search.View())
	sb.WriteString("\n\n")

	results := d.Results()
	if len(results) == 0 {
		sb.WriteString(mutedStyle.Render("No sessions"))
	}
	cursor := d.Cursor()
	active := m.ws.Session.ID()
	for i, e := range results {
		base := entryStyle.Render
		if i == cursor && m.focus == focusDirectory {
			base = selectedEntryStyle.Render
		}
		marker := "  "
		if e.Key() == active {
			marker = "• "
		}
		sb.WriteString(marker + HighlightTitle(e.Title(), d.Query(), base))
		sb.WriteString("\n")
	}

	pane := directoryPane.Width(directoryWidth).Height(m.height - 4)
	if m.focus == focusDirectory {
		pane = pane.BorderForeground(focusedBorder)
	}
	return pane.Render(sb.String())
}

func (m *Model) chatView() string {
	s := m.ws.Session
	header := titleStyle.Render(m.sessionTitle()) + "  " + mutedStyle.Render(s.Model.Current().String())

	var line string
	switch m.prompt {
	case promptConfirmDelete:
		line = fmt.Sprintf("Delete %q? (y/n)", m.pending.Title())
	default:
		line = m.input.View()
	}

	pane := chatPane.Width(m.width - directoryWidth - 6).Height(m.height - 4)
	if m.focus == focusChat {
		pane = pane.BorderForeground(focusedBorder)
	}
	return pane.Render(lipgloss.JoinVertical(lipgloss.Left, header, m.viewport.View(), line))
}

func (m *Model) sessionTitle() string {
	id := m.ws.Session.ID()
	if id == "" {
		return "No session"
	}
	if e, ok := m.ws.Directory.Lookup(id); ok {
		return e.Title()
	}
	return id
}

func (m *Model) footer() string {
	s := m.ws.Session
	var parts []string
	switch st := s.Voice.State(); st {
	case voice.StateIdle:
	case voice.StateRecording, voice.StateStopping:
		parts = append(parts, recordingStyle.Render("REC "+s.Voice.Elapsed()))
	default:
		parts = append(parts, statusStyle.Render(string(st)+"..."))
	}
	if s.Composer.Busy() {
		parts = append(parts, statusStyle.Render("waiting for reply..."))
	}
	if m.alert != "" {
		parts = append(parts, alertStyle.Render(m.alert))
	}
	if st := s.Memory.Status(); st != "" {
		parts = append(parts, alertStyle.Render(st))
	}
	if m.status != "" {
		parts = append(parts, statusStyle.Render(m.status))
	}
	parts = append(parts, helpStyle.Render("tab focus • enter send • ctrl+o attach • ctrl+r voice • ctrl+e memory • ctrl+l model • ctrl+y copy • ctrl+c quit"))
	return strings.Join(parts, " ")
}
