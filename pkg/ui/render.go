package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatfront/pkg/api"
	"github.com/go-go-golems/chatfront/pkg/directory"
	"github.com/go-go-golems/chatfront/pkg/timeline"
)

// Renderer turns timeline messages into terminal text. Assistant replies are
// rendered as markdown.
type Renderer struct {
	width        int
	previewLimit int
	markdown     *glamour.TermRenderer
}

func NewRenderer(width, previewLimit int) *Renderer {
	r := &Renderer{width: width, previewLimit: previewLimit}
	if width <= 0 {
		r.width = 80
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(r.width),
	)
	if err != nil {
		log.Warn().Err(err).Msg("markdown rendering disabled")
	} else {
		r.markdown = md
	}
	return r
}

// CopiedFunc reports whether a copy acknowledgment is showing for key.
type CopiedFunc func(key timeline.Key) bool

// Timeline renders all messages; selected is the message cursor or -1.
func (r *Renderer) Timeline(msgs []api.Message, selected int, copied CopiedFunc) string {
	if len(msgs) == 0 {
		return mutedStyle.Render("No messages yet. Type below and press enter.")
	}
	parts := make([]string, 0, len(msgs))
	for i, m := range msgs {
		parts = append(parts, r.Message(i, m, i == selected, copied))
	}
	return strings.Join(parts, "\n")
}

func (r *Renderer) Message(i int, m api.Message, selected bool, copied CopiedFunc) string {
	if copied == nil {
		copied = func(timeline.Key) bool { return false }
	}
	var sb strings.Builder

	label := userLabelStyle.Render("you")
	if m.Sender == api.SenderAssistant {
		label = assistantLabelStyle.Render("assistant")
	}
	sb.WriteString(label)
	if copied(timeline.MessageKey(i)) {
		sb.WriteString(" " + copiedStyle.Render("copied"))
	}
	sb.WriteString("\n")

	if m.Sender == api.SenderAssistant {
		sb.WriteString(r.renderMarkdown(m.Text))
	} else {
		sb.WriteString(m.Text)
		sb.WriteString("\n")
	}
	if m.File != nil {
		sb.WriteString(r.Attachment(i, m.File, copied))
	}

	style := plainMsgStyle
	if selected {
		style = selectedMsgStyle
	}
	return style.Render(strings.TrimRight(sb.String(), "\n"))
}

// Attachment renders the file line, the content preview and video segments.
func (r *Renderer) Attachment(i int, a *api.Attachment, copied CopiedFunc) string {
	var sb strings.Builder
	kind := "file"
	switch {
	case a.IsImage():
		kind = "image"
	case a.IsVideo():
		kind = "video"
	}
	state := a.URL
	if a.IsLocal() {
		state = "uploading..."
	}
	sb.WriteString(attachmentStyle.Render(fmt.Sprintf("[%s] %s  %s", kind, a.Name, state)))
	sb.WriteString("\n")

	if preview := a.ContentPreview(r.previewLimit); preview != "" {
		if len([]rune(preview)) < len([]rune(a.Content)) {
			preview += "..."
		}
		head := "content"
		if copied(timeline.ContentKey(i)) {
			head += " " + copiedStyle.Render("copied")
		}
		sb.WriteString(mutedStyle.Render(head) + "\n")
		sb.WriteString(attachmentStyle.Render(preview))
		sb.WriteString("\n")
	}

	if a.HasFrames() {
		for j, f := range a.Frames {
			line := fmt.Sprintf("  %d. %s", j+1, f)
			if copied(timeline.SegmentKey(i, j)) {
				line += " " + copiedStyle.Render("copied")
			}
			sb.WriteString(attachmentStyle.Render(line))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func (r *Renderer) renderMarkdown(text string) string {
	if r.markdown == nil {
		return text + "\n"
	}
	out, err := r.markdown.Render(text)
	if err != nil {
		log.Debug().Err(err).Msg("markdown render failed")
		return text + "\n"
	}
	return strings.Trim(out, "\n") + "\n"
}

// HighlightTitle renders a directory title with query matches emphasized.
func HighlightTitle(title, query string, base func(...string) string) string {
	var sb strings.Builder
	for _, seg := range directory.Highlight(title, query) {
		if seg.Match {
			sb.WriteString(matchStyle.Render(seg.Text))
		} else {
			sb.WriteString(base(seg.Text))
		}
	}
	return sb.String()
}
