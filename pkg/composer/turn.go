package composer

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/go-go-golems/chatfront/pkg/api"
)

// ErrEmptyTurn is returned when a turn has neither text nor an attachment.
var ErrEmptyTurn = errors.New("turn needs text or an attachment")

// AttachmentLabelPrefix marks the display text of attachment messages.
const AttachmentLabelPrefix = "📄 "

// Turn is one unit of user input.
type Turn struct {
	Text       string
	Attachment *api.Attachment
}

// AttachmentTurn builds the turn shown for an attached file.
func AttachmentTurn(a *api.Attachment) Turn {
	return Turn{Text: AttachmentLabelPrefix + a.Name, Attachment: a}
}

func (t Turn) Empty() bool {
	return strings.TrimSpace(t.Text) == "" && t.Attachment == nil
}

// Message is the optimistic timeline entry for the turn.
func (t Turn) Message() api.Message {
	return api.Message{Sender: api.SenderUser, Text: t.Text, File: t.Attachment}
}

// Payload is what the assistant receives: extracted attachment content when
// there is any, otherwise the display text.
func (t Turn) Payload() string {
	if t.Attachment != nil && strings.TrimSpace(t.Attachment.Content) != "" {
		return t.Attachment.Content
	}
	return strings.TrimSpace(t.Text)
}
