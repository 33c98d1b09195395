package api

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Sender is the author role of a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Phase distinguishes a locally previewed attachment from the server-confirmed one.
type Phase string

const (
	PhaseLocal     Phase = "local"
	PhaseCanonical Phase = "canonical"
)

// BlobScheme prefixes locators that are only valid for the current process.
const BlobScheme = "blob:"

// Attachment is a file or voice-derived artifact carried by a message.
type Attachment struct {
	Name     string   `json:"name" yaml:"name"`
	URL      string   `json:"url" yaml:"url"`
	MimeType string   `json:"mimetype,omitempty" yaml:"mimetype,omitempty"`
	Content  string   `json:"content,omitempty" yaml:"content,omitempty"`
	Frames   []string `json:"frames,omitempty" yaml:"frames,omitempty"`

	Phase         Phase  `json:"-" yaml:"-"`
	CorrelationID string `json:"-" yaml:"-"`
}

// NewLocalAttachment builds a preview attachment backed by a blob locator.
func NewLocalAttachment(name, blobURL, mimeType, correlationID string) *Attachment {
	return &Attachment{
		Name:          name,
		URL:           blobURL,
		MimeType:      mimeType,
		Phase:         PhaseLocal,
		CorrelationID: correlationID,
	}
}

// NewCanonicalAttachment builds an attachment from an upload response.
func NewCanonicalAttachment(f UploadedFile, correlationID string) *Attachment {
	a := &Attachment{
		Name:          f.OriginalName,
		URL:           f.URL,
		MimeType:      f.MimeType,
		Content:       f.Content,
		Phase:         PhaseCanonical,
		CorrelationID: correlationID,
	}
	if a.IsVideo() && len(f.Frames) > 0 {
		a.Frames = append([]string(nil), f.Frames...)
	}
	return a
}

// Validate enforces that an attachment is either fully local or fully canonical.
func (a *Attachment) Validate() error {
	if a == nil {
		return nil
	}
	local := strings.HasPrefix(a.URL, BlobScheme)
	switch a.Phase {
	case PhaseLocal:
		if !local {
			return errors.Errorf("local attachment %q has non-blob locator %q", a.Name, a.URL)
		}
		if a.Content != "" || len(a.Frames) > 0 {
			return errors.Errorf("local attachment %q carries server content", a.Name)
		}
	case PhaseCanonical, "":
		if local {
			return errors.Errorf("canonical attachment %q has blob locator %q", a.Name, a.URL)
		}
	default:
		return errors.Errorf("attachment %q has unknown phase %q", a.Name, a.Phase)
	}
	return nil
}

func (a *Attachment) IsLocal() bool { return a != nil && a.Phase == PhaseLocal }

func (a *Attachment) IsImage() bool { return a != nil && strings.HasPrefix(a.MimeType, "image/") }

func (a *Attachment) IsVideo() bool { return a != nil && strings.HasPrefix(a.MimeType, "video/") }

// HasFrames is true only for a video attachment with at least one analysis segment.
func (a *Attachment) HasFrames() bool {
	return a.IsVideo() && len(a.Frames) > 0
}

// ContentPreview returns at most limit runes of the extracted content.
// Video attachments show frames instead and have no content preview.
func (a *Attachment) ContentPreview(limit int) string {
	if a == nil || a.Content == "" || a.IsVideo() {
		return ""
	}
	r := []rune(a.Content)
	if limit <= 0 || len(r) <= limit {
		return a.Content
	}
	return string(r[:limit])
}

// Message is one timeline entry.
type Message struct {
	Sender Sender      `json:"sender" yaml:"sender"`
	Text   string      `json:"message,omitempty" yaml:"message,omitempty"`
	File   *Attachment `json:"file,omitempty" yaml:"file,omitempty"`
}

// Session is the server-owned conversation record.
type Session struct {
	ID        string    `json:"_id" yaml:"id"`
	SessionID string    `json:"sessionId,omitempty" yaml:"session_id,omitempty"`
	Name      string    `json:"name" yaml:"name"`
	Model     string    `json:"model" yaml:"model"`
	Memory    string    `json:"memory,omitempty" yaml:"memory,omitempty"`
	Messages  []Message `json:"messages,omitempty" yaml:"messages,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty" yaml:"updated_at,omitempty"`
}

// Key is the identifier used to open the session's chat.
func (s Session) Key() string {
	if s.SessionID != "" {
		return s.SessionID
	}
	return s.ID
}

type HistoryResponse struct {
	Messages      []Message `json:"messages"`
	SelectedModel string    `json:"selectedModel"`
}

type SendRequest struct {
	SessionID     string      `json:"sessionId"`
	Message       string      `json:"message"`
	SelectedModel string      `json:"selectedModel"`
	UserID        string      `json:"userId"`
	File          *Attachment `json:"file,omitempty"`

	IdempotencyKey string `json:"-"`
}

type SendResponse struct {
	History []Message `json:"history"`
}

type CreateSessionRequest struct {
	Name   string `json:"name"`
	UserID string `json:"userId"`
	Model  string `json:"model"`
	Memory string `json:"memory"`
}

type createSessionResponse struct {
	SessionID string `json:"sessionId"`
}

type listSessionsResponse struct {
	Sessions []Session `json:"sessions"`
}

// UploadFile is one file handed to the multipart upload endpoint.
type UploadFile struct {
	Name     string
	MimeType string
	Data     []byte
}

// UploadedFile is the server's per-file upload result.
type UploadedFile struct {
	OriginalName string   `json:"originalname"`
	URL          string   `json:"url"`
	MimeType     string   `json:"mimetype"`
	Content      string   `json:"content,omitempty"`
	Frames       []string `json:"frames,omitempty"`
}

type uploadResponse struct {
	Files []UploadedFile `json:"files"`
}

type voiceResponse struct {
	Transcription string `json:"transcription"`
	Error         string `json:"error"`
}

type memoryBody struct {
	Memory string `json:"memory"`
}

// canonicalize marks server-provided attachments as canonical.
func canonicalize(msgs []Message) []Message {
	for i := range msgs {
		if msgs[i].File != nil && msgs[i].File.Phase == "" {
			msgs[i].File.Phase = PhaseCanonical
		}
	}
	return msgs
}
