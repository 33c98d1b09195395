// Package api is the HTTP client for the chat backend. It is the only place
// that knows endpoint paths and wire shapes.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTimeout = 60 * time.Second

	// maxResponseSize bounds how much of a response body is read.
	maxResponseSize = 32 << 20

	// VoiceFileName is the file name the voice endpoint expects.
	VoiceFileName = "voice.wav"
)

var (
	// ErrNotAuthenticated is returned before sending when user id or token is missing.
	ErrNotAuthenticated = errors.New("user not authenticated")
	// ErrMissingSessionID is returned before sending when a call needs a session id.
	ErrMissingSessionID = errors.New("missing session id")
)

// StatusError is a non-2xx response.
type StatusError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Path, e.Status)
}

// Credentials identify the signed-in user. Issuing them is outside this client.
type Credentials struct {
	UserID string
	Token  string
}

func (c Credentials) Complete() bool {
	return strings.TrimSpace(c.UserID) != "" && strings.TrimSpace(c.Token) != ""
}

// Client talks to the chat backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	creds      Credentials
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds every request. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithCredentials(creds Credentials) Option {
	return func(c *Client) { c.creds = creds }
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "parse base url %q", baseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("base url %q must be http or https", baseURL)
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *Client) Credentials() Credentials { return c.creds }

// History loads a session's canonical timeline and model selection.
func (c *Client) History(ctx context.Context, sessionID string) (*HistoryResponse, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrMissingSessionID
	}
	var out HistoryResponse
	if err := c.doJSON(ctx, http.MethodGet, "/chat/history/"+url.PathEscape(sessionID), nil, false, nil, &out); err != nil {
		return nil, err
	}
	out.Messages = canonicalize(out.Messages)
	return &out, nil
}

// Send submits one turn and returns the full canonical history.
func (c *Client) Send(ctx context.Context, req SendRequest) (*SendResponse, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return nil, ErrMissingSessionID
	}
	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		key = uuid.NewString()
	}
	var out SendResponse
	hdr := http.Header{"Idempotency-Key": []string{key}}
	if err := c.doJSON(ctx, http.MethodPost, "/chat/send", req, false, hdr, &out); err != nil {
		return nil, err
	}
	out.History = canonicalize(out.History)
	return &out, nil
}

// ListSessions returns the user's sessions in server order.
func (c *Client) ListSessions(ctx context.Context) ([]Session, error) {
	if !c.creds.Complete() {
		return nil, ErrNotAuthenticated
	}
	var out listSessionsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/chat/user/"+url.PathEscape(c.creds.UserID), nil, true, nil, &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

// CreateSession creates a session for the current user and returns its id.
func (c *Client) CreateSession(ctx context.Context, name, model, memory string) (string, error) {
	if !c.creds.Complete() {
		return "", ErrNotAuthenticated
	}
	req := CreateSessionRequest{Name: name, UserID: c.creds.UserID, Model: model, Memory: memory}
	var out createSessionResponse
	if err := c.doJSON(ctx, http.MethodPost, "/sessions/new", req, true, nil, &out); err != nil {
		return "", err
	}
	if out.SessionID == "" {
		return "", errors.New("create session: empty session id in response")
	}
	return out.SessionID, nil
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	if !c.creds.Complete() {
		return ErrNotAuthenticated
	}
	if strings.TrimSpace(id) == "" {
		return ErrMissingSessionID
	}
	return c.doJSON(ctx, http.MethodDelete, "/sessions/"+url.PathEscape(id), nil, true, nil, nil)
}

// Upload posts files as multipart field "files" and returns one result per file.
func (c *Client) Upload(ctx context.Context, files ...UploadFile) ([]UploadedFile, error) {
	if len(files) == 0 {
		return nil, errors.New("upload: no files")
	}
	body, contentType, err := buildMultipart("files", files)
	if err != nil {
		return nil, err
	}
	var out uploadResponse
	if err := c.do(ctx, http.MethodPost, "/upload", body, contentType, false, nil, &out); err != nil {
		return nil, err
	}
	if len(out.Files) != len(files) {
		return nil, errors.Errorf("upload: sent %d files, server confirmed %d", len(files), len(out.Files))
	}
	return out.Files, nil
}

// UploadVoice posts a recorded clip and returns its transcription.
func (c *Client) UploadVoice(ctx context.Context, sessionID string, clip []byte) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", ErrMissingSessionID
	}
	body, contentType, err := buildMultipart("audio", []UploadFile{{Name: VoiceFileName, MimeType: "audio/wav", Data: clip}})
	if err != nil {
		return "", err
	}
	var out voiceResponse
	err = c.do(ctx, http.MethodPost, "/sessions/"+url.PathEscape(sessionID)+"/voice-upload", body, contentType, false, nil, &out)
	if err != nil {
		return "", err
	}
	if out.Error != "" {
		return "", errors.New(out.Error)
	}
	return out.Transcription, nil
}

func (c *Client) GetMemory(ctx context.Context, sessionID string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", ErrMissingSessionID
	}
	var out memoryBody
	if err := c.doJSON(ctx, http.MethodGet, "/sessions/"+url.PathEscape(sessionID)+"/memory", nil, false, nil, &out); err != nil {
		return "", err
	}
	return out.Memory, nil
}

func (c *Client) SaveMemory(ctx context.Context, sessionID, memory string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrMissingSessionID
	}
	return c.doJSON(ctx, http.MethodPost, "/sessions/"+url.PathEscape(sessionID)+"/memory", memoryBody{Memory: memory}, false, nil, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, auth bool, hdr http.Header, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Wrapf(err, "encode %s %s", method, path)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, body, contentType, auth, hdr, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, auth bool, hdr http.Header, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrapf(err, "build %s %s", method, path)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if auth {
		req.Header.Set("Authorization", "Bearer "+c.creds.Token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("api request")

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return errors.Wrapf(err, "read %s %s", method, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: method, Path: path, Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrapf(err, "decode %s %s", method, path)
	}
	return nil
}

// errorMessage extracts {"error": "..."} or {"message": "..."} from a body.
func errorMessage(raw []byte) string {
	var m struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &m); err == nil {
		if m.Error != "" {
			return m.Error
		}
		if m.Message != "" {
			return m.Message
		}
	}
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

func buildMultipart(field string, files []UploadFile) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, f.Name))
		mt := f.MimeType
		if mt == "" {
			mt = "application/octet-stream"
		}
		h.Set("Content-Type", mt)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", errors.Wrapf(err, "multipart part %s", f.Name)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", errors.Wrapf(err, "multipart write %s", f.Name)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "multipart close")
	}
	return &buf, w.FormDataContentType(), nil
}
