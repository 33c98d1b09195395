// Package apitest runs an in-memory chat backend for tests.
package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/go-go-golems/chatfront/pkg/api"
)

// Server is a fake backend speaking the chat REST surface under /api.
// Replies echo the turn: "reply to <payload>".
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	Token    string
	Sessions []api.Session
	Models   map[string]string
	Memory   map[string]string
	// Transcription is returned by voice uploads.
	Transcription string
	// FailUploads makes every file upload return 500.
	FailUploads bool
	// failNames fails uploads carrying any of these file names.
	failNames map[string]bool
	Sent      []api.SendRequest
	nextID    int
}

func NewServer(token string) *Server {
	s := &Server{
		Token:         token,
		Models:        map[string]string{},
		Memory:        map[string]string{},
		Transcription: "transcribed words",
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat/history/", s.history)
	mux.HandleFunc("/api/chat/send", s.send)
	mux.HandleFunc("/api/chat/user/", s.list)
	mux.HandleFunc("/api/sessions/new", s.create)
	mux.HandleFunc("/api/sessions/", s.sessionScoped)
	mux.HandleFunc("/api/upload", s.upload)
	s.Server = httptest.NewServer(mux)
	return s
}

// BaseURL is the API root to hand to api.NewClient.
func (s *Server) BaseURL() string { return s.URL + "/api" }

// AddSession seeds a session and returns its chat key.
func (s *Server) AddSession(name, model string, msgs ...api.Message) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(name, model, msgs)
}

func (s *Server) addLocked(name, model string, msgs []api.Message) string {
	s.nextID++
	key := fmt.Sprintf("chat-%d", s.nextID)
	s.Sessions = append(s.Sessions, api.Session{
		ID:        fmt.Sprintf("rec-%04d", s.nextID),
		SessionID: key,
		Name:      name,
		Model:     model,
		Messages:  msgs,
	})
	s.Models[key] = model
	return key
}

func (s *Server) find(key string) int {
	for i, sess := range s.Sessions {
		if sess.SessionID == key || sess.ID == key {
			return i
		}
	}
	return -1
}

// Messages returns the stored history of a session.
func (s *Server) Messages(key string) []api.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.find(key); i >= 0 {
		return append([]api.Message(nil), s.Sessions[i].Messages...)
	}
	return nil
}

func (s *Server) authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Bearer "+s.Token
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/api/chat/history/")
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(key)
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"messages":      s.Sessions[i].Messages,
		"selectedModel": s.Models[key],
	})
}

func (s *Server) send(w http.ResponseWriter, r *http.Request) {
	var req api.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(req.SessionID)
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	s.Sent = append(s.Sent, req)
	label := req.Message
	if req.File != nil {
		label = "📄 " + req.File.Name
	}
	sess := &s.Sessions[i]
	sess.Messages = append(sess.Messages,
		api.Message{Sender: api.SenderUser, Text: label, File: req.File},
		api.Message{Sender: api.SenderAssistant, Text: "reply to " + req.Message},
	)
	s.Models[req.SessionID] = req.SelectedModel
	writeJSON(w, http.StatusOK, map[string]any{"history": sess.Messages})
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"sessions": s.Sessions})
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	var req api.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.addLocked(req.Name, req.Model, nil)
	s.Memory[key] = req.Memory
	writeJSON(w, http.StatusOK, map[string]string{"sessionId": key})
}

func (s *Server) sessionScoped(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 1 && r.Method == http.MethodDelete:
		s.delete(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "memory":
		s.memory(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "voice-upload":
		s.voice(w, r, parts[0])
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request, id string) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sess := range s.Sessions {
		if sess.ID == id {
			s.Sessions = append(s.Sessions[:i], s.Sessions[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
}

func (s *Server) memory(w http.ResponseWriter, r *http.Request, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]string{"memory": s.Memory[key]})
	case http.MethodPost:
		var body struct {
			Memory string `json:"memory"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		s.Memory[key] = body.Memory
		writeJSON(w, http.StatusOK, map[string]string{"memory": body.Memory})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) voice(w http.ResponseWriter, r *http.Request, key string) {
	f, _, err := r.FormFile("audio")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no audio"})
		return
	}
	_ = f.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.find(key) < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"transcription": s.Transcription})
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	headers := r.MultipartForm.File["files"]
	s.mu.Lock()
	fail := s.FailUploads
	for _, fh := range headers {
		fail = fail || s.failNames[fh.Filename]
	}
	s.mu.Unlock()
	if fail {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage unavailable"})
		return
	}
	var out []api.UploadedFile
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		data, _ := io.ReadAll(f)
		_ = f.Close()
		uf := api.UploadedFile{
			OriginalName: fh.Filename,
			URL:          s.URL + "/files/" + fh.Filename,
			MimeType:     fh.Header.Get("Content-Type"),
		}
		switch {
		case strings.HasPrefix(uf.MimeType, "text/"):
			uf.Content = string(data)
		case strings.HasPrefix(uf.MimeType, "video/"):
			uf.Frames = []string{"segment 1: intro", "segment 2: demo"}
		}
		out = append(out, uf)
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": out})
}

// SentRequests returns every turn the server accepted, in arrival order.
func (s *Server) SentRequests() []api.SendRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.SendRequest(nil), s.Sent...)
}

func (s *Server) MemoryOf(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Memory[key]
}

func (s *Server) SetMemory(key, text string) {
	s.mu.Lock()
	s.Memory[key] = text
	s.mu.Unlock()
}

// FailUploadOf makes uploads of the named files fail.
func (s *Server) FailUploadOf(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNames == nil {
		s.failNames = map[string]bool{}
	}
	for _, n := range names {
		s.failNames[n] = true
	}
}

// SetFailUploads toggles upload failures.
func (s *Server) SetFailUploads(fail bool) {
	s.mu.Lock()
	s.FailUploads = fail
	s.mu.Unlock()
}
