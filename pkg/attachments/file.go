package attachments

import (
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/go-go-golems/chatfront/pkg/api"
)

// Accepted lists the extensions offered by the file picker.
var Accepted = []string{
	".png", ".jpg", ".jpeg", ".pdf", ".doc", ".docx", ".txt", ".csv", ".xlsx",
	".ppt", ".pptx", ".mp3", ".mp4", ".zip", ".rar",
}

// File is one selected file.
type File struct {
	Name     string
	MimeType string
	Data     []byte
}

// ReadFile loads a file from disk and detects its MIME type.
func ReadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, errors.Wrapf(err, "read %s", path)
	}
	name := filepath.Base(path)
	return File{Name: name, MimeType: DetectMimeType(name, data), Data: data}, nil
}

// DetectMimeType prefers the extension and falls back to content sniffing.
func DetectMimeType(name string, data []byte) string {
	if mt := mime.TypeByExtension(filepath.Ext(name)); mt != "" {
		return mt
	}
	return http.DetectContentType(data)
}

// IsAccepted reports whether the picker would offer this file.
func IsAccepted(name string) bool {
	ext := filepath.Ext(name)
	for _, a := range Accepted {
		if strings.EqualFold(ext, a) {
			return true
		}
	}
	return false
}

func (f File) upload() api.UploadFile {
	return api.UploadFile{Name: f.Name, MimeType: f.MimeType, Data: f.Data}
}
