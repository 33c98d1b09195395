package directory

import (
	"strings"
	"unicode"

	"github.com/go-go-golems/chatfront/pkg/api"
)

const (
	// DefaultName is the placeholder name of a freshly created session.
	DefaultName = "New Chat"
	// FallbackModel is sent when a session is created without a model.
	FallbackModel = "groq"

	titleRunes = 30
)

// Entry is one session as shown in the directory.
type Entry struct {
	api.Session
}

// Title is the explicit name unless it is the placeholder, else the first
// message truncated, else the model, else a short id.
func (e Entry) Title() string {
	if e.Name != "" && e.Name != DefaultName {
		return e.Name
	}
	if len(e.Messages) > 0 {
		r := []rune(e.Messages[0].Text)
		if len(r) > titleRunes {
			r = r[:titleRunes]
		}
		return string(r) + "..."
	}
	if e.Model != "" {
		return e.Model
	}
	id := []rune(e.ID)
	if len(id) > 4 {
		id = id[len(id)-4:]
	}
	return "Session " + string(id)
}

// Body is every message text of the entry, newline separated.
func (e Entry) Body() string {
	parts := make([]string, 0, len(e.Messages))
	for _, m := range e.Messages {
		parts = append(parts, m.Text)
	}
	return strings.Join(parts, "\n")
}

// Matches is a case-insensitive substring test on the title or the body.
// The empty query matches everything.
func (e Entry) Matches(query string) bool {
	if query == "" {
		return true
	}
	q := []rune(query)
	return indexFold([]rune(e.Title()), q, 0) >= 0 || indexFold([]rune(e.Body()), q, 0) >= 0
}

// Segment is a run of title text, marked when it matched the query.
type Segment struct {
	Text  string
	Match bool
}

// Highlight splits title into matched and unmatched runs for query.
func Highlight(title, query string) []Segment {
	if query == "" || title == "" {
		return []Segment{{Text: title}}
	}
	t, q := []rune(title), []rune(query)
	var out []Segment
	pos := 0
	for pos < len(t) {
		i := indexFold(t, q, pos)
		if i < 0 {
			break
		}
		if i > pos {
			out = append(out, Segment{Text: string(t[pos:i])})
		}
		out = append(out, Segment{Text: string(t[i : i+len(q)]), Match: true})
		pos = i + len(q)
	}
	if pos < len(t) {
		out = append(out, Segment{Text: string(t[pos:])})
	}
	return out
}

func indexFold(s, sub []rune, from int) int {
	if len(sub) == 0 {
		return from
	}
	for i := from; i+len(sub) <= len(s); i++ {
		ok := true
		for j, r := range sub {
			if unicode.ToLower(s[i+j]) != unicode.ToLower(r) {
				ok = false
				break
			}
		}
		if ok {
			return i
		}
	}
	return -1
}
