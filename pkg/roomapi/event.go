package roomapi

import (
	"net/url"
	"path"
	"time"
)

// Event is the closed set of payloads a room session delivers. The router
// switches over the concrete types; there is no fourth kind.
type Event interface {
	isEvent()
}

// FileEvent describes a file upload announced by the room. It is read-only
// for consumers; computed values (destination paths and the like) are passed
// around separately.
type FileEvent struct {
	URL      string
	Name     string
	Size     int64
	Uploader string
	FileType string
	Room     string
	Expires  time.Time
}

func (FileEvent) isEvent() {}

// ChatEvent is a single chat message with the sender's role flags.
type ChatEvent struct {
	Nick    string
	Text    string
	Admin   bool
	Owner   bool
	Janitor bool
	Staff   bool
	System  bool
}

func (ChatEvent) isEvent() {}

// TimeEvent is a periodic tick used for session maintenance.
type TimeEvent struct {
	At time.Time
}

func (TimeEvent) isEvent() {}

// FileName derives the file name from an upload URL, the same way the
// platform names downloads.
func FileName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return path.Base(rawURL)
	}
	return path.Base(u.Path)
}
