package router

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yuzuki/roomgrab/pkg/roomapi"
)

// ChatLog appends room chatter to per-day, per-room text files.
type ChatLog struct {
	dir  string
	room string
	now  func() time.Time
}

func NewChatLog(dir, room string) *ChatLog {
	return &ChatLog{dir: dir, room: room, now: time.Now}
}

// Append writes one message line. The platform's system "News" broadcasts
// are noise and are dropped entirely.
func (l *ChatLog) Append(m roomapi.ChatEvent) error {
	if m.System && m.Nick == "News" {
		return nil
	}
	now := l.now()
	roomDir := filepath.Join(l.dir, l.room)
	if err := os.MkdirAll(roomDir, 0o755); err != nil {
		return fmt.Errorf("chatlog: create log dir: %w", err)
	}
	path := filepath.Join(roomDir, fmt.Sprintf("[%s][%s].txt", now.Format("2006-01-02"), l.room))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("chatlog: open log: %w", err)
	}
	defer f.Close()
	line := fmt.Sprintf("[%s][%s][%s][%s]\n", now.Format("2006-01-02--15:04:05"), RolePrefix(m), m.Nick, m.Text)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("chatlog: write log: %w", err)
	}
	return nil
}

// RolePrefix renders the sender's role flags as short sigils in a fixed
// order: admin, owner, janitor, staff, system.
func RolePrefix(m roomapi.ChatEvent) string {
	prefix := ""
	if m.Admin {
		prefix += "@"
	}
	if m.Owner {
		prefix += "$"
	}
	if m.Janitor {
		prefix += "~"
	}
	if m.Staff {
		prefix += "+"
	}
	if m.System {
		prefix += "%"
	}
	return prefix
}
