// Package ledger tracks which uploads have already been handled, backed by
// two append-only logs: a per-room URL list and a cross-room content
// fingerprint file shared by every watched room.
package ledger

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

const contentLogName = "unified-duplicate-log.txt"

var (
	reupMarker = regexp.MustCompile(`(?i)\[re-?up\] `)
	newMarker  = regexp.MustCompile(`(?i)\[new\] (- )?`)
)

type contentKey struct {
	name string
	size int64
}

// Ledger is the duplicate-suppression state for one room. The URL set is
// room-local; the content fingerprint set is shared across rooms through a
// common log file. Both files are loaded once at open and only ever
// appended to afterwards.
type Ledger struct {
	urlPath     string
	contentPath string
	urls        map[string]struct{}
	content     map[contentKey]struct{}
}

// Open loads (or creates) the two logs for a room under dir.
func Open(dir, room string) (*Ledger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ledger: create log dir: %w", err)
	}
	l := &Ledger{
		urlPath:     filepath.Join(dir, "["+room+"] downloaded.txt"),
		contentPath: filepath.Join(dir, contentLogName),
		urls:        make(map[string]struct{}),
		content:     make(map[contentKey]struct{}),
	}
	if err := l.loadURLs(); err != nil {
		return nil, err
	}
	if err := l.loadContent(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Ledger) loadURLs() error {
	f, err := os.Open(l.urlPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("ledger: open url log: %w", err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			l.urls[line] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("ledger: read url log: %w", err)
	}
	return nil
}

func (l *Ledger) loadContent() error {
	f, err := os.Open(l.contentPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("ledger: open content log: %w", err)
	}
	defer f.Close()
	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("ledger: read content log: %w", err)
		}
		if len(row) < 2 {
			continue
		}
		size, err := strconv.ParseInt(strings.TrimSpace(row[1]), 10, 64)
		if err != nil {
			continue
		}
		l.content[contentKey{name: NormalizeName(row[0]), size: size}] = struct{}{}
	}
	return nil
}

// NormalizeName uppercases a file name and strips the platform's re-upload
// and [NEW] markers, so the same content shows up under one fingerprint no
// matter how it was re-announced.
func NormalizeName(name string) string {
	name = strings.ToUpper(name)
	name = reupMarker.ReplaceAllString(name, "")
	name = newMarker.ReplaceAllString(name, "")
	return name
}

// AlreadyHandled reports whether this exact URL was dispatched in this room
// before. Cheap and room-local; checked before the content fingerprint.
func (l *Ledger) AlreadyHandled(url string) bool {
	_, ok := l.urls[url]
	return ok
}

// IsContentDuplicate reports whether content with the same normalized name
// and size was seen in any room, regardless of URL.
func (l *Ledger) IsContentDuplicate(name string, size int64) bool {
	_, ok := l.content[contentKey{name: NormalizeName(name), size: size}]
	return ok
}

// Record appends the URL to the room log and the (name, size) fingerprint
// to the shared content log. Callers invoke it only after a dispatch
// backend reported success; a write error fails the operation and is not
// retried, so a duplicate record is never silently lost.
func (l *Ledger) Record(url, name string, size int64) error {
	if err := appendLine(l.urlPath, url+"\n"); err != nil {
		return fmt.Errorf("ledger: append url log: %w", err)
	}
	l.urls[url] = struct{}{}

	f, err := os.OpenFile(l.contentPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("ledger: open content log: %w", err)
	}
	defer f.Close()
	writer := csv.NewWriter(f)
	if err := writer.Write([]string{name, strconv.FormatInt(size, 10)}); err != nil {
		return fmt.Errorf("ledger: append content log: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("ledger: append content log: %w", err)
	}
	l.content[contentKey{name: NormalizeName(name), size: size}] = struct{}{}
	return nil
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(line)
	return err
}
