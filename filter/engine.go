// Package filter implements the room-scoped upload matching engine.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/yuzuki/roomgrab/config"
	"github.com/yuzuki/roomgrab/pkg/roomapi"
)

// Mode is the state of one filter axis.
type Mode int

const (
	Unrestricted Mode = iota
	Blacklist
	Whitelist
)

// Engine evaluates files against the three filter axes: uploader, filename
// and filetype. Rule lists are prepared once at construction (entries
// without a #room scope get the watched room appended) and never mutated
// afterwards.
type Engine struct {
	room string

	uploaderMode Mode
	uploaderList []string

	filenameMode    Mode
	filenameList    []string
	filenameRegexps []*regexp.Regexp

	filetypeMode Mode
	filetypeList []string
}

// New builds an engine for the given room. A blacklist and a whitelist on
// the same axis is a configuration error; config.FiltersConfig.Validate
// catches it at startup and New rejects it again for direct constructions.
func New(room string, cfg config.FiltersConfig) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{room: room}

	e.uploaderMode, e.uploaderList = prepareAxis(room, cfg.UploaderBlacklist, cfg.UploaderWhitelist)
	e.filetypeMode, e.filetypeList = prepareAxis(room, cfg.FiletypeBlacklist, cfg.FiletypeWhitelist)
	e.filenameMode, e.filenameList = prepareAxis(room, cfg.FilenameBlacklist, cfg.FilenameWhitelist)

	if len(cfg.FilenameBlacklistRegex) > 0 {
		e.filenameMode = Blacklist
		for _, pattern := range cfg.FilenameBlacklistRegex {
			re, err := regexp.Compile("(?i)" + pattern)
			if err != nil {
				return nil, fmt.Errorf("filter: bad filename regex %q: %w", pattern, err)
			}
			e.filenameRegexps = append(e.filenameRegexps, re)
		}
	}

	return e, nil
}

func prepareAxis(room string, blacklist, whitelist []string) (Mode, []string) {
	if len(blacklist) > 0 {
		return Blacklist, prepareList(room, blacklist)
	}
	if len(whitelist) > 0 {
		return Whitelist, prepareList(room, whitelist)
	}
	return Unrestricted, nil
}

// prepareList appends #room to entries that carry no scope of their own, so
// unscoped rules default to the watched room.
func prepareList(room string, list []string) []string {
	prepared := make([]string, len(list))
	for i, entry := range list {
		if !strings.Contains(entry, "#") {
			entry = entry + "#" + room
		}
		prepared[i] = entry
	}
	return prepared
}

// Passes reports whether a file clears all three axes.
func (e *Engine) Passes(f roomapi.FileEvent) bool {
	return e.passesUploader(f.Uploader) && e.passesFilename(f.Name) && e.passesFiletype(f.FileType)
}

func (e *Engine) passesUploader(uploader string) bool {
	scoped := uploader + "#" + e.room
	switch e.uploaderMode {
	case Blacklist:
		return !containsFold(e.uploaderList, scoped)
	case Whitelist:
		return containsFold(e.uploaderList, scoped)
	}
	return true
}

func (e *Engine) passesFiletype(filetype string) bool {
	scoped := filetype + "#" + e.room
	switch e.filetypeMode {
	case Blacklist:
		return !containsFold(e.filetypeList, scoped)
	case Whitelist:
		return containsFold(e.filetypeList, scoped)
	}
	return true
}

func (e *Engine) passesFilename(name string) bool {
	switch e.filenameMode {
	case Blacklist:
		for _, entry := range e.filenameList {
			if nameMatchesEntry(name, entry, e.room) {
				return false
			}
		}
		for _, re := range e.filenameRegexps {
			if re.MatchString(name) {
				return false
			}
		}
		return true
	case Whitelist:
		for _, entry := range e.filenameList {
			if nameMatchesEntry(name, entry, e.room) {
				return true
			}
		}
		return false
	}
	return true
}

// nameMatchesEntry does the filename-axis substring match: the entry's value
// (before the #) against the lowercased name, gated by the entry's room
// scope.
func nameMatchesEntry(name, entry, room string) bool {
	value, scope, ok := strings.Cut(entry, "#")
	if !ok || !strings.EqualFold(scope, room) {
		return false
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(value))
}

func containsFold(list []string, v string) bool {
	for _, entry := range list {
		if strings.EqualFold(entry, v) {
			return true
		}
	}
	return false
}
