// Package router sequences room events through the filter, the duplicate
// ledger and the active dispatch backend. One event is handled to completion
// before the next is read, so dispatch decisions for a room never interleave.
package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/yuzuki/roomgrab/config"
	"github.com/yuzuki/roomgrab/dispatch"
	"github.com/yuzuki/roomgrab/filter"
	"github.com/yuzuki/roomgrab/ledger"
	"github.com/yuzuki/roomgrab/pkg/roomapi"
)

// ErrSessionRestart asks the supervisor for a fresh session. It covers the
// scheduled daily refresh and detected connection loss; neither is an error
// condition.
var ErrSessionRestart = errors.New("router: session restart requested")

// Router is the per-session event state machine.
type Router struct {
	cfg     *config.Config
	session roomapi.Session
	filters *filter.Engine
	ledger  *ledger.Ledger
	backend dispatch.Backend
	chatlog *ChatLog

	seq       int
	startedAt time.Time
	refresh   time.Duration
	now       func() time.Time
}

func New(cfg *config.Config, session roomapi.Session, filters *filter.Engine, ldg *ledger.Ledger, backend dispatch.Backend) (*Router, error) {
	if !cfg.Download.Enabled && !cfg.ChatLog.Enabled {
		return nil, fmt.Errorf("router: neither downloading nor chat logging is enabled")
	}
	return &Router{
		cfg:     cfg,
		session: session,
		filters: filters,
		ledger:  ldg,
		backend: backend,
		chatlog: NewChatLog(cfg.ChatLog.Path, cfg.Room.Name),
		refresh: time.Duration(cfg.Room.RefreshHours) * time.Hour,
		now:     time.Now,
	}, nil
}

// Run processes the session until it ends. A nil or ErrSessionRestart
// return means the supervisor should reconnect; any other error stops the
// process.
func (r *Router) Run(ctx context.Context, firstStart bool) error {
	logger := log.FromContext(ctx)
	r.startedAt = r.now()

	if r.cfg.Download.Enabled && (r.cfg.Download.AllOnEnter || !r.cfg.Download.ContinueRunning) {
		if firstStart {
			logger.Info("downloading room on enter", "room", r.cfg.Room.Name)
		}
		if err := r.downloadRoom(ctx, firstStart); err != nil {
			return err
		}
	}
	if !r.cfg.Download.ContinueRunning {
		logger.Info("one-shot room download finished", "room", r.cfg.Room.Name)
		return nil
	}

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- r.session.Listen(ctx)
	}()

	events := r.session.Events()
	for {
		select {
		case <-ctx.Done():
			r.teardown(events, listenErr)
			return ctx.Err()
		case err := <-listenErr:
			if err == nil || errors.Is(err, roomapi.ErrConnectionLost) || errors.Is(err, context.Canceled) {
				if errors.Is(err, roomapi.ErrConnectionLost) {
					logger.Warn("connection has been lost", "room", r.cfg.Room.Name)
				}
				return ErrSessionRestart
			}
			return err
		case ev, ok := <-events:
			if !ok {
				// Drained; wait for Listen to report how the session ended.
				events = nil
				continue
			}
			if restart := r.handle(ctx, ev); restart {
				r.teardown(events, listenErr)
				return ErrSessionRestart
			}
		}
	}
}

// teardown closes the session and waits for Listen to return. Queued events
// are discarded while waiting; the session's sender can be blocked on a full
// event buffer, and a plain wait on listenErr would deadlock against it.
func (r *Router) teardown(events <-chan roomapi.Event, listenErr <-chan error) {
	r.session.Close()
	for {
		select {
		case _, ok := <-events:
			if !ok {
				events = nil
			}
		case <-listenErr:
			return
		}
	}
}

// handle dispatches one event; the return value reports whether the session
// should be torn down for a scheduled refresh or detected connection loss.
func (r *Router) handle(ctx context.Context, ev roomapi.Event) bool {
	logger := log.FromContext(ctx)
	switch ev := ev.(type) {
	case roomapi.FileEvent:
		if r.cfg.Download.Enabled {
			r.handleFile(ctx, ev, !r.cfg.Download.AllowDuplicates, false)
		}
	case roomapi.ChatEvent:
		if r.cfg.ChatLog.Enabled {
			if err := r.chatlog.Append(ev); err != nil {
				logger.Error("failed to write chat log", "error", err)
			}
		}
	case roomapi.TimeEvent:
		if ev.At.After(r.startedAt.Add(r.refresh)) {
			logger.Info("refresh interval has passed, reloading session", "room", r.cfg.Room.Name)
			return true
		}
		if !r.session.Connected() {
			logger.Warn("connection has been lost", "room", r.cfg.Room.Name)
			return true
		}
	}
	return false
}

// handleFile runs the full pipeline for one file: size limit, filters, both
// duplicate checks, dispatch, ledger record.
func (r *Router) handleFile(ctx context.Context, f roomapi.FileEvent, avoidDuplicates, quiet bool) {
	logger := log.FromContext(ctx)

	if max := r.cfg.Download.MaxFileSizeMB; max > -1 && f.Size/1048576 >= max {
		logger.Warn("file is too big to download", "file", f.Name, "size", humanize.IBytes(uint64(f.Size)))
		return
	}
	if !r.filters.Passes(f) {
		if !quiet {
			logger.Warn("file got filtered out", "file", f.Name, "uploader", f.Uploader)
		}
		return
	}
	if r.ledger.AlreadyHandled(f.URL) {
		return
	}
	if r.ledger.IsContentDuplicate(f.Name, f.Size) {
		logger.Warn("file is a content duplicate", "file", f.Name, "size", f.Size)
		return
	}

	dest := dispatch.ParseDownloadPath(r.cfg.Download.Path, f, r.cfg.Download, r.now())
	if err := r.backend.Dispatch(ctx, f, dest, avoidDuplicates); err != nil {
		if errors.Is(err, dispatch.ErrDuplicateOnDisk) {
			logger.Warn("file exists already", "file", f.Name)
		} else {
			logger.Error("dispatch failed", "backend", r.backend.Name(), "file", f.Name, "error", err)
		}
		return
	}

	r.seq++
	logger.Info("dispatched", "seq", r.seq, "backend", r.backend.Name(), "file", f.Name,
		"uploader", f.Uploader, "size", humanize.IBytes(uint64(f.Size)))

	if err := r.ledger.Record(f.URL, f.Name, f.Size); err != nil {
		logger.Error("failed to record download", "file", f.Name, "error", err)
	}
}

// downloadRoom pushes the room's existing file listing through the same
// pipeline. Duplicate avoidance is forced on here regardless of config so a
// fresh start does not flood the destination with second copies.
func (r *Router) downloadRoom(ctx context.Context, firstStart bool) error {
	files, err := r.session.Files(ctx)
	if err != nil {
		return fmt.Errorf("router: room listing: %w", err)
	}
	for _, f := range files {
		r.handleFile(ctx, f, true, !firstStart)
	}
	if firstStart {
		log.FromContext(ctx).Info("downloading the room has finished, leaving this running to catch new files",
			"room", r.cfg.Room.Name, "files", len(files))
	}
	return nil
}
