package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
	"github.com/rs/xid"
	"github.com/spf13/cobra"

	"github.com/yuzuki/roomgrab/config"
	"github.com/yuzuki/roomgrab/dispatch"
	"github.com/yuzuki/roomgrab/filter"
	"github.com/yuzuki/roomgrab/ledger"
	"github.com/yuzuki/roomgrab/pkg/roomapi"
	"github.com/yuzuki/roomgrab/router"
)

func Run(cmd *cobra.Command, _ []string) {
	if passwd, _ := cmd.Flags().GetString("passwd"); passwd != "" {
		config.ApplyPasswordFlag(passwd)
	}
	if err := config.Init(); err != nil {
		fmt.Println("Failed to load config:", err)
		os.Exit(1)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})
	if level, err := log.ParseLevel(config.C().Log.Level); err == nil {
		logger.SetLevel(level)
	}

	ctx := log.WithContext(cmd.Context(), logger)
	if err := runLoop(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("exiting", "error", err)
	}
	logger.Info("bye")
}

// runLoop is the outer supervisor: it rebuilds the whole session on
// recoverable signals (scheduled refresh, connection loss) and exits on
// anything fatal. A nil session result is a clean finish (one-shot room
// download), not a restart.
func runLoop(ctx context.Context) error {
	cfg := config.C()
	firstStart := true
	for {
		err := runSession(ctx, cfg, firstStart)
		switch {
		case errors.Is(err, router.ErrSessionRestart):
			if ctx.Err() != nil {
				return ctx.Err()
			}
			firstStart = false
			continue
		default:
			return err
		}
	}
}

// runSession builds one complete session lifecycle: dial, filters, ledger,
// backend, router.
func runSession(ctx context.Context, cfg *config.Config, firstStart bool) error {
	logger := log.FromContext(ctx).With("session", xid.New().String(), "room", cfg.Room.Name)
	ctx = log.WithContext(ctx, logger)
	logger.Info("creating room session")

	var session *roomapi.Client
	dial := func() error {
		var err error
		session, err = roomapi.Dial(ctx, roomapi.Options{
			BaseURL:         cfg.Room.BaseURL,
			Room:            cfg.Room.Name,
			Nick:            cfg.Room.User,
			Password:        cfg.Room.Password,
			Key:             cfg.Room.Key,
			AccountPassword: cfg.Room.AccountPassword,
		})
		if errors.Is(err, roomapi.ErrAuthFailed) {
			return backoff.Permanent(err)
		}
		return err
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithMaxInterval(30*time.Second),
	), 5), ctx)
	if err := backoff.Retry(dial, bo); err != nil {
		return fmt.Errorf("joining room %q: %w", cfg.Room.Name, err)
	}
	defer session.Close()

	filters, err := filter.New(cfg.Room.Name, cfg.Filters)
	if err != nil {
		return err
	}
	ldg, err := ledger.Open(cfg.ChatLog.Path, cfg.Room.Name)
	if err != nil {
		return err
	}
	backend, err := dispatch.Select(ctx, cfg)
	if err != nil {
		return err
	}

	r, err := router.New(cfg, session, filters, ldg, backend)
	if err != nil {
		return err
	}
	return r.Run(ctx, firstStart)
}
