// Package dispatch routes a qualifying file to exactly one download backend:
// direct disk download, a folder-watch job file, or a remote download
// manager API.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/yuzuki/roomgrab/config"
	"github.com/yuzuki/roomgrab/pkg/roomapi"
)

// ErrDuplicateOnDisk signals that the direct backend found the destination
// name taken while duplicate avoidance was on. Recoverable; the file is
// skipped, not overwritten.
var ErrDuplicateOnDisk = errors.New("dispatch: file already exists on disk")

// Backend is a sink for one file. Dispatch reports success or failure for
// that file only; the caller records the ledger entry on success.
type Backend interface {
	Name() string
	Dispatch(ctx context.Context, file roomapi.FileEvent, dest string, avoidDuplicates bool) error
}

// Select picks the one active backend for this run. Folder watch takes
// priority over the remote API, matching the historical behavior; direct
// download is the fallback. Setup failures here (missing watch directory,
// remote authentication) are fatal.
func Select(ctx context.Context, cfg *config.Config) (Backend, error) {
	if cfg.FolderWatch.Enabled {
		info, err := os.Stat(cfg.FolderWatch.Dir)
		if err != nil || !info.IsDir() {
			return nil, fmt.Errorf("dispatch: folder watch directory %q is not found", cfg.FolderWatch.Dir)
		}
		return &FolderWatch{dir: cfg.FolderWatch.Dir}, nil
	}
	if cfg.RemoteAPI.Enabled {
		client := NewRemoteClient(cfg.RemoteAPI)
		if err := client.Connect(ctx); err != nil {
			return nil, fmt.Errorf("dispatch: remote api setup: %w", err)
		}
		return NewRemoteAPI(client), nil
	}
	return NewDirect(cfg.Download.ChunkSizeKB), nil
}
