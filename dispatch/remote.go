package dispatch

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/yuzuki/roomgrab/pkg/roomapi"
)

const remoteAttempts = 3

// linkSubmitter is the slice of the remote client the backend needs.
type linkSubmitter interface {
	AddLink(ctx context.Context, url, packageName string) error
	Reconnect(ctx context.Context) error
}

// RemoteAPI submits links to a remote download-manager device. API-level
// failures are retried up to three attempts with a session reconnect in
// between; exhausting the attempts fails this file only.
type RemoteAPI struct {
	client linkSubmitter
}

func NewRemoteAPI(client linkSubmitter) *RemoteAPI {
	return &RemoteAPI{client: client}
}

func (r *RemoteAPI) Name() string { return "remote-api" }

func (r *RemoteAPI) Dispatch(ctx context.Context, f roomapi.FileEvent, dest string, avoidDuplicates bool) error {
	logger := log.FromContext(ctx)
	var lastErr error
	for attempt := range remoteAttempts {
		if attempt > 0 {
			logger.Warn("retrying remote api submit", "file", f.Name, "attempt", attempt+1)
		}
		if lastErr = r.client.AddLink(ctx, f.URL, dest); lastErr == nil {
			return nil
		}
		if attempt < remoteAttempts-1 {
			if err := r.client.Reconnect(ctx); err != nil {
				logger.Debug("remote api reconnect failed", "error", err)
			}
		}
	}
	return fmt.Errorf("remote-api: giving up on %s after %d attempts: %w", f.Name, remoteAttempts, lastErr)
}
