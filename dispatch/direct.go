package dispatch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/duke-git/lancet/v2/random"
	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"

	"github.com/yuzuki/roomgrab/pkg/roomapi"
)

// Direct streams files to local disk. Downloads go to a .part sibling first
// and are renamed into place only on full success; a failed transfer leaves
// the .part file behind for inspection.
type Direct struct {
	client    *http.Client
	chunkSize int
}

func NewDirect(chunkSizeKB int) *Direct {
	if chunkSizeKB <= 0 {
		chunkSizeKB = 64
	}
	return &Direct{
		client:    &http.Client{},
		chunkSize: chunkSizeKB * 1024,
	}
}

func (d *Direct) Name() string { return "direct" }

func (d *Direct) Dispatch(ctx context.Context, f roomapi.FileEvent, dest string, avoidDuplicates bool) error {
	logger := log.FromContext(ctx)

	finalPath := filepath.Join(dest, f.Name)
	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return fmt.Errorf("direct: create destination dir: %w", err)
	}

	if _, err := os.Stat(finalPath); err == nil {
		if avoidDuplicates {
			return fmt.Errorf("%w: %s", ErrDuplicateOnDisk, finalPath)
		}
		finalPath = disambiguate(finalPath)
	}

	logger.Info("downloading", "file", f.Name, "size", humanize.IBytes(uint64(f.Size)), "to", finalPath)
	if err := d.download(ctx, f.URL, finalPath); err != nil {
		return err
	}

	if f.FileType == "" {
		if mt, err := mimetype.DetectFile(finalPath); err == nil {
			logger.Debug("detected file type", "file", f.Name, "mime", mt.String())
		}
	}
	return nil
}

// download streams url to path+".part" in fixed-size chunks and renames on
// success. The .part file is left in place on any failure.
func (d *Direct) download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("direct: build request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("direct: get %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("direct: get %s: unexpected status %s", url, resp.Status)
	}

	partPath := path + ".part"
	out, err := os.Create(partPath)
	if err != nil {
		return fmt.Errorf("direct: create %s: %w", partPath, err)
	}

	buf := make([]byte, d.chunkSize)
	_, copyErr := io.CopyBuffer(out, resp.Body, buf)
	closeErr := out.Close()
	if copyErr != nil {
		return fmt.Errorf("direct: stream %s: %w", url, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("direct: close %s: %w", partPath, closeErr)
	}

	if err := os.Rename(partPath, path); err != nil {
		return fmt.Errorf("direct: rename %s: %w", partPath, err)
	}
	return nil
}

// disambiguate appends a random 7 character suffix before the extension.
func disambiguate(path string) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	return stem + "-" + strings.ToUpper(random.RandNumeralOrLetter(7)) + ext
}
