package dispatch

import (
	"regexp"
	"strings"
	"time"

	"github.com/yuzuki/roomgrab/config"
	"github.com/yuzuki/roomgrab/pkg/roomapi"
)

var datePlaceholder = regexp.MustCompile(`\{DATE:([^}]+)\}`)

// ParseDownloadPath expands the destination template for a file. {ROOM} and
// {UPLOADER} substitute directly; {DATE:<layout>} renders the file's expiry
// shifted back by an offset that approximates the original upload date:
// uploads typically live a fixed window, so files expiring well in the
// future get the larger offset.
func ParseDownloadPath(template string, f roomapi.FileEvent, cfg config.DownloadConfig, now time.Time) string {
	path := strings.ReplaceAll(template, "{ROOM}", f.Room)

	offset := time.Duration(cfg.NearOffsetDays) * 24 * time.Hour
	threshold := time.Duration(cfg.FarThresholdHours) * time.Hour
	if f.Expires.After(now.Add(threshold)) {
		offset = time.Duration(cfg.FarOffsetDays) * 24 * time.Hour
	}
	uploaded := f.Expires.Add(-offset)

	path = datePlaceholder.ReplaceAllStringFunc(path, func(m string) string {
		layout := datePlaceholder.FindStringSubmatch(m)[1]
		return uploaded.Format(layout)
	})

	return strings.ReplaceAll(path, "{UPLOADER}", f.Uploader)
}
