package dispatch

import (
	"testing"
	"time"

	"github.com/yuzuki/roomgrab/config"
	"github.com/yuzuki/roomgrab/pkg/roomapi"
)

var pathCfg = config.DownloadConfig{
	NearOffsetDays:    2,
	FarOffsetDays:     4,
	FarThresholdHours: 48,
}

func TestParseDownloadPathPlaceholders(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := roomapi.FileEvent{
		Room:     "demo",
		Uploader: "alice",
		Expires:  now.Add(24 * time.Hour), // within the threshold: near offset
	}

	got := ParseDownloadPath("dl/{ROOM}/{UPLOADER}/{DATE:2006-01-02}", f, pathCfg, now)
	want := "dl/demo/alice/2026-03-09" // expiry 03-11 minus 2 days
	if got != want {
		t.Errorf("ParseDownloadPath = %q, want %q", got, want)
	}
}

func TestParseDownloadPathFarOffset(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := roomapi.FileEvent{
		Room:    "demo",
		Expires: now.Add(72 * time.Hour), // beyond the threshold: far offset
	}

	got := ParseDownloadPath("{DATE:2006-01-02}", f, pathCfg, now)
	want := "2026-03-09" // expiry 03-13 minus 4 days
	if got != want {
		t.Errorf("ParseDownloadPath = %q, want %q", got, want)
	}
}

func TestParseDownloadPathRepeatedDate(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := roomapi.FileEvent{Room: "demo", Expires: now.Add(24 * time.Hour)}

	got := ParseDownloadPath("{DATE:2006}/{DATE:01-02}", f, pathCfg, now)
	if got != "2026/03-09" {
		t.Errorf("ParseDownloadPath = %q, want %q", got, "2026/03-09")
	}
}

func TestParseDownloadPathNoPlaceholders(t *testing.T) {
	f := roomapi.FileEvent{Room: "demo"}
	if got := ParseDownloadPath("plain/dir", f, pathCfg, time.Now()); got != "plain/dir" {
		t.Errorf("ParseDownloadPath = %q, want %q", got, "plain/dir")
	}
}
