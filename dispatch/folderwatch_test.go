package dispatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/yuzuki/roomgrab/pkg/roomapi"
)

func TestCrawljobRecordFormat(t *testing.T) {
	f := roomapi.FileEvent{
		URL:      "https://example.org/get/abc/test.zip",
		Name:     "test.zip",
		Size:     10485760,
		Uploader: "alice",
		Room:     "demo",
	}

	want := "->NEW ENTRY<-\n" +
		"   text=https://example.org/get/abc/test.zip\n" +
		"   packageName=demo/2026-03-09\n" +
		"   autoStart=true\n" +
		"   autoConfirm=true\n" +
		"   comment=Room: demo Uploader: alice Size: 10.00 MB\n" +
		"\n"
	if got := CrawljobRecord(f, "demo/2026-03-09"); got != want {
		t.Errorf("CrawljobRecord mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestFolderWatchDispatchWritesJobFile(t *testing.T) {
	dir := t.TempDir()
	w := &FolderWatch{dir: dir}
	f := roomapi.FileEvent{
		URL:      "https://example.org/get/abc/test.zip",
		Name:     "test.zip",
		Size:     1048576,
		Uploader: "bob",
		Room:     "demo",
	}

	if err := w.Dispatch(context.Background(), f, "demo", true); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "test.zip.crawljob"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != CrawljobRecord(f, "demo") {
		t.Errorf("job file contents mismatch:\n%s", data)
	}
}
