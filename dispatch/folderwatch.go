package dispatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yuzuki/roomgrab/pkg/roomapi"
)

// FolderWatch hands files off by writing .crawljob descriptions into the
// download manager's watched directory. The record format is the manager's
// folder-watch contract and must be reproduced exactly.
type FolderWatch struct {
	dir string
}

func (w *FolderWatch) Name() string { return "folderwatch" }

func (w *FolderWatch) Dispatch(ctx context.Context, f roomapi.FileEvent, dest string, avoidDuplicates bool) error {
	jobPath := filepath.Join(w.dir, f.Name+".crawljob")
	if err := os.WriteFile(jobPath, []byte(CrawljobRecord(f, dest)), 0o644); err != nil {
		return fmt.Errorf("folderwatch: write job file: %w", err)
	}
	return nil
}

// CrawljobRecord renders one folder-watch job entry. autoStart only takes
// effect because autoConfirm is set; both move the link into the download
// list after the manager's confirmation timeout.
func CrawljobRecord(f roomapi.FileEvent, dest string) string {
	sizeMB := float64(f.Size) / 1048576
	return "->NEW ENTRY<-\n" +
		"   text=" + f.URL + "\n" +
		"   packageName=" + dest + "\n" +
		"   autoStart=true\n" +
		"   autoConfirm=true\n" +
		fmt.Sprintf("   comment=Room: %s Uploader: %s Size: %.2f MB\n", f.Room, f.Uploader, sizeMB) +
		"\n"
}
