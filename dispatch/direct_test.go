package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yuzuki/roomgrab/pkg/roomapi"
)

func directFile(url string) roomapi.FileEvent {
	return roomapi.FileEvent{
		URL:      url,
		Name:     "test.zip",
		Size:     int64(len("payload")),
		Uploader: "alice",
		Room:     "demo",
	}
}

func TestDirectDownloadsViaTempFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "payload")
	}))
	defer srv.Close()

	dest := t.TempDir()
	d := NewDirect(64)
	if err := d.Dispatch(context.Background(), directFile(srv.URL+"/test.zip"), dest, true); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dest, "test.zip"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "payload" {
		t.Errorf("downloaded contents = %q, want %q", data, "payload")
	}
	if _, err := os.Stat(filepath.Join(dest, "test.zip.part")); !errors.Is(err, os.ErrNotExist) {
		t.Error("temp file should be renamed away on success")
	}
}

func TestDirectDuplicateOnDisk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "payload")
	}))
	defer srv.Close()

	dest := t.TempDir()
	if err := os.WriteFile(filepath.Join(dest, "test.zip"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	d := NewDirect(64)
	err := d.Dispatch(context.Background(), directFile(srv.URL+"/test.zip"), dest, true)
	if !errors.Is(err, ErrDuplicateOnDisk) {
		t.Fatalf("expected ErrDuplicateOnDisk, got %v", err)
	}
	data, _ := os.ReadFile(filepath.Join(dest, "test.zip"))
	if string(data) != "old" {
		t.Error("existing file must not be overwritten")
	}
}

func TestDirectDisambiguatesWhenDuplicatesAllowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "payload")
	}))
	defer srv.Close()

	dest := t.TempDir()
	if err := os.WriteFile(filepath.Join(dest, "test.zip"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	d := NewDirect(64)
	if err := d.Dispatch(context.Background(), directFile(srv.URL+"/test.zip"), dest, false); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dest)
	if err != nil {
		t.Fatal(err)
	}
	var suffixed string
	for _, e := range entries {
		if e.Name() != "test.zip" && strings.HasSuffix(e.Name(), ".zip") {
			suffixed = e.Name()
		}
	}
	if suffixed == "" {
		t.Fatal("expected a suffixed copy next to the existing file")
	}
	// test-<7 alphanumerics>.zip
	stem := strings.TrimSuffix(strings.TrimPrefix(suffixed, "test-"), ".zip")
	if len(stem) != 7 {
		t.Errorf("suffix %q should be 7 characters", stem)
	}
}

func TestDirectFailureLeavesPartFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Announce more bytes than are sent so the client sees a truncated body.
		w.Header().Set("Content-Length", "1000")
		fmt.Fprint(w, "short")
	}))
	defer srv.Close()

	dest := t.TempDir()
	d := NewDirect(64)
	err := d.Dispatch(context.Background(), directFile(srv.URL+"/test.zip"), dest, true)
	if err == nil {
		t.Fatal("expected a streaming error")
	}
	if _, statErr := os.Stat(filepath.Join(dest, "test.zip.part")); statErr != nil {
		t.Error("failed download should leave the .part file for inspection")
	}
	if _, statErr := os.Stat(filepath.Join(dest, "test.zip")); !errors.Is(statErr, os.ErrNotExist) {
		t.Error("final path must not exist after a failed download")
	}
}

func TestDirectRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	d := NewDirect(64)
	if err := d.Dispatch(context.Background(), directFile(srv.URL+"/test.zip"), t.TempDir(), true); err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
}
