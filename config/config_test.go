package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Room:     RoomConfig{Name: "demo"},
		Download: DownloadConfig{Enabled: true},
		ChatLog:  ChatLogConfig{Enabled: true},
	}
}

func TestValidateAcceptsMinimalConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestValidateRequiresRoomName(t *testing.T) {
	c := validConfig()
	c.Room.Name = ""
	if err := c.Validate(); err == nil {
		t.Fatal("expected an error for a missing room name")
	}
}

func TestValidateRejectsNothingToDo(t *testing.T) {
	c := validConfig()
	c.Download.Enabled = false
	c.ChatLog.Enabled = false
	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "nothing to do") {
		t.Fatalf("expected nothing-to-do error, got %v", err)
	}
}

func TestValidateOneShotNeedsDownloading(t *testing.T) {
	c := validConfig()
	c.Download.Enabled = false
	c.Download.ContinueRunning = false
	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "continue_running") {
		t.Fatalf("expected a one-shot configuration error, got %v", err)
	}
}

func TestValidateRejectsFilterConflicts(t *testing.T) {
	tests := []struct {
		name    string
		filters FiltersConfig
	}{
		{"uploader", FiltersConfig{UploaderBlacklist: []string{"a"}, UploaderWhitelist: []string{"b"}}},
		{"filename", FiltersConfig{FilenameBlacklist: []string{"a"}, FilenameWhitelist: []string{"b"}}},
		{"filename regex", FiltersConfig{FilenameBlacklistRegex: []string{"a"}, FilenameWhitelist: []string{"b"}}},
		{"filetype", FiltersConfig{FiletypeBlacklist: []string{"a"}, FiletypeWhitelist: []string{"b"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			c.Filters = tt.filters
			if err := c.Validate(); err == nil {
				t.Error("expected a conflict error")
			}
		})
	}
}

func TestValidateAllowsSingleListPerAxis(t *testing.T) {
	c := validConfig()
	c.Filters = FiltersConfig{
		UploaderBlacklist:      []string{"mallory"},
		FilenameBlacklist:      []string{"sample"},
		FilenameBlacklistRegex: []string{`\.exe$`},
		FiletypeWhitelist:      []string{"audio"},
	}
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestValidateFolderWatchNeedsDir(t *testing.T) {
	c := validConfig()
	c.FolderWatch.Enabled = true
	if err := c.Validate(); err == nil {
		t.Fatal("expected an error for folderwatch without a directory")
	}
}

func TestValidateRemoteAPINeedsEndpointAndDevice(t *testing.T) {
	c := validConfig()
	c.RemoteAPI.Enabled = true
	c.RemoteAPI.Endpoint = "https://api.example.org"
	if err := c.Validate(); err == nil {
		t.Fatal("expected an error for remote_api without a device")
	}
}
