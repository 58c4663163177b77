package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Room        RoomConfig        `toml:"room" mapstructure:"room"`
	Download    DownloadConfig    `toml:"download" mapstructure:"download"`
	ChatLog     ChatLogConfig     `toml:"chatlog" mapstructure:"chatlog"`
	Filters     FiltersConfig     `toml:"filters" mapstructure:"filters"`
	FolderWatch FolderWatchConfig `toml:"folderwatch" mapstructure:"folderwatch"`
	RemoteAPI   RemoteAPIConfig   `toml:"remote_api" mapstructure:"remote_api"`
	Log         LogConfig         `toml:"log" mapstructure:"log"`
}

type RoomConfig struct {
	Name            string `toml:"name" mapstructure:"name"`
	Password        string `toml:"password" mapstructure:"password"`
	Key             string `toml:"key" mapstructure:"key"`
	User            string `toml:"user" mapstructure:"user"`
	AccountPassword string `toml:"account_password" mapstructure:"account_password"`
	BaseURL         string `toml:"base_url" mapstructure:"base_url"`
	RefreshHours    int    `toml:"refresh_hours" mapstructure:"refresh_hours"`
}

type DownloadConfig struct {
	Enabled         bool   `toml:"enabled" mapstructure:"enabled"`
	Path            string `toml:"path" mapstructure:"path"`
	AllOnEnter      bool   `toml:"all_on_enter" mapstructure:"all_on_enter"`
	ContinueRunning bool   `toml:"continue_running" mapstructure:"continue_running"`
	AllowDuplicates bool   `toml:"allow_duplicates" mapstructure:"allow_duplicates"`
	MaxFileSizeMB   int64  `toml:"max_file_size_mb" mapstructure:"max_file_size_mb"`
	ChunkSizeKB     int    `toml:"chunk_size_kb" mapstructure:"chunk_size_kb"`

	// Date placeholder offsets, counted back from a file's expiry. Files
	// expiring further out than the threshold use the far offset.
	NearOffsetDays    int `toml:"near_offset_days" mapstructure:"near_offset_days"`
	FarOffsetDays     int `toml:"far_offset_days" mapstructure:"far_offset_days"`
	FarThresholdHours int `toml:"far_threshold_hours" mapstructure:"far_threshold_hours"`
}

type ChatLogConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Path    string `toml:"path" mapstructure:"path"`
}

type FiltersConfig struct {
	UploaderBlacklist      []string `toml:"uploader_blacklist" mapstructure:"uploader_blacklist"`
	UploaderWhitelist      []string `toml:"uploader_whitelist" mapstructure:"uploader_whitelist"`
	FilenameBlacklist      []string `toml:"filename_blacklist" mapstructure:"filename_blacklist"`
	FilenameWhitelist      []string `toml:"filename_whitelist" mapstructure:"filename_whitelist"`
	FilenameBlacklistRegex []string `toml:"filename_blacklist_regex" mapstructure:"filename_blacklist_regex"`
	FiletypeBlacklist      []string `toml:"filetype_blacklist" mapstructure:"filetype_blacklist"`
	FiletypeWhitelist      []string `toml:"filetype_whitelist" mapstructure:"filetype_whitelist"`
}

type FolderWatchConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Dir     string `toml:"dir" mapstructure:"dir"`
}

type RemoteAPIConfig struct {
	Enabled  bool   `toml:"enabled" mapstructure:"enabled"`
	Endpoint string `toml:"endpoint" mapstructure:"endpoint"`
	Username string `toml:"username" mapstructure:"username"`
	Password string `toml:"password" mapstructure:"password"`
	Device   string `toml:"device" mapstructure:"device"`
	AppKey   string `toml:"app_key" mapstructure:"app_key"`
}

type LogConfig struct {
	Level string `toml:"level" mapstructure:"level"`
}

var cfg *Config

func C() *Config {
	return cfg
}

func Init() error {
	viper.SetConfigName("config")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/roomgrab/")
	viper.SetConfigType("toml")
	viper.SetEnvPrefix("ROOMGRAB")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.SafeWriteConfigAs("config.toml"); err != nil {
		if _, ok := err.(viper.ConfigFileAlreadyExistsError); !ok {
			return fmt.Errorf("error saving default config: %w", err)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	c := &Config{}
	if err := viper.Unmarshal(c); err != nil {
		return fmt.Errorf("error unmarshalling config file: %w", err)
	}
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c
	return nil
}

func setDefaults() {
	viper.SetDefault("room.user", "downloader")
	viper.SetDefault("room.base_url", "https://roomfile.org")
	viper.SetDefault("room.refresh_hours", 24)

	viper.SetDefault("download.enabled", true)
	viper.SetDefault("download.path", "downloads/{ROOM}/{DATE:2006-01-02}")
	viper.SetDefault("download.continue_running", true)
	viper.SetDefault("download.max_file_size_mb", -1)
	viper.SetDefault("download.chunk_size_kb", 64)
	viper.SetDefault("download.near_offset_days", 2)
	viper.SetDefault("download.far_offset_days", 4)
	viper.SetDefault("download.far_threshold_hours", 48)

	viper.SetDefault("chatlog.enabled", true)
	viper.SetDefault("chatlog.path", "logs")

	viper.SetDefault("remote_api.app_key", "roomgrab")

	viper.SetDefault("log.level", "info")
}

// Validate rejects configurations the bot cannot act on. These are fatal at
// startup; nothing is processed with an ambiguous or empty setup.
func (c *Config) Validate() error {
	if c.Room.Name == "" {
		return fmt.Errorf("room.name is required")
	}
	if !c.Download.Enabled && !c.ChatLog.Enabled {
		return fmt.Errorf("neither downloading nor chat logging is enabled, nothing to do")
	}
	if !c.Download.ContinueRunning && !c.Download.Enabled {
		return fmt.Errorf("download.continue_running = false requires downloading to be enabled")
	}
	if err := c.Filters.Validate(); err != nil {
		return err
	}
	if c.FolderWatch.Enabled && c.FolderWatch.Dir == "" {
		return fmt.Errorf("folderwatch.dir is required when folderwatch is enabled")
	}
	if c.RemoteAPI.Enabled {
		if c.RemoteAPI.Endpoint == "" {
			return fmt.Errorf("remote_api.endpoint is required when remote_api is enabled")
		}
		if c.RemoteAPI.Device == "" {
			return fmt.Errorf("remote_api.device is required when remote_api is enabled")
		}
	}
	return nil
}

// Validate fails when any filter axis carries both a blacklist and a
// whitelist. The ambiguity is not resolved by precedence; it is a user error.
func (f *FiltersConfig) Validate() error {
	if len(f.UploaderBlacklist) > 0 && len(f.UploaderWhitelist) > 0 {
		return fmt.Errorf("filters: uploader blacklist and whitelist cannot both be set")
	}
	if (len(f.FilenameBlacklist) > 0 || len(f.FilenameBlacklistRegex) > 0) && len(f.FilenameWhitelist) > 0 {
		return fmt.Errorf("filters: filename blacklist and whitelist cannot both be set")
	}
	if len(f.FiletypeBlacklist) > 0 && len(f.FiletypeWhitelist) > 0 {
		return fmt.Errorf("filters: filetype blacklist and whitelist cannot both be set")
	}
	return nil
}

func Set(key string, value any) {
	viper.Set(key, value)
}
