package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Playback PlaybackConfig `toml:"playback"`
	WebDAV   WebDAVConfig   `toml:"webdav"`
	Lyrics   LyricsConfig   `toml:"lyrics"`
	AI       AIConfig       `toml:"ai"`
}

// DatabaseConfig contains settings for the sqlite preference store.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// PlaybackConfig contains playback engine settings.
type PlaybackConfig struct {
	ProgressInterval int  `toml:"progress_interval"`
	AutoNextFolder   bool `toml:"auto_next_folder"`
}

// WebDAVConfig contains settings for the remote source client.
type WebDAVConfig struct {
	Timeout           int `toml:"timeout"`
	RequestsPerSecond int `toml:"requests_per_second"`
}

// LyricsConfig contains the remote lyric lookup endpoint.
type LyricsConfig struct {
	APIURL string `toml:"api_url"`
}

// AIConfig contains settings for the album/artist blurb fetcher.
type AIConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, ErrInvalidInput)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
