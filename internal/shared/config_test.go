package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./folderplay.db" {
			t.Errorf("expected database path ./folderplay.db, got %s", config.Database.Path)
		}

		if config.WebDAV.Timeout != 30 {
			t.Errorf("expected webdav timeout 30, got %d", config.WebDAV.Timeout)
		}

		if config.Lyrics.APIURL != "https://api.lrc.cx/lyrics" {
			t.Errorf("expected default lyric API URL, got %s", config.Lyrics.APIURL)
		}

		if config.AI.Model != "gpt-3.5-turbo" {
			t.Errorf("expected default AI model, got %s", config.AI.Model)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"
max_open_conns = 20
max_idle_conns = 10

[playback]
progress_interval = 2
auto_next_folder = true

[webdav]
timeout = 15
requests_per_second = 2

[lyrics]
api_url = "http://localhost:9090/lyrics"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if !config.Playback.AutoNextFolder {
			t.Error("expected auto_next_folder true")
		}

		if config.WebDAV.RequestsPerSecond != 2 {
			t.Errorf("expected requests_per_second 2, got %d", config.WebDAV.RequestsPerSecond)
		}
	})

	t.Run("LoadConfigMissing", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("expected error for missing config file")
		}
	})
}
