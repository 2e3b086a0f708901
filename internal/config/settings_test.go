package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/handiism/cradio/internal/upload"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	if err := s.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
	if s.Uploads.Host != "" {
		t.Error("default should keep audio local")
	}
	if s.Covers.MaxSize != 128 {
		t.Errorf("Covers.MaxSize = %d, want 128", s.Covers.MaxSize)
	}

	layout := s.ToLayout()
	if layout.SoundDir != "sound/cradio/stations" || layout.IconsDir != "materials/cradio/stations" {
		t.Errorf("ToLayout() = %+v", layout)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.OutputDir != DefaultSettings().OutputDir {
		t.Error("missing file should yield defaults")
	}
}

func TestLoad_PartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
output_dir = "/srv/addon"
stations = ["/music/Lofi"]

[uploads]
host = "catbox"
max_concurrent = 3
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.OutputDir != "/srv/addon" || len(s.Stations) != 1 {
		t.Errorf("settings = %+v", s)
	}
	if s.Uploads.Host != "catbox" || s.Uploads.MaxConcurrent != 3 {
		t.Errorf("uploads = %+v", s.Uploads)
	}
	if s.Uploads.TimeoutSeconds != 60 || s.Covers.MaxSize != 128 {
		t.Error("unset keys should keep defaults")
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("output_dir = ["), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	s := DefaultSettings()
	s.Stations = []string{"/music/Lofi", "/music/Jazz"}
	s.Uploads.Host = "quax"
	s.Uploads.UserHash = "abc"
	if err := s.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Uploads.Host != "quax" || loaded.Uploads.UserHash != "abc" || len(loaded.Stations) != 2 {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Settings)
		wantErr error
		wantMsg string
	}{
		{"unknown host", func(s *Settings) { s.Uploads.Host = "dropbox" }, upload.ErrUnknownHost, ""},
		{"quax without hash", func(s *Settings) { s.Uploads.Host = "quax" }, upload.ErrUserHashRequired, ""},
		{"zero workers", func(s *Settings) { s.Uploads.MaxConcurrent = 0 }, nil, "max_concurrent"},
		{"absolute sound dir", func(s *Settings) { s.SoundDir = "/abs" }, nil, "sound_dir"},
		{"escaping covers dir", func(s *Settings) { s.CoversDir = "../covers" }, nil, "covers_dir"},
		{"bad level", func(s *Settings) { s.Logging.Level = "loud" }, nil, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.modify(s)

			err := s.Validate()
			if err == nil {
				t.Fatal("Validate() should fail")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Validate() error = %v, want mention of %s", err, tt.wantMsg)
			}
		})
	}
}

func TestLogLevel(t *testing.T) {
	s := DefaultSettings()
	s.Logging.Level = "debug"
	if s.LogLevel() != zerolog.DebugLevel {
		t.Errorf("LogLevel() = %v", s.LogLevel())
	}
	s.Logging.Level = ""
	if s.LogLevel() != zerolog.InfoLevel {
		t.Errorf("empty level should fall back to info, got %v", s.LogLevel())
	}
}

func TestStationFile(t *testing.T) {
	s := DefaultSettings()
	s.OutputDir = "out"
	want := filepath.Join("out", "lua", "cradio", "stations", "lofi.lua")
	if got := s.StationFile("lofi"); got != want {
		t.Errorf("StationFile() = %q, want %q", got, want)
	}
}
