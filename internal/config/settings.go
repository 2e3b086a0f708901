package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"

	"github.com/handiism/cradio/internal/assets"
	"github.com/handiism/cradio/internal/upload"
)

// Settings holds all configuration options.
type Settings struct {
	// OutputDir is the root of the generated addon tree.
	OutputDir string `toml:"output_dir"`

	// Layout directories, relative to OutputDir with '/' separators.
	StationsDir  string `toml:"stations_dir"`
	CoversDir    string `toml:"covers_dir"`
	SoundDir     string `toml:"sound_dir"`
	MaterialsDir string `toml:"materials_dir"`

	// Stations are the directories built when none are given on the
	// command line.
	Stations []string `toml:"stations"`

	Covers  CoverSettings  `toml:"covers"`
	Uploads UploadSettings `toml:"uploads"`
	Logging LogSettings    `toml:"logging"`
}

// CoverSettings controls cover thumbnails.
type CoverSettings struct {
	MaxSize int `toml:"max_size"`
}

// UploadSettings controls remote audio hosting.
type UploadSettings struct {
	// Host is an upload host key, or empty to keep every file local.
	Host           string `toml:"host"`
	UserHash       string `toml:"user_hash"`
	MaxConcurrent  int    `toml:"max_concurrent"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// LogSettings controls log output.
type LogSettings struct {
	Level string `toml:"level"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	layout := assets.DefaultLayout("addon")
	return &Settings{
		OutputDir:    layout.Root,
		StationsDir:  "lua/cradio/stations",
		CoversDir:    layout.CoversDir,
		SoundDir:     layout.SoundDir,
		MaterialsDir: layout.IconsDir,

		Covers: CoverSettings{
			MaxSize: assets.DefaultCoverSize,
		},
		Uploads: UploadSettings{
			MaxConcurrent:  1,
			TimeoutSeconds: 60,
		},
		Logging: LogSettings{
			Level: "info",
		},
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "cradio.toml"
	}
	return filepath.Join(dir, "cradio", "config.toml")
}

// Load reads settings from a TOML file. Keys missing from the file keep
// their default values, and a missing file yields the defaults.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if err := toml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return settings, nil
}

// Save writes settings to a TOML file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(s)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks the settings for values the build cannot run with.
func (s *Settings) Validate() error {
	var errs []error

	if strings.TrimSpace(s.OutputDir) == "" {
		errs = append(errs, errors.New("output_dir is empty"))
	}
	for key, dir := range map[string]string{
		"stations_dir":  s.StationsDir,
		"covers_dir":    s.CoversDir,
		"sound_dir":     s.SoundDir,
		"materials_dir": s.MaterialsDir,
	} {
		if dir == "" || path.IsAbs(dir) || strings.HasPrefix(path.Clean(dir), "..") {
			errs = append(errs, fmt.Errorf("%s must be a relative path inside output_dir, got %q", key, dir))
		}
	}
	if s.Covers.MaxSize <= 0 {
		errs = append(errs, fmt.Errorf("covers.max_size must be positive, got %d", s.Covers.MaxSize))
	}
	if s.Uploads.MaxConcurrent <= 0 {
		errs = append(errs, fmt.Errorf("uploads.max_concurrent must be positive, got %d", s.Uploads.MaxConcurrent))
	}
	if s.Uploads.Host != "" {
		info, ok := upload.Lookup(s.Uploads.Host)
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("uploads.host: %w: %q", upload.ErrUnknownHost, s.Uploads.Host))
		case info.Auth == upload.AuthRequired && strings.TrimSpace(s.Uploads.UserHash) == "":
			errs = append(errs, fmt.Errorf("uploads.user_hash: %s: %w", info.Title, upload.ErrUserHashRequired))
		}
	}
	if _, err := zerolog.ParseLevel(s.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}

	return errors.Join(errs...)
}

// ToLayout converts settings to the asset layout.
func (s *Settings) ToLayout() assets.Layout {
	return assets.Layout{
		Root:      s.OutputDir,
		CoversDir: s.CoversDir,
		SoundDir:  s.SoundDir,
		IconsDir:  s.MaterialsDir,
	}
}

// StationFile returns the native path of a station's Lua script.
func (s *Settings) StationFile(segment string) string {
	return filepath.Join(s.OutputDir, filepath.FromSlash(s.StationsDir), segment+".lua")
}

// Timeout returns the upload request timeout.
func (s *Settings) Timeout() time.Duration {
	return time.Duration(s.Uploads.TimeoutSeconds) * time.Second
}

// LogLevel returns the configured level, falling back to info.
func (s *Settings) LogLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(s.Logging.Level)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}
