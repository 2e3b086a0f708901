// Package config provides configuration management for cradio.
//
// This package handles:
//   - Loading and saving settings from TOML files
//   - Default configuration values
//   - Conversion to the asset layout used by the build
//
// # Default Settings
//
// Use DefaultSettings() to get sensible defaults:
//
//	settings := config.DefaultSettings()
//	// Writes to ./addon with the CRadio directory layout
//	// Keeps audio local (no upload host)
//	// Cover thumbnails bounded to 128x128
//
// # Loading from File
//
//	settings, err := config.Load("/path/to/config.toml")
//	if err != nil {
//	    // A missing file is not an error; defaults are returned
//	}
//
// # Example File
//
//	output_dir = "addon"
//	stations = ["/music/Lofi", "/music/Jazz"]
//
//	[covers]
//	max_size = 128
//
//	[uploads]
//	host = "catbox"
//	user_hash = ""
//	max_concurrent = 2
//	timeout_seconds = 120
//
//	[logging]
//	level = "info"
package config
