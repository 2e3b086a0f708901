// Package ioutils provides file system utilities for cradio.
//
// All functions that accept a context.Context check it before touching the
// file system, though the copy itself is not interruptible.
package ioutils

import (
	"context"
	"io"
	"os"
	"path/filepath"
)

// CopyFile copies a file from source to destination.
//
// Parent directories of dst are created as needed. The destination file is
// created with mode 0644 if it doesn't exist, or truncated if it does.
//
// Returns an error if:
//   - ctx is already cancelled
//   - Source file cannot be opened
//   - Destination file cannot be created
//   - Copy operation fails
//
// Example:
//
//	err := CopyFile(ctx, "/music/Lofi/rain.mp3", "/out/sound/cradio/stations/lofi/artist_rain.mp3")
func CopyFile(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	if err := EnsureDir(filepath.Dir(dst)); err != nil {
		return err
	}

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		destFile.Close()
		return err
	}
	return destFile.Close()
}

// WriteFile writes data to a file, creating it and its parent directories
// if necessary.
//
// The file is created with mode 0644. If the file already exists,
// it is truncated before writing.
//
// Example:
//
//	err := WriteFile(ctx, "/out/materials/cradio/covers/lofi/dj_x_ep1.png", pngBytes)
func WriteFile(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// EnsureDir creates a directory and all parent directories if they don't exist.
//
// Directories are created with mode 0755 (rwxr-xr-x).
// If the directory already exists, no error is returned.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// Exists reports whether a regular file exists at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// SameSize reports whether both paths are regular files of equal size.
// Used to skip re-copying audio that is already in place.
func SameSize(a, b string) bool {
	ia, err := os.Stat(a)
	if err != nil || !ia.Mode().IsRegular() {
		return false
	}
	ib, err := os.Stat(b)
	if err != nil || !ib.Mode().IsRegular() {
		return false
	}
	return ia.Size() == ib.Size()
}

// FileSize returns the size of the file at path in bytes.
func FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
