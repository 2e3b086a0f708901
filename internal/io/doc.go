// Package ioutils provides file system and image processing utilities.
//
// This package contains functions for:
//   - File copying and writing
//   - Directory creation
//   - Cover thumbnail decoding, resizing and PNG encoding
//
// # File Operations
//
//	// Copy a file, creating parent directories
//	err := ioutils.CopyFile(ctx, "/src/song.mp3", "/out/sound/song.mp3")
//
//	// Write data to file, creating parent directories
//	err := ioutils.WriteFile(ctx, "/out/covers/a_b.png", data)
//
// # Image Processing
//
// The ImageService handles cover art thumbnails:
//
//	svc := ioutils.NewImageService()
//	img, _ := svc.Decode(coverBytes)
//	thumb := svc.ResizeToBound(img, 128, 128)
//	png, _ := svc.EncodePNG(thumb)
package ioutils
