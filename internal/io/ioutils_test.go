package ioutils

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestFitWithin(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		wantW, wantH  int
	}{
		{"landscape", 1500, 1000, 128, 85},
		{"portrait", 500, 1000, 64, 128},
		{"square", 600, 600, 128, 128},
		{"already small", 100, 60, 100, 60},
		{"extreme strip", 10000, 10, 128, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := FitWithin(tt.width, tt.height, 128, 128)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("FitWithin(%d, %d) = %dx%d, want %dx%d", tt.width, tt.height, w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestImageService_RoundTrip(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 256, 128))
	for x := 0; x < 256; x++ {
		for y := 0; y < 128; y++ {
			src.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}

	svc := NewImageService()
	img, err := svc.Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	thumb := svc.ResizeToBound(img, 128, 128)
	if got := thumb.Bounds(); got.Dx() != 128 || got.Dy() != 64 {
		t.Errorf("thumbnail bounds = %v, want 128x64", got)
	}

	data, err := svc.EncodePNG(thumb)
	if err != nil {
		t.Fatalf("EncodePNG() error = %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("EncodePNG() output is not a PNG")
	}
}

func TestImageService_DecodeGarbage(t *testing.T) {
	if _, err := NewImageService().Decode([]byte("not an image")); err == nil {
		t.Error("Decode() should fail on garbage")
	}
}

func TestCopyFile_CreatesParents(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mp3")
	if err := os.WriteFile(src, []byte("audio"), 0644); err != nil {
		t.Fatal(err)
	}

	dst := filepath.Join(dir, "out", "a", "b", "dst.mp3")
	if err := CopyFile(context.Background(), src, dst); err != nil {
		t.Fatalf("CopyFile() error = %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil || string(got) != "audio" {
		t.Errorf("copied content = %q, %v", got, err)
	}
	if !SameSize(src, dst) {
		t.Error("SameSize() should be true after copy")
	}
}

func TestCopyFile_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := CopyFile(ctx, "a", "b"); err == nil {
		t.Error("CopyFile() should fail on a cancelled context")
	}
}
