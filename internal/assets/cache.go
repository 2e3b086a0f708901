// Package assets materializes the files a station refers to: cover
// thumbnails, audio payloads and the station icon.
package assets

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	ioutils "github.com/handiism/cradio/internal/io"
	"github.com/handiism/cradio/internal/model"
	"github.com/handiism/cradio/internal/upload"
)

// DefaultCoverSize is the bound cover thumbnails are resized to fit in.
const DefaultCoverSize = 128

// ImageCodec decodes, resizes and re-encodes cover images.
type ImageCodec interface {
	Decode(data []byte) (image.Image, error)
	ResizeToBound(img image.Image, maxWidth, maxHeight int) image.Image
	EncodePNG(img image.Image) ([]byte, error)
}

// Layout places the output tree. Root is a directory on disk; the other
// fields are slash-separated paths relative to Root, and every path the
// cache returns is relative to Root as well.
type Layout struct {
	Root      string
	CoversDir string
	SoundDir  string
	IconsDir  string
}

// DefaultLayout returns the CRadio addon layout under root.
func DefaultLayout(root string) Layout {
	return Layout{
		Root:      root,
		CoversDir: "materials/cradio/covers",
		SoundDir:  "sound/cradio/stations",
		IconsDir:  "materials/cradio/stations",
	}
}

// MaterialsRoot is the directory the game resolves material names against.
const MaterialsRoot = "materials"

// MaterialRef turns a path relative to Root into a material name. Paths
// outside MaterialsRoot are returned unchanged.
func (l Layout) MaterialRef(rel string) string {
	return strings.TrimPrefix(rel, MaterialsRoot+"/")
}

// Abs converts a path relative to Root into a native path on disk.
func (l Layout) Abs(rel string) string {
	return filepath.Join(l.Root, filepath.FromSlash(rel))
}

// Options configures a Cache.
type Options struct {
	Layout Layout
	Codec  ImageCodec

	// Gateway uploads audio. Nil keeps every file local.
	Gateway upload.Gateway

	// CoverSize is the thumbnail bound in pixels. Zero means DefaultCoverSize.
	CoverSize int

	Logger zerolog.Logger
}

// Cache materializes covers and audio for the songs of a run.
//
// Cover work is memoized per resolved file, so songs sharing an owner and
// release decode and encode their thumbnail at most once per run, and an
// existing file on disk is always reused without decoding.
//
// MaterializeCover and AudioDest must be called from a single goroutine in
// tree order. MaterializeAudio may run concurrently for distinct songs.
type Cache struct {
	layout    Layout
	codec     ImageCodec
	gateway   upload.Gateway
	coverSize int
	log       zerolog.Logger

	covers     map[string]bool         // rel cover path -> materialized
	coverNames map[string]*model.Names // cover dir -> key registry
	soundNames map[string]*model.Names // sound dir -> file name registry
}

// New creates a Cache.
func New(opts Options) *Cache {
	size := opts.CoverSize
	if size <= 0 {
		size = DefaultCoverSize
	}
	return &Cache{
		layout:     opts.Layout,
		codec:      opts.Codec,
		gateway:    opts.Gateway,
		coverSize:  size,
		log:        opts.Logger,
		covers:     make(map[string]bool),
		coverNames: make(map[string]*model.Names),
		soundNames: make(map[string]*model.Names),
	}
}

// Layout returns the cache's output layout.
func (c *Cache) Layout() Layout {
	return c.layout
}

// CoverPath returns the relative thumbnail path for a song without touching
// the disk: {covers}/{station}/{playlist?}/{owner}_{release}.png.
func (c *Cache) CoverPath(song *model.Song) string {
	tags := song.Tags()
	dir := path.Join(c.layout.CoversDir, song.Parent.Dir())
	base := model.SafeName(tags.Owner()) + "_" + model.SafeName(tags.Album)
	key := claim(c.coverNames, dir, tags.Owner()+"\x00"+tags.Album, base)
	return path.Join(dir, key+".png")
}

// MaterializeCover resolves the cover thumbnail for a song.
//
// It returns the relative path and whether the thumbnail already existed
// (in this run or on disk). ok is false when the song has no usable cover;
// no cover reference should be emitted then. Decode and write failures are
// logged and reported as not ok.
func (c *Cache) MaterializeCover(ctx context.Context, song *model.Song) (rel string, cached bool, ok bool) {
	defer func() {
		song.CoverWritten = true
		if ok {
			song.Cover = rel
		}
	}()

	if !song.Valid() {
		return "", false, false
	}

	rel = c.CoverPath(song)
	if done, seen := c.covers[rel]; seen {
		if !done {
			return "", false, false
		}
		return rel, true, true
	}

	abs := c.layout.Abs(rel)
	if ioutils.Exists(abs) {
		c.covers[rel] = true
		return rel, true, true
	}

	tags := song.Tags()
	if !tags.HasCover() {
		return "", false, false
	}

	data, err := c.thumbnail(tags.Cover)
	if err == nil {
		err = ioutils.WriteFile(ctx, abs, data)
	}
	if err != nil {
		// Remember the failure so siblings on the same release don't retry.
		c.covers[rel] = false
		c.log.Warn().Err(err).Str("song", song.Path).Str("cover", rel).Msg("Failed to materialize cover")
		return "", false, false
	}

	c.covers[rel] = true
	c.log.Debug().Str("cover", rel).Msg("Wrote cover thumbnail")
	return rel, false, true
}

func (c *Cache) thumbnail(data []byte) ([]byte, error) {
	if c.codec == nil {
		return nil, errors.New("no image codec configured")
	}
	img, err := c.codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode cover: %w", err)
	}
	thumb := c.codec.ResizeToBound(img, c.coverSize, c.coverSize)
	out, err := c.codec.EncodePNG(thumb)
	if err != nil {
		return nil, fmt.Errorf("encode cover: %w", err)
	}
	return out, nil
}

// AudioDest returns the relative local destination for a song's audio:
// {sound}/{station}/{playlist?}/{artist}_{title}{ext}. Songs whose names
// collide after sanitizing get a numeric suffix, in call order.
func (c *Cache) AudioDest(song *model.Song) string {
	tags := song.Tags()
	dir := path.Join(c.layout.SoundDir, song.Parent.Dir())
	base := model.SafeName(tags.Artist) + "_" + model.SafeName(tags.Title)
	name := claim(c.soundNames, dir, song.ID(), base)
	return path.Join(dir, name+song.Ext)
}

// MaterializeAudio produces the single audio reference for a song.
//
// With a gateway configured, files within the host's size limit are
// uploaded and referenced by URL. Oversized files and failed uploads fall
// back to copying the file to dest, referenced by relative path. The
// reference is also stored on the song.
func (c *Cache) MaterializeAudio(ctx context.Context, song *model.Song, dest string) (model.AudioRef, error) {
	if c.gateway != nil {
		if url, ok := c.tryUpload(ctx, song); ok {
			song.Audio = model.URLRef(url)
			return song.Audio, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return model.AudioRef{}, err
	}

	abs := c.layout.Abs(dest)
	if ioutils.SameSize(song.Path, abs) {
		c.log.Debug().Str("file", dest).Msg("Audio already in place")
	} else if err := ioutils.CopyFile(ctx, song.Path, abs); err != nil {
		return model.AudioRef{}, fmt.Errorf("copy %s: %w", song.Path, err)
	}

	song.Audio = model.PathRef(dest)
	return song.Audio, nil
}

func (c *Cache) tryUpload(ctx context.Context, song *model.Song) (string, bool) {
	size, err := ioutils.FileSize(song.Path)
	if err != nil {
		c.log.Warn().Err(err).Str("song", song.Path).Msg("Cannot stat audio file")
		return "", false
	}
	if err := upload.CheckSize(c.gateway, size); err != nil {
		c.log.Info().Err(err).Str("song", song.Path).Msg("Keeping oversized file local")
		return "", false
	}

	data, err := os.ReadFile(song.Path)
	if err != nil {
		c.log.Warn().Err(err).Str("song", song.Path).Msg("Cannot read audio file")
		return "", false
	}

	url, err := c.gateway.Upload(ctx, data, song.Path)
	if err != nil {
		c.log.Warn().Err(err).Str("song", song.Path).Str("host", c.gateway.Name()).Msg("Upload failed, keeping file local")
		return "", false
	}

	c.log.Info().Str("song", song.Path).Str("url", url).Msg("Upload successful")
	return url, true
}

// MaterializeIcon copies the station's PNG icon into the icons directory and
// records its material name on the station. It returns false when the
// station has no icon or the copy fails.
func (c *Cache) MaterializeIcon(ctx context.Context, st *model.Station) (string, bool) {
	if st.IconSource == "" {
		return "", false
	}

	rel := path.Join(c.layout.IconsDir, st.Segment()+".png")
	abs := c.layout.Abs(rel)
	if !ioutils.SameSize(st.IconSource, abs) {
		if err := ioutils.CopyFile(ctx, st.IconSource, abs); err != nil {
			c.log.Warn().Err(err).Str("station", st.Name).Msg("Failed to copy station icon")
			return "", false
		}
	}

	st.Icon = c.layout.MaterialRef(rel)
	return st.Icon, true
}

func claim(registries map[string]*model.Names, dir, raw, base string) string {
	names, ok := registries[dir]
	if !ok {
		names = model.NewNames()
		registries[dir] = names
	}
	return names.Claim(raw, base)
}
