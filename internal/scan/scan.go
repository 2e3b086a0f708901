// Package scan builds station trees from directories on disk.
package scan

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/handiism/cradio/internal/model"
)

// AudioExtensions are the file extensions that become songs, lowercased.
var AudioExtensions = []string{".mp3", ".ogg", ".flac"}

// IsAudio reports whether name has a supported audio extension.
func IsAudio(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range AudioExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Builder discovers the station tree of a directory.
type Builder struct {
	reader model.TagReader
	log    zerolog.Logger
}

// NewBuilder creates a Builder attaching reader to every song it finds.
func NewBuilder(reader model.TagReader, log zerolog.Logger) *Builder {
	return &Builder{reader: reader, log: log}
}

// BuildStation lists path once and builds its tree.
//
// Sub-directories become sub-playlists, which are listed one level deep;
// directories below them are ignored. Audio files become songs and the
// first PNG file directly in path becomes the station icon source. Other
// files are skipped. Listing failures are logged and leave the node empty.
//
// Children keep the order the filesystem lists them in.
func (b *Builder) BuildStation(path string) *model.Station {
	st := model.NewStation(path)

	for _, entry := range b.list(st.Path) {
		full := filepath.Join(st.Path, entry.Name())
		switch {
		case entry.IsDir():
			b.fillPlaylist(st.AddPlaylist(full))
		case IsAudio(entry.Name()):
			st.AddSong(full, b.reader)
		case st.IconSource == "" && strings.EqualFold(filepath.Ext(entry.Name()), ".png"):
			st.IconSource = full
		}
	}

	b.log.Debug().
		Str("station", st.Name).
		Int("songs", len(st.Songs)).
		Int("playlists", len(st.Playlists)).
		Msg("Scanned station")

	return st
}

func (b *Builder) fillPlaylist(p *model.SubPlaylist) {
	for _, entry := range b.list(p.Path) {
		if entry.IsDir() || !IsAudio(entry.Name()) {
			continue
		}
		p.AddSong(filepath.Join(p.Path, entry.Name()), b.reader)
	}
}

// list returns the directory entries unsorted.
func (b *Builder) list(dir string) []os.DirEntry {
	f, err := os.Open(dir)
	if err != nil {
		b.log.Warn().Err(err).Str("dir", dir).Msg("Failed to open directory")
		return nil
	}
	defer f.Close()

	entries, err := f.ReadDir(-1)
	if err != nil {
		b.log.Warn().Err(err).Str("dir", dir).Msg("Failed to read directory")
		return entries
	}
	return entries
}
