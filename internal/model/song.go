package model

import (
	"errors"
	"math"
	"path/filepath"
	"strings"
	"sync"
)

// ErrMissingMetadata is returned by a TagReader when a file has no usable
// title. Songs in this state are kept in the tree but never serialized.
var ErrMissingMetadata = errors.New("missing metadata")

// TagReader resolves the metadata of one audio file.
type TagReader interface {
	ReadTags(path string) (Tags, error)
}

// Tags is the metadata resolved for a song.
type Tags struct {
	Title       string
	Artist      string
	AlbumArtist string
	Album       string

	// Duration is the track length in seconds, rounded to 4 decimal places.
	Duration float64

	// Cover holds the embedded front cover image bytes, if any.
	Cover []byte
}

// Missing is the sentinel returned for songs whose tags could not be read.
var Missing = Tags{}

// Owner returns the artist a cover belongs to: the album artist when set,
// otherwise the track artist.
func (t Tags) Owner() string {
	if t.AlbumArtist != "" {
		return t.AlbumArtist
	}
	return t.Artist
}

// SelfTitled reports whether the release carries the same name as the song.
// The comparison is exact and case-sensitive.
func (t Tags) SelfTitled() bool {
	return t.Album != "" && t.Album == t.Title
}

// HasCover reports whether an embedded cover image was found.
func (t Tags) HasCover() bool {
	return len(t.Cover) > 0
}

// RoundDuration rounds seconds to 4 decimal places. Rounding an already
// rounded value returns it unchanged.
func RoundDuration(seconds float64) float64 {
	return math.Round(seconds*1e4) / 1e4
}

// AudioKind tells which kind of audio reference a song carries.
type AudioKind int

const (
	// AudioNone means the audio payload has not been materialized.
	AudioNone AudioKind = iota

	// AudioURL is a remote URL returned by an upload host.
	AudioURL

	// AudioPath is a path relative to the output root, with '/' separators.
	AudioPath
)

// AudioRef points at a song's audio payload. Exactly one kind is set once a
// song has been materialized.
type AudioRef struct {
	Kind  AudioKind
	Value string
}

// URLRef returns a remote audio reference.
func URLRef(url string) AudioRef {
	return AudioRef{Kind: AudioURL, Value: url}
}

// PathRef returns a local audio reference.
func PathRef(path string) AudioRef {
	return AudioRef{Kind: AudioPath, Value: path}
}

// IsZero reports whether no reference has been set.
func (r AudioRef) IsZero() bool {
	return r.Kind == AudioNone || r.Value == ""
}

// Song is a leaf node wrapping one audio file.
//
// Tags are resolved lazily through the TagReader attached when the song was
// added to the tree, and at most once. Audio, Cover and CoverWritten are set
// by the asset cache while the station is being built.
type Song struct {
	// Path is the audio file on disk.
	Path string

	// Ext is the lowercased file extension including the dot, e.g. ".mp3".
	Ext string

	// Parent is the station or sub-playlist that owns this song.
	Parent Parent

	// Audio is the materialized audio reference.
	Audio AudioRef

	// Cover is the relative cover path, empty when no cover is emitted.
	Cover string

	// CoverWritten is set once the cover reference has been determined,
	// whether or not a cover was found.
	CoverWritten bool

	reader   TagReader
	tagsOnce sync.Once
	tags     Tags
	tagsErr  error
}

func newSong(path string, parent Parent, reader TagReader) *Song {
	path = filepath.Clean(path)
	return &Song{
		Path:   path,
		Ext:    strings.ToLower(filepath.Ext(path)),
		Parent: parent,
		reader: reader,
	}
}

// Tags returns the song's metadata, reading it on first use.
//
// When the reader fails or yields no title, Missing is cached and returned;
// TagsErr then reports why.
func (s *Song) Tags() Tags {
	s.tagsOnce.Do(func() {
		if s.reader == nil {
			s.tags, s.tagsErr = Missing, ErrMissingMetadata
			return
		}

		tags, err := s.reader.ReadTags(s.Path)
		if err == nil && strings.TrimSpace(tags.Title) == "" {
			err = ErrMissingMetadata
		}
		if err != nil {
			s.tags, s.tagsErr = Missing, err
			return
		}

		tags.Duration = RoundDuration(tags.Duration)
		s.tags = tags
	})
	return s.tags
}

// TagsErr returns the error from resolving tags, or nil.
func (s *Song) TagsErr() error {
	s.Tags()
	return s.tagsErr
}

// Valid reports whether the song has a title and can be serialized.
func (s *Song) Valid() bool {
	return s.Tags().Title != ""
}

// Name returns the song title, or the file base name for invalid songs.
func (s *Song) Name() string {
	if title := s.Tags().Title; title != "" {
		return title
	}
	return filepath.Base(s.Path)
}

// Station returns the station the song belongs to, directly or through its
// sub-playlist.
func (s *Song) Station() *Station {
	return s.Parent.Station()
}

// ID returns the song's identity: its cleaned source path.
func (s *Song) ID() string {
	return s.Path
}

// Equal reports whether two songs wrap the same file.
func (s *Song) Equal(other *Song) bool {
	return other != nil && s.ID() == other.ID()
}
