package model

import (
	"path/filepath"
	"sync"
)

// StationVar is the Lua variable every station record is bound to.
const StationVar = "station"

// Station is the root of a content tree: one radio channel built from one
// directory.
//
// A Station owns the songs found directly in its directory and one
// SubPlaylist per sub-directory. It never owns nested playlists below that
// single level.
//
// Example:
//
//	st := model.NewStation("/music/Lofi Radio")
//	st.Name       // "Lofi Radio"
//	st.SafeName() // "lofi_radio"
//	st.Var()      // "station"
type Station struct {
	// Name is the display name, taken from the directory base name.
	Name string

	// Path is the station directory on disk.
	Path string

	// Songs are the audio files found directly in Path.
	Songs []*Song

	// Playlists are the sub-directories of Path, in listing order.
	Playlists []*SubPlaylist

	// IconSource is the first PNG file found directly in Path.
	// Empty if the directory has none.
	IconSource string

	// Icon is the emitted icon reference once IconSource has been copied
	// into the output tree. Empty means no icon line is written.
	Icon string

	safe     onceName
	segment  string
	segments *Names
}

// NewStation creates an empty Station for the directory at path.
func NewStation(path string) *Station {
	path = filepath.Clean(path)
	return &Station{
		Name:     filepath.Base(path),
		Path:     path,
		segments: NewNames(),
	}
}

// SafeName returns the sanitized station name. It is computed once.
func (s *Station) SafeName() string {
	return s.safe.get(s.Name)
}

// Segment returns the path segment used for the station's assets and
// output file. It is SafeName unless SetSegment assigned a suffixed token.
func (s *Station) Segment() string {
	if s.segment == "" {
		return s.SafeName()
	}
	return s.segment
}

// SetSegment overrides the station's path segment, used when another
// station in the same run already owns SafeName.
func (s *Station) SetSegment(segment string) {
	s.segment = segment
}

// Var returns the Lua variable the station is referenced by.
func (s *Station) Var() string {
	return StationVar
}

// ID returns the station's identity: its cleaned source path.
func (s *Station) ID() string {
	return s.Path
}

// Equal reports whether two stations were built from the same directory.
func (s *Station) Equal(other *Station) bool {
	return other != nil && s.ID() == other.ID()
}

// AddSong appends a song found directly in the station directory.
func (s *Station) AddSong(path string, reader TagReader) *Song {
	song := newSong(path, StationParent(s), reader)
	s.Songs = append(s.Songs, song)
	return song
}

// AddPlaylist appends a sub-playlist for the directory at path.
//
// Playlists whose names sanitize to a token already used by a sibling get a
// numeric suffix so their Lua variables and asset directories stay distinct.
func (s *Station) AddPlaylist(path string) *SubPlaylist {
	path = filepath.Clean(path)
	p := &SubPlaylist{
		Name:    filepath.Base(path),
		Path:    path,
		Station: s,
	}
	if s.segments == nil {
		s.segments = NewNames()
	}
	p.segment = s.segments.Claim(p.Name, p.SafeName())
	s.Playlists = append(s.Playlists, p)
	return p
}

// SongCount returns the number of songs in the whole tree, valid or not.
func (s *Station) SongCount() int {
	n := len(s.Songs)
	for _, p := range s.Playlists {
		n += len(p.Songs)
	}
	return n
}

// AllSongs returns every song in depth-first tree order: direct songs
// first, then each playlist's songs in playlist order.
func (s *Station) AllSongs() []*Song {
	songs := make([]*Song, 0, s.SongCount())
	songs = append(songs, s.Songs...)
	for _, p := range s.Playlists {
		songs = append(songs, p.Songs...)
	}
	return songs
}

// SubPlaylist groups songs one level below a Station.
type SubPlaylist struct {
	// Name is the display name, taken from the directory base name.
	Name string

	// Path is the playlist directory on disk.
	Path string

	// Station is the owning station.
	Station *Station

	// Songs are the audio files found directly in Path.
	Songs []*Song

	safe    onceName
	segment string
}

// SafeName returns the sanitized playlist name. It is computed once.
func (p *SubPlaylist) SafeName() string {
	return p.safe.get(p.Name)
}

// Segment returns the path segment used for this playlist's assets. It is
// SafeName unless a sibling already claimed that token.
func (p *SubPlaylist) Segment() string {
	if p.segment == "" {
		return p.SafeName()
	}
	return p.segment
}

// Var returns the Lua variable the playlist is bound to, e.g. "chillPlaylist".
func (p *SubPlaylist) Var() string {
	return p.Segment() + "Playlist"
}

// ID returns the playlist's identity: its cleaned source path.
func (p *SubPlaylist) ID() string {
	return p.Path
}

// Equal reports whether two playlists were built from the same directory.
func (p *SubPlaylist) Equal(other *SubPlaylist) bool {
	return other != nil && p.ID() == other.ID()
}

// AddSong appends a song found in the playlist directory.
func (p *SubPlaylist) AddSong(path string, reader TagReader) *Song {
	song := newSong(path, PlaylistParent(p), reader)
	p.Songs = append(p.Songs, song)
	return song
}

// onceName caches a SafeName derivation for the lifetime of a node.
type onceName struct {
	once  sync.Once
	value string
}

func (o *onceName) get(raw string) string {
	o.once.Do(func() {
		o.value = SafeName(raw)
	})
	return o.value
}
