package model

import "path"

// Parent is the owner of a Song: either a Station or a SubPlaylist.
//
// Exactly one of the two is set. Use StationParent or PlaylistParent to
// build one; the zero value has no owner.
type Parent struct {
	station  *Station
	playlist *SubPlaylist
}

// StationParent returns a Parent pointing at a station.
func StationParent(s *Station) Parent {
	return Parent{station: s}
}

// PlaylistParent returns a Parent pointing at a sub-playlist.
func PlaylistParent(p *SubPlaylist) Parent {
	return Parent{playlist: p}
}

// IsStation reports whether the song sits directly under its station.
func (p Parent) IsStation() bool {
	return p.playlist == nil && p.station != nil
}

// Playlist returns the owning sub-playlist, or nil when the parent is a
// station.
func (p Parent) Playlist() *SubPlaylist {
	return p.playlist
}

// Station returns the owning station, resolving through the sub-playlist
// when needed.
func (p Parent) Station() *Station {
	if p.playlist != nil {
		return p.playlist.Station
	}
	return p.station
}

// Var returns the Lua variable songs under this parent link to.
func (p Parent) Var() string {
	if p.playlist != nil {
		return p.playlist.Var()
	}
	return StationVar
}

// Dir returns the slash-separated asset directory for songs under this
// parent: "station" or "station/playlist".
func (p Parent) Dir() string {
	st := p.Station()
	if st == nil {
		return ""
	}
	if p.playlist != nil {
		return path.Join(st.Segment(), p.playlist.Segment())
	}
	return st.Segment()
}
