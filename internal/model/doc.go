// Package model defines the content tree used throughout cradio.
//
// # Tree
//
// A Station is built from one directory. Audio files directly inside it
// become Songs; each sub-directory becomes a SubPlaylist holding the audio
// files found directly inside that sub-directory:
//
//	st := model.NewStation("/music/Lofi")
//	song := st.AddSong("/music/Lofi/intro.mp3", reader)
//	chill := st.AddPlaylist("/music/Lofi/Chill")
//	chill.AddSong("/music/Lofi/Chill/rain.ogg", reader)
//
// Every Song has a Parent, which is either the Station or a SubPlaylist:
//
//	song.Parent.Var()     // "station" or "chillPlaylist"
//	song.Parent.Station() // the owning station in both cases
//
// # Names
//
// SafeName derives identifier-safe tokens from display names and tag
// values. It is deterministic but not injective; Names hands out suffixed
// tokens where distinct raw names collide.
//
// # Tags
//
// Song metadata is resolved lazily, at most once, through the TagReader
// attached when the song was added. Songs without a title are invalid and
// are skipped when the station is written.
package model
