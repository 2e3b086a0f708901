package audio

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/handiism/cradio/internal/model"
)

const rule = "---------------------------------\n"

// StationWriter serializes a station tree as a CRadio Lua script.
//
// Records are written parent before child: the station first, then its
// direct songs, then each sub-playlist followed by its songs. The first
// song record declares the shared "song" local and later records reassign
// it. Only songs that are valid and carry an audio reference are written.
//
// Example output:
//
//	---------------------------------
//	-- Station
//	---------------------------------
//	local station = CRadio:Station("Lofi")
//	station:SetIcon("cradio/stations/lofi.png")
//
//	---------------------------------
//	-- Songs
//	---------------------------------
//	local song = CRadio:Song("Rain")
//	song:SetArtist("DJ X")
//	song:SetRelease("EP1")
//	song:SetLength(181.1235)
//	song:SetFile("sound/cradio/stations/lofi/dj_x_rain.mp3")
//	song:SetParent(station)
type StationWriter struct {
	w        *bufio.Writer
	declared bool
}

// NewStationWriter creates a StationWriter writing to w.
func NewStationWriter(w io.Writer) *StationWriter {
	return &StationWriter{w: bufio.NewWriter(w)}
}

// Write serializes st and flushes the output.
func (sw *StationWriter) Write(st *model.Station) error {
	sw.declared = false

	sw.header("Station")
	fmt.Fprintf(sw.w, "local %s = CRadio:Station(%s)\n", st.Var(), Quote(st.Name))
	if st.Icon != "" {
		fmt.Fprintf(sw.w, "%s:SetIcon(%s)\n", st.Var(), Quote(st.Icon))
	}
	sw.w.WriteString("\n")

	sw.header("Songs")
	sw.songs(st.Songs)

	for _, p := range st.Playlists {
		sw.w.WriteString("\n")
		sw.header(p.Name + " (Playlist)")
		fmt.Fprintf(sw.w, "local %s = CRadio:SubPlaylist(%s)\n", p.Var(), Quote(p.Name))
		fmt.Fprintf(sw.w, "%s:SetParent(%s)\n\n", p.Var(), st.Var())
		sw.songs(p.Songs)
	}

	return sw.w.Flush()
}

// commentSafe keeps a title on one comment line.
var commentSafe = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

func (sw *StationWriter) header(title string) {
	sw.w.WriteString(rule)
	sw.w.WriteString("-- " + commentSafe.Replace(title) + "\n")
	sw.w.WriteString(rule)
}

func (sw *StationWriter) songs(songs []*model.Song) {
	written := 0
	for _, song := range songs {
		if !Writable(song) {
			continue
		}
		if written > 0 {
			sw.w.WriteString("\n")
		}
		sw.song(song)
		written++
	}
}

func (sw *StationWriter) song(song *model.Song) {
	tags := song.Tags()

	if !sw.declared {
		sw.w.WriteString("local ")
		sw.declared = true
	}
	fmt.Fprintf(sw.w, "song = CRadio:Song(%s)\n", Quote(tags.Title))

	if tags.Artist != "" {
		fmt.Fprintf(sw.w, "song:SetArtist(%s)\n", Quote(tags.Artist))
	}
	switch {
	case tags.SelfTitled():
		sw.w.WriteString("song:SetSelfTitled()\n")
	case tags.Album != "":
		fmt.Fprintf(sw.w, "song:SetRelease(%s)\n", Quote(tags.Album))
	}
	fmt.Fprintf(sw.w, "song:SetLength(%.4f)\n", tags.Duration)

	switch song.Audio.Kind {
	case model.AudioURL:
		fmt.Fprintf(sw.w, "song:SetURL(%s)\n", Quote(song.Audio.Value))
	case model.AudioPath:
		fmt.Fprintf(sw.w, "song:SetFile(%s)\n", Quote(song.Audio.Value))
	}

	if song.Cover != "" {
		fmt.Fprintf(sw.w, "song:SetCover(%s)\n", Quote(song.Cover))
	}
	fmt.Fprintf(sw.w, "song:SetParent(%s)\n", song.Parent.Var())
}

// Writable reports whether a song produces a record: it needs a title and
// a materialized audio reference.
func Writable(song *model.Song) bool {
	return song.Valid() && !song.Audio.IsZero()
}

// Quote returns s as a double-quoted Lua string literal.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if c < 0x20 || c == 0x7f {
				fmt.Fprintf(&b, `\%03d`, c)
			} else {
				b.WriteByte(c)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
