package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bogem/id3v2"
	"github.com/dhowden/tag"
	"github.com/hajimehoshi/go-mp3"

	"github.com/handiism/cradio/internal/model"
)

// ErrUnsupportedFormat is returned for files that are not MP3, FLAC or Ogg.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Reader reads song metadata from audio files.
//
// Example:
//
//	reader := NewReader()
//	st.AddSong(path, reader) // tags are read on first use
type Reader struct{}

// NewReader creates a Reader.
func NewReader() *Reader {
	return &Reader{}
}

// ReadTags implements model.TagReader.
//
// A file without a title yields model.ErrMissingMetadata. Duration is in
// seconds and unrounded; zero means it could not be determined.
func (r *Reader) ReadTags(path string) (model.Tags, error) {
	var (
		tags model.Tags
		err  error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		tags, err = readMP3(path)
	case ".flac", ".ogg":
		tags, err = readGeneric(path)
	default:
		return model.Missing, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return model.Missing, err
	}

	if strings.TrimSpace(tags.Title) == "" {
		return model.Missing, fmt.Errorf("%w: %s", model.ErrMissingMetadata, path)
	}
	return tags, nil
}

func readMP3(path string) (model.Tags, error) {
	id3, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return model.Missing, fmt.Errorf("read id3 tags: %w", err)
	}
	defer id3.Close()

	tags := model.Tags{
		Title:       id3.Title(),
		Artist:      id3.Artist(),
		AlbumArtist: id3.GetTextFrame("TPE2").Text,
		Album:       id3.Album(),
		Cover:       frontCover(id3),
	}

	if ms, err := strconv.ParseFloat(strings.TrimSpace(id3.GetTextFrame("TLEN").Text), 64); err == nil && ms > 0 {
		tags.Duration = ms / 1000
	} else {
		tags.Duration = mp3Duration(path)
	}

	return tags, nil
}

// frontCover returns the front cover picture, falling back to the first
// attached picture of any type.
func frontCover(id3 *id3v2.Tag) []byte {
	var first []byte
	for _, f := range id3.GetFrames(id3.CommonID("Attached picture")) {
		pic, ok := f.(id3v2.PictureFrame)
		if !ok || len(pic.Picture) == 0 {
			continue
		}
		if pic.PictureType == id3v2.PTFrontCover {
			return pic.Picture
		}
		if first == nil {
			first = pic.Picture
		}
	}
	return first
}

// mp3Duration decodes the stream to find its length. The decoder always
// outputs 16-bit stereo, so one sample frame is 4 bytes.
func mp3Duration(path string) float64 {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(f)
	if err != nil || dec.SampleRate() == 0 || dec.Length() <= 0 {
		return 0
	}
	return float64(dec.Length()) / float64(4*dec.SampleRate())
}

func readGeneric(path string) (model.Tags, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Missing, err
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return model.Missing, fmt.Errorf("read tags: %w", err)
	}

	tags := model.Tags{
		Title:       meta.Title(),
		Artist:      meta.Artist(),
		AlbumArtist: meta.AlbumArtist(),
		Album:       meta.Album(),
	}
	if pic := meta.Picture(); pic != nil {
		tags.Cover = pic.Data
	}

	if _, err := f.Seek(0, io.SeekStart); err == nil {
		if meta.FileType() == tag.FLAC {
			tags.Duration, _ = flacDuration(f)
		} else {
			tags.Duration, _ = oggDuration(f)
		}
	}

	return tags, nil
}

// flacDuration reads total samples and sample rate from STREAMINFO, which
// is always the first metadata block.
func flacDuration(r io.Reader) (float64, error) {
	var head [4 + 4 + 18]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return 0, err
	}
	if string(head[:4]) != "fLaC" {
		return 0, errors.New("not a flac stream")
	}
	if head[4]&0x7f != 0 {
		return 0, errors.New("missing streaminfo block")
	}

	info := head[8:]
	rate := uint32(info[10])<<12 | uint32(info[11])<<4 | uint32(info[12])>>4
	total := uint64(info[13]&0x0f)<<32 | uint64(binary.BigEndian.Uint32(info[14:18]))
	if rate == 0 {
		return 0, errors.New("invalid sample rate")
	}
	return float64(total) / float64(rate), nil
}

const oggTail = 64 << 10

// oggDuration divides the granule position of the last page by the
// stream's sample rate. Opus granules always count 48 kHz samples and
// include the pre-skip.
func oggDuration(r io.ReadSeeker) (float64, error) {
	var first [128]byte
	n, err := io.ReadFull(r, first[:])
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, err
	}
	rate, preSkip, err := oggRate(first[:n])
	if err != nil {
		return 0, err
	}

	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	start := size - oggTail
	if start < 0 {
		start = 0
	}
	if _, err := r.Seek(start, io.SeekStart); err != nil {
		return 0, err
	}
	tail, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}

	i := bytes.LastIndex(tail, []byte("OggS"))
	if i < 0 || len(tail) < i+14 {
		return 0, errors.New("no ogg page found")
	}
	granule := int64(binary.LittleEndian.Uint64(tail[i+6 : i+14]))
	samples := granule - preSkip
	if samples <= 0 {
		return 0, errors.New("invalid granule position")
	}
	return float64(samples) / float64(rate), nil
}

// oggRate reads the sample rate from the identification header in the
// first page.
func oggRate(page []byte) (rate, preSkip int64, err error) {
	if len(page) < 27 || string(page[:4]) != "OggS" {
		return 0, 0, errors.New("not an ogg stream")
	}
	body := page[27+int(page[26]):]

	switch {
	case len(body) >= 16 && string(body[:7]) == "\x01vorbis":
		rate = int64(binary.LittleEndian.Uint32(body[12:16]))
	case len(body) >= 12 && string(body[:8]) == "OpusHead":
		rate = 48000
		preSkip = int64(binary.LittleEndian.Uint16(body[10:12]))
	default:
		return 0, 0, errors.New("unknown ogg codec")
	}
	if rate == 0 {
		return 0, 0, errors.New("invalid sample rate")
	}
	return rate, preSkip, nil
}
