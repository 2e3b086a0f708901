// Package audio reads metadata from audio files and writes CRadio station
// scripts.
//
// # Tag Reading
//
// Reader implements model.TagReader for MP3, FLAC and Ogg files:
//
//	reader := audio.NewReader()
//	tags, err := reader.ReadTags("/music/Lofi/rain.mp3")
//
// MP3 files are read with id3v2 (TIT2, TPE1, TPE2, TALB, APIC, TLEN).
// When TLEN is missing the stream is decoded to measure its length. FLAC
// and Ogg files are read with dhowden/tag, and their length comes from the
// FLAC STREAMINFO block or the last Ogg granule position.
//
// # Station Scripts
//
// StationWriter serializes a station tree as a Lua script for the CRadio
// addon:
//
//	f, _ := os.Create("lofi.lua")
//	defer f.Close()
//	err := audio.NewStationWriter(f).Write(station)
//
// The output starts with the station record, followed by its direct songs
// and then one block per sub-playlist. Songs without a title or without an
// audio reference are left out.
package audio
