package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/handiism/cradio/internal/assets"
	"github.com/handiism/cradio/internal/audio"
	"github.com/handiism/cradio/internal/config"
	"github.com/handiism/cradio/internal/http"
	ioutils "github.com/handiism/cradio/internal/io"
	"github.com/handiism/cradio/internal/model"
	"github.com/handiism/cradio/internal/scan"
	"github.com/handiism/cradio/internal/upload"
)

// ErrLocked is returned by Run when another build holds the output
// directory.
var ErrLocked = errors.New("output directory is locked by another build")

// LockFile is the name of the lock file created in the output directory.
const LockFile = ".cradio.lock"

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a build progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// Deps are the capabilities a build runs with.
type Deps struct {
	Reader  model.TagReader
	Codec   assets.ImageCodec
	Gateway upload.Gateway // nil keeps audio local
	Logger  zerolog.Logger

	// Client is the transport behind Gateway. When set, the Manager
	// reports completed upload bodies through it.
	Client *http.Client
}

// DefaultDeps wires the concrete tag reader, image codec and, when a host
// is configured, the upload gateway.
func DefaultDeps(settings *config.Settings, log zerolog.Logger) (Deps, error) {
	deps := Deps{
		Reader: audio.NewReader(),
		Codec:  ioutils.NewImageService(),
		Logger: log,
	}
	if settings.Uploads.Host == "" {
		return deps, nil
	}

	client := http.NewClient(settings.Timeout())
	gw, err := upload.New(settings.Uploads.Host, settings.Uploads.UserHash, client)
	if err != nil {
		return Deps{}, err
	}
	deps.Gateway = gw
	deps.Client = client
	return deps, nil
}

// StationResult describes the outcome of one station.
type StationResult struct {
	Name   string
	Path   string
	Output string // native path of the Lua script

	Songs    int // songs found in the tree
	Written  int // song records emitted
	Invalid  int // songs without a title
	Uploaded int
	Local    int
	Covers   int

	Err error
}

// Summary collects the results of a run, in input order.
type Summary struct {
	Stations []StationResult
}

// Failed returns the number of stations that could not be written.
func (s *Summary) Failed() int {
	n := 0
	for _, r := range s.Stations {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// Manager coordinates station builds.
type Manager struct {
	settings *config.Settings
	deps     Deps
	builder  *scan.Builder
	log      zerolog.Logger

	segments *model.Names

	totalSongs int32
	doneSongs  int32
	sentBytes  atomic.Int64

	onProgress func(ProgressEvent)
	mu         sync.Mutex
}

// NewManager creates a new build Manager.
func NewManager(settings *config.Settings, deps Deps, onProgress func(ProgressEvent)) *Manager {
	m := &Manager{
		settings:   settings,
		deps:       deps,
		builder:    scan.NewBuilder(deps.Reader, deps.Logger),
		log:        deps.Logger,
		segments:   model.NewNames(),
		onProgress: onProgress,
	}
	if deps.Client != nil {
		deps.Client.OnProgress = m.uploadProgress
	}
	return m
}

// GetProgress returns how many songs have been materialized out of those
// discovered so far.
func (m *Manager) GetProgress() (done, total int32) {
	return atomic.LoadInt32(&m.doneSongs), atomic.LoadInt32(&m.totalSongs)
}

// GetUploaded returns the number of request bytes sent to the upload host.
func (m *Manager) GetUploaded() int64 {
	return m.sentBytes.Load()
}

// uploadProgress is called by the upload client while a request body is
// being sent. Only finished bodies are counted.
func (m *Manager) uploadProgress(written, total int64) {
	if total <= 0 || written != total {
		return
	}
	sent := m.sentBytes.Add(total)
	m.progress(ProgressEvent{
		Message: fmt.Sprintf("Sent %.1f MB to %s (%.1f MB total)", megabytes(total), m.hostName(), megabytes(sent)),
		Level:   LevelVerbose,
	})
}

func (m *Manager) hostName() string {
	if m.deps.Gateway == nil {
		return "upload host"
	}
	return m.deps.Gateway.Name()
}

func megabytes(n int64) float64 {
	return float64(n) / (1 << 20)
}

// Run builds every station path in order.
//
// Station failures are recorded in the summary. The returned error is only
// set when the output directory is locked or ctx is cancelled.
func (m *Manager) Run(ctx context.Context, paths []string) (*Summary, error) {
	summary := &Summary{}

	if err := ioutils.EnsureDir(m.settings.OutputDir); err != nil {
		return summary, fmt.Errorf("create output directory: %w", err)
	}

	lock := flock.New(filepath.Join(m.settings.OutputDir, LockFile))
	locked, err := lock.TryLock()
	if err != nil {
		return summary, fmt.Errorf("lock output directory: %w", err)
	}
	if !locked {
		return summary, fmt.Errorf("%w: %s", ErrLocked, m.settings.OutputDir)
	}
	defer lock.Unlock()

	cache := assets.New(assets.Options{
		Layout:    m.settings.ToLayout(),
		Codec:     m.deps.Codec,
		Gateway:   m.deps.Gateway,
		CoverSize: m.settings.Covers.MaxSize,
		Logger:    m.log,
	})

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		result := m.buildStation(ctx, cache, path)
		summary.Stations = append(summary.Stations, result)

		if result.Err != nil {
			if errors.Is(result.Err, context.Canceled) || errors.Is(result.Err, context.DeadlineExceeded) {
				return summary, result.Err
			}
			m.log.Error().Err(result.Err).Str("station", result.Name).Msg("Station failed")
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error building %s: %v", result.Name, result.Err), Level: LevelError})
			continue
		}
		m.progress(ProgressEvent{
			Message: fmt.Sprintf("Built station %s: %d/%d songs written", result.Name, result.Written, result.Songs),
			Level:   LevelSuccess,
		})
	}

	return summary, nil
}

func (m *Manager) buildStation(ctx context.Context, cache *assets.Cache, path string) StationResult {
	st := m.builder.BuildStation(path)
	st.SetSegment(m.segments.Claim(st.ID(), st.SafeName()))

	result := StationResult{
		Name:   st.Name,
		Path:   st.Path,
		Output: m.settings.StationFile(st.Segment()),
		Songs:  st.SongCount(),
	}
	atomic.AddInt32(&m.totalSongs, int32(result.Songs))
	m.progress(ProgressEvent{
		Message: fmt.Sprintf("Found station %s (%d songs, %d playlists)", st.Name, result.Songs, len(st.Playlists)),
		Level:   LevelInfo,
	})

	if _, ok := cache.MaterializeIcon(ctx, st); ok {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Copied icon for %s", st.Name), Level: LevelVerbose})
	}

	// Tags, covers and audio destinations are resolved in tree order so
	// suffixes for colliding names are assigned deterministically.
	var songs []*model.Song
	for _, song := range st.AllSongs() {
		if !song.Valid() {
			result.Invalid++
			atomic.AddInt32(&m.doneSongs, 1)
			m.log.Warn().Err(song.TagsErr()).Str("song", song.Path).Msg("Skipping song without metadata")
			m.progress(ProgressEvent{Message: fmt.Sprintf("Missing tags in %s, skipping it", filepath.Base(song.Path)), Level: LevelWarning})
			continue
		}
		if _, _, ok := cache.MaterializeCover(ctx, song); ok {
			result.Covers++
		}
		songs = append(songs, song)
	}

	dests := make([]string, len(songs))
	for i, song := range songs {
		dests[i] = cache.AudioDest(song)
	}

	if err := m.materializeAudio(ctx, cache, songs, dests); err != nil {
		result.Err = err
		return result
	}

	for _, song := range songs {
		switch song.Audio.Kind {
		case model.AudioURL:
			result.Uploaded++
		case model.AudioPath:
			result.Local++
		}
		if audio.Writable(song) {
			result.Written++
		}
	}

	var script bytes.Buffer
	if err := audio.NewStationWriter(&script).Write(st); err != nil {
		result.Err = fmt.Errorf("write %s: %w", result.Output, err)
		return result
	}
	if err := replaceFile(result.Output, script.Bytes()); err != nil {
		result.Err = err
	}
	return result
}

// replaceFile writes data next to path and renames it into place, so the
// previous script survives until the new one is complete.
func replaceFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := ioutils.EnsureDir(dir); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// materializeAudio uploads or copies every song with at most
// uploads.max_concurrent in flight. A song whose audio cannot be placed is
// logged and left without a reference, which drops it from the output.
func (m *Manager) materializeAudio(ctx context.Context, cache *assets.Cache, songs []*model.Song, dests []string) error {
	limit := m.settings.Uploads.MaxConcurrent
	if limit <= 0 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)

	for i, song := range songs {
		song, dest := song, dests[i]
		g.Go(func() error {
			defer atomic.AddInt32(&m.doneSongs, 1)

			if err := ctx.Err(); err != nil {
				return err
			}
			ref, err := cache.MaterializeAudio(ctx, song, dest)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				m.log.Error().Err(err).Str("song", song.Path).Msg("Failed to place audio, dropping song")
				m.progress(ProgressEvent{Message: fmt.Sprintf("Error placing %s: %v", filepath.Base(song.Path), err), Level: LevelError})
				return nil
			}

			verb := "Copied"
			if ref.Kind == model.AudioURL {
				verb = "Uploaded"
			}
			m.progress(ProgressEvent{Message: fmt.Sprintf("%s: %s", verb, song.Name()), Level: LevelVerbose})
			return nil
		})
	}

	return g.Wait()
}

func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onProgress(event)
}
