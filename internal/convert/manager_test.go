package convert

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"

	"github.com/handiism/cradio/internal/config"
	"github.com/handiism/cradio/internal/http"
	"github.com/handiism/cradio/internal/model"
)

type fakeReader map[string]model.Tags

func (r fakeReader) ReadTags(path string) (model.Tags, error) {
	tags, ok := r[filepath.Base(path)]
	if !ok {
		return model.Tags{}, model.ErrMissingMetadata
	}
	return tags, nil
}

type fakeCodec struct {
	mu      sync.Mutex
	encodes int
}

func (c *fakeCodec) Decode([]byte) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 300, 300)), nil
}

func (c *fakeCodec) ResizeToBound(img image.Image, w, h int) image.Image {
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

func (c *fakeCodec) EncodePNG(image.Image) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.encodes++
	return []byte("png"), nil
}

type fakeGateway struct {
	mu    sync.Mutex
	calls int
}

func (g *fakeGateway) Name() string     { return "fake" }
func (g *fakeGateway) SizeLimit() int64 { return 1 << 20 }
func (g *fakeGateway) Upload(_ context.Context, _ []byte, path string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return "https://files.example/" + filepath.Base(path), nil
}

// cancelGateway cancels the build from inside the first upload.
type cancelGateway struct {
	cancel context.CancelFunc
}

func (g *cancelGateway) Name() string     { return "cancel" }
func (g *cancelGateway) SizeLimit() int64 { return 1 << 20 }
func (g *cancelGateway) Upload(ctx context.Context, _ []byte, _ string) (string, error) {
	g.cancel()
	return "", ctx.Err()
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("audio-"+filepath.Base(path)), 0644); err != nil {
		t.Fatal(err)
	}
}

func testSettings(root string) *config.Settings {
	s := config.DefaultSettings()
	s.OutputDir = filepath.Join(root, "out")
	return s
}

var testTags = fakeReader{
	"rain.mp3": {Title: "Rain", Artist: "DJ X", Album: "EP1", Duration: 181.123456, Cover: []byte("img")},
	"snow.mp3": {Title: "Snow", Artist: "DJ X", Album: "EP1", Duration: 90, Cover: []byte("img")},
	"wind.ogg": {Title: "Wind", Artist: "Other", Album: "Wind", Duration: 60},
}

func TestManager_Run(t *testing.T) {
	root := t.TempDir()
	station := filepath.Join(root, "music", "Lofi")
	touch(t, filepath.Join(station, "rain.mp3"))
	touch(t, filepath.Join(station, "snow.mp3"))
	touch(t, filepath.Join(station, "broken.mp3"))
	touch(t, filepath.Join(station, "icon.png"))
	touch(t, filepath.Join(station, "Chill", "wind.ogg"))

	settings := testSettings(root)
	codec := &fakeCodec{}
	var events []ProgressEvent
	m := NewManager(settings, Deps{Reader: testTags, Codec: codec, Logger: zerolog.Nop()}, func(e ProgressEvent) {
		events = append(events, e)
	})

	summary, err := m.Run(context.Background(), []string{station})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(summary.Stations) != 1 || summary.Failed() != 0 {
		t.Fatalf("summary = %+v", summary)
	}

	r := summary.Stations[0]
	if r.Songs != 4 || r.Invalid != 1 || r.Written != 3 || r.Local != 3 || r.Uploaded != 0 || r.Covers != 2 {
		t.Errorf("result = %+v", r)
	}
	if codec.encodes != 1 {
		t.Errorf("encodes = %d, want 1 for a shared release", codec.encodes)
	}
	if done, total := m.GetProgress(); done != 4 || total != 4 {
		t.Errorf("GetProgress() = %d/%d, want 4/4", done, total)
	}

	data, err := os.ReadFile(filepath.Join(settings.OutputDir, "lua", "cradio", "stations", "lofi.lua"))
	if err != nil {
		t.Fatalf("station script missing: %v", err)
	}
	out := string(data)
	for _, want := range []string{
		`local station = CRadio:Station("Lofi")`,
		`station:SetIcon("cradio/stations/lofi.png")`,
		`song:SetCover("materials/cradio/covers/lofi/dj_x_ep1.png")`,
		`song:SetFile("sound/cradio/stations/lofi/dj_x_rain.mp3")`,
		`song:SetLength(181.1235)`,
		`local chillPlaylist = CRadio:SubPlaylist("Chill")`,
		`song:SetFile("sound/cradio/stations/lofi/chill/other_wind.ogg")`,
		`song:SetSelfTitled()`,
		`song:SetParent(chillPlaylist)`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(out, "broken") {
		t.Error("song without metadata should not be written")
	}

	for _, rel := range []string{
		"sound/cradio/stations/lofi/dj_x_rain.mp3",
		"sound/cradio/stations/lofi/chill/other_wind.ogg",
		"materials/cradio/covers/lofi/dj_x_ep1.png",
		"materials/cradio/stations/lofi.png",
	} {
		if _, err := os.Stat(filepath.Join(settings.OutputDir, filepath.FromSlash(rel))); err != nil {
			t.Errorf("%s not materialized: %v", rel, err)
		}
	}

	var warned bool
	for _, e := range events {
		if e.Level == LevelWarning && strings.Contains(e.Message, "broken.mp3") {
			warned = true
		}
	}
	if !warned {
		t.Error("expected a warning event for the song without tags")
	}
}

func TestManager_RunWithUploads(t *testing.T) {
	root := t.TempDir()
	station := filepath.Join(root, "music", "Lofi")
	touch(t, filepath.Join(station, "rain.mp3"))
	touch(t, filepath.Join(station, "snow.mp3"))
	touch(t, filepath.Join(station, "Chill", "wind.ogg"))

	settings := testSettings(root)
	settings.Uploads.MaxConcurrent = 3
	gw := &fakeGateway{}
	m := NewManager(settings, Deps{Reader: testTags, Codec: &fakeCodec{}, Gateway: gw, Logger: zerolog.Nop()}, nil)

	summary, err := m.Run(context.Background(), []string{station})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	r := summary.Stations[0]
	if r.Uploaded != 3 || r.Local != 0 || gw.calls != 3 {
		t.Errorf("result = %+v, upload calls = %d", r, gw.calls)
	}

	data, err := os.ReadFile(r.Output)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "song:SetURL("); n != 3 {
		t.Errorf("SetURL count = %d, want 3", n)
	}
	if strings.Contains(string(data), "SetFile") {
		t.Error("uploaded songs should not reference local files")
	}
	if _, err := os.Stat(filepath.Join(settings.OutputDir, "sound")); err == nil {
		t.Error("nothing should be copied when every upload succeeds")
	}
}

func TestManager_StationFailureDoesNotStopRun(t *testing.T) {
	root := t.TempDir()
	lofi := filepath.Join(root, "a", "Lofi")
	lofiAgain := filepath.Join(root, "b", "lofi")
	jazz := filepath.Join(root, "c", "Jazz")
	touch(t, filepath.Join(lofi, "rain.mp3"))
	touch(t, filepath.Join(lofiAgain, "snow.mp3"))
	touch(t, filepath.Join(jazz, "wind.ogg"))

	settings := testSettings(root)

	// A directory where the first station's script should go makes its
	// creation fail.
	blocked := filepath.Join(settings.OutputDir, "lua", "cradio", "stations", "lofi.lua")
	if err := os.MkdirAll(blocked, 0755); err != nil {
		t.Fatal(err)
	}

	m := NewManager(settings, Deps{Reader: testTags, Codec: &fakeCodec{}, Logger: zerolog.Nop()}, nil)
	summary, err := m.Run(context.Background(), []string{lofi, lofiAgain, jazz})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(summary.Stations) != 3 || summary.Failed() != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.Stations[0].Err == nil {
		t.Error("first station should fail")
	}
	if got := filepath.Base(summary.Stations[1].Output); got != "lofi_2.lua" {
		t.Errorf("colliding station output = %q, want lofi_2.lua", got)
	}
	for _, r := range summary.Stations[1:] {
		if _, err := os.Stat(r.Output); err != nil {
			t.Errorf("%s not written: %v", r.Name, err)
		}
	}
}

func TestManager_CancelledBuildKeepsPreviousScript(t *testing.T) {
	root := t.TempDir()
	station := filepath.Join(root, "Lofi")
	touch(t, filepath.Join(station, "rain.mp3"))
	touch(t, filepath.Join(station, "snow.mp3"))

	settings := testSettings(root)
	script := filepath.Join(settings.OutputDir, "lua", "cradio", "stations", "lofi.lua")

	first := NewManager(settings, Deps{Reader: testTags, Codec: &fakeCodec{}, Logger: zerolog.Nop()}, nil)
	if _, err := first.Run(context.Background(), []string{station}); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	before, err := os.ReadFile(script)
	if err != nil || len(before) == 0 {
		t.Fatalf("first run script = %d bytes, %v", len(before), err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	second := NewManager(settings, Deps{
		Reader:  testTags,
		Codec:   &fakeCodec{},
		Gateway: &cancelGateway{cancel: cancel},
		Logger:  zerolog.Nop(),
	}, nil)
	if _, err := second.Run(ctx, []string{station}); !errors.Is(err, context.Canceled) {
		t.Fatalf("second Run() error = %v, want context.Canceled", err)
	}

	after, err := os.ReadFile(script)
	if err != nil {
		t.Fatalf("script removed by cancelled run: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Errorf("script changed by cancelled run: %d bytes before, %d after", len(before), len(after))
	}

	entries, err := os.ReadDir(filepath.Dir(script))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("stations dir has %d entries, want only lofi.lua", len(entries))
	}
}

func TestManager_UploadProgress(t *testing.T) {
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		io.Copy(io.Discard, r.Body)
		io.WriteString(w, "https://files.example/rain.mp3")
	}))
	defer server.Close()

	client := http.NewClient(5 * time.Second)
	var (
		mu     sync.Mutex
		events []ProgressEvent
	)
	m := NewManager(testSettings(t.TempDir()), Deps{
		Reader:  testTags,
		Gateway: &fakeGateway{},
		Client:  client,
		Logger:  zerolog.Nop(),
	}, func(e ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	})

	if client.OnProgress == nil {
		t.Fatal("NewManager() did not attach upload progress to the client")
	}

	data := bytes.Repeat([]byte("a"), 4096)
	for i := 0; i < 2; i++ {
		_, err := client.PostMultipart(context.Background(), server.URL, []http.FormField{
			{Name: "fileToUpload", FileName: "rain.mp3", Data: data},
		}, nil)
		if err != nil {
			t.Fatalf("PostMultipart() error = %v", err)
		}
	}

	if got := m.GetUploaded(); got <= int64(2*len(data)) {
		t.Errorf("GetUploaded() = %d, want more than %d", got, 2*len(data))
	}

	mu.Lock()
	defer mu.Unlock()
	var sent int
	for _, e := range events {
		if e.Level == LevelVerbose && strings.HasPrefix(e.Message, "Sent ") && strings.Contains(e.Message, "to fake") {
			sent++
		}
	}
	if sent != 2 {
		t.Errorf("got %d upload events, want 2: %+v", sent, events)
	}
}

func TestManager_Locked(t *testing.T) {
	settings := testSettings(t.TempDir())
	if err := os.MkdirAll(settings.OutputDir, 0755); err != nil {
		t.Fatal(err)
	}

	held := flock.New(filepath.Join(settings.OutputDir, LockFile))
	if ok, err := held.TryLock(); err != nil || !ok {
		t.Fatalf("TryLock() = %v, %v", ok, err)
	}
	defer held.Unlock()

	m := NewManager(settings, Deps{Reader: testTags, Logger: zerolog.Nop()}, nil)
	if _, err := m.Run(context.Background(), nil); !errors.Is(err, ErrLocked) {
		t.Errorf("Run() error = %v, want ErrLocked", err)
	}
}

func TestManager_Cancelled(t *testing.T) {
	root := t.TempDir()
	station := filepath.Join(root, "Lofi")
	touch(t, filepath.Join(station, "rain.mp3"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewManager(testSettings(root), Deps{Reader: testTags, Logger: zerolog.Nop()}, nil)
	if _, err := m.Run(ctx, []string{station}); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestDefaultDeps(t *testing.T) {
	settings := config.DefaultSettings()

	deps, err := DefaultDeps(settings, zerolog.Nop())
	if err != nil {
		t.Fatalf("DefaultDeps() error = %v", err)
	}
	if deps.Gateway != nil || deps.Reader == nil || deps.Codec == nil {
		t.Errorf("deps = %+v", deps)
	}

	settings.Uploads.Host = "catbox"
	deps, err = DefaultDeps(settings, zerolog.Nop())
	if err != nil || deps.Gateway == nil || deps.Gateway.Name() != "catbox" {
		t.Errorf("DefaultDeps(catbox) = %+v, %v", deps.Gateway, err)
	}
	if deps.Client == nil {
		t.Fatal("DefaultDeps(catbox) has no upload client")
	}
	NewManager(settings, deps, nil)
	if deps.Client.OnProgress == nil {
		t.Error("upload client progress not wired by NewManager")
	}

	settings.Uploads.Host = "quax"
	if _, err := DefaultDeps(settings, zerolog.Nop()); err == nil {
		t.Error("quax without user hash should fail")
	}
}
