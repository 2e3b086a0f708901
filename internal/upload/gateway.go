package upload

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/handiism/cradio/internal/http"
)

var (
	// ErrTooLarge is returned by CheckSize when a file exceeds the host limit.
	ErrTooLarge = errors.New("file exceeds host size limit")

	// ErrUnknownHost is returned by New for an unsupported host key.
	ErrUnknownHost = errors.New("unknown upload host")

	// ErrUserHashRequired is returned by New when a host needs a user hash
	// and none was given.
	ErrUserHashRequired = errors.New("user hash required")

	// ErrBadResponse is returned when a host answers with something that
	// does not contain a URL.
	ErrBadResponse = errors.New("unexpected upload response")
)

// Gateway uploads one file and returns the URL it can be fetched from.
type Gateway interface {
	// Name is the host key, e.g. "catbox".
	Name() string

	// SizeLimit is the largest accepted file, in bytes.
	SizeLimit() int64

	// Upload sends data and returns its public URL. path is the original
	// file path; hosts use it for the file name and extension.
	Upload(ctx context.Context, data []byte, path string) (string, error)
}

// AuthMode describes whether a host takes a user hash.
type AuthMode int

const (
	// AuthNone means the host is anonymous only.
	AuthNone AuthMode = iota

	// AuthOptional means a user hash is accepted but not needed.
	AuthOptional

	// AuthRequired means uploads fail without a user hash.
	AuthRequired
)

// HostInfo describes a supported host for menus and validation.
type HostInfo struct {
	Key   string
	Title string
	Limit int64
	Auth  AuthMode
}

var hosts = []HostInfo{
	{Key: "catbox", Title: "catbox.moe", Limit: 200_000_000, Auth: AuthOptional},
	{Key: "pomf", Title: "pomf.lain.la", Limit: 1_000_000_000, Auth: AuthNone},
	{Key: "quax", Title: "qu.ax", Limit: 100_000_000, Auth: AuthRequired},
	{Key: "monofile", Title: "Monofile", Limit: 754_974_700, Auth: AuthOptional},
}

// Hosts returns the supported hosts in menu order.
func Hosts() []HostInfo {
	out := make([]HostInfo, len(hosts))
	copy(out, hosts)
	return out
}

// Lookup returns the host with the given key.
func Lookup(key string) (HostInfo, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, h := range hosts {
		if h.Key == key {
			return h, true
		}
	}
	return HostInfo{}, false
}

// New builds the gateway for a host key.
func New(key, userHash string, client *http.Client) (Gateway, error) {
	info, ok := Lookup(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownHost, key)
	}
	if info.Auth == AuthRequired && strings.TrimSpace(userHash) == "" {
		return nil, fmt.Errorf("%s: %w", info.Title, ErrUserHashRequired)
	}
	if info.Auth == AuthNone {
		userHash = ""
	}

	switch info.Key {
	case "catbox":
		return &Catbox{client: client, userHash: userHash, limit: info.Limit, Endpoint: catboxEndpoint}, nil
	case "pomf":
		return &Pomf{client: client, name: info.Key, limit: info.Limit, Endpoint: pomfEndpoint}, nil
	case "quax":
		return &Pomf{client: client, name: info.Key, limit: info.Limit, Endpoint: quaxEndpoint}, nil
	case "monofile":
		return &Monofile{client: client, userHash: userHash, limit: info.Limit, Endpoint: monofileEndpoint, DownloadBase: monofileDownload}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownHost, key)
}

// CheckSize returns ErrTooLarge when size exceeds the gateway's limit.
func CheckSize(g Gateway, size int64) error {
	if size > g.SizeLimit() {
		return fmt.Errorf("%w: %d > %d bytes (%s)", ErrTooLarge, size, g.SizeLimit(), g.Name())
	}
	return nil
}

// uploadName is the file name hosts see: "file" plus the original extension.
func uploadName(path string) string {
	return "file" + strings.ToLower(filepath.Ext(path))
}

func statusError(host string, resp *http.Response) error {
	return fmt.Errorf("%s: HTTP %d: %s", host, resp.StatusCode, strings.TrimSpace(string(resp.Body)))
}
