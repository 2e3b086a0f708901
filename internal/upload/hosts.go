package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/handiism/cradio/internal/http"
)

const (
	catboxEndpoint   = "https://catbox.moe/user/api.php"
	pomfEndpoint     = "https://pomf.lain.la/upload.php"
	quaxEndpoint     = "https://qu.ax/upload.php"
	monofileEndpoint = "https://fyle.uk/upload"
	monofileDownload = "https://fyle.uk/download/"
)

// Catbox uploads to catbox.moe. The response body is the file URL.
type Catbox struct {
	Endpoint string

	client   *http.Client
	userHash string
	limit    int64
}

func (c *Catbox) Name() string     { return "catbox" }
func (c *Catbox) SizeLimit() int64 { return c.limit }

func (c *Catbox) Upload(ctx context.Context, data []byte, path string) (string, error) {
	resp, err := c.client.PostMultipart(ctx, c.Endpoint, []http.FormField{
		{Name: "reqtype", Value: "fileupload"},
		{Name: "userhash", Value: c.userHash},
		{Name: "fileToUpload", FileName: uploadName(path), Data: data},
	}, nil)
	if err != nil {
		return "", fmt.Errorf("catbox: %w", err)
	}
	if !resp.OK() {
		return "", statusError("catbox", resp)
	}

	url := strings.TrimSpace(string(resp.Body))
	if !strings.HasPrefix(url, "http") {
		return "", fmt.Errorf("catbox: %w: %q", ErrBadResponse, url)
	}
	return url, nil
}

// Pomf uploads to pomf-compatible hosts (pomf.lain.la, qu.ax), which answer
// with {"success": true, "files": [{"url": "..."}]}.
type Pomf struct {
	Endpoint string

	client *http.Client
	name   string
	limit  int64
}

type pomfResponse struct {
	Success bool `json:"success"`
	Files   []struct {
		URL string `json:"url"`
	} `json:"files"`
}

func (p *Pomf) Name() string     { return p.name }
func (p *Pomf) SizeLimit() int64 { return p.limit }

func (p *Pomf) Upload(ctx context.Context, data []byte, path string) (string, error) {
	resp, err := p.client.PostMultipart(ctx, p.Endpoint, []http.FormField{
		{Name: "files[]", FileName: uploadName(path), Data: data},
	}, nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", p.name, err)
	}
	if !resp.OK() {
		return "", statusError(p.name, resp)
	}

	var parsed pomfResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return "", fmt.Errorf("%s: %w: %v", p.name, ErrBadResponse, err)
	}
	if len(parsed.Files) == 0 || parsed.Files[0].URL == "" {
		return "", fmt.Errorf("%s: %w: no file url", p.name, ErrBadResponse)
	}
	return parsed.Files[0].URL, nil
}

// Monofile uploads to a Monofile instance. The response body is the file
// ID, which is appended to DownloadBase.
type Monofile struct {
	Endpoint     string
	DownloadBase string

	client   *http.Client
	userHash string
	limit    int64
}

func (m *Monofile) Name() string     { return "monofile" }
func (m *Monofile) SizeLimit() int64 { return m.limit }

func (m *Monofile) Upload(ctx context.Context, data []byte, path string) (string, error) {
	var headers map[string]string
	if m.userHash != "" {
		headers = map[string]string{"Cookie": "auth=" + m.userHash}
	}

	resp, err := m.client.PostMultipart(ctx, m.Endpoint, []http.FormField{
		{Name: "file", FileName: uploadName(path), Data: data},
	}, headers)
	if err != nil {
		return "", fmt.Errorf("monofile: %w", err)
	}
	if !resp.OK() {
		return "", statusError("monofile", resp)
	}

	id := strings.TrimSpace(string(resp.Body))
	if id == "" || strings.ContainsAny(id, " \n<") {
		return "", fmt.Errorf("monofile: %w: %q", ErrBadResponse, id)
	}
	return m.DownloadBase + id, nil
}
