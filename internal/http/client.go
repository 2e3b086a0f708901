package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// Client wraps HTTP operations with upload-host specific configuration.
//
// Client provides:
//   - Configured User-Agent header
//   - Timeout handling
//   - multipart/form-data POST requests with optional progress tracking
//
// Example usage:
//
//	client := NewClient(60 * time.Second)
//
//	resp, err := client.PostMultipart(ctx, endpoint, fields, map[string]string{
//	    "Cookie": "auth=" + userHash,
//	})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(resp.StatusCode, string(resp.Body))
type Client struct {
	httpClient *http.Client
	userAgent  string

	// OnProgress, when set, is called while the request body is sent.
	OnProgress func(written, total int64)
}

// NewClient creates a new HTTP client.
//
// A zero or negative timeout falls back to 60 seconds. Uploads of large
// audio files can take a while, so callers usually raise it.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: "cradio",
	}
}

// ProgressWriter wraps a writer to track transfer progress.
//
// Use this to monitor large transfers by providing an OnUpdate callback
// that receives the current bytes written and total expected bytes.
type ProgressWriter struct {
	// Writer is the underlying writer to write data to.
	Writer io.Writer

	// Total is the expected total bytes.
	Total int64

	// Written is the current number of bytes written.
	Written int64

	// OnUpdate is called after each Write with current progress.
	// Parameters are (bytesWritten, totalExpected).
	OnUpdate func(written, total int64)
}

// Write implements io.Writer, tracking progress and calling OnUpdate.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.Written += int64(n)
	if pw.OnUpdate != nil {
		pw.OnUpdate(pw.Written, pw.Total)
	}
	return n, err
}

// FormField is one part of a multipart form.
//
// A field with a FileName is sent as a file part carrying Data; otherwise
// Value is sent as a plain form value.
type FormField struct {
	Name     string
	Value    string
	FileName string
	Data     []byte
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Status     string
	Body       []byte
}

// OK reports whether the host answered 200 OK.
func (r *Response) OK() bool {
	return r.StatusCode == http.StatusOK
}

// PostMultipart sends fields as multipart/form-data and returns the response.
//
// The request includes the configured User-Agent header plus any extra
// headers. A non-200 status is not an error here; callers inspect
// Response.StatusCode since some hosts put diagnostics in the body.
//
// Returns an error if:
//   - The form cannot be encoded
//   - The request fails
//   - Reading the body fails
func (c *Client) PostMultipart(ctx context.Context, url string, fields []FormField, headers map[string]string) (*Response, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	for _, field := range fields {
		if field.FileName == "" {
			if err := form.WriteField(field.Name, field.Value); err != nil {
				return nil, fmt.Errorf("write field %s: %w", field.Name, err)
			}
			continue
		}

		part, err := form.CreateFormFile(field.Name, field.FileName)
		if err != nil {
			return nil, fmt.Errorf("create file part %s: %w", field.Name, err)
		}
		if _, err := part.Write(field.Data); err != nil {
			return nil, fmt.Errorf("write file part %s: %w", field.Name, err)
		}
	}
	if err := form.Close(); err != nil {
		return nil, err
	}

	var reader io.Reader = &body
	if c.OnProgress != nil {
		reader = &progressReader{Reader: &body, total: int64(body.Len()), onUpdate: c.OnProgress}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reader)
	if err != nil {
		return nil, err
	}
	req.ContentLength = int64(body.Len())
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", form.FormDataContentType())
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       data,
	}, nil
}

// progressReader reports bytes read from the request body through a
// ProgressWriter.
type progressReader struct {
	io.Reader
	total    int64
	onUpdate func(written, total int64)
	pw       *ProgressWriter
}

func (r *progressReader) Read(p []byte) (int, error) {
	if r.pw == nil {
		r.pw = &ProgressWriter{Writer: io.Discard, Total: r.total, OnUpdate: r.onUpdate}
	}
	n, err := r.Reader.Read(p)
	if n > 0 {
		r.pw.Write(p[:n])
	}
	return n, err
}
