// Package http provides the HTTP client used to talk to upload hosts.
//
// The Client in this package handles:
//   - User-Agent headers
//   - Timeout handling
//   - multipart/form-data uploads with progress tracking
//
// # Basic Usage
//
//	client := http.NewClient(60 * time.Second)
//
//	resp, err := client.PostMultipart(ctx, "https://host/upload.php", []http.FormField{
//	    {Name: "reqtype", Value: "fileupload"},
//	    {Name: "fileToUpload", FileName: "file.mp3", Data: data},
//	}, nil)
//
// # Progress Tracking
//
// Set Client.OnProgress to observe request bodies as they are sent:
//
//	client.OnProgress = func(written, total int64) { /* update UI */ }
//
// The ProgressWriter type can be used to wrap any io.Writer for progress tracking:
//
//	pw := &http.ProgressWriter{
//	    Writer:   file,
//	    Total:    contentLength,
//	    OnUpdate: func(written, total int64) { /* update UI */ },
//	}
package http
