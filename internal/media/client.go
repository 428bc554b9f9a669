// Package media uploads files to the media host and inspects uploads before they leave the server.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/kvo5/marvel-madness/internal/observability"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Upload folders and transforms.
const (
	FolderPosts       = "/posts"
	FolderProfilePics = "/profile_pics"
	FolderCoverPics   = "/cover_pics"

	ProfileTransform = "w-400"
)

// UploadInput describes one file to upload.
type UploadInput struct {
	File              []byte
	FileName          string
	Folder            string
	Transformation    string
	UseUniqueFileName bool
}

// UploadResult is the media host's description of a stored file.
type UploadResult struct {
	FileID   string `json:"fileId"`
	Name     string `json:"name"`
	FilePath string `json:"filePath"`
	URL      string `json:"url"`
	FileType string `json:"fileType"`
	Height   int    `json:"height"`
	Width    int    `json:"width"`
	Size     int64  `json:"size"`
}

// IsImage reports whether the media host classified the file as an image.
func (r *UploadResult) IsImage() bool {
	return r.FileType == "image"
}

// UploadError is a non-2xx response from the media host.
type UploadError struct {
	Status  int
	Message string `json:"message"`
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("media upload status %d: %s", e.Status, e.Message)
}

// Uploader stores files on the media host.
type Uploader interface {
	Upload(ctx context.Context, in UploadInput) (*UploadResult, error)
}

// Client uploads to the media host with basic auth on the private key.
type Client struct {
	uploadURL  string
	privateKey string
	httpClient *http.Client
}

// NewClient returns a media host client. timeout bounds every upload.
func NewClient(uploadURL, privateKey string, timeout time.Duration) *Client {
	return &Client{
		uploadURL:  uploadURL,
		privateKey: privateKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Upload sends in as a multipart form.
func (c *Client) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if len(in.File) == 0 {
		return nil, errors.New("empty upload")
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", in.FileName)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(in.File); err != nil {
		return nil, err
	}
	fields := map[string]string{
		"fileName":          in.FileName,
		"useUniqueFileName": strconv.FormatBool(in.UseUniqueFileName),
	}
	if in.Folder != "" {
		fields["folder"] = in.Folder
	}
	if in.Transformation != "" {
		t, err := json.Marshal(map[string]string{"pre": in.Transformation})
		if err != nil {
			return nil, err
		}
		fields["transformation"] = string(t)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, &buf)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.SetBasicAuth(c.privateKey, "")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	observability.UpstreamLatency.WithLabelValues("media").Observe(time.Since(start).Seconds())
	if err != nil {
		observability.UpstreamRequests.WithLabelValues("media", "transport_error").Inc()
		return nil, fmt.Errorf("media upload: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		observability.UpstreamRequests.WithLabelValues("media", "error").Inc()
		upErr := &UploadError{Status: resp.StatusCode}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(upErr)
		return nil, upErr
	}

	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		observability.UpstreamRequests.WithLabelValues("media", "decode_error").Inc()
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	observability.UpstreamRequests.WithLabelValues("media", "ok").Inc()
	return &result, nil
}
